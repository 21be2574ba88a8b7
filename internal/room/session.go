package room

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/musaddique333/Gatherly/internal/media"
	"github.com/musaddique333/Gatherly/internal/rtc"
	"github.com/musaddique333/Gatherly/internal/signaling"
)

// Identity pins a room session to one room and one local participant. It is
// fixed for the session's lifetime and determines the signaling endpoint.
type Identity struct {
	RoomID        string
	ParticipantID string
}

// Link is the slice of the signaling link the session drives. The session
// owns the link exclusively; no other component sends on it.
type Link interface {
	Connect() error
	Send(*signaling.Message)
	Close()
}

// LinkFactory builds the signaling link wired to the session's handlers.
type LinkFactory func(onReady func(), onMessage func(*signaling.Message), onDown func(error)) Link

// Events are the observable room state changes handed to the presentation
// layer. All rendering stays on the other side of these callbacks.
type Events struct {
	OnChat                 func(msg ChatMessage)
	OnTranscriptReplaced   func(entries []ChatMessage)
	OnParticipants         func(count int)
	OnRemoteStreamAttached func(participantID string, stream rtc.RemoteStream)
	OnRemoteStreamDetached func(participantID string)
	OnMediaState           func(audio, video, sharing bool)
	OnNotice               func(text string)
	OnTerminal             func(err error)
}

// Options tune session behavior.
type Options struct {
	// NegotiationTimeout bounds how long a peer session may stay mid-
	// negotiation before it is retired. Zero disables the watchdog.
	NegotiationTimeout time.Duration
}

// Session is the top-level coordinator for one room: it owns the signaling
// link, the peer session registry, the local media controller and the chat
// transcript, and tears them down as a unit on Leave.
type Session struct {
	identity    Identity
	registry    *Registry
	media       *media.Controller
	transcript  Transcript
	events      Events
	opts        Options
	linkFactory LinkFactory

	// opMu serializes event delivery: signaling messages, transport state
	// changes and watchdog expiries, approximating a single event loop.
	opMu sync.Mutex

	mu   sync.Mutex
	link Link
	left bool
}

// NewSession assembles a session for the given identity. Nothing connects
// until Join.
func NewSession(identity Identity, factory rtc.Factory, device media.CaptureDevice, linkFactory LinkFactory, events Events, opts Options) *Session {
	registry := NewRegistry(factory)
	return &Session{
		identity:    identity,
		registry:    registry,
		media:       media.NewController(device, registry),
		events:      events,
		opts:        opts,
		linkFactory: linkFactory,
	}
}

// Identity returns the session's room and participant ids.
func (s *Session) Identity() Identity { return s.identity }

// Join opens the signaling link. Once the link reports ready, local media is
// acquired and presence is announced to the room.
func (s *Session) Join() error {
	link := s.linkFactory(s.handleReady, s.handleMessage, s.handleDown)

	s.mu.Lock()
	s.link = link
	s.mu.Unlock()

	if err := link.Connect(); err != nil {
		return NewError("join room", err)
	}
	return nil
}

// ParticipantCount is the registry size plus one for the local participant.
func (s *Session) ParticipantCount() int {
	return s.registry.Len() + 1
}

// Transcript returns a copy of the chat transcript in order.
func (s *Session) Transcript() []ChatMessage {
	return s.transcript.Messages()
}

// SendChat appends the message locally right away and sends it over the
// link; the transcript never waits for the server round trip.
func (s *Session) SendChat(text string) {
	if text == "" {
		return
	}

	msg := ChatMessage{
		From:      s.identity.ParticipantID,
		Message:   text,
		Timestamp: time.Now().Format("15:04:05"),
	}
	s.transcript.Append(msg)
	if s.events.OnChat != nil {
		s.events.OnChat(msg)
	}

	s.send(signaling.NewChatMessage(msg.From, msg.Message, msg.Timestamp))
}

// ToggleAudio flips the microphone mute flag on the local tracks only.
func (s *Session) ToggleAudio() bool {
	enabled := s.media.ToggleAudio()
	s.notifyMediaState()
	return enabled
}

// ToggleVideo flips the camera mute flag on the local tracks only.
func (s *Session) ToggleVideo() bool {
	enabled := s.media.ToggleVideo()
	s.notifyMediaState()
	return enabled
}

// StartScreenShare replaces the outgoing video with a display capture on
// every live peer session.
func (s *Session) StartScreenShare() error {
	err := s.media.StartScreenShare()
	s.notifyMediaState()
	return err
}

// StopScreenShare restores the camera track on every live peer session.
func (s *Session) StopScreenShare() error {
	err := s.media.StopScreenShare()
	s.notifyMediaState()
	return err
}

// MediaState reports the local mute, camera and share flags.
func (s *Session) MediaState() (audio, video, sharing bool) {
	return s.media.AudioEnabled(), s.media.VideoEnabled(), s.media.Sharing()
}

// Leave tears the session down: peers are told first, then local media is
// released, every peer session closed, and finally the link closed, so the
// room learns about the departure before local resources vanish.
func (s *Session) Leave() {
	s.mu.Lock()
	if s.left {
		s.mu.Unlock()
		return
	}
	s.left = true
	link := s.link
	s.mu.Unlock()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if link != nil {
		link.Send(signaling.NewUserDisconnected(s.identity.ParticipantID))
	}
	s.media.Release()
	s.registry.Clear()
	if link != nil {
		link.Close()
	}
}

// handleReady runs after every successful link connect, initial or
// reconnect. Media acquisition failure is recoverable: the room stays usable
// for chat.
func (s *Session) handleReady() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.leftNow() {
		return
	}

	if _, err := s.media.Acquire(); err != nil {
		slog.Warn("local media unavailable, continuing without it", "error", err)
		s.notice("Camera and microphone unavailable; you can still use chat.")
	}

	s.send(signaling.NewUser(s.identity.ParticipantID))
}

// handleMessage routes one inbound signaling message. Messages are delivered
// in arrival order by the link's read loop.
func (s *Session) handleMessage(msg *signaling.Message) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.leftNow() {
		return
	}

	// The server may echo broadcasts back to their sender.
	if msg.From == s.identity.ParticipantID {
		return
	}

	switch msg.Type {
	case signaling.TypeNewUser:
		s.handleNewUser(msg.From)
	case signaling.TypeOffer:
		s.handleOffer(msg.From, msg.Offer)
	case signaling.TypeAnswer:
		s.handleAnswer(msg.From, msg.Answer)
	case signaling.TypeIceCandidate:
		s.handleCandidate(msg.From, msg.Candidate)
	case signaling.TypeChatMessage:
		s.handleChat(msg.From, msg.Message, msg.Timestamp)
	case signaling.TypeChatHistory:
		s.handleHistory(msg.Messages)
	case signaling.TypeUserDisconnected:
		s.handleDisconnected(msg.From)
	}
}

func (s *Session) handleDown(err error) {
	slog.Error("signaling link lost", "room", s.identity.RoomID, "error", err)
	if s.events.OnTerminal != nil {
		s.events.OnTerminal(err)
	}
}

// handleNewUser starts negotiation toward a newly announced participant: the
// existing member offers, the newcomer answers.
func (s *Session) handleNewUser(from string) {
	sess, created, err := s.registry.GetOrCreate(from)
	if err != nil {
		slog.Error("create peer session", "peer", from, "error", err)
		return
	}
	if !created {
		// Duplicate announcement; the existing session stands.
		return
	}

	s.setupSession(sess)

	offer, err := sess.SendOffer()
	if err != nil {
		slog.Error("offer to new participant", "peer", from, "error", err)
		return
	}

	s.armNegotiationWatchdog(sess)
	s.send(signaling.NewOffer(s.identity.ParticipantID, from, offer))
	s.notifyParticipants()
}

// handleOffer answers a remote offer, creating the session when this is the
// first contact. A glare exchange (both sides offered at once) is broken
// deterministically: the lexicographically smaller participant id stays the
// offerer and the other side discards its attempt and answers.
func (s *Session) handleOffer(from string, offer json.RawMessage) {
	if sess, ok := s.registry.Get(from); ok {
		if sess.Role() == RoleOfferer && sess.State() == StateNegotiating {
			if s.identity.ParticipantID < from {
				slog.Debug("ignoring glare offer, local side wins", "peer", from)
				return
			}
			// Remote side wins: drop our attempt and answer theirs.
			s.registry.Remove(from)
		} else {
			// Renegotiation on the existing connection.
			answer, err := sess.AcceptOffer(offer)
			if err != nil {
				slog.Error("renegotiate", "peer", from, "error", err)
				return
			}
			s.armNegotiationWatchdog(sess)
			s.send(signaling.NewAnswer(s.identity.ParticipantID, from, answer))
			return
		}
	}

	sess, created, err := s.registry.GetOrCreate(from)
	if err != nil {
		slog.Error("create peer session", "peer", from, "error", err)
		return
	}
	if created {
		s.setupSession(sess)
	}

	answer, err := sess.AcceptOffer(offer)
	if err != nil {
		slog.Error("answer offer", "peer", from, "error", err)
		return
	}

	s.armNegotiationWatchdog(sess)
	s.send(signaling.NewAnswer(s.identity.ParticipantID, from, answer))
	s.notifyParticipants()
}

func (s *Session) handleAnswer(from string, answer json.RawMessage) {
	sess, ok := s.registry.Get(from)
	if !ok {
		slog.Debug("answer for unknown peer", "peer", from)
		return
	}
	if err := sess.AcceptAnswer(answer); err != nil {
		slog.Error("apply answer", "peer", from, "error", err)
	}
}

func (s *Session) handleCandidate(from string, candidate json.RawMessage) {
	sess, ok := s.registry.Get(from)
	if !ok {
		slog.Debug("candidate for unknown peer", "peer", from)
		return
	}
	if err := sess.AddICECandidate(candidate); err != nil {
		slog.Error("apply ice candidate", "peer", from, "error", err)
	}
}

func (s *Session) handleChat(from, text, timestamp string) {
	msg := ChatMessage{From: from, Message: text, Timestamp: timestamp}
	s.transcript.Append(msg)
	if s.events.OnChat != nil {
		s.events.OnChat(msg)
	}
}

func (s *Session) handleHistory(entries []signaling.ChatEntry) {
	replay := make([]ChatMessage, 0, len(entries))
	for _, e := range entries {
		replay = append(replay, ChatMessage{From: e.From, Message: e.Message, Timestamp: e.Timestamp})
	}
	s.transcript.Replace(replay)
	if s.events.OnTranscriptReplaced != nil {
		s.events.OnTranscriptReplaced(replay)
	}
}

func (s *Session) handleDisconnected(from string) {
	sess, ok := s.registry.Get(from)
	if !ok {
		return
	}
	if _, had := sess.RemoteStream(); had && s.events.OnRemoteStreamDetached != nil {
		s.events.OnRemoteStreamDetached(from)
	}
	s.registry.Remove(from)
	s.notifyParticipants()
}

// setupSession wires transport callbacks and attaches the local tracks to a
// freshly created peer session.
func (s *Session) setupSession(sess *PeerSession) {
	remoteID := sess.RemoteID()
	transport := sess.Transport()

	transport.OnICECandidate(func(candidate json.RawMessage) {
		s.send(signaling.NewIceCandidate(s.identity.ParticipantID, remoteID, candidate))
	})
	transport.OnConnectionStateChange(func(state rtc.ConnectionState) {
		// Dispatched off the caller: the engine can report closed from
		// inside a Close we issued while holding opMu.
		go s.handleTransportState(sess, state)
	})
	transport.OnRemoteStream(func(stream rtc.RemoteStream) {
		s.handleRemoteStream(sess, stream)
	})

	if stream := s.media.Stream(); stream != nil {
		for _, track := range stream.Tracks() {
			if err := transport.AddTrack(track.Local()); err != nil {
				slog.Error("attach local track", "peer", remoteID, "kind", track.Kind(), "error", err)
			}
		}
	}
}

// handleTransportState observes connectivity for one peer. The event is
// pinned to the session whose transport raised it: a retired transport can
// report closed after the same participant id has been re-created (glare
// yield, watchdog then re-announce), and that late event must not touch the
// replacement session.
func (s *Session) handleTransportState(sess *PeerSession, state rtc.ConnectionState) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	remoteID := sess.RemoteID()
	current, ok := s.registry.Get(remoteID)
	if !ok || current != sess {
		return
	}

	switch state {
	case rtc.StateConnected:
		sess.MarkConnected()
	case rtc.StateDisconnected, rtc.StateFailed, rtc.StateClosed:
		slog.Info("peer transport lost", "peer", remoteID, "state", state)
		if _, had := sess.RemoteStream(); had && s.events.OnRemoteStreamDetached != nil {
			s.events.OnRemoteStreamDetached(remoteID)
		}
		s.registry.Remove(remoteID)
		s.notifyParticipants()
	}
}

func (s *Session) handleRemoteStream(sess *PeerSession, stream rtc.RemoteStream) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	remoteID := sess.RemoteID()
	current, ok := s.registry.Get(remoteID)
	if !ok || current != sess {
		return
	}
	if !sess.AttachRemoteStream(stream) {
		// Second track of an already attached stream.
		return
	}
	if s.events.OnRemoteStreamAttached != nil {
		s.events.OnRemoteStreamAttached(remoteID, stream)
	}
}

// armNegotiationWatchdog retires a session that is still negotiating after
// the configured timeout, bounding resource growth from stalled peers. The
// timer is pinned to the session it was armed for, so it never fires against
// a replacement created under the same participant id.
func (s *Session) armNegotiationWatchdog(sess *PeerSession) {
	if s.opts.NegotiationTimeout <= 0 {
		return
	}

	remoteID := sess.RemoteID()
	time.AfterFunc(s.opts.NegotiationTimeout, func() {
		s.opMu.Lock()
		defer s.opMu.Unlock()

		current, ok := s.registry.Get(remoteID)
		if !ok || current != sess || sess.State() != StateNegotiating {
			return
		}
		slog.Warn("negotiation stalled, retiring peer session", "peer", remoteID)
		if _, had := sess.RemoteStream(); had && s.events.OnRemoteStreamDetached != nil {
			s.events.OnRemoteStreamDetached(remoteID)
		}
		s.registry.Remove(remoteID)
		s.notifyParticipants()
	})
}

func (s *Session) send(msg *signaling.Message) {
	s.mu.Lock()
	link := s.link
	left := s.left
	s.mu.Unlock()

	if left || link == nil {
		return
	}
	link.Send(msg)
}

func (s *Session) leftNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.left
}

func (s *Session) notifyParticipants() {
	if s.events.OnParticipants != nil {
		s.events.OnParticipants(s.ParticipantCount())
	}
}

func (s *Session) notifyMediaState() {
	if s.events.OnMediaState != nil {
		s.events.OnMediaState(s.MediaState())
	}
}

func (s *Session) notice(text string) {
	if s.events.OnNotice != nil {
		s.events.OnNotice(text)
	}
}
