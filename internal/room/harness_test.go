package room

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/musaddique333/Gatherly/internal/media"
	"github.com/musaddique333/Gatherly/internal/rtc"
	"github.com/musaddique333/Gatherly/internal/signaling"
)

// fakeTransport records the negotiation calls a session makes and lets tests
// drive the engine-side callbacks.
type fakeTransport struct {
	mu sync.Mutex

	offers        int
	answeredOffer json.RawMessage
	appliedAnswer json.RawMessage
	candidates    []json.RawMessage
	tracks        []webrtc.TrackLocal
	replaced      []webrtc.TrackLocal
	closed        bool

	failNegotiation bool
	failReplace     bool

	onICECandidate func(json.RawMessage)
	onStateChange  func(rtc.ConnectionState)
	onRemoteStream func(rtc.RemoteStream)
}

func (f *fakeTransport) CreateOffer() (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNegotiation {
		return nil, ErrBadNegotiation
	}
	f.offers++
	return json.RawMessage(`{"type":"offer","sdp":"v=0"}`), nil
}

func (f *fakeTransport) CreateAnswer(offer json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNegotiation {
		return nil, ErrBadNegotiation
	}
	f.answeredOffer = offer
	return json.RawMessage(`{"type":"answer","sdp":"v=0"}`), nil
}

func (f *fakeTransport) ApplyAnswer(answer json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appliedAnswer = answer
	return nil
}

func (f *fakeTransport) AddICECandidate(candidate json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, candidate)
	return nil
}

func (f *fakeTransport) AddTrack(track webrtc.TrackLocal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = append(f.tracks, track)
	return nil
}

func (f *fakeTransport) ReplaceVideoTrack(track webrtc.TrackLocal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReplace {
		return ErrBadNegotiation
	}
	f.replaced = append(f.replaced, track)
	return nil
}

func (f *fakeTransport) OnICECandidate(fn func(json.RawMessage))        { f.onICECandidate = fn }
func (f *fakeTransport) OnConnectionStateChange(fn func(rtc.ConnectionState)) { f.onStateChange = fn }
func (f *fakeTransport) OnRemoteStream(fn func(rtc.RemoteStream))       { f.onRemoteStream = fn }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) replacedTracks() []webrtc.TrackLocal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webrtc.TrackLocal(nil), f.replaced...)
}

// fakeFactory hands out fake transports and remembers them in creation order.
type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
}

func (f *fakeFactory) NewPeerTransport() (rtc.PeerTransport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr := &fakeTransport{}
	f.transports = append(f.transports, tr)
	return tr, nil
}

func (f *fakeFactory) last() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transports) == 0 {
		return nil
	}
	return f.transports[len(f.transports)-1]
}

// fakeLink captures outbound messages; Connect reports ready synchronously.
type fakeLink struct {
	onReady func()

	mu     sync.Mutex
	sent   []*signaling.Message
	closed bool
}

func (l *fakeLink) Connect() error {
	if l.onReady != nil {
		l.onReady()
	}
	return nil
}

func (l *fakeLink) Send(msg *signaling.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, msg)
}

func (l *fakeLink) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *fakeLink) sentMessages() []*signaling.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*signaling.Message(nil), l.sent...)
}

func (l *fakeLink) sentOfType(t signaling.Type) []*signaling.Message {
	var out []*signaling.Message
	for _, m := range l.sentMessages() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// fakeDevice captures tracks without goroutines behind them.
type fakeDevice struct {
	failCapture bool
}

func (d fakeDevice) Capture() (*media.Stream, error) {
	if d.failCapture {
		return nil, ErrMediaUnavailable
	}
	return media.NewStream(
		newTestTrack(media.KindAudio, webrtc.MimeTypeOpus, "cam"),
		newTestTrack(media.KindVideo, webrtc.MimeTypeVP8, "cam"),
	), nil
}

func (d fakeDevice) CaptureDisplay() (*media.Stream, error) {
	return media.NewStream(
		newTestTrack(media.KindVideo, webrtc.MimeTypeVP8, "screen"),
	), nil
}

func newTestTrack(kind, mimeType, streamID string) *media.Track {
	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType}, kind, streamID)
	if err != nil {
		panic(err)
	}
	return media.NewTrack(kind, local, nil)
}

// harness assembles a session against all-fake collaborators.
type harness struct {
	sess      *Session
	link      *fakeLink
	factory   *fakeFactory
	onMessage func(*signaling.Message)
}

func newHarness(t *testing.T, participantID string, events Events) *harness {
	return newHarnessFull(t, participantID, events, fakeDevice{}, Options{})
}

func newHarnessFull(t *testing.T, participantID string, events Events, device media.CaptureDevice, opts Options) *harness {
	t.Helper()

	h := &harness{
		link:    &fakeLink{},
		factory: &fakeFactory{},
	}

	linkFactory := func(onReady func(), onMessage func(*signaling.Message), _ func(error)) Link {
		h.link.onReady = onReady
		h.onMessage = onMessage
		return h.link
	}

	h.sess = NewSession(
		Identity{RoomID: "standup", ParticipantID: participantID},
		h.factory,
		device,
		linkFactory,
		events,
		opts,
	)

	if err := h.sess.Join(); err != nil {
		t.Fatalf("join: %v", err)
	}
	return h
}

func (h *harness) deliver(msg *signaling.Message) {
	h.onMessage(msg)
}
