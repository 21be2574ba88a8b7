package room

import (
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/musaddique333/Gatherly/internal/rtc"
)

// Registry maps remote participant id to its peer session. Its size is the
// live remote participant count.
type Registry struct {
	factory rtc.Factory

	mu       sync.Mutex
	sessions map[string]*PeerSession
}

// NewRegistry creates an empty registry backed by the transport factory.
func NewRegistry(factory rtc.Factory) *Registry {
	return &Registry{
		factory:  factory,
		sessions: make(map[string]*PeerSession),
	}
}

// GetOrCreate returns the session for the participant, creating one when
// absent. Creation is idempotent: a second call for the same id returns the
// existing session and reports created=false.
func (r *Registry) GetOrCreate(participantID string) (sess *PeerSession, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[participantID]; ok {
		return existing, false, nil
	}

	transport, err := r.factory.NewPeerTransport()
	if err != nil {
		return nil, false, NewPeerError("create transport", participantID, err)
	}

	sess = NewPeerSession(participantID, transport)
	r.sessions[participantID] = sess
	return sess, true, nil
}

// Get returns the session for the participant, if present.
func (r *Registry) Get(participantID string) (*PeerSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[participantID]
	return sess, ok
}

// Remove closes the session's connection and then deletes the entry, in that
// order, so the native resources never outlive the registry slot. Removing
// an absent id is a no-op.
func (r *Registry) Remove(participantID string) {
	r.mu.Lock()
	sess, ok := r.sessions[participantID]
	delete(r.sessions, participantID)
	r.mu.Unlock()

	if ok {
		sess.Close()
	}
}

// All returns a snapshot of the live sessions.
func (r *Registry) All() []*PeerSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*PeerSession, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

// Len returns the live remote participant count.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ReplaceVideoAll swaps the outgoing video track on every session currently
// negotiating or connected. Replacement is idempotent per target; iteration
// order is not significant.
func (r *Registry) ReplaceVideoAll(track webrtc.TrackLocal) {
	for _, sess := range r.All() {
		if !sess.Live() {
			continue
		}
		if err := sess.Transport().ReplaceVideoTrack(track); err != nil {
			slog.Error("replace video track", "peer", sess.RemoteID(), "error", err)
		}
	}
}

// Clear closes every session and empties the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*PeerSession)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
