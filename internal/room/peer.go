package room

import (
	"encoding/json"
	"sync"

	"github.com/musaddique333/Gatherly/internal/rtc"
)

// Role is which side of the offer/answer exchange this session took.
type Role int

const (
	RoleUnknown Role = iota
	RoleOfferer
	RoleAnswerer
)

// String returns the string representation of a Role.
func (r Role) String() string {
	switch r {
	case RoleOfferer:
		return "offerer"
	case RoleAnswerer:
		return "answerer"
	default:
		return "unknown"
	}
}

// State is the lifecycle position of a peer session. Created, Negotiating,
// Connected, Closed; renegotiation re-enters Negotiating from Connected.
type State int

const (
	StateCreated State = iota
	StateNegotiating
	StateConnected
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PeerSession is the per-remote-participant state machine driving one peer
// connection through offer/answer/candidate exchange and track attachment.
// At most one exists per remote participant id at any time.
type PeerSession struct {
	remoteID  string
	transport rtc.PeerTransport

	mu              sync.Mutex
	role            Role
	state           State
	hasRemoteStream bool
	remoteStream    rtc.RemoteStream
}

// NewPeerSession wraps a fresh transport for one remote participant.
func NewPeerSession(remoteID string, transport rtc.PeerTransport) *PeerSession {
	return &PeerSession{
		remoteID:  remoteID,
		transport: transport,
		state:     StateCreated,
	}
}

// RemoteID returns the remote participant id this session is keyed by.
func (p *PeerSession) RemoteID() string { return p.remoteID }

// Transport exposes the underlying transport for callback wiring.
func (p *PeerSession) Transport() rtc.PeerTransport { return p.transport }

// Role returns the negotiation role.
func (p *PeerSession) Role() Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.role
}

// State returns the lifecycle state.
func (p *PeerSession) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Live reports whether the session currently carries or is establishing
// media, i.e. it is Negotiating or Connected.
func (p *PeerSession) Live() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateNegotiating || p.state == StateConnected
}

// SendOffer creates an offer on the transport and moves the session into
// Negotiating as the offerer. On failure the prior state is kept.
func (p *PeerSession) SendOffer() (json.RawMessage, error) {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return nil, ErrSessionClosed
	}
	p.mu.Unlock()

	offer, err := p.transport.CreateOffer()
	if err != nil {
		return nil, NewPeerError("create offer", p.remoteID, err)
	}

	p.mu.Lock()
	if p.state != StateClosed {
		p.role = RoleOfferer
		p.state = StateNegotiating
	}
	p.mu.Unlock()
	return offer, nil
}

// AcceptOffer applies a remote offer and produces the answer, moving the
// session into Negotiating as the answerer. A Connected session re-enters
// Negotiating (renegotiation). On failure the prior state is kept.
func (p *PeerSession) AcceptOffer(offer json.RawMessage) (json.RawMessage, error) {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return nil, ErrSessionClosed
	}
	p.mu.Unlock()

	answer, err := p.transport.CreateAnswer(offer)
	if err != nil {
		return nil, NewPeerError("accept offer", p.remoteID, err)
	}

	p.mu.Lock()
	if p.state != StateClosed {
		p.role = RoleAnswerer
		p.state = StateNegotiating
	}
	p.mu.Unlock()
	return answer, nil
}

// AcceptAnswer applies the remote answer for an offer this session sent.
// The session stays Negotiating until the transport reports connected.
func (p *PeerSession) AcceptAnswer(answer json.RawMessage) error {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return ErrSessionClosed
	}
	if p.state != StateNegotiating {
		p.mu.Unlock()
		return NewPeerError("accept answer", p.remoteID, ErrBadNegotiation)
	}
	p.mu.Unlock()

	if err := p.transport.ApplyAnswer(answer); err != nil {
		return NewPeerError("accept answer", p.remoteID, err)
	}
	return nil
}

// AddICECandidate applies a remote candidate. Candidates may arrive in any
// state before Closed; the transport buffers early ones.
func (p *PeerSession) AddICECandidate(candidate json.RawMessage) error {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return ErrSessionClosed
	}
	p.mu.Unlock()

	if err := p.transport.AddICECandidate(candidate); err != nil {
		return NewPeerError("add ice candidate", p.remoteID, err)
	}
	return nil
}

// MarkConnected records that the transport reported connectivity.
func (p *PeerSession) MarkConnected() {
	p.mu.Lock()
	if p.state != StateClosed {
		p.state = StateConnected
	}
	p.mu.Unlock()
}

// AttachRemoteStream records the remote media stream. Returns false when a
// stream is already attached, suppressing duplicate notifications.
func (p *PeerSession) AttachRemoteStream(stream rtc.RemoteStream) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateClosed || p.hasRemoteStream {
		return false
	}
	p.hasRemoteStream = true
	p.remoteStream = stream
	return true
}

// RemoteStream returns the attached remote stream, if any.
func (p *PeerSession) RemoteStream() (rtc.RemoteStream, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remoteStream, p.hasRemoteStream
}

// Close moves the session to Closed and releases the transport. Idempotent;
// continuations still in flight observe Closed and no-op.
func (p *PeerSession) Close() {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return
	}
	p.state = StateClosed
	p.hasRemoteStream = false
	p.mu.Unlock()

	p.transport.Close()
}
