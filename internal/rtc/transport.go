package rtc

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

// ConnectionState is the transport-level connectivity of one peer connection.
type ConnectionState int

const (
	StateNew ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateFailed
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RemoteStream identifies a remote media stream that became available on a
// peer connection.
type RemoteStream struct {
	ID   string
	Kind string
}

// PeerTransport is the slice of the media engine one peer connection exposes
// to the room: offer/answer negotiation, ICE plumbing and track management.
// Session descriptions and candidates stay opaque JSON blobs; the room never
// looks inside them.
type PeerTransport interface {
	// CreateOffer produces an offer and installs it as the local description.
	CreateOffer() (json.RawMessage, error)

	// CreateAnswer applies the remote offer, produces an answer and installs
	// it as the local description.
	CreateAnswer(offer json.RawMessage) (json.RawMessage, error)

	// ApplyAnswer applies the remote answer description.
	ApplyAnswer(answer json.RawMessage) error

	// AddICECandidate applies one remote candidate. The engine buffers
	// candidates that arrive before negotiation completes.
	AddICECandidate(candidate json.RawMessage) error

	// AddTrack attaches a local outgoing track.
	AddTrack(track webrtc.TrackLocal) error

	// ReplaceVideoTrack swaps the outgoing video track in place on the
	// existing sender, without renegotiation.
	ReplaceVideoTrack(track webrtc.TrackLocal) error

	// OnICECandidate registers the callback for locally gathered candidates.
	OnICECandidate(fn func(candidate json.RawMessage))

	// OnConnectionStateChange registers the connectivity observer.
	OnConnectionStateChange(fn func(ConnectionState))

	// OnRemoteStream registers the callback for incoming remote media.
	OnRemoteStream(fn func(RemoteStream))

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// Factory creates one PeerTransport per remote participant.
type Factory interface {
	NewPeerTransport() (PeerTransport, error)
}
