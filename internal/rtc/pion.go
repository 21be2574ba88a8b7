package rtc

import (
	"encoding/json"
	"fmt"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/musaddique333/Gatherly/internal/config"
	"github.com/musaddique333/Gatherly/internal/netutil"
)

// PionFactory builds pion-backed peer transports from the ICE configuration.
type PionFactory struct {
	webrtcConfig pion.Configuration
}

// NewPionFactory derives the pion configuration once so every peer connection
// in the room shares the same ICE servers and transport policy.
func NewPionFactory(cfg *config.Config) *PionFactory {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || netutil.ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	return &PionFactory{
		webrtcConfig: pion.Configuration{
			ICEServers:         iceServers,
			ICETransportPolicy: policy,
		},
	}
}

// NewPeerTransport creates one peer connection.
func (f *PionFactory) NewPeerTransport() (PeerTransport, error) {
	pc, err := pion.NewPeerConnection(f.webrtcConfig)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return &pionTransport{pc: pc}, nil
}

// pionTransport adapts *pion.PeerConnection to the PeerTransport contract.
type pionTransport struct {
	pc *pion.PeerConnection

	mu      sync.Mutex
	senders []*pion.RTPSender
}

func (t *pionTransport) CreateOffer() (json.RawMessage, error) {
	// A chat-only participant still needs receive directions for the
	// remote side's media.
	t.mu.Lock()
	hasSenders := len(t.senders) > 0
	t.mu.Unlock()
	if !hasSenders {
		if err := t.addRecvOnlyTransceivers(); err != nil {
			return nil, err
		}
	}

	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return marshalDescription(t.pc.LocalDescription())
}

func (t *pionTransport) CreateAnswer(offer json.RawMessage) (json.RawMessage, error) {
	desc, err := unmarshalDescription(offer)
	if err != nil {
		return nil, err
	}
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return marshalDescription(t.pc.LocalDescription())
}

func (t *pionTransport) ApplyAnswer(answer json.RawMessage) error {
	desc, err := unmarshalDescription(answer)
	if err != nil {
		return err
	}
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (t *pionTransport) AddICECandidate(candidate json.RawMessage) error {
	var ice pion.ICECandidateInit
	if err := json.Unmarshal(candidate, &ice); err != nil {
		return fmt.Errorf("parse ICE candidate: %w", err)
	}
	if err := t.pc.AddICECandidate(ice); err != nil {
		return fmt.Errorf("add ICE candidate: %w", err)
	}
	return nil
}

func (t *pionTransport) AddTrack(track pion.TrackLocal) error {
	sender, err := t.pc.AddTrack(track)
	if err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	t.mu.Lock()
	t.senders = append(t.senders, sender)
	t.mu.Unlock()
	return nil
}

func (t *pionTransport) ReplaceVideoTrack(track pion.TrackLocal) error {
	for _, sender := range t.pc.GetSenders() {
		current := sender.Track()
		if current == nil || current.Kind() != pion.RTPCodecTypeVideo {
			continue
		}
		if err := sender.ReplaceTrack(track); err != nil {
			return fmt.Errorf("replace video track: %w", err)
		}
		return nil
	}
	return nil
}

func (t *pionTransport) OnICECandidate(fn func(json.RawMessage)) {
	t.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		fn(data)
	})
}

func (t *pionTransport) OnConnectionStateChange(fn func(ConnectionState)) {
	t.pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		fn(mapConnectionState(state))
	})
}

func (t *pionTransport) OnRemoteStream(fn func(RemoteStream)) {
	t.pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		fn(RemoteStream{
			ID:   track.StreamID(),
			Kind: track.Kind().String(),
		})
	})
}

func (t *pionTransport) Close() error {
	return t.pc.Close()
}

func (t *pionTransport) addRecvOnlyTransceivers() error {
	kinds := []pion.RTPCodecType{pion.RTPCodecTypeAudio, pion.RTPCodecTypeVideo}
	for _, kind := range kinds {
		_, err := t.pc.AddTransceiverFromKind(kind, pion.RTPTransceiverInit{
			Direction: pion.RTPTransceiverDirectionRecvonly,
		})
		if err != nil {
			return fmt.Errorf("add %s transceiver: %w", kind, err)
		}
	}
	return nil
}

func mapConnectionState(state pion.PeerConnectionState) ConnectionState {
	switch state {
	case pion.PeerConnectionStateNew:
		return StateNew
	case pion.PeerConnectionStateConnecting:
		return StateConnecting
	case pion.PeerConnectionStateConnected:
		return StateConnected
	case pion.PeerConnectionStateDisconnected:
		return StateDisconnected
	case pion.PeerConnectionStateFailed:
		return StateFailed
	case pion.PeerConnectionStateClosed:
		return StateClosed
	default:
		return StateNew
	}
}

func marshalDescription(desc *pion.SessionDescription) (json.RawMessage, error) {
	data, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("marshal session description: %w", err)
	}
	return data, nil
}

func unmarshalDescription(data json.RawMessage) (pion.SessionDescription, error) {
	var desc pion.SessionDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return desc, fmt.Errorf("parse session description: %w", err)
	}
	return desc, nil
}
