package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// Track kinds.
const (
	KindAudio = "audio"
	KindVideo = "video"
)

// Track is one local capture track. The enabled flag gates the outgoing
// pipeline; toggling it never stops or restarts capture.
type Track struct {
	kind  string
	local webrtc.TrackLocal

	mu      sync.Mutex
	enabled bool
	stopped bool
	stop    func()
	onEnded func()
}

// NewTrack wraps an outgoing track. stop tears down the capture pipeline
// behind it and may be nil.
func NewTrack(kind string, local webrtc.TrackLocal, stop func()) *Track {
	return &Track{kind: kind, local: local, enabled: true, stop: stop}
}

// Kind returns KindAudio or KindVideo.
func (t *Track) Kind() string { return t.kind }

// Local returns the outgoing track handle for the peer transport.
func (t *Track) Local() webrtc.TrackLocal { return t.local }

// Enabled reports whether the track is live (unmuted).
func (t *Track) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetEnabled flips the mute flag.
func (t *Track) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

// OnEnded registers a callback fired when the capture behind the track ends
// on its own, e.g. the user stops a screen share from the source window.
func (t *Track) OnEnded(fn func()) {
	t.mu.Lock()
	t.onEnded = fn
	t.mu.Unlock()
}

// Stop tears down the capture pipeline. Idempotent.
func (t *Track) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	stop := t.stop
	t.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// end marks the track ended by its source and fires the OnEnded callback,
// at most once.
func (t *Track) end() {
	t.mu.Lock()
	fn := t.onEnded
	t.onEnded = nil
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stream is a set of local tracks captured together.
type Stream struct {
	tracks []*Track
}

// NewStream groups tracks into a stream.
func NewStream(tracks ...*Track) *Stream {
	return &Stream{tracks: tracks}
}

// Tracks returns all tracks in the stream.
func (s *Stream) Tracks() []*Track { return s.tracks }

// AudioTracks returns the audio tracks.
func (s *Stream) AudioTracks() []*Track { return s.tracksOfKind(KindAudio) }

// VideoTracks returns the video tracks.
func (s *Stream) VideoTracks() []*Track { return s.tracksOfKind(KindVideo) }

func (s *Stream) tracksOfKind(kind string) []*Track {
	var out []*Track
	for _, t := range s.tracks {
		if t.kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// Stop stops every track in the stream.
func (s *Stream) Stop() {
	for _, t := range s.tracks {
		t.Stop()
	}
}
