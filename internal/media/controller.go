package media

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// ErrNotAcquired is returned by operations that need a capture stream before
// Acquire succeeded.
var ErrNotAcquired = errors.New("local media not acquired")

// ErrReleased is returned once the controller has been released.
var ErrReleased = errors.New("local media already released")

// VideoReplacer swaps the outgoing video track on every live peer
// connection. The room session registry implements it.
type VideoReplacer interface {
	ReplaceVideoAll(track webrtc.TrackLocal)
}

// Controller owns the local capture stream for one room session: mute flags,
// the optional screen-share stream and teardown. Tracks are handed to peer
// sessions read-only; only the controller mutates them.
type Controller struct {
	device   CaptureDevice
	replacer VideoReplacer

	mu       sync.Mutex
	stream   *Stream
	screen   *Stream
	released bool
}

// NewController creates a controller over the given capture device. replacer
// may be nil when no peer fan-out is needed (chat-only sessions).
func NewController(device CaptureDevice, replacer VideoReplacer) *Controller {
	return &Controller{device: device, replacer: replacer}
}

// Acquire captures microphone and camera. A second call while already
// acquired returns the existing stream without a new capture request.
func (c *Controller) Acquire() (*Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil, ErrReleased
	}
	if c.stream != nil {
		return c.stream, nil
	}

	stream, err := c.device.Capture()
	if err != nil {
		return nil, err
	}
	c.stream = stream
	return stream, nil
}

// Stream returns the capture stream, or nil before Acquire.
func (c *Controller) Stream() *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// AudioEnabled reports whether the microphone is live.
func (c *Controller) AudioEnabled() bool { return c.kindEnabled(KindAudio) }

// VideoEnabled reports whether the camera is live.
func (c *Controller) VideoEnabled() bool { return c.kindEnabled(KindVideo) }

func (c *Controller) kindEnabled(kind string) bool {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()

	if stream == nil {
		return false
	}
	for _, t := range stream.tracksOfKind(kind) {
		if t.Enabled() {
			return true
		}
	}
	return false
}

// ToggleAudio flips the microphone mute flag and reports the new state.
// Capture keeps running either way.
func (c *Controller) ToggleAudio() bool { return c.toggleKind(KindAudio) }

// ToggleVideo flips the camera mute flag and reports the new state.
func (c *Controller) ToggleVideo() bool { return c.toggleKind(KindVideo) }

func (c *Controller) toggleKind(kind string) bool {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()

	if stream == nil {
		return false
	}

	enabled := false
	for _, t := range stream.tracksOfKind(kind) {
		next := !t.Enabled()
		t.SetEnabled(next)
		enabled = next
	}
	return enabled
}

// Sharing reports whether a screen share is active.
func (c *Controller) Sharing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen != nil
}

// StartScreenShare captures the display and swaps the screen track in as the
// outgoing video on every live peer connection. The camera track keeps
// capturing so StopScreenShare can restore it; audio is untouched.
func (c *Controller) StartScreenShare() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return ErrReleased
	}
	if c.stream == nil {
		c.mu.Unlock()
		return ErrNotAcquired
	}
	if c.screen != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	screen, err := c.device.CaptureDisplay()
	if err != nil {
		return err
	}

	tracks := screen.VideoTracks()
	if len(tracks) == 0 {
		screen.Stop()
		return errors.New("display capture produced no video track")
	}
	screenTrack := tracks[0]

	c.mu.Lock()
	c.screen = screen
	c.mu.Unlock()

	// The share ends implicitly when the user stops it at the source.
	screenTrack.OnEnded(func() {
		if err := c.StopScreenShare(); err != nil {
			slog.Warn("stop screen share after source ended", "error", err)
		}
	})

	if c.replacer != nil {
		c.replacer.ReplaceVideoAll(screenTrack.Local())
	}
	return nil
}

// StopScreenShare restores the camera as the outgoing video on every live
// peer connection and stops the display capture. No-op when not sharing.
func (c *Controller) StopScreenShare() error {
	c.mu.Lock()
	screen := c.screen
	c.screen = nil
	stream := c.stream
	c.mu.Unlock()

	if screen == nil {
		return nil
	}
	if stream == nil {
		screen.Stop()
		return ErrNotAcquired
	}

	if cams := stream.VideoTracks(); len(cams) > 0 && c.replacer != nil {
		c.replacer.ReplaceVideoAll(cams[0].Local())
	}

	screen.Stop()
	return nil
}

// Release stops every capture track. Called exactly once at room teardown;
// later calls are no-ops.
func (c *Controller) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	stream := c.stream
	screen := c.screen
	c.stream = nil
	c.screen = nil
	c.mu.Unlock()

	if screen != nil {
		screen.Stop()
	}
	if stream != nil {
		stream.Stop()
	}
}
