package media

import (
	"errors"
	"testing"

	"github.com/pion/webrtc/v4"
)

type stubDevice struct {
	captures        int
	displayCaptures int
	failCapture     bool
}

func (d *stubDevice) Capture() (*Stream, error) {
	d.captures++
	if d.failCapture {
		return nil, errors.New("permission denied")
	}
	return NewStream(
		stubTrack(KindAudio, webrtc.MimeTypeOpus, "cam"),
		stubTrack(KindVideo, webrtc.MimeTypeVP8, "cam"),
	), nil
}

func (d *stubDevice) CaptureDisplay() (*Stream, error) {
	d.displayCaptures++
	return NewStream(stubTrack(KindVideo, webrtc.MimeTypeVP8, "screen")), nil
}

func stubTrack(kind, mimeType, streamID string) *Track {
	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType}, kind, streamID)
	if err != nil {
		panic(err)
	}
	return NewTrack(kind, local, nil)
}

type recordingReplacer struct {
	tracks []webrtc.TrackLocal
}

func (r *recordingReplacer) ReplaceVideoAll(track webrtc.TrackLocal) {
	r.tracks = append(r.tracks, track)
}

func TestAcquireIsIdempotent(t *testing.T) {
	device := &stubDevice{}
	c := NewController(device, nil)

	first, err := c.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	second, err := c.Acquire()
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	if first != second {
		t.Fatalf("expected the same stream from repeated acquire")
	}
	if device.captures != 1 {
		t.Fatalf("expected one capture request, got %d", device.captures)
	}
}

func TestAcquireFailureIsRecoverable(t *testing.T) {
	c := NewController(&stubDevice{failCapture: true}, nil)

	if _, err := c.Acquire(); err == nil {
		t.Fatalf("expected capture failure")
	}
	if c.AudioEnabled() || c.VideoEnabled() {
		t.Fatalf("expected no media flags without a stream")
	}
}

func TestToggleAudioInvolution(t *testing.T) {
	c := NewController(&stubDevice{}, nil)
	if _, err := c.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if !c.AudioEnabled() {
		t.Fatalf("expected audio enabled initially")
	}
	if c.ToggleAudio() {
		t.Fatalf("expected first toggle to mute")
	}
	if !c.ToggleAudio() {
		t.Fatalf("expected second toggle to unmute")
	}
	if !c.AudioEnabled() {
		t.Fatalf("expected audio back to original state")
	}
}

func TestToggleDoesNotStopCapture(t *testing.T) {
	c := NewController(&stubDevice{}, nil)
	stream, _ := c.Acquire()

	c.ToggleVideo()

	for _, track := range stream.VideoTracks() {
		if track.Enabled() {
			t.Fatalf("expected video muted")
		}
	}
	// The track objects stay in the stream; nothing is stopped or removed.
	if len(stream.VideoTracks()) != 1 {
		t.Fatalf("expected capture track retained while muted")
	}
}

func TestScreenShareReplacesAndRestores(t *testing.T) {
	replacer := &recordingReplacer{}
	c := NewController(&stubDevice{}, replacer)
	stream, _ := c.Acquire()
	camera := stream.VideoTracks()[0].Local()

	if err := c.StartScreenShare(); err != nil {
		t.Fatalf("start share: %v", err)
	}
	if !c.Sharing() {
		t.Fatalf("expected sharing active")
	}
	if len(replacer.tracks) != 1 || replacer.tracks[0] == camera {
		t.Fatalf("expected screen track fanned out")
	}

	// Starting again while sharing changes nothing.
	if err := c.StartScreenShare(); err != nil {
		t.Fatalf("repeat start share: %v", err)
	}
	if len(replacer.tracks) != 1 {
		t.Fatalf("expected no second capture while already sharing")
	}

	if err := c.StopScreenShare(); err != nil {
		t.Fatalf("stop share: %v", err)
	}
	if c.Sharing() {
		t.Fatalf("expected sharing cleared")
	}
	if len(replacer.tracks) != 2 || replacer.tracks[1] != camera {
		t.Fatalf("expected camera restored")
	}

	// Stopping again is a no-op.
	if err := c.StopScreenShare(); err != nil {
		t.Fatalf("repeat stop share: %v", err)
	}
	if len(replacer.tracks) != 2 {
		t.Fatalf("expected no extra replacement on repeated stop")
	}
}

func TestScreenShareEndsWhenSourceEnds(t *testing.T) {
	replacer := &recordingReplacer{}
	device := &stubDevice{}
	c := NewController(device, replacer)
	c.Acquire()

	if err := c.StartScreenShare(); err != nil {
		t.Fatalf("start share: %v", err)
	}

	// Simulate the user stopping the share from the captured source.
	c.screen.VideoTracks()[0].end()

	if c.Sharing() {
		t.Fatalf("expected share stopped after source ended")
	}
	if len(replacer.tracks) != 2 {
		t.Fatalf("expected camera restored after source ended")
	}
}

func TestScreenShareRequiresAcquiredMedia(t *testing.T) {
	c := NewController(&stubDevice{}, nil)

	if err := c.StartScreenShare(); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}
}

func TestReleaseIsFinal(t *testing.T) {
	device := &stubDevice{}
	c := NewController(device, nil)
	c.Acquire()

	c.Release()
	c.Release()

	if _, err := c.Acquire(); !errors.Is(err, ErrReleased) {
		t.Fatalf("expected ErrReleased after teardown, got %v", err)
	}
}
