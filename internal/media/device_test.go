package media

import (
	"errors"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

type failingWriter struct{}

func (failingWriter) WriteSample(pionmedia.Sample) error {
	return errors.New("pipeline gone")
}

func TestGeneratorEndsTrackWhenWriteFails(t *testing.T) {
	track := stubTrack(KindVideo, webrtc.MimeTypeVP8, "screen")

	ended := make(chan struct{})
	track.OnEnded(func() { close(ended) })

	done := make(chan struct{})
	defer close(done)
	go generateSamples(track, failingWriter{}, time.Millisecond, done)

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatalf("expected a failed write to end the track")
	}
}

func TestGeneratorStopsSilentlyOnTrackStop(t *testing.T) {
	done := make(chan struct{})
	track := NewTrack(KindVideo, nil, func() { close(done) })
	track.OnEnded(func() {
		t.Errorf("deliberate stop must not fire OnEnded")
	})

	finished := make(chan struct{})
	go func() {
		generateSamples(track, failingWriter{}, time.Hour, done)
		close(finished)
	}()

	track.Stop()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("expected the generator to exit after Stop")
	}
}

func TestTrackEndFiresOnce(t *testing.T) {
	track := stubTrack(KindVideo, webrtc.MimeTypeVP8, "screen")

	fired := 0
	track.OnEnded(func() { fired++ })

	track.end()
	track.end()

	if fired != 1 {
		t.Fatalf("expected one OnEnded callback, got %d", fired)
	}
}
