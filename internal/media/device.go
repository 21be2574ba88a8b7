package media

import (
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// CaptureDevice provides local capture. The room core only calls these two
// operations; the device owns everything below them.
type CaptureDevice interface {
	// Capture acquires the microphone and camera as one stream.
	Capture() (*Stream, error)

	// CaptureDisplay acquires a screen capture as a video-only stream.
	CaptureDisplay() (*Stream, error)
}

const (
	syntheticAudioInterval = 20 * time.Millisecond
	syntheticVideoInterval = 100 * time.Millisecond
)

// syntheticDevice generates silent audio and blank video samples. It stands
// in for real capture hardware on headless machines and in development.
type syntheticDevice struct{}

// Synthetic returns a capture device that needs no hardware.
func Synthetic() CaptureDevice {
	return syntheticDevice{}
}

func (syntheticDevice) Capture() (*Stream, error) {
	streamID := "cam-" + uuid.NewString()

	audio, err := newSyntheticTrack(KindAudio, webrtc.MimeTypeOpus, streamID, syntheticAudioInterval)
	if err != nil {
		return nil, err
	}
	video, err := newSyntheticTrack(KindVideo, webrtc.MimeTypeVP8, streamID, syntheticVideoInterval)
	if err != nil {
		audio.Stop()
		return nil, err
	}

	return NewStream(audio, video), nil
}

func (syntheticDevice) CaptureDisplay() (*Stream, error) {
	streamID := "screen-" + uuid.NewString()

	video, err := newSyntheticTrack(KindVideo, webrtc.MimeTypeVP8, streamID, syntheticVideoInterval)
	if err != nil {
		return nil, err
	}

	return NewStream(video), nil
}

// newSyntheticTrack starts a generator goroutine feeding placeholder samples
// into a static sample track. A disabled track keeps the goroutine running
// but writes nothing, matching mute semantics.
func newSyntheticTrack(kind, mimeType, streamID string, interval time.Duration) (*Track, error) {
	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType},
		kind+"-"+uuid.NewString(),
		streamID,
	)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	track := NewTrack(kind, local, func() { close(done) })

	go generateSamples(track, local, interval, done)

	return track, nil
}

// sampleWriter is the slice of the outgoing track the generator writes to.
type sampleWriter interface {
	WriteSample(pionmedia.Sample) error
}

// generateSamples feeds placeholder samples until the track is stopped or a
// write fails. A write failure means the pipeline behind the track is gone,
// so the track is ended as if its source had stopped.
func generateSamples(track *Track, w sampleWriter, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sample := pionmedia.Sample{Data: []byte{0}, Duration: interval}
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !track.Enabled() {
				continue
			}
			if err := w.WriteSample(sample); err != nil {
				track.end()
				return
			}
		}
	}
}
