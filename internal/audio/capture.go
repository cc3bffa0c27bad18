package audio

import (
	"context"
	"errors"
)

// ErrStreamClosed is returned by operations on a closed stream
var ErrStreamClosed = errors.New("audio stream closed")

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	// SampleRate is the number of samples per second (Hz)
	SampleRate uint32

	// Channels is the number of audio channels
	Channels uint32

	// BitDepth is the number of bits per sample, only 16 is supported
	BitDepth uint32

	// BufferFrames is the number of frames per device period
	BufferFrames uint32

	// BufferBytes bounds PCM held between the device callback and ReadChunk
	BufferBytes int

	// DeviceName selects an input device by name, empty for the default
	DeviceName string
}

// DefaultConfig returns a 16kHz mono PCM16 configuration
func DefaultConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:   16000,
		Channels:     1,
		BitDepth:     16,
		BufferFrames: 480,       // 30ms at 16kHz
		BufferBytes:  16000 * 4, // ~2s of mono PCM16
	}
}

// BytesPerSecond returns the PCM byte rate for the configuration
func (c CaptureConfig) BytesPerSecond() int {
	return int(c.SampleRate) * int(c.Channels) * int(c.BitDepth/8)
}

// Capture opens microphone streams
type Capture interface {
	Open(ctx context.Context, cfg CaptureConfig) (Stream, error)
}

// Stream is one open capture session
type Stream interface {
	// ReadChunk blocks until PCM is available. It returns io.EOF once the
	// stream is closed and drained.
	ReadChunk(ctx context.Context) ([]byte, error)

	// MaxAmplitude returns the peak absolute sample seen since the previous call
	MaxAmplitude() (int, error)

	// Close releases the device; it is safe to call more than once
	Close() error
}

// Pauser is implemented by streams that can suspend capture without closing
type Pauser interface {
	Pause() error
	Resume() error
}

// SupportsPause reports whether a stream can be paused
func SupportsPause(s Stream) bool {
	_, ok := s.(Pauser)
	return ok
}
