package transcription

import "context"

// Recognition is a speech recognizer result
type Recognition struct {
	// Text is the recognized text
	Text string

	// Partial indicates the recognizer is still inside an utterance
	Partial bool

	// Confidence is the mean word confidence (0.0 to 1.0)
	Confidence float64
}

// EngineConfig holds configuration for a local recognizer
type EngineConfig struct {
	// ModelPath is the path to the model directory
	ModelPath string

	// Language is the model's language tag, e.g. en-US
	Language string

	// SampleRate is the audio sample rate in Hz
	SampleRate int

	// MaxAlternatives is the maximum number of alternative results to return
	MaxAlternatives int
}

// DefaultEngineConfig returns a 16kHz configuration for modelPath
func DefaultEngineConfig(modelPath, language string) EngineConfig {
	return EngineConfig{
		ModelPath:  modelPath,
		Language:   language,
		SampleRate: 16000,
	}
}

// Engine is a local speech-to-text recognizer
type Engine interface {
	// Initialize loads the model
	Initialize(config EngineConfig) error

	// ProcessAudio feeds 16-bit PCM and returns the running result
	ProcessAudio(ctx context.Context, audioData []byte) (*Recognition, error)

	// FinalResult flushes the utterance and resets the recognizer
	FinalResult() (*Recognition, error)

	// Reset discards buffered audio
	Reset() error

	// Close releases resources
	Close() error

	// IsInitialized returns true if the engine is initialized
	IsInitialized() bool
}
