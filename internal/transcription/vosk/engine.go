// Package vosk provides the offline recognizer backed by Vosk models.
package vosk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/emmett/voxnote/internal/transcription"
)

var _ transcription.Engine = (*Engine)(nil)

// Engine implements transcription.Engine using Vosk
type Engine struct {
	model       *vosk.VoskModel
	recognizer  *vosk.VoskRecognizer
	config      transcription.EngineConfig
	mu          sync.Mutex
	initialized bool
}

type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf float64 `json:"conf"`
		Word string  `json:"word"`
	} `json:"result,omitempty"`
	Partial string `json:"partial,omitempty"`
}

// New creates an uninitialized engine
func New() *Engine {
	return &Engine{}
}

// Initialize loads the model and creates a recognizer
func (v *Engine) Initialize(config transcription.EngineConfig) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		return fmt.Errorf("engine already initialized")
	}

	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load model from %s: %w", config.ModelPath, err)
	}
	if model == nil {
		return fmt.Errorf("failed to load model from %s: model returned nil", config.ModelPath)
	}

	recognizer, err := vosk.NewRecognizer(model, float64(config.SampleRate))
	if err != nil {
		model.Free()
		return fmt.Errorf("failed to create recognizer: %w", err)
	}

	if config.MaxAlternatives > 0 {
		recognizer.SetMaxAlternatives(config.MaxAlternatives)
	}
	// word results carry the confidence scores
	recognizer.SetWords(1)

	v.model = model
	v.recognizer = recognizer
	v.config = config
	v.initialized = true
	return nil
}

// ProcessAudio accepts a PCM chunk
func (v *Engine) ProcessAudio(ctx context.Context, audioData []byte) (*transcription.Recognition, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if v.recognizer.AcceptWaveform(audioData) > 0 {
		res, err := parse(v.recognizer.Result())
		if err != nil {
			return nil, fmt.Errorf("failed to parse result: %w", err)
		}
		return &transcription.Recognition{Text: res.Text, Confidence: confidence(res)}, nil
	}

	res, err := parse(v.recognizer.PartialResult())
	if err != nil {
		return nil, fmt.Errorf("failed to parse partial result: %w", err)
	}
	return &transcription.Recognition{Text: res.Partial, Partial: true}, nil
}

// FinalResult flushes the recognizer
func (v *Engine) FinalResult() (*transcription.Recognition, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil, fmt.Errorf("engine not initialized")
	}

	res, err := parse(v.recognizer.FinalResult())
	if err != nil {
		return nil, fmt.Errorf("failed to parse final result: %w", err)
	}
	return &transcription.Recognition{Text: res.Text, Confidence: confidence(res)}, nil
}

// Reset discards the current utterance
func (v *Engine) Reset() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return fmt.Errorf("engine not initialized")
	}
	// flushing the utterance resets the recognizer
	_ = v.recognizer.FinalResult()
	return nil
}

// Close releases the recognizer and model
func (v *Engine) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil
	}
	if v.recognizer != nil {
		v.recognizer.Free()
		v.recognizer = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	v.initialized = false
	return nil
}

// IsInitialized returns true if the engine is initialized
func (v *Engine) IsInitialized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initialized
}

func parse(raw string) (voskResult, error) {
	var res voskResult
	err := json.Unmarshal([]byte(raw), &res)
	return res, err
}

func confidence(res voskResult) float64 {
	if len(res.Result) == 0 {
		return 0
	}
	var sum float64
	for _, w := range res.Result {
		sum += w.Conf
	}
	return sum / float64(len(res.Result))
}
