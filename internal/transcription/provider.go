// Package transcription routes audio to online or offline speech providers.
package transcription

import (
	"context"
	"errors"
	"fmt"
)

// Settings is passed by value into every transcription call
type Settings struct {
	Language               string `json:"language"`
	EnableSpeakerDetection bool   `json:"enable_speaker_detection"`
	EnableAudioEnhancement bool   `json:"enable_audio_enhancement"`
}

// ErrorKind classifies a provider failure
type ErrorKind string

const (
	KindNetwork        ErrorKind = "network"
	KindAuth           ErrorKind = "auth"
	KindDecode         ErrorKind = "decode"
	KindUnsupported    ErrorKind = "unsupported"
	KindNotInitialized ErrorKind = "not_initialized"
	KindCancelled      ErrorKind = "cancelled"
	KindInvalidInput   ErrorKind = "invalid_input"
	KindInternal       ErrorKind = "internal"
)

// Error is a typed provider failure
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Result is either a value or a typed failure
type Result[T any] struct {
	Value   T
	Failure *Error
}

// Succeed wraps a value
func Succeed[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail builds a failure result
func Fail[T any](kind ErrorKind, format string, args ...any) Result[T] {
	return Result[T]{Failure: &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// FailWith converts err into a failure, keeping its kind when it is an *Error
func FailWith[T any](err error) Result[T] {
	var te *Error
	if errors.As(err, &te) {
		return Result[T]{Failure: te}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fail[T](KindCancelled, "%v", err)
	}
	return Fail[T](KindInternal, "%v", err)
}

// OK reports success
func (r Result[T]) OK() bool {
	return r.Failure == nil
}

// Err returns the failure as an error, or nil
func (r Result[T]) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Unwrap splits the result into Go's value/error pair
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err()
}

// Summary is a generated digest of a transcript
type Summary struct {
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	KeyPoints []string `json:"key_points,omitempty"`
	WordCount int      `json:"word_count"`
}

// SummaryTemplate steers summary generation
type SummaryTemplate struct {
	Name         string
	Instructions string
	MaxWords     int
}

// Provider is one transcription backend. Audio is PCM16 mono, optionally
// wrapped in a WAV header.
type Provider interface {
	Name() string
	TranscribeAudio(ctx context.Context, audio []byte, s Settings) Result[string]
	TranscribeFile(ctx context.Context, path string, s Settings) Result[string]
	DetectLanguage(ctx context.Context, audio []byte) Result[string]
	DetectSpeakers(ctx context.Context, audio []byte) Result[int]
	IdentifySpeakers(ctx context.Context, audio []byte) Result[map[string]string]
	GenerateSummary(ctx context.Context, text string, tmpl *SummaryTemplate) Result[Summary]
	Cleanup() error
	IsInitialized() bool
}

// statusKind maps an HTTP status from a provider API to an ErrorKind
func statusKind(code int) ErrorKind {
	switch {
	case code == 401 || code == 403:
		return KindAuth
	case code == 400 || code == 404 || code == 413 || code == 415 || code == 422:
		return KindInvalidInput
	case code == 408 || code == 429 || code >= 500:
		return KindNetwork
	default:
		return KindInternal
	}
}
