// Package notify delivers user-facing recording feedback without blocking
// the caller.
package notify

// Notifier shows recording status to the user
type Notifier interface {
	ShowRecording(active bool)
	ShowTranscriptionComplete(text string)
	CancelRecording()
	CancelAll()
}

// Pattern names a haptic or audible cue
type Pattern string

const (
	PatternStart  Pattern = "start"
	PatternStop   Pattern = "stop"
	PatternPause  Pattern = "pause"
	PatternResume Pattern = "resume"
	PatternError  Pattern = "error"
)

// Haptics plays a feedback cue
type Haptics interface {
	Trigger(p Pattern)
}

// Nop discards all notifications and cues
type Nop struct{}

func (Nop) ShowRecording(bool) {}
func (Nop) ShowTranscriptionComplete(string) {}
func (Nop) CancelRecording() {}
func (Nop) CancelAll() {}
func (Nop) Trigger(Pattern) {}

var (
	_ Notifier = Nop{}
	_ Haptics  = Nop{}
)
