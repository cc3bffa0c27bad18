// Package recording implements the recording lifecycle state machine.
package recording

import (
	"fmt"
	"time"
)

// Kind identifies a lifecycle state
type Kind int

const (
	// Idle has no session
	Idle Kind = iota
	// Recording is capturing audio into the session file
	Recording
	// Paused holds the session open without writing audio
	Paused
	// Processing is finalizing the file after a stop
	Processing
	// Error holds a fatal failure until the next Start or Cleanup
	Error
	// Completed holds the finished file path
	Completed
	// Cancelled is passed through on the way back to Idle
	Cancelled
)

var kindNames = map[Kind]string{
	Idle:       "idle",
	Recording:  "recording",
	Paused:     "paused",
	Processing: "processing",
	Error:      "error",
	Completed:  "completed",
	Cancelled:  "cancelled",
}

// String returns the lowercase state name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// State is an immutable snapshot of the machine. Only the fields relevant
// to Kind are set.
type State struct {
	Kind Kind

	// StartedAt is set for Recording
	StartedAt time.Time

	// PausedAt is set for Paused
	PausedAt time.Time

	// Reason is set for Error
	Reason string

	// OutputPath is set for Completed
	OutputPath string
}

// Active reports whether a session is open in this state
func (s State) Active() bool {
	return s.Kind == Recording || s.Kind == Paused
}

// String includes the reason or output path when set
func (s State) String() string {
	switch s.Kind {
	case Error:
		return fmt.Sprintf("error(%s)", s.Reason)
	case Completed:
		return fmt.Sprintf("completed(%s)", s.OutputPath)
	default:
		return s.Kind.String()
	}
}

// Session describes one start-to-stop recording
type Session struct {
	ID         string        `json:"id"`
	OutputPath string        `json:"output_path"`
	StartTime  time.Time     `json:"start_time"`
	Duration   time.Duration `json:"duration"`
}
