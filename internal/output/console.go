package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const levelBarWidth = 40

// ConsoleOutput renders recording status to a terminal
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	errWriter     io.Writer
	showTimestamp bool
	now           func() time.Time
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer

	// ErrWriter receives error lines (default: os.Stderr)
	ErrWriter io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	c := &ConsoleOutput{
		writer:        config.Writer,
		errWriter:     config.ErrWriter,
		showTimestamp: config.ShowTimestamp,
		now:           time.Now,
	}
	if c.writer == nil {
		c.writer = os.Stdout
	}
	if c.errWriter == nil {
		c.errWriter = os.Stderr
	}
	return c
}

func (c *ConsoleOutput) prefix() string {
	if !c.showTimestamp {
		return ""
	}
	return "[" + c.now().Format("15:04:05") + "] "
}

// Line writes a full line, ending any in-place status line first
func (c *ConsoleOutput) Line(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, "\r%s%s\n", c.prefix(), fmt.Sprintf(format, args...))
}

// Level redraws the live meter: elapsed time and a normalized level in [0,1]
func (c *ConsoleOutput) Level(level float64, elapsed time.Duration, paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	level = max(0, min(level, 1))
	filled := int(level * levelBarWidth)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", levelBarWidth-filled)

	marker := "REC"
	if paused {
		marker = "PAUSED"
	}
	fmt.Fprintf(c.writer, "\r%-6s %s [%s] %3.0f%%", marker, FormatElapsed(elapsed), bar, level*100)
}

// Note prints a finished transcript
func (c *ConsoleOutput) Note(n Note) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%s%s (%s, %s)\n", c.prefix(), n.AudioPath, FormatElapsed(n.Duration), n.Provider)
	if n.Error != "" {
		fmt.Fprintf(c.errWriter, "[ERROR] transcription failed: %s\n", n.Error)
		return
	}
	if n.Summary != nil && n.Summary.Title != "" {
		fmt.Fprintf(c.writer, "# %s\n", n.Summary.Title)
	}
	fmt.Fprintln(c.writer, n.Text)
}

// Info writes an informational message
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, "\r[INFO] %s\n", msg)
}

// Error writes an error message
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.errWriter, "\r[ERROR] %s\n", msg)
}

// FormatElapsed renders d as mm:ss, or h:mm:ss past an hour
func FormatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
