package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const previewRunes = 80

// Console prints notifications as status lines
type Console struct {
	mu     sync.Mutex
	writer io.Writer
	now    func() time.Time
}

// NewConsole writes to w, or stderr when w is nil
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stderr
	}
	return &Console{writer: w, now: time.Now}
}

func (c *Console) line(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, "[%s] %s\n", c.now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

func (c *Console) ShowRecording(active bool) {
	if active {
		c.line("recording")
		return
	}
	c.line("recording stopped")
}

func (c *Console) ShowTranscriptionComplete(text string) {
	c.line("transcript ready: %s", preview(text))
}

func (c *Console) CancelRecording() {
	c.line("recording cancelled")
}

func (c *Console) CancelAll() {}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes]) + "..."
}
