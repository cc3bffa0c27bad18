package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emmett/voxnote/internal/transcription"
)

// Note is a finished recording and its transcript
type Note struct {
	ID        string                 `json:"id"`
	AudioPath string                 `json:"audio_path"`
	CreatedAt time.Time              `json:"created_at"`
	Duration  time.Duration          `json:"duration_ns"`
	Provider  string                 `json:"provider"`
	Language  string                 `json:"language,omitempty"`
	Text      string                 `json:"text"`
	Summary   *transcription.Summary `json:"summary,omitempty"`
	Waveform  string                 `json:"waveform_key,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Formatter renders a note
type Formatter interface {
	Format(w io.Writer, n Note) error
	Extension() string
}

// JSONFormatter writes indented JSON
type JSONFormatter struct{}

func (JSONFormatter) Format(w io.Writer, n Note) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(n)
}

func (JSONFormatter) Extension() string { return ".json" }

// TextFormatter writes a human-readable note
type TextFormatter struct{}

func (TextFormatter) Format(w io.Writer, n Note) error {
	var b strings.Builder
	if n.Summary != nil && n.Summary.Title != "" {
		fmt.Fprintf(&b, "%s\n\n", n.Summary.Title)
	}
	fmt.Fprintf(&b, "Recorded: %s\n", n.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration: %s\n", FormatElapsed(n.Duration))
	fmt.Fprintf(&b, "Audio: %s\n", n.AudioPath)
	if n.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", n.Error)
	}
	if n.Text != "" {
		fmt.Fprintf(&b, "\n%s\n", n.Text)
	}
	if n.Summary != nil {
		if n.Summary.Text != "" {
			fmt.Fprintf(&b, "\nSummary:\n%s\n", n.Summary.Text)
		}
		for _, p := range n.Summary.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (TextFormatter) Extension() string { return ".txt" }

// NewFormatter returns the formatter for "json" or "text"
func NewFormatter(format string) (Formatter, error) {
	switch format {
	case "", "json":
		return JSONFormatter{}, nil
	case "text":
		return TextFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown note format: %s", format)
	}
}

// NoteSink persists notes. With an empty dir, each note is written next to
// its audio file.
type NoteSink struct {
	dir       string
	formatter Formatter
}

// NewNoteSink creates a sink writing format into dir
func NewNoteSink(dir, format string) (*NoteSink, error) {
	f, err := NewFormatter(format)
	if err != nil {
		return nil, err
	}
	return &NoteSink{dir: dir, formatter: f}, nil
}

// Path returns where n would be saved
func (s *NoteSink) Path(n Note) string {
	dir := s.dir
	if dir == "" {
		dir = filepath.Dir(n.AudioPath)
	}
	base := strings.TrimSuffix(filepath.Base(n.AudioPath), filepath.Ext(n.AudioPath))
	if base == "" || base == "." {
		base = n.ID
	}
	return filepath.Join(dir, base+s.formatter.Extension())
}

// Save writes n atomically and returns its path
func (s *NoteSink) Save(n Note) (string, error) {
	path := s.Path(n)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create notes directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".note-*")
	if err != nil {
		return "", fmt.Errorf("failed to create note: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.formatter.Format(tmp, n); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write note: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write note: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to save note: %w", err)
	}
	return path, nil
}
