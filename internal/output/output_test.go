package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmett/voxnote/internal/transcription"
)

func sampleNote(audio string) Note {
	return Note{
		ID:        "abc",
		AudioPath: audio,
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Duration:  75 * time.Second,
		Provider:  "offline",
		Text:      "buy milk. call mom.",
		Summary: &transcription.Summary{
			Title:     "buy milk",
			Text:      "buy milk.",
			KeyPoints: []string{"buy milk.", "call mom."},
		},
	}
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00", FormatElapsed(0))
	assert.Equal(t, "01:15", FormatElapsed(75*time.Second))
	assert.Equal(t, "1:01:01", FormatElapsed(time.Hour+61*time.Second))
}

func TestConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleOutput(ConsoleConfig{Writer: &buf})

	c.Level(0.5, 3*time.Second, false)
	assert.Equal(t, "\rREC    00:03 ["+strings.Repeat("=", 20)+strings.Repeat(" ", 20)+"]  50%", buf.String())

	buf.Reset()
	c.Level(2, 0, true)
	assert.Contains(t, buf.String(), "PAUSED")
	assert.Contains(t, buf.String(), "100%")
}

func TestConsoleNote(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsoleOutput(ConsoleConfig{Writer: &out, ErrWriter: &errOut})

	c.Note(sampleNote("/tmp/a.wav"))
	assert.Equal(t, "\r/tmp/a.wav (01:15, offline)\n# buy milk\nbuy milk. call mom.\n", out.String())

	n := sampleNote("/tmp/a.wav")
	n.Error = "network: timeout"
	c.Note(n)
	assert.Equal(t, "[ERROR] transcription failed: network: timeout\n", errOut.String())
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter("")
	require.NoError(t, err)
	assert.Equal(t, ".json", f.Extension())

	f, err = NewFormatter("text")
	require.NoError(t, err)
	assert.Equal(t, ".txt", f.Extension())

	_, err = NewFormatter("xml")
	assert.Error(t, err)
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TextFormatter{}.Format(&buf, sampleNote("/r/a.wav")))

	want := "buy milk\n\n" +
		"Recorded: 2024-03-01T10:00:00Z\n" +
		"Duration: 01:15\n" +
		"Audio: /r/a.wav\n" +
		"\nbuy milk. call mom.\n" +
		"\nSummary:\nbuy milk.\n" +
		"- buy milk.\n" +
		"- call mom.\n"
	assert.Equal(t, want, buf.String())
}

func TestNoteSinkNextToAudio(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewNoteSink("", "json")
	require.NoError(t, err)

	path, err := sink.Save(sampleNote(filepath.Join(dir, "20240301-abc.wav")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240301-abc.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Note
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, 75*time.Second, got.Duration)
	assert.Equal(t, "buy milk", got.Summary.Title)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNoteSinkDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "notes")
	sink, err := NewNoteSink(dir, "text")
	require.NoError(t, err)

	path, err := sink.Save(sampleNote("/elsewhere/x.wav"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x.txt"), path)
	assert.FileExists(t, path)
}
