package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Storage hands out output files for new sessions
type Storage interface {
	NewOutput(id string, at time.Time) (string, error)
	Discard(path string) error
}

// DirStorage names recordings <dir>/<timestamp>-<id>.wav
type DirStorage struct {
	Dir string
}

func (s DirStorage) NewOutput(id string, at time.Time) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recordings directory: %w", err)
	}
	name := fmt.Sprintf("%s-%s.wav", at.Format("20060102-150405"), id)
	return filepath.Join(s.Dir, name), nil
}

// Discard removes an abandoned recording; a missing file is not an error
func (s DirStorage) Discard(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove recording: %w", err)
	}
	return nil
}
