package amplitude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SnapshotStore persists waveform snapshots under a namespace
type SnapshotStore interface {
	Put(ctx context.Context, key string, values []float64) error
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process SnapshotStore
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]float64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]float64)}
}

func (m *MemoryStore) Put(_ context.Context, key string, values []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]float64(nil), values...)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), v...), true, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]float64)
	return nil
}

// Len returns the number of stored snapshots
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// FileStore keeps one JSON file per snapshot in <root>/<namespace>
type FileStore struct {
	dir string
}

// NewFileStore creates the namespace directory
func NewFileStore(root, namespace string) (*FileStore, error) {
	dir := filepath.Join(root, namespace)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, filepath.Base(key)+".json")
}

func (f *FileStore) Put(ctx context.Context, key string, values []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp, f.path(key))
}

func (f *FileStore) Get(ctx context.Context, key string) ([]float64, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return values, true, nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove snapshot: %w", err)
		}
	}
	return nil
}
