package app

import (
	"context"
	"fmt"
	"io"

	"github.com/emmett/voxnote/internal/models"
)

// ModelManager is the CLI front end for the offline model catalog
type ModelManager struct {
	catalog *models.Catalog
	out     io.Writer
}

// NewModelManager writes progress and listings to out
func NewModelManager(catalog *models.Catalog, out io.Writer) *ModelManager {
	return &ModelManager{catalog: catalog, out: out}
}

// ListModels prints the catalog with download status
func (m *ModelManager) ListModels() error {
	fmt.Fprintln(m.out, "Available models:")
	fmt.Fprintln(m.out)

	for i, model := range m.catalog.Models() {
		status := "Not downloaded"
		if ok, _ := m.catalog.Downloaded(model.Name); ok {
			status = "Downloaded"
		}
		fmt.Fprintf(m.out, "%d. %s\n", i+1, model.Name)
		fmt.Fprintf(m.out, "   Language: %s\n", model.Language)
		fmt.Fprintf(m.out, "   Size:     %s\n", model.Size)
		fmt.Fprintf(m.out, "   Info:     %s\n", model.Description)
		fmt.Fprintf(m.out, "   Status:   %s\n", status)
		fmt.Fprintln(m.out)
	}
	return nil
}

// Download fetches a model, printing progress
func (m *ModelManager) Download(ctx context.Context, name string) (string, error) {
	if _, ok := m.catalog.Find(name); !ok {
		return "", fmt.Errorf("unknown model: %s", name)
	}
	if ok, err := m.catalog.Downloaded(name); err != nil {
		return "", fmt.Errorf("failed to check for model: %w", err)
	} else if ok {
		fmt.Fprintf(m.out, "Model '%s' is already downloaded.\n", name)
		return m.catalog.Path(name)
	}

	fmt.Fprintf(m.out, "Downloading %s...\n", name)
	path, err := m.catalog.Download(ctx, name, func(done, total int64) {
		if total > 0 {
			fmt.Fprintf(m.out, "\rProgress: %.1f%% (%d/%d bytes)", float64(done)/float64(total)*100, done, total)
		}
	})
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	fmt.Fprintf(m.out, "\nModel '%s' downloaded to %s\n", name, path)
	return path, nil
}

// EnsureModel returns the model directory, downloading when allowed
func (m *ModelManager) EnsureModel(ctx context.Context, name string, autoDownload bool) (string, error) {
	if name == "" {
		name = models.DefaultModelName
	}
	if path, err := m.catalog.Path(name); err == nil {
		return path, nil
	}
	if !autoDownload {
		return "", fmt.Errorf("model '%s' not found; download it with: voxnote -download-model %s", name, name)
	}
	return m.Download(ctx, name)
}
