// Package models manages offline speech models on disk.
package models

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Model describes a downloadable vosk model
type Model struct {
	Name        string
	Language    string
	Size        string
	URL         string
	Description string
}

// AvailableModels is the built-in catalog
var AvailableModels = []Model{
	{
		Name:        "vosk-model-small-en-us-0.15",
		Language:    "en-US",
		Size:        "40M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Description: "Lightweight English model, fast but less accurate",
	},
	{
		Name:        "vosk-model-en-us-0.22-lgraph",
		Language:    "en-US",
		Size:        "128M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22-lgraph.zip",
		Description: "Medium English model, balanced speed and accuracy",
	},
	{
		Name:        "vosk-model-small-es-0.42",
		Language:    "es-ES",
		Size:        "39M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-es-0.42.zip",
		Description: "Lightweight Spanish model",
	},
	{
		Name:        "vosk-model-small-de-0.15",
		Language:    "de-DE",
		Size:        "45M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-de-0.15.zip",
		Description: "Lightweight German model",
	},
}

// DefaultModelName is the model used when none is configured
const DefaultModelName = "vosk-model-small-en-us-0.15"

const modelPrefix = "vosk-model-"

// Progress receives download progress; total is -1 when unknown
type Progress func(downloaded, total int64)

// Catalog resolves and downloads models under Dir
type Catalog struct {
	dir    string
	models []Model
	client *resty.Client
}

// NewCatalog creates a catalog rooted at dir over AvailableModels
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir, models: AvailableModels, client: resty.New()}
}

// WithModels replaces the catalog contents
func (c *Catalog) WithModels(models []Model) *Catalog {
	c.models = models
	return c
}

// Dir returns the models directory
func (c *Catalog) Dir() string {
	return c.dir
}

// Models returns the catalog entries
func (c *Catalog) Models() []Model {
	return c.models
}

// Find returns a catalog entry by name
func (c *Catalog) Find(name string) (Model, bool) {
	for _, m := range c.models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// Downloaded checks if a model directory exists
func (c *Catalog) Downloaded(name string) (bool, error) {
	info, err := os.Stat(filepath.Join(c.dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Path returns the directory of a downloaded model
func (c *Catalog) Path(name string) (string, error) {
	ok, err := c.Downloaded(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("model not found: %s", name)
	}
	return filepath.Join(c.dir, name), nil
}

// Language returns the catalog language of name, or "" for unknown models
func (c *Catalog) Language(name string) string {
	if m, ok := c.Find(name); ok {
		return m.Language
	}
	return ""
}

// List returns the names of downloaded models, sorted
func (c *Catalog) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), modelPrefix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Download fetches and extracts a catalog model. It is a no-op when the
// model is already present.
func (c *Catalog) Download(ctx context.Context, name string, progress Progress) (string, error) {
	model, ok := c.Find(name)
	if !ok {
		return "", fmt.Errorf("unknown model: %s", name)
	}
	if ok, err := c.Downloaded(name); err != nil {
		return "", err
	} else if ok {
		return filepath.Join(c.dir, name), nil
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}

	zipPath := filepath.Join(c.dir, name+".zip")
	defer os.Remove(zipPath)

	resp, err := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(model.URL)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	if err := saveBody(resp, zipPath, progress); err != nil {
		return "", err
	}

	if err := extractZip(zipPath, c.dir); err != nil {
		return "", fmt.Errorf("failed to extract model: %w", err)
	}
	return c.Path(name)
}

func saveBody(resp *resty.Response, path string, progress Progress) error {
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		return fmt.Errorf("download failed with status: %s", resp.Status())
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	var src io.Reader = body
	if progress != nil {
		src = &progressReader{r: body, total: resp.RawResponse.ContentLength, progress: progress}
	}
	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("download error: %w", err)
	}
	return out.Close()
}

type progressReader struct {
	r        io.Reader
	n        int64
	total    int64
	progress Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.n += int64(n)
		p.progress(p.n, p.total)
	}
	return n, err
}

// extractZip extracts a zip file into destDir, rejecting entries that
// escape it
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(fpath, root) {
			return fmt.Errorf("illegal file path: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, path string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode()|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
