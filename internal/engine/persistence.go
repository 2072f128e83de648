package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const recordExt = ".json"

// FileBackend stores every record as <name>.json inside DataDir.
type FileBackend struct {
	DataDir string
	mu      sync.Mutex // Protects concurrent writes to the filesystem
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend initializes a file backend, creating the data directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{DataDir: dir}, nil
}

func (p *FileBackend) path(name string) string {
	return filepath.Join(p.DataDir, name+recordExt)
}

// Load reads a record file.
func (p *FileBackend) Load(_ context.Context, name string) ([]byte, bool, error) {
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	content, err := os.ReadFile(p.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read record %s: %w", name, err)
	}
	return content, true, nil
}

// Save writes a record to a temporary file and renames it over the old one, so a
// crash leaves either the previous payload or the new one, never a torn file.
func (p *FileBackend) Save(_ context.Context, name string, payload []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	filePath := p.path(name)
	tempPath := filePath + ".tmp"

	if err := os.WriteFile(tempPath, payload, 0o600); err != nil {
		return fmt.Errorf("write record %s: %w", name, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename record %s: %w", name, err)
	}
	return nil
}

// Remove deletes a record file.
func (p *FileBackend) Remove(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove record %s: %w", name, err)
	}
	return nil
}

// List returns the names of the record files in DataDir.
func (p *FileBackend) List(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var names []string
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != recordExt {
			continue
		}
		names = append(names, strings.TrimSuffix(file.Name(), recordExt))
	}
	return names, nil
}

// Close is a no-op for the file backend.
func (p *FileBackend) Close() error {
	return nil
}
