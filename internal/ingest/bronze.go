package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Bronze archives raw ingestion payloads as JSON files under a base
// directory, one file per fetched listing page or comment thread. A nil
// Bronze disables capture; writes then return an empty path.
type Bronze struct {
	dir string
}

// NewBronze creates a bronze archive rooted at dir
func NewBronze(dir string) *Bronze {
	return &Bronze{dir: dir}
}

// Write marshals payload and stores it at relPath under the archive root,
// creating parent directories as needed. Returns the full path written.
func (b *Bronze) Write(relPath string, payload interface{}) (string, error) {
	if b == nil {
		return "", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal bronze payload: %w", err)
	}
	path := filepath.Join(b.dir, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create bronze directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write bronze file: %w", err)
	}
	return path, nil
}

// stamp names bronze files; second precision is enough since a feed is
// fetched at most once per run.
func stamp(t time.Time) string {
	return t.UTC().Format("20060102T150405")
}
