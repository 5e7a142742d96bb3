// Package artifact writes pipeline outputs as pretty-printed JSON files for
// the dashboard frontend and ad-hoc inspection.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer persists JSON artifacts under a single output directory. Files are
// written to a temp name and renamed into place so readers never observe a
// partially written artifact.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir, creating the directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create output dir %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteJSON marshals v with two-space indentation and atomically writes it
// to name under the output directory.
func (w *Writer) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	target := filepath.Join(w.dir, name)

	tmp, err := os.CreateTemp(w.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("artifact: create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("artifact: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifact: close temp for %s: %w", name, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifact: rename %s: %w", name, err)
	}
	return nil
}
