package quota

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FileStore persists the usage record as a JSON object mapping "YYYY-MM"
// keys to integer counts.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path. The parent
// directory is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Read implements UsageStore.
func (s *FileStore) Read(_ context.Context) (map[string]int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, eris.Wrap(err, "quota: read usage file")
	}
	var usage map[string]int
	if err := json.Unmarshal(data, &usage); err != nil {
		return nil, eris.Wrap(err, "quota: parse usage file")
	}
	return usage, nil
}

// Write implements UsageStore.
func (s *FileStore) Write(_ context.Context, usage map[string]int) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "quota: create usage dir")
	}
	data, err := json.Marshal(usage)
	if err != nil {
		return eris.Wrap(err, "quota: marshal usage")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return eris.Wrap(err, "quota: write usage file")
	}
	return nil
}
