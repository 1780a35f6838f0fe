package quota

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/listings"
)

// Usage is the persisted form of the guard's state.
type Usage struct {
	TotalRequests int                   `json:"total_requests"`
	Sources       []listings.QuotaState `json:"sources"`
	Requests      []Request             `json:"requests"`
}

// Store persists usage between runs.
type Store interface {
	Load() (*Usage, error)
	Save(*Usage) error
}

// FileStore keeps usage in a JSON file, creating parent directories as
// needed.
type FileStore struct {
	Path string
}

// NewFileStore creates a store at path. An empty path uses the default
// data file location.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = filepath.Join("data", "quota_usage.json")
	}
	return &FileStore{Path: path}
}

// Load implements the Store interface. A missing file is not an error.
func (s *FileStore) Load() (*Usage, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var usage Usage
	if err := json.Unmarshal(data, &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

// Save implements the Store interface.
func (s *FileStore) Save(usage *Usage) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(usage, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, constants.FilePermissions)
}
