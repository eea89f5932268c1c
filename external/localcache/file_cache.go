package localcache

import (
	"encoding/base32"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mindfulvoice/backend/internal/store"
)

// FileCache keeps one JSON history file per participant identity. New
// records are prepended so the most recent session reads first.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) Append(identity string, record store.HistoryRecord) error {
	existing, err := c.List(identity)
	if err != nil {
		return err
	}
	updated := append([]store.HistoryRecord{record}, existing...)

	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	path := c.path(identity)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

func (c *FileCache) List(identity string) ([]store.HistoryRecord, error) {
	data, err := os.ReadFile(c.path(identity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	var records []store.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history file: %w", err)
	}
	return records, nil
}

// path encodes the identity so emails and other arbitrary identities map
// to safe filenames.
func (c *FileCache) path(identity string) string {
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(identity))
	return filepath.Join(c.dir, "sessions_"+strings.ToLower(encoded)+".json")
}
