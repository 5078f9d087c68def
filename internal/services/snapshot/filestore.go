// Package snapshot persists the full catalog snapshot to a JSON file.
// Persistence is an optimization: save failures are reported so callers can
// log them, load failures yield an absent snapshot, and the in-memory catalog
// remains authoritative throughout.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpile/internal/interfaces"
	"github.com/ternarybob/stockpile/internal/models"
)

// FileStore implements SnapshotStore on a single JSON file.
type FileStore struct {
	path   string
	logger arbor.ILogger
}

// NewFileStore creates a snapshot store writing to path.
func NewFileStore(path string, logger arbor.ILogger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Save writes the snapshot, overwriting any prior file. The write goes to a
// temp file first and is renamed into place so a failed save can never
// corrupt the previous snapshot.
func (s *FileStore) Save(snap *models.CatalogSnapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot save nil snapshot")
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}

	if s.logger != nil {
		s.logger.Info().
			Str("path", s.path).
			Int("products_with_sku", snap.ProductsWithSKU).
			Int("products_without_sku", len(snap.ProductsWithoutSKU)).
			Msg("Saved catalog snapshot")
	}

	return nil
}

// Load reads the persisted snapshot back. A missing or corrupt file yields
// (nil, false), never a fatal error.
func (s *FileStore) Load() (*models.CatalogSnapshot, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) && s.logger != nil {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Failed to read snapshot file")
		}
		return nil, false
	}

	var snap models.CatalogSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		if s.logger != nil {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Snapshot file is not parseable, ignoring it")
		}
		return nil, false
	}

	if snap.ProductsBySKU == nil {
		snap.ProductsBySKU = make(map[string]models.Product)
	}

	if s.logger != nil {
		s.logger.Info().
			Str("path", s.path).
			Int("products_with_sku", snap.ProductsWithSKU).
			Str("last_update", snap.LastUpdate.Format("2006-01-02 15:04:05")).
			Msg("Loaded persisted catalog snapshot")
	}

	return &snap, true
}

// Ensure FileStore implements SnapshotStore interface
var _ interfaces.SnapshotStore = (*FileStore)(nil)
