package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// visitorRecord is the on-disk shape of the persisted visitor identity.
type visitorRecord struct {
	VisitorID string `json:"visitor_id"`
}

// visitorStore persists the visitor identity across process runs.
type visitorStore struct {
	path string
}

func newVisitorStore(path string) *visitorStore {
	return &visitorStore{path: path}
}

// Load reads the persisted visitor ID. A missing file is not an error;
// it returns "" so the caller generates a fresh identity.
func (s *visitorStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read visitor file: %w", err)
	}

	var rec visitorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("parse visitor file: %w", err)
	}
	return rec.VisitorID, nil
}

// Save writes the visitor ID, creating the data directory if needed.
func (s *visitorStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.Marshal(visitorRecord{VisitorID: id})
	if err != nil {
		return fmt.Errorf("encode visitor record: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write visitor file: %w", err)
	}
	return nil
}
