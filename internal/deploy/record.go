package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Record describes the most recent successful deployment.
type Record struct {
	URL        string    `json:"url"`
	DeployedAt time.Time `json:"deployedAt"`
	Platform   string    `json:"platform"`
}

// SaveRecord overwrites the record file at path.
func SaveRecord(path string, rec Record) error {
	rec.DeployedAt = rec.DeployedAt.UTC()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding deployment record: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LoadRecord reads the record file at path.
func LoadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &rec, nil
}
