package sprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// BatchFile is the on-disk and wire form of one imported sprint batch.
type BatchFile struct {
	Batch  SprintBatch `json:"batch"`
	Issues []Issue     `json:"issues"`
}

// SaveBatchFile writes a batch file to disk as JSON.
func SaveBatchFile(path string, bf *BatchFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for batch: %w", err)
	}

	data, err := json.MarshalIndent(bf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling batch: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing batch: %w", err)
	}

	return nil
}

// LoadBatchFile reads a batch file from disk. The batch issue count is
// derived from the issues when the file leaves it unset.
func LoadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch: %w", err)
	}

	var bf BatchFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("unmarshaling batch: %w", err)
	}

	if bf.Batch.IssueCount == 0 {
		bf.Batch.IssueCount = len(bf.Issues)
	}
	if bf.Batch.ID == "" {
		bf.Batch.ID = filepath.Base(path)
	}
	for i := range bf.Issues {
		bf.Issues[i].BatchID = bf.Batch.ID
	}

	return &bf, nil
}
