package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDataset reads a segmented-trace dataset from a JSON file produced by
// the pre-segmentation stage. The dataset name defaults to the file's base
// name when the header leaves it empty.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset JSON: %w", err)
	}
	if ds.Name == "" {
		base := filepath.Base(path)
		ds.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}
