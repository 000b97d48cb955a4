package dataset

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadRefs reads a JSON array of asset references
func LoadRefs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read object list: %w", err)
	}
	var refs []string
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("failed to parse object list %s: %w", path, err)
	}
	return refs, nil
}
