package store

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// SaveJSON writes a snapshot of structured data (e.g. the latest news
// batch) to a JSON file, creating parent directories as needed.
func SaveJSON(path string, data interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0644)
}

// LoadJSON reads a snapshot back.
func LoadJSON(path string, result interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, result)
}
