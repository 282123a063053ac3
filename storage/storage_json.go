package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// JSONFileStorage is a storage implementation using a single json file
// that is read on start and written when stopped.
type JSONFileStorage struct {
	*MemStorage

	filename string
}

// NewJSONFileStorage loads the json file at the given location and returns
// a new storage.
func NewJSONFileStorage(filename string) (*JSONFileStorage, error) {
	s := &JSONFileStorage{
		MemStorage: NewMemStorage(),
		filename:   filename,
	}

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		var stored storedState
		if err := json.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("unmarshal json: %w", err)
		}
		s.importState(stored)

	case errors.Is(err, os.ErrNotExist):
		// File does not exist, start empty.

	default:
		return nil, fmt.Errorf("read file %q: %w", s.filename, err)
	}

	return s, nil
}

// Stop writes the storage to file.
func (s *JSONFileStorage) Stop() error {
	data, err := json.Marshal(s.exportState())
	if err != nil {
		return fmt.Errorf("failed to marshal json storage: %w", err)
	}
	err = os.WriteFile(s.filename, data, 0o0644) //nolint:gosec // no secrets
	if err != nil {
		return fmt.Errorf("failed to write json storage to %s: %w", s.filename, err)
	}
	return nil
}
