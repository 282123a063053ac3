package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// CBORFileStorage is a storage implementation using a single cbor file
// that is read on start and written when stopped.
type CBORFileStorage struct {
	*MemStorage

	filename string
}

// NewCBORFileStorage loads the cbor file at the given location and returns
// a new storage.
func NewCBORFileStorage(filename string) (*CBORFileStorage, error) {
	s := &CBORFileStorage{
		MemStorage: NewMemStorage(),
		filename:   filename,
	}

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		var stored storedState
		if err := cbor.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("unmarshal cbor: %w", err)
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
func (s *CBORFileStorage) Stop() error {
	data, err := cbor.Marshal(s.exportState())
	if err != nil {
		return fmt.Errorf("failed to marshal cbor storage: %w", err)
	}
	err = os.WriteFile(s.filename, data, 0o0644) //nolint:gosec // no secrets
	if err != nil {
		return fmt.Errorf("failed to write cbor storage to %s: %w", s.filename, err)
	}
	return nil
}
