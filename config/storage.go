package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked for in the working directory when no config
// file is given.
const DefaultConfigFile = "pocket-relay-client.json"

// LoadConfig loads the config from the given file.
// A missing file is not an error and yields a default config.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		filename = DefaultConfigFile
	}

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		// Continue with parsing.
	case errors.Is(err, os.ErrNotExist):
		return Store{}.Parse()
	default:
		return nil, fmt.Errorf("read config file at %s: %w", filename, err)
	}

	store := &Store{}
	switch {
	case strings.HasSuffix(filename, ".json"):
		err = json.Unmarshal(data, store)
	case strings.HasSuffix(filename, ".yml"):
		fallthrough
	case strings.HasSuffix(filename, ".yaml"):
		err = yaml.Unmarshal(data, store)
	default:
		return nil, errors.New("unknown config file type")
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", filename, err)
	}

	return store.Parse()
}

// SaveTo writes the config to the given file.
func (s Store) SaveTo(filename string) error {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasSuffix(filename, ".json"):
		data, err = json.MarshalIndent(s, "", "  ")
	case strings.HasSuffix(filename, ".yml"):
		fallthrough
	case strings.HasSuffix(filename, ".yaml"):
		data, err = yaml.Marshal(s)
	default:
		return errors.New("unknown config file type")
	}
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o0600); err != nil {
		return fmt.Errorf("write config to %s: %w", filename, err)
	}
	return nil
}
