// Package store holds the two read-only inputs of the query engine: the
// asset index and the standards knowledge base. Both are loaded once at
// startup from a precomputed JSON or YAML file and never mutated afterwards,
// so they are safe to share across concurrent readers.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrLoad wraps every failure to read or decode a store file. Load errors
// are fatal at startup; the engine never serves queries over a bad store.
var ErrLoad = errors.New("store load failed")

// readStoreFile decodes a store file into dst. Format follows the file
// extension: .yaml/.yml is YAML, everything else is JSON.
func readStoreFile(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrLoad, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: decode yaml %s: %v", ErrLoad, path, err)
		}
	default:
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: decode json %s: %v", ErrLoad, path, err)
		}
	}
	return nil
}
