// Package registry persists the record of installed packages.
//
// The registry is a flat JSON object mapping package name to installed
// version. It is always written as a full replacement, never patched.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/blackwell-systems/opt/internal/log"
)

// Registry maps installed package name to installed version.
type Registry map[string]string

// Names returns the installed package names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Version returns the installed version of name and whether it is installed.
func (r Registry) Version(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

// Clone returns an independent copy.
func (r Registry) Clone() Registry {
	c := make(Registry, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Store reads and writes the registry file.
type Store struct {
	path string
}

// New creates a Store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the registry file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted registry. A missing, unreadable or malformed
// file yields an empty registry; Load never fails.
func (s *Store) Load() Registry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debug("registry %s unreadable, treating as empty: %v", s.path, err)
		}
		return Registry{}
	}

	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		log.Debug("registry %s malformed, treating as empty: %v", s.path, err)
		return Registry{}
	}
	if r == nil {
		return Registry{}
	}
	return r
}

// Save replaces the registry file with r. The write goes to a temp file
// that is renamed over the original, so readers never see a partial file.
func (s *Store) Save(r Registry) error {
	if r == nil {
		r = Registry{}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	data = append(data, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace registry: %w", err)
	}

	return nil
}
