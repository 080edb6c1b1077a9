package tuning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const profileExt = ".json"

// FSStore persists profiles as <name>.json files in a single directory.
type FSStore struct {
	dir string
}

// NewFSStore creates the profile directory if needed and returns a store.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profiles directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// validName rejects names that would escape the profile directory or
// produce hidden files. Names are storage keys, so they are rejected
// outright rather than sanitized.
func validName(name string) error {
	if name == "" {
		return fmt.Errorf("profile name is empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("profile name %q is not filesystem-safe", name)
	}
	return nil
}

// List returns all stored profile names, sorted lexicographically.
func (s *FSStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), profileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), profileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Get loads the named profile.
func (s *FSStore) Get(name string) (*Profile, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name+profileExt))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %q: %w", name, err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile %q: %w", name, err)
	}
	return &p, nil
}

// Put writes the profile, overwriting any existing one with the same name.
func (s *FSStore) Put(p *Profile) error {
	if err := validName(p.Name); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile %q: %w", p.Name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, p.Name+profileExt), data, 0o644); err != nil {
		return fmt.Errorf("failed to write profile %q: %w", p.Name, err)
	}
	return nil
}

// Path returns the file path a profile name maps to. Used by the profile
// watcher to match change events.
func (s *FSStore) Path(name string) string {
	return filepath.Join(s.dir, name+profileExt)
}

// Dir returns the directory holding profile files.
func (s *FSStore) Dir() string {
	return s.dir
}
