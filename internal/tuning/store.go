// Package tuning manages named scoring-configuration profiles and the
// process-wide active configuration.
package tuning

import (
	"github.com/guildfordia/the-library/internal/scoring"
)

// Profile is a named, persisted snapshot of a scoring configuration.
type Profile struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Config      scoring.Config `json:"config"`
}

// Store is the durable key-value backend for profiles, keyed by name.
// Put overwrites silently; Get returns an error for missing or unreadable
// profiles. Backends (filesystem, embedded database, object store) are
// swappable without touching the engine or the manager.
type Store interface {
	List() ([]string, error)
	Get(name string) (*Profile, error)
	Put(p *Profile) error
}
