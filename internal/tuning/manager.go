package tuning

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/guildfordia/the-library/internal/scoring"
)

// DefaultProfileName is the profile synthesized on first boot.
const DefaultProfileName = "default"

// Manager owns the process-wide active scoring configuration and fronts a
// profile Store. The active config is replaced wholesale under a lock, so
// concurrent searches see either the old or the new value, never a torn
// one. Profile activation is rare and administrative; the mutex is plenty.
type Manager struct {
	store  Store
	logger *zap.Logger

	mu         sync.RWMutex
	current    scoring.Config
	activeName string
}

// NewManager creates a manager backed by store. If no "default" profile
// exists, one is persisted from the built-in weights, so Current is always
// well-defined afterwards.
func NewManager(store Store, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		store:      store,
		logger:     logger,
		current:    scoring.DefaultConfig(),
		activeName: DefaultProfileName,
	}

	p, err := store.Get(DefaultProfileName)
	if err != nil {
		p = &Profile{
			Name:        DefaultProfileName,
			Description: "Default scoring configuration",
			Config:      scoring.DefaultConfig(),
		}
		if err := store.Put(p); err != nil {
			return nil, fmt.Errorf("failed to bootstrap default profile: %w", err)
		}
		logger.Info("created default tuning profile")
	}
	m.current = p.Config
	return m, nil
}

// Current returns the active scoring configuration.
func (m *Manager) Current() scoring.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SetCurrent replaces the active configuration. The stored profiles are
// untouched; negative weights are rejected here so searches never see a
// malformed config.
func (m *Manager) SetCurrent(cfg scoring.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()
	return nil
}

// ActiveProfile returns the name of the last activated profile.
func (m *Manager) ActiveProfile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeName
}

// ListProfiles returns all persisted profile names.
func (m *Manager) ListProfiles() ([]string, error) {
	return m.store.List()
}

// SaveProfile validates and persists a profile, overwriting silently when
// the name exists. Saving never changes the active configuration.
func (m *Manager) SaveProfile(p *Profile) error {
	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return m.store.Put(p)
}

// ActivateProfile loads the named profile and makes its configuration
// active. Returns false when the profile does not exist, cannot be decoded,
// or holds an invalid configuration; callers surface all three as "not
// found" rather than a hard failure.
func (m *Manager) ActivateProfile(name string) bool {
	p, err := m.store.Get(name)
	if err != nil {
		m.logger.Warn("profile activation failed", zap.String("profile", name), zap.Error(err))
		return false
	}
	if err := p.Config.Validate(); err != nil {
		m.logger.Warn("profile holds invalid config", zap.String("profile", name), zap.Error(err))
		return false
	}

	m.mu.Lock()
	m.current = p.Config
	m.activeName = name
	m.mu.Unlock()

	m.logger.Info("tuning profile activated", zap.String("profile", name))
	return true
}
