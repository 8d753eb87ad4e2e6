// Package settings holds the colony-wide policy settings and their surface.
package settings

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
	"github.com/MRamiBalles/HemogenFarm/internal/infra/storage"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
)

// Surface text for the settings panel.
const (
	IgnoreRestLabel   = "Ignore Rest Condition"
	IgnoreRestTooltip = "If checked, the rest condition will be ignored when deciding to extract hemogen."
)

// Repository is the persistence the store needs.
type Repository interface {
	GetBool(ctx context.Context, key string, def bool) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
}

// Store is the process-wide settings value. Current returns a copy that is
// safe to hold for a whole tick.
type Store struct {
	mu       sync.RWMutex
	current  rules.Settings
	onChange []func(rules.Settings)

	// writeMu orders writers without holding mu across the repository call.
	writeMu sync.Mutex
	repo    Repository
	logger  *logger.Logger
}

// NewStore creates a store with defaults. repo may be nil for an in-memory store.
func NewStore(repo Repository, log *logger.Logger) *Store {
	return &Store{repo: repo, logger: log}
}

// Load reads the persisted settings. Missing keys keep their defaults.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	ignore, err := s.repo.GetBool(ctx, storage.KeyIgnoreRestCondition, false)
	if err != nil {
		return fmt.Errorf("load %s: %w", storage.KeyIgnoreRestCondition, err)
	}

	s.mu.Lock()
	s.current.IgnoreRestCondition = ignore
	s.mu.Unlock()

	s.logger.Info("Settings loaded", zap.Bool(storage.KeyIgnoreRestCondition, ignore))
	return nil
}

// Current returns a copy of the settings.
func (s *Store) Current() rules.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetIgnoreRestCondition writes the flag through to the repository. The
// in-memory value only changes once the write succeeds, and readers are never
// blocked by the write itself.
func (s *Store) SetIgnoreRestCondition(ctx context.Context, value bool) (rules.Settings, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.repo != nil {
		if err := s.repo.SetBool(ctx, storage.KeyIgnoreRestCondition, value); err != nil {
			return s.Current(), fmt.Errorf("save %s: %w", storage.KeyIgnoreRestCondition, err)
		}
	}

	s.mu.Lock()
	changed := s.current.IgnoreRestCondition != value
	s.current.IgnoreRestCondition = value
	snapshot := s.current
	hooks := append([]func(rules.Settings){}, s.onChange...)
	s.mu.Unlock()

	if changed {
		s.logger.Info("Settings changed", zap.Bool(storage.KeyIgnoreRestCondition, value))
		for _, fn := range hooks {
			fn(snapshot)
		}
	}
	return snapshot, nil
}

// OnChange registers a callback fired after a setting actually changes.
// Callbacks run in write order, outside the read lock.
func (s *Store) OnChange(fn func(rules.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Checkbox is one entry of the settings panel.
type Checkbox struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Tooltip string `json:"tooltip"`
	Checked bool   `json:"checked"`
}

// Surface describes the settings panel as the player sees it.
func (s *Store) Surface() []Checkbox {
	cur := s.Current()
	return []Checkbox{{
		Key:     storage.KeyIgnoreRestCondition,
		Label:   IgnoreRestLabel,
		Tooltip: IgnoreRestTooltip,
		Checked: cur.IgnoreRestCondition,
	}}
}
