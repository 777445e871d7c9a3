package service

import (
	"context"
	"sync"

	"github.com/corpusai/corpusd/internal/domain"
)

// SettingsRepositoryInterface defines persistence for instruction
// settings.
type SettingsRepositoryInterface interface {
	Load(ctx context.Context) (domain.InstructionSettings, error)
	Save(ctx context.Context, s domain.InstructionSettings) error
}

// SettingsStore holds the single active instruction settings value.
// Updates persist first and only then swap the in-memory value, so a
// failed write never leaves the store ahead of durable state. Queries
// read a snapshot and keep it for their whole lifetime.
type SettingsStore struct {
	mu       sync.RWMutex
	repo     SettingsRepositoryInterface
	current  domain.InstructionSettings
	onUpdate []func(domain.InstructionSettings)
}

// NewSettingsStore creates a store seeded from the repository, or from
// defaults when repo is nil (memory mode).
func NewSettingsStore(ctx context.Context, repo SettingsRepositoryInterface) (*SettingsStore, error) {
	store := &SettingsStore{
		repo:    repo,
		current: domain.DefaultInstructionSettings(),
	}
	if repo != nil {
		loaded, err := repo.Load(ctx)
		if err != nil {
			return nil, err
		}
		store.current = loaded
	}
	return store, nil
}

// Get returns the active settings snapshot.
func (s *SettingsStore) Get() domain.InstructionSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates, persists, and swaps the active settings. Hooks run
// after the swap with the new value.
func (s *SettingsStore) Update(ctx context.Context, next domain.InstructionSettings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.repo != nil {
		if err := s.repo.Save(ctx, next); err != nil {
			s.mu.Unlock()
			return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to persist settings", err)
		}
	}
	s.current = next
	hooks := make([]func(domain.InstructionSettings), len(s.onUpdate))
	copy(hooks, s.onUpdate)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(next)
	}
	return nil
}

// OnUpdate registers a hook invoked after every successful update.
func (s *SettingsStore) OnUpdate(hook func(domain.InstructionSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = append(s.onUpdate, hook)
}
