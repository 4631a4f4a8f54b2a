package mocks

import (
	"context"
	"sync"
)

// SettingsStore is a thread-safe in-memory implementation of ports.SettingsStore.
type SettingsStore struct {
	mu       sync.RWMutex
	settings map[string]string

	// GetSettingFn allows overriding GetSetting behavior.
	GetSettingFn func(ctx context.Context, key string) (string, bool, error)

	// SetSettingFn allows overriding SetSetting behavior.
	SetSettingFn func(ctx context.Context, key, value string) error
}

// NewSettingsStore creates a new mock settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		settings: make(map[string]string),
	}
}

// GetSetting retrieves a setting value.
func (s *SettingsStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	if s.GetSettingFn != nil {
		return s.GetSettingFn(ctx, key)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.settings[key]

	return val, ok, nil
}

// SetSetting saves a setting value.
func (s *SettingsStore) SetSetting(ctx context.Context, key, value string) error {
	if s.SetSettingFn != nil {
		return s.SetSettingFn(ctx, key, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = value

	return nil
}

// Set is a convenience method for tests to set values directly.
func (s *SettingsStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = value
}

// Clear removes all settings.
func (s *SettingsStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = make(map[string]string)
}
