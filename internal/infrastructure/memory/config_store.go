package memory

import (
	"context"
	"sync"
)

type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewConfigStore(initial map[string]string) *ConfigStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &ConfigStore{values: values}
}

func (s *ConfigStore) Get(ctx context.Context, key, def string) (string, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return def, nil
}

func (s *ConfigStore) Set(ctx context.Context, key, value string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
