package admin

import (
	"context"
	"fmt"
	"sync"
)

type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) GetValue(_ context.Context, instanceID, key string) (string, error) {
	if err := validateKeyFields(instanceID, key); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("memory store is closed")
	}
	value, ok := s.values[valueKey(instanceID, key)]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) SetValue(_ context.Context, instanceID, key, value string) error {
	if err := validateKeyFields(instanceID, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	s.values[valueKey(instanceID, key)] = value
	return nil
}

func (s *MemoryStore) DeleteValue(_ context.Context, instanceID, key string) error {
	if err := validateKeyFields(instanceID, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	delete(s.values, valueKey(instanceID, key))
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
