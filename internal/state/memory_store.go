package state

import (
	"context"
	"fmt"
	"sync"
)

type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	closed  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, instanceID, conversationID string) (Record, bool, error) {
	if err := validateStateKeyFields(instanceID, conversationID); err != nil {
		return Record{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Record{}, false, fmt.Errorf("memory store is closed")
	}
	rec, ok := s.records[stateKey(instanceID, conversationID)]
	return rec, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, instanceID, conversationID string, rec Record) error {
	if err := validateStateKeyFields(instanceID, conversationID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	s.records[stateKey(instanceID, conversationID)] = rec
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
