package registry

import (
	"context"
	"fmt"
	"sync"
)

type MemoryRegistry struct {
	mu        sync.RWMutex
	instances map[string]Instance
	order     []string
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{instances: make(map[string]Instance)}
}

func (r *MemoryRegistry) Register(_ context.Context, instance Instance) error {
	if err := validateInstance(instance); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[instance.BotID]; exists {
		return fmt.Errorf("bot id %q is already registered", instance.BotID)
	}
	r.instances[instance.BotID] = instance
	r.order = append(r.order, instance.BotID)
	return nil
}

func (r *MemoryRegistry) LoadInstance(_ context.Context, botID string) (Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instance, ok := r.instances[botID]
	if !ok {
		return Instance{}, ErrInstanceNotFound
	}
	return instance, nil
}

func (r *MemoryRegistry) All(_ context.Context) ([]Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Instance, 0, len(r.order))
	for _, botID := range r.order {
		out = append(out, r.instances[botID])
	}
	return out, nil
}

func (r *MemoryRegistry) Close() error {
	return nil
}
