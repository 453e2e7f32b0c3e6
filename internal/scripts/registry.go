// Package scripts maps trigger phrases to sandboxed script handlers. Each
// runtime owns its own registries; nothing here is shared across instances.
package scripts

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Registry is the bidirectional trigger mapping: handler name to trigger
// text and back, so routing never scans.
type Registry struct {
	mu            sync.RWMutex
	triggerByName map[string]string
	nameByTrigger map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		triggerByName: make(map[string]string),
		nameByTrigger: make(map[string]string),
	}
}

func (r *Registry) Bind(name, trigger string) error {
	name = strings.TrimSpace(name)
	trigger = strings.TrimSpace(trigger)
	if name == "" {
		return errors.New("handler name is required")
	}
	if trigger == "" {
		return errors.New("trigger text is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.triggerByName[name]; ok {
		return fmt.Errorf("handler %q is already bound to trigger %q", name, existing)
	}
	if existing, ok := r.nameByTrigger[trigger]; ok {
		return fmt.Errorf("trigger %q is already bound to handler %q", trigger, existing)
	}
	r.triggerByName[name] = trigger
	r.nameByTrigger[trigger] = name
	return nil
}

func (r *Registry) NameForTrigger(text string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.nameByTrigger[text]
	return name, ok
}

func (r *Registry) TriggerForName(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	trigger, ok := r.triggerByName[name]
	return trigger, ok
}
