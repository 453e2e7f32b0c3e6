package scripts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/thamiris-ramos/BotServer/internal/dialog"
)

// Sandbox holds one compiled script handler. The script source must define a
// function whose name matches the handler name; Invoke binds the current
// turn and calls it. A sandbox is stateful across turns of its instance but
// serialized per invocation.
type Sandbox struct {
	name    string
	program *goja.Program

	mu sync.Mutex
	vm *goja.Runtime
}

func NewSandbox(name, source string) (*Sandbox, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("handler name is required")
	}
	program, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, fmt.Errorf("compile script %q: %w", name, err)
	}

	vm := goja.New()
	if _, err := vm.RunProgram(program); err != nil {
		return nil, fmt.Errorf("load script %q: %w", name, err)
	}
	return &Sandbox{name: name, program: program, vm: vm}, nil
}

func (s *Sandbox) Name() string {
	return s.name
}

// Invoke attaches the turn context to the sandbox and calls the handler
// function. Script execution is interrupted if the turn context is
// cancelled.
func (s *Sandbox) Invoke(ctx context.Context, step *dialog.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	if err := s.vm.Set("activity", map[string]any{
		"type":           string(step.Activity.Type),
		"text":           step.Activity.Text,
		"locale":         step.Activity.Locale,
		"channelId":      step.Activity.ChannelID,
		"conversationId": step.Activity.Conversation.ID,
	}); err != nil {
		return fmt.Errorf("bind activity for %q: %w", s.name, err)
	}
	if err := s.vm.Set("sendActivity", func(text string) {
		if sendErr := step.SendActivity(ctx, text); sendErr != nil {
			panic(s.vm.ToValue(sendErr.Error()))
		}
	}); err != nil {
		return fmt.Errorf("bind sendActivity for %q: %w", s.name, err)
	}

	value := s.vm.Get(s.name)
	if value == nil {
		return fmt.Errorf("script %q does not define function %q", s.name, s.name)
	}
	fn, ok := goja.AssertFunction(value)
	if !ok {
		return fmt.Errorf("script %q: %q is not a function", s.name, s.name)
	}
	if _, err := fn(goja.Undefined()); err != nil {
		return fmt.Errorf("script %q: %w", s.name, err)
	}
	return nil
}

// SandboxRegistry maps handler names to their sandboxes for one runtime.
type SandboxRegistry struct {
	mu     sync.RWMutex
	byName map[string]*Sandbox
}

func NewSandboxRegistry() *SandboxRegistry {
	return &SandboxRegistry{byName: make(map[string]*Sandbox)}
}

func (r *SandboxRegistry) Add(sandbox *Sandbox) error {
	if sandbox == nil {
		return errors.New("sandbox is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[sandbox.Name()]; exists {
		return fmt.Errorf("sandbox %q is already registered", sandbox.Name())
	}
	r.byName[sandbox.Name()] = sandbox
	return nil
}

func (r *SandboxRegistry) Get(name string) (*Sandbox, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sandbox, ok := r.byName[name]
	return sandbox, ok
}
