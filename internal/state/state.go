// Package state owns the per-conversation turn state: the loaded flag,
// subject list, pending callback and the active dialog stack. Records follow
// a read-then-write-at-turn-end pattern; the per-conversation scheduler is
// what keeps read-modify-write cycles from interleaving.
package state

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Frame is one entry of a conversation's dialog stack.
type Frame struct {
	DialogID  string         `json:"dialogId"`
	StepIndex int            `json:"stepIndex"`
	Args      map[string]any `json:"args,omitempty"`
}

type Record struct {
	Loaded          bool     `json:"loaded"`
	Subjects        []string `json:"subjects"`
	PendingCallback string   `json:"pendingCallback,omitempty"`
	DialogStack     []Frame  `json:"dialogStack,omitempty"`
}

type Store interface {
	Get(ctx context.Context, instanceID, conversationID string) (Record, bool, error)
	Set(ctx context.Context, instanceID, conversationID string, rec Record) error
	Close() error
}

func validateStateKeyFields(instanceID, conversationID string) error {
	if strings.TrimSpace(instanceID) == "" {
		return errors.New("instance id is required")
	}
	if strings.TrimSpace(conversationID) == "" {
		return errors.New("conversation id is required")
	}
	return nil
}

func stateKey(instanceID, conversationID string) string {
	return instanceID + ":" + conversationID
}

// Accessor binds a Store to one instance and buffers writes until
// SaveChanges, matching the set-then-save contract dialogs are written
// against.
type Accessor struct {
	store      Store
	instanceID string

	mu      sync.Mutex
	pending map[string]Record
}

func NewAccessor(store Store, instanceID string) *Accessor {
	return &Accessor{
		store:      store,
		instanceID: instanceID,
		pending:    make(map[string]Record),
	}
}

// Get returns the stored record, a staged-but-unsaved record if one exists,
// or the zero default for a conversation seen for the first time.
func (a *Accessor) Get(ctx context.Context, conversationID string) (Record, error) {
	a.mu.Lock()
	if rec, ok := a.pending[conversationID]; ok {
		a.mu.Unlock()
		return rec, nil
	}
	a.mu.Unlock()

	rec, found, err := a.store.Get(ctx, a.instanceID, conversationID)
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{Subjects: []string{}}, nil
	}
	return rec, nil
}

func (a *Accessor) Set(_ context.Context, conversationID string, rec Record) error {
	if err := validateStateKeyFields(a.instanceID, conversationID); err != nil {
		return err
	}
	a.mu.Lock()
	a.pending[conversationID] = rec
	a.mu.Unlock()
	return nil
}

// SaveChanges flushes the staged record for the conversation, if any.
func (a *Accessor) SaveChanges(ctx context.Context, conversationID string) error {
	a.mu.Lock()
	rec, ok := a.pending[conversationID]
	if ok {
		delete(a.pending, conversationID)
	}
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return a.store.Set(ctx, a.instanceID, conversationID, rec)
}

// Discard drops staged-but-unsaved changes for the conversation. Used when a
// turn fails and its progress must not be persisted.
func (a *Accessor) Discard(conversationID string) {
	a.mu.Lock()
	delete(a.pending, conversationID)
	a.mu.Unlock()
}
