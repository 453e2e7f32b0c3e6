// Package dialog is a compact waterfall dialog engine. A Set holds named
// dialogs; a Step is the per-turn context bound to one activity and one
// conversation state record. The dialog stack lives in the state record so
// its read/write boundaries are the turn boundaries.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thamiris-ramos/BotServer/internal/bot"
	"github.com/thamiris-ramos/BotServer/internal/state"
)

type Args = map[string]any

// Sink is where outbound activities go: the conversational channel for the
// activity's conversation.
type Sink interface {
	SendActivity(ctx context.Context, conversationID string, activity bot.Activity) error
}

type StepFunc func(ctx context.Context, step *Step) error

type Definition struct {
	ID    string
	Steps []StepFunc
}

type Set struct {
	dialogs map[string]Definition
}

func NewSet() *Set {
	return &Set{dialogs: make(map[string]Definition)}
}

// Add registers a dialog. The set is written only during runtime
// construction and read-only afterward, so no locking is needed.
func (s *Set) Add(def Definition) error {
	if strings.TrimSpace(def.ID) == "" {
		return errors.New("dialog id is required")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("dialog %q has no steps", def.ID)
	}
	if _, exists := s.dialogs[def.ID]; exists {
		return fmt.Errorf("dialog %q is already registered", def.ID)
	}
	s.dialogs[def.ID] = def
	return nil
}

func (s *Set) Has(id string) bool {
	_, ok := s.dialogs[id]
	return ok
}

func (s *Set) CreateContext(activity bot.Activity, rec *state.Record, sink Sink) *Step {
	return &Step{set: s, Activity: activity, Rec: rec, sink: sink}
}

// Step is the context for one turn of one conversation.
type Step struct {
	set      *Set
	Activity bot.Activity
	Rec      *state.Record
	sink     Sink
}

// ActiveDialog returns the frame at the top of the stack, or nil.
func (st *Step) ActiveDialog() *state.Frame {
	if len(st.Rec.DialogStack) == 0 {
		return nil
	}
	return &st.Rec.DialogStack[len(st.Rec.DialogStack)-1]
}

// BeginDialog pushes the named dialog onto the stack and runs its first step.
func (st *Step) BeginDialog(ctx context.Context, id string, args Args) error {
	def, ok := st.set.dialogs[id]
	if !ok {
		return fmt.Errorf("dialog %q is not registered", id)
	}
	st.Rec.DialogStack = append(st.Rec.DialogStack, state.Frame{DialogID: id, StepIndex: 0, Args: args})
	return def.Steps[0](ctx, st)
}

// ContinueDialog resumes the active dialog at its next waterfall step. With
// an empty stack it is a no-op.
func (st *Step) ContinueDialog(ctx context.Context) error {
	frame := st.ActiveDialog()
	if frame == nil {
		return nil
	}
	def, ok := st.set.dialogs[frame.DialogID]
	if !ok {
		st.EndDialog()
		return fmt.Errorf("active dialog %q is not registered", frame.DialogID)
	}
	frame.StepIndex++
	if frame.StepIndex >= len(def.Steps) {
		st.EndDialog()
		return nil
	}
	return def.Steps[frame.StepIndex](ctx, st)
}

// Next advances the waterfall within the same turn.
func (st *Step) Next(ctx context.Context) error {
	return st.ContinueDialog(ctx)
}

// EndDialog pops the active dialog, returning control to its parent.
func (st *Step) EndDialog() {
	if len(st.Rec.DialogStack) == 0 {
		return
	}
	st.Rec.DialogStack = st.Rec.DialogStack[:len(st.Rec.DialogStack)-1]
}

// Options returns the arguments the active dialog was begun with.
func (st *Step) Options() Args {
	frame := st.ActiveDialog()
	if frame == nil {
		return nil
	}
	return frame.Args
}

func (st *Step) SendActivity(ctx context.Context, text string) error {
	return st.sink.SendActivity(ctx, st.Activity.Conversation.ID, bot.Activity{
		Type:         bot.ActivityMessage,
		Text:         text,
		Locale:       st.Activity.Locale,
		Conversation: st.Activity.Conversation,
	})
}

func (st *Step) SendEvent(ctx context.Context, name string, value any) error {
	return st.sink.SendActivity(ctx, st.Activity.Conversation.ID, bot.Activity{
		Type:         bot.ActivityEvent,
		Name:         name,
		Value:        value,
		Locale:       st.Activity.Locale,
		Conversation: st.Activity.Conversation,
	})
}
