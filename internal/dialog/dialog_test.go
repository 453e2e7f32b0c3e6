package dialog

import (
	"context"
	"reflect"
	"testing"

	"github.com/thamiris-ramos/BotServer/internal/bot"
	"github.com/thamiris-ramos/BotServer/internal/state"
)

type captureSink struct {
	activities []bot.Activity
}

func (c *captureSink) SendActivity(_ context.Context, _ string, activity bot.Activity) error {
	c.activities = append(c.activities, activity)
	return nil
}

func newTestStep(t *testing.T, set *Set, sink *captureSink) *Step {
	t.Helper()
	rec := &state.Record{Subjects: []string{}}
	activity := bot.Activity{
		Type:         bot.ActivityMessage,
		Text:         "hello",
		Locale:       "en-US",
		Conversation: bot.ConversationAccount{ID: "conv-1"},
	}
	return set.CreateContext(activity, rec, sink)
}

func TestBeginDialogRunsFirstStep(t *testing.T) {
	set := NewSet()
	ran := false
	err := set.Add(Definition{
		ID: "/greet",
		Steps: []StepFunc{
			func(ctx context.Context, step *Step) error {
				ran = true
				return step.SendActivity(ctx, "hi")
			},
		},
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	sink := &captureSink{}
	step := newTestStep(t, set, sink)
	if err := step.BeginDialog(context.Background(), "/greet", nil); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if !ran {
		t.Fatalf("first step did not run")
	}
	if len(sink.activities) != 1 || sink.activities[0].Text != "hi" {
		t.Fatalf("unexpected activities: %+v", sink.activities)
	}
	if active := step.ActiveDialog(); active == nil || active.DialogID != "/greet" {
		t.Fatalf("expected /greet active, got %+v", active)
	}
}

func TestContinueDialogAdvancesAndPops(t *testing.T) {
	set := NewSet()
	var order []int
	err := set.Add(Definition{
		ID: "/waterfall",
		Steps: []StepFunc{
			func(ctx context.Context, step *Step) error {
				order = append(order, 0)
				return nil
			},
			func(ctx context.Context, step *Step) error {
				order = append(order, 1)
				return nil
			},
		},
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	step := newTestStep(t, set, &captureSink{})
	if err := step.BeginDialog(context.Background(), "/waterfall", nil); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := step.ContinueDialog(context.Background()); err != nil {
		t.Fatalf("continue failed: %v", err)
	}
	if !reflect.DeepEqual([]int{0, 1}, order) {
		t.Fatalf("unexpected step order: %v", order)
	}

	// Past the last step the dialog pops.
	if err := step.ContinueDialog(context.Background()); err != nil {
		t.Fatalf("final continue failed: %v", err)
	}
	if step.ActiveDialog() != nil {
		t.Fatalf("expected empty stack, got %+v", step.ActiveDialog())
	}
}

func TestContinueDialogWithEmptyStackIsNoop(t *testing.T) {
	step := newTestStep(t, NewSet(), &captureSink{})
	if err := step.ContinueDialog(context.Background()); err != nil {
		t.Fatalf("continue on empty stack failed: %v", err)
	}
}

func TestBeginDialogUnknownID(t *testing.T) {
	step := newTestStep(t, NewSet(), &captureSink{})
	if err := step.BeginDialog(context.Background(), "/missing", nil); err == nil {
		t.Fatalf("expected unknown dialog to fail")
	}
}

func TestOptionsReturnBeginArgs(t *testing.T) {
	set := NewSet()
	var got Args
	err := set.Add(Definition{
		ID: "/opts",
		Steps: []StepFunc{
			func(ctx context.Context, step *Step) error {
				got = step.Options()
				return nil
			},
		},
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	step := newTestStep(t, set, &captureSink{})
	want := Args{"query": "pricing"}
	if err := step.BeginDialog(context.Background(), "/opts", want); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("unexpected options: %+v", got)
	}
}

func TestNestedDialogsReturnToParent(t *testing.T) {
	set := NewSet()
	if err := set.Add(Definition{
		ID: "/child",
		Steps: []StepFunc{
			func(ctx context.Context, step *Step) error {
				step.EndDialog()
				return nil
			},
		},
	}); err != nil {
		t.Fatalf("add child failed: %v", err)
	}
	if err := set.Add(Definition{
		ID: "/parent",
		Steps: []StepFunc{
			func(ctx context.Context, step *Step) error {
				return step.BeginDialog(ctx, "/child", nil)
			},
			func(ctx context.Context, step *Step) error {
				step.EndDialog()
				return nil
			},
		},
	}); err != nil {
		t.Fatalf("add parent failed: %v", err)
	}

	step := newTestStep(t, set, &captureSink{})
	if err := step.BeginDialog(context.Background(), "/parent", nil); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if active := step.ActiveDialog(); active == nil || active.DialogID != "/parent" {
		t.Fatalf("expected control back at /parent, got %+v", active)
	}
}

func TestSendEventCarriesNameAndValue(t *testing.T) {
	sink := &captureSink{}
	step := newTestStep(t, NewSet(), sink)

	if err := step.SendEvent(context.Background(), "loadInstance", map[string]any{"botId": "sales"}); err != nil {
		t.Fatalf("send event failed: %v", err)
	}
	if len(sink.activities) != 1 {
		t.Fatalf("expected one activity, got %d", len(sink.activities))
	}
	got := sink.activities[0]
	if got.Type != bot.ActivityEvent || got.Name != "loadInstance" {
		t.Fatalf("unexpected event activity: %+v", got)
	}
}

func TestBaselinePromptsSendPromptText(t *testing.T) {
	set := NewSet()
	for _, def := range BaselinePrompts() {
		if err := set.Add(def); err != nil {
			t.Fatalf("add prompt failed: %v", err)
		}
	}

	sink := &captureSink{}
	step := newTestStep(t, set, sink)
	if err := step.BeginDialog(context.Background(), TextPromptID, Args{"prompt": "What is your name?"}); err != nil {
		t.Fatalf("begin prompt failed: %v", err)
	}
	if len(sink.activities) != 1 || sink.activities[0].Text != "What is your name?" {
		t.Fatalf("unexpected prompt output: %+v", sink.activities)
	}

	if err := step.ContinueDialog(context.Background()); err != nil {
		t.Fatalf("continue prompt failed: %v", err)
	}
	if step.ActiveDialog() != nil {
		t.Fatalf("prompt did not end")
	}
}

func TestAddRejectsDuplicatesAndEmpty(t *testing.T) {
	set := NewSet()
	def := Definition{ID: "/dup", Steps: []StepFunc{func(ctx context.Context, step *Step) error { return nil }}}
	if err := set.Add(def); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := set.Add(def); err == nil {
		t.Fatalf("expected duplicate add to fail")
	}
	if err := set.Add(Definition{ID: " ", Steps: def.Steps}); err == nil {
		t.Fatalf("expected empty id to fail")
	}
	if err := set.Add(Definition{ID: "/empty"}); err == nil {
		t.Fatalf("expected missing steps to fail")
	}
}
