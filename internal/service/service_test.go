package service

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/thamiris-ramos/BotServer/internal/bot"
	"github.com/thamiris-ramos/BotServer/internal/channel"
	"github.com/thamiris-ramos/BotServer/internal/packages/core"
	"github.com/thamiris-ramos/BotServer/internal/packages/kb"
	"github.com/thamiris-ramos/BotServer/internal/registry"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
	"github.com/thamiris-ramos/BotServer/internal/state"
)

func newTestService(t *testing.T) (*Service, *state.MemoryStore) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	stateStore := state.NewMemoryStore()

	builder := runtime.NewBuilder(logger, stateStore, channel.NewHub(logger), []runtime.Package{core.New(), kb.New()}, nil)
	rt, err := builder.Build(context.Background(), registry.Instance{
		InstanceID:  "inst-1",
		BotID:       "sales",
		Title:       "Sales Bot",
		BotEndpoint: "https://bots.example.com",
	})
	if err != nil {
		t.Fatalf("build runtime failed: %v", err)
	}

	svc := New(logger, "sales", "")
	if err := svc.AddRuntime(rt); err != nil {
		t.Fatalf("add runtime failed: %v", err)
	}
	return svc, stateStore
}

func TestRuntimeForResolvesDefaultMarker(t *testing.T) {
	svc, _ := newTestService(t)

	for _, botID := range []string{"sales", registry.DefaultBotMarker, ""} {
		rt, err := svc.RuntimeFor(botID)
		if err != nil {
			t.Fatalf("RuntimeFor(%q) failed: %v", botID, err)
		}
		if rt.Instance.BotID != "sales" {
			t.Fatalf("RuntimeFor(%q) resolved to %q", botID, rt.Instance.BotID)
		}
	}
}

func TestRuntimeForUnknownBot(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.RuntimeFor("ghost"); !errors.Is(err, ErrUnknownBot) {
		t.Fatalf("expected ErrUnknownBot, got %v", err)
	}
}

func TestAddRuntimeRejectsDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	rt, _ := svc.RuntimeFor("sales")
	if err := svc.AddRuntime(rt); err == nil {
		t.Fatalf("expected duplicate mount to fail")
	}
}

func TestAcceptValidatesActivity(t *testing.T) {
	svc, _ := newTestService(t)
	bad := bot.Activity{Type: bot.ActivityMessage}
	if err := svc.Accept(context.Background(), "sales", bad); err == nil {
		t.Fatalf("expected invalid activity to be rejected")
	}
	if err := svc.Accept(context.Background(), "ghost", bot.Activity{
		Type:         bot.ActivityMessage,
		Text:         "hi",
		Conversation: bot.ConversationAccount{ID: "c"},
	}); !errors.Is(err, ErrUnknownBot) {
		t.Fatalf("expected ErrUnknownBot, got %v", err)
	}
}

func TestAcceptProcessesTurnAsynchronously(t *testing.T) {
	svc, stateStore := newTestService(t)

	err := svc.Accept(context.Background(), "sales", bot.Activity{
		Type:         bot.ActivityMessage,
		Text:         "what is the price?",
		Conversation: bot.ConversationAccount{ID: "conv-async"},
	})
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec, found, err := stateStore.Get(context.Background(), "inst-1", "conv-async")
		if err != nil {
			t.Fatalf("state read failed: %v", err)
		}
		if found && rec.Loaded {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("turn was never processed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
