// Package service is the control plane core: it holds the live runtime for
// every deployed bot instance and feeds inbound activities through the
// per-conversation scheduler into the activity router.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/thamiris-ramos/BotServer/internal/bot"
	"github.com/thamiris-ramos/BotServer/internal/registry"
	"github.com/thamiris-ramos/BotServer/internal/router"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
	"github.com/thamiris-ramos/BotServer/internal/scheduler"
)

var ErrUnknownBot = errors.New("unknown bot")

type Service struct {
	logger       *log.Logger
	router       *router.Router
	scheduler    *scheduler.Scheduler
	defaultBotID string

	mu       sync.RWMutex
	runtimes map[string]*runtime.Runtime
}

func New(logger *log.Logger, defaultBotID, defaultLocale string) *Service {
	svc := &Service{
		logger:       logger,
		router:       router.New(logger, defaultLocale),
		defaultBotID: defaultBotID,
		runtimes:     make(map[string]*runtime.Runtime),
	}
	svc.scheduler = scheduler.NewScheduler(logger, 256, svc.processTurn)
	return svc
}

func (s *Service) DefaultBotID() string {
	return s.defaultBotID
}

// AddRuntime registers a built runtime under its bot id. Runtimes are added
// at mount time and never replaced while the process runs.
func (s *Service) AddRuntime(rt *runtime.Runtime) error {
	if rt == nil {
		return errors.New("runtime is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runtimes[rt.Instance.BotID]; exists {
		return fmt.Errorf("bot %q is already mounted", rt.Instance.BotID)
	}
	s.runtimes[rt.Instance.BotID] = rt
	return nil
}

// RuntimeFor resolves a bot id, honoring the default-bot marker, to its live
// runtime.
func (s *Service) RuntimeFor(botID string) (*runtime.Runtime, error) {
	resolved := registry.ResolveBotID(botID, s.defaultBotID)
	s.mu.RLock()
	rt, ok := s.runtimes[resolved]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBot, resolved)
	}
	return rt, nil
}

// Accept validates an inbound activity and hands it to the conversation's
// worker. Processing is asynchronous; Accept returns once the turn is queued.
func (s *Service) Accept(ctx context.Context, botID string, activity bot.Activity) error {
	rt, err := s.RuntimeFor(botID)
	if err != nil {
		return err
	}
	if err := bot.Validate(activity); err != nil {
		return fmt.Errorf("invalid activity: %w", err)
	}
	return s.scheduler.Enqueue(ctx, scheduler.Turn{Runtime: rt, Activity: activity})
}

// Close stops accepting activities and waits for queued turns to drain.
func (s *Service) Close() {
	s.scheduler.Close()
}

func (s *Service) processTurn(ctx context.Context, turn scheduler.Turn) {
	if err := s.router.Route(ctx, turn.Runtime, turn.Activity); err != nil {
		s.logger.Printf("turn persist failed bot_id=%s conversation_id=%s err=%v",
			turn.Runtime.Instance.BotID, turn.Activity.Conversation.ID, err)
	}
}
