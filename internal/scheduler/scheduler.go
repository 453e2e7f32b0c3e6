// Package scheduler serializes turn processing per conversation. Each
// instance/conversation pair gets a dedicated worker goroutine with a bounded
// queue, so turns of one conversation never interleave while distinct
// conversations proceed in parallel.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/thamiris-ramos/BotServer/internal/bot"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
)

var (
	ErrQueueFull = errors.New("conversation queue full")
	ErrShutdown  = errors.New("scheduler shut down")
)

// Turn is one inbound activity bound to the runtime that will process it.
type Turn struct {
	Runtime  *runtime.Runtime
	Activity bot.Activity
}

type TurnHandler func(context.Context, Turn)

type Scheduler struct {
	logger    *log.Logger
	handler   TurnHandler
	queueSize int

	mu      sync.Mutex
	workers map[string]*worker
	closed  bool
	wg      sync.WaitGroup
}

type worker struct {
	ch chan Turn
}

func NewScheduler(logger *log.Logger, queueSize int, handler TurnHandler) *Scheduler {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Scheduler{
		logger:    logger,
		handler:   handler,
		queueSize: queueSize,
		workers:   make(map[string]*worker),
	}
}

// Enqueue hands a turn to its conversation's worker. A full queue rejects the
// turn rather than blocking the caller. The send happens under the lock so a
// concurrent Close can never close a channel mid-send.
func (s *Scheduler) Enqueue(ctx context.Context, turn Turn) error {
	key := turn.Runtime.Instance.InstanceID + ":" + turn.Activity.Conversation.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrShutdown
	}

	w, ok := s.workers[key]
	if !ok {
		w = &worker{ch: make(chan Turn, s.queueSize)}
		s.workers[key] = w
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for turn := range w.ch {
				s.handler(context.Background(), turn)
			}
		}()
	}

	select {
	case w.ch <- turn:
		return nil
	default:
		s.logger.Printf("conversation queue full key=%s", key)
		return ErrQueueFull
	}
}

// Close stops accepting turns, lets every worker drain its queue and returns
// once all workers have exited.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, w := range s.workers {
		close(w.ch)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
