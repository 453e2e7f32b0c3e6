// Package analytics counts conversations and greeted sessions per instance.
package analytics

import (
	"context"
	"sync/atomic"

	"github.com/thamiris-ramos/BotServer/internal/dialog"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
)

type Package struct {
	newSessions atomic.Int64
}

func New() *Package {
	return &Package{}
}

func (p *Package) Name() string {
	return "analytics"
}

func (p *Package) LoadBot(rt *runtime.Runtime) error {
	rt.Logger.Printf("analytics package loaded bot_id=%s", rt.Instance.BotID)
	return nil
}

func (p *Package) OnNewSession(_ context.Context, rt *runtime.Runtime, _ *dialog.Step) error {
	rt.Logger.Printf("analytics new_session bot_id=%s total=%d", rt.Instance.BotID, p.newSessions.Add(1))
	return nil
}

func (p *Package) NewSessions() int64 {
	return p.newSessions.Load()
}
