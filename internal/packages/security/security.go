// Package security audits who the bot talks to. It keeps a per-instance
// count of conversations greeted so suspicious bursts show up in the logs.
package security

import (
	"context"
	"sync/atomic"

	"github.com/thamiris-ramos/BotServer/internal/dialog"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
)

type Package struct {
	sessions atomic.Int64
}

func New() *Package {
	return &Package{}
}

func (p *Package) Name() string {
	return "security"
}

func (p *Package) LoadBot(rt *runtime.Runtime) error {
	rt.Logger.Printf("security package loaded bot_id=%s", rt.Instance.BotID)
	return nil
}

func (p *Package) OnNewSession(_ context.Context, rt *runtime.Runtime, step *dialog.Step) error {
	total := p.sessions.Add(1)
	rt.Logger.Printf("session audit bot_id=%s conversation_id=%s total_sessions=%d",
		rt.Instance.BotID, step.Activity.Conversation.ID, total)
	return nil
}

func (p *Package) Sessions() int64 {
	return p.sessions.Load()
}
