// Package csat supplies the customer-satisfaction dialogs: /feedback and
// /quality.
package csat

import (
	"context"
	"fmt"

	"github.com/thamiris-ramos/BotServer/internal/dialog"
	"github.com/thamiris-ramos/BotServer/internal/i18n"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
)

type Package struct{}

func New() *Package {
	return &Package{}
}

func (p *Package) Name() string {
	return "csat"
}

func (p *Package) LoadBot(rt *runtime.Runtime) error {
	rt.Logger.Printf("csat package loaded bot_id=%s", rt.Instance.BotID)
	return nil
}

func (p *Package) GetDialogs(rt *runtime.Runtime) []dialog.Definition {
	return []dialog.Definition{
		{
			ID: "/feedback",
			Steps: []dialog.StepFunc{
				func(ctx context.Context, step *dialog.Step) error {
					msgs := i18n.For(step.Activity.Locale)
					if fromMenu, _ := step.Options()["fromMenu"].(bool); fromMenu {
						return step.SendActivity(ctx, msgs.ChooseOption)
					}
					return step.SendActivity(ctx, msgs.Greeting)
				},
				func(ctx context.Context, step *dialog.Step) error {
					defer step.EndDialog()
					return step.SendActivity(ctx, i18n.For(step.Activity.Locale).Thanks)
				},
			},
		},
		{
			ID: "/quality",
			Steps: []dialog.StepFunc{
				func(ctx context.Context, step *dialog.Step) error {
					defer step.EndDialog()
					msgs := i18n.For(step.Activity.Locale)
					score := scoreValue(step.Options()["score"])
					if score <= 0 {
						return step.SendActivity(ctx, msgs.SorryAboutScore)
					}
					return step.SendActivity(ctx, fmt.Sprintf("%s (%d)", msgs.Thanks, score))
				},
			},
		},
	}
}

// scoreValue tolerates the numeric shapes JSON decoding produces.
func scoreValue(v any) int {
	switch typed := v.(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case string:
		var n int
		if _, err := fmt.Sscanf(typed, "%d", &n); err == nil {
			return n
		}
	}
	return 0
}
