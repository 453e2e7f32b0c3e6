// Package core is the baseline system capability package: the /whoAmI
// dialog, the built-in status script and the new-session greeting.
package core

import (
	"context"
	"fmt"

	"github.com/thamiris-ramos/BotServer/internal/dialog"
	"github.com/thamiris-ramos/BotServer/internal/i18n"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
	"github.com/thamiris-ramos/BotServer/internal/scripts"
)

const statusTrigger = "show status"

const statusScript = `
function showStatus() {
	sendActivity("Instance is up. Conversation: " + activity.conversationId);
}
`

type Package struct{}

func New() *Package {
	return &Package{}
}

func (p *Package) Name() string {
	return "core"
}

func (p *Package) LoadBot(rt *runtime.Runtime) error {
	sandbox, err := scripts.NewSandbox("showStatus", statusScript)
	if err != nil {
		return err
	}
	if err := rt.Sandboxes.Add(sandbox); err != nil {
		return err
	}
	return rt.Scripts.Bind("showStatus", statusTrigger)
}

func (p *Package) GetDialogs(rt *runtime.Runtime) []dialog.Definition {
	instance := rt.Instance
	return []dialog.Definition{
		{
			ID: "/whoAmI",
			Steps: []dialog.StepFunc{
				func(ctx context.Context, step *dialog.Step) error {
					if err := step.SendActivity(ctx, fmt.Sprintf("%s (%s)", instance.Title, instance.BotID)); err != nil {
						return err
					}
					step.EndDialog()
					return nil
				},
			},
		},
	}
}

func (p *Package) OnNewSession(ctx context.Context, rt *runtime.Runtime, step *dialog.Step) error {
	return step.SendActivity(ctx, i18n.For(step.Activity.Locale).Greeting)
}
