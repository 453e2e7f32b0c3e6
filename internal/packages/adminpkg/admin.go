// Package adminpkg supplies the administration dialogs: /admin and
// /adminUpdateToken. Token updates are written to the instance's key/value
// store.
package adminpkg

import (
	"context"
	"strings"

	"github.com/thamiris-ramos/BotServer/internal/admin"
	"github.com/thamiris-ramos/BotServer/internal/dialog"
	"github.com/thamiris-ramos/BotServer/internal/i18n"
	"github.com/thamiris-ramos/BotServer/internal/oauth"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
)

type Package struct {
	store admin.Store
}

func New(store admin.Store) *Package {
	return &Package{store: store}
}

func (p *Package) Name() string {
	return "admin"
}

func (p *Package) LoadBot(rt *runtime.Runtime) error {
	rt.Logger.Printf("admin package loaded bot_id=%s", rt.Instance.BotID)
	return nil
}

func (p *Package) GetDialogs(rt *runtime.Runtime) []dialog.Definition {
	instanceID := rt.Instance.InstanceID
	return []dialog.Definition{
		{
			ID: "/admin",
			Steps: []dialog.StepFunc{
				func(ctx context.Context, step *dialog.Step) error {
					return step.SendActivity(ctx, i18n.For(step.Activity.Locale).AdminPasswordPrompt)
				},
				func(ctx context.Context, step *dialog.Step) error {
					defer step.EndDialog()
					msgs := i18n.For(step.Activity.Locale)
					stored, err := p.store.GetValue(ctx, instanceID, "adminPassword")
					if err != nil || strings.TrimSpace(step.Activity.Text) != stored {
						return step.SendActivity(ctx, msgs.VerySorryAboutError)
					}
					return step.SendActivity(ctx, msgs.AdminWelcome)
				},
			},
		},
		{
			ID: "/adminUpdateToken",
			Steps: []dialog.StepFunc{
				func(ctx context.Context, step *dialog.Step) error {
					defer step.EndDialog()
					token, _ := step.Options()["token"].(string)
					if strings.TrimSpace(token) == "" {
						return step.SendActivity(ctx, i18n.For(step.Activity.Locale).VerySorryAboutError)
					}
					if err := p.store.SetValue(ctx, instanceID, oauth.KeyAccessToken, token); err != nil {
						return err
					}
					return step.SendActivity(ctx, i18n.For(step.Activity.Locale).TokenUpdated)
				},
			},
		},
	}
}
