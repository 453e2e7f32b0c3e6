// Package kb supplies the knowledge-base dialogs: question answering, the
// FAQ, the subject menu and the ask fallback.
package kb

import (
	"context"
	"fmt"
	"strings"

	"github.com/thamiris-ramos/BotServer/internal/dialog"
	"github.com/thamiris-ramos/BotServer/internal/i18n"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
)

type Package struct{}

func New() *Package {
	return &Package{}
}

func (p *Package) Name() string {
	return "kb"
}

func (p *Package) LoadBot(rt *runtime.Runtime) error {
	rt.Logger.Printf("kb package loaded bot_id=%s", rt.Instance.BotID)
	return nil
}

func (p *Package) OnNewSession(ctx context.Context, rt *runtime.Runtime, step *dialog.Step) error {
	return step.BeginDialog(ctx, "/ask", dialog.Args{"isReturning": false})
}

func (p *Package) GetDialogs(rt *runtime.Runtime) []dialog.Definition {
	return []dialog.Definition{
		{
			ID: "/answer",
			Steps: []dialog.StepFunc{
				func(ctx context.Context, step *dialog.Step) error {
					defer step.EndDialog()
					query, _ := step.Options()["query"].(string)
					msgs := i18n.For(step.Activity.Locale)
					if strings.TrimSpace(query) == "" {
						return step.SendActivity(ctx, msgs.VerySorryAboutError)
					}
					return step.SendActivity(ctx, msgs.Searching)
				},
			},
		},
		{
			ID: "/ask",
			Steps: []dialog.StepFunc{
				func(ctx context.Context, step *dialog.Step) error {
					return step.SendActivity(ctx, i18n.For(step.Activity.Locale).Greeting)
				},
				func(ctx context.Context, step *dialog.Step) error {
					step.EndDialog()
					return step.BeginDialog(ctx, "/answer", dialog.Args{"query": step.Activity.Text})
				},
			},
		},
		{
			ID: "/faq",
			Steps: []dialog.StepFunc{
				func(ctx context.Context, step *dialog.Step) error {
					defer step.EndDialog()
					return step.SendEvent(ctx, "showFAQ", nil)
				},
			},
		},
		{
			ID: "/answerEvent",
			Steps: []dialog.StepFunc{
				func(ctx context.Context, step *dialog.Step) error {
					defer step.EndDialog()
					questionID := step.Options()["questionId"]
					if questionID == nil {
						return step.SendActivity(ctx, i18n.For(step.Activity.Locale).VerySorryAboutError)
					}
					return step.SendActivity(ctx, fmt.Sprintf("FAQ #%v: %s", questionID, i18n.For(step.Activity.Locale).Searching))
				},
			},
		},
		{
			ID: "/menu",
			Steps: []dialog.StepFunc{
				func(ctx context.Context, step *dialog.Step) error {
					defer step.EndDialog()
					opts := step.Options()
					title, _ := opts["title"].(string)
					subjects := subjectsFromOptions(opts)
					step.Rec.Subjects = subjects

					msgs := i18n.For(step.Activity.Locale)
					if title == "" {
						title = msgs.ChooseOption
					}
					if len(subjects) == 0 {
						return step.SendActivity(ctx, title)
					}
					return step.SendActivity(ctx, fmt.Sprintf("%s %s", title, strings.Join(subjects, ", ")))
				},
			},
		},
	}
}

func subjectsFromOptions(opts dialog.Args) []string {
	raw, ok := opts["options"].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
