package dialog

import (
	"context"
	"fmt"
)

const (
	TextPromptID    = "textPrompt"
	ConfirmPromptID = "confirmPrompt"
)

// BaselinePrompts are the reusable prompt dialogs every runtime registers so
// capability packages can reference them by name.
func BaselinePrompts() []Definition {
	return []Definition{
		{
			ID: TextPromptID,
			Steps: []StepFunc{
				func(ctx context.Context, step *Step) error {
					return step.SendActivity(ctx, promptText(step))
				},
				func(ctx context.Context, step *Step) error {
					step.EndDialog()
					return nil
				},
			},
		},
		{
			ID: ConfirmPromptID,
			Steps: []StepFunc{
				func(ctx context.Context, step *Step) error {
					return step.SendActivity(ctx, fmt.Sprintf("%s (yes/no)", promptText(step)))
				},
				func(ctx context.Context, step *Step) error {
					step.EndDialog()
					return nil
				},
			},
		},
	}
}

func promptText(step *Step) string {
	if opts := step.Options(); opts != nil {
		if text, ok := opts["prompt"].(string); ok && text != "" {
			return text
		}
	}
	return "?"
}
