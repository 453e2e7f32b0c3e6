// Package router decides, for every inbound activity, which handler runs: a
// sandboxed script, a named dialog, or dialog continuation. Exactly one
// dispatch happens per message activity.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/thamiris-ramos/BotServer/internal/bot"
	"github.com/thamiris-ramos/BotServer/internal/dialog"
	"github.com/thamiris-ramos/BotServer/internal/i18n"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
	"github.com/thamiris-ramos/BotServer/internal/state"
)

const (
	defaultTheme   = "default.gbtheme"
	menuJSONPrefix = `{"title"`
)

type Router struct {
	logger        *log.Logger
	defaultLocale string
}

func New(logger *log.Logger, defaultLocale string) *Router {
	if strings.TrimSpace(defaultLocale) == "" {
		defaultLocale = i18n.DefaultLocale
	}
	return &Router{logger: logger, defaultLocale: defaultLocale}
}

// Route processes one turn. Turn failures are recovered here: the user is
// notified, the /ask fallback begins, and the failed turn's staged state is
// dropped. The process never crashes on a turn.
func (r *Router) Route(ctx context.Context, rt *runtime.Runtime, activity bot.Activity) error {
	if strings.TrimSpace(activity.Locale) == "" {
		activity.Locale = r.defaultLocale
	}
	conversationID := activity.Conversation.ID

	rec, err := rt.State.Get(ctx, conversationID)
	if err != nil {
		rec = state.Record{Subjects: []string{}}
		step := rt.Dialogs.CreateContext(activity, &rec, rt.Channel)
		r.recoverTurn(ctx, step, fmt.Errorf("read conversation state: %w", err))
		rt.State.Discard(conversationID)
		return nil
	}

	step := rt.Dialogs.CreateContext(activity, &rec, rt.Channel)
	if err := r.routeTurn(ctx, rt, step, activity, &rec); err != nil {
		r.recoverTurn(ctx, step, err)
		rt.State.Discard(conversationID)
		return nil
	}

	if err := rt.State.Set(ctx, conversationID, rec); err != nil {
		return fmt.Errorf("stage conversation state: %w", err)
	}
	if err := rt.State.SaveChanges(ctx, conversationID); err != nil {
		return fmt.Errorf("persist conversation state: %w", err)
	}
	return nil
}

func (r *Router) routeTurn(ctx context.Context, rt *runtime.Runtime, step *dialog.Step, activity bot.Activity, rec *state.Record) error {
	if !rec.Loaded {
		if err := r.emitLoadInstance(ctx, rt, step, rec, activity.Conversation.ID); err != nil {
			return err
		}
	}

	r.logger.Printf("user activity bot_id=%s type=%s name=%s channel_id=%s text=%q",
		rt.Instance.BotID, activity.Type, activity.Name, activity.ChannelID, activity.Text)

	switch activity.Type {
	case bot.ActivityConversationUpdate:
		return r.routeConversationUpdate(ctx, rt, step, activity)
	case bot.ActivityMessage:
		return r.routeMessage(ctx, rt, step, activity)
	case bot.ActivityEvent:
		return r.routeEvent(ctx, step, activity)
	default:
		return fmt.Errorf("unsupported activity type %q", activity.Type)
	}
}

// emitLoadInstance tells the conversational channel which instance it talks
// to, resets the turn state bookkeeping and persists it before anything else
// runs, so the event is emitted exactly once per conversation.
func (r *Router) emitLoadInstance(ctx context.Context, rt *runtime.Runtime, step *dialog.Step, rec *state.Record, conversationID string) error {
	theme := rt.Instance.Theme
	if strings.TrimSpace(theme) == "" {
		theme = defaultTheme
	}
	if err := step.SendEvent(ctx, "loadInstance", map[string]any{
		"instanceId": rt.Instance.InstanceID,
		"botId":      rt.Instance.BotID,
		"theme":      theme,
		"secret":     rt.Instance.WebchatKey,
	}); err != nil {
		return fmt.Errorf("emit loadInstance: %w", err)
	}

	rec.Loaded = true
	rec.Subjects = []string{}
	rec.PendingCallback = ""
	if err := rt.State.Set(ctx, conversationID, *rec); err != nil {
		return fmt.Errorf("stage loaded state: %w", err)
	}
	if err := rt.State.SaveChanges(ctx, conversationID); err != nil {
		return fmt.Errorf("persist loaded state: %w", err)
	}
	return nil
}

func (r *Router) routeConversationUpdate(ctx context.Context, rt *runtime.Runtime, step *dialog.Step, activity bot.Activity) error {
	if len(activity.MembersAdded) == 0 {
		r.logger.Printf("conversation update without members bot_id=%s", rt.Instance.BotID)
		return nil
	}

	member := activity.MembersAdded[0]
	if member.Name != rt.Instance.Title {
		r.logger.Printf("member added to conversation bot_id=%s member=%q", rt.Instance.BotID, member.Name)
		return nil
	}

	r.logger.Printf("bot added to conversation bot_id=%s", rt.Instance.BotID)
	for _, pkg := range rt.Packages {
		greeter, ok := pkg.(runtime.SessionGreeter)
		if !ok {
			continue
		}
		if err := greeter.OnNewSession(ctx, rt, step); err != nil {
			return fmt.Errorf("package %q onNewSession: %w", pkg.Name(), err)
		}
	}
	return nil
}

// routeMessage applies the first matching rule: script trigger, slash
// command, the admin keyword, a menu JSON payload, continuation of the
// active dialog, and finally the /answer fallback.
func (r *Router) routeMessage(ctx context.Context, rt *runtime.Runtime, step *dialog.Step, activity bot.Activity) error {
	text := activity.Text

	if name, ok := rt.Scripts.NameForTrigger(text); ok {
		sandbox, found := rt.Sandboxes.Get(name)
		if !found {
			return fmt.Errorf("script %q has no sandbox", name)
		}
		return sandbox.Invoke(ctx, step)
	}

	if strings.HasPrefix(text, "/") {
		return step.BeginDialog(ctx, text, nil)
	}

	if text == "admin" {
		return step.BeginDialog(ctx, "/admin", nil)
	}

	if strings.HasPrefix(text, menuJSONPrefix) {
		var payload map[string]any
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return fmt.Errorf("parse menu payload: %w", err)
		}
		return step.BeginDialog(ctx, "/menu", payload)
	}

	if step.ActiveDialog() != nil {
		return step.ContinueDialog(ctx)
	}

	return step.BeginDialog(ctx, "/answer", dialog.Args{"query": text})
}

func (r *Router) routeEvent(ctx context.Context, step *dialog.Step, activity bot.Activity) error {
	switch activity.Name {
	case "whoAmI":
		return step.BeginDialog(ctx, "/whoAmI", nil)
	case "showSubjects":
		return step.BeginDialog(ctx, "/menu", nil)
	case "giveFeedback":
		return step.BeginDialog(ctx, "/feedback", dialog.Args{"fromMenu": true})
	case "showFAQ":
		return step.BeginDialog(ctx, "/faq", nil)
	case "answerEvent":
		return step.BeginDialog(ctx, "/answerEvent", dialog.Args{"questionId": activity.Data, "fromFaq": true})
	case "quality":
		return step.BeginDialog(ctx, "/quality", dialog.Args{"score": activity.Data})
	case "updateToken":
		return step.BeginDialog(ctx, "/adminUpdateToken", dialog.Args{"token": activity.Data})
	default:
		return step.ContinueDialog(ctx)
	}
}

func (r *Router) recoverTurn(ctx context.Context, step *dialog.Step, turnErr error) {
	r.logger.Printf("turn error conversation_id=%s err=%v", step.Activity.Conversation.ID, turnErr)

	msgs := i18n.For(step.Activity.Locale)
	if err := step.SendActivity(ctx, msgs.VerySorryAboutError); err != nil {
		r.logger.Printf("apology send failed conversation_id=%s err=%v", step.Activity.Conversation.ID, err)
	}
	if err := step.BeginDialog(ctx, "/ask", dialog.Args{"isReturning": true}); err != nil {
		r.logger.Printf("fallback dialog failed conversation_id=%s err=%v", step.Activity.Conversation.ID, err)
	}
}
