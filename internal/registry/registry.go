package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInstanceNotFound = errors.New("instance not found")

// DefaultBotMarker is accepted wherever a botId path parameter appears and
// resolves to the configured default bot.
const DefaultBotMarker = "[default]"

// Instance is one configured bot deployment. Records are immutable after
// registration; one record per deployed bot.
type Instance struct {
	InstanceID                    string
	BotID                         string
	Title                         string
	WebchatKey                    string
	MarketplaceID                 string
	MarketplacePassword           string
	AuthenticatorAuthorityHostURL string
	AuthenticatorTenant           string
	AuthenticatorClientID         string
	AuthenticatorClientSecret     string
	BotEndpoint                   string
	SpeechKey                     string
	Theme                         string
}

type Registry interface {
	LoadInstance(ctx context.Context, botID string) (Instance, error)
	All(ctx context.Context) ([]Instance, error)
	Register(ctx context.Context, instance Instance) error
	Close() error
}

func validateInstance(instance Instance) error {
	if strings.TrimSpace(instance.BotID) == "" {
		return errors.New("bot id is required")
	}
	if instance.BotID == DefaultBotMarker {
		return fmt.Errorf("bot id %q is reserved", DefaultBotMarker)
	}
	if strings.TrimSpace(instance.InstanceID) == "" {
		return fmt.Errorf("instance %q: instance id is required", instance.BotID)
	}
	if strings.TrimSpace(instance.Title) == "" {
		return fmt.Errorf("instance %q: title is required", instance.BotID)
	}
	return nil
}

// ResolveBotID maps the default marker (or an empty id) to the configured
// default bot id. An empty result means no default is configured.
func ResolveBotID(botID, defaultBotID string) string {
	botID = strings.TrimSpace(botID)
	if botID == "" || botID == DefaultBotMarker {
		return strings.TrimSpace(defaultBotID)
	}
	return botID
}
