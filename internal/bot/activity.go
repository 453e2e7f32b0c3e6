package bot

import (
	"errors"
	"fmt"
	"strings"
)

type ActivityType string

const (
	ActivityMessage            ActivityType = "message"
	ActivityEvent              ActivityType = "event"
	ActivityConversationUpdate ActivityType = "conversationUpdate"
)

type Member struct {
	Name string `json:"name"`
}

type ConversationAccount struct {
	ID string `json:"id"`
}

// Activity is one inbound or outbound conversational event. Inbound
// activities arrive on the per-bot webhook; outbound ones are written to the
// conversation channel.
type Activity struct {
	Type         ActivityType        `json:"type"`
	Text         string              `json:"text,omitempty"`
	Name         string              `json:"name,omitempty"`
	Data         any                 `json:"data,omitempty"`
	Value        any                 `json:"value,omitempty"`
	ChannelID    string              `json:"channelId,omitempty"`
	Locale       string              `json:"locale,omitempty"`
	Conversation ConversationAccount `json:"conversation"`
	MembersAdded []Member            `json:"membersAdded,omitempty"`
}

func Validate(a Activity) error {
	switch a.Type {
	case ActivityMessage, ActivityEvent, ActivityConversationUpdate:
	case "":
		return errors.New("type is required")
	default:
		return fmt.Errorf("unsupported type %q", a.Type)
	}
	if strings.TrimSpace(a.Conversation.ID) == "" {
		return errors.New("conversation.id is required")
	}
	if a.Type == ActivityEvent && strings.TrimSpace(a.Name) == "" {
		return errors.New("name is required for event activities")
	}
	return nil
}
