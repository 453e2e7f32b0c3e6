package bot

import "testing"

func TestValidate(t *testing.T) {
	cases := []struct {
		name     string
		activity Activity
		wantErr  bool
	}{
		{
			name:     "message ok",
			activity: Activity{Type: ActivityMessage, Text: "hi", Conversation: ConversationAccount{ID: "c"}},
		},
		{
			name:     "event ok",
			activity: Activity{Type: ActivityEvent, Name: "quality", Conversation: ConversationAccount{ID: "c"}},
		},
		{
			name:     "conversation update ok",
			activity: Activity{Type: ActivityConversationUpdate, Conversation: ConversationAccount{ID: "c"}},
		},
		{
			name:     "missing type",
			activity: Activity{Conversation: ConversationAccount{ID: "c"}},
			wantErr:  true,
		},
		{
			name:     "unsupported type",
			activity: Activity{Type: "typing", Conversation: ConversationAccount{ID: "c"}},
			wantErr:  true,
		},
		{
			name:     "missing conversation",
			activity: Activity{Type: ActivityMessage, Text: "hi"},
			wantErr:  true,
		},
		{
			name:     "event without name",
			activity: Activity{Type: ActivityEvent, Conversation: ConversationAccount{ID: "c"}},
			wantErr:  true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.activity)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
