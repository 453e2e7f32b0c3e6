package directline

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebchatTokenSuccess(t *testing.T) {
	var gotAuth string
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"scoped-token","conversationId":"conv-99"}`))
	}))
	defer tokens.Close()

	c := New(log.New(io.Discard, "", 0), tokens.URL, tokens.URL)
	session, err := c.WebchatToken(context.Background(), "webchat-key")
	if err != nil {
		t.Fatalf("webchat token failed: %v", err)
	}
	if gotAuth != "Bearer webchat-key" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
	if session.Token != "scoped-token" || session.ConversationID != "conv-99" {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestWebchatTokenGeneratesMissingConversationID(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"scoped-token"}`))
	}))
	defer tokens.Close()

	c := New(log.New(io.Discard, "", 0), tokens.URL, tokens.URL)
	session, err := c.WebchatToken(context.Background(), "webchat-key")
	if err != nil {
		t.Fatalf("webchat token failed: %v", err)
	}
	if strings.TrimSpace(session.ConversationID) == "" {
		t.Fatalf("expected generated conversation id")
	}
}

func TestWebchatTokenUpstreamError(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer tokens.Close()

	c := New(log.New(io.Discard, "", 0), tokens.URL, tokens.URL)
	if _, err := c.WebchatToken(context.Background(), "webchat-key"); err == nil {
		t.Fatalf("expected upstream error")
	}
}

func TestWebchatTokenRequiresKey(t *testing.T) {
	c := New(log.New(io.Discard, "", 0), "http://unused", "http://unused")
	if _, err := c.WebchatToken(context.Background(), " "); err == nil {
		t.Fatalf("expected missing key to fail")
	}
}

func TestSpeechTokenSuccess(t *testing.T) {
	var gotKey string
	sts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		_, _ = w.Write([]byte("speech-bearer\n"))
	}))
	defer sts.Close()

	c := New(log.New(io.Discard, "", 0), sts.URL, sts.URL)
	token, err := c.SpeechToken(context.Background(), "speech-key")
	if err != nil {
		t.Fatalf("speech token failed: %v", err)
	}
	if gotKey != "speech-key" {
		t.Fatalf("unexpected subscription key header: %q", gotKey)
	}
	if token != "speech-bearer" {
		t.Fatalf("unexpected token: %q", token)
	}
}

func TestSpeechTokenEmptyBody(t *testing.T) {
	sts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer sts.Close()

	c := New(log.New(io.Discard, "", 0), sts.URL, sts.URL)
	if _, err := c.SpeechToken(context.Background(), "speech-key"); err == nil {
		t.Fatalf("expected empty token body to fail")
	}
}
