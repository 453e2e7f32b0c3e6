// Package directline issues the two short-lived credentials webchat clients
// need before they connect: a scoped conversation token from the Direct Line
// token service and a speech token from the cognitive STS endpoint.
package directline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultRequestTimeout = 10 * time.Second

// WebchatSession is what a webchat client needs to open its conversation.
type WebchatSession struct {
	Token          string `json:"token"`
	ConversationID string `json:"conversationId"`
}

type Client struct {
	logger          *log.Logger
	webchatTokenURL string
	speechTokenURL  string
	httpClient      *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func New(logger *log.Logger, webchatTokenURL, speechTokenURL string, opts ...Option) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Client{
		logger:          logger,
		webchatTokenURL: strings.TrimSuffix(strings.TrimSpace(webchatTokenURL), "/"),
		speechTokenURL:  strings.TrimSuffix(strings.TrimSpace(speechTokenURL), "/"),
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// WebchatToken exchanges the instance's webchat key for a scoped conversation
// token. Some token services omit the conversation id; a fresh one is
// generated so callers always get a usable session.
func (c *Client) WebchatToken(ctx context.Context, webchatKey string) (WebchatSession, error) {
	if strings.TrimSpace(webchatKey) == "" {
		return WebchatSession{}, fmt.Errorf("webchat key is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webchatTokenURL, nil)
	if err != nil {
		return WebchatSession{}, fmt.Errorf("build webchat token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+webchatKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return WebchatSession{}, fmt.Errorf("request webchat token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return WebchatSession{}, fmt.Errorf("webchat token service status %d: %s", resp.StatusCode, message)
	}

	var session WebchatSession
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&session); err != nil {
		return WebchatSession{}, fmt.Errorf("decode webchat token response: %w", err)
	}
	if strings.TrimSpace(session.Token) == "" {
		return WebchatSession{}, fmt.Errorf("webchat token response missing token")
	}
	if strings.TrimSpace(session.ConversationID) == "" {
		session.ConversationID = uuid.NewString()
		c.logger.Printf("webchat token response missing conversation id, generated conversation_id=%s", session.ConversationID)
	}
	return session, nil
}

// SpeechToken exchanges the instance's speech key for a bearer token. The STS
// endpoint returns the token as a bare string body.
func (c *Client) SpeechToken(ctx context.Context, speechKey string) (string, error) {
	if strings.TrimSpace(speechKey) == "" {
		return "", fmt.Errorf("speech key is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.speechTokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("build speech token request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", speechKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request speech token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("speech token service status %d: %s", resp.StatusCode, message)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read speech token response: %w", err)
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("speech token response is empty")
	}
	return token, nil
}
