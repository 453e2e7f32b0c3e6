// Package oauth implements the delegated-access flow for bot instances:
// authorization-code redirect, anti-CSRF state verification and the
// code-for-token exchange against the instance's authenticator.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thamiris-ramos/BotServer/internal/admin"
	"github.com/thamiris-ramos/BotServer/internal/ids"
	"github.com/thamiris-ramos/BotServer/internal/registry"
)

var ErrStateMismatch = errors.New("state field does not match stored anti-CSRF token")

const (
	KeyAntiCSRFState = "AntiCSRFAttackState"
	KeyAccessToken   = "accessToken"
	KeyRefreshToken  = "refreshToken"
	KeyExpiresOn     = "expiresOn"

	resourceGraph      = "https://graph.microsoft.com"
	stateByteLength    = 32
	defaultHTTPTimeout = 20 * time.Second
)

// ProviderError carries the authenticator's failure message back to the
// browser; nothing is persisted when it occurs.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("token exchange failed (status %d): %s", e.Status, e.Message)
}

type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	ExpiresOn    time.Time
}

// The authority returns numeric fields as either JSON numbers or quoted
// strings depending on endpoint version; json.Number accepts both.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    json.Number `json:"expires_in"`
	ExpiresOn    json.Number `json:"expires_on"`
}

type Broker struct {
	logger     *log.Logger
	store      admin.Store
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Broker)

func WithHTTPClient(client *http.Client) Option {
	return func(b *Broker) {
		if client != nil {
			b.httpClient = client
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBroker(logger *log.Logger, store admin.Store, opts ...Option) *Broker {
	b := &Broker{
		logger:     logger,
		store:      store,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// BeginAuthorization generates a fresh anti-CSRF state, persists it for the
// instance and returns the authorize redirect URL carrying it. The stored
// state is what the callback handler verifies against.
func (b *Broker) BeginAuthorization(ctx context.Context, instance registry.Instance) (string, error) {
	state, err := ids.RandomState(stateByteLength)
	if err != nil {
		return "", fmt.Errorf("generate anti-CSRF state: %w", err)
	}
	if err := b.store.SetValue(ctx, instance.InstanceID, KeyAntiCSRFState, state); err != nil {
		return "", fmt.Errorf("persist anti-CSRF state: %w", err)
	}

	authorizeURL, err := buildAuthorizeURL(instance, state)
	if err != nil {
		return "", err
	}
	b.logger.Printf("oauth begin bot_id=%s instance_id=%s", instance.BotID, instance.InstanceID)
	return authorizeURL, nil
}

// CompleteAuthorization verifies the callback state against the stored
// anti-CSRF token, exchanges the code for tokens, clears the state and then
// persists the token record. The three token keys are only ever written
// together after a successful exchange.
func (b *Broker) CompleteAuthorization(ctx context.Context, instance registry.Instance, queryState, queryCode string) (TokenRecord, error) {
	stored, err := b.store.GetValue(ctx, instance.InstanceID, KeyAntiCSRFState)
	if err != nil {
		if errors.Is(err, admin.ErrNotFound) {
			b.logger.Printf("oauth callback without stored state bot_id=%s", instance.BotID)
			return TokenRecord{}, ErrStateMismatch
		}
		return TokenRecord{}, fmt.Errorf("read anti-CSRF state: %w", err)
	}
	if stored == "" || queryState != stored {
		b.logger.Printf("oauth state mismatch bot_id=%s", instance.BotID)
		return TokenRecord{}, ErrStateMismatch
	}

	token, err := b.exchangeCode(ctx, instance, queryCode)
	if err != nil {
		var provErr *ProviderError
		if errors.As(err, &provErr) {
			b.logger.Printf("oauth provider error bot_id=%s status=%d", instance.BotID, provErr.Status)
		}
		return TokenRecord{}, err
	}

	// The state is single-use: consume it before any token is persisted.
	if err := b.store.DeleteValue(ctx, instance.InstanceID, KeyAntiCSRFState); err != nil {
		return TokenRecord{}, fmt.Errorf("clear anti-CSRF state: %w", err)
	}
	if err := b.store.SetValue(ctx, instance.InstanceID, KeyAccessToken, token.AccessToken); err != nil {
		return TokenRecord{}, fmt.Errorf("persist access token: %w", err)
	}
	if err := b.store.SetValue(ctx, instance.InstanceID, KeyRefreshToken, token.RefreshToken); err != nil {
		return TokenRecord{}, fmt.Errorf("persist refresh token: %w", err)
	}
	if err := b.store.SetValue(ctx, instance.InstanceID, KeyExpiresOn, token.ExpiresOn.Format(time.RFC3339)); err != nil {
		return TokenRecord{}, fmt.Errorf("persist token expiry: %w", err)
	}

	b.logger.Printf("oauth complete bot_id=%s instance_id=%s expires_on=%s", instance.BotID, instance.InstanceID, token.ExpiresOn.Format(time.RFC3339))
	return token, nil
}

func (b *Broker) exchangeCode(ctx context.Context, instance registry.Instance, code string) (TokenRecord, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", instance.AuthenticatorClientID)
	form.Set("client_secret", instance.AuthenticatorClientSecret)
	form.Set("code", strings.TrimSpace(code))
	form.Set("redirect_uri", RedirectURI(instance))
	form.Set("resource", resourceGraph)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint(instance), strings.NewReader(form.Encode()))
	if err != nil {
		return TokenRecord{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return TokenRecord{}, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return TokenRecord{}, &ProviderError{Status: resp.StatusCode, Message: msg}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return TokenRecord{}, fmt.Errorf("decode token response: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return TokenRecord{}, &ProviderError{Status: resp.StatusCode, Message: "token response missing access_token"}
	}
	if strings.TrimSpace(token.RefreshToken) == "" {
		return TokenRecord{}, &ProviderError{Status: resp.StatusCode, Message: "token response missing refresh_token"}
	}

	expiresOnUnix := numberValue(token.ExpiresOn)
	expiresIn := numberValue(token.ExpiresIn)
	var expiresOn time.Time
	switch {
	case expiresOnUnix > 0:
		expiresOn = time.Unix(expiresOnUnix, 0).UTC()
	case expiresIn > 0:
		expiresOn = b.now().UTC().Add(time.Duration(expiresIn) * time.Second)
	default:
		return TokenRecord{}, &ProviderError{Status: resp.StatusCode, Message: "token response missing expiry"}
	}

	return TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresOn:    expiresOn,
	}, nil
}

func numberValue(n json.Number) int64 {
	if strings.TrimSpace(n.String()) == "" {
		return 0
	}
	v, err := n.Int64()
	if err != nil {
		return 0
	}
	return v
}

func buildAuthorizeURL(instance registry.Instance, state string) (string, error) {
	parsed, err := url.Parse(joinURL(instance.AuthenticatorAuthorityHostURL, instance.AuthenticatorTenant, "oauth2", "authorize"))
	if err != nil {
		return "", fmt.Errorf("parse authorize url: %w", err)
	}
	q := parsed.Query()
	q.Set("response_type", "code")
	q.Set("client_id", instance.AuthenticatorClientID)
	q.Set("redirect_uri", RedirectURI(instance))
	q.Set("state", state)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func tokenEndpoint(instance registry.Instance) string {
	return joinURL(instance.AuthenticatorAuthorityHostURL, instance.AuthenticatorTenant, "oauth2", "token")
}

// RedirectURI is the per-instance OAuth callback: {botEndpoint}/{botId}/token.
func RedirectURI(instance registry.Instance) string {
	return joinURL(instance.BotEndpoint, instance.BotID, "token")
}

func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(strings.TrimSpace(base), "/")
	for _, part := range parts {
		part = strings.Trim(strings.TrimSpace(part), "/")
		if part == "" {
			continue
		}
		out += "/" + part
	}
	return out
}
