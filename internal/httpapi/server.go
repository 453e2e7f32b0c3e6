// Package httpapi exposes the control plane's HTTP surface: the health
// probe, the per-bot instance descriptor, the activity webhook with its
// websocket channel, and the per-bot OAuth endpoints.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thamiris-ramos/BotServer/internal/bot"
	"github.com/thamiris-ramos/BotServer/internal/channel"
	"github.com/thamiris-ramos/BotServer/internal/directline"
	"github.com/thamiris-ramos/BotServer/internal/oauth"
	"github.com/thamiris-ramos/BotServer/internal/registry"
	"github.com/thamiris-ramos/BotServer/internal/scheduler"
	"github.com/thamiris-ramos/BotServer/internal/service"
)

const maxActivityBytes int64 = 1 << 20

type server struct {
	logger     *log.Logger
	service    *service.Service
	instances  registry.Registry
	broker     *oauth.Broker
	directline *directline.Client
	hub        *channel.Hub
}

func NewServer(logger *log.Logger, addr string, svc *service.Service, instances registry.Registry, broker *oauth.Broker, dl *directline.Client, hub *channel.Hub) *http.Server {
	h := &server{
		logger:     logger,
		service:    svc,
		instances:  instances,
		broker:     broker,
		directline: dl,
		hub:        hub,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /instances/{botId}", h.handleInstance)
	mux.HandleFunc("POST /api/messages/{botId}", h.handleMessages)
	mux.HandleFunc("GET /api/messages/{botId}/ws", h.handleMessagesWS)
	mux.HandleFunc("GET /{botId}/auth", h.handleAuth)
	mux.HandleFunc("GET /{botId}/token", h.handleToken)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// instanceDescriptor is what a webchat client needs to bootstrap against one
// bot instance. The secret is a scoped conversation token, never the
// instance's webchat key.
type instanceDescriptor struct {
	InstanceID            string `json:"instanceId"`
	BotID                 string `json:"botId"`
	Theme                 string `json:"theme"`
	Secret                string `json:"secret"`
	SpeechToken           string `json:"speechToken,omitempty"`
	ConversationID        string `json:"conversationId"`
	AuthenticatorTenant   string `json:"authenticatorTenant"`
	AuthenticatorClientID string `json:"authenticatorClientId"`
}

func (s *server) handleInstance(w http.ResponseWriter, r *http.Request) {
	instance, ok := s.loadInstance(w, r)
	if !ok {
		return
	}

	session, err := s.directline.WebchatToken(r.Context(), instance.WebchatKey)
	if err != nil {
		s.logger.Printf("webchat token failed bot_id=%s err=%v", instance.BotID, err)
		http.Error(w, "webchat token unavailable", http.StatusBadGateway)
		return
	}

	speechToken := ""
	if strings.TrimSpace(instance.SpeechKey) != "" {
		speechToken, err = s.directline.SpeechToken(r.Context(), instance.SpeechKey)
		if err != nil {
			s.logger.Printf("speech token failed bot_id=%s err=%v", instance.BotID, err)
			http.Error(w, "speech token unavailable", http.StatusBadGateway)
			return
		}
	}

	theme := instance.Theme
	if strings.TrimSpace(theme) == "" {
		theme = "default.gbtheme"
	}
	writeJSON(w, http.StatusOK, instanceDescriptor{
		InstanceID:            instance.InstanceID,
		BotID:                 instance.BotID,
		Theme:                 theme,
		Secret:                session.Token,
		SpeechToken:           speechToken,
		ConversationID:        session.ConversationID,
		AuthenticatorTenant:   instance.AuthenticatorTenant,
		AuthenticatorClientID: instance.AuthenticatorClientID,
	})
}

func (s *server) handleMessages(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var activity bot.Activity
	dec := json.NewDecoder(io.LimitReader(r.Body, maxActivityBytes))
	if err := dec.Decode(&activity); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if err := bot.Validate(activity); err != nil {
		http.Error(w, fmt.Sprintf("invalid activity: %v", err), http.StatusBadRequest)
		return
	}

	if err := s.service.Accept(r.Context(), r.PathValue("botId"), activity); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownBot):
			http.Error(w, "unknown bot", http.StatusNotFound)
		case errors.Is(err, scheduler.ErrQueueFull):
			http.Error(w, "conversation queue full", http.StatusTooManyRequests)
		default:
			http.Error(w, "failed to accept activity", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (s *server) handleMessagesWS(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.RuntimeFor(r.PathValue("botId")); err != nil {
		http.Error(w, "unknown bot", http.StatusNotFound)
		return
	}
	conversationID := strings.TrimSpace(r.URL.Query().Get("conversationId"))
	if conversationID == "" {
		http.Error(w, "conversationId is required", http.StatusBadRequest)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: isWebSocketOriginAllowed}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("messages ws upgrade failed conversation_id=%s err=%v", conversationID, err)
		return
	}
	defer conn.Close()

	if err := s.hub.Attach(conversationID, conn); err != nil {
		s.logger.Printf("messages ws attach failed conversation_id=%s err=%v", conversationID, err)
		return
	}
	defer s.hub.Detach(conversationID)

	// Outbound-only channel: read until the client goes away.
	conn.SetReadLimit(maxActivityBytes)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *server) handleAuth(w http.ResponseWriter, r *http.Request) {
	instance, ok := s.loadInstance(w, r)
	if !ok {
		return
	}

	authorizeURL, err := s.broker.BeginAuthorization(r.Context(), instance)
	if err != nil {
		s.logger.Printf("oauth begin failed bot_id=%s err=%v", instance.BotID, err)
		http.Error(w, "authorization unavailable", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

func (s *server) handleToken(w http.ResponseWriter, r *http.Request) {
	instance, ok := s.loadInstance(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	if _, err := s.broker.CompleteAuthorization(r.Context(), instance, query.Get("state"), query.Get("code")); err != nil {
		var provErr *oauth.ProviderError
		switch {
		case errors.Is(err, oauth.ErrStateMismatch):
			http.Error(w, "state mismatch", http.StatusForbidden)
		case errors.As(err, &provErr):
			http.Error(w, provErr.Message, http.StatusBadGateway)
		default:
			s.logger.Printf("oauth complete failed bot_id=%s err=%v", instance.BotID, err)
			http.Error(w, "authorization failed", http.StatusInternalServerError)
		}
		return
	}
	http.Redirect(w, r, instance.BotEndpoint, http.StatusFound)
}

func (s *server) loadInstance(w http.ResponseWriter, r *http.Request) (registry.Instance, bool) {
	botID := registry.ResolveBotID(r.PathValue("botId"), s.service.DefaultBotID())
	instance, err := s.instances.LoadInstance(r.Context(), botID)
	if err != nil {
		if errors.Is(err, registry.ErrInstanceNotFound) {
			s.logger.Printf("instance not found bot_id=%s", botID)
			http.Error(w, "instance not found", http.StatusNotFound)
			return registry.Instance{}, false
		}
		s.logger.Printf("instance load failed bot_id=%s err=%v", botID, err)
		http.Error(w, "instance load failed", http.StatusInternalServerError)
		return registry.Instance{}, false
	}
	return instance, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func isWebSocketOriginAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	parsedOrigin, err := url.Parse(origin)
	if err != nil || strings.TrimSpace(parsedOrigin.Host) == "" {
		return false
	}
	return strings.EqualFold(parsedOrigin.Host, r.Host)
}
