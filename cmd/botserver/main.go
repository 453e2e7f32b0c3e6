package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thamiris-ramos/BotServer/internal/admin"
	"github.com/thamiris-ramos/BotServer/internal/channel"
	"github.com/thamiris-ramos/BotServer/internal/config"
	"github.com/thamiris-ramos/BotServer/internal/directline"
	"github.com/thamiris-ramos/BotServer/internal/httpapi"
	"github.com/thamiris-ramos/BotServer/internal/oauth"
	"github.com/thamiris-ramos/BotServer/internal/packages/adminpkg"
	"github.com/thamiris-ramos/BotServer/internal/packages/analytics"
	"github.com/thamiris-ramos/BotServer/internal/packages/core"
	"github.com/thamiris-ramos/BotServer/internal/packages/csat"
	"github.com/thamiris-ramos/BotServer/internal/packages/kb"
	"github.com/thamiris-ramos/BotServer/internal/packages/security"
	"github.com/thamiris-ramos/BotServer/internal/registry"
	"github.com/thamiris-ramos/BotServer/internal/runtime"
	"github.com/thamiris-ramos/BotServer/internal/service"
	"github.com/thamiris-ramos/BotServer/internal/state"
)

func main() {
	logger := log.New(os.Stdout, "botserver ", log.Ldate|log.Ltime|log.Lmicroseconds|log.LUTC)
	cfg, err := config.FromYAMLAndEnv()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	instances, err := registry.NewGormRegistry(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatalf("failed to initialize instance registry: %v", err)
	}
	defer func() {
		if err := instances.Close(); err != nil {
			logger.Printf("instance registry close error: %v", err)
		}
	}()

	adminStore, err := admin.NewGormStore(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatalf("failed to initialize admin store: %v", err)
	}
	defer func() {
		if err := adminStore.Close(); err != nil {
			logger.Printf("admin store close error: %v", err)
		}
	}()

	stateStore, err := state.NewGormStore(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatalf("failed to initialize state store: %v", err)
	}
	defer func() {
		if err := stateStore.Close(); err != nil {
			logger.Printf("state store close error: %v", err)
		}
	}()

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer seedCancel()
	for _, inst := range cfg.Instances {
		if err := instances.Register(seedCtx, toInstance(inst)); err != nil {
			logger.Fatalf("failed to register instance %q: %v", inst.BotID, err)
		}
	}

	mounted, err := instances.All(seedCtx)
	if err != nil {
		logger.Fatalf("failed to list instances: %v", err)
	}
	if len(mounted) == 0 {
		logger.Fatalf("no instances configured")
	}

	defaultBotID := cfg.DefaultBotID
	if defaultBotID == "" {
		defaultBotID = mounted[0].BotID
		logger.Printf("no default bot configured, using bot_id=%s", defaultBotID)
	}

	upstreamClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	broker := oauth.NewBroker(logger, adminStore, oauth.WithHTTPClient(upstreamClient))
	dl := directline.New(logger, cfg.WebchatTokenURL, cfg.SpeechTokenURL, directline.WithHTTPClient(upstreamClient))
	hub := channel.NewHub(logger)

	system := []runtime.Package{
		core.New(),
		security.New(),
		adminpkg.New(adminStore),
		kb.New(),
		analytics.New(),
		csat.New(),
	}
	builder := runtime.NewBuilder(logger, stateStore, hub, system, nil)

	svc := service.New(logger, defaultBotID, cfg.DefaultLocale)
	for _, instance := range mounted {
		rt, err := builder.Build(seedCtx, instance)
		if err != nil {
			logger.Fatalf("failed to build runtime for bot %q: %v", instance.BotID, err)
		}
		if err := svc.AddRuntime(rt); err != nil {
			logger.Fatalf("failed to mount bot %q: %v", instance.BotID, err)
		}
		logger.Printf("bot mounted bot_id=%s instance_id=%s title=%q", instance.BotID, instance.InstanceID, instance.Title)
	}

	srv := httpapi.NewServer(logger, cfg.HTTPAddr, svc, instances, broker, dl, hub)
	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server crashed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("server shutdown error: %v", err)
	}
	svc.Close()
}

func toInstance(cfg config.InstanceConfig) registry.Instance {
	return registry.Instance{
		InstanceID:                    cfg.InstanceID,
		BotID:                         cfg.BotID,
		Title:                         cfg.Title,
		WebchatKey:                    cfg.WebchatKey,
		MarketplaceID:                 cfg.MarketplaceID,
		MarketplacePassword:           cfg.MarketplacePassword,
		AuthenticatorAuthorityHostURL: cfg.AuthenticatorAuthorityHostURL,
		AuthenticatorTenant:           cfg.AuthenticatorTenant,
		AuthenticatorClientID:         cfg.AuthenticatorClientID,
		AuthenticatorClientSecret:     cfg.AuthenticatorClientSecret,
		BotEndpoint:                   cfg.BotEndpoint,
		SpeechKey:                     cfg.SpeechKey,
		Theme:                         cfg.Theme,
	}
}
