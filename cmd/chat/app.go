package main

import (
	"context"
	"fmt"

	"ai-chatbot-client/internal/config"
	"ai-chatbot-client/internal/conversation"
	"ai-chatbot-client/internal/gateway"
	"ai-chatbot-client/internal/identity"
	"ai-chatbot-client/internal/pkg/logger"
	"ai-chatbot-client/pkg/events"
)

// app holds everything one invocation of the client needs.
type app struct {
	cfg     *config.Config
	log     logger.ILogger
	bus     *events.Bus
	store   identity.Store
	manager *conversation.Manager
}

func newApp(ctx context.Context, opts globalOptions) (*app, error) {
	cfg := config.Load()
	if opts.relayURL != "" {
		cfg.Client.RelayURL = opts.relayURL
	}
	if opts.identityStore != "" {
		cfg.Client.IdentityStore = opts.identityStore
	}

	// file only: the terminal belongs to the conversation
	log := logger.NewIsolatedLogger(cfg.Client.LogFilePath)

	store, err := identity.NewStore(ctx, identity.Options{
		Backend:  cfg.Client.IdentityStore,
		FilePath: cfg.Client.IdentityFile,
		RedisURL: cfg.App.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("identity store: %w", err)
	}

	bus := events.NewBus()
	gw := gateway.NewHTTPClient(cfg.Client.RelayURL, cfg.Client.RequestTimeout, log)

	log.Info("App", "Client started", map[string]interface{}{
		"relay_url":      cfg.Client.RelayURL,
		"identity_store": cfg.Client.IdentityStore,
	})

	return &app{
		cfg:     cfg,
		log:     log,
		bus:     bus,
		store:   store,
		manager: conversation.NewManager(gw, store, bus, log),
	}, nil
}

func (a *app) Close() {
	_ = a.bus.Close()
	if closer, ok := a.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	_ = a.log.Sync()
}

// requireUser resumes the saved session for one-shot commands.
func (a *app) requireUser(ctx context.Context) error {
	user, err := a.manager.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return usageError("not signed in; run `chat login <name>` first")
	}
	return nil
}
