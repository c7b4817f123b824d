package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-admin-auth/internal/config"
	"github.com/jrsteele09/go-admin-auth/resourceapi"
	"github.com/jrsteele09/go-admin-auth/session"
	"github.com/jrsteele09/go-admin-auth/token/store"
)

// app is the wiring shared by every command.
type app struct {
	cfg        config.Config
	tokens     *store.Store
	client     *resourceapi.Client
	controller *session.Controller
	closers    []func()
}

func newApp(ctx context.Context, cfg config.Config, navigator session.Navigator) (*app, error) {
	backend, closeBackend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens := store.New(backend)
	client := resourceapi.NewClient(cfg, tokens.TokenSource(ctx))
	a := &app{
		cfg:        cfg,
		tokens:     tokens,
		client:     client,
		controller: session.New(client, tokens, cfg, session.WithNavigator(navigator)),
		closers:    []func(){closeBackend},
	}
	return a, nil
}

// Close waits for background work to finish, then releases the token backend.
func (a *app) Close() {
	a.controller.Close()
	for _, c := range a.closers {
		c()
	}
}

func newBackend(ctx context.Context, cfg config.StorageConfig) (store.Backend, func(), error) {
	switch cfg.GetStorageBackend() {
	case config.StorageRedis:
		client, err := config.NewRedisClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("token store: %w", err)
		}
		return store.NewRedisBackend(client, cfg.GetRedisKeyPrefix()), func() { _ = client.Close() }, nil
	case config.StorageMemory:
		return store.NewMemoryBackend(), func() {}, nil
	default:
		return store.NewFileBackend(cfg.GetStoragePath(), cfg.GetStorageSecret()), func() {}, nil
	}
}

// cliNavigator stands in for the hard redirect after logout.
var cliNavigator = session.NavigatorFunc(func(path string) {
	info("Session ended. Run \"adminctl login\" to sign in again.")
})
