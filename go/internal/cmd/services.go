package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/padelhub/gamenight/go/internal/api"
	"github.com/padelhub/gamenight/go/internal/auth"
	"github.com/padelhub/gamenight/go/internal/config"
	"github.com/padelhub/gamenight/go/internal/draw"
	"github.com/padelhub/gamenight/go/internal/gateway"
	"github.com/padelhub/gamenight/go/internal/leaderboard"
	"github.com/padelhub/gamenight/go/internal/lifecycle"
	"github.com/padelhub/gamenight/go/internal/notify"
	"github.com/padelhub/gamenight/go/internal/scheduler"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/padelhub/gamenight/go/internal/waitlist"
	"github.com/rs/zerolog/log"
)

type Services struct {
	API        *api.Service
	Resolver   auth.Resolver
	Hub        *gateway.Hub
	Gateway    *gateway.Handler
	Dispatcher *notify.Dispatcher
	Scheduler  *scheduler.Scheduler

	jetstream *notify.JetStreamPublisher
}

// Close releases the connections Run does not own.
func (s *Services) Close() {
	if s.jetstream != nil {
		if err := s.jetstream.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close JetStream connection")
		}
	}
}

func setupServices(ctx context.Context, cfg *config.Config, st store.Store, clock clockwork.Clock) (*Services, error) {
	// Wire up dependency injection chain
	// Store → App layer → Service layer

	resolver, err := setupResolver(cfg.Auth, clock)
	if err != nil {
		return nil, err
	}

	// Notifications fan out to the log, websocket watchers and optionally JetStream
	hub := gateway.NewHub(cfg.Gateway)
	publishers := []notify.Publisher{notify.LogPublisher{}, hub}
	var js *notify.JetStreamPublisher
	if cfg.Notify.JetStreamEnabled {
		js, err = notify.NewJetStreamPublisher(ctx, cfg.Notify.JetStream)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to JetStream: %w", err)
		}
		publishers = append(publishers, js)
	}
	dispatcher := notify.NewDispatcher(cfg.Notify.Dispatcher, publishers...)

	policy := cfg.Storage.Policy

	// Leaderboard
	engine := leaderboard.NewEngine(st, policy, clock, cfg.Leaderboard.EngineConfig())

	// Lifecycle
	lifecycleApp := lifecycle.NewApp(st, policy, clock, dispatcher, engine)

	// Waitlist
	waitlistApp := waitlist.NewApp(st, policy, clock, dispatcher)

	// Draw
	drawApp, err := draw.NewApp(st, policy, clock, dispatcher, lifecycleApp, cfg.Draw)
	if err != nil {
		return nil, fmt.Errorf("failed to create draw app: %w", err)
	}

	// Scheduler follows every committed lifecycle change
	sched := scheduler.New(st, lifecycleApp, clock, cfg.Scheduler)
	lifecycleApp.Observe(sched)

	return &Services{
		API:        api.NewService(lifecycleApp, waitlistApp, drawApp, engine),
		Resolver:   resolver,
		Hub:        hub,
		Gateway:    gateway.NewHandler(hub, lifecycleApp, resolver),
		Dispatcher: dispatcher,
		Scheduler:  sched,
		jetstream:  js,
	}, nil
}

func setupResolver(cfg config.AuthConfig, clock clockwork.Clock) (auth.Resolver, error) {
	if cfg.Mode == config.AuthHeader {
		return auth.HeaderResolver{}, nil
	}
	resolver, err := auth.NewJWTResolver(cfg.JWT, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT resolver: %w", err)
	}
	return resolver, nil
}
