package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	ballotservice "ballotbox/contexts/election/ballot-service"
	ballotpostgres "ballotbox/contexts/election/ballot-service/adapters/postgres"
	accessguard "ballotbox/contexts/identity-access/access-guard"
	accesspostgres "ballotbox/contexts/identity-access/access-guard/adapters/postgres"
	"ballotbox/contexts/identity-access/access-guard/adapters/sender"
	"ballotbox/internal/platform/config"
	"ballotbox/internal/platform/db"
	"ballotbox/internal/platform/httpserver"
	"ballotbox/internal/platform/messaging"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	ballot       ballotservice.Module
	access       accessguard.Module
	pollInterval time.Duration
	logger       *slog.Logger
}

type modules struct {
	ballot ballotservice.Module
	access accessguard.Module
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	pg, mods, err := buildModules(cfg, nil, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(mods.ballot, mods.access, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	pg, mods, err := buildModules(cfg, kafka, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		postgres:     pg,
		ballot:       mods.ballot,
		access:       mods.access,
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}, nil
}

// buildModules connects postgres, optionally migrates, and refuses to start
// when the store cannot run the redemption transaction.
func buildModules(cfg config.Config, kafka *messaging.Kafka, logger *slog.Logger) (*db.Postgres, modules, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, modules{}, errors.New("POSTGRES_DSN is required")
	}
	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, modules{}, err
	}

	ballotRepo := ballotpostgres.NewRepository(pg.DB, logger)
	accessRepo := accesspostgres.NewRepository(pg.DB, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Prepare(ctx, cfg.AutoMigrate,
		[]db.Migrator{ballotRepo, accessRepo},
		[]db.TransactionVerifier{ballotRepo},
	); err != nil {
		_ = pg.Close()
		return nil, modules{}, err
	}

	deps := ballotservice.Dependencies{
		Elections:           ballotRepo,
		Voters:              ballotRepo,
		Tokens:              ballotRepo,
		Ballots:             ballotRepo,
		Outbox:              ballotRepo,
		Turnout:             ballotRepo,
		Clock:               ballotpostgres.SystemClock{},
		IDGen:               ballotpostgres.UUIDGenerator{},
		Secrets:             ballotpostgres.RandomSecrets{},
		TokenTTL:            cfg.VotingTokenTTL,
		RequireRegistration: !cfg.AllowUnregisteredElections,
		SweepBatchSize:      cfg.SweepBatchSize,
		Logger:              logger,
	}
	if kafka != nil {
		deps.Publisher = kafka
		deps.Subscriber = kafka
	}
	ballot := ballotservice.NewModule(deps)

	access := accessguard.NewModule(accessguard.Dependencies{
		Attempts: accessRepo,
		Codes:    accessRepo,
		Sender:   sender.LogSender{Logger: logger},
		Clock:    ballotpostgres.SystemClock{},
		Policy: accessguard.Policy{
			LoginWindow:            cfg.LoginWindow,
			LoginMaxAttempts:       cfg.LoginMaxAttempts,
			CodeRequestWindow:      cfg.CodeRequestWindow,
			CodeRequestMaxAttempts: cfg.CodeRequestMaxAttempts,
			CodeTTL:                cfg.CodeTTL,
			CodeVerifyMaxAttempts:  cfg.CodeVerifyMaxAttempts,
		},
		SweepBatchSize: cfg.SweepBatchSize,
		Logger:         logger,
	})
	return pg, modules{ballot: ballot, access: access}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Run(ctx)
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run subscribes the turnout projector, then drives every periodic job on its
// own loop. Bus delivery failures leave outbox rows pending for the next
// tick; any other job error stops all loops.
func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	group, ctx := errgroup.WithContext(ctx)
	if err := w.ballot.TurnoutProjector.Start(ctx); err != nil {
		return err
	}
	group.Go(func() error {
		return runEvery(ctx, w.pollInterval, func(ctx context.Context) error {
			err := w.ballot.OutboxRelay.RunOnce(ctx)
			if errors.Is(err, messaging.ErrNoSubscribers) || errors.Is(err, messaging.ErrDeliveryIncomplete) {
				return nil
			}
			return err
		})
	})
	group.Go(func() error {
		return runEvery(ctx, w.pollInterval, func(ctx context.Context) error {
			_, err := w.ballot.TokenSweeper.RunOnce(ctx)
			return err
		})
	})
	group.Go(func() error {
		return runEvery(ctx, w.pollInterval, func(ctx context.Context) error {
			_, err := w.access.Sweeper.RunOnce(ctx)
			return err
		})
	})
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func runEvery(ctx context.Context, interval time.Duration, job func(context.Context) error) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := job(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
