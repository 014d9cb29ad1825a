package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/subsync/pkg/audit"
	"github.com/dmitrymomot/subsync/pkg/config"
	"github.com/dmitrymomot/subsync/pkg/httpserver"
	"github.com/dmitrymomot/subsync/pkg/logger"
	"github.com/dmitrymomot/subsync/pkg/notification"
	"github.com/dmitrymomot/subsync/pkg/pg"
	"github.com/dmitrymomot/subsync/pkg/redis"
	"github.com/dmitrymomot/subsync/pkg/subscription"
)

// appConfig holds service-level settings that do not belong to any single
// component.
type appConfig struct {
	LogLevel           slog.Level    `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          logger.Format `env:"LOG_FORMAT" envDefault:"json"`
	IdempotencyBackend string        `env:"BILLING_IDEMPOTENCY_BACKEND" envDefault:"postgres"` // postgres or redis
	NotificationsOn    bool          `env:"BILLING_NOTIFICATIONS_ENABLED" envDefault:"false"`
}

func main() {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(
		logger.WithLevel(appCfg.LogLevel),
		logger.WithFormat(appCfg.LogFormat),
		logger.WithService("subsync"),
	)

	if err := run(context.Background(), appCfg, log); err != nil {
		log.Error("service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var dbCfg pg.Config
	config.MustLoad(&dbCfg)

	pool, err := pg.Connect(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, dbCfg, log); err != nil {
		return err
	}

	var subCfg subscription.Config
	config.MustLoad(&subCfg)

	// Idempotency is the only store with a Redis alternative: the event-id
	// check sits on the hot path of every delivery and key TTLs make the
	// retention window free.
	var idempotency subscription.IdempotencyStore
	probes := []func(context.Context) error{pg.Healthcheck(pool)}

	switch appCfg.IdempotencyBackend {
	case "redis":
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)

		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Error("failed to close redis client", slog.Any("error", err))
			}
		}()

		idempotency = subscription.NewRedisIdempotencyStore(client, subCfg.EventRetention)
		probes = append(probes, redis.Healthcheck(client))
	case "postgres":
		idempotency = subscription.NewPGIdempotencyStore(pool)
	default:
		return errors.New("unknown idempotency backend: " + appCfg.IdempotencyBackend)
	}

	auditSink, closeAudit := audit.NewAsyncSink(audit.NewPGStorage(pool), log, audit.AsyncOptions{})
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := closeAudit(flushCtx); err != nil {
			log.Error("failed to flush audit sink", slog.Any("error", err))
		}
	}()

	notifier, err := buildNotifier(appCfg, log)
	if err != nil {
		return err
	}

	dispatcher := subscription.NewDispatcher(subCfg,
		subscription.NewPGStore(pool),
		idempotency,
		subscription.WithDeadLetterStore(subscription.NewPGDeadLetterStore(pool)),
		subscription.WithAuditSink(auditSink),
		subscription.WithNotifier(notifier),
		subscription.WithLogger(log),
	)

	go dispatcher.RunRetentionGC(ctx)

	r := chi.NewRouter()
	r.Get("/health", httpserver.HealthCheckHandler(log))
	r.Get("/ready", httpserver.HealthCheckHandler(log, probes...))
	r.Mount("/", dispatcher.Handler())

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}

// buildNotifier picks the trial-ending delivery channel. Without Postmark
// credentials notices go to the log, which keeps local development free of
// email setup.
func buildNotifier(appCfg appConfig, log *slog.Logger) (notification.Notifier, error) {
	if !appCfg.NotificationsOn {
		return notification.NewSlogNotifier(log), nil
	}

	var cfg notification.Config
	config.MustLoad(&cfg)

	// The billing provider's customer reference doubles as the notification
	// address until an account directory exists.
	resolver := func(_ context.Context, ownerID string) (string, error) {
		return ownerID, nil
	}
	return notification.NewPostmarkNotifier(cfg, resolver)
}
