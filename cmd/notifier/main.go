package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/danishnav/team-catalog/internal/config"
	"github.com/danishnav/team-catalog/internal/db"
	"github.com/danishnav/team-catalog/internal/events"
	"github.com/danishnav/team-catalog/internal/lock"
	"github.com/danishnav/team-catalog/internal/models"
	"github.com/danishnav/team-catalog/internal/repositories"
	"github.com/danishnav/team-catalog/internal/scheduler"
	"github.com/danishnav/team-catalog/internal/services"
	"github.com/danishnav/team-catalog/migrations"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, int32(cfg.PostgresMaxConns), log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.Source(cfg.MigrationsDir), log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	auditRepo := repositories.NewAuditRepo(pool)
	stateRepo := repositories.NewStateRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	taskRepo := repositories.NewTaskRepo(pool)
	storageRepo := repositories.NewStorageRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)

	var mailer services.Mailer = services.NewLogMailer(log)
	if cfg.MailGatewayURL != "" {
		mailer = services.NewMailClient(cfg.MailGatewayURL, cfg.MailFrom, cfg.MailTimeout, log)
	}

	bootstrap := services.NewBootstrap(auditRepo, stateRepo, log)
	aggregator := services.NewTaskAggregator(auditRepo, stateRepo, subscriptionRepo, taskRepo, publisher, cfg.NotifyBatchLimit, log)
	digests := services.NewDigestService(auditRepo, storageRepo, services.NewURLBuilder(cfg.AppBaseURL), log)
	delivery := services.NewDeliveryScheduler(taskRepo, digests, storageRepo, services.NewMailRenderer(), mailer,
		services.NewRedisSnooze(rdb, log), publisher,
		services.DeliveryConfig{MaxErrors: cfg.NotifyMaxErrors, MaxExponent: cfg.NotifySnoozeMaxExponent}, log)

	runner := scheduler.NewRunner(lock.NewRedisLocker(rdb), cfg.NotifyWarmup, log)

	// Cursor bootstrap runs once, before any cadence job is scheduled.
	if err := runner.Once(ctx, scheduler.Job{Name: "notifyInit", Lease: cfg.NotifyInitLease, Run: bootstrap.Run}); err != nil {
		log.Error("cursor bootstrap failed", zap.Error(err))
	}

	cadenceJob := func(name, cadence string, schedule scheduler.Schedule) scheduler.Job {
		return scheduler.Job{
			Name:     name,
			Schedule: schedule,
			Lease:    cfg.NotifyTickLease,
			Run:      func(ctx context.Context) error { return aggregator.Run(ctx, cadence) },
		}
	}

	jobs := []scheduler.Job{
		{Name: "notifyMail", Schedule: scheduler.MustParse("0 * * * * ?"), Lease: cfg.NotifyTickLease, Run: delivery.Run},
		cadenceJob("notifyAll", models.CadenceAll, scheduler.MustParse("30 * * * * ?")),
		cadenceJob("notifyDaily", models.CadenceDaily, scheduler.MustParse("0 0 9 * * ?")),
		cadenceJob("notifyWeekly", models.CadenceWeekly, scheduler.MustParse("0 0 10 * * MON")),
		cadenceJob("notifyMonthly", models.CadenceMonthly, scheduler.MustParse("0 0 11 1 * ?")),
	}

	log.Info("notifier started", zap.Duration("warmup", cfg.NotifyWarmup), zap.Int("jobs", len(jobs)))

	if err := runner.Start(ctx, jobs...); err != nil {
		log.Error("scheduler stopped", zap.Error(err))
	}
	log.Info("shutting down notifier")
}
