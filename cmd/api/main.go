package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danishnav/team-catalog/internal/auth"
	"github.com/danishnav/team-catalog/internal/config"
	"github.com/danishnav/team-catalog/internal/db"
	"github.com/danishnav/team-catalog/internal/events"
	apphttp "github.com/danishnav/team-catalog/internal/http"
	"github.com/danishnav/team-catalog/internal/http/dto"
	"github.com/danishnav/team-catalog/internal/http/handlers"
	"github.com/danishnav/team-catalog/internal/repositories"
	"github.com/danishnav/team-catalog/internal/services"
	"github.com/danishnav/team-catalog/migrations"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	issueToken := flag.String("issue-token", "", "print an operator token for this key and exit")
	flag.Parse()

	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken); err != nil {
			log.Fatal("failed to issue token", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, int32(cfg.PostgresMaxConns), log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.Source(cfg.MigrationsDir), log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	auditRepo := repositories.NewAuditRepo(pool)
	stateRepo := repositories.NewStateRepo(pool)
	taskRepo := repositories.NewTaskRepo(pool)
	storageRepo := repositories.NewStorageRepo(pool)

	// Events
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	digests := services.NewDigestService(auditRepo, storageRepo, services.NewURLBuilder(cfg.AppBaseURL), log)

	// Handlers
	auditHandler := handlers.NewAuditHandler(auditRepo, log)
	objectHandler := handlers.NewObjectHandler(storageRepo, log)
	notifyHandler := handlers.NewNotifyHandler(stateRepo, taskRepo, digests, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	if err := wsHub.Start(ctx); err != nil {
		log.Error("failed to subscribe to notifier events", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, auditHandler, objectHandler, notifyHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func printToken(cfg *config.Config, key string) error {
	if len(cfg.OperatorKeys) > 0 && !cfg.IsOperator(key) {
		return fmt.Errorf("%s is not listed in OPERATOR_KEYS", key)
	}
	token, err := auth.GenerateJWT(cfg.JWTSecret, key, auth.RoleOperator, cfg.JWTExpiration)
	if err != nil {
		return err
	}
	expiration := cfg.JWTExpiration
	if expiration <= 0 {
		expiration = 12 * time.Hour
	}
	return json.NewEncoder(os.Stdout).Encode(dto.TokenResponse{Token: token, ExpiresAt: time.Now().Add(expiration).UTC()})
}
