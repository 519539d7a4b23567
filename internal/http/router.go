package http

import (
	"time"

	"github.com/danishnav/team-catalog/internal/config"
	"github.com/danishnav/team-catalog/internal/http/handlers"
	"github.com/danishnav/team-catalog/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	auditHandler *handlers.AuditHandler,
	objectHandler *handlers.ObjectHandler,
	notifyHandler *handlers.NotifyHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "ws_connections": wsHub.Connections()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")
	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log))
	}

	metaHandler := handlers.NewMetaHandler()
	api.Get("/meta/cadences", metaHandler.GetCadences)
	api.Get("/meta/team-types", metaHandler.GetTeamTypes)

	ops := api.Group("", middleware.OperatorMiddleware(cfg, log))

	// Audit log
	ops.Post("/audits", auditHandler.AppendAudit)
	ops.Get("/audits", auditHandler.ListAudits)
	ops.Get("/audits/:id", auditHandler.GetAudit)

	// Catalog objects
	ops.Get("/objects/:type/:id", objectHandler.GetObject)
	ops.Put("/objects/:type/:id", objectHandler.PutObject)
	ops.Delete("/objects/:type/:id", objectHandler.DeleteObject)

	// Notifier
	ops.Get("/notifications/state", notifyHandler.GetState)
	ops.Get("/notifications/tasks", notifyHandler.ListTasks)
	ops.Get("/notifications/tasks/:id/digest", notifyHandler.PreviewDigest)
	ops.Delete("/notifications/tasks/:id", notifyHandler.DeleteTask)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
