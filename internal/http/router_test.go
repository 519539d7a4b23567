package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danishnav/team-catalog/internal/auth"
	"github.com/danishnav/team-catalog/internal/config"
	"github.com/danishnav/team-catalog/internal/http/handlers"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRouterGuardsOpsRoutes(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret", RateLimitPerMinute: 100}
	log := zap.NewNop()
	app := fiber.New()
	SetupRouter(app, cfg, log, nil,
		handlers.NewAuditHandler(nil, log),
		handlers.NewObjectHandler(nil, log),
		handlers.NewNotifyHandler(nil, nil, nil, log),
		handlers.NewWSHub(cfg, nil, log),
	)

	get := func(path, token string) int {
		req := httptest.NewRequest(fiber.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, get("/health", ""))
	assert.Equal(t, fiber.StatusOK, get("/metrics", ""))
	assert.Equal(t, fiber.StatusOK, get("/api/v1/meta/cadences", ""))
	assert.Equal(t, fiber.StatusUnauthorized, get("/api/v1/notifications/tasks", ""))

	token, err := auth.GenerateJWT(cfg.JWTSecret, "S123456", auth.RoleOperator, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, get("/api/v1/audits/abc", token), "authorized request reaches the handler")
	assert.Equal(t, fiber.StatusUpgradeRequired, get("/ws", ""))
}
