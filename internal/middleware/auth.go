package middleware

import (
	"strings"

	"github.com/danishnav/team-catalog/internal/auth"
	"github.com/danishnav/team-catalog/internal/config"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const CtxOperator = "operator"

// OperatorMiddleware accepts bearer tokens with the operator role. When
// OPERATOR_KEYS is set the subject must also be listed there.
func OperatorMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}
		if claims.Role != auth.RoleOperator || (len(cfg.OperatorKeys) > 0 && !cfg.IsOperator(claims.Subject)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "operator access required"})
		}

		c.Locals(CtxOperator, claims.Subject)
		return c.Next()
	}
}

func GetOperator(c *fiber.Ctx) string {
	key, _ := c.Locals(CtxOperator).(string)
	return key
}
