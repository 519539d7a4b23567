package handlers

import (
	"github.com/danishnav/team-catalog/internal/http/dto"
	"github.com/danishnav/team-catalog/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}
