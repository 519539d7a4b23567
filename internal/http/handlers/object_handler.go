package handlers

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/danishnav/team-catalog/internal/http/dto"
	"github.com/danishnav/team-catalog/internal/middleware"
	"github.com/danishnav/team-catalog/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ObjectHandler writes catalog objects. Writes to teams and product areas
// append their audit version in the same transaction.
type ObjectHandler struct {
	objects ObjectStore
	log     *zap.Logger
}

func NewObjectHandler(objects ObjectStore, log *zap.Logger) *ObjectHandler {
	return &ObjectHandler{objects: objects, log: log}
}

func isObjectType(t string) bool {
	return models.IsTrackedEntity(t) || t == models.EntityResource
}

func (h *ObjectHandler) GetObject(c *fiber.Ctx) error {
	objectType, id := c.Params("type"), c.Params("id")
	if !isObjectType(objectType) {
		return fail(c, fiber.StatusBadRequest, "unknown object type")
	}

	data, err := h.objects.Get(c.Context(), objectType, id)
	if errors.Is(err, models.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "object not found")
	}
	if err != nil {
		h.log.Error("failed to load object", zap.String("type", objectType), zap.String("id", id), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to load object")
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ObjectResponse{Type: objectType, ID: id, Data: data}})
}

func (h *ObjectHandler) PutObject(c *fiber.Ctx) error {
	objectType, id := c.Params("type"), c.Params("id")
	if !isObjectType(objectType) {
		return fail(c, fiber.StatusBadRequest, "unknown object type")
	}

	var obj map[string]any
	if err := json.Unmarshal(c.Body(), &obj); err != nil {
		return fail(c, fiber.StatusBadRequest, "body must be a JSON object")
	}
	if v, ok := obj["id"]; ok && v != id {
		return fail(c, fiber.StatusBadRequest, "body id does not match path")
	}

	entry, err := h.objects.Save(c.Context(), objectType, id, json.RawMessage(bytes.Clone(c.Body())), middleware.GetOperator(c))
	if err != nil {
		h.log.Error("failed to save object", zap.String("type", objectType), zap.String("id", id), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to save object")
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ObjectWriteResponse{Type: objectType, ID: id, Audit: entry}})
}

func (h *ObjectHandler) DeleteObject(c *fiber.Ctx) error {
	objectType, id := c.Params("type"), c.Params("id")
	if !isObjectType(objectType) {
		return fail(c, fiber.StatusBadRequest, "unknown object type")
	}

	entry, err := h.objects.Delete(c.Context(), objectType, id, middleware.GetOperator(c))
	if errors.Is(err, models.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "object not found")
	}
	if err != nil {
		h.log.Error("failed to delete object", zap.String("type", objectType), zap.String("id", id), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to delete object")
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ObjectWriteResponse{Type: objectType, ID: id, Audit: entry}})
}
