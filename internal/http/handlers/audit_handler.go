package handlers

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/danishnav/team-catalog/internal/http/dto"
	"github.com/danishnav/team-catalog/internal/middleware"
	"github.com/danishnav/team-catalog/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuditHandler struct {
	audits AuditStore
	log    *zap.Logger
}

func NewAuditHandler(audits AuditStore, log *zap.Logger) *AuditHandler {
	return &AuditHandler{audits: audits, log: log}
}

func (h *AuditHandler) AppendAudit(c *fiber.Ctx) error {
	var req dto.AppendAuditRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request")
	}

	if !models.IsValidAction(req.Action) {
		return fail(c, fiber.StatusBadRequest, "action must be CREATE, UPDATE or DELETE")
	}
	if !models.IsTrackedEntity(req.EntityType) {
		return fail(c, fiber.StatusBadRequest, "entity_type is not audited")
	}
	if req.EntityID == "" || len(req.Payload) == 0 || !json.Valid(req.Payload) {
		return fail(c, fiber.StatusBadRequest, "entity_id and a JSON payload are required")
	}

	entry := &models.AuditEntry{
		Action:     req.Action,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Actor:      req.Actor,
		Payload:    req.Payload,
	}
	if entry.Actor == "" {
		entry.Actor = middleware.GetOperator(c)
	}
	if req.Time != nil {
		entry.Time = req.Time.UTC()
	}

	if err := h.audits.Append(c.Context(), entry); err != nil {
		h.log.Error("failed to append audit", zap.String("entity_id", req.EntityID), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to append audit")
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: entry})
}

func (h *AuditHandler) GetAudit(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return fail(c, fiber.StatusBadRequest, "invalid audit id")
	}

	entry, err := h.audits.Get(c.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "audit not found")
	}
	if err != nil {
		h.log.Error("failed to load audit", zap.Int64("audit_id", id), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to load audit")
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: entry})
}

func (h *AuditHandler) ListAudits(c *fiber.Ctx) error {
	entityType, entityID := c.Query("type"), c.Query("id")
	if entityType == "" || entityID == "" {
		return fail(c, fiber.StatusBadRequest, "type and id are required")
	}

	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := h.audits.ListForEntity(c.Context(), entityType, entityID, limit, offset)
	if err != nil {
		h.log.Error("failed to list audits", zap.String("type", entityType), zap.String("id", entityID), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to list audits")
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ListResponse{Items: entries, Total: len(entries)}})
}
