package handlers

import (
	"errors"

	"github.com/danishnav/team-catalog/internal/http/dto"
	"github.com/danishnav/team-catalog/internal/middleware"
	"github.com/danishnav/team-catalog/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NotifyHandler struct {
	states  CursorLister
	tasks   TaskStore
	digests DigestBuilder
	log     *zap.Logger
}

func NewNotifyHandler(states CursorLister, tasks TaskStore, digests DigestBuilder, log *zap.Logger) *NotifyHandler {
	return &NotifyHandler{states: states, tasks: tasks, digests: digests, log: log}
}

// GetState lists every cadence cursor, including ones never initialised.
func (h *NotifyHandler) GetState(c *fiber.Ctx) error {
	states, err := h.states.List(c.Context())
	if err != nil {
		h.log.Error("failed to list cursors", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to list cursors")
	}

	byCadence := make(map[string]models.NotificationState, len(states))
	for _, s := range states {
		byCadence[s.Cadence] = s
	}
	out := make([]models.NotificationState, 0, len(models.AllCadences))
	for _, cadence := range models.AllCadences {
		s, ok := byCadence[cadence]
		if !ok {
			s = models.NotificationState{Cadence: cadence}
		}
		out = append(out, s)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: out})
}

func (h *NotifyHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.tasks.List(c.Context())
	if err != nil {
		h.log.Error("failed to list tasks", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to list tasks")
	}

	cadence := c.Query("cadence")
	items := make([]dto.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		if cadence != "" && t.Cadence != cadence {
			continue
		}
		items = append(items, dto.NewTaskSummary(t))
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ListResponse{Items: items, Total: len(items)}})
}

// PreviewDigest renders the digest a queued task would deliver, without sending it.
func (h *NotifyHandler) PreviewDigest(c *fiber.Ctx) error {
	task, ok, err := h.task(c)
	if !ok {
		return err
	}

	digest, err := h.digests.Build(c.Context(), *task)
	if errors.Is(err, models.ErrSnapshotMissing) {
		return fail(c, fiber.StatusConflict, err.Error())
	}
	if err != nil {
		h.log.Error("failed to build digest", zap.String("task_id", task.ID.String()), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to build digest")
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: digest})
}

func (h *NotifyHandler) DeleteTask(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid task id")
	}

	err = h.tasks.Delete(c.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "task not found")
	}
	if err != nil {
		h.log.Error("failed to delete task", zap.String("task_id", id.String()), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to delete task")
	}

	h.log.Info("task removed by operator", zap.String("task_id", id.String()), zap.String("operator", middleware.GetOperator(c)))
	return c.JSON(dto.SuccessResponse{OK: true})
}

// task loads the task named by the :id param. When ok is false the response
// has been written and err is the handler's return value.
func (h *NotifyHandler) task(c *fiber.Ctx) (*models.NotificationTask, bool, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, false, fail(c, fiber.StatusBadRequest, "invalid task id")
	}

	task, err := h.tasks.Get(c.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, false, fail(c, fiber.StatusNotFound, "task not found")
	}
	if err != nil {
		h.log.Error("failed to load task", zap.String("task_id", id.String()), zap.Error(err))
		return nil, false, fail(c, fiber.StatusInternalServerError, "failed to load task")
	}
	return task, true, nil
}
