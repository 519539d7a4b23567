package handlers

import (
	"github.com/danishnav/team-catalog/internal/http/dto"
	"github.com/danishnav/team-catalog/internal/models"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

type MetaOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var cadenceOptions = []MetaOption{
	{ID: models.CadenceAll, Label: "As soon as possible"},
	{ID: models.CadenceDaily, Label: "Daily"},
	{ID: models.CadenceWeekly, Label: "Weekly"},
	{ID: models.CadenceMonthly, Label: "Monthly"},
}

var teamTypeOptions = []MetaOption{
	{ID: models.TeamTypeIT, Label: models.TeamTypeLabel(models.TeamTypeIT)},
	{ID: models.TeamTypeProduct, Label: models.TeamTypeLabel(models.TeamTypeProduct)},
	{ID: models.TeamTypeAdministration, Label: models.TeamTypeLabel(models.TeamTypeAdministration)},
	{ID: models.TeamTypeProject, Label: models.TeamTypeLabel(models.TeamTypeProject)},
	{ID: models.TeamTypeOther, Label: models.TeamTypeLabel(models.TeamTypeOther)},
	{ID: models.TeamTypeUnknown, Label: models.TeamTypeLabel(models.TeamTypeUnknown)},
}

func (h *MetaHandler) GetCadences(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: cadenceOptions})
}

func (h *MetaHandler) GetTeamTypes(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: teamTypeOptions})
}
