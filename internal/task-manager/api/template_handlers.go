package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	taskDB "household-task-service/internal/task-manager/db"
	"household-task-service/internal/task-manager/services"
	"household-task-service/pkg/validation"
)

// TemplateHandler exposes recurring-task template CRUD.
type TemplateHandler struct {
	Service *services.TemplateService
}

func NewTemplateHandler(service *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{Service: service}
}

type CreateTemplateRequest struct {
	Title              string          `json:"title" validate:"required,gt=0"`
	Description        string          `json:"description"`
	Priority           string          `json:"priority"`
	Frequency          string          `json:"frequency" validate:"required,gt=0"`
	AssignmentStrategy string          `json:"assignment_strategy" validate:"required,gt=0"`
	FixedAssignee      *string         `json:"fixed_assignee"`
	RotationOrder      []string        `json:"rotation_order"`
	DueDays            []int           `json:"due_days"`
	Attachments        json.RawMessage `json:"attachments"`
}

// CreateTemplate handles POST /groups/:group_id/templates. Attachments arrive
// as raw JSON and are checked against the attachment schema before decoding.
func (h *TemplateHandler) CreateTemplate(ctx context.Context, c *app.RequestContext) {
	userID, ok := actingUserID(c)
	if !ok {
		return
	}
	groupID, ok := paramID(c, "group_id")
	if !ok {
		return
	}
	var req CreateTemplateRequest
	if err := c.Bind(&req); err != nil {
		log.Printf("CreateTemplate: Bind failed: %v", err)
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if err := c.Validate(&req); err != nil {
		log.Printf("Validation error for CreateTemplateRequest: %v, Request: %+v", err, req)
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if err := validation.ValidateAttachments(string(req.Attachments)); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{
			"error":             "Attachments do not match the attachment schema.",
			"validation_errors": err.Error(),
		})
		return
	}
	var attachments []taskDB.Attachment
	if len(req.Attachments) > 0 {
		if err := json.Unmarshal(req.Attachments, &attachments); err != nil {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid attachments payload: " + err.Error()})
			return
		}
	}

	tmpl, err := h.Service.Create(ctx, groupID, userID, services.CreateTemplateInput{
		Title:              req.Title,
		Description:        req.Description,
		Priority:           req.Priority,
		Frequency:          req.Frequency,
		AssignmentStrategy: req.AssignmentStrategy,
		FixedAssignee:      req.FixedAssignee,
		RotationOrder:      req.RotationOrder,
		DueDays:            req.DueDays,
		Attachments:        attachments,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

func (h *TemplateHandler) GetTemplates(ctx context.Context, c *app.RequestContext) {
	userID, ok := actingUserID(c)
	if !ok {
		return
	}
	groupID, ok := paramID(c, "group_id")
	if !ok {
		return
	}
	templates, err := h.Service.ListByGroup(ctx, groupID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *TemplateHandler) GetTemplateByID(ctx context.Context, c *app.RequestContext) {
	userID, ok := actingUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tmpl, err := h.Service.Get(ctx, id, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// UpdateTemplate handles PATCH /templates/:id. The body is decoded with
// encoding/json so absent fields and explicit nulls stay distinguishable in
// the TemplateUpdate value object. Deactivation (is_active=false) goes through
// here too.
func (h *TemplateHandler) UpdateTemplate(ctx context.Context, c *app.RequestContext) {
	userID, ok := actingUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	body, _ := c.Body()

	// Attachments are schema-checked on the raw payload before decoding.
	var rawFields struct {
		Attachments json.RawMessage `json:"attachments"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rawFields); err != nil {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}
	if err := validation.ValidateAttachments(string(rawFields.Attachments)); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{
			"error":             "Attachments do not match the attachment schema.",
			"validation_errors": err.Error(),
		})
		return
	}

	var upd taskDB.TemplateUpdate
	if len(body) > 0 {
		if err := json.Unmarshal(body, &upd); err != nil {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}

	tmpl, err := h.Service.Update(ctx, id, userID, upd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// DeleteTemplate hard-deletes a template. Tasks generated from it are left
// untouched; deactivation is the normal decommission path.
func (h *TemplateHandler) DeleteTemplate(ctx context.Context, c *app.RequestContext) {
	userID, ok := actingUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(ctx, id, userID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.H{"message": "Template deleted. Generated tasks are kept."})
}
