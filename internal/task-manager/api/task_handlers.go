package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	taskDB "household-task-service/internal/task-manager/db"
	"household-task-service/internal/task-manager/services"
)

// TaskHandler serves the group task list (which lazily triggers recurring
// generation), the manual generate-now action, and the generation audit trail.
type TaskHandler struct {
	Tasks      *taskDB.TaskStore
	Groups     *taskDB.GroupStore
	Records    *taskDB.GenerationRecordStore
	Generation *services.GenerationService
}

func NewTaskHandler(tasks *taskDB.TaskStore, groups *taskDB.GroupStore, records *taskDB.GenerationRecordStore, generation *services.GenerationService) *TaskHandler {
	return &TaskHandler{Tasks: tasks, Groups: groups, Records: records, Generation: generation}
}

// ListGroupTasksResponse reports the task list plus what this read's lazy
// generation run did.
type ListGroupTasksResponse struct {
	Tasks              []taskDB.Task                `json:"tasks"`
	Generated          int                          `json:"generated"`
	GenerationFailures []services.GenerationFailure `json:"generation_failures,omitempty"`
}

// ListGroupTasks handles GET /groups/:group_id/tasks. Due recurring templates
// are generated first, then the list is returned. Generation trouble is
// reported in the response but never fails the listing: the caller always
// gets the tasks that exist.
func (h *TaskHandler) ListGroupTasks(ctx context.Context, c *app.RequestContext) {
	userID, ok := actingUserID(c)
	if !ok {
		return
	}
	groupID, ok := paramID(c, "group_id")
	if !ok {
		return
	}

	result, err := h.Generation.RunDueGeneration(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			respondServiceError(c, err)
			return
		}
		// Listing still proceeds; the generation side effect just did nothing.
		log.Printf("Lazy generation for group %d failed: %v", groupID, err)
		result = &services.BatchResult{}
	}

	tasks, err := h.Tasks.ListByGroup(ctx, groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch tasks: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, ListGroupTasksResponse{
		Tasks:              tasks,
		Generated:          len(result.Created),
		GenerationFailures: result.Failures,
	})
}

type GenerateNowRequest struct {
	OverrideAssignee *string `json:"override_assignee"`
}

// GenerateNow handles POST /groups/:group_id/templates/:id/generate. The body
// is optional; when present it may carry an override assignee.
func (h *TaskHandler) GenerateNow(ctx context.Context, c *app.RequestContext) {
	userID, ok := actingUserID(c)
	if !ok {
		return
	}
	groupID, ok := paramID(c, "group_id")
	if !ok {
		return
	}
	templateID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req GenerateNowRequest
	if body, _ := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}

	task, err := h.Generation.GenerateNow(ctx, groupID, templateID, userID, req.OverrideAssignee)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ListGenerationRecords handles GET /groups/:group_id/generation-records.
func (h *TaskHandler) ListGenerationRecords(ctx context.Context, c *app.RequestContext) {
	userID, ok := actingUserID(c)
	if !ok {
		return
	}
	groupID, ok := paramID(c, "group_id")
	if !ok {
		return
	}
	member, err := h.Groups.IsMember(ctx, groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Membership lookup failed: " + err.Error()})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, utils.H{"error": "Not a member of this group"})
		return
	}
	records, err := h.Records.ListByGroup(ctx, groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch generation records: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
