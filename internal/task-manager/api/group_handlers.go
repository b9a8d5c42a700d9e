package api

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	taskDB "household-task-service/internal/task-manager/db"
)

// GroupHandler exposes the minimal group and membership surface the engine's
// collaborators need: creating a group and seeding its members. Full
// membership management lives elsewhere.
type GroupHandler struct {
	Groups *taskDB.GroupStore
}

func NewGroupHandler(groups *taskDB.GroupStore) *GroupHandler {
	return &GroupHandler{Groups: groups}
}

type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,gt=0"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required,gt=0"`
	Role   string `json:"role"`
}

// CreateGroup creates a group and enrolls the caller as its owner.
func (h *GroupHandler) CreateGroup(ctx context.Context, c *app.RequestContext) {
	userID, ok := actingUserID(c)
	if !ok {
		return
	}
	var req CreateGroupRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	group := taskDB.Group{Name: req.Name}
	if err := h.Groups.CreateGroup(ctx, &group); err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create group: " + err.Error()})
		return
	}
	owner := taskDB.GroupMember{GroupID: group.ID, UserID: userID, Role: taskDB.RoleOwner}
	if err := h.Groups.AddMember(ctx, &owner); err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to enroll group owner: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, group)
}

// AddMember lets an admin or the owner add a user to the group.
func (h *GroupHandler) AddMember(ctx context.Context, c *app.RequestContext) {
	userID, ok := actingUserID(c)
	if !ok {
		return
	}
	groupID, ok := paramID(c, "group_id")
	if !ok {
		return
	}
	var req AddMemberRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	role := req.Role
	if role == "" {
		role = taskDB.RoleMember
	}
	if role != taskDB.RoleOwner && role != taskDB.RoleAdmin && role != taskDB.RoleMember {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Unknown role: " + role})
		return
	}

	admin, err := h.Groups.IsAdmin(ctx, groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Role lookup failed: " + err.Error()})
		return
	}
	if !admin {
		c.JSON(http.StatusForbidden, utils.H{"error": "Only group admins may add members"})
		return
	}

	member := taskDB.GroupMember{GroupID: groupID, UserID: req.UserID, Role: role}
	if err := h.Groups.AddMember(ctx, &member); err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to add member: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, member)
}
