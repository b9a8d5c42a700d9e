package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"household-task-service/internal/task-manager/services"
)

// UserIDHeader carries the authenticated user's id. Authentication itself is
// handled upstream; this service trusts the header.
const UserIDHeader = "X-User-ID"

// actingUserID extracts the caller identity, writing a 401 when it is missing.
func actingUserID(c *app.RequestContext) (string, bool) {
	userID := string(c.GetHeader(UserIDHeader))
	if userID == "" {
		c.JSON(http.StatusUnauthorized, utils.H{"error": "missing " + UserIDHeader + " header"})
		return "", false
	}
	return userID, true
}

// paramID parses a numeric path parameter, writing a 400 on failure.
func paramID(c *app.RequestContext, name string) (uint, bool) {
	idStr := c.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid " + name + " format"})
		return 0, false
	}
	return uint(id), true
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(c *app.RequestContext, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	}
	c.JSON(status, utils.H{"error": err.Error()})
}
