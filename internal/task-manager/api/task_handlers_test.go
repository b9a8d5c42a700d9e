package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taskDB "household-task-service/internal/task-manager/db"
)

func groupTasksURL(groupID uint) string {
	return "/groups/" + strconv.FormatUint(uint64(groupID), 10) + "/tasks"
}

func generateURL(groupID, templateID uint) string {
	return "/groups/" + strconv.FormatUint(uint64(groupID), 10) +
		"/templates/" + strconv.FormatUint(uint64(templateID), 10) + "/generate"
}

func TestListGroupTasksAPI_LazyGeneration(t *testing.T) {
	router, gormDB := setupTestAppWithRoutes(t)
	groupID := seedAPIGroup(t, gormDB, map[string]string{"owner": taskDB.RoleOwner, "member": taskDB.RoleMember})

	tmpl := taskDB.RecurringTaskTemplate{
		GroupID:            groupID,
		Title:              "Daily chore",
		Priority:           "medium",
		Frequency:          taskDB.FrequencyDaily,
		AssignmentStrategy: taskDB.StrategyNone,
		IsActive:           true,
	}
	require.NoError(t, gormDB.Create(&tmpl).Error)

	// The first list materializes the due task as a side effect.
	w := performJSON(router, "GET", groupTasksURL(groupID), "member", nil)
	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var listResp ListGroupTasksResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &listResp))
	assert.Equal(t, 1, listResp.Generated)
	require.Len(t, listResp.Tasks, 1)
	assert.Equal(t, "Daily chore", listResp.Tasks[0].Title)
	assert.Equal(t, taskDB.TaskStatusInProgress, listResp.Tasks[0].Status)
	assert.Empty(t, listResp.GenerationFailures)

	// The second list on the same day just lists.
	w = performJSON(router, "GET", groupTasksURL(groupID), "member", nil)
	resp = w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	require.NoError(t, json.Unmarshal(resp.Body(), &listResp))
	assert.Equal(t, 0, listResp.Generated)
	assert.Len(t, listResp.Tasks, 1)
}

func TestListGroupTasksAPI_NonMemberForbidden(t *testing.T) {
	router, gormDB := setupTestAppWithRoutes(t)
	groupID := seedAPIGroup(t, gormDB, map[string]string{"owner": taskDB.RoleOwner})

	w := performJSON(router, "GET", groupTasksURL(groupID), "stranger", nil)
	assert.Equal(t, http.StatusForbidden, w.Result().StatusCode())
}

func TestGenerateNowAPI(t *testing.T) {
	router, gormDB := setupTestAppWithRoutes(t)
	groupID := seedAPIGroup(t, gormDB, map[string]string{"owner": taskDB.RoleOwner, "u1": taskDB.RoleMember})

	tmpl := taskDB.RecurringTaskTemplate{
		GroupID:            groupID,
		Title:              "Clean bathroom",
		Priority:           "high",
		Frequency:          taskDB.FrequencyWeekly,
		AssignmentStrategy: taskDB.StrategyRotation,
		RotationOrder:      []string{"owner", "u1"},
		DueDays:            []int{3},
		IsActive:           true,
	}
	require.NoError(t, gormDB.Create(&tmpl).Error)

	// No body at all is fine.
	w := performJSON(router, "POST", generateURL(groupID, tmpl.ID), "owner", nil)
	resp := w.Result()
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	var task taskDB.Task
	require.NoError(t, json.Unmarshal(resp.Body(), &task))
	require.NotNil(t, task.AssignedTo)
	assert.Equal(t, "owner", *task.AssignedTo)
	require.NotNil(t, task.DueAt)
	assert.Equal(t, time.Date(2026, 3, 4, 23, 59, 59, 0, time.UTC), task.DueAt.UTC())

	// Override assignee via the optional body.
	w = performJSON(router, "POST", generateURL(groupID, tmpl.ID), "owner",
		map[string]interface{}{"override_assignee": "u1"})
	resp = w.Result()
	assert.Equal(t, http.StatusCreated, resp.StatusCode())
	require.NoError(t, json.Unmarshal(resp.Body(), &task))
	require.NotNil(t, task.AssignedTo)
	assert.Equal(t, "u1", *task.AssignedTo)
}

func TestGenerateNowAPI_Authorization(t *testing.T) {
	router, gormDB := setupTestAppWithRoutes(t)
	groupID := seedAPIGroup(t, gormDB, map[string]string{"owner": taskDB.RoleOwner, "member": taskDB.RoleMember})

	tmpl := taskDB.RecurringTaskTemplate{
		GroupID:            groupID,
		Title:              "Chore",
		Priority:           "medium",
		Frequency:          taskDB.FrequencyDaily,
		AssignmentStrategy: taskDB.StrategyNone,
		IsActive:           true,
	}
	require.NoError(t, gormDB.Create(&tmpl).Error)

	w := performJSON(router, "POST", generateURL(groupID, tmpl.ID), "member", nil)
	assert.Equal(t, http.StatusForbidden, w.Result().StatusCode())

	w = performJSON(router, "POST", generateURL(groupID, tmpl.ID+999), "owner", nil)
	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode())
}

func TestGenerateNowAPI_InactiveTemplate(t *testing.T) {
	router, gormDB := setupTestAppWithRoutes(t)
	groupID := seedAPIGroup(t, gormDB, map[string]string{"owner": taskDB.RoleOwner})

	tmpl := taskDB.RecurringTaskTemplate{
		GroupID:            groupID,
		Title:              "Retired chore",
		Priority:           "medium",
		Frequency:          taskDB.FrequencyDaily,
		AssignmentStrategy: taskDB.StrategyNone,
		IsActive:           false,
	}
	require.NoError(t, gormDB.Create(&tmpl).Error)

	w := performJSON(router, "POST", generateURL(groupID, tmpl.ID), "owner", nil)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
}

func TestListGenerationRecordsAPI(t *testing.T) {
	router, gormDB := setupTestAppWithRoutes(t)
	groupID := seedAPIGroup(t, gormDB, map[string]string{"owner": taskDB.RoleOwner, "member": taskDB.RoleMember})

	rec := taskDB.GenerationRecord{
		EventID:     "evt-api-1",
		TaskID:      1,
		TemplateID:  1,
		GroupID:     groupID,
		Source:      taskDB.GenerationSourceBatch,
		GeneratedAt: apiTestMonday,
	}
	require.NoError(t, gormDB.Create(&rec).Error)

	url := "/groups/" + strconv.FormatUint(uint64(groupID), 10) + "/generation-records"
	w := performJSON(router, "GET", url, "member", nil)
	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	var records []taskDB.GenerationRecord
	require.NoError(t, json.Unmarshal(resp.Body(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "evt-api-1", records[0].EventID)

	w = performJSON(router, "GET", url, "stranger", nil)
	assert.Equal(t, http.StatusForbidden, w.Result().StatusCode())
}

func TestCreateGroupAPI(t *testing.T) {
	router, _ := setupTestAppWithRoutes(t)

	w := performJSON(router, "POST", "/groups", "founder", map[string]interface{}{"name": "New Household"})
	resp := w.Result()
	assert.Equal(t, http.StatusCreated, resp.StatusCode())

	var group taskDB.Group
	require.NoError(t, json.Unmarshal(resp.Body(), &group))
	assert.NotZero(t, group.ID)

	// The creator is enrolled as owner and can immediately add members.
	url := "/groups/" + strconv.FormatUint(uint64(group.ID), 10) + "/members"
	w = performJSON(router, "POST", url, "founder", map[string]interface{}{"user_id": "roommate"})
	assert.Equal(t, http.StatusCreated, w.Result().StatusCode())

	var member taskDB.GroupMember
	require.NoError(t, json.Unmarshal(w.Result().Body(), &member))
	assert.Equal(t, taskDB.RoleMember, member.Role)

	// Non-admins cannot add members.
	w = performJSON(router, "POST", url, "roommate", map[string]interface{}{"user_id": "other"})
	assert.Equal(t, http.StatusForbidden, w.Result().StatusCode())
}
