package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Template frequencies.
const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

// Assignment strategies.
const (
	StrategyFixed    = "fixed"
	StrategyRotation = "rotation"
	StrategyNone     = "none"
)

// Task statuses. Generated instances start in-progress, user-created tasks pending.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
)

// Group member roles.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Generation sources recorded on published events.
const (
	GenerationSourceBatch  = "batch"
	GenerationSourceManual = "manual"
)

// Group is a household sharing tasks and recurring templates.
type Group struct {
	gorm.Model
	Name string `json:"name" gorm:"index"`
}

// GroupMember ties a user id to a group with a role.
type GroupMember struct {
	gorm.Model
	GroupID uint   `json:"group_id" gorm:"index:idx_group_user,unique"`
	UserID  string `json:"user_id" gorm:"index:idx_group_user,unique"`
	Role    string `json:"role" gorm:"index"`
}

// Attachment is copied by value from a template into every task it generates.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// RecurringTaskTemplate is the blueprint a group's recurring tasks are generated
// from. The generation engine only ever mutates CurrentRotationIndex and
// LastGeneratedAt; every other field is owned by template CRUD.
type RecurringTaskTemplate struct {
	gorm.Model
	GroupID              uint                            `json:"group_id" gorm:"index"`
	Title                string                          `json:"title"`
	Description          string                          `json:"description"`
	Priority             string                          `json:"priority"`
	Frequency            string                          `json:"frequency" gorm:"index"`
	AssignmentStrategy   string                          `json:"assignment_strategy"`
	FixedAssignee        *string                         `json:"fixed_assignee"`
	RotationOrder        datatypes.JSONSlice[string]     `json:"rotation_order"`
	CurrentRotationIndex int                             `json:"current_rotation_index"`
	DueDays              datatypes.JSONSlice[int]        `json:"due_days" gorm:"column:due_days"` // weekday 0-6 or day-of-month 1-31
	IsActive             bool                            `json:"is_active" gorm:"index"`
	LastGeneratedAt      *time.Time                      `json:"last_generated_at"`
	CreatedBy            string                          `json:"created_by"`
	Attachments          datatypes.JSONSlice[Attachment] `json:"attachments"`
}

// Task is a concrete task instance. Generated tasks carry a weak backlink to the
// template that produced them; deleting the template never touches its tasks.
type Task struct {
	gorm.Model
	GroupID             uint                            `json:"group_id" gorm:"index"`
	Title               string                          `json:"title" gorm:"index"`
	Description         string                          `json:"description"`
	Priority            string                          `json:"priority"`
	Status              string                          `json:"status" gorm:"index"`
	AssignedTo          *string                         `json:"assigned_to"`
	DueAt               *time.Time                      `json:"due_at" gorm:"index"`
	RecurringTemplateID *uint                           `json:"recurring_template_id" gorm:"index"`
	ParentTaskID        *uint                           `json:"parent_task_id"`
	LinkedTasks         datatypes.JSONSlice[uint]       `json:"linked_tasks"`
	CompletionProof     *string                         `json:"completion_proof"`
	Attachments         datatypes.JSONSlice[Attachment] `json:"attachments"`
	CreatedBy           string                          `json:"created_by"`
}

// GenerationRecord is the audit row the event consumer writes for every
// task-generated event it sees. EventID is unique so replayed events are dropped.
type GenerationRecord struct {
	gorm.Model
	EventID     string    `json:"event_id" gorm:"uniqueIndex"`
	TaskID      uint      `json:"task_id" gorm:"index"`
	TemplateID  uint      `json:"template_id" gorm:"index"`
	GroupID     uint      `json:"group_id" gorm:"index"`
	AssignedTo  *string   `json:"assigned_to"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
}
