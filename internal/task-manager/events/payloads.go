package events

import "time"

// TaskGeneratedPayload is published to Kafka after a task instance has been
// materialized from a recurring template. EventID lets consumers drop
// redelivered events.
type TaskGeneratedPayload struct {
	EventID     string     `json:"event_id"`
	TaskID      uint       `json:"task_id"`
	TemplateID  uint       `json:"template_id"`
	GroupID     uint       `json:"group_id"`
	AssignedTo  *string    `json:"assigned_to,omitempty"`
	Source      string     `json:"source"` // batch or manual
	DueAt       *time.Time `json:"due_at,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}
