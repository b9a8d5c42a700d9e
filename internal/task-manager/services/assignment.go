package services

import (
	"fmt"

	"household-task-service/internal/task-manager/db"
)

// assignment is the resolver's output. NextCursor is a proposal only: the
// materializer commits it after the task row is persisted, so a failed
// creation never skips anyone's turn.
type assignment struct {
	Assignee   *string
	NextCursor int
	Advance    bool
}

// resolveAssignment maps a template's strategy and rotation state to a
// concrete assignee. An override (already membership-checked by the caller) is
// returned verbatim and never advances the rotation. The function is pure; it
// reads the template and proposes, nothing more.
func resolveAssignment(tmpl *db.RecurringTaskTemplate, override *string) (assignment, error) {
	if override != nil {
		return assignment{Assignee: override}, nil
	}
	switch tmpl.AssignmentStrategy {
	case db.StrategyFixed:
		return assignment{Assignee: tmpl.FixedAssignee}, nil
	case db.StrategyRotation:
		order := tmpl.RotationOrder
		if len(order) == 0 {
			return assignment{}, fmt.Errorf("%w: rotation strategy with empty rotation order", ErrValidation)
		}
		idx := tmpl.CurrentRotationIndex
		if idx < 0 || idx >= len(order) {
			return assignment{}, fmt.Errorf("%w: rotation cursor %d out of range [0,%d)", ErrValidation, idx, len(order))
		}
		assignee := order[idx]
		return assignment{
			Assignee:   &assignee,
			NextCursor: (idx + 1) % len(order),
			Advance:    true,
		}, nil
	case db.StrategyNone:
		return assignment{}, nil
	}
	return assignment{}, fmt.Errorf("%w: unknown assignment strategy %q", ErrValidation, tmpl.AssignmentStrategy)
}
