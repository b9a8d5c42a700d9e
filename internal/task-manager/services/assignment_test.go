package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"household-task-service/internal/task-manager/db"
)

func strPtr(s string) *string { return &s }

func TestResolveAssignmentFixed(t *testing.T) {
	tmpl := &db.RecurringTaskTemplate{AssignmentStrategy: db.StrategyFixed, FixedAssignee: strPtr("u1")}
	asg, err := resolveAssignment(tmpl, nil)
	require.NoError(t, err)
	require.NotNil(t, asg.Assignee)
	assert.Equal(t, "u1", *asg.Assignee)
	assert.False(t, asg.Advance)

	tmpl.FixedAssignee = nil
	asg, err = resolveAssignment(tmpl, nil)
	require.NoError(t, err)
	assert.Nil(t, asg.Assignee, "fixed strategy without an assignee resolves to nobody")
}

func TestResolveAssignmentNone(t *testing.T) {
	tmpl := &db.RecurringTaskTemplate{AssignmentStrategy: db.StrategyNone}
	asg, err := resolveAssignment(tmpl, nil)
	require.NoError(t, err)
	assert.Nil(t, asg.Assignee)
	assert.False(t, asg.Advance)
}

func TestResolveAssignmentRotation(t *testing.T) {
	tmpl := &db.RecurringTaskTemplate{
		AssignmentStrategy:   db.StrategyRotation,
		RotationOrder:        []string{"a", "b", "c"},
		CurrentRotationIndex: 0,
	}
	asg, err := resolveAssignment(tmpl, nil)
	require.NoError(t, err)
	require.NotNil(t, asg.Assignee)
	assert.Equal(t, "a", *asg.Assignee)
	assert.Equal(t, 1, asg.NextCursor)
	assert.True(t, asg.Advance)
	assert.Equal(t, 0, tmpl.CurrentRotationIndex, "the resolver proposes, it does not persist")

	tmpl.CurrentRotationIndex = 2
	asg, err = resolveAssignment(tmpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "c", *asg.Assignee)
	assert.Equal(t, 0, asg.NextCursor, "cursor wraps around")
}

func TestResolveAssignmentRotationInvalidState(t *testing.T) {
	tmpl := &db.RecurringTaskTemplate{AssignmentStrategy: db.StrategyRotation}
	_, err := resolveAssignment(tmpl, nil)
	assert.ErrorIs(t, err, ErrValidation)

	tmpl.RotationOrder = []string{"a"}
	tmpl.CurrentRotationIndex = 5
	_, err = resolveAssignment(tmpl, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveAssignmentOverride(t *testing.T) {
	tmpl := &db.RecurringTaskTemplate{
		AssignmentStrategy:   db.StrategyRotation,
		RotationOrder:        []string{"a", "b"},
		CurrentRotationIndex: 0,
	}
	asg, err := resolveAssignment(tmpl, strPtr("override-user"))
	require.NoError(t, err)
	assert.Equal(t, "override-user", *asg.Assignee)
	assert.False(t, asg.Advance, "an override never advances the rotation")
}

func TestResolveAssignmentUnknownStrategy(t *testing.T) {
	tmpl := &db.RecurringTaskTemplate{AssignmentStrategy: "roulette"}
	_, err := resolveAssignment(tmpl, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
