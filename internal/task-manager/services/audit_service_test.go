package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"household-task-service/internal/task-manager/db"
	"household-task-service/internal/task-manager/events"
)

func TestAuditRecordDeduplicatesByEventID(t *testing.T) {
	gormDB := setupTestDB(t)
	recordStore := db.NewGenerationRecordStore(gormDB)
	svc := &AuditService{Records: recordStore}

	payload := events.TaskGeneratedPayload{
		EventID:     "evt-123",
		TaskID:      7,
		TemplateID:  3,
		GroupID:     1,
		AssignedTo:  strPtr("u1"),
		Source:      db.GenerationSourceBatch,
		GeneratedAt: testMonday,
	}

	require.NoError(t, svc.Record(context.Background(), payload))

	// Redelivery of the same event is a no-op.
	require.NoError(t, svc.Record(context.Background(), payload))

	records, err := recordStore.ListByGroup(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "evt-123", records[0].EventID)
	assert.Equal(t, uint(7), records[0].TaskID)
	assert.Equal(t, db.GenerationSourceBatch, records[0].Source)
	require.NotNil(t, records[0].AssignedTo)
	assert.Equal(t, "u1", *records[0].AssignedTo)
}

func TestAuditRecordDistinctEvents(t *testing.T) {
	gormDB := setupTestDB(t)
	recordStore := db.NewGenerationRecordStore(gormDB)
	svc := &AuditService{Records: recordStore}

	for i, eventID := range []string{"evt-a", "evt-b"} {
		payload := events.TaskGeneratedPayload{
			EventID:     eventID,
			TaskID:      uint(10 + i),
			TemplateID:  3,
			GroupID:     1,
			Source:      db.GenerationSourceManual,
			GeneratedAt: testMonday.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, svc.Record(context.Background(), payload))
	}

	records, err := recordStore.ListByGroup(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
