package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"household-task-service/internal/task-manager/db"
)

// 2026-03-02 is a Monday; several tests lean on that.
var testMonday = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "services_test.db")
	gormDB, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	err = gormDB.AutoMigrate(
		&db.Group{},
		&db.GroupMember{},
		&db.RecurringTaskTemplate{},
		&db.Task{},
		&db.GenerationRecord{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return gormDB
}

func seedGroup(t *testing.T, gormDB *gorm.DB, members map[string]string) uint {
	t.Helper()
	group := db.Group{Name: "Test Household"}
	if err := gormDB.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}
	for userID, role := range members {
		member := db.GroupMember{GroupID: group.ID, UserID: userID, Role: role}
		if err := gormDB.Create(&member).Error; err != nil {
			t.Fatalf("Failed to add member %s: %v", userID, err)
		}
	}
	return group.ID
}

func newTestEngine(gormDB *gorm.DB, now time.Time) *GenerationService {
	engine := NewGenerationService(
		db.NewTemplateStore(gormDB),
		db.NewTaskStore(gormDB),
		db.NewGroupStore(gormDB),
		nil,
	)
	engine.Now = func() time.Time { return now }
	return engine
}

func reloadTemplate(t *testing.T, gormDB *gorm.DB, id uint) *db.RecurringTaskTemplate {
	t.Helper()
	var tmpl db.RecurringTaskTemplate
	if err := gormDB.First(&tmpl, id).Error; err != nil {
		t.Fatalf("Failed to reload template %d: %v", id, err)
	}
	return &tmpl
}

// mockProducer stands in for *kafka.Writer in engine tests.
type mockProducer struct {
	msgs []kafka.Message
	err  error
}

func (m *mockProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockProducer) Close() error { return nil }

func (m *mockProducer) Stats() kafka.WriterStats { return kafka.WriterStats{} }
