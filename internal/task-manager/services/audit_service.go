package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"household-task-service/internal/task-manager/db"
	"household-task-service/internal/task-manager/events"
)

const (
	DefaultKafkaBrokers   = "localhost:9092"
	DefaultGeneratedTopic = "task_generated_events"
	DefaultAuditGroupID   = "task-manager-generation-audit"
)

// AuditService consumes task-generated events and keeps the generation audit
// trail. Events are de-duplicated by event id, so a redelivered message never
// produces a second record.
type AuditService struct {
	Records *db.GenerationRecordStore
	Reader  *kafka.Reader
}

func NewAuditService(records *db.GenerationRecordStore) *AuditService {
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = DefaultKafkaBrokers
	}
	topic := os.Getenv("TASK_GENERATED_TOPIC")
	if topic == "" {
		topic = DefaultGeneratedTopic
	}
	groupID := os.Getenv("AUDIT_GROUP_ID")
	if groupID == "" {
		groupID = DefaultAuditGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(kafkaBrokers, ","),
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})
	log.Printf("Generation audit consumer configured for topic: %s, groupID: %s", topic, groupID)
	return &AuditService{Records: records, Reader: reader}
}

func (s *AuditService) StartConsuming(ctx context.Context) {
	log.Println("AuditService starting to consume task-generated events...")
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Println("AuditService: context cancelled, stopping consumer.")
				return
			default:
				readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				msg, err := s.Reader.ReadMessage(readCtx)
				cancel()

				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if errors.Is(err, context.Canceled) {
					log.Println("AuditService: Read context cancelled.")
					return
				}
				if errors.Is(err, io.EOF) {
					log.Println("AuditService: Kafka reader closed (EOF), stopping consumption.")
					return
				}
				if err != nil {
					log.Printf("AuditService: error reading message: %v", err)
					time.Sleep(1 * time.Second)
					continue
				}

				var payload events.TaskGeneratedPayload
				if err := json.Unmarshal(msg.Value, &payload); err != nil {
					log.Printf("AuditService: error unmarshalling task-generated payload: %v. Value: %s", err, string(msg.Value))
					continue
				}
				if err := s.Record(ctx, payload); err != nil {
					log.Printf("AuditService: failed to record event %s: %v", payload.EventID, err)
				}
			}
		}
	}()
}

// Record persists one event, dropping duplicates by event id.
func (s *AuditService) Record(ctx context.Context, payload events.TaskGeneratedPayload) error {
	exists, err := s.Records.ExistsByEventID(ctx, payload.EventID)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("AuditService: event %s already recorded, skipping.", payload.EventID)
		return nil
	}
	rec := &db.GenerationRecord{
		EventID:     payload.EventID,
		TaskID:      payload.TaskID,
		TemplateID:  payload.TemplateID,
		GroupID:     payload.GroupID,
		AssignedTo:  payload.AssignedTo,
		Source:      payload.Source,
		GeneratedAt: payload.GeneratedAt,
	}
	if err := s.Records.Create(ctx, rec); err != nil {
		return err
	}
	log.Printf("AuditService: recorded generation of task ID %d (event %s).", payload.TaskID, payload.EventID)
	return nil
}

func (s *AuditService) Close() {
	if s.Reader != nil {
		log.Println("AuditService: Closing Kafka reader.")
		s.Reader.Close()
	}
}
