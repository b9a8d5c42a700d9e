package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"household-task-service/internal/task-manager/db"
	"household-task-service/internal/task-manager/events"
)

// TemplateStore is the slice of the template store the engine needs. The
// engine never updates any template column besides the rotation cursor and the
// last-generated timestamp, which is why the only write here is
// CommitGeneration.
type TemplateStore interface {
	FindByID(ctx context.Context, id uint) (*db.RecurringTaskTemplate, error)
	ListActiveByGroup(ctx context.Context, groupID uint) ([]db.RecurringTaskTemplate, error)
	CommitGeneration(ctx context.Context, id uint, cursor int, generatedAt *time.Time) error
}

// TaskStore is the engine's view of the task store: create only. Generated
// tasks are managed by ordinary task CRUD afterwards.
type TaskStore interface {
	Create(ctx context.Context, task *db.Task) error
}

// GroupDirectory validates acting users and assignees against group membership.
type GroupDirectory interface {
	IsMember(ctx context.Context, groupID uint, userID string) (bool, error)
	IsAdmin(ctx context.Context, groupID uint, userID string) (bool, error)
}

// EventProducer matches *kafka.Writer so tests can substitute a mock.
type EventProducer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.WriterStats
}

// GenerationFailure records a per-template error from a batch run.
type GenerationFailure struct {
	TemplateID uint   `json:"template_id"`
	Error      string `json:"error"`
}

// BatchResult is what a batch run produced: the tasks it created and the
// templates it gave up on.
type BatchResult struct {
	Created  []db.Task           `json:"created"`
	Failures []GenerationFailure `json:"failures"`
}

// GenerationService is the recurring-task engine. All collaborators are
// injected at construction; nothing is looked up from globals. Runs for the
// same group are serialized with a per-group mutex so interleaved requests
// cannot both pass the same-day guard inside one process. Across processes the
// guard remains a read-then-write check, and a stale template read can still
// produce a duplicate for the day.
type GenerationService struct {
	Templates TemplateStore
	Tasks     TaskStore
	Groups    GroupDirectory
	Producer  EventProducer // optional; generation never fails on publish errors

	// Now is the clock; tests pin it. Nil means time.Now.
	Now func() time.Time

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewGenerationService(templates TemplateStore, tasks TaskStore, groups GroupDirectory, producer EventProducer) *GenerationService {
	return &GenerationService{
		Templates: templates,
		Tasks:     tasks,
		Groups:    groups,
		Producer:  producer,
		locks:     make(map[uint]*sync.Mutex),
	}
}

func (s *GenerationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *GenerationService) lockGroup(groupID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[uint]*sync.Mutex)
	}
	l, ok := s.locks[groupID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[groupID] = l
	}
	return l
}

// RunDueGeneration is the lazy batch entry point, invoked as a side effect of
// listing a group's tasks. Any group member may trigger it. A failure on one
// template is recorded and the run moves on to the next; no per-template error
// ever escapes as the call's error.
func (s *GenerationService) RunDueGeneration(ctx context.Context, groupID uint, actingUserID string) (*BatchResult, error) {
	member, err := s.Groups.IsMember(ctx, groupID, actingUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: membership lookup: %v", ErrInternal, err)
	}
	if !member {
		return nil, fmt.Errorf("%w: user %s is not a member of group %d", ErrForbidden, actingUserID, groupID)
	}
	return s.runGroup(ctx, groupID)
}

// runGroup is the core batch loop, shared with the optional scheduled sweep
// (which acts with no user identity).
func (s *GenerationService) runGroup(ctx context.Context, groupID uint) (*BatchResult, error) {
	l := s.lockGroup(groupID)
	l.Lock()
	defer l.Unlock()

	templates, err := s.Templates.ListActiveByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading active templates for group %d: %v", ErrInternal, groupID, err)
	}

	result := &BatchResult{}
	for i := range templates {
		tmpl := &templates[i]
		today := s.now()
		if !isDue(tmpl, today) {
			continue
		}
		if shouldSkip(tmpl, today) {
			continue
		}
		task, err := s.generateOne(ctx, tmpl, nil, endOfDay(today), true)
		if err != nil {
			log.Printf("Generation failed for template ID %d in group %d: %v", tmpl.ID, groupID, err)
			result.Failures = append(result.Failures, GenerationFailure{TemplateID: tmpl.ID, Error: err.Error()})
			continue
		}
		result.Created = append(result.Created, *task)
	}
	return result, nil
}

// GenerateNow is the manual path: admins generate a single task from a
// template on demand, ignoring due-ness and the same-day guard. The rotation
// cursor is committed exactly as in the batch path, but the last-generated
// timestamp is left alone, so manual runs never feed the biweekly gate.
func (s *GenerationService) GenerateNow(ctx context.Context, groupID, templateID uint, actingUserID string, overrideAssignee *string) (*db.Task, error) {
	admin, err := s.Groups.IsAdmin(ctx, groupID, actingUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: role lookup: %v", ErrInternal, err)
	}
	if !admin {
		return nil, fmt.Errorf("%w: user %s cannot generate tasks for group %d", ErrForbidden, actingUserID, groupID)
	}

	l := s.lockGroup(groupID)
	l.Lock()
	defer l.Unlock()

	tmpl, err := s.Templates.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: template %d", ErrNotFound, templateID)
		}
		return nil, fmt.Errorf("%w: loading template %d: %v", ErrInternal, templateID, err)
	}
	if tmpl.GroupID != groupID {
		return nil, fmt.Errorf("%w: template %d in group %d", ErrNotFound, templateID, groupID)
	}
	if !tmpl.IsActive {
		return nil, fmt.Errorf("%w: template %d is not active", ErrValidation, templateID)
	}

	if overrideAssignee != nil {
		member, err := s.Groups.IsMember(ctx, groupID, *overrideAssignee)
		if err != nil {
			return nil, fmt.Errorf("%w: membership lookup: %v", ErrInternal, err)
		}
		if !member {
			return nil, fmt.Errorf("%w: override assignee %s is not a member of group %d", ErrValidation, *overrideAssignee, groupID)
		}
	}

	return s.generateOne(ctx, tmpl, overrideAssignee, nextDueDate(tmpl, s.now()), false)
}

// generateOne resolves the assignee and materializes a single task. The
// template commit (rotation cursor, and for batch runs the last-generated
// stamp) happens only after the task row exists; a task-store failure leaves
// the template untouched. The two writes are a best-effort sequence, not a
// transaction: a template-commit failure after task creation is surfaced as an
// error with the task row already persisted.
func (s *GenerationService) generateOne(ctx context.Context, tmpl *db.RecurringTaskTemplate, overrideAssignee *string, dueAt time.Time, stampGeneratedAt bool) (*db.Task, error) {
	asg, err := resolveAssignment(tmpl, overrideAssignee)
	if err != nil {
		return nil, err
	}

	attachments := make([]db.Attachment, len(tmpl.Attachments))
	copy(attachments, tmpl.Attachments)

	task := &db.Task{
		GroupID:             tmpl.GroupID,
		Title:               tmpl.Title,
		Description:         tmpl.Description,
		Priority:            tmpl.Priority,
		Status:              db.TaskStatusInProgress,
		AssignedTo:          asg.Assignee,
		DueAt:               &dueAt,
		RecurringTemplateID: &tmpl.ID,
		ParentTaskID:        nil,
		LinkedTasks:         []uint{},
		CompletionProof:     nil,
		Attachments:         attachments,
		CreatedBy:           tmpl.CreatedBy,
	}
	if err := s.Tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("%w: creating task from template %d: %v", ErrInternal, tmpl.ID, err)
	}

	cursor := tmpl.CurrentRotationIndex
	if asg.Advance {
		cursor = asg.NextCursor
	}
	var generatedAt *time.Time
	source := db.GenerationSourceManual
	if stampGeneratedAt {
		day := startOfDay(s.now())
		generatedAt = &day
		source = db.GenerationSourceBatch
	}
	if err := s.Templates.CommitGeneration(ctx, tmpl.ID, cursor, generatedAt); err != nil {
		// The task row already exists; without a cross-store transaction this
		// leaves the template one commit behind.
		log.Printf("Task ID %d created but template ID %d commit failed: %v", task.ID, tmpl.ID, err)
		return nil, fmt.Errorf("%w: committing generation on template %d: %v", ErrInternal, tmpl.ID, err)
	}
	tmpl.CurrentRotationIndex = cursor
	if generatedAt != nil {
		tmpl.LastGeneratedAt = generatedAt
	}

	s.publishGenerated(ctx, task, source)
	return task, nil
}

// publishGenerated emits the task-generated event. Publishing is best effort:
// a broker error is logged and the generated task stands.
func (s *GenerationService) publishGenerated(ctx context.Context, task *db.Task, source string) {
	if s.Producer == nil {
		return
	}
	payload := events.TaskGeneratedPayload{
		EventID:     uuid.NewString(),
		TaskID:      task.ID,
		TemplateID:  *task.RecurringTemplateID,
		GroupID:     task.GroupID,
		AssignedTo:  task.AssignedTo,
		Source:      source,
		DueAt:       task.DueAt,
		GeneratedAt: s.now(),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshalling TaskGeneratedPayload for task ID %d: %v", task.ID, err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(task.ID), 10)),
		Value: payloadBytes,
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.Producer.WriteMessages(writeCtx, msg); err != nil {
		log.Printf("Error publishing task-generated event for task ID %d: %v", task.ID, err)
		return
	}
	log.Printf("Task ID %d generation event published (source: %s)", task.ID, source)
}
