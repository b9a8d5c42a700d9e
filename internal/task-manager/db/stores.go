package db

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TemplateUpdate is the partial-update value object for recurring task
// templates. Field absent = leave unchanged; FixedAssignee set to null clears
// the stored assignee.
type TemplateUpdate struct {
	Title              Optional[string]       `json:"title"`
	Description        Optional[string]       `json:"description"`
	Priority           Optional[string]       `json:"priority"`
	Frequency          Optional[string]       `json:"frequency"`
	AssignmentStrategy Optional[string]       `json:"assignment_strategy"`
	FixedAssignee      Optional[string]       `json:"fixed_assignee"`
	RotationOrder      Optional[[]string]     `json:"rotation_order"`
	DueDays            Optional[[]int]        `json:"due_days"`
	IsActive           Optional[bool]         `json:"is_active"`
	Attachments        Optional[[]Attachment] `json:"attachments"`
}

// ApplyTo mutates tmpl in memory so the resulting state can be validated
// before anything is written.
func (u TemplateUpdate) ApplyTo(tmpl *RecurringTaskTemplate) {
	if u.Title.Set && u.Title.Value != nil {
		tmpl.Title = *u.Title.Value
	}
	if u.Description.Set && u.Description.Value != nil {
		tmpl.Description = *u.Description.Value
	}
	if u.Priority.Set && u.Priority.Value != nil {
		tmpl.Priority = *u.Priority.Value
	}
	if u.Frequency.Set && u.Frequency.Value != nil {
		tmpl.Frequency = *u.Frequency.Value
	}
	if u.AssignmentStrategy.Set && u.AssignmentStrategy.Value != nil {
		tmpl.AssignmentStrategy = *u.AssignmentStrategy.Value
	}
	if u.FixedAssignee.Set {
		tmpl.FixedAssignee = u.FixedAssignee.Value
	}
	if u.RotationOrder.Set {
		var order []string
		if u.RotationOrder.Value != nil {
			order = *u.RotationOrder.Value
		}
		tmpl.RotationOrder = order
		tmpl.CurrentRotationIndex = 0
	}
	if u.DueDays.Set {
		var days []int
		if u.DueDays.Value != nil {
			days = *u.DueDays.Value
		}
		tmpl.DueDays = days
	}
	if u.IsActive.Set && u.IsActive.Value != nil {
		tmpl.IsActive = *u.IsActive.Value
	}
	if u.Attachments.Set {
		var atts []Attachment
		if u.Attachments.Value != nil {
			atts = *u.Attachments.Value
		}
		tmpl.Attachments = atts
	}
}

// Fields builds the column map for a gorm Updates call. Only keys for fields
// that were present in the payload appear in the map.
func (u TemplateUpdate) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if u.Title.Set && u.Title.Value != nil {
		fields["title"] = *u.Title.Value
	}
	if u.Description.Set && u.Description.Value != nil {
		fields["description"] = *u.Description.Value
	}
	if u.Priority.Set && u.Priority.Value != nil {
		fields["priority"] = *u.Priority.Value
	}
	if u.Frequency.Set && u.Frequency.Value != nil {
		fields["frequency"] = *u.Frequency.Value
	}
	if u.AssignmentStrategy.Set && u.AssignmentStrategy.Value != nil {
		fields["assignment_strategy"] = *u.AssignmentStrategy.Value
	}
	if u.FixedAssignee.Set {
		if u.FixedAssignee.Value == nil {
			fields["fixed_assignee"] = nil
		} else {
			fields["fixed_assignee"] = *u.FixedAssignee.Value
		}
	}
	if u.RotationOrder.Set {
		var order []string
		if u.RotationOrder.Value != nil {
			order = *u.RotationOrder.Value
		}
		fields["rotation_order"] = datatypes.JSONSlice[string](order)
		// Replacing the rotation order invalidates the old cursor.
		fields["current_rotation_index"] = 0
	}
	if u.DueDays.Set {
		var days []int
		if u.DueDays.Value != nil {
			days = *u.DueDays.Value
		}
		fields["due_days"] = datatypes.JSONSlice[int](days)
	}
	if u.IsActive.Set && u.IsActive.Value != nil {
		fields["is_active"] = *u.IsActive.Value
	}
	if u.Attachments.Set {
		var atts []Attachment
		if u.Attachments.Value != nil {
			atts = *u.Attachments.Value
		}
		fields["attachments"] = datatypes.JSONSlice[Attachment](atts)
	}
	return fields
}

// TemplateStore persists recurring task templates.
type TemplateStore struct {
	DB *gorm.DB
}

func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{DB: db}
}

func (s *TemplateStore) Create(ctx context.Context, tmpl *RecurringTaskTemplate) error {
	return s.DB.WithContext(ctx).Create(tmpl).Error
}

func (s *TemplateStore) FindByID(ctx context.Context, id uint) (*RecurringTaskTemplate, error) {
	var tmpl RecurringTaskTemplate
	if err := s.DB.WithContext(ctx).First(&tmpl, id).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (s *TemplateStore) ListByGroup(ctx context.Context, groupID uint) ([]RecurringTaskTemplate, error) {
	var templates []RecurringTaskTemplate
	err := s.DB.WithContext(ctx).Where("group_id = ?", groupID).Order("id").Find(&templates).Error
	return templates, err
}

func (s *TemplateStore) ListActiveByGroup(ctx context.Context, groupID uint) ([]RecurringTaskTemplate, error) {
	var templates []RecurringTaskTemplate
	err := s.DB.WithContext(ctx).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Order("id").
		Find(&templates).Error
	return templates, err
}

func (s *TemplateStore) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Model(&RecurringTaskTemplate{}).Where("id = ?", id).Updates(fields).Error
}

// CommitGeneration advances the rotation cursor and, for the batch path, stamps
// last_generated_at. These are the only two template columns the generation
// engine is allowed to touch.
func (s *TemplateStore) CommitGeneration(ctx context.Context, id uint, cursor int, generatedAt *time.Time) error {
	fields := map[string]interface{}{"current_rotation_index": cursor}
	if generatedAt != nil {
		fields["last_generated_at"] = *generatedAt
	}
	return s.DB.WithContext(ctx).Model(&RecurringTaskTemplate{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes the template row for good. Generated tasks keep their
// recurring_template_id value; nothing cascades.
func (s *TemplateStore) Delete(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Unscoped().Delete(&RecurringTaskTemplate{}, id).Error
}

// TaskStore persists concrete task instances.
type TaskStore struct {
	DB *gorm.DB
}

func NewTaskStore(db *gorm.DB) *TaskStore {
	return &TaskStore{DB: db}
}

func (s *TaskStore) Create(ctx context.Context, task *Task) error {
	return s.DB.WithContext(ctx).Create(task).Error
}

func (s *TaskStore) FindByID(ctx context.Context, id uint) (*Task, error) {
	var task Task
	if err := s.DB.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskStore) ListByGroup(ctx context.Context, groupID uint) ([]Task, error) {
	var tasks []Task
	err := s.DB.WithContext(ctx).Where("group_id = ?", groupID).Order("id").Find(&tasks).Error
	return tasks, err
}

// GroupStore is the membership directory: group records plus role lookups.
type GroupStore struct {
	DB *gorm.DB
}

func NewGroupStore(db *gorm.DB) *GroupStore {
	return &GroupStore{DB: db}
}

func (s *GroupStore) CreateGroup(ctx context.Context, group *Group) error {
	return s.DB.WithContext(ctx).Create(group).Error
}

func (s *GroupStore) FindGroup(ctx context.Context, id uint) (*Group, error) {
	var group Group
	if err := s.DB.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *GroupStore) AddMember(ctx context.Context, member *GroupMember) error {
	return s.DB.WithContext(ctx).Create(member).Error
}

func (s *GroupStore) IsMember(ctx context.Context, groupID uint, userID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// IsAdmin reports whether userID holds the admin or owner role in the group.
func (s *GroupStore) IsAdmin(ctx context.Context, groupID uint, userID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&GroupMember{}).
		Where("group_id = ? AND user_id = ? AND role IN ?", groupID, userID, []string{RoleAdmin, RoleOwner}).
		Count(&count).Error
	return count > 0, err
}

// ListGroupIDs is used by the optional generation sweep to visit every group.
func (s *GroupStore) ListGroupIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.DB.WithContext(ctx).Model(&Group{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// GenerationRecordStore persists the audit trail written by the event consumer.
type GenerationRecordStore struct {
	DB *gorm.DB
}

func NewGenerationRecordStore(db *gorm.DB) *GenerationRecordStore {
	return &GenerationRecordStore{DB: db}
}

func (s *GenerationRecordStore) Create(ctx context.Context, rec *GenerationRecord) error {
	return s.DB.WithContext(ctx).Create(rec).Error
}

func (s *GenerationRecordStore) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&GenerationRecord{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count > 0, err
}

func (s *GenerationRecordStore) ListByGroup(ctx context.Context, groupID uint) ([]GenerationRecord, error) {
	var records []GenerationRecord
	err := s.DB.WithContext(ctx).Where("group_id = ?", groupID).Order("id").Find(&records).Error
	return records, err
}
