package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"household-task-service/internal/task-manager/db"
)

var validFrequencies = map[string]bool{
	db.FrequencyDaily:    true,
	db.FrequencyWeekly:   true,
	db.FrequencyBiweekly: true,
	db.FrequencyMonthly:  true,
}

var validStrategies = map[string]bool{
	db.StrategyFixed:    true,
	db.StrategyRotation: true,
	db.StrategyNone:     true,
}

var validPriorities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// CreateTemplateInput carries a new template. Assignee membership, enums, and
// due-day ranges are validated before anything is written.
type CreateTemplateInput struct {
	Title              string
	Description        string
	Priority           string
	Frequency          string
	AssignmentStrategy string
	FixedAssignee      *string
	RotationOrder      []string
	DueDays            []int
	Attachments        []db.Attachment
}

// TemplateService owns recurring-template CRUD: validation and the admin/owner
// authorization that guards every mutation. Generation itself lives in
// GenerationService.
type TemplateService struct {
	Templates *db.TemplateStore
	Groups    *db.GroupStore
}

func NewTemplateService(templates *db.TemplateStore, groups *db.GroupStore) *TemplateService {
	return &TemplateService{Templates: templates, Groups: groups}
}

func (s *TemplateService) requireAdmin(ctx context.Context, groupID uint, userID string) error {
	admin, err := s.Groups.IsAdmin(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("%w: role lookup: %v", ErrInternal, err)
	}
	if !admin {
		return fmt.Errorf("%w: user %s cannot manage templates of group %d", ErrForbidden, userID, groupID)
	}
	return nil
}

func (s *TemplateService) requireMember(ctx context.Context, groupID uint, userID string) error {
	member, err := s.Groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("%w: membership lookup: %v", ErrInternal, err)
	}
	if !member {
		return fmt.Errorf("%w: user %s is not a member of group %d", ErrForbidden, userID, groupID)
	}
	return nil
}

// validateTemplate checks the full resulting state of a template, so it works
// for both creates and applied partial updates.
func (s *TemplateService) validateTemplate(ctx context.Context, tmpl *db.RecurringTaskTemplate) error {
	if tmpl.Title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if !validFrequencies[tmpl.Frequency] {
		return fmt.Errorf("%w: unknown frequency %q", ErrValidation, tmpl.Frequency)
	}
	if !validStrategies[tmpl.AssignmentStrategy] {
		return fmt.Errorf("%w: unknown assignment strategy %q", ErrValidation, tmpl.AssignmentStrategy)
	}
	if !validPriorities[tmpl.Priority] {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, tmpl.Priority)
	}
	if tmpl.AssignmentStrategy == db.StrategyRotation && len(tmpl.RotationOrder) == 0 {
		return fmt.Errorf("%w: rotation strategy requires a non-empty rotation order", ErrValidation)
	}
	if tmpl.CurrentRotationIndex != 0 && tmpl.CurrentRotationIndex >= len(tmpl.RotationOrder) {
		return fmt.Errorf("%w: rotation cursor %d out of range", ErrValidation, tmpl.CurrentRotationIndex)
	}
	switch tmpl.Frequency {
	case db.FrequencyWeekly, db.FrequencyBiweekly:
		for _, d := range tmpl.DueDays {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: weekday %d out of range 0-6", ErrValidation, d)
			}
		}
	case db.FrequencyMonthly:
		for _, d := range tmpl.DueDays {
			if d < 1 || d > 31 {
				return fmt.Errorf("%w: day of month %d out of range 1-31", ErrValidation, d)
			}
		}
	}
	if tmpl.FixedAssignee != nil {
		member, err := s.Groups.IsMember(ctx, tmpl.GroupID, *tmpl.FixedAssignee)
		if err != nil {
			return fmt.Errorf("%w: membership lookup: %v", ErrInternal, err)
		}
		if !member {
			return fmt.Errorf("%w: fixed assignee %s is not a member of group %d", ErrValidation, *tmpl.FixedAssignee, tmpl.GroupID)
		}
	}
	return nil
}

func (s *TemplateService) Create(ctx context.Context, groupID uint, actingUserID string, in CreateTemplateInput) (*db.RecurringTaskTemplate, error) {
	if _, err := s.Groups.FindGroup(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group %d", ErrNotFound, groupID)
		}
		return nil, fmt.Errorf("%w: loading group %d: %v", ErrInternal, groupID, err)
	}
	if err := s.requireAdmin(ctx, groupID, actingUserID); err != nil {
		return nil, err
	}

	priority := in.Priority
	if priority == "" {
		priority = "medium"
	}
	tmpl := &db.RecurringTaskTemplate{
		GroupID:              groupID,
		Title:                in.Title,
		Description:          in.Description,
		Priority:             priority,
		Frequency:            in.Frequency,
		AssignmentStrategy:   in.AssignmentStrategy,
		FixedAssignee:        in.FixedAssignee,
		RotationOrder:        in.RotationOrder,
		CurrentRotationIndex: 0,
		DueDays:              in.DueDays,
		IsActive:             true,
		CreatedBy:            actingUserID,
		Attachments:          in.Attachments,
	}
	if err := s.validateTemplate(ctx, tmpl); err != nil {
		return nil, err
	}
	if err := s.Templates.Create(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("%w: creating template: %v", ErrInternal, err)
	}
	return tmpl, nil
}

// Update applies a partial update. The candidate state is validated before the
// write, so a fixed assignee outside the group is rejected, never stored.
func (s *TemplateService) Update(ctx context.Context, templateID uint, actingUserID string, upd db.TemplateUpdate) (*db.RecurringTaskTemplate, error) {
	tmpl, err := s.findTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, tmpl.GroupID, actingUserID); err != nil {
		return nil, err
	}

	candidate := *tmpl
	upd.ApplyTo(&candidate)
	if err := s.validateTemplate(ctx, &candidate); err != nil {
		return nil, err
	}
	if err := s.Templates.Update(ctx, templateID, upd.Fields()); err != nil {
		return nil, fmt.Errorf("%w: updating template %d: %v", ErrInternal, templateID, err)
	}
	return s.findTemplate(ctx, templateID)
}

// Delete hard-deletes a template. Generated tasks keep their backlink value;
// nothing cascades.
func (s *TemplateService) Delete(ctx context.Context, templateID uint, actingUserID string) error {
	tmpl, err := s.findTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, tmpl.GroupID, actingUserID); err != nil {
		return err
	}
	if err := s.Templates.Delete(ctx, templateID); err != nil {
		return fmt.Errorf("%w: deleting template %d: %v", ErrInternal, templateID, err)
	}
	return nil
}

func (s *TemplateService) Get(ctx context.Context, templateID uint, actingUserID string) (*db.RecurringTaskTemplate, error) {
	tmpl, err := s.findTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, tmpl.GroupID, actingUserID); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (s *TemplateService) ListByGroup(ctx context.Context, groupID uint, actingUserID string) ([]db.RecurringTaskTemplate, error) {
	if err := s.requireMember(ctx, groupID, actingUserID); err != nil {
		return nil, err
	}
	templates, err := s.Templates.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing templates of group %d: %v", ErrInternal, groupID, err)
	}
	return templates, nil
}

func (s *TemplateService) findTemplate(ctx context.Context, templateID uint) (*db.RecurringTaskTemplate, error) {
	tmpl, err := s.Templates.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: template %d", ErrNotFound, templateID)
		}
		return nil, fmt.Errorf("%w: loading template %d: %v", ErrInternal, templateID, err)
	}
	return tmpl, nil
}
