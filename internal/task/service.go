package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskager/taskager/internal/logging"
)

var (
	ErrNotFound  = errors.New("task not found")
	ErrForbidden = errors.New("not authorized to access this task")
)

// ValidationError reports invalid or missing task input.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Store defines the persistence operations the task service needs.
// Implemented by *Repository.
type Store interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Task, error)
	GetByID(ctx context.Context, taskID uuid.UUID) (*Task, error)
	Create(ctx context.Context, t *Task) (*Task, error)
	Update(ctx context.Context, t *Task) (*Task, error)
	Delete(ctx context.Context, taskID uuid.UUID) error
}

// CreateInput carries the fields for a new task.
type CreateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"dueDate"`
	DueTime     string   `json:"dueTime"`
	Priority    Priority `json:"priority"`
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	DueDate     *string   `json:"dueDate"`
	DueTime     *string   `json:"dueTime"`
	Priority    *Priority `json:"priority"`
	Completed   *bool     `json:"completed"`
}

// Service enforces per-user ownership over the task store. Every operation
// takes the authenticated caller's id and refuses to touch tasks owned by
// anyone else before any mutation or data return.
type Service struct {
	store  Store
	logger *logging.Logger

	// now is swappable in tests; completedAt derives from it.
	now func() time.Time
}

func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// List returns all of the owner's tasks, newest first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]Task, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Get returns a single task after the ownership check.
func (s *Service) Get(ctx context.Context, ownerID, taskID uuid.UUID) (*Task, error) {
	return s.getOwned(ctx, ownerID, taskID)
}

// Create validates the input and stores a new task for the owner. Priority
// defaults to Medium when omitted.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*Task, error) {
	t := Task{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		DueDate:     strings.TrimSpace(in.DueDate),
		DueTime:     strings.TrimSpace(in.DueTime),
		Priority:    in.Priority,
		UserID:      ownerID,
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	if err := validateTask(&t); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, &t)
	if err != nil {
		return nil, err
	}

	s.logger.Info("task created", "task_id", created.ID, "user_id", ownerID)
	return created, nil
}

// Update applies a partial update to an owned task. Changing the completed
// flag through here keeps completedAt consistent with the transition.
func (s *Service) Update(ctx context.Context, ownerID, taskID uuid.UUID, in UpdateInput) (*Task, error) {
	t, err := s.getOwned(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = strings.TrimSpace(*in.Description)
	}
	if in.DueDate != nil {
		t.DueDate = strings.TrimSpace(*in.DueDate)
	}
	if in.DueTime != nil {
		t.DueTime = strings.TrimSpace(*in.DueTime)
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.Completed != nil && *in.Completed != t.Completed {
		s.setCompleted(t, *in.Completed)
	}

	if err := validateTask(t); err != nil {
		return nil, err
	}

	return s.store.Update(ctx, t)
}

// ToggleCompletion flips the completed flag. Completing stamps completedAt
// with today's date; reopening clears it.
func (s *Service) ToggleCompletion(ctx context.Context, ownerID, taskID uuid.UUID) (*Task, error) {
	t, err := s.getOwned(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	s.setCompleted(t, !t.Completed)

	return s.store.Update(ctx, t)
}

// Delete removes an owned task.
func (s *Service) Delete(ctx context.Context, ownerID, taskID uuid.UUID) error {
	if _, err := s.getOwned(ctx, ownerID, taskID); err != nil {
		return err
	}

	return s.store.Delete(ctx, taskID)
}

// getOwned loads a task and verifies the caller owns it.
func (s *Service) getOwned(ctx context.Context, ownerID, taskID uuid.UUID) (*Task, error) {
	t, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.UserID != ownerID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *Service) setCompleted(t *Task, completed bool) {
	t.Completed = completed
	if completed {
		today := s.now().Format(dueDateLayout)
		t.CompletedAt = &today
	} else {
		t.CompletedAt = nil
	}
}

func validateTask(t *Task) error {
	if t.Title == "" {
		return validationErrorf("task title is required")
	}
	if len(t.Title) > maxTitleLen {
		return validationErrorf("title cannot be more than %d characters", maxTitleLen)
	}
	if t.Description == "" {
		return validationErrorf("task description is required")
	}
	if len(t.Description) > maxDescriptionLen {
		return validationErrorf("description cannot be more than %d characters", maxDescriptionLen)
	}
	if t.DueDate == "" {
		return validationErrorf("due date is required")
	}
	if _, err := time.Parse(dueDateLayout, t.DueDate); err != nil {
		return validationErrorf("due date must be in YYYY-MM-DD format")
	}
	if t.DueTime == "" {
		return validationErrorf("due time is required")
	}
	if _, err := time.Parse(dueTimeLayout, t.DueTime); err != nil {
		return validationErrorf("due time must be in HH:MM format")
	}
	if !t.Priority.Valid() {
		return validationErrorf("priority must be one of Low, Medium, High")
	}
	return nil
}
