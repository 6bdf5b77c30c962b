package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/taskager/taskager/internal/database"
)

// Repository handles task persistence. Ownership decisions live in the
// service; the repository only fetches and mutates rows.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// ListByOwner returns the owner's tasks, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Task, error) {
	var dbTasks []database.Task
	err := r.db.NewSelect().
		Model(&dbTasks).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]Task, 0, len(dbTasks))
	for i := range dbTasks {
		tasks = append(tasks, *mapDBTaskToModel(&dbTasks[i]))
	}
	return tasks, nil
}

// GetByID retrieves a task by ID regardless of owner.
func (r *Repository) GetByID(ctx context.Context, taskID uuid.UUID) (*Task, error) {
	dbTask := new(database.Task)
	err := r.db.NewSelect().
		Model(dbTask).
		Where("id = ?", taskID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// Create inserts a new task and fills in the generated fields.
func (r *Repository) Create(ctx context.Context, t *Task) (*Task, error) {
	dbTask := mapModelToDBTask(t)

	_, err := r.db.NewInsert().
		Model(dbTask).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// Update persists the mutable fields of a task. Last write wins on
// concurrent updates to the same row.
func (r *Repository) Update(ctx context.Context, t *Task) (*Task, error) {
	dbTask := mapModelToDBTask(t)

	result, err := r.db.NewUpdate().
		Model(dbTask).
		Column("title", "description", "due_date", "due_time", "priority", "completed", "completed_at").
		Set("updated_at = NOW()").
		Where("id = ?", t.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return t, nil
}

// Delete removes a task row.
func (r *Repository) Delete(ctx context.Context, taskID uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id = ?", taskID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func mapDBTaskToModel(dbt *database.Task) *Task {
	return &Task{
		ID:          dbt.ID,
		Title:       dbt.Title,
		Description: dbt.Description,
		DueDate:     dbt.DueDate,
		DueTime:     dbt.DueTime,
		Priority:    Priority(dbt.Priority),
		Completed:   dbt.Completed,
		CompletedAt: dbt.CompletedAt,
		UserID:      dbt.UserID,
		CreatedAt:   dbt.CreatedAt,
		UpdatedAt:   dbt.UpdatedAt,
	}
}

func mapModelToDBTask(t *Task) *database.Task {
	return &database.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		DueTime:     t.DueTime,
		Priority:    string(t.Priority),
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
