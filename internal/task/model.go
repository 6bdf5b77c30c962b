package task

import (
	"time"

	"github.com/google/uuid"
)

// Priority levels a task can carry.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a single to-do item owned by exactly one user. DueDate and DueTime
// are kept as validated strings ("2006-01-02", "15:04") so they round-trip
// through the API unchanged. CompletedAt holds the completion date and is
// cleared whenever the task returns to pending.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     string    `json:"dueDate"`
	DueTime     string    `json:"dueTime"`
	Priority    Priority  `json:"priority"`
	Completed   bool      `json:"completed"`
	CompletedAt *string   `json:"completedAt"`

	UserID    uuid.UUID `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000

	dueDateLayout = "2006-01-02"
	dueTimeLayout = "15:04"
)
