package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the bun row model backing internal/user.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name         string    `bun:"name,notnull"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	IsVerified   bool      `bun:"is_verified,notnull,default:false"`

	// Single-use tokens are stored only as sha256 hashes; both pairs are
	// NULLed when consumed.
	VerificationTokenHash      *string    `bun:"verification_token_hash"`
	VerificationTokenExpiresAt *time.Time `bun:"verification_token_expires_at"`
	ResetTokenHash             *string    `bun:"reset_token_hash"`
	ResetTokenExpiresAt        *time.Time `bun:"reset_token_expires_at"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Task is the bun row model backing internal/task.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull"`
	DueDate     string    `bun:"due_date,notnull"`
	DueTime     string    `bun:"due_time,notnull"`
	Priority    string    `bun:"priority,notnull,default:'Medium'"`
	Completed   bool      `bun:"completed,notnull,default:false"`
	CompletedAt *string   `bun:"completed_at"`
	UserID      uuid.UUID `bun:"user_id,notnull,type:uuid"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
