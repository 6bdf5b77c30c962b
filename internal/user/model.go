package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	IsVerified   bool      `json:"isVerified"`

	VerificationTokenHash      *string    `json:"-"`
	VerificationTokenExpiresAt *time.Time `json:"-"`
	ResetTokenHash             *string    `json:"-"`
	ResetTokenExpiresAt        *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
