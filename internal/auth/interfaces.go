package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskager/taskager/internal/user"
)

// TokenService defines the interface for session token creation and validation.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserStore defines the credential-store operations the auth workflow needs.
// Implemented by *user.Repository.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash, verificationTokenHash string, verificationExpiresAt time.Time) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByVerificationTokenHash(ctx context.Context, tokenHash string) (*user.User, error)
	MarkVerified(ctx context.Context, userID uuid.UUID) error
	UpdateVerificationToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*user.User, error)
	ClearResetToken(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, name, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error
}
