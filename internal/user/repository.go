package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/taskager/taskager/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new unverified user. Emails are stored lowercased so the
// unique constraint doubles as a case-insensitive check.
func (r *Repository) Create(ctx context.Context, name, email, passwordHash, verificationTokenHash string, verificationExpiresAt time.Time) (*User, error) {
	dbUser := &database.User{
		Name:                       name,
		Email:                      strings.ToLower(email),
		PasswordHash:               passwordHash,
		IsVerified:                 false,
		VerificationTokenHash:      &verificationTokenHash,
		VerificationTokenExpiresAt: &verificationExpiresAt,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", strings.ToLower(email)).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByVerificationTokenHash retrieves an unverified user whose stored
// verification token hash matches and has not expired.
func (r *Repository) GetByVerificationTokenHash(ctx context.Context, tokenHash string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("verification_token_hash = ?", tokenHash).
		Where("verification_token_expires_at > ?", time.Now()).
		Where("is_verified = ?", false).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by verification token: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkVerified flags the user verified and clears the verification token so
// the token cannot be replayed.
func (r *Repository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("is_verified = ?", true).
		Set("verification_token_hash = ?", nil).
		Set("verification_token_expires_at = ?", nil).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to mark user as verified: %w", err)
	}

	return requireRowsAffected(result)
}

// UpdateVerificationToken reissues the verification token for an unverified user.
func (r *Repository) UpdateVerificationToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("verification_token_hash = ?", tokenHash).
		Set("verification_token_expires_at = ?", expiresAt).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("is_verified = ?", false).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update verification token: %w", err)
	}

	return requireRowsAffected(result)
}

// SetResetToken stores a password reset token hash with its expiry.
func (r *Repository) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("reset_token_hash = ?", tokenHash).
		Set("reset_token_expires_at = ?", expiresAt).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	return requireRowsAffected(result)
}

// GetByResetTokenHash retrieves a user by an unexpired reset token hash.
func (r *Repository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("reset_token_hash = ?", tokenHash).
		Where("reset_token_expires_at > ?", time.Now()).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// ClearResetToken removes the reset token pair after use.
func (r *Repository) ClearResetToken(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("reset_token_hash = ?", nil).
		Set("reset_token_expires_at = ?", nil).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}

	return nil
}

// UpdatePassword updates a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireRowsAffected(result)
}

// Delete removes a user record. Used as the compensating action when the
// verification email cannot be delivered during registration.
func (r *Repository) Delete(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return requireRowsAffected(result)
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                         dbu.ID,
		Name:                       dbu.Name,
		Email:                      dbu.Email,
		PasswordHash:               dbu.PasswordHash,
		IsVerified:                 dbu.IsVerified,
		VerificationTokenHash:      dbu.VerificationTokenHash,
		VerificationTokenExpiresAt: dbu.VerificationTokenExpiresAt,
		ResetTokenHash:             dbu.ResetTokenHash,
		ResetTokenExpiresAt:        dbu.ResetTokenExpiresAt,
		CreatedAt:                  dbu.CreatedAt,
		UpdatedAt:                  dbu.UpdatedAt,
	}
}
