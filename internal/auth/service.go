package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskager/taskager/internal/logging"
	"github.com/taskager/taskager/internal/user"
)

var (
	ErrMissingFields         = errors.New("please provide all required fields")
	ErrInvalidEmailFormat    = errors.New("invalid email format")
	ErrPasswordTooShort      = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrEmailNotVerified      = errors.New("please verify your email before logging in")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired verification token")
	ErrAlreadyVerified       = errors.New("email is already verified")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailDeliveryFailed   = errors.New("failed to send verification email")
)

const (
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = 10 * time.Minute
)

// Session is an issued session token with the user it authenticates.
type Session struct {
	Token string
	User  *user.User
}

// RegisterResult describes the outcome of a registration. Session is non-nil
// only on the auto-verify fallback path.
type RegisterResult struct {
	User         *user.User
	Session      *Session
	AutoVerified bool
}

// Service handles authentication business logic
type Service struct {
	users           UserStore
	tokens          TokenService
	mailer          EmailService // nil when no email provider is configured
	logger          *logging.Logger
	sessionDuration time.Duration
}

// NewService wires the auth workflow. A nil mailer selects the auto-verify
// fallback: registrations skip email verification entirely.
func NewService(
	users UserStore,
	tokens TokenService,
	mailer EmailService,
	logger *logging.Logger,
	sessionDuration time.Duration,
) *Service {
	return &Service{
		users:           users,
		tokens:          tokens,
		mailer:          mailer,
		logger:          logger,
		sessionDuration: sessionDuration,
	}
}

// Register creates a new user account in the unverified state and dispatches
// a verification email. If dispatch fails the user record is rolled back so
// no unverifiable accounts accumulate. Without a configured mailer the user
// is verified immediately and handed a session token.
func (s *Service) Register(ctx context.Context, name, email, password string) (*RegisterResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	newUser, err := s.users.Create(ctx, name, email, passwordHash, hashToken(verificationToken), time.Now().Add(verificationTokenTTL))
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.mailer == nil {
		return s.autoVerify(ctx, newUser)
	}

	// The send is awaited, unlike other flows: its outcome decides whether
	// the freshly created user survives.
	if err := s.mailer.SendVerificationEmail(ctx, newUser.Email, newUser.Name, verificationToken); err != nil {
		s.logger.Warn("verification email failed, rolling back registration", "email", newUser.Email, "error", err)
		if delErr := s.users.Delete(ctx, newUser.ID); delErr != nil {
			s.logger.Error("failed to roll back user after email failure", "user_id", newUser.ID, "error", delErr)
		}
		return nil, ErrEmailDeliveryFailed
	}

	return &RegisterResult{User: newUser}, nil
}

func (s *Service) autoVerify(ctx context.Context, newUser *user.User) (*RegisterResult, error) {
	s.logger.Warn("email not configured, auto-verifying user", "email", newUser.Email)

	if err := s.users.MarkVerified(ctx, newUser.ID); err != nil {
		return nil, fmt.Errorf("failed to auto-verify user: %w", err)
	}
	newUser.IsVerified = true
	newUser.VerificationTokenHash = nil
	newUser.VerificationTokenExpiresAt = nil

	token, err := s.tokens.CreateToken(newUser.ID, newUser.Email, s.sessionDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return &RegisterResult{
		User:         newUser,
		Session:      &Session{Token: token, User: newUser},
		AutoVerified: true,
	}, nil
}

// VerifyEmail consumes a verification token: the matching unverified user is
// marked verified, the token fields are cleared, and a session is issued.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) (*Session, error) {
	existingUser, err := s.users.GetByVerificationTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("failed to find user by token: %w", err)
	}

	if err := s.users.MarkVerified(ctx, existingUser.ID); err != nil {
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}
	existingUser.IsVerified = true
	existingUser.VerificationTokenHash = nil
	existingUser.VerificationTokenExpiresAt = nil

	token, err := s.tokens.CreateToken(existingUser.ID, existingUser.Email, s.sessionDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return &Session{Token: token, User: existingUser}, nil
}

// Login authenticates a user and issues a session token. Unknown email and
// wrong password produce the same error so accounts cannot be enumerated.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !existingUser.IsVerified {
		return nil, ErrEmailNotVerified
	}

	token, err := s.tokens.CreateToken(existingUser.ID, existingUser.Email, s.sessionDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return &Session{Token: token, User: existingUser}, nil
}

// ResendVerification reissues the verification token and dispatches a fresh
// email. Delivery failure propagates; no user state is rolled back here.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrMissingFields
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if existingUser.IsVerified {
		return ErrAlreadyVerified
	}

	// Without a provider there is no way to deliver the new token.
	if s.mailer == nil {
		return ErrEmailDeliveryFailed
	}

	verificationToken, err := generateRandomToken()
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}

	if err := s.users.UpdateVerificationToken(ctx, existingUser.ID, hashToken(verificationToken), time.Now().Add(verificationTokenTTL)); err != nil {
		return fmt.Errorf("failed to update verification token: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, existingUser.Email, existingUser.Name, verificationToken); err != nil {
		s.logger.Warn("failed to resend verification email", "email", existingUser.Email, "error", err)
		return ErrEmailDeliveryFailed
	}

	return nil
}

// GetCurrentUser resolves an authenticated user id to its record.
func (s *Service) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return existingUser, nil
}

// RequestPasswordReset initiates the password reset process
// Always returns nil to prevent email enumeration attacks
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		s.logger.Warn("failed to get user for password reset", "error", err)
		return nil
	}

	if s.mailer == nil {
		// No provider to deliver the reset link; nothing useful to store.
		return nil
	}

	resetToken, err := generateRandomToken()
	if err != nil {
		s.logger.Warn("failed to generate password reset token", "error", err)
		return nil
	}

	if err := s.users.SetResetToken(ctx, existingUser.ID, hashToken(resetToken), time.Now().Add(resetTokenTTL)); err != nil {
		s.logger.Warn("failed to store password reset token", "error", err)
		return nil
	}

	// Send password reset email in goroutine (non-blocking)
	go func() {
		emailCtx := context.Background()
		if err := s.mailer.SendPasswordResetEmail(emailCtx, existingUser.Email, existingUser.Name, resetToken); err != nil {
			s.logger.Warn("failed to send password reset email", "email", existingUser.Email, "error", err)
		}
	}()

	return nil
}

// ResetPassword consumes a reset token and replaces the user's password.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" || newPassword == "" {
		return ErrMissingFields
	}
	if len(newPassword) < 8 {
		return ErrPasswordTooShort
	}

	existingUser, err := s.users.GetByResetTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to get user by reset token: %w", err)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, existingUser.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.users.ClearResetToken(ctx, existingUser.ID); err != nil {
		s.logger.Warn("failed to clear reset token", "user_id", existingUser.ID, "error", err)
	}

	return nil
}
