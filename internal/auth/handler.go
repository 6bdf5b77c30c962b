package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskager/taskager/internal/httputil"
	"github.com/taskager/taskager/internal/logging"
	"github.com/taskager/taskager/internal/ratelimit"
	"github.com/taskager/taskager/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResendVerificationRequest represents the resend verification email request
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// UserResponse is the safe projection of a user for API responses. Password
// and token hashes never appear here.
type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsVerified: u.IsVerified,
	}
}

// sessionResponse wraps a session token plus user projection.
type sessionResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message,omitempty"`
	Token        string       `json:"token"`
	User         UserResponse `json:"user"`
	AutoVerified bool         `json:"autoVerified,omitempty"`
}

// registeredResponse is the pending-verification registration outcome.
type registeredResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"userId"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limitByIP(w, r, "register") {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	result, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("registration failed: email already registered")
			httputil.RespondError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrMissingFields),
			errors.Is(err, ErrInvalidEmailFormat),
			errors.Is(err, ErrPasswordTooShort):
			logger.Warn("registration failed: validation error", "error", err.Error())
			httputil.RespondError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrEmailDeliveryFailed):
			logger.Error("registration failed: email delivery")
			httputil.RespondError(w, "failed to send verification email, please try again", http.StatusInternalServerError)
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			httputil.RespondError(w, "failed to register user", http.StatusInternalServerError)
		}
		return
	}

	if result.AutoVerified {
		logger.Info("user registered with auto-verification", "user_id", result.User.ID)
		httputil.RespondJSON(w, sessionResponse{
			Success:      true,
			Message:      "Registration successful! Email verification skipped (no email provider configured).",
			Token:        result.Session.Token,
			User:         newUserResponse(result.User),
			AutoVerified: true,
		}, http.StatusCreated)
		return
	}

	logger.Info("user registered, verification pending", "user_id", result.User.ID)
	httputil.RespondJSON(w, registeredResponse{
		Success: true,
		Message: "Registration successful! Please check your email to verify your account.",
		UserID:  result.User.ID,
	}, http.StatusCreated)
}

// VerifyEmail handles GET /auth/verify-email/{token}.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := chi.URLParam(r, "token")
	if token == "" {
		httputil.RespondError(w, "verification token required", http.StatusBadRequest)
		return
	}

	session, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredToken) {
			logger.Warn("email verification failed: invalid or expired token")
			httputil.RespondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Error("email verification failed: internal error", "error", err.Error())
		httputil.RespondError(w, "failed to verify email", http.StatusInternalServerError)
		return
	}

	logger.Info("email verified successfully", "user_id", session.User.ID)
	httputil.RespondJSON(w, sessionResponse{
		Success: true,
		Message: "Email verified successfully!",
		Token:   session.Token,
		User:    newUserResponse(session.User),
	}, http.StatusOK)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limitByIP(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			logger.Warn("login failed: missing fields")
			httputil.RespondError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			httputil.RespondError(w, err.Error(), http.StatusUnauthorized)
		case errors.Is(err, ErrEmailNotVerified):
			logger.Warn("login failed: email not verified")
			httputil.RespondError(w, err.Error(), http.StatusForbidden)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			httputil.RespondError(w, "failed to login", http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user logged in successfully", "user_id", session.User.ID)
	httputil.RespondJSON(w, sessionResponse{
		Success: true,
		Token:   session.Token,
		User:    newUserResponse(session.User),
	}, http.StatusOK)
}

// ResendVerification handles POST /auth/resend-verification.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid resend verification request body", "error", err.Error())
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if h.limitByEmail(w, r, req.Email) {
		return
	}

	err := h.service.ResendVerification(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			httputil.RespondError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrUserNotFound):
			logger.Warn("resend verification failed: user not found")
			httputil.RespondError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrAlreadyVerified):
			logger.Warn("resend verification failed: already verified")
			httputil.RespondError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrEmailDeliveryFailed):
			logger.Error("resend verification failed: email delivery")
			httputil.RespondError(w, err.Error(), http.StatusInternalServerError)
		default:
			logger.Error("resend verification failed: internal error", "error", err.Error())
			httputil.RespondError(w, "failed to resend verification email", http.StatusInternalServerError)
		}
		return
	}

	logger.Info("verification email resent")
	httputil.RespondJSON(w, httputil.Envelope{
		Success: true,
		Message: "Verification email sent successfully!",
	}, http.StatusOK)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "not authorized to access this route", http.StatusUnauthorized)
		return
	}

	currentUser, err := h.service.GetCurrentUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httputil.RespondError(w, "not authorized to access this route", http.StatusUnauthorized)
			return
		}
		logger.Error("failed to load current user", "error", err.Error())
		httputil.RespondError(w, "failed to load user", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, struct {
		Success bool         `json:"success"`
		User    UserResponse `json:"user"`
	}{
		Success: true,
		User:    newUserResponse(currentUser),
	}, http.StatusOK)
}

// ForgotPassword handles POST /auth/forgot-password. The response is the same
// whether or not the email exists.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if h.limitByEmail(w, r, req.Email) {
		return
	}

	_ = h.service.RequestPasswordReset(r.Context(), req.Email)

	httputil.RespondJSON(w, httputil.Envelope{
		Success: true,
		Message: "If an account exists with that email, a password reset link has been sent.",
	}, http.StatusOK)
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.service.ResetPassword(r.Context(), strings.TrimSpace(req.Token), req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields), errors.Is(err, ErrPasswordTooShort):
			logger.Warn("password reset failed: validation error", "error", err.Error())
			httputil.RespondError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrInvalidOrExpiredToken):
			logger.Warn("password reset failed: invalid or expired token")
			httputil.RespondError(w, "invalid or expired reset token", http.StatusBadRequest)
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			httputil.RespondError(w, "failed to reset password", http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset successfully")
	httputil.RespondJSON(w, httputil.Envelope{
		Success: true,
		Message: "Password reset successfully. You can now login with your new password.",
	}, http.StatusOK)
}

// limitByIP applies the per-IP fixed-window limit for the given purpose.
// Limiter errors are logged and ignored so redis trouble never blocks auth.
func (h *Handler) limitByIP(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.RespondError(w, "too many requests, please try again later", http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return false
}

// limitByEmail combines the per-IP limit with a per-email cooldown, used on
// the endpoints that trigger outbound email.
func (h *Handler) limitByEmail(w http.ResponseWriter, r *http.Request, email string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip, "email")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip)
		httputil.RespondError(w, "too many requests, please try again later", http.StatusTooManyRequests)
		return true
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "email", email)
		httputil.RespondError(w, "please wait before requesting another email", http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip, "email"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	if err := h.rateLimiter.SetEmailCooldown(r.Context(), email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}
	return false
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format is "IP:port", extract just the IP
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
