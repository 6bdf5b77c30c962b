package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskager/taskager/internal/logging"
	"github.com/taskager/taskager/internal/ratelimit"
)

// newAuthAPI assembles a real chi router around the auth handler, with a
// miniredis-backed rate limiter, mirroring the production route layout.
func newAuthAPI(t *testing.T, mailer EmailService) (*chi.Mux, *fakeUserStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newFakeUserStore()
	tokens, err := NewPasetoService(testKey())
	require.NoError(t, err)

	logger := logging.NewLogger(true)
	svc := NewService(store, tokens, mailer, logger, 7*24*time.Hour)
	handler := NewHandler(svc, ratelimit.NewLimiter(client), logger)
	mw := NewMiddleware(tokens, false)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
		r.Get("/verify-email/{token}", handler.VerifyEmail)
		r.Post("/resend-verification", handler.ResendVerification)
		r.Post("/forgot-password", handler.ForgotPassword)
		r.Post("/reset-password", handler.ResetPassword)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)
			r.Get("/me", handler.Me)
		})
	})
	return r, store
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpoint_AutoVerified(t *testing.T) {
	t.Parallel()

	router, _ := newAuthAPI(t, nil) // no email provider configured

	rec := postJSON(t, router, "/auth/register", RegisterRequest{
		Name:     "Ada",
		Email:    "ada@x.com",
		Password: "secret-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Success      bool         `json:"success"`
		Token        string       `json:"token"`
		User         UserResponse `json:"user"`
		AutoVerified bool         `json:"autoVerified"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.AutoVerified)
	assert.NotEmpty(t, body.Token)
	assert.True(t, body.User.IsVerified)

	// The issued token works against the protected route.
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, req)

	require.Equal(t, http.StatusOK, meRec.Code)
	var me struct {
		Success bool         `json:"success"`
		User    UserResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(meRec.Body.Bytes(), &me))
	assert.Equal(t, "ada@x.com", me.User.Email)
}

func TestRegisterEndpoint_PendingVerification(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}
	router, _ := newAuthAPI(t, mailer)

	rec := postJSON(t, router, "/auth/register", RegisterRequest{
		Name:     "Ada",
		Email:    "ada@x.com",
		Password: "secret-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		UserID  string `json:"userId"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.UserID)
	assert.Empty(t, body.Token, "no session token before verification")

	// Following the emailed link verifies the account and issues a session.
	raw := mailer.lastVerification(t).Token
	req := httptest.NewRequest(http.MethodGet, "/auth/verify-email/"+raw, nil)
	verifyRec := httptest.NewRecorder()
	router.ServeHTTP(verifyRec, req)

	require.Equal(t, http.StatusOK, verifyRec.Code)
	var verified sessionResponse
	require.NoError(t, json.Unmarshal(verifyRec.Body.Bytes(), &verified))
	assert.NotEmpty(t, verified.Token)
	assert.True(t, verified.User.IsVerified)
}

func TestRegisterEndpoint_DuplicateEmailConflict(t *testing.T) {
	t.Parallel()

	router, _ := newAuthAPI(t, nil)

	first := postJSON(t, router, "/auth/register", RegisterRequest{
		Name: "Ada", Email: "ada@x.com", Password: "secret-pass",
	})
	require.Equal(t, http.StatusCreated, first.Code)

	second := postJSON(t, router, "/auth/register", RegisterRequest{
		Name: "Eve", Email: "ada@x.com", Password: "other-pass",
	})
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := newAuthAPI(t, nil)

	rec := postJSON(t, router, "/auth/register", RegisterRequest{
		Name: "Ada", Email: "ada@x.com", Password: "secret-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	good := postJSON(t, router, "/auth/login", LoginRequest{Email: "ada@x.com", Password: "secret-pass"})
	require.Equal(t, http.StatusOK, good.Code)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(good.Body.Bytes(), &session))
	assert.NotEmpty(t, session.Token)

	bad := postJSON(t, router, "/auth/login", LoginRequest{Email: "ada@x.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestLoginEndpoint_UnverifiedForbidden(t *testing.T) {
	t.Parallel()

	router, _ := newAuthAPI(t, &fakeMailer{})

	rec := postJSON(t, router, "/auth/register", RegisterRequest{
		Name: "Ada", Email: "ada@x.com", Password: "secret-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	login := postJSON(t, router, "/auth/login", LoginRequest{Email: "ada@x.com", Password: "secret-pass"})
	assert.Equal(t, http.StatusForbidden, login.Code)
}

func TestRegisterEndpoint_IPRateLimit(t *testing.T) {
	t.Parallel()

	router, _ := newAuthAPI(t, nil)

	// The fixed window allows 10 requests per IP; the 11th is rejected.
	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		last = postJSON(t, router, "/auth/register", RegisterRequest{
			Name:     "Ada",
			Email:    fmt.Sprintf("ada%d@x.com", i),
			Password: "secret-pass",
		})
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}

func TestResendVerificationEndpoint_EmailCooldown(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}
	router, _ := newAuthAPI(t, mailer)

	rec := postJSON(t, router, "/auth/register", RegisterRequest{
		Name: "Ada", Email: "ada@x.com", Password: "secret-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	first := postJSON(t, router, "/auth/resend-verification", ResendVerificationRequest{Email: "ada@x.com"})
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, router, "/auth/resend-verification", ResendVerificationRequest{Email: "ada@x.com"})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestMeEndpoint_RequiresToken(t *testing.T) {
	t.Parallel()

	router, _ := newAuthAPI(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
