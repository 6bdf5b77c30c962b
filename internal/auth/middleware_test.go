package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		email, ok := GetUserEmailFromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"userId": userID.String(),
			"email":  email,
		})
	})
}

func TestRequireAuth_ValidToken(t *testing.T) {
	t.Parallel()

	tokens, err := NewPasetoService(testKey())
	require.NoError(t, err)
	mw := NewMiddleware(tokens, false)

	userID := uuid.New()
	token, err := tokens.CreateToken(userID, "ada@x.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw.RequireAuth(protectedEcho(t)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, userID.String(), body["userId"])
	assert.Equal(t, "ada@x.com", body["email"])
}

func TestRequireAuth_Rejections(t *testing.T) {
	t.Parallel()

	tokens, err := NewPasetoService(testKey())
	require.NoError(t, err)
	mw := NewMiddleware(tokens, false)

	expired, err := tokens.CreateToken(uuid.New(), "ada@x.com", -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name        string
		header      string
		wantMessage string
	}{
		{"missing header", "", "not authorized to access this route"},
		{"not bearer", "Basic abc123", "invalid authorization header format"},
		{"bare token", "just-a-token", "invalid authorization header format"},
		{"garbage token", "Bearer not-a-real-token", "invalid token"},
		{"expired token", "Bearer " + expired, "token has expired"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			mw.RequireAuth(protectedEcho(t)).ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.wantMessage, body.Message)
		})
	}
}

func TestRequireAuth_ProductionHidesDetail(t *testing.T) {
	t.Parallel()

	tokens, err := NewPasetoService(testKey())
	require.NoError(t, err)
	mw := NewMiddleware(tokens, true)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()

	mw.RequireAuth(protectedEcho(t)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not authorized to access this route", body.Message)
}
