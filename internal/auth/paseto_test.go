package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func TestPasetoService_CreateAndVerify(t *testing.T) {
	t.Parallel()

	svc, err := NewPasetoService(testKey())
	require.NoError(t, err)

	userID := uuid.New()
	token, err := svc.CreateToken(userID, "ada@x.com", time.Hour)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "ada@x.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestPasetoService_ExpiredToken(t *testing.T) {
	t.Parallel()

	svc, err := NewPasetoService(testKey())
	require.NoError(t, err)

	token, err := svc.CreateToken(uuid.New(), "ada@x.com", -time.Minute)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPasetoService_WrongKey(t *testing.T) {
	t.Parallel()

	svc, err := NewPasetoService(testKey())
	require.NoError(t, err)
	other, err := NewPasetoService([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	token, err := svc.CreateToken(uuid.New(), "ada@x.com", time.Hour)
	require.NoError(t, err)

	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasetoService_GarbageToken(t *testing.T) {
	t.Parallel()

	svc, err := NewPasetoService(testKey())
	require.NoError(t, err)

	_, err = svc.VerifyToken("v4.local.not-a-real-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewPasetoService_BadKeyLength(t *testing.T) {
	t.Parallel()

	_, err := NewPasetoService([]byte("too-short"))
	assert.Error(t, err)
}
