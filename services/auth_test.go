package services

import (
	"context"
	"errors"
	"net/http/cookiejar"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return s
}

func TestUserIDFromToken(t *testing.T) {
	id, err := UserIDFromToken(sessionToken(t, jwt.MapClaims{"id": "alice"}))
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	id, err = UserIDFromToken(sessionToken(t, jwt.MapClaims{"sub": "bob"}))
	require.NoError(t, err)
	assert.Equal(t, "bob", id)

	_, err = UserIDFromToken(sessionToken(t, jwt.MapClaims{"id": "alice", "exp": time.Now().Add(-time.Hour).Unix()}))
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = UserIDFromToken("garbage")
	assert.Error(t, err)
}

func TestSessionRestoreAndToken(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, _ := url.Parse("http://localhost:8080")
	s := NewSession(jar, base)

	_, err = s.Token()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	token := sessionToken(t, jwt.MapClaims{"id": "alice"})
	s.Restore(token)

	got, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, token, got)

	id, err := s.UserID()
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
}

func TestMirrorAuthRoundTrip(t *testing.T) {
	auth := NewMirrorAuth("mirror-secret")
	token, err := auth.CreateToken("viewer", time.Hour)
	require.NoError(t, err)

	subject, err := auth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "viewer", subject)

	_, err = NewMirrorAuth("other").VerifyToken(token)
	assert.Error(t, err)

	expired, err := auth.CreateToken("viewer", -time.Minute)
	require.NoError(t, err)
	_, err = auth.VerifyToken(expired)
	assert.Error(t, err)

	_, err = NewMirrorAuth("").CreateToken("viewer", time.Hour)
	assert.Error(t, err)
}

func TestToasts(t *testing.T) {
	toasts := NewToasts()
	calls := 0
	first := toasts.Raise("addNote", "Could not add the note", errors.New("boom"), func(context.Context) error {
		calls++
		return nil
	})
	second := toasts.Raise("addReaction", "Could not send the reaction", errors.New("boom"), nil)

	require.Len(t, toasts.List(), 2)
	assert.Equal(t, "boom", toasts.List()[0].Error)
	assert.False(t, second.Retryable)

	select {
	case n := <-toasts.Notifications():
		assert.Equal(t, first.ID, n.ID)
	default:
		t.Fatal("toast not streamed")
	}

	require.NoError(t, toasts.Retry(context.Background(), first.ID))
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, toasts.Retry(context.Background(), first.ID), ErrToastNotFound)

	require.NoError(t, toasts.Dismiss(second.ID))
	assert.Empty(t, toasts.List())
	assert.ErrorIs(t, toasts.Dismiss(second.ID), ErrToastNotFound)
}
