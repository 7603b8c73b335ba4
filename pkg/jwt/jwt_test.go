package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndValidate(t *testing.T) {
	m, err := NewManager("s3cret", "beacon-identity")
	require.NoError(t, err)

	tok, err := m.Issue("u-1", "alice", time.Minute)
	require.NoError(t, err)

	claims, err := m.ValidateToken(tok)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "u-1", claims.UserID)
}

func TestManager_RejectsWrongSecret(t *testing.T) {
	issuer, err := NewManager("one", "")
	require.NoError(t, err)
	verifier, err := NewManager("two", "")
	require.NoError(t, err)

	tok, err := issuer.Issue("u-1", "alice", time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Expired(t *testing.T) {
	m, err := NewManager("s3cret", "")
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	tok, err := m.Issue("u-1", "alice", time.Minute)
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = m.ValidateToken(tok)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_WrongIssuer(t *testing.T) {
	a, _ := NewManager("s3cret", "a")
	b, _ := NewManager("s3cret", "b")

	tok, err := a.Issue("u-1", "alice", time.Minute)
	require.NoError(t, err)
	_, err = b.ValidateToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManager_EmptySecret(t *testing.T) {
	_, err := NewManager("", "x")
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestManager_Garbage(t *testing.T) {
	m, _ := NewManager("s3cret", "")
	_, err := m.ValidateToken("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
