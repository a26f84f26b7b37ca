package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	auth, err := NewAuthenticator([]byte("test-secret"))
	require.NoError(t, err)

	claims := NewIdentity("alice", "4")
	require.NotEmpty(t, claims.ID)

	token, err := auth.Issue(claims)
	require.NoError(t, err)

	decoded, err := auth.Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims, decoded)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	auth1, err := NewAuthenticator([]byte("key-one"))
	require.NoError(t, err)
	auth2, err := NewAuthenticator([]byte("key-two"))
	require.NoError(t, err)

	token, err := auth1.Issue(NewIdentity("bob", ""))
	require.NoError(t, err)

	_, err = auth2.Verify(token)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	auth, err := NewAuthenticator([]byte("k"))
	require.NoError(t, err)

	_, err = auth.Verify("not.a.token")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = auth.Verify("")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestNewIdentityIDsAreUnique(t *testing.T) {
	a := NewIdentity("x", "")
	b := NewIdentity("x", "")
	require.NotEqual(t, a.ID, b.ID)
}

func TestNewAuthenticatorRequiresKey(t *testing.T) {
	_, err := NewAuthenticator(nil)
	require.Error(t, err)
}
