package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	principal := Principal{ID: 42, Role: RoleClient, Username: "marie"}
	token, err := issuer.Issue(principal, time.Now())
	require.NoError(t, err)

	parsed, err := issuer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, principal, parsed)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(Principal{ID: 1, Role: RoleAdmin, Username: "admin"},
		time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	require.Error(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	other := NewTokenIssuer("other-secret", time.Hour)

	token, err := issuer.Issue(Principal{ID: 1, Role: RoleAdmin, Username: "admin"}, time.Now())
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestTokenUnknownRoleRejected(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(Principal{ID: 1, Role: Role("superuser"), Username: "x"}, time.Now())
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	require.Error(t, err)
}

func TestTokenGarbageRejected(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	_, err := issuer.Parse("not.a.token")
	require.Error(t, err)
}
