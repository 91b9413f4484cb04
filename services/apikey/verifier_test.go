package apikey

import (
	"testing"

	"github.com/stretchr/testify/require"

	"studiobook/pkg/security"
)

func hashed(t *testing.T, plain string) string {
	t.Helper()
	h, err := security.HashSecret(plain)
	require.NoError(t, err)
	return h
}

func TestMatchFindsOwningKey(t *testing.T) {
	v := NewVerifier()
	snapshot := []*APIKey{
		{ID: "key-1", SecretHash: hashed(t, "secret-one")},
		{ID: "key-2", SecretHash: hashed(t, "secret-two")},
	}

	match := v.Match(snapshot, "secret-two")
	require.NotNil(t, match)
	require.Equal(t, "key-2", match.ID)
}

func TestMatchNoCandidate(t *testing.T) {
	v := NewVerifier()
	snapshot := []*APIKey{
		{ID: "key-1", SecretHash: hashed(t, "secret-one")},
	}

	require.Nil(t, v.Match(snapshot, "wrong"))
	require.Nil(t, v.Match(snapshot, ""))
	require.Nil(t, v.Match(nil, "secret-one"))
}
