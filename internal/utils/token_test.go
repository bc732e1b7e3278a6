package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenShape(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), token)
}

func TestGenerateTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		if _, dup := seen[token]; dup {
			t.Fatalf("token collision after %d draws: %s", i, token)
		}
		seen[token] = struct{}{}
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Pat@Example.Com ", "pat@example.com"},
		{"already@lower.io", "already@lower.io"},
		{"\tTABS@x.y\n", "tabs@x.y"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeEmail(tc.in))
	}
}

func TestJWTRoundTrip(t *testing.T) {
	manager := JWTManager{Secret: []byte("test-secret"), Issuer: "healthathome"}

	signed, ttl, err := manager.IssueAccessToken("principal-1", "practitioner", "practitioner")
	require.NoError(t, err)
	assert.Positive(t, ttl)

	claims, err := manager.ParseAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "principal-1", claims.PrincipalID)
	assert.Equal(t, "practitioner", claims.Kind)
	assert.Equal(t, "practitioner", claims.Role)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	manager := JWTManager{Secret: []byte("test-secret")}
	other := JWTManager{Secret: []byte("other-secret")}

	signed, _, err := manager.IssueAccessToken("principal-1", "patient", "patient")
	require.NoError(t, err)

	_, err = other.ParseAccessToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
