package service_test

import (
	"testing"

	"healthathome/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashIsSaltedPerCall(t *testing.T) {
	hasher := service.BcryptPasswordHasher{Cost: bcrypt.MinCost}

	first, err := hasher.Hash("Sup3rSecret!")
	require.NoError(t, err)
	second, err := hasher.Hash("Sup3rSecret!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify(first, "Sup3rSecret!"))
	assert.True(t, hasher.Verify(second, "Sup3rSecret!"))
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := service.BcryptPasswordHasher{}

	assert.False(t, hasher.Verify("not-a-bcrypt-hash", "whatever"))
	assert.False(t, hasher.Verify("", "whatever"))
}

func TestVerifyWrongPassword(t *testing.T) {
	hasher := service.BcryptPasswordHasher{Cost: bcrypt.MinCost}

	hash, err := hasher.Hash("Sup3rSecret!")
	require.NoError(t, err)
	assert.False(t, hasher.Verify(hash, "sup3rsecret!"))
}
