package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("nasi-goreng")
	require.NoError(t, err)
	assert.NotEqual(t, "nasi-goreng", hash)
	assert.True(t, CheckPassword(hash, "nasi-goreng"))
	assert.False(t, CheckPassword(hash, "mie-goreng"))
}

func TestHashPasswordTooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestCheckPasswordEmptyHash(t *testing.T) {
	assert.False(t, CheckPassword("", ""))
}
