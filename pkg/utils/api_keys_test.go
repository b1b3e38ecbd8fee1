package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKeyShape(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, APIKeyPrefix))
	assert.Len(t, key, len(APIKeyPrefix)+32)
	assert.NotContains(t, key, "=")
}

func TestGenerateAPIKeyIsUnique(t *testing.T) {
	a, err := GenerateAPIKey()
	require.NoError(t, err)
	b, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestMaskAPIKey(t *testing.T) {
	key := "sf_ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"
	assert.Equal(t, "sf_...2345", MaskAPIKey(key))
}

func TestMaskAPIKeyWithoutPrefix(t *testing.T) {
	assert.Equal(t, "...alue", MaskAPIKey("rawsecretvalue"))
}

func TestMaskAPIKeyShortInput(t *testing.T) {
	assert.Equal(t, "***", MaskAPIKey("abc"))
	assert.Equal(t, "****", MaskAPIKey("abcd"))
}
