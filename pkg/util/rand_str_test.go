package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandStr(t *testing.T) {
	s := RandStr(10)
	assert.Len(t, s, 10)

	for _, r := range s {
		assert.True(t, strings.ContainsRune(charset, r), "unexpected rune %q", r)
	}

	assert.NotEqual(t, RandStr(32), RandStr(32))
}

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken(16)
	require.NoError(t, err)
	assert.Len(t, tok, 32)
}
