package keygen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyPattern = regexp.MustCompile(`^IRON-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func TestGenerate(t *testing.T) {
	key, err := Generate("")
	require.NoError(t, err)
	assert.Regexp(t, keyPattern, key)

	custom, err := Generate(" gym ")
	require.NoError(t, err)
	assert.Regexp(t, `^GYM-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`, custom)
}

func TestGenerateDistinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		k, err := Generate(DefaultPrefix)
		require.NoError(t, err)
		assert.Regexp(t, keyPattern, k)
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}
