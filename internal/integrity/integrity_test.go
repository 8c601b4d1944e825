package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashRoundTrip(t *testing.T) {
	h := Hash([]byte("hello"))
	parsed, ok := ParseContentHash(h.String())
	require.True(t, ok)
	assert.Equal(t, h, parsed)
}

func TestHashIsDeterministic(t *testing.T) {
	a := Hash([]byte("same bytes"))
	b := Hash([]byte("same bytes"))
	assert.Equal(t, a, b)
}

func TestHashDiffersOnDifferentInput(t *testing.T) {
	a := Hash([]byte("a"))
	b := Hash([]byte("b"))
	assert.NotEqual(t, a, b)
}

func TestParseContentHashRejectsBadInput(t *testing.T) {
	_, ok := ParseContentHash("not-hex")
	assert.False(t, ok)
	_, ok = ParseContentHash("abcd")
	assert.False(t, ok)
}

func TestSHA1Hex(t *testing.T) {
	// Known SHA-1 of the empty string.
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", SHA1Hex(nil))
}

func TestConstantTimeEqualHex(t *testing.T) {
	assert.True(t, ConstantTimeEqualHex("abcd1234", "abcd1234"))
	assert.False(t, ConstantTimeEqualHex("abcd1234", "abcd1235"))
	assert.False(t, ConstantTimeEqualHex("abcd", "abcd1234"))
}
