package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_Verify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret")
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
		hash      string
		expected  bool
	}{
		{"matching", "s3cret", hash, true},
		{"wrong plaintext", "nope", hash, false},
		{"empty hash", "s3cret", "", false},
		{"malformed hash", "s3cret", "not-bcrypt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, h.Verify(tt.plaintext, tt.hash))
		})
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99).cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).cost)
}

func TestPlaceholder(t *testing.T) {
	a, err := Placeholder()
	require.NoError(t, err)
	b, err := Placeholder()
	require.NoError(t, err)

	assert.Len(t, a, 24)
	assert.NotEqual(t, a, b)
}
