package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.NoError(t, h.Compare(hash, "s3cret-pass"))
	assert.ErrorIs(t, h.Compare(hash, "wrong-pass"), ErrPasswordMismatch)
}

func TestCheckPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
		msg      string
	}{
		{"short", "abc", ErrPasswordShort, "password must be at least 8 characters"},
		{"minimum", "12345678", nil, ""},
		{"maximum", strings.Repeat("a", MaxPasswordLen), nil, ""},
		{"too long", strings.Repeat("a", MaxPasswordLen+1), ErrPasswordLong, "password must be at most 72 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPolicy(tt.password)
			assert.ErrorIs(t, err, tt.want)

			msg, ok := PolicyMessage(err)
			assert.Equal(t, tt.want != nil, ok)
			assert.Equal(t, tt.msg, msg)
		})
	}
}
