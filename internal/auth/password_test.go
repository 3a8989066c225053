package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher()

	tests := []struct {
		name     string
		password string
	}{
		{
			name:     "regular password",
			password: "testpassword123",
		},
		{
			name:     "empty password",
			password: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			assert.True(t, h.Verify(hash, tt.password))
			assert.False(t, h.Verify(hash, tt.password+"x"))
		})
	}
}

func TestHasher_VerifyFailsClosed(t *testing.T) {
	h := NewHasher()

	tests := []struct {
		name   string
		stored string
	}{
		{
			name:   "malformed hash",
			stored: "not-a-bcrypt-hash",
		},
		{
			name:   "empty stored value",
			stored: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, h.Verify(tt.stored, "anything"))
		})
	}
}

func TestHasher_UnusablePassword(t *testing.T) {
	h := NewHasher()

	assert.False(t, h.IsUsable(UnusablePassword))
	assert.True(t, h.IsUsable("$2a$10$somethinghashed"))

	// Verification against the marker must short-circuit, never attempting
	// a hash comparison.
	assert.False(t, h.Verify(UnusablePassword, UnusablePassword))
	assert.False(t, h.Verify(UnusablePassword, "password"))
}
