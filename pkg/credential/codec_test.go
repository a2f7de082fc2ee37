package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashIsSaltedAndVerifies(t *testing.T) {
	codec := NewCodec(bcrypt.MinCost)

	for _, password := range []string{"admin123", "654321", "pässwörd", " "} {
		first, err := codec.Hash(password)
		require.NoError(t, err)
		second, err := codec.Hash(password)
		require.NoError(t, err)

		assert.NotEqual(t, first, second, "password %q", password)
		assert.True(t, codec.Verify(password, first))
		assert.True(t, codec.Verify(password, second))
		assert.False(t, codec.Verify(password+"x", first))
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	codec := NewCodec(bcrypt.MinCost)
	assert.False(t, codec.Verify("secret", ""))
	assert.False(t, codec.Verify("secret", "not-a-bcrypt-hash"))
	assert.False(t, codec.Verify("secret", "$2a$10$short"))
}

func TestNewCodecClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewCodec(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewCodec(99).cost)
	assert.Equal(t, 12, NewCodec(12).cost)
}
