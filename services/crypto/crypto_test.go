package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("accepts any passphrase length", func(t *testing.T) {
		for _, key := range []string{"x", "a-longer-passphrase", "0123456789abcdef0123456789abcdef"} {
			c, err := New(key)
			require.NoError(t, err)
			assert.NotNil(t, c)
		}
	})

	t.Run("rejects empty key", func(t *testing.T) {
		_, err := New("")
		assert.Error(t, err)
	})
}

func TestCipher_RoundTrip(t *testing.T) {
	c, err := New("test-encryption-key")
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"api key", "sk-1234567890abcdef"},
		{"empty string", ""},
		{"unicode", "密钥-ключ-🔑"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := c.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, tt.plaintext, sealed)

			opened, err := c.Decrypt(sealed)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, opened)
		})
	}
}

func TestCipher_NonceUniqueness(t *testing.T) {
	c, err := New("test-encryption-key")
	require.NoError(t, err)

	a, err := c.Encrypt("same secret")
	require.NoError(t, err)
	b, err := c.Encrypt("same secret")
	require.NoError(t, err)

	// Fresh nonce per call means identical plaintexts never share ciphertext
	assert.NotEqual(t, a, b)
}

func TestCipher_Decrypt_Errors(t *testing.T) {
	c, err := New("test-encryption-key")
	require.NoError(t, err)

	t.Run("not base64", func(t *testing.T) {
		_, err := c.Decrypt("%%%not-base64%%%")
		assert.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := c.Decrypt("aGk=")
		assert.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		sealed, err := c.Encrypt("secret")
		require.NoError(t, err)

		other, err := New("a-different-key")
		require.NoError(t, err)

		_, err = other.Decrypt(sealed)
		assert.Error(t, err)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		sealed, err := c.Encrypt("secret")
		require.NoError(t, err)

		raw := []byte(sealed)
		raw[len(raw)-5] ^= 'x'
		_, err = c.Decrypt(string(raw))
		assert.Error(t, err)
	})
}
