package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	encrypted, err := c.Encrypt("smtp-password-123")
	require.NoError(t, err)

	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "smtp-password-123", decrypted)
}

func TestEncryptUsesRandomNonce(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	first, err := c.Encrypt("same-password")
	require.NoError(t, err)
	second, err := c.Encrypt("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, enc := range []string{first, second} {
		got, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, "same-password", got)
	}
}

func TestNewCipherRejectsBadKey(t *testing.T) {
	_, err := NewCipher("too-short")
	assert.Error(t, err)

	_, err = NewCipher(strings.Repeat("zz", 32))
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	_, err = c.Decrypt("not base64!!!")
	assert.Error(t, err)

	_, err = c.Decrypt("YWJj") // valid base64, shorter than a nonce
	assert.Error(t, err)
}
