package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0000000000000000000000000000000000000000000000000000000000000001"

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	ciphertext, err := Encrypt(testKey, "payer-token-123")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "payer-token-123")

	plaintext, err := Decrypt(testKey, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "payer-token-123", plaintext)
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	a, err := Encrypt(testKey, "same input")
	require.NoError(t, err)
	b, err := Encrypt(testKey, "same input")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "GCM nonces must differ per call")
}

func TestDecrypt_WrongKey(t *testing.T) {
	ciphertext, err := Encrypt(testKey, "secret")
	require.NoError(t, err)

	otherKey := strings.Repeat("ab", 32)
	_, err = Decrypt(otherKey, ciphertext)
	assert.Error(t, err)
}

func TestEncrypt_RejectsBadKey(t *testing.T) {
	_, err := Encrypt("deadbeef", "secret")
	assert.Error(t, err)

	_, err = Encrypt("not hex at all", "secret")
	assert.Error(t, err)
}

func TestDecrypt_Garbage(t *testing.T) {
	_, err := Decrypt(testKey, "!!not base64!!")
	assert.Error(t, err)

	_, err = Decrypt(testKey, "c2hvcnQ=")
	assert.Error(t, err)
}
