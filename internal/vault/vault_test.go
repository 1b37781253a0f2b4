package vault

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVault(t *testing.T) *Vault {
	key := bytes.Repeat([]byte{0x42}, 32)
	v, err := New(key)
	require.NoError(t, err)
	return v
}

func TestVault_RoundTrip(t *testing.T) {
	v := testVault(t)

	ct, err := v.Encrypt("refresh-token-secret")
	require.NoError(t, err)
	assert.NotEqual(t, "refresh-token-secret", ct)

	pt := v.Decrypt(ct)
	require.NotNil(t, pt)
	assert.Equal(t, "refresh-token-secret", *pt)
}

func TestVault_FreshNoncePerEncrypt(t *testing.T) {
	v := testVault(t)

	a, err := v.Encrypt("same-plaintext")
	require.NoError(t, err)
	b, err := v.Encrypt("same-plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two encryptions of the same value must differ")
}

func TestVault_DecryptNeverErrors(t *testing.T) {
	v := testVault(t)

	cases := []string{
		"",
		"not base64 !!!",
		"c2hvcnQ=",
		"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
	}

	for _, c := range cases {
		assert.Nil(t, v.Decrypt(c), "input %q should decrypt to nil", c)
	}
}

func TestVault_TamperedCiphertext(t *testing.T) {
	v := testVault(t)

	ct, err := v.Encrypt("access-token")
	require.NoError(t, err)

	// flip one character
	mutated := []byte(ct)
	if mutated[len(mutated)-2] == 'A' {
		mutated[len(mutated)-2] = 'B'
	} else {
		mutated[len(mutated)-2] = 'A'
	}

	assert.Nil(t, v.Decrypt(string(mutated)))
}

func TestVault_WrongKey(t *testing.T) {
	v := testVault(t)
	other, err := New(bytes.Repeat([]byte{0x17}, 32))
	require.NoError(t, err)

	ct, err := v.Encrypt("access-token")
	require.NoError(t, err)

	assert.Nil(t, other.Decrypt(ct))
}

func TestVault_RejectsBadKeyLength(t *testing.T) {
	_, err := New([]byte("too-short"))
	assert.Error(t, err)
}
