package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(Config{MasterKey: "test-master-key", Salt: []byte("0123456789abcdef")})
	require.NoError(t, err)
	return v
}

func TestNew(t *testing.T) {
	t.Run("missing master key", func(t *testing.T) {
		_, err := New(Config{Salt: []byte("0123456789abcdef")})
		assert.Error(t, err)
	})

	t.Run("short salt", func(t *testing.T) {
		_, err := New(Config{MasterKey: "k", Salt: []byte("abc")})
		assert.Error(t, err)
	})
}

func TestVault_SealOpen(t *testing.T) {
	v := newTestVault(t)

	t.Run("round trip", func(t *testing.T) {
		sealed, err := v.Seal([]byte("1234-5678-9012"))
		require.NoError(t, err)
		assert.NotContains(t, string(sealed), "1234-5678-9012")

		plain, err := v.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, "1234-5678-9012", string(plain))
	})

	t.Run("ciphertexts are randomized", func(t *testing.T) {
		a, err := v.Seal([]byte("same"))
		require.NoError(t, err)
		b, err := v.Seal([]byte("same"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		sealed, err := v.Seal([]byte("secret"))
		require.NoError(t, err)
		sealed[len(sealed)-1] ^= 0xff

		_, err = v.Open(sealed)
		assert.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := v.Open([]byte{1, 2, 3})
		assert.EqualError(t, err, "ciphertext too short")
	})

	t.Run("other key cannot open", func(t *testing.T) {
		sealed, err := v.Seal([]byte("secret"))
		require.NoError(t, err)

		other, err := New(Config{MasterKey: "another-key", Salt: []byte("0123456789abcdef")})
		require.NoError(t, err)
		_, err = other.Open(sealed)
		assert.Error(t, err)
	})
}

func TestVault_Fingerprint(t *testing.T) {
	v := newTestVault(t)

	assert.Equal(t, v.Fingerprint("ABC-123"), v.Fingerprint("  ABC-123\n"))
	assert.NotEqual(t, v.Fingerprint("ABC-123"), v.Fingerprint("ABC-124"))
	assert.Len(t, v.Fingerprint("x"), 64)
}
