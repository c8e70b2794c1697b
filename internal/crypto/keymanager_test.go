package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptCredentialRoundTrip(t *testing.T) {
	blob, err := EncryptCredential("refresh-token-value", "hunter2")
	require.NoError(t, err)

	got, err := DecryptCredential(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "refresh-token-value", got)
}

func TestDecryptCredentialWrongPassword(t *testing.T) {
	blob, err := EncryptCredential("refresh-token-value", "hunter2")
	require.NoError(t, err)

	_, err = DecryptCredential(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptCredentialEmptyInputs(t *testing.T) {
	_, err := EncryptCredential("", "pw")
	assert.Error(t, err)

	_, err = EncryptCredential("secret", "")
	assert.Error(t, err)
}

func TestLoadCredential(t *testing.T) {
	t.Run("raw takes precedence", func(t *testing.T) {
		got, err := LoadCredential(CredentialConfig{RawCredential: "plain"})
		require.NoError(t, err)
		assert.Equal(t, "plain", got)
	})

	t.Run("encrypted file", func(t *testing.T) {
		blob, err := EncryptCredential("from-file", "pw")
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "cred.json")
		require.NoError(t, os.WriteFile(path, blob, 0o600))

		got, err := LoadCredential(CredentialConfig{EncryptedPath: path, Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, "from-file", got)
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := LoadCredential(CredentialConfig{})
		assert.Error(t, err)
	})
}
