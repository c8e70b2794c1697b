package crypto

import (
	"encoding/hex"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	wallet := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	msg := "Sign in to noti-believe\nNonce: abc123"
	sig, err := ethcrypto.Sign(personalSignHash(msg), key)
	require.NoError(t, err)
	// Mimic wallet output with v in {27,28}.
	sig[64] += 27
	sigHex := "0x" + hex.EncodeToString(sig)

	ok, err := VerifySignature(wallet, msg, sigHex)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySignature(wallet, "tampered message", sigHex)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	ok, err = VerifySignature(ethcrypto.PubkeyToAddress(other.PublicKey).Hex(), msg, sigHex)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecoverSignerRejectsMalformed(t *testing.T) {
	_, err := RecoverSigner("msg", "0xzz")
	assert.Error(t, err)

	_, err = RecoverSigner("msg", "0xdeadbeef")
	assert.Error(t, err)
}

func TestVerifySignatureRejectsBadAddress(t *testing.T) {
	_, err := VerifySignature("not-an-address", "msg", "0x00")
	assert.Error(t, err)
}
