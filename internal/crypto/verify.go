package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// personalSignPrefix is the EIP-191 prefix wallets apply before signing an
// arbitrary message.
const personalSignPrefix = "\x19Ethereum Signed Message:\n"

// personalSignHash returns keccak256 of the EIP-191 prefixed message, the
// digest wallets actually sign when the user approves a login prompt.
func personalSignHash(message string) []byte {
	prefixed := fmt.Sprintf("%s%d%s", personalSignPrefix, len(message), message)
	return ethcrypto.Keccak256([]byte(prefixed))
}

// RecoverSigner recovers the Ethereum address that produced a personal_sign
// signature over message. The signature is the hex-encoded 65-byte r||s||v
// form wallets return, with or without 0x prefix.
func RecoverSigner(message, signature string) (common.Address, error) {
	sigHex := strings.TrimPrefix(signature, "0x")
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: invalid signature hex: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("crypto: expected 65-byte signature, got %d bytes", len(sig))
	}

	// Wallets return v in {27,28}; go-ethereum expects {0,1}.
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(personalSignHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: recovering public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// VerifySignature reports whether signature over message was produced by the
// holder of wallet. Address comparison is case-insensitive.
func VerifySignature(wallet, message, signature string) (bool, error) {
	if !common.IsHexAddress(wallet) {
		return false, fmt.Errorf("crypto: invalid wallet address %q", wallet)
	}
	recovered, err := RecoverSigner(message, signature)
	if err != nil {
		return false, err
	}
	return recovered == common.HexToAddress(wallet), nil
}
