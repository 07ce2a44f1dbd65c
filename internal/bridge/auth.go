package bridge

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes data with the Ethereum flavor of Keccak.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// RecoverSigner recovers the Ethereum-style address that produced a
// compact recoverable signature over keccak256(payload).
func RecoverSigner(payload, signature []byte) (string, error) {
	pub, _, err := ecdsa.RecoverCompact(signature, Keccak256(payload))
	if err != nil {
		return "", fmt.Errorf("bridge: recover signer: %w", err)
	}
	uncompressed := pub.SerializeUncompressed()
	// Ethereum addresses are the last 20 bytes of the keccak256 hash of
	// the uncompressed pubkey, sans the 0x04 prefix.
	sum := Keccak256(uncompressed[1:])
	return "0x" + hex.EncodeToString(sum[12:]), nil
}

// VerifyRelayer checks that signature over payload came from the expected
// relayer address. An empty expected address disables relayer auth.
func VerifyRelayer(expected string, payload, signature []byte) error {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return nil
	}
	signer, err := RecoverSigner(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !strings.EqualFold(signer, expected) {
		return fmt.Errorf("%w: signed by %s", ErrBadSignature, signer)
	}
	return nil
}
