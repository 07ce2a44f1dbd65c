package bridge

import (
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSigner(t *testing.T) (*secp256k1.PrivateKey, string) {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	pub := priv.PubKey().SerializeUncompressed()
	sum := Keccak256(pub[1:])
	return priv, "0x" + hex.EncodeToString(sum[12:])
}

func signPayload(priv *secp256k1.PrivateKey, payload []byte) []byte {
	return ecdsa.SignCompact(priv, Keccak256(payload), false)
}

func TestVerifyRelayerAcceptsValidSignature(t *testing.T) {
	priv, addr := newSigner(t)
	payload := []byte("inbound payload")

	sig := signPayload(priv, payload)
	assert.NoError(t, VerifyRelayer(addr, payload, sig))

	signer, err := RecoverSigner(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, addr, signer)
}

func TestVerifyRelayerRejectsWrongSigner(t *testing.T) {
	priv, _ := newSigner(t)
	_, otherAddr := newSigner(t)
	payload := []byte("inbound payload")

	sig := signPayload(priv, payload)
	assert.ErrorIs(t, VerifyRelayer(otherAddr, payload, sig), ErrBadSignature)
}

func TestVerifyRelayerRejectsTamperedPayload(t *testing.T) {
	priv, addr := newSigner(t)

	sig := signPayload(priv, []byte("original"))
	assert.ErrorIs(t, VerifyRelayer(addr, []byte("tampered"), sig), ErrBadSignature)
}

func TestVerifyRelayerDisabledWhenUnset(t *testing.T) {
	assert.NoError(t, VerifyRelayer("", []byte("anything"), nil))
}
