package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/executive/internal/core/infrastructure/crypto/hash"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	payload := hash.Keccak256([]byte("payload"))

	sig, err := Sign(payload[:], key)
	require.NoError(t, err)
	assert.Len(t, sig, SignatureLength)

	assert.NoError(t, NewVerifier().Verify(payload[:], sig, Address(key)))
}

func TestVerify_WrongSigner(t *testing.T) {
	alice, bob := DevKey("alice"), DevKey("bob")
	payload := hash.Keccak256([]byte("x"))
	sig, err := Sign(payload[:], alice)
	require.NoError(t, err)

	err = NewVerifier().Verify(payload[:], sig, Address(bob))
	assert.ErrorIs(t, err, ErrSignerMismatch)
}

func TestVerify_TamperedPayload(t *testing.T) {
	key := DevKey("alice")
	payload := hash.Keccak256([]byte("x"))
	sig, err := Sign(payload[:], key)
	require.NoError(t, err)

	other := hash.Keccak256([]byte("y"))
	assert.Error(t, NewVerifier().Verify(other[:], sig, Address(key)))
}

func TestVerify_Malformed(t *testing.T) {
	payload := hash.Keccak256([]byte("x"))
	v := NewVerifier()

	assert.ErrorIs(t, v.Verify(payload[:], []byte{1, 2, 3}, Address(DevKey("a"))), ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify([]byte("short"), make([]byte, SignatureLength), Address(DevKey("a"))), ErrInvalidHashLength)
}

func TestDevKey_Deterministic(t *testing.T) {
	assert.Equal(t, Address(DevKey("alice")), Address(DevKey("alice")))
	assert.NotEqual(t, Address(DevKey("alice")), Address(DevKey("bob")))
}

func TestHexKey_RoundTrip(t *testing.T) {
	key := DevKey("charlie")
	parsed, err := HexToKey(KeyToHex(key))
	require.NoError(t, err)
	assert.Equal(t, Address(key), Address(parsed))

	_, err = HexToKey("zz")
	assert.Error(t, err)
}
