package cryptoutils

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestNewMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(mnemonic), 24)
	assert.True(t, ValidMnemonic(mnemonic))

	other, err := NewMnemonic()
	require.NoError(t, err)
	assert.NotEqual(t, mnemonic, other)

	short, err := NewMnemonicWithEntropy(ShortMnemonicEntropyBits)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(short), 12)
	assert.True(t, ValidMnemonic(short))
}

func TestSecpKeyFromMnemonic(t *testing.T) {
	key, err := SecpKeyFromMnemonic(testMnemonic)
	require.NoError(t, err)

	// Derivation is deterministic
	again, err := SecpKeyFromMnemonic("  " + testMnemonic + "\n")
	require.NoError(t, err)
	assert.Equal(t, key.Address(), again.Address())
	assert.Equal(t, key.PubKey(), again.PubKey())

	assert.Len(t, key.PubKey(), 33)
	assert.True(t, strings.HasPrefix(key.Address(), "ixo1"))
	assert.True(t, ValidAddress(key.Address()))
	assert.Equal(t, "did:ixo:"+key.Address(), key.DID())
	assert.Equal(t, testMnemonic, key.Mnemonic())

	hrp, data, err := bech32.Decode(key.Address())
	require.NoError(t, err)
	assert.Equal(t, "ixo", hrp)
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	require.NoError(t, err)
	assert.Len(t, raw, 20)
}

func TestSecpKeyFromMnemonic_Invalid(t *testing.T) {
	_, err := SecpKeyFromMnemonic("not a real mnemonic")
	require.ErrorIs(t, err, ErrInvalidMnemonic)

	_, err = SecpKeyFromMnemonic("")
	require.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestDistinctMnemonicsDistinctAddresses(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		mnemonic, err := NewMnemonic()
		require.NoError(t, err)
		key, err := SecpKeyFromMnemonic(mnemonic)
		require.NoError(t, err)
		require.False(t, seen[key.Address()])
		seen[key.Address()] = true
	}
}

func TestSignChallenge(t *testing.T) {
	key, err := SecpKeyFromMnemonic(testMnemonic)
	require.NoError(t, err)

	challenge := []byte(`{"timestamp":"2024-01-01T00:00:00.000Z","address":"ixo1","service":"matrix","type":"create-account"}`)
	sig, err := key.Sign(challenge)
	require.NoError(t, err)
	assert.Len(t, sig, 64)

	assert.True(t, VerifySignature(key.PubKey(), challenge, sig))
	assert.False(t, VerifySignature(key.PubKey(), []byte("other"), sig))
}

func TestPublicKeyMultibase(t *testing.T) {
	key, err := SecpKeyFromMnemonic(testMnemonic)
	require.NoError(t, err)

	encoded := PublicKeyMultibase(key.PubKey())
	assert.True(t, strings.HasPrefix(encoded, "z"))
	assert.Greater(t, len(encoded), 40)
}

func TestValidAddress(t *testing.T) {
	assert.False(t, ValidAddress("cosmos1pkptre7fdkl6gfrzlesjjvhxhlc3r4gmmk8rs6"))
	assert.False(t, ValidAddress("ixo1notbech32"))
	assert.False(t, ValidAddress(""))
}
