package cryptoutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixUsername(t *testing.T) {
	username, err := MatrixUsername("ixo1abc")
	require.NoError(t, err)
	assert.Equal(t, "did-ixo-ixo1abc", username)

	_, err = MatrixUsername("")
	require.Error(t, err)
}

func TestDerivationsAreDeterministic(t *testing.T) {
	assert.Equal(t, MatrixPassword(testMnemonic), MatrixPassword(testMnemonic))
	assert.Len(t, MatrixPassword(testMnemonic), 24)

	assert.Equal(t, RecoveryPassphrase(testMnemonic), RecoveryPassphrase(testMnemonic))
	assert.Len(t, RecoveryPassphrase(testMnemonic), 32)

	// Spaces are ignored by both derivations
	squashed := "abandonabandonabandonabandonabandonabandonabandonabandonabandonabandonabandonabout"
	assert.Equal(t, MatrixPassword(testMnemonic), MatrixPassword(squashed))
	assert.Equal(t, RecoveryPassphrase(testMnemonic), RecoveryPassphrase(squashed))

	other, err := NewMnemonic()
	require.NoError(t, err)
	assert.NotEqual(t, MatrixPassword(testMnemonic), MatrixPassword(other))
}

func TestMatrixPasswordKnownValue(t *testing.T) {
	// md5("") = d41d8cd98f00b204e9800998ecf8427e
	assert.Equal(t, "ZDQxZDhjZDk4ZjAwYjIwNGU5", MatrixPassword(""))
}

func TestRoomAlias(t *testing.T) {
	testCases := []struct {
		name       string
		address    string
		homeServer string
		expected   string
	}{
		{
			name:       "https with trailing slash",
			address:    "ixo1abc",
			homeServer: "https://devmx.ixo.earth/",
			expected:   "#did-ixo-ixo1abc:devmx.ixo.earth",
		},
		{
			name:       "http",
			address:    "ixo1abc",
			homeServer: "http://localhost:8008",
			expected:   "#did-ixo-ixo1abc:localhost:8008",
		},
		{
			name:       "bare server name",
			address:    "ixo1xyz",
			homeServer: "mx.ixo.earth",
			expected:   "#did-ixo-ixo1xyz:mx.ixo.earth",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RoomAlias(tc.address, tc.homeServer))
			assert.Equal(t, tc.expected, RoomAlias(tc.address, tc.homeServer))
		})
	}

	assert.NotEqual(t, RoomAlias("ixo1a", "https://mx.ixo.earth"), RoomAlias("ixo1b", "https://mx.ixo.earth"))
}

func TestMatrixUserID(t *testing.T) {
	assert.Equal(t, "@did-ixo-ixo1abc:devmx.ixo.earth", MatrixUserID("ixo1abc", "https://devmx.ixo.earth"))
}
