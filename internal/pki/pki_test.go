package pki

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("hit me")
	sig := priv.Sign(msg)
	assert.True(t, Verify(pub, msg, sig))
	assert.False(t, Verify(pub, []byte("stand"), sig))

	otherPub, _, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, Verify(otherPub, msg, sig))
}

func TestKeyHexRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	parsedPub, err := ParsePubKey(pub.String())
	require.NoError(t, err)
	assert.Equal(t, pub, parsedPub)

	parsedPriv, err := ParsePrivateKey(priv.String())
	require.NoError(t, err)
	assert.Equal(t, pub, parsedPriv.Public())
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := ParsePubKey("not-hex")
	assert.Error(t, err)

	_, err = ParsePubKey("abcd")
	assert.Error(t, err, "wrong length")

	_, err = ParsePrivateKey("abcd")
	assert.Error(t, err)
}
