package episode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerjack/internal/pki"
	"ledgerjack/internal/wire"
)

func TestSignedCommandRoundTrip(t *testing.T) {
	pub, priv, err := pki.GenerateKeyPair()
	require.NoError(t, err)

	msg, err := NewSignedCommand(ID(42), "double-down", priv)
	require.NoError(t, err)

	data, err := wire.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, wire.Unmarshal(data, &decoded))

	auth, err := decoded.Authorization()
	require.NoError(t, err)
	require.NotNil(t, auth)
	assert.Equal(t, pub, *auth)

	var cmd string
	require.NoError(t, wire.Unmarshal(decoded.Command, &cmd))
	assert.Equal(t, "double-down", cmd)
}

func TestSignatureBindsEpisodeID(t *testing.T) {
	_, priv, err := pki.GenerateKeyPair()
	require.NoError(t, err)

	msg, err := NewSignedCommand(ID(1), 7, priv)
	require.NoError(t, err)

	// Replaying the same signed command against another episode id must
	// fail verification.
	msg.EpisodeID = 2
	_, err = msg.Authorization()
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestTamperedCommandRejected(t *testing.T) {
	_, priv, err := pki.GenerateKeyPair()
	require.NoError(t, err)

	msg, err := NewSignedCommand(ID(1), 7, priv)
	require.NoError(t, err)

	other, err := wire.Marshal(9)
	require.NoError(t, err)
	msg.Command = other

	_, err = msg.Authorization()
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestUnsignedCommandHasNilAuthorization(t *testing.T) {
	msg, err := NewUnsignedCommand(ID(1), 7)
	require.NoError(t, err)

	auth, err := msg.Authorization()
	require.NoError(t, err)
	assert.Nil(t, auth)
}

func TestTxIDDecodeRejectsWrongLength(t *testing.T) {
	var id TxID
	require.NoError(t, id.UnmarshalBinary(make([]byte, len(TxID{}))))
	assert.Error(t, id.UnmarshalBinary(make([]byte, len(TxID{})-1)))
	assert.Error(t, id.UnmarshalBinary(nil))
}

func TestEncodingIsDeterministic(t *testing.T) {
	_, priv, err := pki.GenerateKeyPair()
	require.NoError(t, err)

	msg, err := NewSignedCommand(ID(3), 11, priv)
	require.NoError(t, err)

	a, err := wire.Marshal(msg)
	require.NoError(t, err)
	b, err := wire.Marshal(msg)
	require.NoError(t, err)
	assert.Equal(t, a, b, "replicas must agree byte for byte")
}
