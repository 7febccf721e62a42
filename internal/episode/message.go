package episode

import (
	"errors"
	"fmt"

	"ledgerjack/internal/pki"
	"ledgerjack/internal/wire"
)

// MessageKind discriminates the episode message variants.
type MessageKind uint8

const (
	// KindNewEpisode announces a new episode and binds its participants.
	KindNewEpisode MessageKind = iota + 1
	// KindSignedCommand carries a command signed by the issuing participant.
	KindSignedCommand
	// KindUnsignedCommand carries a command with no authorization attached.
	KindUnsignedCommand
)

// Message is the wire form of episode traffic embedded in ledger
// transactions. Field presence depends on Kind; the engine validates
// shape before dispatch.
type Message struct {
	Kind         MessageKind  `cbor:"1,keyasint"`
	EpisodeID    ID           `cbor:"2,keyasint"`
	Participants []pki.PubKey `cbor:"3,keyasint,omitempty"`
	Command      []byte       `cbor:"4,keyasint,omitempty"`
	PubKey       []byte       `cbor:"5,keyasint,omitempty"`
	Signature    []byte       `cbor:"6,keyasint,omitempty"`
}

// ErrBadSignature is returned when a signed command's signature does not
// verify under the attached public key.
var ErrBadSignature = errors.New("episode: bad command signature")

// NewEpisodeMessage builds the announcement message for a new episode.
func NewEpisodeMessage(id ID, participants []pki.PubKey) Message {
	return Message{
		Kind:         KindNewEpisode,
		EpisodeID:    id,
		Participants: participants,
	}
}

// NewSignedCommand wire-encodes cmd and signs (episode id, command
// bytes) with priv. The signature covers the deterministic encoding, so
// every replica verifies the same bytes.
func NewSignedCommand[C any](id ID, cmd C, priv pki.PrivateKey) (Message, error) {
	body, err := wire.Marshal(cmd)
	if err != nil {
		return Message{}, fmt.Errorf("encoding command: %w", err)
	}
	msg, err := signingBytes(id, body)
	if err != nil {
		return Message{}, err
	}
	pub := priv.Public()
	return Message{
		Kind:      KindSignedCommand,
		EpisodeID: id,
		Command:   body,
		PubKey:    pub[:],
		Signature: priv.Sign(msg),
	}, nil
}

// NewUnsignedCommand wire-encodes cmd with no authorization. Episodes
// that require authorization will reject it; some episodes accept
// unauthenticated commands and this is the vehicle for those.
func NewUnsignedCommand[C any](id ID, cmd C) (Message, error) {
	body, err := wire.Marshal(cmd)
	if err != nil {
		return Message{}, fmt.Errorf("encoding command: %w", err)
	}
	return Message{
		Kind:      KindUnsignedCommand,
		EpisodeID: id,
		Command:   body,
	}, nil
}

// Authorization verifies the message signature, if any, and returns the
// authenticated signer identity. A nil return with a nil error means the
// command is unsigned.
func (m Message) Authorization() (*pki.PubKey, error) {
	if m.Kind != KindSignedCommand {
		return nil, nil
	}
	if len(m.PubKey) != len(pki.PubKey{}) {
		return nil, fmt.Errorf("episode: malformed pubkey (%d bytes)", len(m.PubKey))
	}
	var pub pki.PubKey
	copy(pub[:], m.PubKey)
	msg, err := signingBytes(m.EpisodeID, m.Command)
	if err != nil {
		return nil, err
	}
	if !pki.Verify(pub, msg, m.Signature) {
		return nil, ErrBadSignature
	}
	return &pub, nil
}

func signingBytes(id ID, command []byte) ([]byte, error) {
	b, err := wire.Marshal(struct {
		EpisodeID ID     `cbor:"1,keyasint"`
		Command   []byte `cbor:"2,keyasint"`
	}{EpisodeID: id, Command: command})
	if err != nil {
		return nil, fmt.Errorf("encoding signing payload: %w", err)
	}
	return b, nil
}
