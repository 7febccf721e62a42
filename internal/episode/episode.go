// Package episode defines the contract between an application state
// machine ("episode") and the replication engine that drives it from an
// externally-ordered ledger. Episodes are pure in-memory state machines:
// the engine feeds them ordered, signature-verified commands, and they
// either mutate and hand back a rollback token or reject with a typed
// error. The ledger supplies ordering and durability; the episode only
// supplies interpretation.
package episode

import (
	"encoding/hex"
	"fmt"

	"ledgerjack/internal/pki"
)

// ID identifies one episode instance across all observers.
type ID uint32

// TxID is a ledger transaction identifier.
type TxID [32]byte

// String returns the hex encoding of the transaction id.
func (t TxID) String() string {
	return hex.EncodeToString(t[:])
}

// MarshalBinary implements encoding.BinaryMarshaler so tx ids encode as
// byte strings on the wire.
func (t TxID) MarshalBinary() ([]byte, error) {
	return t[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (t *TxID) UnmarshalBinary(data []byte) error {
	if len(data) != len(t) {
		return fmt.Errorf("decoding tx id: want %d bytes, got %d", len(t), len(data))
	}
	copy(t[:], data)
	return nil
}

// Metadata describes the ledger transaction that carried a command.
// AcceptedAt is the unix time the transaction was accepted; Height is
// the accepting height, used to unwind commands on reorganization.
type Metadata struct {
	TxID       TxID
	AcceptedAt uint64
	Height     uint64
}

// Episode is the state machine contract. C is the command type, R the
// rollback token type. Execute either applies cmd and returns a token
// sufficient to reverse it, or leaves state untouched and returns an
// error. Rollback restores the state captured in the token and reports
// whether it did. Neither call may block or perform I/O; the engine
// serializes calls per episode instance.
type Episode[C, R any] interface {
	Execute(cmd C, authorization *pki.PubKey, meta Metadata) (R, error)
	Rollback(rb R) bool
}

// Factory constructs a fresh episode for a NewEpisode message.
type Factory[C, R any, E Episode[C, R]] func(participants []pki.PubKey, meta Metadata) E

// EventHandler receives synchronous notifications after each state
// mutation. Handlers get the live episode by reference for read-only
// inspection and must not retain or mutate it.
type EventHandler[C, R any, E Episode[C, R]] interface {
	OnInitialize(id ID, ep E)
	OnCommand(id ID, ep E, cmd C, authorization *pki.PubKey, meta Metadata)
	OnRollback(id ID, ep E)
}
