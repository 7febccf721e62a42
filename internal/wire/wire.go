// Package wire provides the deterministic binary encoding used for
// everything that crosses the ledger or is signed: commands, episode
// messages, and state projections. Two replicas encoding the same value
// must produce identical bytes, so all encoding goes through CBOR in
// core deterministic mode with integer keys and fixed field order.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: building encode mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: building decode mode: %v", err))
	}
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v, rejecting indefinite-length and
// duplicate-key encodings that a deterministic encoder never emits.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
