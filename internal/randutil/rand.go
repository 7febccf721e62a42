package randutil

import (
	"encoding/binary"

	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// FromBytes derives a seed from the first 8 bytes of b (big-endian) and
// returns a *rand.Rand for it. Every replica deriving from the same
// bytes gets the same sequence, which is how deck shuffles stay in
// agreement across observers of the same ledger transaction.
func FromBytes(b []byte) *rand.Rand {
	var buf [8]byte
	copy(buf[:], b)
	return New(int64(binary.BigEndian.Uint64(buf[:])))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
