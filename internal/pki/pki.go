// Package pki handles participant identity: ed25519 keypairs, hex
// encodings for passing keys on the command line, and signing of
// wire-encoded payloads.
package pki

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// PubKey is a participant's public identity. It is a comparable value
// type so it can key maps and compare with ==.
type PubKey [ed25519.PublicKeySize]byte

// String returns the hex encoding of the key.
func (p PubKey) String() string {
	return hex.EncodeToString(p[:])
}

// Short returns a truncated hex form for logs and UI.
func (p PubKey) Short() string {
	return hex.EncodeToString(p[:4])
}

// MarshalBinary implements encoding.BinaryMarshaler so keys encode as
// byte strings on the wire rather than integer arrays.
func (p PubKey) MarshalBinary() ([]byte, error) {
	return p[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *PubKey) UnmarshalBinary(data []byte) error {
	if len(data) != ed25519.PublicKeySize {
		return fmt.Errorf("decoding public key: want %d bytes, got %d", ed25519.PublicKeySize, len(data))
	}
	copy(p[:], data)
	return nil
}

// PrivateKey is an ed25519 signing key.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh keypair from crypto/rand.
func GenerateKeyPair() (PubKey, PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return PubKey{}, PrivateKey{}, fmt.Errorf("generating keypair: %w", err)
	}
	var pk PubKey
	copy(pk[:], pub)
	return pk, PrivateKey{key: priv}, nil
}

// ParsePubKey decodes a hex-encoded public key.
func ParsePubKey(s string) (PubKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PubKey{}, fmt.Errorf("parsing public key: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return PubKey{}, fmt.Errorf("parsing public key: want %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	var pk PubKey
	copy(pk[:], b)
	return pk, nil
}

// ParsePrivateKey decodes a hex-encoded private key (64-byte ed25519 form).
func ParsePrivateKey(s string) (PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("parsing private key: %w", err)
	}
	if len(b) != ed25519.PrivateKeySize {
		return PrivateKey{}, fmt.Errorf("parsing private key: want %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	return PrivateKey{key: ed25519.PrivateKey(b)}, nil
}

// String returns the hex encoding of the private key.
func (k PrivateKey) String() string {
	return hex.EncodeToString(k.key)
}

// Public returns the public key for this private key.
func (k PrivateKey) Public() PubKey {
	var pk PubKey
	copy(pk[:], k.key.Public().(ed25519.PublicKey))
	return pk
}

// Sign signs msg.
func (k PrivateKey) Sign(msg []byte) []byte {
	return ed25519.Sign(k.key, msg)
}

// Verify reports whether sig is a valid signature of msg under pub.
func Verify(pub PubKey, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}
