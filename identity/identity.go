// Package identity defines the 32-byte public keys that name every actor and
// account in the rewards ledger, their base58 text form, and deterministic
// address derivation from a seed string plus binding keys.
package identity

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// KeySize is the byte length of a public key or derived address.
const KeySize = 32

// PublicKey is an Ed25519 public key. Derived account addresses share the
// same representation.
type PublicKey [KeySize]byte

// Zero is the all-zero key. It never names a valid actor.
var Zero PublicKey

// PublicKeyFromBytes copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != KeySize {
		return pk, fmt.Errorf("%w: %d bytes", ErrInvalidPublicKey, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// ParsePublicKey decodes a base58 string into a PublicKey.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	return PublicKeyFromBytes(raw)
}

// MustParsePublicKey is ParsePublicKey for package-level constants; it panics on bad input.
func MustParsePublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// String returns the base58 encoding.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the key bytes.
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, pk[:])
	return b
}

// IsZero reports whether pk is the all-zero key.
func (pk PublicKey) IsZero() bool {
	return pk == Zero
}

// Equal reports whether two keys are identical.
func (pk PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(pk[:], other[:])
}

// MarshalText implements encoding.TextMarshaler (base58).
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (base58).
func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// Keypair holds an Ed25519 signing key and its public half.
type Keypair struct {
	Private ed25519.PrivateKey
	Public  PublicKey
}

// NewKeypair generates a random keypair.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}
	kp := &Keypair{Private: priv}
	copy(kp.Public[:], pub)
	return kp, nil
}

// KeypairFromSeed derives a keypair from a 32-byte Ed25519 seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes", ErrInvalidPrivateKey, ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	kp := &Keypair{Private: priv}
	copy(kp.Public[:], priv.Public().(ed25519.PublicKey))
	return kp, nil
}

// Seed returns the 32-byte seed the private key was derived from.
func (kp *Keypair) Seed() []byte {
	return kp.Private.Seed()
}

// Sign signs msg with the private key.
func (kp *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.Private, msg)
}
