package identity

import (
	"encoding/binary"
	"fmt"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

// MaxSeedLen caps the seed string accepted by Derive.
const MaxSeedLen = 64

// deriveDomain separates derived addresses from any other SHA-256 use.
var deriveDomain = []byte("librewards/derived-address")

// Derive returns the deterministic address for seed bound to keys.
//
//	addr = SHA256(domain || len(seed) u16 BE || seed || key_1 || ... || key_n)
//
// The seed is length-prefixed and every key is fixed-width, so distinct
// (seed, keys) combinations never produce the same preimage.
func Derive(seed string, keys ...PublicKey) (PublicKey, error) {
	if len(seed) > MaxSeedLen {
		return PublicKey{}, fmt.Errorf("%w: %d bytes", ErrSeedTooLong, len(seed))
	}
	buf := make([]byte, 0, len(deriveDomain)+2+len(seed)+KeySize*len(keys))
	buf = append(buf, deriveDomain...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(seed)))
	buf = append(buf, seed...)
	for _, k := range keys {
		buf = append(buf, k[:]...)
	}
	var addr PublicKey
	copy(addr[:], bsvhash.Sha256(buf))
	return addr, nil
}

// MustDerive is Derive for compile-time seeds. It panics only if seed exceeds MaxSeedLen.
func MustDerive(seed string, keys ...PublicKey) PublicKey {
	addr, err := Derive(seed, keys...)
	if err != nil {
		panic(err)
	}
	return addr
}
