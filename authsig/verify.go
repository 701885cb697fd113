package authsig

import (
	"crypto/ed25519"
	"fmt"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	lru "github.com/hashicorp/golang-lru"

	"github.com/bitfsorg/librewards-go/identity"
)

// DefaultCacheSize is the number of verified signatures a Verifier remembers.
const DefaultCacheSize = 4096

// Verify reports whether sig is a valid Ed25519 signature by signer over msg.
// Malformed signatures verify false.
func Verify(msg, sig []byte, signer identity.PublicKey) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signer[:]), msg, sig)
}

// Verifier wraps Verify with an ARC cache of positive results keyed by
// SHA256(signer || sig || msg). Negative results are never cached.
type Verifier struct {
	cache *lru.ARCCache
}

// NewVerifier creates a Verifier remembering up to size verified signatures.
func NewVerifier(size int) (*Verifier, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCacheSize, size)
	}
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("authsig: create cache: %w", err)
	}
	return &Verifier{cache: cache}, nil
}

// Verify is the cached form of the package-level Verify.
func (v *Verifier) Verify(msg, sig []byte, signer identity.PublicKey) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	key := cacheKey(msg, sig, signer)
	if _, ok := v.cache.Get(key); ok {
		return true
	}
	if !Verify(msg, sig, signer) {
		return false
	}
	v.cache.Add(key, struct{}{})
	return true
}

// Len returns the number of cached verifications.
func (v *Verifier) Len() int {
	return v.cache.Len()
}

func cacheKey(msg, sig []byte, signer identity.PublicKey) [32]byte {
	buf := make([]byte, 0, identity.KeySize+len(sig)+len(msg))
	buf = append(buf, signer[:]...)
	buf = append(buf, sig...)
	buf = append(buf, msg...)
	var key [32]byte
	copy(key[:], bsvhash.Sha256(buf))
	return key
}
