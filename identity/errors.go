package identity

import "errors"

var (
	// ErrInvalidPublicKey indicates a key is not exactly 32 bytes or fails base58 decoding.
	ErrInvalidPublicKey = errors.New("identity: invalid public key")

	// ErrInvalidPrivateKey indicates a private key or seed has the wrong length.
	ErrInvalidPrivateKey = errors.New("identity: invalid private key")

	// ErrSeedTooLong indicates a derivation seed exceeds MaxSeedLen bytes.
	ErrSeedTooLong = errors.New("identity: derivation seed too long")
)
