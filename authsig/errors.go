package authsig

import "errors"

var (
	// ErrInvalidMessage indicates a claim message is neither 48 nor 50 bytes.
	ErrInvalidMessage = errors.New("authsig: invalid claim message")

	// ErrInvalidShares indicates explicit owner and host shares sum above 100.
	ErrInvalidShares = errors.New("authsig: shares exceed 100 percent")

	// ErrInvalidCacheSize indicates a non-positive verifier cache size.
	ErrInvalidCacheSize = errors.New("authsig: invalid cache size")
)
