package replay

import "errors"

var (
	// ErrNonceAlreadyClaimed indicates the nonce does not advance past the last consumed nonce.
	ErrNonceAlreadyClaimed = errors.New("replay: nonce already claimed")

	// ErrClaimAlreadyMadeToday indicates the claim falls inside the rate-limit window.
	ErrClaimAlreadyMadeToday = errors.New("replay: claim already made today")

	// ErrUnknownPolicy indicates an unrecognized policy name.
	ErrUnknownPolicy = errors.New("replay: unknown policy")

	// ErrUnknownWindowMode indicates an unrecognized window mode name.
	ErrUnknownWindowMode = errors.New("replay: unknown window mode")

	// ErrInvalidPeriod indicates a non-positive rate-limit period.
	ErrInvalidPeriod = errors.New("replay: invalid period")

	// ErrTotalOverflow indicates the claimed total would overflow uint64.
	ErrTotalOverflow = errors.New("replay: claimed total overflow")
)
