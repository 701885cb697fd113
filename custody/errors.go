package custody

import "errors"

var (
	// ErrInsufficientFunds indicates the custody balance cannot cover the payout.
	ErrInsufficientFunds = errors.New("custody: insufficient funds")

	// ErrArithmeticOverflow indicates a balance or counter would overflow.
	ErrArithmeticOverflow = errors.New("custody: arithmetic overflow")

	// ErrCustodyImbalance indicates the tracked balance differs from the vault token account.
	ErrCustodyImbalance = errors.New("custody: balance does not match vault")

	// ErrNotFound indicates no custody account exists at the address.
	ErrNotFound = errors.New("custody: not found")

	// ErrAlreadyExists indicates a custody account already exists at the address.
	ErrAlreadyExists = errors.New("custody: already exists")

	// ErrInvalidShare indicates a share percentage or share sum above 100.
	ErrInvalidShare = errors.New("custody: invalid share")

	// ErrZeroAmount indicates a fund or payout of zero units.
	ErrZeroAmount = errors.New("custody: zero amount")
)
