package ledger

import "errors"

var (
	// ErrAccountNotFound indicates no data is stored at the address.
	ErrAccountNotFound = errors.New("ledger: account not found")

	// ErrAccountExists indicates an account is already initialized at the address.
	ErrAccountExists = errors.New("ledger: account already exists")

	// ErrConflict indicates a concurrent call committed to an account this call
	// read or wrote. The call had no effect and may be resubmitted unchanged.
	ErrConflict = errors.New("ledger: concurrent modification, retry")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("ledger: store closed")

	// ErrInvalidAccountData indicates stored bytes are truncated or malformed.
	ErrInvalidAccountData = errors.New("ledger: invalid account data")

	// ErrWrongAccountType indicates the stored account has a different type tag.
	ErrWrongAccountType = errors.New("ledger: wrong account type")

	// ErrOwnerMismatch indicates the signing authority does not own the source token account.
	ErrOwnerMismatch = errors.New("ledger: token account owner mismatch")

	// ErrMintMismatch indicates the two token accounts hold different mints.
	ErrMintMismatch = errors.New("ledger: token account mint mismatch")

	// ErrInsufficientBalance indicates the source token account holds less than the amount.
	ErrInsufficientBalance = errors.New("ledger: insufficient token balance")

	// ErrBalanceOverflow indicates a credit or mint would overflow uint64.
	ErrBalanceOverflow = errors.New("ledger: balance overflow")

	// ErrMintAuthority indicates the signer is not the mint authority.
	ErrMintAuthority = errors.New("ledger: not the mint authority")

	// ErrZeroAmount indicates a transfer or mint of zero units.
	ErrZeroAmount = errors.New("ledger: zero amount")
)
