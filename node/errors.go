package node

import "errors"

var (
	// ErrNodeAlreadyRegistered indicates an entry already exists for the NFT mint.
	ErrNodeAlreadyRegistered = errors.New("node: already registered")

	// ErrNodeNotFound indicates no entry exists for the NFT mint.
	ErrNodeNotFound = errors.New("node: not found")

	// ErrInvalidShare indicates a share percentage above 100.
	ErrInvalidShare = errors.New("node: invalid share")

	// ErrInvalidPubkey indicates a required identity is the zero key.
	ErrInvalidPubkey = errors.New("node: invalid public key")

	// ErrUnknownKind indicates an unrecognized node kind.
	ErrUnknownKind = errors.New("node: unknown kind")

	// ErrUnknownRole indicates an unrecognized claimant role.
	ErrUnknownRole = errors.New("node: unknown role")

	// ErrDepositNotRequired indicates the node kind takes no deposit.
	ErrDepositNotRequired = errors.New("node: deposit not required for kind")

	// ErrAlreadyDeposited indicates a deposit is already held for the node.
	ErrAlreadyDeposited = errors.New("node: already deposited")

	// ErrNoDeposit indicates no deposit is held for the node.
	ErrNoDeposit = errors.New("node: no deposit")

	// ErrWithdrawTooEarly indicates the lock period has not elapsed.
	ErrWithdrawTooEarly = errors.New("node: withdraw too early")
)
