package admin

import "errors"

var (
	// ErrUnauthorized indicates the caller does not hold the required role.
	ErrUnauthorized = errors.New("admin: unauthorized")

	// ErrAlreadyInitialized indicates the admin account already exists.
	ErrAlreadyInitialized = errors.New("admin: already initialized")

	// ErrNotInitialized indicates the admin account does not exist yet.
	ErrNotInitialized = errors.New("admin: not initialized")

	// ErrAlreadyPresent indicates the mint authority is already listed.
	ErrAlreadyPresent = errors.New("admin: mint authority already present")

	// ErrNotFound indicates the mint authority is not listed.
	ErrNotFound = errors.New("admin: mint authority not found")

	// ErrMintAuthorityListFull indicates the list holds MaxMintAuthorities entries.
	ErrMintAuthorityListFull = errors.New("admin: mint authority list full")

	// ErrInvalidPubkey indicates the zero key was supplied where an identity is required.
	ErrInvalidPubkey = errors.New("admin: invalid public key")

	// ErrProgramPaused indicates mutations are suspended.
	ErrProgramPaused = errors.New("admin: program paused")

	// ErrNoPendingCandidate indicates accept was called with no candidate set.
	ErrNoPendingCandidate = errors.New("admin: no pending admin candidate")
)
