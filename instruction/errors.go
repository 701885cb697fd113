package instruction

import "errors"

var (
	// ErrInvalidInstruction indicates bytes that do not decode as an instruction.
	ErrInvalidInstruction = errors.New("instruction: invalid instruction")

	// ErrUnknownAction indicates an action with no handler.
	ErrUnknownAction = errors.New("instruction: unknown action")

	// ErrInvalidPayload indicates a payload that does not decode for its action.
	ErrInvalidPayload = errors.New("instruction: invalid payload")

	// ErrMissingSignature indicates an envelope without signatures.
	ErrMissingSignature = errors.New("instruction: missing signature")

	// ErrBadSignature indicates a signature that does not verify.
	ErrBadSignature = errors.New("instruction: bad signature")

	// ErrMissingNonce indicates a signed instruction with a zero nonce.
	ErrMissingNonce = errors.New("instruction: missing nonce")

	// ErrDuplicateSigner indicates the same identity signed twice.
	ErrDuplicateSigner = errors.New("instruction: duplicate signer")
)
