package rewards

import (
	"errors"

	"github.com/bitfsorg/librewards-go/admin"
	"github.com/bitfsorg/librewards-go/authsig"
	"github.com/bitfsorg/librewards-go/custody"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/node"
	"github.com/bitfsorg/librewards-go/replay"
)

var (
	// ErrInvalidOwnershipProof indicates the caller is not the identity the
	// node expects, or the NFT mint is not a valid node token.
	ErrInvalidOwnershipProof = errors.New("rewards: invalid ownership proof")

	// ErrInvalidNftTokenAccount indicates the presented NFT account is missing,
	// holds another mint or is held by the wrong owner.
	ErrInvalidNftTokenAccount = errors.New("rewards: invalid nft token account")

	// ErrInsufficientNftBalance indicates the presented NFT account is empty.
	ErrInsufficientNftBalance = errors.New("rewards: insufficient nft balance")

	// ErrInvalidTokenAccount indicates a fungible account does not hold the
	// reward mint or is not held by the caller.
	ErrInvalidTokenAccount = errors.New("rewards: invalid token account")

	// ErrInvalidAmount indicates a zero amount or a claim whose split pays nothing.
	ErrInvalidAmount = errors.New("rewards: invalid amount")

	// ErrInstructionReplayed indicates a signed instruction that already took effect.
	ErrInstructionReplayed = errors.New("rewards: instruction replayed")
)

// ErrorKind classifies failures for callers that do not inspect sentinels.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindUnauthorized
	KindAlreadyInitialized
	KindNotInitialized
	KindAlreadyPresent
	KindNotFound
	KindMintAuthorityListFull
	KindInvalidPubkey
	KindProgramPaused
	KindNodeAlreadyRegistered
	KindNodeNotFound
	KindInvalidOwnershipProof
	KindInvalidNftTokenAccount
	KindInsufficientNftBalance
	KindClaimAlreadyMadeToday
	KindNonceAlreadyClaimed
	KindAlreadyDeposited
	KindNoDeposit
	KindDepositNotRequired
	KindWithdrawTooEarly
	KindInsufficientFunds
	KindInvalidShare
	KindInvalidTokenAccount
	KindInvalidAmount
	KindInstructionReplayed
	KindRetryable
	KindFatal
)

var kindNames = [...]string{
	KindNone:                   "None",
	KindUnauthorized:           "Unauthorized",
	KindAlreadyInitialized:     "AlreadyInitialized",
	KindNotInitialized:         "NotInitialized",
	KindAlreadyPresent:         "AlreadyPresent",
	KindNotFound:               "NotFound",
	KindMintAuthorityListFull:  "MintAuthorityListFull",
	KindInvalidPubkey:          "InvalidPubkey",
	KindProgramPaused:          "ProgramPaused",
	KindNodeAlreadyRegistered:  "NodeAlreadyRegistered",
	KindNodeNotFound:           "NodeNotFound",
	KindInvalidOwnershipProof:  "InvalidOwnershipProof",
	KindInvalidNftTokenAccount: "InvalidNftTokenAccount",
	KindInsufficientNftBalance: "InsufficientNftBalance",
	KindClaimAlreadyMadeToday:  "ClaimAlreadyMadeToday",
	KindNonceAlreadyClaimed:    "NonceAlreadyClaimed",
	KindAlreadyDeposited:       "AlreadyDeposited",
	KindNoDeposit:              "NoDeposit",
	KindDepositNotRequired:     "DepositNotRequired",
	KindWithdrawTooEarly:       "WithdrawTooEarly",
	KindInsufficientFunds:      "InsufficientFunds",
	KindInvalidShare:           "InvalidShare",
	KindInvalidTokenAccount:    "InvalidTokenAccount",
	KindInvalidAmount:          "InvalidAmount",
	KindInstructionReplayed:    "InstructionReplayed",
	KindRetryable:              "Retryable",
	KindFatal:                  "Fatal",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// kindTable is checked in order; the first sentinel in the chain wins.
var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ledger.ErrConflict, KindRetryable},

	{admin.ErrUnauthorized, KindUnauthorized},
	{admin.ErrAlreadyInitialized, KindAlreadyInitialized},
	{admin.ErrNotInitialized, KindNotInitialized},
	{admin.ErrAlreadyPresent, KindAlreadyPresent},
	{admin.ErrNotFound, KindNotFound},
	{admin.ErrMintAuthorityListFull, KindMintAuthorityListFull},
	{admin.ErrInvalidPubkey, KindInvalidPubkey},
	{node.ErrInvalidPubkey, KindInvalidPubkey},
	{admin.ErrProgramPaused, KindProgramPaused},

	{node.ErrNodeAlreadyRegistered, KindNodeAlreadyRegistered},
	{node.ErrNodeNotFound, KindNodeNotFound},
	{ErrInvalidOwnershipProof, KindInvalidOwnershipProof},
	{ErrInvalidNftTokenAccount, KindInvalidNftTokenAccount},
	{ErrInsufficientNftBalance, KindInsufficientNftBalance},

	{replay.ErrClaimAlreadyMadeToday, KindClaimAlreadyMadeToday},
	{replay.ErrNonceAlreadyClaimed, KindNonceAlreadyClaimed},

	{node.ErrAlreadyDeposited, KindAlreadyDeposited},
	{node.ErrNoDeposit, KindNoDeposit},
	{node.ErrDepositNotRequired, KindDepositNotRequired},
	{node.ErrWithdrawTooEarly, KindWithdrawTooEarly},

	{custody.ErrInsufficientFunds, KindInsufficientFunds},
	{ledger.ErrInsufficientBalance, KindInsufficientFunds},

	{node.ErrInvalidShare, KindInvalidShare},
	{custody.ErrInvalidShare, KindInvalidShare},
	{authsig.ErrInvalidShares, KindInvalidShare},

	{ErrInvalidTokenAccount, KindInvalidTokenAccount},
	{ErrInvalidAmount, KindInvalidAmount},
	{custody.ErrZeroAmount, KindInvalidAmount},
	{ledger.ErrZeroAmount, KindInvalidAmount},

	{ErrInstructionReplayed, KindInstructionReplayed},
}

// KindOf maps err onto the error taxonomy. Unclassified errors, including
// broken custody accounting and corrupt account data, are KindFatal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, e := range kindTable {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindFatal
}

// IsRetryable reports whether the call had no effect because a concurrent
// call committed first, so it may be resubmitted unchanged.
func IsRetryable(err error) bool {
	return KindOf(err) == KindRetryable
}
