// Package admin holds the singleton account that names the current admin, a
// pending admin candidate, the trusted mint authorities and the pause flag.
package admin

import (
	"errors"
	"fmt"

	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
)

// MaxMintAuthorities bounds the mint authority list.
const MaxMintAuthorities = 8

// Address is where the admin account is stored.
var Address = identity.MustDerive("admin_account")

// Account is the admin registry singleton.
type Account struct {
	Admin identity.PublicKey
	// AdminCandidate is identity.Zero when no handover is pending.
	AdminCandidate  identity.PublicKey
	MintAuthorities []identity.PublicKey
	Paused          bool
	// RewardMint is the fungible token paid out and accepted as deposit.
	RewardMint identity.PublicKey
}

// New returns a fresh, unpaused account administered by adminKey.
func New(adminKey, rewardMint identity.PublicKey) (*Account, error) {
	if adminKey.IsZero() || rewardMint.IsZero() {
		return nil, ErrInvalidPubkey
	}
	return &Account{Admin: adminKey, RewardMint: rewardMint}, nil
}

// IsAdmin reports whether key is the current admin.
func (a *Account) IsAdmin(key identity.PublicKey) bool {
	return a.Admin == key
}

// HasCandidate reports whether a handover is pending.
func (a *Account) HasCandidate() bool {
	return !a.AdminCandidate.IsZero()
}

// IsMintAuthority reports whether key is a listed mint authority.
func (a *Account) IsMintAuthority(key identity.PublicKey) bool {
	return a.indexOf(key) >= 0
}

// CanAuthorizeClaims reports whether a signature by key authorizes a claim.
func (a *Account) CanAuthorizeClaims(key identity.PublicKey) bool {
	return a.IsAdmin(key) || a.IsMintAuthority(key)
}

func (a *Account) indexOf(key identity.PublicKey) int {
	for i, k := range a.MintAuthorities {
		if k == key {
			return i
		}
	}
	return -1
}

// RequestChange nominates candidate as the next admin. Only the admin may call it.
func (a *Account) RequestChange(caller, candidate identity.PublicKey) error {
	if !a.IsAdmin(caller) {
		return fmt.Errorf("%w: %s is not admin", ErrUnauthorized, caller)
	}
	if candidate.IsZero() {
		return ErrInvalidPubkey
	}
	a.AdminCandidate = candidate
	return nil
}

// AcceptChange promotes the pending candidate. Only the candidate may call it.
func (a *Account) AcceptChange(caller identity.PublicKey) error {
	if !a.HasCandidate() {
		return fmt.Errorf("%w: %w", ErrUnauthorized, ErrNoPendingCandidate)
	}
	if a.AdminCandidate != caller {
		return fmt.Errorf("%w: %s is not the candidate", ErrUnauthorized, caller)
	}
	a.Admin = caller
	a.AdminCandidate = identity.Zero
	return nil
}

// AddMintAuthority appends key to the mint authority list.
func (a *Account) AddMintAuthority(caller, key identity.PublicKey) error {
	if !a.IsAdmin(caller) {
		return fmt.Errorf("%w: %s is not admin", ErrUnauthorized, caller)
	}
	if key.IsZero() {
		return ErrInvalidPubkey
	}
	if a.IsMintAuthority(key) {
		return fmt.Errorf("%w: %s", ErrAlreadyPresent, key)
	}
	if len(a.MintAuthorities) >= MaxMintAuthorities {
		return ErrMintAuthorityListFull
	}
	a.MintAuthorities = append(a.MintAuthorities, key)
	return nil
}

// RemoveMintAuthority deletes key from the list, keeping the order of the rest.
func (a *Account) RemoveMintAuthority(caller, key identity.PublicKey) error {
	if !a.IsAdmin(caller) {
		return fmt.Errorf("%w: %s is not admin", ErrUnauthorized, caller)
	}
	i := a.indexOf(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	a.MintAuthorities = append(a.MintAuthorities[:i], a.MintAuthorities[i+1:]...)
	return nil
}

// SetPaused sets the pause flag. Setting it to its current value is a no-op.
// It reports whether the flag changed.
func (a *Account) SetPaused(caller identity.PublicKey, paused bool) (bool, error) {
	if !a.IsAdmin(caller) {
		return false, fmt.Errorf("%w: %s is not admin", ErrUnauthorized, caller)
	}
	if a.Paused == paused {
		return false, nil
	}
	a.Paused = paused
	return true, nil
}

// RequireActive returns ErrProgramPaused if the program is paused.
func (a *Account) RequireActive() error {
	if a.Paused {
		return ErrProgramPaused
	}
	return nil
}

// Serialize encodes the account.
//
//	admin[32] candidate[32] rewardMint[32] paused u8 count u8 authorities[32*count]
func Serialize(a *Account) []byte {
	w := ledger.NewWriter(ledger.TypeAdmin, 3*identity.KeySize+2+len(a.MintAuthorities)*identity.KeySize)
	w.Key(a.Admin)
	w.Key(a.AdminCandidate)
	w.Key(a.RewardMint)
	w.Bool(a.Paused)
	w.U8(uint8(len(a.MintAuthorities)))
	for _, k := range a.MintAuthorities {
		w.Key(k)
	}
	return w.Bytes()
}

// Deserialize decodes an account written by Serialize.
func Deserialize(data []byte) (*Account, error) {
	d := ledger.NewDecoder(data, ledger.TypeAdmin)
	a := &Account{
		Admin:          d.Key(),
		AdminCandidate: d.Key(),
		RewardMint:     d.Key(),
		Paused:         d.Bool(),
	}
	n := int(d.U8())
	if n > MaxMintAuthorities {
		return nil, fmt.Errorf("%w: %d mint authorities", ledger.ErrInvalidAccountData, n)
	}
	for i := 0; i < n; i++ {
		a.MintAuthorities = append(a.MintAuthorities, d.Key())
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return a, nil
}

// Load reads the admin account, returning ErrNotInitialized if absent.
func Load(r ledger.Reader) (*Account, error) {
	data, err := r.Get(Address)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	return Deserialize(data)
}

// Store writes the admin account.
func Store(tx ledger.Tx, a *Account) error {
	return tx.Put(Address, Serialize(a))
}
