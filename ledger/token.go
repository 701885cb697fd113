package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/bitfsorg/librewards-go/identity"
)

const (
	mintSize         = 32 + 8 + 1  // authority + supply + decimals
	tokenAccountSize = 32 + 32 + 8 // mint + owner + amount
)

// Mint describes a token. A non-fungible token is a mint with supply 1 and
// decimals 0.
type Mint struct {
	Authority identity.PublicKey
	Supply    uint64
	Decimals  uint8
}

// IsNonFungible reports whether the mint has the shape of a single NFT.
func (m *Mint) IsNonFungible() bool {
	return m.Supply == 1 && m.Decimals == 0
}

// TokenAccount holds Amount units of Mint on behalf of Owner.
type TokenAccount struct {
	Mint   identity.PublicKey
	Owner  identity.PublicKey
	Amount uint64
}

// SerializeMint encodes a mint account.
func SerializeMint(m *Mint) []byte {
	w := NewWriter(TypeMint, mintSize)
	w.Key(m.Authority)
	w.U64(m.Supply)
	w.U8(m.Decimals)
	return w.Bytes()
}

// DeserializeMint decodes a mint account.
func DeserializeMint(data []byte) (*Mint, error) {
	d := NewDecoder(data, TypeMint)
	m := &Mint{
		Authority: d.Key(),
		Supply:    d.U64(),
		Decimals:  d.U8(),
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return m, nil
}

// SerializeTokenAccount encodes a token account.
func SerializeTokenAccount(a *TokenAccount) []byte {
	w := NewWriter(TypeTokenAccount, tokenAccountSize)
	w.Key(a.Mint)
	w.Key(a.Owner)
	w.U64(a.Amount)
	return w.Bytes()
}

// DeserializeTokenAccount decodes a token account.
func DeserializeTokenAccount(data []byte) (*TokenAccount, error) {
	d := NewDecoder(data, TypeTokenAccount)
	a := &TokenAccount{
		Mint:   d.Key(),
		Owner:  d.Key(),
		Amount: d.U64(),
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return a, nil
}

// AssociatedTokenAddress returns the canonical token account address of owner for mint.
func AssociatedTokenAddress(owner, mint identity.PublicKey) identity.PublicKey {
	return identity.MustDerive("associated_token", owner, mint)
}

// ReadMint loads the mint at addr.
func ReadMint(r Reader, addr identity.PublicKey) (*Mint, error) {
	data, err := r.Get(addr)
	if err != nil {
		return nil, fmt.Errorf("read mint %s: %w", addr, err)
	}
	return DeserializeMint(data)
}

// ReadTokenAccount loads the token account at addr.
func ReadTokenAccount(r Reader, addr identity.PublicKey) (*TokenAccount, error) {
	data, err := r.Get(addr)
	if err != nil {
		return nil, fmt.Errorf("read token account %s: %w", addr, err)
	}
	return DeserializeTokenAccount(data)
}

// WriteTokenAccount stores a at addr.
func WriteTokenAccount(tx Tx, addr identity.PublicKey, a *TokenAccount) error {
	return tx.Put(addr, SerializeTokenAccount(a))
}

// CreateMint initializes a mint at addr with zero supply.
func CreateMint(tx Tx, addr, authority identity.PublicKey, decimals uint8) (*Mint, error) {
	if _, err := tx.Get(addr); err == nil {
		return nil, fmt.Errorf("%w: mint %s", ErrAccountExists, addr)
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}
	m := &Mint{Authority: authority, Decimals: decimals}
	if err := tx.Put(addr, SerializeMint(m)); err != nil {
		return nil, err
	}
	return m, nil
}

// OpenTokenAccount returns the token account at addr, creating an empty one
// for (mint, owner) if none exists. An existing account must match both.
func OpenTokenAccount(tx Tx, addr, mint, owner identity.PublicKey) (*TokenAccount, error) {
	acc, err := ReadTokenAccount(tx, addr)
	switch {
	case err == nil:
		if acc.Mint != mint {
			return nil, fmt.Errorf("%w: account %s holds %s", ErrMintMismatch, addr, acc.Mint)
		}
		if acc.Owner != owner {
			return nil, fmt.Errorf("%w: account %s owned by %s", ErrOwnerMismatch, addr, acc.Owner)
		}
		return acc, nil
	case errors.Is(err, ErrAccountNotFound):
		if _, err := ReadMint(tx, mint); err != nil {
			return nil, err
		}
		acc = &TokenAccount{Mint: mint, Owner: owner}
		if err := WriteTokenAccount(tx, addr, acc); err != nil {
			return nil, err
		}
		return acc, nil
	default:
		return nil, err
	}
}

// MintTo issues amount new units of mintAddr into dest, signed by authority.
func MintTo(tx Tx, mintAddr, authority, dest identity.PublicKey, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	m, err := ReadMint(tx, mintAddr)
	if err != nil {
		return err
	}
	if m.Authority != authority {
		return fmt.Errorf("%w: %s", ErrMintAuthority, authority)
	}
	acc, err := ReadTokenAccount(tx, dest)
	if err != nil {
		return err
	}
	if acc.Mint != mintAddr {
		return fmt.Errorf("%w: account %s holds %s", ErrMintMismatch, dest, acc.Mint)
	}
	if m.Supply > math.MaxUint64-amount || acc.Amount > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	m.Supply += amount
	acc.Amount += amount
	if err := tx.Put(mintAddr, SerializeMint(m)); err != nil {
		return err
	}
	return WriteTokenAccount(tx, dest, acc)
}

// Transfer moves amount units from one token account to another of the same
// mint. authority must own the source account.
func Transfer(tx Tx, from, to, authority identity.PublicKey, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	src, err := ReadTokenAccount(tx, from)
	if err != nil {
		return err
	}
	dst, err := ReadTokenAccount(tx, to)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return fmt.Errorf("%w: %s does not own %s", ErrOwnerMismatch, authority, from)
	}
	if src.Mint != dst.Mint {
		return fmt.Errorf("%w: %s -> %s", ErrMintMismatch, src.Mint, dst.Mint)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, src.Amount, amount)
	}
	if from == to {
		return nil
	}
	if dst.Amount > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	src.Amount -= amount
	dst.Amount += amount
	if err := WriteTokenAccount(tx, from, src); err != nil {
		return err
	}
	return WriteTokenAccount(tx, to, dst)
}
