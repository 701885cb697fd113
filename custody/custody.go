// Package custody tracks pooled token balances held by the program: the
// reward pool that pays claims and the per-node deposit escrows. Every
// movement goes through the ledger's token transfer and the tracked balance
// must always equal the vault token account.
package custody

import (
	"errors"
	"fmt"
	"math"

	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
)

// PoolAddress is the reward pool custody account.
var PoolAddress = identity.MustDerive("token_storage")

// EscrowAddress returns the deposit escrow custody account of a node.
func EscrowAddress(nftMint identity.PublicKey) identity.PublicKey {
	return identity.MustDerive("token_storage", nftMint)
}

// Custody is a program-owned balance of one mint. Vault is the token account
// that actually holds the units; it is owned by Address.
type Custody struct {
	Address     identity.PublicKey
	Mint        identity.PublicKey
	Vault       identity.PublicKey
	Balance     uint64
	TotalFunded uint64
	TotalPaid   uint64
}

// Open creates the custody record at addr and its vault token account.
func Open(tx ledger.Tx, addr, mint identity.PublicKey) (*Custody, error) {
	if _, err := tx.Get(addr); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, addr)
	} else if !errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, err
	}
	c := &Custody{
		Address: addr,
		Mint:    mint,
		Vault:   ledger.AssociatedTokenAddress(addr, mint),
	}
	vault, err := ledger.OpenTokenAccount(tx, c.Vault, mint, addr)
	if err != nil {
		return nil, fmt.Errorf("custody: open vault: %w", err)
	}
	c.Balance = vault.Amount
	c.TotalFunded = vault.Amount
	if err := Store(tx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Credit records amount received.
func (c *Custody) Credit(amount uint64) error {
	if c.Balance > math.MaxUint64-amount || c.TotalFunded > math.MaxUint64-amount {
		return ErrArithmeticOverflow
	}
	c.Balance += amount
	c.TotalFunded += amount
	return nil
}

// Debit records amount paid out.
func (c *Custody) Debit(amount uint64) error {
	if amount > c.Balance {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, c.Balance, amount)
	}
	if c.TotalPaid > math.MaxUint64-amount {
		return ErrArithmeticOverflow
	}
	c.Balance -= amount
	c.TotalPaid += amount
	return nil
}

// CheckVault verifies the tracked balance against the vault token account.
func (c *Custody) CheckVault(r ledger.Reader) error {
	vault, err := ledger.ReadTokenAccount(r, c.Vault)
	if err != nil {
		return fmt.Errorf("custody: read vault: %w", err)
	}
	if vault.Mint != c.Mint || vault.Owner != c.Address {
		return fmt.Errorf("%w: vault %s not held by %s", ErrCustodyImbalance, c.Vault, c.Address)
	}
	if vault.Amount != c.Balance {
		return fmt.Errorf("%w: tracked %d, vault %d", ErrCustodyImbalance, c.Balance, vault.Amount)
	}
	return nil
}

// Fund moves amount from the source token account, owned by authority, into the vault.
func Fund(tx ledger.Tx, c *Custody, from, authority identity.PublicKey, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if err := c.CheckVault(tx); err != nil {
		return err
	}
	if err := c.Credit(amount); err != nil {
		return err
	}
	if err := ledger.Transfer(tx, from, c.Vault, authority, amount); err != nil {
		return err
	}
	return Store(tx, c)
}

// Payout is one destination of a Pay call.
type Payout struct {
	To     identity.PublicKey
	Amount uint64
}

// Pay moves each payout from the vault. Zero-amount payouts are skipped. The
// total is checked against the balance before any transfer.
func Pay(tx ledger.Tx, c *Custody, payouts ...Payout) error {
	if err := c.CheckVault(tx); err != nil {
		return err
	}
	var total uint64
	for _, p := range payouts {
		if total > math.MaxUint64-p.Amount {
			return ErrArithmeticOverflow
		}
		total += p.Amount
	}
	if total == 0 {
		return ErrZeroAmount
	}
	if err := c.Debit(total); err != nil {
		return err
	}
	for _, p := range payouts {
		if p.Amount == 0 {
			continue
		}
		if err := ledger.Transfer(tx, c.Vault, p.To, c.Address, p.Amount); err != nil {
			return err
		}
	}
	return Store(tx, c)
}

const custodySize = 3*identity.KeySize + 3*8

// Serialize encodes the custody record.
func Serialize(c *Custody) []byte {
	w := ledger.NewWriter(ledger.TypeCustody, custodySize)
	w.Key(c.Mint)
	w.Key(c.Vault)
	w.U64(c.Balance)
	w.U64(c.TotalFunded)
	w.U64(c.TotalPaid)
	w.Key(c.Address)
	return w.Bytes()
}

// Deserialize decodes a custody record.
func Deserialize(data []byte) (*Custody, error) {
	d := ledger.NewDecoder(data, ledger.TypeCustody)
	c := &Custody{
		Mint:        d.Key(),
		Vault:       d.Key(),
		Balance:     d.U64(),
		TotalFunded: d.U64(),
		TotalPaid:   d.U64(),
		Address:     d.Key(),
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the custody record at addr.
func Load(r ledger.Reader, addr identity.PublicKey) (*Custody, error) {
	data, err := r.Get(addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
		}
		return nil, err
	}
	return Deserialize(data)
}

// Store writes c at its address.
func Store(tx ledger.Tx, c *Custody) error {
	return tx.Put(c.Address, Serialize(c))
}
