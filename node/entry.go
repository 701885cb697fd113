// Package node defines the per-node registry entry: who owns and hosts the
// node, how rewards are split, deposit state and per-role claim history.
package node

import (
	"errors"
	"fmt"
	"time"

	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/replay"
)

const (
	// MaxShare is the upper bound of any share percentage.
	MaxShare = 100

	// DefaultDepositAmount is the BYOD deposit in base units.
	DefaultDepositAmount uint64 = 5_000_000_000

	// DefaultLockPeriod is how long a deposit stays locked.
	DefaultLockPeriod = 30 * 24 * time.Hour
)

// Address returns where the entry for nftMint is stored.
func Address(nftMint identity.PublicKey) identity.PublicKey {
	return identity.MustDerive("nfnode_entry", nftMint)
}

// Entry is the registry record of one node, keyed by its NFT mint.
type Entry struct {
	NftMint      identity.PublicKey
	Owner        identity.PublicKey
	Host         identity.PublicKey
	Manufacturer identity.PublicKey

	// HostShare applies to what remains after ManufacturerShare.
	HostShare         uint8
	ManufacturerShare uint8
	Kind              Kind

	DepositMade   bool
	DepositAmount uint64
	LockedSince   int64

	OwnerClaims replay.Record
	HostClaims  replay.Record

	TotalRewardsClaimed uint64
	CreatedAt           int64
}

// Params are the caller-supplied fields of a new entry.
type Params struct {
	NftMint           identity.PublicKey `json:"nftMint"`
	Owner             identity.PublicKey `json:"owner"`
	Host              identity.PublicKey `json:"host"`
	Manufacturer      identity.PublicKey `json:"manufacturer"`
	HostShare         uint8              `json:"hostShare"`
	ManufacturerShare uint8              `json:"manufacturerShare"`
	Kind              Kind               `json:"kind"`
}

// ValidateShares checks both percentages are at most 100.
func ValidateShares(hostShare, manufacturerShare uint8) error {
	if hostShare > MaxShare {
		return fmt.Errorf("%w: host share %d", ErrInvalidShare, hostShare)
	}
	if manufacturerShare > MaxShare {
		return fmt.Errorf("%w: manufacturer share %d", ErrInvalidShare, manufacturerShare)
	}
	return nil
}

// New validates p and returns an entry created at now.
func New(p Params, now int64) (*Entry, error) {
	if p.NftMint.IsZero() || p.Owner.IsZero() || p.Host.IsZero() {
		return nil, ErrInvalidPubkey
	}
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, p.Kind)
	}
	if err := ValidateShares(p.HostShare, p.ManufacturerShare); err != nil {
		return nil, err
	}
	if p.ManufacturerShare > 0 && p.Manufacturer.IsZero() {
		return nil, fmt.Errorf("%w: manufacturer share without manufacturer", ErrInvalidShare)
	}
	return &Entry{
		NftMint:           p.NftMint,
		Owner:             p.Owner,
		Host:              p.Host,
		Manufacturer:      p.Manufacturer,
		HostShare:         p.HostShare,
		ManufacturerShare: p.ManufacturerShare,
		Kind:              p.Kind,
		CreatedAt:         now,
	}, nil
}

// UpdateHost replaces the host and its share.
func (e *Entry) UpdateHost(host identity.PublicKey, hostShare uint8) error {
	if host.IsZero() {
		return ErrInvalidPubkey
	}
	if err := ValidateShares(hostShare, e.ManufacturerShare); err != nil {
		return err
	}
	e.Host = host
	e.HostShare = hostShare
	return nil
}

// Claims returns the claim record for role.
func (e *Entry) Claims(role Role) *replay.Record {
	if role == RoleHost {
		return &e.HostClaims
	}
	return &e.OwnerClaims
}

// Claimant returns the identity expected to claim as role.
func (e *Entry) Claimant(role Role) identity.PublicKey {
	if role == RoleHost {
		return e.Host
	}
	return e.Owner
}

// CheckDeposit returns an error if a deposit cannot be made now.
func (e *Entry) CheckDeposit() error {
	if !e.Kind.RequiresDeposit() {
		return fmt.Errorf("%w: %s", ErrDepositNotRequired, e.Kind)
	}
	if e.DepositMade {
		return ErrAlreadyDeposited
	}
	return nil
}

// RecordDeposit marks amount as locked from now.
func (e *Entry) RecordDeposit(amount uint64, now int64) error {
	if err := e.CheckDeposit(); err != nil {
		return err
	}
	e.DepositMade = true
	e.DepositAmount = amount
	e.LockedSince = now
	return nil
}

// CheckWithdraw returns an error unless a deposit is held and lock has elapsed.
func (e *Entry) CheckWithdraw(now int64, lock time.Duration) error {
	if !e.DepositMade {
		return ErrNoDeposit
	}
	if now-e.LockedSince < int64(lock/time.Second) {
		unlockAt := e.LockedSince + int64(lock/time.Second)
		return fmt.Errorf("%w: unlocks at %d, now %d", ErrWithdrawTooEarly, unlockAt, now)
	}
	return nil
}

// ClearDeposit ends the deposit cycle; a new deposit may follow.
func (e *Entry) ClearDeposit() {
	e.DepositMade = false
	e.DepositAmount = 0
	e.LockedSince = 0
}

const entrySize = 4*identity.KeySize + 3 + 1 + 8 + 8 + 2*32 + 8 + 8

// Serialize encodes the entry in a fixed layout.
func Serialize(e *Entry) []byte {
	w := ledger.NewWriter(ledger.TypeNode, entrySize)
	w.Key(e.NftMint)
	w.Key(e.Owner)
	w.Key(e.Host)
	w.Key(e.Manufacturer)
	w.U8(e.HostShare)
	w.U8(e.ManufacturerShare)
	w.U8(uint8(e.Kind))
	w.Bool(e.DepositMade)
	w.U64(e.DepositAmount)
	w.I64(e.LockedSince)
	for _, rec := range []replay.Record{e.OwnerClaims, e.HostClaims} {
		w.U64(rec.LastNonce)
		w.I64(rec.LastClaimAt)
		w.U64(rec.TotalClaimed)
		w.U64(rec.Count)
	}
	w.U64(e.TotalRewardsClaimed)
	w.I64(e.CreatedAt)
	return w.Bytes()
}

// Deserialize decodes an entry written by Serialize.
func Deserialize(data []byte) (*Entry, error) {
	d := ledger.NewDecoder(data, ledger.TypeNode)
	e := &Entry{
		NftMint:           d.Key(),
		Owner:             d.Key(),
		Host:              d.Key(),
		Manufacturer:      d.Key(),
		HostShare:         d.U8(),
		ManufacturerShare: d.U8(),
		Kind:              Kind(d.U8()),
		DepositMade:       d.Bool(),
		DepositAmount:     d.U64(),
		LockedSince:       d.I64(),
	}
	for _, rec := range []*replay.Record{&e.OwnerClaims, &e.HostClaims} {
		rec.LastNonce = d.U64()
		rec.LastClaimAt = d.I64()
		rec.TotalClaimed = d.U64()
		rec.Count = d.U64()
	}
	e.TotalRewardsClaimed = d.U64()
	e.CreatedAt = d.I64()
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return e, nil
}

// Load reads the entry for nftMint.
func Load(r ledger.Reader, nftMint identity.PublicKey) (*Entry, error) {
	data, err := r.Get(Address(nftMint))
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nftMint)
		}
		return nil, err
	}
	return Deserialize(data)
}

// Store writes e at its address.
func Store(tx ledger.Tx, e *Entry) error {
	return tx.Put(Address(e.NftMint), Serialize(e))
}

// Exists reports whether an entry is stored for nftMint.
func Exists(r ledger.Reader, nftMint identity.PublicKey) (bool, error) {
	_, err := r.Get(Address(nftMint))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ledger.ErrAccountNotFound):
		return false, nil
	default:
		return false, err
	}
}
