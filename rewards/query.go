package rewards

import (
	"errors"

	"github.com/bitfsorg/librewards-go/admin"
	"github.com/bitfsorg/librewards-go/custody"
	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/node"
	"github.com/bitfsorg/librewards-go/replay"
)

// Admin returns the admin account.
func (p *Program) Admin() (*admin.Account, error) {
	var acct *admin.Account
	err := p.store.View(func(r ledger.Reader) error {
		var err error
		acct, err = admin.Load(r)
		return err
	})
	return acct, err
}

// Node returns the registry entry for nftMint.
func (p *Program) Node(nftMint identity.PublicKey) (*node.Entry, error) {
	var e *node.Entry
	err := p.store.View(func(r ledger.Reader) error {
		var err error
		e, err = node.Load(r, nftMint)
		return err
	})
	return e, err
}

// SignedClaims returns the signed-claim history of subject.
func (p *Program) SignedClaims(subject identity.PublicKey) (replay.Record, error) {
	var rec replay.Record
	err := p.store.View(func(r ledger.Reader) error {
		var err error
		rec, err = loadSubjectRecord(r, subject)
		return err
	})
	return rec, err
}

// InstructionReceipt returns the receipt of the applied instruction with
// digest, or ledger.ErrAccountNotFound.
func (p *Program) InstructionReceipt(digest identity.PublicKey) (*Receipt, error) {
	var rc *Receipt
	err := p.store.View(func(r ledger.Reader) error {
		data, err := r.Get(ReceiptAddress(digest))
		if err != nil {
			return err
		}
		rc, err = decodeReceipt(data)
		return err
	})
	return rc, err
}

// Pool returns the reward pool custody.
func (p *Program) Pool() (*custody.Custody, error) {
	return p.custodyAt(custody.PoolAddress)
}

// Escrow returns the deposit escrow of a node.
func (p *Program) Escrow(nftMint identity.PublicKey) (*custody.Custody, error) {
	return p.custodyAt(custody.EscrowAddress(nftMint))
}

func (p *Program) custodyAt(addr identity.PublicKey) (*custody.Custody, error) {
	var c *custody.Custody
	err := p.store.View(func(r ledger.Reader) error {
		var err error
		c, err = custody.Load(r, addr)
		return err
	})
	return c, err
}

// TokenBalance returns the amount held by owner's associated account of mint,
// or zero if the account does not exist.
func (p *Program) TokenBalance(owner, mint identity.PublicKey) (uint64, error) {
	var amount uint64
	err := p.store.View(func(r ledger.Reader) error {
		ta, err := ledger.ReadTokenAccount(r, ledger.AssociatedTokenAddress(owner, mint))
		if err != nil {
			return err
		}
		amount = ta.Amount
		return nil
	})
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0, nil
	}
	return amount, err
}
