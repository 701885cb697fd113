package rewards

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfsorg/librewards-go/admin"
	"github.com/bitfsorg/librewards-go/custody"
	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/node"
)

// RegisterRequest registers the node identified by Params.NftMint. NftAccount
// is the owner's token account holding the node NFT.
type RegisterRequest struct {
	node.Params
	NftAccount identity.PublicKey `json:"nftAccount"`
}

// UpdateRequest replaces the host of a node.
type UpdateRequest struct {
	NftMint      identity.PublicKey `json:"nftMint"`
	NftAccount   identity.PublicKey `json:"nftAccount"`
	NewHost      identity.PublicKey `json:"newHost"`
	NewHostShare uint8              `json:"newHostShare"`
}

// DepositRequest locks the deposit of a node from the owner's reward-token
// account From.
type DepositRequest struct {
	NftMint    identity.PublicKey `json:"nftMint"`
	NftAccount identity.PublicKey `json:"nftAccount"`
	From       identity.PublicKey `json:"from"`
}

// WithdrawRequest returns the deposit of a node to the owner's reward-token
// account To.
type WithdrawRequest struct {
	NftMint    identity.PublicKey `json:"nftMint"`
	NftAccount identity.PublicKey `json:"nftAccount"`
	To         identity.PublicKey `json:"to"`
}

// proveHolding checks that nftAccount holds at least one unit of nftMint on
// behalf of holder.
func proveHolding(r ledger.Reader, nftMint, nftAccount, holder identity.PublicKey) error {
	ta, err := ledger.ReadTokenAccount(r, nftAccount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNftTokenAccount, err)
	}
	if ta.Mint != nftMint {
		return fmt.Errorf("%w: %s holds %s, want %s", ErrInvalidNftTokenAccount, nftAccount, ta.Mint, nftMint)
	}
	if ta.Owner != holder {
		return fmt.Errorf("%w: %s held by %s, want %s", ErrInvalidNftTokenAccount, nftAccount, ta.Owner, holder)
	}
	if ta.Amount == 0 {
		return fmt.Errorf("%w: %s", ErrInsufficientNftBalance, nftAccount)
	}
	return nil
}

// checkNodeMint checks nftMint has the shape of a node NFT and, when mint
// authorities are configured, was minted by one of them.
func checkNodeMint(r ledger.Reader, acct *admin.Account, nftMint identity.PublicKey) error {
	m, err := ledger.ReadMint(r, nftMint)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOwnershipProof, err)
	}
	if !m.IsNonFungible() {
		return fmt.Errorf("%w: mint %s has supply %d, decimals %d", ErrInvalidOwnershipProof, nftMint, m.Supply, m.Decimals)
	}
	if len(acct.MintAuthorities) > 0 && !acct.IsMintAuthority(m.Authority) {
		return fmt.Errorf("%w: mint %s issued by untrusted %s", ErrInvalidOwnershipProof, nftMint, m.Authority)
	}
	return nil
}

// requireOwner checks the caller is the node owner and still holds its NFT.
func requireOwner(r ledger.Reader, call Call, e *node.Entry, nftAccount identity.PublicKey) error {
	if call.Caller != e.Owner {
		return fmt.Errorf("%w: %s is not the owner", ErrInvalidOwnershipProof, call.Caller)
	}
	return proveHolding(r, e.NftMint, nftAccount, e.Owner)
}

// RegisterNode creates the registry entry of a node. The call must be
// co-signed by the admin and the owner.
func (p *Program) RegisterNode(call Call, req RegisterRequest) error {
	return p.update("register_node", call, func(tx ledger.Tx, now int64) ([]zap.Field, error) {
		acct, err := admin.Load(tx)
		if err != nil {
			return nil, err
		}
		if err := requireCosigned(call, acct, req.Owner); err != nil {
			return nil, err
		}
		exists, err := node.Exists(tx, req.NftMint)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", node.ErrNodeAlreadyRegistered, req.NftMint)
		}
		if err := checkNodeMint(tx, acct, req.NftMint); err != nil {
			return nil, err
		}
		if err := proveHolding(tx, req.NftMint, req.NftAccount, req.Owner); err != nil {
			return nil, err
		}
		e, err := node.New(req.Params, now)
		if err != nil {
			return nil, err
		}
		if err := node.Store(tx, e); err != nil {
			return nil, err
		}
		return []zap.Field{
			zap.Stringer("nft_mint", e.NftMint),
			zap.Stringer("owner", e.Owner),
			zap.Stringer("host", e.Host),
			zap.Stringer("kind", e.Kind),
		}, nil
	})
}

// UpdateNode replaces the host and host share. The call must be co-signed by
// the admin and the current owner, who must still hold the NFT.
func (p *Program) UpdateNode(call Call, req UpdateRequest) error {
	return p.update("update_node", call, func(tx ledger.Tx, _ int64) ([]zap.Field, error) {
		acct, err := admin.Load(tx)
		if err != nil {
			return nil, err
		}
		e, err := node.Load(tx, req.NftMint)
		if err != nil {
			return nil, err
		}
		if err := requireCosigned(call, acct, e.Owner); err != nil {
			return nil, err
		}
		if err := proveHolding(tx, e.NftMint, req.NftAccount, e.Owner); err != nil {
			return nil, err
		}
		if err := e.UpdateHost(req.NewHost, req.NewHostShare); err != nil {
			return nil, err
		}
		if err := node.Store(tx, e); err != nil {
			return nil, err
		}
		return []zap.Field{
			zap.Stringer("nft_mint", e.NftMint),
			zap.Stringer("host", e.Host),
			zap.Uint8("host_share", e.HostShare),
		}, nil
	})
}

// loadOrOpenEscrow returns the deposit escrow of a node, creating it on first use.
func loadOrOpenEscrow(tx ledger.Tx, acct *admin.Account, nftMint identity.PublicKey) (*custody.Custody, error) {
	addr := custody.EscrowAddress(nftMint)
	c, err := custody.Load(tx, addr)
	if errors.Is(err, custody.ErrNotFound) {
		return custody.Open(tx, addr, acct.RewardMint)
	}
	return c, err
}

// DepositTokens locks the configured deposit for a node whose kind requires one.
func (p *Program) DepositTokens(call Call, req DepositRequest) error {
	return p.update("deposit_tokens", call, func(tx ledger.Tx, now int64) ([]zap.Field, error) {
		acct, err := admin.Load(tx)
		if err != nil {
			return nil, err
		}
		if err := acct.RequireActive(); err != nil {
			return nil, err
		}
		e, err := node.Load(tx, req.NftMint)
		if err != nil {
			return nil, err
		}
		if err := requireOwner(tx, call, e, req.NftAccount); err != nil {
			return nil, err
		}
		if err := e.CheckDeposit(); err != nil {
			return nil, err
		}
		if err := checkRewardAccount(tx, acct, req.From, call.Caller); err != nil {
			return nil, err
		}
		escrow, err := loadOrOpenEscrow(tx, acct, e.NftMint)
		if err != nil {
			return nil, err
		}
		if err := custody.Fund(tx, escrow, req.From, call.Caller, p.cfg.DepositAmount); err != nil {
			return nil, err
		}
		if err := e.RecordDeposit(p.cfg.DepositAmount, now); err != nil {
			return nil, err
		}
		if err := node.Store(tx, e); err != nil {
			return nil, err
		}
		return []zap.Field{zap.Stringer("nft_mint", e.NftMint), zap.Uint64("amount", e.DepositAmount)}, nil
	})
}

// WithdrawTokens returns a node's deposit once the lock period has elapsed.
func (p *Program) WithdrawTokens(call Call, req WithdrawRequest) error {
	return p.update("withdraw_tokens", call, func(tx ledger.Tx, now int64) ([]zap.Field, error) {
		acct, err := admin.Load(tx)
		if err != nil {
			return nil, err
		}
		if err := acct.RequireActive(); err != nil {
			return nil, err
		}
		e, err := node.Load(tx, req.NftMint)
		if err != nil {
			return nil, err
		}
		if err := requireOwner(tx, call, e, req.NftAccount); err != nil {
			return nil, err
		}
		if err := checkRewardAccount(tx, acct, req.To, call.Caller); err != nil {
			return nil, err
		}
		if err := e.CheckWithdraw(now, p.cfg.LockPeriod); err != nil {
			return nil, err
		}
		escrow, err := custody.Load(tx, custody.EscrowAddress(e.NftMint))
		if err != nil {
			return nil, err
		}
		amount := e.DepositAmount
		if err := custody.Pay(tx, escrow, custody.Payout{To: req.To, Amount: amount}); err != nil {
			return nil, err
		}
		e.ClearDeposit()
		if err := node.Store(tx, e); err != nil {
			return nil, err
		}
		return []zap.Field{zap.Stringer("nft_mint", e.NftMint), zap.Uint64("amount", amount)}, nil
	})
}
