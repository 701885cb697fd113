package rewards

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/bitfsorg/librewards-go/admin"
	"github.com/bitfsorg/librewards-go/authsig"
	"github.com/bitfsorg/librewards-go/custody"
	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/node"
	"github.com/bitfsorg/librewards-go/replay"
)

// ClaimRequest claims Amount of rewards for a node in the given Role.
//
// Authorization is either Signature, made by Signer (the admin or a mint
// authority) over the claim message for the caller, or the admin's
// co-signature on the call itself when Signature is empty.
type ClaimRequest struct {
	NftMint    identity.PublicKey `json:"nftMint"`
	NftAccount identity.PublicKey `json:"nftAccount"`
	Role       node.Role          `json:"role"`
	Amount     uint64             `json:"amount"`
	Nonce      uint64             `json:"nonce"`
	Shares     *authsig.Shares    `json:"shares,omitempty"`
	Signer     identity.PublicKey `json:"signer"`
	Signature  []byte             `json:"signature,omitempty"`
}

// Message returns the claim message the authorizer signs for subject.
func (r *ClaimRequest) Message(subject identity.PublicKey) *authsig.ClaimMessage {
	return &authsig.ClaimMessage{
		Subject: subject,
		Amount:  r.Amount,
		Shares:  r.Shares,
		Nonce:   r.Nonce,
	}
}

// ClaimReceipt reports what a successful claim paid.
type ClaimReceipt struct {
	Split       custody.Split
	PoolBalance uint64
}

// authorizeClaim checks the claim signature or the admin co-signature.
func (p *Program) authorizeClaim(call Call, acct *admin.Account, req *ClaimRequest) error {
	if len(req.Signature) > 0 {
		if !acct.CanAuthorizeClaims(req.Signer) {
			return fmt.Errorf("%w: %s may not authorize claims", admin.ErrUnauthorized, req.Signer)
		}
		if !p.verify(req.Message(call.Caller).Encode(), req.Signature, req.Signer) {
			return fmt.Errorf("%w: claim signature invalid", admin.ErrUnauthorized)
		}
		return nil
	}
	if call.SignedBy(acct.Admin) {
		return nil
	}
	return fmt.Errorf("%w: claim neither signed nor admin co-signed", admin.ErrUnauthorized)
}

// splitClaim divides the amount. Explicit shares apply to the whole amount;
// otherwise owner claims use the node's shares and host claims pay the host.
func splitClaim(e *node.Entry, req *ClaimRequest) (custody.Split, error) {
	switch {
	case req.Shares != nil:
		return custody.ComputeExplicitSplit(req.Amount, req.Shares.Owner, req.Shares.Host)
	case req.Role == node.RoleHost:
		return custody.Split{Host: req.Amount}, nil
	default:
		return custody.ComputeSplit(req.Amount, e.HostShare, e.ManufacturerShare)
	}
}

// ClaimRewards pays a claim from the reward pool. Checks run in a fixed
// order: pause, authorization, ownership, replay and rate limit, split, funds.
func (p *Program) ClaimRewards(call Call, req ClaimRequest) (*ClaimReceipt, error) {
	var receipt *ClaimReceipt
	err := p.update("claim_rewards", call, func(tx ledger.Tx, now int64) ([]zap.Field, error) {
		acct, err := admin.Load(tx)
		if err != nil {
			return nil, err
		}
		if err := acct.RequireActive(); err != nil {
			return nil, err
		}
		if err := p.authorizeClaim(call, acct, &req); err != nil {
			return nil, err
		}
		if req.Role > node.RoleHost {
			return nil, fmt.Errorf("%w: %s", node.ErrUnknownRole, req.Role)
		}
		if req.Amount == 0 {
			return nil, fmt.Errorf("%w: zero claim", ErrInvalidAmount)
		}

		e, err := node.Load(tx, req.NftMint)
		if err != nil {
			return nil, err
		}
		if call.Caller != e.Claimant(req.Role) {
			return nil, fmt.Errorf("%w: %s is not the node %s", ErrInvalidOwnershipProof, call.Caller, req.Role)
		}
		if err := proveHolding(tx, e.NftMint, req.NftAccount, e.Owner); err != nil {
			return nil, err
		}

		// A signed claim consumes the subject's nonce whatever the policy.
		var signed *replay.Record
		if len(req.Signature) > 0 {
			sr, err := loadSubjectRecord(tx, call.Caller)
			if err != nil {
				return nil, err
			}
			if !replay.NonceAdvances(sr.LastNonce, req.Nonce) {
				return nil, fmt.Errorf("%w: signed nonce %d, last %d for %s",
					replay.ErrNonceAlreadyClaimed, req.Nonce, sr.LastNonce, call.Caller)
			}
			signed = &sr
		}
		rec := e.Claims(req.Role)
		if err := p.cfg.Guard.Check(*rec, req.Nonce, now); err != nil {
			return nil, err
		}

		split, err := splitClaim(e, &req)
		if err != nil {
			return nil, err
		}
		if split.Total() == 0 {
			return nil, fmt.Errorf("%w: claim of %d pays nothing", ErrInvalidAmount, req.Amount)
		}

		pool, err := loadPool(tx)
		if err != nil {
			return nil, err
		}
		if req.Amount > pool.Balance {
			return nil, fmt.Errorf("%w: pool %d, claim %d", custody.ErrInsufficientFunds, pool.Balance, req.Amount)
		}

		var payouts []custody.Payout
		for _, dst := range []struct {
			who    identity.PublicKey
			amount uint64
		}{
			{e.Owner, split.Owner},
			{e.Host, split.Host},
			{e.Manufacturer, split.Manufacturer},
		} {
			if dst.amount == 0 {
				continue
			}
			to := ledger.AssociatedTokenAddress(dst.who, acct.RewardMint)
			if _, err := ledger.OpenTokenAccount(tx, to, acct.RewardMint, dst.who); err != nil {
				return nil, err
			}
			payouts = append(payouts, custody.Payout{To: to, Amount: dst.amount})
		}
		if err := custody.Pay(tx, pool, payouts...); err != nil {
			return nil, err
		}

		total := split.Total()
		if err := p.cfg.Guard.Consume(rec, req.Nonce, now, total); err != nil {
			return nil, err
		}
		if signed != nil {
			if err := p.cfg.Guard.Consume(signed, req.Nonce, now, total); err != nil {
				return nil, err
			}
			if err := storeSubjectRecord(tx, call.Caller, *signed); err != nil {
				return nil, err
			}
		}
		if e.TotalRewardsClaimed > math.MaxUint64-total {
			return nil, custody.ErrArithmeticOverflow
		}
		e.TotalRewardsClaimed += total
		if err := node.Store(tx, e); err != nil {
			return nil, err
		}

		receipt = &ClaimReceipt{Split: split, PoolBalance: pool.Balance}
		return []zap.Field{
			zap.Stringer("nft_mint", e.NftMint),
			zap.Stringer("role", req.Role),
			zap.Uint64("nonce", req.Nonce),
			zap.Uint64("owner_amount", split.Owner),
			zap.Uint64("host_amount", split.Host),
			zap.Uint64("manufacturer_amount", split.Manufacturer),
			zap.Uint64("pool_balance", pool.Balance),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
