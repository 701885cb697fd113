package rewards

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfsorg/librewards-go/admin"
	"github.com/bitfsorg/librewards-go/custody"
	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
)

// Initialize creates the admin account, administered by the caller, and the
// reward pool for rewardMint.
func (p *Program) Initialize(call Call, rewardMint identity.PublicKey) error {
	return p.update("initialize", call, func(tx ledger.Tx, _ int64) ([]zap.Field, error) {
		if _, err := admin.Load(tx); err == nil {
			return nil, admin.ErrAlreadyInitialized
		} else if !errors.Is(err, admin.ErrNotInitialized) {
			return nil, err
		}
		acct, err := admin.New(call.Caller, rewardMint)
		if err != nil {
			return nil, err
		}
		if _, err := ledger.ReadMint(tx, rewardMint); err != nil {
			return nil, fmt.Errorf("%w: reward mint %s: %w", ErrInvalidTokenAccount, rewardMint, err)
		}
		if _, err := custody.Open(tx, custody.PoolAddress, rewardMint); err != nil {
			return nil, err
		}
		if err := admin.Store(tx, acct); err != nil {
			return nil, err
		}
		return []zap.Field{zap.Stringer("reward_mint", rewardMint)}, nil
	})
}

// withAdmin loads the admin account, applies fn and stores the result.
func (p *Program) withAdmin(op string, call Call, fn func(acct *admin.Account) ([]zap.Field, error)) error {
	return p.update(op, call, func(tx ledger.Tx, _ int64) ([]zap.Field, error) {
		acct, err := admin.Load(tx)
		if err != nil {
			return nil, err
		}
		fields, err := fn(acct)
		if err != nil {
			return nil, err
		}
		return fields, admin.Store(tx, acct)
	})
}

// RequestAdminChange nominates candidate. Only the admin may call it.
func (p *Program) RequestAdminChange(call Call, candidate identity.PublicKey) error {
	return p.withAdmin("request_admin_change", call, func(acct *admin.Account) ([]zap.Field, error) {
		return []zap.Field{zap.Stringer("candidate", candidate)}, acct.RequestChange(call.Caller, candidate)
	})
}

// AcceptAdminChange promotes the caller if it is the pending candidate.
func (p *Program) AcceptAdminChange(call Call) error {
	return p.withAdmin("accept_admin_change", call, func(acct *admin.Account) ([]zap.Field, error) {
		return nil, acct.AcceptChange(call.Caller)
	})
}

// AddMintAuthority trusts key to sign claims and mint node NFTs.
func (p *Program) AddMintAuthority(call Call, key identity.PublicKey) error {
	return p.withAdmin("add_mint_authority", call, func(acct *admin.Account) ([]zap.Field, error) {
		return []zap.Field{zap.Stringer("authority", key)}, acct.AddMintAuthority(call.Caller, key)
	})
}

// RemoveMintAuthority revokes key.
func (p *Program) RemoveMintAuthority(call Call, key identity.PublicKey) error {
	return p.withAdmin("remove_mint_authority", call, func(acct *admin.Account) ([]zap.Field, error) {
		return []zap.Field{zap.Stringer("authority", key)}, acct.RemoveMintAuthority(call.Caller, key)
	})
}

// Pause suspends claims, deposits and withdrawals. Pausing twice is a no-op.
func (p *Program) Pause(call Call) error {
	return p.setPaused("pause", call, true)
}

// Unpause resumes operation. Unpausing twice is a no-op.
func (p *Program) Unpause(call Call) error {
	return p.setPaused("unpause", call, false)
}

func (p *Program) setPaused(op string, call Call, paused bool) error {
	return p.withAdmin(op, call, func(acct *admin.Account) ([]zap.Field, error) {
		changed, err := acct.SetPaused(call.Caller, paused)
		return []zap.Field{zap.Bool("changed", changed)}, err
	})
}

// FundRequest moves Amount reward tokens from the caller's token account From
// into the reward pool.
type FundRequest struct {
	From   identity.PublicKey `json:"from"`
	Amount uint64             `json:"amount"`
}

// FundTokenStorage adds tokens to the reward pool. Any signer may fund.
func (p *Program) FundTokenStorage(call Call, req FundRequest) error {
	return p.update("fund_token_storage", call, func(tx ledger.Tx, _ int64) ([]zap.Field, error) {
		acct, err := admin.Load(tx)
		if err != nil {
			return nil, err
		}
		if req.Amount == 0 {
			return nil, fmt.Errorf("%w: zero fund", ErrInvalidAmount)
		}
		if err := checkRewardAccount(tx, acct, req.From, call.Caller); err != nil {
			return nil, err
		}
		pool, err := loadPool(tx)
		if err != nil {
			return nil, err
		}
		if err := custody.Fund(tx, pool, req.From, call.Caller, req.Amount); err != nil {
			return nil, err
		}
		return []zap.Field{zap.Uint64("amount", req.Amount), zap.Uint64("pool_balance", pool.Balance)}, nil
	})
}

// checkRewardAccount requires addr to be a reward-mint account held by holder.
func checkRewardAccount(r ledger.Reader, acct *admin.Account, addr, holder identity.PublicKey) error {
	ta, err := ledger.ReadTokenAccount(r, addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTokenAccount, err)
	}
	if ta.Mint != acct.RewardMint {
		return fmt.Errorf("%w: %s holds %s, want %s", ErrInvalidTokenAccount, addr, ta.Mint, acct.RewardMint)
	}
	if ta.Owner != holder {
		return fmt.Errorf("%w: %s held by %s", ErrInvalidTokenAccount, addr, ta.Owner)
	}
	return nil
}
