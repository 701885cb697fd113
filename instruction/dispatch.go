package instruction

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bitfsorg/librewards-go/rewards"
)

// Result is the outcome of an executed instruction. Claim is set only for claimRewards.
type Result struct {
	Action Action
	Claim  *rewards.ClaimReceipt
}

type handlerFunc func(call rewards.Call, ins *Instruction) (*Result, error)

// Dispatcher verifies envelopes and routes them to the rewards program.
type Dispatcher struct {
	prog     *rewards.Program
	logger   *zap.Logger
	handlers map[Action]handlerFunc

	// Retry backoff bounds for ExecuteWithRetry.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NewDispatcher returns a dispatcher over prog. A nil logger discards output.
func NewDispatcher(prog *rewards.Program, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		prog:      prog,
		logger:    logger,
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  time.Second,
	}
	d.handlers = map[Action]handlerFunc{
		ActionInitializeSystem: func(call rewards.Call, ins *Instruction) (*Result, error) {
			var p InitializePayload
			if err := ins.DecodePayload(&p); err != nil {
				return nil, err
			}
			return done(ins, prog.Initialize(call, p.RewardMint))
		},
		ActionUpdateAdminRequest: func(call rewards.Call, ins *Instruction) (*Result, error) {
			var p AdminRequestPayload
			if err := ins.DecodePayload(&p); err != nil {
				return nil, err
			}
			return done(ins, prog.RequestAdminChange(call, p.NewAdmin))
		},
		ActionAcceptAdminRequest: func(call rewards.Call, ins *Instruction) (*Result, error) {
			return done(ins, prog.AcceptAdminChange(call))
		},
		ActionAddMintAuthority: func(call rewards.Call, ins *Instruction) (*Result, error) {
			var p MintAuthorityPayload
			if err := ins.DecodePayload(&p); err != nil {
				return nil, err
			}
			return done(ins, prog.AddMintAuthority(call, p.Authority))
		},
		ActionRemoveMintAuthority: func(call rewards.Call, ins *Instruction) (*Result, error) {
			var p MintAuthorityPayload
			if err := ins.DecodePayload(&p); err != nil {
				return nil, err
			}
			return done(ins, prog.RemoveMintAuthority(call, p.Authority))
		},
		ActionPauseProgram: func(call rewards.Call, ins *Instruction) (*Result, error) {
			return done(ins, prog.Pause(call))
		},
		ActionUnpauseProgram: func(call rewards.Call, ins *Instruction) (*Result, error) {
			return done(ins, prog.Unpause(call))
		},
		ActionFundTokenStorage: func(call rewards.Call, ins *Instruction) (*Result, error) {
			var p FundPayload
			if err := ins.DecodePayload(&p); err != nil {
				return nil, err
			}
			return done(ins, prog.FundTokenStorage(call, p))
		},
		ActionRegisterNode: func(call rewards.Call, ins *Instruction) (*Result, error) {
			var p RegisterPayload
			if err := ins.DecodePayload(&p); err != nil {
				return nil, err
			}
			return done(ins, prog.RegisterNode(call, p))
		},
		ActionUpdateNode: func(call rewards.Call, ins *Instruction) (*Result, error) {
			var p UpdatePayload
			if err := ins.DecodePayload(&p); err != nil {
				return nil, err
			}
			return done(ins, prog.UpdateNode(call, p))
		},
		ActionDepositTokens: func(call rewards.Call, ins *Instruction) (*Result, error) {
			var p DepositPayload
			if err := ins.DecodePayload(&p); err != nil {
				return nil, err
			}
			return done(ins, prog.DepositTokens(call, p))
		},
		ActionWithdrawTokens: func(call rewards.Call, ins *Instruction) (*Result, error) {
			var p WithdrawPayload
			if err := ins.DecodePayload(&p); err != nil {
				return nil, err
			}
			return done(ins, prog.WithdrawTokens(call, p))
		},
		ActionClaimRewards: func(call rewards.Call, ins *Instruction) (*Result, error) {
			var p ClaimPayload
			if err := ins.DecodePayload(&p); err != nil {
				return nil, err
			}
			receipt, err := prog.ClaimRewards(call, p)
			if err != nil {
				return nil, err
			}
			return &Result{Action: ins.Action, Claim: receipt}, nil
		},
	}
	return d
}

func done(ins *Instruction, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	return &Result{Action: ins.Action}, nil
}

// Execute verifies env and runs its instruction once.
func (d *Dispatcher) Execute(ctx context.Context, env *Envelope) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	call, err := env.Verify()
	if err != nil {
		return nil, err
	}
	h, ok := d.handlers[env.Instruction.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Instruction.Action)
	}
	return h(call, &env.Instruction)
}

// ExecuteWithRetry runs env, resubmitting up to maxAttempts times while the
// program reports a retryable conflict. The delay doubles from BaseDelay up
// to MaxDelay. It returns early when ctx is done.
func (d *Dispatcher) ExecuteWithRetry(ctx context.Context, env *Envelope, maxAttempts int) (*Result, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := d.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := d.Execute(ctx, env)
		if err == nil || !rewards.IsRetryable(err) {
			return res, err
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		d.logger.Debug("instruction conflicted, retrying",
			zap.String("action", string(env.Instruction.Action)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > d.MaxDelay {
			delay = d.MaxDelay
		}
	}
	return nil, fmt.Errorf("instruction: %d attempts: %w", maxAttempts, lastErr)
}
