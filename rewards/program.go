// Package rewards is the authorization and state-transition engine of the
// reward ledger. Every exported operation runs inside one ledger transaction:
// it validates first, then mutates, and a failure leaves all accounts as they
// were.
package rewards

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bitfsorg/librewards-go/admin"
	"github.com/bitfsorg/librewards-go/authsig"
	"github.com/bitfsorg/librewards-go/custody"
	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/node"
	"github.com/bitfsorg/librewards-go/replay"
)

// Config holds the tunable policy of a Program.
type Config struct {
	Guard         replay.Guard
	LockPeriod    time.Duration
	DepositAmount uint64
}

// DefaultConfig returns a rolling 24h window with nonces, a 30 day lock and
// the standard deposit.
func DefaultConfig() Config {
	return Config{
		Guard:         replay.DefaultGuard(),
		LockPeriod:    node.DefaultLockPeriod,
		DepositAmount: node.DefaultDepositAmount,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Guard.Validate(); err != nil {
		return err
	}
	if c.LockPeriod < 0 {
		return fmt.Errorf("rewards: negative lock period %s", c.LockPeriod)
	}
	if c.DepositAmount == 0 {
		return fmt.Errorf("%w: deposit amount", ErrInvalidAmount)
	}
	return nil
}

// Call identifies who invoked an operation. Caller is the primary signer and
// Signers holds every identity that signed the call, Caller included.
//
// Digest is set when the call comes from a signed instruction. An operation
// with a digest takes effect at most once.
type Call struct {
	Caller  identity.PublicKey
	Signers []identity.PublicKey
	Digest  identity.PublicKey
}

// NewCall returns a call by caller co-signed by cosigners.
func NewCall(caller identity.PublicKey, cosigners ...identity.PublicKey) Call {
	signers := make([]identity.PublicKey, 0, 1+len(cosigners))
	signers = append(signers, caller)
	signers = append(signers, cosigners...)
	return Call{Caller: caller, Signers: signers}
}

// SignedBy reports whether key signed the call.
func (c Call) SignedBy(key identity.PublicKey) bool {
	for _, s := range c.Signers {
		if s == key {
			return true
		}
	}
	return false
}

// Program executes operations against a ledger store.
type Program struct {
	store    ledger.Store
	clock    ledger.Clock
	verifier *authsig.Verifier
	cfg      Config
	logger   *zap.Logger
}

// Option configures a Program.
type Option func(*Program)

// WithClock replaces the system clock.
func WithClock(c ledger.Clock) Option {
	return func(p *Program) { p.clock = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Program) { p.logger = l }
}

// WithVerifier sets a caching signature verifier.
func WithVerifier(v *authsig.Verifier) Option {
	return func(p *Program) { p.verifier = v }
}

// WithConfig replaces DefaultConfig.
func WithConfig(c Config) Option {
	return func(p *Program) { p.cfg = c }
}

// New returns a Program over store.
func New(store ledger.Store, opts ...Option) (*Program, error) {
	p := &Program{
		store:  store,
		clock:  ledger.SystemClock{},
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Config returns the active configuration.
func (p *Program) Config() Config { return p.cfg }

// update runs fn atomically and logs the outcome of op.
func (p *Program) update(op string, call Call, fn func(tx ledger.Tx, now int64) ([]zap.Field, error)) error {
	now := p.clock.Now()
	var fields []zap.Field
	err := p.store.Update(func(tx ledger.Tx) error {
		if err := consumeReceipt(tx, call, now); err != nil {
			return err
		}
		var err error
		fields, err = fn(tx, now)
		return err
	})
	fields = append(fields, zap.String("op", op), zap.Stringer("caller", call.Caller), zap.Int64("now", now))
	if !call.Digest.IsZero() {
		fields = append(fields, zap.Stringer("digest", call.Digest))
	}
	if err != nil {
		fields = append(fields, zap.Stringer("kind", KindOf(err)), zap.Error(err))
		p.logger.Debug("rejected", fields...)
		return err
	}
	p.logger.Info("applied", fields...)
	return nil
}

func (p *Program) verify(msg, sig []byte, signer identity.PublicKey) bool {
	if p.verifier != nil {
		return p.verifier.Verify(msg, sig, signer)
	}
	return authsig.Verify(msg, sig, signer)
}

// requireCosigned checks the call carries the admin's signature and key's.
func requireCosigned(call Call, acct *admin.Account, key identity.PublicKey) error {
	if !call.SignedBy(acct.Admin) {
		return fmt.Errorf("%w: admin signature missing", admin.ErrUnauthorized)
	}
	if !call.SignedBy(key) {
		return fmt.Errorf("%w: signature of %s missing", admin.ErrUnauthorized, key)
	}
	return nil
}

// loadPool reads the reward pool custody.
func loadPool(r ledger.Reader) (*custody.Custody, error) {
	return custody.Load(r, custody.PoolAddress)
}
