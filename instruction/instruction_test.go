package instruction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bitfsorg/librewards-go/custody"
	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/node"
	"github.com/bitfsorg/librewards-go/rewards"
)

func keypair(t *testing.T, seed byte) *identity.Keypair {
	t.Helper()
	kp, err := identity.KeypairFromSeed(bytes.Repeat([]byte{seed}, 32))
	require.NoError(t, err)
	return kp
}

func mustNew(t *testing.T, action Action, payload interface{}) *Instruction {
	t.Helper()
	ins, err := New(action, payload)
	require.NoError(t, err)
	return ins
}

// conflictStore fails the first n updates with ledger.ErrConflict.
type conflictStore struct {
	ledger.Store
	remaining atomic.Int32
}

func (s *conflictStore) Update(fn func(tx ledger.Tx) error) error {
	if s.remaining.Add(-1) >= 0 {
		return ledger.ErrConflict
	}
	return s.Store.Update(fn)
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func TestDecode(t *testing.T) {
	ins := mustNew(t, ActionAddMintAuthority, MintAuthorityPayload{Authority: keypair(t, 1).Public})
	data, err := ins.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ins.Action, got.Action)
	assert.Equal(t, ins.Nonce, got.Nonce)
	assert.JSONEq(t, string(ins.Payload), string(got.Payload))

	var p MintAuthorityPayload
	require.NoError(t, got.DecodePayload(&p))
	assert.Equal(t, keypair(t, 1).Public, p.Authority)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidInstruction)
	_, err = Decode([]byte("{"))
	assert.ErrorIs(t, err, ErrInvalidInstruction)
	_, err = Decode([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrInvalidInstruction)

	ins := &Instruction{Action: ActionAddMintAuthority, Payload: json.RawMessage(`{"authority":"0OIl"}`)}
	var p MintAuthorityPayload
	assert.ErrorIs(t, ins.DecodePayload(&p), ErrInvalidPayload)
}

func TestNew_NilPayload(t *testing.T) {
	ins := mustNew(t, ActionPauseProgram, nil)
	assert.Empty(t, ins.Payload)
	assert.NotZero(t, ins.Nonce)
	data, err := ins.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"action":"pauseProgram","nonce":%d}`, ins.Nonce), string(data))
}

func TestNew_DistinctNonces(t *testing.T) {
	a := mustNew(t, ActionUnpauseProgram, nil)
	b := mustNew(t, ActionUnpauseProgram, nil)
	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.Digest(), b.Digest())
}

func TestSigningBytes_BindAction(t *testing.T) {
	a := &Instruction{Action: ActionPauseProgram, Nonce: 1}
	b := &Instruction{Action: ActionUnpauseProgram, Nonce: 1}
	assert.NotEqual(t, a.SigningBytes(), b.SigningBytes())
}

func TestSigningBytes_BindNonce(t *testing.T) {
	a := &Instruction{Action: ActionPauseProgram, Nonce: 1}
	b := &Instruction{Action: ActionPauseProgram, Nonce: 2}
	assert.NotEqual(t, a.SigningBytes(), b.SigningBytes())
	assert.NotEqual(t, a.Digest(), b.Digest())
	assert.Equal(t, a.Digest(), (&Instruction{Action: ActionPauseProgram, Nonce: 1}).Digest())
}

// ---------------------------------------------------------------------------
// Signatures
// ---------------------------------------------------------------------------

func TestEnvelope_Verify(t *testing.T) {
	owner, admin := keypair(t, 1), keypair(t, 2)
	env := Sign(mustNew(t, ActionPauseProgram, nil), owner, admin)

	call, err := env.Verify()
	require.NoError(t, err)
	assert.Equal(t, owner.Public, call.Caller)
	assert.True(t, call.SignedBy(admin.Public))
	assert.False(t, call.Digest.IsZero())
	assert.Equal(t, env.Instruction.Digest(), call.Digest)
}

func TestEnvelope_VerifyErrors(t *testing.T) {
	owner, admin := keypair(t, 1), keypair(t, 2)

	_, err := (&Envelope{Instruction: Instruction{Action: ActionPauseProgram}}).Verify()
	assert.ErrorIs(t, err, ErrMissingSignature)

	env := Sign(mustNew(t, ActionAddMintAuthority, MintAuthorityPayload{Authority: owner.Public}), admin)
	env.Instruction.Payload, _ = json.Marshal(MintAuthorityPayload{Authority: keypair(t, 3).Public})
	_, err = env.Verify()
	assert.ErrorIs(t, err, ErrBadSignature)

	env = Sign(mustNew(t, ActionPauseProgram, nil), admin, admin)
	_, err = env.Verify()
	assert.ErrorIs(t, err, ErrDuplicateSigner)

	env = Sign(&Instruction{Action: ActionPauseProgram}, admin)
	_, err = env.Verify()
	assert.ErrorIs(t, err, ErrMissingNonce)

	env = Sign(mustNew(t, ActionPauseProgram, nil), admin)
	env.Instruction.Nonce++
	_, err = env.Verify()
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestEnvelope_JSONRoundTrip(t *testing.T) {
	admin := keypair(t, 2)
	env := Sign(mustNew(t, ActionAddMintAuthority, MintAuthorityPayload{Authority: keypair(t, 5).Public}), admin)
	data, err := json.Marshal(env)
	require.NoError(t, err)

	got, err := DecodeEnvelope(data)
	require.NoError(t, err)
	_, err = got.Verify()
	require.NoError(t, err)

	_, err = DecodeEnvelope([]byte(`{"signatures":[]}`))
	assert.ErrorIs(t, err, ErrInvalidInstruction)
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

type world struct {
	store      ledger.Store
	prog       *rewards.Program
	dispatcher *Dispatcher
	clock      *ledger.ManualClock

	admin, owner, host, funder *identity.Keypair
	rewardMint, nftMint        identity.PublicKey
}

func newWorld(t *testing.T, store ledger.Store) *world {
	t.Helper()
	w := &world{
		store:  store,
		clock:  ledger.NewManualClock(1_700_000_000),
		admin:  keypair(t, 1),
		owner:  keypair(t, 2),
		host:   keypair(t, 3),
		funder: keypair(t, 4),
	}
	w.rewardMint = keypair(t, 10).Public
	w.nftMint = keypair(t, 11).Public
	mintAuth := keypair(t, 12).Public

	require.NoError(t, store.Update(func(tx ledger.Tx) error {
		if _, err := ledger.CreateMint(tx, w.rewardMint, mintAuth, 6); err != nil {
			return err
		}
		if _, err := ledger.CreateMint(tx, w.nftMint, mintAuth, 0); err != nil {
			return err
		}
		funderATA := ledger.AssociatedTokenAddress(w.funder.Public, w.rewardMint)
		if _, err := ledger.OpenTokenAccount(tx, funderATA, w.rewardMint, w.funder.Public); err != nil {
			return err
		}
		if err := ledger.MintTo(tx, w.rewardMint, mintAuth, funderATA, 1000); err != nil {
			return err
		}
		nftATA := ledger.AssociatedTokenAddress(w.owner.Public, w.nftMint)
		if _, err := ledger.OpenTokenAccount(tx, nftATA, w.nftMint, w.owner.Public); err != nil {
			return err
		}
		return ledger.MintTo(tx, w.nftMint, mintAuth, nftATA, 1)
	}))

	prog, err := rewards.New(store, rewards.WithClock(w.clock), rewards.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	w.prog = prog
	w.dispatcher = NewDispatcher(prog, zaptest.NewLogger(t))
	w.dispatcher.BaseDelay = time.Millisecond
	return w
}

func (w *world) run(t *testing.T, action Action, payload interface{}, signers ...*identity.Keypair) (*Result, error) {
	t.Helper()
	env := Sign(mustNew(t, action, payload), signers...)
	// Go through the wire form as a remote client would.
	data, err := json.Marshal(env)
	require.NoError(t, err)
	env, err = DecodeEnvelope(data)
	require.NoError(t, err)
	return w.dispatcher.Execute(context.Background(), env)
}

func TestDispatch_FullFlow(t *testing.T) {
	w := newWorld(t, ledger.NewMemStore())
	nftATA := ledger.AssociatedTokenAddress(w.owner.Public, w.nftMint)

	_, err := w.run(t, ActionInitializeSystem, InitializePayload{RewardMint: w.rewardMint}, w.admin)
	require.NoError(t, err)

	_, err = w.run(t, ActionFundTokenStorage, FundPayload{
		From:   ledger.AssociatedTokenAddress(w.funder.Public, w.rewardMint),
		Amount: 500,
	}, w.funder)
	require.NoError(t, err)

	_, err = w.run(t, ActionRegisterNode, RegisterPayload{
		Params: node.Params{
			NftMint:   w.nftMint,
			Owner:     w.owner.Public,
			Host:      w.host.Public,
			HostShare: 40,
			Kind:      node.KindBYOD,
		},
		NftAccount: nftATA,
	}, w.owner, w.admin)
	require.NoError(t, err)

	res, err := w.run(t, ActionClaimRewards, ClaimPayload{
		NftMint: w.nftMint, NftAccount: nftATA, Role: node.RoleOwner, Amount: 100, Nonce: 1,
	}, w.owner, w.admin)
	require.NoError(t, err)
	assert.Equal(t, ActionClaimRewards, res.Action)
	require.NotNil(t, res.Claim)
	assert.Equal(t, custody.Split{Owner: 60, Host: 40}, res.Claim.Split)
	assert.Equal(t, uint64(400), res.Claim.PoolBalance)

	_, err = w.run(t, ActionClaimRewards, ClaimPayload{
		NftMint: w.nftMint, NftAccount: nftATA, Role: node.RoleOwner, Amount: 100, Nonce: 2,
	}, w.owner, w.admin)
	assert.Equal(t, rewards.KindClaimAlreadyMadeToday, rewards.KindOf(err))

	_, err = w.run(t, ActionUpdateNode, UpdatePayload{
		NftMint: w.nftMint, NftAccount: nftATA, NewHost: w.funder.Public, NewHostShare: 10,
	}, w.owner, w.admin)
	require.NoError(t, err)

	_, err = w.run(t, ActionPauseProgram, nil, w.admin)
	require.NoError(t, err)
	_, err = w.run(t, ActionWithdrawTokens, WithdrawPayload{NftMint: w.nftMint, NftAccount: nftATA}, w.owner)
	assert.Equal(t, rewards.KindProgramPaused, rewards.KindOf(err))
	_, err = w.run(t, ActionUnpauseProgram, nil, w.admin)
	require.NoError(t, err)
}

func TestDispatch_AdminActions(t *testing.T) {
	w := newWorld(t, ledger.NewMemStore())
	_, err := w.run(t, ActionInitializeSystem, InitializePayload{RewardMint: w.rewardMint}, w.admin)
	require.NoError(t, err)

	_, err = w.run(t, ActionAddMintAuthority, MintAuthorityPayload{Authority: w.host.Public}, w.admin)
	require.NoError(t, err)
	_, err = w.run(t, ActionRemoveMintAuthority, MintAuthorityPayload{Authority: w.host.Public}, w.admin)
	require.NoError(t, err)

	_, err = w.run(t, ActionUpdateAdminRequest, AdminRequestPayload{NewAdmin: w.owner.Public}, w.admin)
	require.NoError(t, err)
	_, err = w.run(t, ActionAcceptAdminRequest, nil, w.owner)
	require.NoError(t, err)

	_, err = w.run(t, ActionPauseProgram, nil, w.admin)
	assert.Equal(t, rewards.KindUnauthorized, rewards.KindOf(err))
}

// resubmit sends env again through its wire form.
func (w *world) resubmit(t *testing.T, env *Envelope) (*Result, error) {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	again, err := DecodeEnvelope(data)
	require.NoError(t, err)
	return w.dispatcher.Execute(context.Background(), again)
}

func (w *world) paused(t *testing.T) bool {
	t.Helper()
	acct, err := w.prog.Admin()
	require.NoError(t, err)
	return acct.Paused
}

func TestDispatch_ReplayedEnvelope(t *testing.T) {
	w := newWorld(t, ledger.NewMemStore())
	_, err := w.run(t, ActionInitializeSystem, InitializePayload{RewardMint: w.rewardMint}, w.admin)
	require.NoError(t, err)

	pause := Sign(mustNew(t, ActionPauseProgram, nil), w.admin)
	unpause := Sign(mustNew(t, ActionUnpauseProgram, nil), w.admin)
	_, err = w.resubmit(t, pause)
	require.NoError(t, err)
	_, err = w.resubmit(t, unpause)
	require.NoError(t, err)

	// The admin pauses again; the old unpause must not lift it.
	_, err = w.run(t, ActionPauseProgram, nil, w.admin)
	require.NoError(t, err)
	_, err = w.resubmit(t, unpause)
	assert.Equal(t, rewards.KindInstructionReplayed, rewards.KindOf(err))
	assert.True(t, w.paused(t))

	_, err = w.resubmit(t, pause)
	assert.ErrorIs(t, err, rewards.ErrInstructionReplayed)

	rc, err := w.prog.InstructionReceipt(unpause.Instruction.Digest())
	require.NoError(t, err)
	assert.Equal(t, w.admin.Public, rc.Caller)
	assert.Equal(t, int64(1_700_000_000), rc.AppliedAt)

	// A fresh unpause still works.
	_, err = w.run(t, ActionUnpauseProgram, nil, w.admin)
	require.NoError(t, err)
	assert.False(t, w.paused(t))
}

func TestDispatch_RejectedEnvelopeLeavesNoReceipt(t *testing.T) {
	w := newWorld(t, ledger.NewMemStore())
	pause := Sign(mustNew(t, ActionPauseProgram, nil), w.admin)
	_, err := w.resubmit(t, pause)
	assert.Equal(t, rewards.KindNotInitialized, rewards.KindOf(err))

	_, err = w.prog.InstructionReceipt(pause.Instruction.Digest())
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestDispatch_UnknownAction(t *testing.T) {
	w := newWorld(t, ledger.NewMemStore())
	_, err := w.run(t, Action("mintMoney"), nil, w.admin)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestDispatch_CanceledContext(t *testing.T) {
	w := newWorld(t, ledger.NewMemStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.dispatcher.Execute(ctx, Sign(mustNew(t, ActionPauseProgram, nil), w.admin))
	assert.ErrorIs(t, err, context.Canceled)
}

// ---------------------------------------------------------------------------
// Retry
// ---------------------------------------------------------------------------

func TestExecuteWithRetry(t *testing.T) {
	store := &conflictStore{Store: ledger.NewMemStore()}
	w := newWorld(t, store)
	env := Sign(mustNew(t, ActionInitializeSystem, InitializePayload{RewardMint: w.rewardMint}), w.admin)

	store.remaining.Store(2)
	res, err := w.dispatcher.ExecuteWithRetry(context.Background(), env, 3)
	require.NoError(t, err)
	assert.Equal(t, ActionInitializeSystem, res.Action)

	// Conflicted attempts left no receipt; the applied one did.
	_, err = w.dispatcher.ExecuteWithRetry(context.Background(), env, 3)
	assert.Equal(t, rewards.KindInstructionReplayed, rewards.KindOf(err))
}

func TestExecuteWithRetry_GivesUp(t *testing.T) {
	store := &conflictStore{Store: ledger.NewMemStore()}
	w := newWorld(t, store)
	env := Sign(mustNew(t, ActionInitializeSystem, InitializePayload{RewardMint: w.rewardMint}), w.admin)

	store.remaining.Store(5)
	_, err := w.dispatcher.ExecuteWithRetry(context.Background(), env, 2)
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.True(t, rewards.IsRetryable(err))
}

func TestExecuteWithRetry_NonRetryableStopsAtOnce(t *testing.T) {
	w := newWorld(t, ledger.NewMemStore())
	env := Sign(mustNew(t, ActionPauseProgram, nil), w.admin)
	_, err := w.dispatcher.ExecuteWithRetry(context.Background(), env, 5)
	assert.Equal(t, rewards.KindNotInitialized, rewards.KindOf(err))
}

func TestExecuteWithRetry_ContextDone(t *testing.T) {
	store := &conflictStore{Store: ledger.NewMemStore()}
	w := newWorld(t, store)
	w.dispatcher.BaseDelay = time.Hour
	w.dispatcher.MaxDelay = time.Hour
	env := Sign(mustNew(t, ActionInitializeSystem, InitializePayload{RewardMint: w.rewardMint}), w.admin)

	store.remaining.Store(5)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := w.dispatcher.ExecuteWithRetry(ctx, env, 3)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
