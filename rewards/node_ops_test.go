package rewards

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/node"
)

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

func TestRegisterNode(t *testing.T) {
	f := newFixture(t)
	f.register(node.KindBYOD, 40)

	e := f.entry()
	assert.Equal(t, f.owner.Public, e.Owner)
	assert.Equal(t, f.host.Public, e.Host)
	assert.Equal(t, uint8(40), e.HostShare)
	assert.Equal(t, node.KindBYOD, e.Kind)
	assert.Equal(t, t0, e.CreatedAt)
	assert.False(t, e.DepositMade)

	err := f.prog.RegisterNode(NewCall(f.owner.Public, f.admin.Public), f.registerParams(node.KindDON, 0))
	assert.Equal(t, KindNodeAlreadyRegistered, KindOf(err))
}

func TestRegisterNode_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		call   Call
		mutate func(r *RegisterRequest)
		want   ErrorKind
	}{
		{"owner only", NewCall(f.owner.Public), nil, KindUnauthorized},
		{"admin only", NewCall(f.admin.Public), nil, KindUnauthorized},
		{"host share", NewCall(f.owner.Public, f.admin.Public), func(r *RegisterRequest) { r.HostShare = 101 }, KindInvalidShare},
		{"wrong nft account", NewCall(f.owner.Public, f.admin.Public), func(r *RegisterRequest) { r.NftAccount = f.rewardATA(f.owner.Public) }, KindInvalidNftTokenAccount},
		{"not the holder", NewCall(f.stranger.Public, f.admin.Public), func(r *RegisterRequest) { r.Owner = f.stranger.Public }, KindInvalidNftTokenAccount},
		{"fungible mint", NewCall(f.owner.Public, f.admin.Public), func(r *RegisterRequest) { r.NftMint = f.rewardMint }, KindInvalidOwnershipProof},
		{"missing mint", NewCall(f.owner.Public, f.admin.Public), func(r *RegisterRequest) { r.NftMint = addrOf(222) }, KindInvalidOwnershipProof},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.registerParams(node.KindDON, 40)
			if tt.mutate != nil {
				tt.mutate(&req)
			}
			before := f.snapshot()
			err := f.prog.RegisterNode(tt.call, req)
			assert.Equal(t, tt.want, KindOf(err), "%v", err)
			assert.Equal(t, before, f.snapshot())
		})
	}
}

func TestRegisterNode_MintAuthorityGate(t *testing.T) {
	f := newFixture(t)
	adminCall := NewCall(f.admin.Public)
	require.NoError(t, f.prog.AddMintAuthority(adminCall, f.authority.Public))

	// The NFT was minted by nftAuth, which is not listed.
	err := f.prog.RegisterNode(NewCall(f.owner.Public, f.admin.Public), f.registerParams(node.KindDON, 40))
	assert.Equal(t, KindInvalidOwnershipProof, KindOf(err))

	require.NoError(t, f.prog.AddMintAuthority(adminCall, f.nftAuth))
	f.register(node.KindDON, 40)
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdateNode(t *testing.T) {
	f := newFixture(t)
	f.register(node.KindDON, 40)
	newHost := addrOf(160)

	req := UpdateRequest{NftMint: f.nftMint, NftAccount: f.nftATA(), NewHost: newHost, NewHostShare: 25}

	err := f.prog.UpdateNode(NewCall(f.owner.Public), req)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	bad := req
	bad.NewHostShare = 150
	err = f.prog.UpdateNode(NewCall(f.owner.Public, f.admin.Public), bad)
	assert.Equal(t, KindInvalidShare, KindOf(err))

	require.NoError(t, f.prog.UpdateNode(NewCall(f.owner.Public, f.admin.Public), req))
	e := f.entry()
	assert.Equal(t, newHost, e.Host)
	assert.Equal(t, uint8(25), e.HostShare)
	assert.Equal(t, node.KindDON, e.Kind)
}

// ---------------------------------------------------------------------------
// Deposit and withdrawal
// ---------------------------------------------------------------------------

func depositReq(f *fixture) DepositRequest {
	return DepositRequest{NftMint: f.nftMint, NftAccount: f.nftATA(), From: f.rewardATA(f.owner.Public)}
}

func withdrawReq(f *fixture) WithdrawRequest {
	return WithdrawRequest{NftMint: f.nftMint, NftAccount: f.nftATA(), To: f.rewardATA(f.owner.Public)}
}

func TestDepositWithdraw_Lifecycle(t *testing.T) {
	f := newFixture(t)
	f.register(node.KindBYOD, 40)
	ownerCall := NewCall(f.owner.Public)
	start := f.balance(f.owner.Public)

	require.NoError(t, f.prog.DepositTokens(ownerCall, depositReq(f)))
	assert.Equal(t, start-node.DefaultDepositAmount, f.balance(f.owner.Public))

	escrow, err := f.prog.Escrow(f.nftMint)
	require.NoError(t, err)
	assert.Equal(t, node.DefaultDepositAmount, escrow.Balance)

	e := f.entry()
	assert.True(t, e.DepositMade)
	assert.Equal(t, t0, e.LockedSince)
	assert.Equal(t, node.DefaultDepositAmount, e.DepositAmount)

	assert.Equal(t, KindAlreadyDeposited, KindOf(f.prog.DepositTokens(ownerCall, depositReq(f))))

	f.advance(29 * 24 * time.Hour)
	before := f.snapshot()
	assert.Equal(t, KindWithdrawTooEarly, KindOf(f.prog.WithdrawTokens(ownerCall, withdrawReq(f))))
	assert.Equal(t, before, f.snapshot())

	f.advance(24 * time.Hour)
	require.NoError(t, f.prog.WithdrawTokens(ownerCall, withdrawReq(f)))
	assert.Equal(t, start, f.balance(f.owner.Public))

	escrow, err = f.prog.Escrow(f.nftMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), escrow.Balance)
	assert.False(t, f.entry().DepositMade)

	assert.Equal(t, KindNoDeposit, KindOf(f.prog.WithdrawTokens(ownerCall, withdrawReq(f))))

	// A new deposit cycle may start.
	require.NoError(t, f.prog.DepositTokens(ownerCall, depositReq(f)))
	assert.Equal(t, f.clock.Now(), f.entry().LockedSince)
}

func TestDeposit_Errors(t *testing.T) {
	t.Run("kind without deposit", func(t *testing.T) {
		f := newFixture(t)
		f.register(node.KindDON, 40)
		err := f.prog.DepositTokens(NewCall(f.owner.Public), depositReq(f))
		assert.Equal(t, KindDepositNotRequired, KindOf(err))
	})

	t.Run("not the owner", func(t *testing.T) {
		f := newFixture(t)
		f.register(node.KindBYOD, 40)
		req := depositReq(f)
		req.From = f.rewardATA(f.stranger.Public)
		err := f.prog.DepositTokens(NewCall(f.stranger.Public), req)
		assert.Equal(t, KindInvalidOwnershipProof, KindOf(err))
	})

	t.Run("wrong mint", func(t *testing.T) {
		f := newFixture(t)
		f.register(node.KindBYOD, 40)
		req := depositReq(f)
		req.From = f.nftATA()
		err := f.prog.DepositTokens(NewCall(f.owner.Public), req)
		assert.Equal(t, KindInvalidTokenAccount, KindOf(err))
	})

	t.Run("not enough tokens", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DepositAmount = 3 * node.DefaultDepositAmount
		f := newFixture(t, WithConfig(cfg))
		f.register(node.KindBYOD, 40)
		before := f.snapshot()
		err := f.prog.DepositTokens(NewCall(f.owner.Public), depositReq(f))
		assert.Equal(t, KindInsufficientFunds, KindOf(err))
		assert.Equal(t, before, f.snapshot())
	})

	t.Run("paused", func(t *testing.T) {
		f := newFixture(t)
		f.register(node.KindBYOD, 40)
		require.NoError(t, f.prog.Pause(NewCall(f.admin.Public)))
		err := f.prog.DepositTokens(NewCall(f.owner.Public), depositReq(f))
		assert.Equal(t, KindProgramPaused, KindOf(err))
	})
}

func TestWithdraw_Errors(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.register(node.KindBYOD, 40)
		require.NoError(t, f.prog.DepositTokens(NewCall(f.owner.Public), depositReq(f)))
		f.advance(node.DefaultLockPeriod)
		return f
	}

	t.Run("paused before lock check", func(t *testing.T) {
		f := setup(t)
		f.clock.Set(t0)
		require.NoError(t, f.prog.Pause(NewCall(f.admin.Public)))
		err := f.prog.WithdrawTokens(NewCall(f.owner.Public), withdrawReq(f))
		assert.Equal(t, KindProgramPaused, KindOf(err))
	})

	t.Run("destination held by someone else", func(t *testing.T) {
		f := setup(t)
		req := withdrawReq(f)
		req.To = f.rewardATA(f.stranger.Public)
		err := f.prog.WithdrawTokens(NewCall(f.owner.Public), req)
		assert.Equal(t, KindInvalidTokenAccount, KindOf(err))
	})

	t.Run("nft sold", func(t *testing.T) {
		f := setup(t)
		dest := ledger.AssociatedTokenAddress(f.stranger.Public, f.nftMint)
		require.NoError(t, f.store.Update(func(tx ledger.Tx) error {
			if _, err := ledger.OpenTokenAccount(tx, dest, f.nftMint, f.stranger.Public); err != nil {
				return err
			}
			return ledger.Transfer(tx, f.nftATA(), dest, f.owner.Public, 1)
		}))
		err := f.prog.WithdrawTokens(NewCall(f.owner.Public), withdrawReq(f))
		assert.Equal(t, KindInsufficientNftBalance, KindOf(err))
	})

	t.Run("unknown node", func(t *testing.T) {
		f := setup(t)
		req := withdrawReq(f)
		req.NftMint = identity.PublicKey{9}
		err := f.prog.WithdrawTokens(NewCall(f.owner.Public), req)
		assert.Equal(t, KindNodeNotFound, KindOf(err))
	})
}

func TestDeposit_ShortLockPeriod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LockPeriod = time.Hour
	f := newFixture(t, WithConfig(cfg))
	f.register(node.KindBYOD, 0)
	require.NoError(t, f.prog.DepositTokens(NewCall(f.owner.Public), depositReq(f)))

	f.advance(59 * time.Minute)
	assert.Equal(t, KindWithdrawTooEarly, KindOf(f.prog.WithdrawTokens(NewCall(f.owner.Public), withdrawReq(f))))
	f.advance(time.Minute)
	require.NoError(t, f.prog.WithdrawTokens(NewCall(f.owner.Public), withdrawReq(f)))
}
