package rewards

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/node"
)

const t0 = int64(1_700_000_000)

func keypair(t *testing.T, seed byte) *identity.Keypair {
	t.Helper()
	kp, err := identity.KeypairFromSeed(bytes.Repeat([]byte{seed}, 32))
	require.NoError(t, err)
	return kp
}

func addrOf(seed byte) identity.PublicKey {
	var pk identity.PublicKey
	for i := range pk {
		pk[i] = seed
	}
	return pk
}

// fixture is an initialized program over a ledger holding a reward mint, a
// funded funder, an owner with deposit funds and one node NFT.
type fixture struct {
	t     *testing.T
	store ledger.Store
	clock *ledger.ManualClock
	prog  *Program

	admin, owner, host, mfr, funder, authority, stranger *identity.Keypair

	rewardMint, rewardAuth identity.PublicKey
	nftMint, nftAuth       identity.PublicKey
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	return newFixtureWithStore(t, ledger.NewMemStore(), opts...)
}

func newFixtureWithStore(t *testing.T, store ledger.Store, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:          t,
		store:      store,
		clock:      ledger.NewManualClock(t0),
		admin:      keypair(t, 1),
		owner:      keypair(t, 2),
		host:       keypair(t, 3),
		mfr:        keypair(t, 4),
		funder:     keypair(t, 5),
		authority:  keypair(t, 6),
		stranger:   keypair(t, 7),
		rewardMint: addrOf(100),
		rewardAuth: addrOf(101),
		nftMint:    addrOf(110),
		nftAuth:    addrOf(111),
	}

	opts = append([]Option{WithClock(f.clock), WithLogger(zaptest.NewLogger(t))}, opts...)
	prog, err := New(store, opts...)
	require.NoError(t, err)
	f.prog = prog

	require.NoError(t, store.Update(func(tx ledger.Tx) error {
		if _, err := ledger.CreateMint(tx, f.rewardMint, f.rewardAuth, 6); err != nil {
			return err
		}
		if _, err := ledger.CreateMint(tx, f.nftMint, f.nftAuth, 0); err != nil {
			return err
		}
		for _, kp := range []*identity.Keypair{f.funder, f.owner, f.stranger} {
			if _, err := ledger.OpenTokenAccount(tx, f.rewardATA(kp.Public), f.rewardMint, kp.Public); err != nil {
				return err
			}
		}
		if err := ledger.MintTo(tx, f.rewardMint, f.rewardAuth, f.rewardATA(f.funder.Public), 1_000_000_000_000); err != nil {
			return err
		}
		if err := ledger.MintTo(tx, f.rewardMint, f.rewardAuth, f.rewardATA(f.owner.Public), 2*node.DefaultDepositAmount); err != nil {
			return err
		}
		if _, err := ledger.OpenTokenAccount(tx, f.nftATA(), f.nftMint, f.owner.Public); err != nil {
			return err
		}
		return ledger.MintTo(tx, f.nftMint, f.nftAuth, f.nftATA(), 1)
	}))

	require.NoError(t, f.prog.Initialize(NewCall(f.admin.Public), f.rewardMint))
	return f
}

func (f *fixture) rewardATA(owner identity.PublicKey) identity.PublicKey {
	return ledger.AssociatedTokenAddress(owner, f.rewardMint)
}

func (f *fixture) nftATA() identity.PublicKey {
	return ledger.AssociatedTokenAddress(f.owner.Public, f.nftMint)
}

func (f *fixture) fund(amount uint64) {
	f.t.Helper()
	require.NoError(f.t, f.prog.FundTokenStorage(NewCall(f.funder.Public), FundRequest{
		From:   f.rewardATA(f.funder.Public),
		Amount: amount,
	}))
}

func (f *fixture) registerParams(kind node.Kind, hostShare uint8) RegisterRequest {
	return RegisterRequest{
		Params: node.Params{
			NftMint:   f.nftMint,
			Owner:     f.owner.Public,
			Host:      f.host.Public,
			HostShare: hostShare,
			Kind:      kind,
		},
		NftAccount: f.nftATA(),
	}
}

func (f *fixture) register(kind node.Kind, hostShare uint8) {
	f.t.Helper()
	require.NoError(f.t, f.prog.RegisterNode(
		NewCall(f.owner.Public, f.admin.Public),
		f.registerParams(kind, hostShare),
	))
}

// addNode mints another node NFT to the owner, registers it and returns the
// owner's account holding it.
func (f *fixture) addNode(nftMint identity.PublicKey) identity.PublicKey {
	f.t.Helper()
	ata := ledger.AssociatedTokenAddress(f.owner.Public, nftMint)
	require.NoError(f.t, f.store.Update(func(tx ledger.Tx) error {
		if _, err := ledger.CreateMint(tx, nftMint, f.nftAuth, 0); err != nil {
			return err
		}
		if _, err := ledger.OpenTokenAccount(tx, ata, nftMint, f.owner.Public); err != nil {
			return err
		}
		return ledger.MintTo(tx, nftMint, f.nftAuth, ata, 1)
	}))
	req := f.registerParams(node.KindDON, 0)
	req.NftMint = nftMint
	req.NftAccount = ata
	require.NoError(f.t, f.prog.RegisterNode(NewCall(f.owner.Public, f.admin.Public), req))
	return ata
}

// coSignedClaim claims as role with the admin co-signing the call.
func (f *fixture) coSignedClaim(claimant *identity.Keypair, role node.Role, amount, nonce uint64) (*ClaimReceipt, error) {
	return f.prog.ClaimRewards(NewCall(claimant.Public, f.admin.Public), ClaimRequest{
		NftMint:    f.nftMint,
		NftAccount: f.nftATA(),
		Role:       role,
		Amount:     amount,
		Nonce:      nonce,
	})
}

// signedClaim builds a claim authorized by signer's signature over the claim message.
func (f *fixture) signedClaim(claimant, signer *identity.Keypair, role node.Role, amount, nonce uint64) ClaimRequest {
	req := ClaimRequest{
		NftMint:    f.nftMint,
		NftAccount: f.nftATA(),
		Role:       role,
		Amount:     amount,
		Nonce:      nonce,
		Signer:     signer.Public,
	}
	req.Signature = signer.Sign(req.Message(claimant.Public).Encode())
	return req
}

func (f *fixture) balance(owner identity.PublicKey) uint64 {
	f.t.Helper()
	amount, err := f.prog.TokenBalance(owner, f.rewardMint)
	require.NoError(f.t, err)
	return amount
}

func (f *fixture) poolBalance() uint64 {
	f.t.Helper()
	pool, err := f.prog.Pool()
	require.NoError(f.t, err)
	return pool.Balance
}

func (f *fixture) entry() *node.Entry {
	f.t.Helper()
	e, err := f.prog.Node(f.nftMint)
	require.NoError(f.t, err)
	return e
}

func (f *fixture) advance(d time.Duration) {
	f.clock.Advance(d)
}

// snapshot returns every account when the store is in memory.
func (f *fixture) snapshot() map[identity.PublicKey][]byte {
	f.t.Helper()
	mem, ok := f.store.(*ledger.MemStore)
	require.True(f.t, ok)
	return mem.Snapshot()
}
