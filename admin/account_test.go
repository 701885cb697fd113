package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
)

func key(seed byte) identity.PublicKey {
	var pk identity.PublicKey
	for i := range pk {
		pk[i] = seed
	}
	return pk
}

func newAccount(t *testing.T) *Account {
	t.Helper()
	a, err := New(key(1), key(100))
	require.NoError(t, err)
	return a
}

// ---------------------------------------------------------------------------
// Admin handover
// ---------------------------------------------------------------------------

func TestNew_RejectsZero(t *testing.T) {
	_, err := New(identity.Zero, key(100))
	assert.ErrorIs(t, err, ErrInvalidPubkey)
	_, err = New(key(1), identity.Zero)
	assert.ErrorIs(t, err, ErrInvalidPubkey)
}

func TestAdminHandover(t *testing.T) {
	a := newAccount(t)

	require.ErrorIs(t, a.RequestChange(key(2), key(2)), ErrUnauthorized)
	require.NoError(t, a.RequestChange(key(1), key(2)))
	assert.True(t, a.HasCandidate())

	// Only the candidate accepts, the current admin cannot.
	assert.ErrorIs(t, a.AcceptChange(key(1)), ErrUnauthorized)
	assert.ErrorIs(t, a.AcceptChange(key(3)), ErrUnauthorized)
	assert.True(t, a.IsAdmin(key(1)))

	require.NoError(t, a.AcceptChange(key(2)))
	assert.True(t, a.IsAdmin(key(2)))
	assert.False(t, a.IsAdmin(key(1)))
	assert.False(t, a.HasCandidate())

	// Accept again with no candidate.
	assert.ErrorIs(t, a.AcceptChange(key(2)), ErrNoPendingCandidate)
}

func TestRequestChange_Overwrite(t *testing.T) {
	a := newAccount(t)
	require.NoError(t, a.RequestChange(key(1), key(2)))
	require.NoError(t, a.RequestChange(key(1), key(3)))
	assert.ErrorIs(t, a.AcceptChange(key(2)), ErrUnauthorized)
	require.NoError(t, a.AcceptChange(key(3)))
	assert.ErrorIs(t, a.RequestChange(key(3), identity.Zero), ErrInvalidPubkey)
}

// ---------------------------------------------------------------------------
// Mint authorities
// ---------------------------------------------------------------------------

func TestMintAuthorities(t *testing.T) {
	a := newAccount(t)

	assert.ErrorIs(t, a.AddMintAuthority(key(9), key(20)), ErrUnauthorized)
	assert.ErrorIs(t, a.AddMintAuthority(key(1), identity.Zero), ErrInvalidPubkey)

	require.NoError(t, a.AddMintAuthority(key(1), key(20)))
	require.NoError(t, a.AddMintAuthority(key(1), key(21)))
	require.NoError(t, a.AddMintAuthority(key(1), key(22)))
	assert.ErrorIs(t, a.AddMintAuthority(key(1), key(21)), ErrAlreadyPresent)
	assert.True(t, a.CanAuthorizeClaims(key(21)))
	assert.True(t, a.CanAuthorizeClaims(key(1)))
	assert.False(t, a.CanAuthorizeClaims(key(23)))

	require.NoError(t, a.RemoveMintAuthority(key(1), key(21)))
	assert.Equal(t, []identity.PublicKey{key(20), key(22)}, a.MintAuthorities)
	assert.ErrorIs(t, a.RemoveMintAuthority(key(1), key(21)), ErrNotFound)
	assert.ErrorIs(t, a.RemoveMintAuthority(key(2), key(20)), ErrUnauthorized)
}

func TestMintAuthorities_Full(t *testing.T) {
	a := newAccount(t)
	for i := 0; i < MaxMintAuthorities; i++ {
		require.NoError(t, a.AddMintAuthority(key(1), key(byte(20+i))))
	}
	assert.ErrorIs(t, a.AddMintAuthority(key(1), key(99)), ErrMintAuthorityListFull)
}

// ---------------------------------------------------------------------------
// Pause
// ---------------------------------------------------------------------------

func TestSetPaused_Idempotent(t *testing.T) {
	a := newAccount(t)
	require.NoError(t, a.RequireActive())

	changed, err := a.SetPaused(key(1), true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.ErrorIs(t, a.RequireActive(), ErrProgramPaused)

	changed, err = a.SetPaused(key(1), true)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = a.SetPaused(key(2), false)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, a.Paused)
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func TestSerialize_RoundTrip(t *testing.T) {
	a := newAccount(t)
	a.AdminCandidate = key(2)
	a.Paused = true
	a.MintAuthorities = []identity.PublicKey{key(20), key(21)}

	data := Serialize(a)
	assert.Len(t, data, 1+3*32+2+2*32)
	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestDeserialize_TooManyAuthorities(t *testing.T) {
	data := Serialize(newAccount(t))
	data[len(data)-1] = MaxMintAuthorities + 1
	_, err := Deserialize(data)
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountData)
}

func TestLoadStore(t *testing.T) {
	s := ledger.NewMemStore()
	err := s.View(func(r ledger.Reader) error {
		_, err := Load(r)
		return err
	})
	assert.ErrorIs(t, err, ErrNotInitialized)

	a := newAccount(t)
	require.NoError(t, s.Update(func(tx ledger.Tx) error { return Store(tx, a) }))
	require.NoError(t, s.View(func(r ledger.Reader) error {
		got, err := Load(r)
		require.NoError(t, err)
		assert.Equal(t, a, got)
		return nil
	}))
}
