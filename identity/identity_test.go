package identity

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(seed byte) PublicKey {
	var pk PublicKey
	for i := range pk {
		pk[i] = seed
	}
	return pk
}

// ---------------------------------------------------------------------------
// PublicKey encoding
// ---------------------------------------------------------------------------

func TestParsePublicKey_Base58(t *testing.T) {
	pk := key(0x42)
	parsed, err := ParsePublicKey(pk.String())
	require.NoError(t, err)
	assert.Equal(t, pk, parsed)
}

func TestParsePublicKey_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not base58", "0OIl"},
		{"too short", "abc"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePublicKey(tt.input)
			assert.ErrorIs(t, err, ErrInvalidPublicKey)
		})
	}
}

func TestPublicKey_TextMarshal(t *testing.T) {
	pk := key(0x07)
	text, err := pk.MarshalText()
	require.NoError(t, err)

	var decoded PublicKey
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, pk, decoded)
}

func TestPublicKey_IsZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.False(t, key(1).IsZero())
}

// ---------------------------------------------------------------------------
// Keypairs
// ---------------------------------------------------------------------------

func TestKeypairFromSeed_Deterministic(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 9
	a, err := KeypairFromSeed(seed)
	require.NoError(t, err)
	b, err := KeypairFromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, a.Public, b.Public)
	assert.Equal(t, seed, a.Seed())
}

func TestKeypairFromSeed_WrongLength(t *testing.T) {
	_, err := KeypairFromSeed([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestKeypair_SignVerifies(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)
	msg := []byte("claim")
	sig := kp.Sign(msg)
	assert.True(t, ed25519.Verify(kp.Public[:], msg, sig))
}

// ---------------------------------------------------------------------------
// Address derivation
// ---------------------------------------------------------------------------

func TestDerive_Deterministic(t *testing.T) {
	a := MustDerive("nfnode_entry", key(1))
	b := MustDerive("nfnode_entry", key(1))
	assert.Equal(t, a, b)
}

func TestDerive_DistinctInputs(t *testing.T) {
	seen := map[PublicKey]string{}
	cases := map[string]PublicKey{
		"admin":          MustDerive("admin_account"),
		"storage":        MustDerive("token_storage"),
		"storage+k1":     MustDerive("token_storage", key(1)),
		"storage+k2":     MustDerive("token_storage", key(2)),
		"entry+k1":       MustDerive("nfnode_entry", key(1)),
		"entry+k1+k2":    MustDerive("nfnode_entry", key(1), key(2)),
		"entry+k2+k1":    MustDerive("nfnode_entry", key(2), key(1)),
		"shifted seed":   MustDerive("nfnode_entr", key(1)),
		"empty seed+k1":  MustDerive("", key(1)),
		"empty seed":     MustDerive(""),
		"seed only k1ab": MustDerive(string(key(1).Bytes())),
	}
	for name, addr := range cases {
		if prev, ok := seen[addr]; ok {
			t.Fatalf("collision between %q and %q", prev, name)
		}
		seen[addr] = name
	}
}

func TestDerive_SeedTooLong(t *testing.T) {
	_, err := Derive(strings.Repeat("x", MaxSeedLen+1))
	assert.ErrorIs(t, err, ErrSeedTooLong)
}
