// Package keystore manages the Ed25519 signing keys of rewards operators:
// BIP39 mnemonic backup and Argon2id + AES-256-GCM encrypted key files.
package keystore

import (
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"

	"github.com/bitfsorg/librewards-go/identity"
)

const (
	// Mnemonic entropy sizes.
	Mnemonic12Words = 128 // 12-word mnemonic
	Mnemonic24Words = 256 // 24-word mnemonic
)

var keyDomain = []byte("librewards/keystore")

// GenerateMnemonic creates a new BIP39 mnemonic with the specified entropy bits.
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != Mnemonic12Words && entropyBits != Mnemonic24Words {
		return "", ErrInvalidEntropy
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("keystore: failed to generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("keystore: failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic string is valid BIP39.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// KeypairFromMnemonic derives signing key number index from a mnemonic and
// optional passphrase:
//
//	ed25519 seed = SHA256(domain || bip39seed(mnemonic, passphrase) || index u32 BE)
//
// The same inputs always yield the same keypair.
func KeypairFromMnemonic(mnemonic, passphrase string, index uint32) (*identity.Keypair, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("keystore: failed to derive seed: %w", err)
	}

	buf := make([]byte, 0, len(keyDomain)+len(seed)+4)
	buf = append(buf, keyDomain...)
	buf = append(buf, seed...)
	buf = binary.BigEndian.AppendUint32(buf, index)
	return identity.KeypairFromSeed(bsvhash.Sha256(buf))
}
