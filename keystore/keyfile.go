package keystore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"golang.org/x/crypto/argon2"

	"github.com/bitfsorg/librewards-go/identity"
)

const (
	// Encryption format sizes.
	SaltLen     = 16
	NonceLen    = 12
	ChecksumLen = 4

	headerLen = 4 + 4 + 4 + 1 // magic, time, memory KiB, threads
)

var magic = []byte("LRK1")

// Params are the Argon2id cost parameters recorded in each key file.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultParams returns Argon2id time 3, 64 MiB, 4 threads.
func DefaultParams() Params {
	return Params{Time: 3, Memory: 64 * 1024, Threads: 4}
}

// LightParams returns cheap Argon2id parameters for throwaway keys on local
// networks and in tests.
func LightParams() Params {
	return Params{Time: 1, Memory: 4 * 1024, Threads: 1}
}

func (p Params) valid() bool {
	return p.Time > 0 && p.Memory >= 8*uint32(p.Threads) && p.Threads > 0
}

func (p Params) key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, 32)
}

// Encrypt seals an Ed25519 seed under password.
//
// Output format: magic(4B) || time u32 || memory u32 || threads u8 || salt(16B)
// || nonce(12B) || AES-GCM(argon2id(password, salt), nonce, seed||checksum)
//
// The header is authenticated as additional data. The checksum is
// SHA256(seed)[:4] for verifying correct decryption.
func Encrypt(seed []byte, password string, p Params) ([]byte, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("%w: empty seed", ErrInvalidKeyFile)
	}
	if !p.valid() {
		return nil, fmt.Errorf("%w: argon2 parameters %+v", ErrInvalidKeyFile, p)
	}

	header := make([]byte, 0, headerLen)
	header = append(header, magic...)
	header = binary.BigEndian.AppendUint32(header, p.Time)
	header = binary.BigEndian.AppendUint32(header, p.Memory)
	header = append(header, p.Threads)

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keystore: failed to generate salt: %w", err)
	}
	gcm, err := newGCM(p.key(password, salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("keystore: failed to generate nonce: %w", err)
	}

	plaintext := make([]byte, 0, len(seed)+ChecksumLen)
	plaintext = append(plaintext, seed...)
	plaintext = append(plaintext, bsvhash.Sha256(seed)[:ChecksumLen]...)

	out := make([]byte, 0, headerLen+SaltLen+NonceLen+len(plaintext)+gcm.Overhead())
	out = append(out, header...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, header), nil
}

// Decrypt opens data produced by Encrypt.
func Decrypt(data []byte, password string) ([]byte, error) {
	if len(data) < headerLen+SaltLen+NonceLen+ChecksumLen || !bytes.Equal(data[:4], magic) {
		return nil, ErrInvalidKeyFile
	}
	header := data[:headerLen]
	p := Params{
		Time:    binary.BigEndian.Uint32(header[4:8]),
		Memory:  binary.BigEndian.Uint32(header[8:12]),
		Threads: header[12],
	}
	if !p.valid() {
		return nil, fmt.Errorf("%w: argon2 parameters %+v", ErrInvalidKeyFile, p)
	}
	salt := data[headerLen : headerLen+SaltLen]
	nonce := data[headerLen+SaltLen : headerLen+SaltLen+NonceLen]
	ciphertext := data[headerLen+SaltLen+NonceLen:]

	gcm, err := newGCM(p.key(password, salt))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, header)
	if err != nil || len(plaintext) < ChecksumLen {
		return nil, ErrDecryptionFailed
	}

	seed := plaintext[:len(plaintext)-ChecksumLen]
	stored := plaintext[len(plaintext)-ChecksumLen:]
	if subtle.ConstantTimeCompare(stored, bsvhash.Sha256(seed)[:ChecksumLen]) != 1 {
		return nil, ErrChecksumMismatch
	}
	return seed, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keystore: AES cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keystore: GCM creation failed: %w", err)
	}
	return gcm, nil
}

// KeyPath returns the key file for name under dataDir/keys.
func KeyPath(dataDir, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyName, name)
	}
	return filepath.Join(dataDir, "keys", name+".key"), nil
}

// Save encrypts kp under password and writes it to path. It refuses to
// overwrite an existing file.
func Save(path string, kp *identity.Keypair, password string, p Params) error {
	data, err := Encrypt(kp.Seed(), password, p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("keystore: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrKeyExists, path)
		}
		return fmt.Errorf("keystore: create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("keystore: write %s: %w", path, err)
	}
	return f.Close()
}

// Load reads and decrypts the keypair at path.
func Load(path, password string) (*identity.Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("keystore: read %s: %w", path, err)
	}
	seed, err := Decrypt(data, password)
	if err != nil {
		return nil, err
	}
	kp, err := identity.KeypairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyFile, err)
	}
	return kp, nil
}
