package keystore

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("keystore: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("keystore: entropy bits must be 128 or 256")

	// ErrDecryptionFailed indicates wrong password or corrupted key data.
	ErrDecryptionFailed = errors.New("keystore: key decryption failed (wrong password or corrupted data)")

	// ErrChecksumMismatch indicates key checksum verification failed after decryption.
	ErrChecksumMismatch = errors.New("keystore: key checksum mismatch")

	// ErrInvalidKeyFile indicates a key file with an unknown header or bad parameters.
	ErrInvalidKeyFile = errors.New("keystore: invalid key file")

	// ErrKeyExists indicates a key file is already present at the target path.
	ErrKeyExists = errors.New("keystore: key file already exists")

	// ErrKeyNotFound indicates the key file does not exist.
	ErrKeyNotFound = errors.New("keystore: key file not found")

	// ErrInvalidKeyName indicates a key name that is empty or contains a path separator.
	ErrInvalidKeyName = errors.New("keystore: invalid key name")
)
