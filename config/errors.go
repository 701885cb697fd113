// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"mainnet\", \"devnet\", \"testnet\", or \"localnet\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidStore indicates the store backend is not recognized.
	ErrInvalidStore = errors.New("config: invalid store (must be \"memory\" or \"bolt\")")

	// ErrInvalidReplay indicates the replay policy is not recognized.
	ErrInvalidReplay = errors.New("config: invalid replay policy (must be \"nonce\", \"window\", or \"both\")")

	// ErrInvalidRateLimit indicates the rate-limit mode is not recognized.
	ErrInvalidRateLimit = errors.New("config: invalid rate limit (must be \"rolling\" or \"calendar\")")

	// ErrInvalidClaimPeriod indicates a rolling window shorter than one second.
	ErrInvalidClaimPeriod = errors.New("config: claim period must be at least 1s")

	// ErrInvalidLockPeriod indicates a negative deposit lock period.
	ErrInvalidLockPeriod = errors.New("config: lock period must not be negative")

	// ErrInvalidDepositAmount indicates a zero deposit amount.
	ErrInvalidDepositAmount = errors.New("config: deposit amount must be positive")

	// ErrInvalidValue indicates a value that could not be parsed for its key.
	ErrInvalidValue = errors.New("config: invalid value")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
