// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"strings"
	"time"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validNetworks = map[string]bool{
	"mainnet":  true,
	"devnet":   true,
	"testnet":  true,
	"localnet": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validNetworks[cfg.Network] {
		return ErrInvalidNetwork
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.Store != "memory" && cfg.Store != "bolt" {
		return ErrInvalidStore
	}

	switch strings.ToLower(cfg.Replay) {
	case "nonce", "window", "both":
	default:
		return ErrInvalidReplay
	}

	switch strings.ToLower(cfg.RateLimit) {
	case "rolling":
		if cfg.ClaimPeriod < time.Second {
			return ErrInvalidClaimPeriod
		}
	case "calendar":
	default:
		return ErrInvalidRateLimit
	}

	if cfg.LockPeriod < 0 {
		return ErrInvalidLockPeriod
	}

	if cfg.DepositAmount == 0 {
		return ErrInvalidDepositAmount
	}

	return nil
}
