// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the rewardsctl configuration file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bitfsorg/librewards-go/node"
	"github.com/bitfsorg/librewards-go/replay"
	"github.com/bitfsorg/librewards-go/rewards"
)

// Config holds the settings of a rewards ledger node.
type Config struct {
	DataDir       string
	Network       string
	LogLevel      string
	LogFile       string
	Store         string
	Replay        string
	RateLimit     string
	ClaimPeriod   time.Duration
	LockPeriod    time.Duration
	DepositAmount uint64
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		DataDir:       DefaultDataDir(),
		Network:       "mainnet",
		LogLevel:      "info",
		LogFile:       "",
		Store:         "bolt",
		Replay:        "both",
		RateLimit:     "rolling",
		ClaimPeriod:   24 * time.Hour,
		LockPeriod:    node.DefaultLockPeriod,
		DepositAmount: node.DefaultDepositAmount,
	}
}

// DefaultDataDir returns ~/.librewards, or .librewards in the working
// directory when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".librewards"
	}
	return filepath.Join(home, ".librewards")
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// LedgerPath returns the bbolt ledger file inside dataDir.
func LedgerPath(dataDir string) string {
	return filepath.Join(dataDir, "ledger.db")
}

// LoadConfig reads a key = value file on top of DefaultConfig. Blank lines
// and lines starting with # are skipped; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", err, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w (line %d)", err, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits a line on its first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

// set assigns one key. Unknown keys are ignored.
func (c *Config) set(key, value string) error {
	switch strings.ToLower(key) {
	case "datadir":
		c.DataDir = value
	case "network":
		c.Network = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "store":
		c.Store = value
	case "replay":
		c.Replay = value
	case "ratelimit":
		c.RateLimit = value
	case "claimperiod":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: claimperiod: %v", ErrInvalidValue, err)
		}
		c.ClaimPeriod = d
	case "lockperiod":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: lockperiod: %v", ErrInvalidValue, err)
		}
		c.LockPeriod = d
	case "depositamount":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: depositamount: %v", ErrInvalidValue, err)
		}
		c.DepositAmount = n
	}
	return nil
}

// SaveConfig writes cfg to path, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Rewards Ledger Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	b.WriteString("\n# Ledger\n")
	fmt.Fprintf(&b, "store = %s\n", cfg.Store)
	fmt.Fprintf(&b, "depositamount = %d\n", cfg.DepositAmount)
	fmt.Fprintf(&b, "lockperiod = %s\n", cfg.LockPeriod)
	b.WriteString("\n# Claims\n")
	fmt.Fprintf(&b, "replay = %s\n", cfg.Replay)
	fmt.Fprintf(&b, "ratelimit = %s\n", cfg.RateLimit)
	fmt.Fprintf(&b, "claimperiod = %s\n", cfg.ClaimPeriod)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// envKeys maps environment variables to configuration keys.
var envKeys = map[string]string{
	"LIBREWARDS_DATADIR":  "datadir",
	"LIBREWARDS_NETWORK":  "network",
	"LIBREWARDS_LOGLEVEL": "loglevel",
	"LIBREWARDS_LOGFILE":  "logfile",
	"LIBREWARDS_STORE":    "store",
	"LIBREWARDS_REPLAY":   "replay",
}

// ApplyEnv overrides cfg with non-empty LIBREWARDS_* variables from env.
// Command-line flags are applied after this by the caller.
func ApplyEnv(cfg *Config, env map[string]string) error {
	for name, key := range envKeys {
		if v, ok := env[name]; ok && v != "" {
			if err := cfg.set(key, v); err != nil {
				return fmt.Errorf("%w (%s)", err, name)
			}
		}
	}
	return nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// RewardsConfig converts the claim and deposit settings for rewards.New.
func (c Config) RewardsConfig() (rewards.Config, error) {
	policy, err := replay.ParsePolicy(strings.ToLower(c.Replay))
	if err != nil {
		return rewards.Config{}, fmt.Errorf("%w: %w", ErrInvalidReplay, err)
	}
	mode, err := replay.ParseWindowMode(strings.ToLower(c.RateLimit))
	if err != nil {
		return rewards.Config{}, fmt.Errorf("%w: %w", ErrInvalidRateLimit, err)
	}
	rc := rewards.Config{
		Guard:         replay.Guard{Policy: policy, Window: mode, Period: c.ClaimPeriod},
		LockPeriod:    c.LockPeriod,
		DepositAmount: c.DepositAmount,
	}
	return rc, rc.Validate()
}
