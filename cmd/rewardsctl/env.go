package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/bitfsorg/librewards-go/authsig"
	"github.com/bitfsorg/librewards-go/config"
	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/instruction"
	"github.com/bitfsorg/librewards-go/keystore"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/logging"
	"github.com/bitfsorg/librewards-go/rewards"
)

var errPasswordRequired = errors.New("password required: use --passwordfile or LIBREWARDS_PASSWORD")

// loadConfig layers the config file, LIBREWARDS_* variables and global flags.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		dir := ctx.String(dataDirFlag.Name)
		if dir == "" {
			dir = config.DefaultDataDir()
		}
		path = config.ConfigPath(dir)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return cfg, err
	}
	if err := config.ApplyEnv(&cfg, config.Environ()); err != nil {
		return cfg, err
	}
	if v := ctx.String(dataDirFlag.Name); v != "" {
		cfg.DataDir = v
	}
	if v := ctx.String(logLevelFlag.Name); v != "" {
		cfg.LogLevel = v
	}
	if v := ctx.String(storeFlag.Name); v != "" {
		cfg.Store = v
	}
	return cfg, config.ValidateConfig(cfg)
}

// env is an opened ledger with the program and dispatcher on top of it.
type env struct {
	cfg        config.Config
	logger     *zap.Logger
	store      ledger.Store
	prog       *rewards.Program
	dispatcher *instruction.Dispatcher
}

func openEnv(ctx *cli.Context) (*env, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	rc, err := cfg.RewardsConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	var store ledger.Store
	switch cfg.Store {
	case "memory":
		store = ledger.NewMemStore()
	default:
		store, err = ledger.OpenBoltStore(config.LedgerPath(cfg.DataDir))
		if err != nil {
			return nil, err
		}
	}

	verifier, err := authsig.NewVerifier(authsig.DefaultCacheSize)
	if err != nil {
		store.Close()
		return nil, err
	}
	prog, err := rewards.New(store,
		rewards.WithConfig(rc),
		rewards.WithLogger(logger),
		rewards.WithVerifier(verifier))
	if err != nil {
		store.Close()
		return nil, err
	}
	return &env{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		prog:       prog,
		dispatcher: instruction.NewDispatcher(prog, logger),
	}, nil
}

func (e *env) Close() error {
	_ = e.logger.Sync()
	return e.store.Close()
}

// password reads the first line of --passwordfile, falling back to
// LIBREWARDS_PASSWORD.
func password(ctx *cli.Context) (string, error) {
	if file := ctx.String(passwordFileFlag.Name); file != "" {
		f, err := os.Open(file)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		defer f.Close()
		line, err := bufio.NewReader(f).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	if pw, ok := os.LookupEnv("LIBREWARDS_PASSWORD"); ok {
		return pw, nil
	}
	return "", errPasswordRequired
}

// loadKey decrypts the named key from the data directory.
func loadKey(ctx *cli.Context, cfg config.Config, name string) (*identity.Keypair, error) {
	path, err := keystore.KeyPath(cfg.DataDir, name)
	if err != nil {
		return nil, err
	}
	pw, err := password(ctx)
	if err != nil {
		return nil, err
	}
	return keystore.Load(path, pw)
}

// signers loads --key followed by every --cosign key.
func signers(ctx *cli.Context, cfg config.Config) ([]*identity.Keypair, error) {
	names := append([]string{ctx.String(keyFlag.Name)}, ctx.StringSlice(cosignFlag.Name)...)
	kps := make([]*identity.Keypair, 0, len(names))
	for _, name := range names {
		kp, err := loadKey(ctx, cfg, name)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", name, err)
		}
		kps = append(kps, kp)
	}
	return kps, nil
}

// publicKeyFlag parses a base58 key flag. Empty is allowed unless required.
func publicKeyFlag(ctx *cli.Context, name string, required bool) (identity.PublicKey, error) {
	s := ctx.String(name)
	if s == "" {
		if required {
			return identity.Zero, fmt.Errorf("--%s is required", name)
		}
		return identity.Zero, nil
	}
	pk, err := identity.ParsePublicKey(s)
	if err != nil {
		return identity.Zero, fmt.Errorf("--%s: %w", name, err)
	}
	return pk, nil
}

// payloadFunc builds an instruction payload once the caller key is known.
type payloadFunc func(e *env, caller identity.PublicKey) (interface{}, error)

// fixed returns a payloadFunc for a payload that does not depend on the caller.
func fixed(payload interface{}) payloadFunc {
	return func(*env, identity.PublicKey) (interface{}, error) { return payload, nil }
}

// run signs an instruction with the --key and --cosign keys and executes it,
// or writes the envelope to --out.
func run(ctx *cli.Context, action instruction.Action, build payloadFunc) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	kps, err := signers(ctx, e.cfg)
	if err != nil {
		return err
	}
	payload, err := build(e, kps[0].Public)
	if err != nil {
		return err
	}
	ins, err := instruction.New(action, payload)
	if err != nil {
		return err
	}
	envelope := instruction.Sign(ins, kps...)

	if out := ctx.String(outFlag.Name); out != "" {
		// Compact encoding keeps the signed payload bytes intact.
		data, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0600); err != nil {
			return fmt.Errorf("failed to write envelope: %w", err)
		}
		fmt.Fprintf(ctx.App.Writer, "Signed %s written to %s\n", action, out)
		return nil
	}
	return e.execute(ctx, envelope)
}

func (e *env) execute(ctx *cli.Context, envelope *instruction.Envelope) error {
	res, err := e.dispatcher.ExecuteWithRetry(ctx.Context, envelope, ctx.Int(retriesFlag.Name))
	if err != nil {
		return fmt.Errorf("%s failed (%s): %w", envelope.Instruction.Action, rewards.KindOf(err), err)
	}
	if res.Claim != nil {
		return printResult(ctx, res.Claim, func() {
			s := res.Claim.Split
			fmt.Fprintf(ctx.App.Writer, "Claimed: owner %d, host %d, manufacturer %d\n", s.Owner, s.Host, s.Manufacturer)
			fmt.Fprintf(ctx.App.Writer, "Pool balance: %d\n", res.Claim.PoolBalance)
		})
	}
	fmt.Fprintf(ctx.App.Writer, "%s: ok\n", res.Action)
	return nil
}

// printResult writes v as JSON under --json, otherwise calls human.
func printResult(ctx *cli.Context, v interface{}, human func()) error {
	if ctx.Bool(jsonFlag.Name) {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, string(data))
		return nil
	}
	human()
	return nil
}

// signedFlags are shared by every command that executes an instruction.
var signedFlags = []cli.Flag{keyFlag, cosignFlag, retriesFlag, outFlag}

func withSigned(flags ...cli.Flag) []cli.Flag {
	return append(append([]cli.Flag{}, signedFlags...), flags...)
}
