// Command rewardsctl operates a node rewards ledger: key management, claim
// authorization signatures and the signed program instructions.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""

// Commonly used command line flags.
var (
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "data directory holding the ledger, keys and config (default ~/.librewards)",
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "configuration file (default <datadir>/config)",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "loglevel",
		Usage: "log level: debug, info, warn or error",
	}
	storeFlag = &cli.StringFlag{
		Name:  "store",
		Usage: "ledger backend: bolt or memory",
	}
	passwordFileFlag = &cli.StringFlag{
		Name:  "passwordfile",
		Usage: "the file that contains the password for key files (or set LIBREWARDS_PASSWORD)",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
	keyFlag = &cli.StringFlag{
		Name:     "key",
		Usage:    "name of the key that signs as caller",
		Required: true,
	}
	cosignFlag = &cli.StringSliceFlag{
		Name:  "cosign",
		Usage: "names of additional signing keys",
	}
	retriesFlag = &cli.IntFlag{
		Name:  "retries",
		Usage: "attempts when the ledger reports a write conflict",
		Value: 3,
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "write the signed instruction to this file instead of executing it",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "rewardsctl"
	app.Usage = "node rewards ledger tool"
	app.Version = "0.1.0"
	if gitCommit != "" {
		app.Version += "-" + gitCommit
	}
	app.Flags = []cli.Flag{
		dataDirFlag,
		configFlag,
		logLevelFlag,
		storeFlag,
		passwordFileFlag,
	}
	app.Commands = []*cli.Command{
		commandKeygen,
		commandSignClaim,
		commandVerifyClaim,
		commandInit,
		commandFund,
		commandRegisterNode,
		commandClaim,
		commandPause,
		commandUnpause,
		commandMintAuthority,
		commandAdmin,
		commandUpdateNode,
		commandDeposit,
		commandWithdraw,
		commandSubmit,
		commandShow,
		commandToken,
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
