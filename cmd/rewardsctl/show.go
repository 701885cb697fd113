package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/librewards-go/custody"
	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
)

type outputAdmin struct {
	Admin           identity.PublicKey   `json:"admin"`
	AdminCandidate  *identity.PublicKey  `json:"adminCandidate,omitempty"`
	MintAuthorities []identity.PublicKey `json:"mintAuthorities"`
	Paused          bool                 `json:"paused"`
	RewardMint      identity.PublicKey   `json:"rewardMint"`
}

type outputCustody struct {
	Address     identity.PublicKey `json:"address"`
	Mint        identity.PublicKey `json:"mint"`
	Vault       identity.PublicKey `json:"vault"`
	Balance     uint64             `json:"balance"`
	TotalFunded uint64             `json:"totalFunded"`
	TotalPaid   uint64             `json:"totalPaid"`
}

func custodyOutput(c *custody.Custody) outputCustody {
	return outputCustody{
		Address:     c.Address,
		Mint:        c.Mint,
		Vault:       c.Vault,
		Balance:     c.Balance,
		TotalFunded: c.TotalFunded,
		TotalPaid:   c.TotalPaid,
	}
}

// withEnv opens the ledger for a read-only command.
func withEnv(fn func(ctx *cli.Context, e *env) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(ctx, e)
	}
}

var commandShow = &cli.Command{
	Name:  "show",
	Usage: "print ledger state",
	Subcommands: []*cli.Command{
		{
			Name:  "admin",
			Usage: "the admin registry",
			Flags: []cli.Flag{jsonFlag},
			Action: withEnv(func(ctx *cli.Context, e *env) error {
				acct, err := e.prog.Admin()
				if err != nil {
					return err
				}
				out := outputAdmin{
					Admin:           acct.Admin,
					MintAuthorities: acct.MintAuthorities,
					Paused:          acct.Paused,
					RewardMint:      acct.RewardMint,
				}
				if acct.HasCandidate() {
					out.AdminCandidate = &acct.AdminCandidate
				}
				return printResult(ctx, out, func() {
					w := ctx.App.Writer
					fmt.Fprintf(w, "Admin:       %s\n", out.Admin)
					if out.AdminCandidate != nil {
						fmt.Fprintf(w, "Candidate:   %s\n", out.AdminCandidate)
					}
					fmt.Fprintf(w, "Reward mint: %s\n", out.RewardMint)
					fmt.Fprintf(w, "Paused:      %t\n", out.Paused)
					for _, a := range out.MintAuthorities {
						fmt.Fprintf(w, "Authority:   %s\n", a)
					}
				})
			}),
		},
		{
			Name:  "node",
			Usage: "a node registry entry",
			Flags: []cli.Flag{jsonFlag, nftMintFlag},
			Action: withEnv(func(ctx *cli.Context, e *env) error {
				nft, err := publicKeyFlag(ctx, nftMintFlag.Name, true)
				if err != nil {
					return err
				}
				entry, err := e.prog.Node(nft)
				if err != nil {
					return err
				}
				return printResult(ctx, entry, func() {
					w := ctx.App.Writer
					fmt.Fprintf(w, "NFT mint:      %s\n", entry.NftMint)
					fmt.Fprintf(w, "Kind:          %s\n", entry.Kind)
					fmt.Fprintf(w, "Owner:         %s\n", entry.Owner)
					fmt.Fprintf(w, "Host:          %s (%d%%)\n", entry.Host, entry.HostShare)
					if !entry.Manufacturer.IsZero() {
						fmt.Fprintf(w, "Manufacturer:  %s (%d%%)\n", entry.Manufacturer, entry.ManufacturerShare)
					}
					fmt.Fprintf(w, "Deposit:       %t (%d)\n", entry.DepositMade, entry.DepositAmount)
					fmt.Fprintf(w, "Owner claims:  %d, nonce %d at %d\n", entry.OwnerClaims.Count, entry.OwnerClaims.LastNonce, entry.OwnerClaims.LastClaimAt)
					fmt.Fprintf(w, "Host claims:   %d, nonce %d at %d\n", entry.HostClaims.Count, entry.HostClaims.LastNonce, entry.HostClaims.LastClaimAt)
					fmt.Fprintf(w, "Total claimed: %d\n", entry.TotalRewardsClaimed)
				})
			}),
		},
		{
			Name:  "pool",
			Usage: "the reward pool",
			Flags: []cli.Flag{jsonFlag},
			Action: withEnv(func(ctx *cli.Context, e *env) error {
				pool, err := e.prog.Pool()
				if err != nil {
					return err
				}
				return printCustody(ctx, pool)
			}),
		},
		{
			Name:  "escrow",
			Usage: "the deposit escrow of a node",
			Flags: []cli.Flag{jsonFlag, nftMintFlag},
			Action: withEnv(func(ctx *cli.Context, e *env) error {
				nft, err := publicKeyFlag(ctx, nftMintFlag.Name, true)
				if err != nil {
					return err
				}
				escrow, err := e.prog.Escrow(nft)
				if err != nil {
					return err
				}
				return printCustody(ctx, escrow)
			}),
		},
	},
}

func printCustody(ctx *cli.Context, c *custody.Custody) error {
	out := custodyOutput(c)
	return printResult(ctx, out, func() {
		w := ctx.App.Writer
		fmt.Fprintf(w, "Address:      %s\n", out.Address)
		fmt.Fprintf(w, "Vault:        %s\n", out.Vault)
		fmt.Fprintf(w, "Balance:      %d\n", out.Balance)
		fmt.Fprintf(w, "Total funded: %d\n", out.TotalFunded)
		fmt.Fprintf(w, "Total paid:   %d\n", out.TotalPaid)
	})
}

var (
	mintFlag = &cli.StringFlag{
		Name:     "mint",
		Usage:    "token mint",
		Required: true,
	}
	holderFlag = &cli.StringFlag{
		Name:     "holder",
		Usage:    "owner of the associated token account",
		Required: true,
	}
	decimalsFlag = &cli.UintFlag{
		Name:  "decimals",
		Usage: "mint decimals (0 with a single unit makes a node NFT)",
	}
)

// localOnly rejects token administration outside local networks, where mints
// and balances come from the surrounding ledger.
func localOnly(e *env) error {
	if e.cfg.Network != "localnet" && e.cfg.Network != "devnet" {
		return fmt.Errorf("token commands are only available on localnet and devnet (network is %s)", e.cfg.Network)
	}
	return nil
}

var commandToken = &cli.Command{
	Name:  "token",
	Usage: "local token administration for test networks",
	Subcommands: []*cli.Command{
		{
			Name:  "create-mint",
			Usage: "create a mint whose authority is --key",
			Flags: []cli.Flag{keyFlag, decimalsFlag},
			Action: withEnv(func(ctx *cli.Context, e *env) error {
				if err := localOnly(e); err != nil {
					return err
				}
				if ctx.Uint(decimalsFlag.Name) > 255 {
					return fmt.Errorf("--decimals: %d out of range", ctx.Uint(decimalsFlag.Name))
				}
				authority, err := loadKey(ctx, e.cfg, ctx.String(keyFlag.Name))
				if err != nil {
					return err
				}
				addr, err := identity.NewKeypair()
				if err != nil {
					return err
				}
				err = e.store.Update(func(tx ledger.Tx) error {
					_, err := ledger.CreateMint(tx, addr.Public, authority.Public, uint8(ctx.Uint(decimalsFlag.Name)))
					return err
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(ctx.App.Writer, "Mint: %s\n", addr.Public)
				return nil
			}),
		},
		{
			Name:  "mint-to",
			Usage: "mint units into the associated account of --holder; --key is the mint authority",
			Flags: []cli.Flag{keyFlag, mintFlag, holderFlag, amountFlag},
			Action: withEnv(func(ctx *cli.Context, e *env) error {
				if err := localOnly(e); err != nil {
					return err
				}
				mint, err := publicKeyFlag(ctx, mintFlag.Name, true)
				if err != nil {
					return err
				}
				holder, err := publicKeyFlag(ctx, holderFlag.Name, true)
				if err != nil {
					return err
				}
				authority, err := loadKey(ctx, e.cfg, ctx.String(keyFlag.Name))
				if err != nil {
					return err
				}
				ata := ledger.AssociatedTokenAddress(holder, mint)
				err = e.store.Update(func(tx ledger.Tx) error {
					if _, err := ledger.OpenTokenAccount(tx, ata, mint, holder); err != nil {
						return err
					}
					return ledger.MintTo(tx, mint, authority.Public, ata, ctx.Uint64(amountFlag.Name))
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(ctx.App.Writer, "Account: %s\n", ata)
				return nil
			}),
		},
		{
			Name:  "balance",
			Usage: "balance of the associated account of --holder",
			Flags: []cli.Flag{mintFlag, holderFlag},
			Action: withEnv(func(ctx *cli.Context, e *env) error {
				mint, err := publicKeyFlag(ctx, mintFlag.Name, true)
				if err != nil {
					return err
				}
				holder, err := publicKeyFlag(ctx, holderFlag.Name, true)
				if err != nil {
					return err
				}
				bal, err := e.prog.TokenBalance(holder, mint)
				if err != nil {
					return err
				}
				fmt.Fprintf(ctx.App.Writer, "%d\n", bal)
				return nil
			}),
		},
	},
}
