package main

import (
	"fmt"
	"os"

	"github.com/mr-tron/base58"
	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/instruction"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/node"
)

var (
	rewardMintFlag = &cli.StringFlag{
		Name:     "reward-mint",
		Usage:    "mint of the reward token",
		Required: true,
	}
	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "source token account (default: the caller's reward-token account)",
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "destination token account (default: the caller's reward-token account)",
	}
	nftMintFlag = &cli.StringFlag{
		Name:     "nft-mint",
		Usage:    "mint of the node NFT",
		Required: true,
	}
	nftAccountFlag = &cli.StringFlag{
		Name:  "nft-account",
		Usage: "token account holding the node NFT (default: the caller's associated account)",
	}
	ownerFlag = &cli.StringFlag{
		Name:  "owner",
		Usage: "node owner (default: the caller)",
	}
	hostFlag = &cli.StringFlag{
		Name:     "host",
		Usage:    "node host",
		Required: true,
	}
	manufacturerFlag = &cli.StringFlag{
		Name:  "manufacturer",
		Usage: "node manufacturer",
	}
	manufacturerShareFlag = &cli.UintFlag{
		Name:  "manufacturer-share",
		Usage: "manufacturer percentage taken before the host share",
	}
	kindFlag = &cli.StringFlag{
		Name:  "kind",
		Usage: "node kind: don, byod or wayru_hotspot",
		Value: node.KindDON.String(),
	}
	roleFlag = &cli.StringFlag{
		Name:  "role",
		Usage: "claiming role: owner or host",
		Value: node.RoleOwner.String(),
	}
	authorityFlag = &cli.StringFlag{
		Name:     "authority",
		Usage:    "mint authority public key",
		Required: true,
	}
	newAdminFlag = &cli.StringFlag{
		Name:     "new-admin",
		Usage:    "candidate admin public key",
		Required: true,
	}
)

// rewardAccount returns flag or, when empty, the associated reward-token
// account of owner.
func rewardAccount(ctx *cli.Context, e *env, flag string, owner identity.PublicKey) (identity.PublicKey, error) {
	pk, err := publicKeyFlag(ctx, flag, false)
	if err != nil || !pk.IsZero() {
		return pk, err
	}
	acct, err := e.prog.Admin()
	if err != nil {
		return identity.Zero, err
	}
	return ledger.AssociatedTokenAddress(owner, acct.RewardMint), nil
}

// nftAccount returns --nft-account or the associated account of holder.
func nftAccount(ctx *cli.Context, nftMint, holder identity.PublicKey) (identity.PublicKey, error) {
	pk, err := publicKeyFlag(ctx, nftAccountFlag.Name, false)
	if err != nil || !pk.IsZero() {
		return pk, err
	}
	return ledger.AssociatedTokenAddress(holder, nftMint), nil
}

func share(ctx *cli.Context, name string) (uint8, error) {
	v := ctx.Uint(name)
	if v > node.MaxShare {
		return 0, fmt.Errorf("--%s: %d exceeds %d", name, v, node.MaxShare)
	}
	return uint8(v), nil
}

var commandInit = &cli.Command{
	Name:  "init",
	Usage: "initialize the admin registry and reward pool; --key becomes admin",
	Flags: withSigned(rewardMintFlag),
	Action: func(ctx *cli.Context) error {
		mint, err := publicKeyFlag(ctx, rewardMintFlag.Name, true)
		if err != nil {
			return err
		}
		return run(ctx, instruction.ActionInitializeSystem, fixed(instruction.InitializePayload{RewardMint: mint}))
	},
}

var commandFund = &cli.Command{
	Name:  "fund",
	Usage: "move reward tokens into the reward pool",
	Flags: withSigned(amountFlag, fromFlag),
	Action: func(ctx *cli.Context) error {
		return run(ctx, instruction.ActionFundTokenStorage, func(e *env, caller identity.PublicKey) (interface{}, error) {
			from, err := rewardAccount(ctx, e, fromFlag.Name, caller)
			if err != nil {
				return nil, err
			}
			return instruction.FundPayload{From: from, Amount: ctx.Uint64(amountFlag.Name)}, nil
		})
	},
}

var commandPause = &cli.Command{
	Name:  "pause",
	Usage: "pause claims, deposits and withdrawals",
	Flags: signedFlags,
	Action: func(ctx *cli.Context) error {
		return run(ctx, instruction.ActionPauseProgram, fixed(nil))
	},
}

var commandUnpause = &cli.Command{
	Name:  "unpause",
	Usage: "resume a paused program",
	Flags: signedFlags,
	Action: func(ctx *cli.Context) error {
		return run(ctx, instruction.ActionUnpauseProgram, fixed(nil))
	},
}

var commandMintAuthority = &cli.Command{
	Name:  "mint-authority",
	Usage: "manage the mint authorities trusted for node NFTs and claim signatures",
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Flags: withSigned(authorityFlag),
			Action: func(ctx *cli.Context) error {
				return mintAuthority(ctx, instruction.ActionAddMintAuthority)
			},
		},
		{
			Name:  "remove",
			Flags: withSigned(authorityFlag),
			Action: func(ctx *cli.Context) error {
				return mintAuthority(ctx, instruction.ActionRemoveMintAuthority)
			},
		},
	},
}

func mintAuthority(ctx *cli.Context, action instruction.Action) error {
	auth, err := publicKeyFlag(ctx, authorityFlag.Name, true)
	if err != nil {
		return err
	}
	return run(ctx, action, fixed(instruction.MintAuthorityPayload{Authority: auth}))
}

var commandAdmin = &cli.Command{
	Name:  "admin",
	Usage: "two-step admin handover",
	Subcommands: []*cli.Command{
		{
			Name:  "request",
			Usage: "propose a new admin",
			Flags: withSigned(newAdminFlag),
			Action: func(ctx *cli.Context) error {
				candidate, err := publicKeyFlag(ctx, newAdminFlag.Name, true)
				if err != nil {
					return err
				}
				return run(ctx, instruction.ActionUpdateAdminRequest, fixed(instruction.AdminRequestPayload{NewAdmin: candidate}))
			},
		},
		{
			Name:  "accept",
			Usage: "accept a pending admin proposal; --key must be the candidate",
			Flags: signedFlags,
			Action: func(ctx *cli.Context) error {
				return run(ctx, instruction.ActionAcceptAdminRequest, fixed(nil))
			},
		},
	},
}

var commandRegisterNode = &cli.Command{
	Name:  "register-node",
	Usage: "register a node NFT; the owner signs with --key and the admin co-signs",
	Flags: withSigned(nftMintFlag, nftAccountFlag, ownerFlag, hostFlag, hostShareFlag,
		manufacturerFlag, manufacturerShareFlag, kindFlag),
	Action: func(ctx *cli.Context) error {
		return run(ctx, instruction.ActionRegisterNode, func(e *env, caller identity.PublicKey) (interface{}, error) {
			var (
				p   instruction.RegisterPayload
				err error
			)
			if p.NftMint, err = publicKeyFlag(ctx, nftMintFlag.Name, true); err != nil {
				return nil, err
			}
			if p.Owner, err = publicKeyFlag(ctx, ownerFlag.Name, false); err != nil {
				return nil, err
			}
			if p.Owner.IsZero() {
				p.Owner = caller
			}
			if p.Host, err = publicKeyFlag(ctx, hostFlag.Name, true); err != nil {
				return nil, err
			}
			if p.Manufacturer, err = publicKeyFlag(ctx, manufacturerFlag.Name, false); err != nil {
				return nil, err
			}
			if p.HostShare, err = share(ctx, hostShareFlag.Name); err != nil {
				return nil, err
			}
			if p.ManufacturerShare, err = share(ctx, manufacturerShareFlag.Name); err != nil {
				return nil, err
			}
			if p.Kind, err = node.ParseKind(ctx.String(kindFlag.Name)); err != nil {
				return nil, err
			}
			if p.NftAccount, err = nftAccount(ctx, p.NftMint, p.Owner); err != nil {
				return nil, err
			}
			return p, nil
		})
	},
}

var commandUpdateNode = &cli.Command{
	Name:  "update-node",
	Usage: "change the host and host share of a node; owner and admin sign",
	Flags: withSigned(nftMintFlag, nftAccountFlag, hostFlag, hostShareFlag),
	Action: func(ctx *cli.Context) error {
		return run(ctx, instruction.ActionUpdateNode, func(e *env, caller identity.PublicKey) (interface{}, error) {
			var (
				p   instruction.UpdatePayload
				err error
			)
			if p.NftMint, err = publicKeyFlag(ctx, nftMintFlag.Name, true); err != nil {
				return nil, err
			}
			if p.NewHost, err = publicKeyFlag(ctx, hostFlag.Name, true); err != nil {
				return nil, err
			}
			if p.NewHostShare, err = share(ctx, hostShareFlag.Name); err != nil {
				return nil, err
			}
			if p.NftAccount, err = nftAccount(ctx, p.NftMint, caller); err != nil {
				return nil, err
			}
			return p, nil
		})
	},
}

var commandDeposit = &cli.Command{
	Name:  "deposit",
	Usage: "lock the deposit of a BYOD node",
	Flags: withSigned(nftMintFlag, nftAccountFlag, fromFlag),
	Action: func(ctx *cli.Context) error {
		return run(ctx, instruction.ActionDepositTokens, func(e *env, caller identity.PublicKey) (interface{}, error) {
			var (
				p   instruction.DepositPayload
				err error
			)
			if p.NftMint, err = publicKeyFlag(ctx, nftMintFlag.Name, true); err != nil {
				return nil, err
			}
			if p.NftAccount, err = nftAccount(ctx, p.NftMint, caller); err != nil {
				return nil, err
			}
			if p.From, err = rewardAccount(ctx, e, fromFlag.Name, caller); err != nil {
				return nil, err
			}
			return p, nil
		})
	},
}

var commandWithdraw = &cli.Command{
	Name:  "withdraw",
	Usage: "return a node deposit after the lock period",
	Flags: withSigned(nftMintFlag, nftAccountFlag, toFlag),
	Action: func(ctx *cli.Context) error {
		return run(ctx, instruction.ActionWithdrawTokens, func(e *env, caller identity.PublicKey) (interface{}, error) {
			var (
				p   instruction.WithdrawPayload
				err error
			)
			if p.NftMint, err = publicKeyFlag(ctx, nftMintFlag.Name, true); err != nil {
				return nil, err
			}
			if p.NftAccount, err = nftAccount(ctx, p.NftMint, caller); err != nil {
				return nil, err
			}
			if p.To, err = rewardAccount(ctx, e, toFlag.Name, caller); err != nil {
				return nil, err
			}
			return p, nil
		})
	},
}

var commandClaim = &cli.Command{
	Name:  "claim",
	Usage: "claim rewards for a node as owner or host",
	Description: `
The claim is authorized either by --signer/--signature from "rewardsctl sign-claim"
or by the admin co-signing with --cosign.
`,
	Flags: withSigned(jsonFlag, nftMintFlag, nftAccountFlag, roleFlag, amountFlag, nonceFlag,
		ownerShareFlag, hostShareFlag, signerFlag, signatureFlag),
	Action: func(ctx *cli.Context) error {
		return run(ctx, instruction.ActionClaimRewards, func(e *env, caller identity.PublicKey) (interface{}, error) {
			p := instruction.ClaimPayload{
				Amount: ctx.Uint64(amountFlag.Name),
				Nonce:  ctx.Uint64(nonceFlag.Name),
			}
			var err error
			if p.NftMint, err = publicKeyFlag(ctx, nftMintFlag.Name, true); err != nil {
				return nil, err
			}
			if p.Role, err = node.ParseRole(ctx.String(roleFlag.Name)); err != nil {
				return nil, err
			}
			if p.Shares, err = sharesFlag(ctx); err != nil {
				return nil, err
			}
			if p.Signer, err = publicKeyFlag(ctx, signerFlag.Name, false); err != nil {
				return nil, err
			}
			if s := ctx.String(signatureFlag.Name); s != "" {
				if p.Signature, err = base58.Decode(s); err != nil {
					return nil, fmt.Errorf("--%s: %w", signatureFlag.Name, err)
				}
			}
			// The NFT proving ownership is always held by the node owner.
			holder := caller
			if p.Role == node.RoleHost {
				entry, err := e.prog.Node(p.NftMint)
				if err != nil {
					return nil, err
				}
				holder = entry.Owner
			}
			if p.NftAccount, err = nftAccount(ctx, p.NftMint, holder); err != nil {
				return nil, err
			}
			return p, nil
		})
	},
}

var commandSubmit = &cli.Command{
	Name:      "submit",
	Usage:     "execute a signed instruction file written with --out",
	ArgsUsage: "<envelope.json>",
	Flags:     []cli.Flag{retriesFlag, jsonFlag},
	Action: func(ctx *cli.Context) error {
		data, err := os.ReadFile(ctx.Args().First())
		if err != nil {
			return fmt.Errorf("failed to read envelope: %w", err)
		}
		envelope, err := instruction.DecodeEnvelope(data)
		if err != nil {
			return err
		}
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()
		return e.execute(ctx, envelope)
	},
}
