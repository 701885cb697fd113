package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/librewards-go/authsig"
	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/keystore"
)

var (
	mnemonicGenerateFlag = &cli.BoolFlag{
		Name:  "mnemonic-generate",
		Usage: "generate a BIP39 mnemonic and derive the key from it",
	}
	mnemonicFlag = &cli.StringFlag{
		Name:  "mnemonic",
		Usage: "use an existing BIP39 mnemonic to derive the key",
	}
	mnemonicPassphraseFlag = &cli.StringFlag{
		Name:  "mnemonic-passphrase",
		Usage: "optional BIP39 passphrase for mnemonic-to-seed",
	}
	mnemonicBitsFlag = &cli.IntFlag{
		Name:  "mnemonic-bits",
		Usage: "entropy bits for a generated mnemonic (128 or 256)",
		Value: keystore.Mnemonic24Words,
	}
	indexFlag = &cli.UintFlag{
		Name:  "index",
		Usage: "key index derived from the mnemonic",
	}
	lightKDFFlag = &cli.BoolFlag{
		Name:  "lightkdf",
		Usage: "use less secure argon2id parameters",
	}

	subjectFlag = &cli.StringFlag{
		Name:  "subject",
		Usage: "public key of the claimant the signature is bound to",
	}
	amountFlag = &cli.Uint64Flag{
		Name:  "amount",
		Usage: "amount in base units",
	}
	nonceFlag = &cli.Uint64Flag{
		Name:  "nonce",
		Usage: "claim nonce",
	}
	ownerShareFlag = &cli.UintFlag{
		Name:  "owner-share",
		Usage: "explicit owner percentage bound into the claim",
	}
	hostShareFlag = &cli.UintFlag{
		Name:  "host-share",
		Usage: "host percentage",
	}
	signerFlag = &cli.StringFlag{
		Name:  "signer",
		Usage: "public key of the claim authorizer",
	}
	signatureFlag = &cli.StringFlag{
		Name:  "signature",
		Usage: "base58 claim signature",
	}
)

type outputKeygen struct {
	Name      string `json:"name"`
	PublicKey string `json:"publicKey"`
	Path      string `json:"path"`
	Mnemonic  string `json:"mnemonic,omitempty"`
}

var commandKeygen = &cli.Command{
	Name:      "keygen",
	Usage:     "generate an encrypted signing key",
	ArgsUsage: "<name>",
	Description: `
Generate a new Ed25519 key and store it encrypted under <datadir>/keys/<name>.key.

With --mnemonic-generate or --mnemonic the key is derived from a BIP39 mnemonic
and --index, so it can be recreated from the phrase.
`,
	Flags: []cli.Flag{
		jsonFlag,
		mnemonicGenerateFlag,
		mnemonicFlag,
		mnemonicPassphraseFlag,
		mnemonicBitsFlag,
		indexFlag,
		lightKDFFlag,
	},
	Action: func(ctx *cli.Context) error {
		name := ctx.Args().First()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		path, err := keystore.KeyPath(cfg.DataDir, name)
		if err != nil {
			return err
		}
		pw, err := password(ctx)
		if err != nil {
			return err
		}

		var (
			kp       *identity.Keypair
			mnemonic = strings.TrimSpace(ctx.String(mnemonicFlag.Name))
			out      = outputKeygen{Name: name, Path: path}
		)
		switch {
		case mnemonic != "" && ctx.Bool(mnemonicGenerateFlag.Name):
			return errors.New("can't use --mnemonic with --mnemonic-generate")
		case ctx.Bool(mnemonicGenerateFlag.Name):
			if mnemonic, err = keystore.GenerateMnemonic(ctx.Int(mnemonicBitsFlag.Name)); err != nil {
				return err
			}
			out.Mnemonic = mnemonic
		}
		if mnemonic != "" {
			kp, err = keystore.KeypairFromMnemonic(mnemonic, ctx.String(mnemonicPassphraseFlag.Name), uint32(ctx.Uint(indexFlag.Name)))
		} else {
			kp, err = identity.NewKeypair()
		}
		if err != nil {
			return err
		}

		params := keystore.DefaultParams()
		if ctx.Bool(lightKDFFlag.Name) {
			params = keystore.LightParams()
		}
		if err := keystore.Save(path, kp, pw, params); err != nil {
			return err
		}
		out.PublicKey = kp.Public.String()

		return printResult(ctx, out, func() {
			fmt.Fprintf(ctx.App.Writer, "Public key: %s\n", out.PublicKey)
			fmt.Fprintf(ctx.App.Writer, "Key file:   %s\n", out.Path)
			if out.Mnemonic != "" {
				fmt.Fprintf(ctx.App.Writer, "Mnemonic:   %s\n", out.Mnemonic)
				fmt.Fprintln(ctx.App.Writer, "Write the mnemonic down; it is not stored.")
			}
		})
	},
}

// claimMessage builds the claim message from the subject, amount, nonce and
// optional share flags.
func claimMessage(ctx *cli.Context) (*authsig.ClaimMessage, error) {
	subject, err := publicKeyFlag(ctx, subjectFlag.Name, true)
	if err != nil {
		return nil, err
	}
	m := &authsig.ClaimMessage{
		Subject: subject,
		Amount:  ctx.Uint64(amountFlag.Name),
		Nonce:   ctx.Uint64(nonceFlag.Name),
	}
	shares, err := sharesFlag(ctx)
	if err != nil {
		return nil, err
	}
	m.Shares = shares
	return m, nil
}

// sharesFlag returns explicit shares when --owner-share is set.
func sharesFlag(ctx *cli.Context) (*authsig.Shares, error) {
	if !ctx.IsSet(ownerShareFlag.Name) {
		return nil, nil
	}
	owner, host := ctx.Uint(ownerShareFlag.Name), ctx.Uint(hostShareFlag.Name)
	if owner > 255 || host > 255 {
		return nil, authsig.ErrInvalidShares
	}
	s := &authsig.Shares{Owner: uint8(owner), Host: uint8(host)}
	return s, s.Validate()
}

type outputSignClaim struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

var commandSignClaim = &cli.Command{
	Name:  "sign-claim",
	Usage: "sign a claim authorization for a claimant",
	Description: `
Sign the claim message (subject, amount, optional shares, nonce) with --key.
The claimant passes the signature and signer to "rewardsctl claim".
`,
	Flags: []cli.Flag{
		keyFlag,
		jsonFlag,
		subjectFlag,
		amountFlag,
		nonceFlag,
		ownerShareFlag,
		hostShareFlag,
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		m, err := claimMessage(ctx)
		if err != nil {
			return err
		}
		kp, err := loadKey(ctx, cfg, ctx.String(keyFlag.Name))
		if err != nil {
			return err
		}
		out := outputSignClaim{
			Signer:    kp.Public.String(),
			Signature: base58.Encode(authsig.Sign(kp, m)),
		}
		return printResult(ctx, out, func() {
			fmt.Fprintf(ctx.App.Writer, "Signer:    %s\n", out.Signer)
			fmt.Fprintf(ctx.App.Writer, "Signature: %s\n", out.Signature)
		})
	},
}

var commandVerifyClaim = &cli.Command{
	Name:  "verify-claim",
	Usage: "verify a claim authorization signature",
	Flags: []cli.Flag{
		subjectFlag,
		amountFlag,
		nonceFlag,
		ownerShareFlag,
		hostShareFlag,
		signerFlag,
		signatureFlag,
	},
	Action: func(ctx *cli.Context) error {
		m, err := claimMessage(ctx)
		if err != nil {
			return err
		}
		signer, err := publicKeyFlag(ctx, signerFlag.Name, true)
		if err != nil {
			return err
		}
		sig, err := base58.Decode(ctx.String(signatureFlag.Name))
		if err != nil {
			return fmt.Errorf("--signature: %w", err)
		}
		if !authsig.Verify(m.Encode(), sig, signer) {
			return errors.New("signature verification failed")
		}
		fmt.Fprintln(ctx.App.Writer, "Signature verification successful!")
		return nil
	},
}
