// Package instruction is the signed boundary in front of the rewards program.
// An instruction is a JSON envelope {action, nonce, payload}; an Envelope adds
// an Ed25519 signature per signer over the instruction's signing bytes.
package instruction

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"

	"github.com/bitfsorg/librewards-go/authsig"
	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/rewards"
)

// Action names an operation of the rewards program.
type Action string

const (
	ActionInitializeSystem    Action = "initializeSystem"
	ActionUpdateAdminRequest  Action = "updateAdminRequest"
	ActionAcceptAdminRequest  Action = "acceptAdminRequest"
	ActionAddMintAuthority    Action = "addMintAuthority"
	ActionRemoveMintAuthority Action = "removeMintAuthority"
	ActionPauseProgram        Action = "pauseProgram"
	ActionUnpauseProgram      Action = "unpauseProgram"
	ActionFundTokenStorage    Action = "fundTokenStorage"
	ActionRegisterNode        Action = "registerNode"
	ActionUpdateNode          Action = "updateNode"
	ActionDepositTokens       Action = "depositTokens"
	ActionWithdrawTokens      Action = "withdrawTokens"
	ActionClaimRewards        Action = "claimRewards"
)

// InitializePayload is the payload of initializeSystem.
type InitializePayload struct {
	RewardMint identity.PublicKey `json:"rewardMint"`
}

// AdminRequestPayload is the payload of updateAdminRequest.
type AdminRequestPayload struct {
	NewAdmin identity.PublicKey `json:"newAdmin"`
}

// MintAuthorityPayload is the payload of addMintAuthority and removeMintAuthority.
type MintAuthorityPayload struct {
	Authority identity.PublicKey `json:"authority"`
}

// Payload types of the remaining actions.
type (
	FundPayload     = rewards.FundRequest
	RegisterPayload = rewards.RegisterRequest
	UpdatePayload   = rewards.UpdateRequest
	DepositPayload  = rewards.DepositRequest
	WithdrawPayload = rewards.WithdrawRequest
	ClaimPayload    = rewards.ClaimRequest
)

// Instruction is the unsigned envelope. Nonce makes otherwise identical
// instructions distinct; a signed instruction is applied at most once.
type Instruction struct {
	Action  Action          `json:"action"`
	Nonce   uint64          `json:"nonce"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds an instruction with a random nonce and payload marshaled to JSON.
// A nil payload is omitted.
func New(action Action, payload interface{}) (*Instruction, error) {
	nonce, err := randomNonce()
	if err != nil {
		return nil, err
	}
	ins := &Instruction{Action: action, Nonce: nonce}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		ins.Payload = raw
	}
	return ins, nil
}

// Decode parses an instruction.
func Decode(data []byte) (*Instruction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrInvalidInstruction)
	}
	var ins Instruction
	if err := json.Unmarshal(data, &ins); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}
	if ins.Action == "" {
		return nil, fmt.Errorf("%w: missing action field", ErrInvalidInstruction)
	}
	return &ins, nil
}

// Encode serializes the instruction to JSON.
func (ins *Instruction) Encode() ([]byte, error) {
	return json.Marshal(ins)
}

// DecodePayload unmarshals the payload into dst. An empty payload leaves dst unchanged.
func (ins *Instruction) DecodePayload(dst interface{}) error {
	if len(ins.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(ins.Payload, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, ins.Action, err)
	}
	return nil
}

func randomNonce() (uint64, error) {
	var b [8]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("instruction: nonce: %w", err)
		}
		if n := binary.BigEndian.Uint64(b[:]); n != 0 {
			return n, nil
		}
	}
}

var signingDomain = []byte("librewards/instruction")

// SigningBytes returns what each signer signs:
//
//	domain || len(action) u16 BE || action || nonce u64 BE || payload
//
// The payload bytes are signed as carried, so re-encoding must not alter them.
func (ins *Instruction) SigningBytes() []byte {
	buf := make([]byte, 0, len(signingDomain)+2+len(ins.Action)+8+len(ins.Payload))
	buf = append(buf, signingDomain...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(ins.Action)))
	buf = append(buf, ins.Action...)
	buf = binary.BigEndian.AppendUint64(buf, ins.Nonce)
	return append(buf, ins.Payload...)
}

// Digest identifies the instruction. The program keeps a receipt per applied
// digest.
func (ins *Instruction) Digest() identity.PublicKey {
	var d identity.PublicKey
	copy(d[:], bsvhash.Sha256(ins.SigningBytes()))
	return d
}

// Signature is one signer's approval of an instruction.
type Signature struct {
	Signer identity.PublicKey `json:"signer"`
	Sig    []byte             `json:"sig"`
}

// Envelope is a signed instruction. The first signature names the caller.
type Envelope struct {
	Instruction Instruction `json:"instruction"`
	Signatures  []Signature `json:"signatures"`
}

// Sign returns an envelope for ins signed by every keypair, in order.
func Sign(ins *Instruction, signers ...*identity.Keypair) *Envelope {
	msg := ins.SigningBytes()
	env := &Envelope{Instruction: *ins}
	for _, kp := range signers {
		env.Signatures = append(env.Signatures, Signature{Signer: kp.Public, Sig: kp.Sign(msg)})
	}
	return env
}

// Verify checks every signature and returns the call they authorize. The
// call carries the instruction digest.
func (env *Envelope) Verify() (rewards.Call, error) {
	if len(env.Signatures) == 0 {
		return rewards.Call{}, ErrMissingSignature
	}
	if env.Instruction.Nonce == 0 {
		return rewards.Call{}, ErrMissingNonce
	}
	msg := env.Instruction.SigningBytes()
	signers := make([]identity.PublicKey, 0, len(env.Signatures))
	seen := make(map[identity.PublicKey]struct{}, len(env.Signatures))
	for _, s := range env.Signatures {
		if _, dup := seen[s.Signer]; dup {
			return rewards.Call{}, fmt.Errorf("%w: %s", ErrDuplicateSigner, s.Signer)
		}
		seen[s.Signer] = struct{}{}
		if !authsig.Verify(msg, s.Sig, s.Signer) {
			return rewards.Call{}, fmt.Errorf("%w: %s", ErrBadSignature, s.Signer)
		}
		signers = append(signers, s.Signer)
	}
	return rewards.Call{Caller: signers[0], Signers: signers, Digest: env.Instruction.Digest()}, nil
}

// DecodeEnvelope parses a JSON envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}
	if env.Instruction.Action == "" {
		return nil, fmt.Errorf("%w: missing action field", ErrInvalidInstruction)
	}
	return &env, nil
}
