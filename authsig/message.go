// Package authsig builds the fixed-width claim authorization message and
// verifies Ed25519 signatures over it.
package authsig

import (
	"encoding/binary"
	"fmt"

	"github.com/bitfsorg/librewards-go/identity"
)

// Message sizes. The layout is a durable wire contract shared with off-ledger signers:
//
//	subject[32] || amount u64 LE || nonce u64 LE                          (48 bytes)
//	subject[32] || amount u64 LE || ownerShare u8 || hostShare u8 || nonce u64 LE (50 bytes)
const (
	MessageSize       = identity.KeySize + 8 + 8
	SharedMessageSize = MessageSize + 2
)

// Shares carries explicit owner and host percentages.
type Shares struct {
	Owner uint8 `json:"owner"`
	Host  uint8 `json:"host"`
}

// Validate checks that the shares do not exceed 100 percent together.
func (s Shares) Validate() error {
	if uint16(s.Owner)+uint16(s.Host) > 100 {
		return fmt.Errorf("%w: owner %d + host %d", ErrInvalidShares, s.Owner, s.Host)
	}
	return nil
}

// ClaimMessage authorizes Subject to claim Amount under Nonce.
// Shares is nil for the plain variant.
type ClaimMessage struct {
	Subject identity.PublicKey
	Amount  uint64
	Shares  *Shares
	Nonce   uint64
}

// Encode returns the byte layout that signers sign.
func (m *ClaimMessage) Encode() []byte {
	size := MessageSize
	if m.Shares != nil {
		size = SharedMessageSize
	}
	buf := make([]byte, 0, size)
	buf = append(buf, m.Subject[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, m.Amount)
	if m.Shares != nil {
		buf = append(buf, m.Shares.Owner, m.Shares.Host)
	}
	return binary.LittleEndian.AppendUint64(buf, m.Nonce)
}

// DecodeClaimMessage parses either message variant.
func DecodeClaimMessage(data []byte) (*ClaimMessage, error) {
	if len(data) != MessageSize && len(data) != SharedMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMessage, len(data))
	}
	m := &ClaimMessage{}
	copy(m.Subject[:], data[:identity.KeySize])
	off := identity.KeySize
	m.Amount = binary.LittleEndian.Uint64(data[off:])
	off += 8
	if len(data) == SharedMessageSize {
		m.Shares = &Shares{Owner: data[off], Host: data[off+1]}
		off += 2
	}
	m.Nonce = binary.LittleEndian.Uint64(data[off:])
	return m, nil
}

// Sign encodes m and signs it with kp.
func Sign(kp *identity.Keypair, m *ClaimMessage) []byte {
	return kp.Sign(m.Encode())
}
