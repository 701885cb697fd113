package rewards

import (
	"errors"
	"fmt"

	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
)

// ReceiptAddress is where the receipt of the instruction with digest is kept.
func ReceiptAddress(digest identity.PublicKey) identity.PublicKey {
	return identity.MustDerive("instruction_receipt", digest)
}

// Receipt records that a signed instruction took effect.
type Receipt struct {
	Digest    identity.PublicKey
	Caller    identity.PublicKey
	AppliedAt int64
}

func encodeReceipt(r *Receipt) []byte {
	w := ledger.NewWriter(ledger.TypeReceipt, 2*identity.KeySize+8)
	w.Key(r.Digest)
	w.Key(r.Caller)
	w.I64(r.AppliedAt)
	return w.Bytes()
}

func decodeReceipt(data []byte) (*Receipt, error) {
	d := ledger.NewDecoder(data, ledger.TypeReceipt)
	r := &Receipt{Digest: d.Key(), Caller: d.Key(), AppliedAt: d.I64()}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return r, nil
}

// consumeReceipt rejects a call whose instruction already took effect and
// otherwise writes its receipt. Calls without a digest pass through. The
// receipt is rolled back with the rest of the transaction if the operation
// fails, so only applied instructions are marked.
func consumeReceipt(tx ledger.Tx, call Call, now int64) error {
	if call.Digest.IsZero() {
		return nil
	}
	addr := ReceiptAddress(call.Digest)
	data, err := tx.Get(addr)
	switch {
	case err == nil:
		prev, err := decodeReceipt(data)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s applied at %d", ErrInstructionReplayed, call.Digest, prev.AppliedAt)
	case !errors.Is(err, ledger.ErrAccountNotFound):
		return err
	}
	return tx.Put(addr, encodeReceipt(&Receipt{Digest: call.Digest, Caller: call.Caller, AppliedAt: now}))
}
