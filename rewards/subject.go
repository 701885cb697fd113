package rewards

import (
	"errors"
	"fmt"

	"github.com/bitfsorg/librewards-go/identity"
	"github.com/bitfsorg/librewards-go/ledger"
	"github.com/bitfsorg/librewards-go/replay"
)

// SubjectAddress is where the signed-claim history of subject is kept. A
// claim signature names the subject, not a node, so its nonce is tracked per
// subject across every node and role the subject claims for.
func SubjectAddress(subject identity.PublicKey) identity.PublicKey {
	return identity.MustDerive("reward_entry", subject)
}

const subjectRecordSize = identity.KeySize + 8 + 8 + 8 + 8

func encodeSubjectRecord(subject identity.PublicKey, rec replay.Record) []byte {
	w := ledger.NewWriter(ledger.TypeRewardEntry, subjectRecordSize)
	w.Key(subject)
	w.U64(rec.LastNonce)
	w.I64(rec.LastClaimAt)
	w.U64(rec.TotalClaimed)
	w.U64(rec.Count)
	return w.Bytes()
}

func decodeSubjectRecord(data []byte, subject identity.PublicKey) (replay.Record, error) {
	d := ledger.NewDecoder(data, ledger.TypeRewardEntry)
	owner := d.Key()
	rec := replay.Record{
		LastNonce:    d.U64(),
		LastClaimAt:  d.I64(),
		TotalClaimed: d.U64(),
		Count:        d.U64(),
	}
	if err := d.Finish(); err != nil {
		return replay.Record{}, err
	}
	if owner != subject {
		return replay.Record{}, fmt.Errorf("%w: record of %s stored for %s", ledger.ErrInvalidAccountData, owner, subject)
	}
	return rec, nil
}

// loadSubjectRecord returns the signed-claim record of subject, or a fresh
// record if subject never claimed with a signature.
func loadSubjectRecord(r ledger.Reader, subject identity.PublicKey) (replay.Record, error) {
	data, err := r.Get(SubjectAddress(subject))
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return replay.Record{}, nil
	}
	if err != nil {
		return replay.Record{}, err
	}
	return decodeSubjectRecord(data, subject)
}

func storeSubjectRecord(tx ledger.Tx, subject identity.PublicKey, rec replay.Record) error {
	return tx.Put(SubjectAddress(subject), encodeSubjectRecord(subject, rec))
}
