package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/librewards-go/identity"
)

var bucketAccounts = []byte("accounts")

// BoltStore persists accounts in a bbolt database. bbolt serializes writers,
// so Update never reports ErrConflict.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketAccounts); err != nil {
			return fmt.Errorf("boltstore: create bucket %q: %w", bucketAccounts, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Path returns the database file path.
func (s *BoltStore) Path() string { return s.db.Path() }

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// View runs fn inside a read-only bbolt transaction.
func (s *BoltStore) View(fn func(r Reader) error) error {
	err := s.db.View(func(btx *bbolt.Tx) error {
		return fn(boltTx{b: btx.Bucket(bucketAccounts)})
	})
	return mapBoltErr(err)
}

// Update runs fn inside a read-write bbolt transaction; bbolt rolls back when fn errors.
func (s *BoltStore) Update(fn func(tx Tx) error) error {
	err := s.db.Update(func(btx *bbolt.Tx) error {
		return fn(boltTx{b: btx.Bucket(bucketAccounts)})
	})
	return mapBoltErr(err)
}

func mapBoltErr(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrStoreClosed
	}
	return err
}

type boltTx struct {
	b *bbolt.Bucket
}

// Get copies the value out; bbolt memory is only valid inside the transaction.
func (t boltTx) Get(addr identity.PublicKey) ([]byte, error) {
	v := t.b.Get(addr[:])
	if v == nil {
		return nil, ErrAccountNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t boltTx) Put(addr identity.PublicKey, data []byte) error {
	if err := t.b.Put(addr[:], data); err != nil {
		return fmt.Errorf("boltstore: put account: %w", err)
	}
	return nil
}
