// Package ledger is the environment the rewards program runs against: an
// atomic keyed account store, fungible and non-fungible token accounts, and a
// clock. Every rewards call executes inside one Store.Update so its reads and
// writes commit together or not at all.
package ledger

import (
	"fmt"
	"sync"

	"github.com/bitfsorg/librewards-go/identity"
)

// Reader reads raw account data.
type Reader interface {
	// Get returns the bytes stored at addr, or ErrAccountNotFound.
	Get(addr identity.PublicKey) ([]byte, error)
}

// Tx is a read-write view valid for the duration of one Update callback.
type Tx interface {
	Reader

	// Put replaces the bytes stored at addr.
	Put(addr identity.PublicKey, data []byte) error
}

// Store persists accounts and runs calls atomically.
type Store interface {
	// View runs fn against a read-only view.
	View(fn func(r Reader) error) error

	// Update runs fn and commits its writes only if fn returns nil.
	Update(fn func(tx Tx) error) error

	// Close releases resources held by the store.
	Close() error
}

// memAccount is a stored value and its commit counter.
type memAccount struct {
	data    []byte
	version uint64
}

// MemStore is an in-memory Store with optimistic concurrency: Update callbacks
// run without holding the store lock and are validated at commit. A call that
// touched an account another call committed in the meantime fails with
// ErrConflict and leaves no trace.
type MemStore struct {
	mu       sync.RWMutex
	accounts map[identity.PublicKey]*memAccount
	closed   bool
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{accounts: make(map[identity.PublicKey]*memAccount)}
}

// View runs fn under a shared lock.
func (s *MemStore) View(fn func(r Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return fn(memReader{s: s})
}

// Update runs fn against a buffered transaction and commits on success.
func (s *MemStore) Update(fn func(tx Tx) error) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}

	tx := &memTx{
		s:      s,
		seen:   make(map[identity.PublicKey]uint64),
		writes: make(map[identity.PublicKey][]byte),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// Close marks the store closed; later calls fail with ErrStoreClosed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored accounts.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// Snapshot returns a copy of every stored account.
func (s *MemStore) Snapshot() map[identity.PublicKey][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[identity.PublicKey][]byte, len(s.accounts))
	for addr := range s.accounts {
		out[addr], _, _ = s.get(addr)
	}
	return out
}

// get must be called with s.mu held.
func (s *MemStore) get(addr identity.PublicKey) ([]byte, uint64, bool) {
	acc, ok := s.accounts[addr]
	if !ok {
		return nil, 0, false
	}
	out := make([]byte, len(acc.data))
	copy(out, acc.data)
	return out, acc.version, true
}

type memReader struct{ s *MemStore }

func (r memReader) Get(addr identity.PublicKey) ([]byte, error) {
	data, _, ok := r.s.get(addr)
	if !ok {
		return nil, ErrAccountNotFound
	}
	return data, nil
}

// memTx buffers writes and remembers the version of every account it touched.
type memTx struct {
	s      *MemStore
	seen   map[identity.PublicKey]uint64
	writes map[identity.PublicKey][]byte
}

func (tx *memTx) Get(addr identity.PublicKey) ([]byte, error) {
	if data, ok := tx.writes[addr]; ok {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	tx.s.mu.RLock()
	data, version, ok := tx.s.get(addr)
	tx.s.mu.RUnlock()

	if _, tracked := tx.seen[addr]; !tracked {
		tx.seen[addr] = version
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	return data, nil
}

func (tx *memTx) Put(addr identity.PublicKey, data []byte) error {
	if _, tracked := tx.seen[addr]; !tracked {
		tx.s.mu.RLock()
		_, version, _ := tx.s.get(addr)
		tx.s.mu.RUnlock()
		tx.seen[addr] = version
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	tx.writes[addr] = buf
	return nil
}

func (tx *memTx) commit() error {
	if len(tx.writes) == 0 {
		return nil
	}

	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	if tx.s.closed {
		return ErrStoreClosed
	}
	for addr, version := range tx.seen {
		var current uint64
		if acc, ok := tx.s.accounts[addr]; ok {
			current = acc.version
		}
		if current != version {
			return fmt.Errorf("%w: account %s", ErrConflict, addr)
		}
	}
	for addr, data := range tx.writes {
		acc, ok := tx.s.accounts[addr]
		if !ok {
			acc = &memAccount{}
			tx.s.accounts[addr] = acc
		}
		acc.data = data
		acc.version++
	}
	return nil
}
