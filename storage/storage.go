// Package storage persists the pool state and queues submitted work for the
// sequencer. It is a prefixed key-value store; the following prefixes are
// used:
//   - 'l/' for accumulated commitment leaves, keyed by leaf index
//   - 'n/' for spent nullifiers
//   - 'c/' for the custody balance
//   - 'tx/' for pending transactions (queued)
//   - 'txs/' for transaction statuses and receipts
//   - 'd/' for pending bridged deposits (queued)
//
// Queue prefixes keep a parallel reservation prefix so multiple workers can
// pull work without handing the same element out twice.
package storage

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	leafPrefix           = []byte("l/")
	nullifierPrefix      = []byte("n/")
	custodyPrefix        = []byte("c/")
	txPrefix             = []byte("tx/")
	txReservationPrefix  = []byte("txk/")
	txStatusPrefix       = []byte("txs/")
	depositPrefix        = []byte("d/")
	depReservationPrefix = []byte("dk/")
)

var custodyKey = []byte("custody")

const (
	// maxKeySize is the size queue keys are truncated to: the first bytes
	// of the sha256 hash of the artifact itself.
	maxKeySize = 12
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrNoMoreElements is returned by queue getters when every element is
	// either consumed or reserved.
	ErrNoMoreElements = errors.New("storage: no more elements")
)

// Storage wraps the key-value store under the pool node.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance over the given database.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	s.db.Close()
}

func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

func hashKey(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:maxKeySize]
}

func (s *Storage) setArtifact(prefix, key []byte, a any) error {
	data, err := encodeArtifact(a)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rd.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return wTx.Commit()
}

func (s *Storage) setReservation(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, nil); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

func (s *Storage) isReserved(prefix, key []byte) bool {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	_, err := rd.Get(key)
	return err == nil
}

// nextQueued returns the first non-reserved element under the queue prefix.
// Callers hold the global lock.
func (s *Storage) nextQueued(prefix, reservationPrefix []byte) ([]byte, []byte, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	var chosenKey, chosenVal []byte
	if err := rd.Iterate(nil, func(k, v []byte) bool {
		if s.isReserved(reservationPrefix, k) {
			return true
		}
		chosenKey = append([]byte{}, k...)
		chosenVal = append([]byte{}, v...)
		return false
	}); err != nil {
		return nil, nil, fmt.Errorf("iterate queue: %w", err)
	}
	if chosenVal == nil {
		return nil, nil, ErrNoMoreElements
	}
	return chosenKey, chosenVal, nil
}

func (s *Storage) countQueued(prefix []byte) (int, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	count := 0
	if err := rd.Iterate(nil, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		return 0, fmt.Errorf("iterate queue: %w", err)
	}
	return count, nil
}
