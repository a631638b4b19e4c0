package storage

import (
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/zkpool/zkpool/bridge"
	"github.com/zkpool/zkpool/pool"
	"github.com/zkpool/zkpool/types"
)

// Transaction status values.
const (
	TxStatusPending  = "pending"
	TxStatusApplied  = "applied"
	TxStatusRejected = "rejected"
)

// TxStatus records the outcome of a submitted transaction. Receipt is set
// only for applied transactions; Error carries the admission failure of
// rejected ones.
type TxStatus struct {
	Status  string         `json:"status"            cbor:"0,keyasint"`
	Error   string         `json:"error,omitempty"   cbor:"1,keyasint,omitempty"`
	Receipt *pool.Receipt  `json:"receipt,omitempty" cbor:"2,keyasint,omitempty"`
	TxHash  types.HexBytes `json:"txHash"            cbor:"3,keyasint"`
}

// txKey derives the queue key from a transaction hash.
func txKey(hash types.HexBytes) []byte {
	if len(hash) > maxKeySize {
		return hash[:maxKeySize]
	}
	return hash
}

// PushTransaction stores a new transaction into the pending queue and marks
// it pending. Returns the transaction hash used for status lookups.
func (s *Storage) PushTransaction(tx *pool.Transaction) (types.HexBytes, error) {
	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash transaction: %w", err)
	}
	key := txKey(hash)
	if err := s.setArtifact(txPrefix, key, tx); err != nil {
		return nil, err
	}
	if err := s.setArtifact(txStatusPrefix, key, &TxStatus{Status: TxStatusPending, TxHash: hash}); err != nil {
		return nil, err
	}
	return hash, nil
}

// NextTransaction returns the next non-reserved pending transaction, creates
// a reservation, and returns it with its queue key. If none are available,
// returns ErrNoMoreElements.
func (s *Storage) NextTransaction() (*pool.Transaction, []byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	chosenKey, chosenVal, err := s.nextQueued(txPrefix, txReservationPrefix)
	if err != nil {
		return nil, nil, err
	}
	tx := &pool.Transaction{}
	if err := decodeArtifact(chosenVal, tx); err != nil {
		return nil, nil, fmt.Errorf("decode transaction: %w", err)
	}
	if err := s.setReservation(txReservationPrefix, chosenKey); err != nil {
		return nil, nil, ErrNoMoreElements
	}
	return tx, chosenKey, nil
}

// MarkTransactionDone removes the transaction from the pending queue and
// records its final status. A nil submitErr means the transaction was
// applied with the given receipt.
func (s *Storage) MarkTransactionDone(key []byte, receipt *pool.Receipt, submitErr error) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if err := s.deleteArtifact(txReservationPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if err := s.deleteArtifact(txPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete pending transaction: %w", err)
	}
	status := &TxStatus{Status: TxStatusApplied, Receipt: receipt}
	if receipt != nil {
		status.TxHash = receipt.TxHash
	}
	if submitErr != nil {
		status = &TxStatus{Status: TxStatusRejected, Error: submitErr.Error()}
	}
	// keep the hash on rejections for symmetric lookups
	if status.TxHash == nil {
		prev := &TxStatus{}
		if err := s.getArtifact(txStatusPrefix, key, prev); err == nil {
			status.TxHash = prev.TxHash
		}
	}
	return s.setArtifact(txStatusPrefix, key, status)
}

// TransactionStatus retrieves the status of a transaction by its hash.
// Returns ErrNotFound for hashes never pushed.
func (s *Storage) TransactionStatus(hash types.HexBytes) (*TxStatus, error) {
	status := &TxStatus{}
	if err := s.getArtifact(txStatusPrefix, txKey(hash), status); err != nil {
		return nil, err
	}
	return status, nil
}

// CountPendingTransactions returns the number of queued transactions,
// reserved ones included.
func (s *Storage) CountPendingTransactions() (int, error) {
	return s.countQueued(txPrefix)
}

// PushDeposit stores a confirmed bridged deposit into the pending queue.
func (s *Storage) PushDeposit(dep *bridge.Deposit) ([]byte, error) {
	val, err := encodeArtifact(dep)
	if err != nil {
		return nil, fmt.Errorf("encode deposit: %w", err)
	}
	key := hashKey(val)
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), depositPrefix)
	if err := wTx.Set(key, val); err != nil {
		wTx.Discard()
		return nil, err
	}
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	return key, nil
}

// NextDeposit returns the next non-reserved deposit, creates a reservation,
// and returns it with its queue key. If none are available, returns
// ErrNoMoreElements.
func (s *Storage) NextDeposit() (*bridge.Deposit, []byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	chosenKey, chosenVal, err := s.nextQueued(depositPrefix, depReservationPrefix)
	if err != nil {
		return nil, nil, err
	}
	dep := &bridge.Deposit{}
	if err := decodeArtifact(chosenVal, dep); err != nil {
		return nil, nil, fmt.Errorf("decode deposit: %w", err)
	}
	if err := s.setReservation(depReservationPrefix, chosenKey); err != nil {
		return nil, nil, ErrNoMoreElements
	}
	return dep, chosenKey, nil
}

// MarkDepositDone removes a deposit from the pending queue.
func (s *Storage) MarkDepositDone(key []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if err := s.deleteArtifact(depReservationPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if err := s.deleteArtifact(depositPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete pending deposit: %w", err)
	}
	return nil
}
