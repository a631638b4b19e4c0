package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/zkpool/zkpool/pool"
	"github.com/zkpool/zkpool/types"
)

// leafKey encodes a leaf index big-endian so iteration returns leaves in
// insertion order.
func leafKey(index uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, index)
	return key
}

// ApplyTx implements pool.Persister. The whole receipt lands in a single
// write transaction: leaves, nullifiers and the custody balance are durable
// together or not at all.
func (s *Storage) ApplyTx(tx *pool.Transaction, receipt *pool.Receipt) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()

	leaves := prefixeddb.NewPrefixedWriteTx(wTx, leafPrefix)
	for i, index := range receipt.LeafIndices {
		if i >= len(tx.OutputCommitments) {
			return fmt.Errorf("receipt has %d leaf indices for %d commitments",
				len(receipt.LeafIndices), len(tx.OutputCommitments))
		}
		if err := leaves.Set(leafKey(index), tx.OutputCommitments[i].Bytes()); err != nil {
			return err
		}
	}
	nullifiers := prefixeddb.NewPrefixedWriteTx(wTx, nullifierPrefix)
	for _, n := range tx.InputNullifiers {
		if err := nullifiers.Set(n.Bytes(), []byte{1}); err != nil {
			return err
		}
	}
	custody := prefixeddb.NewPrefixedWriteTx(wTx, custodyPrefix)
	if err := custody.Set(custodyKey, receipt.Custody.Bytes()); err != nil {
		return err
	}
	return wTx.Commit()
}

// LoadState implements pool.Persister. It returns nil when the store holds
// no pool state yet.
func (s *Storage) LoadState() (*pool.Snapshot, error) {
	snap := &pool.Snapshot{}

	rd := prefixeddb.NewPrefixedReader(s.db, leafPrefix)
	var iterErr error
	if err := rd.Iterate(nil, func(k, v []byte) bool {
		if len(k) != 4 {
			iterErr = fmt.Errorf("corrupt leaf key of length %d", len(k))
			return false
		}
		leaf := &types.BigInt{}
		leaf.SetBytes(v)
		snap.Leaves = append(snap.Leaves, leaf)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate leaves: %w", err)
	}
	if iterErr != nil {
		return nil, iterErr
	}

	rd = prefixeddb.NewPrefixedReader(s.db, nullifierPrefix)
	if err := rd.Iterate(nil, func(k, _ []byte) bool {
		n := &types.BigInt{}
		n.SetBytes(k)
		snap.Nullifiers = append(snap.Nullifiers, n)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate nullifiers: %w", err)
	}

	rd = prefixeddb.NewPrefixedReader(s.db, custodyPrefix)
	data, err := rd.Get(custodyKey)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		if len(snap.Leaves) == 0 {
			return nil, nil // fresh store
		}
	case err != nil:
		return nil, fmt.Errorf("read custody: %w", err)
	default:
		snap.Custody = (*types.BigInt)(new(big.Int).SetBytes(data))
	}
	return snap, nil
}
