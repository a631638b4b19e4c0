package pool

import (
	"fmt"
	"math/big"

	"github.com/zkpool/zkpool/crypto"
	"github.com/zkpool/zkpool/crypto/hash/poseidon"
	"github.com/zkpool/zkpool/util"
)

// Note is a value-bearing UTXO of the shielded pool. Its commitment hides
// the amount and owner; once the commitment is accumulated and the leaf
// index assigned, the note can produce the nullifier that spends it.
type Note struct {
	Amount   *big.Int
	Keypair  *Keypair
	Blinding *big.Int

	leafIndex *uint32
}

// NewNote creates a note for the given amount and owner, with fresh blinding
// randomness from a cryptographically secure source.
func NewNote(amount *big.Int, owner *Keypair) (*Note, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("note amount must be non-negative")
	}
	if owner == nil {
		return nil, fmt.Errorf("note owner cannot be nil")
	}
	return &Note{
		Amount:   new(big.Int).Set(amount),
		Keypair:  owner,
		Blinding: util.RandomFieldElement(crypto.FieldModulus()),
	}, nil
}

// NewZeroNote creates a zero-value placeholder note owned by a throwaway
// keypair. The circuits require exactly two outputs, so builders pad with
// these when a transaction has a single real output.
func NewZeroNote() (*Note, error) {
	kp, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}
	return NewNote(big.NewInt(0), kp)
}

// Commitment returns the hiding, binding hash of the note contents. It is a
// pure function of (amount, owner public key, blinding).
func (n *Note) Commitment() (*big.Int, error) {
	return poseidon.Hash(n.Amount, n.Keypair.PublicKey(), n.Blinding)
}

// SetLeafIndex records the position the commitment was accumulated at.
func (n *Note) SetLeafIndex(index uint32) {
	n.leafIndex = &index
}

// LeafIndex returns the accumulated position of the note commitment, or
// ErrIncompleteNote if it has not been inserted yet.
func (n *Note) LeafIndex() (uint32, error) {
	if n.leafIndex == nil {
		return 0, ErrIncompleteNote
	}
	return *n.leafIndex, nil
}

// Nullifier binds the note to its accumulated position. It cannot be
// computed, and therefore the note cannot be spent, before the commitment is
// inserted into the accumulator.
func (n *Note) Nullifier() (*big.Int, error) {
	if n.leafIndex == nil {
		return nil, ErrIncompleteNote
	}
	commitment, err := n.Commitment()
	if err != nil {
		return nil, err
	}
	signature, err := n.Keypair.Sign(commitment, *n.leafIndex)
	if err != nil {
		return nil, err
	}
	return poseidon.Hash(commitment, new(big.Int).SetUint64(uint64(*n.leafIndex)), signature)
}
