package pool

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestKeypairDerivation(t *testing.T) {
	c := qt.New(t)

	kp, err := NewKeypair(big.NewInt(123456789))
	c.Assert(err, qt.IsNil)
	again, err := NewKeypair(big.NewInt(123456789))
	c.Assert(err, qt.IsNil)
	c.Assert(kp.PublicKey().Cmp(again.PublicKey()), qt.Equals, 0)
	c.Assert(kp.CanSign(), qt.IsTrue)

	_, err = NewKeypair(big.NewInt(0))
	c.Assert(err, qt.IsNotNil)

	other, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)
	c.Assert(kp.PublicKey().Cmp(other.PublicKey()), qt.Not(qt.Equals), 0)
}

func TestWatchOnlyKeypairCannotSign(t *testing.T) {
	c := qt.New(t)
	kp, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)

	watch, err := FromPublicKey(kp.PublicKey())
	c.Assert(err, qt.IsNil)
	c.Assert(watch.CanSign(), qt.IsFalse)
	c.Assert(watch.PrivateKey(), qt.IsNil)
	c.Assert(watch.PublicKey().Cmp(kp.PublicKey()), qt.Equals, 0)

	_, err = watch.Sign(big.NewInt(1), 0)
	c.Assert(err, qt.ErrorIs, ErrUnspendableNote)
}

func TestNoteCommitmentIsPureFunction(t *testing.T) {
	c := qt.New(t)
	kp, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)

	note, err := NewNote(big.NewInt(42), kp)
	c.Assert(err, qt.IsNil)
	c1, err := note.Commitment()
	c.Assert(err, qt.IsNil)
	c2, err := note.Commitment()
	c.Assert(err, qt.IsNil)
	c.Assert(c1.Cmp(c2), qt.Equals, 0)

	// same contents, different blinding: different commitment
	note2, err := NewNote(big.NewInt(42), kp)
	c.Assert(err, qt.IsNil)
	c3, err := note2.Commitment()
	c.Assert(err, qt.IsNil)
	c.Assert(c1.Cmp(c3), qt.Not(qt.Equals), 0)

	_, err = NewNote(big.NewInt(-1), kp)
	c.Assert(err, qt.IsNotNil)
}

func TestNullifierNeedsLeafIndex(t *testing.T) {
	c := qt.New(t)
	kp, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)
	note, err := NewNote(big.NewInt(10), kp)
	c.Assert(err, qt.IsNil)

	_, err = note.Nullifier()
	c.Assert(err, qt.ErrorIs, ErrIncompleteNote)
	_, err = note.LeafIndex()
	c.Assert(err, qt.ErrorIs, ErrIncompleteNote)

	note.SetLeafIndex(7)
	n1, err := note.Nullifier()
	c.Assert(err, qt.IsNil)
	n2, err := note.Nullifier()
	c.Assert(err, qt.IsNil)
	c.Assert(n1.Cmp(n2), qt.Equals, 0)

	// the nullifier binds the position: a different index yields a
	// different nullifier for the very same note
	note.SetLeafIndex(8)
	n3, err := note.Nullifier()
	c.Assert(err, qt.IsNil)
	c.Assert(n1.Cmp(n3), qt.Not(qt.Equals), 0)
}
