package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/babyjub"

	"github.com/zkpool/zkpool/circuits"
	"github.com/zkpool/zkpool/crypto/hash/poseidon"
	"github.com/zkpool/zkpool/crypto/noteenc"
)

func TestBuilderPadsToCircuitArity(t *testing.T) {
	c := qt.New(t)
	p, b := newTestPool(c, Config{})
	owner, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)

	// a single-output deposit is padded to 2 inputs / 2 outputs
	note, err := NewNote(big.NewInt(100), owner)
	c.Assert(err, qt.IsNil)
	tx, err := b.Build(&BuildParams{Outputs: []*Note{note}})
	c.Assert(err, qt.IsNil)
	c.Assert(tx.Variant, qt.Equals, circuits.VariantTx2)
	c.Assert(tx.InputNullifiers, qt.HasLen, 2)
	c.Assert(tx.OutputCommitments, qt.HasLen, 2)
	// padding nullifiers are unique per transaction
	c.Assert(tx.InputNullifiers[0].Equal(tx.InputNullifiers[1]), qt.IsFalse)
	c.Assert(p.VerifyProof(tx), qt.IsNil)
}

func TestBuilderSelectsLargeVariant(t *testing.T) {
	c := qt.New(t)
	p, b := newTestPool(c, Config{})
	owner, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)

	notes := make([]*Note, 3)
	for i := range notes {
		notes[i] = deposit(c, p, b, owner, 10)
	}
	out, err := NewNote(big.NewInt(30), owner)
	c.Assert(err, qt.IsNil)
	tx, err := b.Build(&BuildParams{Inputs: notes, Outputs: []*Note{out}})
	c.Assert(err, qt.IsNil)
	c.Assert(tx.Variant, qt.Equals, circuits.VariantTx16)
	c.Assert(tx.InputNullifiers, qt.HasLen, 16)
	c.Assert(tx.Amount().Sign(), qt.Equals, 0)
	_, err = p.Submit(tx)
	c.Assert(err, qt.IsNil)

	// more than 16 inputs has no circuit
	many := make([]*Note, 17)
	for i := range many {
		many[i] = notes[0]
	}
	_, err = b.Build(&BuildParams{Inputs: many, Outputs: []*Note{out}})
	c.Assert(err, qt.IsNotNil)
}

func TestBuilderRejectsUnspendableInputs(t *testing.T) {
	c := qt.New(t)
	_, b := newTestPool(c, Config{})
	owner, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)
	watch, err := FromPublicKey(owner.PublicKey())
	c.Assert(err, qt.IsNil)

	// a received note reconstructed from a watch-only key cannot be spent
	note, err := NewNote(big.NewInt(100), watch)
	c.Assert(err, qt.IsNil)
	note.SetLeafIndex(0)
	out, err := NewNote(big.NewInt(100), owner)
	c.Assert(err, qt.IsNil)
	_, err = b.Build(&BuildParams{Inputs: []*Note{note}, Outputs: []*Note{out}})
	c.Assert(err, qt.ErrorIs, ErrUnspendableNote)

	// a note that was never accumulated has no nullifier
	fresh, err := NewNote(big.NewInt(100), owner)
	c.Assert(err, qt.IsNil)
	_, err = b.Build(&BuildParams{Inputs: []*Note{fresh}, Outputs: []*Note{out}})
	c.Assert(err, qt.ErrorIs, ErrIncompleteNote)
}

func TestBuilderEncryptsOutputsForRecipient(t *testing.T) {
	c := qt.New(t)
	p, b := newTestPool(c, Config{})
	receiverSpend, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)
	receiverEnc := noteenc.GenerateKey()

	note, err := NewNote(big.NewInt(9_000_000), receiverSpend)
	c.Assert(err, qt.IsNil)
	tx, err := b.Build(&BuildParams{
		Outputs:   []*Note{note},
		EncryptTo: []*babyjub.Point{receiverEnc.Pub},
	})
	c.Assert(err, qt.IsNil)
	_, err = p.Submit(tx)
	c.Assert(err, qt.IsNil)
	c.Assert(len(tx.ExtData.EncryptedOutput1) > 0, qt.IsTrue)
	c.Assert(tx.ExtData.EncryptedOutput2, qt.HasLen, 0)

	// the receiver recovers the opening from the published extData alone
	// and reproduces the on-tree commitment
	ct, err := noteenc.ParseCiphertext(tx.ExtData.EncryptedOutput1)
	c.Assert(err, qt.IsNil)
	plain, err := receiverEnc.Decrypt(ct)
	c.Assert(err, qt.IsNil)
	c.Assert(plain, qt.HasLen, 2)
	c.Assert(plain[0].Int64(), qt.Equals, int64(9_000_000))

	recomputed, err := poseidon.Hash(plain[0], receiverSpend.PublicKey(), plain[1])
	c.Assert(err, qt.IsNil)
	c.Assert(recomputed.Cmp(tx.OutputCommitments[0].MathBigInt()), qt.Equals, 0)
}

func TestTransactionHashIsStable(t *testing.T) {
	c := qt.New(t)
	_, b := newTestPool(c, Config{})
	owner, err := GenerateKeypair()
	c.Assert(err, qt.IsNil)

	note, err := NewNote(big.NewInt(500), owner)
	c.Assert(err, qt.IsNil)
	tx, err := b.Build(&BuildParams{Outputs: []*Note{note}})
	c.Assert(err, qt.IsNil)

	h1, err := tx.Hash()
	c.Assert(err, qt.IsNil)
	h2, err := tx.Hash()
	c.Assert(err, qt.IsNil)
	c.Assert(h1, qt.DeepEquals, h2)
	c.Assert(h1, qt.HasLen, 32)

	tx.ExtData.Recipient = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	h3, err := tx.Hash()
	c.Assert(err, qt.IsNil)
	c.Assert(h1, qt.Not(qt.DeepEquals), h3)
}
