package merkle

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zkpool/zkpool/crypto/hash/poseidon"
	"github.com/zkpool/zkpool/types"
)

func TestTreeInsertPair(t *testing.T) {
	c := qt.New(t)
	tree, err := New(types.MerkleTreeLevels, types.DefaultRootHistorySize)
	c.Assert(err, qt.IsNil)

	emptyRoot := tree.Root()
	c.Assert(tree.IsKnownRoot(emptyRoot), qt.IsTrue)
	c.Assert(tree.LeafCount(), qt.Equals, uint32(0))

	left, right := big.NewInt(11), big.NewInt(22)
	li, ri, err := tree.InsertPair(left, right)
	c.Assert(err, qt.IsNil)
	c.Assert(li, qt.Equals, uint32(0))
	c.Assert(ri, qt.Equals, uint32(1))
	c.Assert(tree.LeafCount(), qt.Equals, uint32(2))
	c.Assert(tree.Root().Cmp(emptyRoot), qt.Not(qt.Equals), 0)

	// root must be the pure function of the ordered leaves: recompute by hand
	h01, err := poseidon.HashLeftRight(left, right)
	c.Assert(err, qt.IsNil)
	current := h01
	for level := 1; level < types.MerkleTreeLevels; level++ {
		current, err = poseidon.HashLeftRight(current, tree.zeros[level])
		c.Assert(err, qt.IsNil)
	}
	c.Assert(tree.Root().Cmp(current), qt.Equals, 0)
}

func TestTreeDeterministicRoot(t *testing.T) {
	c := qt.New(t)
	a, err := New(types.MerkleTreeLevels, 10)
	c.Assert(err, qt.IsNil)
	b, err := New(types.MerkleTreeLevels, 10)
	c.Assert(err, qt.IsNil)

	for i := int64(0); i < 6; i += 2 {
		_, _, err = a.InsertPair(big.NewInt(i+1), big.NewInt(i+2))
		c.Assert(err, qt.IsNil)
		_, _, err = b.InsertPair(big.NewInt(i+1), big.NewInt(i+2))
		c.Assert(err, qt.IsNil)
	}
	c.Assert(a.Root().Cmp(b.Root()), qt.Equals, 0)
}

func TestTreeRootHistoryWindow(t *testing.T) {
	c := qt.New(t)
	const history = 3
	tree, err := New(types.MerkleTreeLevels, history)
	c.Assert(err, qt.IsNil)

	var roots []*big.Int
	for i := int64(0); i < 10; i += 2 {
		_, _, err := tree.InsertPair(big.NewInt(i+100), big.NewInt(i+101))
		c.Assert(err, qt.IsNil)
		roots = append(roots, tree.Root())
	}
	// exactly the most recent min(N, K) roots are admissible
	for i, r := range roots {
		known := tree.IsKnownRoot(r)
		if i >= len(roots)-history {
			c.Assert(known, qt.IsTrue, qt.Commentf("root %d should be resident", i))
		} else {
			c.Assert(known, qt.IsFalse, qt.Commentf("root %d should have been evicted", i))
		}
	}
	c.Assert(tree.IsKnownRoot(big.NewInt(0)), qt.IsFalse)
	c.Assert(tree.IsKnownRoot(big.NewInt(12345)), qt.IsFalse)
}

func TestTreeFull(t *testing.T) {
	c := qt.New(t)
	tree, err := New(types.MerkleTreeLevels, 2)
	c.Assert(err, qt.IsNil)
	for i := uint32(0); i < tree.Capacity(); i += 2 {
		_, _, err := tree.InsertPair(big.NewInt(int64(i)), big.NewInt(int64(i+1)))
		c.Assert(err, qt.IsNil)
	}
	_, _, err = tree.InsertPair(big.NewInt(1), big.NewInt(2))
	c.Assert(err, qt.Equals, ErrTreeFull)
	c.Assert(tree.LeafCount(), qt.Equals, tree.Capacity())
}

func TestGenerateAndVerifyProof(t *testing.T) {
	c := qt.New(t)
	tree, err := New(types.MerkleTreeLevels, 5)
	c.Assert(err, qt.IsNil)

	leaves := []*big.Int{big.NewInt(7), big.NewInt(8), big.NewInt(9), big.NewInt(10)}
	for i := 0; i < len(leaves); i += 2 {
		_, _, err := tree.InsertPair(leaves[i], leaves[i+1])
		c.Assert(err, qt.IsNil)
	}
	for i, leaf := range leaves {
		proof, err := tree.GenerateProof(uint32(i))
		c.Assert(err, qt.IsNil)
		c.Assert(VerifyProof(leaf, proof, tree.Root()), qt.IsTrue)
		// a proof against a different leaf must fail
		c.Assert(VerifyProof(big.NewInt(999), proof, tree.Root()), qt.IsFalse)
	}
	_, err = tree.GenerateProof(uint32(len(leaves)))
	c.Assert(err, qt.IsNotNil)
}
