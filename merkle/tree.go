// Package merkle implements the note commitment accumulator: an append-only,
// fixed-depth binary Poseidon tree with an incremental insertion frontier and
// a bounded history of recent roots.
//
// The root is a pure function of the ordered sequence of inserted leaves.
// Leaves are always inserted in pairs, matching the two-output shape of the
// transaction circuits, which keeps the frontier cache a single hash per
// level. The tree hash must agree bit-for-bit with the in-circuit Merkle
// gadget: Poseidon(left, right) over BN254, with empty subtrees derived from
// the zero leaf below.
package merkle

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/zkpool/zkpool/crypto"
	"github.com/zkpool/zkpool/crypto/hash/poseidon"
	"github.com/zkpool/zkpool/types"
)

var (
	// ErrTreeFull is returned when the accumulator has no remaining
	// capacity. The depth is fixed at deployment, so this is fatal for the
	// pool instance.
	ErrTreeFull = errors.New("merkle: tree is full")
	// ErrBadHistorySize is returned by New for a non-positive root history.
	ErrBadHistorySize = errors.New("merkle: root history size must be positive")
)

// ZeroLeaf is the domain-separated empty leaf value: keccak256("zkpool")
// reduced into the field. Using a non-trivial constant keeps empty subtrees
// from colliding with a zero-value commitment.
var ZeroLeaf = crypto.BigToFF(new(big.Int).SetBytes(ethcrypto.Keccak256([]byte("zkpool"))))

// Tree is the append-only commitment accumulator. It is not safe for
// concurrent use; the pool serializes all access behind its own lock.
type Tree struct {
	levels      int
	nextIndex   uint32
	zeros       []*big.Int // zeros[i] is the empty subtree hash at level i
	frontier    []*big.Int // cached left sibling per level for the append path
	root        *big.Int
	rootHistory []*big.Int // ring buffer of recent roots, most recent last written
	historyPos  int
	leaves      []*big.Int
}

// New creates an empty accumulator of the given depth keeping historySize
// recent roots admissible.
func New(levels, historySize int) (*Tree, error) {
	if levels < 1 || levels > 31 {
		return nil, errors.New("merkle: invalid tree depth")
	}
	if historySize < 1 {
		return nil, ErrBadHistorySize
	}
	zeros := make([]*big.Int, levels+1)
	zeros[0] = new(big.Int).Set(ZeroLeaf)
	for i := 1; i <= levels; i++ {
		h, err := poseidon.HashLeftRight(zeros[i-1], zeros[i-1])
		if err != nil {
			return nil, err
		}
		zeros[i] = h
	}
	frontier := make([]*big.Int, levels)
	for i := range frontier {
		frontier[i] = new(big.Int).Set(zeros[i])
	}
	t := &Tree{
		levels:      levels,
		zeros:       zeros,
		frontier:    frontier,
		root:        new(big.Int).Set(zeros[levels]),
		rootHistory: make([]*big.Int, historySize),
	}
	// The empty root occupies the first history slot so proofs built before
	// the first insertion stay admissible for the whole window.
	t.rootHistory[0] = new(big.Int).Set(t.root)
	t.historyPos = 1 % historySize
	return t, nil
}

// Levels returns the fixed depth of the tree.
func (t *Tree) Levels() int { return t.levels }

// Capacity returns the maximum number of leaves.
func (t *Tree) Capacity() uint32 { return 1 << t.levels }

// LeafCount returns the number of inserted leaves.
func (t *Tree) LeafCount() uint32 { return t.nextIndex }

// Root returns the current root.
func (t *Tree) Root() *big.Int { return new(big.Int).Set(t.root) }

// Leaves returns the ordered sequence of inserted leaves.
func (t *Tree) Leaves() []*big.Int {
	out := make([]*big.Int, len(t.leaves))
	for i, l := range t.leaves {
		out[i] = new(big.Int).Set(l)
	}
	return out
}

// InsertPair appends two leaves at the next free positions and returns their
// leaf indices. The new root is pushed onto the history ring, evicting the
// oldest entry once the ring is full.
func (t *Tree) InsertPair(left, right *big.Int) (uint32, uint32, error) {
	if uint64(t.nextIndex)+2 > uint64(t.Capacity()) {
		return 0, 0, ErrTreeFull
	}
	leftIndex := t.nextIndex
	// hash the pair first: pairwise insertion means level 0 never touches
	// the frontier cache.
	current, err := poseidon.HashLeftRight(left, right)
	if err != nil {
		return 0, 0, err
	}
	index := leftIndex / 2
	for level := 1; level < t.levels; level++ {
		if index%2 == 0 {
			t.frontier[level] = current
			current, err = poseidon.HashLeftRight(current, t.zeros[level])
		} else {
			current, err = poseidon.HashLeftRight(t.frontier[level], current)
		}
		if err != nil {
			return 0, 0, err
		}
		index /= 2
	}
	t.leaves = append(t.leaves, new(big.Int).Set(left), new(big.Int).Set(right))
	t.nextIndex += 2
	t.root = current
	t.rootHistory[t.historyPos] = new(big.Int).Set(current)
	t.historyPos = (t.historyPos + 1) % len(t.rootHistory)
	return leftIndex, leftIndex + 1, nil
}

// IsKnownRoot reports whether root is the current root or any root still
// resident in the history ring. This bounds how stale the root a proof was
// built against may be.
func (t *Tree) IsKnownRoot(root *big.Int) bool {
	if root == nil || root.Sign() == 0 {
		return false
	}
	if root.Cmp(t.root) == 0 {
		return true
	}
	for _, r := range t.rootHistory {
		if r != nil && r.Cmp(root) == 0 {
			return true
		}
	}
	return false
}

// Proof is a Merkle authentication path for a leaf.
type Proof struct {
	LeafIndex uint32           `json:"leafIndex"`
	Siblings  []types.HexBytes `json:"siblings"`
}

// GenerateProof rebuilds the tree layers to extract the authentication path
// of the leaf at the given index. Builders use it to assemble the private
// witness; admission never needs it.
func (t *Tree) GenerateProof(index uint32) (*Proof, error) {
	if index >= t.nextIndex {
		return nil, errors.New("merkle: leaf index out of range")
	}
	proof := &Proof{LeafIndex: index, Siblings: make([]types.HexBytes, t.levels)}
	layer := make([]*big.Int, len(t.leaves))
	copy(layer, t.leaves)
	idx := index
	for level := 0; level < t.levels; level++ {
		if len(layer)%2 != 0 {
			layer = append(layer, t.zeros[level])
		}
		sib := idx ^ 1
		if int(sib) < len(layer) {
			proof.Siblings[level] = layer[sib].Bytes()
		} else {
			proof.Siblings[level] = t.zeros[level].Bytes()
		}
		next := make([]*big.Int, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			h, err := poseidon.HashLeftRight(layer[i], layer[i+1])
			if err != nil {
				return nil, err
			}
			next[i/2] = h
		}
		layer = next
		idx /= 2
	}
	return proof, nil
}

// VerifyProof checks an authentication path against a root.
func VerifyProof(leaf *big.Int, proof *Proof, root *big.Int) bool {
	if proof == nil {
		return false
	}
	current := new(big.Int).Set(leaf)
	idx := proof.LeafIndex
	for _, sibling := range proof.Siblings {
		sib := new(big.Int).SetBytes(sibling)
		var err error
		if idx%2 == 0 {
			current, err = poseidon.HashLeftRight(current, sib)
		} else {
			current, err = poseidon.HashLeftRight(sib, current)
		}
		if err != nil {
			return false
		}
		idx /= 2
	}
	return current.Cmp(root) == 0
}
