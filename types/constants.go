package types

const (
	// MerkleTreeLevels is the depth of the note commitment tree. It is fixed
	// at deployment: the transaction circuits hard-code the same depth.
	MerkleTreeLevels = 5
	// MerkleTreeCapacity is the maximum number of note commitments the tree
	// can hold.
	MerkleTreeCapacity = 1 << MerkleTreeLevels
	// DefaultRootHistorySize is the default number of recent accumulator
	// roots kept resident for proof admission.
	DefaultRootHistorySize = 100
	// SmallTxInputs and LargeTxInputs are the input arities of the two
	// transaction circuit variants.
	SmallTxInputs = 2
	LargeTxInputs = 16
	// TxOutputs is the output arity shared by both circuit variants.
	TxOutputs = 2
)
