package pool

import "errors"

// Builder-side errors. These are local to transaction construction: the
// caller fixes the witness and builds a new transaction.
var (
	// ErrIncompleteNote is returned when a nullifier is requested for a note
	// whose commitment has not been accumulated yet (no leaf index).
	ErrIncompleteNote = errors.New("pool: note has no leaf index yet")
	// ErrUnspendableNote is returned by the builder when an input note
	// cannot produce a nullifier.
	ErrUnspendableNote = errors.New("pool: input note is not spendable")
	// ErrProverError wraps witness or proof generation failures.
	ErrProverError = errors.New("pool: prover failed")
)

// Admission-side errors. Each rejected transaction is terminal: no state is
// mutated and the same proof is never retried.
var (
	// ErrStaleRoot is returned when the transaction root fell out of the
	// accumulator's history window. Rebuild the proof against a fresh root.
	ErrStaleRoot = errors.New("pool: transaction root is not a known root")
	// ErrDoubleSpend is returned when an input nullifier was already spent.
	ErrDoubleSpend = errors.New("pool: nullifier already spent")
	// ErrAmountOutOfRange is returned when the public amount violates the
	// configured deposit or withdrawal bounds.
	ErrAmountOutOfRange = errors.New("pool: public amount out of configured range")
	// ErrInvalidProof is returned when proof verification fails.
	ErrInvalidProof = errors.New("pool: invalid transaction proof")
	// ErrInsufficientPoolLiquidity is returned when a withdrawal exceeds the
	// pool's custody. Kept distinct from proof failures so operators can
	// tell liquidity problems from fraud attempts.
	ErrInsufficientPoolLiquidity = errors.New("pool: insufficient pool liquidity")
)
