// Package circuits models the boundary with the external circom transaction
// circuits: the two fixed proof variants, the public-signal layout, and the
// prover/verifier adapters. The signal ordering and hash domain separation
// here must match the circuits bit-for-bit, or proofs become unverifiable.
package circuits

import (
	"errors"
	"fmt"

	"github.com/zkpool/zkpool/types"
)

// ErrMalformedSignals is returned when a public-signal set does not match
// the fixed layout of the selected circuit variant.
var ErrMalformedSignals = errors.New("circuits: malformed public signals")

// Variant identifies one of the two fixed transaction circuits. The set is
// closed: verifier logic is circuit-specific, so new shapes require a new
// deployment.
type Variant uint8

const (
	// VariantTx2 is the 2-input, 2-output transaction circuit.
	VariantTx2 Variant = iota
	// VariantTx16 is the 16-input, 2-output transaction circuit.
	VariantTx16
)

// VariantForInputs returns the smallest variant that fits the given input
// count. Transactions needing more than 16 inputs must be split by the
// caller.
func VariantForInputs(n int) (Variant, error) {
	switch {
	case n <= types.SmallTxInputs:
		return VariantTx2, nil
	case n <= types.LargeTxInputs:
		return VariantTx16, nil
	default:
		return 0, fmt.Errorf("no circuit variant fits %d inputs", n)
	}
}

// String returns the canonical variant name, used in artifact file names and
// log lines.
func (v Variant) String() string {
	switch v {
	case VariantTx2:
		return "transaction2"
	case VariantTx16:
		return "transaction16"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// Valid reports whether v is a member of the closed variant set.
func (v Variant) Valid() bool {
	return v == VariantTx2 || v == VariantTx16
}

// NumInputs returns the input arity of the variant.
func (v Variant) NumInputs() int {
	if v == VariantTx16 {
		return types.LargeTxInputs
	}
	return types.SmallTxInputs
}

// NumOutputs returns the output arity. Both variants create exactly two
// output commitments.
func (v Variant) NumOutputs() int { return types.TxOutputs }

// NumSignals returns the fixed public-signal count of the variant:
// root, publicAmount, extDataHash, then nullifiers and output commitments.
func (v Variant) NumSignals() int {
	return 3 + v.NumInputs() + v.NumOutputs()
}
