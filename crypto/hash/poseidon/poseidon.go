package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// Hash is the Poseidon hash over the BN254 scalar field, the single hash
// primitive shared by commitments, nullifiers, keypairs and the accumulator.
// Inputs must already be field elements.
func Hash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	return poseidon.Hash(inputs)
}

// HashLeftRight is the two-to-one compression used by the note commitment
// tree. Operand order is significant: the accumulator and the circuits must
// agree on it bit-for-bit or roots diverge.
func HashLeftRight(left, right *big.Int) (*big.Int, error) {
	return poseidon.Hash([]*big.Int{left, right})
}
