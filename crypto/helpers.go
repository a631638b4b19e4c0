// Package crypto holds field arithmetic helpers shared by the pool protocol
// packages. All protocol values live in the BN254 scalar field, the native
// field of the transaction circuits.
package crypto

import (
	"math/big"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

const SerializedFieldSize = 32 // bytes

// FieldModulus returns the BN254 scalar field modulus, the field all public
// signals and commitments are expressed in.
func FieldModulus() *big.Int {
	return fr.Modulus()
}

// BigToFF function returns the finite field representation of the big.Int
// provided. It uses Euclidean Modulus and the BN254 scalar field to
// represent the provided number.
func BigToFF(iv *big.Int) *big.Int {
	z := big.NewInt(0)
	modulus := fr.Modulus()
	if c := iv.Cmp(modulus); c == 0 {
		return z
	} else if c != 1 && iv.Cmp(z) != -1 {
		return iv
	}
	return z.Mod(iv, modulus)
}

// SignedToFF maps a signed integer into the field: non-negative values are
// reduced as usual, negative values v become modulus - |v|. The circuits use
// the same convention for the publicAmount signal.
func SignedToFF(iv *big.Int) *big.Int {
	if iv.Sign() >= 0 {
		return BigToFF(iv)
	}
	neg := new(big.Int).Neg(iv)
	return new(big.Int).Sub(fr.Modulus(), BigToFF(neg))
}

// FFToSigned is the inverse of SignedToFF: field elements above modulus/2 are
// interpreted as negative numbers.
func FFToSigned(fe *big.Int) *big.Int {
	modulus := fr.Modulus()
	half := new(big.Int).Rsh(modulus, 1)
	if fe.Cmp(half) > 0 {
		return new(big.Int).Sub(fe, modulus)
	}
	return new(big.Int).Set(fe)
}

// PadFieldBytes left-pads the big-endian representation of a field element to
// SerializedFieldSize bytes, the width the circuits serialize signals with.
func PadFieldBytes(input *big.Int) []byte {
	b := BigToFF(input).Bytes()
	for len(b) < SerializedFieldSize {
		b = append([]byte{0}, b...)
	}
	return b
}
