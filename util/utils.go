package util

import (
	"crypto/rand"
	"math/big"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// RandomFieldElement returns a uniformly random element of the field with the
// given modulus. It panics if the system randomness source fails, since
// predictable randomness breaks the hiding property of note commitments.
func RandomFieldElement(modulus *big.Int) *big.Int {
	v, err := rand.Int(rand.Reader, modulus)
	if err != nil {
		panic(err)
	}
	return v
}
