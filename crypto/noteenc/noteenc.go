// Package noteenc encrypts note openings for their recipient so spent-to
// parties can discover incoming notes from the transaction's extData alone.
// It is a scalar ECIES on Baby JubJub: an ephemeral ECDH shared point is
// hashed with Poseidon to derive one additive mask per plaintext scalar.
package noteenc

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/iden3/go-iden3-crypto/babyjub"

	"github.com/zkpool/zkpool/crypto"
	"github.com/zkpool/zkpool/crypto/hash/poseidon"
	"github.com/zkpool/zkpool/types"
	"github.com/zkpool/zkpool/util"
)

// Key is a Baby JubJub encryption keypair.
type Key struct {
	priv *big.Int
	Pub  *babyjub.Point
}

// GenerateKey creates a fresh encryption keypair.
func GenerateKey() *Key {
	priv := util.RandomFieldElement(babyjub.SubOrder)
	if priv.Sign() == 0 {
		priv.SetInt64(1)
	}
	pub := babyjub.NewPoint().Mul(priv, babyjub.B8)
	return &Key{priv: priv, Pub: pub}
}

// Ciphertext carries the ephemeral ECDH point and the masked scalars.
type Ciphertext struct {
	EphemeralX *types.BigInt   `cbor:"0,keyasint"`
	EphemeralY *types.BigInt   `cbor:"1,keyasint"`
	Values     []*types.BigInt `cbor:"2,keyasint"`
}

// Bytes serializes the ciphertext with deterministic CBOR.
func (ct *Ciphertext) Bytes() ([]byte, error) {
	opts := cbor.CoreDetEncOptions()
	em, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(ct)
}

// ParseCiphertext deserializes a ciphertext produced by Bytes.
func ParseCiphertext(data []byte) (*Ciphertext, error) {
	ct := &Ciphertext{}
	if err := cbor.Unmarshal(data, ct); err != nil {
		return nil, fmt.Errorf("cannot parse note ciphertext: %w", err)
	}
	return ct, nil
}

// Encrypt masks the plaintext scalars for the given recipient public key.
func Encrypt(plain []*big.Int, recipient *babyjub.Point) (*Ciphertext, error) {
	if recipient == nil {
		return nil, fmt.Errorf("recipient public key cannot be nil")
	}
	eph := util.RandomFieldElement(babyjub.SubOrder)
	if eph.Sign() == 0 {
		eph.SetInt64(1)
	}
	ephPoint := babyjub.NewPoint().Mul(eph, babyjub.B8)
	shared := babyjub.NewPoint().Mul(eph, recipient)

	values := make([]*types.BigInt, len(plain))
	for i, p := range plain {
		mask, err := poseidon.Hash(shared.X, shared.Y, big.NewInt(int64(i)))
		if err != nil {
			return nil, err
		}
		c := new(big.Int).Add(crypto.BigToFF(p), mask)
		values[i] = (*types.BigInt)(crypto.BigToFF(c))
	}
	return &Ciphertext{
		EphemeralX: (*types.BigInt)(ephPoint.X),
		EphemeralY: (*types.BigInt)(ephPoint.Y),
		Values:     values,
	}, nil
}

// Decrypt recovers the plaintext scalars using the recipient private key.
func (k *Key) Decrypt(ct *Ciphertext) ([]*big.Int, error) {
	if ct == nil || ct.EphemeralX == nil || ct.EphemeralY == nil {
		return nil, fmt.Errorf("malformed ciphertext")
	}
	ephPoint := &babyjub.Point{X: ct.EphemeralX.MathBigInt(), Y: ct.EphemeralY.MathBigInt()}
	if !ephPoint.InCurve() {
		return nil, fmt.Errorf("ephemeral point not on curve")
	}
	shared := babyjub.NewPoint().Mul(k.priv, ephPoint)

	plain := make([]*big.Int, len(ct.Values))
	for i, v := range ct.Values {
		mask, err := poseidon.Hash(shared.X, shared.Y, big.NewInt(int64(i)))
		if err != nil {
			return nil, err
		}
		p := new(big.Int).Sub(v.MathBigInt(), mask)
		plain[i] = p.Mod(p, crypto.FieldModulus())
	}
	return plain, nil
}
