package pool

import (
	"fmt"
	"math/big"

	"github.com/zkpool/zkpool/crypto"
	"github.com/zkpool/zkpool/crypto/hash/poseidon"
	"github.com/zkpool/zkpool/util"
)

// Keypair owns the spending capability of notes. The public key tags note
// commitments; the private scalar never appears in any on-chain-visible
// value, only inside proof witnesses and nullifier derivations.
type Keypair struct {
	privKey *big.Int
	pubKey  *big.Int
}

// GenerateKeypair creates a keypair from a fresh random scalar.
func GenerateKeypair() (*Keypair, error) {
	return NewKeypair(util.RandomFieldElement(crypto.FieldModulus()))
}

// NewKeypair derives the keypair for a known private scalar.
func NewKeypair(privKey *big.Int) (*Keypair, error) {
	if privKey == nil || privKey.Sign() == 0 {
		return nil, fmt.Errorf("private key cannot be zero")
	}
	pub, err := poseidon.Hash(crypto.BigToFF(privKey))
	if err != nil {
		return nil, fmt.Errorf("cannot derive public key: %w", err)
	}
	return &Keypair{privKey: crypto.BigToFF(privKey), pubKey: pub}, nil
}

// FromPublicKey creates a watch-only keypair. It can reconstruct commitments
// of received notes but cannot sign, so notes owned by it are unspendable
// until the private scalar is supplied.
func FromPublicKey(pubKey *big.Int) (*Keypair, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("public key cannot be nil")
	}
	return &Keypair{pubKey: crypto.BigToFF(pubKey)}, nil
}

// CanSign reports whether the keypair holds the private scalar.
func (k *Keypair) CanSign() bool { return k.privKey != nil }

// PublicKey returns the public key notes are tagged with.
func (k *Keypair) PublicKey() *big.Int {
	return new(big.Int).Set(k.pubKey)
}

// PrivateKey returns the private scalar, needed by provers as part of the
// witness. It is nil for watch-only keypairs.
func (k *Keypair) PrivateKey() *big.Int {
	if k.privKey == nil {
		return nil
	}
	return new(big.Int).Set(k.privKey)
}

// Sign derives the nullifying key for a note position: a deterministic
// function of the private scalar, the note commitment and its leaf index.
// Only the keypair holder can produce it, which is what makes nullifiers
// unforgeable.
func (k *Keypair) Sign(commitment *big.Int, leafIndex uint32) (*big.Int, error) {
	if k.privKey == nil {
		return nil, ErrUnspendableNote
	}
	if commitment == nil {
		return nil, fmt.Errorf("commitment cannot be nil")
	}
	return poseidon.Hash(k.privKey, commitment, new(big.Int).SetUint64(uint64(leafIndex)))
}
