package circuits

import (
	"encoding/json"
	"fmt"

	rapidsnarktypes "github.com/iden3/go-rapidsnark/types"
	"github.com/iden3/go-rapidsnark/verifier"
	"github.com/vocdoni/circom2gnark/parser"
)

// Verifier checks a transaction proof against its public signals. It is a
// stateless predicate: implementations never touch accumulator or nullifier
// state.
type Verifier interface {
	Verify(v Variant, proof []byte, signals *PublicSignals) error
}

// verificationKeys holds one circom verification key (JSON, as exported by
// snarkjs) per circuit variant.
type verificationKeys struct {
	tx2  []byte
	tx16 []byte
}

func (vk *verificationKeys) forVariant(v Variant) ([]byte, error) {
	switch v {
	case VariantTx2:
		return vk.tx2, nil
	case VariantTx16:
		return vk.tx16, nil
	}
	return nil, fmt.Errorf("no verification key for variant %s", v)
}

// RapidsnarkVerifier verifies circom Groth16 proofs natively with
// go-rapidsnark. This is the default backend.
type RapidsnarkVerifier struct {
	keys verificationKeys
}

// NewRapidsnarkVerifier creates a verifier from the two variants'
// verification keys.
func NewRapidsnarkVerifier(vkeyTx2, vkeyTx16 []byte) *RapidsnarkVerifier {
	return &RapidsnarkVerifier{keys: verificationKeys{tx2: vkeyTx2, tx16: vkeyTx16}}
}

// Verify implements the Verifier interface.
func (rv *RapidsnarkVerifier) Verify(v Variant, proof []byte, signals *PublicSignals) error {
	if err := signals.CheckShape(v); err != nil {
		return err
	}
	vkey, err := rv.keys.forVariant(v)
	if err != nil {
		return err
	}
	proofData := rapidsnarktypes.ProofData{}
	if err := json.Unmarshal(proof, &proofData); err != nil {
		return fmt.Errorf("cannot decode proof: %w", err)
	}
	zkProof := rapidsnarktypes.ZKProof{
		Proof:      &proofData,
		PubSignals: signals.Strings(),
	}
	return verifier.VerifyGroth16(zkProof, vkey)
}

// GnarkVerifier converts circom proofs to gnark objects with circom2gnark
// and verifies them with gnark's BN254 Groth16 backend. Functionally
// equivalent to RapidsnarkVerifier; useful where the wasmer runtime of
// rapidsnark is unavailable.
type GnarkVerifier struct {
	keys verificationKeys
}

// NewGnarkVerifier creates a gnark-backed verifier from the two variants'
// verification keys.
func NewGnarkVerifier(vkeyTx2, vkeyTx16 []byte) *GnarkVerifier {
	return &GnarkVerifier{keys: verificationKeys{tx2: vkeyTx2, tx16: vkeyTx16}}
}

// Verify implements the Verifier interface.
func (gv *GnarkVerifier) Verify(v Variant, proof []byte, signals *PublicSignals) error {
	if err := signals.CheckShape(v); err != nil {
		return err
	}
	vkey, err := gv.keys.forVariant(v)
	if err != nil {
		return err
	}
	vkeyData, err := parser.UnmarshalCircomVerificationKeyJSON(vkey)
	if err != nil {
		return fmt.Errorf("cannot parse verification key: %w", err)
	}
	proofData, err := parser.UnmarshalCircomProofJSON(proof)
	if err != nil {
		return fmt.Errorf("cannot parse proof: %w", err)
	}
	gnarkProof, err := parser.ConvertCircomToGnark(proofData, vkeyData, signals.Strings())
	if err != nil {
		return fmt.Errorf("cannot convert proof to gnark: %w", err)
	}
	ok, err := parser.VerifyProof(gnarkProof)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("proof verification failed")
	}
	return nil
}
