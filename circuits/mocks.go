package circuits

import (
	"bytes"
	"encoding/json"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/zkpool/zkpool/types"
)

// mockProofTag domain-separates mock proofs from anything a real circuit
// could emit.
var mockProofTag = []byte("zkpool/mock-proof/v1")

type mockProofBody struct {
	Digest types.HexBytes `json:"digest"`
}

func mockDigest(v Variant, signals []string) []byte {
	buf := bytes.Buffer{}
	buf.Write(mockProofTag)
	buf.WriteString(v.String())
	for _, s := range signals {
		buf.WriteString("/")
		buf.WriteString(s)
	}
	return ethcrypto.Keccak256(buf.Bytes())
}

// MockProver is a Prover for tests: it derives a deterministic digest from
// the public signals found in the witness inputs, which MockVerifier can
// recheck without any circuit artifacts.
type MockProver struct{}

// Prove implements the Prover interface.
func (MockProver) Prove(v Variant, inputs map[string]any) ([]byte, []string, error) {
	root, ok := inputs["root"].(string)
	if !ok {
		return nil, nil, fmt.Errorf("missing root input")
	}
	publicAmount, ok := inputs["publicAmount"].(string)
	if !ok {
		return nil, nil, fmt.Errorf("missing publicAmount input")
	}
	extDataHash, ok := inputs["extDataHash"].(string)
	if !ok {
		return nil, nil, fmt.Errorf("missing extDataHash input")
	}
	nullifiers, ok := inputs["inputNullifier"].([]string)
	if !ok || len(nullifiers) != v.NumInputs() {
		return nil, nil, fmt.Errorf("missing or malformed inputNullifier input")
	}
	commitments, ok := inputs["outputCommitment"].([]string)
	if !ok || len(commitments) != v.NumOutputs() {
		return nil, nil, fmt.Errorf("missing or malformed outputCommitment input")
	}
	signals := make([]string, 0, v.NumSignals())
	signals = append(signals, root, publicAmount, extDataHash)
	signals = append(signals, nullifiers...)
	signals = append(signals, commitments...)

	proof, err := json.Marshal(mockProofBody{Digest: mockDigest(v, signals)})
	if err != nil {
		return nil, nil, err
	}
	return proof, signals, nil
}

// MockVerifier accepts exactly the proofs MockProver produces for the same
// signal tuple.
type MockVerifier struct{}

// Verify implements the Verifier interface.
func (MockVerifier) Verify(v Variant, proof []byte, signals *PublicSignals) error {
	if err := signals.CheckShape(v); err != nil {
		return err
	}
	body := mockProofBody{}
	if err := json.Unmarshal(proof, &body); err != nil {
		return fmt.Errorf("cannot decode proof: %w", err)
	}
	if !bytes.Equal(body.Digest, mockDigest(v, signals.Strings())) {
		return fmt.Errorf("proof digest mismatch")
	}
	return nil
}
