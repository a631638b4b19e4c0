package circuits

import (
	"encoding/json"
	"fmt"

	"github.com/iden3/go-rapidsnark/prover"
	"github.com/iden3/go-rapidsnark/witness"
)

// Prover produces a transaction proof from the circuit witness inputs. The
// inputs map uses the circom signal names; private note fields and the
// public signal tuple travel together.
type Prover interface {
	Prove(v Variant, inputs map[string]any) (proof []byte, pubSignals []string, err error)
}

// circuitArtifacts is a compiled circom circuit (wasm) plus its Groth16
// proving key.
type circuitArtifacts struct {
	wasm []byte
	zkey []byte
}

// LocalProver computes witnesses with the circom wasm and proves with
// rapidsnark, all in-process.
type LocalProver struct {
	artifacts map[Variant]circuitArtifacts
}

// NewLocalProver creates a prover from the per-variant circuit artifacts.
func NewLocalProver(wasmTx2, zkeyTx2, wasmTx16, zkeyTx16 []byte) *LocalProver {
	return &LocalProver{
		artifacts: map[Variant]circuitArtifacts{
			VariantTx2:  {wasm: wasmTx2, zkey: zkeyTx2},
			VariantTx16: {wasm: wasmTx16, zkey: zkeyTx16},
		},
	}
}

// Prove implements the Prover interface. It parses the inputs, computes the
// witness and generates a Groth16 proof, returning the proof JSON and the
// flattened public signals.
func (lp *LocalProver) Prove(v Variant, inputs map[string]any) ([]byte, []string, error) {
	arts, ok := lp.artifacts[v]
	if !ok {
		return nil, nil, fmt.Errorf("no artifacts for variant %s", v)
	}
	rawInputs, err := json.Marshal(inputs)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot encode witness inputs: %w", err)
	}
	finalInputs, err := witness.ParseInputs(rawInputs)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot parse witness inputs: %w", err)
	}
	calc, err := witness.NewCircom2WitnessCalculator(arts.wasm, true)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot instance witness calculator: %w", err)
	}
	w, err := calc.CalculateWTNSBin(finalInputs, true)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot calculate witness: %w", err)
	}
	proofJSON, pubSignalsJSON, err := prover.Groth16ProverRaw(arts.zkey, w)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot generate proof: %w", err)
	}
	var pubSignals []string
	if err := json.Unmarshal([]byte(pubSignalsJSON), &pubSignals); err != nil {
		return nil, nil, fmt.Errorf("cannot decode public signals: %w", err)
	}
	return []byte(proofJSON), pubSignals, nil
}
