package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/babyjub"

	"github.com/zkpool/zkpool/circuits"
	"github.com/zkpool/zkpool/crypto"
	"github.com/zkpool/zkpool/crypto/noteenc"
	"github.com/zkpool/zkpool/merkle"
	"github.com/zkpool/zkpool/types"
)

// TreeView is the read access a builder needs into the accumulator: the
// root to prove against and authentication paths for the input notes. The
// Pool satisfies it.
type TreeView interface {
	Root() *big.Int
	GenerateProof(index uint32) (*merkle.Proof, error)
}

// BuildParams describes the transaction to construct. Inputs are the notes
// being spent (zero for a pure deposit); Outputs the new notes to create,
// padded internally to the fixed circuit arity. The external amount is
// derived from the value balance, never supplied.
type BuildParams struct {
	Inputs    []*Note
	Outputs   []*Note
	Recipient common.Address
	Relayer   common.Address
	Fee       *big.Int
	// EncryptTo holds the optional note-encryption key per real output, so
	// recipients can discover their notes from the published extData.
	EncryptTo []*babyjub.Point
}

// TransactionBuilder assembles the witness for the transaction circuits,
// runs the prover and packages the result for submission.
type TransactionBuilder struct {
	tree   TreeView
	prover circuits.Prover
}

// NewTransactionBuilder creates a builder over the given accumulator view
// and prover backend.
func NewTransactionBuilder(tree TreeView, prover circuits.Prover) *TransactionBuilder {
	return &TransactionBuilder{tree: tree, prover: prover}
}

// Build constructs, proves and packages a transaction. The returned
// transaction is ready for Pool.Submit; builder failures never touch pool
// state.
func (b *TransactionBuilder) Build(params *BuildParams) (*Transaction, error) {
	if params.Fee == nil {
		params.Fee = big.NewInt(0)
	}
	if params.Fee.Sign() < 0 {
		return nil, fmt.Errorf("fee must be non-negative")
	}
	if len(params.Outputs) == 0 || len(params.Outputs) > types.TxOutputs {
		return nil, fmt.Errorf("need between 1 and %d outputs, got %d", types.TxOutputs, len(params.Outputs))
	}
	variant, err := circuits.VariantForInputs(len(params.Inputs))
	if err != nil {
		return nil, err
	}

	inputs, err := b.padInputs(params.Inputs, variant.NumInputs())
	if err != nil {
		return nil, err
	}
	outputs := make([]*Note, len(params.Outputs), types.TxOutputs)
	copy(outputs, params.Outputs)
	for len(outputs) < types.TxOutputs {
		pad, err := NewZeroNote()
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, pad)
	}

	// publicAmount is the value balance against custody; the external
	// amount additionally covers the relayer fee.
	publicAmount := new(big.Int)
	for _, out := range outputs {
		publicAmount.Add(publicAmount, out.Amount)
	}
	for _, in := range inputs {
		publicAmount.Sub(publicAmount, in.Amount)
	}
	extAmount := new(big.Int).Add(publicAmount, params.Fee)

	extData, err := b.buildExtData(params, outputs, extAmount)
	if err != nil {
		return nil, err
	}
	extDataHash, err := extData.Hash()
	if err != nil {
		return nil, err
	}

	root := b.tree.Root()
	witness, nullifiers, commitments, err := b.buildWitness(variant, inputs, outputs, root, publicAmount, extDataHash)
	if err != nil {
		return nil, err
	}

	proof, rawSignals, err := b.prover.Prove(variant, witness)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProverError, err)
	}
	signals, err := circuits.ParseSignals(variant, rawSignals)
	if err != nil {
		return nil, fmt.Errorf("%w: prover returned malformed signals", ErrProverError)
	}
	// The prover's signals are authoritative, but they must agree with what
	// we fed it. A mismatch means corrupted artifacts.
	if signals.Root.Cmp(root) != 0 || signals.ExtDataHash.Cmp(extDataHash) != 0 {
		return nil, fmt.Errorf("%w: prover signals diverge from witness", ErrProverError)
	}

	tx := &Transaction{
		Variant:           variant,
		Proof:             proof,
		Root:              (*types.BigInt)(signals.Root),
		PublicAmount:      (*types.BigInt)(signals.PublicAmount),
		ExtDataHash:       (*types.BigInt)(signals.ExtDataHash),
		InputNullifiers:   make([]*types.BigInt, len(nullifiers)),
		OutputCommitments: make([]*types.BigInt, len(commitments)),
		ExtData:           extData,
	}
	for i, n := range nullifiers {
		tx.InputNullifiers[i] = (*types.BigInt)(n)
	}
	for i, c := range commitments {
		tx.OutputCommitments[i] = (*types.BigInt)(c)
	}
	return tx, nil
}

// padInputs validates the real inputs and appends zero-value dummies until
// the fixed circuit arity is reached. The circuits skip the membership check
// for zero-amount inputs, so dummies use leaf index 0 with an empty path.
func (b *TransactionBuilder) padInputs(real []*Note, arity int) ([]*Note, error) {
	inputs := make([]*Note, 0, arity)
	for _, in := range real {
		if in.Amount.Sign() > 0 && !in.Keypair.CanSign() {
			return nil, ErrUnspendableNote
		}
		if _, err := in.LeafIndex(); err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	for len(inputs) < arity {
		dummy, err := NewZeroNote()
		if err != nil {
			return nil, err
		}
		dummy.SetLeafIndex(0)
		inputs = append(inputs, dummy)
	}
	return inputs, nil
}

func (b *TransactionBuilder) buildExtData(params *BuildParams, outputs []*Note, extAmount *big.Int) (*ExtData, error) {
	encrypted := make([]types.HexBytes, types.TxOutputs)
	for i := range outputs {
		if i >= len(params.EncryptTo) || params.EncryptTo[i] == nil {
			continue
		}
		ct, err := noteenc.Encrypt([]*big.Int{outputs[i].Amount, outputs[i].Blinding}, params.EncryptTo[i])
		if err != nil {
			return nil, fmt.Errorf("cannot encrypt output %d: %w", i, err)
		}
		encrypted[i], err = ct.Bytes()
		if err != nil {
			return nil, err
		}
	}
	return &ExtData{
		Recipient:        params.Recipient,
		Relayer:          params.Relayer,
		ExtAmount:        (*types.BigInt)(crypto.SignedToFF(extAmount)),
		Fee:              (*types.BigInt)(new(big.Int).Set(params.Fee)),
		EncryptedOutput1: encrypted[0],
		EncryptedOutput2: encrypted[1],
	}, nil
}

// buildWitness assembles the circom input map: the public signal tuple plus
// the private note openings and authentication paths.
func (b *TransactionBuilder) buildWitness(
	variant circuits.Variant,
	inputs, outputs []*Note,
	root, publicAmount, extDataHash *big.Int,
) (map[string]any, []*big.Int, []*big.Int, error) {
	nIn := variant.NumInputs()
	var (
		nullifiers   = make([]*big.Int, nIn)
		inNullifier  = make([]string, nIn)
		inAmount     = make([]string, nIn)
		inPrivateKey = make([]string, nIn)
		inBlinding   = make([]string, nIn)
		inPathIdx    = make([]string, nIn)
		inPathElems  = make([][]string, nIn)
	)
	for i, in := range inputs {
		nullifier, err := in.Nullifier()
		if err != nil {
			return nil, nil, nil, err
		}
		index, err := in.LeafIndex()
		if err != nil {
			return nil, nil, nil, err
		}
		siblings := make([]string, types.MerkleTreeLevels)
		if in.Amount.Sign() > 0 {
			proof, err := b.tree.GenerateProof(index)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("cannot prove input %d: %w", i, err)
			}
			for j, sib := range proof.Siblings {
				siblings[j] = new(big.Int).SetBytes(sib).String()
			}
		} else {
			for j := range siblings {
				siblings[j] = "0"
			}
		}
		nullifiers[i] = nullifier
		inNullifier[i] = nullifier.String()
		inAmount[i] = in.Amount.String()
		inPrivateKey[i] = in.Keypair.PrivateKey().String()
		inBlinding[i] = in.Blinding.String()
		inPathIdx[i] = new(big.Int).SetUint64(uint64(index)).String()
		inPathElems[i] = siblings
	}

	nOut := variant.NumOutputs()
	var (
		commitments   = make([]*big.Int, nOut)
		outCommitment = make([]string, nOut)
		outAmount     = make([]string, nOut)
		outPubkey     = make([]string, nOut)
		outBlinding   = make([]string, nOut)
	)
	for i, out := range outputs {
		commitment, err := out.Commitment()
		if err != nil {
			return nil, nil, nil, err
		}
		commitments[i] = commitment
		outCommitment[i] = commitment.String()
		outAmount[i] = out.Amount.String()
		outPubkey[i] = out.Keypair.PublicKey().String()
		outBlinding[i] = out.Blinding.String()
	}

	witness := map[string]any{
		"root":             root.String(),
		"publicAmount":     crypto.SignedToFF(publicAmount).String(),
		"extDataHash":      extDataHash.String(),
		"inputNullifier":   inNullifier,
		"inAmount":         inAmount,
		"inPrivateKey":     inPrivateKey,
		"inBlinding":       inBlinding,
		"inPathIndices":    inPathIdx,
		"inPathElements":   inPathElems,
		"outputCommitment": outCommitment,
		"outAmount":        outAmount,
		"outPubkey":        outPubkey,
		"outBlinding":      outBlinding,
	}
	return witness, nullifiers, commitments, nil
}
