package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"

	"github.com/zkpool/zkpool/circuits"
	"github.com/zkpool/zkpool/crypto"
	"github.com/zkpool/zkpool/types"
)

// ExtData carries the public, out-of-circuit side of a transaction: where
// withdrawn value goes, who relays, and the encrypted note openings for the
// recipient. Its hash is bound into the proof via the extDataHash signal, so
// none of these fields can be tampered with after proving.
type ExtData struct {
	Recipient        common.Address `json:"recipient"        cbor:"0,keyasint"`
	Relayer          common.Address `json:"relayer"          cbor:"1,keyasint"`
	ExtAmount        *types.BigInt  `json:"extAmount"        cbor:"2,keyasint"` // field-encoded signed amount
	Fee              *types.BigInt  `json:"fee"              cbor:"3,keyasint"`
	EncryptedOutput1 types.HexBytes `json:"encryptedOutput1" cbor:"4,keyasint"`
	EncryptedOutput2 types.HexBytes `json:"encryptedOutput2" cbor:"5,keyasint"`
}

// Amount returns the signed external amount: positive for deposits,
// negative for withdrawals.
func (ed *ExtData) Amount() *big.Int {
	return crypto.FFToSigned(ed.ExtAmount.MathBigInt())
}

// Hash returns the extData commitment bound into the proof: keccak256 of the
// deterministic CBOR encoding, reduced into the field. Empty byte fields are
// normalized to nil so the encoding survives transport round trips.
func (ed *ExtData) Hash() (*big.Int, error) {
	canonical := *ed
	if len(canonical.EncryptedOutput1) == 0 {
		canonical.EncryptedOutput1 = nil
	}
	if len(canonical.EncryptedOutput2) == 0 {
		canonical.EncryptedOutput2 = nil
	}
	data, err := detEncode(&canonical)
	if err != nil {
		return nil, fmt.Errorf("cannot encode extData: %w", err)
	}
	return crypto.BigToFF(new(big.Int).SetBytes(ethcrypto.Keccak256(data))), nil
}

// Transaction is a submitted spend: the opaque proof, the public signals it
// was produced for, and the extData those signals commit to. A transaction
// is submitted once and either applied or rejected, never partially.
type Transaction struct {
	Variant           circuits.Variant `json:"variant"           cbor:"0,keyasint"`
	Proof             types.HexBytes   `json:"proof"             cbor:"1,keyasint"`
	Root              *types.BigInt    `json:"root"              cbor:"2,keyasint"`
	PublicAmount      *types.BigInt    `json:"publicAmount"      cbor:"3,keyasint"` // field-encoded
	ExtDataHash       *types.BigInt    `json:"extDataHash"       cbor:"4,keyasint"`
	InputNullifiers   []*types.BigInt  `json:"inputNullifiers"   cbor:"5,keyasint"`
	OutputCommitments []*types.BigInt  `json:"outputCommitments" cbor:"6,keyasint"`
	ExtData           *ExtData         `json:"extData"           cbor:"7,keyasint"`
}

// PublicSignals assembles the fixed-order signal tuple the proof is checked
// against.
func (tx *Transaction) PublicSignals() *circuits.PublicSignals {
	nullifiers := make([]*big.Int, len(tx.InputNullifiers))
	for i, n := range tx.InputNullifiers {
		nullifiers[i] = n.MathBigInt()
	}
	commitments := make([]*big.Int, len(tx.OutputCommitments))
	for i, c := range tx.OutputCommitments {
		commitments[i] = c.MathBigInt()
	}
	return &circuits.PublicSignals{
		Root:              tx.Root.MathBigInt(),
		PublicAmount:      tx.PublicAmount.MathBigInt(),
		ExtDataHash:       tx.ExtDataHash.MathBigInt(),
		InputNullifiers:   nullifiers,
		OutputCommitments: commitments,
	}
}

// Amount returns the signed public amount the transaction requests against
// pool custody.
func (tx *Transaction) Amount() *big.Int {
	return crypto.FFToSigned(tx.PublicAmount.MathBigInt())
}

// Hash returns the unique identifier of the transaction instance.
func (tx *Transaction) Hash() (types.HexBytes, error) {
	data, err := detEncode(tx)
	if err != nil {
		return nil, fmt.Errorf("cannot encode transaction: %w", err)
	}
	return ethcrypto.Keccak256(data), nil
}

func detEncode(v any) ([]byte, error) {
	opts := cbor.CoreDetEncOptions()
	em, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(v)
}
