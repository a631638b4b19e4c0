package circuits

import (
	"math/big"
)

// PublicSignals is the non-secret tuple a transaction proof is checked
// against. The flattened order is fixed by the circuits:
// [root, publicAmount, extDataHash, inputNullifiers..., outputCommitments...].
type PublicSignals struct {
	Root              *big.Int
	PublicAmount      *big.Int // field-encoded: negative amounts are modulus - |v|
	ExtDataHash       *big.Int
	InputNullifiers   []*big.Int
	OutputCommitments []*big.Int
}

// Slice flattens the signals in circuit order.
func (ps *PublicSignals) Slice() []*big.Int {
	out := make([]*big.Int, 0, 3+len(ps.InputNullifiers)+len(ps.OutputCommitments))
	out = append(out, ps.Root, ps.PublicAmount, ps.ExtDataHash)
	out = append(out, ps.InputNullifiers...)
	out = append(out, ps.OutputCommitments...)
	return out
}

// Strings flattens the signals as decimal strings, the encoding snarkjs and
// rapidsnark exchange public signals in.
func (ps *PublicSignals) Strings() []string {
	sl := ps.Slice()
	out := make([]string, len(sl))
	for i, s := range sl {
		out[i] = s.String()
	}
	return out
}

// CheckShape validates the signal set against the fixed layout of the given
// variant. Wrong counts or nil entries are ErrMalformedSignals.
func (ps *PublicSignals) CheckShape(v Variant) error {
	if !v.Valid() {
		return ErrMalformedSignals
	}
	if ps.Root == nil || ps.PublicAmount == nil || ps.ExtDataHash == nil {
		return ErrMalformedSignals
	}
	if len(ps.InputNullifiers) != v.NumInputs() {
		return ErrMalformedSignals
	}
	if len(ps.OutputCommitments) != v.NumOutputs() {
		return ErrMalformedSignals
	}
	for _, n := range ps.InputNullifiers {
		if n == nil {
			return ErrMalformedSignals
		}
	}
	for _, c := range ps.OutputCommitments {
		if c == nil {
			return ErrMalformedSignals
		}
	}
	return nil
}

// ParseSignals rebuilds a PublicSignals from the flattened decimal-string
// form, checking the count against the variant layout.
func ParseSignals(v Variant, raw []string) (*PublicSignals, error) {
	if !v.Valid() || len(raw) != v.NumSignals() {
		return nil, ErrMalformedSignals
	}
	parsed := make([]*big.Int, len(raw))
	for i, s := range raw {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, ErrMalformedSignals
		}
		parsed[i] = n
	}
	ps := &PublicSignals{
		Root:              parsed[0],
		PublicAmount:      parsed[1],
		ExtDataHash:       parsed[2],
		InputNullifiers:   parsed[3 : 3+v.NumInputs()],
		OutputCommitments: parsed[3+v.NumInputs():],
	}
	return ps, nil
}
