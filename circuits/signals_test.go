package circuits

import (
	"math/big"
	"strconv"
	"testing"

	qt "github.com/frankban/quicktest"
)

func testSignals(v Variant) *PublicSignals {
	ps := &PublicSignals{
		Root:         big.NewInt(111),
		PublicAmount: big.NewInt(5_000_000),
		ExtDataHash:  big.NewInt(222),
	}
	for i := 0; i < v.NumInputs(); i++ {
		ps.InputNullifiers = append(ps.InputNullifiers, big.NewInt(int64(1000+i)))
	}
	for i := 0; i < v.NumOutputs(); i++ {
		ps.OutputCommitments = append(ps.OutputCommitments, big.NewInt(int64(2000+i)))
	}
	return ps
}

func TestVariantForInputs(t *testing.T) {
	c := qt.New(t)

	v, err := VariantForInputs(1)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, VariantTx2)

	v, err = VariantForInputs(2)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, VariantTx2)

	v, err = VariantForInputs(3)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, VariantTx16)

	_, err = VariantForInputs(17)
	c.Assert(err, qt.IsNotNil)

	c.Assert(VariantTx2.NumSignals(), qt.Equals, 7)
	c.Assert(VariantTx16.NumSignals(), qt.Equals, 21)
	c.Assert(Variant(42).Valid(), qt.IsFalse)
}

func TestSignalShapeChecks(t *testing.T) {
	c := qt.New(t)

	for _, v := range []Variant{VariantTx2, VariantTx16} {
		ps := testSignals(v)
		c.Assert(ps.CheckShape(v), qt.IsNil, qt.Commentf("variant %s", v))
		c.Assert(len(ps.Slice()), qt.Equals, v.NumSignals())
	}

	// wrong variant for the arity
	ps := testSignals(VariantTx2)
	c.Assert(ps.CheckShape(VariantTx16), qt.ErrorIs, ErrMalformedSignals)

	// nil entries
	ps = testSignals(VariantTx2)
	ps.InputNullifiers[1] = nil
	c.Assert(ps.CheckShape(VariantTx2), qt.ErrorIs, ErrMalformedSignals)

	ps = testSignals(VariantTx2)
	ps.Root = nil
	c.Assert(ps.CheckShape(VariantTx2), qt.ErrorIs, ErrMalformedSignals)

	c.Assert(testSignals(VariantTx2).CheckShape(Variant(42)), qt.ErrorIs, ErrMalformedSignals)
}

func TestParseSignalsRoundTrip(t *testing.T) {
	c := qt.New(t)

	for _, v := range []Variant{VariantTx2, VariantTx16} {
		ps := testSignals(v)
		parsed, err := ParseSignals(v, ps.Strings())
		c.Assert(err, qt.IsNil)
		c.Assert(parsed.Strings(), qt.DeepEquals, ps.Strings())
	}

	_, err := ParseSignals(VariantTx2, testSignals(VariantTx16).Strings())
	c.Assert(err, qt.ErrorIs, ErrMalformedSignals)

	bad := testSignals(VariantTx2).Strings()
	bad[0] = "not-a-number"
	_, err = ParseSignals(VariantTx2, bad)
	c.Assert(err, qt.ErrorIs, ErrMalformedSignals)
}

func TestMockProverVerifierRoundTrip(t *testing.T) {
	c := qt.New(t)

	ps := testSignals(VariantTx2)
	inputs := map[string]any{
		"root":         ps.Root.String(),
		"publicAmount": ps.PublicAmount.String(),
		"extDataHash":  ps.ExtDataHash.String(),
		"inputNullifier": []string{
			ps.InputNullifiers[0].String(),
			ps.InputNullifiers[1].String(),
		},
		"outputCommitment": []string{
			ps.OutputCommitments[0].String(),
			ps.OutputCommitments[1].String(),
		},
	}
	proof, signals, err := MockProver{}.Prove(VariantTx2, inputs)
	c.Assert(err, qt.IsNil)
	c.Assert(signals, qt.DeepEquals, ps.Strings())

	c.Assert(MockVerifier{}.Verify(VariantTx2, proof, ps), qt.IsNil)

	// any signal change invalidates the proof
	tampered := testSignals(VariantTx2)
	tampered.PublicAmount = big.NewInt(1)
	c.Assert(MockVerifier{}.Verify(VariantTx2, proof, tampered), qt.IsNotNil)

	// a proof for one variant never verifies under the other
	ps16 := testSignals(VariantTx16)
	inputs16 := map[string]any{
		"root":         ps16.Root.String(),
		"publicAmount": ps16.PublicAmount.String(),
		"extDataHash":  ps16.ExtDataHash.String(),
	}
	nulls := make([]string, 0, VariantTx16.NumInputs())
	for _, n := range ps16.InputNullifiers {
		nulls = append(nulls, n.String())
	}
	inputs16["inputNullifier"] = nulls
	inputs16["outputCommitment"] = []string{
		ps16.OutputCommitments[0].String(),
		ps16.OutputCommitments[1].String(),
	}
	proof16, _, err := MockProver{}.Prove(VariantTx16, inputs16)
	c.Assert(err, qt.IsNil)
	c.Assert(MockVerifier{}.Verify(VariantTx2, proof16, testSignals(VariantTx2)), qt.IsNotNil)
}

func TestArtifactsForVariant(t *testing.T) {
	c := qt.New(t)

	for _, v := range []Variant{VariantTx2, VariantTx16} {
		arts, err := ArtifactsForVariant(v)
		c.Assert(err, qt.IsNil)
		for i, a := range []*Artifact{arts.wasm, arts.provingKey, arts.verifyingKey} {
			c.Assert(a.RemoteURL, qt.Not(qt.Equals), "", qt.Commentf("artifact %s", strconv.Itoa(i)))
			c.Assert(a.Hash, qt.HasLen, 32)
		}
	}
	_, err := ArtifactsForVariant(Variant(42))
	c.Assert(err, qt.IsNotNil)
}
