package bridge

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/zkpool/zkpool/circuits"
	"github.com/zkpool/zkpool/log"
	"github.com/zkpool/zkpool/pool"
	"github.com/zkpool/zkpool/types"
)

func init() {
	log.Init("debug", "stderr", nil)
}

var testToken = common.HexToAddress("0x0000000000000000000000000000000000001234")

type recordingSender struct {
	hashes   []types.HexBytes
	releases []*pool.Release
	fail     error
}

func (s *recordingSender) SendRelease(_ context.Context, txHash types.HexBytes, r *pool.Release) error {
	if s.fail != nil {
		return s.fail
	}
	s.hashes = append(s.hashes, txHash)
	s.releases = append(s.releases, r)
	return nil
}

func newTestAdapter(c *qt.C, sender MessageSender) (*Adapter, *pool.Pool, *pool.TransactionBuilder) {
	p, err := pool.New(pool.Config{}, circuits.MockVerifier{}, nil)
	c.Assert(err, qt.IsNil)
	b := pool.NewTransactionBuilder(p, circuits.MockProver{})
	return New(p, testToken, sender), p, b
}

func buildDeposit(c *qt.C, b *pool.TransactionBuilder, owner *pool.Keypair, amount int64) (*pool.Transaction, *pool.Note) {
	note, err := pool.NewNote(big.NewInt(amount), owner)
	c.Assert(err, qt.IsNil)
	tx, err := b.Build(&pool.BuildParams{Outputs: []*pool.Note{note}})
	c.Assert(err, qt.IsNil)
	return tx, note
}

func TestHandleDeposit(t *testing.T) {
	c := qt.New(t)
	adapter, p, b := newTestAdapter(c, nil)
	owner, err := pool.GenerateKeypair()
	c.Assert(err, qt.IsNil)

	tx, _ := buildDeposit(c, b, owner, 5_000_000)
	dep, err := EncodeDeposit(testToken, tx)
	c.Assert(err, qt.IsNil)
	c.Assert(dep.Amount.MathBigInt().Int64(), qt.Equals, int64(5_000_000))

	receipt, err := adapter.HandleDeposit(context.Background(), dep)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.Release, qt.IsNil)
	c.Assert(p.Custody().Int64(), qt.Equals, int64(5_000_000))
}

func TestHandleDepositAmountMismatch(t *testing.T) {
	c := qt.New(t)
	adapter, p, b := newTestAdapter(c, nil)
	owner, err := pool.GenerateKeypair()
	c.Assert(err, qt.IsNil)

	tx, _ := buildDeposit(c, b, owner, 5_000_000)
	dep, err := EncodeDeposit(testToken, tx)
	c.Assert(err, qt.IsNil)

	// the ledger moved less than the transaction shields
	dep.Amount = (*types.BigInt)(big.NewInt(4_000_000))
	_, err = adapter.HandleDeposit(context.Background(), dep)
	c.Assert(err, qt.ErrorIs, ErrBridgeAmountMismatch)
	c.Assert(p.Custody().Sign(), qt.Equals, 0)
	c.Assert(p.LeafCount(), qt.Equals, uint32(0))
}

func TestHandleDepositWrongToken(t *testing.T) {
	c := qt.New(t)
	adapter, _, b := newTestAdapter(c, nil)
	owner, err := pool.GenerateKeypair()
	c.Assert(err, qt.IsNil)

	tx, _ := buildDeposit(c, b, owner, 1_000_000)
	dep, err := EncodeDeposit(common.HexToAddress("0x00000000000000000000000000000000000000ff"), tx)
	c.Assert(err, qt.IsNil)
	_, err = adapter.HandleDeposit(context.Background(), dep)
	c.Assert(err, qt.ErrorIs, ErrWrongToken)
}

func TestHandleDepositMalformedPayload(t *testing.T) {
	c := qt.New(t)
	adapter, _, _ := newTestAdapter(c, nil)
	_, err := adapter.HandleDeposit(context.Background(), &Deposit{
		TokenAddress:   testToken,
		Amount:         (*types.BigInt)(big.NewInt(1)),
		EncodedPayload: []byte{0xff, 0x00, 0x01},
	})
	c.Assert(err, qt.IsNotNil)
}

func TestDispatchRelease(t *testing.T) {
	c := qt.New(t)
	sender := &recordingSender{}
	adapter, p, b := newTestAdapter(c, sender)
	owner, err := pool.GenerateKeypair()
	c.Assert(err, qt.IsNil)

	tx, note := buildDeposit(c, b, owner, 8_000_000)
	dep, err := EncodeDeposit(testToken, tx)
	c.Assert(err, qt.IsNil)
	receipt, err := adapter.HandleDeposit(context.Background(), dep)
	c.Assert(err, qt.IsNil)
	c.Assert(sender.releases, qt.HasLen, 0) // deposits release nothing
	note.SetLeafIndex(receipt.LeafIndices[0])

	change, err := pool.NewNote(big.NewInt(3_000_000), owner)
	c.Assert(err, qt.IsNil)
	wtx, err := b.Build(&pool.BuildParams{
		Inputs:    []*pool.Note{note},
		Outputs:   []*pool.Note{change},
		Recipient: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
	})
	c.Assert(err, qt.IsNil)
	wreceipt, err := p.Submit(wtx)
	c.Assert(err, qt.IsNil)

	adapter.DispatchRelease(context.Background(), wreceipt)
	c.Assert(sender.releases, qt.HasLen, 1)
	c.Assert(sender.releases[0].Amount.MathBigInt().Int64(), qt.Equals, int64(5_000_000))
	c.Assert(sender.hashes[0], qt.DeepEquals, wreceipt.TxHash)

	// sender failure never propagates: pool state is already final
	sender.fail = context.DeadlineExceeded
	adapter.DispatchRelease(context.Background(), wreceipt)
	c.Assert(sender.releases, qt.HasLen, 1)
}
