// Package bridge adapts the shielded pool to an external ledger. Inbound, it
// turns confirmed token deposits into pool transactions, enforcing that the
// value the ledger actually moved matches what the transaction claims.
// Outbound, it hands withdrawal releases to a message sender; delivery is
// the external ledger's problem, the pool state is already final.
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"

	"github.com/zkpool/zkpool/log"
	"github.com/zkpool/zkpool/pool"
	"github.com/zkpool/zkpool/types"
)

// ErrBridgeAmountMismatch is returned when the bridged amount differs from
// the external amount the transaction commits to. It is not retryable: the
// deposit payload itself is inconsistent.
var ErrBridgeAmountMismatch = errors.New("bridge: bridged amount does not match transaction")

// ErrWrongToken is returned for deposits of a token the pool is not
// custodian of.
var ErrWrongToken = errors.New("bridge: unexpected token address")

// Deposit is a confirmed inbound transfer from the external ledger: the
// token moved, how much of it, and the shielding transaction the depositor
// attached.
type Deposit struct {
	TokenAddress common.Address `json:"tokenAddress" cbor:"0,keyasint"`
	Amount       *types.BigInt  `json:"amount"       cbor:"1,keyasint"`
	// EncodedPayload is the CBOR-encoded pool transaction that shields the
	// deposited value.
	EncodedPayload types.HexBytes `json:"encodedPayload" cbor:"2,keyasint"`
}

// MessageSender delivers release orders to the external ledger. Send is
// fire-and-forget from the pool's perspective: the transaction that caused
// the release is already applied when Send is called.
type MessageSender interface {
	SendRelease(ctx context.Context, txHash types.HexBytes, release *pool.Release) error
}

// Adapter wires the pool to one external token ledger.
type Adapter struct {
	pool   *pool.Pool
	sender MessageSender
	token  common.Address
}

// New creates a bridge adapter for the given pool, custodied token and
// outbound sender. The sender may be nil when the node runs without an
// outbound leg.
func New(p *pool.Pool, token common.Address, sender MessageSender) *Adapter {
	return &Adapter{pool: p, sender: sender, token: token}
}

// HandleDeposit admits a confirmed inbound deposit. The bridged amount must
// equal the external amount the embedded transaction commits to; a mismatch
// is terminal and the deposit must be refunded out of band.
func (a *Adapter) HandleDeposit(ctx context.Context, dep *Deposit) (*pool.Receipt, error) {
	if dep.TokenAddress != a.token {
		return nil, fmt.Errorf("%w: got %s, pool custodies %s", ErrWrongToken,
			dep.TokenAddress.Hex(), a.token.Hex())
	}
	tx := &pool.Transaction{}
	if err := cbor.Unmarshal(dep.EncodedPayload, tx); err != nil {
		return nil, fmt.Errorf("cannot decode deposit payload: %w", err)
	}
	if tx.ExtData == nil {
		return nil, fmt.Errorf("deposit payload has no extData")
	}
	extAmount := tx.ExtData.Amount()
	if extAmount.Sign() <= 0 || extAmount.Cmp(dep.Amount.MathBigInt()) != 0 {
		return nil, fmt.Errorf("%w: bridged %s, transaction commits to %s",
			ErrBridgeAmountMismatch, dep.Amount.MathBigInt().String(), extAmount.String())
	}

	receipt, err := a.pool.Submit(tx)
	if err != nil {
		return nil, err
	}
	log.Infow("bridged deposit admitted",
		"tx", receipt.TxHash.String(),
		"amount", extAmount.String(),
		"custody", receipt.Custody.MathBigInt().String())

	// check in case a deposit transaction also withdrew; cannot happen for
	// a positive publicAmount, but the receipt is authoritative
	a.DispatchRelease(ctx, receipt)
	return receipt, nil
}

// DispatchRelease forwards the receipt's release order, if any, to the
// external ledger. Errors are logged, not returned: the pool state change
// is already final and the release can be replayed from the stored receipt.
func (a *Adapter) DispatchRelease(ctx context.Context, receipt *pool.Receipt) {
	if receipt.Release == nil || a.sender == nil {
		return
	}
	if err := a.sender.SendRelease(ctx, receipt.TxHash, receipt.Release); err != nil {
		log.Errorw(err, "failed to dispatch release order")
		return
	}
	log.Infow("release dispatched",
		"tx", receipt.TxHash.String(),
		"amount", receipt.Release.Amount.MathBigInt().String())
}

// EncodeDeposit packages a shielding transaction the way the external
// ledger's bridge contract expects it back. Used by depositor tooling.
func EncodeDeposit(token common.Address, tx *pool.Transaction) (*Deposit, error) {
	if tx.ExtData == nil {
		return nil, fmt.Errorf("transaction has no extData")
	}
	extAmount := tx.ExtData.Amount()
	if extAmount.Sign() <= 0 {
		return nil, fmt.Errorf("transaction is not a deposit")
	}
	opts := cbor.CoreDetEncOptions()
	em, err := opts.EncMode()
	if err != nil {
		return nil, err
	}
	payload, err := em.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("cannot encode transaction: %w", err)
	}
	return &Deposit{
		TokenAddress:   token,
		Amount:         (*types.BigInt)(extAmount),
		EncodedPayload: payload,
	}, nil
}
