package pool

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/zkpool/zkpool/circuits"
	"github.com/zkpool/zkpool/log"
	"github.com/zkpool/zkpool/merkle"
	"github.com/zkpool/zkpool/types"
)

// Config bounds what the pool will accept. Zero values disable the
// corresponding bound except RootHistorySize, which falls back to the
// default window.
type Config struct {
	// MinWithdrawAmount is the smallest absolute value a withdrawal may
	// move out of the pool.
	MinWithdrawAmount *big.Int
	// MaxDepositAmount is the largest value a single deposit may add.
	MaxDepositAmount *big.Int
	// RootHistorySize is how many recent roots remain spendable-against.
	RootHistorySize int
}

// Receipt describes the state change an applied transaction produced.
type Receipt struct {
	TxHash      types.HexBytes `json:"txHash"      cbor:"0,keyasint"`
	LeafIndices []uint32       `json:"leafIndices" cbor:"1,keyasint"`
	NewRoot     *types.BigInt  `json:"newRoot"     cbor:"2,keyasint"`
	Custody     *types.BigInt  `json:"custody"     cbor:"3,keyasint"`
	// Release is set when the transaction withdrew value and the bridge
	// must pay out on the external ledger. Nil for deposits and internal
	// transfers.
	Release *Release `json:"release,omitempty" cbor:"4,keyasint,omitempty"`
}

// Release is an outbound payment order for the bridge adapter. Amount goes
// to the recipient; Fee, when non-zero, goes to the relayer that submitted
// the transaction.
type Release struct {
	Recipient types.HexBytes `json:"recipient"     cbor:"0,keyasint"`
	Amount    *types.BigInt  `json:"amount"        cbor:"1,keyasint"`
	Relayer   types.HexBytes `json:"relayer,omitempty" cbor:"2,keyasint,omitempty"`
	Fee       *types.BigInt  `json:"fee,omitempty" cbor:"3,keyasint,omitempty"`
}

// Persister stores applied state changes and recovers them on restart. An
// implementation must make ApplyTx atomic: either the whole receipt is
// durable or none of it.
type Persister interface {
	ApplyTx(tx *Transaction, receipt *Receipt) error
	LoadState() (*Snapshot, error)
}

// Snapshot is the durable pool state a Persister hands back on recovery.
// Leaves are commitments in insertion order.
type Snapshot struct {
	Leaves     []*types.BigInt
	Nullifiers []*types.BigInt
	Custody    *types.BigInt
}

// Pool is the shielded value pool: an append-only commitment tree, the set
// of spent nullifiers, and the custody balance backing every note. All
// mutation is serialized under a single lock; proof verification is the
// only expensive step and callers may run it outside via VerifyProof.
type Pool struct {
	mtx        sync.Mutex
	cfg        Config
	tree       *merkle.Tree
	nullifiers map[string]struct{}
	custody    *big.Int
	verifier   circuits.Verifier
	persister  Persister
}

// New creates an empty pool. The persister may be nil for in-memory use.
func New(cfg Config, verifier circuits.Verifier, persister Persister) (*Pool, error) {
	if cfg.RootHistorySize == 0 {
		cfg.RootHistorySize = types.DefaultRootHistorySize
	}
	tree, err := merkle.New(types.MerkleTreeLevels, cfg.RootHistorySize)
	if err != nil {
		return nil, err
	}
	return &Pool{
		cfg:        cfg,
		tree:       tree,
		nullifiers: make(map[string]struct{}),
		custody:    big.NewInt(0),
		verifier:   verifier,
		persister:  persister,
	}, nil
}

// Load creates a pool and replays the persisted state into it.
func Load(cfg Config, verifier circuits.Verifier, persister Persister) (*Pool, error) {
	p, err := New(cfg, verifier, persister)
	if err != nil {
		return nil, err
	}
	snap, err := persister.LoadState()
	if err != nil {
		return nil, fmt.Errorf("cannot load pool state: %w", err)
	}
	if snap == nil {
		return p, nil
	}
	if len(snap.Leaves)%2 != 0 {
		return nil, fmt.Errorf("corrupt pool state: odd leaf count %d", len(snap.Leaves))
	}
	for i := 0; i < len(snap.Leaves); i += 2 {
		if _, _, err := p.tree.InsertPair(
			snap.Leaves[i].MathBigInt(),
			snap.Leaves[i+1].MathBigInt(),
		); err != nil {
			return nil, fmt.Errorf("cannot replay leaf pair %d: %w", i, err)
		}
	}
	for _, n := range snap.Nullifiers {
		p.nullifiers[string(n.Bytes())] = struct{}{}
	}
	if snap.Custody != nil {
		p.custody = snap.Custody.MathBigInt()
	}
	log.Infow("pool state recovered",
		"leaves", len(snap.Leaves),
		"nullifiers", len(snap.Nullifiers),
		"custody", p.custody.String())
	return p, nil
}

// Root returns the current accumulator root.
func (p *Pool) Root() *big.Int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.tree.Root()
}

// IsKnownRoot reports whether root is inside the spendable history window.
func (p *Pool) IsKnownRoot(root *big.Int) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.tree.IsKnownRoot(root)
}

// IsSpent reports whether a nullifier has been recorded.
func (p *Pool) IsSpent(nullifier *big.Int) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	_, ok := p.nullifiers[string(nullifier.Bytes())]
	return ok
}

// Custody returns the pool's backing balance.
func (p *Pool) Custody() *big.Int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return new(big.Int).Set(p.custody)
}

// LeafCount returns the number of commitments inserted so far.
func (p *Pool) LeafCount() uint32 {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.tree.LeafCount()
}

// GenerateProof builds a membership proof for the leaf at index against the
// current root.
func (p *Pool) GenerateProof(index uint32) (*merkle.Proof, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.tree.GenerateProof(index)
}

// VerifyProof checks the transaction's zero-knowledge proof against its
// public signals. It is stateless and safe to call concurrently, so callers
// can verify many transactions in parallel before submitting them.
func (p *Pool) VerifyProof(tx *Transaction) error {
	signals := tx.PublicSignals()
	if err := signals.CheckShape(tx.Variant); err != nil {
		return err
	}
	if err := p.verifier.Verify(tx.Variant, tx.Proof, signals); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}

// Submit runs the full admission pipeline and, if every check passes,
// applies the transaction atomically. The proof is verified inside the
// lock; use SubmitVerified after a successful VerifyProof to skip the
// duplicate check.
func (p *Pool) Submit(tx *Transaction) (*Receipt, error) {
	return p.submit(tx, true)
}

// SubmitVerified applies a transaction whose proof the caller has already
// checked with VerifyProof. All stateful admission checks still run.
func (p *Pool) SubmitVerified(tx *Transaction) (*Receipt, error) {
	return p.submit(tx, false)
}

func (p *Pool) submit(tx *Transaction, checkProof bool) (*Receipt, error) {
	signals := tx.PublicSignals()
	if err := signals.CheckShape(tx.Variant); err != nil {
		return nil, err
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	// Root must be within the history window.
	if !p.tree.IsKnownRoot(tx.Root.MathBigInt()) {
		return nil, ErrStaleRoot
	}

	// Every input nullifier must be fresh, including against the other
	// nullifiers of this same transaction.
	seen := make(map[string]struct{}, len(tx.InputNullifiers))
	for _, n := range tx.InputNullifiers {
		key := string(n.Bytes())
		if _, ok := p.nullifiers[key]; ok {
			return nil, ErrDoubleSpend
		}
		if _, ok := seen[key]; ok {
			return nil, ErrDoubleSpend
		}
		seen[key] = struct{}{}
	}

	amount := tx.Amount()
	if err := p.checkAmountBounds(amount); err != nil {
		return nil, err
	}

	// The extData must be the one the proof committed to, and the public
	// amount must match what the extData declares.
	if err := checkExtDataBinding(tx, amount); err != nil {
		return nil, err
	}

	if checkProof {
		if err := p.verifier.Verify(tx.Variant, tx.Proof, signals); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
	}

	// A withdrawal cannot take out more than the pool holds.
	newCustody := new(big.Int).Add(p.custody, amount)
	if newCustody.Sign() < 0 {
		return nil, ErrInsufficientPoolLiquidity
	}

	// All checks passed: apply. InsertPair fails without mutating when the
	// tree is full, so ordering it first keeps the apply atomic.
	li, ri, err := p.tree.InsertPair(
		tx.OutputCommitments[0].MathBigInt(),
		tx.OutputCommitments[1].MathBigInt(),
	)
	if err != nil {
		return nil, err
	}
	for key := range seen {
		p.nullifiers[key] = struct{}{}
	}
	p.custody = newCustody

	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("cannot hash transaction: %w", err)
	}
	receipt := &Receipt{
		TxHash:      hash,
		LeafIndices: []uint32{li, ri},
		NewRoot:     (*types.BigInt)(p.tree.Root()),
		Custody:     (*types.BigInt)(new(big.Int).Set(p.custody)),
	}
	if amount.Sign() < 0 {
		receipt.Release = &Release{
			Recipient: tx.ExtData.Recipient.Bytes(),
			Amount:    (*types.BigInt)(new(big.Int).Neg(tx.ExtData.Amount())),
		}
		if fee := tx.ExtData.Fee.MathBigInt(); fee.Sign() > 0 {
			receipt.Release.Relayer = tx.ExtData.Relayer.Bytes()
			receipt.Release.Fee = (*types.BigInt)(fee)
		}
	}

	if p.persister != nil {
		if err := p.persister.ApplyTx(tx, receipt); err != nil {
			// Persist failure after in-memory mutation would desync state;
			// treat it as fatal for this process.
			log.Errorw(err, "failed to persist applied transaction")
			return nil, fmt.Errorf("cannot persist transaction: %w", err)
		}
	}

	log.Debugw("transaction applied",
		"tx", hash.String(),
		"variant", tx.Variant.String(),
		"publicAmount", amount.String(),
		"leafIndex", li,
		"custody", p.custody.String())
	return receipt, nil
}

func (p *Pool) checkAmountBounds(amount *big.Int) error {
	switch {
	case amount.Sign() < 0:
		if p.cfg.MinWithdrawAmount != nil {
			if new(big.Int).Neg(amount).Cmp(p.cfg.MinWithdrawAmount) < 0 {
				return ErrAmountOutOfRange
			}
		}
	case amount.Sign() > 0:
		if p.cfg.MaxDepositAmount != nil {
			if amount.Cmp(p.cfg.MaxDepositAmount) > 0 {
				return ErrAmountOutOfRange
			}
		}
	}
	return nil
}

func checkExtDataBinding(tx *Transaction, amount *big.Int) error {
	if tx.ExtData == nil {
		return fmt.Errorf("%w: missing extData", ErrInvalidProof)
	}
	hash, err := tx.ExtData.Hash()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if hash.Cmp(tx.ExtDataHash.MathBigInt()) != 0 {
		return fmt.Errorf("%w: extData hash mismatch", ErrInvalidProof)
	}
	declared := new(big.Int).Sub(tx.ExtData.Amount(), tx.ExtData.Fee.MathBigInt())
	if declared.Cmp(amount) != 0 {
		return fmt.Errorf("%w: publicAmount does not match extData", ErrInvalidProof)
	}
	return nil
}
