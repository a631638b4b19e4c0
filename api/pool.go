package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/zkpool/zkpool/bridge"
	"github.com/zkpool/zkpool/pool"
	"github.com/zkpool/zkpool/storage"
	"github.com/zkpool/zkpool/types"
)

// submitTransaction enqueues a transaction for the sequencer.
// POST /transactions
func (a *API) submitTransaction(w http.ResponseWriter, r *http.Request) {
	tx := &pool.Transaction{}
	if err := json.NewDecoder(r.Body).Decode(tx); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	// only the shape is validated here; admission happens asynchronously
	if err := tx.PublicSignals().CheckShape(tx.Variant); err != nil {
		ErrMalformedSignals.WithErr(err).Write(w)
		return
	}
	hash, err := a.storage.PushTransaction(tx)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not push transaction: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &TransactionResponse{TxHash: hash, Status: storage.TxStatusPending})
}

// transactionStatus returns the status and, when applied, the receipt of a
// submitted transaction.
// GET /transactions/{txHash}
func (a *API) transactionStatus(w http.ResponseWriter, r *http.Request) {
	hash := types.HexBytes{}
	if err := hash.SetString(urlParam(r, TxHashURLParam)); err != nil {
		ErrMalformedTxHash.WithErr(err).Write(w)
		return
	}
	status, err := a.storage.TransactionStatus(hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrTransactionNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, status)
}

// poolInfo returns the public pool state summary.
// GET /pool
func (a *API) poolInfo(w http.ResponseWriter, _ *http.Request) {
	pending, err := a.storage.CountPendingTransactions()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &PoolInfo{
		Root:                (*types.BigInt)(a.pool.Root()),
		LeafCount:           a.pool.LeafCount(),
		Capacity:            types.MerkleTreeCapacity,
		Custody:             (*types.BigInt)(a.pool.Custody()),
		PendingTransactions: pending,
	})
}

// poolRoot reports whether the given root, as a decimal field element, is
// within the spendable history window.
// GET /pool/root/{root}
func (a *API) poolRoot(w http.ResponseWriter, r *http.Request) {
	root, ok := new(big.Int).SetString(urlParam(r, RootURLParam), 10)
	if !ok {
		ErrMalformedRoot.With("expected a decimal field element").Write(w)
		return
	}
	httpWriteJSON(w, &RootInfo{
		Root:  (*types.BigInt)(root),
		Known: a.pool.IsKnownRoot(root),
	})
}

// submitDeposit enqueues a confirmed bridged deposit for the sequencer.
// POST /deposits
func (a *API) submitDeposit(w http.ResponseWriter, r *http.Request) {
	dep := &bridge.Deposit{}
	if err := json.NewDecoder(r.Body).Decode(dep); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if dep.Amount == nil || dep.Amount.MathBigInt().Sign() <= 0 {
		ErrMalformedDeposit.With("amount must be positive").Write(w)
		return
	}
	if len(dep.EncodedPayload) == 0 {
		ErrMalformedDeposit.With("missing encoded payload").Write(w)
		return
	}
	key, err := a.storage.PushDeposit(dep)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not push deposit: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &TransactionResponse{TxHash: key, Status: storage.TxStatusPending})
}
