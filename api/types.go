package api

import (
	"github.com/zkpool/zkpool/types"
)

// TransactionResponse is returned after a transaction or deposit submission.
type TransactionResponse struct {
	TxHash types.HexBytes `json:"txHash"`
	Status string         `json:"status"`
}

// PoolInfo summarizes the public pool state.
type PoolInfo struct {
	Root                *types.BigInt `json:"root"`
	LeafCount           uint32        `json:"leafCount"`
	Capacity            uint32        `json:"capacity"`
	Custody             *types.BigInt `json:"custody"`
	PendingTransactions int           `json:"pendingTransactions"`
}

// RootInfo reports whether a root is still spendable-against.
type RootInfo struct {
	Root  *types.BigInt `json:"root"`
	Known bool          `json:"known"`
}
