// Package sequencer drains the submission queues into the pool. Proof
// verification, the expensive step, runs on a configurable number of
// concurrent workers; the state mutation itself is serialized by the pool,
// so admission order is whatever order workers reach the submit call in.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zkpool/zkpool/bridge"
	"github.com/zkpool/zkpool/log"
	"github.com/zkpool/zkpool/pool"
	"github.com/zkpool/zkpool/storage"
)

const tickInterval = time.Second

// Sequencer pulls pending transactions and bridged deposits from storage,
// verifies and applies them, and records the outcome.
type Sequencer struct {
	stg     *storage.Storage
	pool    *pool.Pool
	adapter *bridge.Adapter
	workers int

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a sequencer over the given storage, pool and bridge adapter.
// workers is the number of concurrent transaction processors; values below
// one are raised to one.
func New(stg *storage.Storage, p *pool.Pool, adapter *bridge.Adapter, workers int) (*Sequencer, error) {
	if stg == nil || p == nil {
		return nil, fmt.Errorf("storage and pool cannot be nil")
	}
	if workers < 1 {
		workers = 1
	}
	return &Sequencer{stg: stg, pool: p, adapter: adapter, workers: workers}, nil
}

// Start launches the background processors. They run until the context is
// canceled or Stop is called.
func (s *Sequencer) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	for i := 0; i < s.workers; i++ {
		s.startTransactionProcessor(i)
	}
	if s.adapter != nil {
		s.startDepositProcessor()
	}
	log.Infow("sequencer started", "workers", s.workers)
	return nil
}

// Stop shuts down the background processors. Safe to call multiple times.
func (s *Sequencer) Stop() error {
	if s.cancel != nil {
		s.cancel()
		log.Infow("sequencer stopped")
	}
	return nil
}

// startTransactionProcessor runs one queue worker. Each worker reserves a
// transaction, verifies its proof concurrently with the other workers, and
// then submits it; the pool serializes the final admission.
func (s *Sequencer) startTransactionProcessor(id int) {
	ticker := time.NewTicker(tickInterval)

	go func() {
		defer ticker.Stop()
		log.Debugw("transaction processor started", "worker", id)

		for {
			select {
			case <-s.ctx.Done():
				log.Debugw("transaction processor stopped", "worker", id)
				return
			default:
			}

			tx, key, err := s.stg.NextTransaction()
			if err != nil {
				if !errors.Is(err, storage.ErrNoMoreElements) {
					log.Errorw(err, "failed to get next transaction")
				} else {
					select {
					case <-ticker.C:
					case <-s.ctx.Done():
						log.Debugw("transaction processor stopped", "worker", id)
						return
					}
				}
				continue
			}

			startTime := time.Now()
			receipt, err := s.processTransaction(tx)
			if err != nil {
				log.Warnw("transaction rejected",
					"worker", id,
					"variant", tx.Variant.String(),
					"error", err.Error())
			}
			if markErr := s.stg.MarkTransactionDone(key, receipt, err); markErr != nil {
				log.Warnw("failed to mark transaction done", "error", markErr.Error())
				continue
			}
			if err == nil {
				log.Infow("transaction sequenced",
					"worker", id,
					"tx", receipt.TxHash.String(),
					"duration", time.Since(startTime).String())
				if s.adapter != nil {
					s.adapter.DispatchRelease(s.ctx, receipt)
				}
			}
		}
	}()
}

// processTransaction verifies the proof outside the pool lock, then runs the
// serialized admission.
func (s *Sequencer) processTransaction(tx *pool.Transaction) (*pool.Receipt, error) {
	if err := s.pool.VerifyProof(tx); err != nil {
		return nil, err
	}
	return s.pool.SubmitVerified(tx)
}

// startDepositProcessor drains confirmed bridged deposits. Deposits are
// processed one at a time: rejection is terminal, the bridged value must be
// refunded out of band.
func (s *Sequencer) startDepositProcessor() {
	ticker := time.NewTicker(tickInterval)

	go func() {
		defer ticker.Stop()
		log.Debugw("deposit processor started")

		for {
			select {
			case <-s.ctx.Done():
				log.Debugw("deposit processor stopped")
				return
			default:
			}

			dep, key, err := s.stg.NextDeposit()
			if err != nil {
				if !errors.Is(err, storage.ErrNoMoreElements) {
					log.Errorw(err, "failed to get next deposit")
				} else {
					select {
					case <-ticker.C:
					case <-s.ctx.Done():
						log.Debugw("deposit processor stopped")
						return
					}
				}
				continue
			}

			receipt, err := s.adapter.HandleDeposit(s.ctx, dep)
			if err != nil {
				log.Warnw("bridged deposit rejected",
					"token", dep.TokenAddress.Hex(),
					"amount", dep.Amount.MathBigInt().String(),
					"error", err.Error())
			} else {
				log.Infow("bridged deposit sequenced", "tx", receipt.TxHash.String())
			}
			if err := s.stg.MarkDepositDone(key); err != nil {
				log.Warnw("failed to mark deposit done", "error", err.Error())
			}
		}
	}()
}
