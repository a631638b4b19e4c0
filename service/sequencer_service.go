package service

import (
	"context"

	"github.com/zkpool/zkpool/bridge"
	"github.com/zkpool/zkpool/log"
	"github.com/zkpool/zkpool/pool"
	"github.com/zkpool/zkpool/sequencer"
	"github.com/zkpool/zkpool/storage"
)

// SequencerService handles background transaction and deposit processing.
type SequencerService struct {
	sequencer *sequencer.Sequencer
}

// NewSequencer creates a new sequencer instance. It drains the queued
// transactions and deposits from storage, verifies their proofs with the
// given number of workers and applies them to the pool. The bridge adapter
// may be nil, in which case no deposit processing runs.
func NewSequencer(stg *storage.Storage, p *pool.Pool, adapter *bridge.Adapter, workers int) *SequencerService {
	s, err := sequencer.New(stg, p, adapter, workers)
	if err != nil {
		log.Fatalf("failed to create sequencer: %v", err)
	}
	return &SequencerService{
		sequencer: s,
	}
}

// Start begins the transaction processing service. It returns an error if the
// service is already running.
func (ss *SequencerService) Start(ctx context.Context) error {
	return ss.sequencer.Start(ctx)
}

// Stop halts the transaction processing service.
func (ss *SequencerService) Stop() {
	if err := ss.sequencer.Stop(); err != nil {
		log.Warnw("sequencer service stopped", "error", err)
	}
}
