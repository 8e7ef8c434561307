// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package engineapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/erigontech/erigon-lib/chain"
	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/kv"
	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/erigontech/engine-tree/core/types"
	"github.com/erigontech/engine-tree/turbo/adapter"
	"github.com/erigontech/engine-tree/turbo/engineapi/engine_types"
	"github.com/erigontech/engine-tree/turbo/execution/eth1"
	"github.com/erigontech/engine-tree/turbo/stages/headerdownload"
)

// Backfiller starts a backfill run toward target; the actual batches it
// retrieves are reported back into the tree through whatever sink the
// Backfiller was wired with at construction (see PipelineBackfiller), not
// through this call itself. StartBackfill returns once the run has finished
// or failed; the driver clears the tree's pipeline-active flag when it returns.
type Backfiller interface {
	StartBackfill(ctx context.Context, fromExclusive types.BlockNumber, target libcommon.Hash) error
	Running() bool
}

// EngineServer is the request-facing side of the engine API: it serializes
// concurrent engine_* calls through a single mutex (the tree handler itself
// assumes a single owner, see EngineTreeHandler), converts wire-shaped
// requests/forkchoice state into tree operations, and drives outstanding
// TreeEvents to completion.
type EngineServer struct {
	mu     sync.Mutex
	tree   *EngineTreeHandler
	config *chain.Config
	logger log.Logger

	db          kv.RoDB
	blockReader eth1.BlockReader

	downloader *headerdownload.BeaconRequestList
	backfiller Backfiller
	events     *adapter.EventFeed
	propagate  adapter.BlockPropagator
}

func NewEngineServer(
	tree *EngineTreeHandler,
	config *chain.Config,
	db kv.RoDB,
	blockReader eth1.BlockReader,
	downloader *headerdownload.BeaconRequestList,
	backfiller Backfiller,
	events *adapter.EventFeed,
	propagate adapter.BlockPropagator,
	logger log.Logger,
) *EngineServer {
	return &EngineServer{
		tree:        tree,
		config:      config,
		db:          db,
		blockReader: blockReader,
		downloader:  downloader,
		backfiller:  backfiller,
		events:      events,
		propagate:   propagate,
		logger:      logger,
	}
}

func (s *EngineServer) checkWithdrawalsPresence(time uint64, withdrawals []*types.Withdrawal) error {
	if !s.config.IsShanghai(time) && withdrawals != nil {
		return fmt.Errorf("withdrawals before shanghai")
	}
	if s.config.IsShanghai(time) && withdrawals == nil {
		return fmt.Errorf("missing withdrawals list")
	}
	return nil
}

// newPayload is the version-agnostic core of engine_newPayloadVX.
func (s *EngineServer) newPayload(ctx context.Context, payload *types.ExecutionPayload, cancunFields *types.CancunPayloadFields) (*engine_types.PayloadStatus, error) {
	if err := s.checkWithdrawalsPresence(payload.Timestamp, payload.Withdrawals); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, err := s.tree.OnNewPayload(payload, cancunFields)
	if err != nil {
		return nil, fmt.Errorf("engine_newPayload: %w", err)
	}
	s.logger.Debug("[NewPayload] result", "hash", payload.BlockHash.Hex(), "status", outcome.Outcome.Status.String())

	if outcome.Outcome.Status == engine_types.PayloadStatusInvalid && s.events != nil {
		s.events.Publish(adapter.ConsensusEngineEvent{Kind: adapter.EventInvalidBlock, InvalidHash: payload.BlockHash})
	}

	s.handleEvent(ctx, outcome.Event)
	status := outcome.Outcome
	return &status, nil
}

func (s *EngineServer) NewPayloadV1(ctx context.Context, payload *types.ExecutionPayload) (*engine_types.PayloadStatus, error) {
	return s.newPayload(ctx, payload, nil)
}

func (s *EngineServer) NewPayloadV2(ctx context.Context, payload *types.ExecutionPayload) (*engine_types.PayloadStatus, error) {
	return s.newPayload(ctx, payload, nil)
}

func (s *EngineServer) NewPayloadV3(ctx context.Context, payload *types.ExecutionPayload, cancunFields *types.CancunPayloadFields) (*engine_types.PayloadStatus, error) {
	return s.newPayload(ctx, payload, cancunFields)
}

// forkchoiceUpdated is the version-agnostic core of engine_forkchoiceUpdatedVX.
func (s *EngineServer) forkchoiceUpdated(ctx context.Context, state engine_types.ForkchoiceState, attrs *engine_types.PayloadAttributes) (*engine_types.OnForkChoiceUpdated, error) {
	if attrs != nil {
		hasWithdrawals := attrs.WithdrawalsHash != nil
		if !s.config.IsShanghai(attrs.Timestamp) && hasWithdrawals {
			return nil, fmt.Errorf("withdrawals before shanghai")
		}
		if s.config.IsShanghai(attrs.Timestamp) && !hasWithdrawals {
			return nil, fmt.Errorf("missing withdrawals for payload attributes")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, err := s.tree.OnForkchoiceUpdated(state, attrs)
	if err != nil {
		return nil, fmt.Errorf("engine_forkchoiceUpdated: %w", err)
	}
	s.logger.Debug("[ForkchoiceUpdated] result", "head", state.HeadHash.Hex(), "status", outcome.Outcome.PayloadStatus.Status.String())

	if outcome.Outcome.PayloadStatus.Status == engine_types.PayloadStatusValid && s.events != nil {
		s.events.Publish(adapter.ConsensusEngineEvent{Kind: adapter.EventCanonicalChainCommitted, CommittedHead: state.HeadHash})
	}

	s.handleEvent(ctx, outcome.Event)
	result := outcome.Outcome
	return &result, nil
}

func (s *EngineServer) ForkchoiceUpdatedV1(ctx context.Context, state engine_types.ForkchoiceState, attrs *engine_types.PayloadAttributes) (*engine_types.OnForkChoiceUpdated, error) {
	return s.forkchoiceUpdated(ctx, state, attrs)
}

func (s *EngineServer) ForkchoiceUpdatedV2(ctx context.Context, state engine_types.ForkchoiceState, attrs *engine_types.PayloadAttributes) (*engine_types.OnForkChoiceUpdated, error) {
	return s.forkchoiceUpdated(ctx, state, attrs)
}

// handleEvent drives a TreeEvent to completion: requesting a download,
// kicking off backfill, or committing a canonicalization the tree already
// decided on but left to the driver to apply. Must be called with s.mu held.
func (s *EngineServer) handleEvent(_ context.Context, ev *engine_types.TreeEvent) {
	if ev == nil {
		return
	}
	switch {
	case ev.MakeCanonical != nil:
		if err := s.tree.CommitCanonical(*ev.MakeCanonical); err != nil {
			s.logger.Warn("[handleEvent] commit canonical failed", "hash", ev.MakeCanonical.Hex(), "err", err)
			return
		}
		if s.events != nil {
			s.events.Publish(adapter.ConsensusEngineEvent{Kind: adapter.EventCanonicalChainCommitted, CommittedHead: *ev.MakeCanonical})
		}
	case ev.Download != nil:
		s.downloader.RequestBlock(ev.Download.Hash)
		s.logger.Info("[handleEvent] requested download", "hash", ev.Download.Hash.Hex())
	case ev.BackfillAction != nil && ev.BackfillAction.Kind == engine_types.BackfillStart:
		if s.backfiller == nil || s.backfiller.Running() {
			return
		}
		_, fromNumber := s.tree.CanonicalTip()
		s.tree.SetPipelineActive(true)
		target := ev.BackfillAction.Target
		go func() {
			defer func() {
				s.mu.Lock()
				defer s.mu.Unlock()
				s.tree.SetPipelineActive(false)
			}()
			if err := s.backfiller.StartBackfill(context.Background(), fromNumber, target); err != nil {
				s.logger.Warn("[handleEvent] backfill failed", "err", err)
			}
		}()
	}
}

// OnBackfillBatch is the sink a Backfiller/Pipeline reports completed
// segments through: each batch is pushed into the tree via OnDownloaded and
// any resulting event (typically MakeCanonical, once the batch reaches the
// sync target) is driven the same way a request-path event would be.
func (s *EngineServer) OnBackfillBatch(blocks []*types.SealedBlockWithSenders) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.tree.OnDownloaded(blocks)
	s.handleEvent(context.Background(), ev)
}

// GetPayloadBodiesByHashV1 implements engine_getPayloadBodiesByHashV1.
func (s *EngineServer) GetPayloadBodiesByHashV1(ctx context.Context, hashes []libcommon.Hash) ([]*engine_types.ExecutionPayloadBodyV1, error) {
	tx, err := s.db.BeginRo(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetPayloadBodiesByHashV1: %w", err)
	}
	defer tx.Rollback()

	bodies := make([]*engine_types.ExecutionPayloadBodyV1, len(hashes))
	for i, hash := range hashes {
		header, ok, err := s.blockReader.HeaderByHash(tx, hash)
		if err != nil {
			return nil, fmt.Errorf("GetPayloadBodiesByHashV1: %w", err)
		}
		if !ok {
			continue
		}
		body, ok, err := s.blockReader.BodyByHash(tx, hash, header.Number)
		if err != nil {
			return nil, fmt.Errorf("GetPayloadBodiesByHashV1: %w", err)
		}
		if !ok {
			continue
		}
		bodies[i] = bodyToPayloadBody(body)
	}
	return bodies, nil
}

// GetPayloadBodiesByRangeV1 implements engine_getPayloadBodiesByRangeV1.
func (s *EngineServer) GetPayloadBodiesByRangeV1(ctx context.Context, start, count uint64) ([]*engine_types.ExecutionPayloadBodyV1, error) {
	tx, err := s.db.BeginRo(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetPayloadBodiesByRangeV1: %w", err)
	}
	defer tx.Rollback()

	bodies := make([]*engine_types.ExecutionPayloadBodyV1, 0, count)
	for n := start; n < start+count; n++ {
		hash, ok, err := s.blockReader.CanonicalHash(tx, n)
		if err != nil {
			return nil, fmt.Errorf("GetPayloadBodiesByRangeV1: %w", err)
		}
		if !ok {
			break
		}
		body, ok, err := s.blockReader.BodyByHash(tx, hash, n)
		if err != nil {
			return nil, fmt.Errorf("GetPayloadBodiesByRangeV1: %w", err)
		}
		if !ok {
			bodies = append(bodies, nil)
			continue
		}
		bodies = append(bodies, bodyToPayloadBody(body))
	}
	return bodies, nil
}

func bodyToPayloadBody(body *types.Body) *engine_types.ExecutionPayloadBodyV1 {
	txs := make([][]byte, len(body.Transactions))
	for i, tx := range body.Transactions {
		txs[i] = tx.Raw
	}
	return &engine_types.ExecutionPayloadBodyV1{Transactions: txs, Withdrawals: body.Withdrawals}
}

// ExchangeTransitionConfigurationV1 is a pre-merge handshake the consensus
// client still calls post-merge out of habit; this echoes back the TTD this
// node is configured with so the caller can confirm agreement.
func (s *EngineServer) ExchangeTransitionConfigurationV1(ctx context.Context, requested engine_types.TransitionConfiguration) (engine_types.TransitionConfiguration, error) {
	var ttd uint64
	if s.config.TerminalTotalDifficulty != nil {
		ttd = *s.config.TerminalTotalDifficulty
	}
	if requested.TerminalTotalDifficulty != ttd {
		s.logger.Warn("[ExchangeTransitionConfiguration] mismatched TTD", "ours", ttd, "theirs", requested.TerminalTotalDifficulty)
	}
	return engine_types.TransitionConfiguration{TerminalTotalDifficulty: ttd}, nil
}

// ExchangeCapabilities reports the engine_* methods this server implements.
func (s *EngineServer) ExchangeCapabilities(_ []string) []string {
	return []string{
		"engine_newPayloadV1", "engine_newPayloadV2", "engine_newPayloadV3",
		"engine_forkchoiceUpdatedV1", "engine_forkchoiceUpdatedV2",
		"engine_exchangeTransitionConfigurationV1",
		"engine_getPayloadBodiesByHashV1", "engine_getPayloadBodiesByRangeV1",
	}
}
