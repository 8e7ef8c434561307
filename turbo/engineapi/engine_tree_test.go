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
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	libcommon "github.com/erigontech/erigon-lib/common"
	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/erigontech/engine-tree/consensus"
	"github.com/erigontech/engine-tree/core"
	"github.com/erigontech/engine-tree/core/state"
	"github.com/erigontech/engine-tree/core/types"
	"github.com/erigontech/engine-tree/turbo/engineapi/engine_types"
)

// fakeRules accepts everything unless told otherwise, so scenario tests only
// need to override the one check they're exercising.
type fakeRules struct {
	rejectHeader          error
	rejectTotalDifficulty error
	rejectPreExecution    error
	rejectPostExecution   error
}

func (r *fakeRules) ValidateHeader(*types.Header) error { return r.rejectHeader }
func (r *fakeRules) ValidateHeaderWithTotalDifficulty(*types.Header, *uint256.Int) error {
	return r.rejectTotalDifficulty
}
func (r *fakeRules) ValidateBlockPreExecution(*types.SealedBlockWithSenders) error {
	return r.rejectPreExecution
}
func (r *fakeRules) ValidateBlockPostExecution(*types.SealedBlockWithSenders, *types.ExecutionOutcome) error {
	return r.rejectPostExecution
}

var _ consensus.Rules = (*fakeRules)(nil)

// fakeExecutor always reports an empty state diff, so computeStateRoot
// yields types.EmptyRootHash; test blocks are built with that as their
// header's StateRoot to match.
type fakeExecutor struct{}

func (fakeExecutor) Execute(block *types.SealedBlockWithSenders, _ *uint256.Int, _ state.StateProvider) (*types.ExecutionOutcome, error) {
	return &types.ExecutionOutcome{
		BlockNumber: block.Number(),
		StateDiff:   types.NewStateDiff(),
		Receipts:    []*types.Receipt{{CumulativeGasUsed: block.Block.Header.GasUsed}},
	}, nil
}

type fakeExecutorProvider struct{}

func (fakeExecutorProvider) Executor() core.Executor { return fakeExecutor{} }

var _ core.ExecutorProvider = fakeExecutorProvider{}

// fakeHistorical treats one hash (usually genesis) as the sole known root;
// everything else is unreachable.
type fakeHistorical struct {
	knownRoot libcommon.Hash
	knownNum  types.BlockNumber
}

func (h fakeHistorical) BlockNumberByHash(hash libcommon.Hash) (types.BlockNumber, bool, error) {
	if hash == h.knownRoot {
		return h.knownNum, true, nil
	}
	return 0, false, nil
}

func (h fakeHistorical) StateProviderAt(hash libcommon.Hash) (state.StateProvider, error) {
	if hash != h.knownRoot {
		return nil, errors.New("fakeHistorical: unknown root")
	}
	return fakeStateProvider{}, nil
}

var _ HistoricalLookup = fakeHistorical{}

type fakeStateProvider struct{}

func (fakeStateProvider) Account(libcommon.Address) (*types.Account, bool, error) { return nil, false, nil }
func (fakeStateProvider) Storage(libcommon.Address, libcommon.Hash) (libcommon.Hash, bool, error) {
	return libcommon.Hash{}, false, nil
}
func (fakeStateProvider) Bytecode(libcommon.Hash) ([]byte, error) { return nil, nil }
func (fakeStateProvider) BlockHash(types.BlockNumber) (libcommon.Hash, bool, error) {
	return libcommon.Hash{}, false, nil
}

func newHandler(t *testing.T, genesisHash libcommon.Hash, genesisNumber types.BlockNumber, rules consensus.Rules, validator core.PayloadValidator) *EngineTreeHandler {
	t.Helper()
	return NewEngineTreeHandler(
		nil,
		rules,
		fakeExecutorProvider{},
		validator,
		fakeHistorical{knownRoot: genesisHash, knownNum: genesisNumber},
		genesisHash,
		genesisNumber,
		log.New(),
	)
}

func TestEngineTreeOnDownloadedInsertsValidBlock(t *testing.T) {
	genesis := libcommon.Hash{0x01}
	h := newHandler(t, genesis, 0, &fakeRules{}, nil)

	block := testSealedBlock(1, genesis)
	block.Block.Header.StateRoot = types.EmptyRootHash
	block.Block.Hash = block.Block.Header.Hash()

	h.forkchoice.SetReceived(engine_types.ForkchoiceState{HeadHash: block.Hash()})

	ev := h.OnDownloaded([]*types.SealedBlockWithSenders{block})
	require.NotNil(t, ev)
	require.NotNil(t, ev.MakeCanonical)
	require.Equal(t, block.Hash(), *ev.MakeCanonical)
	require.Equal(t, 1, h.treeState.Len())
}

func TestEngineTreeOnDownloadedRejectsInvalidHeader(t *testing.T) {
	genesis := libcommon.Hash{0x02}
	h := newHandler(t, genesis, 0, &fakeRules{rejectHeader: errors.New("bad header")}, nil)

	block := testSealedBlock(1, genesis)
	ev := h.OnDownloaded([]*types.SealedBlockWithSenders{block})

	require.Nil(t, ev)
	require.Equal(t, 0, h.treeState.Len())
	_, cached := h.invalidHeaders.Get(block.Hash())
	require.True(t, cached)
}

func TestEngineTreeOnDownloadedRejectsBadTotalDifficulty(t *testing.T) {
	genesis := libcommon.Hash{0x09}
	h := newHandler(t, genesis, 0, &fakeRules{rejectTotalDifficulty: errors.New("post-merge header has non-zero difficulty")}, nil)

	block := testSealedBlock(1, genesis)
	ev := h.OnDownloaded([]*types.SealedBlockWithSenders{block})

	require.Nil(t, ev)
	require.Equal(t, 0, h.treeState.Len())
	_, cached := h.invalidHeaders.Get(block.Hash())
	require.True(t, cached)
}

func TestEngineTreeOnDownloadedStateRootMismatch(t *testing.T) {
	genesis := libcommon.Hash{0x03}
	h := newHandler(t, genesis, 0, &fakeRules{}, nil)

	block := testSealedBlock(1, genesis)
	block.Block.Header.StateRoot = libcommon.Hash{0xff} // doesn't match the empty post-state
	block.Block.Hash = block.Block.Header.Hash()

	ev := h.OnDownloaded([]*types.SealedBlockWithSenders{block})
	require.Nil(t, ev)
	require.Equal(t, 0, h.treeState.Len())
}

func TestEngineTreeOnForkchoiceUpdatedZeroHeadIsInvalid(t *testing.T) {
	h := newHandler(t, libcommon.Hash{0x01}, 0, &fakeRules{}, nil)
	outcome, err := h.OnForkchoiceUpdated(engine_types.ForkchoiceState{}, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusInvalid, outcome.Outcome.PayloadStatus.Status)
}

func TestEngineTreeOnForkchoiceUpdatedUnknownHeadRequestsDownload(t *testing.T) {
	genesis := libcommon.Hash{0x01}
	h := newHandler(t, genesis, 0, &fakeRules{}, nil)

	unknown := libcommon.Hash{0x99}
	outcome, err := h.OnForkchoiceUpdated(engine_types.ForkchoiceState{HeadHash: unknown}, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusSyncing, outcome.Outcome.PayloadStatus.Status)
	require.NotNil(t, outcome.Event)
	require.NotNil(t, outcome.Event.Download)
	require.Equal(t, unknown, outcome.Event.Download.Hash)
}

func TestEngineTreeOnForkchoiceUpdatedKnownHeadCommits(t *testing.T) {
	genesis := libcommon.Hash{0x01}
	h := newHandler(t, genesis, 0, &fakeRules{}, nil)

	block := testSealedBlock(1, genesis)
	block.Block.Header.StateRoot = types.EmptyRootHash
	block.Block.Hash = block.Block.Header.Hash()
	h.treeState.InsertExecuted(&types.ExecutedBlock{
		Block:            block,
		ExecutionOutcome: &types.ExecutionOutcome{BlockNumber: 1},
		HashedPostState:  &types.HashedPostState{},
		TrieUpdates:      &types.TrieUpdates{},
	})

	outcome, err := h.OnForkchoiceUpdated(engine_types.ForkchoiceState{HeadHash: block.Hash()}, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusValid, outcome.Outcome.PayloadStatus.Status)
	gotHash, gotNumber := h.CanonicalTip()
	require.Equal(t, block.Hash(), gotHash)
	require.Equal(t, types.BlockNumber(1), gotNumber)
}

func TestEngineTreeOnForkchoiceUpdatedBeyondBackfillThresholdStartsBackfill(t *testing.T) {
	genesis := libcommon.Hash{0x01}
	h := newHandler(t, genesis, 0, &fakeRules{}, nil)
	h.backfillThreshold = 2

	far := libcommon.Hash{0x77}
	h.treeState.InsertExecuted(&types.ExecutedBlock{
		Block: &types.SealedBlockWithSenders{
			Block: &types.SealedBlock{Header: &types.Header{Number: 100}, Hash: far},
		},
		ExecutionOutcome: &types.ExecutionOutcome{BlockNumber: 100},
		HashedPostState:  &types.HashedPostState{},
		TrieUpdates:      &types.TrieUpdates{},
	})

	outcome, err := h.OnForkchoiceUpdated(engine_types.ForkchoiceState{HeadHash: far}, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusSyncing, outcome.Outcome.PayloadStatus.Status)
	require.NotNil(t, outcome.Event)
	require.NotNil(t, outcome.Event.BackfillAction)
	require.Equal(t, engine_types.BackfillStart, outcome.Event.BackfillAction.Kind)
	require.Equal(t, far, outcome.Event.BackfillAction.Target)
}

func TestCommitCanonicalUnknownHashErrors(t *testing.T) {
	h := newHandler(t, libcommon.Hash{0x01}, 0, &fakeRules{}, nil)
	err := h.CommitCanonical(libcommon.Hash{0xde, 0xad})
	require.Error(t, err)
}
