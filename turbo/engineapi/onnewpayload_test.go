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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/erigon-lib/chain"
	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/consensus"
	"github.com/erigontech/engine-tree/core"
	"github.com/erigontech/engine-tree/core/types"
	"github.com/erigontech/engine-tree/turbo/engineapi/engine_types"
)

// realPayloadValidator builds the production PayloadValidator against a
// chain config with every fork inactive, so the well-formedness checks these
// tests exercise (hash equality, versioned hashes) aren't entangled with
// fork-gated field requirements.
func realPayloadValidator() core.PayloadValidator {
	return core.NewPayloadValidator(&chain.Config{}, func(raw []byte) (types.Transaction, error) {
		return types.Transaction{Raw: raw}, nil
	})
}

// testPayload builds a well-formed ExecutionPayload on top of parent, with
// BlockHash computed the same way defaultPayloadValidator builds its header
// for a pre-London/Shanghai/Cancun chain (no BaseFee, no WithdrawalsHash, no
// ParentBeaconBlockRoot): StateRoot is EmptyRootHash so it lines up with
// fakeExecutor's empty state diff.
func testPayload(number uint64, parent libcommon.Hash) *types.ExecutionPayload {
	p := &types.ExecutionPayload{
		ParentHash:  parent,
		StateRoot:   types.EmptyRootHash,
		BlockNumber: number,
		Timestamp:   1700000000 + number,
	}
	header := &types.Header{
		ParentHash: p.ParentHash,
		Number:     p.BlockNumber,
		StateRoot:  p.StateRoot,
		Time:       p.Timestamp,
	}
	p.BlockHash = header.Hash()
	return p
}

func TestOnNewPayloadValidBlockMatchesSyncTargetBecomesCanonical(t *testing.T) {
	genesis := libcommon.Hash{0x10}
	h := newHandler(t, genesis, 0, &fakeRules{}, realPayloadValidator())

	payload := testPayload(1, genesis)
	h.forkchoice.SetReceived(engine_types.ForkchoiceState{HeadHash: payload.BlockHash})

	outcome, err := h.OnNewPayload(payload, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusValid, outcome.Outcome.Status)
	require.NotNil(t, outcome.Event)
	require.NotNil(t, outcome.Event.MakeCanonical)
	require.Equal(t, payload.BlockHash, *outcome.Event.MakeCanonical)
	require.Equal(t, 1, h.treeState.Len())
}

func TestOnNewPayloadDetachedParentIsBufferedAsSyncing(t *testing.T) {
	genesis := libcommon.Hash{0x11}
	h := newHandler(t, genesis, 0, &fakeRules{}, realPayloadValidator())

	unknownParent := libcommon.Hash{0xab}
	payload := testPayload(5, unknownParent)

	outcome, err := h.OnNewPayload(payload, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusSyncing, outcome.Outcome.Status)
	require.Nil(t, outcome.Event)

	_, buffered := h.buffer.Block(payload.BlockHash)
	require.True(t, buffered, "detached block should be held in the buffer pending its ancestor")
}

func TestOnNewPayloadInvalidAncestorPropagates(t *testing.T) {
	genesis := libcommon.Hash{0x12}
	h := newHandler(t, genesis, 0, &fakeRules{}, realPayloadValidator())

	badAncestor := libcommon.Hash{0xba, 0xd}
	h.invalidHeaders.Insert(badAncestor, &types.Header{ParentHash: genesis})

	payload := testPayload(1, badAncestor)
	outcome, err := h.OnNewPayload(payload, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusInvalid, outcome.Outcome.Status)

	_, cached := h.invalidHeaders.Get(payload.BlockHash)
	require.True(t, cached, "descendant of a known-invalid header should itself be cached invalid")
}

func TestOnNewPayloadBlockHashMismatchIsInvalidWithNilLatestValidHash(t *testing.T) {
	genesis := libcommon.Hash{0x13}
	h := newHandler(t, genesis, 0, &fakeRules{}, realPayloadValidator())

	payload := testPayload(1, genesis)
	payload.BlockHash = libcommon.Hash{0xff, 0xff} // doesn't match the computed header hash

	outcome, err := h.OnNewPayload(payload, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusInvalid, outcome.Outcome.Status)
	require.Nil(t, outcome.Outcome.LatestValidHash)
}

func TestOnNewPayloadRejectsBadTotalDifficulty(t *testing.T) {
	genesis := libcommon.Hash{0x14}
	h := newHandler(t, genesis, 0, &fakeRules{rejectTotalDifficulty: consensus.NewError("post-merge header has non-zero difficulty")}, realPayloadValidator())

	payload := testPayload(1, genesis)
	outcome, err := h.OnNewPayload(payload, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusInvalid, outcome.Outcome.Status)

	_, cached := h.invalidHeaders.Get(payload.BlockHash)
	require.True(t, cached)
}

func TestOnNewPayloadPipelineActiveBuffersWellFormedBlock(t *testing.T) {
	genesis := libcommon.Hash{0x15}
	h := newHandler(t, genesis, 0, &fakeRules{}, realPayloadValidator())
	h.SetPipelineActive(true)

	payload := testPayload(1, genesis)
	outcome, err := h.OnNewPayload(payload, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusSyncing, outcome.Outcome.Status)

	_, buffered := h.buffer.Block(payload.BlockHash)
	require.True(t, buffered)
	require.Equal(t, 0, h.treeState.Len(), "pipeline-active payloads are buffered, never inserted directly")
}

func TestOnNewPayloadPipelineActiveRejectsBadConsensus(t *testing.T) {
	genesis := libcommon.Hash{0x16}
	h := newHandler(t, genesis, 0, &fakeRules{rejectPreExecution: consensus.NewError("bad withdrawals root")}, realPayloadValidator())
	h.SetPipelineActive(true)

	payload := testPayload(1, genesis)
	outcome, err := h.OnNewPayload(payload, nil)
	require.NoError(t, err)
	require.Equal(t, engine_types.PayloadStatusInvalid, outcome.Outcome.Status)

	_, buffered := h.buffer.Block(payload.BlockHash)
	require.False(t, buffered, "a block failing consensus checks must not be buffered for later replay")
}
