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

// Package engineapi is the tree handler: the single-owner actor that
// mediates between the consensus client's engine-API calls and the
// in-memory chain tree, the state overlay and the executor.
package engineapi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/chain"
	log "github.com/erigontech/erigon-lib/log/v3"
	"github.com/holiman/uint256"

	"github.com/erigontech/engine-tree/consensus"
	"github.com/erigontech/engine-tree/core"
	"github.com/erigontech/engine-tree/core/state"
	"github.com/erigontech/engine-tree/core/types"
	"github.com/erigontech/engine-tree/turbo/engineapi/engine_types"
)

// HistoricalLookup is the handler's window onto committed (non-overlay)
// chain data: the persistent store, reachable only through this contract.
type HistoricalLookup interface {
	BlockNumberByHash(h libcommon.Hash) (types.BlockNumber, bool, error)
	StateProviderAt(h libcommon.Hash) (state.StateProvider, error)
}

// defaultBackfillThreshold is the distance (in blocks) between the
// canonical tip and an incoming forkchoice head beyond which the handler
// requests a full backfill run instead of block-by-block sync.
const defaultBackfillThreshold = 32

// EngineTreeHandler orchestrates on_new_payload, on_forkchoice_updated and
// on_downloaded. It owns the tree state, invalid-header cache and detached
// block buffer, and holds shared-immutable references to its collaborators.
type EngineTreeHandler struct {
	config            *chain.Config
	rules             consensus.Rules
	executorProvider  core.ExecutorProvider
	payloadValidator  core.PayloadValidator
	historical        HistoricalLookup
	logger            log.Logger

	treeState      *TreeState
	invalidHeaders *InvalidHeaderCache
	buffer         *DetachedBlockBuffer
	forkchoice     *ForkchoiceStateTracker

	canonicalHash     libcommon.Hash
	canonicalNumber   types.BlockNumber
	pipelineActive    bool
	backfillThreshold uint64
}

// NewEngineTreeHandler builds a handler whose canonical tip starts at
// (genesisHash, genesisNumber) — normally genesis itself, or the tip
// recovered from a prior run.
func NewEngineTreeHandler(
	cfg *chain.Config,
	rules consensus.Rules,
	executorProvider core.ExecutorProvider,
	payloadValidator core.PayloadValidator,
	historical HistoricalLookup,
	genesisHash libcommon.Hash,
	genesisNumber types.BlockNumber,
	logger log.Logger,
) *EngineTreeHandler {
	return &EngineTreeHandler{
		config:            cfg,
		rules:             rules,
		executorProvider:  executorProvider,
		payloadValidator:  payloadValidator,
		historical:        historical,
		logger:            logger,
		treeState:         NewTreeState(),
		invalidHeaders:    NewInvalidHeaderCache(),
		buffer:            NewDetachedBlockBuffer(),
		forkchoice:        NewForkchoiceStateTracker(),
		canonicalHash:     genesisHash,
		canonicalNumber:   genesisNumber,
		backfillThreshold: defaultBackfillThreshold,
	}
}

// SetPipelineActive is called by the driver when backfill starts/stops.
func (h *EngineTreeHandler) SetPipelineActive(active bool) { h.pipelineActive = active }

func (h *EngineTreeHandler) PipelineActive() bool { return h.pipelineActive }

// OnNewPayload validates and inserts a freshly announced execution payload,
// answering with its resulting PayloadStatus.
func (h *EngineTreeHandler) OnNewPayload(payload *types.ExecutionPayload, cancunFields *types.CancunPayloadFields) (engine_types.TreeOutcome[engine_types.PayloadStatus], error) {
	block, err := h.payloadValidator.EnsureWellFormedPayload(payload, cancunFields)
	if err != nil {
		pve, ok := err.(*core.PayloadValidationError)
		if !ok {
			return engine_types.TreeOutcome[engine_types.PayloadStatus]{}, fmt.Errorf("OnNewPayload: %w", err)
		}
		h.logger.Warn("[OnNewPayload] well-formedness check failed", "hash", payload.BlockHash.Hex(), "reason", pve.Reason)
		var lvh *libcommon.Hash
		if !pve.LatestValidHashNil {
			lvh = h.latestValidHashForInvalidPayload(payload.ParentHash)
		}
		return engine_types.NewOutcome(engine_types.Invalid(lvh, pve.Reason)), nil
	}

	if invalid, lvh := h.checkInvalidAncestor(block); invalid {
		h.logger.Warn("[OnNewPayload] invalid ancestor", "hash", block.Hash().Hex())
		return engine_types.NewOutcome(engine_types.Invalid(lvh, "invalid ancestor")), nil
	}

	if h.pipelineActive {
		if err := h.validateBlockConsensus(block); err != nil {
			h.invalidHeaders.Insert(block.Hash(), block.Block.Header)
			return engine_types.NewOutcome(engine_types.Invalid(h.latestValidHashForInvalidPayload(payload.ParentHash), err.Error())), nil
		}
		h.buffer.InsertBlock(block)
		h.logger.Debug("[OnNewPayload] pipeline active, buffered", "hash", block.Hash().Hex())
		return engine_types.NewOutcome(engine_types.Syncing()), nil
	}

	result, err := h.insertBlock(block)
	if err != nil {
		if ce, ok := err.(*consensus.Error); ok {
			return engine_types.NewOutcome(engine_types.Invalid(h.latestValidHashForInvalidPayload(payload.ParentHash), ce.Error())), nil
		}
		return engine_types.TreeOutcome[engine_types.PayloadStatus]{}, fmt.Errorf("OnNewPayload: %w", err)
	}

	var status engine_types.PayloadStatus
	switch result.Status {
	case engine_types.BlockStatusValid:
		status = engine_types.Valid(block.Hash())
	case engine_types.BlockStatusDisconnected:
		status = engine_types.Syncing()
	}

	outcome := engine_types.NewOutcome(status)
	if status.Status == engine_types.PayloadStatusValid {
		if target, ok := h.forkchoice.SyncTargetHead(); ok && target == block.Hash() {
			hash := block.Hash()
			outcome = outcome.WithEvent(engine_types.TreeEvent{MakeCanonical: &hash})
		}
	}
	return outcome, nil
}

// checkInvalidAncestor reports whether block descends from a known-bad
// header, consulting the detached-buffer chain first and falling back to
// the block's direct parent.
func (h *EngineTreeHandler) checkInvalidAncestor(block *types.SealedBlockWithSenders) (invalid bool, latestValidHash *libcommon.Hash) {
	anchor := block.ParentHash()
	if lowest, ok := h.buffer.LowestAncestor(block.Hash()); ok {
		anchor = lowest.ParentHash()
	}
	invalidHeader, ok := h.invalidHeaders.Get(anchor)
	if !ok {
		return false, nil
	}
	h.invalidHeaders.InsertWithInvalidAncestor(block.Hash(), anchor)
	return true, h.prepareInvalidResponse(invalidHeader.ParentHash)
}

// insertBlock validates, executes and records a block whose parent is
// already connected to the tree or the persisted chain.
func (h *EngineTreeHandler) insertBlock(b *types.SealedBlockWithSenders) (engine_types.InsertPayloadOk, error) {
	if _, ok := h.treeState.BlockByHash(b.Hash()); ok {
		return engine_types.InsertPayloadOk{AlreadySeen: true, Status: engine_types.BlockStatusValid}, nil
	}

	if err := h.validateBlockConsensus(b); err != nil {
		h.invalidHeaders.Insert(b.Hash(), b.Block.Header)
		return engine_types.InsertPayloadOk{}, err
	}

	provider, connected, err := h.stateProviderFor(b.ParentHash())
	if err != nil {
		return engine_types.InsertPayloadOk{}, &consensus.ProviderError{Reason: "state_provider", Err: err}
	}
	if !connected {
		if _, already := h.treeState.BlockByHash(b.Hash()); !already {
			h.buffer.InsertBlock(b)
		}
		return engine_types.InsertPayloadOk{Status: engine_types.BlockStatusDisconnected}, nil
	}

	outcome, err := h.executorProvider.Executor().Execute(b, nil, provider)
	if err != nil {
		return engine_types.InsertPayloadOk{}, &consensus.ExecutionError{Reason: "execute", Err: err}
	}

	if err := h.rules.ValidateBlockPostExecution(b, outcome); err != nil {
		h.invalidHeaders.Insert(b.Hash(), b.Block.Header)
		return engine_types.InsertPayloadOk{}, err
	}

	hashedState := types.NewHashedPostState(outcome.StateDiff)
	trie := &types.TrieUpdates{StateRoot: computeStateRoot(hashedState)}
	if trie.StateRoot != b.Block.Header.StateRoot {
		h.invalidHeaders.Insert(b.Hash(), b.Block.Header)
		return engine_types.InsertPayloadOk{}, consensus.NewError("state root mismatch: header %s, computed %s", b.Block.Header.StateRoot.Hex(), trie.StateRoot.Hex())
	}

	executed := &types.ExecutedBlock{Block: b, ExecutionOutcome: outcome, HashedPostState: hashedState, TrieUpdates: trie}
	h.treeState.InsertExecuted(executed)
	h.logger.Debug("[OnNewPayload] inserted", "hash", b.Hash().Hex(), "number", b.Number())
	return engine_types.InsertPayloadOk{Status: engine_types.BlockStatusValid}, nil
}

// terminalTotalDifficultySentinel stands in for the parent's accumulated
// total difficulty. The engine API only ever runs post-merge, so total
// difficulty has unconditionally crossed the configured terminal threshold
// already; this mirrors validate_block in the reference tree handler, which
// passes U256::MAX for the same reason rather than tracking real totals.
func terminalTotalDifficultySentinel() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// validateBlockConsensus runs the three checks a block must pass before it
// is either inserted or buffered: header self-consistency, the
// proof-of-work-to-proof-of-stake total-difficulty rule, and header+body
// pre-execution agreement (tx/ommers/withdrawals roots, blob-gas cap).
func (h *EngineTreeHandler) validateBlockConsensus(b *types.SealedBlockWithSenders) error {
	if err := h.rules.ValidateHeaderWithTotalDifficulty(b.Block.Header, terminalTotalDifficultySentinel()); err != nil {
		return err
	}
	if err := h.rules.ValidateHeader(b.Block.Header); err != nil {
		return err
	}
	return h.rules.ValidateBlockPreExecution(b)
}

// stateProviderFor builds the overlay for parentHash: blocks_by_hash is
// walked from parent to root, collecting overlay blocks oldest-first, then
// the historical provider is obtained for the root's parent hash. connected
// is false when parentHash is reachable by neither the tree nor history.
func (h *EngineTreeHandler) stateProviderFor(parentHash libcommon.Hash) (state.StateProvider, bool, error) {
	overlayBlocks, root := h.treeState.AncestorChain(parentHash)
	if len(overlayBlocks) == 0 {
		// parentHash itself wasn't in the tree; root == parentHash.
		if _, ok, err := h.historical.BlockNumberByHash(root); err != nil {
			return nil, false, err
		} else if !ok {
			return nil, false, nil
		}
		historical, err := h.historical.StateProviderAt(root)
		if err != nil {
			return nil, false, err
		}
		return historical, true, nil
	}
	if _, ok, err := h.historical.BlockNumberByHash(root); err != nil {
		return nil, false, err
	} else if !ok {
		return nil, false, nil
	}
	historical, err := h.historical.StateProviderAt(root)
	if err != nil {
		return nil, false, err
	}
	return state.NewMemoryOverlayStateProvider(overlayBlocks, historical), true, nil
}

// isKnownHash reports whether hash is reachable via the tree or the
// persistent store.
func (h *EngineTreeHandler) isKnownHash(hash libcommon.Hash) bool {
	if _, ok := h.treeState.BlockByHash(hash); ok {
		return true
	}
	_, ok, err := h.historical.BlockNumberByHash(hash)
	return err == nil && ok
}

// latestValidHashForInvalidPayload walks back from parentHash to find the
// deepest ancestor this node can vouch for, per the engine-API's
// latestValidHash contract for rejected payloads.
func (h *EngineTreeHandler) latestValidHashForInvalidPayload(parentHash libcommon.Hash) *libcommon.Hash {
	return h.prepareInvalidResponse(parentHash)
}

// prepareInvalidResponse performs the terminal-PoW zero-hash substitution,
// then walks the invalid-cache parent chain looking for the deepest ancestor
// known to the tree or store with no invalid ancestor between itself and
// the starting hash.
func (h *EngineTreeHandler) prepareInvalidResponse(parentHash libcommon.Hash) *libcommon.Hash {
	cur := parentHash
	if block, ok := h.treeState.BlockByHash(cur); ok && !block.Block.Block.Header.IsZeroDifficulty() {
		cur = libcommon.Hash{}
	}
	for {
		if h.isKnownHash(cur) {
			return &cur
		}
		invalidHeader, ok := h.invalidHeaders.Get(cur)
		if !ok {
			return nil
		}
		cur = invalidHeader.ParentHash
	}
}

// OnForkchoiceUpdated updates the canonical head/safe/finalized triple and,
// when attrs is non-nil, returns a payload identifier for the new head; no
// payload is built here.
func (h *EngineTreeHandler) OnForkchoiceUpdated(fcs engine_types.ForkchoiceState, attrs *engine_types.PayloadAttributes) (engine_types.TreeOutcome[engine_types.OnForkChoiceUpdated], error) {
	if fcs.HeadHash == (libcommon.Hash{}) {
		return engine_types.NewOutcome(engine_types.OnForkChoiceUpdated{PayloadStatus: engine_types.Invalid(nil, "forkchoice head is zero hash")}), nil
	}

	if invalidHeader, ok := h.invalidHeaders.Get(fcs.HeadHash); ok {
		lvh := h.prepareInvalidResponse(invalidHeader.ParentHash)
		return engine_types.NewOutcome(engine_types.OnForkChoiceUpdated{PayloadStatus: engine_types.Invalid(lvh, "invalid ancestor")}), nil
	}

	h.forkchoice.SetReceived(fcs)

	if !h.isKnownHash(fcs.HeadHash) {
		h.logger.Info("[OnForkchoiceUpdated] unknown head, requesting download", "hash", fcs.HeadHash.Hex())
		hash := fcs.HeadHash
		return engine_types.NewOutcome(engine_types.OnForkChoiceUpdated{PayloadStatus: engine_types.Syncing()}).
			WithEvent(engine_types.TreeEvent{Download: &engine_types.DownloadRequest{Hash: hash}}), nil
	}

	headNumber, err := h.numberOf(fcs.HeadHash)
	if err != nil {
		return engine_types.TreeOutcome[engine_types.OnForkChoiceUpdated]{}, fmt.Errorf("OnForkchoiceUpdated: %w", err)
	}

	if headNumber > h.canonicalNumber && headNumber-h.canonicalNumber > h.backfillThreshold {
		h.logger.Info("[OnForkchoiceUpdated] head beyond backfill threshold", "head", fcs.HeadHash.Hex(), "distance", headNumber-h.canonicalNumber)
		return engine_types.NewOutcome(engine_types.OnForkChoiceUpdated{PayloadStatus: engine_types.Syncing()}).
			WithEvent(engine_types.TreeEvent{BackfillAction: &engine_types.BackfillAction{Kind: engine_types.BackfillStart, Target: fcs.HeadHash}}), nil
	}

	finalizedNumber, err := h.numberOf(fcs.FinalizedHash)
	if err == nil && fcs.FinalizedHash != (libcommon.Hash{}) {
		if !h.isAncestor(fcs.FinalizedHash, fcs.HeadHash) {
			return engine_types.NewOutcome(engine_types.OnForkChoiceUpdated{PayloadStatus: engine_types.Invalid(nil, "finalized hash is not an ancestor of head")}), nil
		}
	}

	h.canonicalHash = fcs.HeadHash
	h.canonicalNumber = headNumber
	h.forkchoice.SetSynced(fcs)
	if fcs.FinalizedHash != (libcommon.Hash{}) {
		h.treeState.RemoveBefore(finalizedNumber)
		h.buffer.RemoveBelow(finalizedNumber)
	}

	result := engine_types.OnForkChoiceUpdated{PayloadStatus: engine_types.Valid(fcs.HeadHash)}
	if attrs != nil {
		id := h.buildPayloadID(fcs, attrs)
		result.PayloadID = &id
	}
	return engine_types.NewOutcome(result), nil
}

func (h *EngineTreeHandler) numberOf(hash libcommon.Hash) (types.BlockNumber, error) {
	if block, ok := h.treeState.BlockByHash(hash); ok {
		return block.Number(), nil
	}
	num, ok, err := h.historical.BlockNumberByHash(hash)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("unknown hash %s", hash.Hex())
	}
	return num, nil
}

// isAncestor walks the tree from descendant toward ancestor, following
// parent hashes, stopping once the chain leaves the in-memory tree (at
// which point it only checks that ancestor is present in the persisted
// chain, which is canonical by construction; block numbers are not compared).
func (h *EngineTreeHandler) isAncestor(ancestor, descendant libcommon.Hash) bool {
	if ancestor == descendant {
		return true
	}
	cur := descendant
	for {
		block, ok := h.treeState.BlockByHash(cur)
		if !ok {
			// Left the in-memory tree; ancestor is presumed already
			// committed to the persistent chain it descends from.
			_, known, err := h.historical.BlockNumberByHash(ancestor)
			return err == nil && known
		}
		if block.ParentHash() == ancestor {
			return true
		}
		cur = block.ParentHash()
	}
}

// buildPayloadID is a stable, deterministic stand-in for payload-builder
// identifier allocation; forwarding attrs to an external builder is out of
// scope: the pipeline/builder exist only as opaque contracts here.
func (h *EngineTreeHandler) buildPayloadID(fcs engine_types.ForkchoiceState, attrs *engine_types.PayloadAttributes) uint64 {
	digest := libcommon.Keccak256(fcs.HeadHash.Bytes(), []byte(fmt.Sprintf("%d", attrs.Timestamp)))
	return uint256.NewInt(0).SetBytes(digest[:8]).Uint64()
}

// CommitCanonical is called by the driver after acting on a MakeCanonical
// event (from OnNewPayload or OnDownloaded) to record the new canonical tip.
func (h *EngineTreeHandler) CommitCanonical(hash libcommon.Hash) error {
	num, err := h.numberOf(hash)
	if err != nil {
		return fmt.Errorf("CommitCanonical: %w", err)
	}
	h.canonicalHash = hash
	h.canonicalNumber = num
	return nil
}

// CanonicalTip returns the handler's current notion of the canonical head.
func (h *EngineTreeHandler) CanonicalTip() (libcommon.Hash, types.BlockNumber) {
	return h.canonicalHash, h.canonicalNumber
}

// OnDownloaded processes a batch of blocks retrieved by backfill/download,
// returning a MakeCanonical event if any of them completes the sync target.
func (h *EngineTreeHandler) OnDownloaded(blocks []*types.SealedBlockWithSenders) *engine_types.TreeEvent {
	var madeCanonical *libcommon.Hash
	for _, b := range blocks {
		if err := h.validateBlockConsensus(b); err != nil {
			h.invalidHeaders.Insert(b.Hash(), b.Block.Header)
			continue
		}
		if invalid, _ := h.checkInvalidAncestor(b); invalid {
			continue
		}

		result, err := h.insertBlock(b)
		if err != nil {
			h.logger.Warn("[OnDownloaded] insert failed", "hash", b.Hash().Hex(), "err", err)
			continue
		}
		if result.Status == engine_types.BlockStatusValid {
			if target, ok := h.forkchoice.SyncTargetHead(); ok && target == b.Hash() {
				hash := b.Hash()
				madeCanonical = &hash
			}
		}
	}
	if madeCanonical != nil {
		return &engine_types.TreeEvent{MakeCanonical: madeCanonical}
	}
	return nil
}

// computeStateRoot is a stand-in for the real Merkle-Patricia trie root
// computation (out of scope, see the data-model Non-goals): a deterministic
// hash over the hashed post-state's accounts (address hash, nonce, balance,
// code hash), enough to detect an account-level disagreement between what
// execution produced and what the header claims. Storage slots do not
// contribute to it.
func computeStateRoot(hps *types.HashedPostState) libcommon.Hash {
	if len(hps.Accounts) == 0 {
		return types.EmptyRootHash
	}
	keys := make([]libcommon.Hash, 0, len(hps.Accounts))
	for addrHash := range hps.Accounts {
		keys = append(keys, addrHash)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i].Bytes(), keys[j].Bytes()) < 0 })

	buf := make([]byte, 0, 64*len(keys))
	for _, addrHash := range keys {
		acc := hps.Accounts[addrHash]
		buf = append(buf, addrHash.Bytes()...)
		var nonceBuf [8]byte
		binary.BigEndian.PutUint64(nonceBuf[:], acc.Nonce)
		buf = append(buf, nonceBuf[:]...)
		if acc.Balance != nil {
			balanceBuf := acc.Balance.Bytes32()
			buf = append(buf, balanceBuf[:]...)
		}
		buf = append(buf, acc.CodeHash.Bytes()...)
	}
	return libcommon.Keccak256Hash(buf)
}
