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
	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/core/types"
)

// defaultBufferMaxEntries bounds how many detached blocks are held before
// the oldest are evicted.
const defaultBufferMaxEntries = 4096

// DetachedBlockBuffer holds validated-but-unconnected blocks, navigable by
// ancestor: given any hash, the lowest-numbered buffered block reachable by
// following parent hashes within the buffer.
type DetachedBlockBuffer struct {
	blocks      map[libcommon.Hash]*types.SealedBlockWithSenders
	insertOrder []libcommon.Hash // oldest first, for eviction
	maxEntries  int
}

func NewDetachedBlockBuffer() *DetachedBlockBuffer {
	return &DetachedBlockBuffer{
		blocks:     make(map[libcommon.Hash]*types.SealedBlockWithSenders),
		maxEntries: defaultBufferMaxEntries,
	}
}

// InsertBlock stores b; idempotent on (hash, number).
func (b *DetachedBlockBuffer) InsertBlock(block *types.SealedBlockWithSenders) {
	h := block.Hash()
	if _, exists := b.blocks[h]; exists {
		return
	}
	b.blocks[h] = block
	b.insertOrder = append(b.insertOrder, h)
	if len(b.insertOrder) > b.maxEntries {
		oldest := b.insertOrder[0]
		b.insertOrder = b.insertOrder[1:]
		delete(b.blocks, oldest)
	}
}

// Block returns the buffered block for h, if any.
func (b *DetachedBlockBuffer) Block(h libcommon.Hash) (*types.SealedBlockWithSenders, bool) {
	blk, ok := b.blocks[h]
	return blk, ok
}

// LowestAncestor starting at h, follows parent hashes within the buffer only
// and returns the lowest-numbered buffered block along that chain. Returns
// false iff h is not in the buffer and no ancestor of h is either.
func (b *DetachedBlockBuffer) LowestAncestor(h libcommon.Hash) (*types.SealedBlockWithSenders, bool) {
	cur, ok := b.blocks[h]
	if !ok {
		return nil, false
	}
	for {
		parent, ok := b.blocks[cur.ParentHash()]
		if !ok {
			return cur, true
		}
		cur = parent
	}
}

// RemoveBelow drops buffered blocks with number < n, for post-finalization cleanup.
func (b *DetachedBlockBuffer) RemoveBelow(n types.BlockNumber) {
	kept := b.insertOrder[:0]
	for _, h := range b.insertOrder {
		blk := b.blocks[h]
		if blk.Number() < n {
			delete(b.blocks, h)
			continue
		}
		kept = append(kept, h)
	}
	b.insertOrder = kept
}

func (b *DetachedBlockBuffer) Len() int { return len(b.blocks) }
