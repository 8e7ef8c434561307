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
	"fmt"
	"sort"

	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/core/types"
)

// TreeState is the canonical-tree-plus-forks index: every ExecutedBlock the
// handler currently holds in memory, indexed both by hash and by number.
type TreeState struct {
	blocksByHash   map[libcommon.Hash]*types.ExecutedBlock
	blocksByNumber map[types.BlockNumber][]*types.ExecutedBlock // insertion order preserved within a number
}

func NewTreeState() *TreeState {
	return &TreeState{
		blocksByHash:   make(map[libcommon.Hash]*types.ExecutedBlock),
		blocksByNumber: make(map[types.BlockNumber][]*types.ExecutedBlock),
	}
}

// BlockByHash is an O(1) lookup.
func (s *TreeState) BlockByHash(h libcommon.Hash) (*types.ExecutedBlock, bool) {
	b, ok := s.blocksByHash[h]
	return b, ok
}

// InsertExecuted adds e to both indices. Precondition: e.Hash() must not
// already be present — a duplicate insert is a programmer error, not a
// caller-triggerable condition, so it panics rather than returning an error.
func (s *TreeState) InsertExecuted(e *types.ExecutedBlock) {
	h := e.Hash()
	if _, exists := s.blocksByHash[h]; exists {
		panic(fmt.Sprintf("tree_state: inserted duplicate block %s", h.Hex()))
	}
	s.blocksByHash[h] = e
	s.blocksByNumber[e.Number()] = append(s.blocksByNumber[e.Number()], e)
}

// RemoveBefore deletes every entry with number < n from both indices, in
// ascending number order, and nothing else.
func (s *TreeState) RemoveBefore(n types.BlockNumber) {
	numbers := make([]types.BlockNumber, 0, len(s.blocksByNumber))
	for num := range s.blocksByNumber {
		if num < n {
			numbers = append(numbers, num)
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for _, num := range numbers {
		for _, b := range s.blocksByNumber[num] {
			delete(s.blocksByHash, b.Hash())
		}
		delete(s.blocksByNumber, num)
	}
}

// AncestorChain walks blocksByHash from h up to (but not including) the
// first hash not present in the tree, returning the collected blocks
// oldest-first, plus the hash of that first missing ancestor (the root to
// hand the historical provider — its parent, precisely).
func (s *TreeState) AncestorChain(h libcommon.Hash) (oldestFirst []*types.ExecutedBlock, historicalRoot libcommon.Hash) {
	var reversed []*types.ExecutedBlock
	cur := h
	for {
		b, ok := s.blocksByHash[cur]
		if !ok {
			historicalRoot = cur
			break
		}
		reversed = append(reversed, b)
		cur = b.ParentHash()
	}
	oldestFirst = make([]*types.ExecutedBlock, len(reversed))
	for i, b := range reversed {
		oldestFirst[len(reversed)-1-i] = b
	}
	return oldestFirst, historicalRoot
}

// Len reports the number of blocks currently held, for tests and metrics.
func (s *TreeState) Len() int { return len(s.blocksByHash) }
