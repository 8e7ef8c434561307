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

func testHeader(number types.BlockNumber, parent libcommon.Hash) *types.Header {
	return &types.Header{
		ParentHash: parent,
		Number:     number,
		Time:       1700000000 + number,
	}
}

func testSealedBlock(number types.BlockNumber, parent libcommon.Hash) *types.SealedBlockWithSenders {
	header := testHeader(number, parent)
	return &types.SealedBlockWithSenders{Block: types.NewSealedBlock(header, &types.Body{})}
}

func testExecutedBlock(number types.BlockNumber, parent libcommon.Hash) *types.ExecutedBlock {
	return &types.ExecutedBlock{
		Block:            testSealedBlock(number, parent),
		ExecutionOutcome: &types.ExecutionOutcome{BlockNumber: number},
		HashedPostState:  &types.HashedPostState{Accounts: map[libcommon.Hash]*types.Account{}},
		TrieUpdates:      &types.TrieUpdates{},
	}
}

// testChain builds n blocks on top of genesisHash, each parented on the
// previous, returning them oldest-first.
func testChain(n int, genesisHash libcommon.Hash) []*types.ExecutedBlock {
	blocks := make([]*types.ExecutedBlock, n)
	parent := genesisHash
	for i := 0; i < n; i++ {
		b := testExecutedBlock(types.BlockNumber(i+1), parent)
		blocks[i] = b
		parent = b.Hash()
	}
	return blocks
}
