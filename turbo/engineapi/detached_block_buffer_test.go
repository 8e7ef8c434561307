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

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/engine-tree/core/types"
)

func TestDetachedBlockBufferInsertAndFetch(t *testing.T) {
	buf := NewDetachedBlockBuffer()
	block := testSealedBlock(10, libcommon.Hash{0x01})

	buf.InsertBlock(block)
	require.Equal(t, 1, buf.Len())

	got, ok := buf.Block(block.Hash())
	require.True(t, ok)
	require.Equal(t, block.Number(), got.Number())
}

func TestDetachedBlockBufferInsertIsIdempotent(t *testing.T) {
	buf := NewDetachedBlockBuffer()
	block := testSealedBlock(1, libcommon.Hash{})

	buf.InsertBlock(block)
	buf.InsertBlock(block)
	require.Equal(t, 1, buf.Len())
}

func TestDetachedBlockBufferLowestAncestor(t *testing.T) {
	buf := NewDetachedBlockBuffer()
	root := libcommon.Hash{0xaa}
	b1 := testSealedBlock(1, root)
	b2 := testSealedBlock(2, b1.Hash())
	b3 := testSealedBlock(3, b2.Hash())

	buf.InsertBlock(b2)
	buf.InsertBlock(b3)
	buf.InsertBlock(b1)

	lowest, ok := buf.LowestAncestor(b3.Hash())
	require.True(t, ok)
	require.Equal(t, b1.Hash(), lowest.Hash())
}

func TestDetachedBlockBufferLowestAncestorUnknown(t *testing.T) {
	buf := NewDetachedBlockBuffer()
	_, ok := buf.LowestAncestor(libcommon.Hash{0x01})
	require.False(t, ok)
}

func TestDetachedBlockBufferRemoveBelow(t *testing.T) {
	buf := NewDetachedBlockBuffer()
	root := libcommon.Hash{}
	blocks := make([]*types.SealedBlockWithSenders, 0, 5)
	parent := root
	for i := types.BlockNumber(1); i <= 5; i++ {
		b := testSealedBlock(i, parent)
		blocks = append(blocks, b)
		buf.InsertBlock(b)
		parent = b.Hash()
	}

	buf.RemoveBelow(3)
	require.Equal(t, 3, buf.Len())
	for _, b := range blocks[:2] {
		_, ok := buf.Block(b.Hash())
		require.False(t, ok)
	}
	for _, b := range blocks[2:] {
		_, ok := buf.Block(b.Hash())
		require.True(t, ok)
	}
}

func TestDetachedBlockBufferEviction(t *testing.T) {
	buf := NewDetachedBlockBuffer()
	buf.maxEntries = 2
	root := libcommon.Hash{}
	b1 := testSealedBlock(1, root)
	b2 := testSealedBlock(2, b1.Hash())
	b3 := testSealedBlock(3, b2.Hash())

	buf.InsertBlock(b1)
	buf.InsertBlock(b2)
	buf.InsertBlock(b3)

	require.Equal(t, 2, buf.Len())
	_, ok := buf.Block(b1.Hash())
	require.False(t, ok, "oldest entry should have been evicted")
}
