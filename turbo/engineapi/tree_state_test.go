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

func TestTreeStateInsertAndLookup(t *testing.T) {
	ts := NewTreeState()
	genesis := libcommon.Hash{0x01}
	chain := testChain(3, genesis)
	for _, b := range chain {
		ts.InsertExecuted(b)
	}
	require.Equal(t, 3, ts.Len())

	got, ok := ts.BlockByHash(chain[1].Hash())
	require.True(t, ok)
	require.Equal(t, chain[1].Number(), got.Number())

	_, ok = ts.BlockByHash(libcommon.Hash{0xff})
	require.False(t, ok)
}

func TestTreeStateInsertDuplicatePanics(t *testing.T) {
	ts := NewTreeState()
	chain := testChain(1, libcommon.Hash{})
	ts.InsertExecuted(chain[0])
	require.Panics(t, func() { ts.InsertExecuted(chain[0]) })
}

func TestTreeStateRemoveBefore(t *testing.T) {
	ts := NewTreeState()
	chain := testChain(5, libcommon.Hash{})
	for _, b := range chain {
		ts.InsertExecuted(b)
	}

	ts.RemoveBefore(3)
	require.Equal(t, 3, ts.Len())
	for _, b := range chain[:2] {
		_, ok := ts.BlockByHash(b.Hash())
		require.False(t, ok, "block below cutoff should be gone")
	}
	for _, b := range chain[2:] {
		_, ok := ts.BlockByHash(b.Hash())
		require.True(t, ok, "block at or above cutoff should remain")
	}
}

func TestTreeStateAncestorChain(t *testing.T) {
	ts := NewTreeState()
	genesis := libcommon.Hash{0xaa}
	chain := testChain(4, genesis)
	// Only insert the first three. The walk starts from the third (the
	// fourth's parent, as a state-provider lookup for the fourth would pass
	// it), surfaces all in-tree ancestors and stops at genesis once it
	// leaves the tree.
	for _, b := range chain[:3] {
		ts.InsertExecuted(b)
	}

	ancestors, root := ts.AncestorChain(chain[2].Hash())
	require.Len(t, ancestors, 3)
	require.Equal(t, chain[0].Hash(), ancestors[0].Hash())
	require.Equal(t, chain[2].Hash(), ancestors[2].Hash())
	require.Equal(t, genesis, root)
}

func TestTreeStateAncestorChainUnknownHash(t *testing.T) {
	ts := NewTreeState()
	unknown := libcommon.Hash{0x42}
	ancestors, root := ts.AncestorChain(unknown)
	require.Empty(t, ancestors)
	require.Equal(t, unknown, root)
}

func TestTreeStateMultipleBlocksAtSameNumber(t *testing.T) {
	ts := NewTreeState()
	genesis := libcommon.Hash{0x01}
	a := testExecutedBlock(types.BlockNumber(1), genesis)
	b := testExecutedBlock(types.BlockNumber(1), genesis)
	b.Block.Block.Header.Time++ // force a different hash from a, same parent/number
	b.Block.Block.Hash = b.Block.Block.Header.Hash()

	ts.InsertExecuted(a)
	ts.InsertExecuted(b)
	require.Equal(t, 2, ts.Len())
	require.NotEqual(t, a.Hash(), b.Hash())
}
