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

func TestInvalidHeaderCacheInsertAndGet(t *testing.T) {
	c := NewInvalidHeaderCache()
	hash := libcommon.Hash{0x01}
	header := &types.Header{ParentHash: libcommon.Hash{0x02}, Number: 5}

	_, ok := c.Get(hash)
	require.False(t, ok)

	c.Insert(hash, header)
	got, ok := c.Get(hash)
	require.True(t, ok)
	require.Equal(t, header, got)
	require.Equal(t, 1, c.Len())
}

func TestInvalidHeaderCacheInsertWithInvalidAncestor(t *testing.T) {
	c := NewInvalidHeaderCache()
	ancestor := libcommon.Hash{0xaa}
	head := libcommon.Hash{0xbb}

	c.InsertWithInvalidAncestor(head, ancestor)
	got, ok := c.Get(head)
	require.True(t, ok)
	require.Equal(t, ancestor, got.ParentHash)
}

func TestInvalidHeaderCacheEviction(t *testing.T) {
	c := NewInvalidHeaderCache()
	for i := 0; i < defaultInvalidHeaderCacheSize+10; i++ {
		c.Insert(libcommon.Hash{byte(i), byte(i >> 8)}, &types.Header{Number: types.BlockNumber(i)})
	}
	require.Equal(t, defaultInvalidHeaderCacheSize, c.Len())
}
