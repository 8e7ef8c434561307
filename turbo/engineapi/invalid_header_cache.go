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
	lru "github.com/hashicorp/golang-lru/v2"

	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/core/types"
)

// defaultInvalidHeaderCacheSize bounds how many bad headers are remembered;
// mirrors the order of magnitude erigon's own header-download bad-header
// cache uses.
const defaultInvalidHeaderCacheSize = 256

// InvalidHeaderCache is a bounded LRU mapping a known-bad block hash to the
// header that was rejected, so latest_valid_hash_for_invalid_payload can
// walk the parent chain of invalid ancestors.
type InvalidHeaderCache struct {
	cache *lru.Cache[libcommon.Hash, *types.Header]
}

func NewInvalidHeaderCache() *InvalidHeaderCache {
	c, err := lru.New[libcommon.Hash, *types.Header](defaultInvalidHeaderCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// compile-time constant here.
		panic(err)
	}
	return &InvalidHeaderCache{cache: c}
}

func (c *InvalidHeaderCache) Get(h libcommon.Hash) (*types.Header, bool) {
	return c.cache.Get(h)
}

func (c *InvalidHeaderCache) Insert(h libcommon.Hash, header *types.Header) {
	c.cache.Add(h, header)
}

// InsertWithInvalidAncestor marks head invalid by association: the stored
// entry's parent link points at ancestorHash, a hash already present in this
// cache, so a later walk from head reaches the known-bad ancestor directly
// and continues from its own stored parent link.
func (c *InvalidHeaderCache) InsertWithInvalidAncestor(head libcommon.Hash, ancestorHash libcommon.Hash) {
	c.cache.Add(head, &types.Header{ParentHash: ancestorHash})
}

func (c *InvalidHeaderCache) Len() int { return c.cache.Len() }
