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

// Package state implements the tree's read side: a historical provider over
// committed storage, and an in-memory overlay stacking unflushed executed
// blocks on top of it.
package state

import (
	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/core/types"
)

// StateProvider is a read-only view of world state as of some block. The
// executor treats it as its sole database; it must never observe a partial
// write.
type StateProvider interface {
	Account(addr libcommon.Address) (*types.Account, bool, error)
	Storage(addr libcommon.Address, slot libcommon.Hash) (libcommon.Hash, bool, error)
	Bytecode(codeHash libcommon.Hash) ([]byte, error)
	BlockHash(number types.BlockNumber) (libcommon.Hash, bool, error)
}
