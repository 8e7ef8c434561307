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

package state

import (
	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/core/types"
)

// MemoryOverlayStateProvider stacks an ordered list of executed-but-unflushed
// blocks (oldest first) over a historical provider representing all
// committed state up to and including the parent of the oldest overlay
// block. Immutable once constructed; safe to hand to a concurrently-invoked
// executor as a read-only database.
type MemoryOverlayStateProvider struct {
	blocks     []*types.ExecutedBlock // oldest to newest
	historical StateProvider
}

// NewMemoryOverlayStateProvider builds an overlay. blocks must be ordered
// oldest-first, as produced by TreeState.AncestorChain's ancestor walk.
func NewMemoryOverlayStateProvider(blocks []*types.ExecutedBlock, historical StateProvider) *MemoryOverlayStateProvider {
	return &MemoryOverlayStateProvider{blocks: blocks, historical: historical}
}

func (o *MemoryOverlayStateProvider) Account(addr libcommon.Address) (*types.Account, bool, error) {
	for i := len(o.blocks) - 1; i >= 0; i-- {
		diff := o.blocks[i].ExecutionOutcome.StateDiff
		if _, destroyed := diff.Destroyed[addr]; destroyed {
			return nil, false, nil
		}
		if acc, ok := diff.Accounts[addr]; ok {
			return acc, true, nil
		}
	}
	return o.historical.Account(addr)
}

func (o *MemoryOverlayStateProvider) Storage(addr libcommon.Address, slot libcommon.Hash) (libcommon.Hash, bool, error) {
	for i := len(o.blocks) - 1; i >= 0; i-- {
		diff := o.blocks[i].ExecutionOutcome.StateDiff
		if _, destroyed := diff.Destroyed[addr]; destroyed {
			return libcommon.Hash{}, false, nil
		}
		if slots, ok := diff.Storage[addr]; ok {
			if val, ok := slots[slot]; ok {
				return val, true, nil
			}
		}
	}
	return o.historical.Storage(addr, slot)
}

func (o *MemoryOverlayStateProvider) Bytecode(codeHash libcommon.Hash) ([]byte, error) {
	for i := len(o.blocks) - 1; i >= 0; i-- {
		if code, ok := o.blocks[i].ExecutionOutcome.StateDiff.Bytecodes[codeHash]; ok {
			return code, nil
		}
	}
	return o.historical.Bytecode(codeHash)
}

func (o *MemoryOverlayStateProvider) BlockHash(number types.BlockNumber) (libcommon.Hash, bool, error) {
	for _, b := range o.blocks {
		if b.Number() == number {
			return b.Hash(), true, nil
		}
	}
	return o.historical.BlockHash(number)
}
