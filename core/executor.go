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

package core

import (
	"github.com/holiman/uint256"

	"github.com/erigontech/engine-tree/core/state"
	"github.com/erigontech/engine-tree/core/types"
)

// Executor runs one block's transactions against a StateProvider and
// produces the execution outcome. The EVM itself is out of scope; this is
// the contract the tree handler calls through.
type Executor interface {
	Execute(block *types.SealedBlockWithSenders, totalDifficulty *uint256.Int, provider state.StateProvider) (*types.ExecutionOutcome, error)
}

// ExecutorProvider hands out an Executor bound to a specific chain config.
// Separated from Executor itself because a real client may swap executor
// implementations (e.g. a tracing executor for RPC) without touching the
// handler's construction path.
type ExecutorProvider interface {
	Executor() Executor
}
