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

// Package adapter is where the tree's internal events are fanned out to
// whatever external listeners a driver registers: log sinks, metrics,
// devp2p block propagation.
package adapter

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/erigontech/engine-tree/core/types"
)

// BlockPropagator is called once a block becomes canonical, so a driver can
// announce it to peers; devp2p itself is out of this subsystem's scope.
type BlockPropagator func(ctx context.Context, block *types.SealedBlockWithSenders, totalDifficulty *uint256.Int)
