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
	"context"
	"fmt"

	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/core/types"
	"github.com/erigontech/engine-tree/turbo/snapshotsync"
)

// HeaderByHashFetcher resolves a block's number given its hash, for a block
// this node has not downloaded yet. Backed by whatever the consensus client
// connection can tell us about the forkchoice target, or by fetching just
// that one header out of band.
type HeaderByHashFetcher func(ctx context.Context, hash libcommon.Hash) (*types.Header, error)

// PipelineBackfiller adapts a snapshotsync.Pipeline, which backfills a
// known [from, to] block-number range, to the Backfiller interface, which
// only knows a target hash: it resolves the target's number first, then
// hands the range to the pipeline.
type PipelineBackfiller struct {
	pipeline    *snapshotsync.Pipeline
	fetchHeader HeaderByHashFetcher
}

func NewPipelineBackfiller(pipeline *snapshotsync.Pipeline, fetchHeader HeaderByHashFetcher) *PipelineBackfiller {
	return &PipelineBackfiller{pipeline: pipeline, fetchHeader: fetchHeader}
}

func (b *PipelineBackfiller) Running() bool { return b.pipeline.Running() }

func (b *PipelineBackfiller) StartBackfill(ctx context.Context, fromExclusive types.BlockNumber, target libcommon.Hash) error {
	header, err := b.fetchHeader(ctx, target)
	if err != nil {
		return fmt.Errorf("resolve backfill target: %w", err)
	}
	if header.Number <= fromExclusive {
		return fmt.Errorf("backfill target %s (number %d) is not ahead of %d", target.Hex(), header.Number, fromExclusive)
	}
	return b.pipeline.Run(ctx, fromExclusive+1, header.Number, target)
}
