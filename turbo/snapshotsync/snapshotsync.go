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

// Package snapshotsync is the backfill pipeline: the out-of-band actor that
// walks a long gap between the canonical tip and a forkchoice target down to
// manageable block ranges and feeds them back to the tree as they land.
package snapshotsync

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	libcommon "github.com/erigontech/erigon-lib/common"
	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/erigontech/engine-tree/core/types"
)

var greatOtterBanner = `
   _____ _             _   _                ____  _   _
  / ____| |           | | (_)              / __ \| | | |
 | (___ | |_ __ _ _ __| |_ _ _ __   __ _  | |  | | |_| |_ ___ _ __ ___ _   _ _ __   ___
  \___ \| __/ _ | '__| __| | '_ \ / _ | | |  | | __| __/ _ \ '__/ __| | | | '_ \ / __|
  ____) | || (_| | |  | |_| | | | | (_| | | |__| | |_| ||  __/ |  \__ \ |_| | | | | (__ _ _ _
 |_____/ \__\__,_|_|   \__|_|_| |_|\__, |  \____/ \__|\__\___|_|  |___/\__, |_| |_|\___(_|_|_)
                                    __/ |                               __/ |
                                   |___/                               |___/
`

// rangeFetcher is the block-range retrieval collaborator a Pipeline drives;
// the actual transport (devp2p, a beacon sync backend, a snapshot segment
// store) is out of this subsystem's scope.
type rangeFetcher interface {
	FetchRange(ctx context.Context, from, to types.BlockNumber) ([]*types.SealedBlockWithSenders, error)
}

// segmentSize bounds a single concurrent fetch, the block-range equivalent
// of a per-segment torrent download unit.
const segmentSize = 256

// maxConcurrentSegments bounds how many segment fetches run in parallel.
const maxConcurrentSegments = 4

// Pipeline is the backfill actor: given a target hash/number pair well ahead
// of the canonical tip, it downloads the intervening range in bounded,
// concurrent segments and reports each completed segment back through sink.
type Pipeline struct {
	fetcher rangeFetcher
	sink    func(blocks []*types.SealedBlockWithSenders)
	logger  log.Logger

	running bool
}

func NewPipeline(fetcher rangeFetcher, sink func(blocks []*types.SealedBlockWithSenders), logger log.Logger) *Pipeline {
	return &Pipeline{fetcher: fetcher, sink: sink, logger: logger}
}

func (p *Pipeline) Running() bool { return p.running }

// Run backfills [from, to] in segmentSize-block chunks, at most
// maxConcurrentSegments in flight at once, delivering each chunk to sink in
// the order it completes (not necessarily the order it was requested). A
// block whose parent the tree does not have yet lands in the tree's detached
// block buffer; the tree does not re-insert buffered blocks when their parent
// arrives later.
func (p *Pipeline) Run(ctx context.Context, from, to types.BlockNumber, target libcommon.Hash) error {
	if from > to {
		return fmt.Errorf("snapshotsync: invalid backfill range [%d, %d]", from, to)
	}
	p.logger.Info(greatOtterBanner)
	p.logger.Info("[Backfill] starting", "from", from, "to", to, "target", target.Hex())
	p.running = true
	defer func() { p.running = false }()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSegments)

	for start := from; start <= to; start += segmentSize {
		start := start
		end := start + segmentSize - 1
		if end > to {
			end = to
		}
		g.Go(func() error {
			blocks, err := p.fetcher.FetchRange(gCtx, start, end)
			if err != nil {
				return fmt.Errorf("snapshotsync: fetch range [%d, %d]: %w", start, end, err)
			}
			p.sink(blocks)
			p.logger.Debug("[Backfill] segment complete", "from", start, "to", end, "blocks", len(blocks))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Warn("[Backfill] aborted", "err", err)
		return err
	}
	p.logger.Info("[Backfill] finished", "from", from, "to", to)
	return nil
}
