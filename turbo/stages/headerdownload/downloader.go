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

// Package headerdownload is the tree's window onto block retrieval: it never
// speaks to peers itself, it only records what's outstanding and lets a
// driver resolve those requests against whatever P2P/RPC machinery it has.
package headerdownload

import (
	"sync"

	libcommon "github.com/erigontech/erigon-lib/common"
)

// Downloader is the collaborator EngineTreeHandler's driver uses to fetch a
// block (and its ancestors) by hash when on_new_payload or
// on_forkchoice_updated reports a gap. Block retrieval itself (devp2p, the
// beacon sync backend) is out of this subsystem's scope.
type Downloader interface {
	// RequestBlock records hash as outstanding; it stays outstanding until
	// the implementation resolves it (BeaconRequestList.Resolve). Delivering
	// the block through engineapi.EngineTreeHandler.OnDownloaded does not.
	RequestBlock(hash libcommon.Hash)
	// Outstanding reports hashes currently requested but not yet resolved.
	Outstanding() []libcommon.Hash
}

// BeaconRequestList is the set of in-flight download requests, with no size
// bound,
// grounded on erigon's header-download bad-header bookkeeping idiom (see
// erigon-lib/golang-lru usage in turbo/engineapi/invalid_header_cache.go):
// a small mutex-guarded set is enough, no external queue library earns its
// keep for a handful of concurrently outstanding hashes.
type BeaconRequestList struct {
	mu      sync.Mutex
	pending map[libcommon.Hash]struct{}
}

func NewBeaconRequestList() *BeaconRequestList {
	return &BeaconRequestList{pending: make(map[libcommon.Hash]struct{})}
}

func (l *BeaconRequestList) RequestBlock(hash libcommon.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[hash] = struct{}{}
}

func (l *BeaconRequestList) Resolve(hash libcommon.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, hash)
}

func (l *BeaconRequestList) Outstanding() []libcommon.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]libcommon.Hash, 0, len(l.pending))
	for h := range l.pending {
		out = append(out, h)
	}
	return out
}
