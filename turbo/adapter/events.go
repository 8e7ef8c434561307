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

package adapter

import (
	"sync"

	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/core/types"
)

// EventKind enumerates the chain-level notifications EngineServer publishes
// as it processes engine-API calls.
type EventKind int

const (
	EventForkBlockAdded EventKind = iota
	EventCanonicalChainCommitted
	EventCanonicalBlockAdded
	EventInvalidBlock
	EventLiveSyncProgress
)

// ConsensusEngineEvent is one notification on the feed: which kind, and the
// single field relevant to that kind (the rest are left zero).
type ConsensusEngineEvent struct {
	Kind          EventKind
	Block         *types.ExecutedBlock // ForkBlockAdded, CanonicalBlockAdded
	CommittedHead libcommon.Hash        // CanonicalChainCommitted
	InvalidHash   libcommon.Hash        // InvalidBlock
	SyncedNumber  types.BlockNumber     // LiveSyncProgress
}

// EventListener receives a copy of every published event. Panics from a
// listener are not recovered: a badly behaved listener is a programmer
// error in wiring, not something the feed should mask.
type EventListener func(ConsensusEngineEvent)

// EventFeed is a minimal fan-out broadcaster, grounded on the same
// single-owner discipline as the tree handler itself: Subscribe/Publish are
// safe to call from multiple goroutines. Delivery runs on the publishing
// goroutine outside the feed's lock, so concurrent Publish calls can reach
// the same listener concurrently.
type EventFeed struct {
	mu        sync.Mutex
	listeners []EventListener
}

func NewEventFeed() *EventFeed { return &EventFeed{} }

// Subscribe registers fn and returns an unsubscribe function.
func (f *EventFeed) Subscribe(fn EventListener) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.listeners)
	f.listeners = append(f.listeners, fn)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if idx < len(f.listeners) {
			f.listeners[idx] = nil
		}
	}
}

// Publish delivers ev to every still-subscribed listener, synchronously.
func (f *EventFeed) Publish(ev ConsensusEngineEvent) {
	f.mu.Lock()
	listeners := make([]EventListener, len(f.listeners))
	copy(listeners, f.listeners)
	f.mu.Unlock()

	for _, fn := range listeners {
		if fn != nil {
			fn(ev)
		}
	}
}
