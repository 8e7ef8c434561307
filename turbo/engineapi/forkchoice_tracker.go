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
	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/turbo/engineapi/engine_types"
)

// ForkchoiceStateTracker records the latest forkchoice triple received from
// the consensus client, and separately the most-recently-synced target from
// the most-recently-received one — the two diverge while backfill is in
// progress.
type ForkchoiceStateTracker struct {
	received *engine_types.ForkchoiceState
	synced   *engine_types.ForkchoiceState
}

func NewForkchoiceStateTracker() *ForkchoiceStateTracker {
	return &ForkchoiceStateTracker{}
}

// SetReceived records the latest forkchoice update from the consensus client.
func (t *ForkchoiceStateTracker) SetReceived(s engine_types.ForkchoiceState) {
	t.received = &s
}

// SetSynced records that the tree has caught up to a forkchoice target.
func (t *ForkchoiceStateTracker) SetSynced(s engine_types.ForkchoiceState) {
	t.synced = &s
}

// LastReceived returns the most recently received forkchoice state, if any.
func (t *ForkchoiceStateTracker) LastReceived() (engine_types.ForkchoiceState, bool) {
	if t.received == nil {
		return engine_types.ForkchoiceState{}, false
	}
	return *t.received, true
}

// SyncTargetHead returns the head hash of the most recently received
// forkchoice state — the hash on_new_payload compares against to decide
// whether a newly valid block should trigger MakeCanonical.
func (t *ForkchoiceStateTracker) SyncTargetHead() (libcommon.Hash, bool) {
	if t.received == nil {
		return libcommon.Hash{}, false
	}
	return t.received.HeadHash, true
}
