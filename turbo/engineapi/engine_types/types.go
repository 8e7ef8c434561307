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

// Package engine_types holds the engine-API's outcome and event vocabulary:
// PayloadStatus, ForkchoiceState, TreeOutcome/TreeEvent and the actions the
// tree asks its driver to take.
package engine_types

import (
	libcommon "github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/engine-tree/core/types"
)

// PayloadStatusKind is one of the four engine-API payload status values.
type PayloadStatusKind int

const (
	PayloadStatusValid PayloadStatusKind = iota
	PayloadStatusInvalid
	PayloadStatusSyncing
	PayloadStatusAccepted
)

func (k PayloadStatusKind) String() string {
	switch k {
	case PayloadStatusValid:
		return "VALID"
	case PayloadStatusInvalid:
		return "INVALID"
	case PayloadStatusSyncing:
		return "SYNCING"
	case PayloadStatusAccepted:
		return "ACCEPTED"
	default:
		return "UNKNOWN"
	}
}

// PayloadStatus is the engine-API's response to engine_newPayloadVX and the
// payload-status half of engine_forkchoiceUpdatedVX.
type PayloadStatus struct {
	Status          PayloadStatusKind
	LatestValidHash *libcommon.Hash // nil means JSON null
	ValidationError *string
}

func Valid(hash libcommon.Hash) PayloadStatus {
	return PayloadStatus{Status: PayloadStatusValid, LatestValidHash: &hash}
}

func Syncing() PayloadStatus { return PayloadStatus{Status: PayloadStatusSyncing} }

func Accepted() PayloadStatus { return PayloadStatus{Status: PayloadStatusAccepted} }

func Invalid(latestValidHash *libcommon.Hash, reason string) PayloadStatus {
	return PayloadStatus{Status: PayloadStatusInvalid, LatestValidHash: latestValidHash, ValidationError: &reason}
}

// ForkchoiceState is the consensus-layer-declared preferred chain.
type ForkchoiceState struct {
	HeadHash      libcommon.Hash
	SafeHash      libcommon.Hash
	FinalizedHash libcommon.Hash
}

// OnForkChoiceUpdated is the successful-path result of on_forkchoice_updated:
// the resulting payload status plus an optional payload-build identifier
// when payload attributes were supplied.
type OnForkChoiceUpdated struct {
	PayloadStatus PayloadStatus
	PayloadID     *uint64
}

// BlockStatus reports whether a block was connected and executed (Valid) or
// buffered because its parent is unknown (Disconnected); canonical and
// side-chain attachment are not told apart. Not surfaced on PayloadStatus
// directly but needed internally by on_downloaded to decide whether to emit
// MakeCanonical.
type BlockStatus int

const (
	BlockStatusValid BlockStatus = iota
	BlockStatusDisconnected
)

// InsertPayloadOk is the internal result of inserting/connecting one block
// into tree state, prior to translation into a PayloadStatus.
type InsertPayloadOk struct {
	AlreadySeen bool
	Status      BlockStatus
}

// TreeEvent is an action the handler asks its driver to perform, emitted
// alongside an outcome but delivered only after the producing operation
// returns.
type TreeEvent struct {
	MakeCanonical  *libcommon.Hash
	Download       *DownloadRequest
	BackfillAction *BackfillAction
}

// DownloadRequest asks the driver to fetch a block (and implicitly its
// ancestors) by hash.
type DownloadRequest struct {
	Hash libcommon.Hash
}

// BackfillActionKind distinguishes starting a new backfill run from a
// driver-reported completion.
type BackfillActionKind int

const (
	BackfillStart BackfillActionKind = iota
	BackfillFinished
)

type BackfillAction struct {
	Kind   BackfillActionKind
	Target libcommon.Hash
}

// TreeOutcome pairs an operation's primary result with an optional event.
type TreeOutcome[T any] struct {
	Outcome T
	Event   *TreeEvent
}

func NewOutcome[T any](outcome T) TreeOutcome[T] { return TreeOutcome[T]{Outcome: outcome} }

func (o TreeOutcome[T]) WithEvent(e TreeEvent) TreeOutcome[T] {
	o.Event = &e
	return o
}

// ExecutionPayloadBodyV1 is the engine_getPayloadBodiesByHashV1 /
// engine_getPayloadBodiesByRangeV1 response element: a block's body with
// transactions kept as opaque signed-envelope bytes, matching how this
// subsystem treats transactions everywhere else.
type ExecutionPayloadBodyV1 struct {
	Transactions [][]byte
	Withdrawals  []*types.Withdrawal
}

// TransitionConfiguration is the pre-merge handshake payload exchanged by
// engine_exchangeTransitionConfigurationV1. TerminalBlockHash/Number are part
// of the wire schema but unused post-merge; only TerminalTotalDifficulty is
// ever checked.
type TransitionConfiguration struct {
	TerminalTotalDifficulty uint64
	TerminalBlockHash       libcommon.Hash
	TerminalBlockNumber     uint64
}
