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

package types

import (
	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/holiman/uint256"
)

// ExecutionPayload is the wire-shaped block the consensus client hands to
// engine_newPayloadVX: a block's worth of data minus ommers and senders,
// which the payload validator turns into a SealedBlock.
type ExecutionPayload struct {
	ParentHash    libcommon.Hash
	FeeRecipient  libcommon.Address
	StateRoot     libcommon.Hash
	ReceiptsRoot  libcommon.Hash
	LogsBloom     [256]byte
	PrevRandao    libcommon.Hash
	BlockNumber   uint64
	GasLimit      uint64
	GasUsed       uint64
	Timestamp     uint64
	ExtraData     []byte
	BaseFeePerGas *uint256.Int
	BlockHash     libcommon.Hash
	Transactions  [][]byte // opaque signed-transaction RLP, one entry per tx
	Withdrawals   []*Withdrawal

	// Cancun+ optional fields, present depending on payload version.
	BlobGasUsed   *uint64
	ExcessBlobGas *uint64
}

// CancunPayloadFields are the side-channel arguments accompanying
// engine_newPayloadV3: the parent beacon block root and the versioned
// hashes the proposer committed to for this payload's blob transactions.
type CancunPayloadFields struct {
	ParentBeaconBlockRoot libcommon.Hash
	VersionedHashes       []libcommon.Hash
}
