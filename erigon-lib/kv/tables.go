// Copyright 2021 The Erigon Authors
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

package kv

// DBSchemaVersion versions list
// 1.0 - trimmed down to the tables the engine-tree subsystem reads: headers,
//
//	canonical index, bodies, senders, account/storage/code state and the
//	forkchoice/bad-header bookkeeping the engine handler needs.
var DBSchemaVersion = struct{ Major, Minor, Patch uint32 }{Major: 1, Minor: 0, Patch: 0}

// Naming:
//
//	HeaderNumber - Ethereum-specific block number. All nodes have same BlockNum.
//	HeaderID - auto-increment ID. Depends on order in which node see headers.
const (
	HeaderNumber    = "HeaderNumber"           // header_hash -> header_num_u64
	BadHeaderNumber = "BadHeaderNumber"        // header_hash -> header_num_u64
	HeaderCanonical = "CanonicalHeader"        // block_num_u64 -> header hash
	Headers         = "Header"                 // block_num_u64 + hash -> header (RLP)
	HeaderTD        = "HeadersTotalDifficulty" // block_num_u64 + hash -> td (RLP)

	BlockBody = "BlockBody" // block_num_u64 + hash -> block body
	EthTx     = "BlockTransaction"
	Senders   = "TxSender" // block_num_u64 + blockHash -> sendersList (20 bytes per sender)

	ConfigTable = "Config" // config prefix for the db

	// Progress of sync stages: stageName -> stageData
	SyncStageProgress = "SyncStage"

	// Proof-of-stake: beacon chain head that is being executed at the current time
	CurrentExecutionPayload = "CurrentExecutionPayload"

	// headBlockKey tracks the latest known full block's hash.
	HeadBlockKey  = "LastBlock"
	HeadHeaderKey = "LastHeader"

	// headBlockHash, safeBlockHash, finalizedBlockHash of the latest Engine API forkchoice
	LastForkchoice = "LastForkchoice"

	// Current world-state snapshot, keyed by account/storage/code.
	// key - address (unhashed); value - account encoded for storage
	PlainState = "PlainState"
	// key - contract code hash; value - contract code
	Code = "Code"
	// key - addressHash+incarnation; value - code hash
	ContractCode = "HashedCodeHash"
)

// ChaindataTables - list of all bucket names declared above. Nothing in this
// subsystem checks table names against it.
var ChaindataTables = []string{
	HeaderNumber,
	BadHeaderNumber,
	HeaderCanonical,
	Headers,
	HeaderTD,
	BlockBody,
	EthTx,
	Senders,
	ConfigTable,
	SyncStageProgress,
	CurrentExecutionPayload,
	HeadBlockKey,
	HeadHeaderKey,
	LastForkchoice,
	PlainState,
	Code,
	ContractCode,
}
