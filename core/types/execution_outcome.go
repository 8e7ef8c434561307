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

// Account is the subset of account state the tree's overlay and historical
// provider deal in; storage values live in StateDiff.Storage, keyed separately.
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash libcommon.Hash
}

// StateDiff is the per-block state delta produced by execution.
type StateDiff struct {
	Accounts  map[libcommon.Address]*Account // touched or created accounts, nil value == deleted
	Storage   map[libcommon.Address]map[libcommon.Hash]libcommon.Hash
	Bytecodes map[libcommon.Hash][]byte
	Destroyed map[libcommon.Address]struct{}
}

// NewStateDiff builds an empty, ready-to-fill diff.
func NewStateDiff() *StateDiff {
	return &StateDiff{
		Accounts:  make(map[libcommon.Address]*Account),
		Storage:   make(map[libcommon.Address]map[libcommon.Hash]libcommon.Hash),
		Bytecodes: make(map[libcommon.Hash][]byte),
		Destroyed: make(map[libcommon.Address]struct{}),
	}
}

// ExecutionOutcome is the full per-block execution result.
type ExecutionOutcome struct {
	BlockNumber BlockNumber
	StateDiff   *StateDiff
	Receipts    []*Receipt
	Requests    []*Request
}

// HashedPostState re-keys a StateDiff by Keccak(address)/Keccak(slot) for
// trie integration.
type HashedPostState struct {
	Accounts map[libcommon.Hash]*Account
	Storage  map[libcommon.Hash]map[libcommon.Hash]libcommon.Hash
}

// NewHashedPostState re-hashes every key in diff.
func NewHashedPostState(diff *StateDiff) *HashedPostState {
	h := &HashedPostState{
		Accounts: make(map[libcommon.Hash]*Account, len(diff.Accounts)),
		Storage:  make(map[libcommon.Hash]map[libcommon.Hash]libcommon.Hash, len(diff.Storage)),
	}
	for addr, acc := range diff.Accounts {
		h.Accounts[libcommon.Keccak256Hash(addr.Bytes())] = acc
	}
	for addr, slots := range diff.Storage {
		addrHash := libcommon.Keccak256Hash(addr.Bytes())
		hashedSlots := make(map[libcommon.Hash]libcommon.Hash, len(slots))
		for slot, val := range slots {
			hashedSlots[libcommon.Keccak256Hash(slot.Bytes())] = val
		}
		h.Storage[addrHash] = hashedSlots
	}
	return h
}

// TrieUpdates is the incremental set of trie node changes for one block.
// The actual Merkle-Patricia algorithm that produces these is out of scope;
// this type is the contract the handler passes through to the state-root
// check.
type TrieUpdates struct {
	StateRoot libcommon.Hash
	// AccountNodes/StorageNodes would hold the actual incremental node set in
	// a full client; omitted here since no component reads them besides the
	// state-root comparison in block insertion.
}

// ExecutedBlock is the unit stored in the in-memory tree. Immutable after
// construction; safe to share across readers.
type ExecutedBlock struct {
	Block            *SealedBlockWithSenders
	ExecutionOutcome *ExecutionOutcome
	HashedPostState  *HashedPostState
	TrieUpdates      *TrieUpdates
}

func (e *ExecutedBlock) Hash() libcommon.Hash    { return e.Block.Hash() }
func (e *ExecutedBlock) Number() BlockNumber     { return e.Block.Number() }
func (e *ExecutedBlock) ParentHash() libcommon.Hash { return e.Block.ParentHash() }
