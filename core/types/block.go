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

// Transaction is kept opaque here: the engine-tree subsystem treats
// transactions as signed byte payloads it forwards to the executor and
// sender-recovery collaborator, never decoding them itself.
type Transaction struct {
	Raw  []byte
	Hash libcommon.Hash
}

// Withdrawal is a validator withdrawal credited at the end of block execution (EIP-4895).
type Withdrawal struct {
	Index          uint64
	ValidatorIndex uint64
	Address        libcommon.Address
	Amount         uint64 // in Gwei
}

// Body holds the parts of a block that aren't covered by the header.
type Body struct {
	Transactions []Transaction
	Ommers       []*Header
	Withdrawals  []*Withdrawal
}

// SealedBlock is an immutable header+body pair whose Hash is fixed at
// construction. Invariant: Hash == header.Hash().
type SealedBlock struct {
	Header *Header
	Body   *Body
	Hash   libcommon.Hash
}

// NewSealedBlock seals a header+body, computing and freezing its hash.
func NewSealedBlock(header *Header, body *Body) *SealedBlock {
	return &SealedBlock{Header: header, Body: body, Hash: header.Hash()}
}

func (b *SealedBlock) Number() BlockNumber    { return b.Header.Number }
func (b *SealedBlock) ParentHash() libcommon.Hash { return b.Header.ParentHash }

// SealedBlockWithSenders pairs a sealed block with its recovered transaction
// senders, one per transaction, in the same order.
type SealedBlockWithSenders struct {
	Block   *SealedBlock
	Senders []libcommon.Address
}

func (b *SealedBlockWithSenders) Hash() libcommon.Hash     { return b.Block.Hash }
func (b *SealedBlockWithSenders) Number() BlockNumber      { return b.Block.Number() }
func (b *SealedBlockWithSenders) ParentHash() libcommon.Hash { return b.Block.ParentHash() }

// Receipt is the per-transaction execution outcome.
type Receipt struct {
	TxHash            libcommon.Hash
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             [256]byte
	Logs              []*Log
}

// Log is a single EVM log entry.
type Log struct {
	Address libcommon.Address
	Topics  []libcommon.Hash
	Data    []byte
}

// Request is an execution-layer request emitted by system contracts
// post-Prague (deposits, withdrawals, consolidations), EIP-7685.
type Request struct {
	Type byte
	Data []byte
}

// BaseFeeOrZero returns header.BaseFee as a uint256, or zero if pre-London.
func (h *Header) BaseFeeOrZero() *uint256.Int {
	if h.BaseFee == nil {
		return uint256.NewInt(0)
	}
	return h.BaseFee
}
