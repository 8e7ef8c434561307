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
	"encoding/binary"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/holiman/uint256"
)

// BlockNumber is the unsigned height of a block above genesis.
type BlockNumber = uint64

// EmptyRootHash is the Keccak256 hash of an RLP-encoded empty list, the value
// a transactions/withdrawals/ommers root takes when the corresponding list is empty.
var EmptyRootHash = libcommon.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// Header is the block header: everything needed to validate a block's
// consensus fields without touching its body.
type Header struct {
	ParentHash  libcommon.Hash
	Number      BlockNumber
	StateRoot   libcommon.Hash
	ReceiptRoot libcommon.Hash
	Bloom       [256]byte
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	BaseFee     *uint256.Int
	Difficulty  *uint256.Int

	// Withdrawals/requests roots are nil pre-Shanghai/pre-Prague respectively.
	WithdrawalsHash *libcommon.Hash
	RequestsHash    *libcommon.Hash

	// EIP-4844 / EIP-4788 fields, nil pre-Cancun.
	BlobGasUsed           *uint64
	ExcessBlobGas         *uint64
	ParentBeaconBlockRoot *libcommon.Hash

	TxRoot libcommon.Hash
}

// IsZeroDifficulty reports whether this header carries zero (or no)
// difficulty, as every post-merge proof-of-stake header does; a non-zero
// difficulty marks a proof-of-work block.
func (h *Header) IsZeroDifficulty() bool {
	return h.Difficulty == nil || h.Difficulty.IsZero()
}

// Hash computes the header's self-identifying digest. Real RLP encoding of
// headers is out of this subsystem's scope (see the executor/trie
// boundary); this uses a deterministic field-order encoding fed to Keccak256,
// which is sufficient to satisfy hash == keccak(encode(header)) as an
// internal invariant without reimplementing the wire RLP codec.
func (h *Header) Hash() libcommon.Hash {
	buf := make([]byte, 0, 256)
	buf = append(buf, h.ParentHash.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, h.Number)
	buf = append(buf, h.StateRoot.Bytes()...)
	buf = append(buf, h.ReceiptRoot.Bytes()...)
	buf = append(buf, h.Bloom[:]...)
	buf = binary.BigEndian.AppendUint64(buf, h.GasLimit)
	buf = binary.BigEndian.AppendUint64(buf, h.GasUsed)
	buf = binary.BigEndian.AppendUint64(buf, h.Time)
	buf = append(buf, h.Extra...)
	if h.BaseFee != nil {
		buf = append(buf, h.BaseFee.Bytes()...)
	}
	if h.Difficulty != nil {
		buf = append(buf, h.Difficulty.Bytes()...)
	}
	if h.WithdrawalsHash != nil {
		buf = append(buf, h.WithdrawalsHash.Bytes()...)
	}
	if h.RequestsHash != nil {
		buf = append(buf, h.RequestsHash.Bytes()...)
	}
	if h.BlobGasUsed != nil {
		buf = binary.BigEndian.AppendUint64(buf, *h.BlobGasUsed)
	}
	if h.ExcessBlobGas != nil {
		buf = binary.BigEndian.AppendUint64(buf, *h.ExcessBlobGas)
	}
	if h.ParentBeaconBlockRoot != nil {
		buf = append(buf, h.ParentBeaconBlockRoot.Bytes()...)
	}
	buf = append(buf, h.TxRoot.Bytes()...)
	return libcommon.Keccak256Hash(buf)
}
