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

// Package eth1 is the read side of the persisted chain: headers, bodies and
// the canonical-hash index, queried by block number or hash. Nothing here
// mutates the database; writes happen on the insertion/backfill paths.
package eth1

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/kv"
	"github.com/holiman/uint256"

	"github.com/erigontech/engine-tree/core/types"
)

// BlockReader is the collaborator EngineServer uses to answer
// engine_getPayloadBodiesByHash/Range without reaching into storage details.
type BlockReader interface {
	CanonicalHash(tx kv.Tx, number types.BlockNumber) (libcommon.Hash, bool, error)
	HeaderByHash(tx kv.Tx, hash libcommon.Hash) (*types.Header, bool, error)
	BodyByHash(tx kv.Tx, hash libcommon.Hash, number types.BlockNumber) (*types.Body, bool, error)
}

type blockReader struct{}

// NewBlockReader builds the default BlockReader over the ChaindataTables
// namespace declared in erigon-lib/kv.
func NewBlockReader() BlockReader { return blockReader{} }

func encodeBlockNumber(n types.BlockNumber) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func (blockReader) CanonicalHash(tx kv.Tx, number types.BlockNumber) (libcommon.Hash, bool, error) {
	v, err := tx.GetOne(kv.HeaderCanonical, encodeBlockNumber(number))
	if err != nil {
		return libcommon.Hash{}, false, fmt.Errorf("eth1.CanonicalHash: %w", err)
	}
	if len(v) == 0 {
		return libcommon.Hash{}, false, nil
	}
	return libcommon.BytesToHash(v), true, nil
}

// headerKey is the standard block_num_u64 + hash composite key.
func headerKey(number types.BlockNumber, hash libcommon.Hash) []byte {
	key := encodeBlockNumber(number)
	return append(key, hash.Bytes()...)
}

func (r blockReader) HeaderByHash(tx kv.Tx, hash libcommon.Hash) (*types.Header, bool, error) {
	numBytes, err := tx.GetOne(kv.HeaderNumber, hash.Bytes())
	if err != nil {
		return nil, false, fmt.Errorf("eth1.HeaderByHash: %w", err)
	}
	if len(numBytes) == 0 {
		return nil, false, nil
	}
	number := binary.BigEndian.Uint64(numBytes)

	v, err := tx.GetOne(kv.Headers, headerKey(number, hash))
	if err != nil {
		return nil, false, fmt.Errorf("eth1.HeaderByHash: %w", err)
	}
	if len(v) == 0 {
		return nil, false, nil
	}
	header, err := decodeHeader(v)
	if err != nil {
		return nil, false, fmt.Errorf("eth1.HeaderByHash: %w", err)
	}
	return header, true, nil
}

func (r blockReader) BodyByHash(tx kv.Tx, hash libcommon.Hash, number types.BlockNumber) (*types.Body, bool, error) {
	v, err := tx.GetOne(kv.BlockBody, headerKey(number, hash))
	if err != nil {
		return nil, false, fmt.Errorf("eth1.BodyByHash: %w", err)
	}
	if len(v) == 0 {
		return nil, false, nil
	}
	body, err := decodeBody(v)
	if err != nil {
		return nil, false, fmt.Errorf("eth1.BodyByHash: %w", err)
	}
	return body, true, nil
}

// headerWire/bodyWire are gob-friendly mirrors of types.Header/types.Body.
// Real wire encoding is RLP, which is out of this subsystem's scope (the
// same boundary documented on Header.Hash); gob is a stand-in storage codec,
// not a protocol claim.
type headerWire struct {
	ParentHash            libcommon.Hash
	Number                uint64
	StateRoot             libcommon.Hash
	ReceiptRoot           libcommon.Hash
	Bloom                 [256]byte
	GasLimit, GasUsed     uint64
	Time                  uint64
	Extra                 []byte
	BaseFee               []byte
	Difficulty            []byte
	WithdrawalsHash       *libcommon.Hash
	RequestsHash          *libcommon.Hash
	BlobGasUsed           *uint64
	ExcessBlobGas         *uint64
	ParentBeaconBlockRoot *libcommon.Hash
	TxRoot                libcommon.Hash
}

func decodeHeader(enc []byte) (*types.Header, error) {
	var w headerWire
	if err := gob.NewDecoder(bytes.NewReader(enc)).Decode(&w); err != nil {
		return nil, err
	}
	h := &types.Header{
		ParentHash:            w.ParentHash,
		Number:                w.Number,
		StateRoot:             w.StateRoot,
		ReceiptRoot:           w.ReceiptRoot,
		Bloom:                 w.Bloom,
		GasLimit:              w.GasLimit,
		GasUsed:               w.GasUsed,
		Time:                  w.Time,
		Extra:                 w.Extra,
		WithdrawalsHash:       w.WithdrawalsHash,
		RequestsHash:          w.RequestsHash,
		BlobGasUsed:           w.BlobGasUsed,
		ExcessBlobGas:         w.ExcessBlobGas,
		ParentBeaconBlockRoot: w.ParentBeaconBlockRoot,
		TxRoot:                w.TxRoot,
	}
	if len(w.BaseFee) > 0 {
		h.BaseFee = new(uint256.Int).SetBytes(w.BaseFee)
	}
	if len(w.Difficulty) > 0 {
		h.Difficulty = new(uint256.Int).SetBytes(w.Difficulty)
	}
	return h, nil
}

// decodeBody assumes an empty ommers list, true for every post-merge block
// this subsystem ever persists; Header's uint256 fields aren't gob-safe so
// a non-empty Ommers list isn't round-tripped by this codec.
func decodeBody(enc []byte) (*types.Body, error) {
	var body types.Body
	if err := gob.NewDecoder(bytes.NewReader(enc)).Decode(&body); err != nil {
		return nil, err
	}
	return &body, nil
}
