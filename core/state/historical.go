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

package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	libcommon "github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/kv"
	"github.com/holiman/uint256"

	"github.com/erigontech/engine-tree/core/types"
)

// PrunedError is returned when the requested state predates what this node
// retains (non-archive nodes discard old history).
var PrunedError = errors.New("old data not available due to pruning")

// HistoricalStateProvider is the StateProvider backing committed state: all
// changes through and including the block the handler constructed it for.
// It is the provider a MemoryOverlayStateProvider falls through to once the
// overlay's blocks are exhausted.
type HistoricalStateProvider struct {
	tx    kv.Tx
	trace bool
}

// NewHistoricalStateProvider wraps a read-only transaction.
func NewHistoricalStateProvider(tx kv.Tx) *HistoricalStateProvider {
	return &HistoricalStateProvider{tx: tx}
}

func (h *HistoricalStateProvider) SetTrace(trace bool) { h.trace = trace }

func (h *HistoricalStateProvider) Account(addr libcommon.Address) (*types.Account, bool, error) {
	enc, err := h.tx.GetOne(kv.PlainState, addr.Bytes())
	if err != nil {
		return nil, false, fmt.Errorf("HistoricalStateProvider.Account(%x): %w", addr, err)
	}
	if len(enc) == 0 {
		return nil, false, nil
	}
	acc, err := decodeAccount(enc)
	if err != nil {
		return nil, false, fmt.Errorf("HistoricalStateProvider.Account(%x): %w", addr, err)
	}
	return acc, true, nil
}

func (h *HistoricalStateProvider) Storage(addr libcommon.Address, slot libcommon.Hash) (libcommon.Hash, bool, error) {
	key := make([]byte, 0, len(addr)+len(slot))
	key = append(key, addr.Bytes()...)
	key = append(key, slot.Bytes()...)
	enc, err := h.tx.GetOne(kv.PlainState, key)
	if err != nil {
		return libcommon.Hash{}, false, fmt.Errorf("HistoricalStateProvider.Storage(%x,%x): %w", addr, slot, err)
	}
	if len(enc) == 0 {
		return libcommon.Hash{}, false, nil
	}
	return libcommon.BytesToHash(enc), true, nil
}

func (h *HistoricalStateProvider) Bytecode(codeHash libcommon.Hash) ([]byte, error) {
	code, err := h.tx.GetOne(kv.Code, codeHash.Bytes())
	if err != nil {
		return nil, fmt.Errorf("HistoricalStateProvider.Bytecode(%x): %w", codeHash, err)
	}
	return code, nil
}

func (h *HistoricalStateProvider) BlockHash(number types.BlockNumber) (libcommon.Hash, bool, error) {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, number)
	enc, err := h.tx.GetOne(kv.HeaderCanonical, key)
	if err != nil {
		return libcommon.Hash{}, false, fmt.Errorf("HistoricalStateProvider.BlockHash(%d): %w", number, err)
	}
	if len(enc) == 0 {
		return libcommon.Hash{}, false, nil
	}
	return libcommon.BytesToHash(enc), true, nil
}

// accountEncodingLen is nonce(8) + balance(32) + codeHash(32).
const accountEncodingLen = 8 + 32 + 32

// decodeAccount decodes the fixed-width account encoding this table stores
// accounts in. The real client's account encoding (varint-packed, elides
// zero fields) is out of scope here; storage layout isn't part of this
// subsystem's contract, only the StateProvider interface is.
func decodeAccount(enc []byte) (*types.Account, error) {
	if len(enc) != accountEncodingLen {
		return nil, fmt.Errorf("invalid account encoding length %d", len(enc))
	}
	return &types.Account{
		Nonce:    binary.BigEndian.Uint64(enc[0:8]),
		Balance:  new(uint256.Int).SetBytes(enc[8:40]),
		CodeHash: libcommon.BytesToHash(enc[40:72]),
	}, nil
}
