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

package engine_types

import libcommon "github.com/erigontech/erigon-lib/common"

// PayloadAttributes accompany a forkchoice update that also asks the client
// to start building a new payload. Forwarding them to the external payload
// builder is out of scope; only this contract shape matters here.
type PayloadAttributes struct {
	Timestamp             uint64
	PrevRandao            libcommon.Hash
	SuggestedFeeRecipient libcommon.Address
	WithdrawalsHash       *libcommon.Hash
	ParentBeaconBlockRoot *libcommon.Hash
}
