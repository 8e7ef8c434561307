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

// Package fixedgas collects the protocol gas constants that don't vary by
// chain configuration.
package fixedgas

const (
	// BlobGasPerBlob is the fixed amount of gas consumed by a single blob, per EIP-4844.
	BlobGasPerBlob = 1 << 17

	// MaxBlobGasPerBlock is the historical Cancun cap on blob gas per block (6 blobs).
	MaxBlobGasPerBlock = 6 * BlobGasPerBlob
)
