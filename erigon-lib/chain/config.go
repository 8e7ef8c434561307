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

// Package chain holds the chain-configuration type: fork activation times
// and the per-fork protocol parameters consensus rules and blob-gas
// accounting read from.
package chain

import "github.com/erigontech/erigon-lib/common/fixedgas"

// Config carries the fork schedule and protocol parameters for one chain.
// Activation fields are times (seconds since epoch), matching post-merge
// forks which activate on timestamp rather than block number.
type Config struct {
	ChainID *uint64

	LondonBlock *uint64 // block-activated fork, pre-merge

	ShanghaiTime *uint64
	CancunTime   *uint64
	PragueTime   *uint64

	TerminalTotalDifficulty *uint64

	// Blob-gas schedule, EIP-4844/EIP-7691. Target/Max are expressed in
	// blobs; converted to gas via fixedgas.BlobGasPerBlob.
	TargetBlobsPerBlock    uint64
	MaxBlobsPerBlock       uint64
	BlobGasPriceUpdateFrac uint64

	// PragueTargetBlobsPerBlock etc. allow a later fork to change the
	// schedule without branching every caller; zero means "unchanged".
	PragueTargetBlobsPerBlock    uint64
	PragueBlobGasPriceUpdateFrac uint64

	MinBlobGasPrice uint64
}

func (c *Config) IsLondon(blockNumber uint64) bool {
	return c.LondonBlock != nil && blockNumber >= *c.LondonBlock
}

func (c *Config) IsShanghai(headerTime uint64) bool {
	return c.ShanghaiTime != nil && headerTime >= *c.ShanghaiTime
}

func (c *Config) IsCancun(headerTime uint64) bool {
	return c.CancunTime != nil && headerTime >= *c.CancunTime
}

func (c *Config) IsPrague(headerTime uint64) bool {
	return c.PragueTime != nil && headerTime >= *c.PragueTime
}

// GetTargetBlobGasPerBlock returns the target blob gas per block in effect
// at headerTime, per whichever fork schedule applies.
func (c *Config) GetTargetBlobGasPerBlock(headerTime uint64) uint64 {
	target := c.TargetBlobsPerBlock
	if c.IsPrague(headerTime) && c.PragueTargetBlobsPerBlock != 0 {
		target = c.PragueTargetBlobsPerBlock
	}
	return target * fixedgas.BlobGasPerBlob
}

// GetMaxBlobGasPerBlock returns the max blob gas per block in effect at headerTime.
func (c *Config) GetMaxBlobGasPerBlock(headerTime uint64) uint64 {
	max := c.MaxBlobsPerBlock
	return max * fixedgas.BlobGasPerBlob
}

// GetBlobGasPriceUpdateFraction returns the EIP-4844 update-fraction
// parameter in effect at headerTime.
func (c *Config) GetBlobGasPriceUpdateFraction(headerTime uint64) uint64 {
	if c.IsPrague(headerTime) && c.PragueBlobGasPriceUpdateFrac != 0 {
		return c.PragueBlobGasPriceUpdateFrac
	}
	return c.BlobGasPriceUpdateFrac
}

// GetMinBlobGasPrice returns the minimum per-unit blob gas price.
func (c *Config) GetMinBlobGasPrice() uint64 {
	if c.MinBlobGasPrice == 0 {
		return 1
	}
	return c.MinBlobGasPrice
}

// IsTerminalTotalDifficultyPassed reports whether totalDifficulty has
// crossed the configured merge threshold.
func (c *Config) IsTerminalTotalDifficultyPassed(totalDifficulty uint64) bool {
	return c.TerminalTotalDifficulty != nil && totalDifficulty >= *c.TerminalTotalDifficulty
}
