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

package misc

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/erigontech/erigon-lib/chain"
	"github.com/erigontech/erigon-lib/common/fixedgas"

	"github.com/erigontech/engine-tree/core/types"
)

func testCancunConfig() *chain.Config {
	cancun := uint64(0)
	return &chain.Config{
		CancunTime:             &cancun,
		TargetBlobsPerBlock:    3,
		MaxBlobsPerBlock:       6,
		BlobGasPriceUpdateFrac: 3338477,
		MinBlobGasPrice:        1,
	}
}

// FakeExponential(factor, denom, 0) must always equal factor, regardless of
// denom: e**0 == 1, so factor * e**(0/denom) == factor.
func TestFakeExponentialZeroExcessIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		factor := rapid.Uint64Range(1, 1<<40).Draw(t, "factor")
		denom := rapid.Uint64Range(1, 1<<40).Draw(t, "denom")

		got, err := FakeExponential(uint256.NewInt(factor), uint256.NewInt(denom), 0)
		require.NoError(t, err)
		require.Equal(t, factor, got.Uint64())
	})
}

// FakeExponential is non-decreasing in excessBlobGas: more excess blob gas
// never yields a cheaper approximation.
func TestFakeExponentialMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		factor := rapid.Uint64Range(1, 1<<32).Draw(t, "factor")
		denom := rapid.Uint64Range(1, 1<<32).Draw(t, "denom")
		lo := rapid.Uint64Range(0, 1<<24).Draw(t, "lo")
		hi := rapid.Uint64Range(lo, lo+(1<<24)).Draw(t, "hi")

		loVal, err := FakeExponential(uint256.NewInt(factor), uint256.NewInt(denom), lo)
		require.NoError(t, err)
		hiVal, err := FakeExponential(uint256.NewInt(factor), uint256.NewInt(denom), hi)
		require.NoError(t, err)

		require.True(t, loVal.Cmp(hiVal) <= 0, "FakeExponential(%d) = %s should be <= FakeExponential(%d) = %s", lo, loVal, hi, hiVal)
	})
}

// GetBlobGasUsed scales linearly with the blob count, matching the fixed
// per-blob gas cost EIP-4844 defines.
func TestGetBlobGasUsedLinear(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 64).Draw(t, "numBlobs")
		require.Equal(t, uint64(n)*fixedgas.BlobGasPerBlob, GetBlobGasUsed(n))
	})
}

// CalcExcessBlobGas never returns a negative-would-be result: it clamps to
// zero whenever the parent's excess-plus-used hasn't reached the target.
func TestCalcExcessBlobGasClampsAtZero(t *testing.T) {
	config := testCancunConfig()
	rapid.Check(t, func(t *rapid.T) {
		excess := rapid.Uint64Range(0, 1<<22).Draw(t, "excess")
		used := rapid.Uint64Range(0, 1<<22).Draw(t, "used")

		parent := &types.Header{ExcessBlobGas: &excess, BlobGasUsed: &used}
		got := CalcExcessBlobGas(config, parent, 1)

		target := config.GetTargetBlobGasPerBlock(1)
		if excess+used < target {
			require.Equal(t, uint64(0), got)
		} else {
			require.Equal(t, excess+used-target, got)
		}
	})
}

func TestValidateBlobGasFieldsRejectsPreCancunFields(t *testing.T) {
	config := &chain.Config{} // CancunTime nil: never active
	zero := uint64(0)
	header := &types.Header{Time: 100, BlobGasUsed: &zero}
	err := ValidateBlobGasFields(config, header, 0)
	require.Error(t, err)
}

func TestValidateBlobGasFieldsAcceptsMatchingUsage(t *testing.T) {
	config := testCancunConfig()
	want := GetBlobGasUsed(2)
	header := &types.Header{
		Time:                  100,
		BlobGasUsed:           &want,
		ExcessBlobGas:         new(uint64),
		ParentBeaconBlockRoot: &types.EmptyRootHash,
	}
	require.NoError(t, ValidateBlobGasFields(config, header, 2))
}
