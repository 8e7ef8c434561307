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

import "context"

// Tx is a read-only view over a bucketed key/value store. It is the minimal
// surface the engine-tree subsystem needs from the on-disk database; the
// storage engine itself is an external collaborator, not part of this tree.
type Tx interface {
	GetOne(table string, key []byte) ([]byte, error)
	Has(table string, key []byte) (bool, error)
	ForAmount(table string, prefix []byte, amount uint32, walker func(k, v []byte) error) error
	Rollback()
}

// RoDB opens read-only transactions against the persistent store.
type RoDB interface {
	BeginRo(ctx context.Context) (Tx, error)
}
