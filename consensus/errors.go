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

package consensus

import "fmt"

// Error is a header/body/post-execution consensus-rule violation. The tree
// handler caches the offending block as invalid and translates this into an
// INVALID payload status.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("consensus rule violation: %s", e.Reason) }

func NewError(format string, args ...interface{}) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// ExecutionError is an unrecoverable executor fault. It propagates as an
// internal error and must never poison the invalid-header cache: the block
// might simply have hit a transient resource problem.
type ExecutionError struct {
	Reason string
	Err    error
}

func (e *ExecutionError) Error() string { return fmt.Sprintf("execution error: %s: %v", e.Reason, e.Err) }
func (e *ExecutionError) Unwrap() error { return e.Err }

// ProviderError is a database/storage fault encountered while reading
// historical state or headers. Like ExecutionError, it never poisons the
// invalid cache.
type ProviderError struct {
	Reason string
	Err    error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("provider error: %s: %v", e.Reason, e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }
