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

// Package log is erigon's structured logger: a bracketed-prefix message plus
// an even list of key/value pairs, the idiom used throughout the codebase
// (e.g. `log.Warn("[NewPayload] invalid block hash", "stated", a, "actual", b)`).
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Logger is the interface every engine-tree component depends on. Components
// never construct a concrete logger; one is passed in at construction,
// matching the common `logger log.Logger` field idiom used throughout this codebase.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	New(ctx ...interface{}) Logger
}

type logger struct {
	mu     *sync.Mutex
	out    io.Writer
	lvl    Lvl
	static []interface{}
}

// New constructs a root logger writing to stderr at Info level.
func New(ctx ...interface{}) Logger {
	return &logger{mu: &sync.Mutex{}, out: os.Stderr, lvl: LvlInfo, static: ctx}
}

// Root returns the shared default logger. Callers that don't need a
// distinct sink can use this directly, mirroring `log.Root()` elsewhere in
// this codebase.
func Root() Logger { return root }

var root = New()

// SetLevel adjusts the root logger's minimum emitted level.
func SetLevel(lvl Lvl) {
	if l, ok := root.(*logger); ok {
		l.lvl = lvl
	}
}

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{mu: l.mu, out: l.out, lvl: l.lvl, static: append(append([]interface{}{}, l.static...), ctx...)}
}

func (l *logger) write(lvl Lvl, msg string, ctx []interface{}) {
	if lvl > l.lvl {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] %-5s %s", time.Now().UTC().Format("01-02|15:04:05.000"), lvl, msg)
	all := append(append([]interface{}{}, l.static...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", all[i], all[i+1])
	}
	if len(all)%2 == 1 {
		fmt.Fprintf(l.out, " %v=MISSING", all[len(all)-1])
	}
	fmt.Fprintln(l.out)
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(LvlCrit, msg, ctx) }
