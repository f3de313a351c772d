/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script reads and runs line-oriented edit scripts. A script drives a
// session the same way pointer and toolbar events do, which makes headless
// batch edits and end-to-end tests possible.
//
//	# comments start with '#', notes with ';'
//	width 800 600
//	page 2
//	text 120 40 "Approved"
//	select 118 42
//	move 200 60
//	size +4
//	duplicate 1-2
package script

import "fmt"

// Op identifies a script command.
type Op int

const (
	OpUnknown Op = iota
	OpWidth
	OpPage
	OpNext
	OpPrev
	OpScroll
	OpText
	OpSelect
	OpMove
	OpSize
	OpEdit
	OpDelete
	OpClear
	OpDuplicate
	OpColor
	OpBackground
	OpPick
)

var opNames = map[string]Op{
	"width":      OpWidth,
	"page":       OpPage,
	"next":       OpNext,
	"prev":       OpPrev,
	"scroll":     OpScroll,
	"text":       OpText,
	"select":     OpSelect,
	"move":       OpMove,
	"size":       OpSize,
	"edit":       OpEdit,
	"delete":     OpDelete,
	"clear":      OpClear,
	"duplicate":  OpDuplicate,
	"color":      OpColor,
	"background": OpBackground,
	"pick":       OpPick,
}

func (o Op) String() string {
	for name, op := range opNames {
		if op == o {
			return name
		}
	}
	return "unknown"
}

// Command is one parsed script line. Numeric arguments land in Nums, a quoted
// string or a bare word (range, color) in Text.
type Command struct {
	Op   Op
	Nums []float64
	Text string
	Line int
}

// Script is an ordered list of commands plus the author notes.
type Script struct {
	Commands []Command
	Notes    []string
}

// Error describes a problem at a specific line and column (1-based).
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}
