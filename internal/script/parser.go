/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reCommand = regexp.MustCompile(`^(\s*)([A-Za-z]+)\b\s*(.*)$`)
	reNumber  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	reDelta   = regexp.MustCompile(`^[+-]\d+$`)
	reRange   = regexp.MustCompile(`^\d+(-\d+)?$`)
	reColor   = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	rePage    = regexp.MustCompile(`^[1-9]\d*$`)
)

type token struct {
	text   string
	quoted bool
	col    int
}

// Parse parses an edit script. Each non-blank line holds one command:
//
//	width W [H]        resize the display
//	page N | next | prev
//	scroll UNITS
//	text X Y "string"  place text at display position X,Y
//	select X Y         select the nearest annotation
//	move X Y           move the selection
//	size +N | -N       grow or shrink the selection
//	edit "string"      replace the selection's text
//	delete | clear
//	duplicate A[-B]
//	color #rrggbb | background #rrggbb
//	pick X Y           pipette pick (background first, then text)
//
// Lines starting with '#' are comments, lines starting with ';' are notes.
// Parsing continues past bad lines so every problem is reported at once.
func Parse(input string) (Script, []Error) {
	s := Script{Commands: []Command{}}
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		trim := strings.TrimSpace(line)
		switch {
		case trim == "", strings.HasPrefix(trim, "#"):
			continue
		case strings.HasPrefix(trim, ";"):
			s.Notes = append(s.Notes, strings.TrimSpace(strings.TrimPrefix(trim, ";")))
			continue
		}

		m := reCommand.FindStringSubmatchIndex(line)
		if m == nil {
			errs = append(errs, Error{Line: lineNo, Column: len(line) - len(strings.TrimLeft(line, " \t")) + 1, Message: "expected a command"})
			continue
		}
		name := strings.ToLower(line[m[4]:m[5]])
		op, ok := opNames[name]
		if !ok {
			errs = append(errs, Error{Line: lineNo, Column: m[4] + 1, Message: fmt.Sprintf("unknown command %q", name)})
			continue
		}
		toks, err := tokenize(line[m[6]:m[7]], m[6]+1)
		if err != nil {
			errs = append(errs, Error{Line: lineNo, Column: err.Column, Message: err.Message})
			continue
		}
		cmd, perr := build(op, toks, m[4]+1)
		if perr != nil {
			perr.Line = lineNo
			errs = append(errs, *perr)
			continue
		}
		cmd.Line = lineNo
		s.Commands = append(s.Commands, cmd)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	return s, errs
}

// tokenize splits rest into words and Go-style quoted strings. col is the
// 1-based column of rest within its line.
func tokenize(rest string, col int) ([]token, *Error) {
	var toks []token
	i := 0
	for i < len(rest) {
		if rest[i] == ' ' || rest[i] == '\t' {
			i++
			continue
		}
		start := i
		if rest[i] == '"' {
			i++
			for i < len(rest) && rest[i] != '"' {
				if rest[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(rest) {
				return nil, &Error{Column: col + start, Message: "unterminated string"}
			}
			i++
			v, err := strconv.Unquote(rest[start:i])
			if err != nil {
				return nil, &Error{Column: col + start, Message: "bad string: " + err.Error()}
			}
			toks = append(toks, token{text: v, quoted: true, col: col + start})
			continue
		}
		for i < len(rest) && rest[i] != ' ' && rest[i] != '\t' {
			i++
		}
		toks = append(toks, token{text: rest[start:i], col: col + start})
	}
	return toks, nil
}

func build(op Op, toks []token, col int) (Command, *Error) {
	cmd := Command{Op: op}
	arity := func(lo, hi int) *Error {
		if len(toks) < lo {
			return &Error{Column: col, Message: fmt.Sprintf("%s needs %d argument(s), got %d", op, lo, len(toks))}
		}
		if len(toks) > hi {
			return &Error{Column: toks[hi].col, Message: fmt.Sprintf("unexpected argument %q", toks[hi].text)}
		}
		return nil
	}
	nums := func(ts []token) *Error {
		for _, t := range ts {
			if t.quoted || !reNumber.MatchString(t.text) {
				return &Error{Column: t.col, Message: fmt.Sprintf("expected a number, got %q", t.text)}
			}
			v, _ := strconv.ParseFloat(t.text, 64)
			cmd.Nums = append(cmd.Nums, v)
		}
		return nil
	}
	word := func(t token, re *regexp.Regexp, what string) *Error {
		if t.quoted || !re.MatchString(t.text) {
			return &Error{Column: t.col, Message: fmt.Sprintf("expected %s, got %q", what, t.text)}
		}
		cmd.Text = t.text
		return nil
	}
	quoted := func(t token) *Error {
		if !t.quoted {
			return &Error{Column: t.col, Message: "expected a quoted string"}
		}
		if t.text == "" {
			return &Error{Column: t.col, Message: "text is empty"}
		}
		cmd.Text = t.text
		return nil
	}

	var err *Error
	switch op {
	case OpWidth:
		if err = arity(1, 2); err == nil {
			err = nums(toks)
		}
		if err == nil && cmd.Nums[0] <= 0 {
			err = &Error{Column: toks[0].col, Message: "width must be positive"}
		}
	case OpPage:
		if err = arity(1, 1); err == nil {
			if err = word(toks[0], rePage, "a page number"); err == nil {
				v, _ := strconv.Atoi(cmd.Text)
				cmd.Nums = []float64{float64(v)}
				cmd.Text = ""
			}
		}
	case OpScroll:
		if err = arity(1, 1); err == nil {
			err = nums(toks)
		}
	case OpText:
		if err = arity(3, 3); err == nil {
			if err = nums(toks[:2]); err == nil {
				err = quoted(toks[2])
			}
		}
	case OpSelect, OpMove, OpPick:
		if err = arity(2, 2); err == nil {
			err = nums(toks)
		}
	case OpSize:
		if err = arity(1, 1); err == nil {
			if err = word(toks[0], reDelta, "+N or -N"); err == nil {
				v, _ := strconv.Atoi(cmd.Text)
				cmd.Nums = []float64{float64(v)}
				cmd.Text = ""
			}
		}
	case OpEdit:
		if err = arity(1, 1); err == nil {
			err = quoted(toks[0])
		}
	case OpDuplicate:
		if err = arity(1, 1); err == nil {
			err = word(toks[0], reRange, "a page range")
		}
	case OpColor, OpBackground:
		if err = arity(1, 1); err == nil {
			err = word(toks[0], reColor, "a #rrggbb color")
		}
	default:
		err = arity(0, 0)
	}
	return cmd, err
}
