/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"fmt"
	"log/slog"

	"scanmark/internal/domain"
	applog "scanmark/internal/log"
	"scanmark/internal/session"
)

// ErrNoSelection is returned by commands that need a selected annotation.
var ErrNoSelection = errors.New("no annotation selected")

// Target is what a script runs against. *app.Runner satisfies it; use
// ForSession for a bare session.
type Target interface {
	Session() *session.Session
	DuplicatePages(rangeText string) error
}

type sessionTarget struct{ s *session.Session }

func (t sessionTarget) Session() *session.Session { return t.s }

func (t sessionTarget) DuplicatePages(rangeText string) error {
	_, _, err := t.s.DuplicatePages(rangeText)
	return err
}

// ForSession wraps s as a Target.
func ForSession(s *session.Session) Target { return sessionTarget{s} }

// Apply runs every command of sc in order and stops at the first failure.
// Coordinates are display coordinates of the whole page, unaffected by scroll.
// Placements the index rejects (blank, duplicate, locked page) and edits of
// read-only annotations are logged and skipped, as in the interactive editor.
func Apply(t Target, sc Script) error {
	log := applog.WithComponent("script")
	for _, c := range sc.Commands {
		s := t.Session()
		if s == nil {
			return fmt.Errorf("line %d: %s: no open document", c.Line, c.Op)
		}
		ok, err := execute(t, s, c)
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", c.Line, c.Op, err)
		}
		if !ok {
			log.Warn("command had no effect", slog.Int("line", c.Line), slog.String("cmd", c.Op.String()))
		}
	}
	return nil
}

func execute(t Target, s *session.Session, c Command) (bool, error) {
	pt := func() domain.Point { return domain.Pt(c.Nums[0], c.Nums[1]) }
	needSel := func() error {
		if s.Selected() == nil {
			return ErrNoSelection
		}
		return nil
	}
	switch c.Op {
	case OpWidth:
		h := 0.0
		if len(c.Nums) > 1 {
			h = c.Nums[1]
		}
		s.Resize(c.Nums[0], h)
		return true, nil
	case OpPage:
		n := int(c.Nums[0])
		if n > s.PageCount() {
			return false, fmt.Errorf("page %d of %d", n, s.PageCount())
		}
		s.GoTo(n - 1)
		return true, nil
	case OpNext:
		return s.NextPage(), nil
	case OpPrev:
		return s.PrevPage(), nil
	case OpScroll:
		s.Scroll(c.Nums[0])
		return true, nil
	case OpText:
		if !s.Mapper().Ready() {
			return false, errors.New("display width not set")
		}
		return s.PlaceAt(pt(), c.Text) != nil, nil
	case OpSelect:
		if !s.Mapper().Ready() {
			return false, errors.New("display width not set")
		}
		return s.Index().SelectNearest(s.Page(), pt()) != nil, nil
	case OpMove:
		if err := needSel(); err != nil {
			return false, err
		}
		return s.Index().Move(s.Selected(), pt()), nil
	case OpSize:
		if err := needSel(); err != nil {
			return false, err
		}
		return s.Index().Resize(s.Selected(), int(c.Nums[0])), nil
	case OpEdit:
		if err := needSel(); err != nil {
			return false, err
		}
		return s.EditSelected(c.Text), nil
	case OpDelete:
		if err := needSel(); err != nil {
			return false, err
		}
		return s.DeleteSelected(), nil
	case OpClear:
		return s.ClearPage(), nil
	case OpDuplicate:
		return true, t.DuplicatePages(c.Text)
	case OpColor, OpBackground:
		col, err := domain.ParseColor(c.Text)
		if err != nil {
			return false, err
		}
		cfg := s.Index().Config()
		if c.Op == OpColor {
			s.Index().SetColors(col, cfg.Background)
		} else {
			s.Index().SetColors(cfg.TextColor, col)
		}
		return true, nil
	case OpPick:
		if s.Mode() != session.ModePipette {
			s.EnablePipette()
		}
		_, ok := s.PickColor(pt())
		return ok, nil
	}
	return false, fmt.Errorf("unsupported command %v", c.Op)
}
