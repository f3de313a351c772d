/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session holds the state of the document being annotated and turns
// pointer input into index operations.
package session

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"scanmark/internal/annotate"
	"scanmark/internal/domain"
	"scanmark/internal/export"
	applog "scanmark/internal/log"
	"scanmark/internal/pagestore"
	"scanmark/internal/viewport"
)

// ErrInvalidRange is returned by DuplicatePages for a malformed or out-of-bounds range.
var ErrInvalidRange = annotate.ErrInvalidRange

// ScrollStep is the display distance of one wheel unit.
const ScrollStep = 20.0

// Mode decides what a primary click does.
type Mode int

const (
	ModeIdle    Mode = iota // clicks do nothing, drags move the selection
	ModeText                // the next click places text
	ModePipette             // clicks sample colors from the page
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModePipette:
		return "pipette"
	default:
		return "idle"
	}
}

// Display is the surface a session draws on: annotation objects plus the
// page backdrop scaled to its width.
type Display interface {
	annotate.Surface
	Width() float64
	ShowPage(page image.Image)
}

// Prompter asks the operator for text. It reports false when cancelled.
type Prompter interface {
	AskText(title, initial string) (string, bool)
}

// Session is one open document. It is not safe for concurrent use.
type Session struct {
	path    string
	store   *pagestore.Store
	idx     *annotate.Index
	mapper  *viewport.Mapper
	display Display
	prompt  Prompter

	page    int
	mode    Mode
	pending string
	picks   int
	scroll  float64
	viewH   float64
	log     *slog.Logger
}

// Open starts a session on pages and shows the first page. display may be nil
// for headless use; the mapper then waits for Resize.
func Open(path string, pages []image.Image, display Display, cfg annotate.Config) *Session {
	s := &Session{
		path:    path,
		store:   pagestore.New(pages),
		mapper:  &viewport.Mapper{},
		display: display,
		log:     applog.WithComponent("session").With(slog.String("doc", path)),
	}
	var surf annotate.Surface
	if display != nil {
		surf = display
		s.mapper.Resize(display.Width(), float64(s.store.Width(0)))
	}
	s.idx = annotate.NewIndex(cfg, surf)
	s.refresh()
	s.log.Info("document opened", slog.Int("pages", s.store.Len()))
	return s
}

// SetPrompter installs the text prompt used by ModeText clicks.
func (s *Session) SetPrompter(p Prompter) { s.prompt = p }

func (s *Session) Path() string { return s.path }
func (s *Session) Index() *annotate.Index { return s.idx }
func (s *Session) Store() *pagestore.Store { return s.store }
func (s *Session) Mapper() *viewport.Mapper { return s.mapper }
func (s *Session) Page() int { return s.page }
func (s *Session) PageCount() int { return s.store.Len() }
func (s *Session) Mode() Mode { return s.mode }
func (s *Session) ScrollOffset() float64 { return s.scroll }
func (s *Session) Selected() *annotate.Annotation { return s.idx.Selected() }

// PageLabel reads "Page i of n".
func (s *Session) PageLabel() string {
	return fmt.Sprintf("Page %d of %d", s.page+1, s.store.Len())
}

// refresh redraws the backdrop and annotations of the current page.
func (s *Session) refresh() {
	if s.store.Len() == 0 {
		return
	}
	s.mapper.SetSourceWidth(float64(s.store.Width(s.page)))
	if s.display != nil {
		bmp, err := s.store.Page(s.page)
		if err == nil {
			s.display.ShowPage(bmp)
		}
	}
	s.idx.Show(s.page)
}

// Resize records new display dimensions and redraws the current page.
// Displays that size themselves, like an offscreen raster, follow width.
func (s *Session) Resize(width, height float64) {
	if d, ok := s.display.(interface{ SetWidth(int) }); ok {
		d.SetWidth(int(width))
	}
	s.mapper.SetSurfaceWidth(width)
	s.viewH = height
	s.scroll = s.clampScroll(s.scroll)
	s.refresh()
}

// GoTo shows page i (0-based). Out-of-range pages are ignored.
func (s *Session) GoTo(i int) bool {
	if i < 0 || i >= s.store.Len() || i == s.page {
		return false
	}
	s.page = i
	s.scroll = 0
	s.refresh()
	return true
}

// NextPage moves forward one page, stopping at the last.
func (s *Session) NextPage() bool { return s.GoTo(s.page + 1) }

// PrevPage moves back one page, stopping at the first.
func (s *Session) PrevPage() bool { return s.GoTo(s.page - 1) }

// EnableText arms ModeText. A non-empty text is placed by the next click
// without prompting.
func (s *Session) EnableText(text string) {
	s.mode = ModeText
	s.pending = text
}

// EnablePipette arms ModePipette: the first pick sets the background color,
// the second the text color.
func (s *Session) EnablePipette() {
	s.mode = ModePipette
	s.picks = 0
}

// canvas converts a pointer position in the visible area to display space.
func (s *Session) canvas(p domain.Point) domain.Point { return domain.Pt(p.X, p.Y+s.scroll) }

// Click handles a primary click at p in the visible area.
func (s *Session) Click(p domain.Point) {
	if !s.mapper.Ready() {
		return
	}
	switch s.mode {
	case ModeText:
		text := s.pending
		if text == "" && s.prompt != nil {
			t, ok := s.prompt.AskText("Add Text", "")
			if !ok {
				return
			}
			text = t
		}
		if s.PlaceAt(s.canvas(p), text) != nil {
			s.mode, s.pending = ModeIdle, ""
		}
	case ModePipette:
		s.PickColor(s.canvas(p))
	}
}

// Drag moves the selected annotation to p.
func (s *Session) Drag(p domain.Point) {
	if !s.mapper.Ready() {
		return
	}
	s.idx.Move(s.idx.Selected(), s.canvas(p))
}

// RightClick selects the annotation nearest to p on the current page.
func (s *Session) RightClick(p domain.Point) *annotate.Annotation {
	if !s.mapper.Ready() {
		return nil
	}
	return s.idx.SelectNearest(s.page, s.canvas(p))
}

// Scroll moves the visible area by units wheel steps, positive is down.
func (s *Session) Scroll(units float64) {
	s.scroll = s.clampScroll(s.scroll + units*ScrollStep)
}

func (s *Session) clampScroll(v float64) float64 {
	bmp, err := s.store.Page(s.page)
	if err != nil {
		return 0
	}
	h, err := s.mapper.DisplayHeight(float64(bmp.Bounds().Dy()))
	if err != nil {
		return 0
	}
	return math.Max(0, math.Min(v, h-s.viewH))
}

// PlaceAt places text at display position pos on the current page.
func (s *Session) PlaceAt(pos domain.Point, text string) *annotate.Annotation {
	return s.idx.Place(s.page, text, pos)
}

// PickColor samples the current page at display position p and updates the
// default colors for later placements. Picks outside the page are ignored.
func (s *Session) PickColor(p domain.Point) (domain.Color, bool) {
	src, err := s.mapper.ToSource(p)
	if err != nil {
		return domain.Color{}, false
	}
	bmp, err := s.store.Page(s.page)
	if err != nil {
		return domain.Color{}, false
	}
	pt := image.Pt(int(src.X), int(src.Y))
	if src.X < 0 || src.Y < 0 || !pt.In(bmp.Bounds()) {
		return domain.Color{}, false
	}
	c := domain.FromColor(bmp.At(pt.X, pt.Y))
	cfg := s.idx.Config()
	if s.picks == 0 {
		s.idx.SetColors(cfg.TextColor, c)
		s.picks = 1
		s.log.Info("background color picked", slog.String("color", c.Hex()))
	} else {
		s.idx.SetColors(c, cfg.Background)
		s.picks = 0
		s.mode = ModeIdle
		s.log.Info("text color picked", slog.String("color", c.Hex()))
	}
	return c, true
}

// Grow enlarges the selected annotation by one font step.
func (s *Session) Grow() bool { return s.idx.Resize(s.idx.Selected(), annotate.FontStep) }

// Shrink reduces the selected annotation by one font step.
func (s *Session) Shrink() bool { return s.idx.Resize(s.idx.Selected(), -annotate.FontStep) }

// EditSelected replaces the text of the selection.
func (s *Session) EditSelected(text string) bool { return s.idx.Edit(s.idx.Selected(), text) }

// DeleteSelected removes the selection.
func (s *Session) DeleteSelected() bool { return s.idx.Delete(s.idx.Selected()) }

// ClearPage removes all text from the current page.
func (s *Session) ClearPage() bool { return s.idx.ClearPage(s.page) }

// ParseRange reads "start-end" or a single page number.
func ParseRange(text string) (start, end int, err error) {
	text = strings.TrimSpace(text)
	a, b, found := strings.Cut(text, "-")
	start, err1 := strconv.Atoi(strings.TrimSpace(a))
	end = start
	var err2 error
	if found {
		end, err2 = strconv.Atoi(strings.TrimSpace(b))
	}
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("range %q: %w", text, ErrInvalidRange)
	}
	return start, end, nil
}

// DuplicatePages copies the pages in rangeText, inserts the copies after the
// range and shows the last copy. Nothing changes on error.
func (s *Session) DuplicatePages(rangeText string) (start, end int, err error) {
	start, end, err = ParseRange(rangeText)
	if err != nil {
		return 0, 0, err
	}
	if start < 1 || start > end || end > s.store.Len() {
		return 0, 0, fmt.Errorf("range %d-%d of %d pages: %w", start, end, s.store.Len(), ErrInvalidRange)
	}
	if err := s.store.Duplicate(start, end); err != nil {
		return 0, 0, fmt.Errorf("%v: %w", err, ErrInvalidRange)
	}
	last, err := s.idx.Duplicate(start, end)
	if err != nil {
		return 0, 0, err
	}
	s.page = last
	s.scroll = 0
	s.refresh()
	s.log.Info("pages duplicated", slog.Int("start", start), slog.Int("end", end), slog.Int("pages", s.store.Len()))
	return start, end, nil
}

// Render bakes every annotation into a copy of its page at source resolution.
func (s *Session) Render(c *export.Compositor) ([]*image.RGBA, error) {
	return c.Document(s.store, s.idx, s.mapper.SurfaceWidth())
}

// Close releases every drawn object and forgets the document's annotations.
func (s *Session) Close() {
	s.idx.Reset()
	s.mode = ModeIdle
	s.log.Debug("document closed")
}
