/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package annotate

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"scanmark/internal/domain"
	applog "scanmark/internal/log"
)

// ErrInvalidRange is returned for a page range that is empty or starts before page 1.
var ErrInvalidRange = errors.New("invalid page range")

type handlePair struct{ text, rect Handle }

// Index maps pages to their annotations and owns every handle drawn for them.
// Only the annotations of the shown page are drawn. An Index is not safe for
// concurrent use.
type Index struct {
	cfg      Config
	pages    map[int][]*Annotation
	surface  Surface
	shown    int
	handles  map[uuid.UUID]handlePair
	selected *Annotation
	log      *slog.Logger
}

// NewIndex returns an empty index drawing on s. A nil surface keeps the index headless.
func NewIndex(cfg Config, s Surface) *Index {
	if cfg.FontSize < MinFontSize {
		cfg.FontSize = DefaultConfig().FontSize
	}
	return &Index{
		cfg:     cfg,
		pages:   map[int][]*Annotation{},
		surface: s,
		shown:   -1,
		handles: map[uuid.UUID]handlePair{},
		log:     applog.WithComponent("annotate"),
	}
}

// Config returns the values used for new annotations.
func (x *Index) Config() Config { return x.cfg }

// SetColors changes the colors of annotations placed from now on.
func (x *Index) SetColors(text, background domain.Color) {
	x.cfg.TextColor, x.cfg.Background = text, background
}

// Attach switches drawing to s, releasing every handle held on the old surface.
func (x *Index) Attach(s Surface) {
	page := x.shown
	x.hide()
	x.surface = s
	if page >= 0 {
		x.Show(page)
	}
}

// Show draws the annotations of page and releases those of the previously shown page.
// It is also the redraw entry point after a resize. A selection on another page is dropped.
func (x *Index) Show(page int) {
	x.hide()
	x.shown = page
	if x.selected != nil && !slices.Contains(x.pages[page], x.selected) {
		x.selected = nil
	}
	for _, a := range x.pages[page] {
		x.draw(a)
	}
}

// Shown returns the page currently drawn, or -1.
func (x *Index) Shown() int { return x.shown }

func (x *Index) hide() {
	for id, hp := range x.handles {
		x.destroy(hp)
		delete(x.handles, id)
	}
	x.shown = -1
}

// Reset releases all handles and forgets every annotation and the selection.
func (x *Index) Reset() {
	x.hide()
	x.pages = map[int][]*Annotation{}
	x.selected = nil
}

// Page returns a copy of the annotations on page in z-order.
func (x *Index) Page(page int) []*Annotation { return slices.Clone(x.pages[page]) }

// Pages returns the pages holding at least one annotation, ascending.
func (x *Index) Pages() []int {
	keys := make([]int, 0, len(x.pages))
	for p := range x.pages {
		keys = append(keys, p)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of annotations across all pages.
func (x *Index) Len() int {
	n := 0
	for _, list := range x.pages {
		n += len(list)
	}
	return n
}

// PageOf returns the page a belongs to.
func (x *Index) PageOf(a *Annotation) (int, bool) {
	for p, list := range x.pages {
		if slices.Contains(list, a) {
			return p, true
		}
	}
	return 0, false
}

// Locked reports whether page came from duplication. Such pages accept no new
// text and cannot be cleared.
func (x *Index) Locked(page int) bool {
	list := x.pages[page]
	return len(list) > 0 && list[0].ReadOnly
}

// Handles returns the text and background handles currently drawn for a.
func (x *Index) Handles(a *Annotation) (text, rect Handle) {
	hp := x.handles[a.ID]
	return hp.text, hp.rect
}

// Selected returns the current selection, or nil.
func (x *Index) Selected() *Annotation { return x.selected }

// Select makes a the current selection. nil clears it.
func (x *Index) Select(a *Annotation) { x.selected = a }

// SelectNearest selects the annotation on page closest to p and returns it.
// An empty page leaves the selection untouched.
func (x *Index) SelectNearest(page int, p domain.Point) *Annotation {
	a := Nearest(x.pages[page], p)
	if a != nil {
		x.selected = a
	}
	return a
}

// Place adds text at pos on page and selects it. It returns nil when the text
// is empty, the page is locked, or the same text already sits at pos.
func (x *Index) Place(page int, text string, pos domain.Point) *Annotation {
	l := applog.WithOperation(x.log, "place")
	if text == "" {
		return nil
	}
	if x.Locked(page) {
		l.Debug("page is a duplicate, placement rejected", slog.Int("page", page))
		return nil
	}
	for _, a := range x.pages[page] {
		if a.sameSpot(text, pos) {
			l.Debug("annotation already exists", slog.Int("page", page), slog.String("text", text))
			return nil
		}
	}
	a := &Annotation{
		ID:         uuid.New(),
		Text:       text,
		Pos:        pos,
		FontSize:   x.cfg.FontSize,
		TextColor:  x.cfg.TextColor,
		Background: x.cfg.Background,
	}
	x.pages[page] = append(x.pages[page], a)
	if page == x.shown {
		x.draw(a)
	}
	x.selected = a
	return a
}

// Move repositions a. Read-only annotations do not move.
func (x *Index) Move(a *Annotation, pos domain.Point) bool {
	if a == nil || a.ReadOnly {
		return false
	}
	a.Pos = pos
	x.redraw(a)
	return true
}

// Resize changes the font size of a by delta, never below MinFontSize.
func (x *Index) Resize(a *Annotation, delta int) bool {
	if a == nil || a.ReadOnly {
		return false
	}
	a.FontSize = max(MinFontSize, a.FontSize+delta)
	x.redraw(a)
	return true
}

// Edit replaces the text of a. Empty text leaves it unchanged.
func (x *Index) Edit(a *Annotation, text string) bool {
	if a == nil || a.ReadOnly || text == "" {
		return false
	}
	a.Text = text
	x.redraw(a)
	return true
}

// Delete removes a from its page and releases its handles.
func (x *Index) Delete(a *Annotation) bool {
	if a == nil || a.ReadOnly {
		return false
	}
	page, ok := x.PageOf(a)
	if !ok {
		return false
	}
	x.release(a)
	list := slices.DeleteFunc(x.pages[page], func(b *Annotation) bool { return b == a })
	x.setPage(page, list)
	if x.selected == a {
		x.selected = nil
	}
	return true
}

// ClearPage removes every annotation from page unless the page is locked.
func (x *Index) ClearPage(page int) bool {
	if x.Locked(page) {
		x.log.Debug("page is a duplicate, clear rejected", slog.Int("page", page))
		return false
	}
	for _, a := range x.pages[page] {
		x.release(a)
		if x.selected == a {
			x.selected = nil
		}
	}
	delete(x.pages, page)
	return true
}

// Duplicate restructures the index for pages start..end (1-based, inclusive)
// being copied and inserted right after end. Annotations on the pages behind
// the range move back by the range length; read-only copies of the range's
// annotations are appended to the new pages. It returns the 0-based index of
// the last inserted page. The caller checks end against the page count and
// shows the resulting page; nothing is drawn on return.
func (x *Index) Duplicate(start, end int) (int, error) {
	if start < 1 || end < start {
		return 0, fmt.Errorf("duplicate %d-%d: %w", start, end, ErrInvalidRange)
	}
	n := end - start + 1
	x.hide()

	before := x.pages
	shifted := make(map[int][]*Annotation, len(before)+n)
	for p, list := range before {
		if p >= end {
			shifted[p+n] = list
		} else {
			shifted[p] = list
		}
	}
	for i := 0; i < n; i++ {
		src := before[start-1+i]
		if len(src) == 0 {
			continue
		}
		dst := end + i
		for _, a := range src {
			shifted[dst] = append(shifted[dst], a.clone())
		}
	}
	x.pages = shifted
	return end + n - 1, nil
}

func (x *Index) setPage(page int, list []*Annotation) {
	if len(list) == 0 {
		delete(x.pages, page)
		return
	}
	x.pages[page] = list
}

func (x *Index) redraw(a *Annotation) {
	if x.shown < 0 || !slices.Contains(x.pages[x.shown], a) {
		return
	}
	x.draw(a)
}

// draw replaces any handles of a with fresh ones: text first, then its
// background box stacked directly beneath it.
func (x *Index) draw(a *Annotation) {
	x.release(a)
	if x.surface == nil {
		return
	}
	th := x.surface.DrawText(a.Text, a.Pos, a.FontSize, a.TextColor)
	var rh Handle
	if box, ok := x.surface.BoundingBox(th); ok {
		rh = x.surface.DrawRect(box, a.Background)
		x.surface.StackBelow(rh, th)
	}
	x.handles[a.ID] = handlePair{text: th, rect: rh}
}

func (x *Index) release(a *Annotation) {
	hp, ok := x.handles[a.ID]
	if !ok {
		return
	}
	x.destroy(hp)
	delete(x.handles, a.ID)
}

func (x *Index) destroy(hp handlePair) {
	if x.surface == nil {
		return
	}
	if hp.text != 0 {
		x.surface.Delete(hp.text)
	}
	if hp.rect != 0 {
		x.surface.Delete(hp.rect)
	}
}
