/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package annotate holds the per-page text annotations of an open document
// and keeps their on-screen representation in step with them.
//
// Every annotation lives on exactly one page (0-based). Pages without
// annotations are not present in the index at all. The order of annotations on
// a page is their z-order and is preserved by every operation, including page
// duplication.
package annotate

import (
	"github.com/google/uuid"

	"scanmark/internal/domain"
)

// Annotation is a text label anchored at its top-left corner in display space.
type Annotation struct {
	ID         uuid.UUID
	Text       string
	Pos        domain.Point
	FontSize   int
	TextColor  domain.Color
	Background domain.Color
	// ReadOnly marks annotations copied onto duplicated pages. They are shown
	// and exported but never changed, and they lock their page against new text.
	ReadOnly bool
}

// MinFontSize is the smallest display font size an annotation can shrink to.
const MinFontSize = 2

// FontStep is the size change applied by one grow/shrink action.
const FontStep = 2

// clone returns a read-only deep copy with a fresh identity.
func (a *Annotation) clone() *Annotation {
	c := *a
	c.ID = uuid.New()
	c.ReadOnly = true
	return &c
}

func (a *Annotation) sameSpot(text string, pos domain.Point) bool {
	return a.Text == text && a.Pos == pos
}

// Config carries the values new annotations start with.
type Config struct {
	TextColor  domain.Color
	Background domain.Color
	FontSize   int
}

// DefaultConfig is black text on a white box at size 12.
func DefaultConfig() Config {
	return Config{TextColor: domain.Black, Background: domain.White, FontSize: 12}
}

// Handle identifies one drawn object on a Surface. Zero means "not drawn".
type Handle uint64

// Surface is the drawing side of the display. Objects are stacked in creation
// order unless restacked.
type Surface interface {
	DrawText(text string, pos domain.Point, size int, c domain.Color) Handle
	DrawRect(r domain.Rect, fill domain.Color) Handle
	// BoundingBox reports the extent of a drawn object in display space.
	BoundingBox(h Handle) (domain.Rect, bool)
	// StackBelow moves h directly beneath ref.
	StackBelow(h, ref Handle)
	Delete(h Handle)
}

// Nearest returns the annotation with the smallest Manhattan distance to p.
// The earliest one wins a tie. It returns nil for an empty list.
func Nearest(list []*Annotation, p domain.Point) *Annotation {
	var best *Annotation
	bestD := 0.0
	for _, a := range list {
		d := a.Pos.Manhattan(p)
		if best == nil || d < bestD {
			best, bestD = a, d
		}
	}
	return best
}
