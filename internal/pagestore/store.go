/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pagestore keeps the full-resolution bitmaps of the open document in page order.
package pagestore

import (
	"fmt"
	"image"
	"image/draw"
	"slices"
)

// Store is an ordered list of page bitmaps. Bitmaps are owned by the store:
// callers copy before drawing on them.
type Store struct {
	pages []*image.RGBA
}

// New copies imgs into a store.
func New(imgs []image.Image) *Store {
	s := &Store{pages: make([]*image.RGBA, 0, len(imgs))}
	for _, img := range imgs {
		s.pages = append(s.pages, Copy(img))
	}
	return s
}

// Len returns the page count.
func (s *Store) Len() int { return len(s.pages) }

// Page returns page i (0-based).
func (s *Store) Page(i int) (*image.RGBA, error) {
	if i < 0 || i >= len(s.pages) {
		return nil, fmt.Errorf("page %d out of range [0,%d)", i, len(s.pages))
	}
	return s.pages[i], nil
}

// Width returns the bitmap width of page i, or 0 when i is out of range.
func (s *Store) Width(i int) int {
	if i < 0 || i >= len(s.pages) {
		return 0
	}
	return s.pages[i].Bounds().Dx()
}

// Duplicate deep-copies pages start..end (1-based, inclusive) and inserts the
// copies directly after end.
func (s *Store) Duplicate(start, end int) error {
	if start < 1 || end < start || end > len(s.pages) {
		return fmt.Errorf("duplicate %d-%d of %d pages: invalid range", start, end, len(s.pages))
	}
	copies := make([]*image.RGBA, 0, end-start+1)
	for _, p := range s.pages[start-1 : end] {
		copies = append(copies, Copy(p))
	}
	s.pages = slices.Insert(s.pages, end, copies...)
	return nil
}

// Copy returns img as a new RGBA bitmap whose bounds start at the origin.
func Copy(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
