/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export bakes annotations into full-resolution page bitmaps and
// writes the result as PDF or PNG files.
package export

import (
	"fmt"
	"image"
	"image/draw"

	"scanmark/internal/annotate"
	"scanmark/internal/domain"
	"scanmark/internal/pagestore"
	"scanmark/internal/textlayout"
	"scanmark/internal/viewport"
)

// Options controls how display annotations become source pixels.
type Options struct {
	Family   string // font family in the provider's library
	Padding  int    // background margin around the text ink, in source pixels
	FontBump int    // added to the scaled font size
	OffsetY  float64
}

// DefaultOptions matches what the display shows: 1px padding, +2px font, text
// nudged down 1px so the box clears the glyph tops.
func DefaultOptions() Options {
	return Options{Family: textlayout.DefaultFamily, Padding: 1, FontBump: 2, OffsetY: 1}
}

// Compositor draws annotations onto page copies. Identical inputs produce
// identical pixels.
type Compositor struct {
	fonts textlayout.Provider
	opts  Options
}

// NewCompositor uses fonts for every label. A nil provider uses the bundled bold face.
func NewCompositor(fonts textlayout.Provider, opts Options) *Compositor {
	if fonts == nil {
		fonts = textlayout.NewOTProvider(textlayout.DefaultLibrary())
	}
	return &Compositor{fonts: fonts, opts: opts}
}

// Page returns a copy of bmp with anns baked in. m maps display space onto bmp.
func (c *Compositor) Page(bmp image.Image, anns []*annotate.Annotation, m *viewport.Mapper) (*image.RGBA, error) {
	out := pagestore.Copy(bmp)
	for _, a := range anns {
		pos, err := m.ToSource(a.Pos)
		if err != nil {
			return nil, err
		}
		size, err := m.SourceFontSize(a.FontSize, c.opts.FontBump)
		if err != nil {
			return nil, err
		}
		face, _ := c.fonts.Resolve(textlayout.FontSpec{Family: c.opts.Family, SizePt: float32(size)})
		l := textlayout.Place(face, a.Text, pos.X, pos.Y+c.opts.OffsetY)
		fill(out, l.Ink.Inset(-c.opts.Padding), a.Background)
		l.Draw(out, a.TextColor)
	}
	return out, nil
}

// Document composites every page of store. surfaceW is the display width the
// annotations were placed at; each page is scaled against its own width.
func (c *Compositor) Document(store *pagestore.Store, idx *annotate.Index, surfaceW float64) ([]*image.RGBA, error) {
	if surfaceW <= 0 {
		return nil, viewport.ErrNotLaidOut
	}
	out := make([]*image.RGBA, 0, store.Len())
	for i := 0; i < store.Len(); i++ {
		bmp, err := store.Page(i)
		if err != nil {
			return nil, err
		}
		m := viewport.New(surfaceW, float64(bmp.Bounds().Dx()))
		page, err := c.Page(bmp, idx.Page(i), m)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out = append(out, page)
	}
	return out, nil
}

// fill paints r on img.
func fill(img draw.Image, r image.Rectangle, c domain.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}
