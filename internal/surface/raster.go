/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package surface provides Raster, an in-memory display used by headless runs
// and previews. It draws the way the desktop canvas does: the page scaled to
// the surface width with text objects stacked on top.
package surface

import (
	"image"
	"image/draw"
	"math"
	"slices"

	"github.com/anthonynsimon/bild/transform"

	"scanmark/internal/annotate"
	"scanmark/internal/domain"
	"scanmark/internal/textlayout"
)

type kind int

const (
	kindText kind = iota + 1
	kindRect
)

type object struct {
	h     annotate.Handle
	kind  kind
	color domain.Color
	box   domain.Rect
	label textlayout.Label
}

// Raster is a fixed-width display. It is not safe for concurrent use.
type Raster struct {
	width    int
	fonts    textlayout.Provider
	family   string
	backdrop *image.RGBA
	objs     []object
	next     annotate.Handle
}

// NewRaster returns a surface width pixels wide. A nil provider uses the bundled face.
func NewRaster(width int, fonts textlayout.Provider) *Raster {
	if fonts == nil {
		fonts = textlayout.NewOTProvider(textlayout.DefaultLibrary())
	}
	return &Raster{width: width, fonts: fonts, family: textlayout.DefaultFamily}
}

// SetFamily selects the font family text is drawn with.
func (r *Raster) SetFamily(family string) { r.family = family }

// SetFonts replaces the font provider and family, e.g. with a custom font
// registered by the caller.
func (r *Raster) SetFonts(fonts textlayout.Provider, family string) {
	if fonts != nil {
		r.fonts = fonts
	}
	r.family = family
}

// Family returns the font family text is drawn with.
func (r *Raster) Family() string { return r.family }

// Width returns the display width in pixels.
func (r *Raster) Width() float64 { return float64(r.width) }

// SetWidth changes the display width. The caller shows the page again.
func (r *Raster) SetWidth(w int) { r.width = w }

// ShowPage replaces the backdrop with page scaled to the surface width.
func (r *Raster) ShowPage(page image.Image) {
	b := page.Bounds()
	if r.width <= 0 || b.Dx() == 0 {
		r.backdrop = nil
		return
	}
	h := int(math.Round(float64(b.Dy()) * float64(r.width) / float64(b.Dx())))
	r.backdrop = transform.Resize(page, r.width, max(h, 1), transform.Lanczos)
}

// Backdrop returns the scaled page, or nil.
func (r *Raster) Backdrop() *image.RGBA { return r.backdrop }

func (r *Raster) add(o object) annotate.Handle {
	r.next++
	o.h = r.next
	r.objs = append(r.objs, o)
	return o.h
}

func (r *Raster) DrawText(text string, pos domain.Point, size int, c domain.Color) annotate.Handle {
	face, _ := r.fonts.Resolve(textlayout.FontSpec{Family: r.family, SizePt: float32(size)})
	l := textlayout.Place(face, text, pos.X, pos.Y)
	ink := l.Ink
	return r.add(object{
		kind:  kindText,
		color: c,
		label: l,
		box:   domain.Rect{Min: domain.Pt(float64(ink.Min.X), float64(ink.Min.Y)), Max: domain.Pt(float64(ink.Max.X), float64(ink.Max.Y))},
	})
}

func (r *Raster) DrawRect(box domain.Rect, fill domain.Color) annotate.Handle {
	return r.add(object{kind: kindRect, color: fill, box: box})
}

func (r *Raster) BoundingBox(h annotate.Handle) (domain.Rect, bool) {
	if i := r.find(h); i >= 0 {
		return r.objs[i].box, true
	}
	return domain.Rect{}, false
}

func (r *Raster) StackBelow(h, ref annotate.Handle) {
	i := r.find(h)
	if i < 0 || r.find(ref) < 0 {
		return
	}
	o := r.objs[i]
	r.objs = slices.Delete(r.objs, i, i+1)
	j := r.find(ref)
	r.objs = slices.Insert(r.objs, j, o)
}

func (r *Raster) Delete(h annotate.Handle) {
	if i := r.find(h); i >= 0 {
		r.objs = slices.Delete(r.objs, i, i+1)
	}
}

// Objects returns the live handles bottom to top.
func (r *Raster) Objects() []annotate.Handle {
	out := make([]annotate.Handle, len(r.objs))
	for i, o := range r.objs {
		out[i] = o.h
	}
	return out
}

func (r *Raster) find(h annotate.Handle) int {
	return slices.IndexFunc(r.objs, func(o object) bool { return o.h == h })
}

// Render composes the backdrop and every object. Without a backdrop the
// canvas is white and as tall as the lowest object.
func (r *Raster) Render() *image.RGBA {
	var out *image.RGBA
	if r.backdrop != nil {
		out = image.NewRGBA(r.backdrop.Bounds())
		draw.Draw(out, out.Bounds(), r.backdrop, r.backdrop.Bounds().Min, draw.Src)
	} else {
		h := 1
		for _, o := range r.objs {
			h = max(h, int(math.Ceil(o.box.Max.Y)))
		}
		out = image.NewRGBA(image.Rect(0, 0, max(r.width, 1), h))
		draw.Draw(out, out.Bounds(), image.NewUniform(domain.White), image.Point{}, draw.Src)
	}
	for _, o := range r.objs {
		switch o.kind {
		case kindRect:
			rect := image.Rect(int(math.Floor(o.box.Min.X)), int(math.Floor(o.box.Min.Y)), int(math.Ceil(o.box.Max.X)), int(math.Ceil(o.box.Max.Y)))
			draw.Draw(out, rect, image.NewUniform(o.color), image.Point{}, draw.Src)
		case kindText:
			o.label.Draw(out, o.color)
		}
	}
	return out
}
