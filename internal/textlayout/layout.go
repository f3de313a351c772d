/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Text placement for single-line labels. A label is anchored at the top-left
// corner of its line box: the baseline sits one ascent below the anchor.

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FontSpec describes a requested font. At the default 72 DPI SizePt equals pixels.
type FontSpec struct {
	Family string
	SizePt float32
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses the fixed 7x13 bitmap face regardless of size.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	return basicfont.Face7x13, metricsOf(basicfont.Face7x13)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Label is a single line of text positioned for drawing.
type Label struct {
	Text    string
	Face    font.Face
	Dot     fixed.Point26_6 // baseline origin
	Ink     image.Rectangle // pixels touched by the glyphs
	Advance float32
}

// Place positions text with its top-left anchor at (x, y).
func Place(face font.Face, text string, x, y float64) Label {
	asc := face.Metrics().Ascent
	dot := fixed.Point26_6{X: toFixed(x), Y: toFixed(y) + asc}
	b, adv := font.BoundString(face, text)
	ink := image.Rectangle{
		Min: image.Pt((dot.X + b.Min.X).Floor(), (dot.Y + b.Min.Y).Floor()),
		Max: image.Pt((dot.X + b.Max.X).Ceil(), (dot.Y + b.Max.Y).Ceil()),
	}
	return Label{Text: text, Face: face, Dot: dot, Ink: ink, Advance: float32(adv) / 64}
}

// Box returns the line box of l: full advance wide, ascent plus descent high.
func (l Label) Box() image.Rectangle {
	m := l.Face.Metrics()
	x := l.Dot.X.Floor()
	return image.Rect(x, (l.Dot.Y - m.Ascent).Floor(), x+int(math.Ceil(float64(l.Advance))), (l.Dot.Y + m.Descent).Ceil())
}

// Draw paints l onto dst in c.
func (l Label) Draw(dst draw.Image, c color.Color) {
	d := font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: l.Face, Dot: l.Dot}
	d.DrawString(l.Text)
}

// Measure returns the advance width and line height of text in the face resolved for spec.
func Measure(provider Provider, spec FontSpec, text string) (w, h float32) {
	if provider == nil {
		provider = BasicProvider{}
	}
	face, met := provider.Resolve(spec)
	return float32(font.MeasureString(face, text)) / 64, met.Ascent + met.Descent
}

func toFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }
