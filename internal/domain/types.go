/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the small value types shared by the annotation engine,
// the export pipeline and the bookkeeping stores.

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Point is a position in either display or source space; the owner knows which.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Scale multiplies both coordinates by f.
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Manhattan returns |p.X-q.X| + |p.Y-q.Y|.
func (p Point) Manhattan(q Point) float64 { return abs(p.X-q.X) + abs(p.Y-q.Y) }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Rect is an axis-aligned box given by its min and max corners.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Width of r.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height of r.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Inset grows r by d on every side (shrinks for negative d).
func (r Rect) Inset(d float64) Rect {
	return Rect{Min: Point{r.Min.X - d, r.Min.Y - d}, Max: Point{r.Max.X + d, r.Max.Y + d}}
}

// Color is an opaque RGB color serialized as "#rrggbb".
type Color struct{ R, G, B uint8 }

var (
	Black = Color{}
	White = Color{255, 255, 255}
)

// ParseColor accepts "#rrggbb", "rrggbb" and the short "#rgb" form.
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustColor is ParseColor for literals known to be valid.
func MustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromColor drops alpha from any color.Color.
func FromColor(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// Hex formats c as "#rrggbb".
func (c Color) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func (c Color) String() string { return c.Hex() }

// RGBA implements color.Color as a fully opaque color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// MarshalText writes the hex form so colors read naturally in JSON and YAML.
func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

// UnmarshalText parses the hex form.
func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Status is the last outcome recorded for a document.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusSaved     Status = "saved"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessed, StatusSkipped, StatusSaved:
		return true
	}
	return false
}

// Final reports whether the document should not be offered again on resume.
func (s Status) Final() bool { return s == StatusProcessed || s == StatusSkipped }

// Record is the last status stored for one document, keyed by its base file name.
type Record struct {
	ID     string
	Status Status
}
