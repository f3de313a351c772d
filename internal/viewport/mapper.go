/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package viewport maps between the display surface, whose width follows the
// window, and the source page bitmap, which keeps its scanned resolution.
// A single horizontal ratio is used for both axes.
package viewport

import (
	"errors"
	"math"

	"scanmark/internal/domain"
)

// ErrNotLaidOut is returned while either width is unknown or non-positive.
var ErrNotLaidOut = errors.New("viewport: surface not laid out")

// Mapper holds the current display/source ratio. The zero value is not ready.
type Mapper struct {
	surfaceW float64
	sourceW  float64
	ratio    float64
}

// New returns a mapper for the given widths.
func New(surfaceW, sourceW float64) *Mapper {
	m := &Mapper{}
	m.Resize(surfaceW, sourceW)
	return m
}

// Resize recomputes the ratio. Non-positive widths leave the mapper not ready.
func (m *Mapper) Resize(surfaceW, sourceW float64) {
	m.surfaceW, m.sourceW = surfaceW, sourceW
	if surfaceW > 0 && sourceW > 0 && !math.IsInf(surfaceW, 0) && !math.IsNaN(surfaceW) && !math.IsNaN(sourceW) {
		m.ratio = surfaceW / sourceW
		return
	}
	m.ratio = 0
}

// SetSurfaceWidth keeps the source width and updates the display width.
func (m *Mapper) SetSurfaceWidth(w float64) { m.Resize(w, m.sourceW) }

// SetSourceWidth keeps the display width and updates the source width, e.g. on page change.
func (m *Mapper) SetSourceWidth(w float64) { m.Resize(m.surfaceW, w) }

// Ready reports whether mappings are possible.
func (m *Mapper) Ready() bool { return m != nil && m.ratio > 0 }

// Ratio returns display/source, or ErrNotLaidOut.
func (m *Mapper) Ratio() (float64, error) {
	if !m.Ready() {
		return 0, ErrNotLaidOut
	}
	return m.ratio, nil
}

// SurfaceWidth returns the last display width given to the mapper.
func (m *Mapper) SurfaceWidth() float64 { return m.surfaceW }

// DisplayHeight returns the display height of a source bitmap of height h.
func (m *Mapper) DisplayHeight(h float64) (float64, error) {
	r, err := m.Ratio()
	if err != nil {
		return 0, err
	}
	return h * r, nil
}

// ToSource maps a display point into source bitmap space.
func (m *Mapper) ToSource(p domain.Point) (domain.Point, error) {
	r, err := m.Ratio()
	if err != nil {
		return domain.Point{}, err
	}
	return domain.Point{X: p.X / r, Y: p.Y / r}, nil
}

// ToDisplay maps a source point onto the display surface.
func (m *Mapper) ToDisplay(p domain.Point) (domain.Point, error) {
	r, err := m.Ratio()
	if err != nil {
		return domain.Point{}, err
	}
	return p.Scale(r), nil
}

// SourceFontSize converts a display font size to the pixel size used when
// baking text into the source bitmap: ceil(size/ratio) + bump.
func (m *Mapper) SourceFontSize(size, bump int) (int, error) {
	r, err := m.Ratio()
	if err != nil {
		return 0, err
	}
	return int(math.Ceil(float64(size)/r)) + bump, nil
}
