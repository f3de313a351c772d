/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// DefaultFamily is the family name the bundled bold face is registered under.
const DefaultFamily = "Go Bold"

// FontLibrary stores parsed OpenType fonts by family name.
type FontLibrary struct {
	fonts map[string]*opentype.Font
	first string
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[string]*opentype.Font)} }

// DefaultLibrary holds only the bundled Go Bold face.
func DefaultLibrary() *FontLibrary {
	fl := NewFontLibrary()
	if err := fl.Load(DefaultFamily, gobold.TTF); err != nil {
		// gobold.TTF is compiled in; failing to parse it is a build problem.
		panic(err)
	}
	return fl
}

// LoadTTF loads a font file into the library under family.
func (fl *FontLibrary) LoadTTF(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.Load(family, data); err != nil {
		return fmt.Errorf("font %s: %w", path, err)
	}
	return nil
}

// Load parses TrueType/OpenType data into the library under family.
func (fl *FontLibrary) Load(family string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	if fl.fonts == nil {
		fl.fonts = make(map[string]*opentype.Font)
	}
	if fl.first == "" {
		fl.first = family
	}
	fl.fonts[family] = f
	return nil
}

// find returns the requested family, else the first font loaded.
func (fl *FontLibrary) find(family string) *opentype.Font {
	if fl == nil || len(fl.fonts) == 0 {
		return nil
	}
	if f, ok := fl.fonts[family]; ok {
		return f
	}
	return fl.fonts[fl.first]
}

// OTProvider resolves FontSpec from a FontLibrary and falls back to another Provider.
// Faces are cached per family and size.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // 72 if zero, which makes SizePt a pixel size
	Fallback Provider

	mu    sync.Mutex
	faces map[faceKey]cachedFace
}

type faceKey struct {
	family string
	size   float32
}

type cachedFace struct {
	face font.Face
	m    Metrics
}

// NewOTProvider returns a provider over lib with the basic bitmap font as fallback.
func NewOTProvider(lib *FontLibrary) *OTProvider {
	return &OTProvider{Lib: lib, Fallback: BasicProvider{}}
}

func (p *OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	key := faceKey{spec.Family, spec.SizePt}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.faces[key]; ok {
		return c.face, c.m
	}
	if f := p.Lib.find(spec.Family); f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingFull})
		if err == nil {
			c := cachedFace{face: face, m: metricsOf(face)}
			if p.faces == nil {
				p.faces = make(map[faceKey]cachedFace)
			}
			p.faces[key] = c
			return c.face, c.m
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
