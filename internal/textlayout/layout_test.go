/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

func TestMeasureDeterministic(t *testing.T) {
	p := NewOTProvider(DefaultLibrary())
	w1, h1 := Measure(p, FontSpec{SizePt: 24}, "ABC")
	w2, h2 := Measure(p, FontSpec{SizePt: 24}, "ABC")
	if w1 != w2 || h1 != h2 || w1 <= 0 || h1 <= 0 {
		t.Fatalf("measure not stable: %v,%v vs %v,%v", w1, h1, w2, h2)
	}
	wBig, _ := Measure(p, FontSpec{SizePt: 48}, "ABC")
	if wBig <= w1 {
		t.Fatalf("48px width %v not larger than 24px width %v", wBig, w1)
	}
}

func TestResolveCachesFaces(t *testing.T) {
	p := NewOTProvider(DefaultLibrary())
	f1, _ := p.Resolve(FontSpec{Family: DefaultFamily, SizePt: 20})
	f2, _ := p.Resolve(FontSpec{Family: DefaultFamily, SizePt: 20})
	if f1 != f2 {
		t.Fatalf("face not cached")
	}
}

func TestResolveFallsBack(t *testing.T) {
	p := &OTProvider{Lib: NewFontLibrary()}
	face, m := p.Resolve(FontSpec{SizePt: 30})
	if face != basicfont.Face7x13 {
		t.Fatalf("expected basic font fallback, got %T", face)
	}
	if m.Ascent <= 0 {
		t.Fatalf("fallback metrics empty: %+v", m)
	}
}

func TestLoadTTFAndUnknownFamily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	lib := NewFontLibrary()
	if err := lib.LoadTTF("Regular", path); err != nil {
		t.Fatalf("LoadTTF: %v", err)
	}
	if lib.find("Missing") == nil {
		t.Fatalf("unknown family should fall back to the first font")
	}
	if err := lib.LoadTTF("Broken", filepath.Join(t.TempDir(), "nope.ttf")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if err := lib.Load("Junk", []byte("not a font")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestPlaceAnchorsTopLeft(t *testing.T) {
	face, _ := NewOTProvider(DefaultLibrary()).Resolve(FontSpec{SizePt: 32})
	l := Place(face, "Hg", 100, 50)
	box := l.Box()
	if box.Min.X != 100 || box.Min.Y != 50 {
		t.Fatalf("line box min = %v, want (100,50)", box.Min)
	}
	if !l.Ink.In(box.Inset(-2)) {
		t.Fatalf("ink %v outside line box %v", l.Ink, box)
	}
	if l.Ink.Dx() <= 0 || l.Ink.Dy() <= 0 {
		t.Fatalf("empty ink box %v", l.Ink)
	}
}

func TestDrawPaintsInsideInk(t *testing.T) {
	face, _ := NewOTProvider(DefaultLibrary()).Resolve(FontSpec{SizePt: 24})
	dst := image.NewRGBA(image.Rect(0, 0, 200, 80))
	l := Place(face, "X", 20, 10)
	l.Draw(dst, color.Black)
	painted := 0
	for y := 0; y < 80; y++ {
		for x := 0; x < 200; x++ {
			if _, _, _, a := dst.At(x, y).RGBA(); a != 0 {
				painted++
				if !image.Pt(x, y).In(l.Ink.Inset(-1)) {
					t.Fatalf("pixel (%d,%d) painted outside ink box %v", x, y, l.Ink)
				}
			}
		}
	}
	if painted == 0 {
		t.Fatalf("nothing drawn")
	}
}
