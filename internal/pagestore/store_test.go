/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagestore

import (
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func shade(s *Store, i int) uint8 {
	p, _ := s.Page(i)
	return p.Pix[0]
}

func TestDuplicateInsertsAfterRange(t *testing.T) {
	var imgs []image.Image
	for i := 1; i <= 5; i++ {
		imgs = append(imgs, solid(4, 4, color.RGBA{uint8(i), 0, 0, 255}))
	}
	s := New(imgs)
	if err := s.Duplicate(2, 3); err != nil {
		t.Fatal(err)
	}
	want := []uint8{1, 2, 3, 2, 3, 4, 5}
	if s.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", s.Len(), len(want))
	}
	for i, w := range want {
		if got := shade(s, i); got != w {
			t.Fatalf("page %d shade = %d, want %d", i, got, w)
		}
	}
	// copies are independent bitmaps
	p3, _ := s.Page(3)
	p3.Pix[0] = 99
	if shade(s, 1) != 2 {
		t.Fatalf("copy shares pixels with its source")
	}
}

func TestDuplicateRejectsOutOfRange(t *testing.T) {
	s := New([]image.Image{solid(1, 1, color.RGBA{A: 255}), solid(1, 1, color.RGBA{A: 255})})
	for _, r := range [][2]int{{0, 1}, {2, 1}, {1, 3}} {
		if err := s.Duplicate(r[0], r[1]); err == nil {
			t.Fatalf("Duplicate(%d,%d) accepted", r[0], r[1])
		}
	}
	if s.Len() != 2 {
		t.Fatalf("Len changed to %d", s.Len())
	}
}

func TestCopyNormalizesOrigin(t *testing.T) {
	src := image.NewGray(image.Rect(10, 10, 13, 12))
	src.SetGray(10, 10, color.Gray{Y: 200})
	c := Copy(src)
	if c.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("bounds = %v", c.Bounds())
	}
	if r, _, _, _ := c.At(0, 0).RGBA(); r>>8 != 200 {
		t.Fatalf("pixel not copied: %d", r>>8)
	}
	s := New([]image.Image{src})
	if s.Width(0) != 3 || s.Width(1) != 0 {
		t.Fatalf("Width mismatch")
	}
	if _, err := s.Page(1); err == nil {
		t.Fatalf("Page(1) should fail")
	}
}
