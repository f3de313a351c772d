/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want Color
		ok   bool
	}{
		{"#000000", Black, true},
		{"ffffff", White, true},
		{" #FF8000 ", Color{255, 128, 0}, true},
		{"#f00", Color{255, 0, 0}, true},
		{"#12345", Color{}, false},
		{"#zzzzzz", Color{}, false},
		{"", Color{}, false},
	}
	for _, c := range cases {
		got, err := ParseColor(c.in)
		if (err == nil) != c.ok {
			t.Fatalf("ParseColor(%q) err = %v, want ok=%v", c.in, err, c.ok)
		}
		if c.ok && got != c.want {
			t.Fatalf("ParseColor(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestColorJSON(t *testing.T) {
	type item struct {
		C Color `json:"c"`
	}
	b, err := json.Marshal(item{C: Color{0x12, 0xab, 0xef}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"c":"#12abef"}` {
		t.Fatalf("marshal = %s", b)
	}
	var back item
	if err := json.Unmarshal([]byte(`{"c":"#FFFF00"}`), &back); err != nil {
		t.Fatal(err)
	}
	if back.C != (Color{255, 255, 0}) {
		t.Fatalf("unmarshal = %v", back.C)
	}
}

func TestFromColorDropsAlpha(t *testing.T) {
	c := FromColor(color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	if c != (Color{10, 20, 30}) {
		t.Fatalf("FromColor = %v", c)
	}
	if _, _, _, a := c.RGBA(); a != 0xffff {
		t.Fatalf("alpha = %x, want opaque", a)
	}
}

func TestPointHelpers(t *testing.T) {
	p := Pt(1, 2).Add(Pt(3, -4))
	if p != Pt(4, -2) {
		t.Fatalf("Add = %v", p)
	}
	if d := Pt(0, 0).Manhattan(Pt(-3, 4)); d != 7 {
		t.Fatalf("Manhattan = %v, want 7", d)
	}
	r := Rect{Min: Pt(10, 10), Max: Pt(20, 15)}.Inset(1)
	if r.Width() != 12 || r.Height() != 7 {
		t.Fatalf("Inset = %+v", r)
	}
}

func TestStatus(t *testing.T) {
	if !StatusSaved.Valid() || Status("done").Valid() {
		t.Fatalf("Valid mismatch")
	}
	if StatusSaved.Final() || !StatusSkipped.Final() || !StatusProcessed.Final() {
		t.Fatalf("Final mismatch")
	}
}
