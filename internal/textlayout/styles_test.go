/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "testing"

func TestBuiltinStyles(t *testing.T) {
	names := ListStyles()
	if len(names) != len(builtinStyles) {
		t.Fatalf("ListStyles out of sync: %v", names)
	}
	for _, n := range names {
		s, ok := GetStyle(n)
		if !ok {
			t.Fatalf("%s style missing", n)
		}
		if s.FontSize <= 0 || s.Color == "" || s.FontWeight < 100 {
			t.Fatalf("%s style incomplete: %+v", n, s)
		}
		switch s.Align {
		case "left", "center", "right":
		default:
			t.Fatalf("%s has bad align %q", n, s.Align)
		}
	}
	if _, ok := GetStyle(DefaultStyle); !ok {
		t.Fatalf("default style missing")
	}
	if _, ok := GetStyle("SFX"); ok {
		t.Fatalf("unexpected style")
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in      string
		r, g, b uint8
		ok      bool
	}{
		{"#ff0000", 255, 0, 0, true},
		{"#0f0", 0, 255, 0, true},
		{"  #112233 ", 0x11, 0x22, 0x33, true},
		{"", 26, 26, 26, false},
		{"#12", 26, 26, 26, false},
		{"#zzzzzz", 26, 26, 26, false},
	}
	for _, c := range cases {
		got, ok := ParseColor(c.in)
		if ok != c.ok || got.R != c.r || got.G != c.g || got.B != c.b || got.A != 255 {
			t.Fatalf("ParseColor(%q) = %v,%v", c.in, got, ok)
		}
	}
}
