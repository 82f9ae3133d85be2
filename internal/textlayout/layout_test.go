/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "testing"

func TestWrap_BreaksOnSpaces(t *testing.T) {
	box := Wrap(BasicProvider{}, "Hello world from Go", 13, 50)
	if len(box.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(box.Lines))
	}
	for _, l := range box.Lines {
		if l.Width > 50 && len(l.Text) > 5 {
			t.Fatalf("line %q exceeds width: %v", l.Text, l.Width)
		}
	}
	if box.Width <= 0 || box.Height <= 0 {
		t.Fatalf("expected positive box size: %+v", box)
	}
}

func TestWrap_KeepsNewlines(t *testing.T) {
	box := Wrap(nil, "a\n\nb", 13, 0)
	if len(box.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(box.Lines))
	}
}

func TestMeasure_ScalesWithSize(t *testing.T) {
	w13, h13 := Measure(BasicProvider{}, "ABC", 13)
	w26, h26 := Measure(BasicProvider{}, "ABC", 26)
	if w13 != 21 {
		t.Fatalf("expected 3 glyphs x 7px, got %v", w13)
	}
	if w26 != 2*w13 || h26 != 2*h13 {
		t.Fatalf("expected linear scaling, got w=%v h=%v vs w=%v h=%v", w26, h26, w13, h13)
	}
}

func TestOverlaySize_PadsAndHasMinimum(t *testing.T) {
	body, _ := GetStyle("Body")
	w, h := OverlaySize(nil, "Hi", body, 400)
	if w != 80 {
		t.Fatalf("expected minimum width 80, got %v", w)
	}
	if h <= 16 {
		t.Fatalf("expected padded height, got %v", h)
	}
	w, _ = OverlaySize(nil, "A much longer product claim that has to wrap", body, 200)
	if w > 200 {
		t.Fatalf("expected width within max, got %v", w)
	}
}
