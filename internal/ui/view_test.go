/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"detailpage/internal/editor"
	"detailpage/internal/section"
	"detailpage/internal/vector"
)

func TestViewportFitsWidthWithoutUpscaling(t *testing.T) {
	narrow := Viewport{CanvasWidth: 860, WidgetWidth: 430}
	assert.InDelta(t, 0.5, narrow.Scale(), 1e-9)
	assert.Zero(t, narrow.Offset())
	p := narrow.ToCanvas(100, 50)
	assert.InDelta(t, 200, p.X, 1e-9)
	assert.InDelta(t, 100, p.Y, 1e-9)

	wide := Viewport{CanvasWidth: 860, WidgetWidth: 1060}
	assert.Equal(t, 1.0, wide.Scale())
	assert.InDelta(t, 100, wide.Offset(), 1e-9)
	x, y := wide.ToWidget(vector.Pt{X: 10, Y: 20})
	assert.InDelta(t, 110, x, 1e-9)
	assert.InDelta(t, 20, y, 1e-9)

	assert.Equal(t, 1.0, Viewport{}.Scale())
}

func TestViewportRoundTrip(t *testing.T) {
	v := Viewport{CanvasWidth: 860, WidgetWidth: 600}
	x, y := v.ToWidget(vector.Pt{X: 321, Y: 987})
	p := v.ToCanvas(x, y)
	assert.InDelta(t, 321, p.X, 1e-9)
	assert.InDelta(t, 987, p.Y, 1e-9)

	r := v.RectToWidget(vector.R(0, 600, 860, 300))
	assert.InDelta(t, 600, r.W, 1e-9)
	assert.InDelta(t, 600*600.0/860, r.Y, 1e-9)
}

func TestVisibleSectionUsesWindowMiddle(t *testing.T) {
	ps := []section.Placement{
		{ID: "a", Rect: vector.R(0, 0, 860, 600)},
		{ID: "b", Rect: vector.R(0, 600, 860, 600)},
	}
	id, ok := visibleSection(ps, 0, 400, 1)
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	id, _ = visibleSection(ps, 500, 400, 1)
	assert.Equal(t, "b", id)
	// At half scale the same widget offset covers twice the canvas.
	id, _ = visibleSection(ps, 250, 200, 0.5)
	assert.Equal(t, "b", id)
	_, ok = visibleSection(ps, 5000, 400, 1)
	assert.False(t, ok)
}

func TestWheelNotches(t *testing.T) {
	assert.Equal(t, 1.0, wheelNotches(12))
	assert.Equal(t, -1.0, wheelNotches(-0.5))
	assert.Zero(t, wheelNotches(0))
}

func TestNeedsInput(t *testing.T) {
	assert.True(t, needsInput(editor.ActionRecolor))
	assert.True(t, needsInput(editor.ActionPosesUpper))
	assert.False(t, needsInput(editor.ActionDelete))
	assert.False(t, needsInput(editor.ActionHold))
}

func TestWithExt(t *testing.T) {
	assert.Equal(t, "page.pdf", withExt("page", ".pdf"))
	assert.Equal(t, "page.PDF", withExt("page.PDF", ".pdf"))
	assert.Equal(t, "page.json.zip", withExt("page.json", ".zip"))
}

func TestPushRecent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	items := pushRecent(nil, a, 3)
	items = pushRecent(items, b, 3)
	items = pushRecent(items, a, 3)
	assert.Equal(t, []string{a, b}, items)

	assert.Equal(t, items, pushRecent(items, "  ", 3))

	for i := 0; i < 5; i++ {
		items = pushRecent(items, filepath.Join(dir, string(rune('c'+i))+".json"), 3)
	}
	assert.Len(t, items, 3)
}
