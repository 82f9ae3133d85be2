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
	"strings"

	"detailpage/internal/editor"
	"detailpage/internal/section"
	"detailpage/internal/vector"
)

// Viewport maps widget pixels onto canvas pixels. The page is fitted to the
// widget width and never drawn larger than 1:1.
type Viewport struct {
	CanvasWidth float64
	WidgetWidth float64
}

func (v Viewport) Scale() float64 {
	if v.CanvasWidth <= 0 || v.WidgetWidth <= 0 {
		return 1
	}
	if s := v.WidgetWidth / v.CanvasWidth; s < 1 {
		return s
	}
	return 1
}

// Offset is the left margin that centers the page in the widget.
func (v Viewport) Offset() float64 {
	if off := (v.WidgetWidth - v.CanvasWidth*v.Scale()) / 2; off > 0 {
		return off
	}
	return 0
}

func (v Viewport) ToCanvas(x, y float64) vector.Pt {
	s := v.Scale()
	return vector.Pt{X: (x - v.Offset()) / s, Y: y / s}
}

func (v Viewport) ToWidget(p vector.Pt) (x, y float64) {
	s := v.Scale()
	return p.X*s + v.Offset(), p.Y * s
}

func (v Viewport) RectToWidget(r vector.Rect) vector.Rect {
	x, y := v.ToWidget(r.Min())
	s := v.Scale()
	return vector.R(x, y, r.W*s, r.H*s)
}

// visibleSection returns the section under the middle of the scroll window.
func visibleSection(ps []section.Placement, scrollY, viewH, scale float64) (string, bool) {
	if scale <= 0 {
		scale = 1
	}
	pl, ok := section.SectionAt(ps, (scrollY+viewH/2)/scale)
	return pl.ID, ok
}

// wheelNotches reduces a scroll delta to one notch per event.
func wheelNotches(dy float64) float64 {
	switch {
	case dy > 0:
		return 1
	case dy < 0:
		return -1
	}
	return 0
}

// needsInput reports whether a menu action asks for arguments first.
func needsInput(a editor.Action) bool {
	switch a {
	case editor.ActionComposite, editor.ActionRecolor, editor.ActionAddText,
		editor.ActionPosesFull, editor.ActionPosesUpper:
		return true
	}
	return false
}

// withExt appends ext unless path already ends in it (case-insensitive).
func withExt(path, ext string) string {
	if strings.EqualFold(filepath.Ext(path), ext) {
		return path
	}
	return path + ext
}

const recentMax = 10

// pushRecent puts path first, drops duplicates and caps the list.
func pushRecent(items []string, path string, max int) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return items
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	out := make([]string, 0, 1+len(items))
	out = append(out, path)
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, path) {
			continue
		}
		out = append(out, s)
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
