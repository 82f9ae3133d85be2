/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures overlay text and provides overlay style presets.
// Measurement is deterministic: it uses the fixed basicfont face scaled to the
// requested size, which is close enough to size a new overlay box.
package textlayout

import (
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"detailpage/internal/domain"
)

// basePx is the pixel height of basicfont.Face7x13.
const basePx = 13.0

// Metrics are font metrics in pixels at the requested size.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// LineHeight is ascent + descent + line gap.
func (m Metrics) LineHeight() float64 { return m.Ascent + m.Descent + m.LineGap }

// Provider measures strings for a font size.
type Provider interface {
	Advance(s string, sizePx float64) float64
	Metrics(sizePx float64) Metrics
}

// BasicProvider uses x/image/basicfont Face7x13 scaled linearly to the size.
type BasicProvider struct{}

func (BasicProvider) face() font.Face { return basicfont.Face7x13 }

func (p BasicProvider) Advance(s string, sizePx float64) float64 {
	d := &font.Drawer{Face: p.face()}
	return float64(d.MeasureString(s)>>6) * sizePx / basePx
}

func (p BasicProvider) Metrics(sizePx float64) Metrics {
	m := p.face().Metrics()
	k := sizePx / basePx
	asc, desc := float64(m.Ascent.Round()), float64(m.Descent.Round())
	return Metrics{
		Ascent:  asc * k,
		Descent: desc * k,
		LineGap: (float64(m.Height.Round()) - asc - desc) * k,
	}
}

// Line is one wrapped line.
type Line struct {
	Text  string
	Width float64
}

// Box is text laid out into a width.
type Box struct {
	Lines  []Line
	Width  float64
	Height float64
}

// Wrap breaks text on spaces and newlines so no line exceeds maxWidth, except
// single words wider than maxWidth. maxWidth <= 0 disables wrapping.
func Wrap(p Provider, text string, sizePx, maxWidth float64) Box {
	if p == nil {
		p = BasicProvider{}
	}
	lh := p.Metrics(sizePx).LineHeight()
	var box Box
	add := func(s string) {
		w := p.Advance(s, sizePx)
		box.Lines = append(box.Lines, Line{Text: s, Width: w})
		box.Width = math.Max(box.Width, w)
		box.Height += lh
	}
	for _, para := range strings.Split(text, "\n") {
		cur := ""
		for _, word := range strings.Fields(para) {
			next := word
			if cur != "" {
				next = cur + " " + word
			}
			if cur != "" && maxWidth > 0 && p.Advance(next, sizePx) > maxWidth {
				add(cur)
				next = word
			}
			cur = next
		}
		add(cur)
	}
	return box
}

// Measure returns the width and height of text laid out on a single line per paragraph.
func Measure(p Provider, text string, sizePx float64) (w, h float64) {
	b := Wrap(p, text, sizePx, 0)
	return b.Width, b.Height
}

// OverlaySize suggests the box of a new overlay: the text wrapped into maxWidth
// with padding on every side, never narrower than minWidth.
func OverlaySize(p Provider, content string, style domain.TextStyle, maxWidth float64) (w, h float64) {
	const pad, minWidth = 8.0, 80.0
	size := style.FontSize
	if size <= 0 {
		size = 16
	}
	b := Wrap(p, content, size, maxWidth-2*pad)
	return math.Ceil(math.Max(b.Width+2*pad, minWidth)), math.Ceil(b.Height + 2*pad)
}
