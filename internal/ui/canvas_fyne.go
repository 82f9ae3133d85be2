//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"detailpage/internal/domain"
	"detailpage/internal/editor"
	"detailpage/internal/section"
	"detailpage/internal/textlayout"
	"detailpage/internal/vector"
)

var (
	colBackdrop    = color.RGBA{R: 30, G: 30, B: 34, A: 255}
	colPage        = color.White
	colPlaceholder = color.RGBA{R: 238, G: 238, B: 242, A: 255}
	colHeld        = color.RGBA{R: 255, G: 170, B: 0, A: 255}
	colSelected    = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	colForced      = color.RGBA{R: 120, G: 200, B: 0, A: 255}
	colHandle      = color.RGBA{R: 0, G: 170, B: 255, A: 120}
	colVeil        = color.RGBA{R: 0, G: 0, B: 0, A: 110}
	colMuted       = color.RGBA{R: 120, G: 120, B: 130, A: 255}
	colClear       = color.RGBA{}
)

// SectionCanvas draws the page as a vertical stack of sections and feeds
// pointer input to the editor's gesture machine.
type SectionCanvas struct {
	widget.BaseWidget
	ed *editor.Editor
	// scroll receives wheel events that do not zoom an image.
	scroll *container.Scroll

	mu     sync.Mutex
	images map[string]cachedImage
	last   vector.Pt

	// OnMenu opens the context menu at an absolute position.
	OnMenu func(m editor.Menu, at fyne.Position)
}

type cachedImage struct {
	key string
	img image.Image
}

func NewSectionCanvas(ed *editor.Editor) *SectionCanvas {
	c := &SectionCanvas{ed: ed, images: map[string]cachedImage{}}
	c.ExtendBaseWidget(c)
	return c
}

// Scroll wraps the canvas in a vertical scroller that reports the visible
// section back to the editor.
func (c *SectionCanvas) Scroll() *container.Scroll {
	if c.scroll != nil {
		return c.scroll
	}
	c.scroll = container.NewVScroll(c)
	c.scroll.OnScrolled = func(off fyne.Position) {
		vp := c.viewport()
		if id, ok := visibleSection(c.ed.Layout(), float64(off.Y), float64(c.scroll.Size().Height), vp.Scale()); ok {
			c.ed.OnSectionVisible(id)
		}
	}
	return c.scroll
}

func (c *SectionCanvas) viewport() Viewport {
	return Viewport{CanvasWidth: c.ed.Config().Canvas.Width, WidgetWidth: float64(c.Size().Width)}
}

func (c *SectionCanvas) toCanvas(pos fyne.Position) vector.Pt {
	return c.viewport().ToCanvas(float64(pos.X), float64(pos.Y))
}

// SectionAt returns the section under a widget-relative position.
func (c *SectionCanvas) SectionAt(pos fyne.Position) (string, bool) {
	pl, ok := section.SectionAt(c.ed.Layout(), c.toCanvas(pos).Y)
	return pl.ID, ok
}

func (c *SectionCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	p := c.toCanvas(e.Position)
	c.mu.Lock()
	c.last = p
	c.mu.Unlock()
	if c.ed.PointerDown(p) {
		c.Refresh()
	}
}

func (c *SectionCanvas) MouseUp(e *desktop.MouseEvent) {
	if c.ed.Gestures().Idle() {
		return
	}
	c.ed.PointerUp(c.toCanvas(e.Position))
	c.Refresh()
}

func (c *SectionCanvas) Dragged(e *fyne.DragEvent) {
	if c.ed.Gestures().Idle() {
		return
	}
	p := c.toCanvas(e.Position)
	c.mu.Lock()
	c.last = p
	c.mu.Unlock()
	c.ed.PointerMove(p)
	c.Refresh()
}

// DragEnd commits at the last seen point; pointer release outside the
// widget arrives here rather than in MouseUp.
func (c *SectionCanvas) DragEnd() {
	if c.ed.Gestures().Idle() {
		return
	}
	c.mu.Lock()
	p := c.last
	c.mu.Unlock()
	c.ed.PointerUp(p)
	c.Refresh()
}

// Scrolled zooms an editable image under the pointer, else scrolls the page.
func (c *SectionCanvas) Scrolled(e *fyne.ScrollEvent) {
	if n := wheelNotches(float64(e.Scrolled.DY)); n != 0 {
		if _, ok := c.ed.Wheel(c.toCanvas(e.Position), n); ok {
			c.Refresh()
			return
		}
	}
	if c.scroll != nil {
		c.scroll.Scrolled(e)
	}
}

func (c *SectionCanvas) TappedSecondary(e *fyne.PointEvent) {
	id, ok := c.SectionAt(e.Position)
	if !ok || c.OnMenu == nil {
		return
	}
	p := c.toCanvas(e.Position)
	c.OnMenu(c.ed.OnContextMenu(id, p.X, p.Y), e.AbsolutePosition)
}

// MinSize is the scaled page height so the scroller can reach every section.
func (c *SectionCanvas) MinSize() fyne.Size {
	c.ExtendBaseWidget(c)
	total := section.TotalHeight(c.ed.Layout())
	return fyne.NewSize(320, float32(total*c.viewport().Scale()))
}

// imageFor renders a section through the editor's renderer, cached until
// its content, height or transform change.
func (c *SectionCanvas) imageFor(sec domain.Section) image.Image {
	ref, ok := sec.Content.ImageRef()
	if !ok {
		return nil
	}
	h := -1.0
	if sec.Height != nil {
		h = *sec.Height
	}
	key := fmt.Sprintf("%s|%g|%g|%g|%g", ref, h, sec.Transform.Scale, sec.Transform.X, sec.Transform.Y)
	c.mu.Lock()
	ci, hit := c.images[sec.ID]
	c.mu.Unlock()
	if hit && ci.key == key {
		return ci.img
	}
	img, err := c.ed.Renderer().Render(context.Background(), sec)
	if err != nil {
		return nil
	}
	c.mu.Lock()
	c.images[sec.ID] = cachedImage{key: key, img: img}
	c.mu.Unlock()
	return img
}

func (c *SectionCanvas) dropStale(live []section.Placement) {
	keep := make(map[string]bool, len(live))
	for _, p := range live {
		keep[p.ID] = true
	}
	c.mu.Lock()
	for id := range c.images {
		if !keep[id] {
			delete(c.images, id)
		}
	}
	c.mu.Unlock()
}

func (c *SectionCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &sectionCanvasRenderer{c: c}
}

// sectionCanvasRenderer rebuilds its objects on every layout pass; a page
// holds few enough sections for that to stay cheap.
type sectionCanvasRenderer struct {
	c       *SectionCanvas
	objects []fyne.CanvasObject
}

func (r *sectionCanvasRenderer) Destroy()                     {}
func (r *sectionCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *sectionCanvasRenderer) MinSize() fyne.Size           { return r.c.MinSize() }
func (r *sectionCanvasRenderer) Refresh()                     { r.Layout(r.c.Size()); canvas.Refresh(r.c) }

func (r *sectionCanvasRenderer) Layout(size fyne.Size) {
	c := r.c
	ed := c.ed
	vp := Viewport{CanvasWidth: ed.Config().Canvas.Width, WidgetWidth: float64(size.Width)}
	s := vp.Scale()
	ps := ed.Layout()
	c.dropStale(ps)
	perm := ed.Permissions()

	bg := canvas.NewRectangle(colBackdrop)
	place(bg, vector.R(0, 0, float64(size.Width), float64(size.Height)))
	objs := []fyne.CanvasObject{bg}
	page := canvas.NewRectangle(colPage)
	place(page, vp.RectToWidget(vector.R(0, 0, ed.Config().Canvas.Width, section.TotalHeight(ps))))
	objs = append(objs, page)

	for _, pl := range ps {
		sec, ok := ed.Store().Section(pl.ID)
		if !ok {
			continue
		}
		wr := vp.RectToWidget(pl.Rect)
		switch sec.Content.Kind {
		case domain.KindPlaceholder:
			box := canvas.NewRectangle(colPlaceholder)
			box.StrokeColor = colMuted
			box.StrokeWidth = 1
			place(box, wr.Inset(4, 4))
			objs = append(objs, box, centeredText("Drop an image here", colMuted, 14*s, wr))
		case domain.KindSpacer:
		default:
			if img := c.imageFor(sec); img != nil {
				ci := canvas.NewImageFromImage(img)
				ci.FillMode = canvas.ImageFillStretch
				place(ci, wr)
				objs = append(objs, ci)
			}
			if sec.Content.Kind == domain.KindHero && sec.Content.Hero != nil {
				objs = append(objs, heroObjects(*sec.Content.Hero, wr, s)...)
			}
		}

		if ring := ringColor(perm.Held.Has(pl.ID), perm.Selected.Has(pl.ID), perm.ForceEdit.Has(pl.ID)); ring != nil {
			border := canvas.NewRectangle(colClear)
			border.StrokeColor = ring
			border.StrokeWidth = 2
			place(border, wr)
			objs = append(objs, border)
		}
		if ed.CanEdit(pl.ID) {
			grip := canvas.NewRectangle(colHandle)
			place(grip, vector.R(wr.X, wr.Y+wr.H-editor.HandleSize*s, wr.W, editor.HandleSize*s))
			objs = append(objs, grip)
		}
		if ed.Orchestrator().Processing(pl.ID) {
			veil := canvas.NewRectangle(colVeil)
			place(veil, wr)
			objs = append(objs, veil, centeredText("Processing…", color.White, 16*s, wr))
		}
	}

	for _, t := range ed.Texts().All() {
		pl, ok := section.Find(ps, t.SectionID)
		if !ok {
			continue
		}
		if top, left, ok := ed.Gestures().Preview(t.ID); ok {
			t.Top, t.Left = top, left
		}
		objs = append(objs, overlayObjects(t, pl.Rect, vp)...)
	}
	r.objects = objs
}

func ringColor(held, selected, forced bool) color.Color {
	switch {
	case held:
		return colHeld
	case forced:
		return colForced
	case selected:
		return colSelected
	}
	return nil
}

func place(o fyne.CanvasObject, r vector.Rect) {
	o.Move(fyne.NewPos(float32(r.X), float32(r.Y)))
	o.Resize(fyne.NewSize(float32(r.W), float32(r.H)))
}

func centeredText(s string, col color.Color, size float64, r vector.Rect) *canvas.Text {
	t := canvas.NewText(s, col)
	t.TextSize = float32(size)
	t.Alignment = fyne.TextAlignCenter
	place(t, vector.R(r.X, r.Y+r.H/2-size, r.W, size*1.4))
	return t
}

func heroObjects(h domain.Hero, r vector.Rect, s float64) []fyne.CanvasObject {
	x := r.X + 48*s
	y := r.Y + 64*s
	var out []fyne.CanvasObject
	add := func(txt string, size float64, bold bool, col color.Color) {
		t := canvas.NewText(txt, col)
		t.TextSize = float32(size * s)
		t.TextStyle = fyne.TextStyle{Bold: bold}
		t.Move(fyne.NewPos(float32(x), float32(y)))
		out = append(out, t)
		y += size * 1.4 * s
	}
	add(h.ProductName, 40, true, color.RGBA{R: 26, G: 26, B: 26, A: 255})
	if h.Tagline != "" {
		add(h.Tagline, 20, false, colMuted)
	}
	for _, f := range h.Features {
		add("• "+f, 16, false, color.RGBA{R: 60, G: 60, B: 60, A: 255})
	}
	return out
}

// overlayObjects lays a text overlay out line by line inside its box.
func overlayObjects(t domain.TextOverlay, sec vector.Rect, vp Viewport) []fyne.CanvasObject {
	s := vp.Scale()
	size := t.Style.FontSize
	if size <= 0 {
		size = 16
	}
	col, _ := textlayout.ParseColor(t.Style.Color)
	box := textlayout.Wrap(textlayout.BasicProvider{}, t.Content, size, t.Width)
	lineH := size * 1.2
	style := fyne.TextStyle{
		Bold:      t.Style.FontWeight >= 600,
		Monospace: strings.Contains(strings.ToLower(t.Style.FontFamily), "mono"),
	}
	origin := vector.Pt{X: sec.X + t.Left, Y: sec.Y + t.Top}
	out := make([]fyne.CanvasObject, 0, len(box.Lines))
	for i, ln := range box.Lines {
		dx := 0.0
		switch t.Style.Align {
		case "center":
			dx = (t.Width - ln.Width) / 2
		case "right":
			dx = t.Width - ln.Width
		}
		x, y := vp.ToWidget(vector.Pt{X: origin.X + dx, Y: origin.Y + float64(i)*lineH})
		txt := canvas.NewText(ln.Text, col)
		txt.TextSize = float32(size * s)
		txt.TextStyle = style
		txt.Move(fyne.NewPos(float32(x), float32(y)))
		out = append(out, txt)
	}
	return out
}
