/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture implements the pointer gesture state machine of the page canvas.
//
// At most one gesture is active. The active gesture is a single value of one of
// the types DraggingText, ResizingSection or PanningImage; nil means idle.
// Resize and pan commit on every move, text drag only previews until release.
package gesture

import (
	"log/slog"
	"sync"

	"detailpage/internal/domain"
	applog "detailpage/internal/log"
	"detailpage/internal/vector"
)

// LayoutState is the per-section height and transform store.
type LayoutState interface {
	Height(id string) (float64, bool)
	SetHeight(id string, px float64) (float64, error)
	Transform(id string) domain.Transform
	SetTransform(id string, t domain.Transform) (domain.Transform, error)
}

// TextPositions reads and moves text overlays.
type TextPositions interface {
	Get(id string) (domain.TextOverlay, bool)
	Move(id string, top, left float64) error
}

// Gate answers the permission and processing questions for a section.
type Gate interface {
	CanEdit(sectionID string) bool
	Processing(sectionID string) bool
}

// TargetKind says what a pointer-down landed on.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetText
	TargetResizeHandle
	TargetImage
)

// Target is the hit-test result handed to PointerDown.
type Target struct {
	Kind      TargetKind
	SectionID string
	TextID    string
}

// Active is the tagged union of active gestures.
type Active interface{ active() }

// DraggingText moves a text overlay. Preview* track the pointer and are
// written to the overlay only on release.
type DraggingText struct {
	TextID      string
	SectionID   string
	Start       vector.Pt
	StartTop    float64
	StartLeft   float64
	PreviewTop  float64
	PreviewLeft float64
}

// ResizingSection drags the bottom edge of a section.
type ResizingSection struct {
	SectionID   string
	Start       vector.Pt
	StartHeight float64
}

// PanningImage moves the image inside a section.
type PanningImage struct {
	SectionID string
	Start     vector.Pt
	StartX    float64
	StartY    float64
}

func (DraggingText) active()    {}
func (ResizingSection) active() {}
func (PanningImage) active()    {}

// Options configures a Machine.
type Options struct {
	// AutoHeight is the starting height of a resize on an auto-sized section.
	AutoHeight float64
	// ZoomStep is the scale change per wheel notch.
	ZoomStep float64
	Logger   *slog.Logger
}

// Machine is the gesture state machine. Every method runs synchronously.
type Machine struct {
	mu     sync.Mutex
	layout LayoutState
	texts  TextPositions
	gate   Gate
	opts   Options
	log    *slog.Logger
	cur    Active
}

func New(layout LayoutState, texts TextPositions, gate Gate, opts Options) *Machine {
	if opts.AutoHeight <= 0 {
		opts.AutoHeight = 600
	}
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = 0.1
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("gesture")
	}
	return &Machine{layout: layout, texts: texts, gate: gate, opts: opts, log: opts.Logger}
}

// Active returns the current gesture, nil when idle.
func (m *Machine) Active() Active {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Idle reports whether no gesture is active.
func (m *Machine) Idle() bool { return m.Active() == nil }

// PointerDown tries to start a gesture on target. It returns false when a
// gesture is already active, the target is not editable, or its section is processing.
func (m *Machine) PointerDown(target Target, p vector.Pt) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		m.log.Debug("pointer down ignored: gesture active")
		return false
	}
	switch target.Kind {
	case TargetText:
		t, ok := m.texts.Get(target.TextID)
		if !ok {
			return false
		}
		if m.gate.Processing(t.SectionID) {
			m.reject("processing", t.SectionID)
			return false
		}
		m.cur = DraggingText{
			TextID: t.ID, SectionID: t.SectionID, Start: p,
			StartTop: t.Top, StartLeft: t.Left, PreviewTop: t.Top, PreviewLeft: t.Left,
		}
	case TargetResizeHandle:
		if !m.allowed(target.SectionID) {
			return false
		}
		h, ok := m.layout.Height(target.SectionID)
		if !ok {
			h = m.opts.AutoHeight
		}
		m.cur = ResizingSection{SectionID: target.SectionID, Start: p, StartHeight: h}
	case TargetImage:
		if !m.allowed(target.SectionID) {
			return false
		}
		xf := m.layout.Transform(target.SectionID)
		m.cur = PanningImage{SectionID: target.SectionID, Start: p, StartX: xf.X, StartY: xf.Y}
	default:
		return false
	}
	return true
}

// PointerMove advances the active gesture. A gesture whose section entered
// processing or disappeared is dropped without further writes.
func (m *Machine) PointerMove(p vector.Pt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch g := m.cur.(type) {
	case nil:
	case DraggingText:
		if m.gate.Processing(g.SectionID) {
			m.abortLocked("processing")
			return
		}
		d := p.Sub(g.Start)
		g.PreviewTop, g.PreviewLeft = g.StartTop+d.Y, g.StartLeft+d.X
		m.cur = g
	case ResizingSection:
		if m.gate.Processing(g.SectionID) {
			m.abortLocked("processing")
			return
		}
		d := p.Sub(g.Start)
		if _, err := m.layout.SetHeight(g.SectionID, g.StartHeight+d.Y); err != nil {
			m.abortLocked(err.Error())
		}
	case PanningImage:
		if m.gate.Processing(g.SectionID) {
			m.abortLocked("processing")
			return
		}
		d := p.Sub(g.Start)
		xf := m.layout.Transform(g.SectionID)
		xf.X, xf.Y = g.StartX+d.X, g.StartY+d.Y
		if _, err := m.layout.SetTransform(g.SectionID, xf); err != nil {
			m.abortLocked(err.Error())
		}
	}
}

// PointerUp ends the active gesture. A text drag writes top and left together here.
func (m *Machine) PointerUp(p vector.Pt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.cur.(DraggingText)
	m.cur = nil
	if !ok || m.gate.Processing(g.SectionID) {
		return
	}
	d := p.Sub(g.Start)
	if err := m.texts.Move(g.TextID, g.StartTop+d.Y, g.StartLeft+d.X); err != nil {
		m.log.Warn("text move failed", slog.String("text", g.TextID), slog.Any("err", err))
	}
}

// Cancel drops the active gesture. Uncommitted text previews are discarded;
// incremental resize and pan writes stay.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = nil
}

// Wheel adjusts the image scale of sectionID by notches*ZoomStep. It runs
// independently of the active gesture and returns the stored transform.
func (m *Machine) Wheel(sectionID string, notches float64) (domain.Transform, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.allowed(sectionID) {
		return m.layout.Transform(sectionID), false
	}
	xf := m.layout.Transform(sectionID)
	xf.Scale += notches * m.opts.ZoomStep
	got, err := m.layout.SetTransform(sectionID, xf)
	if err != nil {
		return xf, false
	}
	return got, true
}

// Preview returns the in-flight position of a dragged text overlay.
func (m *Machine) Preview(textID string) (top, left float64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, isText := m.cur.(DraggingText); isText && g.TextID == textID {
		return g.PreviewTop, g.PreviewLeft, true
	}
	return 0, 0, false
}

func (m *Machine) allowed(sectionID string) bool {
	if !m.gate.CanEdit(sectionID) {
		m.reject("not editable", sectionID)
		return false
	}
	if m.gate.Processing(sectionID) {
		m.reject("processing", sectionID)
		return false
	}
	return true
}

func (m *Machine) reject(reason, sectionID string) {
	m.log.Debug("gesture rejected", slog.String("reason", reason), slog.String("section", sectionID))
}

func (m *Machine) abortLocked(reason string) {
	m.log.Debug("gesture aborted", slog.String("reason", reason))
	m.cur = nil
}
