/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the composition root behind the view layer. It owns the
// section store, the text overlay layer, the gesture machine and the mutation
// orchestrator, and exposes the callbacks a view forwards raw events to.
package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"detailpage/internal/assets"
	"detailpage/internal/capture"
	"detailpage/internal/config"
	"detailpage/internal/domain"
	"detailpage/internal/generate"
	"detailpage/internal/gesture"
	applog "detailpage/internal/log"
	"detailpage/internal/mutation"
	"detailpage/internal/overlay"
	"detailpage/internal/permission"
	"detailpage/internal/section"
	"detailpage/internal/telemetry"
	"detailpage/internal/vector"
)

// HandleSize is the height of the resize grip at the bottom of a section.
const HandleSize = 10.0

// Deps are the collaborators an Editor is built from. Nil members get
// in-process defaults.
type Deps struct {
	Assets    assets.Store
	Generator mutation.Capability
	Telemetry *telemetry.Client
	Notifier  Notifier
	Logger    *slog.Logger
	// NewID mints section ids.
	NewID func() string
}

// Editor is safe for concurrent use. View callbacks run synchronously;
// generative actions run in the background and report through the Notifier.
type Editor struct {
	cfg      config.AppConfig
	store    *section.Store
	texts    *overlay.Layer
	gestures *gesture.Machine
	orch     *mutation.Orchestrator
	render   *capture.Renderer
	assets   assets.Store
	tel      *telemetry.Client
	notify   Notifier
	log      *slog.Logger

	mu      sync.Mutex
	perm    permission.EditPermissionState
	current string

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// gate joins the permission state with the processing set for the gesture machine.
type gate struct{ e *Editor }

func (g gate) CanEdit(id string) bool    { return g.e.Permissions().CanEdit(id) }
func (g gate) Processing(id string) bool { return g.e.orch.Processing(id) }

func New(cfg config.AppConfig, deps Deps) *Editor {
	if deps.Assets == nil {
		deps.Assets = assets.NewMemStore()
	}
	if deps.Notifier == nil {
		deps.Notifier = NotifierFunc(func(Notice) {})
	}
	if deps.Logger == nil {
		deps.Logger = applog.WithComponent("editor")
	}
	e := &Editor{
		cfg:    cfg,
		assets: deps.Assets,
		tel:    deps.Telemetry,
		notify: deps.Notifier,
		log:    deps.Logger,
	}
	e.ctx, e.stop = context.WithCancel(context.Background())
	e.store = section.NewStore(section.Options{
		MinHeight: cfg.Canvas.MinHeight,
		Zoom: map[domain.ContentKind]section.ZoomPolicy{
			domain.KindImage: {Min: cfg.Zoom.Image.Min, Max: cfg.Zoom.Image.Max},
			domain.KindHero:  {Min: cfg.Zoom.Hero.Min, Max: cfg.Zoom.Hero.Max},
		},
		NewID: deps.NewID,
	})
	e.texts = overlay.NewLayer(e.store)
	e.render = capture.NewRenderer(e.store, e.assets, cfg.Canvas.Width, cfg.Canvas.AutoHeight)
	gen := deps.Generator
	if gen == nil {
		gen = generate.Unavailable{}
	}
	e.orch = mutation.New(e.store, gen, e.render, mutation.Options{
		PoseHeights: map[mutation.PoseKind]float64{
			mutation.FullBody:  cfg.Pose.FullBodyHeight,
			mutation.UpperBody: cfg.Pose.UpperBodyHeight,
		},
		Concurrency: cfg.Pose.Concurrency,
		OnProgress:  e.onProgress,
		OnOutcome:   e.onOutcome,
	})
	e.gestures = gesture.New(e.store, e.texts, gate{e}, gesture.Options{
		AutoHeight: cfg.Canvas.AutoHeight,
		ZoomStep:   cfg.Zoom.Step,
	})
	return e
}

func (e *Editor) Store() *section.Store                { return e.store }
func (e *Editor) Texts() *overlay.Layer                { return e.texts }
func (e *Editor) Gestures() *gesture.Machine           { return e.gestures }
func (e *Editor) Orchestrator() *mutation.Orchestrator { return e.orch }
func (e *Editor) Assets() assets.Store                 { return e.assets }
func (e *Editor) Renderer() *capture.Renderer          { return e.render }
func (e *Editor) Config() config.AppConfig             { return e.cfg }

// Permissions returns a snapshot of the edit permission state.
func (e *Editor) Permissions() permission.EditPermissionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.perm
}

func (e *Editor) updatePerm(f func(permission.EditPermissionState) permission.EditPermissionState) {
	e.mu.Lock()
	e.perm = f(e.perm)
	e.mu.Unlock()
}

func (e *Editor) SetGlobalEdit(on bool) {
	e.updatePerm(func(st permission.EditPermissionState) permission.EditPermissionState { return st.WithGlobal(on) })
}

// SetHeld locks or unlocks the section against gestures.
func (e *Editor) SetHeld(id string, on bool) {
	e.updatePerm(func(st permission.EditPermissionState) permission.EditPermissionState { return st.WithHeld(id, on) })
}

func (e *Editor) SetSelected(id string, on bool) {
	e.updatePerm(func(st permission.EditPermissionState) permission.EditPermissionState { return st.WithSelected(id, on) })
}

func (e *Editor) SetForceEdit(id string, on bool) {
	e.updatePerm(func(st permission.EditPermissionState) permission.EditPermissionState { return st.WithForceEdit(id, on) })
}

// ClearForceEdit revokes every temporary override.
func (e *Editor) ClearForceEdit() {
	e.updatePerm(permission.EditPermissionState.ClearForceEdit)
}

// CanEdit reports whether gestures may start on id right now. The view uses
// it to show the resize grip and pan cursor.
func (e *Editor) CanEdit(id string) bool {
	return e.Permissions().CanEdit(id) && !e.orch.Processing(id)
}

// HeldSections lists held sections in page order.
func (e *Editor) HeldSections() []string {
	held := e.Permissions().Held
	var out []string
	for _, id := range e.store.Order() {
		if held.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// OnSectionVisible records the section the view currently shows most of.
func (e *Editor) OnSectionVisible(id string) {
	if !e.store.Has(id) {
		return
	}
	e.mu.Lock()
	e.current = id
	e.mu.Unlock()
}

// CurrentSection returns the last visible section, or the first section.
func (e *Editor) CurrentSection() (string, bool) {
	e.mu.Lock()
	cur := e.current
	e.mu.Unlock()
	if cur != "" && e.store.Has(cur) {
		return cur, true
	}
	order := e.store.Order()
	if len(order) == 0 {
		return "", false
	}
	return order[0], true
}

// Layout stacks the sections at the configured canvas width.
func (e *Editor) Layout() []section.Placement {
	return section.Stack(e.store, e.cfg.Canvas.Width, e.cfg.Canvas.AutoHeight)
}

// Hit resolves a canvas point to a gesture target. Text overlays are tested
// topmost first, then the resize grip, then the section image.
func (e *Editor) Hit(p vector.Pt) gesture.Target {
	ps := e.Layout()
	texts := e.texts.All()
	for i := len(texts) - 1; i >= 0; i-- {
		t := texts[i]
		pl, ok := section.Find(ps, t.SectionID)
		if !ok {
			continue
		}
		box := vector.R(pl.Rect.X+t.Left, pl.Rect.Y+t.Top, t.Width, t.Height)
		if box.Contains(p) {
			return gesture.Target{Kind: gesture.TargetText, SectionID: t.SectionID, TextID: t.ID}
		}
	}
	pl, ok := section.SectionAt(ps, p.Y)
	if !ok {
		return gesture.Target{}
	}
	if pl.Rect.Y+pl.Rect.H-p.Y <= HandleSize {
		return gesture.Target{Kind: gesture.TargetResizeHandle, SectionID: pl.ID}
	}
	if c, ok := e.store.Content(pl.ID); ok {
		if _, has := c.ImageRef(); has {
			return gesture.Target{Kind: gesture.TargetImage, SectionID: pl.ID}
		}
	}
	return gesture.Target{Kind: gesture.TargetNone, SectionID: pl.ID}
}

// PointerDown hit-tests p and tries to start a gesture there.
func (e *Editor) PointerDown(p vector.Pt) bool {
	return e.gestures.PointerDown(e.Hit(p), p)
}

func (e *Editor) PointerMove(p vector.Pt) { e.gestures.PointerMove(p) }
func (e *Editor) PointerUp(p vector.Pt)   { e.gestures.PointerUp(p) }

// Wheel zooms the section under p.
func (e *Editor) Wheel(p vector.Pt, notches float64) (domain.Transform, bool) {
	pl, ok := section.SectionAt(e.Layout(), p.Y)
	if !ok {
		return domain.Transform{}, false
	}
	return e.gestures.Wheel(pl.ID, notches)
}

// Go runs fn in the background under the editor lifetime context.
func (e *Editor) Go(op string, fn func(ctx context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		start := time.Now()
		if err := fn(e.ctx); err != nil {
			e.log.Debug("background action failed", slog.String("op", op), slog.Any("err", err), slog.Duration("elapsed", time.Since(start)))
		}
	}()
}

// Wait blocks until every background action has finished.
func (e *Editor) Wait() { e.wg.Wait() }

// Close cancels in-flight actions and waits for them.
func (e *Editor) Close() {
	e.stop()
	e.wg.Wait()
}

func (e *Editor) onProgress(p mutation.Progress) {
	e.notify.Notify(Notice{Level: LevelProgress, SectionID: p.SectionID, Message: p.String(), Progress: p})
}

func (e *Editor) onOutcome(o mutation.Outcome) {
	e.tel.Mutation(string(o.Op), o.Err == nil, o.Elapsed)
}
