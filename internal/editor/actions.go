/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"detailpage/internal/assets"
	"detailpage/internal/domain"
	"detailpage/internal/mutation"
	"detailpage/internal/textlayout"
)

// Action is a context menu command.
type Action string

const (
	ActionAnalyze        Action = "analyze"
	ActionComposite      Action = "composite"
	ActionRecolor        Action = "recolor"
	ActionPosesFull      Action = "poses_full_body"
	ActionPosesUpper     Action = "poses_upper_body"
	ActionHold           Action = "hold"
	ActionSelect         Action = "select"
	ActionForceEdit      Action = "force_edit"
	ActionMoveUp         Action = "move_up"
	ActionMoveDown       Action = "move_down"
	ActionResetTransform Action = "reset_transform"
	ActionAutoHeight     Action = "auto_height"
	ActionAddText        Action = "add_text"
	ActionCancel         Action = "cancel"
	ActionDelete         Action = "delete"
)

// ErrUnknownAction is returned by Do for actions it does not know.
var (
	ErrUnknownAction = errors.New("unknown action")
	// ErrNotEditable is returned for layout resets on a section the
	// permission state does not let the user edit.
	ErrNotEditable = errors.New("section is not editable")
)

// Args carries the inputs some actions need.
type Args struct {
	Source domain.ImageRef // composite
	Target string          // recolor: what to recolor
	Color  string          // recolor
	Count  int             // poses
	Text   string          // add_text
	Style  string          // add_text preset
}

// MenuItem is one context menu entry.
type MenuItem struct {
	Action  Action
	Label   string
	Enabled bool
	Checked bool
}

// Menu is the context menu for one section at a screen position.
type Menu struct {
	SectionID string
	X, Y      float64
	Items     []MenuItem
}

// Item returns the entry for a.
func (m Menu) Item(a Action) (MenuItem, bool) {
	for _, it := range m.Items {
		if it.Action == a {
			return it, true
		}
	}
	return MenuItem{}, false
}

// OnContextMenu builds the menu for sectionID. While the section is
// processing only Cancel, Delete and the permission toggles stay enabled.
func (e *Editor) OnContextMenu(sectionID string, x, y float64) Menu {
	m := Menu{SectionID: sectionID, X: x, Y: y}
	c, ok := e.store.Content(sectionID)
	if !ok {
		return m
	}
	busy := e.orch.Processing(sectionID)
	_, hasImage := c.ImageRef()
	idx, n := e.store.Index(sectionID), e.store.Len()
	st := e.Permissions()
	gen := hasImage && !busy

	m.Items = []MenuItem{
		{Action: ActionAnalyze, Label: "Analyze image", Enabled: gen},
		{Action: ActionComposite, Label: "Place product...", Enabled: gen && e.orch.HasAnalysis(sectionID)},
		{Action: ActionRecolor, Label: "Recolor...", Enabled: gen},
		{Action: ActionPosesFull, Label: "Generate full body poses", Enabled: gen},
		{Action: ActionPosesUpper, Label: "Generate upper body poses", Enabled: gen},
		{Action: ActionHold, Label: "Hold", Enabled: true, Checked: st.Held.Has(sectionID)},
		{Action: ActionSelect, Label: "Select for editing", Enabled: true, Checked: st.Selected.Has(sectionID)},
		{Action: ActionForceEdit, Label: "Force edit", Enabled: true, Checked: st.ForceEdit.Has(sectionID)},
		{Action: ActionMoveUp, Label: "Move up", Enabled: !busy && idx > 0},
		{Action: ActionMoveDown, Label: "Move down", Enabled: !busy && idx < n-1},
		{Action: ActionResetTransform, Label: "Reset zoom and pan", Enabled: !busy && hasImage && st.CanEdit(sectionID)},
		{Action: ActionAutoHeight, Label: "Auto height", Enabled: !busy && st.CanEdit(sectionID)},
		{Action: ActionAddText, Label: "Add text", Enabled: !busy},
		{Action: ActionCancel, Label: "Cancel generation", Enabled: busy},
		{Action: ActionDelete, Label: "Delete section", Enabled: true},
	}
	return m
}

// Do runs action a on sectionID. Generative actions start in the background
// and return nil once started; their outcome arrives as a notice.
func (e *Editor) Do(sectionID string, a Action, args Args) error {
	if !e.store.Has(sectionID) {
		return fmt.Errorf("%s: section %q not found", a, sectionID)
	}
	st := e.Permissions()
	switch a {
	case ActionAnalyze:
		return e.start(sectionID, a, func(ctx context.Context) error {
			if err := e.orch.Analyze(ctx, sectionID); err != nil {
				return err
			}
			e.info(sectionID, "Analysis ready.")
			return nil
		})
	case ActionComposite:
		return e.start(sectionID, a, func(ctx context.Context) error {
			if err := e.orch.CompositeItem(ctx, sectionID, args.Source); err != nil {
				return err
			}
			e.info(sectionID, "Product placed.")
			return nil
		})
	case ActionRecolor:
		return e.start(sectionID, a, func(ctx context.Context) error {
			if err := e.orch.Recolor(ctx, sectionID, args.Target, args.Color); err != nil {
				return err
			}
			e.info(sectionID, "Recolored.")
			return nil
		})
	case ActionPosesFull, ActionPosesUpper:
		kind := mutation.FullBody
		if a == ActionPosesUpper {
			kind = mutation.UpperBody
		}
		count := args.Count
		if count == 0 {
			count = 3
		}
		return e.start(sectionID, a, func(ctx context.Context) error {
			return e.poses(ctx, sectionID, count, kind)
		})
	case ActionHold:
		e.SetHeld(sectionID, !st.Held.Has(sectionID))
	case ActionSelect:
		e.SetSelected(sectionID, !st.Selected.Has(sectionID))
	case ActionForceEdit:
		e.SetForceEdit(sectionID, !st.ForceEdit.Has(sectionID))
	case ActionMoveUp:
		return e.layoutEdit(sectionID, func() error { return e.store.MoveUp(sectionID) })
	case ActionMoveDown:
		return e.layoutEdit(sectionID, func() error { return e.store.MoveDown(sectionID) })
	case ActionResetTransform:
		if !st.CanEdit(sectionID) {
			return fmt.Errorf("%s %q: %w", a, sectionID, ErrNotEditable)
		}
		return e.layoutEdit(sectionID, func() error {
			_, err := e.store.SetTransform(sectionID, domain.IdentityTransform)
			return err
		})
	case ActionAutoHeight:
		if !st.CanEdit(sectionID) {
			return fmt.Errorf("%s %q: %w", a, sectionID, ErrNotEditable)
		}
		return e.layoutEdit(sectionID, func() error { e.store.ClearHeight(sectionID); return nil })
	case ActionAddText:
		_, err := e.AddText(sectionID, args.Text, args.Style)
		return err
	case ActionCancel:
		if !e.orch.Cancel(sectionID) {
			return fmt.Errorf("cancel %q: %w", sectionID, errNotProcessing)
		}
	case ActionDelete:
		e.DeleteSection(sectionID)
	default:
		return fmt.Errorf("%q: %w", a, ErrUnknownAction)
	}
	return nil
}

var errNotProcessing = errors.New("nothing in flight")

// start refuses busy sections synchronously and runs fn in the background.
func (e *Editor) start(sectionID string, a Action, fn func(ctx context.Context) error) error {
	if e.orch.Processing(sectionID) {
		return mutation.ErrBusy
	}
	e.Go(string(a), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			e.fail(sectionID, err)
		}
		return err
	})
	return nil
}

// layoutEdit applies a synchronous structural edit unless the section is processing.
func (e *Editor) layoutEdit(sectionID string, fn func() error) error {
	if e.orch.Processing(sectionID) {
		return mutation.ErrBusy
	}
	return fn()
}

func (e *Editor) poses(ctx context.Context, sectionID string, count int, kind mutation.PoseKind) error {
	ids, tally, err := e.orch.GeneratePoseBatch(ctx, sectionID, count, kind)
	e.tel.Batch(string(mutation.OpPose), tally.Succeeded, tally.Failed)
	if err != nil {
		return err
	}
	n := Notice{Level: LevelInfo, SectionID: sectionID, Tally: &tally,
		Message: fmt.Sprintf("Added %d poses.", len(ids))}
	if tally.Failed > 0 {
		n.Level = LevelWarn
		n.Message = tally.Summary()
	}
	e.notify.Notify(n)
	return nil
}

// ApplyToHeld runs fn on every held section, one after another, and reports
// the tally.
func (e *Editor) ApplyToHeld(ctx context.Context, message string, fn mutation.ApplyFunc) (mutation.Tally, error) {
	tally, err := e.orch.ApplyToSections(ctx, e.HeldSections(), message, fn)
	if err != nil {
		e.fail("", err)
		return tally, err
	}
	e.tel.Batch(message, tally.Succeeded, tally.Failed)
	n := Notice{Level: LevelInfo, Message: message + ": " + tally.String(), Tally: &tally}
	if tally.Failed > 0 {
		n.Level = LevelWarn
		n.Message = message + ": " + tally.Summary()
	}
	e.notify.Notify(n)
	return tally, nil
}

// RecolorHeld recolors every held section in the background.
func (e *Editor) RecolorHeld(target, color string) {
	e.Go("recolor_held", func(ctx context.Context) error {
		_, err := e.ApplyToHeld(ctx, "Recolor", func(ctx context.Context, id string) error {
			return e.orch.Recolor(ctx, id, target, color)
		})
		return err
	})
}

// CompositeHeld places source on every held section in the background.
func (e *Editor) CompositeHeld(source domain.ImageRef) {
	e.Go("composite_held", func(ctx context.Context) error {
		_, err := e.ApplyToHeld(ctx, "Place product", func(ctx context.Context, id string) error {
			return e.orch.CompositeItem(ctx, id, source)
		})
		return err
	})
}

// AddImage stores data and appends a new image section.
func (e *Editor) AddImage(ctx context.Context, data []byte, mime string) (string, error) {
	ref, err := e.assets.Put(ctx, data, mime)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return e.store.AddImage(ref)
}

// AddPlaceholder appends an empty or spacer section.
func (e *Editor) AddPlaceholder(kind domain.ContentKind) (string, error) {
	return e.store.AddPlaceholder(kind)
}

// Upload replaces the image of sectionID with a new upload. The transform
// is reset and any analysis of the old image is dropped.
func (e *Editor) Upload(ctx context.Context, sectionID string, data []byte, mime string) error {
	if e.orch.Processing(sectionID) {
		return mutation.ErrBusy
	}
	c, ok := e.store.Content(sectionID)
	if !ok {
		return fmt.Errorf("upload to %q: section not found", sectionID)
	}
	ref, err := e.assets.Put(ctx, data, mime)
	if err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	if err := e.store.ReplaceUpload(sectionID, c.WithImage(ref)); err != nil {
		return err
	}
	e.orch.ClearAnalysis(sectionID)
	e.log.Info("image uploaded", slog.String("section", sectionID), slog.String("ref", string(ref)))
	return nil
}

// UploadFile is Upload for a file on disk.
func (e *Editor) UploadFile(ctx context.Context, sectionID, path string) error {
	data, mime, err := assets.Load(ctx, e.assets, domain.ImageRef(path))
	if err != nil {
		return err
	}
	return e.Upload(ctx, sectionID, data, mime)
}

// AddText adds an overlay to sectionID with a style preset, sized to fit text.
func (e *Editor) AddText(sectionID, text, style string) (domain.TextOverlay, error) {
	if e.orch.Processing(sectionID) {
		return domain.TextOverlay{}, mutation.ErrBusy
	}
	if text == "" {
		text = "Text"
	}
	st, ok := textlayout.GetStyle(style)
	if !ok {
		st, _ = textlayout.GetStyle(textlayout.DefaultStyle)
	}
	const inset = 40.0
	w, h := textlayout.OverlaySize(textlayout.BasicProvider{}, text, st, e.cfg.Canvas.Width-2*inset)
	return e.texts.Add(domain.TextOverlay{
		SectionID: sectionID, Content: text,
		Top: inset, Left: inset, Width: w, Height: h, Style: st,
	})
}

// DeleteSection removes a section and everything bound to it: an in-flight
// mutation is cancelled, its overlays, permission flags and analysis are dropped,
// and a gesture on it is abandoned.
func (e *Editor) DeleteSection(id string) {
	e.orch.Cancel(id)
	if gestureSection(e.gestures.Active()) == id {
		e.gestures.Cancel()
	}
	e.store.Remove(id)
	n := e.texts.RemoveSection(id)
	e.orch.ClearAnalysis(id)
	e.mu.Lock()
	e.perm = e.perm.Forget(id)
	if e.current == id {
		e.current = ""
	}
	e.mu.Unlock()
	e.log.Info("section deleted", slog.String("section", id), slog.Int("texts", n))
}
