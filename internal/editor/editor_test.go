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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detailpage/internal/config"
	"detailpage/internal/domain"
	"detailpage/internal/gesture"
	applog "detailpage/internal/log"
	"detailpage/internal/mutation"
	"detailpage/internal/vector"
)

type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	if n.Level == LevelProgress {
		return
	}
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

type upstreamErr string

func (u upstreamErr) Error() string  { return string(u) }
func (u upstreamErr) Reason() string { return string(u) }

// fakeGen answers with derived refs; block, when set, holds every call until
// it is closed or the context ends.
type fakeGen struct {
	block chan struct{}
	fail  map[string]bool
}

func (f *fakeGen) Invoke(ctx context.Context, req mutation.Request) (mutation.Result, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return mutation.Result{}, ctx.Err()
		}
	}
	if f.fail[req.Section.ID] {
		return mutation.Result{}, upstreamErr("model refused the image")
	}
	if req.Op == mutation.OpAnalyze {
		return mutation.Result{Text: "sneakers"}, nil
	}
	return mutation.Result{Images: []domain.ImageRef{domain.ImageRef(fmt.Sprintf("gen:%s:%s:%s", req.Op, req.Section.ID, req.Params["pose"]))}}, nil
}

func newEditor(t *testing.T, gen mutation.Capability) (*Editor, *recorder) {
	t.Helper()
	rec := &recorder{}
	n := 0
	e := New(config.Defaults(), Deps{
		Generator: gen,
		Notifier:  rec,
		Logger:    applog.Discard(),
		NewID:     func() string { n++; return fmt.Sprintf("n%d", n) },
	})
	t.Cleanup(e.Close)
	return e, rec
}

func addImages(t *testing.T, e *Editor, count int) []string {
	t.Helper()
	var ids []string
	for i := 0; i < count; i++ {
		id, err := e.AddImage(context.Background(), []byte(fmt.Sprintf("img-%d", i)), "image/png")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func waitProcessing(t *testing.T, e *Editor, id string) {
	t.Helper()
	require.Eventually(t, func() bool { return e.Orchestrator().Processing(id) }, time.Second, time.Millisecond)
}

func TestHoldBlocksPanEvenWithGlobalEdit(t *testing.T) {
	e, _ := newEditor(t, &fakeGen{})
	s1 := addImages(t, e, 1)[0]
	e.SetGlobalEdit(true)
	e.SetHeld(s1, true)

	assert.False(t, e.PointerDown(vector.Pt{X: 100, Y: 100}))
	e.PointerMove(vector.Pt{X: 150, Y: 80})
	e.PointerUp(vector.Pt{X: 150, Y: 80})
	assert.Equal(t, domain.IdentityTransform, e.Store().Transform(s1))
	assert.False(t, e.CanEdit(s1))

	e.SetHeld(s1, false)
	require.True(t, e.PointerDown(vector.Pt{X: 100, Y: 100}))
	e.PointerMove(vector.Pt{X: 110, Y: 96})
	e.PointerUp(vector.Pt{X: 110, Y: 96})
	assert.Equal(t, domain.Transform{Scale: 1, X: 10, Y: -4}, e.Store().Transform(s1))
}

func TestHitPrefersTopmostTextThenHandle(t *testing.T) {
	e, _ := newEditor(t, &fakeGen{})
	ids := addImages(t, e, 2)
	a, err := e.AddText(ids[1], "Sale", "Badge")
	require.NoError(t, err)
	b, err := e.AddText(ids[1], "Sale again", "Badge")
	require.NoError(t, err)

	// second section starts at 600; both overlays sit at (40,40)
	got := e.Hit(vector.Pt{X: 45, Y: 645})
	assert.Equal(t, gesture.Target{Kind: gesture.TargetText, SectionID: ids[1], TextID: b.ID}, got)
	assert.NotEqual(t, a.ID, got.TextID)

	assert.Equal(t, gesture.TargetResizeHandle, e.Hit(vector.Pt{X: 400, Y: 595}).Kind)
	assert.Equal(t, gesture.Target{Kind: gesture.TargetImage, SectionID: ids[0]}, e.Hit(vector.Pt{X: 400, Y: 300}))
	assert.Equal(t, gesture.TargetNone, e.Hit(vector.Pt{X: 400, Y: 5000}).Kind)
}

func TestResizeThroughPointer(t *testing.T) {
	e, _ := newEditor(t, &fakeGen{})
	id := addImages(t, e, 1)[0]
	e.SetSelected(id, true)

	require.True(t, e.PointerDown(vector.Pt{X: 400, Y: 598}))
	e.PointerMove(vector.Pt{X: 400, Y: 698})
	e.PointerUp(vector.Pt{X: 400, Y: 698})
	h, ok := e.Store().Height(id)
	require.True(t, ok)
	assert.Equal(t, 700.0, h)

	require.True(t, e.PointerDown(vector.Pt{X: 400, Y: 698}))
	e.PointerMove(vector.Pt{X: 400, Y: -2000})
	e.PointerUp(vector.Pt{X: 400, Y: -2000})
	h, _ = e.Store().Height(id)
	assert.Equal(t, 50.0, h)
}

func TestWheelUsesPerKindZoom(t *testing.T) {
	e, _ := newEditor(t, &fakeGen{})
	id := addImages(t, e, 1)[0]
	e.SetGlobalEdit(true)
	xf, ok := e.Wheel(vector.Pt{X: 10, Y: 10}, 100)
	require.True(t, ok)
	assert.Equal(t, 5.0, xf.Scale)
	assert.Equal(t, 5.0, e.Store().Transform(id).Scale)
}

func TestContextMenuDisabledWhileProcessing(t *testing.T) {
	gen := &fakeGen{block: make(chan struct{})}
	e, rec := newEditor(t, gen)
	id := addImages(t, e, 1)[0]

	m := e.OnContextMenu(id, 10, 20)
	it, _ := m.Item(ActionAnalyze)
	assert.True(t, it.Enabled)
	it, _ = m.Item(ActionComposite)
	assert.False(t, it.Enabled, "composite needs an analysis")

	require.NoError(t, e.Do(id, ActionAnalyze, Args{}))
	waitProcessing(t, e, id)

	m = e.OnContextMenu(id, 10, 20)
	for _, a := range []Action{ActionAnalyze, ActionRecolor, ActionPosesFull, ActionMoveDown, ActionAddText} {
		it, ok := m.Item(a)
		require.True(t, ok)
		assert.False(t, it.Enabled, a)
	}
	it, _ = m.Item(ActionCancel)
	assert.True(t, it.Enabled)
	assert.ErrorIs(t, e.Do(id, ActionRecolor, Args{Target: "shoes", Color: "red"}), mutation.ErrBusy)

	e.SetGlobalEdit(true)
	assert.False(t, e.PointerDown(vector.Pt{X: 100, Y: 100}), "processing blocks gestures")

	close(gen.block)
	e.Wait()
	assert.False(t, e.Orchestrator().Processing(id))
	assert.True(t, e.Orchestrator().HasAnalysis(id))
	assert.Equal(t, "Analysis ready.", rec.last().Message)
	it, _ = e.OnContextMenu(id, 0, 0).Item(ActionComposite)
	assert.True(t, it.Enabled)
}

func TestDeleteSectionCascades(t *testing.T) {
	gen := &fakeGen{block: make(chan struct{})}
	e, rec := newEditor(t, gen)
	ids := addImages(t, e, 2)
	_, err := e.AddText(ids[0], "Hello", "")
	require.NoError(t, err)
	kept, err := e.AddText(ids[1], "Stay", "")
	require.NoError(t, err)
	e.SetHeld(ids[0], true)
	e.SetForceEdit(ids[0], true)
	e.OnSectionVisible(ids[0])

	require.NoError(t, e.Do(ids[0], ActionRecolor, Args{Target: "shoes", Color: "red"}))
	waitProcessing(t, e, ids[0])

	e.DeleteSection(ids[0])
	e.Wait()

	assert.Equal(t, []string{ids[1]}, e.Store().Order())
	assert.Equal(t, []domain.TextOverlay{kept}, e.Texts().All())
	assert.False(t, e.Permissions().Held.Has(ids[0]))
	assert.False(t, e.Permissions().ForceEdit.Has(ids[0]))
	assert.False(t, e.Orchestrator().Processing(ids[0]))
	cur, ok := e.CurrentSection()
	require.True(t, ok)
	assert.Equal(t, ids[1], cur)
	assert.Equal(t, "Cancelled.", rec.last().Message)
}

func TestDropFileReplacesAndResets(t *testing.T) {
	e, _ := newEditor(t, &fakeGen{})
	id := addImages(t, e, 1)[0]
	ctx := context.Background()
	require.NoError(t, e.Orchestrator().Analyze(ctx, id))
	_, err := e.Store().SetTransform(id, domain.Transform{Scale: 2, X: 5, Y: 5})
	require.NoError(t, err)

	require.NoError(t, e.OnDrop(ctx, id, DropFile{Name: "new.png", Data: []byte("fresh")}))
	assert.Equal(t, domain.IdentityTransform, e.Store().Transform(id))
	assert.False(t, e.Orchestrator().HasAnalysis(id))
	c, _ := e.Store().Content(id)
	data, _, err := e.Assets().Get(ctx, c.Image)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))

	require.NoError(t, e.OnDrop(ctx, "", DropFile{Data: []byte("another")}))
	assert.Equal(t, 2, e.Store().Len())
	assert.ErrorIs(t, e.OnDrop(ctx, id, DropFile{}), ErrEmptyDrop)
}

func TestDropProductNeedsAnalysis(t *testing.T) {
	e, rec := newEditor(t, &fakeGen{})
	id := addImages(t, e, 1)[0]
	before, _ := e.Store().Content(id)

	require.NoError(t, e.OnDrop(context.Background(), id, DropProduct{Ref: "asset:product"}))
	e.Wait()
	assert.Equal(t, LevelWarn, rec.last().Level)
	assert.Equal(t, "Analyze the section before replacing an item.", rec.last().Message)
	after, _ := e.Store().Content(id)
	assert.Equal(t, before, after)

	require.NoError(t, e.Do(id, ActionAnalyze, Args{}))
	e.Wait()
	require.NoError(t, e.OnDrop(context.Background(), id, DropProduct{Ref: "asset:product"}))
	e.Wait()
	after, _ = e.Store().Content(id)
	assert.Equal(t, domain.ImageRef("gen:composite:"+id+":"), after.Image)
}

func TestApplyToHeldPartialFailure(t *testing.T) {
	gen := &fakeGen{}
	e, rec := newEditor(t, gen)
	ids := addImages(t, e, 4)
	for _, id := range ids[:3] {
		e.SetHeld(id, true)
	}
	gen.fail = map[string]bool{ids[1]: true}
	before := e.Store().Sections()

	tally, err := e.ApplyToHeld(context.Background(), "Recolor", func(ctx context.Context, id string) error {
		return e.Orchestrator().Recolor(ctx, id, "shoes", "red")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, tally.Succeeded)
	assert.Equal(t, 1, tally.Failed)
	assert.Equal(t, "2/3 succeeded", tally.String())

	after := e.Store().Sections()
	assert.NotEqual(t, before[0].Content, after[0].Content)
	assert.Equal(t, before[1].Content, after[1].Content)
	assert.NotEqual(t, before[2].Content, after[2].Content)
	assert.Equal(t, before[3].Content, after[3].Content, "unheld section untouched")
	assert.Equal(t, LevelWarn, rec.last().Level)
	assert.Contains(t, rec.last().Message, "model refused the image")
}

func TestApplyToHeldWithoutSelection(t *testing.T) {
	e, rec := newEditor(t, &fakeGen{})
	addImages(t, e, 1)
	_, err := e.ApplyToHeld(context.Background(), "Recolor", func(context.Context, string) error { return nil })
	require.ErrorIs(t, err, mutation.ErrNoSelection)
	assert.Equal(t, "Select at least one section first.", rec.last().Message)
}

func TestPoseActionInsertsAfterOrigin(t *testing.T) {
	e, rec := newEditor(t, &fakeGen{})
	ids := addImages(t, e, 2)
	require.NoError(t, e.Do(ids[0], ActionPosesUpper, Args{Count: 3}))
	e.Wait()

	order := e.Store().Order()
	require.Len(t, order, 5)
	assert.Equal(t, ids[0], order[0])
	assert.Equal(t, ids[1], order[4])
	for _, id := range order[1:4] {
		h, ok := e.Store().Height(id)
		require.True(t, ok)
		assert.Equal(t, 900.0, h)
	}
	assert.Equal(t, "Added 3 poses.", rec.last().Message)
	require.NotNil(t, rec.last().Tally)
	assert.Len(t, e.Orchestrator().UsedVariations(), 3)
}

func TestDoRejectsUnknown(t *testing.T) {
	e, _ := newEditor(t, &fakeGen{})
	id := addImages(t, e, 1)[0]
	assert.ErrorIs(t, e.Do(id, Action("explode"), Args{}), ErrUnknownAction)
	assert.Error(t, e.Do("missing", ActionHold, Args{}))
	assert.Error(t, e.Do(id, ActionCancel, Args{}))

	require.NoError(t, e.Do(id, ActionHold, Args{}))
	assert.True(t, e.Permissions().Held.Has(id))
	require.NoError(t, e.Do(id, ActionHold, Args{}))
	assert.False(t, e.Permissions().Held.Has(id))
}

func TestLayoutResetsRespectHold(t *testing.T) {
	e, _ := newEditor(t, &fakeGen{})
	id := addImages(t, e, 1)[0]
	e.SetGlobalEdit(true)
	zoomed := domain.Transform{Scale: 2, X: 15, Y: -5}
	_, err := e.Store().SetTransform(id, zoomed)
	require.NoError(t, err)
	_, err = e.Store().SetHeight(id, 480)
	require.NoError(t, err)

	e.SetHeld(id, true)
	m := e.OnContextMenu(id, 0, 0)
	for _, a := range []Action{ActionResetTransform, ActionAutoHeight} {
		it, ok := m.Item(a)
		require.True(t, ok)
		assert.False(t, it.Enabled, a)
		assert.ErrorIs(t, e.Do(id, a, Args{}), ErrNotEditable)
	}
	assert.Equal(t, zoomed, e.Store().Transform(id))
	h, ok := e.Store().Height(id)
	require.True(t, ok)
	assert.Equal(t, 480.0, h)

	e.SetHeld(id, false)
	require.NoError(t, e.Do(id, ActionResetTransform, Args{}))
	require.NoError(t, e.Do(id, ActionAutoHeight, Args{}))
	assert.Equal(t, domain.IdentityTransform, e.Store().Transform(id))
	_, ok = e.Store().Height(id)
	assert.False(t, ok)
}

func TestDocumentRoundTrip(t *testing.T) {
	e, _ := newEditor(t, &fakeGen{})
	e.Store().EnsureHero(domain.Hero{ProductName: "Trail Runner"})
	ids := addImages(t, e, 1)
	_, err := e.Store().SetHeight(ids[0], 420)
	require.NoError(t, err)
	_, err = e.AddText(ids[0], "New", "Headline")
	require.NoError(t, err)
	e.SetHeld(ids[0], true)

	doc := e.Document()
	assert.Equal(t, "Trail Runner", doc.Title)
	data, err := e.Snapshot()
	require.NoError(t, err)
	assert.Contains(t, string(data), "Trail Runner")

	other, _ := newEditor(t, &fakeGen{})
	require.NoError(t, other.LoadDocument(doc))
	if diff := cmp.Diff(doc, other.Document()); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, e.LoadDocument(domain.Document{Width: 860}))
	assert.Zero(t, e.Store().Len())
	assert.Empty(t, e.HeldSections())
}

func TestLoadDocumentWarnsAboutOrphans(t *testing.T) {
	e, rec := newEditor(t, &fakeGen{})
	doc := domain.Document{
		Width:    860,
		Sections: []domain.Section{{ID: "a", Content: domain.Placeholder(), Transform: domain.IdentityTransform}},
		Texts:    []domain.TextOverlay{{ID: "t", SectionID: "gone", Content: "x"}},
	}
	require.NoError(t, e.LoadDocument(doc))
	assert.Equal(t, LevelWarn, rec.last().Level)
}

func TestUnconfiguredGeneratorReportsReason(t *testing.T) {
	rec := &recorder{}
	e := New(config.Defaults(), Deps{Notifier: rec, Logger: applog.Discard()})
	t.Cleanup(e.Close)
	id, err := e.AddImage(context.Background(), []byte("x"), "")
	require.NoError(t, err)
	require.NoError(t, e.Do(id, ActionAnalyze, Args{}))
	e.Wait()
	assert.Equal(t, LevelError, rec.last().Level)
	assert.Contains(t, rec.last().Message, "not configured")
}
