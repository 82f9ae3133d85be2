/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package mutation runs the asynchronous generative mutations of page sections.
//
// Every operation follows the same protocol: check preconditions, enter the
// section into the processing set, call the capability, apply the result or
// leave the section untouched, and always leave the processing set again.
// A section in the processing set refuses a second mutation until it leaves.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"detailpage/internal/domain"
	applog "detailpage/internal/log"
	"detailpage/internal/section"
)

// Op names a generative operation.
type Op string

const (
	OpAnalyze   Op = "analyze"
	OpComposite Op = "composite"
	OpRecolor   Op = "recolor"
	OpPose      Op = "pose"
)

// Request is what the capability receives.
type Request struct {
	Op      Op
	Section domain.Section
	// Source is the primary input image; defaults to the section image.
	Source domain.ImageRef
	// Extra holds additional input images (e.g. the product to composite).
	Extra  []domain.ImageRef
	Params map[string]string
	// Progress may be called by the capability with incremental progress.
	Progress func(current, total int, message string)
}

// Result is a successful capability answer.
type Result struct {
	Images []domain.ImageRef
	Text   string
}

// Capability is the opaque generative service.
type Capability interface {
	Invoke(ctx context.Context, req Request) (Result, error)
}

// Capturer renders the current on-canvas state of a section.
type Capturer interface {
	Capture(ctx context.Context, sectionID string) (domain.ImageRef, error)
}

// Sections is the subset of the section store the orchestrator writes to.
type Sections interface {
	Section(id string) (domain.Section, bool)
	ReplaceContent(id string, c domain.Content) error
	InsertAfter(afterID string, entries []section.Entry) error
	SetHeight(id string, px float64) (float64, error)
	NewID() string
}

// Outcome is reported once per finished operation.
type Outcome struct {
	Op        Op
	SectionID string
	Err       error
	Elapsed   time.Duration
}

// Options configures an Orchestrator.
type Options struct {
	Catalog Catalog
	// PoseHeights seeds the height of generated pose sections per kind.
	PoseHeights map[PoseKind]float64
	// Concurrency bounds the parallel variant calls of one pose batch.
	Concurrency int
	OnProgress  func(Progress)
	OnOutcome   func(Outcome)
	Logger      *slog.Logger
}

// Orchestrator is the Async Mutation Orchestrator. Safe for concurrent use.
type Orchestrator struct {
	sections Sections
	gen      Capability
	capture  Capturer
	opts     Options
	log      *slog.Logger

	mu         sync.Mutex
	processing map[string]context.CancelFunc
	analyses   map[string]string
	used       map[string]struct{}
	reserved   map[string]int // poses requested by batches still in flight
	progress   Progress
}

// New wires an orchestrator. capture may be nil; pose batches then use the stored image.
func New(sections Sections, gen Capability, capture Capturer, opts Options) *Orchestrator {
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.PoseHeights == nil {
		opts.PoseHeights = map[PoseKind]float64{FullBody: 1200, UpperBody: 900}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("mutation")
	}
	return &Orchestrator{
		sections:   sections,
		gen:        gen,
		capture:    capture,
		opts:       opts,
		log:        opts.Logger,
		processing: make(map[string]context.CancelFunc),
		analyses:   make(map[string]string),
		used:       make(map[string]struct{}),
		reserved:   make(map[string]int),
	}
}

// Processing reports whether sectionID has a mutation in flight.
func (o *Orchestrator) Processing(sectionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.processing[sectionID]
	return ok
}

// ProcessingIDs lists the sections in the processing set.
func (o *Orchestrator) ProcessingIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Sorted(maps.Keys(o.processing))
}

// Cancel aborts the in-flight mutation of sectionID. The section leaves the
// processing set when the call returns.
func (o *Orchestrator) Cancel(sectionID string) bool {
	o.mu.Lock()
	cancel, ok := o.processing[sectionID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Progress returns the latest progress record.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// HasAnalysis reports whether sectionID has an analysis artifact.
func (o *Orchestrator) HasAnalysis(sectionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.analyses[sectionID]
	return ok
}

// Analysis returns the analysis text of sectionID.
func (o *Orchestrator) Analysis(sectionID string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.analyses[sectionID]
	return a, ok
}

// ClearAnalysis drops the analysis of sectionID, e.g. after its image was replaced.
func (o *Orchestrator) ClearAnalysis(sectionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.analyses, sectionID)
}

// UsedVariations returns the pose ids consumed so far.
func (o *Orchestrator) UsedVariations() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Sorted(maps.Keys(o.used))
}

// ResetVariations forgets every consumed pose id.
func (o *Orchestrator) ResetVariations() {
	o.mu.Lock()
	defer o.mu.Unlock()
	clear(o.used)
}

// Analyze asks the capability to describe the item shown in sectionID and keeps
// the answer as the analysis artifact required by CompositeItem.
func (o *Orchestrator) Analyze(ctx context.Context, sectionID string) (err error) {
	sec, ref, err := o.imageSection(sectionID)
	if err != nil {
		return err
	}
	ctx, done, err := o.begin(ctx, OpAnalyze, sectionID)
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	res, err := o.invoke(ctx, Request{Op: OpAnalyze, Section: sec, Source: ref})
	if err != nil {
		return err
	}
	if res.Text == "" {
		return external(OpAnalyze, sectionID, ErrNoResult)
	}
	if _, ok := o.sections.Section(sectionID); !ok {
		return external(OpAnalyze, sectionID, section.ErrNotFound)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	// Deleting a section cancels its context before clearing the analysis.
	if err := ctx.Err(); err != nil {
		return err
	}
	o.analyses[sectionID] = res.Text
	return nil
}

// CompositeItem replaces the worn item in sectionID with the product image source.
// It requires a prior Analyze of the section.
func (o *Orchestrator) CompositeItem(ctx context.Context, sectionID string, source domain.ImageRef) (err error) {
	sec, ref, err := o.imageSection(sectionID)
	if err != nil {
		return err
	}
	if source == "" {
		return precondition("Choose a product image to composite.")
	}
	analysis, ok := o.Analysis(sectionID)
	if !ok {
		return precondition("Analyze the section before replacing an item.")
	}
	ctx, done, err := o.begin(ctx, OpComposite, sectionID)
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	return o.replaceWith(ctx, Request{
		Op: OpComposite, Section: sec, Source: ref, Extra: []domain.ImageRef{source},
		Params: map[string]string{"analysis": analysis},
	})
}

// Recolor changes the color of target (e.g. "shoes") in sectionID to color.
func (o *Orchestrator) Recolor(ctx context.Context, sectionID, target, color string) (err error) {
	sec, ref, err := o.imageSection(sectionID)
	if err != nil {
		return err
	}
	if target == "" || color == "" {
		return precondition("Pick what to recolor and the new color.")
	}
	ctx, done, err := o.begin(ctx, OpRecolor, sectionID)
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	return o.replaceWith(ctx, Request{
		Op: OpRecolor, Section: sec, Source: ref,
		Params: map[string]string{"target": target, "color": color},
	})
}

// GeneratePoseBatch generates count pose variations of sectionID and inserts them
// right after it. Variants are generated concurrently; failed variants are
// counted in the tally and do not abort the others. An error is returned only
// when the batch could not start or every variant failed.
func (o *Orchestrator) GeneratePoseBatch(ctx context.Context, sectionID string, count int, kind PoseKind) (ids []string, tally Tally, err error) {
	sec, stored, err := o.imageSection(sectionID)
	if err != nil {
		return nil, tally, err
	}
	if count <= 0 {
		return nil, tally, precondition("Choose how many poses to generate.")
	}
	if len(o.opts.Catalog[kind]) == 0 {
		return nil, tally, precondition("Unknown pose kind %q.", kind)
	}
	ctx, done, err := o.begin(ctx, OpPose, sectionID)
	if err != nil {
		return nil, tally, err
	}
	defer func() { done(err) }()

	src := o.captureOrStored(ctx, sectionID, stored)
	poses := o.reservePoses(kind, count)
	defer o.releasePoses(poses)

	images := make([]domain.ImageRef, len(poses))
	errs := make([]error, len(poses))
	var finished int
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	o.setProgress(Progress{SectionID: sectionID, Total: len(poses), Message: "Generating poses"})
	for i, pose := range poses {
		g.Go(func() error {
			res, err := o.gen.Invoke(ctx, Request{
				Op: OpPose, Section: sec, Source: src,
				Params: map[string]string{"pose": pose, "kind": string(kind)},
			})
			switch {
			case err != nil:
				errs[i] = external(OpPose, sectionID, err)
			case len(res.Images) == 0 || res.Images[0] == "":
				errs[i] = external(OpPose, sectionID, ErrNoResult)
			default:
				images[i] = res.Images[0]
			}
			o.mu.Lock()
			finished++
			o.progress = Progress{SectionID: sectionID, Current: finished, Total: len(poses), Message: "Generating poses"}
			p := o.progress
			o.mu.Unlock()
			o.notify(p)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, tally, err
	}

	var entries []section.Entry
	var consumed []string
	for i, pose := range poses {
		if errs[i] != nil {
			tally.fail(sectionID, pose, errs[i])
			continue
		}
		tally.ok()
		entries = append(entries, section.Entry{ID: o.sections.NewID(), Content: domain.ImageContent(images[i])})
		consumed = append(consumed, pose)
	}
	if len(entries) == 0 {
		return nil, tally, errs[0]
	}
	if err := o.sections.InsertAfter(sectionID, entries); err != nil {
		return nil, tally, fmt.Errorf("insert poses after %q: %w", sectionID, err)
	}
	h := o.opts.PoseHeights[kind]
	for _, e := range entries {
		ids = append(ids, e.ID)
		if h > 0 {
			if _, err := o.sections.SetHeight(e.ID, h); err != nil {
				o.log.Warn("seed pose height failed", slog.String("section", e.ID), slog.Any("err", err))
			}
		}
	}
	o.mu.Lock()
	for _, p := range consumed {
		o.used[p] = struct{}{}
	}
	o.mu.Unlock()
	o.log.Info("pose batch inserted", slog.String("section", sectionID), slog.String("tally", tally.String()))
	return ids, tally, nil
}

// reservePoses picks count poses not yet used nor requested by another batch
// in flight, and holds them until releasePoses.
func (o *Orchestrator) reservePoses(kind PoseKind, count int) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	poses := o.opts.Catalog.Pick(kind, count, func(id string) bool {
		_, used := o.used[id]
		return used || o.reserved[id] > 0
	})
	for _, p := range poses {
		o.reserved[p]++
	}
	return poses
}

func (o *Orchestrator) releasePoses(poses []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range poses {
		if o.reserved[p]--; o.reserved[p] <= 0 {
			delete(o.reserved, p)
		}
	}
}

// ApplyFunc is one single-section mutation used by ApplyToSections.
type ApplyFunc func(ctx context.Context, sectionID string) error

// ApplyToSections runs fn on every id, one after another. A failure on one
// section does not stop the rest.
func (o *Orchestrator) ApplyToSections(ctx context.Context, ids []string, message string, fn ApplyFunc) (Tally, error) {
	var tally Tally
	if len(ids) == 0 {
		return tally, ErrNoSelection
	}
	for i, id := range ids {
		o.setProgress(Progress{SectionID: id, Current: i, Total: len(ids), Message: message})
		if err := ctx.Err(); err != nil {
			tally.fail(id, "", err)
			continue
		}
		if err := fn(ctx, id); err != nil {
			tally.fail(id, "", err)
			continue
		}
		tally.ok()
	}
	o.setProgress(Progress{Current: len(ids), Total: len(ids), Message: tally.String()})
	o.log.Info("batch finished", slog.String("op", message), slog.String("tally", tally.String()))
	return tally, nil
}

// imageSection loads a section that shows an image.
func (o *Orchestrator) imageSection(sectionID string) (domain.Section, domain.ImageRef, error) {
	sec, ok := o.sections.Section(sectionID)
	if !ok {
		return sec, "", precondition("The section no longer exists.")
	}
	ref, ok := sec.Content.ImageRef()
	if !ok {
		return sec, "", precondition("Upload an image to this section first.")
	}
	return sec, ref, nil
}

// begin enters sectionID into the processing set. The returned done func
// removes it unconditionally and reports the outcome.
func (o *Orchestrator) begin(ctx context.Context, op Op, sectionID string) (context.Context, func(error), error) {
	o.mu.Lock()
	if _, busy := o.processing[sectionID]; busy {
		o.mu.Unlock()
		return ctx, nil, fmt.Errorf("%s %q: %w", op, sectionID, ErrBusy)
	}
	ctx, cancel := context.WithCancel(ctx)
	o.processing[sectionID] = cancel
	o.progress = Progress{SectionID: sectionID, Total: 1, Message: string(op)}
	p := o.progress
	o.mu.Unlock()
	o.notify(p)

	l := applog.WithSection(applog.WithOperation(o.log, string(op)), sectionID)
	l.Info("mutation started")
	start := time.Now()
	done := func(err error) {
		cancel()
		o.mu.Lock()
		delete(o.processing, sectionID)
		if o.progress.SectionID == sectionID {
			o.progress.Current = o.progress.Total
		}
		p := o.progress
		o.mu.Unlock()
		o.notify(p)
		elapsed := time.Since(start)
		if err != nil {
			l.Warn("mutation failed", slog.Any("err", err), slog.Duration("elapsed", elapsed))
		} else {
			l.Info("mutation finished", slog.Duration("elapsed", elapsed))
		}
		if o.opts.OnOutcome != nil {
			o.opts.OnOutcome(Outcome{Op: op, SectionID: sectionID, Err: err, Elapsed: elapsed})
		}
	}
	return ctx, done, nil
}

// invoke calls the capability, routing its progress into the shared record.
func (o *Orchestrator) invoke(ctx context.Context, req Request) (Result, error) {
	req.Progress = func(cur, total int, msg string) {
		o.setProgress(Progress{SectionID: req.Section.ID, Current: cur, Total: total, Message: msg})
	}
	res, err := o.gen.Invoke(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return res, err
		}
		return res, external(req.Op, req.Section.ID, err)
	}
	return res, nil
}

// replaceWith runs req and swaps the first returned image into the section.
func (o *Orchestrator) replaceWith(ctx context.Context, req Request) error {
	res, err := o.invoke(ctx, req)
	if err != nil {
		return err
	}
	if len(res.Images) == 0 || res.Images[0] == "" {
		return external(req.Op, req.Section.ID, ErrNoResult)
	}
	cur, ok := o.sections.Section(req.Section.ID)
	if !ok {
		return external(req.Op, req.Section.ID, section.ErrNotFound)
	}
	if err := o.sections.ReplaceContent(req.Section.ID, cur.Content.WithImage(res.Images[0])); err != nil {
		return external(req.Op, req.Section.ID, err)
	}
	return nil
}

func (o *Orchestrator) captureOrStored(ctx context.Context, sectionID string, stored domain.ImageRef) domain.ImageRef {
	if o.capture == nil {
		return stored
	}
	ref, err := o.capture.Capture(ctx, sectionID)
	if err != nil || ref == "" {
		o.log.Warn("capture failed, using stored image", slog.String("section", sectionID), slog.Any("err", err))
		return stored
	}
	return ref
}

func (o *Orchestrator) setProgress(p Progress) {
	o.mu.Lock()
	o.progress = p
	o.mu.Unlock()
	o.notify(p)
}

func (o *Orchestrator) notify(p Progress) {
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(p)
	}
}
