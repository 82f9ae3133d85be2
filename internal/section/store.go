/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package section

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"detailpage/internal/domain"
	applog "detailpage/internal/log"
)

var (
	ErrNotFound  = errors.New("section not found")
	ErrDuplicate = errors.New("duplicate section id")
	ErrKind      = errors.New("unsupported section kind")
)

// DefaultMinHeight is the floor applied to explicit heights.
const DefaultMinHeight = 50.0

// ZoomPolicy bounds the image scale of a section.
type ZoomPolicy struct{ Min, Max float64 }

// Clamp limits s to the policy range.
func (p ZoomPolicy) Clamp(s float64) float64 {
	if s < p.Min {
		return p.Min
	}
	if s > p.Max {
		return p.Max
	}
	return s
}

// DefaultZoom is the general image zoom range.
var DefaultZoom = ZoomPolicy{Min: 0.1, Max: 5.0}

// Options configures a Store. Zero values fall back to the defaults above.
type Options struct {
	MinHeight float64
	// Zoom maps content kinds to their scale range; kinds not listed use DefaultZoom.
	Zoom map[domain.ContentKind]ZoomPolicy
	// NewID mints section ids; defaults to random UUIDs.
	NewID  func() string
	Logger *slog.Logger
}

// Entry is a section to be inserted: a pre-minted id and its content.
type Entry struct {
	ID      string
	Content domain.Content
}

// Store is the Section Store plus Transform & Layout State.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	minHeight float64
	zoom      map[domain.ContentKind]ZoomPolicy
	newID     func() string
	log       *slog.Logger

	order     []string
	content   map[string]domain.Content
	height    map[string]float64
	transform map[string]domain.Transform
}

func NewStore(opts Options) *Store {
	if opts.MinHeight <= 0 {
		opts.MinHeight = DefaultMinHeight
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("section")
	}
	zoom := make(map[domain.ContentKind]ZoomPolicy, len(opts.Zoom))
	for k, v := range opts.Zoom {
		zoom[k] = v
	}
	return &Store{
		minHeight: opts.MinHeight,
		zoom:      zoom,
		newID:     opts.NewID,
		log:       opts.Logger,
		content:   make(map[string]domain.Content),
		height:    make(map[string]float64),
		transform: make(map[string]domain.Transform),
	}
}

// NewID mints a fresh section id.
func (s *Store) NewID() string { return s.newID() }

// MinHeight returns the height floor.
func (s *Store) MinHeight() float64 { return s.minHeight }

// Append adds a section at the end of the order.
func (s *Store) Append(id string, c domain.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.content[id]; ok || id == "" {
		return fmt.Errorf("append %q: %w", id, ErrDuplicate)
	}
	s.order = append(s.order, id)
	s.content[id] = c
	return nil
}

// InsertAfter splices entries immediately after afterID, preserving their order.
// If afterID is not present the entries are appended. The whole batch is rejected
// when any id is empty, already live, or repeated within the batch.
func (s *Store) InsertAfter(afterID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := s.content[e.ID]; ok || e.ID == "" {
			return fmt.Errorf("insert %q: %w", e.ID, ErrDuplicate)
		}
		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("insert %q: %w", e.ID, ErrDuplicate)
		}
		seen[e.ID] = struct{}{}
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		s.content[e.ID] = e.Content
	}
	at := len(s.order)
	if i := slices.Index(s.order, afterID); i >= 0 {
		at = i + 1
	}
	s.order = slices.Insert(s.order, at, ids...)
	s.log.Debug("sections inserted", slog.String("after", afterID), slog.Int("count", len(ids)), slog.Int("at", at))
	return nil
}

// Remove deletes a section from order, content, height and transform. No-op if absent.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.content[id]; !ok {
		return
	}
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	delete(s.content, id)
	delete(s.height, id)
	delete(s.transform, id)
}

// ReplaceContent swaps the content in place; order, height and transform are untouched.
func (s *Store) ReplaceContent(id string, c domain.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.content[id]; !ok {
		return fmt.Errorf("replace %q: %w", id, ErrNotFound)
	}
	s.content[id] = c
	return nil
}

// ReplaceUpload swaps in freshly uploaded content and resets the transform,
// so pan/zoom of the previous image never carries over.
func (s *Store) ReplaceUpload(id string, c domain.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.content[id]; !ok {
		return fmt.Errorf("replace %q: %w", id, ErrNotFound)
	}
	s.content[id] = c
	delete(s.transform, id)
	return nil
}

// AddPlaceholder appends an empty placeholder or spacer section and returns its id.
func (s *Store) AddPlaceholder(kind domain.ContentKind) (string, error) {
	var c domain.Content
	switch kind {
	case domain.KindPlaceholder:
		c = domain.Placeholder()
	case domain.KindSpacer:
		c = domain.Spacer()
	default:
		return "", fmt.Errorf("add placeholder %q: %w", kind, ErrKind)
	}
	id := s.newID()
	if err := s.Append(id, c); err != nil {
		return "", err
	}
	return id, nil
}

// AddImage appends an image section showing ref and returns its id.
func (s *Store) AddImage(ref domain.ImageRef) (string, error) {
	id := s.newID()
	if err := s.Append(id, domain.ImageContent(ref)); err != nil {
		return "", err
	}
	return id, nil
}

// EnsureHero installs the hero section as section zero, or updates its content when present.
func (s *Store) EnsureHero(h domain.Hero) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.content[domain.HeroID]; !ok {
		s.order = slices.Insert(s.order, 0, domain.HeroID)
	}
	s.content[domain.HeroID] = domain.HeroContent(h)
}

// Move relocates id to index to (clamped to the valid range).
func (s *Store) Move(id string, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := slices.Index(s.order, id)
	if from < 0 {
		return fmt.Errorf("move %q: %w", id, ErrNotFound)
	}
	to = max(0, min(to, len(s.order)-1))
	if from == to {
		return nil
	}
	s.order = slices.Delete(s.order, from, from+1)
	s.order = slices.Insert(s.order, to, id)
	return nil
}

// MoveUp swaps id with its predecessor.
func (s *Store) MoveUp(id string) error { return s.step(id, -1) }

// MoveDown swaps id with its successor.
func (s *Store) MoveDown(id string) error { return s.step(id, 1) }

func (s *Store) step(id string, d int) error {
	i := s.Index(id)
	if i < 0 {
		return fmt.Errorf("move %q: %w", id, ErrNotFound)
	}
	return s.Move(id, i+d)
}

// SetHeight sets an explicit height, clamped to the minimum. Returns the stored value.
func (s *Store) SetHeight(id string, px float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.content[id]; !ok {
		return 0, fmt.Errorf("set height %q: %w", id, ErrNotFound)
	}
	px = max(px, s.minHeight)
	s.height[id] = px
	return px, nil
}

// ClearHeight returns the section to auto-size.
func (s *Store) ClearHeight(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.height, id)
}

// Height returns the explicit height; ok is false for auto-sized or unknown sections.
func (s *Store) Height(id string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.height[id]
	return h, ok
}

// SetTransform stores t with its scale clamped to the section's zoom policy.
// X and Y are unbounded. Returns the stored value.
func (s *Store) SetTransform(id string, t domain.Transform) (domain.Transform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.content[id]
	if !ok {
		return domain.Transform{}, fmt.Errorf("set transform %q: %w", id, ErrNotFound)
	}
	t.Scale = s.policyLocked(c.Kind).Clamp(t.Scale)
	s.transform[id] = t
	return t, nil
}

// Transform returns the current transform, identity if never set.
func (s *Store) Transform(id string) domain.Transform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.transform[id]; ok {
		return t
	}
	return domain.IdentityTransform
}

// ZoomPolicy returns the zoom range that applies to id.
func (s *Store) ZoomPolicy(id string) ZoomPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policyLocked(s.content[id].Kind)
}

func (s *Store) policyLocked(kind domain.ContentKind) ZoomPolicy {
	if p, ok := s.zoom[kind]; ok {
		return p
	}
	return DefaultZoom
}

func (s *Store) Content(id string) (domain.Content, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.content[id]
	return c, ok
}

func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.content[id]
	return ok
}

// Order returns a copy of the stacking order.
func (s *Store) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Index returns the position of id in the order, or -1.
func (s *Store) Index(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Index(s.order, id)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Section returns the read projection of one section.
func (s *Store) Section(id string) (domain.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.content[id]; !ok {
		return domain.Section{}, false
	}
	return s.sectionLocked(id), true
}

// Sections returns all sections in stacking order.
func (s *Store) Sections() []domain.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Section, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sectionLocked(id))
	}
	return out
}

func (s *Store) sectionLocked(id string) domain.Section {
	sec := domain.Section{ID: id, Content: s.content[id], Transform: domain.IdentityTransform}
	if h, ok := s.height[id]; ok {
		sec.Height = &h
	}
	if t, ok := s.transform[id]; ok {
		sec.Transform = t
	}
	return sec
}

// Load replaces the whole store with the given sections. Heights and scales are clamped
// the same way the setters clamp them.
func (s *Store) Load(sections []domain.Section) error {
	seen := make(map[string]struct{}, len(sections))
	for _, sec := range sections {
		if _, ok := seen[sec.ID]; ok || sec.ID == "" {
			return fmt.Errorf("load %q: %w", sec.ID, ErrDuplicate)
		}
		seen[sec.ID] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	clear(s.content)
	clear(s.height)
	clear(s.transform)
	for _, sec := range sections {
		s.order = append(s.order, sec.ID)
		s.content[sec.ID] = sec.Content
		if sec.Height != nil {
			s.height[sec.ID] = max(*sec.Height, s.minHeight)
		}
		if sec.Transform != (domain.Transform{}) && sec.Transform != domain.IdentityTransform {
			t := sec.Transform
			t.Scale = s.policyLocked(sec.Content.Kind).Clamp(t.Scale)
			s.transform[sec.ID] = t
		}
	}
	return nil
}
