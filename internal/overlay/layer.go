/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package overlay keeps the free-positioned text annotations of a page.
// Overlays are bound to a section; z-order is insertion order, last added on top.
package overlay

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"detailpage/internal/domain"
)

var (
	ErrNotFound       = errors.New("text overlay not found")
	ErrSectionNotLive = errors.New("bound section does not exist")
	ErrField          = errors.New("unknown or invalid overlay field")
)

// Field names accepted by UpdateField.
const (
	FieldContent    = "content"
	FieldTop        = "top"
	FieldLeft       = "left"
	FieldWidth      = "width"
	FieldHeight     = "height"
	FieldFontSize   = "fontSize"
	FieldFontFamily = "fontFamily"
	FieldColor      = "color"
	FieldFontWeight = "fontWeight"
	FieldAlign      = "align"
)

// Liveness reports whether a section id is currently part of the page.
type Liveness interface {
	Has(id string) bool
}

// Layer is the Text Overlay Layer. Safe for concurrent use.
type Layer struct {
	mu    sync.RWMutex
	live  Liveness
	items []domain.TextOverlay
}

// NewLayer returns an empty layer; live may be nil to skip the binding check.
func NewLayer(live Liveness) *Layer { return &Layer{live: live} }

// Add appends t, minting an id when empty. Returns the stored overlay.
func (l *Layer) Add(t domain.TextOverlay) (domain.TextOverlay, error) {
	if l.live != nil && !l.live.Has(t.SectionID) {
		return domain.TextOverlay{}, fmt.Errorf("add text to %q: %w", t.SectionID, ErrSectionNotLive)
	}
	if t.ID == "" {
		t.ID = "text-" + uuid.NewString()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexLocked(t.ID) >= 0 {
		return domain.TextOverlay{}, fmt.Errorf("add text %q: duplicate id", t.ID)
	}
	l.items = append(l.items, t)
	return t, nil
}

// Get returns the overlay with id.
func (l *Layer) Get(id string) (domain.TextOverlay, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexLocked(id); i >= 0 {
		return l.items[i], true
	}
	return domain.TextOverlay{}, false
}

// UpdateField sets a single attribute from its string form.
func (l *Layer) UpdateField(id, field, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	t := l.items[i]
	if err := setField(&t, field, value); err != nil {
		return fmt.Errorf("update %q.%s: %w", id, field, err)
	}
	l.items[i] = t
	return nil
}

// Move writes top and left together.
func (l *Layer) Move(id string, top, left float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("move %q: %w", id, ErrNotFound)
	}
	if !finite(top) || !finite(left) {
		return fmt.Errorf("move %q: %w: position is not finite", id, ErrField)
	}
	l.items[i].Top, l.items[i].Left = top, left
	return nil
}

// Remove deletes the overlay. No-op if absent.
func (l *Layer) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.DeleteFunc(l.items, func(t domain.TextOverlay) bool { return t.ID == id })
}

// RemoveSection deletes every overlay bound to sectionID and returns how many were dropped.
func (l *Layer) RemoveSection(sectionID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.items)
	l.items = slices.DeleteFunc(l.items, func(t domain.TextOverlay) bool { return t.SectionID == sectionID })
	return n - len(l.items)
}

// ReplaceAll swaps the whole list. Binding is not checked; use Orphans to inspect.
func (l *Layer) ReplaceAll(list []domain.TextOverlay) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.Clone(list)
}

// All returns every overlay in z-order.
func (l *Layer) All() []domain.TextOverlay {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// ForSection returns the overlays bound to sectionID in z-order.
func (l *Layer) ForSection(sectionID string) []domain.TextOverlay {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.TextOverlay
	for _, t := range l.items {
		if t.SectionID == sectionID {
			out = append(out, t)
		}
	}
	return out
}

// Orphans lists overlays whose section is no longer live.
func (l *Layer) Orphans() []domain.TextOverlay {
	if l.live == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.TextOverlay
	for _, t := range l.items {
		if !l.live.Has(t.SectionID) {
			out = append(out, t)
		}
	}
	return out
}

func (l *Layer) indexLocked(id string) int {
	return slices.IndexFunc(l.items, func(t domain.TextOverlay) bool { return t.ID == id })
}

func setField(t *domain.TextOverlay, field, value string) error {
	num := func(dst *float64, positive bool) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrField, err)
		}
		if !finite(v) {
			return fmt.Errorf("%w: %s %q is not a finite number", ErrField, field, value)
		}
		if positive && v <= 0 {
			return fmt.Errorf("%w: %s must be greater than 0", ErrField, field)
		}
		*dst = v
		return nil
	}
	switch field {
	case FieldContent:
		t.Content = value
	case FieldTop:
		return num(&t.Top, false)
	case FieldLeft:
		return num(&t.Left, false)
	case FieldWidth:
		return num(&t.Width, true)
	case FieldHeight:
		return num(&t.Height, true)
	case FieldFontSize:
		return num(&t.Style.FontSize, true)
	case FieldFontFamily:
		t.Style.FontFamily = value
	case FieldColor:
		t.Style.Color = value
	case FieldFontWeight:
		w, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrField, err)
		}
		t.Style.FontWeight = w
	case FieldAlign:
		switch value {
		case "left", "center", "right":
			t.Style.Align = value
		default:
			return fmt.Errorf("%w: align %q", ErrField, value)
		}
	default:
		return ErrField
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
