/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package section

import (
	"detailpage/internal/domain"
	"detailpage/internal/vector"
)

// Placement is the computed canvas rectangle of a section.
type Placement struct {
	ID   string
	Rect vector.Rect
	// Auto reports that the height came from the auto size, not an explicit height.
	Auto bool
}

// spacerAuto is the auto height of a spacer section.
const spacerAuto = 80.0

// Stack lays the sections out top to bottom at the given canvas width.
// Sections without an explicit height get autoHeight (spacers get a thinner default).
func Stack(s *Store, width, autoHeight float64) []Placement {
	return StackSections(s.Sections(), width, autoHeight)
}

// StackSections is Stack over a snapshot, used by exporters.
func StackSections(secs []domain.Section, width, autoHeight float64) []Placement {
	out := make([]Placement, 0, len(secs))
	y := 0.0
	for _, sec := range secs {
		h, auto := autoHeight, true
		if sec.Height != nil {
			h, auto = *sec.Height, false
		} else if sec.Content.Kind == domain.KindSpacer {
			h = spacerAuto
		}
		out = append(out, Placement{ID: sec.ID, Rect: vector.R(0, y, width, h), Auto: auto})
		y += h
	}
	return out
}

// TotalHeight is the height of the stacked canvas.
func TotalHeight(ps []Placement) float64 {
	if len(ps) == 0 {
		return 0
	}
	last := ps[len(ps)-1].Rect
	return last.Y + last.H
}

// SectionAt returns the section covering canvas y.
func SectionAt(ps []Placement, y float64) (Placement, bool) {
	for _, p := range ps {
		if y >= p.Rect.Y && y < p.Rect.Y+p.Rect.H {
			return p, true
		}
	}
	return Placement{}, false
}

// Find returns the placement of id.
func Find(ps []Placement, id string) (Placement, bool) {
	for _, p := range ps {
		if p.ID == id {
			return p, true
		}
	}
	return Placement{}, false
}
