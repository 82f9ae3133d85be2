/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package permission resolves whether pointer gestures may touch a section.
package permission

import (
	"maps"
	"slices"
)

// Set is a set of section ids.
type Set map[string]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string { return slices.Sorted(maps.Keys(s)) }

// EditPermissionState is the full set of edit toggles. It is a value type:
// the With* methods return a modified copy and never touch the receiver.
type EditPermissionState struct {
	GlobalEditOn bool
	Held         Set
	Selected     Set
	ForceEdit    Set
}

// CanEditGesture reports whether pan, zoom or resize may start on id.
// A held section is never editable; otherwise global edit, selection or
// force-edit each grant permission.
func CanEditGesture(id string, st EditPermissionState) bool {
	if st.Held.Has(id) {
		return false
	}
	return st.GlobalEditOn || st.Selected.Has(id) || st.ForceEdit.Has(id)
}

// CanEdit is CanEditGesture bound to the receiver.
func (st EditPermissionState) CanEdit(id string) bool { return CanEditGesture(id, st) }

func (st EditPermissionState) WithGlobal(on bool) EditPermissionState {
	st.GlobalEditOn = on
	return st
}

func (st EditPermissionState) WithHeld(id string, on bool) EditPermissionState {
	st.Held = toggled(st.Held, id, on)
	return st
}

func (st EditPermissionState) WithSelected(id string, on bool) EditPermissionState {
	st.Selected = toggled(st.Selected, id, on)
	return st
}

func (st EditPermissionState) WithForceEdit(id string, on bool) EditPermissionState {
	st.ForceEdit = toggled(st.ForceEdit, id, on)
	return st
}

// Forget drops id from every set, used when a section is deleted.
func (st EditPermissionState) Forget(id string) EditPermissionState {
	st.Held = toggled(st.Held, id, false)
	st.Selected = toggled(st.Selected, id, false)
	st.ForceEdit = toggled(st.ForceEdit, id, false)
	return st
}

// ClearForceEdit revokes every temporary override.
func (st EditPermissionState) ClearForceEdit() EditPermissionState {
	st.ForceEdit = nil
	return st
}

func toggled(s Set, id string, on bool) Set {
	if s.Has(id) == on {
		return s
	}
	out := maps.Clone(s)
	if out == nil {
		out = Set{}
	}
	if on {
		out[id] = struct{}{}
	} else {
		delete(out, id)
	}
	return out
}
