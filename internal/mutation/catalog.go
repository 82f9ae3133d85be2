/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package mutation

import "slices"

// PoseKind selects the pose family of a variation batch.
type PoseKind string

const (
	FullBody  PoseKind = "full_body"
	UpperBody PoseKind = "upper_body"
)

// Catalog lists the pose ids available per kind, in preference order.
type Catalog map[PoseKind][]string

// DefaultCatalog returns the built-in pose ids.
func DefaultCatalog() Catalog {
	return Catalog{
		FullBody: {
			"standing-front", "standing-three-quarter", "walking", "hand-on-hip",
			"leaning-wall", "crossed-legs", "side-profile", "back-view",
			"sitting-stool", "mid-stride",
		},
		UpperBody: {
			"front-neutral", "three-quarter-smile", "hand-on-chin", "arms-crossed",
			"looking-away", "over-shoulder", "hair-touch", "side-profile",
		},
	}
}

// Pick chooses n pose ids of kind. Ids not yet used come first in catalog
// order; once those run out the catalog is cycled again, so a batch is never short.
func (c Catalog) Pick(kind PoseKind, n int, used func(string) bool) []string {
	all := c[kind]
	if len(all) == 0 || n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for _, id := range all {
		if len(out) == n {
			return out
		}
		if !used(id) {
			out = append(out, id)
		}
	}
	for i := 0; len(out) < n; i++ {
		id := all[i%len(all)]
		if i >= len(all) || !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
