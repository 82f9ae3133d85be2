/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package mutation

import (
	"fmt"
	"strings"
)

// Progress is the shared progress record read by the view.
type Progress struct {
	SectionID string
	Current   int
	Total     int
	Message   string
}

// Active reports whether the record describes unfinished work.
func (p Progress) Active() bool { return p.Total > 0 && p.Current < p.Total }

func (p Progress) String() string {
	if p.Total == 0 {
		return p.Message
	}
	return fmt.Sprintf("%s (%d/%d)", p.Message, p.Current, p.Total)
}

// Failure is one failed unit of a batch.
type Failure struct {
	SectionID string
	Unit      string
	Err       error
}

// Tally summarizes a fan-out that tolerates partial failure.
type Tally struct {
	Succeeded int
	Failed    int
	Failures  []Failure
}

func (t *Tally) ok() { t.Succeeded++ }

func (t *Tally) fail(sectionID, unit string, err error) {
	t.Failed++
	t.Failures = append(t.Failures, Failure{SectionID: sectionID, Unit: unit, Err: err})
}

// Total is the number of attempted units.
func (t Tally) Total() int { return t.Succeeded + t.Failed }

// String renders the short summary, e.g. "2/3 succeeded".
func (t Tally) String() string { return fmt.Sprintf("%d/%d succeeded", t.Succeeded, t.Total()) }

// Summary renders the tally with the distinct failure reasons.
func (t Tally) Summary() string {
	if t.Failed == 0 {
		return t.String()
	}
	seen := map[string]bool{}
	var reasons []string
	for _, f := range t.Failures {
		m := UserMessage(f.Err)
		if !seen[m] {
			seen[m] = true
			reasons = append(reasons, m)
		}
	}
	return fmt.Sprintf("%d succeeded / %d failed: %s", t.Succeeded, t.Failed, strings.Join(reasons, "; "))
}
