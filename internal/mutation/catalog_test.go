/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickPrefersUnusedThenRepeats(t *testing.T) {
	c := Catalog{FullBody: {"a", "b", "c", "d"}}
	used := map[string]bool{"a": true, "c": true}
	isUsed := func(id string) bool { return used[id] }

	assert.Equal(t, []string{"b", "d"}, c.Pick(FullBody, 2, isUsed))
	assert.Equal(t, []string{"b", "d", "a", "c"}, c.Pick(FullBody, 4, isUsed))
	assert.Equal(t, []string{"b", "d", "a", "c", "a", "b"}, c.Pick(FullBody, 6, isUsed))
	assert.Nil(t, c.Pick(UpperBody, 2, isUsed))
	assert.Nil(t, c.Pick(FullBody, 0, isUsed))
}

func TestDefaultCatalogHasBothKinds(t *testing.T) {
	c := DefaultCatalog()
	assert.GreaterOrEqual(t, len(c[FullBody]), 6)
	assert.GreaterOrEqual(t, len(c[UpperBody]), 6)
}
