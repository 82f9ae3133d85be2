/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"context"
	"fmt"
	"sync"

	"detailpage/internal/domain"
)

type blob struct {
	data []byte
	mime string
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[domain.ImageRef]blob
}

func NewMemStore() *MemStore { return &MemStore{blobs: make(map[domain.ImageRef]blob)} }

func (m *MemStore) Put(_ context.Context, data []byte, mime string) (domain.ImageRef, error) {
	ref := RefFor(data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[ref] = blob{data: append([]byte(nil), data...), mime: SniffMIME(data, mime)}
	return ref, nil
}

func (m *MemStore) Get(_ context.Context, ref domain.ImageRef) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[ref]
	if !ok {
		return nil, "", fmt.Errorf("get %s: %w", ref, ErrNotFound)
	}
	return b.data, b.mime, nil
}

// Len returns the number of stored blobs.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
