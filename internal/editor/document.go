/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bytes"
	"fmt"

	"detailpage/internal/domain"
	"detailpage/internal/export"
	"detailpage/internal/mutation"
	"detailpage/internal/permission"
)

// Document snapshots the page for export.
func (e *Editor) Document() domain.Document {
	doc := domain.Document{
		Width:    e.cfg.Canvas.Width,
		Sections: e.store.Sections(),
		Texts:    e.texts.All(),
	}
	if c, ok := e.store.Content(domain.HeroID); ok && c.Hero != nil {
		doc.Title = c.Hero.ProductName
	}
	return doc
}

// LoadDocument replaces the page with doc. Permission flags, the current
// section and analyses of replaced sections are reset.
func (e *Editor) LoadDocument(doc domain.Document) error {
	if busy := e.orch.ProcessingIDs(); len(busy) > 0 {
		return fmt.Errorf("load document: section %q: %w", busy[0], mutation.ErrBusy)
	}
	old := e.store.Order()
	if err := e.store.Load(doc.Sections); err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	e.texts.ReplaceAll(doc.Texts)
	for _, id := range old {
		e.orch.ClearAnalysis(id)
	}
	e.gestures.Cancel()
	e.mu.Lock()
	e.perm = permission.EditPermissionState{GlobalEditOn: e.perm.GlobalEditOn}
	e.current = ""
	e.mu.Unlock()
	if orphans := e.texts.Orphans(); len(orphans) > 0 {
		e.notify.Notify(Notice{Level: LevelWarn, Message: fmt.Sprintf("%d text overlays reference missing sections.", len(orphans))})
	}
	return nil
}

// Snapshot encodes the current page as JSON; crash recovery autosaves it.
func (e *Editor) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, e.Document()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
