/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"fmt"

	"detailpage/internal/assets"
	"detailpage/internal/domain"
	"detailpage/internal/gesture"
)

// Drop is the payload of a drag and drop onto a section: a DropFile or a
// DropProduct.
type Drop interface{ drop() }

// DropFile is a raw image file. Data wins over Path when both are set.
type DropFile struct {
	Name string
	Path string
	Data []byte
	MIME string
}

// DropProduct is a product image already known to the asset store.
type DropProduct struct {
	Name string
	Ref  domain.ImageRef
}

func (DropFile) drop()    {}
func (DropProduct) drop() {}

// ErrEmptyDrop is returned for a drop without content.
var ErrEmptyDrop = errors.New("drop carries no image")

// OnDrop handles a drop on sectionID. A file replaces the section image, or
// appends a new section when sectionID is empty or gone. A product is
// composited onto the section in the background.
func (e *Editor) OnDrop(ctx context.Context, sectionID string, d Drop) error {
	switch d := d.(type) {
	case DropFile:
		if len(d.Data) == 0 && d.Path == "" {
			return ErrEmptyDrop
		}
		if sectionID == "" || !e.store.Has(sectionID) {
			if len(d.Data) == 0 {
				ref, err := assets.Import(ctx, e.assets, d.Path)
				if err != nil {
					return err
				}
				_, err = e.store.AddImage(ref)
				return err
			}
			_, err := e.AddImage(ctx, d.Data, d.MIME)
			return err
		}
		if len(d.Data) == 0 {
			return e.UploadFile(ctx, sectionID, d.Path)
		}
		return e.Upload(ctx, sectionID, d.Data, d.MIME)
	case DropProduct:
		if d.Ref == "" {
			return ErrEmptyDrop
		}
		return e.Do(sectionID, ActionComposite, Args{Source: d.Ref})
	default:
		return fmt.Errorf("unsupported drop %T", d)
	}
}

func gestureSection(a gesture.Active) string {
	switch g := a.(type) {
	case gesture.DraggingText:
		return g.SectionID
	case gesture.ResizingSection:
		return g.SectionID
	case gesture.PanningImage:
		return g.SectionID
	}
	return ""
}
