/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package capture renders a section the way the canvas shows it: the stored
// image fitted to the canvas width, then panned and zoomed by the section
// transform, clipped to the section box.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"detailpage/internal/assets"
	"detailpage/internal/domain"
	applog "detailpage/internal/log"
	"detailpage/internal/vector"
)

// Sections reads section snapshots.
type Sections interface {
	Section(id string) (domain.Section, bool)
}

// Renderer turns sections into raster images and implements the capture collaborator.
type Renderer struct {
	Sections   Sections
	Assets     assets.Store
	Width      float64
	AutoHeight float64
	// Background fills the area not covered by the image.
	Background color.Color
	log        *slog.Logger
}

func NewRenderer(sections Sections, store assets.Store, width, autoHeight float64) *Renderer {
	return &Renderer{
		Sections:   sections,
		Assets:     store,
		Width:      width,
		AutoHeight: autoHeight,
		Background: color.White,
		log:        applog.WithComponent("capture"),
	}
}

// Capture renders sectionID and stores the PNG, returning its asset ref.
func (r *Renderer) Capture(ctx context.Context, sectionID string) (domain.ImageRef, error) {
	sec, ok := r.Sections.Section(sectionID)
	if !ok {
		return "", fmt.Errorf("capture %q: section not found", sectionID)
	}
	img, err := r.Render(ctx, sec)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("capture %q: encode: %w", sectionID, err)
	}
	ref, err := r.Assets.Put(ctx, buf.Bytes(), "image/png")
	if err != nil {
		return "", fmt.Errorf("capture %q: %w", sectionID, err)
	}
	r.log.Debug("section captured", slog.String("section", sectionID), slog.String("ref", string(ref)))
	return ref, nil
}

// Size returns the pixel size a section renders at.
func (r *Renderer) Size(sec domain.Section) (w, h int) {
	hh := r.AutoHeight
	if sec.Height != nil {
		hh = *sec.Height
	}
	return int(math.Round(r.Width)), int(math.Round(hh))
}

// Render draws sec into a new RGBA image of the section size.
func (r *Renderer) Render(ctx context.Context, sec domain.Section) (*image.RGBA, error) {
	ref, ok := sec.Content.ImageRef()
	if !ok {
		return nil, fmt.Errorf("render %q: section has no image", sec.ID)
	}
	data, _, err := assets.Load(ctx, r.Assets, ref)
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", sec.ID, err)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("render %q: decode: %w", sec.ID, err)
	}
	w, h := r.Size(sec)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render %q: empty size %dx%d", sec.ID, w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(r.Background), image.Point{}, draw.Src)
	m := Placement(src.Bounds(), float64(w), float64(h), sec.Transform)
	draw.CatmullRom.Transform(dst, m.Aff3(), src, src.Bounds(), draw.Over, nil)
	return dst, nil
}

// Placement maps source pixels to section pixels. The image is fitted to the
// section width and centered vertically, then scaled about the section center
// and offset by the transform.
func Placement(src image.Rectangle, w, h float64, t domain.Transform) vector.Affine2D {
	iw, ih := float64(src.Dx()), float64(src.Dy())
	if iw == 0 || ih == 0 {
		return vector.Identity
	}
	k := w / iw
	fit := vector.Translate(0, (h-ih*k)/2).Mul(vector.Scale(k, k)).Mul(vector.Translate(-float64(src.Min.X), -float64(src.Min.Y)))
	scale := t.Scale
	if scale == 0 {
		scale = 1
	}
	center := vector.Pt{X: w / 2, Y: h / 2}
	return vector.Translate(t.X, t.Y).Mul(vector.ScaleAbout(center, scale)).Mul(fit)
}
