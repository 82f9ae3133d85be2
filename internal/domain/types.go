/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model of a product detail page: an ordered,
// vertically stacked list of sections plus free-floating text overlays.
// The types serialize to the JSON document consumed by the exporters.

// HeroID is the conventional id of the structured hero section.
const HeroID = "hero"

// ImageRef is an opaque reference to image bytes (asset id or URL).
type ImageRef string

// ContentKind discriminates the Content union.
type ContentKind string

const (
	KindHero        ContentKind = "hero"
	KindImage       ContentKind = "image"
	KindPlaceholder ContentKind = "placeholder"
	KindSpacer      ContentKind = "spacer"
)

// Content is what a section shows. Exactly one of Hero/Image is meaningful,
// selected by Kind; placeholder and spacer carry neither.
type Content struct {
	Kind  ContentKind `json:"kind"`
	Hero  *Hero       `json:"hero,omitempty"`
	Image ImageRef    `json:"image,omitempty"`
}

// Hero is the structured headline block at the top of a detail page.
type Hero struct {
	ProductName string   `json:"productName"`
	Tagline     string   `json:"tagline,omitempty"`
	Features    []string `json:"features,omitempty"`
	Image       ImageRef `json:"image,omitempty"`
}

func HeroContent(h Hero) Content      { return Content{Kind: KindHero, Hero: &h} }
func ImageContent(ref ImageRef) Content { return Content{Kind: KindImage, Image: ref} }
func Placeholder() Content             { return Content{Kind: KindPlaceholder} }
func Spacer() Content                  { return Content{Kind: KindSpacer} }

// ImageRef returns the image shown by the content, if any.
func (c Content) ImageRef() (ImageRef, bool) {
	switch c.Kind {
	case KindImage:
		return c.Image, c.Image != ""
	case KindHero:
		if c.Hero != nil && c.Hero.Image != "" {
			return c.Hero.Image, true
		}
	}
	return "", false
}

// WithImage returns a copy of c showing ref instead of its current image.
// Hero content keeps its text fields.
func (c Content) WithImage(ref ImageRef) Content {
	if c.Kind == KindHero && c.Hero != nil {
		h := *c.Hero
		h.Features = append([]string(nil), c.Hero.Features...)
		h.Image = ref
		return HeroContent(h)
	}
	return ImageContent(ref)
}

// Transform is the pan/zoom applied to a section image.
type Transform struct {
	Scale float64 `json:"scale"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// IdentityTransform is the default, untouched transform.
var IdentityTransform = Transform{Scale: 1}

// Section is a read projection of one vertical block.
// Height is nil when the section auto-sizes.
type Section struct {
	ID        string    `json:"id"`
	Content   Content   `json:"content"`
	Height    *float64  `json:"height,omitempty"`
	Transform Transform `json:"transform"`
}

// TextStyle holds the typographic attributes of a text overlay.
type TextStyle struct {
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	Color      string  `json:"color"` // CSS hex, e.g. #1a1a1a
	FontWeight int     `json:"fontWeight"`
	Align      string  `json:"align"` // left, center, right
}

// TextOverlay is a free-positioned annotation bound to a section.
// Top/Left are relative to the bound section's origin.
type TextOverlay struct {
	ID        string    `json:"id"`
	SectionID string    `json:"sectionId"`
	Content   string    `json:"content"`
	Top       float64   `json:"top"`
	Left      float64   `json:"left"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Style     TextStyle `json:"style"`
}

// Document is the serializable snapshot handed to exporters.
type Document struct {
	Title    string        `json:"title,omitempty"`
	Width    float64       `json:"width"`
	Sections []Section     `json:"sections"`
	Texts    []TextOverlay `json:"texts"`
}
