/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "testing"

func TestContentImageRef(t *testing.T) {
	if _, ok := Placeholder().ImageRef(); ok {
		t.Fatalf("placeholder should not carry an image")
	}
	if ref, ok := ImageContent("asset:1").ImageRef(); !ok || ref != "asset:1" {
		t.Fatalf("image ref mismatch: %q %v", ref, ok)
	}
	h := HeroContent(Hero{ProductName: "Runner", Image: "asset:h"})
	if ref, ok := h.ImageRef(); !ok || ref != "asset:h" {
		t.Fatalf("hero ref mismatch: %q %v", ref, ok)
	}
}

func TestWithImageKeepsHeroText(t *testing.T) {
	orig := HeroContent(Hero{ProductName: "Runner", Features: []string{"light"}, Image: "a"})
	got := orig.WithImage("b")
	if got.Kind != KindHero || got.Hero.ProductName != "Runner" || got.Hero.Image != "b" {
		t.Fatalf("unexpected hero after swap: %+v", got.Hero)
	}
	got.Hero.Features[0] = "heavy"
	if orig.Hero.Features[0] != "light" {
		t.Fatalf("WithImage must not alias the original features slice")
	}
	if img := Spacer().WithImage("c"); img.Kind != KindImage || img.Image != "c" {
		t.Fatalf("spacer swap should become image content: %+v", img)
	}
}
