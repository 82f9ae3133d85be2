/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"detailpage/internal/assets"
	"detailpage/internal/domain"
)

func TestWriteAndReadBundle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := assets.NewMemStore()

	stored, err := src.Put(ctx, []byte("stored-image"), "image/png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	onDisk := filepath.Join(dir, "hero.jpg")
	if err := os.WriteFile(onDisk, []byte("hero-image"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	doc := sampleDoc()
	doc.Sections[0].Content.Hero.Image = domain.ImageRef(onDisk)
	doc.Sections[1].Content = domain.ImageContent(stored)

	zipPath := filepath.Join(dir, "out", "page.zip")
	if err := WriteBundle(ctx, doc, src, zipPath); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(r.File) != 4 {
		t.Fatalf("expected manifest, document and 2 images, got %d entries", len(r.File))
	}
	_ = r.Close()

	dst := assets.NewMemStore()
	got, err := ReadBundle(ctx, zipPath, dst)
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if dst.Len() != 2 {
		t.Fatalf("expected 2 installed images, got %d", dst.Len())
	}
	heroRef := got.Sections[0].Content.Hero.Image
	if heroRef != assets.RefFor([]byte("hero-image")) {
		t.Fatalf("hero ref not rewritten: %q", heroRef)
	}
	if got.Sections[0].Content.Hero.ProductName != "Trail Runner" {
		t.Fatalf("hero text lost: %+v", got.Sections[0].Content.Hero)
	}
	data, _, err := dst.Get(ctx, got.Sections[1].Content.Image)
	if err != nil || string(data) != "stored-image" {
		t.Fatalf("image not installed: %q %v", data, err)
	}
	if len(got.Texts) != 1 || got.Texts[0].SectionID != "s1" {
		t.Fatalf("texts mismatch: %+v", got.Texts)
	}
}

func TestWriteBundleMissingImage(t *testing.T) {
	doc := sampleDoc()
	doc.Sections[1].Content = domain.ImageContent(assets.RefFor([]byte("nowhere")))
	err := WriteBundle(context.Background(), doc, assets.NewMemStore(), filepath.Join(t.TempDir(), "x.zip"))
	if err == nil {
		t.Fatalf("expected error for missing image")
	}
}

func TestReadBundleRequiresDocument(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.zip")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	if err := addFile(zw, bundleManifest, []byte("x")); err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = zw.Close()
	_ = f.Close()
	if _, err := ReadBundle(context.Background(), p, assets.NewMemStore()); err == nil {
		t.Fatalf("expected error for bundle without document")
	}
}
