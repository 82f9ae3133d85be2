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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"detailpage/internal/assets"
	"detailpage/internal/domain"
	applog "detailpage/internal/log"
)

const (
	bundleManifest = "bundle.manifest.txt"
	bundleDocument = "document.json"
	bundleAssets   = "assets/"
)

// WriteBundle zips doc together with every image it references into a single
// portable file. Image refs in the bundled document are rewritten to content
// addressed asset refs so the bundle opens on any machine.
func WriteBundle(ctx context.Context, doc domain.Document, store assets.Store, destZipPath string) error {
	l := applog.WithOperation(applog.WithComponent("export"), "bundle")
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	images := map[domain.ImageRef][]byte{}
	rewrite := func(ref domain.ImageRef) (domain.ImageRef, error) {
		if ref == "" {
			return ref, nil
		}
		data, _, err := assets.Load(ctx, store, ref)
		if err != nil {
			return "", fmt.Errorf("bundle image %s: %w", ref, err)
		}
		id := assets.RefFor(data)
		images[id] = data
		return id, nil
	}
	out := doc
	out.Sections = make([]domain.Section, len(doc.Sections))
	for i, sec := range doc.Sections {
		if ref, ok := sec.Content.ImageRef(); ok {
			id, err := rewrite(ref)
			if err != nil {
				return err
			}
			sec.Content = sec.Content.WithImage(id)
		}
		out.Sections[i] = sec
	}

	var docBuf bytes.Buffer
	if err := WriteJSON(&docBuf, out); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)
	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("Detail Page Composer Bundle\nCreated: %s\nTitle: %s\nSections: %d\nImages: %d\n",
		time.Now().Format(time.RFC3339), doc.Title, len(doc.Sections), len(images))
	if err := addFile(zw, bundleManifest, []byte(manifest)); err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	if err := addFile(zw, bundleDocument, docBuf.Bytes()); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	for ref, data := range images {
		name := bundleAssets + strings.TrimPrefix(string(ref), assets.RefPrefix)
		if err := addFile(zw, name, data); err != nil {
			l.Error("zip build failed", slog.Any("err", err))
			return fmt.Errorf("build zip: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	l.Info("bundle exported", slog.Int("images", len(images)), slog.String("zip", destZipPath))
	return nil
}

func addFile(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

// ReadBundle opens a bundle written by WriteBundle, puts its images into
// store and returns the document. An image whose bytes do not match its name
// is rejected.
func ReadBundle(ctx context.Context, srcZipPath string, store assets.Store) (domain.Document, error) {
	l := applog.WithOperation(applog.WithComponent("export"), "unbundle")
	r, err := zip.OpenReader(srcZipPath)
	if err != nil {
		return domain.Document{}, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	var doc *domain.Document
	installed := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() || f.Name == bundleManifest {
			continue
		}
		switch {
		case f.Name == bundleDocument:
			rc, err := f.Open()
			if err != nil {
				return domain.Document{}, err
			}
			d, err := ReadJSON(rc)
			_ = rc.Close()
			if err != nil {
				return domain.Document{}, err
			}
			doc = &d
		case strings.HasPrefix(f.Name, bundleAssets):
			data, err := readAll(f)
			if err != nil {
				return domain.Document{}, err
			}
			want := domain.ImageRef(assets.RefPrefix + path.Base(f.Name))
			got, err := store.Put(ctx, data, "")
			if err != nil {
				return domain.Document{}, fmt.Errorf("install %s: %w", f.Name, err)
			}
			if got != want {
				return domain.Document{}, fmt.Errorf("install %s: content does not match name", f.Name)
			}
			installed++
		default:
			l.Warn("skip unknown entry", slog.String("name", f.Name))
		}
	}
	if doc == nil {
		return domain.Document{}, fmt.Errorf("open bundle: %s missing", bundleDocument)
	}
	l.Info("bundle opened", slog.Int("images", installed), slog.Int("sections", len(doc.Sections)))
	return *doc, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
