/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package assets stores image bytes addressed by content hash.
// Section content refers to images through domain.ImageRef values of the form
// "asset:<sha256>"; any other ref is treated as a local file path.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"detailpage/internal/domain"
)

// RefPrefix marks refs that live in an asset store.
const RefPrefix = "asset:"

var ErrNotFound = errors.New("asset not found")

// Store keeps image blobs.
type Store interface {
	Put(ctx context.Context, data []byte, mime string) (domain.ImageRef, error)
	Get(ctx context.Context, ref domain.ImageRef) ([]byte, string, error)
}

// RefFor returns the content-addressed ref of data.
func RefFor(data []byte) domain.ImageRef {
	sum := sha256.Sum256(data)
	return domain.ImageRef(RefPrefix + hex.EncodeToString(sum[:]))
}

// IsAsset reports whether ref points into an asset store.
func IsAsset(ref domain.ImageRef) bool { return strings.HasPrefix(string(ref), RefPrefix) }

func hashOf(ref domain.ImageRef) (string, error) {
	h, ok := strings.CutPrefix(string(ref), RefPrefix)
	if !ok || len(h) != sha256.Size*2 {
		return "", fmt.Errorf("bad asset ref %q", ref)
	}
	return h, nil
}

// SniffMIME returns mime, or the type detected from data when mime is empty.
func SniffMIME(data []byte, mime string) string {
	if mime != "" {
		return mime
	}
	return http.DetectContentType(data)
}

// Load resolves ref through s, or reads it from disk when it is not an asset ref.
func Load(ctx context.Context, s Store, ref domain.ImageRef) ([]byte, string, error) {
	if ref == "" {
		return nil, "", ErrNotFound
	}
	if IsAsset(ref) {
		if s == nil {
			return nil, "", fmt.Errorf("load %s: no asset store: %w", ref, ErrNotFound)
		}
		return s.Get(ctx, ref)
	}
	path := strings.TrimPrefix(string(ref), "file://")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("load %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", ref, err)
	}
	return data, SniffMIME(data, ""), nil
}

// Import copies a local file into s and returns its asset ref.
func Import(ctx context.Context, s Store, path string) (domain.ImageRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("import %s: %w", path, err)
	}
	return s.Put(ctx, data, "")
}
