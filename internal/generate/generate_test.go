/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detailpage/internal/assets"
	"detailpage/internal/config"
	"detailpage/internal/domain"
	"detailpage/internal/mutation"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image")

func seededStore(t *testing.T) (*assets.MemStore, domain.ImageRef) {
	t.Helper()
	s := assets.NewMemStore()
	ref, err := s.Put(context.Background(), pngBytes, "")
	require.NoError(t, err)
	return s, ref
}

func TestHTTPBackendRoundTrip(t *testing.T) {
	store, src := seededStore(t)
	var got WireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generate", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(WireResponse{Images: []WireImage{{MIME: "image/png", Data: []byte("\x89PNG\r\n\x1a\nout")}}})
	}))
	defer srv.Close()

	c := NewHTTPBackend(srv.URL+"/", "tok", store, 5*time.Second)
	res, err := c.Invoke(context.Background(), mutation.Request{
		Op:      mutation.OpRecolor,
		Section: domain.Section{ID: "s1", Content: domain.ImageContent(src)},
		Params:  map[string]string{"target": "shoes", "color": "red"},
	})
	require.NoError(t, err)
	require.Len(t, res.Images, 1)
	data, _, err := store.Get(context.Background(), res.Images[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\nout"), data)

	assert.Equal(t, "recolor", got.Op)
	assert.Equal(t, "s1", got.SectionID)
	require.Len(t, got.Images, 1)
	assert.Equal(t, pngBytes, got.Images[0].Data)
	assert.Contains(t, got.Prompt, "shoes")
}

func TestHTTPBackendErrorsCarryReason(t *testing.T) {
	store, src := seededStore(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = fmt.Fprint(w, `{"error":"face not detected"}`)
	}))
	defer srv.Close()

	c := NewHTTPBackend(srv.URL, "", store, 5*time.Second)
	_, err := c.Invoke(context.Background(), mutation.Request{Op: mutation.OpPose, Section: domain.Section{ID: "s1"}, Source: src})
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "face not detected", ge.Reason())
}

func TestGeminiCollectsInlineImages(t *testing.T) {
	store, src := seededStore(t)
	out := base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\ngemini"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"done"},{"inlineData":{"mimeType":"image/png","data":"%s"}}]},"finishReason":"STOP"}]}`, out)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "test-key", "gemini-2.5-flash-image", store, GeminiOptions{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	res, err := g.Invoke(context.Background(), mutation.Request{
		Op: mutation.OpPose, Section: domain.Section{ID: "s1"}, Source: src,
		Params: map[string]string{"pose": "walking", "kind": "full_body"},
	})
	require.NoError(t, err)
	require.Len(t, res.Images, 1)
	assert.Equal(t, "done", res.Text)
	data, mime, err := store.Get(context.Background(), res.Images[0])
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\ngemini"), data)
}

func TestGeminiEmptyAnswerHasReason(t *testing.T) {
	store, src := seededStore(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"candidates":[{"finishReason":"IMAGE_SAFETY"}]}`)
	}))
	defer srv.Close()
	g, err := NewGemini(context.Background(), "k", "m", store, GeminiOptions{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = g.Invoke(context.Background(), mutation.Request{Op: mutation.OpRecolor, Section: domain.Section{ID: "s1"}, Source: src})
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Contains(t, ge.Reason(), "IMAGE_SAFETY")
}

func TestNewSelectsProvider(t *testing.T) {
	store := assets.NewMemStore()
	c, err := New(context.Background(), config.GeneratorConfig{Provider: "none"}, "", store)
	require.NoError(t, err)
	_, err = c.Invoke(context.Background(), mutation.Request{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err = New(context.Background(), config.GeneratorConfig{Provider: "http", BaseURL: "http://x"}, "", store)
	require.NoError(t, err)
	assert.IsType(t, &HTTPBackend{}, c)

	_, err = New(context.Background(), config.GeneratorConfig{Provider: "gemini"}, "", store)
	assert.Error(t, err)
	_, err = New(context.Background(), config.GeneratorConfig{Provider: "dall-e"}, "", store)
	assert.Error(t, err)
}

func TestPromptsMentionParameters(t *testing.T) {
	p := Prompt(mutation.Request{Op: mutation.OpPose, Params: map[string]string{"pose": "arms-crossed", "kind": "upper_body"}})
	assert.Contains(t, p, "with arms crossed")
	assert.Contains(t, p, "waist up")
	p = Prompt(mutation.Request{Op: mutation.OpPose, Params: map[string]string{"pose": "jump-high", "kind": "full_body"}})
	assert.Contains(t, p, "jump high")
	p = Prompt(mutation.Request{Op: mutation.OpComposite, Params: map[string]string{"analysis": "white sneakers"}})
	assert.Contains(t, p, "white sneakers")
}
