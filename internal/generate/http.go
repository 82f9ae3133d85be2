/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"detailpage/internal/assets"
	"detailpage/internal/mutation"
	"detailpage/internal/version"
)

// HTTPBackend calls a remote generation service over JSON.
// Images travel base64 encoded (encoding/json's []byte form).
type HTTPBackend struct {
	BaseURL string
	Token   string // bearer token
	store   assets.Store
	client  *http.Client
}

// NewHTTPBackend creates a backend client. baseURL may include a trailing slash; it will be normalized.
func NewHTTPBackend(baseURL, token string, store assets.Store, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		store:   store,
		client:  &http.Client{Timeout: timeout},
	}
}

// WireImage is an image in a request or response body.
type WireImage struct {
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

// WireRequest is the body of POST /v1/generate.
type WireRequest struct {
	Op        string            `json:"op"`
	SectionID string            `json:"section_id"`
	Prompt    string            `json:"prompt"`
	Params    map[string]string `json:"params,omitempty"`
	Images    []WireImage       `json:"images"`
}

// WireResponse is the reply of the generation service.
type WireResponse struct {
	Images []WireImage `json:"images"`
	Text   string      `json:"text,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func (c *HTTPBackend) Invoke(ctx context.Context, req mutation.Request) (mutation.Result, error) {
	inputs, err := loadInputs(ctx, c.store, req)
	if err != nil {
		return mutation.Result{}, err
	}
	body := WireRequest{Op: string(req.Op), SectionID: req.Section.ID, Prompt: Prompt(req), Params: req.Params}
	for _, in := range inputs {
		body.Images = append(body.Images, WireImage{MIME: in.MIME, Data: in.Data})
	}
	var out WireResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/generate", body, &out); err != nil {
		return mutation.Result{}, err
	}
	if out.Error != "" {
		return mutation.Result{}, reasonf(nil, "%s", out.Error)
	}
	res := mutation.Result{Text: out.Text}
	for _, img := range out.Images {
		ref, err := c.store.Put(ctx, img.Data, img.MIME)
		if err != nil {
			return mutation.Result{}, fmt.Errorf("store generated image: %w", err)
		}
		res.Images = append(res.Images, ref)
	}
	return res, nil
}

func (c *HTTPBackend) doJSON(ctx context.Context, method, path string, in, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return reasonf(err, "The image service is unreachable.")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e WireResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return reasonf(fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status), "%s", e.Error)
		}
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(dest)
}
