/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package generate provides the generative capability adapters used by the
// mutation orchestrator: Gemini image generation and a remote HTTP backend.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"detailpage/internal/assets"
	"detailpage/internal/config"
	"detailpage/internal/domain"
	"detailpage/internal/mutation"
)

// Error is a capability failure with a user-facing reason.
type Error struct {
	reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.reason + ": " + e.Err.Error()
	}
	return e.reason
}

func (e *Error) Unwrap() error  { return e.Err }
func (e *Error) Reason() string { return e.reason }

func reasonf(err error, format string, args ...any) *Error {
	return &Error{reason: fmt.Sprintf(format, args...), Err: err}
}

// ErrNotConfigured is returned by the placeholder capability.
var ErrNotConfigured = errors.New("no generator configured")

// Unavailable rejects every request. It is used when no provider is configured.
type Unavailable struct{}

func (Unavailable) Invoke(context.Context, mutation.Request) (mutation.Result, error) {
	return mutation.Result{}, reasonf(ErrNotConfigured, "Image generation is not configured. Set generator.provider and an API key.")
}

// New builds the capability selected by cfg.Provider.
func New(ctx context.Context, cfg config.GeneratorConfig, apiKey string, store assets.Store) (mutation.Capability, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini: api key missing (set %s or store it in the keyring)", config.EnvAPIKey)
		}
		return NewGemini(ctx, apiKey, cfg.Model, store, GeminiOptions{Timeout: cfg.Timeout()})
	case "http":
		return NewHTTPBackend(cfg.BaseURL, apiKey, store, cfg.Timeout()), nil
	case "", "none":
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}

// input is one image sent to a provider.
type input struct {
	Data []byte
	MIME string
}

// loadInputs resolves the source and extra images of req.
func loadInputs(ctx context.Context, store assets.Store, req mutation.Request) ([]input, error) {
	refs := make([]domain.ImageRef, 0, 1+len(req.Extra))
	src := req.Source
	if src == "" {
		src, _ = req.Section.Content.ImageRef()
	}
	if src != "" {
		refs = append(refs, src)
	}
	refs = append(refs, req.Extra...)
	out := make([]input, 0, len(refs))
	for _, ref := range refs {
		data, mime, err := assets.Load(ctx, store, ref)
		if err != nil {
			return nil, reasonf(err, "Could not read the input image.")
		}
		out = append(out, input{Data: data, MIME: mime})
	}
	return out, nil
}
