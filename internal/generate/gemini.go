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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"detailpage/internal/assets"
	applog "detailpage/internal/log"
	"detailpage/internal/mutation"
)

// GeminiOptions tunes the Gemini adapter.
type GeminiOptions struct {
	Timeout time.Duration
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// Gemini implements mutation.Capability with Gemini image generation.
type Gemini struct {
	client  *genai.Client
	model   string
	store   assets.Store
	timeout time.Duration
	log     *slog.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, store assets.Store, opts GeminiOptions) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, store: store, timeout: opts.Timeout, log: applog.WithComponent("generate")}, nil
}

func (g *Gemini) Invoke(ctx context.Context, req mutation.Request) (mutation.Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	inputs, err := loadInputs(ctx, g.store, req)
	if err != nil {
		return mutation.Result{}, err
	}
	parts := make([]*genai.Part, 0, len(inputs)+1)
	for _, in := range inputs {
		parts = append(parts, genai.NewPartFromBytes(in.Data, in.MIME))
	}
	parts = append(parts, genai.NewPartFromText(Prompt(req)))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}}
	if req.Op == mutation.OpAnalyze {
		cfg.ResponseModalities = []string{"TEXT"}
	}
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return mutation.Result{}, ctx.Err()
		}
		return mutation.Result{}, reasonf(err, "The image service rejected the request.")
	}
	g.log.Debug("gemini call", slog.String("op", string(req.Op)), slog.Duration("elapsed", time.Since(start)))
	return g.collect(ctx, resp)
}

// collect stores inline images of resp and joins its text.
func (g *Gemini) collect(ctx context.Context, resp *genai.GenerateContentResponse) (mutation.Result, error) {
	var res mutation.Result
	var text []string
	var finish string
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		if cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonStop {
			finish = string(cand.FinishReason)
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch {
			case part == nil:
			case part.InlineData != nil && len(part.InlineData.Data) > 0:
				ref, err := g.store.Put(ctx, part.InlineData.Data, part.InlineData.MIMEType)
				if err != nil {
					return res, fmt.Errorf("store generated image: %w", err)
				}
				res.Images = append(res.Images, ref)
			case part.Text != "":
				text = append(text, part.Text)
			}
		}
	}
	res.Text = strings.TrimSpace(strings.Join(text, "\n"))
	if len(res.Images) == 0 && res.Text == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return res, reasonf(nil, "The request was blocked (%s).", resp.PromptFeedback.BlockReason)
		}
		if finish != "" {
			return res, reasonf(nil, "Generation stopped early (%s).", finish)
		}
		return res, reasonf(nil, "The image service returned an empty answer.")
	}
	return res, nil
}
