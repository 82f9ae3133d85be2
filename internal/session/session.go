/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session wires configuration, the asset store, the generator and
// telemetry into an editor, and moves documents between the editor and disk.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"detailpage/internal/assets"
	"detailpage/internal/config"
	"detailpage/internal/crash"
	"detailpage/internal/editor"
	"detailpage/internal/export"
	"detailpage/internal/generate"
	applog "detailpage/internal/log"
	"detailpage/internal/mutation"
	"detailpage/internal/telemetry"
)

// Options configures Open.
type Options struct {
	Notifier editor.Notifier
	// Offline skips building the generator; generative actions then report
	// that generation is not configured.
	Offline bool
	// Config overrides config.Load when set.
	Config *config.AppConfig
	APIKey string
	// Generator overrides the configured provider.
	Generator mutation.Capability
}

// Session is one open editor with its collaborators.
type Session struct {
	Config    config.AppConfig
	Assets    assets.Store
	Editor    *editor.Editor
	Telemetry *telemetry.Client
	// Path is the document file backing the session, empty for a new page.
	Path string

	log     *slog.Logger
	closers []func() error
}

// Open builds a session from the user configuration.
func Open(ctx context.Context, opts Options) (*Session, error) {
	l := applog.WithComponent("session")
	var cfg config.AppConfig
	apiKey := opts.APIKey
	if opts.Config != nil {
		cfg = *opts.Config
	} else {
		c, key, err := config.Load()
		if err != nil {
			l.Warn("config load failed, using defaults", slog.Any("err", err))
		}
		cfg = c
		if apiKey == "" {
			apiKey = key
		}
	}
	s := &Session{Config: cfg, log: l}

	if p := strings.TrimSpace(cfg.Assets.Path); p != "" {
		db, err := assets.OpenSQLite(p)
		if err != nil {
			return nil, fmt.Errorf("open asset store: %w", err)
		}
		s.Assets = db
		s.closers = append(s.closers, db.Close)
	} else {
		s.Assets = assets.NewMemStore()
	}

	gen := opts.Generator
	if gen == nil && !opts.Offline {
		g, err := generate.New(ctx, cfg.Generator, apiKey, s.Assets)
		if err != nil {
			l.Warn("generator unavailable", slog.Any("err", err))
			g = generate.Unavailable{}
		}
		gen = g
	}

	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	s.Telemetry = telemetry.New(tcfg)
	s.closers = append(s.closers, func() error { s.Telemetry.Close(); return nil })
	s.Telemetry.Event(telemetry.EventStarted, map[string]any{"provider": cfg.Generator.Provider})

	s.Editor = editor.New(cfg, editor.Deps{
		Assets:    s.Assets,
		Generator: gen,
		Telemetry: s.Telemetry,
		Notifier:  opts.Notifier,
	})
	return s, nil
}

// Load replaces the editor page with the document at path. A .zip path is
// read as a bundle and its images installed into the asset store.
func (s *Session) Load(ctx context.Context, path string) error {
	if isBundle(path) {
		doc, err := export.ReadBundle(ctx, path, s.Assets)
		if err != nil {
			return err
		}
		if err := s.Editor.LoadDocument(doc); err != nil {
			return err
		}
		s.Path = ""
		return nil
	}
	doc, recovered, err := OpenDocument(path)
	if err != nil {
		return err
	}
	if recovered {
		s.log.Warn("document unreadable, opened latest backup", slog.String("path", path))
	}
	if err := s.Editor.LoadDocument(doc); err != nil {
		return err
	}
	s.Path = path
	return nil
}

// Save writes the page to path, or to the session path when path is empty.
func (s *Session) Save(path string) error {
	if path == "" {
		path = s.Path
	}
	if path == "" {
		return errors.New("save: no document path")
	}
	if err := SaveDocument(path, s.Editor.Document()); err != nil {
		return err
	}
	s.Path = path
	s.log.Info("document saved", slog.String("path", path))
	return nil
}

// ExportPDF renders the page to a PDF with images as shown on the canvas.
func (s *Session) ExportPDF(ctx context.Context, path string) error {
	return export.WritePDF(ctx, s.Editor.Document(), path, export.PDFOptions{
		Raster:     s.Editor.Renderer(),
		AutoHeight: s.Config.Canvas.AutoHeight,
	})
}

// ExportBundle writes the page and its images into one zip file.
func (s *Session) ExportBundle(ctx context.Context, path string) error {
	return export.WriteBundle(ctx, s.Editor.Document(), s.Assets, path)
}

// CrashHandler autosaves the page next to the document, or in the temp dir.
func (s *Session) CrashHandler() *crash.Handler {
	h := &crash.Handler{Snapshot: s.Editor.Snapshot, Telemetry: s.Telemetry}
	if s.Path != "" {
		h.Dir = filepath.Dir(s.Path)
	}
	return h
}

// Close stops background work and releases the asset store.
func (s *Session) Close() error {
	s.Editor.Close()
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isBundle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}
