/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestFromEnvAndGetenv(t *testing.T) {
	t.Setenv("DPC_LOG_LEVEL", "warn")
	t.Setenv("DPC_LOG_FORMAT", "json")
	t.Setenv("DPC_LOG_SOURCE", "true")
	t.Setenv("DPC_LOG_FILE", "")
	t.Setenv("DPC_LOG_FILE_MAX_MB", "25")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" || opts.FileMaxMB != 25 {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}

	if err := os.Unsetenv("SOME_UNSET_VAR"); err != nil {
		t.Fatalf("Unsetenv error: %v", err)
	}
	if v := getenv("SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestConsoleHandler_Behavior(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, slog.LevelWarn, false)
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "editor"), slog.String("k", "v")})
	h2 = h2.WithGroup("grp")

	r := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Int("n", 42), slog.Float64("scale", 1.5), slog.Bool("ok", true))
	if err := h2.Handle(ctx, r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "ERR [editor] boom") || !strings.Contains(out, "k=v") {
		t.Fatalf("output missing expected content: %q", out)
	}
	if !strings.Contains(out, "grp.n=42") {
		t.Fatalf("grouped attr missing or malformed: %q", out)
	}
	if !strings.Contains(out, "grp.scale=1.5") || !strings.Contains(out, "grp.ok=true") {
		t.Fatalf("expected formatted values: %q", out)
	}
}

func TestConsoleHandler_SourceWhenAvailable(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, slog.LevelDebug, true)
	var pcs [1]uintptr
	runtime.Callers(1, pcs[:])
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "resized", pcs[0])
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "resized") || !strings.HasSuffix(out, "\n") {
		t.Fatalf("unexpected line: %q", out)
	}
	_, hasSource := any(r).(interface{ Source() *slog.Source })
	if hasSource && !strings.Contains(out, "src=logger_more_test.go:") {
		t.Fatalf("source missing: %q", out)
	}
	if !hasSource && strings.Contains(out, "src=") {
		t.Fatalf("unexpected source: %q", out)
	}
}

func TestConsoleHandler_SectionPrefixAndErrors(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newConsoleHandler(&buf, slog.LevelDebug, false))
	WithSection(l.With(slog.String("component", "mutation")), "s-3").
		Warn("recolor failed", slog.Any("err", errors.New("upstream said no")), slog.String("api_key", "sk-secret"))

	out := buf.String()
	if !strings.Contains(out, "WRN [mutation s-3] recolor failed") {
		t.Fatalf("prefix missing: %q", out)
	}
	if !strings.Contains(out, `err="upstream said no"`) {
		t.Fatalf("error not quoted: %q", out)
	}
	if strings.Contains(out, "sk-secret") || !strings.Contains(out, "api_key=***") {
		t.Fatalf("secret leaked: %q", out)
	}
}

func TestJSONSinkRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "json", Console: &buf})
	t.Cleanup(func() { Init(Options{Console: &bytes.Buffer{}}) })
	L().Info("generator ready", slog.String("api_key", "sk-secret"))
	if strings.Contains(buf.String(), "sk-secret") {
		t.Fatalf("secret leaked: %q", buf.String())
	}
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := multiHandler(
		newConsoleHandler(&a, slog.LevelInfo, false),
		newConsoleHandler(&b, slog.LevelError, false),
	)
	l := slog.New(h)
	l.Info("only-first")
	l.Error("both")
	if !strings.Contains(a.String(), "only-first") || !strings.Contains(a.String(), "both") {
		t.Fatalf("first handler missed records: %q", a.String())
	}
	if strings.Contains(b.String(), "only-first") || !strings.Contains(b.String(), "both") {
		t.Fatalf("second handler level filtering broken: %q", b.String())
	}
}
