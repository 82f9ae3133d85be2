/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log provides centralized slog-based logging for the composer.
// It wraps the standard slog with a small configuration surface and a
// compact console handler; records carry component/op/section attributes.
package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"detailpage/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization.
// Values can be provided directly or via environment variables:
//   - DPC_LOG_LEVEL=debug|info|warn|error
//   - DPC_LOG_FORMAT=console|json
//   - DPC_LOG_FILE=<path> (enables file logging with rotation)
//   - DPC_LOG_FILE_MAX_MB=<n> (rotation size, default 10)
//   - DPC_LOG_SOURCE=true|false (include source)
//
// Defaults: INFO level, console format to stderr, no source.
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string    // optional path for file logging (rotated)
	FileMaxMB int       // rotation size; 0 means 10 MB
	Console   io.Writer // console destination; nil means os.Stderr
}

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   *slog.Logger
)

// L returns the default application logger, initializing from env if needed.
func L() *slog.Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	defaultLoggerMu.RLock()
	l = defaultLogger
	defaultLoggerMu.RUnlock()
	return l
}

// Init configures the global logger and sets slog.Default as well.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	if opts.FileMaxMB <= 0 {
		opts.FileMaxMB = 10
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	out := opts.Console
	if out == nil {
		out = os.Stderr
	}

	jsonOpts := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource, ReplaceAttr: redact}
	var handlers []slog.Handler
	if format == "json" {
		handlers = append(handlers, slog.NewJSONHandler(out, jsonOpts))
	} else {
		handlers = append(handlers, newConsoleHandler(out, lvl, opts.AddSource))
	}

	// Optional file handler with rotation
	if strings.TrimSpace(opts.File) != "" {
		w := &lj.Logger{Filename: opts.File, MaxSize: opts.FileMaxMB, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, slog.NewJSONHandler(w, jsonOpts))
	}

	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = multiHandler(handlers...)
	}

	logger := slog.New(h).With(
		slog.String("app", "detailpage"),
		slog.String("ver", version.Version),
		slog.Time("ts_init", time.Now()),
	)

	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
	slog.SetDefault(logger)
}

// FromEnv builds Options from environment variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("DPC_LOG_LEVEL", "info"),
		Format:    getenv("DPC_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("DPC_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("DPC_LOG_FILE"),
		FileMaxMB: atoi(os.Getenv("DPC_LOG_FILE_MAX_MB")),
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// WithSection annotates the logger with the section a record is about.
func WithSection(l *slog.Logger, id string) *slog.Logger { return l.With(slog.String("section", id)) }

// Discard returns a logger that drops everything; handy for tests and headless tools.
func Discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func parseLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// multiHandler fans out log records to multiple handlers.
func multiHandler(handlers ...slog.Handler) slog.Handler { return fanout(handlers) }

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// secretKeys are attribute keys whose values never reach a log sink.
var secretKeys = map[string]bool{"api_key": true, "apikey": true, "authorization": true, "token": true}

// redact is a slog ReplaceAttr hook that masks secretKeys.
func redact(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] && a.Value.String() != "" {
		return slog.String(a.Key, "***")
	}
	return a
}

// consoleHandler prints one line per record:
//
//	15:04:05 INF [editor s-3] message key=val ...
//
// component and section attributes move into the bracketed prefix.
type consoleHandler struct {
	level     slog.Leveler
	addSource bool
	w         io.Writer
	mu        *sync.Mutex

	component string
	section   string
	prefix    string // group path, "a.b."
	attrs     []slog.Attr
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{level: level, addSource: addSource, w: w, mu: &sync.Mutex{}}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	comp, sec := h.component, h.section
	var rest []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		a = redact(nil, a)
		switch {
		case h.prefix == "" && a.Key == "component":
			comp = a.Value.String()
		case h.prefix == "" && a.Key == "section":
			sec = a.Value.String()
		default:
			a.Key = h.prefix + a.Key
			rest = append(rest, a)
		}
		return true
	})

	var b strings.Builder
	b.Grow(160)
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(levelString(r.Level))
	if comp != "" || sec != "" {
		b.WriteString(" [")
		b.WriteString(strings.TrimSpace(comp + " " + sec))
		b.WriteByte(']')
	}
	if r.Message != "" {
		b.WriteByte(' ')
		b.WriteString(r.Message)
	}
	for _, list := range [][]slog.Attr{h.attrs, rest} {
		for _, a := range list {
			if a.Equal(slog.Attr{}) {
				continue
			}
			b.WriteByte(' ')
			b.WriteString(a.Key)
			b.WriteByte('=')
			b.WriteString(attrValueString(a.Value))
		}
	}
	if h.addSource {
		// Record.Source exists from Go 1.25 only.
		if rw, ok := any(r).(interface{ Source() *slog.Source }); ok {
			if src := rw.Source(); src != nil && src.File != "" {
				b.WriteString(" src=")
				b.WriteString(filepath.Base(src.File))
				b.WriteByte(':')
				b.WriteString(strconv.Itoa(src.Line))
			}
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		a = redact(nil, a)
		switch {
		case h.prefix == "" && a.Key == "component":
			c.component = a.Value.String()
		case h.prefix == "" && a.Key == "section":
			c.section = a.Value.String()
		case h.prefix == "" && (a.Key == "app" || a.Key == "ver" || a.Key == "ts_init"):
			// Static process attributes only matter in JSON sinks.
		default:
			a.Key = h.prefix + a.Key
			c.attrs = append(c.attrs, a)
		}
	}
	return &c
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func levelString(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func attrValueString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return strconv.Quote(err.Error())
		}
		return v.String()
	case slog.KindGroup:
		parts := make([]string, 0, len(v.Group()))
		for _, a := range v.Group() {
			parts = append(parts, a.Key+"="+attrValueString(a.Value))
		}
		return "{" + strings.Join(parts, " ") + "}"
	default:
		return v.String()
	}
}
