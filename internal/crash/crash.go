/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a process-level panic into a crash report plus an autosave
// of the open page document.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "detailpage/internal/log"
	"detailpage/internal/telemetry"
	"detailpage/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Handler describes where crash output goes.
type Handler struct {
	// Dir receives crash reports and autosaves; empty means the OS temp dir.
	Dir string
	// Snapshot serializes the open document, or is nil when nothing is open.
	Snapshot func() ([]byte, error)
	// Telemetry uploads the report when the user opted in.
	Telemetry *telemetry.Client
}

// Recover captures a panic, logs it with stacktrace, writes a crash report,
// autosaves the document and exits with code 2.
//
// Usage: defer crash.Recover(h)
func Recover(h *Handler) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, _ := writeReport(h, r, stack)
	if h != nil && h.Snapshot != nil {
		if path, err := autosave(h); err != nil {
			l.Error("autosave failed", slog.Any("err", err))
		} else {
			l.Info("autosave written", slog.String("path", path))
		}
	}
	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func (h *Handler) dir() string {
	if h == nil || h.Dir == "" {
		return os.TempDir()
	}
	_ = os.MkdirAll(h.Dir, 0o755)
	return h.Dir
}

func stamp() string { return time.Now().Format("20060102-150405") }

func autosave(h *Handler) (string, error) {
	data, err := h.Snapshot()
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	path := filepath.Join(h.dir(), fmt.Sprintf("autosave-%s.json", stamp()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, err
	}
	return path, nil
}

func writeReport(h *Handler, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(h.dir(), fmt.Sprintf("crash-%s.log", stamp()))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Detail Page Composer Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	if h != nil {
		h.Telemetry.UploadCrash(buf.Bytes())
	}
	return path, nil
}
