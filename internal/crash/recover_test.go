/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestRecover_PanickingGoroutine ensures Recover writes a report and an autosave
// and calls the injected exit function instead of terminating the test process.
func TestRecover_PanickingGoroutine(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	h := &Handler{Dir: dir, Snapshot: func() ([]byte, error) { return []byte(`{"sections":[]}`), nil }}

	func() {
		defer Recover(h)
		panic("boom")
	}()

	var report, save string
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			report = filepath.Join(dir, f.Name())
		case strings.HasPrefix(f.Name(), "autosave-") && strings.HasSuffix(f.Name(), ".json"):
			save = filepath.Join(dir, f.Name())
		}
	}
	if report == "" || save == "" {
		t.Fatalf("expected crash report and autosave, got %v", files)
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "Panic: boom") {
		t.Fatalf("report does not contain panic: %s", string(b))
	}
	if b, _ := os.ReadFile(save); string(b) != `{"sections":[]}` {
		t.Fatalf("unexpected autosave: %s", b)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestRecover_NoPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() { defer Recover(nil) }()
	if called {
		t.Fatalf("exit must not be called without a panic")
	}
}
