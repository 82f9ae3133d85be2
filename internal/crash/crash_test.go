/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Detail Page Composer Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportUsesHandlerDir(t *testing.T) {
	dir := t.TempDir()
	path, err := writeReport(&Handler{Dir: dir}, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Fatalf("expected crash report under %s, got %s", dir, path)
	}
}

func TestAutosaveReportsSnapshotError(t *testing.T) {
	h := &Handler{Dir: t.TempDir(), Snapshot: func() ([]byte, error) { return nil, errors.New("locked") }}
	if _, err := autosave(h); err == nil {
		t.Fatalf("expected snapshot error")
	}
}
