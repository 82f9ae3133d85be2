/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// TestInitJSONConsole verifies that JSON console output carries the static and
// contextual attributes every component relies on.
func TestInitJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Console: &buf})
	t.Cleanup(func() { Init(Options{Console: &bytes.Buffer{}}) })

	l := WithSection(WithOperation(WithComponent("mutation"), "recolor"), "sec-1")
	l.Info("mutation finished", slog.Bool("ok", true))

	scanner := bufio.NewScanner(strings.NewReader(buf.String()))
	var last string
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	if m["app"] != "detailpage" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "mutation" || m["op"] != "recolor" || m["section"] != "sec-1" {
		t.Fatalf("context attrs mismatch: %v", m)
	}
	if m["msg"] != "mutation finished" || m["ok"] != true {
		t.Fatalf("record mismatch: %v", m)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in).Level(); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
