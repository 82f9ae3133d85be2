/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_MutationAndBatchEvents(t *testing.T) {
	var mu sync.Mutex
	var events []map[string]any
	var crashes int32

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var m map[string]any
		if err := json.Unmarshal(b, &m); err == nil {
			mu.Lock()
			events = append(events, m)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&crashes, 1)
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}

	c.Mutation("recolor", false, 1500*time.Millisecond)
	c.Batch("recolor", 2, 1)
	c.Flush(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0]["name"] != EventMutation || events[0]["op"] != "recolor" || events[0]["ok"] != false {
		t.Fatalf("unexpected mutation event: %v", events[0])
	}
	if events[0]["ms"] != float64(1500) {
		t.Fatalf("unexpected elapsed: %v", events[0]["ms"])
	}
	if events[1]["name"] != EventBatch || events[1]["succeeded"] != float64(2) || events[1]["failed"] != float64(1) {
		t.Fatalf("unexpected batch event: %v", events[1])
	}
	if _, ok := events[1]["ts"].(string); !ok {
		t.Fatalf("missing ts field")
	}

	c.UploadCrash([]byte("STACKTRACE"))
	for i := 0; i < 100 && atomic.LoadInt32(&crashes) == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt32(&crashes) == 0 {
		t.Fatalf("expected crash upload to be sent")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DPC_TELEMETRY_OPT_IN", "yes")
	t.Setenv("DPC_TELEMETRY_URL", " http://127.0.0.1:0 ")
	t.Setenv("DPC_CRASH_UPLOAD_URL", "")
	t.Setenv("DPC_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL != "http://127.0.0.1:0" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
}

func TestClient_DisabledDropsEverything(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Mutation("pose", true, 0)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(context.Background())
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests, got %d", atomic.LoadInt32(&hits))
	}

	var nilClient *Client
	nilClient.Batch("x", 1, 0)
	nilClient.Close()
}

func TestClient_SendErrorsAreSwallowed(t *testing.T) {
	c := New(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events", CrashURL: "http://127.0.0.1:1/crash", Timeout: 50 * time.Millisecond, DebugLogging: true})
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
	time.Sleep(50 * time.Millisecond)
	c.Close()
}
