/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events: mutation outcomes and
// batch tallies. It never carries image data, prompts or section contents.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "detailpage/internal/log"
	"detailpage/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt-in and disabled by default.
//
// Environment variables (read by FromEnv):
// - DPC_TELEMETRY_OPT_IN: "1", "true", "yes" to enable events
// - DPC_TELEMETRY_URL: URL to POST JSON events to
// - DPC_CRASH_UPLOAD_URL: URL to POST crash reports to
// - DPC_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
// - DPC_TELEMETRY_DEBUG: if set, logs send attempts
//
// Without URLs events are dropped even when opted in.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("DPC_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("DPC_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("DPC_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("DPC_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("DPC_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Event names.
const (
	EventMutation = "mutation"
	EventBatch    = "batch"
	EventStarted  = "started"
)

// Client is a minimal async sender; it drops events silently on errors.
// The queue is bounded, so callers never block.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan map[string]any
	once   sync.Once
	closed chan struct{}
	wg     sync.WaitGroup
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

// Enabled reports whether events are opted in and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a small JSON event if enabled. Props must not contain personal data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	select {
	case c.q <- payload:
	default:
		// queue full
	}
}

// Mutation records the outcome of one generative operation.
func (c *Client) Mutation(op string, ok bool, elapsed time.Duration) {
	c.Event(EventMutation, map[string]any{"op": op, "ok": ok, "ms": elapsed.Milliseconds()})
}

// Batch records a fan-out tally.
func (c *Client) Batch(op string, succeeded, failed int) {
	c.Event(EventBatch, map[string]any{"op": op, "succeeded": succeeded, "failed": failed})
}

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for len(c.q) > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the sender. Queued events that were not sent are dropped.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.closed) })
	c.wg.Wait()
}

func (c *Client) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", mustJSON(item), "telemetry event")
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug(what+" send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug(what + " sent")
	}
}

// UploadCrash posts a serialized crash report to the crash URL if opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", append([]byte(nil), report...), "crash report")
}
