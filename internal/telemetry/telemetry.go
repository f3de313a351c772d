/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in, anonymous usage events and crash reports.
// Nothing leaves the machine unless the operator opted in and an endpoint is set.
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

	"scanmark/internal/config"
	applog "scanmark/internal/log"
	"scanmark/internal/version"
)

// Event names emitted by the document loop.
const (
	EventDocumentFinished = "document_finished"
	EventDocumentSkipped  = "document_skipped"
	EventPagesDuplicated  = "pages_duplicated"
	EventExportWritten    = "export_written"
)

// Config holds runtime settings. Besides the values in the app config,
// the environment may set
//   - SMK_CRASH_UPLOAD_URL: where crash reports are posted
//   - SMK_TELEMETRY_TIMEOUT_MS: request timeout, default 1500
//   - SMK_TELEMETRY_DEBUG: log every send attempt
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Token        string // sent as a bearer token when set
	Timeout      time.Duration
	DebugLogging bool
}

// FromConfig builds a Config from the general settings, the keyring token and
// the SMK_ variables above.
func FromConfig(g config.GeneralConfig, token string) Config {
	cfg := Config{
		OptIn:        g.TelemetryOptIn,
		EventsURL:    strings.TrimSpace(g.TelemetryURL),
		CrashURL:     strings.TrimSpace(os.Getenv("SMK_CRASH_UPLOAD_URL")),
		Token:        token,
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("SMK_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("SMK_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

type event struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client queues events and posts them from one goroutine. Events are dropped
// when the queue is full or a request fails.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan event
	once   sync.Once
	closed chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Install replaces the package-level client used by Event and UploadCrash.
func Install(cfg Config) *Client {
	c := New(cfg)
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	old.Close()
	return c
}

func current() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

// New starts a client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan event, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether the installed client sends events.
func Enabled() bool { return current().Enabled() }

// Event queues name with props. props must not carry personal data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	e := event{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if len(props) > 0 {
		e.Props = make(map[string]any, len(props))
		for k, v := range props {
			e.Props[k] = v
		}
	}
	select {
	case c.q <- e:
	default:
	}
}

// Event queues an event on the installed client.
func Event(name string, props map[string]any) { current().Event(name, props) }

// Flush waits up to 500ms for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
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

// Flush drains the installed client.
func Flush(ctx context.Context) { current().Flush(ctx) }

// Close stops the sender goroutine. Queued events are discarded.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.closed) })
}

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case e := <-c.q:
			buf, err := json.Marshal(e)
			if err != nil {
				continue
			}
			c.post(c.cfg.EventsURL, "application/json", buf, "event")
		}
	}
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("kind", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("kind", what), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a crash report in the background when opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", append([]byte(nil), report...), "crash")
}

// UploadCrash uses the installed client.
func UploadCrash(report []byte) { current().UploadCrash(report) }
