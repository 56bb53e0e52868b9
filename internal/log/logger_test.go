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
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(b))
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
	return m
}

func TestJSONLoggerCarriesStaticAndContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Format: "json"}, &buf)
	l = WithOperation(l.With(slog.String("component", "loader")), "parse")
	ctx := ContextWith(context.Background(), slog.String("session", "s-1"))
	l.InfoContext(ctx, "parsed", slog.Int("steps", 3))

	m := lastJSONLine(t, buf.Bytes())
	if m["app"] != "dialogue" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "loader" || m["op"] != "parse" {
		t.Fatalf("component/op mismatch: %v", m)
	}
	if m["session"] != "s-1" {
		t.Fatalf("context attr missing: %v", m)
	}
	if m["steps"] != float64(3) || m["msg"] != "parsed" {
		t.Fatalf("record mismatch: %v", m)
	}
}

func TestFileOutputIsRotatedJSON(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "dialogue.log")
	var console bytes.Buffer
	l := New(Options{Level: "info", Format: "console", File: fpath}, &console)
	l.Info("to both", slog.String("k", "v"))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSONLine(t, b)
	if m["msg"] != "to both" || m["k"] != "v" {
		t.Fatalf("unexpected file record: %v", m)
	}
	if !strings.Contains(console.String(), "INF to both") {
		t.Fatalf("console output missing record: %q", console.String())
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DLG_LOG_LEVEL", "warn")
	t.Setenv("DLG_LOG_FORMAT", "json")
	t.Setenv("DLG_LOG_SOURCE", "true")
	t.Setenv("DLG_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("DLG_SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn}, w: &buf}

	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h = h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("grp")
	r := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true), slog.String("line", "two words"))
	if err := h.Handle(ctx, r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ERR boom", "k=v", "grp.n=42", "grp.pi=3.14", "grp.ok=true", `grp.line="two words"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
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
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
