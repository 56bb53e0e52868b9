/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a crash report file and a non-zero exit.
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

	applog "yamldialogue/internal/log"
	"yamldialogue/internal/version"
)

// exitFn is replaced in tests so Recover does not terminate the process.
var exitFn = os.Exit

// State describes what the CLI was doing; the caller keeps it current while a dialogue is played.
type State struct {
	Dir      string // report directory, os.TempDir() when empty
	Document string
	Session  string
	Position int
}

// Recover captures a panic, logs it with the stack, writes a crash report and exits with code 2.
//
// Usage: defer crash.Recover(st)
func Recover(st *State) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(st, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func writeReport(st *State, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if st != nil && st.Dir != "" {
		dir = st.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("dialogue-crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Dialogue Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if st != nil {
		if st.Document != "" {
			_, _ = fmt.Fprintf(&buf, "Document: %s\n", st.Document)
			_, _ = fmt.Fprintf(&buf, "Position: %d\n", st.Position)
		}
		if st.Session != "" {
			_, _ = fmt.Fprintf(&buf, "Session: %s\n", st.Session)
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	return path, nil
}
