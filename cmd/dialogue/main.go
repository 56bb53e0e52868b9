/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"yamldialogue/internal/config"
	"yamldialogue/internal/crash"
	"yamldialogue/internal/dialogue"
	"yamldialogue/internal/history"
	"yamldialogue/internal/loader"
	applog "yamldialogue/internal/log"
	"yamldialogue/internal/session"
	"yamldialogue/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "dialogue: YAML branching dialogue tool")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dialogue version|-v|--version        Show version")
	fmt.Fprintln(w, "  dialogue check <file>                Load and validate a dialogue document")
	fmt.Fprintln(w, "  dialogue show <file>                 Print every step")
	fmt.Fprintln(w, "  dialogue play <file> [session-id]    Walk the dialogue interactively, resuming the session if given")
	fmt.Fprintln(w, "  dialogue sessions                    List stored sessions")
	fmt.Fprintln(w, "  dialogue config [show|init]          Show effective settings or write a default config file")
}

func main() {
	cfg, cfgErr := config.Load()
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}

	st := &crash.State{}
	defer crash.Recover(st)

	os.Exit(run(context.Background(), cfg, st, os.Args[1:], os.Stdin, os.Stdout))
}

// run executes one CLI command and returns the process exit code.
func run(ctx context.Context, cfg config.AppConfig, st *crash.State, args []string, in io.Reader, out io.Writer) int {
	l := applog.WithComponent("cli")
	if len(args) == 0 {
		usage(out)
		return 2
	}
	l.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)))

	ld, err := loader.New(loader.Options{Validate: cfg.Loader.Validate, KeepFirstLabel: cfg.Loader.KeepFirstLabel})
	if err != nil {
		fmt.Fprintln(out, "Error:", err)
		return 1
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(out, version.String())
		return 0
	case "check", "show":
		if len(args) < 2 {
			fmt.Fprintf(out, "%s requires <file>\n", args[0])
			usage(out)
			return 2
		}
		d, err := ld.LoadFile(args[1])
		if err != nil {
			l.Error("load failed", slog.String("file", args[1]), slog.Any("err", err))
			fmt.Fprintln(out, "Error:", err)
			return 1
		}
		if args[0] == "check" {
			return check(out, args[1], d)
		}
		for i := 0; i < d.StepCount(); i++ {
			step, _ := d.StepAt(i)
			fmt.Fprint(out, formatStep(step))
		}
		return 0
	case "play":
		if len(args) < 2 {
			fmt.Fprintln(out, "play requires <file>")
			usage(out)
			return 2
		}
		sessionID := ""
		if len(args) > 2 {
			sessionID = args[2]
		}
		if err := play(ctx, cfg, ld, st, args[1], sessionID, in, out); err != nil {
			l.Error("play failed", slog.Any("err", err))
			fmt.Fprintln(out, "Error:", err)
			return 1
		}
		return 0
	case "sessions":
		if err := listSessions(ctx, cfg, out); err != nil {
			fmt.Fprintln(out, "Error:", err)
			return 1
		}
		return 0
	case "config":
		sub := "show"
		if len(args) > 1 {
			sub = args[1]
		}
		switch sub {
		case "show":
			showConfig(cfg, out)
			return 0
		case "init":
			if err := initConfig(out); err != nil {
				fmt.Fprintln(out, "Error:", err)
				return 1
			}
			return 0
		}
	}
	usage(out)
	return 2
}

func check(out io.Writer, path string, d *dialogue.Dialogue) int {
	s := d.Script()
	fmt.Fprintf(out, "%s: %d steps, %d labels\n", path, s.Len(), len(s.Labels()))
	unresolved := s.UnresolvedTargets()
	positions := make([]int, 0, len(unresolved))
	for p := range unresolved {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	for _, p := range positions {
		for _, target := range unresolved[p] {
			fmt.Fprintf(out, "warning: step %d: option target %q names no label\n", p, target)
		}
	}
	for i := 0; i < s.Len(); i++ {
		step, _ := s.StepAt(i)
		if !step.HasOptions() {
			continue
		}
		if step.ConfirmOption < 0 || step.ConfirmOption >= len(step.Options) {
			fmt.Fprintf(out, "warning: step %d: default_option %d is out of range\n", i, step.ConfirmOption)
		}
		if step.CancelOption < 0 || step.CancelOption >= len(step.Options) {
			fmt.Fprintf(out, "warning: step %d: cancel_option %d is out of range\n", i, step.CancelOption)
		}
	}
	if len(positions) > 0 {
		return 1
	}
	return 0
}

func play(ctx context.Context, cfg config.AppConfig, ld *loader.Loader, st *crash.State, path, sessionID string, in io.Reader, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dialogue: %w", err)
	}
	d, err := ld.Load(data)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	doc, _ := filepath.Abs(path)
	st.Document, st.Session = doc, sessionID

	p := &player{d: d, out: out, hist: history.NewManager(history.Config{}), key: sessionID}
	if sessionID != "" {
		ctx = applog.ContextWith(ctx, slog.String("session", sessionID))
		store, err := session.Open(ctx, cfg.Session)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		switch err := session.Resume(ctx, store, sessionID, data, d); {
		case err == nil:
			fmt.Fprintf(out, "resuming session %s at step %d\n", sessionID, d.Position())
		case errors.Is(err, session.ErrStale):
			fmt.Fprintf(out, "document changed since session %s was saved, starting over\n", sessionID)
		case !errors.Is(err, session.ErrNotFound):
			return err
		}
		p.moved = func(ctx context.Context) error {
			st.Position = d.Position()
			return session.Checkpoint(ctx, store, sessionID, doc, data, d)
		}
		if err := p.moved(ctx); err != nil {
			return err
		}
	} else {
		p.moved = func(context.Context) error {
			st.Position = d.Position()
			return nil
		}
	}
	st.Position = d.Position()
	applog.WithComponent("cli").InfoContext(ctx, "play", slog.String("file", doc), slog.Int("steps", d.StepCount()))
	return p.run(ctx, in)
}

// showConfig prints the effective settings, marking those taken from the environment.
func showConfig(cfg config.AppConfig, out io.Writer) {
	if path, err := config.Path(); err == nil {
		fmt.Fprintf(out, "# %s\n", path)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, s := range cfg.Settings() {
		if env, ok := config.EnvOverrideFor(s.Key); ok {
			fmt.Fprintf(tw, "%s\t%s\t(from %s)\n", s.Key, s.Value, env)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", s.Key, s.Value)
	}
	_ = tw.Flush()
}

// initConfig writes the defaults to the config path unless a file is already there.
func initConfig(out io.Writer) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(config.Defaults()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	applog.WithComponent("cli").Info("config written", slog.String("path", path))
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

func listSessions(ctx context.Context, cfg config.AppConfig, out io.Writer) error {
	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	recs, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "no sessions")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTEP\tUPDATED\tDOCUMENT")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.ID, r.Position, r.UpdatedAt.Local().Format(time.DateTime), r.Document)
	}
	return tw.Flush()
}
