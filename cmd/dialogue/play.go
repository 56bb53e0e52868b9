/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"yamldialogue/internal/dialogue"
	"yamldialogue/internal/history"
)

// player drives a dialogue from line-based input:
//
//	<enter>  continue (fall through to the next step)
//	<n>      pick option n (1-based, as printed)
//	y / n    pick the confirm / cancel option
//	:label   jump to a label
//	r        restart from the first step
//	b / f    go back / forward through visited steps
//	q        quit
type player struct {
	d   *dialogue.Dialogue
	out io.Writer
	// moved is called after every successful cursor move.
	moved func(ctx context.Context) error
	hist  *history.Manager
	// key names this traversal in hist; the session id when there is one.
	key string
}

// errQuit ends the loop without an error exit.
var errQuit = errors.New("quit")

func (p *player) run(ctx context.Context, in io.Reader) error {
	if p.d.StepCount() == 0 {
		fmt.Fprintln(p.out, "(empty dialogue)")
		return nil
	}
	if p.hist == nil {
		p.hist = history.NewManager(history.Config{})
	}
	p.render()
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(p.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(p.out)
			return sc.Err()
		}
		done, err := p.handle(ctx, strings.TrimSpace(sc.Text()))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
		if done {
			fmt.Fprintln(p.out, "-- end --")
			return nil
		}
	}
}

// handle applies one command. It reports done when the reader continues past the last step.
func (p *player) handle(ctx context.Context, cmd string) (bool, error) {
	cur, err := p.d.Current()
	if err != nil {
		return false, err
	}

	var ok bool
	choice := -1
	switch {
	case cmd == "":
		if cur.HasOptions() {
			fmt.Fprintln(p.out, "choose an option")
			return false, nil
		}
		if !p.d.Advance() {
			return true, nil
		}
		ok = true
	case cmd == "q":
		return false, errQuit
	case cmd == "r":
		p.d.Reset()
		ok = true
	case cmd == "b" || cmd == "f":
		return false, p.revisit(ctx, cmd == "b")
	case cmd == "y":
		choice = cur.ConfirmOption
		ok, err = p.d.JumpToConfirmOption()
	case cmd == "n":
		choice = cur.CancelOption
		ok, err = p.d.JumpToCancelOption()
	case strings.HasPrefix(cmd, ":"):
		label := strings.TrimSpace(cmd[1:])
		if ok = p.d.JumpToLabel(label); !ok {
			fmt.Fprintf(p.out, "no label %q\n", label)
			return false, nil
		}
	default:
		n, convErr := strconv.Atoi(cmd)
		if convErr != nil {
			fmt.Fprintf(p.out, "unknown command %q\n", cmd)
			return false, nil
		}
		choice = n - 1
		ok, err = p.d.JumpToOption(choice)
	}
	if err != nil {
		// bad option choices are the reader's mistake, not a failure of the run
		fmt.Fprintln(p.out, err)
		return false, nil
	}
	if !ok {
		// choice was validated by the jump
		if !cur.Options[choice].HasTarget() {
			return true, nil
		}
		fmt.Fprintf(p.out, "no label %q\n", cur.Options[choice].Target)
		return false, nil
	}
	p.hist.Push(p.key, cur.Position)
	return false, p.settle(ctx)
}

// revisit moves to the previous (back) or next (forward) visited step.
func (p *player) revisit(ctx context.Context, back bool) error {
	step := p.hist.Forward
	if back {
		step = p.hist.Back
	}
	pos, ok := step(p.key, p.d.Position())
	if !ok {
		fmt.Fprintln(p.out, "no step to return to")
		return nil
	}
	if err := p.d.Seek(pos); err != nil {
		return err
	}
	return p.settle(ctx)
}

func (p *player) settle(ctx context.Context) error {
	if p.moved != nil {
		if err := p.moved(ctx); err != nil {
			return err
		}
	}
	p.render()
	return nil
}

func (p *player) render() {
	st, err := p.d.Current()
	if err != nil {
		return
	}
	fmt.Fprint(p.out, formatStep(st))
}

func formatStep(st dialogue.Step) string {
	var b strings.Builder
	if st.Label != "" {
		fmt.Fprintf(&b, "[%d #%s]\n", st.Position, st.Label)
	} else {
		fmt.Fprintf(&b, "[%d]\n", st.Position)
	}
	switch {
	case st.Actor != "" && st.Line != "":
		fmt.Fprintf(&b, "%s: %s\n", st.Actor, st.Line)
	case st.Line != "":
		fmt.Fprintln(&b, st.Line)
	case st.Actor != "":
		fmt.Fprintf(&b, "%s:\n", st.Actor)
	}
	if len(st.Actions) > 0 {
		fmt.Fprintf(&b, "  (%s)\n", strings.Join(st.Actions, ", "))
	}
	for i, o := range st.Options {
		marks := ""
		if i == st.ConfirmOption {
			marks += " [y]"
		}
		if i == st.CancelOption {
			marks += " [n]"
		}
		target := ""
		if o.HasTarget() {
			target = " -> " + o.Target
		}
		fmt.Fprintf(&b, "  %d) %s%s%s\n", i+1, o.Text, target, marks)
	}
	return b.String()
}
