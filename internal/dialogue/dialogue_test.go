/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialogue

import (
	"errors"
	"reflect"
	"testing"
)

func mustLoad(t *testing.T, steps []Step, opts ...BuildOption) *Dialogue {
	t.Helper()
	d, err := Load(steps, opts...)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return d
}

func currentPos(t *testing.T, d *Dialogue) int {
	t.Helper()
	cur, err := d.Current()
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	return cur.Position
}

func TestPositionsFollowInputOrder(t *testing.T) {
	d := mustLoad(t, []Step{{Line: "Line 1", Position: 7}, {Line: "Line 2", Position: 7}})
	if d.StepCount() != 2 {
		t.Fatalf("expected 2 steps, got %d", d.StepCount())
	}
	for i := 0; i < 2; i++ {
		st, err := d.StepAt(i)
		if err != nil {
			t.Fatalf("StepAt(%d): %v", i, err)
		}
		if st.Position != i {
			t.Fatalf("step %d has position %d", i, st.Position)
		}
	}
	st, _ := d.StepAt(1)
	if st.Line != "Line 2" {
		t.Fatalf("expected Line 2, got %q", st.Line)
	}
}

func TestJumpToLabel(t *testing.T) {
	d := mustLoad(t, []Step{{Label: "foo"}, {Line: "bar"}, {Label: "baz"}})
	d.Advance()
	if !d.JumpToLabel("foo") {
		t.Fatalf("expected foo to resolve")
	}
	if p := currentPos(t, d); p != 0 {
		t.Fatalf("expected position 0, got %d", p)
	}
	if !d.JumpToLabel("baz") || currentPos(t, d) != 2 {
		t.Fatalf("expected jump to baz at 2, got %d", d.Position())
	}
	if d.JumpToLabel("missing") {
		t.Fatalf("unknown label must return false")
	}
	if d.Position() != 2 {
		t.Fatalf("failed jump moved cursor to %d", d.Position())
	}
	if d.JumpToLabel("") {
		t.Fatalf("empty label must not resolve")
	}
}

func TestAdvanceStopsAtEnd(t *testing.T) {
	d := mustLoad(t, []Step{{Line: "a"}, {Line: "b"}})
	if !d.Advance() {
		t.Fatalf("expected first advance to succeed")
	}
	if d.Advance() {
		t.Fatalf("expected advance past the end to fail")
	}
	if d.Position() != 1 {
		t.Fatalf("cursor moved on failed advance: %d", d.Position())
	}
}

func TestOptionWithoutTargetFallsThrough(t *testing.T) {
	d := mustLoad(t, []Step{{Options: []Option{{Text: "Option"}}}, {Label: "Label"}})
	ok, err := d.JumpToOption(0)
	if err != nil || !ok {
		t.Fatalf("JumpToOption: ok=%v err=%v", ok, err)
	}
	if p := currentPos(t, d); p != 1 {
		t.Fatalf("expected position 1, got %d", p)
	}
}

func TestOptionWithoutTargetMatchesAdvanceAtEnd(t *testing.T) {
	d := mustLoad(t, []Step{{Line: "intro"}, {Options: []Option{{Text: "Bye"}}}})
	d.Advance()
	ok, err := d.JumpToOption(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || d.Position() != 1 {
		t.Fatalf("expected fall-through at end to fail in place, ok=%v pos=%d", ok, d.Position())
	}
}

func TestOptionWithTargetJumps(t *testing.T) {
	d := mustLoad(t, []Step{{Label: "Label"}, {Options: []Option{{Target: "Label"}}}})
	d.Advance()
	ok, err := d.JumpToOption(0)
	if err != nil || !ok {
		t.Fatalf("JumpToOption: ok=%v err=%v", ok, err)
	}
	if p := currentPos(t, d); p != 0 {
		t.Fatalf("expected position 0, got %d", p)
	}
}

func TestOptionWithUnknownTarget(t *testing.T) {
	d := mustLoad(t, []Step{{Options: []Option{{Target: "nowhere"}}}, {Line: "next"}})
	ok, err := d.JumpToOption(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || d.Position() != 0 {
		t.Fatalf("expected unresolved target to fail in place, ok=%v pos=%d", ok, d.Position())
	}
}

func TestJumpToOptionErrors(t *testing.T) {
	d := mustLoad(t, []Step{{Line: "no options"}, {Options: []Option{{Text: "a"}, {Text: "b"}}}})

	_, err := d.JumpToOption(0)
	var noOpts *NoOptionsError
	if !errors.As(err, &noOpts) || !errors.Is(err, ErrNoOptions) {
		t.Fatalf("expected NoOptionsError, got %v", err)
	}
	if noOpts.Position != 0 {
		t.Fatalf("unexpected error position %d", noOpts.Position)
	}

	d.Advance()
	for _, idx := range []int{2, 5, -1} {
		_, err := d.JumpToOption(idx)
		var oor *IndexOutOfRangeError
		if !errors.As(err, &oor) || !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected IndexOutOfRangeError, got %v", idx, err)
		}
		if oor.Kind != "option" || oor.Len != 2 {
			t.Fatalf("index %d: unexpected error detail %+v", idx, oor)
		}
	}
	if d.Position() != 1 {
		t.Fatalf("errors must not move the cursor, pos=%d", d.Position())
	}
}

func TestConfirmAndCancelOptions(t *testing.T) {
	steps := []Step{
		{Label: "Label"},
		{ConfirmOption: 1, CancelOption: 1, Options: []Option{{Text: "Option 0"}, {Target: "Label"}}},
		{Line: "Wrong one"},
	}
	cases := []struct {
		name string
		move func(*Dialogue) (bool, error)
	}{
		{"confirm", (*Dialogue).JumpToConfirmOption},
		{"cancel", (*Dialogue).JumpToCancelOption},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := mustLoad(t, steps)
			d.Advance()
			ok, err := tc.move(d)
			if err != nil || !ok {
				t.Fatalf("ok=%v err=%v", ok, err)
			}
			cur, _ := d.Current()
			first, _ := d.StepAt(0)
			if !reflect.DeepEqual(cur, first) {
				t.Fatalf("expected the Label step, got %+v", cur)
			}
		})
	}
}

func TestUnsetConfirmUsesFirstOption(t *testing.T) {
	d := mustLoad(t, []Step{{Options: []Option{{Text: "continue"}, {Target: "end"}}}, {Line: "middle"}, {Label: "end"}})
	ok, err := d.JumpToConfirmOption()
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if d.Position() != 1 {
		t.Fatalf("expected fall-through to 1, got %d", d.Position())
	}
}

func TestResetReturnsToFirstStep(t *testing.T) {
	d := mustLoad(t, []Step{{Line: "Line 1"}, {Line: "Line 2"}, {Label: "x"}})
	d.Advance()
	cur, _ := d.Current()
	if cur.Line != "Line 2" {
		t.Fatalf("expected Line 2, got %q", cur.Line)
	}
	d.JumpToLabel("x")
	d.Reset()
	cur, _ = d.Current()
	first, _ := d.StepAt(0)
	if d.Position() != 0 || !reflect.DeepEqual(cur, first) {
		t.Fatalf("reset did not return to first step: %+v", cur)
	}
}

func TestDuplicateLabelFails(t *testing.T) {
	_, err := Load([]Step{{Label: "a"}, {Line: "x"}, {Label: "a"}})
	var dup *DuplicateLabelError
	if !errors.As(err, &dup) || !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("expected DuplicateLabelError, got %v", err)
	}
	if dup.Label != "a" || dup.First != 0 || dup.Second != 2 {
		t.Fatalf("unexpected error detail %+v", dup)
	}
}

func TestKeepFirstLabel(t *testing.T) {
	d := mustLoad(t, []Step{{Label: "a"}, {Label: "a"}}, WithKeepFirstLabel())
	d.Advance()
	if !d.JumpToLabel("a") || d.Position() != 0 {
		t.Fatalf("expected first occurrence to win, pos=%d", d.Position())
	}
}

func TestEmptyLabelsAreNotIndexed(t *testing.T) {
	d := mustLoad(t, []Step{{}, {}, {}})
	if got := d.Script().Labels(); len(got) != 0 {
		t.Fatalf("expected no labels, got %v", got)
	}
}

func TestEmptyDialogue(t *testing.T) {
	d := mustLoad(t, nil)
	if _, err := d.Current(); !errors.Is(err, ErrEmptyDialogue) {
		t.Fatalf("expected ErrEmptyDialogue, got %v", err)
	}
	if d.Advance() {
		t.Fatalf("advance on empty dialogue must fail")
	}
	if _, err := d.JumpToOption(0); !errors.Is(err, ErrEmptyDialogue) {
		t.Fatalf("expected ErrEmptyDialogue, got %v", err)
	}
	if _, err := d.JumpToConfirmOption(); !errors.Is(err, ErrEmptyDialogue) {
		t.Fatalf("expected ErrEmptyDialogue, got %v", err)
	}
	d.Reset()
	if d.Position() != 0 {
		t.Fatalf("unexpected position %d", d.Position())
	}
	if _, err := d.StepAt(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestStepAtBounds(t *testing.T) {
	d := mustLoad(t, []Step{{Line: "only"}})
	for _, idx := range []int{-1, 1, 100} {
		if _, err := d.StepAt(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("StepAt(%d): expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
}

func TestSeek(t *testing.T) {
	d := mustLoad(t, []Step{{}, {}, {}})
	if err := d.Seek(2); err != nil || d.Position() != 2 {
		t.Fatalf("Seek(2): err=%v pos=%d", err, d.Position())
	}
	if err := d.Seek(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if d.Position() != 2 {
		t.Fatalf("failed seek moved cursor to %d", d.Position())
	}
}

func TestCursorsShareScriptIndependently(t *testing.T) {
	a := mustLoad(t, []Step{{Line: "one"}, {Line: "two"}, {Label: "end"}})
	b := NewDialogue(a.Script())
	a.JumpToLabel("end")
	if b.Position() != 0 {
		t.Fatalf("second cursor moved with first: %d", b.Position())
	}
	b.Advance()
	if a.Position() != 2 || b.Position() != 1 {
		t.Fatalf("unexpected positions a=%d b=%d", a.Position(), b.Position())
	}
}

func TestReturnedStepsAreCopies(t *testing.T) {
	d := mustLoad(t, []Step{{Actions: []string{"wave"}, Options: []Option{{Text: "hi"}}}})
	st, _ := d.Current()
	st.Actions[0] = "mutated"
	st.Options[0].Text = "mutated"
	again, _ := d.StepAt(0)
	if again.Actions[0] != "wave" || again.Options[0].Text != "hi" {
		t.Fatalf("script data was mutated through a returned step: %+v", again)
	}
}

func TestUnresolvedTargets(t *testing.T) {
	d := mustLoad(t, []Step{
		{Label: "start", Options: []Option{{Target: "start"}, {Target: "ghost"}}},
		{Options: []Option{{Text: "plain"}, {Target: "void"}}},
	})
	got := d.Script().UnresolvedTargets()
	want := map[int][]string{0: {"ghost"}, 1: {"void"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected unresolved targets: %v", got)
	}
}
