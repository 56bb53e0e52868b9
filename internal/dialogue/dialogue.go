/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialogue

// Dialogue is a cursor over a Script. The cursor position is always a valid
// step index (0 for an empty script). A Dialogue must not be shared between
// goroutines; create one per traversal with NewDialogue instead.
type Dialogue struct {
	script *Script
	pos    int
}

// Load builds a Script from steps and returns a cursor positioned at the first step.
func Load(steps []Step, opts ...BuildOption) (*Dialogue, error) {
	s, err := NewScript(steps, opts...)
	if err != nil {
		return nil, err
	}
	return NewDialogue(s), nil
}

// NewDialogue returns an independent cursor over a shared script.
func NewDialogue(s *Script) *Dialogue { return &Dialogue{script: s} }

// Script returns the underlying read-only script.
func (d *Dialogue) Script() *Script { return d.script }

// Position returns the current cursor position.
func (d *Dialogue) Position() int { return d.pos }

// StepCount returns the number of steps in the dialogue.
func (d *Dialogue) StepCount() int { return d.script.Len() }

// StepAt is random access independent of the cursor.
func (d *Dialogue) StepAt(pos int) (Step, error) { return d.script.StepAt(pos) }

// Current returns the step under the cursor.
func (d *Dialogue) Current() (Step, error) {
	if d.script.Len() == 0 {
		return Step{}, ErrEmptyDialogue
	}
	return cloneStep(d.script.steps[d.pos]), nil
}

// Advance moves to the next step. It returns false and leaves the cursor
// unchanged when already on the last step.
func (d *Dialogue) Advance() bool {
	if d.pos+1 < d.script.Len() {
		d.pos++
		return true
	}
	return false
}

// JumpToLabel moves to the step carrying label. Unknown labels return false.
func (d *Dialogue) JumpToLabel(label string) bool {
	pos, ok := d.script.LabelPosition(label)
	if !ok {
		return false
	}
	d.pos = pos
	return true
}

// JumpToOption takes option i of the current step. Options without a target
// fall through like Advance; options with a target behave like JumpToLabel.
func (d *Dialogue) JumpToOption(i int) (bool, error) {
	if d.script.Len() == 0 {
		return false, ErrEmptyDialogue
	}
	cur := d.script.steps[d.pos]
	if !cur.HasOptions() {
		return false, &NoOptionsError{Position: cur.Position}
	}
	if i < 0 || i >= len(cur.Options) {
		return false, &IndexOutOfRangeError{Kind: "option", Index: i, Len: len(cur.Options)}
	}
	opt := cur.Options[i]
	if !opt.HasTarget() {
		return d.Advance(), nil
	}
	return d.JumpToLabel(opt.Target), nil
}

// JumpToConfirmOption takes the current step's confirm option.
func (d *Dialogue) JumpToConfirmOption() (bool, error) {
	if d.script.Len() == 0 {
		return false, ErrEmptyDialogue
	}
	return d.JumpToOption(d.script.steps[d.pos].ConfirmOption)
}

// JumpToCancelOption takes the current step's cancel option.
func (d *Dialogue) JumpToCancelOption() (bool, error) {
	if d.script.Len() == 0 {
		return false, ErrEmptyDialogue
	}
	return d.JumpToOption(d.script.steps[d.pos].CancelOption)
}

// Reset moves the cursor back to the first step.
func (d *Dialogue) Reset() { d.pos = 0 }

// Seek places the cursor at pos, e.g. when resuming a stored session.
func (d *Dialogue) Seek(pos int) error {
	if pos < 0 || pos >= d.script.Len() {
		return &IndexOutOfRangeError{Kind: "step", Index: pos, Len: d.script.Len()}
	}
	d.pos = pos
	return nil
}
