/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package dialogue holds the branching conversation model: an immutable,
// label-indexed sequence of steps (Script) and a cursor that walks it (Dialogue).
package dialogue

// Step is one turn of the conversation.
// Empty strings and nil slices mean the field was absent in the document.
type Step struct {
	Position int // zero-based document order, assigned by NewScript
	Actor    string
	Line     string
	Label    string
	Actions  []string
	Options  []Option

	// ConfirmOption and CancelOption index into Options for "yes"/"no" style choices.
	// An absent value reads as 0, same as an explicit 0.
	ConfirmOption int
	CancelOption  int
}

// HasOptions reports whether the step branches.
func (s Step) HasOptions() bool { return len(s.Options) > 0 }

// Option is one branch choice. An empty Target means "continue with the next step".
type Option struct {
	Text   string
	Target string
}

// HasTarget reports whether taking the option jumps to a label.
func (o Option) HasTarget() bool { return o.Target != "" }
