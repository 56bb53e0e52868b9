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
	"fmt"
)

var (
	// ErrDuplicateLabel matches every *DuplicateLabelError.
	ErrDuplicateLabel = errors.New("duplicate label")
	// ErrEmptyDialogue is returned when a step is requested from a dialogue without steps.
	ErrEmptyDialogue = errors.New("dialogue has no steps")
	// ErrNoOptions matches every *NoOptionsError.
	ErrNoOptions = errors.New("step has no options")
	// ErrIndexOutOfRange matches every *IndexOutOfRangeError.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// DuplicateLabelError is returned by NewScript when two steps share a non-empty label.
type DuplicateLabelError struct {
	Label  string
	First  int
	Second int
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("duplicate label %q at steps %d and %d", e.Label, e.First, e.Second)
}

func (e *DuplicateLabelError) Is(target error) bool { return target == ErrDuplicateLabel }

// NoOptionsError is returned when option navigation is attempted on a step without options.
type NoOptionsError struct {
	Position int
}

func (e *NoOptionsError) Error() string {
	return fmt.Sprintf("cannot move to option: step %d has no options", e.Position)
}

func (e *NoOptionsError) Is(target error) bool { return target == ErrNoOptions }

// IndexOutOfRangeError describes a bad step or option index.
// Kind is "step" or "option"; Len is the number of valid entries.
type IndexOutOfRangeError struct {
	Kind  string
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("invalid %s index %d: only %d available", e.Kind, e.Index, e.Len)
}

func (e *IndexOutOfRangeError) Is(target error) bool { return target == ErrIndexOutOfRange }
