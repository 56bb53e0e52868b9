/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dialogue

import (
	"log/slog"
	"slices"
	"sort"

	applog "yamldialogue/internal/log"
)

// Script is the immutable, label-indexed step sequence of a dialogue.
// It is never modified after NewScript returns and may be shared between goroutines.
type Script struct {
	steps  []Step
	labels map[string]int
}

type buildConfig struct {
	keepFirstLabel bool
	logger         *slog.Logger
}

// BuildOption tunes script construction.
type BuildOption func(*buildConfig)

// WithKeepFirstLabel accepts documents with repeated labels, keeping the first occurrence
// and logging a warning for every ignored one.
func WithKeepFirstLabel() BuildOption {
	return func(c *buildConfig) { c.keepFirstLabel = true }
}

// WithLogger sets the logger used for construction warnings.
func WithLogger(l *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewScript copies steps, assigns positions in order and builds the label index.
// A repeated non-empty label fails with *DuplicateLabelError unless WithKeepFirstLabel is given.
func NewScript(steps []Step, opts ...BuildOption) (*Script, error) {
	cfg := buildConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	s := &Script{
		steps:  make([]Step, len(steps)),
		labels: make(map[string]int),
	}
	for i, st := range steps {
		st.Position = i
		st.Actions = slices.Clone(st.Actions)
		st.Options = slices.Clone(st.Options)
		s.steps[i] = st

		if st.Label == "" {
			continue
		}
		if first, ok := s.labels[st.Label]; ok {
			if !cfg.keepFirstLabel {
				return nil, &DuplicateLabelError{Label: st.Label, First: first, Second: i}
			}
			l := cfg.logger
			if l == nil {
				l = applog.WithComponent("dialogue")
			}
			l.Warn("repeated label ignored, keeping first",
				slog.String("label", st.Label), slog.Int("first", first), slog.Int("ignored", i))
			continue
		}
		s.labels[st.Label] = i
	}
	return s, nil
}

// Len returns the number of steps.
func (s *Script) Len() int { return len(s.steps) }

// StepAt returns the step at pos without touching any cursor.
func (s *Script) StepAt(pos int) (Step, error) {
	if pos < 0 || pos >= len(s.steps) {
		return Step{}, &IndexOutOfRangeError{Kind: "step", Index: pos, Len: len(s.steps)}
	}
	return cloneStep(s.steps[pos]), nil
}

// LabelPosition resolves a label to its step position.
func (s *Script) LabelPosition(label string) (int, bool) {
	pos, ok := s.labels[label]
	return pos, ok
}

// Labels returns all indexed labels, sorted.
func (s *Script) Labels() []string {
	out := make([]string, 0, len(s.labels))
	for k := range s.labels {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// UnresolvedTargets lists option targets that name no label, keyed by step position.
func (s *Script) UnresolvedTargets() map[int][]string {
	var out map[int][]string
	for _, st := range s.steps {
		for _, o := range st.Options {
			if !o.HasTarget() {
				continue
			}
			if _, ok := s.labels[o.Target]; ok {
				continue
			}
			if out == nil {
				out = make(map[int][]string)
			}
			out[st.Position] = append(out[st.Position], o.Target)
		}
	}
	return out
}

func cloneStep(st Step) Step {
	st.Actions = slices.Clone(st.Actions)
	st.Options = slices.Clone(st.Options)
	return st
}
