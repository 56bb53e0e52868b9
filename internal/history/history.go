/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history keeps back/forward stacks of cursor positions per traversal.
package history

import (
	"sync"
	"time"
)

// Entry is one remembered cursor position.
type Entry struct {
	Position int
	TS       time.Time
}

// Config caps how many entries are kept per traversal.
type Config struct {
	// MaxDepth drops the oldest back entries beyond this count (0 means the default).
	MaxDepth int
}

const defaultMaxDepth = 256

// Manager holds back and forward stacks keyed by traversal id.
// It is safe for concurrent use.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	back    map[string][]Entry
	forward map[string][]Entry
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}
	return &Manager{cfg: cfg, back: make(map[string][]Entry), forward: make(map[string][]Entry)}
}

// Push records the position a traversal is leaving. Any forward entries are discarded.
func (m *Manager) Push(key string, pos int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := append(m.back[key], Entry{Position: pos, TS: time.Now()})
	if extra := len(stack) - m.cfg.MaxDepth; extra > 0 {
		stack = append([]Entry{}, stack[extra:]...)
	}
	m.back[key] = stack
	m.forward[key] = nil
}

// Back pops the last left position and remembers current for Forward.
func (m *Manager) Back(key string, current int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := pop(m.back, key)
	if !ok {
		return 0, false
	}
	m.forward[key] = append(m.forward[key], Entry{Position: current, TS: time.Now()})
	return e.Position, true
}

// Forward undoes the last Back.
func (m *Manager) Forward(key string, current int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := pop(m.forward, key)
	if !ok {
		return 0, false
	}
	m.back[key] = append(m.back[key], Entry{Position: current, TS: time.Now()})
	return e.Position, true
}

// Clear forgets both stacks of a traversal.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.back, key)
	delete(m.forward, key)
}

// Depth returns the number of back and forward entries for diagnostics.
func (m *Manager) Depth(key string) (back, forward int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.back[key]), len(m.forward[key])
}

func pop(stacks map[string][]Entry, key string) (Entry, bool) {
	stack := stacks[key]
	if len(stack) == 0 {
		return Entry{}, false
	}
	e := stack[len(stack)-1]
	stacks[key] = stack[:len(stack)-1]
	return e, true
}
