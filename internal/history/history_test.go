/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package history

import "testing"

func TestBackAndForward(t *testing.T) {
	m := NewManager(Config{})
	m.Push("s", 0)
	m.Push("s", 3)
	if b, f := m.Depth("s"); b != 2 || f != 0 {
		t.Fatalf("expected depth 2/0, got %d/%d", b, f)
	}
	pos, ok := m.Back("s", 5)
	if !ok || pos != 3 {
		t.Fatalf("back expected 3, got ok=%v pos=%d", ok, pos)
	}
	pos, ok = m.Forward("s", 3)
	if !ok || pos != 5 {
		t.Fatalf("forward expected 5, got ok=%v pos=%d", ok, pos)
	}
	if _, ok := m.Forward("s", 5); ok {
		t.Fatalf("forward stack should be empty")
	}
}

func TestPushDropsForward(t *testing.T) {
	m := NewManager(Config{})
	m.Push("s", 0)
	m.Back("s", 1)
	m.Push("s", 0)
	if _, f := m.Depth("s"); f != 0 {
		t.Fatalf("expected forward cleared, got %d", f)
	}
}

func TestEmptyAndSeparateKeys(t *testing.T) {
	m := NewManager(Config{})
	if _, ok := m.Back("a", 0); ok {
		t.Fatalf("back on empty history should fail")
	}
	m.Push("a", 1)
	if _, ok := m.Back("b", 0); ok {
		t.Fatalf("keys must not share stacks")
	}
	m.Clear("a")
	if b, _ := m.Depth("a"); b != 0 {
		t.Fatalf("expected cleared history, got %d", b)
	}
}

func TestMaxDepthDropsOldest(t *testing.T) {
	m := NewManager(Config{MaxDepth: 2})
	for i := 0; i < 5; i++ {
		m.Push("s", i)
	}
	if b, _ := m.Depth("s"); b != 2 {
		t.Fatalf("expected cap of 2, got %d", b)
	}
	m.Back("s", 5)
	pos, ok := m.Back("s", 4)
	if !ok || pos != 3 {
		t.Fatalf("expected oldest kept entry 3, got ok=%v pos=%d", ok, pos)
	}
}
