// SPDX-License-Identifier: Apache-2.0

package memory

import "testing"

func TestGeneralAllocatorAlloc(t *testing.T) {
	g := NewGeneralAllocator()
	b := g.Alloc(16)
	if len(b) != 16 {
		t.Fatalf("len = %d, want 16", len(b))
	}
	for _, v := range b {
		if v != 0 {
			t.Fatal("expected zeroed allocation")
		}
	}
}

func TestGeneralAllocatorAllocStringIndependentBacking(t *testing.T) {
	g := NewGeneralAllocator()
	src := []byte("hello")
	s := g.AllocString(string(src))
	src[0] = 'X'
	if s != "hello" {
		t.Fatalf("AllocString result mutated by source buffer: %q", s)
	}
}
