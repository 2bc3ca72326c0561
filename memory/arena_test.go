// SPDX-License-Identifier: Apache-2.0

package memory

import "testing"

func TestArenaAllocWithinChunk(t *testing.T) {
	a := NewArena()
	b1 := a.Alloc(10)
	b2 := a.Alloc(20)
	if len(b1) != 10 || len(b2) != 20 {
		t.Fatalf("unexpected lengths %d %d", len(b1), len(b2))
	}
	if a.UsedBytes() != 30 {
		t.Fatalf("UsedBytes() = %d, want 30", a.UsedBytes())
	}
}

func TestArenaGrowsAcrossChunks(t *testing.T) {
	a := NewArena()
	_ = a.Alloc(minChunkSize - 1)
	_ = a.Alloc(10) // must spill into a new chunk
	if len(a.chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(a.chunks))
	}
}

func TestArenaResetZeroesUsedBytes(t *testing.T) {
	a := NewArena()
	a.Alloc(100)
	if a.UsedBytes() == 0 {
		t.Fatal("expected nonzero used bytes before reset")
	}
	a.Reset()
	if a.UsedBytes() != 0 {
		t.Fatalf("UsedBytes() after Reset = %d, want 0", a.UsedBytes())
	}
}

func TestArenaRetainsChunksAfterReset(t *testing.T) {
	a := NewArena()
	a.Alloc(500)
	retainedBefore := a.RetainedBytes()
	a.Reset()
	if a.RetainedBytes() != retainedBefore {
		t.Fatalf("expected chunks retained across reset: before=%d after=%d", retainedBefore, a.RetainedBytes())
	}
	// Allocating again should reuse the retained chunk, not add a new one.
	a.Alloc(10)
	if a.RetainedBytes() != retainedBefore {
		t.Fatalf("expected warm-path alloc to reuse retained capacity: before=%d after=%d", retainedBefore, a.RetainedBytes())
	}
}

func TestArenaCapsRetentionAfterLargeInvocation(t *testing.T) {
	a := NewArena()
	big := 5 * minRetainCap
	a.Alloc(big)
	a.Reset()

	want := 2 * big // 2x the high-water-mark, since that exceeds the 1 MiB floor
	if got := a.RetainedBytes(); got > want {
		t.Fatalf("RetainedBytes() = %d, want <= %d", got, want)
	}
}

func TestArenaAllocZeroReturnsNil(t *testing.T) {
	a := NewArena()
	if b := a.Alloc(0); b != nil {
		t.Fatalf("Alloc(0) = %v, want nil", b)
	}
}
