// SPDX-License-Identifier: Apache-2.0

package memory

const (
	minChunkSize  = 4096
	minRetainCap  = 1 << 20 // 1 MiB, the floor in §4.3's retention rule.
)

// Arena is a bump/region allocator backed by a growing list of
// chunks. Allocations are valid only until the next Reset; Reset
// returns the cursor to the base of the chunk list without releasing
// the underlying chunks, keeping warm-path allocation O(1) the way
// §4.3 requires. Chunk contents are not zeroed on reuse — only the
// cursor moves — so callers must never read an Alloc'd region before
// writing it.
//
// Arena is not safe for concurrent use; the invocation loop is
// strictly single-threaded (§5) and owns exactly one Arena per
// process.
type Arena struct {
	chunks        [][]byte
	chunkIdx      int
	offset        int
	used          int
	highWaterMark int
}

// NewArena returns an empty Arena with no retained chunks.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc returns a slice of n bytes carved out of the arena's current
// chunk, growing the chunk list if needed. The returned slice is
// valid only until the next Reset.
func (a *Arena) Alloc(n int) []byte {
	if n == 0 {
		return nil
	}

	for {
		if a.chunkIdx < len(a.chunks) {
			chunk := a.chunks[a.chunkIdx]
			if a.offset+n <= len(chunk) {
				b := chunk[a.offset : a.offset+n]
				a.offset += n
				a.used += n
				return b
			}
			a.chunkIdx++
			a.offset = 0
			continue
		}

		size := n
		if size < minChunkSize {
			size = minChunkSize
		}
		a.chunks = append(a.chunks, make([]byte, size))
	}
}

// AllocString copies s into the arena and returns a string view over
// it, valid only until the next Reset.
func (a *Arena) AllocString(s string) string {
	b := a.Alloc(len(s))
	copy(b, s)
	return string(b)
}

// UsedBytes reports bytes allocated since the last Reset.
func (a *Arena) UsedBytes() int {
	return a.used
}

// RetainedBytes reports the total capacity of chunks currently held,
// independent of how much of it is in use.
func (a *Arena) RetainedBytes() int {
	total := 0
	for _, c := range a.chunks {
		total += len(c)
	}
	return total
}

// Reset returns the arena's cursor to the base of its chunk list
// without releasing the chunks themselves, then trims retained
// capacity down to cap(max(1 MiB, 2x largest high-water-mark)), per
// §4.3, to bound worst-case resident memory after a single
// pathological invocation. Called by the invocation loop immediately
// before DISPATCH and again after REPORT, per §4.6 step 5.
func (a *Arena) Reset() {
	if a.used > a.highWaterMark {
		a.highWaterMark = a.used
	}

	a.chunkIdx = 0
	a.offset = 0
	a.used = 0

	retainCap := minRetainCap
	if twice := 2 * a.highWaterMark; twice > retainCap {
		retainCap = twice
	}

	total := 0
	keep := 0
	for i, c := range a.chunks {
		if i > 0 && total+len(c) > retainCap {
			break
		}
		total += len(c)
		keep = i + 1
	}
	if keep < len(a.chunks) {
		a.chunks = a.chunks[:keep]
	}
}
