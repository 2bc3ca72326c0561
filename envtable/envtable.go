// SPDX-License-Identifier: Apache-2.0

// Package envtable captures the process environment once, at startup,
// into an immutable lookup table. It plays the narrow role the
// teacher's rapidcore/env package plays for the emulator: classifying
// and snapshotting os.Environ() rather than letting call sites re-read
// mutable process state on every lookup.
package envtable

import "strings"

// Table is a case-sensitive, immutable snapshot of key=value pairs.
type Table struct {
	entries map[string]string
}

// Capture snapshots the current process environment.
func Capture() *Table {
	return fromPairs(environPairs())
}

// environPairs is a seam for tests; production code always reads
// os.Environ().
var environPairs = func() []string {
	return osEnviron()
}

func fromPairs(pairs []string) *Table {
	t := &Table{entries: make(map[string]string, len(pairs))}
	for _, kv := range pairs {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			t.entries[kv[:idx]] = kv[idx+1:]
		}
	}
	return t
}

// Get returns the value for key and whether it was present at
// capture time. Absent keys return ("", false), never ("", true) —
// callers must not conflate an unset variable with one set to "".
func (t *Table) Get(key string) (string, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Len reports the number of captured entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// WithoutKeys returns a new Table excluding the given keys, leaving
// the receiver untouched. Used by config.Load to strip the reserved
// variables it has already classified out of the general-purpose
// env_table handed to handlers.
func (t *Table) WithoutKeys(keys ...string) *Table {
	exclude := make(map[string]bool, len(keys))
	for _, k := range keys {
		exclude[k] = true
	}
	out := &Table{entries: make(map[string]string, len(t.entries))}
	for k, v := range t.entries {
		if !exclude[k] {
			out.entries[k] = v
		}
	}
	return out
}
