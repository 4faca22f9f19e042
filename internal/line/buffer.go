package line

import (
	"sync"
	"sync/atomic"
)

// Snapshot is an immutable view of a prefix of the scrollback line stream.
// UI readers obtain one via ScrollbackBuffer.Snapshot, which is O(1) and
// never blocks writers (spec.md §4.2).
type Snapshot struct {
	Lines []StyledLine
}

// ScrollbackBuffer is a fixed-capacity ring of StyledLines. Appending past
// capacity evicts the oldest line; evicted line numbers are never reused.
// The buffer is owned by a single session thread for appends, but exposes
// a lock-protected path for retroactive mutation from scripts (spec.md §4.5).
type ScrollbackBuffer struct {
	capacity int
	mu       sync.Mutex
	lines    []StyledLine // ring contents in logical order, oldest first
	nextNum  uint64
	snapshot atomic.Pointer[Snapshot]
}

// NewScrollbackBuffer creates a buffer with the given capacity (spec.md
// default 10000).
func NewScrollbackBuffer(capacity int) *ScrollbackBuffer {
	if capacity <= 0 {
		capacity = 10000
	}
	b := &ScrollbackBuffer{
		capacity: capacity,
		lines:    make([]StyledLine, 0, capacity),
		nextNum:  1,
	}
	b.publish()
	return b
}

// NextLineNumber returns the number that will be assigned to the next
// appended line, without consuming it.
func (b *ScrollbackBuffer) NextLineNumber() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextNum
}

// ReserveLineNumber assigns and consumes the next line number, for callers
// (the gag path) that must advance the counter without appending a line.
// Open Question 1 (spec.md §9) is resolved as: gagged lines DO consume a
// line number, so script-visible line numbers always match what would have
// been the scrollback entry had the line not been gagged.
func (b *ScrollbackBuffer) ReserveLineNumber() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.nextNum
	b.nextNum++
	return n
}

// Append adds a finalized StyledLine to the buffer, assigning it the next
// line number, evicting the oldest line if at capacity, and publishing a
// fresh snapshot. Returns the assigned line number.
func (b *ScrollbackBuffer) Append(l StyledLine) uint64 {
	b.mu.Lock()
	l.LineNumber = b.nextNum
	b.nextNum++
	if len(b.lines) >= b.capacity {
		copy(b.lines, b.lines[1:])
		b.lines = b.lines[:len(b.lines)-1]
	}
	b.lines = append(b.lines, l)
	b.mu.Unlock()
	b.publish()
	return l.LineNumber
}

// AppendWithNumber appends a line that already carries the line number it
// should use (for the gag-consumes-a-number discipline above, where the
// number was reserved before the line's triggers ran).
func (b *ScrollbackBuffer) AppendWithNumber(l StyledLine, number uint64) {
	b.mu.Lock()
	l.LineNumber = number
	if len(b.lines) >= b.capacity {
		copy(b.lines, b.lines[1:])
		b.lines = b.lines[:len(b.lines)-1]
	}
	b.lines = append(b.lines, l)
	b.mu.Unlock()
	b.publish()
}

// publish copies the current ring into a fresh Snapshot and atomically
// swaps it in, so readers never observe a torn view and never block.
func (b *ScrollbackBuffer) publish() {
	b.mu.Lock()
	cp := make([]StyledLine, len(b.lines))
	copy(cp, b.lines)
	b.mu.Unlock()
	b.snapshot.Store(&Snapshot{Lines: cp})
}

// Snapshot returns the current immutable view. O(1), never blocks writers.
func (b *ScrollbackBuffer) Snapshot() *Snapshot {
	return b.snapshot.Load()
}

// MutateLine retroactively edits an already-appended scrollback line by its
// line number, bypassing the edit queue, under the buffer's own mutex (the
// same lock Append takes; there is no per-line lock), then republishes a
// snapshot (spec.md §4.5 "Retroactive edits").
func (b *ScrollbackBuffer) MutateLine(number uint64, fn func(StyledLine) StyledLine) bool {
	b.mu.Lock()
	idx := -1
	for i, l := range b.lines {
		if l.LineNumber == number {
			idx = i
			break
		}
	}
	if idx == -1 {
		b.mu.Unlock()
		return false
	}
	b.lines[idx] = fn(b.lines[idx])
	b.mu.Unlock()
	b.publish()
	return true
}

// Len returns the number of lines currently retained (<= capacity).
func (b *ScrollbackBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}
