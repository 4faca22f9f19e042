package line

import "testing"

func TestAppendAssignsIncreasingLineNumbers(t *testing.T) {
	b := NewScrollbackBuffer(10)
	n1 := b.Append(NewStyledLine([]Span{{Text: "one", Style: DefaultStyle()}}, 0, KindLine))
	n2 := b.Append(NewStyledLine([]Span{{Text: "two", Style: DefaultStyle()}}, 0, KindLine))
	if n1 != 1 || n2 != 2 {
		t.Fatalf("line numbers = %d,%d, want 1,2", n1, n2)
	}
}

func TestReserveLineNumberConsumesCounterWithoutAppending(t *testing.T) {
	b := NewScrollbackBuffer(10)
	reserved := b.ReserveLineNumber()
	if reserved != 1 {
		t.Fatalf("ReserveLineNumber() = %d, want 1", reserved)
	}
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (gagged line not appended)", b.Len())
	}
	n := b.Append(NewStyledLine([]Span{{Text: "next", Style: DefaultStyle()}}, 0, KindLine))
	if n != 2 {
		t.Fatalf("next appended line number = %d, want 2 (reserved number was consumed)", n)
	}
}

func TestAppendEvictsOldestAtCapacity(t *testing.T) {
	b := NewScrollbackBuffer(2)
	b.Append(NewStyledLine([]Span{{Text: "a", Style: DefaultStyle()}}, 0, KindLine))
	b.Append(NewStyledLine([]Span{{Text: "b", Style: DefaultStyle()}}, 0, KindLine))
	b.Append(NewStyledLine([]Span{{Text: "c", Style: DefaultStyle()}}, 0, KindLine))
	snap := b.Snapshot()
	if len(snap.Lines) != 2 {
		t.Fatalf("Snapshot lines = %+v, want 2", snap.Lines)
	}
	if snap.Lines[0].PlainText() != "b" || snap.Lines[1].PlainText() != "c" {
		t.Fatalf("Snapshot lines = %q,%q, want b,c", snap.Lines[0].PlainText(), snap.Lines[1].PlainText())
	}
}

func TestSnapshotIsImmutableAfterFurtherAppends(t *testing.T) {
	b := NewScrollbackBuffer(10)
	b.Append(NewStyledLine([]Span{{Text: "a", Style: DefaultStyle()}}, 0, KindLine))
	snap := b.Snapshot()
	b.Append(NewStyledLine([]Span{{Text: "b", Style: DefaultStyle()}}, 0, KindLine))
	if len(snap.Lines) != 1 {
		t.Fatalf("earlier snapshot mutated: %+v", snap.Lines)
	}
}

func TestMutateLineRewritesByLineNumber(t *testing.T) {
	b := NewScrollbackBuffer(10)
	n := b.Append(NewStyledLine([]Span{{Text: "hello", Style: DefaultStyle()}}, 0, KindLine))
	ok := b.MutateLine(n, func(l StyledLine) StyledLine {
		return l.Highlight(0, 5, Style{Bold: true})
	})
	if !ok {
		t.Fatalf("MutateLine(%d) = false, want true", n)
	}
	snap := b.Snapshot()
	if !snap.Lines[0].Spans[0].Style.Bold {
		t.Fatalf("mutated line style = %+v, want bold", snap.Lines[0].Spans[0].Style)
	}
}

func TestMutateLineUnknownNumberFails(t *testing.T) {
	b := NewScrollbackBuffer(10)
	if b.MutateLine(999, func(l StyledLine) StyledLine { return l }) {
		t.Fatalf("MutateLine(999) = true, want false for unknown line number")
	}
}
