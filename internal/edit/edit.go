// Package edit implements the "record now, apply later" LineEdit queue
// (spec.md §4.5): scripts running while a line's triggers fire queue up
// edits against that line, and the session applies them in order once
// trigger processing for the line finishes. Grounded on the original
// client's session/runtime/line_operation.rs (the LineOperation enum
// and its apply method) and the queue-drain loop in
// session/runtime.rs's Inner::apply_pending_line_operations.
package edit

import "github.com/smudgy-mud/smudgy/internal/line"

// Kind identifies which StyledLine mutation a LineEdit performs.
type Kind int

const (
	KindInsert Kind = iota
	KindReplace
	KindHighlight
	KindRemove
	KindGag
)

// LineEdit is one queued mutation. Begin/End are byte offsets into the
// target line's plain text. Record stores any offsets; Apply drops an
// edit whose offsets fall outside 0 <= Begin <= End <= Len() of the
// line it is applied to, returning that line unchanged, without an
// error or log entry.
type LineEdit struct {
	Kind  Kind
	Text  string
	Begin int
	End   int
	Style line.Style
}

// Insert returns a LineEdit that splices text styled with style into
// [begin, end).
func Insert(text string, begin, end int, style line.Style) LineEdit {
	return LineEdit{Kind: KindInsert, Text: text, Begin: begin, End: end, Style: style}
}

// Replace returns a LineEdit that substitutes [begin, end) with text,
// inheriting the replaced span's style.
func Replace(text string, begin, end int) LineEdit {
	return LineEdit{Kind: KindReplace, Text: text, Begin: begin, End: end}
}

// Highlight returns a LineEdit that restyles [begin, end) without
// changing its text.
func Highlight(begin, end int, style line.Style) LineEdit {
	return LineEdit{Kind: KindHighlight, Begin: begin, End: end, Style: style}
}

// Remove returns a LineEdit that deletes [begin, end).
func Remove(begin, end int) LineEdit {
	return LineEdit{Kind: KindRemove, Begin: begin, End: end}
}

// Gag returns a LineEdit that suppresses the whole line. Any later edit
// in the same queue is moot: ApplyAll stops at the first Gag.
func Gag() LineEdit {
	return LineEdit{Kind: KindGag}
}

// Apply performs edit against l, returning the resulting line and true,
// or the zero StyledLine and false if edit gags it. An edit whose
// Begin/End fall outside 0 <= Begin <= End <= l.Len() is dropped: l is
// returned unchanged, with true.
func Apply(l line.StyledLine, e LineEdit) (line.StyledLine, bool) {
	if e.Kind != KindGag && (e.Begin < 0 || e.Begin > e.End || e.End > l.Len()) {
		return l, true
	}
	switch e.Kind {
	case KindGag:
		return line.StyledLine{}, false
	case KindInsert:
		return l.Insert(e.Text, e.Begin, e.End, e.Style), true
	case KindReplace:
		return l.Replace(e.Text, e.Begin, e.End), true
	case KindHighlight:
		return l.Highlight(e.Begin, e.End, e.Style), true
	case KindRemove:
		return l.Remove(e.Begin, e.End), true
	default:
		return l, true
	}
}

// ApplyAll applies edits to l in order, stopping and reporting false as
// soon as one of them gags the line. Every edit's Begin/End refers to
// the original line l (spec.md §9: "positions refer to the original
// line"), since nothing is applied until a line's triggers have all
// finished queuing their edits — so each edit is translated past the
// net length change of every already-applied edit that lies entirely
// before it, letting the edits run in order against the
// progressively-mutated line they were never actually positioned
// against.
func ApplyAll(l line.StyledLine, edits []LineEdit) (line.StyledLine, bool) {
	current := l
	for i, e := range edits {
		begin, end := translate(edits, i)
		e.Begin, e.End = begin, end
		next, ok := Apply(current, e)
		if !ok {
			return line.StyledLine{}, false
		}
		current = next
	}
	return current, true
}

// translate computes edits[i]'s Begin/End shifted by the cumulative
// length delta of every earlier edit in the queue whose original range
// ends at or before edits[i]'s original Begin — i.e. every edit that,
// once applied, has already moved the text this edit targets. Edits
// are assumed non-overlapping in their original coordinates; nothing
// checks this, and an earlier edit whose range ends after this edit's
// Begin contributes no shift at all.
func translate(edits []LineEdit, i int) (begin, end int) {
	begin, end = edits[i].Begin, edits[i].End
	delta := 0
	for j := 0; j < i; j++ {
		if edits[j].End <= edits[i].Begin {
			delta += lengthDelta(edits[j])
		}
	}
	return begin + delta, end + delta
}

// lengthDelta is the net change in plain-text length an edit causes,
// in its own original coordinates.
func lengthDelta(e LineEdit) int {
	switch e.Kind {
	case KindInsert, KindReplace:
		return len(e.Text) - (e.End - e.Begin)
	case KindRemove:
		return -(e.End - e.Begin)
	default:
		return 0
	}
}

// Queue accumulates LineEdits for the line currently being processed by
// the trigger pipeline, and hands them to the session for a single
// ApplyAll call once that line's triggers have all run.
type Queue struct {
	edits []LineEdit
}

// Record appends e to the queue.
func (q *Queue) Record(e LineEdit) {
	q.edits = append(q.edits, e)
}

// Pending reports whether any edits are queued.
func (q *Queue) Pending() bool {
	return len(q.edits) > 0
}

// Drain returns the queued edits and clears the queue.
func (q *Queue) Drain() []LineEdit {
	edits := q.edits
	q.edits = nil
	return edits
}
