package line

// This file implements the StyledLine mutation primitives behind LineEdit
// (spec.md §4.5): Insert, Replace, Highlight, Remove. Positions are byte
// offsets into PlainText(); 0 <= begin <= end <= Len() is a precondition
// enforced by the caller: internal/edit.Apply drops an out-of-bounds edit
// before it reaches these.

// split returns the spans of l with a cut made at byte offset pos, so that
// no span straddles pos. Splitting at a span boundary is a no-op.
func split(spans []Span, pos int) []Span {
	if pos <= 0 {
		return spans
	}
	out := make([]Span, 0, len(spans)+1)
	offset := 0
	for _, s := range spans {
		end := offset + len(s.Text)
		if pos <= offset || pos >= end {
			out = append(out, s)
			offset = end
			continue
		}
		cut := pos - offset
		out = append(out, Span{Text: s.Text[:cut], Style: s.Style})
		out = append(out, Span{Text: s.Text[cut:], Style: s.Style})
		offset = end
	}
	return out
}

// collapse merges adjacent spans that share an identical Style, and drops
// empty spans, matching the Remove invariant described in spec.md §4.2.
func collapse(spans []Span) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Style == s.Style {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}

// styleAt returns the style in effect at byte offset pos, or the zero Style
// if the line has no spans (used by Replace-without-style, which inherits
// from the first affected span per spec.md §4.2).
func styleAt(spans []Span, pos int) Style {
	offset := 0
	for _, s := range spans {
		end := offset + len(s.Text)
		if pos >= offset && pos < end {
			return s.Style
		}
		offset = end
	}
	if len(spans) > 0 {
		return spans[len(spans)-1].Style
	}
	return DefaultStyle()
}

// Insert splices text styled with style in at byte offset begin..end,
// replacing whatever plain text fell within [begin, end). Insert with an
// explicit style always produces a new span (spec.md §4.2).
func (l StyledLine) Insert(text string, begin, end int, style Style) StyledLine {
	spans := split(l.Spans, begin)
	spans = split(spans, end)

	out := make([]Span, 0, len(spans)+1)
	offset := 0
	inserted := false
	for _, s := range spans {
		sEnd := offset + len(s.Text)
		if !inserted && offset == begin {
			// begin's split boundary: splice the new span here, whether
			// or not there's a [begin, end) range after it to drop (a
			// point insert, begin == end, never enters that branch).
			out = append(out, Span{Text: text, Style: style})
			inserted = true
		}
		if end > begin && offset >= begin && sEnd <= end {
			// fully inside the replaced range: drop it.
			offset = sEnd
			continue
		}
		out = append(out, s)
		offset = sEnd
	}
	if !inserted {
		out = append(out, Span{Text: text, Style: style})
	}
	return StyledLine{Spans: collapse(out), LineNumber: l.LineNumber, Kind: l.Kind}
}

// Replace substitutes the plain text within [begin, end) with text,
// inheriting the style of the first affected span (spec.md §4.2).
func (l StyledLine) Replace(text string, begin, end int) StyledLine {
	style := styleAt(l.Spans, begin)
	return l.Insert(text, begin, end, style)
}

// Highlight re-styles the plain text within [begin, end) without changing
// its content.
func (l StyledLine) Highlight(begin, end int, style Style) StyledLine {
	spans := split(l.Spans, begin)
	spans = split(spans, end)

	out := make([]Span, 0, len(spans))
	offset := 0
	for _, s := range spans {
		sEnd := offset + len(s.Text)
		if offset >= begin && sEnd <= end {
			out = append(out, Span{Text: s.Text, Style: style})
		} else {
			out = append(out, s)
		}
		offset = sEnd
	}
	return StyledLine{Spans: collapse(out), LineNumber: l.LineNumber, Kind: l.Kind}
}

// Remove deletes the plain text within [begin, end), collapsing adjacent
// spans of identical style left behind (spec.md §4.2).
func (l StyledLine) Remove(begin, end int) StyledLine {
	spans := split(l.Spans, begin)
	spans = split(spans, end)

	out := make([]Span, 0, len(spans))
	offset := 0
	for _, s := range spans {
		sEnd := offset + len(s.Text)
		if offset >= begin && sEnd <= end {
			offset = sEnd
			continue
		}
		out = append(out, s)
		offset = sEnd
	}
	return StyledLine{Spans: collapse(out), LineNumber: l.LineNumber, Kind: l.Kind}
}
