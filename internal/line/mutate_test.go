package line

import "testing"

func plain(l StyledLine) string { return l.PlainText() }

func TestInsertSplitsSpanAndKeepsStyle(t *testing.T) {
	l := NewStyledLine([]Span{{Text: "hello world", Style: DefaultStyle()}}, 1, KindLine)
	style := Style{Fg: AnsiColorValue(Red, false)}
	got := l.Insert("there", 6, 11, style)
	if plain(got) != "hello there" {
		t.Fatalf("plain text = %q, want %q", plain(got), "hello there")
	}
	if len(got.Spans) != 2 {
		t.Fatalf("Spans = %+v, want 2 spans", got.Spans)
	}
	if got.Spans[1].Style != style {
		t.Fatalf("inserted span style = %+v, want %+v", got.Spans[1].Style, style)
	}
}

func TestInsertIntoEmptyLine(t *testing.T) {
	l := StyledLine{}
	got := l.Insert("hi", 0, 0, DefaultStyle())
	if plain(got) != "hi" {
		t.Fatalf("plain text = %q, want %q", plain(got), "hi")
	}
}

func TestReplaceInheritsAffectedSpanStyle(t *testing.T) {
	redStyle := Style{Fg: AnsiColorValue(Red, false)}
	l := NewStyledLine([]Span{{Text: "hello world", Style: redStyle}}, 1, KindLine)
	got := l.Replace("there", 6, 11)
	if plain(got) != "hello there" {
		t.Fatalf("plain text = %q, want %q", plain(got), "hello there")
	}
	for _, s := range got.Spans {
		if s.Style != redStyle {
			t.Fatalf("span %+v did not inherit style %+v", s, redStyle)
		}
	}
}

func TestHighlightPreservesText(t *testing.T) {
	l := NewStyledLine([]Span{{Text: "hello world", Style: DefaultStyle()}}, 1, KindLine)
	style := Style{Bold: true}
	got := l.Highlight(0, 5, style)
	if plain(got) != "hello world" {
		t.Fatalf("plain text = %q, want %q", plain(got), "hello world")
	}
	if got.Spans[0].Style != style {
		t.Fatalf("highlighted span style = %+v, want %+v", got.Spans[0].Style, style)
	}
}

func TestRemoveCollapsesAdjacentMatchingSpans(t *testing.T) {
	l := NewStyledLine([]Span{
		{Text: "aaa", Style: DefaultStyle()},
		{Text: "bbb", Style: Style{Bold: true}},
		{Text: "ccc", Style: DefaultStyle()},
	}, 1, KindLine)
	got := l.Remove(3, 6)
	if plain(got) != "aaaccc" {
		t.Fatalf("plain text = %q, want %q", plain(got), "aaaccc")
	}
	if len(got.Spans) != 1 {
		t.Fatalf("Spans = %+v, want 1 collapsed span", got.Spans)
	}
}

func TestRemoveAllLeavesNoSpans(t *testing.T) {
	l := NewStyledLine([]Span{{Text: "hello", Style: DefaultStyle()}}, 1, KindLine)
	got := l.Remove(0, 5)
	if plain(got) != "" {
		t.Fatalf("plain text = %q, want empty", plain(got))
	}
	if len(got.Spans) != 0 {
		t.Fatalf("Spans = %+v, want none", got.Spans)
	}
}
