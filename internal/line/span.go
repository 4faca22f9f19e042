package line

// Span is a run of text sharing one Style. text must be a valid Unicode
// string with no control characters — the VT parser consumes escape
// sequences before a Span is ever constructed.
type Span struct {
	Text  string
	Style Style
}

// Kind distinguishes a finalized Line from a server Prompt.
type Kind int

const (
	KindLine Kind = iota
	KindPrompt
)

func (k Kind) String() string {
	if k == KindPrompt {
		return "prompt"
	}
	return "line"
}

// StyledLine is an ordered sequence of Spans carrying a buffer-assigned
// line number and a Kind. Invariant: the concatenation of span texts
// equals PlainText(), and the sum of span text lengths equals len(PlainText()).
type StyledLine struct {
	Spans      []Span
	LineNumber uint64
	Kind       Kind
	// Raw holds the line's bytes exactly as the server sent them —
	// escape sequences and all — decoded lossily as UTF-8. It is empty
	// unless the parser was asked to retain it, and exists so a Trigger
	// can be registered against the unparsed wire form (e.g. a status
	// bar that encodes state purely in which SGR codes it sends)
	// instead of only the decoded plain text.
	Raw string
}

// NewStyledLine builds a StyledLine from spans, trimming any zero-length
// spans (the parser may emit one when a style change happens at position 0).
func NewStyledLine(spans []Span, number uint64, kind Kind) StyledLine {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		out = append(out, s)
	}
	return StyledLine{Spans: out, LineNumber: number, Kind: kind}
}

// PlainText returns the concatenation of all span texts.
func (l StyledLine) PlainText() string {
	total := 0
	for _, s := range l.Spans {
		total += len(s.Text)
	}
	buf := make([]byte, 0, total)
	for _, s := range l.Spans {
		buf = append(buf, s.Text...)
	}
	return string(buf)
}

// Len returns the plain-text byte length.
func (l StyledLine) Len() int {
	n := 0
	for _, s := range l.Spans {
		n += len(s.Text)
	}
	return n
}

// Append concatenates two StyledLines' spans, used when merging an
// in-progress line with a freshly-parsed continuation (e.g. prompt
// follow-up), matching the original StyledLine::append semantics.
func (l StyledLine) Append(other StyledLine) StyledLine {
	spans := make([]Span, 0, len(l.Spans)+len(other.Spans))
	spans = append(spans, l.Spans...)
	spans = append(spans, other.Spans...)
	return StyledLine{Spans: spans, LineNumber: l.LineNumber, Kind: l.Kind, Raw: l.Raw + other.Raw}
}

// FromEchoStr builds a single-span StyledLine tagged as locally echoed text.
func FromEchoStr(text string) StyledLine {
	return StyledLine{Spans: []Span{{Text: text, Style: Style{Fg: EchoColor(), Bg: DefaultColor()}}}}
}

// FromWarnStr builds a single-span StyledLine tagged as a runtime warning.
func FromWarnStr(text string) StyledLine {
	return StyledLine{Spans: []Span{{Text: text, Style: Style{Fg: WarnColor(), Bg: DefaultColor()}}}}
}

// FromOutputStr builds a single-span StyledLine tagged as an echoed
// outgoing line (what the player just sent to the server).
func FromOutputStr(text string) StyledLine {
	return StyledLine{Spans: []Span{{Text: text, Style: Style{Fg: OutputColor(), Bg: DefaultColor()}}}}
}
