// Package line holds the Session Runtime's styled-text data model: Color,
// Style, Span, StyledLine, and the ScrollbackBuffer that stores them.
package line

import "fmt"

// AnsiColor enumerates the eight base terminal colors used by SGR codes
// 30-37/90-97, mirroring the original client's vt_processor/sgr.rs table.
type AnsiColor int

const (
	Black AnsiColor = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

// ColorKind tags which variant of Color is populated.
type ColorKind int

const (
	// ColorDefault means "take from the active palette".
	ColorDefault ColorKind = iota
	ColorNamed
	ColorRGB
	ColorAnsi
	// ColorEcho, ColorWarn, and ColorOutput mark locally-synthesized lines
	// (session_echo, runtime warnings, and outgoing-line echoes) rather
	// than text that arrived from the server. See SPEC_FULL.md §3.
	ColorEcho
	ColorWarn
	ColorOutput
)

// Color is a tagged union: Default | Named(name) | Rgb(r,g,b) | Ansi(index, bright?).
type Color struct {
	Kind   ColorKind
	Name   string
	R, G, B uint8
	Ansi   AnsiColor
	Bright bool
}

// DefaultColor returns the "use the active palette" color.
func DefaultColor() Color { return Color{Kind: ColorDefault} }

// NamedColor returns a Color identified by a palette name.
func NamedColor(name string) Color { return Color{Kind: ColorNamed, Name: name} }

// RGBColor returns a truecolor Color.
func RGBColor(r, g, b uint8) Color { return Color{Kind: ColorRGB, R: r, G: g, B: b} }

// AnsiColorValue returns a base-16 ANSI color, optionally bright/bold.
func AnsiColorValue(c AnsiColor, bright bool) Color {
	return Color{Kind: ColorAnsi, Ansi: c, Bright: bright}
}

// EchoColor, WarnColor, and OutputColor mark locally-synthesized lines.
func EchoColor() Color   { return Color{Kind: ColorEcho} }
func WarnColor() Color   { return Color{Kind: ColorWarn} }
func OutputColor() Color { return Color{Kind: ColorOutput} }

func (c Color) String() string {
	switch c.Kind {
	case ColorDefault:
		return "default"
	case ColorNamed:
		return fmt.Sprintf("named(%s)", c.Name)
	case ColorRGB:
		return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
	case ColorAnsi:
		return fmt.Sprintf("ansi(%d,bright=%v)", c.Ansi, c.Bright)
	case ColorEcho:
		return "echo"
	case ColorWarn:
		return "warn"
	case ColorOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Style bundles foreground/background color and text attributes. Immutable
// by convention: callers always build a new Style rather than mutate one in
// place, matching the original vt_processor's copy-on-change cursor_style.
type Style struct {
	Fg            Color
	Bg            Color
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	Reverse       bool
	Blink         bool
}

// DefaultStyle is the style a fresh connection/line starts with.
func DefaultStyle() Style {
	return Style{Fg: DefaultColor(), Bg: DefaultColor()}
}
