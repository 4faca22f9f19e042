package vt

import "github.com/smudgy-mud/smudgy/internal/line"

// sgr applies one parsed CSI "m" (Select Graphic Rendition) parameter list
// to a Style, returning the resulting Style. Ported from the original
// client's vt_processor/sgr.rs state machine (which only tracked a single
// foreground color) and generalized to the full Style carried by
// line.Style: background color, and independent bold/italic/underline/
// strikethrough/reverse/blink attribute flags, per spec.md §3.
func sgr(style line.Style, params []int) line.Style {
	i := 0
	for i < len(params) {
		n := params[i]
		switch {
		case n == 0:
			style = line.DefaultStyle()
		case n == 1:
			style.Bold = true
		case n == 3:
			style.Italic = true
		case n == 4:
			style.Underline = true
		case n == 5 || n == 6:
			style.Blink = true
		case n == 7:
			style.Reverse = true
		case n == 9:
			style.Strikethrough = true
		case n == 22:
			style.Bold = false
		case n == 23:
			style.Italic = false
		case n == 24:
			style.Underline = false
		case n == 25:
			style.Blink = false
		case n == 27:
			style.Reverse = false
		case n == 29:
			style.Strikethrough = false
		case n >= 30 && n <= 37:
			style.Fg = line.AnsiColorValue(line.AnsiColor(n-30), style.Bold)
		case n >= 90 && n <= 97:
			style.Fg = line.AnsiColorValue(line.AnsiColor(n-90), true)
		case n == 39:
			style.Fg = line.DefaultColor()
		case n >= 40 && n <= 47:
			style.Bg = line.AnsiColorValue(line.AnsiColor(n-40), false)
		case n >= 100 && n <= 107:
			style.Bg = line.AnsiColorValue(line.AnsiColor(n-100), true)
		case n == 49:
			style.Bg = line.DefaultColor()
		case n == 38:
			color, consumed := sgrExtendedColor(params[i+1:])
			if consumed > 0 {
				style.Fg = color
				i += consumed
			}
		case n == 48:
			color, consumed := sgrExtendedColor(params[i+1:])
			if consumed > 0 {
				style.Bg = color
				i += consumed
			}
		}
		i++
	}
	return style
}

// sgrExtendedColor parses the tail of a 38/48 sequence: either
// "5;N" (256-color palette index) or "2;R;G;B" (truecolor), both
// semicolon-separated as produced by most MUD servers. Returns the decoded
// color and how many extra parameter slots were consumed.
func sgrExtendedColor(rest []int) (line.Color, int) {
	if len(rest) == 0 {
		return line.Color{}, 0
	}
	switch rest[0] {
	case 2:
		if len(rest) >= 4 {
			return line.RGBColor(uint8(rest[1]), uint8(rest[2]), uint8(rest[3])), 4
		}
	case 5:
		if len(rest) >= 2 {
			return ansi256ToColor(rest[1]), 2
		}
	}
	return line.Color{}, 0
}

// ansi256ToColor maps the xterm 256-color palette index to either a base
// ANSI color (0-15) or an RGB approximation (16-255), mirroring the cube/
// grayscale-ramp math in the original client's SetForegroundMode5Number state.
func ansi256ToColor(n int) line.Color {
	switch {
	case n >= 0 && n <= 7:
		return line.AnsiColorValue(line.AnsiColor(n), false)
	case n >= 8 && n <= 15:
		return line.AnsiColorValue(line.AnsiColor(n-8), true)
	case n >= 16 && n <= 231:
		m := n - 16
		r := m / 36
		g := (m - r*36) / 6
		b := m - r*36 - g*6
		mul := 255.0 / 5.0
		return line.RGBColor(
			uint8(float64(r)*mul+0.5),
			uint8(float64(g)*mul+0.5),
			uint8(float64(b)*mul+0.5),
		)
	case n >= 232 && n <= 255:
		step := 255.0 / 23.0
		v := uint8(float64(n-232)*step + 0.5)
		return line.RGBColor(v, v, v)
	default:
		return line.AnsiColorValue(line.White, false)
	}
}
