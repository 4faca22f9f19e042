// Package vt turns a raw byte stream from a MUD server into StyledLines:
// it strips and answers telnet IAC option negotiation, interprets SGR
// escape sequences into line.Style, and cuts the stream into lines on
// CR/LF and into prompts on telnet GA/EOR. Ported from the original
// client's session/connection/vt_processor.rs and the teacher's
// internal/game/telnet.go IAC handling, rewritten as a non-blocking
// incremental state machine: Feed can be called with any slice boundary,
// including mid-escape-sequence or mid-UTF8-rune, and picks back up
// correctly on the next call (spec.md invariant 8).
package vt

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/smudgy-mud/smudgy/internal/line"
)

const (
	iac  byte = 255
	dont byte = 254
	do   byte = 253
	wont byte = 252
	will byte = 251
	sb   byte = 250
	ga   byte = 249
	el   byte = 248
	ec   byte = 247
	ayt  byte = 246
	ao   byte = 245
	ip   byte = 244
	brk  byte = 243
	dm   byte = 242
	nop  byte = 241
	se   byte = 240
	eor  byte = 239
)

const (
	optEcho         byte = 1
	optSuppressGA   byte = 3
	optTerminalType byte = 24
	optEOR          byte = 25
	optWindowSize   byte = 31
	optLineMode     byte = 34
)

var serverSupportedOptions = map[byte]bool{
	optSuppressGA: true,
	optEOR:        true,
}

var clientSupportedOptions = map[byte]bool{
	optTerminalType: true,
	optWindowSize:   true,
}

type state int

const (
	stGround state = iota
	stCR
	stEscape
	stCSI
	stOSC
	stOSCEscape
	stIAC
	stIACOpt
	stIACSB
	stIACSBIAC
)

// EventKind distinguishes a finalized Line from a server Prompt marker.
type EventKind int

const (
	EventLine EventKind = iota
	EventPrompt
)

// Event is one completed unit of output text produced by the parser. The
// caller is responsible for assigning a line number (via
// line.ScrollbackBuffer) before the event's Spans become a StyledLine.
type Event struct {
	Kind  EventKind
	Spans []line.Span
	// Raw is the line's bytes exactly as received, escape sequences and
	// all, decoded lossily. See line.StyledLine.Raw.
	Raw string
}

// Parser incrementally decodes one connection's byte stream. It is not
// safe for concurrent use; a session owns exactly one Parser, for the
// inbound direction of its connection (outbound text goes through
// EncodeOutbound instead).
type Parser struct {
	legacyEncoding bool // decode spans with CP437 instead of UTF-8

	st state

	curStyle   line.Style
	curRaw     []byte // raw bytes of the span currently being accumulated
	curLineRaw []byte // every content byte (escape sequences included) since the last line boundary
	spans      []line.Span

	csiParams  []int
	csiCur     int
	csiHasCur  bool
	csiPrivate bool

	oscBuf []byte

	iacCmd byte
	sbOpt  byte
	sbBuf  []byte

	width, height int
	term          string

	pendingEvents []Event
	out           []byte // pending telnet replies to write back to the connection
}

// Option configures a new Parser.
type Option func(*Parser)

// WithLegacyEncoding decodes incoming text as CP437 instead of UTF-8, for
// servers that predate Unicode support.
func WithLegacyEncoding() Option {
	return func(p *Parser) { p.legacyEncoding = true }
}

// NewParser constructs a Parser with a default (plain, un-styled) cursor
// style and an 80x24 terminal size, matching the teacher's TelnetSession
// defaults.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		curStyle: line.DefaultStyle(),
		width:    80,
		height:   24,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed consumes data and returns any completed Events plus any telnet
// negotiation bytes that must be written back to the connection. The
// returned out slice is owned by the caller; Feed starts a fresh buffer
// for the next call.
func (p *Parser) Feed(data []byte) (events []Event, out []byte) {
	for _, b := range data {
		p.trackRaw(b)
		p.step(b)
	}
	events = p.drainEvents()
	out = p.out
	p.out = nil
	return events, out
}

// trackRaw records a content byte into the current line's raw buffer.
// Telnet protocol bytes (IAC and everything inside an IAC command) and
// the CR/LF line boundary itself are excluded, matching how spans
// exclude them from decoded text.
func (p *Parser) trackRaw(b byte) {
	switch p.st {
	case stIAC:
		if b == iac { // IAC IAC: an escaped literal 0xFF data byte
			p.curLineRaw = append(p.curLineRaw, iac)
		}
		return
	case stIACOpt, stIACSB, stIACSBIAC:
		return
	case stGround:
		if b == '\r' || b == '\n' || b == iac {
			return
		}
	}
	p.curLineRaw = append(p.curLineRaw, b)
}

func (p *Parser) drainEvents() []Event {
	ev := p.pendingEvents
	p.pendingEvents = nil
	return ev
}

// emitLine cuts the in-progress span and queues an Event. A bare GA with
// no preceding text still produces an empty-Spans prompt event, since the
// marker itself (not its content) is what matters to the session.
func (p *Parser) emitLine(kind EventKind) {
	p.cutSpan()
	rawBytes := p.curLineRaw
	// A "\r\n" pair leaves the '\n' in curLineRaw (it arrives while
	// p.st == stCR, a state trackRaw's exclusion switch doesn't
	// special-case) — trim it here so Raw never carries the line
	// boundary, matching the plain-LF case and spans' own exclusion.
	if n := len(rawBytes); n > 0 && rawBytes[n-1] == '\n' {
		rawBytes = rawBytes[:n-1]
	}
	raw := p.decode(rawBytes)
	p.curLineRaw = p.curLineRaw[:0]
	p.pendingEvents = append(p.pendingEvents, Event{Kind: kind, Spans: p.spans, Raw: raw})
	p.spans = nil
}

// cutSpan finalizes curRaw into a Span under curStyle and appends it to
// spans, if there is any pending text.
func (p *Parser) cutSpan() {
	if len(p.curRaw) == 0 {
		return
	}
	text := p.decode(p.curRaw)
	p.curRaw = p.curRaw[:0]
	if text == "" {
		return
	}
	p.spans = append(p.spans, line.Span{Text: text, Style: p.curStyle})
}

func (p *Parser) decode(raw []byte) string {
	if p.legacyEncoding {
		out, err := charmap.CodePage437.NewDecoder().Bytes(raw)
		if err == nil {
			return string(out)
		}
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), "�")
}

func (p *Parser) step(b byte) {
	switch p.st {
	case stGround:
		p.stepGround(b)
	case stCR:
		p.stepCR(b)
	case stEscape:
		p.stepEscape(b)
	case stCSI:
		p.stepCSI(b)
	case stOSC:
		p.stepOSC(b)
	case stOSCEscape:
		p.stepOSCEscape(b)
	case stIAC:
		p.stepIAC(b)
	case stIACOpt:
		p.stepIACOpt(b)
	case stIACSB:
		p.stepIACSB(b)
	case stIACSBIAC:
		p.stepIACSBIAC(b)
	}
}

func (p *Parser) stepGround(b byte) {
	switch {
	case b == iac:
		p.st = stIAC
	case b == 0x1b:
		p.st = stEscape
	case b == '\r':
		p.st = stCR
	case b == '\n':
		p.emitLine(EventLine)
	case b < 0x20 || b == 0x7f:
		// other control bytes are dropped, matching the span invariant
		// that text carries no control characters.
	default:
		p.curRaw = append(p.curRaw, b)
	}
}

// stepCR defers the line cut by one byte, so "\r\n" collapses to a single
// line break instead of an empty line followed by a real one.
func (p *Parser) stepCR(b byte) {
	p.st = stGround
	if b == '\n' {
		p.emitLine(EventLine)
		return
	}
	p.emitLine(EventLine)
	p.stepGround(b)
}

func (p *Parser) stepEscape(b byte) {
	switch b {
	case '[':
		p.csiParams = p.csiParams[:0]
		p.csiCur = 0
		p.csiHasCur = false
		p.csiPrivate = false
		p.st = stCSI
	case ']':
		p.oscBuf = p.oscBuf[:0]
		p.st = stOSC
	default:
		// unsupported two-byte escape (charset select, cursor save, ...);
		// consume and discard, matching vt_processor.rs's behavior of only
		// implementing SGR.
		p.st = stGround
	}
}

func (p *Parser) stepCSI(b byte) {
	switch {
	case b == '?' && len(p.csiParams) == 0 && !p.csiHasCur:
		p.csiPrivate = true
	case b >= '0' && b <= '9':
		p.csiCur = p.csiCur*10 + int(b-'0')
		p.csiHasCur = true
	case b == ';':
		p.csiParams = append(p.csiParams, p.csiCur)
		p.csiCur = 0
		p.csiHasCur = false
	case b >= 0x40 && b <= 0x7e:
		p.csiParams = append(p.csiParams, p.csiCur)
		p.finishCSI(b)
		p.st = stGround
	default:
		// intermediate bytes (0x20-0x2f) are not used by SGR; ignore.
	}
}

func (p *Parser) finishCSI(final byte) {
	if p.csiPrivate {
		return // DEC private modes (cursor visibility, etc.) are not rendered
	}
	if final != 'm' {
		return // only SGR affects the styled-text model
	}
	params := p.csiParams
	if len(params) == 0 {
		params = []int{0}
	}
	newStyle := sgr(p.curStyle, params)
	if newStyle != p.curStyle {
		p.cutSpan()
		p.curStyle = newStyle
	}
}

func (p *Parser) stepOSC(b byte) {
	switch b {
	case 0x07:
		p.st = stGround
	case 0x1b:
		p.st = stOSCEscape
	default:
		p.oscBuf = append(p.oscBuf, b)
	}
}

func (p *Parser) stepOSCEscape(b byte) {
	if b == '\\' {
		p.st = stGround
		return
	}
	// not a valid ST terminator; fall back into ground and reprocess.
	p.st = stGround
	p.stepGround(b)
}

func (p *Parser) stepIAC(b byte) {
	switch b {
	case iac:
		p.curRaw = append(p.curRaw, iac)
		p.st = stGround
	case do, dont, will, wont:
		p.iacCmd = b
		p.st = stIACOpt
	case sb:
		p.sbBuf = p.sbBuf[:0]
		p.st = stIACSB
	case ga, eor:
		p.emitLine(EventPrompt)
		p.st = stGround
	default:
		// NOP/DM/BRK/IP/AO/AYT/EC/EL and anything unrecognized: ignored.
		p.st = stGround
	}
}

func (p *Parser) stepIACOpt(b byte) {
	p.negotiate(p.iacCmd, b)
	p.st = stGround
}

func (p *Parser) negotiate(cmd, opt byte) {
	switch cmd {
	case do:
		if serverSupportedOptions[opt] {
			p.sendCommand(will, opt)
		} else {
			p.sendCommand(wont, opt)
		}
	case dont:
		p.sendCommand(wont, opt)
	case will:
		if clientSupportedOptions[opt] {
			p.sendCommand(do, opt)
		} else {
			p.sendCommand(dont, opt)
		}
	case wont:
		p.sendCommand(dont, opt)
	}
}

func (p *Parser) sendCommand(cmd, opt byte) {
	p.out = append(p.out, iac, cmd, opt)
}

func (p *Parser) stepIACSB(b byte) {
	if p.sbOpt == 0 {
		p.sbOpt = b
		return
	}
	if b == iac {
		p.st = stIACSBIAC
		return
	}
	p.sbBuf = append(p.sbBuf, b)
}

func (p *Parser) stepIACSBIAC(b byte) {
	switch b {
	case iac:
		p.sbBuf = append(p.sbBuf, iac)
		p.st = stIACSB
	case se:
		p.finishSubnegotiation()
		p.sbOpt = 0
		p.sbBuf = p.sbBuf[:0]
		p.st = stGround
	default:
		p.st = stIACSB
	}
}

func (p *Parser) finishSubnegotiation() {
	switch p.sbOpt {
	case optTerminalType:
		if len(p.sbBuf) > 1 && p.sbBuf[0] == 0 {
			p.term = strings.ToUpper(string(p.sbBuf[1:]))
		}
	case optWindowSize:
		if len(p.sbBuf) >= 4 {
			p.width = int(p.sbBuf[0])<<8 | int(p.sbBuf[1])
			p.height = int(p.sbBuf[2])<<8 | int(p.sbBuf[3])
		}
	}
}

// Handshake returns the telnet option offers a fresh connection should
// send before any server bytes arrive, matching the teacher's
// performHandshake.
func Handshake() []byte {
	var out []byte
	out = append(out, iac, will, optSuppressGA)
	out = append(out, iac, will, optEOR)
	out = append(out, iac, wont, optEcho)
	out = append(out, iac, dont, optLineMode)
	out = append(out, iac, do, optTerminalType)
	out = append(out, iac, do, optWindowSize)
	return out
}

// WindowSize returns the most recently negotiated NAWS dimensions.
func (p *Parser) WindowSize() (width, height int) { return p.width, p.height }

// Terminal returns the terminal type string negotiated via IAC
// TERMINAL-TYPE, or "" if the client never sent one.
func (p *Parser) Terminal() string { return p.term }

// EncodeOutbound escapes a string being sent to the server: CR/LF pairs
// are normalized and any literal IAC byte is doubled, matching the
// teacher's translateForTelnet.
func EncodeOutbound(msg string) []byte {
	buf := make([]byte, 0, len(msg)+8)
	var prev byte
	for i := 0; i < len(msg); i++ {
		b := msg[i]
		switch b {
		case '\n':
			if prev != '\r' {
				buf = append(buf, '\r')
			}
			buf = append(buf, '\n')
		case iac:
			buf = append(buf, iac, iac)
		default:
			buf = append(buf, b)
		}
		prev = b
	}
	return buf
}
