package session

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/smudgy-mud/smudgy/internal/edit"
	"github.com/smudgy-mud/smudgy/internal/line"
	"github.com/smudgy-mud/smudgy/internal/registry"
	"github.com/smudgy-mud/smudgy/internal/script"
	"github.com/smudgy-mud/smudgy/internal/vt"
)

// Transport is the duplex byte stream a Session drives: a net.Conn in
// production, an in-memory pipe in tests.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Session is the Session Orchestrator (spec.md §4.7): one connection's
// state machine plus the cooperative inbound/outbound pipeline that
// ties the VT Parser, Scrollback Buffer, Trigger/Alias Registry, Line
// Edit Queue and Script Executor together. Grounded on the original
// client's session/runtime.rs Runtime/Inner split, adapted from an
// actor with an explicit action-queue enum to a single goroutine
// selecting between an inbound byte channel and an outbound input
// channel — "the orchestrator drives two loops cooperatively on one
// thread" (spec.md §4.7) is exactly this select loop, not two
// independently-scheduled goroutines.
type Session struct {
	cfg Config

	mu    sync.Mutex
	state State

	transport Transport
	parser    *vt.Parser
	buffer    *line.ScrollbackBuffer
	executor  *script.Executor
	reg       atomic.Pointer[registry.Registry[script.Action]]

	inputCh   chan string
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	curMu         sync.RWMutex
	currentLine   string
	currentLineNo uint64
}

// New constructs a disconnected Session. Call Connect to attach a
// Transport and start its pipeline.
func New(id string, opts ...Option) *Session {
	cfg := defaultConfig(id)
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Session{
		cfg:      cfg,
		parser:   newParser(cfg),
		buffer:   line.NewScrollbackBuffer(cfg.scrollbackCapacity),
		executor: script.New(),
		inputCh:  make(chan string, 1024),
		done:     make(chan struct{}),
	}
	s.reg.Store(registry.New[script.Action]())
	return s
}

func newParser(cfg Config) *vt.Parser {
	if cfg.legacyEncoding {
		return vt.NewParser(vt.WithLegacyEncoding())
	}
	return vt.NewParser()
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.cfg.id }

// Buffer exposes the session's scrollback for UI readers (Snapshot is
// lock-free and never blocks the orchestrator).
func (s *Session) Buffer() *line.ScrollbackBuffer { return s.buffer }

// Connect attaches transport and starts the session's inbound/outbound
// pipeline. Fails if the session is not StateDisconnected.
func (s *Session) Connect(transport Transport) error {
	if !s.transition(StateDisconnected, StateConnecting) {
		return ErrInvalidTransition{From: s.State(), To: StateConnecting}
	}
	s.transport = transport
	if hs := vt.Handshake(); len(hs) > 0 {
		if _, err := transport.Write(hs); err != nil {
			s.setState(StateDisconnected)
			return fmt.Errorf("session: handshake: %w", err)
		}
	}
	if !s.transition(StateConnecting, StateConnected) {
		return ErrInvalidTransition{From: s.State(), To: StateConnected}
	}
	s.Reload()
	s.wg.Add(1)
	go s.orchestrate()
	return nil
}

// Close disconnects the session, stopping its pipeline and closing its
// transport. Idempotent.
func (s *Session) Close() error {
	from := s.State()
	if from != StateConnected && from != StateConnecting {
		return nil
	}
	if !s.transition(from, StateDisconnecting) {
		return nil
	}
	s.closeOnce.Do(func() { close(s.done) })
	var err error
	if s.transport != nil {
		err = s.transport.Close()
	}
	s.wg.Wait()
	s.setState(StateDisconnected)
	return err
}

// beginDisconnect is called from the orchestrator goroutine itself
// (remote end closed, or a read error occurred), so it must not Wait
// on s.wg — that goroutine is the one exiting.
func (s *Session) beginDisconnect() {
	from := s.State()
	if from != StateConnected && from != StateConnecting {
		return
	}
	if !s.transition(from, StateDisconnecting) {
		return
	}
	s.closeOnce.Do(func() { close(s.done) })
	if s.transport != nil {
		_ = s.transport.Close()
	}
	s.setState(StateDisconnected)
}

func (s *Session) setState(to State) {
	s.mu.Lock()
	s.state = to
	s.mu.Unlock()
}

// SubmitInput queues a line of player input for alias-matched outbound
// processing. Safe to call from any goroutine (a UI, a CLI reader).
func (s *Session) SubmitInput(text string) error {
	if s.State() != StateConnected {
		return ErrNotConnected
	}
	select {
	case s.inputCh <- text:
	case <-s.done:
		return ErrNotConnected
	}
	return nil
}

// Reload tears down the trigger/alias registry and re-evaluates the
// session's startup script set (spec.md §4.6 session_reload). Grounded
// on runtime.rs's Runtime::new loop, which rebuilds trigger::Manager
// and ScriptEngine from scratch on RunAction::Reload while leaving the
// connection and pending line operations untouched.
func (s *Session) Reload() {
	s.reg.Store(registry.New[script.Action]())
	if s.cfg.startupSource == "" {
		return
	}
	host := s.buildHost(nil, "", 0)
	action := script.Action{Kind: script.KindCallFunction, Source: s.cfg.startupSource, FunctionName: "Setup"}
	if _, err := s.runScriptWithTimeout(action, script.Match{}, host); err != nil {
		s.cfg.logger.Error("startup script failed", "session", s.cfg.id, "err", err)
	}
}

// orchestrate is the Session Orchestrator's single driving goroutine:
// a dedicated reader goroutine feeds it raw bytes, SubmitInput feeds it
// player input, and everything that actually matches a trigger/alias,
// runs a script body or mutates the registry happens right here, in
// program order, matching spec.md §5's "registries mutated only on the
// session thread" and the strictly sequential parsed-line -> triggers
// -> edits -> buffer-append pipeline.
func (s *Session) orchestrate() {
	defer s.wg.Done()

	readCh := make(chan []byte, 16)
	errCh := make(chan error, 1)
	go s.readLoop(readCh, errCh)

	for {
		select {
		case chunk := <-readCh:
			s.handleInbound(chunk)
		case text := <-s.inputCh:
			s.submitOutgoing(text, 0)
		case err := <-errCh:
			if err != io.EOF {
				s.cfg.logger.Error("transport read failed", "session", s.cfg.id, "err", err)
			}
			s.beginDisconnect()
			return
		case <-s.done:
			return
		}
	}
}

func (s *Session) readLoop(readCh chan<- []byte, errCh chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := s.transport.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case readCh <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			select {
			case errCh <- err:
			case <-s.done:
			}
			return
		}
	}
}

func (s *Session) handleInbound(chunk []byte) {
	events, out := s.parser.Feed(chunk)
	if len(out) > 0 {
		s.writeRaw(out)
	}
	for _, ev := range events {
		s.processLine(ev, ev.Kind == vt.EventPrompt)
	}
}

// processLine reserves a line number, runs every matching trigger body
// (each against a fresh edit.Queue local to this line, so a body that
// outlives its timeout can only pollute an abandoned queue, never a
// later line's), applies the accumulated edits, and appends the result
// unless a Gag short-circuited it. Gagged lines still consume a line
// number (spec.md §9 Open Question 1).
func (s *Session) processLine(ev vt.Event, prompt bool) {
	kind := line.KindLine
	if prompt {
		kind = line.KindPrompt
	}
	number := s.buffer.ReserveLineNumber()
	sl := line.NewStyledLine(ev.Spans, number, kind)
	sl.Raw = ev.Raw

	fired := s.reg.Load().MatchLine(sl, prompt)
	if len(fired) == 0 {
		s.buffer.AppendWithNumber(sl, number)
		s.writeTranscript(sl.PlainText())
		return
	}

	q := &edit.Queue{}
	s.setCurrentLine(sl.PlainText(), number)
	for _, f := range fired {
		host := s.buildHost(q, sl.PlainText(), number)
		match := script.Match{Line: sl.PlainText(), LineNumber: number, Numbered: f.Numbered, Named: f.Named}
		outgoing, err := s.runScriptWithTimeout(f.Payload, match, host)
		if err != nil {
			s.cfg.logger.Error("trigger body failed", "trigger", f.Name, "line", number, "err", err)
			continue
		}
		for _, out := range outgoing {
			s.submitOutgoing(out, 0)
		}
	}
	s.clearCurrentLine()

	mutated, ok := edit.ApplyAll(sl, q.Drain())
	if !ok {
		return
	}
	s.buffer.AppendWithNumber(mutated, number)
	s.writeTranscript(mutated.PlainText())
}

func (s *Session) writeTranscript(text string) {
	if s.cfg.transcript == nil {
		return
	}
	if err := s.cfg.transcript.WriteLine(text); err != nil {
		s.cfg.logger.Error("transcript write failed", "session", s.cfg.id, "err", err)
	}
}

func (s *Session) setCurrentLine(text string, number uint64) {
	s.curMu.Lock()
	s.currentLine, s.currentLineNo = text, number
	s.curMu.Unlock()
}

func (s *Session) clearCurrentLine() {
	s.curMu.Lock()
	s.currentLine, s.currentLineNo = "", 0
	s.curMu.Unlock()
}

func (s *Session) currentLineSnapshot() (string, uint64) {
	s.curMu.RLock()
	defer s.curMu.RUnlock()
	return s.currentLine, s.currentLineNo
}

// submitOutgoing is the recursive alias-expansion path spec.md §4.6
// describes for session_send: match text against the alias class, run
// each firing body, and feed any lines it produces back through this
// same path, bounded by maxAliasDepth (trigger.rs's
// process_nested_outgoing_line). Text that matches nothing, or that
// has recursed to the depth limit, goes straight to the transport.
func (s *Session) submitOutgoing(text string, depth int) {
	if depth >= s.cfg.maxAliasDepth {
		s.sendRaw(text)
		return
	}
	fired := s.reg.Load().MatchInput(text)
	if len(fired) == 0 {
		s.sendRaw(text)
		return
	}
	for _, f := range fired {
		host := s.buildHost(nil, "", 0)
		match := script.Match{Line: text, Numbered: f.Numbered, Named: f.Named}
		outgoing, err := s.runScriptWithTimeout(f.Payload, match, host)
		if err != nil {
			s.cfg.logger.Error("alias body failed", "alias", f.Name, "err", err)
			continue
		}
		for _, out := range outgoing {
			s.submitOutgoing(out, depth+1)
		}
	}
}

func (s *Session) sendRaw(text string) {
	if s.transport == nil {
		return
	}
	if _, err := s.transport.Write(vt.EncodeOutbound(text + "\n")); err != nil {
		s.cfg.logger.Error("write to transport failed", "session", s.cfg.id, "err", err)
		return
	}
	s.buffer.Append(line.FromOutputStr(text))
	s.writeTranscript(text)
}

func (s *Session) echoLocal(l line.StyledLine) {
	s.buffer.Append(l)
	s.writeTranscript(l.PlainText())
}

func (s *Session) writeRaw(b []byte) {
	if s.transport == nil {
		return
	}
	if _, err := s.transport.Write(b); err != nil {
		s.cfg.logger.Error("write to transport failed", "session", s.cfg.id, "err", err)
	}
}
