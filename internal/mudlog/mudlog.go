// Package mudlog is the Session Runtime's ambient logging layer: a
// charmbracelet/log-backed structured logger plus a per-session
// transcript file sink. Grounded on
// hylarucoder-codectl/internal/system/logger.go (the
// clog.NewWithOptions(os.Stderr, ...) construction this package's New
// generalizes from one package-level logger to one per session) and
// original_source/core/src/session/runtime.rs's start_logging/
// flush_buffer_updates (the per-session log file's path layout and its
// write-then-flush discipline).
package mudlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a logger tagged with the given session id, writing to w
// with timestamps enabled — the same clog.NewWithOptions construction
// as the teacher's system.Logger, scoped per session instead of
// process-global.
func New(w io.Writer, sessionID string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{ReportTimestamp: true})
	return logger.With("session", sessionID)
}

// TranscriptPath builds the per-session transcript path start_logging
// computes: <home>/<serverName>/logs/<profileName>-<timestamp>.log.
func TranscriptPath(home, serverName, profileName string, at time.Time) string {
	name := fmt.Sprintf("%s-%s.log", profileName, at.Format("2006-01-02_15-04-05"))
	return filepath.Join(home, serverName, "logs", name)
}

// Transcript is a buffered, append-only sink for a session's completed
// output lines, mirroring runtime.rs's Option<BufWriter<File>>
// log_file: every line is written verbatim plus a trailing newline,
// then flushed immediately, so a crash loses at most the write that
// was in flight rather than the whole buffered tail.
type Transcript struct {
	f *os.File
	w *bufio.Writer
}

// OpenTranscript creates (truncating) the file at path, creating its
// parent directory tree first.
func OpenTranscript(path string) (*Transcript, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mudlog: create log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("mudlog: create log file: %w", err)
	}
	return &Transcript{f: f, w: bufio.NewWriterSize(f, 65536)}, nil
}

// WriteLine appends text and a trailing newline, then flushes.
func (t *Transcript) WriteLine(text string) error {
	if _, err := t.w.WriteString(text); err != nil {
		return err
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return err
	}
	return t.w.Flush()
}

// Close flushes and closes the underlying file.
func (t *Transcript) Close() error {
	if err := t.w.Flush(); err != nil {
		_ = t.f.Close()
		return err
	}
	return t.f.Close()
}
