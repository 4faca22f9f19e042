package session

import (
	"fmt"
	"time"

	"github.com/smudgy-mud/smudgy/internal/script"
)

// runScriptWithTimeout runs action on a helper goroutine and enforces
// the session's wall-clock script budget (spec.md §4.7 "hard timeouts
// on script execution are fatal to that particular body only"). A body
// that blows its budget is abandoned: Executor.Run keeps running on its
// own goroutine, but nothing further waits on it, and any line-edit host
// operation it still calls afterwards can only touch a line-local
// edit.Queue that has already been drained and discarded, never a
// later line's.
func (s *Session) runScriptWithTimeout(action script.Action, match script.Match, host script.Host) ([]string, error) {
	type result struct {
		out []string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := s.executor.Run(action, match, host)
		done <- result{out, err}
	}()
	select {
	case r := <-done:
		return r.out, r.err
	case <-time.After(time.Duration(s.cfg.scriptTimeoutMillis) * time.Millisecond):
		return nil, fmt.Errorf("script: exceeded %dms budget", s.cfg.scriptTimeoutMillis)
	}
}
