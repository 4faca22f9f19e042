package main

import (
	"sync"

	"github.com/smudgy-mud/smudgy/internal/session"
)

// directory is the process-wide session.Directory: the one place that
// knows about every open session.Session, so a script's get_sessions
// or get_session_character call in one profile can see its siblings.
// Grounded on session/config.go's Directory doc comment, which
// describes exactly this "registers/unregisters itself, never owned
// by Session" shape.
type directory struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	sess      *session.Session
	character string
}

func newDirectory() *directory {
	return &directory{sessions: make(map[string]*entry)}
}

func (d *directory) register(id, character string, sess *session.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[id] = &entry{sess: sess, character: character}
}

func (d *directory) unregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, id)
}

func (d *directory) Sessions() []session.Info {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]session.Info, 0, len(d.sessions))
	for id, e := range d.sessions {
		out = append(out, session.Info{ID: id, Character: e.character})
	}
	return out
}

func (d *directory) Session(id string) (session.Info, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.sessions[id]
	if !ok {
		return session.Info{}, false
	}
	return session.Info{ID: id, Character: e.character}, true
}
