// Package pattern implements the Session Runtime's Pattern Set: a named
// collection of regular expressions, each optionally guarded by
// anti-patterns, matched against an incoming line in registration order.
// It is grounded on the original client's session/runtime/trigger.rs
// Manager, which builds one regex::RegexSet per trigger class so a whole
// batch of patterns can be tested in one pass. Go's stdlib regexp has no
// RegexSet equivalent, but its RE2 engine already matches in time linear
// in the input regardless of how many alternatives a pattern has, so the
// "combined automaton" here is simply: compile everything with regexp
// first, and only fall back to github.com/dlclark/regexp2 (a slower,
// backtracking engine) for the syntax RE2 structurally cannot express —
// backreferences and lookaround — which the original's Rust regex crate
// does not support either, so anything needing it in Smudgy scripts is
// already an opt-in performance tradeoff.
package pattern

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/dlclark/regexp2"
)

// Backend identifies which regex engine compiled a pattern.
type Backend int

const (
	BackendRE2 Backend = iota
	BackendRegexp2
)

func (b Backend) String() string {
	if b == BackendRegexp2 {
		return "regexp2"
	}
	return "re2"
}

type compiled struct {
	source  string
	backend Backend
	re      *regexp.Regexp
	re2     *regexp2.Regexp
}

func compile(pattern string) (*compiled, error) {
	if re, err := regexp.Compile(pattern); err == nil {
		return &compiled{source: pattern, backend: BackendRE2, re: re}, nil
	}
	re2, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return &compiled{source: pattern, backend: BackendRegexp2, re2: re2}, nil
}

// match reports whether s matches, along with numbered ($1, $2, ...) and
// named capture groups when it does.
func (c *compiled) match(s string) (bool, []string, map[string]string) {
	if c.re != nil {
		m := c.re.FindStringSubmatch(s)
		if m == nil {
			return false, nil, nil
		}
		names := c.re.SubexpNames()
		return true, m[1:], namedGroups(names, m)
	}
	m, err := c.re2.FindStringMatch(s)
	if err != nil || m == nil {
		return false, nil, nil
	}
	groups := m.Groups()
	numbered := make([]string, 0, len(groups)-1)
	named := make(map[string]string)
	for _, g := range groups {
		if g.Name == "0" {
			continue
		}
		text := ""
		if len(g.Captures) > 0 {
			text = g.Captures[len(g.Captures)-1].String()
		}
		if _, err := fmt.Sscanf(g.Name, "%d", new(int)); err == nil {
			numbered = append(numbered, text)
		} else {
			named[g.Name] = text
		}
	}
	return true, numbered, named
}

func namedGroups(names []string, m []string) map[string]string {
	var out map[string]string
	for i, name := range names {
		if name == "" || i == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[name] = m[i]
	}
	return out
}

func matchAny(patterns []*compiled, s string) bool {
	for _, p := range patterns {
		if ok, _, _ := p.match(s); ok {
			return true
		}
	}
	return false
}

// Entry is one registered pattern-matching unit: a Trigger or an Alias,
// from the caller's point of view (this package is agnostic to which).
type Entry struct {
	Name         string
	patterns     []*compiled
	antiPatterns []*compiled
	Enabled      bool
}

// Match describes one firing of an Entry against a line.
type Match struct {
	Name     string
	Pattern  string
	Backend  Backend
	Numbered []string
	Named    map[string]string
}

// ErrDuplicateName is returned by Add when name is already registered.
type ErrDuplicateName struct{ Name string }

func (e ErrDuplicateName) Error() string { return fmt.Sprintf("pattern set: duplicate name %q", e.Name) }

// ErrInvalidPattern wraps a pattern compilation failure with the entry name.
type ErrInvalidPattern struct {
	Name    string
	Pattern string
	Err     error
}

func (e ErrInvalidPattern) Error() string {
	return fmt.Sprintf("pattern set: entry %q: invalid pattern %q: %v", e.Name, e.Pattern, e.Err)
}

func (e ErrInvalidPattern) Unwrap() error { return e.Err }

// PatternSet holds a registration-ordered list of Entries and matches a
// line against all of them, firing at most once per entry per line: the
// first pattern in an entry that matches (and whose entry has no
// matching anti-pattern) wins, mirroring trigger.rs's chunk_by grouping
// of RegexSet hits back to their owning trigger.
type PatternSet struct {
	mu      sync.RWMutex
	entries []*Entry
	byName  map[string]int
}

// New returns an empty PatternSet.
func New() *PatternSet {
	return &PatternSet{byName: make(map[string]int)}
}

// Add registers a new entry. Patterns and antiPatterns are compiled
// eagerly so a bad pattern is rejected at registration time rather than
// at match time.
func (ps *PatternSet) Add(name string, patterns, antiPatterns []string, enabled bool) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.byName[name]; exists {
		return ErrDuplicateName{Name: name}
	}

	e := &Entry{Name: name, Enabled: enabled}
	for _, p := range patterns {
		c, err := compile(p)
		if err != nil {
			return ErrInvalidPattern{Name: name, Pattern: p, Err: err}
		}
		e.patterns = append(e.patterns, c)
	}
	for _, p := range antiPatterns {
		c, err := compile(p)
		if err != nil {
			return ErrInvalidPattern{Name: name, Pattern: p, Err: err}
		}
		e.antiPatterns = append(e.antiPatterns, c)
	}

	ps.byName[name] = len(ps.entries)
	ps.entries = append(ps.entries, e)
	return nil
}

// Remove deletes an entry by name, reindexing byName for everything after
// it so registration order (and thus firing order) is preserved.
func (ps *PatternSet) Remove(name string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	idx, ok := ps.byName[name]
	if !ok {
		return false
	}
	ps.entries = append(ps.entries[:idx], ps.entries[idx+1:]...)
	delete(ps.byName, name)
	for n, i := range ps.byName {
		if i > idx {
			ps.byName[n] = i - 1
		}
	}
	return true
}

// SetEnabled toggles an entry without removing or reordering it.
func (ps *PatternSet) SetEnabled(name string, enabled bool) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	idx, ok := ps.byName[name]
	if !ok {
		return false
	}
	ps.entries[idx].Enabled = enabled
	return true
}

// Len reports how many entries are registered, enabled or not.
func (ps *PatternSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.entries)
}

// Match tests line against every enabled entry in registration order and
// returns one Match per entry that fired. Anti-patterns are also checked
// against line; for a class where the anti-pattern check must run
// against different text (spec.md §4.4: raw triggers still check
// anti-patterns against the plain-text line), use MatchWithAntiText.
func (ps *PatternSet) Match(line string) []Match {
	return ps.match(line, line)
}

// MatchWithAntiText is Match, but anti-patterns are checked against
// antiText instead of line — the raw-trigger class's patterns run
// against the escape-laden raw text while its anti-patterns still run
// against the plain decoded text (spec.md §4.4).
func (ps *PatternSet) MatchWithAntiText(line, antiText string) []Match {
	return ps.match(line, antiText)
}

func (ps *PatternSet) match(line, antiText string) []Match {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var out []Match
	for _, e := range ps.entries {
		if !e.Enabled {
			continue
		}
		if len(e.antiPatterns) > 0 && matchAny(e.antiPatterns, antiText) {
			continue
		}
		for _, p := range e.patterns {
			ok, numbered, named := p.match(line)
			if !ok {
				continue
			}
			out = append(out, Match{
				Name:     e.Name,
				Pattern:  p.source,
				Backend:  p.backend,
				Numbered: numbered,
				Named:    named,
			})
			break
		}
	}
	return out
}
