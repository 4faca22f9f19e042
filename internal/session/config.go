// Package session implements the Session Runtime's orchestrator: the
// per-connection state machine and the cooperative inbound/outbound
// pipelines that tie internal/vt, internal/line, internal/registry,
// internal/edit and internal/script together. Grounded on the original
// client's session/runtime.rs Inner/Runtime split (an actor owning one
// connection, driven by an action queue) and, for the idiomatic Go
// shape of a per-connection goroutine pair reading/writing a
// net.Conn-like transport, the teacher's server.go handleConn.
package session

import (
	"github.com/charmbracelet/log"

	"github.com/smudgy-mud/smudgy/internal/mapcache"
)

const (
	defaultScrollbackCapacity  = 10000
	defaultPromptIdleThreshold = 250
	defaultScriptTimeoutMillis = 500
	defaultMaxAliasDepth       = 100
)

// Directory lets a Session answer script introspection calls
// (get_sessions, get_session_character) about sibling sessions without
// this package importing whatever owns the session collection — the
// same shape as the original's session::registry module, which
// Runtime registers/unregisters itself with but never owns.
type Directory interface {
	Sessions() []Info
	Session(id string) (Info, bool)
}

// Info is the introspectable summary of one session.
type Info struct {
	ID        string
	Character string
}

type nullDirectory struct{}

func (nullDirectory) Sessions() []Info            { return nil }
func (nullDirectory) Session(string) (Info, bool) { return Info{}, false }

// Transcript receives the plain text of every line the session appends
// to its scrollback, mirroring runtime.rs's Inner.log_file sink.
// internal/mudlog.Transcript satisfies this; a Session never imports
// internal/mudlog itself, the same decoupling Directory gets.
type Transcript interface {
	WriteLine(text string) error
}

// Config collects a Session's tunables. Construct with New, which
// applies spec.md §6's documented defaults, then Options.
type Config struct {
	id                  string
	scrollbackCapacity  int
	promptIdleThreshold int // milliseconds
	scriptTimeoutMillis int
	maxAliasDepth       int
	legacyEncoding      bool
	startupSource       string
	logger              *log.Logger
	mapCache            *mapcache.Cache
	directory           Directory
	transcript          Transcript
}

func defaultConfig(id string) Config {
	return Config{
		id:                  id,
		scrollbackCapacity:  defaultScrollbackCapacity,
		promptIdleThreshold: defaultPromptIdleThreshold,
		scriptTimeoutMillis: defaultScriptTimeoutMillis,
		maxAliasDepth:       defaultMaxAliasDepth,
		logger:              log.Default(),
		directory:           nullDirectory{},
	}
}

// Option customises a Session's Config, mirroring the teacher's
// ServerOption/serverOptions functional-option pattern
// (internal/game/server.go's WithMailPath/WithTellPath/WithStoragePaths).
type Option func(*Config)

// WithScrollbackCapacity overrides the default 10000-line scrollback.
func WithScrollbackCapacity(n int) Option {
	return func(c *Config) { c.scrollbackCapacity = n }
}

// WithPromptIdleThreshold overrides the default 250ms prompt idle
// threshold (how long a partial line without GA/EOR waits before it
// counts as a prompt). The value is only stored in the Config: this
// package runs no idle timer and nothing reads the value, so a partial
// line becomes a prompt only on GA/EOR.
func WithPromptIdleThreshold(ms int) Option {
	return func(c *Config) { c.promptIdleThreshold = ms }
}

// WithScriptTimeout overrides the default 500ms script wall-clock budget.
func WithScriptTimeout(ms int) Option {
	return func(c *Config) { c.scriptTimeoutMillis = ms }
}

// WithMaxAliasDepth overrides the default 100-deep recursive alias
// expansion limit (trigger.rs's process_nested_outgoing_line depth cap).
func WithMaxAliasDepth(n int) Option {
	return func(c *Config) { c.maxAliasDepth = n }
}

// WithLegacyEncoding decodes the connection's incoming bytes as CP437
// instead of UTF-8 (internal/vt.WithLegacyEncoding).
func WithLegacyEncoding() Option {
	return func(c *Config) { c.legacyEncoding = true }
}

// WithLogger overrides the session's logger (default log.Default()).
func WithLogger(logger *log.Logger) Option {
	return func(c *Config) { c.logger = logger }
}

// WithMapCache attaches a Shared Map Cache so scripts' mapper host
// operations have something to act on. A Session with no map cache
// still runs; its mapper write operations return an error and its
// mapper read operations return an empty result.
func WithMapCache(cache *mapcache.Cache) Option {
	return func(c *Config) { c.mapCache = cache }
}

// WithDirectory attaches the multi-session directory get_sessions and
// get_session_character consult.
func WithDirectory(dir Directory) Option {
	return func(c *Config) { c.directory = dir }
}

// WithStartupScript sets the source run (its Setup function) on Connect
// and every session_reload, the Go-script equivalent of the original's
// per-profile startup script set.
func WithStartupScript(source string) Option {
	return func(c *Config) { c.startupSource = source }
}

// WithTranscript attaches a sink that receives the plain text of every
// line the session appends to its scrollback (internal/mudlog.Transcript).
func WithTranscript(t Transcript) Option {
	return func(c *Config) { c.transcript = t }
}
