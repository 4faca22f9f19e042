// Command smudgy is the Session Runtime's CLI entrypoint: a
// multi-session MUD client that dials one or more remote servers,
// drives a session.Session per connection, and pumps player input and
// server output through a plain stdin/stdout terminal. Flags are
// parsed with github.com/spf13/pflag rather than the teacher's bare
// flag package (SPEC_FULL.md §1), following
// bureau-foundation-bureau/cmd/bureau-viewer/main.go's
// pflag.NewFlagSet + run() error + --help/--version convention.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/smudgy-mud/smudgy/internal/mapcache"
	"github.com/smudgy-mud/smudgy/internal/mudlog"
	"github.com/smudgy-mud/smudgy/internal/session"
)

const versionString = "smudgy 0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr           string
		serverName     string
		profileName    string
		character      string
		homeDir        string
		configPath     string
		startupPath    string
		scrollback     int
		scriptTimeout  int
		maxAliasDepth  int
		legacyEncoding bool
		noTranscript   bool
		showVersion    bool
	)

	// Peek at --config before building the real flag set: a config
	// file can name several profiles at once, in which case the
	// single-connection flags below are ignored.
	preConfig := scanConfigFlag(os.Args[1:])

	flagSet := pflag.NewFlagSet("smudgy", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", "", "address (host:port) of the MUD server to connect to")
	flagSet.StringVar(&serverName, "server-name", "", "short name for the server, used for the home directory and transcript path")
	flagSet.StringVar(&profileName, "profile", "default", "profile name for this connection")
	flagSet.StringVar(&character, "character", "", "character name exposed to scripts via get_session_character")
	flagSet.StringVar(&homeDir, "home", "", "home directory for transcripts (default $HOME/.smudgy)")
	flagSet.StringVar(&configPath, "config", "", "YAML file describing one or more connection profiles")
	flagSet.StringVar(&startupPath, "startup", "", "path to a Go source file whose Setup function runs at connect and reload")
	flagSet.IntVar(&scrollback, "scrollback", 0, "scrollback capacity in lines (0 = session default)")
	flagSet.IntVar(&scriptTimeout, "script-timeout", 0, "script wall-clock budget in milliseconds (0 = session default)")
	flagSet.IntVar(&maxAliasDepth, "max-alias-depth", 0, "recursive alias expansion depth limit (0 = session default)")
	flagSet.BoolVar(&legacyEncoding, "legacy-encoding", false, "decode incoming bytes as CP437 instead of UTF-8")
	flagSet.BoolVar(&noTranscript, "no-transcript", false, "disable per-session transcript logging")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println(versionString)
		return nil
	}

	if homeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("smudgy: determine home directory: %w", err)
		}
		homeDir = filepath.Join(home, ".smudgy")
	}

	var profiles []profileConfig
	if preConfig != "" {
		fc, err := loadFileConfig(preConfig)
		if err != nil {
			return err
		}
		if fc.Home != "" {
			homeDir = fc.Home
		}
		profiles = fc.Profiles
	} else {
		if addr == "" {
			return fmt.Errorf("smudgy: --addr is required (or pass --config with at least one profile)")
		}
		profiles = []profileConfig{{
			Name:                profileName,
			ServerName:          serverName,
			Address:             addr,
			Character:           character,
			StartupScript:       startupPath,
			ScrollbackCapacity:  scrollback,
			ScriptTimeoutMillis: scriptTimeout,
			MaxAliasDepth:       maxAliasDepth,
			LegacyEncoding:      legacyEncoding,
			NoTranscript:        noTranscript,
		}}
	}
	if len(profiles) == 0 {
		return fmt.Errorf("smudgy: no connection profiles to open")
	}

	backend := mapcache.NewMemoryBackend()
	cache := mapcache.New(backend, nil)
	dir := newDirectory()

	client := &client{homeDir: homeDir, cache: cache, dir: dir}
	if err := client.openAll(profiles); err != nil {
		client.closeAll()
		return err
	}
	defer client.closeAll()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go client.pumpStdin()
	client.pumpOutput(sig)
	return nil
}

// client owns every open session.Session for the process and the
// plain-terminal I/O loops that drive them, the CLI-side equivalent of
// server.go's handleConn loop but for an outbound multi-session client
// instead of a single inbound connection.
type client struct {
	homeDir string
	cache   *mapcache.Cache
	dir     *directory

	mu       sync.Mutex
	active   string
	order    []string
	sessions map[string]*session.Session
	printed  map[string]int
}

func (c *client) openAll(profiles []profileConfig) error {
	c.sessions = make(map[string]*session.Session, len(profiles))
	c.printed = make(map[string]int, len(profiles))
	for _, p := range profiles {
		if err := c.open(p); err != nil {
			return fmt.Errorf("smudgy: open profile %q: %w", p.Name, err)
		}
	}
	return nil
}

func (c *client) open(p profileConfig) error {
	if p.Address == "" {
		return fmt.Errorf("address is required")
	}
	name := p.Name
	if name == "" {
		name = "default"
	}
	serverName := p.ServerName
	if serverName == "" {
		serverName = sanitizeServerName(p.Address)
	}

	conn, err := net.Dial("tcp", p.Address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.Address, err)
	}

	logger := mudlog.New(os.Stderr, name)

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithMapCache(c.cache),
		session.WithDirectory(c.dir),
	}
	if p.ScrollbackCapacity > 0 {
		opts = append(opts, session.WithScrollbackCapacity(p.ScrollbackCapacity))
	}
	if p.ScriptTimeoutMillis > 0 {
		opts = append(opts, session.WithScriptTimeout(p.ScriptTimeoutMillis))
	}
	if p.MaxAliasDepth > 0 {
		opts = append(opts, session.WithMaxAliasDepth(p.MaxAliasDepth))
	}
	if p.LegacyEncoding {
		opts = append(opts, session.WithLegacyEncoding())
	}
	if p.StartupScript != "" {
		source, err := os.ReadFile(p.StartupScript)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("read startup script: %w", err)
		}
		opts = append(opts, session.WithStartupScript(string(source)))
	}
	if !p.NoTranscript {
		path := mudlog.TranscriptPath(c.homeDir, serverName, name, time.Now())
		transcript, err := mudlog.OpenTranscript(path)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("open transcript: %w", err)
		}
		opts = append(opts, session.WithTranscript(transcript))
	}

	sess := session.New(name, opts...)
	if err := sess.Connect(conn); err != nil {
		_ = conn.Close()
		return err
	}

	c.dir.register(name, p.Character, sess)

	c.mu.Lock()
	c.sessions[name] = sess
	c.printed[name] = 0
	c.order = append(c.order, name)
	if c.active == "" {
		c.active = name
	}
	c.mu.Unlock()

	fmt.Fprintf(os.Stderr, "smudgy: connected %q to %s\n", name, p.Address)
	return nil
}

func (c *client) closeAll() {
	c.mu.Lock()
	names := append([]string(nil), c.order...)
	c.mu.Unlock()
	for _, name := range names {
		c.mu.Lock()
		sess := c.sessions[name]
		c.mu.Unlock()
		if sess != nil {
			_ = sess.Close()
		}
		c.dir.unregister(name)
	}
}

// pumpStdin reads lines from the terminal and feeds them to the active
// session, or dispatches a leading "/" meta command ("/use <name>" to
// switch the active session, "/quit" to exit).
func (c *client) pumpStdin() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		text := scanner.Text()
		if handled := c.handleMeta(text); handled {
			continue
		}
		c.mu.Lock()
		active := c.active
		sess := c.sessions[active]
		c.mu.Unlock()
		if sess == nil {
			continue
		}
		if err := sess.SubmitInput(text); err != nil {
			fmt.Fprintf(os.Stderr, "smudgy: %s: %v\n", active, err)
		}
	}
}

func (c *client) handleMeta(text string) bool {
	if text == "/quit" {
		c.closeAll()
		os.Exit(0)
	}
	if strings.HasPrefix(text, "/use ") {
		name := strings.TrimSpace(strings.TrimPrefix(text, "/use "))
		c.mu.Lock()
		_, ok := c.sessions[name]
		if ok {
			c.active = name
		}
		c.mu.Unlock()
		if !ok {
			fmt.Fprintf(os.Stderr, "smudgy: no session named %q\n", name)
		}
		return true
	}
	return false
}

// pumpOutput polls every session's scrollback Snapshot (lock-free,
// never blocks the orchestrator per internal/line.ScrollbackBuffer's
// doc comment) and prints newly appended lines, prefixed with the
// session name when more than one profile is open. Runs until an
// interrupt signal arrives or every session has disconnected.
func (c *client) pumpOutput(sig <-chan os.Signal) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sig:
			return
		case <-ticker.C:
			if c.drainAll() == 0 && c.allDisconnected() {
				return
			}
		}
	}
}

func (c *client) drainAll() int {
	c.mu.Lock()
	names := append([]string(nil), c.order...)
	multi := len(names) > 1
	c.mu.Unlock()

	total := 0
	for _, name := range names {
		c.mu.Lock()
		sess := c.sessions[name]
		printed := c.printed[name]
		c.mu.Unlock()
		if sess == nil {
			continue
		}
		snap := sess.Buffer().Snapshot()
		if snap == nil || len(snap.Lines) == 0 {
			continue
		}
		// printed is the line number of the last line shown (0: none yet).
		// Resume right after that line's position, so printing goes on once
		// the ring is full and its length stops growing.
		start := 0
		for i, l := range snap.Lines {
			if l.LineNumber == uint64(printed) {
				start = i + 1
			}
		}
		if start == len(snap.Lines) {
			continue
		}
		for _, l := range snap.Lines[start:] {
			if multi {
				fmt.Printf("[%s] %s\n", name, l.PlainText())
			} else {
				fmt.Println(l.PlainText())
			}
		}
		total += len(snap.Lines) - start
		c.mu.Lock()
		c.printed[name] = int(snap.Lines[len(snap.Lines)-1].LineNumber)
		c.mu.Unlock()
	}
	return total
}

func (c *client) allDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sess := range c.sessions {
		if sess.State() != session.StateDisconnected {
			return false
		}
	}
	return true
}

func sanitizeServerName(addr string) string {
	name := strings.ReplaceAll(addr, ":", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return name
}
