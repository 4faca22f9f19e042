package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML defaults file (--config). It lists
// every connection profile the process should open at startup,
// matching spec.md's "a single process holds several concurrent
// network sessions" — each profile becomes one session.Session.
// Grounded on bureau-foundation-bureau/lib/config/config.go's
// yaml.v3-tagged struct-of-structs shape, trimmed to what a MUD client
// profile actually needs instead of that package's environment
// overrides machinery.
type fileConfig struct {
	Home     string          `yaml:"home"`
	Profiles []profileConfig `yaml:"profiles"`
}

// profileConfig is one named connection's settings. Flags passed on
// the command line seed a single implicit profile built from zero
// value fields here; a --config file can describe several at once.
type profileConfig struct {
	Name                string `yaml:"name"`
	ServerName          string `yaml:"server_name"`
	Address             string `yaml:"address"`
	Character           string `yaml:"character"`
	StartupScript       string `yaml:"startup_script"`
	ScrollbackCapacity  int    `yaml:"scrollback_capacity"`
	ScriptTimeoutMillis int    `yaml:"script_timeout_ms"`
	MaxAliasDepth       int    `yaml:"max_alias_depth"`
	LegacyEncoding      bool   `yaml:"legacy_encoding"`
	NoTranscript        bool   `yaml:"no_transcript"`
}

func loadFileConfig(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("smudgy: read config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("smudgy: parse config: %w", err)
	}
	return cfg, nil
}

// scanConfigFlag finds --config's value (if given) before the real
// pflag.FlagSet is built, the same "peek at os.Args before the real
// parse" trick bureau-viewer's main.go uses for --version.
func scanConfigFlag(args []string) string {
	for i, a := range args {
		switch {
		case a == "--config" && i+1 < len(args):
			return args[i+1]
		case len(a) > len("--config=") && a[:len("--config=")] == "--config=":
			return a[len("--config="):]
		}
	}
	return ""
}
