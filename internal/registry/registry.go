// Package registry implements the Session Runtime's Trigger/Alias
// Registry: the user-facing add/enable/remove API layered on top of
// internal/pattern's matching engine, plus the normal-vs-raw and
// line-vs-prompt matching classes the original client's
// session/runtime/trigger.rs Manager maintains as four separate
// RegexSets (trigger/raw-trigger/prompt-trigger/prompt-raw-trigger).
// Aliases only ever match outgoing player input, so they need one
// pattern.PatternSet, not four.
package registry

import (
	"errors"

	"github.com/smudgy-mud/smudgy/internal/line"
	"github.com/smudgy-mud/smudgy/internal/pattern"
)

var errNoPatterns = errors.New("trigger must have at least one pattern or raw pattern")

// Action is the payload a Trigger or Alias carries: opaque to this
// package, interpreted by internal/script (a script body or a function
// handle) when a Match fires.
type Action[A any] struct {
	Name         string
	Patterns     []string
	RawPatterns  []string
	AntiPatterns []string
	FirePrompt   bool // also test this trigger's Patterns/RawPatterns against partial (prompt) lines
	Enabled      bool
	Payload      A
}

// Fired describes one Trigger or Alias that matched a line or input.
type Fired[A any] struct {
	Name     string
	Pattern  string
	Raw      bool // matched via RawPatterns rather than Patterns
	Numbered []string
	Named    map[string]string
	Payload  A
}

// Registry holds one session's triggers and aliases. A occurs as a type
// parameter so callers can carry whatever script-action representation
// internal/script defines without this package importing it.
type Registry[A any] struct {
	triggers    *pattern.PatternSet
	rawTriggers *pattern.PatternSet
	aliases     *pattern.PatternSet
	triggerData map[string]Action[A]
	aliasData   map[string]Action[A]
}

// New constructs an empty Registry.
func New[A any]() *Registry[A] {
	return &Registry[A]{
		triggers:    pattern.New(),
		rawTriggers: pattern.New(),
		aliases:     pattern.New(),
		triggerData: make(map[string]Action[A]),
		aliasData:   make(map[string]Action[A]),
	}
}

// AddTrigger registers a trigger in the normal and/or raw trigger class
// (whichever of Patterns/RawPatterns is non-empty). Returns
// pattern.ErrDuplicateName or pattern.ErrInvalidPattern on failure,
// leaving the registry unchanged.
func (r *Registry[A]) AddTrigger(a Action[A]) error {
	if len(a.Patterns) == 0 && len(a.RawPatterns) == 0 {
		return pattern.ErrInvalidPattern{Name: a.Name, Pattern: "", Err: errNoPatterns}
	}
	if _, exists := r.triggerData[a.Name]; exists {
		return pattern.ErrDuplicateName{Name: a.Name}
	}
	if len(a.Patterns) > 0 {
		if err := r.triggers.Add(a.Name, a.Patterns, a.AntiPatterns, a.Enabled); err != nil {
			return err
		}
	}
	if len(a.RawPatterns) > 0 {
		if err := r.rawTriggers.Add(a.Name, a.RawPatterns, a.AntiPatterns, a.Enabled); err != nil {
			r.triggers.Remove(a.Name)
			return err
		}
	}
	r.triggerData[a.Name] = a
	return nil
}

// AddAlias registers an alias.
func (r *Registry[A]) AddAlias(a Action[A]) error {
	if err := r.aliases.Add(a.Name, a.Patterns, a.AntiPatterns, a.Enabled); err != nil {
		return err
	}
	r.aliasData[a.Name] = a
	return nil
}

// RemoveTrigger deletes a trigger by name from both its pattern classes.
func (r *Registry[A]) RemoveTrigger(name string) bool {
	removed := r.triggers.Remove(name)
	removed = r.rawTriggers.Remove(name) || removed
	if removed {
		delete(r.triggerData, name)
	}
	return removed
}

// RemoveAlias deletes an alias by name.
func (r *Registry[A]) RemoveAlias(name string) bool {
	if r.aliases.Remove(name) {
		delete(r.aliasData, name)
		return true
	}
	return false
}

// SetTriggerEnabled toggles a trigger in both of its pattern classes.
func (r *Registry[A]) SetTriggerEnabled(name string, enabled bool) bool {
	ok := r.triggers.SetEnabled(name, enabled)
	ok = r.rawTriggers.SetEnabled(name, enabled) || ok
	if ok {
		if a, exists := r.triggerData[name]; exists {
			a.Enabled = enabled
			r.triggerData[name] = a
		}
	}
	return ok
}

// SetAliasEnabled toggles an alias.
func (r *Registry[A]) SetAliasEnabled(name string, enabled bool) bool {
	if !r.aliases.SetEnabled(name, enabled) {
		return false
	}
	if a, exists := r.aliasData[name]; exists {
		a.Enabled = enabled
		r.aliasData[name] = a
	}
	return true
}

// MatchLine tests an incoming StyledLine against the normal trigger
// class (plain decoded text) and, if l.Raw is non-empty, the raw
// trigger class too. When prompt is true, only triggers with FirePrompt
// set are considered — mirroring process_partial_line's separate
// prompt_trigger_regex_set in the original.
func (r *Registry[A]) MatchLine(l line.StyledLine, prompt bool) []Fired[A] {
	var out []Fired[A]
	for _, m := range r.triggers.Match(l.PlainText()) {
		a, ok := r.triggerData[m.Name]
		if !ok || (prompt && !a.FirePrompt) {
			continue
		}
		out = append(out, Fired[A]{Name: m.Name, Pattern: m.Pattern, Numbered: m.Numbered, Named: m.Named, Payload: a.Payload})
	}
	if l.Raw != "" {
		for _, m := range r.rawTriggers.MatchWithAntiText(l.Raw, l.PlainText()) {
			a, ok := r.triggerData[m.Name]
			if !ok || (prompt && !a.FirePrompt) {
				continue
			}
			out = append(out, Fired[A]{Name: m.Name, Pattern: m.Pattern, Raw: true, Numbered: m.Numbered, Named: m.Named, Payload: a.Payload})
		}
	}
	return out
}

// MatchInput tests a line of player input against the alias class.
func (r *Registry[A]) MatchInput(input string) []Fired[A] {
	var out []Fired[A]
	for _, m := range r.aliases.Match(input) {
		a, ok := r.aliasData[m.Name]
		if !ok {
			continue
		}
		out = append(out, Fired[A]{Name: m.Name, Pattern: m.Pattern, Numbered: m.Numbered, Named: m.Named, Payload: a.Payload})
	}
	return out
}

// Trigger returns the registered trigger Action by name, if any.
func (r *Registry[A]) Trigger(name string) (Action[A], bool) {
	a, ok := r.triggerData[name]
	return a, ok
}

// Alias returns the registered alias Action by name, if any.
func (r *Registry[A]) Alias(name string) (Action[A], bool) {
	a, ok := r.aliasData[name]
	return a, ok
}
