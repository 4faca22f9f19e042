package pattern

import "testing"

func TestAddDuplicateNameFails(t *testing.T) {
	ps := New()
	if err := ps.Add("t1", []string{"hello"}, nil, true); err != nil {
		t.Fatalf("Add() = %v, want nil", err)
	}
	err := ps.Add("t1", []string{"world"}, nil, true)
	if _, ok := err.(ErrDuplicateName); !ok {
		t.Fatalf("Add() duplicate error = %v, want ErrDuplicateName", err)
	}
}

func TestAddInvalidPatternFails(t *testing.T) {
	ps := New()
	err := ps.Add("bad", []string{"("}, nil, true)
	if _, ok := err.(ErrInvalidPattern); !ok {
		t.Fatalf("Add() invalid pattern error = %v, want ErrInvalidPattern", err)
	}
}

func TestMatchFiresInRegistrationOrder(t *testing.T) {
	ps := New()
	_ = ps.Add("second", []string{"foo"}, nil, true)
	_ = ps.Add("first", []string{"foo"}, nil, true)
	matches := ps.Match("foo bar")
	if len(matches) != 2 {
		t.Fatalf("matches = %+v, want 2", matches)
	}
	if matches[0].Name != "second" || matches[1].Name != "first" {
		t.Fatalf("match order = %q,%q, want registration order second,first", matches[0].Name, matches[1].Name)
	}
}

func TestMatchSkipsDisabledEntries(t *testing.T) {
	ps := New()
	_ = ps.Add("t1", []string{"foo"}, nil, false)
	if matches := ps.Match("foo"); len(matches) != 0 {
		t.Fatalf("matches = %+v, want none for disabled entry", matches)
	}
}

func TestMatchHonorsAntiPattern(t *testing.T) {
	ps := New()
	_ = ps.Add("t1", []string{"hp: (\\d+)"}, []string{"hp: 0"}, true)
	if matches := ps.Match("hp: 0"); len(matches) != 0 {
		t.Fatalf("matches = %+v, want none (anti-pattern matched)", matches)
	}
	matches := ps.Match("hp: 42")
	if len(matches) != 1 || matches[0].Numbered[0] != "42" {
		t.Fatalf("matches = %+v, want a single match with group 42", matches)
	}
}

func TestMatchWithAntiTextChecksAntiPatternAgainstSeparateText(t *testing.T) {
	ps := New()
	_ = ps.Add("t1", []string{`\x1b\[31m`}, []string{"danger"}, true)
	matches := ps.MatchWithAntiText("\x1b[31mdanger\x1b[0m", "danger")
	if len(matches) != 0 {
		t.Fatalf("matches = %+v, want none (anti-pattern matched antiText)", matches)
	}
	matches = ps.MatchWithAntiText("\x1b[31msafe\x1b[0m", "safe")
	if len(matches) != 1 {
		t.Fatalf("matches = %+v, want one match (antiText didn't match)", matches)
	}
}

func TestMatchFiresOnceEvenWithMultiplePatterns(t *testing.T) {
	ps := New()
	_ = ps.Add("t1", []string{"foo", "oo"}, nil, true)
	matches := ps.Match("foo")
	if len(matches) != 1 {
		t.Fatalf("matches = %+v, want 1 (entry fires once per line)", matches)
	}
	if matches[0].Pattern != "foo" {
		t.Fatalf("matched pattern = %q, want the first pattern that matched", matches[0].Pattern)
	}
}

func TestMatchFallsBackToRegexp2ForBackreference(t *testing.T) {
	ps := New()
	if err := ps.Add("dup", []string{`(\w+) \1`}, nil, true); err != nil {
		t.Fatalf("Add() = %v, want nil (regexp2 should accept backreferences)", err)
	}
	matches := ps.Match("echo echo")
	if len(matches) != 1 || matches[0].Backend != BackendRegexp2 {
		t.Fatalf("matches = %+v, want one BackendRegexp2 match", matches)
	}
}

func TestRemovePreservesOrderOfRemaining(t *testing.T) {
	ps := New()
	_ = ps.Add("a", []string{"x"}, nil, true)
	_ = ps.Add("b", []string{"x"}, nil, true)
	_ = ps.Add("c", []string{"x"}, nil, true)
	if !ps.Remove("b") {
		t.Fatalf("Remove(b) = false, want true")
	}
	matches := ps.Match("x")
	if len(matches) != 2 || matches[0].Name != "a" || matches[1].Name != "c" {
		t.Fatalf("matches = %+v, want a,c", matches)
	}
}

func TestSetEnabledTogglesFiring(t *testing.T) {
	ps := New()
	_ = ps.Add("t1", []string{"x"}, nil, false)
	if matches := ps.Match("x"); len(matches) != 0 {
		t.Fatalf("matches = %+v, want none before enabling", matches)
	}
	if !ps.SetEnabled("t1", true) {
		t.Fatalf("SetEnabled(t1, true) = false, want true")
	}
	if matches := ps.Match("x"); len(matches) != 1 {
		t.Fatalf("matches = %+v, want one after enabling", matches)
	}
}
