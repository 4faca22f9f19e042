package main

import "testing"

func TestDirectoryRegisterAndLookup(t *testing.T) {
	dir := newDirectory()
	dir.register("main", "Zaphod", nil)

	info, ok := dir.Session("main")
	if !ok {
		t.Fatal("Session() ok = false, want true")
	}
	if info.Character != "Zaphod" {
		t.Fatalf("info.Character = %q, want Zaphod", info.Character)
	}

	if _, ok := dir.Session("missing"); ok {
		t.Fatal("Session() ok = true for unregistered id, want false")
	}
}

func TestDirectorySessionsListsAll(t *testing.T) {
	dir := newDirectory()
	dir.register("main", "Zaphod", nil)
	dir.register("alt", "Trillian", nil)

	sessions := dir.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("len(Sessions()) = %d, want 2", len(sessions))
	}
}

func TestDirectoryUnregisterRemoves(t *testing.T) {
	dir := newDirectory()
	dir.register("main", "Zaphod", nil)
	dir.unregister("main")

	if _, ok := dir.Session("main"); ok {
		t.Fatal("Session() ok = true after unregister, want false")
	}
}
