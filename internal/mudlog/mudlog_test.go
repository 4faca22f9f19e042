package mudlog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewTagsLoggerWithSessionID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "abc123")
	logger.Info("hello")
	if got := buf.String(); !bytes.Contains([]byte(got), []byte("abc123")) {
		t.Fatalf("log output %q does not contain session id", got)
	}
}

func TestTranscriptPathLayout(t *testing.T) {
	at := time.Date(2026, 8, 3, 14, 5, 9, 0, time.UTC)
	got := TranscriptPath("/home/user/.smudgy", "discworld", "default", at)
	want := filepath.Join("/home/user/.smudgy", "discworld", "logs", "default-2026-08-03_14-05-09.log")
	if got != want {
		t.Fatalf("TranscriptPath() = %q, want %q", got, want)
	}
}

func TestTranscriptWritesLinesAndFlushes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "session.log")

	tr, err := OpenTranscript(path)
	if err != nil {
		t.Fatalf("OpenTranscript() = %v, want nil", err)
	}
	if err := tr.WriteLine("You see a room."); err != nil {
		t.Fatalf("WriteLine() = %v, want nil", err)
	}
	if err := tr.WriteLine("Exits: north, south."); err != nil {
		t.Fatalf("WriteLine() = %v, want nil", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() = %v, want nil", err)
	}
	want := "You see a room.\nExits: north, south.\n"
	if string(data) != want {
		t.Fatalf("file contents = %q, want %q", data, want)
	}
}
