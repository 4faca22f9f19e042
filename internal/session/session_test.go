package session

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/smudgy-mud/smudgy/internal/vt"
)

func newConnectedPair(t *testing.T, opts ...Option) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	sess := New("test", opts...)
	// Connect writes the telnet handshake before it returns, and net.Pipe
	// is unbuffered, so the client end reads it off concurrently.
	handshake := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(client, make([]byte, len(vt.Handshake())))
		handshake <- err
	}()
	if err := sess.Connect(server); err != nil {
		t.Fatalf("Connect() = %v, want nil", err)
	}
	if err := <-handshake; err != nil {
		t.Fatalf("reading the handshake = %v, want nil", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess, client
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString() = %v, want nil", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func TestConnectTransitionsToConnected(t *testing.T) {
	sess, _ := newConnectedPair(t)
	if got := sess.State(); got != StateConnected {
		t.Fatalf("State() = %v, want %v", got, StateConnected)
	}
}

func TestConnectTwiceFails(t *testing.T) {
	sess, _ := newConnectedPair(t)
	if err := sess.Connect(nil); err == nil {
		t.Fatalf("second Connect() = nil, want an error")
	}
}

func TestCloseTransitionsToDisconnected(t *testing.T) {
	sess, _ := newConnectedPair(t)
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}
	if got := sess.State(); got != StateDisconnected {
		t.Fatalf("State() after Close() = %v, want %v", got, StateDisconnected)
	}
}

func TestSubmitInputWithNoAliasesGoesStraightToTransport(t *testing.T) {
	sess, client := newConnectedPair(t)
	reader := bufio.NewReader(client)

	if err := sess.SubmitInput("look"); err != nil {
		t.Fatalf("SubmitInput() = %v, want nil", err)
	}
	if got := readLine(t, reader); got != "look" {
		t.Fatalf("transport received %q, want %q", got, "look")
	}
}

func TestSubmitInputBeforeConnectFails(t *testing.T) {
	sess := New("test")
	if err := sess.SubmitInput("look"); err != ErrNotConnected {
		t.Fatalf("SubmitInput() before Connect = %v, want ErrNotConnected", err)
	}
}

func TestStartupScriptRegistersAlias(t *testing.T) {
	startup := `
func Setup(host map[string]any) {
	createAlias := host["create_simple_alias"].(func(string, []string, string) error)
	createAlias("gg", []string{"^gg$"}, "get all from corpse")
}
`
	sess, client := newConnectedPair(t, WithStartupScript(startup))
	reader := bufio.NewReader(client)

	if err := sess.SubmitInput("gg"); err != nil {
		t.Fatalf("SubmitInput() = %v, want nil", err)
	}
	if got := readLine(t, reader); got != "get all from corpse" {
		t.Fatalf("transport received %q, want %q", got, "get all from corpse")
	}
}

func TestIncomingLineFiresSimpleTriggerAutoReply(t *testing.T) {
	startup := `
func Setup(host map[string]any) {
	createTrigger := host["create_simple_trigger"].(func(string, []string, []string, []string, bool, string) error)
	createTrigger("hp-low", []string{"HP: 1$"}, nil, nil, false, "quaff potion")
}
`
	_, client := newConnectedPair(t, WithStartupScript(startup))
	reader := bufio.NewReader(client)

	if _, err := client.Write([]byte("HP: 1\r\n")); err != nil {
		t.Fatalf("Write() = %v, want nil", err)
	}
	if got := readLine(t, reader); got != "quaff potion" {
		t.Fatalf("transport received %q, want %q", got, "quaff potion")
	}
}

func TestGaggedLineIsNotAppendedButConsumesANumber(t *testing.T) {
	startup := `
func Setup(host map[string]any) {
	createTrigger := host["create_fn_trigger"].(func(string, []string, []string, []string, bool, string, string) error)
	createTrigger("hide-spam", []string{"spam"}, nil, nil, false, ` + "`" + `
func Gag(host map[string]any) {
	gag := host["line_gag"].(func())
	gag()
}
` + "`" + `, "Gag")
}
`
	sess, client := newConnectedPair(t, WithStartupScript(startup))

	before := sess.Buffer().NextLineNumber()
	if _, err := client.Write([]byte("this is spam\r\n")); err != nil {
		t.Fatalf("Write() = %v, want nil", err)
	}
	// give the orchestrator goroutine time to process the line.
	waitUntil(t, func() bool { return sess.Buffer().NextLineNumber() > before })

	snap := sess.Buffer().Snapshot()
	for _, l := range snap.Lines {
		if l.PlainText() == "this is spam" {
			t.Fatalf("gagged line was appended to scrollback: %+v", l)
		}
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never became true")
}
