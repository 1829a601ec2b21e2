package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/metalfabric/swadm/pkg/dialect"
	"github.com/metalfabric/swadm/pkg/util"
)

// stdinRecorder captures shell writes and hands each one to the scripted
// device goroutine, so responses are only emitted after the command
// arrived.
type stdinRecorder struct {
	mu     sync.Mutex
	writes []string
	ch     chan string
}

func newStdinRecorder() *stdinRecorder {
	return &stdinRecorder{ch: make(chan string, 8)}
}

func (r *stdinRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	r.writes = append(r.writes, string(p))
	r.mu.Unlock()
	r.ch <- string(p)
	return len(p), nil
}

func (r *stdinRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

func newTestShell(t *testing.T, idle time.Duration) (*shell, *stdinRecorder, *io.PipeWriter) {
	t.Helper()
	d, err := dialect.Lookup("huawei")
	if err != nil {
		t.Fatalf("Lookup(huawei): %v", err)
	}

	rec := newStdinRecorder()
	sh := newShell("192.0.2.10:22", d, rec, idle)

	pr, pw := io.Pipe()
	go sh.readLoop(pr)
	t.Cleanup(func() { pw.Close() })

	return sh, rec, pw
}

func TestExchangeReadsUntilPromptAndDropsEcho(t *testing.T) {
	sh, rec, pw := newTestShell(t, time.Second)

	go func() {
		<-rec.ch
		pw.Write([]byte("display version\r\n"))
		pw.Write([]byte("VRP (R) software, Version 8.1\r\n"))
		pw.Write([]byte("<Switch>"))
	}()

	out, err := sh.Run(context.Background(), "display version")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "VRP (R) software, Version 8.1" {
		t.Errorf("output = %q, want the body without echo or prompt", out)
	}
	if got := rec.all(); len(got) != 1 || got[0] != "display version\r\n" {
		t.Errorf("stdin writes = %q, want the CRLF-terminated command", got)
	}
}

func TestExchangeNormalizesCarriageReturns(t *testing.T) {
	sh, rec, pw := newTestShell(t, time.Second)

	go func() {
		<-rec.ch
		pw.Write([]byte("Building configuration\r... done\r\n"))
		pw.Write([]byte("Info: ok\r\n"))
		pw.Write([]byte("[Switch-vlan100]"))
	}()

	out, err := sh.Run(context.Background(), "vlan 100")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "Building configuration... done\nInfo: ok"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestExchangeAnswersConfirmationPrompt(t *testing.T) {
	sh, rec, pw := newTestShell(t, time.Second)

	go func() {
		<-rec.ch
		pw.Write([]byte("save\r\nWarning: The current configuration will be saved. Continue? [Y/N]:"))
		answer := <-rec.ch
		if !strings.HasPrefix(answer, "Y") {
			pw.Write([]byte("Error: aborted\r\n<Switch>"))
			return
		}
		pw.Write([]byte("\r\nInfo: Save the configuration successfully.\r\n<Switch>"))
	}()

	out, err := sh.RunConfirm(context.Background(), "save", "[Y/N]", "Y")
	if err != nil {
		t.Fatalf("RunConfirm: %v", err)
	}
	if !strings.Contains(out, "successfully") {
		t.Errorf("output = %q, want the post-confirmation result", out)
	}
	got := rec.all()
	if len(got) != 2 || got[0] != "save\r\n" || got[1] != "Y\r\n" {
		t.Errorf("stdin writes = %q, want command then confirmation", got)
	}
}

func TestExchangeFailsWhenDeviceGoesSilent(t *testing.T) {
	sh, _, _ := newTestShell(t, 50*time.Millisecond)

	start := time.Now()
	_, err := sh.Run(context.Background(), "display version")
	if !errors.Is(err, util.ErrConnectionFailed) {
		t.Fatalf("Run against silent device = %v, want ErrConnectionFailed", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("idle timeout fired after %v, want around 50ms", elapsed)
	}
}

func TestExchangeHonorsContextCancellation(t *testing.T) {
	sh, _, _ := newTestShell(t, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if _, err := sh.Run(ctx, "display version"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
}

// endlessReader produces output forever, standing in for a device that
// keeps talking after the exchange was abandoned.
type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	p[0] = 'x'
	return 1, nil
}

func TestReadLoopExitsOnCloseWhenBufferFull(t *testing.T) {
	d, _ := dialect.Lookup("huawei")
	sh := &shell{
		addr:   "192.0.2.10:22",
		d:      d,
		stdin:  &bytes.Buffer{},
		chunks: make(chan readChunk, 1),
		done:   make(chan struct{}),
		idle:   time.Second,
	}

	exited := make(chan struct{})
	go func() {
		sh.readLoop(endlessReader{})
		close(exited)
	}()

	// Nobody consumes chunks; the loop ends up blocked on a full buffer.
	time.Sleep(20 * time.Millisecond)
	close(sh.done)

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("readLoop still running after the connection was closed")
	}
}

func TestDialerTimeoutDefaults(t *testing.T) {
	var d SSHDialer
	if d.dialTimeout() != defaultDialTimeout {
		t.Errorf("dialTimeout() = %v, want %v", d.dialTimeout(), defaultDialTimeout)
	}
	if d.idleTimeout() != defaultIdleTimeout {
		t.Errorf("idleTimeout() = %v, want %v", d.idleTimeout(), defaultIdleTimeout)
	}

	d = SSHDialer{DialTimeout: time.Second, IdleTimeout: 2 * time.Second}
	if d.dialTimeout() != time.Second || d.idleTimeout() != 2*time.Second {
		t.Errorf("explicit timeouts not honored: %v / %v", d.dialTimeout(), d.idleTimeout())
	}
}

func TestDialFailsWhenHandshakeStalls(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	stop := make(chan struct{})
	t.Cleanup(func() { close(stop); ln.Close() })

	// Accept the TCP connection and never speak SSH.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		<-stop
		conn.Close()
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	profile, err := dialect.NewProfile(host, "admin", "secret", "huawei")
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		t.Fatal(err)
	}
	profile.Port = portNum

	d := &SSHDialer{DialTimeout: 100 * time.Millisecond}
	start := time.Now()
	if _, err := d.Dial(context.Background(), profile); err == nil {
		t.Fatal("Dial against a silent listener succeeded")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("Dial returned after %v, want within the 100ms attempt bound", elapsed)
	}
}
