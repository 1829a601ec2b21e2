package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/metalfabric/swadm/pkg/dialect"
	"github.com/metalfabric/swadm/pkg/util"
)

// SSHDialer opens interactive PTY shells on switches over SSH. Switch CLIs
// are line-oriented shells behind a prompt, not exec channels, so every
// exchange is written to the shell's stdin and read back until the next
// prompt line.
type SSHDialer struct {
	// DialTimeout bounds one TCP+handshake attempt. Retrying failed
	// attempts is the gateway's job, not the dialer's. Zero selects a
	// default; a dial attempt is never unbounded.
	DialTimeout time.Duration

	// IdleTimeout bounds the silent gap within a single exchange. A hung
	// device mid-session fails the exchange instead of holding a lock
	// slot indefinitely.
	IdleTimeout time.Duration
}

const (
	defaultDialTimeout = 30 * time.Second
	defaultIdleTimeout = 30 * time.Second
)

func (d *SSHDialer) dialTimeout() time.Duration {
	if d.DialTimeout > 0 {
		return d.DialTimeout
	}
	return defaultDialTimeout
}

func (d *SSHDialer) idleTimeout() time.Duration {
	if d.IdleTimeout > 0 {
		return d.IdleTimeout
	}
	return defaultIdleTimeout
}

// Dial connects, opens a PTY shell, and consumes the login banner up to
// the first prompt.
func (d *SSHDialer) Dial(ctx context.Context, profile *dialect.Profile) (Conn, error) {
	cfg := &ssh.ClientConfig{
		User: profile.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(profile.Password),
			// Many switch builds only offer keyboard-interactive.
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = profile.Password
				}
				return answers, nil
			}),
		},
		// Switch host keys rotate with firmware; the fleet inventory is
		// the trust anchor here.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	timeout := d.dialTimeout()
	netConn, err := net.DialTimeout("tcp", profile.Addr(), timeout)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", profile.Addr(), err)
	}
	// The deadline covers the handshake too: a device that accepts TCP
	// but never negotiates must fail the attempt, not hang it.
	netConn.SetDeadline(time.Now().Add(timeout))
	sshc, chans, reqs, err := ssh.NewClientConn(netConn, profile.Addr(), cfg)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("SSH dial %s: %w", profile.Addr(), err)
	}
	netConn.SetDeadline(time.Time{})
	client := ssh.NewClient(sshc, chans, reqs)

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("SSH session on %s: %w", profile.Addr(), err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("vt100", 80, 24, modes); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("requesting pty on %s: %w", profile.Addr(), err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, err
	}

	if err := sess.Shell(); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("starting shell on %s: %w", profile.Addr(), err)
	}

	c := &sshConn{
		shell:     newShell(profile.Addr(), profile.Dialect, stdin, d.idleTimeout()),
		client:    client,
		sess:      sess,
		stdinPipe: stdin,
	}
	go c.readLoop(stdout)

	// Nudge the device into printing its prompt, then swallow the login
	// banner so the first command starts from a clean exchange.
	if _, err := c.exchange(ctx, "", "", ""); err != nil {
		c.Close()
		return nil, fmt.Errorf("reading login prompt from %s: %w", profile.Addr(), err)
	}

	return c, nil
}

type readChunk struct {
	data []byte
	err  error
}

// shell drives command round trips over a PTY stream pair. It carries no
// transport state of its own so exchanges can run over any reader/writer
// pair.
type shell struct {
	addr   string
	d      *dialect.Dialect
	stdin  io.Writer
	chunks chan readChunk
	done   chan struct{}
	idle   time.Duration
}

func newShell(addr string, d *dialect.Dialect, stdin io.Writer, idle time.Duration) *shell {
	return &shell{
		addr:   addr,
		d:      d,
		stdin:  stdin,
		chunks: make(chan readChunk, 64),
		done:   make(chan struct{}),
		idle:   idle,
	}
}

// sshConn binds a shell to its SSH transport.
type sshConn struct {
	*shell
	client    *ssh.Client
	sess      *ssh.Session
	stdinPipe io.WriteCloser
	closeOnce sync.Once
}

// readLoop feeds stdout chunks to the exchange loop. An abandoned
// exchange leaves chunks unconsumed; the done channel lets the loop exit
// instead of blocking on a full buffer forever.
func (s *shell) readLoop(r io.Reader) {
	buf := make([]byte, 2048)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case s.chunks <- readChunk{data: data}:
			case <-s.done:
				return
			}
		}
		if err != nil {
			select {
			case s.chunks <- readChunk{err: err}:
			case <-s.done:
			}
			return
		}
	}
}

// Run writes cmd and reads until the next prompt line.
func (s *shell) Run(ctx context.Context, cmd string) (string, error) {
	return s.exchange(ctx, cmd, "", "")
}

// RunConfirm writes cmd and answers the device's confirmation prompt.
func (s *shell) RunConfirm(ctx context.Context, cmd, expect, response string) (string, error) {
	return s.exchange(ctx, cmd, expect, response)
}

// exchange performs one command round trip. It accumulates output lines
// until a prompt-suffixed line arrives, resetting the idle timer on every
// chunk. The command echo line is dropped.
func (s *shell) exchange(ctx context.Context, cmd, expect, response string) (string, error) {
	// Network devices expect CRLF line endings.
	if _, err := s.stdin.Write([]byte(cmd + "\r\n")); err != nil {
		return "", fmt.Errorf("writing to %s: %w", s.addr, err)
	}

	var acc strings.Builder
	var out []string
	confirmed := expect == ""

	idle := time.NewTimer(s.idle)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-idle.C:
			return "", &util.ConnectionError{Addr: s.addr, Err: fmt.Errorf("no response within %v", s.idle)}
		case chunk := <-s.chunks:
			if chunk.err != nil {
				return "", fmt.Errorf("reading from %s: %w", s.addr, chunk.err)
			}
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(s.idle)

			acc.Write(chunk.data)
			pending := normalize(acc.String())

			if !confirmed && strings.Contains(pending, expect) {
				if _, err := s.stdin.Write([]byte(response + "\r\n")); err != nil {
					return "", fmt.Errorf("writing confirmation to %s: %w", s.addr, err)
				}
				confirmed = true
			}

			lines := strings.Split(pending, "\n")
			// The final element may be a partial line; keep it buffered
			// unless it is the prompt.
			last := lines[len(lines)-1]
			if s.isPrompt(last) {
				out = appendOutput(out, lines[:len(lines)-1], cmd)
				return strings.Join(out, "\n"), nil
			}

			acc.Reset()
			acc.WriteString(last)
			out = appendOutput(out, lines[:len(lines)-1], cmd)
		}
	}
}

// normalize unifies CRLF and bare CR line endings.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "")
}

// appendOutput adds complete lines to the output, dropping the echo of
// the command itself.
func appendOutput(out []string, lines []string, cmd string) []string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && trimmed == strings.TrimSpace(cmd) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func (s *shell) isPrompt(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, suffix := range s.d.PromptSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			return true
		}
	}
	return false
}

// Close tears down the shell session and the SSH transport.
func (c *sshConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.stdinPipe.Close()
		c.sess.Close()
		err = c.client.Close()
	})
	return err
}
