package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

type execHandler func(cmd string, stdin []byte) (string, int)

type testServer struct {
	addr string

	mu       sync.Mutex
	commands []string
	stdins   [][]byte
}

func (s *testServer) record(cmd string, stdin []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	s.stdins = append(s.stdins, stdin)
}

// newTestServer starts an in-process SSH server accepting pollen/root.
func newTestServer(t *testing.T, handle execHandler) *testServer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "pollen" && string(pass) == "root" {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	srv := &testServer{addr: ln.Addr().String()}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn, cfg, handle)
		}
	}()
	return srv
}

func (s *testServer) serve(conn net.Conn, cfg *ssh.ServerConfig, handle execHandler) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go func() {
			for req := range chReqs {
				if req.Type != "exec" {
					if req.WantReply {
						req.Reply(false, nil)
					}
					continue
				}
				var payload struct{ Command string }
				if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
					req.Reply(false, nil)
					continue
				}
				req.Reply(true, nil)
				go func(cmd string) {
					stdin, _ := io.ReadAll(ch)
					s.record(cmd, stdin)
					out, status := handle(cmd, stdin)
					io.WriteString(ch, out)
					ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
					ch.Close()
				}(payload.Command)
			}
		}()
	}
}

func dial(t *testing.T, srv *testServer) *Session {
	t.Helper()
	sess, err := Dial(context.Background(), Config{Addr: srv.addr, User: "pollen", Password: "root", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestRun(t *testing.T) {
	srv := newTestServer(t, func(cmd string, _ []byte) (string, int) {
		switch cmd {
		case "pgrep -f reachy_bridge":
			return "1234\n", 0
		case "pkill -f nothing":
			return "", 1
		}
		return "sh: not found\n", 127
	})
	sess := dial(t, srv)
	ctx := context.Background()

	out, err := sess.Run(ctx, "pgrep -f reachy_bridge")
	if err != nil || out != "1234\n" {
		t.Fatalf("Run = %q, %v", out, err)
	}

	_, err = sess.Run(ctx, "pkill -f nothing")
	if ExitStatus(err) != 1 {
		t.Errorf("ExitStatus = %d, want 1 (err %v)", ExitStatus(err), err)
	}

	out, err = sess.Run(ctx, "bogus")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Status != 127 || !strings.Contains(out, "not found") {
		t.Errorf("Run(bogus) = %q, %v", out, err)
	}
}

func TestUpload(t *testing.T) {
	srv := newTestServer(t, func(string, []byte) (string, int) { return "", 0 })
	sess := dial(t, srv)

	data := []byte("REACHY_IP=127.0.0.1\n")
	if err := sess.Upload(context.Background(), data, "/home/pollen/reachy brain/.env", 0o600); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.commands) != 1 {
		t.Fatalf("commands = %v", srv.commands)
	}
	want := "mkdir -p '/home/pollen/reachy brain' && cat > '/home/pollen/reachy brain/.env' && chmod 600 '/home/pollen/reachy brain/.env'"
	if srv.commands[0] != want {
		t.Errorf("command = %q\nwant      %q", srv.commands[0], want)
	}
	if string(srv.stdins[0]) != string(data) {
		t.Errorf("stdin = %q", srv.stdins[0])
	}
}

func TestRunHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	srv := newTestServer(t, func(string, []byte) (string, int) {
		<-release
		return "", 0
	})
	sess := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := sess.Run(ctx, "sleep 100"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestDialRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t, func(string, []byte) (string, int) { return "", 0 })
	_, err := Dial(context.Background(), Config{Addr: srv.addr, User: "pollen", Password: "wrong", Timeout: 2 * time.Second})
	if err == nil {
		t.Fatal("expected auth failure")
	}
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"plain":      "'plain'",
		"with space": "'with space'",
		"it's":       `'it'"'"'s'`,
	}
	for in, want := range tests {
		if got := Quote(in); got != want {
			t.Errorf("Quote(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLazyDialsOnce(t *testing.T) {
	srv := newTestServer(t, func(cmd string, _ []byte) (string, int) { return "ok\n", 0 })
	l := NewLazy(Config{Addr: srv.addr, User: "pollen", Password: "root", Timeout: 5 * time.Second})
	t.Cleanup(func() { l.Close() })
	dials := 0
	l.dial = func(ctx context.Context, cfg Config) (*Session, error) {
		dials++
		return Dial(ctx, cfg)
	}

	for i := 0; i < 3; i++ {
		if out, err := l.Run(context.Background(), "true"); err != nil || out != "ok\n" {
			t.Fatalf("Run %d = %q, %v", i, out, err)
		}
	}
	if dials != 1 {
		t.Errorf("dials = %d, want 1", dials)
	}
}

func TestLazyReportsDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	l := NewLazy(Config{Addr: addr, User: "pollen", Password: "root", Timeout: time.Second})
	if _, err := l.Run(context.Background(), "true"); err == nil {
		t.Fatal("expected dial error")
	}
}
