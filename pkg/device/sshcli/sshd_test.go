package sshcli

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/topology"
)

// sshDevice is an in-process SSH server that hands its shell channel to a
// fakeDevice.
type sshDevice struct {
	dev      *fakeDevice
	password string
	// keyboard offers keyboard-interactive instead of password auth.
	keyboard bool
	// rejectFirst denies this many logins before accepting the password.
	rejectFirst int

	mu       sync.Mutex
	logins   int
	requests []string
}

func (s *sshDevice) check(user, password string) (*ssh.Permissions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	if s.logins <= s.rejectFirst || user != "admin" || password != s.password {
		return nil, errors.New("access denied")
	}
	return nil, nil
}

func (s *sshDevice) record(req string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
}

func (s *sshDevice) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// start listens on a loopback port and returns it.
func (s *sshDevice) start(t *testing.T) int {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatal(err)
	}

	config := &ssh.ServerConfig{}
	if s.keyboard {
		config.KeyboardInteractiveCallback = func(c ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := challenge(c.User(), "", []string{"Password: "}, []bool{false})
			if err != nil {
				return nil, err
			}
			if len(answers) != 1 {
				return nil, errors.New("expected one answer")
			}
			return s.check(c.User(), answers[0])
		}
	} else {
		config.PasswordCallback = func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			return s.check(c.User(), string(password))
		}
	}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn, config)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func (s *sshDevice) serve(conn net.Conn, config *ssh.ServerConfig) {
	sc, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	defer sc.Close()
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			nc.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, requests, err := nc.Accept()
		if err != nil {
			return
		}
		go func() {
			for req := range requests {
				s.record(req.Type)
				switch req.Type {
				case "pty-req":
					req.Reply(true, nil)
				case "shell":
					req.Reply(true, nil)
					go func() {
						s.dev.serve(ch, ch)
						ch.Close()
					}()
				default:
					req.Reply(false, nil)
				}
			}
		}()
	}
}

var admin = device.Credentials{Username: "admin", Password: "secret"}

func TestOpen_SessionOverSSH(t *testing.T) {
	tests := []struct {
		name     string
		keyboard bool
	}{
		{name: "password", keyboard: false},
		{name: "keyboard-interactive", keyboard: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := &sshDevice{
				dev: &fakeDevice{
					prompt:    "admin@vmx1# ",
					responses: map[string]string{"show | compare": "+  host-name vmx1;\r\n"},
				},
				password: "secret",
				keyboard: tt.keyboard,
			}
			port := srv.start(t)

			d, err := New(topology.FamilyJunos, WithPort(port), WithCommandTimeout(5*time.Second))
			if err != nil {
				t.Fatal(err)
			}
			ctx := context.Background()
			if err := d.Open(ctx, "127.0.0.1", admin); err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer d.Close()

			if !hasSequence(srv.seen(), []string{"pty-req", "shell"}) {
				t.Errorf("session requests = %v, want pty-req then shell", srv.seen())
			}
			if !hasSequence(srv.dev.commands(), []string{"set cli screen-length 0", "set cli screen-width 0"}) {
				t.Errorf("setup commands = %v", srv.dev.commands())
			}

			if err := d.LoadCandidate(ctx, "set system host-name vmx1"); err != nil {
				t.Fatalf("LoadCandidate: %v", err)
			}
			diff, err := d.Compare(ctx)
			if err != nil || diff != "+  host-name vmx1;\n" {
				t.Errorf("Compare = %q, %v", diff, err)
			}
			if err := d.Commit(ctx); err != nil {
				t.Fatalf("Commit: %v", err)
			}
			if got := srv.dev.candidate(); got != "set system host-name vmx1\n" {
				t.Errorf("device candidate = %q", got)
			}
		})
	}
}

func TestOpen_AuthRejected(t *testing.T) {
	srv := &sshDevice{dev: &fakeDevice{prompt: "xrv1#"}, password: "secret"}
	port := srv.start(t)

	d, err := New(topology.FamilyIOSXR, WithPort(port))
	if err != nil {
		t.Fatal(err)
	}
	err = d.Open(context.Background(), "127.0.0.1", device.Credentials{Username: "admin", Password: "wrong"})
	if err == nil {
		d.Close()
		t.Fatal("Open with a wrong password succeeded")
	}
	if !errors.Is(err, ErrAuthRejected) {
		t.Errorf("Open error = %v, want ErrAuthRejected", err)
	}
}

// A booting XR router rejects logins until AAA is up: the controller
// retries them for iosxr but not for junos.
func TestBootWait_AuthRejectedRetryPerFamily(t *testing.T) {
	resolver := device.ResolverFunc(func(context.Context, string) (string, error) {
		return "127.0.0.1", nil
	})

	tests := []struct {
		family  topology.Family
		typ     topology.DeviceType
		prompt  string
		wantErr bool
	}{
		{family: topology.FamilyIOSXR, typ: topology.TypeXRV, prompt: "RP/0/RP0/CPU0:xrv1#"},
		{family: topology.FamilyJunos, typ: topology.TypeVMX, prompt: "admin@vmx1> ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			srv := &sshDevice{dev: &fakeDevice{prompt: tt.prompt}, password: "secret", rejectFirst: 2}
			port := srv.start(t)

			drv, err := New(tt.family, WithPort(port), WithCommandTimeout(5*time.Second))
			if err != nil {
				t.Fatal(err)
			}
			r := &topology.Router{ID: 1, Name: "r1", Type: tt.typ}
			c := device.NewController(r, drv, resolver, device.Options{
				Credentials: admin,
				RetryOn:     RetryOn(tt.family),
				Backoff:     10 * time.Millisecond,
				BootTimeout: 30 * time.Second,
			})
			defer c.Close()

			err = c.Connect(context.Background(), true)
			if tt.wantErr {
				if !errors.Is(err, ErrAuthRejected) {
					t.Errorf("Connect error = %v, want ErrAuthRejected", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Connect: %v", err)
			}
			if c.State() != device.StateConnected {
				t.Errorf("State() = %s, want connected", c.State())
			}
		})
	}
}
