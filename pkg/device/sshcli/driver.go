// Package sshcli implements device.Driver over an interactive SSH CLI
// session, with per-family dialects for Junos, IOS-XR and IOS-XE.
package sshcli

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/topology"
)

const (
	DefaultPort           = 22
	DefaultDialTimeout    = 10 * time.Second
	DefaultCommandTimeout = 2 * time.Minute
)

// Driver is a device.Driver speaking a family's CLI dialect over SSH.
type Driver struct {
	dialect        *Dialect
	port           int
	dialTimeout    time.Duration
	commandTimeout time.Duration

	client    *ssh.Client
	session   *ssh.Session
	sh        *shell
	candidate string
}

// Option configures a Driver.
type Option func(*Driver)

// WithPort sets the SSH port.
func WithPort(port int) Option {
	return func(d *Driver) { d.port = port }
}

// WithDialTimeout bounds TCP connect plus SSH handshake.
func WithDialTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.dialTimeout = timeout }
}

// WithCommandTimeout bounds the wait for each prompt.
func WithCommandTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.commandTimeout = timeout }
}

// New returns a driver for the given family.
func New(family topology.Family, opts ...Option) (*Driver, error) {
	dialect, ok := DialectFor(family)
	if !ok {
		return nil, fmt.Errorf("sshcli: no dialect for family %q", family)
	}
	d := &Driver{
		dialect:        dialect,
		port:           DefaultPort,
		dialTimeout:    DefaultDialTimeout,
		commandTimeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

var _ device.Driver = (*Driver)(nil)

// Open dials the device and starts an interactive shell. Transport
// failures are tagged with the Err* kinds in this package.
func (d *Driver) Open(ctx context.Context, addr string, creds device.Credentials) error {
	hostport := net.JoinHostPort(addr, strconv.Itoa(d.port))

	dialer := net.Dialer{Timeout: d.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return classify(err)
	}

	config := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = creds.Password
				}
				return answers, nil
			}),
		},
		// Lab routers regenerate host keys on every boot.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.dialTimeout,
	}

	handshake := time.Now().Add(d.dialTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(handshake) {
		handshake = dl
	}
	conn.SetDeadline(handshake)
	c, chans, reqs, err := ssh.NewClientConn(conn, hostport, config)
	if err != nil {
		conn.Close()
		return classify(err)
	}
	conn.SetDeadline(time.Time{})
	client := ssh.NewClient(c, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return classify(fmt.Errorf("ssh session: %w", err))
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty("vt100", 0, 511, modes); err != nil {
		session.Close()
		client.Close()
		return classify(fmt.Errorf("request pty: %w", err))
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return classify(fmt.Errorf("start shell: %w", err))
	}

	d.client = client
	d.session = session
	d.sh = newShell(stdin, stdout, d.dialect.Prompt, d.commandTimeout)

	if err := d.ready(ctx); err != nil {
		d.Close()
		return classify(err)
	}
	return nil
}

// ready waits for the first prompt and runs the dialect's setup commands.
func (d *Driver) ready(ctx context.Context) error {
	if _, err := d.sh.expect(ctx); err != nil {
		return fmt.Errorf("initial prompt: %w", err)
	}
	for _, cmd := range d.dialect.Setup {
		if _, err := d.sh.send(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// LoadCandidate stages config on the device, or locally for families
// without a candidate datastore.
func (d *Driver) LoadCandidate(ctx context.Context, config string) error {
	if d.dialect.Local {
		d.candidate = config
		return nil
	}
	if err := d.require(); err != nil {
		return err
	}
	if err := d.run(ctx, d.dialect.Enter...); err != nil {
		return err
	}

	if d.dialect.LoadStart == "" {
		if err := d.run(ctx, configLines(config)...); err != nil {
			return err
		}
		d.candidate = config
		return nil
	}

	text := config
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := d.sh.write(d.dialect.LoadStart + "\n" + text + d.dialect.LoadEnd); err != nil {
		return fmt.Errorf("load candidate: %w", err)
	}
	out, err := d.sh.expect(ctx)
	if err != nil {
		return fmt.Errorf("load candidate: %w", err)
	}
	if d.dialect.Failure.MatchString(out) {
		return &CommandError{Command: d.dialect.LoadStart, Output: out}
	}
	d.candidate = config
	return nil
}

// Commit applies the candidate.
func (d *Driver) Commit(ctx context.Context) error {
	if err := d.require(); err != nil {
		return err
	}
	if d.dialect.Local {
		cmds := append(append([]string(nil), d.dialect.Enter...), configLines(d.candidate)...)
		if err := d.run(ctx, cmds...); err != nil {
			return err
		}
	}
	return d.run(ctx, d.dialect.Commit...)
}

// Discard drops the candidate.
func (d *Driver) Discard(ctx context.Context) error {
	d.candidate = ""
	if d.dialect.Local {
		return nil
	}
	if err := d.require(); err != nil {
		return err
	}
	return d.run(ctx, d.dialect.Discard...)
}

// Compare returns the device's candidate diff. Local families report the
// candidate lines missing from the running configuration.
func (d *Driver) Compare(ctx context.Context) (string, error) {
	if err := d.require(); err != nil {
		return "", err
	}
	var out strings.Builder
	for _, cmd := range d.dialect.Compare {
		o, err := d.sh.send(ctx, cmd)
		if err != nil {
			return "", err
		}
		out.WriteString(o)
	}
	if d.dialect.Local {
		return localDiff(d.candidate, out.String()), nil
	}
	return out.String(), nil
}

// localDiff lists the candidate lines absent from running as "+ line".
// Indented lines are matched within their parent section; an existing
// parent is printed once as context before its new children.
func localDiff(candidate, running string) string {
	have := make(map[string]bool)
	var parent string
	for _, line := range configLines(running) {
		have[sectionKey(&parent, line)] = true
	}

	var b strings.Builder
	var shown string
	parent = ""
	for _, line := range configLines(candidate) {
		key := sectionKey(&parent, line)
		if have[key] {
			continue
		}
		if key != parent && parent != shown {
			b.WriteString("  " + parent + "\n")
		}
		shown = parent
		b.WriteString("+ " + line + "\n")
	}
	return b.String()
}

// sectionKey keys top-level lines by themselves and indented lines by
// their section header, tracked in parent.
func sectionKey(parent *string, line string) string {
	trimmed := strings.TrimSpace(line)
	if line[0] == ' ' || line[0] == '\t' {
		return *parent + "\n" + trimmed
	}
	*parent = trimmed
	return trimmed
}

// Close ends the session.
func (d *Driver) Close() error {
	var err error
	if d.sh != nil {
		d.sh.close()
	}
	if d.session != nil {
		d.session.Close()
		d.session = nil
	}
	if d.client != nil {
		err = d.client.Close()
		d.client = nil
	}
	d.sh = nil
	return err
}

func (d *Driver) require() error {
	if d.sh == nil {
		return fmt.Errorf("sshcli: session not open")
	}
	return nil
}

// run sends each command and fails on the first whose output matches the
// dialect's failure pattern.
func (d *Driver) run(ctx context.Context, cmds ...string) error {
	for _, cmd := range cmds {
		out, err := d.sh.send(ctx, cmd)
		if err != nil {
			return err
		}
		if d.dialect.Failure.MatchString(out) {
			return &CommandError{Command: cmd, Output: out}
		}
	}
	return nil
}

// configLines splits config into non-blank lines, dropping comment lines.
func configLines(config string) []string {
	var lines []string
	for _, line := range strings.Split(config, "\n") {
		line = strings.TrimRight(line, " \t\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "!") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
