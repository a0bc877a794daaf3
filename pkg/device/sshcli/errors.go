package sshcli

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// Open failure kinds. A device that is still booting typically refuses or
// resets connections, drops the SSH handshake, or rejects logins until
// its AAA subsystem is up. Dialects list which of these are retryable.
var (
	ErrConnRefused     = errors.New("connection refused")
	ErrConnReset       = errors.New("connection reset")
	ErrHostUnreachable = errors.New("host unreachable")
	ErrDialTimeout     = errors.New("dial timeout")
	ErrHandshake       = errors.New("ssh handshake failed")
	ErrAuthRejected    = errors.New("authentication rejected")
)

// openError tags a transport error with its failure kind.
type openError struct {
	kind error
	err  error
}

func (e *openError) Error() string {
	return e.err.Error()
}

func (e *openError) Unwrap() []error {
	return []error{e.kind, e.err}
}

// classify tags err with its failure kind. Errors of no known kind are
// returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if kind := kindOf(err); kind != nil {
		return &openError{kind: kind, err: err}
	}
	return err
}

func kindOf(err error) error {
	var ne net.Error
	msg := err.Error()
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrConnRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNABORTED), errors.Is(err, syscall.EPIPE):
		return ErrConnReset
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return ErrHostUnreachable
	case errors.As(err, &ne) && ne.Timeout():
		return ErrDialTimeout
	case strings.Contains(msg, "unable to authenticate"):
		return ErrAuthRejected
	case errors.Is(err, io.EOF), strings.Contains(msg, "handshake failed"):
		return ErrHandshake
	}
	return nil
}

// CommandError reports a CLI command whose output matched the dialect's
// failure pattern.
type CommandError struct {
	Command string
	Output  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Command, strings.TrimSpace(e.Output))
}
