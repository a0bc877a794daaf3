package sshcli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
)

// shell is an interactive CLI session driven by prompt matching.
type shell struct {
	w       io.Writer
	chunks  chan []byte
	done    chan struct{}
	once    sync.Once
	readErr error
	buf     bytes.Buffer
	prompt  *regexp.Regexp
	timeout time.Duration
}

func newShell(w io.Writer, r io.Reader, prompt *regexp.Regexp, timeout time.Duration) *shell {
	s := &shell{
		w:       w,
		chunks:  make(chan []byte, 64),
		done:    make(chan struct{}),
		prompt:  prompt,
		timeout: timeout,
	}
	go s.readLoop(r)
	return s
}

func (s *shell) readLoop(r io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		select {
		case <-s.done:
			return
		default:
		}
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- append([]byte(nil), buf[:n]...):
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.readErr = err
			return
		}
	}
}

// close stops the reader goroutine once its current Read returns.
func (s *shell) close() {
	s.once.Do(func() { close(s.done) })
}

// expect reads until the output ends with a prompt and returns what came
// before it.
func (s *shell) expect(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for {
		if loc := s.prompt.FindIndex(s.buf.Bytes()); loc != nil {
			out := string(s.buf.Bytes()[:loc[0]])
			s.buf.Reset()
			return strings.ReplaceAll(out, "\r", ""), nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for prompt: %w", ctx.Err())
		case chunk, ok := <-s.chunks:
			if !ok {
				err := s.readErr
				if err == nil {
					err = io.EOF
				}
				return "", fmt.Errorf("session closed: %w", err)
			}
			s.buf.Write(chunk)
		}
	}
}

func (s *shell) write(text string) error {
	_, err := io.WriteString(s.w, text)
	return err
}

// send runs one command and returns its output without the echoed command.
func (s *shell) send(ctx context.Context, cmd string) (string, error) {
	if err := s.write(cmd + "\n"); err != nil {
		return "", fmt.Errorf("write %q: %w", cmd, err)
	}
	out, err := s.expect(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", cmd, err)
	}
	return stripEcho(out, cmd), nil
}

func stripEcho(out, cmd string) string {
	first, rest, found := strings.Cut(out, "\n")
	if strings.TrimSpace(first) == strings.TrimSpace(cmd) {
		if !found {
			return ""
		}
		return rest
	}
	return out
}
