// Package valuerclient spawns the per-problem scoring engine ("valuer") as
// a child process and exchanges newline-delimited JSON messages with it.
package valuerclient

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jjs-dev/judge/internal/logging"
)

// pollTimeout is the fixed read timeout enforced on every poll; elapsing it
// is a fatal protocol error.
const pollTimeout = 15 * time.Second

// ErrPollTimeout is returned by Poll when the valuer does not respond
// within pollTimeout.
var ErrPollTimeout = errors.New("valuerclient: valuer response timed out")

// Config configures the valuer child process.
type Config struct {
	Exe        string
	Args       []string
	CurrentDir string // omitted (with a warning) if it does not exist
}

// Client owns the valuer's stdin/stdout pipes and the underlying process.
type Client struct {
	cmd    *exec.Cmd
	stdin  *bufio.Writer
	stdinC io.WriteCloser

	lines chan string
	done  chan error
}

// New spawns the valuer child process per cfg.
func New(cfg Config) (*Client, error) {
	cmd := exec.Command(cfg.Exe, cfg.Args...)
	cmd.Env = append(os.Environ(), "JJS_VALUER=1")
	cmd.Stderr = os.Stderr

	if cfg.CurrentDir != "" {
		if _, err := os.Stat(cfg.CurrentDir); err == nil {
			cmd.Dir = cfg.CurrentDir
		} else {
			logging.Op().Warn("valuer current_dir does not exist, omitting", "dir", cfg.CurrentDir)
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("valuerclient: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("valuerclient: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("valuerclient: start %s: %w", cfg.Exe, err)
	}

	c := &Client{
		cmd:    cmd,
		stdin:  bufio.NewWriter(stdin),
		stdinC: stdin,
		lines:  make(chan string),
		done:   make(chan error, 1),
	}
	go c.readLoop(stdout)
	return c, nil
}

func (c *Client) readLoop(stdout io.ReadCloser) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	close(c.lines)
	c.done <- scanner.Err()
}

// writeVal serializes v, verifies the encoding has no embedded newline,
// appends one, writes it, and flushes.
func (c *Client) writeVal(v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("valuerclient: marshal: %w", err)
	}
	if strings.ContainsRune(string(encoded), '\n') {
		return errors.New("valuerclient: encoded message contains an embedded newline")
	}
	if _, err := c.stdin.Write(encoded); err != nil {
		return fmt.Errorf("valuerclient: write: %w", err)
	}
	if err := c.stdin.WriteByte('\n'); err != nil {
		return fmt.Errorf("valuerclient: write newline: %w", err)
	}
	return c.stdin.Flush()
}

// WriteProblemData sends the startup ProblemInfo message.
func (c *Client) WriteProblemData(info ProblemInfo) error {
	return c.writeVal(info)
}

// NotifyTestDone sends a TestDoneNotification after a test finishes.
func (c *Client) NotifyTestDone(n TestDoneNotification) error {
	return c.writeVal(n)
}

// Poll waits for the next message, enforcing the 15-second read timeout.
func (c *Client) Poll() (*Message, error) {
	timer := time.NewTimer(pollTimeout)
	defer timer.Stop()

	select {
	case line, ok := <-c.lines:
		if !ok {
			if err := <-c.done; err != nil {
				return nil, fmt.Errorf("valuerclient: early eof: %w", err)
			}
			return nil, errors.New("valuerclient: early eof")
		}
		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, fmt.Errorf("valuerclient: invalid message: %w", err)
		}
		return &msg, nil
	case <-timer.C:
		return nil, ErrPollTimeout
	}
}

// Close kills the valuer process and closes its stdin, mirroring the
// child-is-killed-on-drop contract.
func (c *Client) Close() error {
	c.stdinC.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.cmd.Wait()
	return nil
}
