// Package agent forwards finished prompts to a coding agent running as a
// persistent subprocess, one prompt per line on its stdin.
package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const agentStopGrace = 2 * time.Second

// Bridge keeps one agent subprocess alive across prompt deliveries. A dead
// agent is respawned on the next delivery; a delivery itself is attempted
// exactly once and never retried, so a prompt cannot arrive twice.
type Bridge struct {
	log     *slog.Logger
	shell   string
	command string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	exited bool
	closed bool
}

func NewBridge(shell, command string, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Bridge{log: log, shell: shell, command: command}
}

// Deliver writes one prompt line to the agent's stdin, starting or
// restarting the agent first if needed.
func (b *Bridge) Deliver(ctx context.Context, prompt string) error {
	if strings.TrimSpace(b.command) == "" {
		return errors.New("no agent command configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("agent bridge is closed")
	}
	if b.cmd == nil || b.exited {
		if err := b.spawnLocked(); err != nil {
			return fmt.Errorf("start agent: %w", err)
		}
	}

	if _, err := io.WriteString(b.stdin, prompt+"\n"); err != nil {
		b.exited = true
		return fmt.Errorf("write to agent: %w", err)
	}
	return nil
}

// Close shuts the agent down: stdin is closed so well-behaved agents exit
// on EOF, then the process is interrupted and finally killed.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if b.cmd == nil || b.exited {
		return nil
	}

	if b.stdin != nil {
		b.stdin.Close()
	}
	proc := b.cmd.Process
	if proc != nil {
		proc.Signal(os.Interrupt)
		go func() {
			time.Sleep(agentStopGrace)
			proc.Kill()
		}()
	}
	return nil
}

// alive reports whether a spawned agent process is still running.
func (b *Bridge) alive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmd != nil && !b.exited
}

func (b *Bridge) spawnLocked() error {
	cmd := exec.Command(b.shell, "-c", b.command)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	if b.stdin != nil {
		b.stdin.Close()
	}
	b.cmd = cmd
	b.stdin = stdin
	b.exited = false
	b.log.Info("agent started", "command", b.command, "pid", cmd.Process.Pid)

	go b.relayOutput("stdout", stdout)
	go b.relayOutput("stderr", stderr)
	go func() {
		err := cmd.Wait()
		b.mu.Lock()
		if b.cmd == cmd {
			b.exited = true
		}
		b.mu.Unlock()
		b.log.Info("agent exited", "pid", cmd.Process.Pid, "error", err)
	}()
	return nil
}

// relayOutput drains one agent output stream into the log so agent chatter
// is visible without wiring a terminal to the subprocess.
func (b *Bridge) relayOutput(stream string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)
	for scanner.Scan() {
		b.log.Info("agent output", "stream", stream, "line", scanner.Text())
	}
}
