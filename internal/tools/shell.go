package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ShellConfig controls how dictated commands run.
type ShellConfig struct {
	Shell      string
	ExtraPaths []string

	// Timeout bounds one command; zero means wait indefinitely.
	Timeout time.Duration
}

// ShellTool runs a command string in the user's shell and reports the exit
// status with the merged stdout/stderr text.
func ShellTool(cfg ShellConfig) Definition {
	return Definition{
		Name:        "runShellCommand",
		Description: "Run a shell command on this machine and return its exit code and output.",
		Parameters: &JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"command": {Type: "string", Description: "The shell command to execute."},
			},
			Required: []string{"command"},
		},
		TriggerResponse: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			if strings.TrimSpace(command) == "" {
				return "", errors.New("command is empty")
			}
			return runShell(ctx, cfg, command)
		},
	}
}

func runShell(ctx context.Context, cfg ShellConfig, command string) (string, error) {
	shell := cfg.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Env = extendedEnv(cfg.ExtraPaths)

	// Commands get their own process group so cancellation kills the whole
	// tree, never orphaning grandchildren.
	cmd.SysProcAttr = platformProcAttr()
	cmd.Cancel = func() error {
		return killTree(cmd.Process)
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start command: %w", err)
	}

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return "", fmt.Errorf("command did not complete: %w", err)
		}
	}

	return fmt.Sprintf("exit code: %d\noutput: %s", exitCode, output.String()), nil
}

// extendedEnv appends common local install locations to PATH so dictated
// commands find user-installed binaries.
func extendedEnv(extraPaths []string) []string {
	env := os.Environ()
	if len(extraPaths) == 0 {
		return env
	}

	joined := strings.Join(extraPaths, string(os.PathListSeparator))
	for i, entry := range env {
		if strings.HasPrefix(entry, "PATH=") {
			env[i] = entry + string(os.PathListSeparator) + joined
			return env
		}
	}
	return append(env, "PATH="+joined)
}
