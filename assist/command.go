package assist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// CommandCompleter runs an external program for each completion. The prompt
// is written to its standard input and the answer read from its standard
// output, which lets any command-line model client serve as the Completer.
type CommandCompleter struct {
	name string
	args []string
}

// NewCommandCompleter parses command, a program followed by space-separated
// arguments.
func NewCommandCompleter(command string) (*CommandCompleter, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("assist: empty completion command")
	}
	return &CommandCompleter{name: fields[0], args: fields[1:]}, nil
}

// Complete runs the command to completion and returns its output.
func (c *CommandCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, c.name, c.args...) //nolint:gosec // command comes from the user's own configuration
	cmd.Stdin = strings.NewReader(prompt)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", commandError(c.name, err, stderr.String())
	}
	return string(out), nil
}

// Stream starts the command and returns its output as it is written. Closing
// the reader waits for the command to exit.
func (c *CommandCompleter) Stream(ctx context.Context, prompt string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, c.name, c.args...) //nolint:gosec // command comes from the user's own configuration
	cmd.Stdin = strings.NewReader(prompt)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open output of %s: %w", c.name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, commandError(c.name, err, "")
	}
	return &commandStream{ReadCloser: stdout, cmd: cmd, stderr: stderr, name: c.name}, nil
}

type commandStream struct {
	io.ReadCloser
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	name   string
}

func (s *commandStream) Close() error {
	// Drain so the command is not blocked writing when Wait closes the pipe.
	_, _ = io.Copy(io.Discard, s.ReadCloser)
	if err := s.cmd.Wait(); err != nil {
		return commandError(s.name, err, s.stderr.String())
	}
	return nil
}

func commandError(name string, err error, stderr string) error {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s failed: %w: %s", name, err, msg)
	}
	return fmt.Errorf("%s failed: %w", name, err)
}
