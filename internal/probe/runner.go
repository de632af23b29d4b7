package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner abstracts external process invocation so tests can substitute a stub
// without spawning a real subprocess.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandRunner invokes commands via os/exec.
type CommandRunner struct{}

// NewCommandRunner returns a Runner backed by os/exec.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{}
}

// Run executes the command and returns its stdout. On a non-zero exit the
// error includes captured stderr.
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, stderr.String())
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}
