package backup

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Command is an external tool invocation. Secrets travel in Env only, so
// String is always safe to log.
type Command struct {
	Path string
	Args []string
	Env  []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// EnvKeys lists the names of the extra environment variables, without values.
func (c Command) EnvKeys() []string {
	keys := make([]string, 0, len(c.Env))
	for _, kv := range c.Env {
		k, _, _ := strings.Cut(kv, "=")
		keys = append(keys, k)
	}
	return keys
}

// CommandRunner starts an external command and waits for it.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)

	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	cerr := &CommandError{Tool: filepath.Base(c.Path), ExitCode: -1, Output: string(output), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	return cerr
}
