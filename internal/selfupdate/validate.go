package selfupdate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Validator checks that an install tree is usable.
type Validator interface {
	Validate(ctx context.Context, dir string, rel Release) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, dir string, rel Release) error

// Validate implements Validator.
func (f ValidatorFunc) Validate(ctx context.Context, dir string, rel Release) error {
	return f(ctx, dir, rel)
}

// CommandRunner runs an external program and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// MarkerValidator requires Marker to exist in the tree as a regular file.
type MarkerValidator struct {
	Marker string
}

// Validate implements Validator.
func (m MarkerValidator) Validate(_ context.Context, dir string, _ Release) error {
	p := filepath.Join(dir, m.Marker)
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("marker '%s' missing: %w", m.Marker, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("marker '%s' is not a regular file", m.Marker)
	}
	return nil
}

// CommandValidator runs '<marker> --version' from the tree and expects the release version in its output.
type CommandValidator struct {
	Marker string
	Runner CommandRunner
}

// Validate implements Validator.
func (c CommandValidator) Validate(ctx context.Context, dir string, rel Release) error {
	if err := (MarkerValidator{Marker: c.Marker}).Validate(ctx, dir, rel); err != nil {
		return err
	}

	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	out, err := runner.Run(ctx, filepath.Join(dir, c.Marker), "--version")
	if err != nil {
		return fmt.Errorf("'%s --version' failed: %w", c.Marker, err)
	}

	if rel.Version != nil && !strings.Contains(string(out), rel.Version.String()) {
		return fmt.Errorf(
			"'%s --version' reported %q, expected %s",
			c.Marker,
			strings.TrimSpace(string(out)),
			rel.Version,
		)
	}

	return nil
}
