package deploy

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
)

// CommandExecutor abstracts os/exec for testability.
type CommandExecutor interface {
	// Run executes name in dir and captures its output.
	Run(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)
	// Interactive executes name attached to the operator's terminal.
	Interactive(ctx context.Context, name string, args ...string) error
}

// OSExecutor is the real CommandExecutor that uses os/exec.
type OSExecutor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewOSExecutor returns an executor wired to the process's standard streams.
func NewOSExecutor() *OSExecutor {
	return &OSExecutor{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *OSExecutor) Run(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error) {
	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

func (e *OSExecutor) Interactive(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	return cmd.Run()
}
