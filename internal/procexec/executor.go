package procexec

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// Executor runs Commands, optionally under a PTY.
type Executor struct {
	// DefaultDir is the working directory used when a Command doesn't set
	// its own.
	DefaultDir string
}

// New creates an Executor with default settings.
func New() *Executor {
	return &Executor{}
}

// Run executes cmd and blocks until it completes.
func (e *Executor) Run(ctx context.Context, cmd *Command) Result {
	if cmd.UsePTY {
		return e.runWithPTY(ctx, cmd)
	}
	return e.runStandard(ctx, cmd)
}

func (e *Executor) prepareCmd(ctx context.Context, cmd *Command) *exec.Cmd {
	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	} else if e.DefaultDir != "" {
		execCmd.Dir = e.DefaultDir
	}
	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}
	return execCmd
}

func (e *Executor) runStandard(ctx context.Context, cmd *Command) Result {
	result := newResult()
	execCmd := e.prepareCmd(ctx, cmd)

	if cmd.Stdout != nil {
		execCmd.Stdout = io.MultiWriter(cmd.Stdout, result.stdout)
	} else {
		execCmd.Stdout = result.stdout
	}
	execCmd.Stderr = result.stderr

	if err := execCmd.Run(); err != nil {
		result.err = err
		result.exitCode = extractExitCode(err)
	}
	return result
}

func (e *Executor) runWithPTY(ctx context.Context, cmd *Command) Result {
	result := newResult()
	execCmd := e.prepareCmd(ctx, cmd)

	ptmx, err := pty.Start(execCmd)
	if err != nil {
		result.err = err
		result.exitCode = 1
		return result
	}
	defer func() { _ = ptmx.Close() }()

	if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		_ = pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writers := []io.Writer{result.stdout}
		if cmd.Stdout != nil {
			writers = append(writers, cmd.Stdout)
		}
		if _, err := io.Copy(io.MultiWriter(writers...), ptmx); err != nil && !errors.Is(err, io.EOF) {
			log.Printf("procexec: pty copy error: %v", err)
		}
	}()

	if err := execCmd.Wait(); err != nil {
		result.err = err
		result.exitCode = extractExitCode(err)
	}
	wg.Wait()
	return result
}

func extractExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
