package pipeline

import (
	"context"
	"io"
	"os"

	"github.com/titpetric/piped/internal/diag"
	"github.com/titpetric/piped/internal/procexec"
	"github.com/titpetric/piped/internal/value"
)

// BuildExecFactory constructs the canonical exec factory. executor runs the
// subprocess; stdout is the orchestrator's own stdout, to which the child's
// stdout is streamed live. The returned Result always carries an
// ExecOutcome so a synchronous Pipeline statement can update the
// lastExec* variables; NonBlock invocations simply discard it, since no
// single "last" exec is well defined across concurrent runnables.
func BuildExecFactory(executor *procexec.Executor, stdout io.Writer) Factory {
	return func(args map[string]value.Value) (Runnable, error) {
		cmdVal, ok := args["cmd"]
		if !ok {
			return nil, diag.Fatalf("exec", "'cmd' is required")
		}
		cmd, ok := cmdVal.AsString()
		if !ok {
			return nil, diag.Fatalf("exec", "'cmd' must be a string")
		}

		var params []string
		if paramsVal, ok := args["params"]; ok {
			params, ok = value.CoerceStringSlice(paramsVal)
			if !ok {
				return nil, diag.Fatalf("exec", "'params' must be an array of strings")
			}
		}

		var envOverlay map[string]string
		if envsVal, ok := args["envs"]; ok {
			envOverlay, ok = value.CoerceStringMap(envsVal)
			if !ok {
				return nil, diag.Fatalf("exec", "'envs' must be a dictionary of strings")
			}
		}

		var pty bool
		if ptyVal, ok := args["pty"]; ok {
			pty, ok = ptyVal.AsBool()
			if !ok {
				return nil, diag.Fatalf("exec", "'pty' must be a bool")
			}
		}

		env := make([]string, 0, len(envOverlay))
		for k, v := range envOverlay {
			env = append(env, k+"="+v)
		}

		run := func() (Result, error) {
			command := procexec.NewCommand(cmd, params...)
			command.Env = env
			command.UsePTY = pty
			command.Stdout = stdout

			res := executor.Run(context.Background(), command)

			return Result{
				Success: res.Success(),
				Exec: &ExecOutcome{
					Stdout:   res.Stdout(),
					Stderr:   res.Stderr(),
					ExitCode: res.ExitCode(),
				},
			}, nil
		}
		return run, nil
	}
}

// DefaultExecutor is the process-wide executor used by the root execution's
// built-in registry construction.
func DefaultExecutor() *procexec.Executor {
	return procexec.New()
}

// StdoutWriter is os.Stdout, named for call sites that wire BuildExecFactory.
func StdoutWriter() io.Writer {
	return os.Stdout
}
