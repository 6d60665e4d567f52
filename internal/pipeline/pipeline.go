// Package pipeline implements the built-in pipeline registry: a
// name-to-factory mapping where each factory consumes an already-evaluated
// named-argument map and yields a runnable. A Runnable is built once and
// invoked exactly once, whether synchronously or from a spawned goroutine.
package pipeline

import (
	"github.com/titpetric/piped/internal/value"
)

// Result is a pipeline invocation's outcome: a boolean success flag plus an
// optional result value a built-in may choose to expose.
type Result struct {
	Success   bool
	Result    value.Value
	HasResult bool

	// Exec is populated only by process-spawning built-ins (currently just
	// exec) so a synchronous Pipeline statement can update the
	// lastExecExitCode/lastExecStdOut/lastExecStdErr variables. Nil for
	// every other built-in and for imported pipelines.
	Exec *ExecOutcome
}

// ExecOutcome carries a spawned subprocess's captured output and exit code.
type ExecOutcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runnable is a single-shot, already-configured pipeline invocation. Its
// error return is fatal and terminates the run — distinct from
// Result.Success, which reports an ordinary, recoverable-at-value-level
// failure such as a subprocess exiting nonzero.
type Runnable func() (Result, error)

// Factory builds a Runnable from an already-evaluated named-argument map.
type Factory func(args map[string]value.Value) (Runnable, error)

// Registry is a name-to-Factory mapping. Sub-executions start from a copy of
// the built-in registry and extend it with a local factory per Import.
type Registry map[string]Factory

// Clone returns a shallow copy suitable for a sub-execution's local
// pipeline-factory map, so per-Import additions never leak back into the
// shared built-in registry.
func (r Registry) Clone() Registry {
	out := make(Registry, len(r)+4)
	for k, v := range r {
		out[k] = v
	}
	return out
}
