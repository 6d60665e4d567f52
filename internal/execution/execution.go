// Package execution builds and runs the root Execution: the process-wide
// state (module cache, function registry, built-in pipeline registry)
// constructed exactly once, plus the entry script's sub-execution seeded
// with the hostArch/hostOS/lastExec* constants. It is the thin composition
// root tying internal/module, internal/function, internal/pipeline and
// internal/subexec together.
package execution

import (
	"io"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/titpetric/piped/internal/compiler/parser"
	"github.com/titpetric/piped/internal/config"
	"github.com/titpetric/piped/internal/diag"
	"github.com/titpetric/piped/internal/function"
	"github.com/titpetric/piped/internal/module"
	"github.com/titpetric/piped/internal/pipeline"
	"github.com/titpetric/piped/internal/subexec"
	"github.com/titpetric/piped/internal/value"
)

// ConstructIO and ConstructParse name the two entry-script failure modes
// cmd/piped tells apart to pick an exit code: -1 for a failure opening the
// script, -2 for a parse failure, any other *diag.Fatal a generic nonzero.
const (
	ConstructIO    = "io"
	ConstructParse = "parse"
)

// Run reads, parses and executes the script at entryPath, streaming any
// spawned subprocess's stdout to stdout. It returns the entry pipeline's
// optional return value, whether a Return statement produced it, and any
// fatal error.
func Run(entryPath string, stdout io.Writer) (value.Value, bool, error) {
	abs, err := filepath.Abs(entryPath)
	if err != nil {
		return value.Value{}, false, diag.Fatalf(ConstructIO, "unable to resolve %q: %s", entryPath, err)
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		return value.Value{}, false, diag.Fatalf(ConstructIO, "unable to read %q: %s", entryPath, err)
	}

	program, err := parser.Parse(string(src))
	if err != nil {
		return value.Value{}, false, diag.Fatalf(ConstructParse, "parse failure in %q: %s", entryPath, err)
	}

	manager := module.NewManager()
	entry := &module.ImportedPipeline{ID: ulid.Make(), Path: abs, Program: program}
	manager.Seed(entry)

	root := &subexec.Root{
		Manager:   manager,
		Functions: function.Build(),
		BuiltinPipelines: pipeline.Registry{
			"exec": pipeline.BuildExecFactory(pipeline.DefaultExecutor(), stdout),
		},
	}

	se := subexec.New(root, filepath.Dir(abs), config.Seed())
	return se.Run(program)
}
