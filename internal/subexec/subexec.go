// Package subexec is the interpreter for a single imported pipeline's AST:
// its variable scope, its local pipeline-factory map (built-ins extended by
// each Import statement), wait-group bookkeeping, and the recursive AST
// walker. A NonBlock statement spawns a goroutine that runs to completion
// independently of the statement stream that spawned it; the goroutine owns
// its handle exclusively until exactly one Await/AwaitAll/drain joins it.
package subexec

import (
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/titpetric/piped/internal/ast"
	"github.com/titpetric/piped/internal/config"
	"github.com/titpetric/piped/internal/diag"
	"github.com/titpetric/piped/internal/function"
	"github.com/titpetric/piped/internal/module"
	"github.com/titpetric/piped/internal/pipeline"
	"github.com/titpetric/piped/internal/value"
)

// Root is the process-wide state every sub-execution shares read-only
// access to: the module cache, the built-in function registry, and the
// built-in pipeline registry. Constructed once per process and never
// mutated by a sub-execution.
type Root struct {
	Manager          *module.Manager
	Functions        function.Registry
	BuiltinPipelines pipeline.Registry
}

// handle is a single spawned NonBlock invocation's exclusive ownership
// token: the goroutine that runs it owns `done` until exactly one join
// receives from it. id is a ULID minted at spawn time, used only to name
// this runnable in a panic diagnostic — it has no bearing on scheduling or
// join order.
type handle struct {
	id            ulid.ULID
	resultBinding *string
	done          chan outcome
}

type outcome struct {
	result pipeline.Result
	err    error
}

func spawn(resultBinding *string, run pipeline.Runnable) *handle {
	h := &handle{id: ulid.Make(), resultBinding: resultBinding, done: make(chan outcome, 1)}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.done <- outcome{err: diag.Fatalf("nonblock", "panic in spawned pipeline %s: %v", h.id, r)}
			}
		}()
		result, err := run()
		h.done <- outcome{result: result, err: err}
	}()
	return h
}

func (h *handle) join() (pipeline.Result, error) {
	o := <-h.done
	return o.result, o.err
}

// waitGroups is the mutable named/unnamed wait-group state threaded through
// one block of statement execution. A fresh instance is created for each
// If branch and merged back into the caller's on return, so a branch's
// pending handles are still joinable from outside the branch.
type waitGroups struct {
	named   map[string][]*handle
	unnamed []*handle
}

func newWaitGroups() *waitGroups {
	return &waitGroups{named: make(map[string][]*handle)}
}

func (wg *waitGroups) push(name *string, h *handle) {
	if name == nil {
		wg.unnamed = append(wg.unnamed, h)
		return
	}
	wg.named[*name] = append(wg.named[*name], h)
}

func (wg *waitGroups) mergeInto(parent *waitGroups) {
	for key, handles := range wg.named {
		parent.named[key] = append(parent.named[key], handles...)
	}
	parent.unnamed = append(parent.unnamed, wg.unnamed...)
}

// SubExecution is the interpreter instance for one imported pipeline.
type SubExecution struct {
	root      *Root
	scope     map[string]value.Value
	factories pipeline.Registry
	baseDir   string
	imported  map[string]bool
}

// New constructs a SubExecution. scope becomes the initial variable map;
// New takes ownership of it and it is never aliased back to the caller.
// baseDir is the directory relative imports inside this pipeline resolve
// against.
func New(root *Root, baseDir string, scope map[string]value.Value) *SubExecution {
	return &SubExecution{
		root:      root,
		scope:     scope,
		factories: root.BuiltinPipelines.Clone(),
		baseDir:   baseDir,
		imported:  make(map[string]bool),
	}
}

// Lookup implements function.Scope for is_exists.
func (se *SubExecution) Lookup(name string) (value.Value, bool) {
	v, ok := se.scope[name]
	return v, ok
}

// Run executes program top to bottom and returns its optional return value.
// Every remaining wait-group handle is joined before Run returns, whether
// execution reached a Return statement or simply ran out of statements.
func (se *SubExecution) Run(program ast.Program) (value.Value, bool, error) {
	wg := newWaitGroups()
	retVal, hasReturn, err := se.exec(program, wg)
	if drainErr := se.drain(wg); err == nil {
		err = drainErr
	}
	return retVal, hasReturn, err
}

// drain joins every handle remaining in wg, applying result bindings.
func (se *SubExecution) drain(wg *waitGroups) error {
	for _, handles := range wg.named {
		for _, h := range handles {
			if err := se.joinAndBind(h); err != nil {
				return err
			}
		}
	}
	for _, h := range wg.unnamed {
		if err := se.joinAndBind(h); err != nil {
			return err
		}
	}
	return nil
}

func (se *SubExecution) joinAndBind(h *handle) error {
	result, err := h.join()
	if err != nil {
		return err
	}
	if h.resultBinding != nil && result.HasResult {
		se.scope[*h.resultBinding] = result.Result
	}
	return nil
}

// exec walks program, mutating wg as NonBlock/Await/AwaitAll statements are
// encountered, and returns as soon as a Return statement (at this level or
// inside a branch) surfaces.
func (se *SubExecution) exec(program ast.Program, wg *waitGroups) (value.Value, bool, error) {
	for _, stmt := range program {
		switch s := stmt.(type) {
		case ast.Import:
			if err := se.execImport(s); err != nil {
				return value.Value{}, false, err
			}

		case ast.Set:
			v, err := se.eval(s.Expr)
			if err != nil {
				return value.Value{}, false, err
			}
			se.scope[s.Name] = v

		case ast.Print:
			if err := se.execPrintLike(s.Exprs, false); err != nil {
				return value.Value{}, false, err
			}

		case ast.PrintErr:
			if err := se.execPrintLike(s.Exprs, true); err != nil {
				return value.Value{}, false, err
			}

		case ast.Return:
			if s.Expr == nil {
				return value.Value{}, true, nil
			}
			v, err := se.eval(s.Expr)
			if err != nil {
				return value.Value{}, false, err
			}
			return v, true, nil

		case ast.Await:
			if err := se.execAwait(s, wg); err != nil {
				return value.Value{}, false, err
			}

		case ast.AwaitAll:
			if err := se.drain(wg); err != nil {
				return value.Value{}, false, err
			}
			wg.named = make(map[string][]*handle)
			wg.unnamed = nil

		case ast.NonBlock:
			run, err := se.buildRunnable(s.Pipeline)
			if err != nil {
				return value.Value{}, false, err
			}
			wg.push(s.Name, spawn(s.Pipeline.ResultBinding, run))

		case ast.If:
			cond, err := se.eval(s.Criterion)
			if err != nil {
				return value.Value{}, false, err
			}

			branch := s.Then
			if !cond.Truthy() {
				branch = s.Else
			}

			branchWg := newWaitGroups()
			retVal, hasReturn, err := se.exec(branch, branchWg)
			branchWg.mergeInto(wg)
			if err != nil {
				return value.Value{}, false, err
			}
			if hasReturn {
				return retVal, true, nil
			}

		case ast.Pipeline:
			if err := se.execPipeline(s); err != nil {
				return value.Value{}, false, err
			}

		case ast.Call:
			if err := se.execCall(s); err != nil {
				return value.Value{}, false, err
			}

		default:
			return value.Value{}, false, diag.Fatalf("statement", "unknown statement type %T", stmt)
		}
	}
	return value.Value{}, false, nil
}

func (se *SubExecution) execPrintLike(exprs []ast.Expression, toStderr bool) error {
	var out []byte
	for _, e := range exprs {
		v, err := se.eval(e)
		if err != nil {
			return err
		}
		out = append(out, v.Display()...)
	}
	out = append(out, '\n')
	return writeOutput(out, toStderr)
}

func (se *SubExecution) execAwait(s ast.Await, wg *waitGroups) error {
	if s.Name == nil {
		handles := wg.unnamed
		wg.unnamed = nil
		for _, h := range handles {
			if err := se.joinAndBind(h); err != nil {
				return err
			}
		}
		return nil
	}

	handles, ok := wg.named[*s.Name]
	if !ok {
		return nil // awaiting a group with nothing in it is a no-op, not an error
	}
	delete(wg.named, *s.Name)
	for _, h := range handles {
		if err := se.joinAndBind(h); err != nil {
			return err
		}
	}
	return nil
}

func (se *SubExecution) execPipeline(s ast.Pipeline) error {
	run, err := se.buildRunnable(s)
	if err != nil {
		return err
	}
	result, err := run()
	if err != nil {
		return err
	}
	if s.ResultBinding != nil && result.HasResult {
		se.scope[*s.ResultBinding] = result.Result
	}
	if result.Exec != nil {
		se.scope["lastExecExitCode"] = value.Integer(int64(result.Exec.ExitCode))
		se.scope["lastExecStdOut"] = value.String(result.Exec.Stdout)
		se.scope["lastExecStdErr"] = value.String(result.Exec.Stderr)
	}
	return nil
}

func (se *SubExecution) buildRunnable(s ast.Pipeline) (pipeline.Runnable, error) {
	factory, ok := se.factories[s.Name]
	if !ok {
		return nil, diag.Fatalf("pipeline", "undefined pipeline %q used", s.Name)
	}

	args := make(map[string]value.Value, len(s.Args))
	for _, arg := range s.Args {
		v, err := se.eval(arg.Value)
		if err != nil {
			return nil, err
		}
		args[arg.Name] = v
	}

	return factory(args)
}

func (se *SubExecution) execCall(s ast.Call) error {
	f, ok := se.root.Functions.Lookup(s.Name)
	if !ok {
		return diag.Fatalf("function", "undefined function %q used", s.Name)
	}
	args := make([]value.Value, len(s.Args))
	for i, argExpr := range s.Args {
		v, err := se.eval(argExpr)
		if err != nil {
			return err
		}
		args[i] = v
	}
	_, err := f(se, args)
	return err
}

func (se *SubExecution) execImport(s ast.Import) error {
	pathVal, err := se.eval(s.Path)
	if err != nil {
		return err
	}
	requestedPath, ok := pathVal.AsString()
	if !ok {
		return diag.Fatalf("import", "import path must be a string")
	}

	canonicalPath, err := module.Canonicalize(se.baseDir, requestedPath)
	if err != nil {
		return err
	}

	if se.imported[canonicalPath] {
		return diag.Fatalf("import", "%q is already imported in this sub-execution", requestedPath)
	}

	imported, err := se.root.Manager.Import(canonicalPath)
	if err != nil {
		return err
	}
	se.imported[canonicalPath] = true

	importDir := filepath.Dir(imported.Path)
	root := se.root
	se.factories[s.LocalName] = func(args map[string]value.Value) (pipeline.Runnable, error) {
		run := func() (pipeline.Result, error) {
			childScope := config.Seed()
			for k, v := range args {
				childScope[k] = v
			}
			child := New(root, importDir, childScope)
			retVal, hasReturn, err := child.Run(imported.Program)
			if err != nil {
				return pipeline.Result{}, err
			}
			return pipeline.Result{Success: true, Result: retVal, HasResult: hasReturn}, nil
		}
		return run, nil
	}
	return nil
}

// eval evaluates expr to a Value. A variable reference to an undefined name
// is a fatal error; expression evaluation never produces a partial or
// zero-value result silently.
func (se *SubExecution) eval(expr ast.Expression) (value.Value, error) {
	switch e := expr.(type) {
	case ast.Literal:
		switch e.Kind {
		case ast.LiteralBool:
			return value.Bool(e.Bool), nil
		case ast.LiteralInteger:
			return value.Integer(e.Int), nil
		case ast.LiteralString:
			return value.String(e.Str), nil
		default:
			return value.Value{}, diag.Fatalf("literal", "unknown literal kind")
		}

	case ast.Variable:
		v, ok := se.scope[e.Name]
		if !ok {
			return value.Value{}, diag.Fatalf("variable", "undefined variable %q used", e.Name)
		}
		return v, nil

	case ast.ArrayExpr:
		elems := make([]value.Value, len(e.Elements))
		for i, el := range e.Elements {
			v, err := se.eval(el)
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = v
		}
		return value.Array(elems), nil

	case ast.DictExpr:
		entries := make(map[string]value.Value, len(e.Entries))
		for _, entry := range e.Entries {
			v, err := se.eval(entry.Value)
			if err != nil {
				return value.Value{}, err
			}
			entries[entry.Key] = v
		}
		return value.Dictionary(entries), nil

	case ast.CallExpr:
		f, ok := se.root.Functions.Lookup(e.Name)
		if !ok {
			return value.Value{}, diag.Fatalf("function", "undefined function %q used", e.Name)
		}
		args := make([]value.Value, len(e.Args))
		for i, argExpr := range e.Args {
			v, err := se.eval(argExpr)
			if err != nil {
				return value.Value{}, err
			}
			args[i] = v
		}
		return f(se, args)

	default:
		return value.Value{}, diag.Fatalf("expression", "unknown expression type %T", expr)
	}
}
