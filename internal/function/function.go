// Package function implements the process-wide, read-only registry of pure
// built-in callables. Each function receives the current scope (for
// is_exists) and the already-evaluated positional arguments, and returns a
// value or a fatal error — arity and type mismatches abort the whole run,
// they never produce a recoverable value.
package function

import (
	"path/filepath"
	"regexp"

	"github.com/titpetric/piped/internal/diag"
	"github.com/titpetric/piped/internal/value"
)

// Scope is the minimal view a function needs into the calling sub-execution.
// is_exists is the only built-in that inspects the variable scope; every
// other function is pure over its arguments.
type Scope interface {
	Lookup(name string) (value.Value, bool)
}

// Func is a registered built-in's implementation.
type Func func(scope Scope, args []value.Value) (value.Value, error)

// Registry is the process-wide, immutable name-to-Func mapping.
type Registry map[string]Func

// Build constructs the canonical registry. Called once at process start and
// shared read-only across every sub-execution.
func Build() Registry {
	return Registry{
		"contains":   contains,
		"equals":     equals,
		"get":        get,
		"is_exists":  isExists,
		"join_path":  joinPath,
		"len":        length,
		"typeof":     typeOf,
		"glob":       glob,
		"re_replace": reReplace,
	}
}

// Lookup returns the named built-in, or false if it is not registered.
func (r Registry) Lookup(name string) (Func, bool) {
	f, ok := r[name]
	return f, ok
}

func arityError(name string, want int, got int) error {
	return diag.Fatalf(name, "%d argument(s) required, got %d", want, got)
}

func typeError(name string, wantKinds ...value.Kind) error {
	return diag.Fatalf(name, "type mismatch; only %v can be used here", wantKinds)
}

func contains(_ Scope, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Value{}, arityError("contains", 2, len(args))
	}
	dict, ok := args[0].AsDictionary()
	if !ok {
		return value.Value{}, typeError("contains", value.KindDictionary)
	}
	key, ok := args[1].AsString()
	if !ok {
		return value.Value{}, typeError("contains", value.KindString)
	}
	_, exists := dict[key]
	return value.Bool(exists), nil
}

func equals(_ Scope, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Value{}, arityError("equals", 2, len(args))
	}
	return value.Bool(value.Equal(args[0], args[1])), nil
}

func get(_ Scope, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Value{}, arityError("get", 2, len(args))
	}

	if arr, ok := args[0].AsArray(); ok {
		index, ok := args[1].AsInteger()
		if !ok {
			return value.Value{}, typeError("get", value.KindInteger)
		}
		if index < 0 {
			index += int64(len(arr))
		}
		if index < 0 || index >= int64(len(arr)) {
			return value.Value{}, diag.Fatalf("get", "index out of range")
		}
		return arr[index], nil
	}

	if dict, ok := args[0].AsDictionary(); ok {
		key, ok := args[1].AsString()
		if !ok {
			return value.Value{}, typeError("get", value.KindString)
		}
		v, exists := dict[key]
		if !exists {
			return value.Value{}, diag.Fatalf("get", "unable to find key %q", key)
		}
		return v, nil
	}

	return value.Value{}, typeError("get", value.KindArray, value.KindDictionary)
}

func isExists(scope Scope, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, arityError("is_exists", 1, len(args))
	}
	name, ok := args[0].AsString()
	if !ok {
		return value.Value{}, typeError("is_exists", value.KindString)
	}
	_, exists := scope.Lookup(name)
	return value.Bool(exists), nil
}

func joinPath(_ Scope, args []value.Value) (value.Value, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		s, ok := arg.AsString()
		if !ok {
			return value.Value{}, typeError("join_path", value.KindString)
		}
		parts[i] = s
	}
	return value.String(filepath.Join(parts...)), nil
}

func length(_ Scope, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, arityError("len", 1, len(args))
	}
	if arr, ok := args[0].AsArray(); ok {
		return value.Integer(int64(len(arr))), nil
	}
	if dict, ok := args[0].AsDictionary(); ok {
		return value.Integer(int64(len(dict))), nil
	}
	return value.Value{}, typeError("len", value.KindArray, value.KindDictionary)
}

func typeOf(_ Scope, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, arityError("typeof", 1, len(args))
	}
	return value.String(args[0].Kind().String()), nil
}

func glob(_ Scope, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, arityError("glob", 1, len(args))
	}
	pattern, ok := args[0].AsString()
	if !ok {
		return value.Value{}, typeError("glob", value.KindString)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return value.Value{}, diag.Fatalf("glob", "wrong glob pattern: %s", err)
	}

	out := make([]value.Value, 0, len(matches))
	for _, m := range matches {
		abs, err := filepath.Abs(m)
		if err != nil {
			continue
		}
		out = append(out, value.String(abs))
	}
	return value.Array(out), nil
}

func reReplace(_ Scope, args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return value.Value{}, arityError("re_replace", 3, len(args))
	}
	pattern, ok := args[0].AsString()
	if !ok {
		return value.Value{}, typeError("re_replace", value.KindString)
	}
	source, ok := args[1].AsString()
	if !ok {
		return value.Value{}, typeError("re_replace", value.KindString)
	}
	replacement, ok := args[2].AsString()
	if !ok {
		return value.Value{}, typeError("re_replace", value.KindString)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return value.Value{}, diag.Fatalf("re_replace", "wrong regex pattern: %s", err)
	}
	return value.String(re.ReplaceAllString(source, replacement)), nil
}
