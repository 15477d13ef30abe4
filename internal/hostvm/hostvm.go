// Package hostvm embeds a sandboxed Go interpreter as the "host VM" target
// for generated code (§4.7/§4.8): codegen emits Go source, this package
// compiles and runs it via traefik/yaegi, mirroring the teacher's
// YaegiExecutor allow-listed import policy.
package hostvm

import (
	"context"
	"fmt"
	"path"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"jacc/internal/logging"
)

// allowedPackages mirrors yaegi_executor.go's whitelist: pure, side-effect-
// free standard library packages only. Anything touching the filesystem,
// network, or process control is deliberately excluded so host-VM execution
// of generated code cannot escape the sandbox.
var allowedPackages = map[string]bool{
	"strings":         true,
	"strconv":         true,
	"fmt":             true,
	"math":            true,
	"regexp":          true,
	"encoding/json":   true,
	"encoding/base64": true,
	"time":            true,
	"sort":            true,
	"bytes":           true,
	"errors":          true,
	"unicode":         true,
}

var blockedPackages = map[string]bool{
	"os":        true,
	"os/exec":   true,
	"net":       true,
	"net/http":  true,
	"syscall":   true,
	"unsafe":    true,
	"io/ioutil": true,
	"plugin":    true,
}

// VM is a sandboxed executor for one compiled unit's generated Go source.
type VM struct {
	log *logging.Logger
}

// New creates a VM. log may be nil.
func New(log *logging.Logger) *VM {
	return &VM{log: log}
}

// ValidateImports scans a set of import paths collected from generated
// source and rejects anything outside the allow-list before a single line
// of generated code runs.
func ValidateImports(imports []string) error {
	for _, imp := range imports {
		if blockedPackages[imp] {
			return fmt.Errorf("hostvm: import %q is explicitly blocked", imp)
		}
		if !allowedPackages[imp] {
			return fmt.Errorf("hostvm: import %q is not in the host-VM allow-list", imp)
		}
	}
	return nil
}

// Artifact is one compiled unit ready to execute: the generated Go source
// plus the entrypoint symbol codegen assigned it.
type Artifact struct {
	Source     string
	Entrypoint string // "pkgname.FuncName"
	Imports    []string
}

// Run interprets src and invokes its entrypoint with no arguments, returning
// whatever it returns. Intended for the seed compiler (§4.8) and for
// ad hoc evaluation of a single compiled module; the full program container
// (§4.10) caches the resulting bytecode artifact instead of re-running this
// every time.
func (v *VM) Run(ctx context.Context, a Artifact) (interface{}, error) {
	if err := ValidateImports(a.Imports); err != nil {
		return nil, err
	}
	v.debugf("interpreting entrypoint %s (%d bytes of source)", a.Entrypoint, len(a.Source))

	i := interp.New(interp.Options{})
	syms := interp.Exports{}
	for key, pkgSyms := range stdlib.Symbols {
		if allowedPackages[path.Dir(key)] {
			syms[key] = pkgSyms
		}
	}
	if err := i.Use(syms); err != nil {
		return nil, fmt.Errorf("hostvm: load stdlib symbols: %w", err)
	}

	if _, err := i.Eval(a.Source); err != nil {
		return nil, fmt.Errorf("hostvm: eval: %w", err)
	}

	v2, err := i.Eval(a.Entrypoint)
	if err != nil {
		return nil, fmt.Errorf("hostvm: resolve entrypoint %s: %w", a.Entrypoint, err)
	}
	fn, ok := v2.Interface().(func() interface{})
	if ok {
		return fn(), nil
	}
	return callReflect(v2)
}

func callReflect(v reflect.Value) (interface{}, error) {
	if v.Kind() != reflect.Func {
		return v.Interface(), nil
	}
	results := v.Call(nil)
	if len(results) == 0 {
		return nil, nil
	}
	return results[0].Interface(), nil
}

func (v *VM) debugf(format string, args ...interface{}) {
	if v.log != nil {
		v.log.Debug(format, args...)
	}
}
