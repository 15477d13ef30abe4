// Package seed implements the Layer 0 bootstrap compiler (§4.8): a
// standalone, minimal pipeline over a strictly smaller language subset,
// sufficient to compile Layer 1 without a symbol table, pass scheduler, or
// impl-file matching. It lexes, parses, rejects anything outside the
// subset, emits Go source directly via internal/codegen (with no
// symtab.Table — codegen's impl-splicing step simply no-ops), and executes
// it with internal/hostvm.
package seed

import (
	"context"
	"fmt"
	"os"

	"jacc/internal/ast"
	"jacc/internal/codegen"
	"jacc/internal/diag"
	"jacc/internal/hostvm"
	"jacc/internal/logging"
	"jacc/internal/parser"
	"jacc/internal/source"
)

// Result is the outcome of one seed compilation: the generated Go source
// ("host code-object" in spec terms) plus any SyntaxError diagnostics. No
// other diagnostic kind is ever produced at this layer.
type Result struct {
	Source     string
	Entrypoint string
	Diagnostics []diag.Alert
}

// Compiler is the Layer 0 pipeline. It has no persistent state beyond a
// logger; each call is independent, matching the single-traversal
// contract.
type Compiler struct {
	log *logging.Logger
	vm  *hostvm.VM
}

// New creates a seed Compiler. log may be nil.
func New(log *logging.Logger) *Compiler {
	return &Compiler{log: log, vm: hostvm.New(log)}
}

// Compile lexes, parses, and lowers source to Go, rejecting anything the
// restricted subset (§4.8) doesn't cover. filename is used only for
// diagnostics; the entrypoint is always seedpkg.Main.
func (c *Compiler) Compile(src []byte, filename string) Result {
	s := source.New(src, filename)
	mod := parser.Parse(s, c.log)

	alerts := append([]diag.Alert{}, moduleSyntaxAlerts(mod)...)
	if subsetErr := CheckSubset(mod); subsetErr != nil {
		alerts = append(alerts, diag.New(diag.SyntaxError, mod.Span(), "%s", subsetErr.Error()))
	}
	if len(alerts) > 0 {
		return Result{Diagnostics: alerts}
	}

	gen := codegen.New(codegen.Options{PackageName: "seedpkg"}, c.log)
	out, err := gen.Generate(mod, nil)
	if err != nil {
		alerts = append(alerts, diag.New(diag.InternalError, mod.Span(), "%s", err.Error()))
		return Result{Diagnostics: alerts}
	}
	return Result{Source: out, Entrypoint: "seedpkg.Main", Diagnostics: alerts}
}

// CompileFile reads path and compiles it, mirroring seed_compile_file.
func (c *Compiler) CompileFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return c.Compile(data, path), nil
}

// Exec compiles and runs source under filename, returning whatever the
// generated entrypoint returns — the "namespace" spec.md's seed_exec
// produces, reduced to a single value since the host VM has no persistent
// module-global namespace across calls.
func (c *Compiler) Exec(ctx context.Context, src []byte, filename string) (interface{}, error) {
	res := c.Compile(src, filename)
	if len(res.Diagnostics) > 0 {
		return nil, fmt.Errorf("seed: %d diagnostic(s), first: %s", len(res.Diagnostics), res.Diagnostics[0].Message)
	}
	return c.vm.Run(ctx, hostvm.Artifact{Source: res.Source, Entrypoint: res.Entrypoint})
}

func moduleSyntaxAlerts(mod *ast.Module) []diag.Alert {
	if mod.HasSyntaxErrors {
		return []diag.Alert{diag.New(diag.SyntaxError, mod.Span(), "module failed to parse cleanly")}
	}
	return nil
}
