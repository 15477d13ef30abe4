// Package program implements the Program state container of §4.10: one
// compilation unit's module map, diagnostic lists, and handles to the
// shared cache. register_module/append_diagnostic/clear_type_system/
// get_bytecode become Program's exported methods.
package program

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jacc/internal/ast"
	"jacc/internal/cache"
	"jacc/internal/codegen"
	"jacc/internal/config"
	"jacc/internal/diag"
	"jacc/internal/logging"
	"jacc/internal/parser"
	"jacc/internal/pass"
	"jacc/internal/source"
	"jacc/internal/symtab"
)

// Program owns every module compiled in one unit of work, plus the flat
// diagnostic lists and shared cache/type-service handles other components
// call through (§4.10).
type Program struct {
	mu sync.RWMutex

	// ID uniquely identifies this Program instance, used to correlate
	// diagnostics and cancellation tokens across an embedder's multiple
	// concurrent containers.
	ID string

	modules map[string]*ast.Module
	tables  map[string]*symtab.Table

	Errors   []diag.Alert
	Warnings []diag.Alert

	cache     *cache.Cache
	log       *logging.Logger
	scheduler *pass.Scheduler

	// typeSystemCleared counts ClearTypeSystem calls for test assertions;
	// there is no actual type-checker pass implemented yet (§1 Non-goal:
	// "the type-checker pass internals" are out of scope), so clearing it
	// just resets this Program's own derived state.
	typeSystemCleared int
}

// New creates an empty Program. cache may be nil (no persistent tier); log
// may be nil.
func New(c *cache.Cache, log *logging.Logger) *Program {
	sched := pass.NewScheduler(log,
		symtabPass{},
	)
	return &Program{
		ID:        uuid.NewString(),
		modules:   make(map[string]*ast.Module),
		tables:    make(map[string]*symtab.Table),
		cache:     c,
		log:       log,
		scheduler: sched,
	}
}

// RegisterModule records a parsed Module under its canonical path, the
// in-memory tier of the module table.
func (p *Program) RegisterModule(path string, mod *ast.Module) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modules[path] = mod
}

// Module returns a previously registered module, if any.
func (p *Program) Module(path string) (*ast.Module, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.modules[path]
	return m, ok
}

// AppendDiagnostic files an alert into the errors or warnings list
// depending on its Kind, preserving finish-order per §5's ordering
// guarantee ("diagnostics are appended in the order passes finish").
func (p *Program) AppendDiagnostic(a diag.Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a.Kind.IsWarning() {
		p.Warnings = append(p.Warnings, a)
	} else {
		p.Errors = append(p.Errors, a)
	}
}

// ClearTypeSystem resets derived semantic state, for test isolation
// between compilations that reuse one Program. When alsoClearModules is
// true, the module table and diagnostics are wiped too; otherwise only
// the symbol tables are.
func (p *Program) ClearTypeSystem(alsoClearModules bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables = make(map[string]*symtab.Table)
	p.typeSystemCleared++
	if alsoClearModules {
		p.modules = make(map[string]*ast.Module)
		p.Errors = nil
		p.Warnings = nil
	}
}

// CompileFile loads, lexes, parses, and runs the symtab-build pass over
// one file, registering the result and returning its Module. The pass
// scheduler's alerts land on the Program via AppendDiagnostic; lexer and
// parser diagnostics are not appended, and a parse failure shows only as
// the returned Module's HasSyntaxErrors flag.
func (p *Program) CompileFile(path string, src []byte) (*ast.Module, error) {
	s := source.New(src, path)
	mod := parser.Parse(s, p.log)
	p.RegisterModule(path, mod)

	h := pass.NewHandle(context.Background())
	unit := p.scheduler.Run(h, pass.ScheduleSymtabOnly, mod)
	for _, a := range unit.Alerts {
		p.AppendDiagnostic(a)
	}
	if table, ok := unit.Symtab.(*symtab.Table); ok {
		p.mu.Lock()
		p.tables[path] = table
		p.mu.Unlock()
	}
	return mod, nil
}

// CompileFiles compiles many files in parallel using golang.org/x/sync's
// errgroup, mirroring §5's "multiple modules may be compiled in parallel
// by the embedder via a thread pool" — each worker writes into this shared
// Program's mutex-guarded maps and lists.
func (p *Program) CompileFiles(ctx context.Context, files map[string][]byte) error {
	g, _ := errgroup.WithContext(ctx)
	for path, src := range files {
		path, src := path, src
		g.Go(func() error {
			_, err := p.CompileFile(path, src)
			return err
		})
	}
	return g.Wait()
}

// GetBytecode implements §4.9's three-tier lookup surfaced through the
// Program container: the cache's in-memory tier, then its on-disk tier, then
// codegen from the registered Module, whose generated Go source (treated
// here as the "bytecode" artifact, per §4.7) is written back to the cache.
func (p *Program) GetBytecode(path string, opts config.CompileOptions, sourceModTime int64) ([]byte, error) {
	if p.cache != nil {
		if a, ok := p.cache.Get(path, opts, sourceModTime); ok {
			return a.Bytecode, nil
		}
	}

	p.mu.RLock()
	mod, ok := p.modules[path]
	table := p.tables[path]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("program: module %s not registered", path)
	}
	if mod.HasSyntaxErrors {
		return nil, fmt.Errorf("program: module %s has syntax errors, no bytecode produced", path)
	}

	gen := codegen.New(codegen.Options{PackageName: "compiled"}, p.log)
	out, err := gen.Generate(mod, table)
	if err != nil {
		return nil, fmt.Errorf("program: codegen for %s: %w", path, err)
	}
	bc := []byte(out)

	if p.cache != nil {
		if err := p.cache.Put(path, cache.Artifact{Bytecode: bc, SourceModTime: sourceModTime, Options: opts}); err != nil {
			p.debugf("program: failed to write cache entry for %s: %v", path, err)
		}
	}
	return bc, nil
}

func (p *Program) debugf(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Debug(format, args...)
	}
}

// symtabPass adapts internal/symtab.Build into the pass.Pass interface so
// Program's internal scheduler can run it like any other named pass.
type symtabPass struct{}

func (symtabPass) Name() pass.Name { return pass.NameSymtabBuild }

func (symtabPass) Run(ctx context.Context, u *pass.Unit) error {
	table, alerts := symtab.Build(u.Module, nil)
	u.Alerts = append(u.Alerts, alerts...)
	u.Symtab = table
	return nil
}
