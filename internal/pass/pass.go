// Package pass implements the ordered pass scheduler of §4.4: a fixed,
// named sequence of transformations run over one ast.Module, with
// cooperative cancellation and a latch that records whether any pass raised
// a syntax-level diagnostic.
package pass

import (
	"context"

	"jacc/internal/ast"
	"jacc/internal/diag"
	"jacc/internal/logging"
)

// Name identifies one schedulable pass.
type Name string

const (
	NameSymtabBuild   Name = "symtab_build"
	NameMatchImpl     Name = "match_impl"
	NameResolveImport Name = "resolve_import"
	NameMinimalIR     Name = "minimal_ir"
	NameFullIR        Name = "full_ir"
	NameTypeCheck     Name = "type_check"
	NameCodegen       Name = "codegen"
	NameFormat        Name = "format"
)

// Schedule is an ordered, named list of passes to run. Schedules are fixed
// per compile mode — callers pick one, they do not assemble passes ad hoc.
type Schedule []Name

var (
	// ScheduleSymtabOnly builds just enough to answer symbol-table queries
	// (used by tooling that only needs declarations, e.g. a future LSP).
	ScheduleSymtabOnly = Schedule{NameSymtabBuild, NameMatchImpl, NameResolveImport}
	// ScheduleMinimalIR additionally lowers to the minimal intermediate form
	// used by the seed-adjacent fast path.
	ScheduleMinimalIR = Schedule{NameSymtabBuild, NameMatchImpl, NameResolveImport, NameMinimalIR}
	// ScheduleFullIR performs full semantic lowering without type checking.
	ScheduleFullIR = Schedule{NameSymtabBuild, NameMatchImpl, NameResolveImport, NameMinimalIR, NameFullIR}
	// ScheduleTypeCheck adds the (stub) type-checking extension point.
	ScheduleTypeCheck = Schedule{NameSymtabBuild, NameMatchImpl, NameResolveImport, NameMinimalIR, NameFullIR, NameTypeCheck}
	// ScheduleCodegen is the full compile-to-host-source pipeline.
	ScheduleCodegen = Schedule{NameSymtabBuild, NameMatchImpl, NameResolveImport, NameMinimalIR, NameFullIR, NameTypeCheck, NameCodegen}
	// ScheduleFormat runs only the passes a formatter needs.
	ScheduleFormat = Schedule{NameSymtabBuild, NameFormat}
)

// Pass is one named transformation over a Unit.
type Pass interface {
	Name() Name
	Run(ctx context.Context, u *Unit) error
}

// Unit is the mutable state threaded through a pass run: the module being
// compiled plus the diagnostics accumulated so far. Passes never raise
// diagnostics as errors across this boundary — they append to Alerts and
// return a non-nil error only for Cancelled/InternalError conditions that
// must stop the schedule outright.
type Unit struct {
	Module          *ast.Module
	Alerts          []diag.Alert
	HasSyntaxErrors bool // latch: set on first SyntaxError-kind alert, never cleared

	// Extension points populated by passes as they run; later passes read
	// them via type assertion. Kept untyped here so this package does not
	// import symtab/codegen and create an import cycle.
	Symtab  interface{}
	Codegen interface{}
}

func (u *Unit) addAlert(a diag.Alert) {
	u.Alerts = append(u.Alerts, a)
	if a.Kind == diag.SyntaxError {
		u.HasSyntaxErrors = true
	}
}

// Handle is a cancellation handle for one scheduled run, distinct from a
// context deadline: cancellation here is caller-driven (e.g. an embedder
// tearing down a long-running compile), not time-based (§9 Design Notes).
type Handle struct {
	cancel context.CancelFunc
	ctx    context.Context
}

// NewHandle creates a cancellable run handle bound to parent.
func NewHandle(parent context.Context) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{cancel: cancel, ctx: ctx}
}

// Cancel requests cooperative cancellation; in-flight passes observe it at
// their next checkpoint and the scheduler appends a Cancelled diagnostic.
func (h *Handle) Cancel() { h.cancel() }

// Scheduler runs a fixed Schedule of registered passes over a Unit.
type Scheduler struct {
	passes map[Name]Pass
	log    *logging.Logger
}

// NewScheduler builds a Scheduler with the given passes registered by name.
func NewScheduler(log *logging.Logger, passes ...Pass) *Scheduler {
	m := make(map[Name]Pass, len(passes))
	for _, p := range passes {
		m[p.Name()] = p
	}
	return &Scheduler{passes: m, log: log}
}

// Run executes sched's passes in order against mod, returning the resulting
// Unit. It stops early (without running later passes) on cancellation or a
// pass-reported InternalError, but a SyntaxError diagnostic from an earlier
// pass does not by itself halt the schedule — later passes must tolerate a
// partially-valid tree, per §4.4's "ordering contract: passes only run after
// their dependencies complete, but one pass's diagnostics never abort a
// sibling pass."
func (s *Scheduler) Run(h *Handle, sched Schedule, mod *ast.Module) *Unit {
	u := &Unit{Module: mod, HasSyntaxErrors: mod.HasSyntaxErrors}
	for _, name := range sched {
		select {
		case <-h.ctx.Done():
			u.addAlert(diag.New(diag.Cancelled, mod.Sp, "pass schedule cancelled before %s", name))
			return u
		default:
		}

		p, ok := s.passes[name]
		if !ok {
			s.debugf("pass %s not registered, skipping", name)
			continue
		}
		s.debugf("running pass %s", name)
		if err := p.Run(h.ctx, u); err != nil {
			if h.ctx.Err() != nil {
				u.addAlert(diag.New(diag.Cancelled, mod.Sp, "pass %s cancelled: %v", name, err))
				return u
			}
			u.addAlert(diag.New(diag.InternalError, mod.Sp, "pass %s failed: %v", name, err))
			return u
		}
	}
	return u
}

func (s *Scheduler) debugf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Debug(format, args...)
	}
}
