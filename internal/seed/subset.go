package seed

import (
	"fmt"

	"jacc/internal/ast"
)

// CheckSubset rejects anything outside the Layer 0 grammar (§4.8): no
// try/except/finally, no with, no match/case, no comprehensions, no sets,
// no walrus, no yield, no lambda. Everything else named by the subset
// (archetypes with inline fields/methods, enums, impl blocks, if/while/
// for-in, typed and augmented assignment, the full expression-operator
// chain, list/dict/tuple literals, f-strings, imports, globals) parses and
// lowers the same way the full pipeline does. Expressions are checked only
// where they stand directly as an expression statement, a return value or
// an assignment's value; sub-expressions (call arguments, operands,
// container elements) are not searched.
func CheckSubset(mod *ast.Module) error {
	for _, item := range mod.Body {
		if err := checkNode(item); err != nil {
			return err
		}
	}
	return nil
}

func checkNode(n ast.Node) error {
	switch v := n.(type) {
	case nil:
		return nil
	case *ast.TryStmt:
		return fmt.Errorf("seed: try/except/finally is outside the Layer 0 subset")
	case *ast.WithStmt:
		return fmt.Errorf("seed: with-statements are outside the Layer 0 subset")
	case *ast.MatchStmt:
		return fmt.Errorf("seed: match/case is outside the Layer 0 subset")
	case *ast.Comprehension:
		return fmt.Errorf("seed: comprehensions are outside the Layer 0 subset")
	case *ast.SetLit:
		return fmt.Errorf("seed: set literals are outside the Layer 0 subset")
	case *ast.WalrusExpr:
		return fmt.Errorf("seed: walrus assignment is outside the Layer 0 subset")
	case *ast.YieldStmt:
		return fmt.Errorf("seed: yield is outside the Layer 0 subset")
	case *ast.LambdaExpr:
		return fmt.Errorf("seed: lambda expressions are outside the Layer 0 subset")
	case *ast.Archetype:
		return checkAll(v.Body)
	case *ast.Ability:
		return checkAll(v.Body)
	case *ast.ImplDef:
		return checkAll(v.Body)
	case *ast.IfStmt:
		if err := checkAll(v.Then); err != nil {
			return err
		}
		for _, e := range v.Elifs {
			if err := checkAll(e.Body); err != nil {
				return err
			}
		}
		return checkAll(v.Else)
	case *ast.WhileStmt:
		return checkAll(v.Body)
	case *ast.ForStmt:
		return checkAll(v.Body)
	case *ast.ExprStmt:
		return checkNode(v.X)
	case *ast.ReturnStmt:
		return checkNode(v.Value)
	case *ast.AssignStmt:
		return checkNode(v.Value)
	default:
		return nil
	}
}

func checkAll(ns []ast.Node) error {
	for _, n := range ns {
		if err := checkNode(n); err != nil {
			return err
		}
	}
	return nil
}
