package script

import (
	"fmt"
	"strings"

	"github.com/yuin/gopher-lua/ast"
)

// Rule identifies which validation rule a piece of source violated.
type Rule string

const (
	// RuleSyntax rejects source that does not parse at all.
	RuleSyntax Rule = "syntax"

	// RuleNoImports rejects any construct that brings external code into
	// scope (require, dofile, loadfile, load, loadstring).
	RuleNoImports Rule = "no-import"

	// RuleDeniedName rejects references to denied capability names,
	// whether as bare identifiers, attribute-chain roots, or call targets.
	RuleDeniedName Rule = "denied-name"

	// RuleSingleDefinition requires exactly one top-level function
	// definition and nothing else at top level.
	RuleSingleDefinition Rule = "single-definition"

	// RuleSignature requires the handler to accept exactly four
	// positional parameters: (chat_id, user_input, context, sender).
	RuleSignature Rule = "signature"
)

// Violation records one rule breach at a source location.
type Violation struct {
	Rule   Rule
	Line   int
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("line %d: [%s] %s", v.Line, v.Rule, v.Detail)
}

// ValidationError is the rejected verdict of static source inspection.
// Violations are ordered by source appearance; validation never stops at
// the first breach, so the whole report is available at once.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return e.Violations[0].String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d violations:\n", len(e.Violations))
	for i, v := range e.Violations {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, v.String())
	}
	return strings.TrimRight(b.String(), "\n")
}

// Violations returns the violation list if err is a ValidationError,
// otherwise nil.
func Violations(err error) []Violation {
	if verr, ok := err.(*ValidationError); ok {
		return verr.Violations
	}
	return nil
}

// HandlerDef is the accepted verdict of validation: metadata about the
// single handler definition plus its parsed chunk, ready for compilation.
type HandlerDef struct {
	Name   string
	Params []string

	chunk []ast.Stmt
}
