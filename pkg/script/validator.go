package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// importNames are the Lua constructs that load external code. They are
// reported under RuleNoImports; every other denied name falls under
// RuleDeniedName.
var importNames = map[string]bool{
	"require":    true,
	"dofile":     true,
	"loadfile":   true,
	"load":       true,
	"loadstring": true,
}

// DefaultDeniedNames is the default deny-set: OS and filesystem access,
// dynamic code loading, and the reflection facilities that would let a
// handler climb out of its scope. The set is an explicit enumeration and
// can be replaced with WithDeniedNames.
func DefaultDeniedNames() []string {
	return []string{
		"_G", "_ENV",
		"os", "io", "debug", "package",
		"require", "dofile", "loadfile", "load", "loadstring",
		"getfenv", "setfenv",
		"rawget", "rawset",
		"setmetatable", "getmetatable",
	}
}

// Validator statically inspects inline handler source. It never executes
// the text: all rules operate on the parsed syntax tree, so aliasing,
// string concatenation, and comments cannot smuggle a denied construct
// past it.
type Validator struct {
	denied map[string]bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithDeniedNames replaces the default deny-set.
func WithDeniedNames(names ...string) ValidatorOption {
	return func(v *Validator) {
		v.denied = make(map[string]bool, len(names))
		for _, n := range names {
			v.denied[n] = true
		}
	}
}

// NewValidator creates a validator with the default deny-set.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	if v.denied == nil {
		v.denied = make(map[string]bool)
		for _, n := range DefaultDeniedNames() {
			v.denied[n] = true
		}
	}
	return v
}

// Validate inspects source and returns the accepted handler definition, or
// a *ValidationError listing every violation in source order. The verdict
// is all-or-nothing: a single violation rejects the whole source.
func (v *Validator) Validate(source, chunkName string) (*HandlerDef, error) {
	chunk, err := parse.Parse(strings.NewReader(source), chunkName)
	if err != nil {
		line := 0
		if perr, ok := err.(*parse.Error); ok {
			line = perr.Pos.Line
		}
		return nil, &ValidationError{Violations: []Violation{
			{Rule: RuleSyntax, Line: line, Detail: err.Error()},
		}}
	}

	var vs []Violation
	def := v.checkTopLevel(chunk, &vs)
	if def != nil {
		v.checkSignature(def, &vs)
	}
	v.walkStmts(chunk, &vs)

	if len(vs) > 0 {
		sort.SliceStable(vs, func(i, j int) bool { return vs[i].Line < vs[j].Line })
		return nil, &ValidationError{Violations: vs}
	}
	return def, nil
}

// checkTopLevel enforces the single-definition rule: the chunk must consist
// of exactly one global function definition with a plain name. Nested
// helpers inside the handler body are fine; a second entry point is not.
func (v *Validator) checkTopLevel(chunk []ast.Stmt, vs *[]Violation) *HandlerDef {
	var def *HandlerDef
	for _, st := range chunk {
		fn, ok := st.(*ast.FuncDefStmt)
		if !ok {
			*vs = append(*vs, Violation{
				Rule:   RuleSingleDefinition,
				Line:   st.Line(),
				Detail: "unexpected top-level statement; the source must contain a single global function definition and nothing else",
			})
			continue
		}

		name, plain := fn.Name.Func.(*ast.IdentExpr)
		if fn.Name.Receiver != nil || !plain {
			*vs = append(*vs, Violation{
				Rule:   RuleSingleDefinition,
				Line:   st.Line(),
				Detail: "handler must be a plain global function (no method receiver or dotted name)",
			})
			continue
		}

		if def != nil {
			*vs = append(*vs, Violation{
				Rule:   RuleSingleDefinition,
				Line:   st.Line(),
				Detail: fmt.Sprintf("second top-level function %q; only one handler definition is allowed", name.Value),
			})
			continue
		}

		params := []string{}
		variadic := false
		if fn.Func.ParList != nil {
			params = fn.Func.ParList.Names
			variadic = fn.Func.ParList.HasVargs
		}
		def = &HandlerDef{Name: name.Value, Params: params, chunk: chunk}
		if variadic {
			*vs = append(*vs, Violation{
				Rule:   RuleSignature,
				Line:   st.Line(),
				Detail: fmt.Sprintf("handler %q must not be variadic", name.Value),
			})
		}
	}

	if def == nil && len(*vs) == 0 {
		*vs = append(*vs, Violation{
			Rule:   RuleSingleDefinition,
			Line:   1,
			Detail: "source must define exactly one handler function",
		})
	}
	return def
}

func (v *Validator) checkSignature(def *HandlerDef, vs *[]Violation) {
	if len(def.Params) != 4 {
		line := 1
		if len(def.chunk) > 0 {
			line = def.chunk[0].Line()
		}
		*vs = append(*vs, Violation{
			Rule:   RuleSignature,
			Line:   line,
			Detail: fmt.Sprintf("handler %q must accept exactly 4 parameters (chat_id, user_input, context, sender), got %d", def.Name, len(def.Params)),
		})
	}
}

func (v *Validator) checkName(name string, line int, vs *[]Violation) {
	if !v.denied[name] {
		return
	}
	rule := RuleDeniedName
	detail := fmt.Sprintf("reference to restricted name %q", name)
	if importNames[name] {
		rule = RuleNoImports
		detail = fmt.Sprintf("use of import facility %q", name)
	}
	*vs = append(*vs, Violation{Rule: rule, Line: line, Detail: detail})
}

// checkDeclaredNames flags local declarations that shadow a denied name.
// Shadowing is rejected rather than tracked: assigning around the deny-set
// is exactly the aliasing trick the rule exists to stop.
func (v *Validator) checkDeclaredNames(names []string, line int, vs *[]Violation) {
	for _, name := range names {
		if v.denied[name] {
			*vs = append(*vs, Violation{
				Rule:   RuleDeniedName,
				Line:   line,
				Detail: fmt.Sprintf("declaration shadows restricted name %q", name),
			})
		}
	}
}

func (v *Validator) walkStmts(stmts []ast.Stmt, vs *[]Violation) {
	for _, st := range stmts {
		v.walkStmt(st, vs)
	}
}

func (v *Validator) walkStmt(st ast.Stmt, vs *[]Violation) {
	switch s := st.(type) {
	case *ast.AssignStmt:
		v.walkExprs(s.Lhs, vs)
		v.walkExprs(s.Rhs, vs)
	case *ast.LocalAssignStmt:
		v.checkDeclaredNames(s.Names, s.Line(), vs)
		v.walkExprs(s.Exprs, vs)
	case *ast.FuncCallStmt:
		v.walkExpr(s.Expr, vs)
	case *ast.DoBlockStmt:
		v.walkStmts(s.Stmts, vs)
	case *ast.WhileStmt:
		v.walkExpr(s.Condition, vs)
		v.walkStmts(s.Stmts, vs)
	case *ast.RepeatStmt:
		v.walkExpr(s.Condition, vs)
		v.walkStmts(s.Stmts, vs)
	case *ast.IfStmt:
		v.walkExpr(s.Condition, vs)
		v.walkStmts(s.Then, vs)
		v.walkStmts(s.Else, vs)
	case *ast.NumberForStmt:
		v.checkDeclaredNames([]string{s.Name}, s.Line(), vs)
		v.walkExpr(s.Init, vs)
		v.walkExpr(s.Limit, vs)
		v.walkExpr(s.Step, vs)
		v.walkStmts(s.Stmts, vs)
	case *ast.GenericForStmt:
		v.checkDeclaredNames(s.Names, s.Line(), vs)
		v.walkExprs(s.Exprs, vs)
		v.walkStmts(s.Stmts, vs)
	case *ast.FuncDefStmt:
		if s.Name != nil {
			v.walkExpr(s.Name.Func, vs)
			v.walkExpr(s.Name.Receiver, vs)
		}
		v.walkExpr(s.Func, vs)
	case *ast.ReturnStmt:
		v.walkExprs(s.Exprs, vs)
	}
}

func (v *Validator) walkExprs(exprs []ast.Expr, vs *[]Violation) {
	for _, e := range exprs {
		v.walkExpr(e, vs)
	}
}

func (v *Validator) walkExpr(ex ast.Expr, vs *[]Violation) {
	if ex == nil {
		return
	}
	switch e := ex.(type) {
	case *ast.IdentExpr:
		v.checkName(e.Value, e.Line(), vs)
	case *ast.AttrGetExpr:
		v.walkExpr(e.Object, vs)
		v.walkExpr(e.Key, vs)
	case *ast.TableExpr:
		for _, f := range e.Fields {
			// Constant keys parse as string literals and stay exempt;
			// computed keys are real expressions and get walked.
			if f.Key != nil {
				if _, constant := f.Key.(*ast.StringExpr); !constant {
					v.walkExpr(f.Key, vs)
				}
			}
			v.walkExpr(f.Value, vs)
		}
	case *ast.FuncCallExpr:
		v.walkExpr(e.Func, vs)
		v.walkExpr(e.Receiver, vs)
		v.walkExprs(e.Args, vs)
	case *ast.LogicalOpExpr:
		v.walkExpr(e.Lhs, vs)
		v.walkExpr(e.Rhs, vs)
	case *ast.RelationalOpExpr:
		v.walkExpr(e.Lhs, vs)
		v.walkExpr(e.Rhs, vs)
	case *ast.ArithmeticOpExpr:
		v.walkExpr(e.Lhs, vs)
		v.walkExpr(e.Rhs, vs)
	case *ast.StringConcatOpExpr:
		v.walkExpr(e.Lhs, vs)
		v.walkExpr(e.Rhs, vs)
	case *ast.UnaryMinusOpExpr:
		v.walkExpr(e.Expr, vs)
	case *ast.UnaryNotOpExpr:
		v.walkExpr(e.Expr, vs)
	case *ast.UnaryLenOpExpr:
		v.walkExpr(e.Expr, vs)
	case *ast.FunctionExpr:
		v.walkStmts(e.Stmts, vs)
	}
}
