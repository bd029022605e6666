package expressions

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
	"github.com/expr-lang/expr/vm/runtime"

	"github.com/stack21/flowengine/pkg/schema"
)

// ExprEngine evaluates conditions with expr-lang/expr. Programs run in
// expr's VM with only its builtins available, so condition strings from
// workflow authors cannot reach Go code.
type ExprEngine struct {
	cache programCache[*vm.Program]
}

func NewExprEngine() *ExprEngine {
	return &ExprEngine{}
}

func (e *ExprEngine) Name() string {
	return LanguageExpr
}

// Evaluate runs expression with the keys of data as top-level variables.
// Programs are compiled without a typed environment so one cached program
// serves whatever shape the data bag has at run time.
func (e *ExprEngine) Evaluate(_ context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty expr expression")
	}

	prg, err := e.cache.get(expression, compileExpr)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}

	out, err := vm.Run(prg, data)
	if err != nil {
		return nil, expressionError("expr evaluation failed for", expression, err)
	}
	return out, nil
}

func compileExpr(src string) (*vm.Program, error) {
	prg, err := expr.Compile(src,
		expr.AllowUndefinedVariables(),
		expr.Function(orderedCompareFunc, orderedCompare),
		expr.Patch(nilSafeOrdering{}),
	)
	if err != nil {
		return nil, expressionError("expr compile error in", src, err)
	}
	return prg, nil
}

const orderedCompareFunc = "__ordered_compare"

// nilSafeOrdering rewrites <, >, <= and >= into calls of orderedCompare,
// so a comparison against a missing field is false rather than a runtime
// error.
type nilSafeOrdering struct{}

func (nilSafeOrdering) Visit(node *ast.Node) {
	bin, ok := (*node).(*ast.BinaryNode)
	if !ok {
		return
	}
	switch bin.Operator {
	case "<", ">", "<=", ">=":
	default:
		return
	}
	ast.Patch(node, &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: orderedCompareFunc},
		Arguments: []ast.Node{&ast.StringNode{Value: bin.Operator}, bin.Left, bin.Right},
	})
}

// orderedCompare(op, a, b) is false when either side is nil. Other
// mismatched operands still fail with expr's own error.
func orderedCompare(params ...any) (any, error) {
	op, _ := params[0].(string)
	a, b := params[1], params[2]
	if a == nil || b == nil {
		return false, nil
	}
	switch op {
	case "<":
		return runtime.Less(a, b), nil
	case ">":
		return runtime.More(a, b), nil
	case "<=":
		return runtime.LessOrEqual(a, b), nil
	default:
		return runtime.MoreOrEqual(a, b), nil
	}
}

var _ Engine = (*ExprEngine)(nil)
