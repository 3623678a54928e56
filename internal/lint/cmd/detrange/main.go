// Command detrange reports iteration over maps in packages whose results must
// be identical on every machine. Go randomizes map iteration order, so any
// such loop whose effects depend on order is a consensus bug.
//
// Loops that only collect keys or values into a slice or another map are
// allowed, since their results are order-independent once sorted.
package main

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/analysis/singlechecker"
	"golang.org/x/tools/go/ast/inspector"
)

var deterministicPkgs = []string{"consensus", "melvm"}

func deterministic(path string) bool {
	for _, p := range deterministicPkgs {
		if path == p || strings.HasSuffix(path, "/"+p) {
			return true
		}
	}
	return false
}

// collects reports whether stmt stores into a map or appends to a slice, and
// does nothing else.
func collects(pass *analysis.Pass, stmt ast.Stmt) bool {
	as, ok := stmt.(*ast.AssignStmt)
	if !ok || len(as.Lhs) != 1 || len(as.Rhs) != 1 {
		return false
	}
	switch lhs := as.Lhs[0].(type) {
	case *ast.IndexExpr:
		_, isMap := pass.TypesInfo.TypeOf(lhs.X).Underlying().(*types.Map)
		return isMap && as.Tok == token.ASSIGN
	case *ast.Ident:
		call, ok := as.Rhs[0].(*ast.CallExpr)
		if !ok {
			return false
		}
		fn, ok := call.Fun.(*ast.Ident)
		if !ok || fn.Name != "append" || len(call.Args) == 0 {
			return false
		}
		first, ok := call.Args[0].(*ast.Ident)
		return ok && first.Name == lhs.Name
	}
	return false
}

func run(pass *analysis.Pass) (any, error) {
	if !deterministic(pass.Pkg.Path()) {
		return nil, nil
	}
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	inspect.Preorder([]ast.Node{(*ast.RangeStmt)(nil)}, func(n ast.Node) {
		rs := n.(*ast.RangeStmt)
		if _, ok := pass.TypesInfo.TypeOf(rs.X).Underlying().(*types.Map); !ok {
			return
		}
		for _, stmt := range rs.Body.List {
			if !collects(pass, stmt) {
				pass.Reportf(rs.Pos(), "order-dependent iteration over map; collect and sort the keys first")
				return
			}
		}
	})
	return nil, nil
}

// Analyzer is the detrange analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "detrange",
	Doc:      "reports order-dependent map iteration in consensus-critical packages",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func main() {
	singlechecker.Main(Analyzer)
}
