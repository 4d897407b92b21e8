package analyzer

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const (
	analyzerName = "forbiddencalls"
	analyzerDoc  = "reports panic, log.Fatal and os.Exit outside main, and outbound requests that bypass the guarded fetcher"
)

// Analyzer checks for forbidden function calls in non-test code.
var Analyzer = &analysis.Analyzer{
	Name:     analyzerName,
	Doc:      analyzerDoc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// unguardedHTTP lists net/http package-level helpers that dial without the
// internal address guard.
var unguardedHTTP = map[string]bool{
	"Get":      true,
	"Head":     true,
	"Post":     true,
	"PostForm": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.CallExpr)(nil),
		(*ast.SelectorExpr)(nil),
	}

	insp.Preorder(nodeFilter, func(node ast.Node) {
		if isTestFile(pass, node) {
			return
		}
		switch n := node.(type) {
		case *ast.CallExpr:
			checkCall(pass, n)
		case *ast.SelectorExpr:
			checkDefaultClient(pass, n)
		}
	})

	return nil, nil
}

func isTestFile(pass *analysis.Pass, node ast.Node) bool {
	return strings.HasSuffix(pass.Fset.Position(node.Pos()).Filename, "_test.go")
}

func checkCall(pass *analysis.Pass, callExpr *ast.CallExpr) {
	switch fn := callExpr.Fun.(type) {
	case *ast.Ident:
		if fn.Name == "panic" {
			pass.Reportf(callExpr.Pos(), "panic is forbidden")
		}
	case *ast.SelectorExpr:
		checkSelectorExpr(pass, fn, callExpr)
	}
}

func checkSelectorExpr(pass *analysis.Pass, selectorExpr *ast.SelectorExpr, callExpr *ast.CallExpr) {
	pkgPath, ok := importedPath(pass, selectorExpr)
	if !ok {
		return
	}
	fn := selectorExpr.Sel.Name

	switch {
	case pkgPath == "log" && fn == "Fatal":
		if !isInMainFunction(pass, callExpr) {
			pass.Reportf(callExpr.Pos(), "log.Fatal is forbidden outside main function")
		}
	case pkgPath == "os" && fn == "Exit":
		if !isInMainFunction(pass, callExpr) {
			pass.Reportf(callExpr.Pos(), "os.Exit is forbidden outside main function")
		}
	case pkgPath == "net/http" && unguardedHTTP[fn]:
		pass.Reportf(callExpr.Pos(), "http.%s bypasses the address guard, use the fetcher client", fn)
	}
}

func checkDefaultClient(pass *analysis.Pass, selectorExpr *ast.SelectorExpr) {
	pkgPath, ok := importedPath(pass, selectorExpr)
	if !ok || pkgPath != "net/http" {
		return
	}
	switch selectorExpr.Sel.Name {
	case "DefaultClient", "DefaultTransport":
		pass.Reportf(selectorExpr.Pos(), "http.%s bypasses the address guard, use the fetcher client", selectorExpr.Sel.Name)
	}
}

// importedPath resolves the package a qualified identifier refers to.
func importedPath(pass *analysis.Pass, selectorExpr *ast.SelectorExpr) (string, bool) {
	ident, ok := selectorExpr.X.(*ast.Ident)
	if !ok || pass.TypesInfo == nil {
		return "", false
	}

	obj := pass.TypesInfo.Uses[ident]
	if obj == nil {
		return "", false
	}

	pkgName, ok := obj.(*types.PkgName)
	if !ok {
		return "", false
	}

	return pkgName.Imported().Path(), true
}

func isInMainFunction(pass *analysis.Pass, node ast.Node) bool {
	for _, f := range pass.Files {
		for _, decl := range f.Decls {
			if funcDecl, ok := decl.(*ast.FuncDecl); ok {
				if funcDecl.Name.Name == "main" && funcDecl.Recv == nil && isNodeInsideFunc(node, funcDecl) {
					return true
				}
			}
		}
	}
	return false
}

func isNodeInsideFunc(target ast.Node, funcDecl *ast.FuncDecl) bool {
	if funcDecl.Body == nil {
		return false
	}
	return funcDecl.Body.Pos() <= target.Pos() && target.End() <= funcDecl.Body.End()
}
