package outline

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// goOutline parses Go source with the standard library AST and reports
// top-level functions, methods, and type declarations.
func goOutline(src string) ([]Unit, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "src.go", src, 0)
	if err != nil {
		return nil, fmt.Errorf("parse go source: %w", err)
	}

	var units []Unit
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			units = append(units, goFuncUnit(fset, src, d))
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				units = append(units, goTypeUnit(fset, ts))
			}
		}
	}
	return units, nil
}

func goFuncUnit(fset *token.FileSet, src string, d *ast.FuncDecl) Unit {
	unitType := "function"
	name := d.Name.Name
	if d.Recv != nil && len(d.Recv.List) > 0 {
		unitType = "method"
		name = receiverTypeName(d.Recv.List[0].Type) + "." + name
	}

	// Signature is the source text up to the body's opening brace.
	sigEnd := d.End()
	if d.Body != nil {
		sigEnd = d.Body.Lbrace
	}
	start := fset.Position(d.Pos())
	sig := strings.TrimSpace(sliceSource(src, fset, d.Pos(), sigEnd))

	return Unit{
		Type:      unitType,
		Name:      name,
		Signature: sig,
		StartLine: start.Line,
		EndLine:   fset.Position(d.End()).Line,
	}
}

func goTypeUnit(fset *token.FileSet, ts *ast.TypeSpec) Unit {
	unitType := "type"
	switch ts.Type.(type) {
	case *ast.StructType:
		unitType = "struct"
	case *ast.InterfaceType:
		unitType = "interface"
	}
	return Unit{
		Type:      unitType,
		Name:      ts.Name.Name,
		StartLine: fset.Position(ts.Pos()).Line,
		EndLine:   fset.Position(ts.End()).Line,
	}
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr: // generic receiver
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	default:
		return "unknown"
	}
}

func sliceSource(src string, fset *token.FileSet, from, to token.Pos) string {
	start := fset.Position(from).Offset
	end := fset.Position(to).Offset
	if start < 0 || end > len(src) || start > end {
		return ""
	}
	return src[start:end]
}
