package syntax

import (
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"

	"github.com/rotisserie/eris"
)

// goParser backs the "go" language with the standard library parser.
type goParser struct{}

func (goParser) Parse(text string) (*Tree, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "src.go", text, parser.SkipObjectResolution)
	if err != nil {
		return nil, eris.Wrap(err, "syntax: parse go source")
	}

	offset := func(p token.Pos) int { return fset.Position(p).Offset }

	tree := &Tree{}
	selector := map[token.Pos]bool{}
	declared := map[token.Pos]bool{}

	ast.Inspect(file, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncDecl:
			if n.Body == nil {
				return true
			}
			tree.Functions = append(tree.Functions, Function{
				Name:      n.Name.Name,
				Start:     offset(n.Pos()),
				End:       offset(n.End()),
				BodyStart: offset(n.Body.Lbrace),
				BodyEnd:   offset(n.Body.Rbrace) + 1,
			})
		case *ast.FuncLit:
			if n.Body == nil {
				return true
			}
			tree.Functions = append(tree.Functions, Function{
				Start:     offset(n.Pos()),
				End:       offset(n.End()),
				BodyStart: offset(n.Body.Lbrace),
				BodyEnd:   offset(n.Body.Rbrace) + 1,
			})
		case *ast.SelectorExpr:
			selector[n.Sel.Pos()] = true
		case *ast.ValueSpec:
			for _, name := range n.Names {
				declared[name.Pos()] = true
			}
		case *ast.AssignStmt:
			if n.Tok == token.DEFINE {
				for _, lhs := range n.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						declared[id.Pos()] = true
					}
				}
			}
		}
		return true
	})

	ast.Inspect(file, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok || id.Name == "_" {
			return true
		}
		occ := Ident{
			Name:     id.Name,
			Start:    offset(id.Pos()),
			End:      offset(id.End()),
			Property: selector[id.Pos()],
		}
		tree.Idents = append(tree.Idents, occ)
		if declared[id.Pos()] {
			tree.Declared = append(tree.Declared, occ)
		}
		return true
	})

	return tree, nil
}

func (goParser) Check(text string) Report {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "src.go", text, parser.AllErrors|parser.SkipObjectResolution)

	var rep Report
	if err != nil {
		if list, ok := err.(scanner.ErrorList); ok {
			rep.ErrorCount = list.Len()
		} else {
			rep.ErrorCount = 1
		}
	}
	if file != nil {
		ast.Inspect(file, func(n ast.Node) bool {
			if n != nil {
				rep.NodeCount++
			}
			return true
		})
	}
	return rep
}
