package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// AuditReport lists image destinations found by a structural parse.
type AuditReport struct {
	Total    int
	Local    int
	External int
	// Dangling holds destinations that neither live under the document
	// folder nor point at an external URL.
	Dangling []string
}

// Audit parses rewritten markdown and classifies every image destination.
func Audit(stem string, src []byte) AuditReport {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var rep AuditReport
	prefix := stem + "/"
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(img.Destination)
		rep.Total++
		switch {
		case strings.HasPrefix(dest, prefix):
			rep.Local++
		case IsExternal(dest):
			rep.External++
		default:
			rep.Dangling = append(rep.Dangling, dest)
		}
		return ast.WalkContinue, nil
	})
	return rep
}
