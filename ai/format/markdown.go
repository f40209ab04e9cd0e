// Package format extracts plain text from markdown content. Stored memory
// previews are stripped of markup so keyword overlap scoring operates on
// prose instead of syntax characters.
package format

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// PlainText renders markdown source as plain text. Block boundaries collapse
// to single spaces; inline markup is dropped.
func PlainText(source string) string {
	src := []byte(source)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				sb.Write(segment.Value(src))
				sb.WriteByte(' ')
			}
		default:
			// Separate blocks with a space so headings don't glue to the
			// following paragraph.
			if n.Type() == ast.TypeBlock && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(sb.String()), " ")
}

// Preview returns the plain-text rendering of source truncated to at most
// limit bytes, cutting on a rune boundary.
func Preview(source string, limit int) string {
	plain := PlainText(source)
	if limit <= 0 || len(plain) <= limit {
		return plain
	}
	for limit > 0 && !utf8.RuneStart(plain[limit]) {
		limit--
	}
	return plain[:limit]
}
