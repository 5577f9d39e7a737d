package parser

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	blankLines  = regexp.MustCompile(`\n{3,}`)
	innerSpaces = regexp.MustCompile(`[ \t]+`)
)

var md = goldmark.New()

// MarkdownToText flattens Markdown (as posted on forums) into plain prose.
// Emphasis, links and code markers are dropped; link text and paragraph
// breaks are kept.
func MarkdownToText(source string) string {
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
		case *ast.CodeSpan:
			// children are Text nodes, handled above
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(src))
				}
				return ast.WalkSkipChildren, nil
			}
		case *ast.AutoLink:
			if entering {
				buf.Write(node.URL(src))
				return ast.WalkSkipChildren, nil
			}
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
			if !entering {
				buf.WriteString("\n\n")
			}
		case *ast.ThematicBreak:
			if entering {
				buf.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	out := html.UnescapeString(buf.String())
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(innerSpaces.ReplaceAllString(l, " "))
	}
	out = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}
