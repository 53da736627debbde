package compose

import (
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Sanitize turns an LLM reply into plain text fit for speech synthesis.
// Markdown emphasis, headings, links and list markers are dropped, a quote
// pair wrapping the whole reply is removed and all whitespace collapses to
// single spaces.
func Sanitize(reply string) string {
	s := strings.Join(strings.Fields(plainText(reply)), " ")
	return strings.Join(strings.Fields(unquote(s)), " ")
}

// plainText renders the text content of a markdown document.
func plainText(src string) string {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.Kind() {
			case ast.KindHeading, ast.KindListItem:
				endSentence(&b)
			}
			if n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(source))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock, *ast.ThematicBreak:
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(source))
				b.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// endSentence closes a heading or list item with a period unless it
// already ends in punctuation.
func endSentence(b *strings.Builder) {
	s := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	if s == "" {
		return
	}
	if strings.ContainsRune(".!?:;,", rune(s[len(s)-1])) {
		return
	}
	b.Reset()
	b.WriteString(s)
	b.WriteByte('.')
}

var quotePairs = map[rune]rune{'"': '"', '\'': '\'', '“': '”', '‘': '’', '`': '`'}

// unquote removes quote pairs wrapping the whole string.
func unquote(s string) string {
	for {
		s = strings.TrimSpace(s)
		runes := []rune(s)
		if len(runes) < 2 {
			return s
		}
		closing, ok := quotePairs[runes[0]]
		if !ok || runes[len(runes)-1] != closing {
			return s
		}
		inner := string(runes[1 : len(runes)-1])
		// "A" and "B" is not a wrapped reply.
		if strings.ContainsRune(inner, runes[0]) || strings.ContainsRune(inner, closing) {
			return s
		}
		s = inner
	}
}
