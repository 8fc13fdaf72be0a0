package render

import (
	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Chapter bodies annotate pronunciation with `|base<reading>`, which renders
// as <ruby>base<rt>reading</rt></ruby>. The base may not contain '|' or '<';
// the reading may not contain '>'.

// RubyNode is an inline AST node holding one ruby annotation.
type RubyNode struct {
	gast.BaseInline
	Base    []byte
	Reading []byte
}

// KindRuby is the node kind of RubyNode.
var KindRuby = gast.NewNodeKind("Ruby")

// Kind implements ast.Node.
func (n *RubyNode) Kind() gast.NodeKind { return KindRuby }

// Dump implements ast.Node.
func (n *RubyNode) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Base":    string(n.Base),
		"Reading": string(n.Reading),
	}, nil)
}

type rubyParser struct{}

// Trigger implements parser.InlineParser.
func (p *rubyParser) Trigger() []byte { return []byte{'|'} }

// Parse implements parser.InlineParser.
func (p *rubyParser) Parse(parent gast.Node, block text.Reader, pc parser.Context) gast.Node {
	line, _ := block.PeekLine()
	if len(line) < 4 || line[0] != '|' {
		return nil
	}

	// base: one or more bytes that are neither '<' nor '|'
	i := 1
	for i < len(line) && line[i] != '<' && line[i] != '|' {
		i++
	}
	if i == 1 || i >= len(line) || line[i] != '<' {
		return nil
	}

	// reading: one or more bytes up to the closing '>'
	j := i + 1
	for j < len(line) && line[j] != '>' {
		j++
	}
	if j == i+1 || j >= len(line) {
		return nil
	}

	node := &RubyNode{
		Base:    append([]byte(nil), line[1:i]...),
		Reading: append([]byte(nil), line[i+1:j]...),
	}
	block.Advance(j + 1)
	return node
}

type rubyHTMLRenderer struct{}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *rubyHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindRuby, r.renderRuby)
}

func (r *rubyHTMLRenderer) renderRuby(w util.BufWriter, source []byte, node gast.Node, entering bool) (gast.WalkStatus, error) {
	if !entering {
		return gast.WalkContinue, nil
	}
	n := node.(*RubyNode)
	_, _ = w.WriteString("<ruby>")
	_, _ = w.Write(util.EscapeHTML(n.Base))
	_, _ = w.WriteString("<rt>")
	_, _ = w.Write(util.EscapeHTML(n.Reading))
	_, _ = w.WriteString("</rt></ruby>")
	return gast.WalkContinue, nil
}

type rubyExtension struct{}

// Ruby is the goldmark extension enabling ruby annotations.
var Ruby goldmark.Extender = &rubyExtension{}

// Extend implements goldmark.Extender.
func (e *rubyExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&rubyParser{}, 500),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&rubyHTMLRenderer{}, 500),
	))
}
