package parsers

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tscss "github.com/smacker/go-tree-sitter/css"

	"github.com/Benny93/axon-go/internal/graph"
)

// CSSParser parses CSS/SCSS source with tree-sitter, extracting selectors
// as addressable symbols and @import rules.
type CSSParser struct{}

// NewCSSParser creates a new CSS/SCSS parser.
func NewCSSParser() *CSSParser {
	return &CSSParser{}
}

// Language returns the language this parser handles.
func (p *CSSParser) Language() string {
	return "css"
}

// Parse parses CSS/SCSS content and extracts id/class selectors and imports.
func (p *CSSParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{
		Symbols:        []ParsedSymbol{},
		Imports:        []ImportStatement{},
		Calls:          []CallSite{},
		TypeRefs:       []TypeAnnotation{},
		Heritage:       []ClassHeritage{},
		PackageImports: make(map[string]string),
	}

	if len(content) == 0 {
		return result, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(tscss.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing CSS code: %w", err)
	}

	p.walk(tree.RootNode(), content, result)
	return result, nil
}

func (p *CSSParser) walk(node *sitter.Node, src []byte, result *ParseResult) {
	switch node.Type() {
	case "id_selector":
		p.extractSelector(node, src, result, "#", "id_name")
	case "class_selector":
		p.extractSelector(node, src, result, ".", "class_name")
	case "import_statement":
		p.extractImport(node, src, result)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walk(node.Child(i), src, result)
	}
}

func (p *CSSParser) extractSelector(node *sitter.Node, src []byte, result *ParseResult, prefix, childType string) {
	var nameNode *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == childType {
			nameNode = child
			break
		}
	}
	if nameNode == nil {
		return
	}

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:      prefix + nameNode.Content(src),
		Kind:      graph.NodeFunction,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Content:   node.Content(src),
	})
}

func (p *CSSParser) extractImport(node *sitter.Node, src []byte, result *ParseResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "string_value" && child.Type() != "call_expression" {
			continue
		}
		url := strings.TrimSpace(child.Content(src))
		url = strings.TrimPrefix(url, "url(")
		url = strings.TrimSuffix(url, ")")
		url = strings.Trim(url, `"'`)
		if url != "" {
			result.Imports = append(result.Imports, ImportStatement{
				ModulePath: url,
				IsRelative: strings.HasPrefix(url, "."),
				StartLine:  int(node.StartPoint().Row) + 1,
			})
		}
		return
	}
}
