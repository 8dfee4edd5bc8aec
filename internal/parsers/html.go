package parsers

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tshtml "github.com/smacker/go-tree-sitter/html"

	"github.com/Benny93/axon-go/internal/graph"
)

// HTMLParser parses HTML source with tree-sitter. Elements with an id
// attribute become symbols, script/link sources become imports, and anchor
// hrefs become calls (a navigation "calls" the linked document).
type HTMLParser struct{}

// NewHTMLParser creates a new HTML parser.
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// Language returns the language this parser handles.
func (p *HTMLParser) Language() string {
	return "html"
}

// Parse parses HTML content and extracts id-bearing elements, imports, and
// anchor calls.
func (p *HTMLParser) Parse(filePath string, content []byte) (*ParseResult, error) {
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
	parser.SetLanguage(tshtml.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML code: %w", err)
	}

	p.walk(tree.RootNode(), content, result)
	return result, nil
}

func (p *HTMLParser) walk(node *sitter.Node, src []byte, result *ParseResult) {
	switch node.Type() {
	case "element", "script_element", "style_element":
		p.processElement(node, src, result)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		p.walk(node.Child(i), src, result)
	}
}

func (p *HTMLParser) processElement(node *sitter.Node, src []byte, result *ParseResult) {
	startTag := p.findChildByType(node, "start_tag")
	if startTag == nil {
		startTag = p.findChildByType(node, "self_closing_tag")
	}
	if startTag == nil {
		return
	}

	tagName := p.tagName(startTag, src)
	attrs := p.attributes(startTag, src)

	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	if id, ok := attrs["id"]; ok {
		content := node.Content(src)
		if len(content) > 200 {
			content = content[:200]
		}
		result.Symbols = append(result.Symbols, ParsedSymbol{
			Name:      id,
			Kind:      graph.NodeFunction,
			StartLine: startLine,
			EndLine:   endLine,
			Content:   content,
		})
	}

	if tagName == "script" {
		if src, ok := attrs["src"]; ok {
			result.Imports = append(result.Imports, ImportStatement{ModulePath: src, StartLine: startLine})
		}
	}
	if tagName == "link" {
		if href, ok := attrs["href"]; ok {
			result.Imports = append(result.Imports, ImportStatement{ModulePath: href, StartLine: startLine})
		}
	}
	if tagName == "a" {
		if href, ok := attrs["href"]; ok {
			result.Calls = append(result.Calls, CallSite{Name: href, StartLine: startLine, EndLine: startLine})
		}
	}
}

func (p *HTMLParser) tagName(startTag *sitter.Node, src []byte) string {
	if tagNode := p.findChildByType(startTag, "tag_name"); tagNode != nil {
		return strings.ToLower(tagNode.Content(src))
	}
	return ""
}

func (p *HTMLParser) attributes(startTag *sitter.Node, src []byte) map[string]string {
	attrs := make(map[string]string)
	for i := 0; i < int(startTag.ChildCount()); i++ {
		child := startTag.Child(i)
		if child.Type() != "attribute" {
			continue
		}
		var name, value string
		for j := 0; j < int(child.ChildCount()); j++ {
			ac := child.Child(j)
			switch ac.Type() {
			case "attribute_name":
				name = strings.ToLower(ac.Content(src))
			case "quoted_attribute_value":
				value = strings.Trim(ac.Content(src), `"'`)
			case "attribute_value":
				value = ac.Content(src)
			}
		}
		if name != "" {
			attrs[name] = value
		}
	}
	return attrs
}

func (p *HTMLParser) findChildByType(node *sitter.Node, typeName string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == typeName {
			return child
		}
	}
	return nil
}
