package parsers

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/Benny93/axon-go/internal/graph"
)

// TypeScriptParser parses TypeScript/TSX and JavaScript/JSX source with
// tree-sitter. The two grammars share almost all node shapes, so a single
// parser dispatches on file extension to pick the right one.
type TypeScriptParser struct {
	tsLang *sitter.Parser
	jsLang *sitter.Parser
}

// NewTypeScriptParser creates a new TypeScript/JavaScript parser.
func NewTypeScriptParser() *TypeScriptParser {
	ts := sitter.NewParser()
	ts.SetLanguage(typescript.GetLanguage())
	js := sitter.NewParser()
	js.SetLanguage(javascript.GetLanguage())
	return &TypeScriptParser{tsLang: ts, jsLang: js}
}

// Language returns the language this parser handles.
func (p *TypeScriptParser) Language() string {
	return "typescript"
}

// SupportsFile checks if this parser can handle the given file.
func (p *TypeScriptParser) SupportsFile(filename string) bool {
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"} {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}

// Parse parses TypeScript/JavaScript source code and extracts symbols,
// imports, calls, etc.
func (p *TypeScriptParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	parser := p.tsLang
	if strings.HasSuffix(filePath, ".js") || strings.HasSuffix(filePath, ".jsx") || strings.HasSuffix(filePath, ".mjs") || strings.HasSuffix(filePath, ".cjs") {
		parser = p.jsLang
	}

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing TypeScript/JavaScript code: %w", err)
	}

	result := &ParseResult{
		Symbols:        []ParsedSymbol{},
		Imports:        []ImportStatement{},
		Calls:          []CallSite{},
		TypeRefs:       []TypeAnnotation{},
		Heritage:       []ClassHeritage{},
		PackageImports: make(map[string]string),
	}

	root := tree.RootNode()
	p.walkTop(root, content, result, "")
	p.walkCalls(root, content, result)

	return result, nil
}

func (p *TypeScriptParser) walkTop(node *sitter.Node, src []byte, result *ParseResult, className string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "export_statement":
			p.walkTop(child, src, result, className)
		case "function_declaration":
			p.parseFunction(child, src, result, className, true)
		case "class_declaration":
			p.parseClass(child, src, result)
		case "interface_declaration":
			p.parseInterface(child, src, result)
		case "type_alias_declaration":
			p.parseTypeAlias(child, src, result)
		case "import_statement":
			p.parseImport(child, src, result)
		}
	}
}

func (p *TypeScriptParser) parseFunction(node *sitter.Node, src []byte, result *ParseResult, className string, exported bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(src)

	kind := graph.NodeFunction
	if className != "" {
		kind = graph.NodeMethod
	}

	sig := name
	if params := node.ChildByFieldName("parameters"); params != nil {
		sig += params.Content(src)
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		retText := strings.TrimPrefix(ret.Content(src), ":")
		sig += ": " + strings.TrimSpace(retText)
		result.TypeRefs = append(result.TypeRefs, TypeAnnotation{
			Name:      strings.TrimSpace(retText),
			Role:      "return",
			StartLine: int(ret.StartPoint().Row) + 1,
		})
	}

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       kind,
		ClassName:  className,
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
		Content:    node.Content(src),
		Signature:  sig,
		IsExported: exported,
	})
}

func (p *TypeScriptParser) parseClass(node *sitter.Node, src []byte, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	className := nameNode.Content(src)

	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:      className,
		Kind:      graph.NodeClass,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Content:   node.Content(src),
		Signature: "class " + className,
	})

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "class_heritage" {
			p.parseHeritage(child, src, className, result)
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			member := body.NamedChild(i)
			if member.Type() == "method_definition" {
				p.parseFunction(member, src, result, className, false)
			}
		}
	}
}

func (p *TypeScriptParser) parseHeritage(node *sitter.Node, src []byte, className string, result *ParseResult) {
	h := ClassHeritage{ClassName: className}

	hasClause := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if t := node.Child(i).Type(); t == "extends_clause" || t == "implements_clause" {
			hasClause = true
			break
		}
	}

	if !hasClause {
		// Plain JS: "extends" keyword followed directly by an identifier.
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "identifier" || child.Type() == "member_expression" {
				h.Extends = append(h.Extends, child.Content(src))
			}
		}
	} else {
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "extends_clause":
				for j := 0; j < int(child.ChildCount()); j++ {
					gc := child.Child(j)
					if gc.Type() == "identifier" || gc.Type() == "member_expression" {
						h.Extends = append(h.Extends, gc.Content(src))
					}
				}
			case "implements_clause":
				for j := 0; j < int(child.ChildCount()); j++ {
					gc := child.Child(j)
					if gc.Type() == "type_identifier" || gc.Type() == "identifier" || gc.Type() == "generic_type" {
						h.Implements = append(h.Implements, firstTypeName(gc, src))
					}
				}
			}
		}
	}

	if len(h.Extends) > 0 || len(h.Implements) > 0 {
		result.Heritage = append(result.Heritage, h)
	}
}

func firstTypeName(node *sitter.Node, src []byte) string {
	if node.Type() != "generic_type" {
		return node.Content(src)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		gc := node.Child(i)
		if gc.Type() == "type_identifier" || gc.Type() == "identifier" {
			return gc.Content(src)
		}
	}
	return node.Content(src)
}

func (p *TypeScriptParser) parseInterface(node *sitter.Node, src []byte, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(src)
	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       graph.NodeInterface,
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
		Content:    node.Content(src),
		Signature:  "interface " + name,
		IsExported: true,
	})

	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == "extends_type_clause" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				result.Heritage = append(result.Heritage, ClassHeritage{
					ClassName: name,
					Extends:   []string{firstTypeName(child.NamedChild(j), src)},
				})
			}
		}
	}
}

func (p *TypeScriptParser) parseTypeAlias(node *sitter.Node, src []byte, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(src)
	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       graph.NodeTypeAlias,
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
		Content:    node.Content(src),
		Signature:  "type " + name,
		IsExported: true,
	})
}

func (p *TypeScriptParser) parseImport(node *sitter.Node, src []byte, result *ParseResult) {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	modulePath := strings.Trim(sourceNode.Content(src), `"'`)
	imp := ImportStatement{
		ModulePath: modulePath,
		IsRelative: strings.HasPrefix(modulePath, "."),
		StartLine:  int(node.StartPoint().Row) + 1,
	}

	var walkClause func(n *sitter.Node)
	walkClause = func(n *sitter.Node) {
		switch n.Type() {
		case "identifier":
			imp.Symbols = append(imp.Symbols, n.Content(src))
		case "namespace_import":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if ident := n.NamedChild(i); ident.Type() == "identifier" {
					imp.Alias = ident.Content(src)
				}
			}
		case "import_specifier":
			name := n.ChildByFieldName("name")
			alias := n.ChildByFieldName("alias")
			if name != nil {
				imp.Symbols = append(imp.Symbols, name.Content(src))
			}
			if alias != nil {
				imp.Alias = alias.Content(src)
			}
		default:
			for i := 0; i < int(n.NamedChildCount()); i++ {
				walkClause(n.NamedChild(i))
			}
		}
	}

	if clause := node.ChildByFieldName("import"); clause != nil {
		walkClause(clause)
	} else {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child != sourceNode {
				walkClause(child)
			}
		}
	}

	result.Imports = append(result.Imports, imp)
}

func (p *TypeScriptParser) walkCalls(node *sitter.Node, src []byte, result *ParseResult) {
	if node.Type() == "call_expression" {
		fn := node.ChildByFieldName("function")
		if fn != nil {
			call := CallSite{
				StartLine: int(node.StartPoint().Row) + 1,
				EndLine:   int(node.EndPoint().Row) + 1,
			}
			switch fn.Type() {
			case "identifier":
				call.Name = fn.Content(src)
			case "member_expression":
				prop := fn.ChildByFieldName("property")
				obj := fn.ChildByFieldName("object")
				if prop != nil {
					call.Name = prop.Content(src)
				}
				if obj != nil && obj.Type() == "identifier" {
					call.Receiver = obj.Content(src)
				}
			}
			if call.Name != "" {
				result.Calls = append(result.Calls, call)
			}
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		p.walkCalls(node.NamedChild(i), src, result)
	}
}
