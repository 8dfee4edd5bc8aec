package parsers

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/Benny93/axon-go/internal/graph"
)

// RustParser parses Rust source code with tree-sitter.
type RustParser struct{}

// NewRustParser creates a new Rust parser.
func NewRustParser() *RustParser {
	return &RustParser{}
}

// Language returns the language this parser handles.
func (p *RustParser) Language() string {
	return "rust"
}

// Parse parses Rust source code and extracts symbols, imports, calls, etc.
func (p *RustParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing Rust code: %w", err)
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
	p.walkItems(root, content, result)
	p.walkCalls(root, content, result)

	return result, nil
}

func (p *RustParser) walkItems(node *sitter.Node, src []byte, result *ParseResult) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_item":
			p.parseFunction(child, src, result, "")
		case "struct_item":
			p.parseStruct(child, src, result)
		case "enum_item":
			p.parseEnum(child, src, result)
		case "trait_item":
			p.parseTrait(child, src, result)
		case "impl_item":
			p.parseImpl(child, src, result)
		case "type_item":
			p.parseTypeAlias(child, src, result)
		case "mod_item":
			p.walkItems(child, src, result)
		case "use_declaration":
			p.parseUse(child, src, result)
		}
	}
}

func (p *RustParser) isPublic(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "visibility_modifier" {
			return true
		}
	}
	return false
}

func (p *RustParser) parseFunction(node *sitter.Node, src []byte, result *ParseResult, className string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(src)

	kind := graph.NodeFunction
	if className != "" {
		kind = graph.NodeMethod
	}

	sig := "fn " + name
	if params := node.ChildByFieldName("parameters"); params != nil {
		sig += params.Content(src)
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		sig += " -> " + ret.Content(src)
		result.TypeRefs = append(result.TypeRefs, TypeAnnotation{
			Name:      ret.Content(src),
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
		IsExported: p.isPublic(node),
	})
}

func (p *RustParser) parseStruct(node *sitter.Node, src []byte, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(src)
	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       graph.NodeStruct,
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
		Content:    node.Content(src),
		Signature:  "struct " + name,
		IsExported: p.isPublic(node),
	})

	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			field := body.NamedChild(i)
			if field.Type() != "field_declaration" {
				continue
			}
			if typeNode := field.ChildByFieldName("type"); typeNode != nil {
				result.TypeRefs = append(result.TypeRefs, TypeAnnotation{
					Name:      typeNode.Content(src),
					Role:      "field",
					StartLine: int(field.StartPoint().Row) + 1,
				})
			}
		}
	}
}

func (p *RustParser) parseEnum(node *sitter.Node, src []byte, result *ParseResult) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(src)
	result.Symbols = append(result.Symbols, ParsedSymbol{
		Name:       name,
		Kind:       graph.NodeEnum,
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
		Content:    node.Content(src),
		Signature:  "enum " + name,
		IsExported: p.isPublic(node),
	})
}

func (p *RustParser) parseTrait(node *sitter.Node, src []byte, result *ParseResult) {
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
		Signature:  "trait " + name,
		IsExported: p.isPublic(node),
	})

	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			item := body.NamedChild(i)
			if item.Type() == "function_item" || item.Type() == "function_signature_item" {
				if nameNode := item.ChildByFieldName("name"); nameNode != nil {
					p.parseFunction(item, src, result, name)
				}
			}
		}
	}
}

// parseImpl handles both "impl Type { ... }" (inherent methods) and
// "impl Trait for Type { ... }" (trait implementation, materialized as an
// implements edge since Rust traits are spec.md's interface-equivalent).
func (p *RustParser) parseImpl(node *sitter.Node, src []byte, result *ParseResult) {
	typeNode := node.ChildByFieldName("type")
	traitNode := node.ChildByFieldName("trait")
	if typeNode == nil {
		return
	}
	typeName := firstTypeName(typeNode, src)

	if traitNode != nil {
		result.Heritage = append(result.Heritage, ClassHeritage{
			ClassName:  typeName,
			Implements: []string{firstTypeName(traitNode, src)},
		})
	}

	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			item := body.NamedChild(i)
			if item.Type() == "function_item" {
				p.parseFunction(item, src, result, typeName)
			}
		}
	}
}

func (p *RustParser) parseTypeAlias(node *sitter.Node, src []byte, result *ParseResult) {
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
		IsExported: p.isPublic(node),
	})
}

func (p *RustParser) parseUse(node *sitter.Node, src []byte, result *ParseResult) {
	line := int(node.StartPoint().Row) + 1
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "scoped_identifier", "identifier", "use_wildcard", "use_as_clause":
			result.Imports = append(result.Imports, ImportStatement{
				ModulePath: child.Content(src),
				StartLine:  line,
			})
		case "use_list", "scoped_use_list":
			path := child.Content(src)
			result.Imports = append(result.Imports, ImportStatement{
				ModulePath: path,
				StartLine:  line,
			})
		}
	}
}

func (p *RustParser) walkCalls(node *sitter.Node, src []byte, result *ParseResult) {
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
			case "scoped_identifier":
				path := fn.ChildByFieldName("path")
				name := fn.ChildByFieldName("name")
				if name != nil {
					call.Name = name.Content(src)
				}
				if path != nil {
					call.Package = path.Content(src)
				}
			case "field_expression":
				field := fn.ChildByFieldName("field")
				value := fn.ChildByFieldName("value")
				if field != nil {
					call.Name = field.Content(src)
				}
				if value != nil && value.Type() == "identifier" {
					call.Receiver = value.Content(src)
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
