package parsers

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tspython "github.com/smacker/go-tree-sitter/python"

	"github.com/Benny93/axon-go/internal/graph"
)

// PythonParser parses Python source code with tree-sitter.
type PythonParser struct{}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	return &PythonParser{}
}

// Language returns the language this parser handles.
func (p *PythonParser) Language() string {
	return "python"
}

// Parse parses Python source code and extracts symbols, imports, calls, etc.
func (p *PythonParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(tspython.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing Python code: %w", err)
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
	for i := 0; i < int(root.NamedChildCount()); i++ {
		p.walkTop(root.NamedChild(i), content, result, "")
	}
	p.walkCalls(root, content, result)

	return result, nil
}

// walkTop walks the module's top-level statements, descending into classes to
// pick up methods. className is non-empty while inside a class body.
func (p *PythonParser) walkTop(node *sitter.Node, src []byte, result *ParseResult, className string) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "decorated_definition":
		decorators := p.decoratorNames(node, src)
		inner := node.ChildByFieldName("definition")
		p.walkDecorated(inner, src, result, className, decorators)
	case "function_definition":
		p.parseFunction(node, src, result, className, nil)
	case "class_definition":
		p.parseClass(node, src, result, nil)
	case "import_statement", "import_from_statement":
		p.parseImport(node, src, result)
	case "expression_statement", "if_statement", "try_statement", "with_statement":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			p.walkTop(node.NamedChild(i), src, result, className)
		}
	}
}

func (p *PythonParser) walkDecorated(node *sitter.Node, src []byte, result *ParseResult, className string, decorators []string) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_definition":
		p.parseFunction(node, src, result, className, decorators)
	case "class_definition":
		p.parseClass(node, src, result, decorators)
	}
}

func (p *PythonParser) decoratorNames(node *sitter.Node, src []byte) []string {
	var decorators []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		text := strings.TrimPrefix(strings.TrimSpace(child.Content(src)), "@")
		if idx := strings.Index(text, "("); idx > 0 {
			text = text[:idx]
		}
		decorators = append(decorators, text)
	}
	return decorators
}

func (p *PythonParser) parseFunction(node *sitter.Node, src []byte, result *ParseResult, className string, decorators []string) {
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
		sig += " -> " + ret.Content(src)
		result.TypeRefs = append(result.TypeRefs, TypeAnnotation{
			Name:      ret.Content(src),
			Role:      "return",
			StartLine: int(ret.StartPoint().Row) + 1,
		})
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			param := params.NamedChild(i)
			if param.Type() != "typed_parameter" && param.Type() != "typed_default_parameter" {
				continue
			}
			typeNode := param.ChildByFieldName("type")
			if typeNode == nil {
				continue
			}
			result.TypeRefs = append(result.TypeRefs, TypeAnnotation{
				Name:      typeNode.Content(src),
				Role:      "param",
				StartLine: int(param.StartPoint().Row) + 1,
			})
		}
	}

	sym := ParsedSymbol{
		Name:       name,
		Kind:       kind,
		ClassName:  className,
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
		Content:    node.Content(src),
		Signature:  sig,
		IsExported: !strings.HasPrefix(name, "_"),
		Decorators: decorators,
	}
	result.Symbols = append(result.Symbols, sym)
}

func (p *PythonParser) parseClass(node *sitter.Node, src []byte, result *ParseResult, decorators []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	className := nameNode.Content(src)

	sym := ParsedSymbol{
		Name:       className,
		Kind:       graph.NodeClass,
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
		Content:    node.Content(src),
		Signature:  "class " + className,
		IsExported: !strings.HasPrefix(className, "_"),
		Decorators: decorators,
	}
	result.Symbols = append(result.Symbols, sym)

	if superclasses := node.ChildByFieldName("superclasses"); superclasses != nil {
		h := ClassHeritage{ClassName: className}
		for i := 0; i < int(superclasses.NamedChildCount()); i++ {
			base := superclasses.NamedChild(i).Content(src)
			// Keyword args like metaclass=... aren't base classes.
			if strings.Contains(base, "=") {
				continue
			}
			if strings.HasSuffix(base, "Mixin") || strings.HasSuffix(base, "Protocol") {
				h.Implements = append(h.Implements, base)
			} else {
				h.Extends = append(h.Extends, base)
			}
		}
		if len(h.Extends) > 0 || len(h.Implements) > 0 {
			result.Heritage = append(result.Heritage, h)
		}
		sym.Signature += "(" + superclasses.Content(src)[1:len(superclasses.Content(src))-1] + ")"
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "decorated_definition":
			methodDecorators := p.decoratorNames(child, src)
			inner := child.ChildByFieldName("definition")
			if inner != nil && inner.Type() == "function_definition" {
				p.parseFunction(inner, src, result, className, methodDecorators)
			}
		case "function_definition":
			p.parseFunction(child, src, result, className, nil)
		}
	}
}

func (p *PythonParser) parseImport(node *sitter.Node, src []byte, result *ParseResult) {
	line := int(node.StartPoint().Row) + 1

	if node.Type() == "import_from_statement" {
		moduleNode := node.ChildByFieldName("module_name")
		if moduleNode == nil {
			return
		}
		modulePath := moduleNode.Content(src)
		imp := ImportStatement{
			ModulePath: modulePath,
			IsRelative: strings.HasPrefix(modulePath, "."),
			StartLine:  line,
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "dotted_name", "identifier":
				if child == moduleNode {
					continue
				}
				imp.Symbols = append(imp.Symbols, child.Content(src))
			case "aliased_import":
				name := child.ChildByFieldName("name")
				alias := child.ChildByFieldName("alias")
				if name != nil {
					imp.Symbols = append(imp.Symbols, name.Content(src))
				}
				if alias != nil {
					imp.Alias = alias.Content(src)
				}
			}
		}
		result.Imports = append(result.Imports, imp)
		return
	}

	// Plain "import a.b, c as d"
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		imp := ImportStatement{StartLine: line}
		switch child.Type() {
		case "dotted_name":
			imp.ModulePath = child.Content(src)
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name != nil {
				imp.ModulePath = name.Content(src)
			}
			if alias != nil {
				imp.Alias = alias.Content(src)
				result.PackageImports[alias.Content(src)] = imp.ModulePath
			}
		default:
			continue
		}
		if imp.ModulePath != "" {
			result.Imports = append(result.Imports, imp)
		}
	}
}

func (p *PythonParser) walkCalls(node *sitter.Node, src []byte, result *ParseResult) {
	if node == nil {
		return
	}
	if node.Type() == "call" {
		fn := node.ChildByFieldName("function")
		if fn != nil {
			call := CallSite{
				StartLine: int(node.StartPoint().Row) + 1,
				EndLine:   int(node.EndPoint().Row) + 1,
			}
			switch fn.Type() {
			case "identifier":
				call.Name = fn.Content(src)
			case "attribute":
				attrNode := fn.ChildByFieldName("attribute")
				objNode := fn.ChildByFieldName("object")
				if attrNode != nil {
					call.Name = attrNode.Content(src)
				}
				if objNode != nil && objNode.Type() == "identifier" {
					call.Receiver = objNode.Content(src)
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
