package parsers

import (
	"regexp"
	"strings"

	"github.com/Benny93/axon-go/internal/graph"
)

// otpEntryPoints lists OTP callback names treated as decorators when found,
// mirroring the GenServer/Application callback surface.
var otpEntryPoints = map[string]bool{
	"handle_call": true, "handle_cast": true, "handle_info": true,
	"handle_continue": true, "init": true, "start_link": true,
}

var (
	elixirModuleRe  = regexp.MustCompile(`^\s*defmodule\s+([\w.]+)\s+do\s*$`)
	elixirFuncRe    = regexp.MustCompile(`^\s*(defp?)\s+([a-z_][\w?!]*)\s*(?:\(([^)]*)\))?`)
	elixirMacroRe   = regexp.MustCompile(`^\s*(defmacrop?)\s+([a-z_][\w?!]*)\s*(?:\(([^)]*)\))?`)
	elixirStructRe  = regexp.MustCompile(`^\s*defstruct\b`)
	elixirUseRe     = regexp.MustCompile(`^\s*use\s+([\w.]+)`)
	elixirAliasRe   = regexp.MustCompile(`^\s*alias\s+([\w.]+)(?:,\s*as:\s*([\w.]+))?`)
	elixirImportRe  = regexp.MustCompile(`^\s*import\s+([\w.]+)`)
	elixirRequireRe = regexp.MustCompile(`^\s*require\s+([\w.]+)`)
	elixirBehavRe   = regexp.MustCompile(`^\s*@behaviour\s+([\w.]+)`)
	elixirCallRe    = regexp.MustCompile(`([\w.]*[A-Za-z_][\w]*)\s*\(`)
)

// ElixirParser parses Elixir source code using regex/line-based scanning.
// Elixir has no Go tree-sitter grammar binding in this repo's dependency
// set, so modules/functions/macros/structs/directives are recognized
// line-by-line instead — mirroring the shape of the tree-sitter-driven
// extraction (module/def/defmacro/defstruct/use/alias/import/require,
// @behaviour heritage, OTP entry points) without walking an AST.
type ElixirParser struct{}

// NewElixirParser creates a new Elixir parser.
func NewElixirParser() *ElixirParser {
	return &ElixirParser{}
}

// Language returns the language this parser handles.
func (p *ElixirParser) Language() string {
	return "elixir"
}

// Parse parses Elixir source code and extracts symbols, imports, calls, etc.
func (p *ElixirParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{
		Symbols:        []ParsedSymbol{},
		Imports:        []ImportStatement{},
		Calls:          []CallSite{},
		TypeRefs:       []TypeAnnotation{},
		Heritage:       []ClassHeritage{},
		PackageImports: make(map[string]string),
	}

	lines := strings.Split(string(content), "\n")
	var currentModule string
	var pendingDecorators []string

	for lineNum, line := range lines {
		trimmed := line

		if m := elixirModuleRe.FindStringSubmatch(trimmed); m != nil {
			currentModule = m[1]
			result.Symbols = append(result.Symbols, ParsedSymbol{
				Name:       currentModule,
				Kind:       graph.NodeModule,
				StartLine:  lineNum + 1,
				EndLine:    lineNum + 1,
				Content:    strings.TrimSpace(trimmed),
				Decorators: pendingDecorators,
			})
			pendingDecorators = nil
			continue
		}

		if m := elixirUseRe.FindStringSubmatch(trimmed); m != nil {
			target := m[1]
			result.Imports = append(result.Imports, ImportStatement{ModulePath: target, StartLine: lineNum + 1})
			if currentModule != "" {
				result.Heritage = append(result.Heritage, ClassHeritage{ClassName: currentModule, Uses: []string{target}})
			}
			continue
		}

		if m := elixirBehavRe.FindStringSubmatch(trimmed); m != nil {
			if currentModule != "" {
				result.Heritage = append(result.Heritage, ClassHeritage{ClassName: currentModule, Implements: []string{m[1]}})
			}
			continue
		}

		if m := elixirAliasRe.FindStringSubmatch(trimmed); m != nil {
			imp := ImportStatement{ModulePath: m[1], StartLine: lineNum + 1}
			if len(m) > 2 {
				imp.Alias = m[2]
			}
			result.Imports = append(result.Imports, imp)
			continue
		}

		if m := elixirImportRe.FindStringSubmatch(trimmed); m != nil {
			result.Imports = append(result.Imports, ImportStatement{ModulePath: m[1], StartLine: lineNum + 1})
			continue
		}

		if m := elixirRequireRe.FindStringSubmatch(trimmed); m != nil {
			result.Imports = append(result.Imports, ImportStatement{ModulePath: m[1], StartLine: lineNum + 1})
			continue
		}

		if elixirStructRe.MatchString(trimmed) {
			result.Symbols = append(result.Symbols, ParsedSymbol{
				Name:      currentModule,
				Kind:      graph.NodeStruct,
				ClassName: currentModule,
				StartLine: lineNum + 1,
				EndLine:   lineNum + 1,
				Content:   strings.TrimSpace(trimmed),
			})
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(trimmed), "@") && !strings.HasPrefix(strings.TrimSpace(trimmed), "@behaviour") {
			attr := strings.TrimPrefix(strings.TrimSpace(trimmed), "@")
			if idx := strings.IndexAny(attr, " ("); idx > 0 {
				attr = attr[:idx]
			}
			pendingDecorators = append(pendingDecorators, "@"+attr)
			continue
		}

		if m := elixirMacroRe.FindStringSubmatch(trimmed); m != nil {
			name := m[2]
			decorators := pendingDecorators
			pendingDecorators = nil
			result.Symbols = append(result.Symbols, ParsedSymbol{
				Name:       name,
				Kind:       graph.NodeMacro,
				ClassName:  currentModule,
				StartLine:  lineNum + 1,
				EndLine:    lineNum + 1,
				Signature:  name + "(" + m[3] + ")",
				Content:    strings.TrimSpace(trimmed),
				IsExported: m[1] == "defmacro",
				Decorators: decorators,
			})
			continue
		}

		if m := elixirFuncRe.FindStringSubmatch(trimmed); m != nil {
			name := m[2]
			decorators := pendingDecorators
			pendingDecorators = nil
			if otpEntryPoints[name] {
				decorators = append(decorators, name)
			}
			result.Symbols = append(result.Symbols, ParsedSymbol{
				Name:       name,
				Kind:       graph.NodeFunction,
				ClassName:  currentModule,
				StartLine:  lineNum + 1,
				EndLine:    lineNum + 1,
				Signature:  name + "(" + m[3] + ")",
				Content:    strings.TrimSpace(trimmed),
				IsExported: m[1] == "def",
				Decorators: decorators,
			})
			continue
		}

		p.extractCalls(trimmed, lineNum+1, result)
	}

	return result, nil
}

var elixirKeyword = map[string]bool{
	"def": true, "defp": true, "defmodule": true, "defmacro": true, "defmacrop": true,
	"defstruct": true, "use": true, "alias": true, "import": true, "require": true,
	"if": true, "unless": true, "case": true, "cond": true, "with": true, "do": true,
	"fn": true, "for": true,
}

func (p *ElixirParser) extractCalls(line string, lineNum int, result *ParseResult) {
	matches := elixirCallRe.FindAllStringSubmatch(line, -1)
	for _, match := range matches {
		full := match[1]
		if full == "" || elixirKeyword[full] {
			continue
		}
		name := full
		receiver := ""
		if idx := strings.LastIndex(full, "."); idx > 0 {
			receiver = full[:idx]
			name = full[idx+1:]
		}
		result.Calls = append(result.Calls, CallSite{
			Name:      name,
			Receiver:  receiver,
			StartLine: lineNum,
			EndLine:   lineNum,
		})
	}
}
