package parsers

import (
	"regexp"
	"strings"

	"github.com/Benny93/axon-go/internal/graph"
)

var (
	yamlTopKeyRe    = regexp.MustCompile(`^([a-zA-Z_][\w.-]*)\s*:`)
	yamlNestedKeyRe = regexp.MustCompile(`^  ([a-zA-Z_][\w.-]*)\s*:`)
	tomlSectionRe   = regexp.MustCompile(`^\[([^\]]+)\]\s*$`)
	tomlKeyValueRe  = regexp.MustCompile(`^([a-zA-Z_][\w.-]*)\s*=`)
)

// YAMLParser parses YAML and TOML configuration using line-based key
// extraction. A full grammar gives a parse tree but not the flattened
// dotted-key view Axon wants, so both the original extractor and this one
// walk lines directly instead.
type YAMLParser struct{}

// NewYAMLParser creates a new YAML/TOML parser.
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// Language returns the language this parser handles.
func (p *YAMLParser) Language() string {
	return "yaml"
}

// Parse parses YAML or TOML content and extracts top-level and one-level
// nested keys as symbols.
func (p *YAMLParser) Parse(filePath string, content []byte) (*ParseResult, error) {
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

	if strings.HasSuffix(filePath, ".toml") {
		p.parseTOML(string(content), result)
	} else {
		p.parseYAML(string(content), result)
	}

	return result, nil
}

func (p *YAMLParser) parseYAML(content string, result *ParseResult) {
	lines := strings.Split(content, "\n")
	var currentTopKey string

	for i, line := range lines {
		lineNo := i + 1
		stripped := strings.TrimLeft(line, " \t")
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}

		if m := yamlTopKeyRe.FindStringSubmatch(line); m != nil {
			currentTopKey = m[1]
			result.Symbols = append(result.Symbols, ParsedSymbol{
				Name:      currentTopKey,
				Kind:      graph.NodeFunction,
				StartLine: lineNo,
				EndLine:   lineNo,
				Content:   line,
			})
			continue
		}

		if m := yamlNestedKeyRe.FindStringSubmatch(line); m != nil && currentTopKey != "" {
			result.Symbols = append(result.Symbols, ParsedSymbol{
				Name:      currentTopKey + "." + m[1],
				Kind:      graph.NodeFunction,
				StartLine: lineNo,
				EndLine:   lineNo,
				Content:   line,
			})
		}
	}
}

func (p *YAMLParser) parseTOML(content string, result *ParseResult) {
	lines := strings.Split(content, "\n")
	var currentSection string

	for i, line := range lines {
		lineNo := i + 1
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}

		if m := tomlSectionRe.FindStringSubmatch(stripped); m != nil {
			currentSection = m[1]
			result.Symbols = append(result.Symbols, ParsedSymbol{
				Name:      currentSection,
				Kind:      graph.NodeFunction,
				StartLine: lineNo,
				EndLine:   lineNo,
				Content:   line,
			})
			continue
		}

		if m := tomlKeyValueRe.FindStringSubmatch(stripped); m != nil {
			name := m[1]
			if currentSection != "" {
				name = currentSection + "." + name
			}
			result.Symbols = append(result.Symbols, ParsedSymbol{
				Name:      name,
				Kind:      graph.NodeFunction,
				StartLine: lineNo,
				EndLine:   lineNo,
				Content:   line,
			})
		}
	}
}
