package parsers

import (
	"regexp"
	"strings"

	"github.com/Benny93/axon-go/internal/graph"
)

var (
	markdownFrontmatterKeyRe = regexp.MustCompile(`^([a-zA-Z_][\w.-]*)\s*:`)
	markdownHeadingRe        = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*$`)
	markdownLinkRe           = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	markdownFenceRe          = regexp.MustCompile("^```(\\w+)")
	markdownTableLineRe      = regexp.MustCompile(`^\s*\|.+\|\s*$`)
)

// MarkdownParser parses Markdown source line-by-line. There is no Go
// tree-sitter-markdown binding in this repo's dependency set, so headings,
// frontmatter, tables, links, and fenced code languages are all recognized
// with regexes instead of an AST walk.
type MarkdownParser struct{}

// NewMarkdownParser creates a new Markdown parser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Language returns the language this parser handles.
func (p *MarkdownParser) Language() string {
	return "markdown"
}

// Parse parses Markdown content and extracts frontmatter keys, heading
// sections, tables, links, and fenced code-block languages.
func (p *MarkdownParser) Parse(filePath string, content []byte) (*ParseResult, error) {
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

	lines := strings.Split(string(content), "\n")
	totalLines := len(lines)

	frontmatterEnd := p.extractFrontmatter(lines, result)
	p.extractSections(lines, totalLines, result)
	p.extractTables(lines, result)
	p.extractLinksAndFences(lines, frontmatterEnd, result)

	return result, nil
}

func (p *MarkdownParser) extractFrontmatter(lines []string, result *ParseResult) int {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return 0
	}

	endIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			endIdx = i
			break
		}
	}
	if endIdx < 0 {
		return 0
	}

	for i := 1; i < endIdx; i++ {
		if m := markdownFrontmatterKeyRe.FindStringSubmatch(lines[i]); m != nil {
			result.Symbols = append(result.Symbols, ParsedSymbol{
				Name:      "frontmatter:" + m[1],
				Kind:      graph.NodeFunction,
				StartLine: i + 1,
				EndLine:   i + 1,
				Content:   lines[i],
			})
		}
	}

	return endIdx + 1
}

func (p *MarkdownParser) extractSections(lines []string, totalLines int, result *ParseResult) {
	type heading struct {
		line int
		name string
	}
	var headings []heading
	for i, line := range lines {
		if m := markdownHeadingRe.FindStringSubmatch(line); m != nil {
			headings = append(headings, heading{line: i + 1, name: m[2]})
		}
	}

	for idx, h := range headings {
		endLine := totalLines
		if idx+1 < len(headings) {
			endLine = headings[idx+1].line - 1
		}
		sectionLines := lines[h.line-1 : min(endLine, len(lines))]
		result.Symbols = append(result.Symbols, ParsedSymbol{
			Name:      h.name,
			Kind:      graph.NodeSection,
			StartLine: h.line,
			EndLine:   endLine,
			Content:   strings.Join(sectionLines, "\n"),
		})
	}
}

func (p *MarkdownParser) extractTables(lines []string, result *ParseResult) {
	i := 0
	for i < len(lines) {
		if !markdownTableLineRe.MatchString(lines[i]) {
			i++
			continue
		}
		start := i
		j := i + 1
		for j < len(lines) && markdownTableLineRe.MatchString(lines[j]) {
			j++
		}
		if j-start >= 2 {
			cells := strings.Split(lines[start], "|")
			var firstHeader string
			for _, c := range cells {
				c = strings.TrimSpace(c)
				if c != "" {
					firstHeader = c
					break
				}
			}
			if firstHeader == "" {
				firstHeader = "table"
			}
			result.Symbols = append(result.Symbols, ParsedSymbol{
				Name:      "table:" + firstHeader,
				Kind:      graph.NodeSection,
				StartLine: start + 1,
				EndLine:   j,
				Content:   strings.Join(lines[start:j], "\n"),
			})
			i = j
		} else {
			i++
		}
	}
}

func (p *MarkdownParser) extractLinksAndFences(lines []string, startLine int, result *ParseResult) {
	inCodeBlock := false
	for i := startLine; i < len(lines); i++ {
		line := lines[i]
		lineNo := i + 1

		if m := markdownFenceRe.FindStringSubmatch(line); m != nil {
			if !inCodeBlock {
				inCodeBlock = true
				if m[1] != "" {
					result.Calls = append(result.Calls, CallSite{Name: m[1], StartLine: lineNo, EndLine: lineNo})
				}
			} else {
				inCodeBlock = false
			}
			continue
		}
		if strings.TrimSpace(line) == "```" && inCodeBlock {
			inCodeBlock = false
			continue
		}
		if inCodeBlock {
			continue
		}

		for _, m := range markdownLinkRe.FindAllStringSubmatch(line, -1) {
			text, url := m[1], m[2]
			imp := ImportStatement{ModulePath: url, StartLine: lineNo}
			if text != "" {
				imp.Symbols = []string{text}
			}
			result.Imports = append(result.Imports, imp)
		}
	}
}
