package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Benny93/axon-go/internal/graph"
)

var (
	sqlCreateTableRe = regexp.MustCompile(`(?im)^\s*CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?[` + "`\"" + `]?(\w+)[` + "`\"" + `]?`)
	sqlCreateViewRe  = regexp.MustCompile(`(?im)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?(?:MATERIALIZED\s+)?VIEW\s+(?:IF\s+NOT\s+EXISTS\s+)?[` + "`\"" + `]?(\w+)[` + "`\"" + `]?`)
	sqlCreateFuncRe  = regexp.MustCompile(`(?im)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?FUNCTION\s+[` + "`\"" + `]?(\w+)[` + "`\"" + `]?`)
	sqlCreateProcRe  = regexp.MustCompile(`(?im)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?PROCEDURE\s+[` + "`\"" + `]?(\w+)[` + "`\"" + `]?`)
	sqlDropRe        = regexp.MustCompile(`(?im)^\s*DROP\s+(?:TABLE|VIEW|FUNCTION|PROCEDURE)\s+(?:IF\s+EXISTS\s+)?[` + "`\"" + `]?(\w+)[` + "`\"" + `]?`)
	sqlAlterRe       = regexp.MustCompile(`(?im)^\s*ALTER\s+TABLE\s+[` + "`\"" + `]?(\w+)[` + "`\"" + `]?`)
)

// SQLParser parses SQL DDL using regex-based extraction, matching the
// original extractor's choice to skip a full SQL grammar: dialect variance
// between engines makes DDL keyword matching more robust than an AST walk
// for the statement kinds Axon cares about (CREATE/DROP/ALTER).
type SQLParser struct{}

// NewSQLParser creates a new SQL parser.
func NewSQLParser() *SQLParser {
	return &SQLParser{}
}

// Language returns the language this parser handles.
func (p *SQLParser) Language() string {
	return "sql"
}

// Parse parses SQL content and extracts CREATE TABLE/VIEW/FUNCTION/PROCEDURE
// symbols, plus DROP/ALTER as calls against the affected table.
func (p *SQLParser) Parse(filePath string, content []byte) (*ParseResult, error) {
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

	text := string(content)
	lines := strings.Split(text, "\n")

	p.extractStatements(text, lines, sqlCreateTableRe, graph.NodeClass, result)
	p.extractStatements(text, lines, sqlCreateViewRe, graph.NodeFunction, result)
	p.extractStatements(text, lines, sqlCreateFuncRe, graph.NodeFunction, result)
	p.extractStatements(text, lines, sqlCreateProcRe, graph.NodeFunction, result)

	for _, m := range sqlDropRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		lineNo := strings.Count(text[:m[0]], "\n") + 1
		result.Calls = append(result.Calls, CallSite{Name: fmt.Sprintf("DROP:%s", name), StartLine: lineNo, EndLine: lineNo})
	}
	for _, m := range sqlAlterRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		lineNo := strings.Count(text[:m[0]], "\n") + 1
		result.Calls = append(result.Calls, CallSite{Name: fmt.Sprintf("ALTER:%s", name), StartLine: lineNo, EndLine: lineNo})
	}

	return result, nil
}

func (p *SQLParser) extractStatements(text string, lines []string, re *regexp.Regexp, kind graph.NodeLabel, result *ParseResult) {
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		startLine := strings.Count(text[:m[0]], "\n") + 1
		endLine := p.findStatementEnd(lines, startLine-1)
		content := strings.Join(lines[startLine-1:endLine], "\n")

		result.Symbols = append(result.Symbols, ParsedSymbol{
			Name:      name,
			Kind:      kind,
			StartLine: startLine,
			EndLine:   endLine,
			Content:   content,
		})
	}
}

func (p *SQLParser) findStatementEnd(lines []string, startIdx int) int {
	for i := startIdx; i < len(lines); i++ {
		if strings.Contains(lines[i], ";") {
			return i + 1
		}
	}
	return len(lines)
}
