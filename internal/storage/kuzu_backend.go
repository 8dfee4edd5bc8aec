// Package storage provides the storage backend for Axon.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/Benny93/axon-go/internal/graph"
)

// relTableGroup is the name of the single REL TABLE GROUP that carries every
// relationship type in the graph IR. A "type" column distinguishes contains
// from calls from implements, etc., the way kuzu_schema.py collapses the
// whole relationship enum onto one generic edge table instead of one table
// per RelType.
const relTableGroup = "CodeRelation"

const embeddingTable = "Embedding"

// KuzuBackend is a storage backend on top of an embedded KuzuDB database:
// one node table per graph.NodeLabel, a single relationship table group
// spanning every label pair, an FTS extension index per node table, and
// vector search over a dedicated Embedding table.
type KuzuBackend struct {
	mu  sync.RWMutex
	db  *kuzu.Database
	conn *kuzu.Connection

	nodeCount         int
	relationshipCount int
	ftsBuilt          bool
}

// NewKuzuBackend creates a new KuzuDB-backed storage backend.
func NewKuzuBackend() *KuzuBackend {
	return &KuzuBackend{}
}

// Initialize opens or creates the KuzuDB database at the given path and
// ensures the node/relationship/embedding schema exists.
func (k *KuzuBackend) Initialize(path string, readOnly bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	sysConfig := kuzu.DefaultSystemConfig()
	if readOnly {
		sysConfig.AccessMode = kuzu.ReadOnly
	}

	db, err := kuzu.OpenDatabase(path, sysConfig)
	if err != nil {
		return fmt.Errorf("opening kuzu database: %w", err)
	}

	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("opening kuzu connection: %w", err)
	}

	k.db = db
	k.conn = conn

	if !readOnly {
		if err := k.ensureSchema(); err != nil {
			return err
		}
	}

	k.refreshCounts()

	return nil
}

// Close releases all resources held by the backend.
func (k *KuzuBackend) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.conn != nil {
		k.conn.Close()
		k.conn = nil
	}
	if k.db != nil {
		k.db.Close()
		k.db = nil
	}
	return nil
}

// ensureSchema creates one node table per graph.NodeLabel, the embedding
// table, and the CodeRelation rel table group spanning every label pair.
func (k *KuzuBackend) ensureSchema() error {
	labels := graph.AllNodeLabels()

	for _, label := range labels {
		ddl := fmt.Sprintf(`CREATE NODE TABLE IF NOT EXISTS %s (
			id STRING PRIMARY KEY,
			name STRING,
			file_path STRING,
			start_line INT64,
			end_line INT64,
			content STRING,
			signature STRING,
			language STRING,
			class_name STRING,
			is_dead BOOLEAN,
			is_entry_point BOOLEAN,
			is_exported BOOLEAN,
			decorators STRING[],
			properties STRING
		)`, tableName(label))
		if _, err := k.conn.Query(ddl); err != nil {
			return fmt.Errorf("creating node table %s: %w", label, err)
		}
	}

	embedDDL := fmt.Sprintf(`CREATE NODE TABLE IF NOT EXISTS %s (
		node_id STRING PRIMARY KEY,
		vector DOUBLE[]
	)`, embeddingTable)
	if _, err := k.conn.Query(embedDDL); err != nil {
		return fmt.Errorf("creating embedding table: %w", err)
	}

	var pairs []string
	for _, from := range labels {
		for _, to := range labels {
			pairs = append(pairs, fmt.Sprintf("FROM %s TO %s", tableName(from), tableName(to)))
		}
	}
	relDDL := fmt.Sprintf(`CREATE REL TABLE GROUP IF NOT EXISTS %s (
		%s,
		id STRING,
		type STRING,
		properties STRING
	)`, relTableGroup, strings.Join(pairs, ", "))
	if _, err := k.conn.Query(relDDL); err != nil {
		return fmt.Errorf("creating relationship table group: %w", err)
	}

	return nil
}

func tableName(label graph.NodeLabel) string {
	return "N_" + strings.ToUpper(string(label))
}

// labelFromID extracts the node label encoded in an ID of the form
// "{label}:{file_path}:{symbol_name}" (see graph.GenerateID).
func labelFromID(nodeID string) (graph.NodeLabel, bool) {
	idx := strings.IndexByte(nodeID, ':')
	if idx < 0 {
		return "", false
	}
	label := graph.NodeLabel(nodeID[:idx])
	for _, l := range graph.AllNodeLabels() {
		if l == label {
			return label, true
		}
	}
	return "", false
}

// escapeCypherString escapes a value for safe embedding in a Cypher string
// literal: backslashes and double quotes are the two characters Kuzu's
// Cypher string literals treat specially.
func escapeCypherString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// BulkLoad writes the graph's nodes and relationships into the store. It
// first attempts a CSV-based COPY for speed and falls back to row-by-row
// MERGE statements for any table a COPY fails on (malformed rows, duplicate
// keys from a prior load, etc.). Existing rows are not deleted first, so
// nodes that the graph does not contain stay in the store.
func (k *KuzuBackend) BulkLoad(ctx context.Context, g *graph.KnowledgeGraph) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.ensureSchema(); err != nil {
		return err
	}

	byLabel := make(map[graph.NodeLabel][]*graph.GraphNode)
	for node := range g.IterNodes() {
		byLabel[node.Label] = append(byLabel[node.Label], node)
	}

	tmpDir, err := os.MkdirTemp("", "axon-bulkload-*")
	if err != nil {
		return fmt.Errorf("creating bulk load temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	for label, nodes := range byLabel {
		if err := k.copyNodesCSV(tmpDir, label, nodes); err != nil {
			// Per-row fallback.
			for _, n := range nodes {
				if err := k.upsertNode(n); err != nil {
					return fmt.Errorf("inserting node %s after COPY failure: %w", n.ID, err)
				}
			}
		}
	}

	var rels []*graph.GraphRelationship
	for rel := range g.IterRelationships() {
		rels = append(rels, rel)
	}
	for _, rel := range rels {
		if err := k.upsertRelationship(rel); err != nil {
			return fmt.Errorf("inserting relationship %s: %w", rel.ID, err)
		}
	}

	k.refreshCounts()
	return nil
}

func (k *KuzuBackend) copyNodesCSV(dir string, label graph.NodeLabel, nodes []*graph.GraphNode) error {
	path := filepath.Join(dir, string(label)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(f, "id,name,file_path,start_line,end_line,content,signature,language,class_name,is_dead,is_entry_point,is_exported,decorators,properties")
	for _, n := range nodes {
		props, _ := json.Marshal(n.Properties)
		decorators := strings.Join(n.Decorators, "|")
		fmt.Fprintf(f, "%s,%s,%s,%d,%d,%s,%s,%s,%s,%t,%t,%t,%s,%s\n",
			csvField(n.ID), csvField(n.Name), csvField(n.FilePath), n.StartLine, n.EndLine,
			csvField(n.Content), csvField(n.Signature), csvField(n.Language), csvField(n.ClassName),
			n.IsDead, n.IsEntryPoint, n.IsExported, csvField(decorators), csvField(string(props)))
	}
	if err := f.Close(); err != nil {
		return err
	}

	ddl := fmt.Sprintf(`COPY %s FROM "%s" (header=true)`, tableName(label), escapeCypherString(path))
	_, err = k.conn.Query(ddl)
	return err
}

func csvField(s string) string {
	s = strings.ReplaceAll(s, `"`, `""`)
	return `"` + s + `"`
}

func (k *KuzuBackend) upsertNode(n *graph.GraphNode) error {
	props, _ := json.Marshal(n.Properties)
	query := fmt.Sprintf(`MERGE (n:%s {id: "%s"})
		SET n.name = "%s", n.file_path = "%s", n.start_line = %d, n.end_line = %d,
			n.content = "%s", n.signature = "%s", n.language = "%s", n.class_name = "%s",
			n.is_dead = %t, n.is_entry_point = %t, n.is_exported = %t,
			n.decorators = %s, n.properties = "%s"`,
		tableName(n.Label), escapeCypherString(n.ID),
		escapeCypherString(n.Name), escapeCypherString(n.FilePath), n.StartLine, n.EndLine,
		escapeCypherString(n.Content), escapeCypherString(n.Signature), escapeCypherString(n.Language),
		escapeCypherString(n.ClassName), n.IsDead, n.IsEntryPoint, n.IsExported,
		stringListLiteral(n.Decorators), escapeCypherString(string(props)))
	_, err := k.conn.Query(query)
	return err
}

func stringListLiteral(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = `"` + escapeCypherString(s) + `"`
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func (k *KuzuBackend) upsertRelationship(rel *graph.GraphRelationship) error {
	fromLabel, ok1 := labelFromID(rel.Source)
	toLabel, ok2 := labelFromID(rel.Target)
	if !ok1 || !ok2 {
		return fmt.Errorf("cannot resolve node table for relationship %s", rel.ID)
	}
	props, _ := json.Marshal(rel.Properties)
	query := fmt.Sprintf(`MATCH (a:%s {id: "%s"}), (b:%s {id: "%s"})
		MERGE (a)-[r:%s {id: "%s"}]->(b)
		SET r.type = "%s", r.properties = "%s"`,
		tableName(fromLabel), escapeCypherString(rel.Source),
		tableName(toLabel), escapeCypherString(rel.Target),
		relTableGroup, escapeCypherString(rel.ID),
		escapeCypherString(string(rel.Type)), escapeCypherString(string(props)))
	_, err := k.conn.Query(query)
	return err
}

// AddNodes inserts nodes into the storage.
func (k *KuzuBackend) AddNodes(ctx context.Context, nodes []*graph.GraphNode) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, n := range nodes {
		if err := k.upsertNode(n); err != nil {
			return err
		}
	}
	k.refreshCounts()
	return nil
}

// RemoveNodesByFile deletes all nodes whose file path matches, across every
// node table, along with their incident relationships.
func (k *KuzuBackend) RemoveNodesByFile(ctx context.Context, filePath string) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	total := 0
	for _, label := range graph.AllNodeLabels() {
		query := fmt.Sprintf(`MATCH (n:%s {file_path: "%s"}) DETACH DELETE n RETURN count(n)`,
			tableName(label), escapeCypherString(filePath))
		result, err := k.conn.Query(query)
		if err != nil {
			continue
		}
		total += countFromScalarResult(result)
		result.Close()
	}
	k.refreshCounts()
	return total, nil
}

func countFromScalarResult(result *kuzu.QueryResult) int {
	if result == nil || !result.HasNext() {
		return 0
	}
	tuple, err := result.Next()
	if err != nil {
		return 0
	}
	val, err := tuple.GetValue(0)
	if err != nil {
		return 0
	}
	n, _ := val.(int64)
	return int(n)
}

// GetNode returns a single node by ID, or nil if not found.
func (k *KuzuBackend) GetNode(ctx context.Context, nodeID string) (*graph.GraphNode, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	label, ok := labelFromID(nodeID)
	if !ok {
		return nil, nil
	}

	query := fmt.Sprintf(`MATCH (n:%s {id: "%s"}) RETURN n.id, n.name, n.file_path, n.start_line,
		n.end_line, n.content, n.signature, n.language, n.class_name, n.is_dead,
		n.is_entry_point, n.is_exported, n.decorators, n.properties`,
		tableName(label), escapeCypherString(nodeID))
	result, err := k.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("getting node: %w", err)
	}
	defer result.Close()

	if !result.HasNext() {
		return nil, nil
	}
	tuple, err := result.Next()
	if err != nil {
		return nil, err
	}
	node := nodeFromTuple(tuple, label)
	return node, nil
}

func nodeFromTuple(tuple *kuzu.FlatTuple, label graph.NodeLabel) *graph.GraphNode {
	get := func(i int) any {
		v, _ := tuple.GetValue(i)
		return v
	}
	asString := func(v any) string {
		s, _ := v.(string)
		return s
	}
	asInt := func(v any) int {
		switch n := v.(type) {
		case int64:
			return int(n)
		case int32:
			return int(n)
		case int:
			return n
		}
		return 0
	}
	asBool := func(v any) bool {
		b, _ := v.(bool)
		return b
	}
	asStrings := func(v any) []string {
		items, _ := v.([]any)
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}

	node := &graph.GraphNode{
		ID:           asString(get(0)),
		Name:         asString(get(1)),
		FilePath:     asString(get(2)),
		StartLine:    asInt(get(3)),
		EndLine:      asInt(get(4)),
		Content:      asString(get(5)),
		Signature:    asString(get(6)),
		Language:     asString(get(7)),
		ClassName:    asString(get(8)),
		IsDead:       asBool(get(9)),
		IsEntryPoint: asBool(get(10)),
		IsExported:   asBool(get(11)),
		Decorators:   asStrings(get(12)),
		Label:        label,
	}
	var props map[string]any
	if propsJSON := asString(get(13)); propsJSON != "" {
		_ = json.Unmarshal([]byte(propsJSON), &props)
	}
	node.Properties = props
	return node
}

// GetNodesByLabel returns all nodes with the given label.
func (k *KuzuBackend) GetNodesByLabel(ctx context.Context, label string) []*graph.GraphNode {
	k.mu.RLock()
	defer k.mu.RUnlock()

	nl := graph.NodeLabel(label)
	query := fmt.Sprintf(`MATCH (n:%s) RETURN n.id, n.name, n.file_path, n.start_line,
		n.end_line, n.content, n.signature, n.language, n.class_name, n.is_dead,
		n.is_entry_point, n.is_exported, n.decorators, n.properties`, tableName(nl))
	result, err := k.conn.Query(query)
	if err != nil {
		return nil
	}
	defer result.Close()

	var nodes []*graph.GraphNode
	for result.HasNext() {
		tuple, err := result.Next()
		if err != nil {
			break
		}
		nodes = append(nodes, nodeFromTuple(tuple, nl))
	}
	return nodes
}

// AddRelationships inserts relationships into the storage.
func (k *KuzuBackend) AddRelationships(ctx context.Context, rels []*graph.GraphRelationship) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, rel := range rels {
		if err := k.upsertRelationship(rel); err != nil {
			return err
		}
	}
	k.refreshCounts()
	return nil
}

// GetCallers returns nodes that CALL the given node.
func (k *KuzuBackend) GetCallers(ctx context.Context, nodeID string) ([]*graph.GraphNode, error) {
	return k.relatedNodes(ctx, nodeID, graph.RelCalls, "callers")
}

// GetCallees returns nodes called by the given node.
func (k *KuzuBackend) GetCallees(ctx context.Context, nodeID string) ([]*graph.GraphNode, error) {
	return k.relatedNodes(ctx, nodeID, graph.RelCalls, "callees")
}

func (k *KuzuBackend) relatedNodes(ctx context.Context, nodeID string, relType graph.RelType, direction string) ([]*graph.GraphNode, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var query string
	if direction == "callers" {
		query = fmt.Sprintf(`MATCH (caller)-[r:%s {type: "%s"}]->(n {id: "%s"})
			RETURN caller.id, label(caller)`, relTableGroup, string(relType), escapeCypherString(nodeID))
	} else {
		query = fmt.Sprintf(`MATCH (n {id: "%s"})-[r:%s {type: "%s"}]->(callee)
			RETURN callee.id, label(callee)`, escapeCypherString(nodeID), relTableGroup, string(relType))
	}

	result, err := k.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", direction, err)
	}
	defer result.Close()

	var ids []string
	for result.HasNext() {
		tuple, err := result.Next()
		if err != nil {
			break
		}
		v, _ := tuple.GetValue(0)
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}

	var nodes []*graph.GraphNode
	for _, id := range ids {
		node, err := k.getNodeLocked(id)
		if err == nil && node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// getNodeLocked fetches a node assuming the caller already holds k.mu.
func (k *KuzuBackend) getNodeLocked(nodeID string) (*graph.GraphNode, error) {
	label, ok := labelFromID(nodeID)
	if !ok {
		return nil, nil
	}
	query := fmt.Sprintf(`MATCH (n:%s {id: "%s"}) RETURN n.id, n.name, n.file_path, n.start_line,
		n.end_line, n.content, n.signature, n.language, n.class_name, n.is_dead,
		n.is_entry_point, n.is_exported, n.decorators, n.properties`,
		tableName(label), escapeCypherString(nodeID))
	result, err := k.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer result.Close()
	if !result.HasNext() {
		return nil, nil
	}
	tuple, err := result.Next()
	if err != nil {
		return nil, err
	}
	return nodeFromTuple(tuple, label), nil
}

// Traverse performs bounded BFS traversal through CALLS edges, capped at
// depth 10 regardless of the requested depth.
func (k *KuzuBackend) Traverse(ctx context.Context, startID string, depth int, direction string) ([]*graph.GraphNode, error) {
	if depth > 10 {
		depth = 10
	}

	visited := map[string]bool{startID: true}
	var result []*graph.GraphNode
	frontier := []string{startID}

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, id := range frontier {
			var neighbors []*graph.GraphNode
			var err error
			if direction == "callers" {
				neighbors, err = k.GetCallers(ctx, id)
			} else {
				neighbors, err = k.GetCallees(ctx, id)
			}
			if err != nil {
				continue
			}
			for _, n := range neighbors {
				if visited[n.ID] {
					continue
				}
				visited[n.ID] = true
				result = append(result, n)
				next = append(next, n.ID)
			}
		}
		frontier = next
	}

	return result, nil
}

// RebuildFTSIndexes drops and recreates the BM25 FTS index on every node
// table, indexed over name/content/signature.
func (k *KuzuBackend) RebuildFTSIndexes(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, err := k.conn.Query(`INSTALL FTS; LOAD EXTENSION FTS;`); err != nil {
		return fmt.Errorf("loading FTS extension: %w", err)
	}

	for _, label := range graph.AllNodeLabels() {
		table := tableName(label)
		idxName := "fts_" + strings.ToLower(string(label))
		_, _ = k.conn.Query(fmt.Sprintf(`CALL DROP_FTS_INDEX("%s", "%s")`, table, idxName))
		ddl := fmt.Sprintf(`CALL CREATE_FTS_INDEX("%s", "%s", ["name", "content", "signature"])`, table, idxName)
		if _, err := k.conn.Query(ddl); err != nil {
			return fmt.Errorf("creating fts index for %s: %w", label, err)
		}
	}

	k.ftsBuilt = true
	return nil
}

// FTSSearch performs BM25 full-text search over every node table's FTS
// index, halves the score of hits in test paths, multiplies the score of
// non-test function and class hits by 1.2, and merges the per-label hits
// by score desc then id asc.
func (k *KuzuBackend) FTSSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if !k.ftsBuilt {
		return []SearchResult{}, nil
	}

	var results []SearchResult
	for _, label := range graph.AllNodeLabels() {
		table := tableName(label)
		idxName := "fts_" + strings.ToLower(string(label))
		cypher := fmt.Sprintf(`CALL QUERY_FTS_INDEX("%s", "%s", "%s") RETURN node.id, node.name,
			node.file_path, score ORDER BY score DESC LIMIT %d`,
			table, idxName, escapeCypherString(query), limit)
		res, err := k.conn.Query(cypher)
		if err != nil {
			continue
		}
		for res.HasNext() {
			tuple, err := res.Next()
			if err != nil {
				break
			}
			idv, _ := tuple.GetValue(0)
			namev, _ := tuple.GetValue(1)
			pathv, _ := tuple.GetValue(2)
			scorev, _ := tuple.GetValue(3)
			id, _ := idv.(string)
			name, _ := namev.(string)
			path, _ := pathv.(string)
			score, _ := scorev.(float64)
			if isTestPath(path) {
				score *= 0.5
			} else if label == graph.NodeFunction || label == graph.NodeClass {
				score *= 1.2
			}
			results = append(results, SearchResult{
				NodeID:   id,
				NodeName: name,
				FilePath: path,
				Label:    string(label),
				Score:    score,
			})
		}
		res.Close()
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].NodeID < results[j].NodeID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ExactNameSearch matches n.name == name across every node table except
// folder, community, and process, scoring non-test paths 2.0 and test
// paths 1.0, sorted by score desc then id asc.
func (k *KuzuBackend) ExactNameSearch(ctx context.Context, name string, limit int) ([]SearchResult, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var results []SearchResult
	for _, label := range graph.AllNodeLabels() {
		if !isSearchableLabel(string(label)) {
			continue
		}
		table := tableName(label)
		cypher := fmt.Sprintf(`MATCH (n:%s) WHERE n.name = "%s" RETURN n.id, n.name,
			n.file_path, n.content, n.signature LIMIT %d`, table, escapeCypherString(name), limit)
		res, err := k.conn.Query(cypher)
		if err != nil {
			continue
		}
		for res.HasNext() {
			tuple, err := res.Next()
			if err != nil {
				break
			}
			idv, _ := tuple.GetValue(0)
			namev, _ := tuple.GetValue(1)
			pathv, _ := tuple.GetValue(2)
			contentv, _ := tuple.GetValue(3)
			sigv, _ := tuple.GetValue(4)
			id, _ := idv.(string)
			nodeName, _ := namev.(string)
			path, _ := pathv.(string)
			content, _ := contentv.(string)
			signature, _ := sigv.(string)
			results = append(results, SearchResult{
				NodeID:   id,
				NodeName: nodeName,
				FilePath: path,
				Label:    string(label),
				Score:    exactNameScore(path),
				Snippet:  snippetFrom(content, signature),
			})
		}
		res.Close()
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].NodeID < results[j].NodeID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// FuzzySearch matches node names within maxDistance Levenshtein edits of q
// (case-insensitive) using Kuzu's native levenshtein() scalar function.
func (k *KuzuBackend) FuzzySearch(ctx context.Context, q string, limit int, maxDistance int) ([]SearchResult, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	lowerQ := escapeCypherString(strings.ToLower(q))
	var results []SearchResult
	for _, label := range graph.AllNodeLabels() {
		if !isSearchableLabel(string(label)) {
			continue
		}
		table := tableName(label)
		cypher := fmt.Sprintf(`MATCH (n:%s) WHERE levenshtein(lower(n.name), "%s") <= %d
			RETURN n.id, n.name, n.file_path, n.content,
			levenshtein(lower(n.name), "%s") AS dist ORDER BY dist LIMIT %d`,
			table, lowerQ, maxDistance, lowerQ, limit)
		res, err := k.conn.Query(cypher)
		if err != nil {
			continue
		}
		for res.HasNext() {
			tuple, err := res.Next()
			if err != nil {
				break
			}
			idv, _ := tuple.GetValue(0)
			namev, _ := tuple.GetValue(1)
			pathv, _ := tuple.GetValue(2)
			contentv, _ := tuple.GetValue(3)
			distv, _ := tuple.GetValue(4)
			id, _ := idv.(string)
			nodeName, _ := namev.(string)
			path, _ := pathv.(string)
			content, _ := contentv.(string)
			dist := maxDistance
			switch d := distv.(type) {
			case int64:
				dist = int(d)
			case int:
				dist = d
			}
			results = append(results, SearchResult{
				NodeID:   id,
				NodeName: nodeName,
				FilePath: path,
				Label:    string(label),
				Score:    fuzzyScore(dist),
				Snippet:  snippetFrom(content, ""),
			})
		}
		res.Close()
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].NodeID < results[j].NodeID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// snippetFrom mirrors kuzu_search.py's preference for content over
// signature, truncated to 200 bytes.
func snippetFrom(content, signature string) string {
	s := content
	if s == "" {
		s = signature
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// VectorSearch finds nodes closest to the given vector using Kuzu's
// built-in array_cosine_similarity function over the Embedding table.
func (k *KuzuBackend) VectorSearch(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	vecLiteral := float32ListLiteral(vector)
	cypher := fmt.Sprintf(`MATCH (e:%s) RETURN e.node_id, array_cosine_similarity(e.vector, %s) AS score
		ORDER BY score DESC LIMIT %d`, embeddingTable, vecLiteral, limit)
	res, err := k.conn.Query(cypher)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer res.Close()

	var results []SearchResult
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			break
		}
		idv, _ := tuple.GetValue(0)
		scorev, _ := tuple.GetValue(1)
		id, _ := idv.(string)
		score, _ := scorev.(float64)

		node, err := k.getNodeLocked(id)
		if err != nil || node == nil {
			continue
		}
		snippet := node.Content
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		results = append(results, SearchResult{
			NodeID:   id,
			NodeName: node.Name,
			FilePath: node.FilePath,
			Label:    string(node.Label),
			Score:    score,
			Snippet:  snippet,
		})
	}
	return results, nil
}

func float32ListLiteral(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = fmt.Sprintf("%f", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// StoreEmbeddings persists node embeddings.
func (k *KuzuBackend) StoreEmbeddings(ctx context.Context, embeddings []NodeEmbedding) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, emb := range embeddings {
		cypher := fmt.Sprintf(`MERGE (e:%s {node_id: "%s"}) SET e.vector = %s`,
			embeddingTable, escapeCypherString(emb.NodeID), float32ListLiteral(emb.Embedding))
		if _, err := k.conn.Query(cypher); err != nil {
			return fmt.Errorf("storing embedding for %s: %w", emb.NodeID, err)
		}
	}
	return nil
}

// GetDeadCode returns all nodes marked as dead code, across every node
// table.
func (k *KuzuBackend) GetDeadCode(ctx context.Context) ([]*graph.GraphNode, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var dead []*graph.GraphNode
	for _, label := range graph.AllNodeLabels() {
		query := fmt.Sprintf(`MATCH (n:%s {is_dead: true}) RETURN n.id, n.name, n.file_path,
			n.start_line, n.end_line, n.content, n.signature, n.language, n.class_name,
			n.is_dead, n.is_entry_point, n.is_exported, n.decorators, n.properties`, tableName(label))
		res, err := k.conn.Query(query)
		if err != nil {
			continue
		}
		for res.HasNext() {
			tuple, err := res.Next()
			if err != nil {
				break
			}
			dead = append(dead, nodeFromTuple(tuple, label))
		}
		res.Close()
	}
	return dead, nil
}

// HybridSearch combines FTS and vector search using RRF.
func (k *KuzuBackend) HybridSearch(ctx context.Context, query string, queryVector []float32, limit int) ([]HybridSearchResult, error) {
	return HybridSearch(ctx, k, query, queryVector, limit, 60)
}

// RawQuery runs an arbitrary Cypher query against the database and returns
// each result row as a column-name-to-value map, for the CLI's raw query
// escape hatch.
func (k *KuzuBackend) RawQuery(cypher string) ([]map[string]any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	result, err := k.conn.Query(cypher)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	names := result.GetColumnNames()
	var rows []map[string]any
	for result.HasNext() {
		tuple, err := result.Next()
		if err != nil {
			break
		}
		row := make(map[string]any, len(names))
		for i, name := range names {
			v, _ := tuple.GetValue(i)
			row[name] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// refreshCounts recomputes node/relationship counts; caller must hold k.mu.
func (k *KuzuBackend) refreshCounts() {
	nodeTotal := 0
	for _, label := range graph.AllNodeLabels() {
		query := fmt.Sprintf(`MATCH (n:%s) RETURN count(n)`, tableName(label))
		res, err := k.conn.Query(query)
		if err != nil {
			continue
		}
		nodeTotal += countFromScalarResult(res)
		res.Close()
	}
	k.nodeCount = nodeTotal

	relQuery := fmt.Sprintf(`MATCH ()-[r:%s]->() RETURN count(r)`, relTableGroup)
	if res, err := k.conn.Query(relQuery); err == nil {
		k.relationshipCount = countFromScalarResult(res)
		res.Close()
	}
}

// NodeCount returns the node count.
func (k *KuzuBackend) NodeCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.nodeCount
}

// RelationshipCount returns the relationship count.
func (k *KuzuBackend) RelationshipCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.relationshipCount
}

// MCPNodeCount returns the node count for MCP.
func (k *KuzuBackend) MCPNodeCount() int {
	return k.NodeCount()
}

// MCPRelationshipCount returns the relationship count for MCP.
func (k *KuzuBackend) MCPRelationshipCount() int {
	return k.RelationshipCount()
}
