package cypher

import (
	"errors"
	"testing"

	"github.com/samyama/samyama/pkg/samyamaerr"
)

func TestParseSimpleMatchReturn(t *testing.T) {
	q, err := Parse(`MATCH (n:Person) WHERE n.age > 21 RETURN n.name AS name`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Parts) != 1 {
		t.Fatalf("expected 1 query part, got %d", len(q.Parts))
	}
	part := q.Parts[0]
	if len(part.Clauses) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(part.Clauses))
	}
	mc, ok := part.Clauses[0].(*MatchClause)
	if !ok {
		t.Fatalf("expected MatchClause, got %T", part.Clauses[0])
	}
	if mc.Optional {
		t.Fatalf("plain MATCH parsed as optional")
	}
	if mc.Where == nil {
		t.Fatalf("expected WHERE predicate")
	}
	if part.Return == nil || len(part.Return.Items) != 1 {
		t.Fatalf("expected 1 RETURN item")
	}
	if part.Return.Items[0].Alias != "name" {
		t.Fatalf("expected alias 'name', got %q", part.Return.Items[0].Alias)
	}
}

func TestParseOptionalMatch(t *testing.T) {
	q, err := Parse(`MATCH (a:Person) OPTIONAL MATCH (a)-[:KNOWS]->(b) RETURN a, b`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	clauses := q.Parts[0].Clauses
	if len(clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(clauses))
	}
	mc, ok := clauses[1].(*MatchClause)
	if !ok || !mc.Optional {
		t.Fatalf("expected second clause to be an optional MatchClause")
	}
}

func TestParseVariableLengthRelationship(t *testing.T) {
	q, err := Parse(`MATCH (a)-[:KNOWS*1..3]->(b) RETURN b`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	mc := q.Parts[0].Clauses[0].(*MatchClause)
	rel := mc.Patterns[0].Rels[0]
	if !rel.VarLength || rel.MinHops != 1 || rel.MaxHops != 3 {
		t.Fatalf("expected variable-length 1..3, got VarLength=%v Min=%d Max=%d", rel.VarLength, rel.MinHops, rel.MaxHops)
	}
}

func TestParseCreatePattern(t *testing.T) {
	q, err := Parse(`CREATE (a:Person {name: 'Ada'})-[:KNOWS]->(b:Person {name: 'Bob'})`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cc, ok := q.Parts[0].Clauses[0].(*CreateClause)
	if !ok {
		t.Fatalf("expected CreateClause, got %T", q.Parts[0].Clauses[0])
	}
	if len(cc.Patterns[0].Nodes) != 2 || len(cc.Patterns[0].Rels) != 1 {
		t.Fatalf("unexpected pattern shape: %+v", cc.Patterns[0])
	}
}

func TestParseSetAndDelete(t *testing.T) {
	q, err := Parse(`MATCH (n:Person) SET n.age = 30, n:Verified REMOVE n.temp DETACH DELETE n`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	clauses := q.Parts[0].Clauses
	if len(clauses) != 4 {
		t.Fatalf("expected 4 clauses (match, set, remove, delete), got %d", len(clauses))
	}
	sc := clauses[1].(*SetClause)
	if len(sc.Items) != 2 || sc.Items[0].Kind != SetProperty || sc.Items[1].Kind != SetLabel {
		t.Fatalf("unexpected SET items: %+v", sc.Items)
	}
	dc := clauses[3].(*DeleteClause)
	if !dc.Detach {
		t.Fatalf("expected DETACH DELETE")
	}
}

func TestParseMergeWithOnCreateOnMatch(t *testing.T) {
	q, err := Parse(`MERGE (n:Person {id: 1}) ON CREATE SET n.created = true ON MATCH SET n.seen = true`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	mc, ok := q.Parts[0].Clauses[0].(*MergeClause)
	if !ok {
		t.Fatalf("expected MergeClause, got %T", q.Parts[0].Clauses[0])
	}
	if len(mc.OnCreate) != 1 || len(mc.OnMatch) != 1 {
		t.Fatalf("expected 1 ON CREATE and 1 ON MATCH item, got %d/%d", len(mc.OnCreate), len(mc.OnMatch))
	}
}

func TestParseWithAndAggregateReturn(t *testing.T) {
	q, err := Parse(`MATCH (n:Person)-[:KNOWS]->(m) WITH n, count(m) AS friends WHERE friends > 1 RETURN n.name, friends ORDER BY friends DESC LIMIT 5`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	clauses := q.Parts[0].Clauses
	wc, ok := clauses[1].(*WithClause)
	if !ok {
		t.Fatalf("expected WithClause, got %T", clauses[1])
	}
	if wc.Where == nil {
		t.Fatalf("expected WITH ... WHERE predicate")
	}
	ret := q.Parts[0].Return
	if ret.Limit == nil || len(ret.OrderBy) != 1 || !ret.OrderBy[0].Descending {
		t.Fatalf("expected ORDER BY ... DESC LIMIT, got %+v", ret)
	}
}

func TestParseExplainProfileUnion(t *testing.T) {
	q, err := Parse(`EXPLAIN MATCH (n:Person) RETURN n.name UNION ALL MATCH (n:Company) RETURN n.name`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !q.Explain {
		t.Fatalf("expected Explain flag set")
	}
	if len(q.Parts) != 2 || len(q.UnionAll) != 1 || !q.UnionAll[0] {
		t.Fatalf("expected 2 union parts with ALL, got %+v", q)
	}
}

func TestParseExistsSubquery(t *testing.T) {
	q, err := Parse(`MATCH (n:Person) WHERE EXISTS { MATCH (n)-[:KNOWS]->(:Person) } RETURN n`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	mc := q.Parts[0].Clauses[0].(*MatchClause)
	if _, ok := mc.Where.(*ExistsExpr); !ok {
		t.Fatalf("expected WHERE predicate to be an ExistsExpr, got %T", mc.Where)
	}
}

func TestParseErrorReportsPosition(t *testing.T) {
	_, err := Parse(`MATCH (n:Person RETURN n`)
	if err == nil {
		t.Fatalf("expected a parse error for an unclosed node pattern")
	}
	var perr *samyamaerr.Error
	if !errors.As(err, &perr) || perr.Pos == nil {
		t.Fatalf("expected a parse error carrying a position, got %v", err)
	}
	if perr.Pos.Line != 1 || perr.Pos.Column != 17 {
		t.Fatalf("expected the error at 1:17 (the RETURN token), got %d:%d", perr.Pos.Line, perr.Pos.Column)
	}
}
