package cypher

import (
	"testing"

	"github.com/samyama/samyama/pkg/graph"
	"github.com/samyama/samyama/pkg/types"
)

func runQuery(t *testing.T, s *graph.Store, src string) []Row {
	t.Helper()
	q, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	plan := &Plan{Store: s, Params: map[string]types.Value{}}
	res, err := plan.Build(q)
	if err != nil {
		t.Fatalf("Build(%q): %v", src, err)
	}
	ctx := &ExecContext{Store: s, Params: plan.Params}
	return drain(t, ctx, res.Root)
}

func TestPlanCreateThenMatchReturn(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)

	runQuery(t, s, `CREATE (a:Person {name: 'Ada', age: 30})-[:KNOWS]->(b:Person {name: 'Bob', age: 25})`)

	rows := runQuery(t, s, `MATCH (n:Person) WHERE n.age > 26 RETURN n.name AS name`)
	if len(rows) != 1 {
		t.Fatalf("expected 1 matching person, got %d: %+v", len(rows), rows)
	}
	if asValue(rows[0]["name"]).S != "Ada" {
		t.Fatalf("expected Ada, got %+v", rows[0])
	}
}

func TestPlanIndexScanSubstitution(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	s.CreateIndex("Person", "email")
	runQuery(t, s, `CREATE (a:Person {email: 'ada@example.com'})`)
	s.FlushIndices()

	q, err := Parse(`MATCH (n:Person {email: 'ada@example.com'}) RETURN n`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	plan := &Plan{Store: s, Params: map[string]types.Value{}}
	res, err := plan.Build(q)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The anchor should have been lowered to an IndexScan, not a LabelScan,
	// since an index exists on (Person, email) and the predicate is a
	// literal equality.
	var found bool
	var walk func(op Operator)
	walk = func(op Operator) {
		if op == nil {
			return
		}
		if _, ok := op.(*IndexScan); ok {
			found = true
		}
		switch o := op.(type) {
		case *Filter:
			walk(o.Input)
		case *Project:
			walk(o.Input)
		}
	}
	walk(res.Root)
	if !found {
		t.Fatalf("expected an IndexScan in the plan for an indexed equality predicate")
	}

	ctx := &ExecContext{Store: s, Params: plan.Params}
	rows := drain(t, ctx, res.Root)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row via index scan, got %d", len(rows))
	}
}

func TestPlanOptionalMatchYieldsNullForUnmatched(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	runQuery(t, s, `CREATE (a:Person {name: 'Ada'})`)
	runQuery(t, s, `CREATE (b:Person {name: 'Bob'})`)
	runQuery(t, s, `MATCH (a:Person {name: 'Ada'}), (b:Person {name: 'Bob'}) CREATE (a)-[:KNOWS]->(b)`)

	rows := runQuery(t, s, `MATCH (n:Person) OPTIONAL MATCH (n)-[:KNOWS]->(m) RETURN n.name AS name, m`)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (one per person), got %d: %+v", len(rows), rows)
	}
	sawNullFriend := false
	for _, r := range rows {
		if asValue(r["name"]).S == "Bob" {
			if v, ok := r["m"].(types.Value); ok && v.IsNull() {
				sawNullFriend = true
			}
		}
	}
	if !sawNullFriend {
		t.Fatalf("expected Bob's OPTIONAL MATCH to yield null, got %+v", rows)
	}
}

func TestPlanAggregateWithGroupBy(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	runQuery(t, s, `CREATE (a:Person {city: 'NYC'})`)
	runQuery(t, s, `CREATE (b:Person {city: 'NYC'})`)
	runQuery(t, s, `CREATE (c:Person {city: 'SF'})`)

	rows := runQuery(t, s, `MATCH (n:Person) RETURN n.city AS city, count(n) AS total`)
	byCity := map[string]int64{}
	for _, r := range rows {
		byCity[asValue(r["city"]).S] = asValue(r["total"]).I
	}
	if byCity["NYC"] != 2 || byCity["SF"] != 1 {
		t.Fatalf("expected NYC=2, SF=1, got %+v", byCity)
	}
}

func TestPlanMergeCreatesWhenAbsent(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)

	runQuery(t, s, `MERGE (n:Person {id: 1}) ON CREATE SET n.created = true`)
	rows := runQuery(t, s, `MATCH (n:Person {id: 1}) RETURN n.created AS created`)
	if len(rows) != 1 {
		t.Fatalf("expected MERGE to have created exactly one node, got %d", len(rows))
	}
	if !asValue(rows[0]["created"]).B {
		t.Fatalf("expected ON CREATE SET to have applied, got %+v", rows[0])
	}

	runQuery(t, s, `MERGE (n:Person {id: 1}) ON MATCH SET n.seen = true`)
	rows = runQuery(t, s, `MATCH (n:Person {id: 1}) RETURN n.seen AS seen`)
	if len(rows) != 1 || !asValue(rows[0]["seen"]).B {
		t.Fatalf("expected second MERGE to match and apply ON MATCH SET, got %+v", rows)
	}
}

func TestPlanUnwind(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	rows := runQuery(t, s, `UNWIND [1, 2, 3] AS x RETURN x`)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows from UNWIND, got %d", len(rows))
	}
	sum := int64(0)
	for _, r := range rows {
		sum += asValue(r["x"]).I
	}
	if sum != 6 {
		t.Fatalf("expected sum 1+2+3=6, got %d", sum)
	}
}

func TestPlanCallProcedure(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	runQuery(t, s, `CREATE (a:Person), (b:Company)`)

	rows := runQuery(t, s, `CALL db.labels()`)
	labels := map[string]bool{}
	for _, r := range rows {
		labels[asValue(r["label"]).S] = true
	}
	if !labels["Person"] || !labels["Company"] {
		t.Fatalf("expected db.labels() to report Person and Company, got %+v", rows)
	}
}
