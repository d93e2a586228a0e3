package cypher

import (
	"testing"

	"github.com/samyama/samyama/pkg/graph"
	"github.com/samyama/samyama/pkg/types"
)

func seedPeople(t *testing.T, s *graph.Store) (a, b, c types.NodeID) {
	t.Helper()
	var err error
	a, err = s.CreateNode([]string{"Person"}, map[string]types.Value{"name": types.Str("Ada"), "age": types.Int(30)})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	b, err = s.CreateNode([]string{"Person"}, map[string]types.Value{"name": types.Str("Bob"), "age": types.Int(25)})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	c, err = s.CreateNode([]string{"Person"}, map[string]types.Value{"name": types.Str("Cid"), "age": types.Int(40)})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if _, err := s.CreateEdge(a, b, "KNOWS", nil); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
	if _, err := s.CreateEdge(b, c, "KNOWS", nil); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
	return a, b, c
}

func drain(t *testing.T, ctx *ExecContext, op Operator) []Row {
	t.Helper()
	if err := op.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	var out []Row
	for {
		row, ok, err := op.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, row)
	}
	return out
}

func TestLabelScanAndFilter(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	a, _, c := seedPeople(t, s)
	ctx := &ExecContext{Store: s}

	scan := &LabelScan{Variable: "n", Label: "Person"}
	q, err := Parse("RETURN n.age > 28")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	filter := &Filter{Input: scan, Pred: &BinaryOp{Op: ">", Left: &PropAccess{Target: &VarRef{Name: "n"}, Prop: "age"}, Right: &LitInt{Value: 28}}}
	_ = q
	rows := drain(t, ctx, filter)
	if len(rows) != 2 {
		t.Fatalf("expected 2 people older than 28, got %d", len(rows))
	}
	ids := map[types.NodeID]bool{}
	for _, r := range rows {
		ids[r["n"].(NodeRef).ID] = true
	}
	if !ids[a] || !ids[c] {
		t.Fatalf("expected Ada and Cid in filtered result, got %+v", rows)
	}
}

func TestExpandSingleHop(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	a, b, _ := seedPeople(t, s)
	ctx := &ExecContext{Store: s}

	scan := &LabelScan{Variable: "n", Label: "Person"}
	expand := &Expand{Input: scan, FromVar: "n", ToVar: "m", Direction: DirOut, Types: []string{"KNOWS"}}
	rows := drain(t, ctx, expand)
	found := false
	for _, r := range rows {
		if r["n"].(NodeRef).ID == a && r["m"].(NodeRef).ID == b {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Ada-KNOWS->Bob in expand output, got %+v", rows)
	}
}

func TestExpandVariableLengthBFS(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	a, _, c := seedPeople(t, s)
	ctx := &ExecContext{Store: s}

	scan := &LabelScan{Variable: "n", Label: "Person"}
	filtered := &Filter{Input: scan, Pred: &BinaryOp{Op: "=", Left: &PropAccess{Target: &VarRef{Name: "n"}, Prop: "name"}, Right: &LitString{Value: "Ada"}}}
	expand := &Expand{Input: filtered, FromVar: "n", ToVar: "m", Direction: DirOut, Types: []string{"KNOWS"}, VarLength: true, MinHops: 1, MaxHops: 2, DistinctVL: true}
	rows := drain(t, ctx, expand)
	reached := map[types.NodeID]bool{}
	for _, r := range rows {
		reached[r["m"].(NodeRef).ID] = true
	}
	if !reached[c] {
		t.Fatalf("expected Ada to reach Cid within 2 hops, got %+v", rows)
	}
	_ = a
}

func TestSortOrdersAscendingByKey(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	_, _, _ = seedPeople(t, s)
	ctx := &ExecContext{Store: s}

	scan := &LabelScan{Variable: "n", Label: "Person"}
	sortOp := &Sort{Input: scan, Keys: []SortKey{{Expr: &PropAccess{Target: &VarRef{Name: "n"}, Prop: "age"}}}}
	rows := drain(t, ctx, sortOp)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	prev := int64(-1)
	for _, r := range rows {
		age, err := resolveProperty(ctx, r["n"], "age")
		if err != nil {
			t.Fatalf("resolveProperty: %v", err)
		}
		v := asValue(age)
		if v.I < prev {
			t.Fatalf("expected ascending age order, got %+v at %d after %d", v, v.I, prev)
		}
		prev = v.I
	}
}

func TestSkipLimit(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	_, _, _ = seedPeople(t, s)
	ctx := &ExecContext{Store: s}

	scan := &LabelScan{Variable: "n", Label: "Person"}
	sl := &SkipLimit{Input: scan, Skip: 1, Limit: 1}
	rows := drain(t, ctx, sl)
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 row after skip 1 limit 1, got %d", len(rows))
	}
}

func TestDistinctDedupes(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	a, _, _ := seedPeople(t, s)
	ctx := &ExecContext{Store: s}

	union := &Union{
		Left:  &LabelScan{Variable: "n", Label: "Person"},
		Right: &Filter{Input: &LabelScan{Variable: "n", Label: "Person"}, Pred: &BinaryOp{Op: "=", Left: &PropAccess{Target: &VarRef{Name: "n"}, Prop: "name"}, Right: &LitString{Value: "Ada"}}},
		All:   true,
	}
	distinct := &Distinct{Input: union}
	rows := drain(t, ctx, distinct)
	count := 0
	for _, r := range rows {
		if r["n"].(NodeRef).ID == a {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected Ada to appear exactly once after Distinct, got %d", count)
	}
}

func TestJoinLeftOuterPadsNulls(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	a, b, _ := seedPeople(t, s)
	ctx := &ExecContext{Store: s}
	_ = b

	left := &LabelScan{Variable: "n", Label: "Person"}
	right := &Filter{
		Input: &Expand{Input: &LabelScan{Variable: "n", Label: "Person"}, FromVar: "n", ToVar: "m", Direction: DirOut, Types: []string{"KNOWS"}},
		Pred:  &BinaryOp{Op: "=", Left: &PropAccess{Target: &VarRef{Name: "n"}, Prop: "name"}, Right: &LitString{Value: "Ada"}},
	}
	join := &Join{Left: left, Right: right, SharedVars: []string{"n"}, LeftOuter: true}
	rows := drain(t, ctx, join)
	sawAdaMatched := false
	sawUnmatchedNull := false
	for _, r := range rows {
		if r["n"].(NodeRef).ID == a {
			if _, ok := r["m"]; ok {
				sawAdaMatched = true
			}
		} else if m, ok := r["m"]; ok {
			if mv, isVal := m.(types.Value); isVal && mv.IsNull() {
				sawUnmatchedNull = true
			}
		}
	}
	if !sawAdaMatched {
		t.Fatalf("expected Ada row joined with her KNOWS target, got %+v", rows)
	}
	if !sawUnmatchedNull {
		t.Fatalf("expected unmatched left rows to carry a null for 'm', got %+v", rows)
	}
}

func TestAggregateCountAndGroupBy(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	_, _, _ = seedPeople(t, s)
	ctx := &ExecContext{Store: s}

	scan := &LabelScan{Variable: "n", Label: "Person"}
	agg := &Aggregate{
		Input: scan,
		Items: []AggregateItem{{Alias: "total", Call: &FuncCall{Name: "count", Args: []Expr{&VarRef{Name: "n"}}}}},
	}
	rows := drain(t, ctx, agg)
	if len(rows) != 1 {
		t.Fatalf("expected a single aggregate row with no GROUP BY keys, got %d", len(rows))
	}
	total := asValue(rows[0]["total"])
	if total.I != 3 {
		t.Fatalf("expected count(n) = 3, got %+v", total)
	}
}

func TestAggregateOverEmptyInputYieldsZeroCount(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	ctx := &ExecContext{Store: s}

	scan := &LabelScan{Variable: "n", Label: "Person"}
	agg := &Aggregate{
		Input: scan,
		Items: []AggregateItem{{Alias: "total", Call: &FuncCall{Name: "count", Args: []Expr{&VarRef{Name: "n"}}}}},
	}
	rows := drain(t, ctx, agg)
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row for count() over empty input, got %d", len(rows))
	}
	if asValue(rows[0]["total"]).I != 0 {
		t.Fatalf("expected count = 0 over empty input, got %+v", rows[0]["total"])
	}
}

func TestCreateOpStandaloneEmitsOneRow(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	ctx := &ExecContext{Store: s}

	pattern := &PatternPath{Nodes: []*NodePattern{{Variable: "n", Labels: []string{"Person"}, Properties: map[string]Expr{"name": &LitString{Value: "Zed"}}}}}
	create := &CreateOp{Patterns: []*PatternPath{pattern}}
	rows := drain(t, ctx, create)
	if len(rows) != 1 {
		t.Fatalf("expected standalone CREATE to emit exactly one row, got %d", len(rows))
	}
	ref, ok := rows[0]["n"].(NodeRef)
	if !ok {
		t.Fatalf("expected created node bound to 'n', got %+v", rows[0])
	}
	n, err := s.GetNode(ref.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if n.Properties["name"].S != "Zed" {
		t.Fatalf("expected name 'Zed', got %+v", n.Properties)
	}
}

func TestDeleteOpDetach(t *testing.T) {
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	a, _, _ := seedPeople(t, s)
	ctx := &ExecContext{Store: s}

	scan := &Filter{Input: &LabelScan{Variable: "n", Label: "Person"}, Pred: &BinaryOp{Op: "=", Left: &PropAccess{Target: &VarRef{Name: "n"}, Prop: "name"}, Right: &LitString{Value: "Ada"}}}
	del := &DeleteOp{Input: scan, Targets: []Expr{&VarRef{Name: "n"}}, Detach: true}
	if _, _, err := del.Next(ctx); err != nil {
		t.Fatalf("Delete Next: %v", err)
	}
	if _, err := s.GetNode(a); err == nil {
		t.Fatalf("expected node deleted")
	}
}
