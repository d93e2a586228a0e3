package cypher

import (
	"testing"

	"github.com/samyama/samyama/pkg/graph"
	"github.com/samyama/samyama/pkg/types"
)

func newTestExecContext(t *testing.T) *ExecContext {
	t.Helper()
	s := graph.New(graph.Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	return &ExecContext{Store: s, Params: map[string]types.Value{}}
}

func evalExpr(t *testing.T, ctx *ExecContext, row Row, src string) any {
	t.Helper()
	q, err := Parse("RETURN " + src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	expr := q.Parts[0].Return.Items[0].Expr
	v, err := Eval(ctx, row, expr)
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}
	return v
}

func TestEvalThreeValuedAnd(t *testing.T) {
	ctx := newTestExecContext(t)
	cases := []struct {
		src  string
		want types.Value
	}{
		{"false AND null", types.Bool(false)},
		{"null AND false", types.Bool(false)},
		{"true AND null", types.Null},
		{"null AND true", types.Null},
		{"true AND true", types.Bool(true)},
	}
	for _, c := range cases {
		got := asValue(evalExpr(t, ctx, Row{}, c.src))
		if !types.Equal(got, c.want) && !(got.IsNull() && c.want.IsNull()) {
			t.Fatalf("%s: got %+v, want %+v", c.src, got, c.want)
		}
	}
}

func TestEvalThreeValuedOr(t *testing.T) {
	ctx := newTestExecContext(t)
	cases := []struct {
		src  string
		want types.Value
	}{
		{"true OR null", types.Bool(true)},
		{"null OR true", types.Bool(true)},
		{"false OR null", types.Null},
		{"null OR false", types.Null},
	}
	for _, c := range cases {
		got := asValue(evalExpr(t, ctx, Row{}, c.src))
		if !(got.IsNull() && c.want.IsNull()) && !types.Equal(got, c.want) {
			t.Fatalf("%s: got %+v, want %+v", c.src, got, c.want)
		}
	}
}

func TestEvalArithmetic(t *testing.T) {
	ctx := newTestExecContext(t)
	cases := []struct {
		src  string
		want types.Value
	}{
		{"2 + 3", types.Int(5)},
		{"2.5 + 1", types.Float(3.5)},
		{"'foo' + 'bar'", types.Str("foobar")},
		{"10 / 3", types.Int(3)},
		{"10 % 3", types.Int(1)},
	}
	for _, c := range cases {
		got := asValue(evalExpr(t, ctx, Row{}, c.src))
		if !types.Equal(got, c.want) {
			t.Fatalf("%s: got %+v, want %+v", c.src, got, c.want)
		}
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	ctx := newTestExecContext(t)
	q, err := Parse("RETURN 1 / 0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = Eval(ctx, Row{}, q.Parts[0].Return.Items[0].Expr)
	if err == nil {
		t.Fatalf("expected division-by-zero error")
	}
}

func TestEvalPropertyAccessOnNode(t *testing.T) {
	ctx := newTestExecContext(t)
	id, err := ctx.Store.CreateNode([]string{"Person"}, map[string]types.Value{"name": types.Str("Ada")})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	row := Row{"n": NodeRef{ID: id}}
	got := asValue(evalExpr(t, ctx, row, "n.name"))
	if got.S != "Ada" {
		t.Fatalf("expected name 'Ada', got %+v", got)
	}
	gotMissing := asValue(evalExpr(t, ctx, row, "n.missing"))
	if !gotMissing.IsNull() {
		t.Fatalf("expected null for missing property, got %+v", gotMissing)
	}
}

func TestEvalInWithNullPropagation(t *testing.T) {
	ctx := newTestExecContext(t)
	got := asValue(evalExpr(t, ctx, Row{}, "3 IN [1, 2, null]"))
	if !got.IsNull() {
		t.Fatalf("expected null when 3 not found but list contains null, got %+v", got)
	}
	got2 := asValue(evalExpr(t, ctx, Row{}, "2 IN [1, 2, null]"))
	if got2.Kind != types.KindBool || !got2.B {
		t.Fatalf("expected true when member present regardless of trailing null, got %+v", got2)
	}
}

func TestEvalCoalesceAndCase(t *testing.T) {
	ctx := newTestExecContext(t)
	got := asValue(evalExpr(t, ctx, Row{}, "coalesce(null, null, 7)"))
	if got.I != 7 {
		t.Fatalf("expected coalesce to skip nulls, got %+v", got)
	}
	got2 := asValue(evalExpr(t, ctx, Row{}, "CASE WHEN 1 > 2 THEN 'a' WHEN 2 > 1 THEN 'b' ELSE 'c' END"))
	if got2.S != "b" {
		t.Fatalf("expected generic CASE to pick 'b', got %+v", got2)
	}
}

func TestApocCollFunctions(t *testing.T) {
	ctx := newTestExecContext(t)

	sum := asValue(evalExpr(t, ctx, Row{}, "apoc.coll.sum([1, 2, 3.5])"))
	if sum.Kind != types.KindFloat || sum.F != 6.5 {
		t.Fatalf("apoc.coll.sum: got %+v", sum)
	}

	avg := asValue(evalExpr(t, ctx, Row{}, "apoc.coll.avg([2, 4, 6])"))
	if avg.Kind != types.KindFloat || avg.F != 4 {
		t.Fatalf("apoc.coll.avg: got %+v", avg)
	}

	min := asValue(evalExpr(t, ctx, Row{}, "apoc.coll.min([5, 2, 8, 1])"))
	if min.Kind != types.KindInt || min.I != 1 {
		t.Fatalf("apoc.coll.min: got %+v", min)
	}

	max := asValue(evalExpr(t, ctx, Row{}, "apoc.coll.max([5, 2, 8, 1])"))
	if max.Kind != types.KindInt || max.I != 8 {
		t.Fatalf("apoc.coll.max: got %+v", max)
	}
}

func TestApocTextFunctions(t *testing.T) {
	ctx := newTestExecContext(t)

	joined := asValue(evalExpr(t, ctx, Row{}, "apoc.text.join(['a', 'b', 'c'], '-')"))
	if joined.Kind != types.KindString || joined.S != "a-b-c" {
		t.Fatalf("apoc.text.join: got %+v", joined)
	}

	split := asValue(evalExpr(t, ctx, Row{}, "apoc.text.split('a,b,c', ',')"))
	if split.Kind != types.KindList || len(split.List) != 3 || split.List[1].S != "b" {
		t.Fatalf("apoc.text.split: got %+v", split)
	}

	replaced := asValue(evalExpr(t, ctx, Row{}, "apoc.text.replace('hello world', 'world', 'there')"))
	if replaced.Kind != types.KindString || replaced.S != "hello there" {
		t.Fatalf("apoc.text.replace: got %+v", replaced)
	}

	capped := asValue(evalExpr(t, ctx, Row{}, "apoc.text.capitalize('world')"))
	if capped.Kind != types.KindString || capped.S != "World" {
		t.Fatalf("apoc.text.capitalize: got %+v", capped)
	}
}

func TestRowValueKeyIdentityEquality(t *testing.T) {
	a := NodeRef{ID: types.NodeID(42)}
	b := NodeRef{ID: types.NodeID(42)}
	if rowValueKey(a) != rowValueKey(b) {
		t.Fatalf("expected two NodeRefs with the same id to hash identically")
	}
	c := NodeRef{ID: types.NodeID(43)}
	if rowValueKey(a) == rowValueKey(c) {
		t.Fatalf("expected NodeRefs with different ids to hash differently")
	}
}
