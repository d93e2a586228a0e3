package cypher

import (
	"sort"
	"time"

	"github.com/samyama/samyama/pkg/graph"
	"github.com/samyama/samyama/pkg/samyamaerr"
	"github.com/samyama/samyama/pkg/types"
)

// Operator is the Volcano-model pull contract (§4.5): Next produces one
// record at a time in pull order, Reset rewinds for re-iteration (used by
// the right side of nested-loop joins), and Describe renders one line of
// an EXPLAIN/PROFILE plan tree.
type Operator interface {
	Next(ctx *ExecContext) (Row, bool, error)
	Reset(ctx *ExecContext) error
	Describe() string
}

// ---------------------------------------------------------------------
// Label Scan
// ---------------------------------------------------------------------

type LabelScan struct {
	Variable string
	Label    string

	ids []types.NodeID
	pos int
}

func (o *LabelScan) Reset(ctx *ExecContext) error {
	o.ids = ctx.Store.NodesByLabel(o.Label)
	o.pos = 0
	return nil
}

func (o *LabelScan) Next(ctx *ExecContext) (Row, bool, error) {
	if o.ids == nil && o.pos == 0 {
		if err := o.Reset(ctx); err != nil {
			return nil, false, err
		}
	}
	if err := ctx.checkDeadline(); err != nil {
		return nil, false, err
	}
	if o.pos >= len(o.ids) {
		return nil, false, nil
	}
	id := o.ids[o.pos]
	o.pos++
	return Row{o.Variable: NodeRef{ID: id}}, true, nil
}

func (o *LabelScan) Describe() string { return "LabelScan(" + o.Variable + ":" + o.Label + ")" }

// ---------------------------------------------------------------------
// Index Scan
// ---------------------------------------------------------------------

type IndexScan struct {
	Variable string
	Label    string
	Prop     string
	Lo, Hi   *types.Value // half-open [Lo, Hi); either may be nil (unbounded)
	Eq       *types.Value // if set, an equality lookup instead of a range

	ids []types.NodeID
	pos int
}

func (o *IndexScan) Reset(ctx *ExecContext) error {
	if o.Eq != nil {
		ids, _ := ctx.Store.IndexLookup(o.Label, o.Prop, *o.Eq)
		o.ids = ids
	} else {
		ids, _ := ctx.Store.IndexRange(o.Label, o.Prop, o.Lo, o.Hi)
		o.ids = ids
	}
	o.pos = 0
	return nil
}

func (o *IndexScan) Next(ctx *ExecContext) (Row, bool, error) {
	if o.ids == nil && o.pos == 0 {
		if err := o.Reset(ctx); err != nil {
			return nil, false, err
		}
	}
	if err := ctx.checkDeadline(); err != nil {
		return nil, false, err
	}
	if o.pos >= len(o.ids) {
		return nil, false, nil
	}
	id := o.ids[o.pos]
	o.pos++
	return Row{o.Variable: NodeRef{ID: id}}, true, nil
}

func (o *IndexScan) Describe() string { return "IndexScan(" + o.Variable + "." + o.Prop + ")" }

// ---------------------------------------------------------------------
// Expand
// ---------------------------------------------------------------------

type Expand struct {
	Input       Operator
	FromVar     string
	EdgeVar     string // "" if the relationship is not bound to a variable
	ToVar       string
	Types       []string
	Direction   RelDirection
	VarLength   bool
	MinHops     int
	MaxHops     int // -1 means unbounded, capped by effectiveMaxVLHops
	MaxVLHops   int // hard cap for unbounded variable-length expansion
	DistinctVL  bool // dedup by endpoint node id for variable-length paths

	pending []Row
}

const defaultMaxVLPathHops = 15

func (o *Expand) Reset(ctx *ExecContext) error {
	o.pending = nil
	return o.Input.Reset(ctx)
}

func (o *Expand) Next(ctx *ExecContext) (Row, bool, error) {
	for {
		if len(o.pending) > 0 {
			row := o.pending[0]
			o.pending = o.pending[1:]
			return row, true, nil
		}
		in, ok, err := o.Input.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		if err := ctx.checkDeadline(); err != nil {
			return nil, false, err
		}
		fromRef, ok := in[o.FromVar].(NodeRef)
		if !ok {
			continue
		}
		if o.VarLength {
			o.pending = o.expandVariableLength(ctx, in, fromRef)
		} else {
			o.pending = o.expandSingleHop(ctx, in, fromRef)
		}
	}
}

func (o *Expand) expandSingleHop(ctx *ExecContext, in Row, from NodeRef) []Row {
	var out []Row
	typeSet := map[string]bool{}
	for _, t := range o.Types {
		typeSet[t] = true
	}
	visit := func(a graph.AdjItem, other types.NodeID, dir string) {
		if len(typeSet) > 0 && !typeSet[ctx.Store.Symbols.Name(a.Type)] {
			return
		}
		row := in.Clone()
		row[o.ToVar] = NodeRef{ID: other}
		if o.EdgeVar != "" {
			src, tgt := from.ID, other
			if dir == "in" {
				src, tgt = other, from.ID
			}
			row[o.EdgeVar] = EdgeRef{ID: a.Edge, Source: src, Target: tgt, Type: ctx.Store.Symbols.Name(a.Type)}
		}
		out = append(out, row)
	}
	if o.Direction == DirOut || o.Direction == DirEither {
		for _, a := range ctx.Store.Outgoing(from.ID) {
			visit(a, a.Other, "out")
		}
	}
	if o.Direction == DirIn || o.Direction == DirEither {
		for _, a := range ctx.Store.Incoming(from.ID) {
			visit(a, a.Other, "in")
		}
	}
	return out
}

// expandVariableLength runs a bounded BFS between MinHops and MaxHops,
// emitting one record per path endpoint with no per-hop materialization
// (§4.5): only the endpoint node (and the traversed-node set, if
// DistinctVL is requested) is tracked, not the path itself.
func (o *Expand) expandVariableLength(ctx *ExecContext, in Row, from NodeRef) []Row {
	max := o.MaxHops
	if max < 0 || max > o.effectiveMaxVLHops() {
		max = o.effectiveMaxVLHops()
	}
	min := o.MinHops
	if min < 1 {
		min = 1
	}

	typeSet := map[string]bool{}
	for _, t := range o.Types {
		typeSet[t] = true
	}

	type frontierItem struct {
		node   types.NodeID
		depth  int
		visited map[types.NodeID]bool
	}
	start := frontierItem{node: from.ID, depth: 0, visited: map[types.NodeID]bool{from.ID: true}}
	queue := []frontierItem{start}
	seenEndpoints := map[types.NodeID]bool{}
	var out []Row

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= max {
			continue
		}
		neighbors := o.neighborsOf(ctx, cur.node, typeSet)
		for _, n := range neighbors {
			nextDepth := cur.depth + 1
			if o.DistinctVL && cur.visited[n] {
				continue
			}
			if nextDepth >= min {
				if !o.DistinctVL || !seenEndpoints[n] {
					row := in.Clone()
					row[o.ToVar] = NodeRef{ID: n}
					out = append(out, row)
					if o.DistinctVL {
						seenEndpoints[n] = true
					}
				}
			}
			if nextDepth < max {
				nv := cur.visited
				if o.DistinctVL {
					nv = make(map[types.NodeID]bool, len(cur.visited)+1)
					for k := range cur.visited {
						nv[k] = true
					}
					nv[n] = true
				}
				queue = append(queue, frontierItem{node: n, depth: nextDepth, visited: nv})
			}
		}
	}
	return out
}

func (o *Expand) neighborsOf(ctx *ExecContext, id types.NodeID, typeSet map[string]bool) []types.NodeID {
	var out []types.NodeID
	match := func(a graph.AdjItem) bool {
		return len(typeSet) == 0 || typeSet[ctx.Store.Symbols.Name(a.Type)]
	}
	if o.Direction == DirOut || o.Direction == DirEither {
		for _, a := range ctx.Store.Outgoing(id) {
			if match(a) {
				out = append(out, a.Other)
			}
		}
	}
	if o.Direction == DirIn || o.Direction == DirEither {
		for _, a := range ctx.Store.Incoming(id) {
			if match(a) {
				out = append(out, a.Other)
			}
		}
	}
	return out
}

func (o *Expand) effectiveMaxVLHops() int {
	if o.MaxVLHops > 0 {
		return o.MaxVLHops
	}
	return defaultMaxVLPathHops
}

func (o *Expand) Describe() string { return "Expand(" + o.FromVar + "->" + o.ToVar + ")" }

// ---------------------------------------------------------------------
// Filter
// ---------------------------------------------------------------------

type Filter struct {
	Input Operator
	Pred  Expr
}

func (o *Filter) Reset(ctx *ExecContext) error { return o.Input.Reset(ctx) }

func (o *Filter) Next(ctx *ExecContext) (Row, bool, error) {
	for {
		row, ok, err := o.Input.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		v, err := Eval(ctx, row, o.Pred)
		if err != nil {
			return nil, false, err
		}
		// Three-valued logic: a null predicate result drops the record.
		if isNullValue(v) {
			continue
		}
		if b, known := asValue(v).Truthy(); known && b {
			return row, true, nil
		}
	}
}

func (o *Filter) Describe() string { return "Filter" }

// ---------------------------------------------------------------------
// Project
// ---------------------------------------------------------------------

type ProjectItem struct {
	Expr  Expr
	Alias string
}

type Project struct {
	Input Operator
	Items []ProjectItem
}

func (o *Project) Reset(ctx *ExecContext) error { return o.Input.Reset(ctx) }

func (o *Project) Next(ctx *ExecContext) (Row, bool, error) {
	row, ok, err := o.Input.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	out := make(Row, len(o.Items))
	for _, item := range o.Items {
		v, err := Eval(ctx, row, item.Expr)
		if err != nil {
			return nil, false, err
		}
		out[item.Alias] = v
	}
	return out, true, nil
}

func (o *Project) Describe() string { return "Project" }

// ---------------------------------------------------------------------
// Distinct
// ---------------------------------------------------------------------

type Distinct struct {
	Input Operator
	Vars  []string // empty means "all keys of the row"

	seen map[string]bool
}

func (o *Distinct) Reset(ctx *ExecContext) error {
	o.seen = nil
	return o.Input.Reset(ctx)
}

func (o *Distinct) Next(ctx *ExecContext) (Row, bool, error) {
	if o.seen == nil {
		o.seen = make(map[string]bool)
	}
	for {
		row, ok, err := o.Input.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		vars := o.Vars
		if len(vars) == 0 {
			vars = sortedKeys(row)
		}
		key := rowKey(row, vars)
		if o.seen[key] {
			continue
		}
		o.seen[key] = true
		return row, true, nil
	}
}

func (o *Distinct) Describe() string { return "Distinct" }

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---------------------------------------------------------------------
// Sort
// ---------------------------------------------------------------------

type SortKey struct {
	Expr       Expr
	Descending bool
}

type Sort struct {
	Input Operator
	Keys  []SortKey

	rows []Row
	pos  int
	done bool
}

func (o *Sort) Reset(ctx *ExecContext) error {
	o.rows = nil
	o.pos = 0
	o.done = false
	return o.Input.Reset(ctx)
}

func (o *Sort) materialize(ctx *ExecContext) error {
	type keyed struct {
		row  Row
		keys []types.Value
	}
	var all []keyed
	for {
		row, ok, err := o.Input.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		keys := make([]types.Value, len(o.Keys))
		for i, k := range o.Keys {
			v, err := Eval(ctx, row, k.Expr)
			if err != nil {
				return err
			}
			keys[i] = asValue(v)
		}
		all = append(all, keyed{row: row, keys: keys})
	}
	sort.SliceStable(all, func(i, j int) bool {
		for k := range o.Keys {
			a, b := all[i].keys[k], all[j].keys[k]
			cmp, ok := types.Compare(a, b)
			if !ok || cmp == 0 {
				continue
			}
			if o.Keys[k].Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	o.rows = make([]Row, len(all))
	for i, e := range all {
		o.rows[i] = e.row
	}
	o.done = true
	return nil
}

func (o *Sort) Next(ctx *ExecContext) (Row, bool, error) {
	if !o.done {
		if err := o.materialize(ctx); err != nil {
			return nil, false, err
		}
	}
	if o.pos >= len(o.rows) {
		return nil, false, nil
	}
	row := o.rows[o.pos]
	o.pos++
	return row, true, nil
}

func (o *Sort) Describe() string { return "Sort" }

// ---------------------------------------------------------------------
// Limit / Skip
// ---------------------------------------------------------------------

type SkipLimit struct {
	Input      Operator
	Skip       int64
	Limit      int64 // -1 means unbounded
	skipped    int64
	emitted    int64
}

func (o *SkipLimit) Reset(ctx *ExecContext) error {
	o.skipped, o.emitted = 0, 0
	return o.Input.Reset(ctx)
}

func (o *SkipLimit) Next(ctx *ExecContext) (Row, bool, error) {
	if o.Limit >= 0 && o.emitted >= o.Limit {
		return nil, false, nil
	}
	for o.skipped < o.Skip {
		_, ok, err := o.Input.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		o.skipped++
	}
	row, ok, err := o.Input.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	o.emitted++
	return row, true, nil
}

func (o *SkipLimit) Describe() string { return "SkipLimit" }

// ---------------------------------------------------------------------
// Unwind
// ---------------------------------------------------------------------

type Unwind struct {
	Input Operator
	List  Expr
	As    string

	items []any
	row   Row
	pos   int
}

func (o *Unwind) Reset(ctx *ExecContext) error {
	o.items = nil
	o.pos = 0
	return o.Input.Reset(ctx)
}

func (o *Unwind) Next(ctx *ExecContext) (Row, bool, error) {
	for {
		if o.pos < len(o.items) {
			out := o.row.Clone()
			out[o.As] = o.items[o.pos]
			o.pos++
			return out, true, nil
		}
		row, ok, err := o.Input.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		v, err := Eval(ctx, row, o.List)
		if err != nil {
			return nil, false, err
		}
		switch lst := v.(type) {
		case []any:
			o.items = lst
		default:
			val := asValue(v)
			if val.Kind == types.KindList {
				o.items = out2any(val.List)
			} else {
				o.items = nil
			}
		}
		o.row = row
		o.pos = 0
	}
}

func (o *Unwind) Describe() string { return "Unwind(" + o.As + ")" }

// ---------------------------------------------------------------------
// Union / Union All
// ---------------------------------------------------------------------

type Union struct {
	Left, Right Operator
	All         bool

	onLeft bool
	seen   map[string]bool
	started bool
}

func (o *Union) Reset(ctx *ExecContext) error {
	o.onLeft = true
	o.seen = nil
	o.started = false
	if err := o.Left.Reset(ctx); err != nil {
		return err
	}
	return o.Right.Reset(ctx)
}

func (o *Union) Next(ctx *ExecContext) (Row, bool, error) {
	if !o.started {
		o.started = true
		o.onLeft = true
		if !o.All {
			o.seen = make(map[string]bool)
		}
	}
	for {
		var row Row
		var ok bool
		var err error
		if o.onLeft {
			row, ok, err = o.Left.Next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				o.onLeft = false
				continue
			}
		} else {
			row, ok, err = o.Right.Next(ctx)
			if err != nil || !ok {
				return nil, false, err
			}
		}
		if !o.All {
			key := rowKey(row, sortedKeys(row))
			if o.seen[key] {
				continue
			}
			o.seen[key] = true
		}
		return row, true, nil
	}
}

func (o *Union) Describe() string { return "Union" }

// ---------------------------------------------------------------------
// Join (hash join on shared variables, by NodeRef/EdgeRef identity) and
// LeftOuterJoin (OPTIONAL MATCH semantics)
// ---------------------------------------------------------------------

type Join struct {
	Left, Right Operator
	SharedVars  []string
	LeftOuter   bool

	built      bool
	buckets    map[string][]Row
	rightCols  []string
	leftRow    Row
	candidates []Row
	candPos    int
	matchedAny bool
}

func (o *Join) Reset(ctx *ExecContext) error {
	o.built = false
	o.buckets = nil
	o.candidates = nil
	o.candPos = 0
	if err := o.Left.Reset(ctx); err != nil {
		return err
	}
	return o.Right.Reset(ctx)
}

func (o *Join) build(ctx *ExecContext) error {
	o.buckets = make(map[string][]Row)
	for {
		row, ok, err := o.Right.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		key := rowKey(row, o.SharedVars)
		o.buckets[key] = append(o.buckets[key], row)
		if o.rightCols == nil {
			o.rightCols = sortedKeys(row)
		}
	}
	o.built = true
	return nil
}

func (o *Join) Next(ctx *ExecContext) (Row, bool, error) {
	if !o.built {
		if err := o.build(ctx); err != nil {
			return nil, false, err
		}
	}
	for {
		if o.candPos < len(o.candidates) {
			right := o.candidates[o.candPos]
			o.candPos++
			o.matchedAny = true
			out := o.leftRow.Clone()
			for k, v := range right {
				out[k] = v
			}
			return out, true, nil
		}
		row, ok, err := o.Left.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		key := rowKey(row, o.SharedVars)
		o.leftRow = row
		o.candidates = o.buckets[key]
		o.candPos = 0
		if len(o.candidates) == 0 {
			if o.LeftOuter {
				out := row.Clone()
				for _, c := range o.rightCols {
					if _, exists := out[c]; !exists {
						out[c] = types.Null
					}
				}
				return out, true, nil
			}
			continue
		}
	}
}

func (o *Join) Describe() string { return "Join" }

// ---------------------------------------------------------------------
// Semi-join (EXISTS subquery): emits each left row unchanged, filtered to
// those for which the right side (re-evaluated per left row) has at least
// one match.
// ---------------------------------------------------------------------

type SemiJoin struct {
	Left        Operator
	BuildRight  func(ctx *ExecContext, left Row) (Operator, error)
	Negate      bool
}

func (o *SemiJoin) Reset(ctx *ExecContext) error { return o.Left.Reset(ctx) }

func (o *SemiJoin) Next(ctx *ExecContext) (Row, bool, error) {
	for {
		row, ok, err := o.Left.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		right, err := o.BuildRight(ctx, row)
		if err != nil {
			return nil, false, err
		}
		if err := right.Reset(ctx); err != nil {
			return nil, false, err
		}
		_, hasMatch, err := right.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if hasMatch != o.Negate {
			return row, true, nil
		}
	}
}

func (o *SemiJoin) Describe() string { return "SemiJoin" }

// ---------------------------------------------------------------------
// Aggregate
// ---------------------------------------------------------------------

type AggregateItem struct {
	Alias string
	Call  *FuncCall // nil means this is a GROUP BY passthrough key
	Key   Expr      // used when Call == nil
}

type Aggregate struct {
	Input   Operator
	GroupBy []Expr // keys implicit in the non-aggregated return items
	Items   []AggregateItem

	groups   map[string]*aggGroup
	order    []string
	pos      int
	computed bool
}

type aggGroup struct {
	keyRow  Row
	counts  map[string]int64
	sums    map[string]float64
	mins    map[string]types.Value
	maxs    map[string]types.Value
	lists   map[string][]any
	distinctSeen map[string]map[string]bool
}

func (o *Aggregate) Reset(ctx *ExecContext) error {
	o.groups = nil
	o.order = nil
	o.pos = 0
	o.computed = false
	return o.Input.Reset(ctx)
}

func (o *Aggregate) compute(ctx *ExecContext) error {
	o.groups = make(map[string]*aggGroup)
	for {
		row, ok, err := o.Input.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		keyVals := make(Row, len(o.GroupBy))
		for i, k := range o.GroupBy {
			v, err := Eval(ctx, row, k)
			if err != nil {
				return err
			}
			keyVals[aggKeyName(i)] = v
		}
		gkey := rowKey(keyVals, sortedKeys(keyVals))
		g, ok := o.groups[gkey]
		if !ok {
			g = &aggGroup{
				keyRow:       keyVals,
				counts:       map[string]int64{},
				sums:         map[string]float64{},
				mins:         map[string]types.Value{},
				maxs:         map[string]types.Value{},
				lists:        map[string][]any{},
				distinctSeen: map[string]map[string]bool{},
			}
			o.groups[gkey] = g
			o.order = append(o.order, gkey)
		}
		for _, item := range o.Items {
			if item.Call == nil {
				continue
			}
			if err := accumulate(ctx, row, item, g); err != nil {
				return err
			}
		}
	}
	if len(o.groups) == 0 && len(o.GroupBy) == 0 {
		// No rows and no GROUP BY keys: aggregates over an empty set still
		// produce one row (count() = 0, sum() = 0, others null).
		g := &aggGroup{counts: map[string]int64{}, sums: map[string]float64{}, mins: map[string]types.Value{}, maxs: map[string]types.Value{}, lists: map[string][]any{}, distinctSeen: map[string]map[string]bool{}}
		o.groups["__empty__"] = g
		o.order = []string{"__empty__"}
	}
	o.computed = true
	return nil
}

func aggKeyName(i int) string { return "__k" + string(rune('0'+i)) }

func accumulate(ctx *ExecContext, row Row, item AggregateItem, g *aggGroup) error {
	call := item.Call
	alias := item.Alias
	if call.Name == "count" && len(call.Args) == 1 {
		if vr, ok := call.Args[0].(*VarRef); ok && vr.Name == "*" {
			g.counts[alias]++
			return nil
		}
	}
	var v any
	if len(call.Args) > 0 {
		var err error
		v, err = Eval(ctx, row, call.Args[0])
		if err != nil {
			return err
		}
	}
	if call.Distinct {
		seen := g.distinctSeen[alias]
		if seen == nil {
			seen = map[string]bool{}
			g.distinctSeen[alias] = seen
		}
		k := rowValueKey(v)
		if seen[k] {
			return nil
		}
		seen[k] = true
	}
	switch call.Name {
	case "count":
		if !isNullValue(v) {
			g.counts[alias]++
		}
	case "sum":
		val := asValue(v)
		if val.Numeric() {
			g.sums[alias] += val.AsFloat64()
		}
	case "avg":
		val := asValue(v)
		if val.Numeric() {
			g.sums[alias] += val.AsFloat64()
			g.counts[alias]++
		}
	case "min":
		val := asValue(v)
		if !val.IsNull() {
			if cur, ok := g.mins[alias]; !ok || types.Less(val, cur) {
				g.mins[alias] = val
			}
		}
	case "max":
		val := asValue(v)
		if !val.IsNull() {
			if cur, ok := g.maxs[alias]; !ok || types.Less(cur, val) {
				g.maxs[alias] = val
			}
		}
	case "collect":
		if !isNullValue(v) {
			g.lists[alias] = append(g.lists[alias], v)
		}
	}
	return nil
}

func (o *Aggregate) Next(ctx *ExecContext) (Row, bool, error) {
	if !o.computed {
		if err := o.compute(ctx); err != nil {
			return nil, false, err
		}
	}
	if o.pos >= len(o.order) {
		return nil, false, nil
	}
	g := o.groups[o.order[o.pos]]
	o.pos++

	out := make(Row, len(o.Items))
	for _, item := range o.Items {
		if item.Call == nil {
			out[item.Alias] = g.keyRow[aggKeyNameFor(o.GroupBy, item.Key)]
			continue
		}
		switch item.Call.Name {
		case "count":
			out[item.Alias] = types.Int(g.counts[item.Alias])
		case "sum":
			out[item.Alias] = types.Float(g.sums[item.Alias])
		case "avg":
			if g.counts[item.Alias] == 0 {
				out[item.Alias] = types.Null
			} else {
				out[item.Alias] = types.Float(g.sums[item.Alias] / float64(g.counts[item.Alias]))
			}
		case "min":
			if v, ok := g.mins[item.Alias]; ok {
				out[item.Alias] = v
			} else {
				out[item.Alias] = types.Null
			}
		case "max":
			if v, ok := g.maxs[item.Alias]; ok {
				out[item.Alias] = v
			} else {
				out[item.Alias] = types.Null
			}
		case "collect":
			out[item.Alias] = append([]any(nil), g.lists[item.Alias]...)
		}
	}
	return out, true, nil
}

func aggKeyNameFor(groupBy []Expr, key Expr) string {
	for i, k := range groupBy {
		if k == key {
			return aggKeyName(i)
		}
	}
	return ""
}

func (o *Aggregate) Describe() string { return "Aggregate" }

// ---------------------------------------------------------------------
// Profile wrapper
// ---------------------------------------------------------------------

type Profiled struct {
	Inner Operator
	Rows  int64
	Nanos int64
}

func (o *Profiled) Reset(ctx *ExecContext) error { return o.Inner.Reset(ctx) }

func (o *Profiled) Next(ctx *ExecContext) (Row, bool, error) {
	start := time.Now()
	row, ok, err := o.Inner.Next(ctx)
	o.Nanos += time.Since(start).Nanoseconds()
	if ok {
		o.Rows++
	}
	return row, ok, err
}

func (o *Profiled) Describe() string { return o.Inner.Describe() }

// ---------------------------------------------------------------------
// Write operators: CreateNodes/Edges, Set, Remove, Delete, Merge
// ---------------------------------------------------------------------

// CreateOp implements the two-phase CREATE clause semantics (§4.5): every
// node in the pattern is created first, then every edge, resolving
// endpoints from the phase-1 variable->id mapping. An edge with an
// unresolved endpoint fails the whole statement before any of its own
// changes (earlier CREATE clauses in the same statement remain visible,
// matching the per-clause write-operator contract of §4.5/§5) are made.
type CreateOp struct {
	Input    Operator // nil for a standalone CREATE with no preceding MATCH
	Patterns []*PatternPath

	emitted bool // tracks the single synthetic row when Input == nil
}

func (o *CreateOp) Reset(ctx *ExecContext) error {
	o.emitted = false
	if o.Input != nil {
		return o.Input.Reset(ctx)
	}
	return nil
}

func (o *CreateOp) Next(ctx *ExecContext) (Row, bool, error) {
	if o.Input == nil {
		if o.emitted {
			return nil, false, nil
		}
		row, err := o.createOnce(ctx, Row{})
		if err != nil {
			return nil, false, err
		}
		o.emitted = true
		return row, true, nil
	}
	in, ok, err := o.Input.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	out, err := o.createOnce(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (o *CreateOp) createOnce(ctx *ExecContext, in Row) (Row, error) {
	out := in.Clone()
	for _, path := range o.Patterns {
		nodeIDs := make([]types.NodeID, len(path.Nodes))
		for i, np := range path.Nodes {
			if np.Variable != "" {
				if existing, ok := out[np.Variable].(NodeRef); ok {
					nodeIDs[i] = existing.ID
					continue
				}
			}
			if ctx.ReserveNode != nil {
				if err := ctx.ReserveNode(); err != nil {
					return nil, err
				}
			}
			props, err := evalPropMap(ctx, out, np.Properties)
			if err != nil {
				return nil, err
			}
			id, err := ctx.Store.CreateNode(np.Labels, props)
			if err != nil {
				return nil, err
			}
			nodeIDs[i] = id
			if np.Variable != "" {
				out[np.Variable] = NodeRef{ID: id}
			}
		}
		for i, rp := range path.Rels {
			src, tgt := nodeIDs[i], nodeIDs[i+1]
			if rp.Direction == DirIn {
				src, tgt = tgt, src
			}
			if !src.Valid() || !tgt.Valid() {
				return nil, samyamaerr.New(samyamaerr.KindIntegrity, "missing_endpoint")
			}
			relType := ""
			if len(rp.Types) > 0 {
				relType = rp.Types[0]
			}
			if ctx.ReserveEdge != nil {
				if err := ctx.ReserveEdge(); err != nil {
					return nil, err
				}
			}
			props, err := evalPropMap(ctx, out, rp.Properties)
			if err != nil {
				return nil, err
			}
			eid, err := ctx.Store.CreateEdge(src, tgt, relType, props)
			if err != nil {
				return nil, err
			}
			if rp.Variable != "" {
				out[rp.Variable] = EdgeRef{ID: eid, Source: src, Target: tgt, Type: relType}
			}
		}
	}
	return out, nil
}

func evalPropMap(ctx *ExecContext, row Row, m map[string]Expr) (map[string]types.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]types.Value, len(m))
	for k, e := range m {
		v, err := Eval(ctx, row, e)
		if err != nil {
			return nil, err
		}
		out[k] = asValue(v)
	}
	return out, nil
}

func (o *CreateOp) Describe() string { return "Create" }

// SetOp applies SET mutations to each input binding.
type SetOp struct {
	Input Operator
	Items []SetItem
}

func (o *SetOp) Reset(ctx *ExecContext) error { return o.Input.Reset(ctx) }

func (o *SetOp) Next(ctx *ExecContext) (Row, bool, error) {
	row, ok, err := o.Input.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	for _, item := range o.Items {
		if err := applySetItem(ctx, row, item); err != nil {
			return nil, false, err
		}
	}
	return row, true, nil
}

func applySetItem(ctx *ExecContext, row Row, item SetItem) error {
	target := row[item.Variable]
	switch item.Kind {
	case SetLabel:
		ref, ok := target.(NodeRef)
		if !ok {
			return samyamaerr.New(samyamaerr.KindSemantic, "SET label target is not a node")
		}
		return ctx.Store.AddLabel(ref.ID, item.Label)
	case SetProperty:
		v, err := Eval(ctx, row, item.Value)
		if err != nil {
			return err
		}
		return setProperty(ctx, target, item.Property, asValue(v))
	case SetMapReplace, SetMapMerge:
		v, err := Eval(ctx, row, item.Value)
		if err != nil {
			return err
		}
		m := asValue(v)
		if m.Kind != types.KindMap {
			return samyamaerr.New(samyamaerr.KindSemantic, "SET = requires a map expression")
		}
		return setPropertyMap(ctx, target, m.Map, item.Kind == SetMapMerge)
	}
	return nil
}

func setProperty(ctx *ExecContext, target any, key string, v types.Value) error {
	switch t := target.(type) {
	case NodeRef:
		return ctx.Store.SetNodeProperty(t.ID, key, v)
	case EdgeRef:
		return ctx.Store.SetEdgeProperty(t.ID, key, v)
	}
	return samyamaerr.New(samyamaerr.KindSemantic, "SET property target is not a node or relationship")
}

func setPropertyMap(ctx *ExecContext, target any, m map[string]types.Value, merge bool) error {
	switch t := target.(type) {
	case NodeRef:
		if !merge {
			n, err := ctx.Store.GetNode(t.ID)
			if err != nil {
				return err
			}
			for k := range n.Properties {
				if _, keep := m[k]; !keep {
					if err := ctx.Store.RemoveNodeProperty(t.ID, k); err != nil {
						return err
					}
				}
			}
		}
		for k, v := range m {
			if err := ctx.Store.SetNodeProperty(t.ID, k, v); err != nil {
				return err
			}
		}
		return nil
	case EdgeRef:
		if !merge {
			e, err := ctx.Store.GetEdge(t.ID)
			if err != nil {
				return err
			}
			for k := range e.Properties {
				if _, keep := m[k]; !keep {
					if err := ctx.Store.RemoveEdgeProperty(t.ID, k); err != nil {
						return err
					}
				}
			}
		}
		for k, v := range m {
			if err := ctx.Store.SetEdgeProperty(t.ID, k, v); err != nil {
				return err
			}
		}
		return nil
	}
	return samyamaerr.New(samyamaerr.KindSemantic, "SET map target is not a node or relationship")
}

func (o *SetOp) Describe() string { return "Set" }

// RemoveOp applies REMOVE mutations.
type RemoveOp struct {
	Input Operator
	Items []RemoveItem
}

func (o *RemoveOp) Reset(ctx *ExecContext) error { return o.Input.Reset(ctx) }

func (o *RemoveOp) Next(ctx *ExecContext) (Row, bool, error) {
	row, ok, err := o.Input.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	for _, item := range o.Items {
		target := row[item.Variable]
		ref, isNode := target.(NodeRef)
		if item.IsLabel {
			if !isNode {
				return nil, false, samyamaerr.New(samyamaerr.KindSemantic, "REMOVE label target is not a node")
			}
			if err := ctx.Store.RemoveLabel(ref.ID, item.Label); err != nil {
				return nil, false, err
			}
			continue
		}
		switch t := target.(type) {
		case NodeRef:
			if err := ctx.Store.RemoveNodeProperty(t.ID, item.Property); err != nil {
				return nil, false, err
			}
		case EdgeRef:
			if err := ctx.Store.RemoveEdgeProperty(t.ID, item.Property); err != nil {
				return nil, false, err
			}
		default:
			return nil, false, samyamaerr.New(samyamaerr.KindSemantic, "REMOVE target is not a node or relationship")
		}
	}
	return row, true, nil
}

func (o *RemoveOp) Describe() string { return "Remove" }

// DeleteOp accumulates target ids across the stream and performs deletion
// after drain, avoiding iterator invalidation (§4.5).
type DeleteOp struct {
	Input   Operator
	Targets []Expr
	Detach  bool

	done bool
	rows []Row
	pos  int
}

func (o *DeleteOp) Reset(ctx *ExecContext) error {
	o.done = false
	o.rows = nil
	o.pos = 0
	return o.Input.Reset(ctx)
}

func (o *DeleteOp) Next(ctx *ExecContext) (Row, bool, error) {
	if !o.done {
		var nodeIDs []types.NodeID
		var edgeIDs []types.EdgeID
		var buffered []Row
		for {
			row, ok, err := o.Input.Next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				break
			}
			buffered = append(buffered, row)
			for _, te := range o.Targets {
				v, err := Eval(ctx, row, te)
				if err != nil {
					return nil, false, err
				}
				switch t := v.(type) {
				case NodeRef:
					nodeIDs = append(nodeIDs, t.ID)
				case EdgeRef:
					edgeIDs = append(edgeIDs, t.ID)
				}
			}
		}
		for _, id := range edgeIDs {
			if err := ctx.Store.DeleteEdge(id); err != nil && samyamaerr.KindOf(err) != samyamaerr.KindIntegrity {
				return nil, false, err
			}
		}
		for _, id := range nodeIDs {
			if err := ctx.Store.DeleteNode(id, o.Detach); err != nil {
				return nil, false, err
			}
		}
		o.rows = buffered
		o.done = true
	}
	if o.pos >= len(o.rows) {
		return nil, false, nil
	}
	row := o.rows[o.pos]
	o.pos++
	return row, true, nil
}

func (o *DeleteOp) Describe() string { return "Delete" }

// MergeOp implements match-then-create-if-empty (§4.5): the MatchPlan is
// tried first; if it yields no rows, CreatePlan runs and the ON CREATE SET
// items apply, otherwise the ON MATCH SET items apply to every matched row.
type MergeOp struct {
	MatchPlan  Operator
	CreatePlan Operator
	OnCreate   []SetItem
	OnMatch    []SetItem

	rows []Row
	pos  int
	done bool
}

func (o *MergeOp) Reset(ctx *ExecContext) error {
	o.rows = nil
	o.pos = 0
	o.done = false
	if err := o.MatchPlan.Reset(ctx); err != nil {
		return err
	}
	return o.CreatePlan.Reset(ctx)
}

func (o *MergeOp) Next(ctx *ExecContext) (Row, bool, error) {
	if !o.done {
		ctx.Store.FlushIndices()
		var matched []Row
		for {
			row, ok, err := o.MatchPlan.Next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				break
			}
			matched = append(matched, row)
		}
		if len(matched) == 0 {
			row, ok, err := o.CreatePlan.Next(ctx)
			if err != nil {
				return nil, false, err
			}
			if ok {
				for _, item := range o.OnCreate {
					if err := applySetItem(ctx, row, item); err != nil {
						return nil, false, err
					}
				}
				matched = []Row{row}
			}
		} else {
			for _, row := range matched {
				for _, item := range o.OnMatch {
					if err := applySetItem(ctx, row, item); err != nil {
						return nil, false, err
					}
				}
			}
		}
		o.rows = matched
		o.done = true
	}
	if o.pos >= len(o.rows) {
		return nil, false, nil
	}
	row := o.rows[o.pos]
	o.pos++
	return row, true, nil
}

func (o *MergeOp) Describe() string { return "Merge" }

// ---------------------------------------------------------------------
// CALL procedure
// ---------------------------------------------------------------------

// Procedure is a built-in CALL target: given evaluated arguments, it
// returns the rows it yields (§4.5, §9 CALL procedures).
type Procedure func(ctx *ExecContext, args []types.Value) ([]Row, error)

// ProcedureRegistry is the fixed set of built-in procedures this core
// supports; anything else is a semantic error at plan time.
var ProcedureRegistry = map[string]Procedure{
	"db.labels":            procDBLabels,
	"db.relationshipTypes": procDBRelationshipTypes,
	"db.indexes":           procDBIndexes,
	"db.stats":             procDBStats,
	"apoc.meta.stats":      procApocMetaStats,
	"apoc.schema.nodes":    procApocSchemaNodes,
}

func procDBLabels(ctx *ExecContext, _ []types.Value) ([]Row, error) {
	// The symbol table has no enumeration API beyond Name-by-id, so the
	// label list is derived from the labels carried by the nodes currently
	// in the store.
	var out []Row
	for _, name := range distinctLabelNames(ctx) {
		out = append(out, Row{"label": types.Str(name)})
	}
	return out, nil
}

func procDBRelationshipTypes(ctx *ExecContext, _ []types.Value) ([]Row, error) {
	var out []Row
	for _, name := range distinctEdgeTypeNames(ctx) {
		out = append(out, Row{"relationshipType": types.Str(name)})
	}
	return out, nil
}

func procDBIndexes(ctx *ExecContext, _ []types.Value) ([]Row, error) {
	var out []Row
	for _, idx := range ctx.Store.Indexes() {
		out = append(out, Row{
			"label":    types.Str(idx.Label),
			"property": types.Str(idx.Prop),
		})
	}
	return out, nil
}

func procDBStats(ctx *ExecContext, _ []types.Value) ([]Row, error) {
	return []Row{{
		"nodeCount": types.Int(ctx.Store.NodeCount()),
		"edgeCount": types.Int(ctx.Store.EdgeCount()),
	}}, nil
}

// procApocMetaStats returns one row describing the tenant's whole schema,
// grounded on the teacher's apoc/meta.Stats but against live store state
// instead of the teacher's hardcoded zero-value stub.
func procApocMetaStats(ctx *ExecContext, _ []types.Value) ([]Row, error) {
	labels := distinctLabelNames(ctx)
	relTypes := distinctEdgeTypeNames(ctx)
	return []Row{{
		"labelCount":   types.Int(int64(len(labels))),
		"relTypeCount": types.Int(int64(len(relTypes))),
		"nodeCount":    types.Int(ctx.Store.NodeCount()),
		"relCount":     types.Int(ctx.Store.EdgeCount()),
		"indexCount":   types.Int(int64(len(ctx.Store.Indexes()))),
	}}, nil
}

// procApocSchemaNodes returns one row per indexed (label, property) pair,
// grounded on the teacher's apoc/schema package's node-constraint listing.
func procApocSchemaNodes(ctx *ExecContext, _ []types.Value) ([]Row, error) {
	var out []Row
	for _, idx := range ctx.Store.Indexes() {
		out = append(out, Row{
			"label":    types.Str(idx.Label),
			"property": types.Str(idx.Prop),
			"type":     types.Str("INDEX"),
		})
	}
	return out, nil
}

func distinctLabelNames(ctx *ExecContext) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ctx.Store.AllNodeIDs() {
		n, err := ctx.Store.GetNode(id)
		if err != nil {
			continue
		}
		for _, sym := range n.Labels {
			name := ctx.Store.Symbols.Name(sym)
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func distinctEdgeTypeNames(ctx *ExecContext) []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range ctx.Store.AllEdgeIDs() {
		e, err := ctx.Store.GetEdge(id)
		if err != nil {
			continue
		}
		name := ctx.Store.Symbols.Name(e.Type)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

type CallOp struct {
	Proc  Procedure
	Args  []Expr
	Yield []string

	rows []Row
	pos  int
	done bool
}

func (o *CallOp) Reset(ctx *ExecContext) error {
	o.rows = nil
	o.pos = 0
	o.done = false
	return nil
}

func (o *CallOp) Next(ctx *ExecContext) (Row, bool, error) {
	if !o.done {
		args := make([]types.Value, len(o.Args))
		for i, a := range o.Args {
			v, err := Eval(ctx, Row{}, a)
			if err != nil {
				return nil, false, err
			}
			args[i] = asValue(v)
		}
		rows, err := o.Proc(ctx, args)
		if err != nil {
			return nil, false, err
		}
		o.rows = rows
		o.done = true
	}
	if o.pos >= len(o.rows) {
		return nil, false, nil
	}
	row := o.rows[o.pos]
	o.pos++
	if len(o.Yield) > 0 {
		filtered := make(Row, len(o.Yield))
		for _, y := range o.Yield {
			filtered[y] = row[y]
		}
		return filtered, true, nil
	}
	return row, true, nil
}

func (o *CallOp) Describe() string { return "Call" }

// NullInput is a single-row source used to plan a standalone RETURN (no
// preceding clauses) as a Project over one synthetic empty row.
type NullInput struct{ emitted bool }

func (o *NullInput) Reset(ctx *ExecContext) error { o.emitted = false; return nil }
func (o *NullInput) Next(ctx *ExecContext) (Row, bool, error) {
	if o.emitted {
		return nil, false, nil
	}
	o.emitted = true
	return Row{}, true, nil
}
func (o *NullInput) Describe() string { return "NullInput" }
