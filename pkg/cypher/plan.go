package cypher

import (
	"github.com/samyama/samyama/pkg/graph"
	"github.com/samyama/samyama/pkg/samyamaerr"
	"github.com/samyama/samyama/pkg/types"
)

// Plan is a single-pass AST -> Operator lowering (§4.4). It is built fresh
// per query against a specific Store so that index-scan substitution can
// consult the store's registered indices. Cardinality statistics are not
// consulted.
type Plan struct {
	Store  *graph.Store
	Params map[string]types.Value

	// MaxVLPathHops caps variable-length Expand operators this Plan
	// builds (§6 max_vl_path_hops). Zero means "use Expand's own
	// built-in default".
	MaxVLPathHops int
}

// PlanResult is what Build returns: the root operator plus metadata for
// EXPLAIN/PROFILE rendering.
type PlanResult struct {
	Root    Operator
	Explain bool
	Profile bool
}

// Build lowers a parsed Query into an operator tree.
func (p *Plan) Build(q *Query) (*PlanResult, error) {
	var root Operator
	for i, part := range q.Parts {
		op, err := p.buildSinglePart(part)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			root = op
			continue
		}
		all := q.UnionAll[i-1]
		root = &Union{Left: root, Right: op, All: all}
	}
	return &PlanResult{Root: root, Explain: q.Explain, Profile: q.Profile}, nil
}

func (p *Plan) buildSinglePart(part *SinglePartQuery) (Operator, error) {
	var cur Operator
	bound := map[string]bool{}

	for _, clause := range part.Clauses {
		var err error
		cur, err = p.buildClause(cur, bound, clause)
		if err != nil {
			return nil, err
		}
	}

	if part.Return != nil {
		return p.buildReturn(cur, bound, part.Return)
	}
	if cur == nil {
		cur = &NullInput{}
	}
	return cur, nil
}

func (p *Plan) buildClause(cur Operator, bound map[string]bool, clause Clause) (Operator, error) {
	switch c := clause.(type) {
	case *MatchClause:
		return p.buildMatch(cur, bound, c)
	case *CreateClause:
		return p.buildCreate(cur, bound, c)
	case *SetClause:
		return &SetOp{Input: requireInput(cur), Items: c.Items}, nil
	case *RemoveClause:
		return &RemoveOp{Input: requireInput(cur), Items: c.Items}, nil
	case *DeleteClause:
		return &DeleteOp{Input: requireInput(cur), Targets: c.Expressions, Detach: c.Detach}, nil
	case *MergeClause:
		return p.buildMerge(cur, bound, c)
	case *WithClause:
		return p.buildWith(cur, bound, c)
	case *UnwindClause:
		op := &Unwind{Input: requireInput(cur), List: c.List, As: c.As}
		bound[c.As] = true
		return op, nil
	case *CallClause:
		return p.buildCall(c)
	}
	return nil, samyamaerr.New(samyamaerr.KindInternal, "unhandled clause type")
}

func requireInput(cur Operator) Operator {
	if cur == nil {
		return &NullInput{}
	}
	return cur
}

// ---------------------------------------------------------------------
// MATCH (and the pattern-lowering shared with CREATE/MERGE)
// ---------------------------------------------------------------------

func (p *Plan) buildMatch(cur Operator, bound map[string]bool, c *MatchClause) (Operator, error) {
	// preClauseBound is a snapshot of every variable already in scope
	// before this MATCH clause runs — used to compute shared-variable
	// joins against both prior patterns within this clause and the
	// preceding clause, without a pattern's own freshly bound vars being
	// mistaken for ones it shares with something earlier.
	preClauseBound := copyBoundSet(bound)

	var patternOp Operator
	for i, path := range c.Patterns {
		preBound := copyBoundSet(bound)
		op, err := p.buildPattern(bound, path)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			patternOp = op
			continue
		}
		shared := sharedBoundVars(path, preBound)
		patternOp = &Join{Left: patternOp, Right: op, SharedVars: shared}
	}

	if c.Where != nil {
		if ex, ok := c.Where.(*ExistsExpr); ok {
			patternOp = &SemiJoin{Left: patternOp, BuildRight: p.compileExists(ex)}
		} else {
			patternOp = pushdownFilter(patternOp, c.Where)
		}
	}

	if cur == nil {
		return patternOp, nil
	}

	shared := boundVarsOf(preClauseBound)
	if c.Optional {
		return &Join{Left: cur, Right: patternOp, SharedVars: shared, LeftOuter: true}, nil
	}
	return &Join{Left: cur, Right: patternOp, SharedVars: shared}, nil
}

func copyBoundSet(bound map[string]bool) map[string]bool {
	out := make(map[string]bool, len(bound))
	for k, v := range bound {
		out[k] = v
	}
	return out
}

// buildPattern lowers one MATCH/CREATE/MERGE pattern path into a
// LabelScan/IndexScan anchor chained through Expand operators (§4.4),
// registering every variable it binds into `bound`.
func (p *Plan) buildPattern(bound map[string]bool, path *PatternPath) (Operator, error) {
	anchorIdx := 0
	for i, n := range path.Nodes {
		if len(n.Labels) > 0 {
			anchorIdx = i
			break
		}
	}
	anchor := path.Nodes[anchorIdx]
	anchorVar := anchor.Variable
	if anchorVar == "" {
		anchorVar = syntheticVar(anchorIdx)
	}

	var op Operator
	if len(anchor.Labels) == 0 {
		op = &allNodesScan{Variable: anchorVar}
	} else {
		op = p.buildAnchorScan(anchorVar, anchor.Labels[0], anchor.Properties)
	}
	if len(anchor.Properties) > 0 {
		op = &Filter{Input: op, Pred: propertyEqualsAll(anchorVar, anchor.Properties)}
	}
	bound[anchorVar] = true

	// expand rightward from the anchor
	for i := anchorIdx; i < len(path.Rels); i++ {
		rel := path.Rels[i]
		toNode := path.Nodes[i+1]
		toVar := toNode.Variable
		if toVar == "" {
			toVar = syntheticVar(i + 1)
		}
		fromVar := path.Nodes[i].Variable
		if fromVar == "" {
			fromVar = syntheticVar(i)
		}
		op = &Expand{
			Input: op, FromVar: fromVar, EdgeVar: rel.Variable, ToVar: toVar,
			Types: rel.Types, Direction: rel.Direction,
			VarLength: rel.VarLength, MinHops: rel.MinHops, MaxHops: rel.MaxHops,
			MaxVLHops: p.MaxVLPathHops,
		}
		if len(toNode.Labels) > 0 {
			op = &Filter{Input: op, Pred: hasLabelExpr(toVar, toNode.Labels[0])}
		}
		if len(toNode.Properties) > 0 {
			op = &Filter{Input: op, Pred: propertyEqualsAll(toVar, toNode.Properties)}
		}
		if rel.Variable != "" {
			bound[rel.Variable] = true
		}
		bound[toVar] = true
	}

	// expand leftward from the anchor
	for i := anchorIdx - 1; i >= 0; i-- {
		rel := path.Rels[i]
		toNode := path.Nodes[i]
		toVar := toNode.Variable
		if toVar == "" {
			toVar = syntheticVar(i)
		}
		fromVar := path.Nodes[i+1].Variable
		if fromVar == "" {
			fromVar = syntheticVar(i + 1)
		}
		reversed := reverseDirection(rel.Direction)
		op = &Expand{
			Input: op, FromVar: fromVar, EdgeVar: rel.Variable, ToVar: toVar,
			Types: rel.Types, Direction: reversed,
			VarLength: rel.VarLength, MinHops: rel.MinHops, MaxHops: rel.MaxHops,
			MaxVLHops: p.MaxVLPathHops,
		}
		if len(toNode.Labels) > 0 {
			op = &Filter{Input: op, Pred: hasLabelExpr(toVar, toNode.Labels[0])}
		}
		if len(toNode.Properties) > 0 {
			op = &Filter{Input: op, Pred: propertyEqualsAll(toVar, toNode.Properties)}
		}
		if rel.Variable != "" {
			bound[rel.Variable] = true
		}
		bound[toVar] = true
	}

	return op, nil
}

func reverseDirection(d RelDirection) RelDirection {
	switch d {
	case DirOut:
		return DirIn
	case DirIn:
		return DirOut
	default:
		return DirEither
	}
}

func syntheticVar(i int) string { return "__n" + string(rune('0'+i)) }

// buildAnchorScan implements index-scan substitution (§4.4): if the anchor
// carries a literal-valued property predicate and an index exists on
// (label, prop), the anchor becomes an IndexScan instead of a LabelScan.
func (p *Plan) buildAnchorScan(variable, label string, props map[string]Expr) Operator {
	for prop, expr := range props {
		if lit, ok := literalValue(expr); ok && p.Store.HasIndex(label, prop) {
			v := lit
			return &IndexScan{Variable: variable, Label: label, Prop: prop, Eq: &v}
		}
	}
	return &LabelScan{Variable: variable, Label: label}
}

func literalValue(e Expr) (types.Value, bool) {
	switch l := e.(type) {
	case *LitInt:
		return types.Int(l.Value), true
	case *LitFloat:
		return types.Float(l.Value), true
	case *LitString:
		return types.Str(l.Value), true
	case *LitBool:
		return types.Bool(l.Value), true
	}
	return types.Null, false
}

func propertyEqualsAll(variable string, props map[string]Expr) Expr {
	var combined Expr
	for prop, valExpr := range props {
		eq := &BinaryOp{Op: "=", Left: &PropAccess{Target: &VarRef{Name: variable}, Prop: prop}, Right: valExpr}
		if combined == nil {
			combined = eq
		} else {
			combined = &BinaryOp{Op: "AND", Left: combined, Right: eq}
		}
	}
	return combined
}

func hasLabelExpr(variable, label string) Expr {
	return &FuncCall{Name: "__hasLabel", Args: []Expr{&VarRef{Name: variable}, &LitString{Value: label}}}
}

// allNodesScan backs an unlabeled node pattern `()`; it is rare in
// practice (most queries anchor on a label) but must still be supported.
type allNodesScan struct {
	Variable string
	ids      []types.NodeID
	pos      int
}

func (o *allNodesScan) Reset(ctx *ExecContext) error {
	o.ids = ctx.Store.AllNodeIDs()
	o.pos = 0
	return nil
}
func (o *allNodesScan) Next(ctx *ExecContext) (Row, bool, error) {
	if o.ids == nil && o.pos == 0 {
		if err := o.Reset(ctx); err != nil {
			return nil, false, err
		}
	}
	if o.pos >= len(o.ids) {
		return nil, false, nil
	}
	id := o.ids[o.pos]
	o.pos++
	return Row{o.Variable: NodeRef{ID: id}}, true, nil
}
func (o *allNodesScan) Describe() string { return "AllNodesScan(" + o.Variable + ")" }

func boundVarsOf(bound map[string]bool) []string {
	out := make([]string, 0, len(bound))
	for k := range bound {
		out = append(out, k)
	}
	return out
}

func sharedBoundVars(path *PatternPath, bound map[string]bool) []string {
	var out []string
	for _, n := range path.Nodes {
		if n.Variable != "" && bound[n.Variable] {
			out = append(out, n.Variable)
		}
	}
	return out
}

// pushdownFilter attaches pred, whole, as one Filter directly above the
// pattern operator. The predicate is not split into conjuncts, and WHERE
// conjuncts never drive index-scan substitution: only literal-valued
// properties written inline in the anchor's node pattern do (see
// buildAnchorScan).
func pushdownFilter(op Operator, pred Expr) Operator {
	return &Filter{Input: op, Pred: pred}
}

// ---------------------------------------------------------------------
// CREATE
// ---------------------------------------------------------------------

func (p *Plan) buildCreate(cur Operator, bound map[string]bool, c *CreateClause) (Operator, error) {
	for _, path := range c.Patterns {
		bindPatternVars(bound, path)
	}
	return &CreateOp{Input: cur, Patterns: c.Patterns}, nil
}

func bindPatternVars(bound map[string]bool, path *PatternPath) {
	for _, n := range path.Nodes {
		if n.Variable != "" {
			bound[n.Variable] = true
		}
	}
	for _, r := range path.Rels {
		if r.Variable != "" {
			bound[r.Variable] = true
		}
	}
}

// ---------------------------------------------------------------------
// MERGE
// ---------------------------------------------------------------------

func (p *Plan) buildMerge(cur Operator, bound map[string]bool, c *MergeClause) (Operator, error) {
	preClauseBound := copyBoundSet(bound)
	matchBound := map[string]bool{}
	matchOp, err := p.buildPattern(matchBound, c.Pattern)
	if err != nil {
		return nil, err
	}
	createOp := &CreateOp{Patterns: []*PatternPath{c.Pattern}}
	bindPatternVars(bound, c.Pattern)

	merge := &MergeOp{MatchPlan: matchOp, CreatePlan: createOp, OnCreate: c.OnCreate, OnMatch: c.OnMatch}
	if cur == nil {
		return merge, nil
	}
	// Shared vars are whatever this MERGE's own pattern variables happen
	// to re-bind from before the clause (e.g. MATCH (a) MERGE (a)-[:X]->(b));
	// anything the pattern introduces fresh is not shared.
	shared := sharedBoundVars(c.Pattern, preClauseBound)
	return &Join{Left: cur, Right: merge, SharedVars: shared}, nil
}

// ---------------------------------------------------------------------
// WITH
// ---------------------------------------------------------------------

func (p *Plan) buildWith(cur Operator, bound map[string]bool, c *WithClause) (Operator, error) {
	op, newBound, err := p.buildProjection(cur, c.Items, c.Distinct, c.OrderBy, c.Skip, c.Limit)
	if err != nil {
		return nil, err
	}
	if c.Where != nil {
		op = &Filter{Input: op, Pred: c.Where}
	}
	// WITH resets scope: drop every previously bound name not re-projected.
	for k := range bound {
		delete(bound, k)
	}
	for k := range newBound {
		bound[k] = true
	}
	return op, nil
}

// ---------------------------------------------------------------------
// RETURN
// ---------------------------------------------------------------------

func (p *Plan) buildReturn(cur Operator, bound map[string]bool, r *ReturnClause) (Operator, error) {
	op, _, err := p.buildProjection(cur, r.Items, r.Distinct, r.OrderBy, r.Skip, r.Limit)
	return op, err
}

// buildProjection is shared by WITH and RETURN: it decides whether an
// Aggregate operator is needed (any item contains an aggregate call),
// applies it, then Project/Distinct/Sort/Skip-Limit in the fixed pipeline
// order RETURN/WITH specify.
func (p *Plan) buildProjection(cur Operator, items []ReturnItem, distinct bool, orderBy []OrderItem, skip, limit Expr) (Operator, map[string]bool, error) {
	cur = requireInput(cur)
	newBound := map[string]bool{}

	hasAgg := false
	for _, it := range items {
		if it.Expr != nil && containsAggregate(it.Expr) {
			hasAgg = true
		}
	}

	if hasAgg {
		var aggItems []AggregateItem
		var groupBy []Expr
		for _, it := range items {
			if it.Star {
				continue
			}
			alias := itemAlias(it)
			if fc, ok := isAggregateCall(it.Expr); ok {
				aggItems = append(aggItems, AggregateItem{Alias: alias, Call: fc})
			} else {
				groupBy = append(groupBy, it.Expr)
				aggItems = append(aggItems, AggregateItem{Alias: alias, Key: it.Expr})
			}
			newBound[alias] = true
		}
		cur = &Aggregate{Input: cur, GroupBy: groupBy, Items: aggItems}
	} else {
		var projItems []ProjectItem
		for _, it := range items {
			if it.Star {
				continue
			}
			alias := itemAlias(it)
			projItems = append(projItems, ProjectItem{Expr: it.Expr, Alias: alias})
			newBound[alias] = true
		}
		cur = &Project{Input: cur, Items: projItems}
	}

	if distinct {
		cur = &Distinct{Input: cur}
	}
	if len(orderBy) > 0 {
		keys := make([]SortKey, len(orderBy))
		for i, ob := range orderBy {
			keys[i] = SortKey{Expr: ob.Expr, Descending: ob.Descending}
		}
		cur = &Sort{Input: cur, Keys: keys}
	}
	if skip != nil || limit != nil {
		sk, lim := int64(0), int64(-1)
		if skip != nil {
			if v, ok := p.constIntValue(skip); ok {
				sk = v
			}
		}
		if limit != nil {
			if v, ok := p.constIntValue(limit); ok {
				lim = v
			}
		}
		cur = &SkipLimit{Input: cur, Skip: sk, Limit: lim}
	}
	return cur, newBound, nil
}

// constIntValue resolves a SKIP/LIMIT expression to an integer known at
// plan time: either a literal or a query parameter, both of which are
// fixed for the lifetime of this Plan (parameters don't vary row to row
// the way a WHERE predicate does, so there's no need to defer this to a
// runtime operator the way ordinary expressions are).
func (p *Plan) constIntValue(e Expr) (int64, bool) {
	if lit, ok := literalValue(e); ok {
		return lit.I, true
	}
	if pr, ok := e.(*Param); ok {
		if v, ok := p.Params[pr.Name]; ok {
			return v.I, true
		}
	}
	return 0, false
}

func itemAlias(it ReturnItem) string {
	if it.Alias != "" {
		return it.Alias
	}
	if vr, ok := it.Expr.(*VarRef); ok {
		return vr.Name
	}
	return exprText(it.Expr)
}

// exprText renders a best-effort display name for an unaliased, non-
// variable RETURN expression, mirroring how Cypher echoes the source text
// of an expression as its default column name.
func exprText(e Expr) string {
	switch x := e.(type) {
	case *PropAccess:
		return exprText(x.Target) + "." + x.Prop
	case *FuncCall:
		return x.Name + "(...)"
	case *LitInt:
		return "literal"
	default:
		return "expr"
	}
}

// ---------------------------------------------------------------------
// CALL
// ---------------------------------------------------------------------

func (p *Plan) buildCall(c *CallClause) (Operator, error) {
	proc, ok := ProcedureRegistry[c.Procedure]
	if !ok {
		return nil, samyamaerr.New(samyamaerr.KindSemantic, "unknown procedure "+c.Procedure)
	}
	return &CallOp{Proc: proc, Args: c.Args, Yield: c.Yield}, nil
}

// ---------------------------------------------------------------------
// EXISTS subquery compilation
// ---------------------------------------------------------------------

// compileExists lowers an ExistsExpr into a SemiJoin-driving closure;
// buildMatch uses it when a MATCH's whole WHERE predicate is an EXISTS
// subquery. An EXISTS nested inside a larger expression (NOT EXISTS
// included) is not compiled and fails when Eval reaches it.
func (p *Plan) compileExists(e *ExistsExpr) func(ctx *ExecContext, left Row) (Operator, error) {
	return func(ctx *ExecContext, left Row) (Operator, error) {
		bound := map[string]bool{}
		op, err := p.buildPattern(bound, e.Pattern)
		if err != nil {
			return nil, err
		}
		// The sub-pattern scans from its own anchor; correlate keeps only
		// the rows whose shared variables match the left row's bindings.
		op = &correlate{Inner: op, Outer: left}
		if e.Where != nil {
			op = &Filter{Input: op, Pred: e.Where}
		}
		return op, nil
	}
}

// correlate rewrites each row the inner operator produces by overlaying
// the outer row's bindings, dropping inner rows that bind a shared
// variable to a different value than the outer row, implementing the
// correlation an EXISTS subquery needs without re-planning a join.
type correlate struct {
	Inner Operator
	Outer Row
}

func (o *correlate) Reset(ctx *ExecContext) error { return o.Inner.Reset(ctx) }
func (o *correlate) Next(ctx *ExecContext) (Row, bool, error) {
next:
	for {
		row, ok, err := o.Inner.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		out := row.Clone()
		for k, v := range o.Outer {
			if cur, exists := out[k]; !exists {
				out[k] = v
			} else if rowValueKey(cur) != rowValueKey(v) {
				continue next
			}
		}
		return out, true, nil
	}
}
func (o *correlate) Describe() string { return "Correlate" }
