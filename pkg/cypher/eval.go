package cypher

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/samyama/samyama/pkg/graph"
	"github.com/samyama/samyama/pkg/samyamaerr"
	"github.com/samyama/samyama/pkg/types"
)

// NodeRef and EdgeRef are the late-materialized references operators pass
// between each other (§4.5): a scan/expand never clones the underlying
// entity, only carries its identity, and property access resolves through
// the store on demand. Equality and hashing compare by id only.
type NodeRef struct{ ID types.NodeID }
type EdgeRef struct {
	ID             types.EdgeID
	Source, Target types.NodeID
	Type           string
}

// Row is one record flowing through the operator tree: a set of named
// slots, one per variable in scope. Values are types.Value, NodeRef,
// EdgeRef, []any (lists, including collect() results), or nil.
type Row map[string]any

// Clone returns a shallow copy safe to mutate (e.g. Project assigning new
// slots) without affecting the row the upstream operator still holds.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func rowValueKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x00null"
	case NodeRef:
		return fmt.Sprintf("\x01%d", x.ID)
	case EdgeRef:
		return fmt.Sprintf("\x02%d", x.ID)
	case types.Value:
		return "\x03" + x.HashKey()
	case []any:
		var sb strings.Builder
		sb.WriteByte(4)
		for _, e := range x {
			sb.WriteString(rowValueKey(e))
			sb.WriteByte(',')
		}
		return sb.String()
	default:
		return fmt.Sprintf("\x05%v", x)
	}
}

// rowKey hashes the given variables of a row for DISTINCT/Join/GROUP BY.
func rowKey(row Row, vars []string) string {
	var sb strings.Builder
	for _, v := range vars {
		sb.WriteString(rowValueKey(row[v]))
		sb.WriteByte('|')
	}
	return sb.String()
}

// ExecContext is threaded through every operator pull: the store to
// resolve properties against, bound query parameters, and the deadline
// enforcing the tenant's max_query_time (§4.7, §5).
type ExecContext struct {
	Store    *graph.Store
	Params   map[string]types.Value
	Deadline func() error // returns samyamaerr query_timeout once the deadline has passed
	Profile  bool
	stats    map[Operator]*profileStats

	// ReserveNode and ReserveEdge, if set, are consulted by CreateOp
	// immediately before it creates a node or edge, enforcing the
	// tenant's node/edge quotas (§4.7) without this package depending on
	// pkg/tenant — the same external-hook shape as Deadline.
	ReserveNode func() error
	ReserveEdge func() error
}

type profileStats struct {
	Rows    int64
	Elapsed int64 // nanoseconds, filled in by the Profile wrapper
}

func (ec *ExecContext) checkDeadline() error {
	if ec.Deadline == nil {
		return nil
	}
	return ec.Deadline()
}

// ---------------------------------------------------------------------
// Expression evaluation
// ---------------------------------------------------------------------

// Eval evaluates expr against row using ctx for property resolution and
// parameter binding. Three-valued logic: callers that need WHERE's
// null-drops-the-row semantics check IsNull() on boolean results
// themselves (see Filter).
func Eval(ctx *ExecContext, row Row, expr Expr) (any, error) {
	switch e := expr.(type) {
	case *LitNull:
		return types.Null, nil
	case *LitBool:
		return types.Bool(e.Value), nil
	case *LitInt:
		return types.Int(e.Value), nil
	case *LitFloat:
		return types.Float(e.Value), nil
	case *LitString:
		return types.Str(e.Value), nil
	case *LitList:
		out := make([]any, len(e.Items))
		for i, item := range e.Items {
			v, err := Eval(ctx, row, item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *LitMap:
		out := make(map[string]types.Value, len(e.Entries))
		for k, sub := range e.Entries {
			v, err := Eval(ctx, row, sub)
			if err != nil {
				return nil, err
			}
			out[k] = asValue(v)
		}
		return types.Map(out), nil
	case *Param:
		v, ok := ctx.Params[e.Name]
		if !ok {
			return nil, samyamaerr.New(samyamaerr.KindSemantic, "unbound parameter $"+e.Name)
		}
		return v, nil
	case *VarRef:
		v, ok := row[e.Name]
		if !ok {
			return nil, samyamaerr.New(samyamaerr.KindSemantic, "unbound variable "+e.Name)
		}
		return v, nil
	case *PropAccess:
		target, err := Eval(ctx, row, e.Target)
		if err != nil {
			return nil, err
		}
		return resolveProperty(ctx, target, e.Prop)
	case *ListIndex:
		target, err := Eval(ctx, row, e.Target)
		if err != nil {
			return nil, err
		}
		idxV, err := Eval(ctx, row, e.Index)
		if err != nil {
			return nil, err
		}
		return listIndex(target, asValue(idxV))
	case *ListSlice:
		target, err := Eval(ctx, row, e.Target)
		if err != nil {
			return nil, err
		}
		var from, to *int64
		if e.From != nil {
			v, err := Eval(ctx, row, e.From)
			if err != nil {
				return nil, err
			}
			f := asValue(v).I
			from = &f
		}
		if e.To != nil {
			v, err := Eval(ctx, row, e.To)
			if err != nil {
				return nil, err
			}
			t := asValue(v).I
			to = &t
		}
		return listSlice(target, from, to)
	case *UnaryOp:
		return evalUnary(ctx, row, e)
	case *BinaryOp:
		return evalBinary(ctx, row, e)
	case *IsNullCheck:
		v, err := Eval(ctx, row, e.Operand)
		if err != nil {
			return nil, err
		}
		isNull := isNullValue(v)
		if e.Negate {
			return types.Bool(!isNull), nil
		}
		return types.Bool(isNull), nil
	case *CaseExpr:
		return evalCase(ctx, row, e)
	case *FuncCall:
		return callScalarFunc(ctx, row, e)
	case *ExistsExpr:
		return nil, samyamaerr.New(samyamaerr.KindInternal, "ExistsExpr must be compiled by the planner into a semi-join, not evaluated directly")
	}
	return nil, samyamaerr.New(samyamaerr.KindInternal, fmt.Sprintf("eval: unhandled expression %T", expr))
}

func isNullValue(v any) bool {
	if v == nil {
		return true
	}
	if val, ok := v.(types.Value); ok {
		return val.IsNull()
	}
	return false
}

// asValue coerces an evaluator result (NodeRef/EdgeRef/[]any included) into
// a types.Value, used where a plain scalar is required (map literal entries,
// list index arguments, arithmetic operands).
func asValue(v any) types.Value {
	switch x := v.(type) {
	case types.Value:
		return x
	case []any:
		out := make([]types.Value, len(x))
		for i, e := range x {
			out[i] = asValue(e)
		}
		return types.List(out)
	case nil:
		return types.Null
	default:
		return types.Null
	}
}

func resolveProperty(ctx *ExecContext, target any, prop string) (any, error) {
	switch t := target.(type) {
	case NodeRef:
		n, err := ctx.Store.GetNode(t.ID)
		if err != nil {
			return nil, err
		}
		v, ok := n.Properties[prop]
		if !ok {
			return types.Null, nil
		}
		return v, nil
	case EdgeRef:
		e, err := ctx.Store.GetEdge(t.ID)
		if err != nil {
			return nil, err
		}
		v, ok := e.Properties[prop]
		if !ok {
			return types.Null, nil
		}
		return v, nil
	case types.Value:
		if t.Kind == types.KindMap {
			v, ok := t.Map[prop]
			if !ok {
				return types.Null, nil
			}
			return v, nil
		}
		if t.IsNull() {
			return types.Null, nil
		}
		return nil, samyamaerr.New(samyamaerr.KindSemantic, "property access on non-entity, non-map value")
	case nil:
		return types.Null, nil
	}
	return nil, samyamaerr.New(samyamaerr.KindSemantic, fmt.Sprintf("property access on unsupported value %T", target))
}

func listIndex(target any, idx types.Value) (any, error) {
	lst, ok := target.([]any)
	if !ok {
		v := asValue(target)
		if v.Kind != types.KindList {
			return types.Null, nil
		}
		lst = make([]any, len(v.List))
		for i, e := range v.List {
			lst[i] = e
		}
	}
	i := idx.I
	if i < 0 {
		i += int64(len(lst))
	}
	if i < 0 || i >= int64(len(lst)) {
		return types.Null, nil
	}
	return lst[i], nil
}

func listSlice(target any, from, to *int64) (any, error) {
	var lst []any
	switch t := target.(type) {
	case []any:
		lst = t
	default:
		v := asValue(target)
		if v.Kind != types.KindList {
			return types.Null, nil
		}
		lst = make([]any, len(v.List))
		for i, e := range v.List {
			lst[i] = e
		}
	}
	n := int64(len(lst))
	start, end := int64(0), n
	if from != nil {
		start = *from
		if start < 0 {
			start += n
		}
	}
	if to != nil {
		end = *to
		if end < 0 {
			end += n
		}
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start >= end {
		return []any{}, nil
	}
	return append([]any(nil), lst[start:end]...), nil
}

func evalUnary(ctx *ExecContext, row Row, e *UnaryOp) (any, error) {
	v, err := Eval(ctx, row, e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "-":
		val := asValue(v)
		if val.IsNull() {
			return types.Null, nil
		}
		if val.Kind == types.KindInt {
			return types.Int(-val.I), nil
		}
		return types.Float(-val.AsFloat64()), nil
	case "NOT":
		if isNullValue(v) {
			return types.Null, nil
		}
		b, known := asValue(v).Truthy()
		if !known {
			return nil, samyamaerr.New(samyamaerr.KindSemantic, "NOT applied to non-boolean")
		}
		return types.Bool(!b), nil
	}
	return nil, samyamaerr.New(samyamaerr.KindInternal, "unknown unary operator "+e.Op)
}

func evalBinary(ctx *ExecContext, row Row, e *BinaryOp) (any, error) {
	// AND/OR implement Kleene three-valued logic, short-circuiting on the
	// determining operand before evaluating (or erroring on) the other.
	switch e.Op {
	case "AND":
		return evalAnd(ctx, row, e.Left, e.Right)
	case "OR":
		return evalOr(ctx, row, e.Left, e.Right)
	case "XOR":
		l, err := Eval(ctx, row, e.Left)
		if err != nil {
			return nil, err
		}
		r, err := Eval(ctx, row, e.Right)
		if err != nil {
			return nil, err
		}
		if isNullValue(l) || isNullValue(r) {
			return types.Null, nil
		}
		lb, _ := asValue(l).Truthy()
		rb, _ := asValue(r).Truthy()
		return types.Bool(lb != rb), nil
	}

	l, err := Eval(ctx, row, e.Left)
	if err != nil {
		return nil, err
	}
	r, err := Eval(ctx, row, e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "+", "-", "*", "/", "%":
		return evalArith(e.Op, l, r)
	case "=", "<>", "<", "<=", ">", ">=":
		return evalCompare(e.Op, l, r)
	case "IN":
		return evalIn(l, r)
	case "STARTS WITH", "ENDS WITH", "CONTAINS":
		return evalStringPred(e.Op, l, r)
	}
	return nil, samyamaerr.New(samyamaerr.KindInternal, "unknown binary operator "+e.Op)
}

func evalAnd(ctx *ExecContext, row Row, leftExpr, rightExpr Expr) (any, error) {
	l, err := Eval(ctx, row, leftExpr)
	if err != nil {
		return nil, err
	}
	if !isNullValue(l) {
		if b, _ := asValue(l).Truthy(); !b {
			return types.Bool(false), nil
		}
	}
	r, err := Eval(ctx, row, rightExpr)
	if err != nil {
		return nil, err
	}
	if !isNullValue(r) {
		if b, _ := asValue(r).Truthy(); !b {
			return types.Bool(false), nil
		}
	}
	if isNullValue(l) || isNullValue(r) {
		return types.Null, nil
	}
	return types.Bool(true), nil
}

func evalOr(ctx *ExecContext, row Row, leftExpr, rightExpr Expr) (any, error) {
	l, err := Eval(ctx, row, leftExpr)
	if err != nil {
		return nil, err
	}
	if !isNullValue(l) {
		if b, _ := asValue(l).Truthy(); b {
			return types.Bool(true), nil
		}
	}
	r, err := Eval(ctx, row, rightExpr)
	if err != nil {
		return nil, err
	}
	if !isNullValue(r) {
		if b, _ := asValue(r).Truthy(); b {
			return types.Bool(true), nil
		}
	}
	if isNullValue(l) || isNullValue(r) {
		return types.Null, nil
	}
	return types.Bool(false), nil
}

func evalArith(op string, lv, rv any) (any, error) {
	l, r := asValue(lv), asValue(rv)
	if op == "+" && l.Kind == types.KindString && r.Kind == types.KindString {
		return types.Str(l.S + r.S), nil
	}
	if op == "+" && (l.Kind == types.KindList || r.Kind == types.KindList) {
		return types.List(append(append([]types.Value(nil), l.List...), r.List...)), nil
	}
	if l.IsNull() || r.IsNull() {
		return types.Null, nil
	}
	if !l.Numeric() || !r.Numeric() {
		return nil, samyamaerr.New(samyamaerr.KindSemantic, "arithmetic on non-numeric operand")
	}
	bothInt := l.Kind == types.KindInt && r.Kind == types.KindInt
	switch op {
	case "+":
		if bothInt {
			return types.Int(l.I + r.I), nil
		}
		return types.Float(l.AsFloat64() + r.AsFloat64()), nil
	case "-":
		if bothInt {
			return types.Int(l.I - r.I), nil
		}
		return types.Float(l.AsFloat64() - r.AsFloat64()), nil
	case "*":
		if bothInt {
			return types.Int(l.I * r.I), nil
		}
		return types.Float(l.AsFloat64() * r.AsFloat64()), nil
	case "/":
		if bothInt {
			if r.I == 0 {
				return nil, samyamaerr.New(samyamaerr.KindSemantic, "division by zero")
			}
			return types.Int(l.I / r.I), nil
		}
		return types.Float(l.AsFloat64() / r.AsFloat64()), nil
	case "%":
		if bothInt {
			if r.I == 0 {
				return nil, samyamaerr.New(samyamaerr.KindSemantic, "division by zero")
			}
			return types.Int(l.I % r.I), nil
		}
		lf, rf := l.AsFloat64(), r.AsFloat64()
		return types.Float(lf - rf*float64(int64(lf/rf))), nil
	}
	return nil, samyamaerr.New(samyamaerr.KindInternal, "unknown arithmetic operator "+op)
}

func evalCompare(op string, lv, rv any) (any, error) {
	l, r := asValue(lv), asValue(rv)
	if l.IsNull() || r.IsNull() {
		return types.Null, nil
	}
	cmp, ok := types.Compare(l, r)
	if !ok {
		if op == "=" {
			return types.Bool(false), nil
		}
		if op == "<>" {
			return types.Bool(true), nil
		}
		return types.Null, nil
	}
	switch op {
	case "=":
		return types.Bool(cmp == 0), nil
	case "<>":
		return types.Bool(cmp != 0), nil
	case "<":
		return types.Bool(cmp < 0), nil
	case "<=":
		return types.Bool(cmp <= 0), nil
	case ">":
		return types.Bool(cmp > 0), nil
	case ">=":
		return types.Bool(cmp >= 0), nil
	}
	return nil, samyamaerr.New(samyamaerr.KindInternal, "unknown comparison operator "+op)
}

func evalIn(lv, rv any) (any, error) {
	l := asValue(lv)
	var list []types.Value
	switch r := rv.(type) {
	case []any:
		for _, e := range r {
			list = append(list, asValue(e))
		}
	default:
		rval := asValue(rv)
		if rval.IsNull() {
			return types.Null, nil
		}
		if rval.Kind != types.KindList {
			return nil, samyamaerr.New(samyamaerr.KindSemantic, "IN requires a list operand")
		}
		list = rval.List
	}
	if l.IsNull() {
		return types.Null, nil
	}
	sawNull := false
	for _, e := range list {
		if e.IsNull() {
			sawNull = true
			continue
		}
		if types.Equal(l, e) {
			return types.Bool(true), nil
		}
	}
	if sawNull {
		return types.Null, nil
	}
	return types.Bool(false), nil
}

func evalStringPred(op string, lv, rv any) (any, error) {
	l, r := asValue(lv), asValue(rv)
	if l.IsNull() || r.IsNull() {
		return types.Null, nil
	}
	if l.Kind != types.KindString || r.Kind != types.KindString {
		return nil, samyamaerr.New(samyamaerr.KindSemantic, op+" requires string operands")
	}
	switch op {
	case "STARTS WITH":
		return types.Bool(strings.HasPrefix(l.S, r.S)), nil
	case "ENDS WITH":
		return types.Bool(strings.HasSuffix(l.S, r.S)), nil
	case "CONTAINS":
		return types.Bool(strings.Contains(l.S, r.S)), nil
	}
	return nil, samyamaerr.New(samyamaerr.KindInternal, "unknown string predicate "+op)
}

func evalCase(ctx *ExecContext, row Row, e *CaseExpr) (any, error) {
	if e.Test != nil {
		testVal, err := Eval(ctx, row, e.Test)
		if err != nil {
			return nil, err
		}
		tv := asValue(testVal)
		for _, w := range e.Whens {
			wv, err := Eval(ctx, row, w.Cond)
			if err != nil {
				return nil, err
			}
			if types.Equal(tv, asValue(wv)) {
				return Eval(ctx, row, w.Then)
			}
		}
	} else {
		for _, w := range e.Whens {
			cv, err := Eval(ctx, row, w.Cond)
			if err != nil {
				return nil, err
			}
			if isNullValue(cv) {
				continue
			}
			if b, known := asValue(cv).Truthy(); known && b {
				return Eval(ctx, row, w.Then)
			}
		}
	}
	if e.Else != nil {
		return Eval(ctx, row, e.Else)
	}
	return types.Null, nil
}

// ---------------------------------------------------------------------
// Built-in scalar functions (non-aggregate; aggregates are handled by the
// Aggregate operator directly since they need the whole group).
// ---------------------------------------------------------------------

func callScalarFunc(ctx *ExecContext, row Row, call *FuncCall) (any, error) {
	args := make([]any, len(call.Args))
	for i, a := range call.Args {
		v, err := Eval(ctx, row, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch call.Name {
	case "size":
		switch a := args[0].(type) {
		case []any:
			return types.Int(int64(len(a))), nil
		default:
			v := asValue(a)
			if v.Kind == types.KindList {
				return types.Int(int64(len(v.List))), nil
			}
			if v.Kind == types.KindString {
				return types.Int(int64(len(v.S))), nil
			}
			return types.Null, nil
		}
	case "labels":
		ref, ok := args[0].(NodeRef)
		if !ok {
			return types.Null, nil
		}
		n, err := ctx.Store.GetNode(ref.ID)
		if err != nil {
			return nil, err
		}
		out := make([]types.Value, len(n.Labels))
		for i, sym := range n.Labels {
			out[i] = types.Str(ctx.Store.Symbols.Name(sym))
		}
		return out2any(out), nil
	case "__hasLabel":
		ref, ok := args[0].(NodeRef)
		if !ok {
			return types.Bool(false), nil
		}
		want := asValue(args[1]).S
		n, err := ctx.Store.GetNode(ref.ID)
		if err != nil {
			return nil, err
		}
		for _, sym := range n.Labels {
			if ctx.Store.Symbols.Name(sym) == want {
				return types.Bool(true), nil
			}
		}
		return types.Bool(false), nil
	case "type":
		ref, ok := args[0].(EdgeRef)
		if !ok {
			return types.Null, nil
		}
		return types.Str(ref.Type), nil
	case "id":
		switch a := args[0].(type) {
		case NodeRef:
			return types.Int(int64(a.ID)), nil
		case EdgeRef:
			return types.Int(int64(a.ID)), nil
		}
		return types.Null, nil
	case "keys":
		var props map[string]types.Value
		switch a := args[0].(type) {
		case NodeRef:
			n, err := ctx.Store.GetNode(a.ID)
			if err != nil {
				return nil, err
			}
			props = n.Properties
		case EdgeRef:
			e, err := ctx.Store.GetEdge(a.ID)
			if err != nil {
				return nil, err
			}
			props = e.Properties
		case types.Value:
			if a.Kind == types.KindMap {
				props = a.Map
			}
		}
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]types.Value, len(keys))
		for i, k := range keys {
			out[i] = types.Str(k)
		}
		return out2any(out), nil
	case "coalesce":
		for _, a := range args {
			if !isNullValue(a) {
				return a, nil
			}
		}
		return types.Null, nil
	case "tointeger", "toint":
		v := asValue(args[0])
		switch v.Kind {
		case types.KindInt:
			return v, nil
		case types.KindFloat:
			return types.Int(int64(v.F)), nil
		case types.KindString:
			var n int64
			if _, err := fmt.Sscanf(v.S, "%d", &n); err != nil {
				return types.Null, nil
			}
			return types.Int(n), nil
		}
		return types.Null, nil
	case "tofloat":
		v := asValue(args[0])
		switch v.Kind {
		case types.KindFloat:
			return v, nil
		case types.KindInt:
			return types.Float(float64(v.I)), nil
		case types.KindString:
			var f float64
			if _, err := fmt.Sscanf(v.S, "%g", &f); err != nil {
				return types.Null, nil
			}
			return types.Float(f), nil
		}
		return types.Null, nil
	case "tostring":
		v := asValue(args[0])
		if v.IsNull() {
			return types.Null, nil
		}
		return types.Str(valueToDisplayString(v)), nil
	case "abs":
		v := asValue(args[0])
		if v.Kind == types.KindInt {
			if v.I < 0 {
				return types.Int(-v.I), nil
			}
			return v, nil
		}
		if v.F < 0 {
			return types.Float(-v.F), nil
		}
		return v, nil

	// apoc.coll.* — list aggregates, grounded on the teacher's apoc/coll
	// package but built against types.Value instead of interface{}.
	case "apoc.coll.sum":
		var sum float64
		for _, item := range asValue(args[0]).List {
			switch item.Kind {
			case types.KindInt:
				sum += float64(item.I)
			case types.KindFloat:
				sum += item.F
			}
		}
		return types.Float(sum), nil
	case "apoc.coll.avg":
		var sum float64
		var n int
		for _, item := range asValue(args[0]).List {
			switch item.Kind {
			case types.KindInt:
				sum += float64(item.I)
				n++
			case types.KindFloat:
				sum += item.F
				n++
			}
		}
		if n == 0 {
			return types.Float(0), nil
		}
		return types.Float(sum / float64(n)), nil
	case "apoc.coll.min":
		list := asValue(args[0]).List
		if len(list) == 0 {
			return types.Null, nil
		}
		min := list[0]
		for _, item := range list[1:] {
			if types.Less(item, min) {
				min = item
			}
		}
		return min, nil
	case "apoc.coll.max":
		list := asValue(args[0]).List
		if len(list) == 0 {
			return types.Null, nil
		}
		max := list[0]
		for _, item := range list[1:] {
			if types.Less(max, item) {
				max = item
			}
		}
		return max, nil

	// apoc.text.* — string helpers, grounded on the teacher's apoc/text
	// package.
	case "apoc.text.join":
		list := asValue(args[0]).List
		sep := asValue(args[1]).S
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = valueToDisplayString(item)
		}
		return types.Str(strings.Join(parts, sep)), nil
	case "apoc.text.split":
		text := asValue(args[0]).S
		delim := asValue(args[1]).S
		var parts []string
		if delim == "" {
			parts = []string{text}
		} else {
			parts = strings.Split(text, delim)
		}
		out := make([]types.Value, len(parts))
		for i, p := range parts {
			out[i] = types.Str(p)
		}
		return out2any(out), nil
	case "apoc.text.replace":
		text := asValue(args[0]).S
		old := asValue(args[1]).S
		replacement := asValue(args[2]).S
		return types.Str(strings.ReplaceAll(text, old, replacement)), nil
	case "apoc.text.capitalize":
		text := asValue(args[0]).S
		if text == "" {
			return types.Str(text), nil
		}
		r := []rune(text)
		r[0] = unicode.ToUpper(r[0])
		return types.Str(string(r)), nil
	}
	return nil, samyamaerr.New(samyamaerr.KindSemantic, "unknown function "+call.Name)
}

func out2any(vs []types.Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func valueToDisplayString(v types.Value) string {
	switch v.Kind {
	case types.KindString:
		return v.S
	case types.KindInt:
		return fmt.Sprintf("%d", v.I)
	case types.KindFloat:
		return fmt.Sprintf("%g", v.F)
	case types.KindBool:
		return fmt.Sprintf("%t", v.B)
	default:
		return fmt.Sprintf("%v", v.Native())
	}
}

// aggregateFuncNames identifies FuncCall names the Aggregate operator
// handles itself rather than callScalarFunc.
var aggregateFuncNames = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true, "collect": true,
}

func isAggregateCall(e Expr) (*FuncCall, bool) {
	fc, ok := e.(*FuncCall)
	if !ok {
		return nil, false
	}
	return fc, aggregateFuncNames[fc.Name]
}

// containsAggregate reports whether expr contains an aggregate function
// call anywhere in its tree (used by the planner to decide whether a
// RETURN/WITH clause needs an Aggregate operator at all).
func containsAggregate(expr Expr) bool {
	found := false
	walkExpr(expr, func(e Expr) {
		if _, ok := isAggregateCall(e); ok {
			found = true
		}
	})
	return found
}

func walkExpr(expr Expr, visit func(Expr)) {
	if expr == nil {
		return
	}
	visit(expr)
	switch e := expr.(type) {
	case *LitList:
		for _, i := range e.Items {
			walkExpr(i, visit)
		}
	case *LitMap:
		for _, v := range e.Entries {
			walkExpr(v, visit)
		}
	case *PropAccess:
		walkExpr(e.Target, visit)
	case *ListIndex:
		walkExpr(e.Target, visit)
		walkExpr(e.Index, visit)
	case *ListSlice:
		walkExpr(e.Target, visit)
		walkExpr(e.From, visit)
		walkExpr(e.To, visit)
	case *BinaryOp:
		walkExpr(e.Left, visit)
		walkExpr(e.Right, visit)
	case *UnaryOp:
		walkExpr(e.Operand, visit)
	case *IsNullCheck:
		walkExpr(e.Operand, visit)
	case *CaseExpr:
		walkExpr(e.Test, visit)
		for _, w := range e.Whens {
			walkExpr(w.Cond, visit)
			walkExpr(w.Then, visit)
		}
		walkExpr(e.Else, visit)
	case *FuncCall:
		for _, a := range e.Args {
			walkExpr(a, visit)
		}
	case *ExistsExpr:
		walkExpr(e.Where, visit)
	}
}
