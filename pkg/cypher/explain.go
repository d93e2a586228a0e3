package cypher

import "strings"

// Explain renders an operator tree as an indented, one-line-per-operator
// plan (§6 EXPLAIN), walking each operator's child field(s) and printing
// its own Describe() text at the matching depth.
func Explain(root Operator) string {
	var b strings.Builder
	explainNode(&b, root, 0)
	return b.String()
}

func explainNode(b *strings.Builder, op Operator, depth int) {
	if op == nil {
		return
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(op.Describe())
	b.WriteByte('\n')

	switch o := op.(type) {
	case *Expand:
		explainNode(b, o.Input, depth+1)
	case *Filter:
		explainNode(b, o.Input, depth+1)
	case *Project:
		explainNode(b, o.Input, depth+1)
	case *Distinct:
		explainNode(b, o.Input, depth+1)
	case *Sort:
		explainNode(b, o.Input, depth+1)
	case *SkipLimit:
		explainNode(b, o.Input, depth+1)
	case *Unwind:
		explainNode(b, o.Input, depth+1)
	case *Aggregate:
		explainNode(b, o.Input, depth+1)
	case *Union:
		explainNode(b, o.Left, depth+1)
		explainNode(b, o.Right, depth+1)
	case *Join:
		explainNode(b, o.Left, depth+1)
		explainNode(b, o.Right, depth+1)
	case *SemiJoin:
		explainNode(b, o.Left, depth+1)
	case *CreateOp:
		explainNode(b, o.Input, depth+1)
	case *SetOp:
		explainNode(b, o.Input, depth+1)
	case *RemoveOp:
		explainNode(b, o.Input, depth+1)
	case *DeleteOp:
		explainNode(b, o.Input, depth+1)
	case *MergeOp:
		explainNode(b, o.MatchPlan, depth+1)
		explainNode(b, o.CreatePlan, depth+1)
	case *Profiled:
		explainNode(b, o.Inner, depth+1)
	case *correlate:
		explainNode(b, o.Inner, depth+1)
	}
}

// ProfileStats pairs an operator's Describe text with the row count and
// elapsed time a Profiled wrapper around it observed (§6 PROFILE).
type ProfileStats struct {
	Describe string
	Rows     int64
	Nanos    int64
}

// profileWrap recursively substitutes a Profiled wrapper around every
// operator in the tree so PROFILE can report per-operator row counts and
// timings, not just the root's.
func profileWrap(op Operator) Operator {
	if op == nil {
		return nil
	}
	switch o := op.(type) {
	case *Expand:
		o.Input = profileWrap(o.Input)
	case *Filter:
		o.Input = profileWrap(o.Input)
	case *Project:
		o.Input = profileWrap(o.Input)
	case *Distinct:
		o.Input = profileWrap(o.Input)
	case *Sort:
		o.Input = profileWrap(o.Input)
	case *SkipLimit:
		o.Input = profileWrap(o.Input)
	case *Unwind:
		o.Input = profileWrap(o.Input)
	case *Aggregate:
		o.Input = profileWrap(o.Input)
	case *Union:
		o.Left = profileWrap(o.Left)
		o.Right = profileWrap(o.Right)
	case *Join:
		o.Left = profileWrap(o.Left)
		o.Right = profileWrap(o.Right)
	case *SemiJoin:
		o.Left = profileWrap(o.Left)
	case *CreateOp:
		o.Input = profileWrap(o.Input)
	case *SetOp:
		o.Input = profileWrap(o.Input)
	case *RemoveOp:
		o.Input = profileWrap(o.Input)
	case *DeleteOp:
		o.Input = profileWrap(o.Input)
	case *MergeOp:
		o.MatchPlan = profileWrap(o.MatchPlan)
		o.CreatePlan = profileWrap(o.CreatePlan)
	}
	return &Profiled{Inner: op}
}

// CollectProfile wraps root with profileWrap, drains it, and returns the
// per-operator stats gathered along the way, in the same top-to-bottom
// order Explain would print them.
func CollectProfile(ctx *ExecContext, root Operator) ([]Row, []ProfileStats, error) {
	wrapped := profileWrap(root)
	if err := wrapped.Reset(ctx); err != nil {
		return nil, nil, err
	}
	var rows []Row
	for {
		row, ok, err := wrapped.Next(ctx)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	var stats []ProfileStats
	collectProfileStats(wrapped, &stats)
	return rows, stats, nil
}

func collectProfileStats(op Operator, out *[]ProfileStats) {
	p, ok := op.(*Profiled)
	if !ok {
		return
	}
	*out = append(*out, ProfileStats{Describe: p.Inner.Describe(), Rows: p.Rows, Nanos: p.Nanos})
	switch o := p.Inner.(type) {
	case *Expand:
		collectProfileStats(o.Input, out)
	case *Filter:
		collectProfileStats(o.Input, out)
	case *Project:
		collectProfileStats(o.Input, out)
	case *Distinct:
		collectProfileStats(o.Input, out)
	case *Sort:
		collectProfileStats(o.Input, out)
	case *SkipLimit:
		collectProfileStats(o.Input, out)
	case *Unwind:
		collectProfileStats(o.Input, out)
	case *Aggregate:
		collectProfileStats(o.Input, out)
	case *Union:
		collectProfileStats(o.Left, out)
		collectProfileStats(o.Right, out)
	case *Join:
		collectProfileStats(o.Left, out)
		collectProfileStats(o.Right, out)
	case *SemiJoin:
		collectProfileStats(o.Left, out)
	case *CreateOp:
		collectProfileStats(o.Input, out)
	case *SetOp:
		collectProfileStats(o.Input, out)
	case *RemoveOp:
		collectProfileStats(o.Input, out)
	case *DeleteOp:
		collectProfileStats(o.Input, out)
	case *MergeOp:
		collectProfileStats(o.MatchPlan, out)
		collectProfileStats(o.CreatePlan, out)
	}
}
