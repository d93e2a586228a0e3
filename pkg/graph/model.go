// Package graph implements the in-memory property-graph store (§3, §4.1):
// node/edge containers, label and property indices, adjacency lists,
// cardinality statistics, and the async secondary-index pipeline (§4.2)
// that keeps property indices eventually consistent with the primary
// containers.
//
// One Store instance is owned by exactly one tenant (§4.7); nothing in this
// package is aware of tenants itself — the engine package wires a Store per
// tenant record.
package graph

import (
	"time"

	"github.com/samyama/samyama/pkg/types"
)

// Node is the in-memory representation of a graph vertex (§3).
type Node struct {
	ID         types.NodeID
	Labels     []types.Symbol
	Properties map[string]types.Value
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasLabel reports whether the node carries the given label symbol.
func (n *Node) HasLabel(sym types.Symbol) bool {
	for _, l := range n.Labels {
		if l == sym {
			return true
		}
	}
	return false
}

// Clone returns a deep-enough copy safe to hand to a caller outside the
// write guard: labels slice and properties map are both copied so the
// caller cannot mutate the store's own state through the returned value.
func (n *Node) Clone() *Node {
	labels := make([]types.Symbol, len(n.Labels))
	copy(labels, n.Labels)
	props := make(map[string]types.Value, len(n.Properties))
	for k, v := range n.Properties {
		props[k] = v
	}
	return &Node{ID: n.ID, Labels: labels, Properties: props, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
}

// Edge is the in-memory representation of a directed graph relationship
// (§3). Self-loops (Source == Target) are permitted.
type Edge struct {
	ID         types.EdgeID
	Source     types.NodeID
	Target     types.NodeID
	Type       types.Symbol
	Properties map[string]types.Value
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone returns a defensive copy, as Node.Clone does.
func (e *Edge) Clone() *Edge {
	props := make(map[string]types.Value, len(e.Properties))
	for k, v := range e.Properties {
		props[k] = v
	}
	return &Edge{ID: e.ID, Source: e.Source, Target: e.Target, Type: e.Type, Properties: props, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

// AdjItem is one entry in a node's adjacency list: the edge id, the node on
// the other side, and the edge's type — everything Expand needs without
// re-resolving the edge container (§4.5 Expand).
type AdjItem struct {
	Edge  types.EdgeID
	Other types.NodeID
	Type  types.Symbol
}

// Stats holds the cardinality statistics the planner's cost model consults
// (§4.4): per-label node counts, per-edge-type counts, and a coarse
// per-(label,property) selectivity estimate. Kept eventually consistent
// with the containers (§I5) — exact after FlushIndices drains the pipeline.
type Stats struct {
	LabelCount    map[types.Symbol]int64
	EdgeTypeCount map[types.Symbol]int64
	// PropertyDistinctCount records an indexed (label, property) pair's
	// distinct-value count as of CreateIndex; it is not updated
	// afterwards, and PropertySelectivity reads the live index instead.
	PropertyDistinctCount map[propertyStatKey]int64
}

type propertyStatKey struct {
	Label types.Symbol
	Prop  string
}

func newStats() *Stats {
	return &Stats{
		LabelCount:            make(map[types.Symbol]int64),
		EdgeTypeCount:         make(map[types.Symbol]int64),
		PropertyDistinctCount: make(map[propertyStatKey]int64),
	}
}
