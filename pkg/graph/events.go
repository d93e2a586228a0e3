package graph

import (
	"github.com/samyama/samyama/pkg/types"
)

// EventKind tags the mutation event variants of §4.2.
type EventKind uint8

const (
	EventNodeCreated EventKind = iota
	EventNodeDeleted
	EventEdgeCreated
	EventEdgeDeleted
	EventPropertyUpdated
	EventPropertyRemoved
	EventLabelAdded
	EventLabelRemoved
	// EventEdgePropertyUpdated and EventEdgePropertyRemoved exist only for
	// MutationListener (durability, §4.6) — edges carry no secondary
	// index (§3), so applyIndexEvent never sees these and they are never
	// enqueued on the pipeline.
	EventEdgePropertyUpdated
	EventEdgePropertyRemoved
	// eventBarrier is FlushIndices' synchronization point: the worker
	// closes done once every event queued ahead of the barrier has been
	// applied.
	eventBarrier
)

// OnNode carries enough information for the index worker to maintain
// node-related secondary indices without re-reading the node — though it
// may still do so for properties not captured in the event, e.g. a label
// add needs the node's current property map to populate per-label property
// indices for properties that predate the label.
type OnNode struct {
	ID     types.NodeID
	Labels []types.Symbol // full label set at the time of the event
}

// OnEdge mirrors OnNode for edge-type indices (currently unused by the
// property index, which is node-only per §3, but kept symmetric for
// extension — e.g. a future edge-property index).
type OnEdge struct {
	ID     types.EdgeID
	Type   types.Symbol
	Source types.NodeID
	Target types.NodeID
}

// OnProperty carries a property mutation on a node.
type OnProperty struct {
	Node   types.NodeID
	Labels []types.Symbol
	Key    string
	Old    types.Value // zero Value with IsNull()==true if there was no prior value
	New    types.Value // zero Value with IsNull()==true for a removal
}

// OnEdgeProperty carries a property mutation on an edge, for
// MutationListener only (see EventEdgePropertyUpdated).
type OnEdgeProperty struct {
	Edge types.EdgeID
	Key  string
	New  types.Value
}

// OnLabel carries a label add/remove on a node.
type OnLabel struct {
	Node  types.NodeID
	Label types.Symbol
	// Properties is the node's current property map, needed to populate
	// or depopulate per-label property indices when the label set changes.
	Properties map[string]types.Value
}

// Event is one mutation event flowing through the async index pipeline.
// Exactly one of the payload fields is populated, selected by Kind.
type Event struct {
	Kind EventKind

	Node         OnNode
	Edge         OnEdge
	Property     OnProperty
	Label        OnLabel
	EdgeProperty OnEdgeProperty

	done chan struct{}
}
