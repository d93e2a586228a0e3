package graph

import (
	"github.com/samyama/samyama/pkg/types"
)

// RestoreNode installs a node at exactly id, bypassing id allocation and
// the mutation listener, for use only during snapshot load and WAL replay
// (§4.6). It still enqueues one NodeCreated event per node so registered
// property indices pick the node up. The caller is responsible for
// calling RestoreIDWatermarks afterward so the id allocator never reissues
// a restored id, and for calling FlushIndices once replay completes so
// property indices have caught up with every restored node.
func (s *Store) RestoreNode(id types.NodeID, labelNames []string, properties map[string]types.Value, node *Node) {
	syms := make([]types.Symbol, 0, len(labelNames))
	for _, l := range labelNames {
		syms = append(syms, s.Symbols.Intern(l))
	}
	if properties == nil {
		properties = make(map[string]types.Value)
	}
	n := &Node{ID: id, Labels: syms, Properties: properties}
	if node != nil {
		n.CreatedAt = node.CreatedAt
		n.UpdatedAt = node.UpdatedAt
	}

	s.nodesMu.Lock()
	s.nodes[id] = n
	s.nodesMu.Unlock()

	s.labelMu.Lock()
	for _, sym := range syms {
		set, ok := s.labelIndex[sym]
		if !ok {
			set = make(map[types.NodeID]struct{})
			s.labelIndex[sym] = set
		}
		set[id] = struct{}{}
	}
	s.labelMu.Unlock()

	s.statsMu.Lock()
	for _, sym := range syms {
		s.stats.LabelCount[sym]++
	}
	s.statsMu.Unlock()

	s.pipeline.enqueue(&Event{Kind: EventNodeCreated, Node: OnNode{ID: id, Labels: syms}})
}

// RestoreEdge installs an edge at exactly id, updating adjacency lists
// directly. Endpoints are assumed already restored; replay order (nodes
// before edges) guarantees this.
func (s *Store) RestoreEdge(id types.EdgeID, source, target types.NodeID, edgeType string, properties map[string]types.Value, edge *Edge) {
	sym := s.Symbols.Intern(edgeType)
	if properties == nil {
		properties = make(map[string]types.Value)
	}
	e := &Edge{ID: id, Source: source, Target: target, Type: sym, Properties: properties}
	if edge != nil {
		e.CreatedAt = edge.CreatedAt
		e.UpdatedAt = edge.UpdatedAt
	}

	s.edgesMu.Lock()
	s.edges[id] = e
	s.edgesMu.Unlock()

	s.adjMu.Lock()
	s.outAdj[source] = append(s.outAdj[source], AdjItem{Edge: id, Other: target, Type: sym})
	s.inAdj[target] = append(s.inAdj[target], AdjItem{Edge: id, Other: source, Type: sym})
	s.adjMu.Unlock()

	s.statsMu.Lock()
	s.stats.EdgeTypeCount[sym]++
	s.statsMu.Unlock()
}

// RestoreIDWatermarks advances the node and edge id allocators so that
// future CreateNode/CreateEdge calls never reissue a restored id.
func (s *Store) RestoreIDWatermarks(lastNodeID types.NodeID, lastEdgeID types.EdgeID) {
	s.nodeIDs.Restore(uint64(lastNodeID))
	s.edgeIDs.Restore(uint64(lastEdgeID))
}

// RestoreIndex re-registers a property index without the synchronous
// backfill CreateIndex performs, since replay order already populates the
// index via each RestoreNode's enqueued event.
func (s *Store) RestoreIndex(label, prop string) {
	sym := s.Symbols.Intern(label)
	key := propIndexKey{Label: sym, Prop: prop}
	s.propMu.Lock()
	defer s.propMu.Unlock()
	if _, ok := s.propIndexes[key]; ok {
		return
	}
	s.propIndexes[key] = NewPropertyIndex()
}
