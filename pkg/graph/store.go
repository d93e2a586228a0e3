package graph

import (
	"sync"
	"time"

	"github.com/samyama/samyama/pkg/samyamaerr"
	"github.com/samyama/samyama/pkg/types"
)

type propIndexKey struct {
	Label types.Symbol
	Prop  string
}

// Store is one tenant's entire graph: node/edge containers, adjacency
// lists, label and property indices, and cardinality statistics (§3). It
// exclusively owns all of this state (§3 Ownership) — operators borrow it
// through a Guard (pkg/concurrency) acquired by the caller, never take
// their own lock at the statement level.
//
// Store's own fields (nodesMu, edgesMu, propMu) protect only the raw map
// data structures against the narrow race between a foreground write (which
// the caller's Guard already serializes against other writes and reads)
// and the background index-pipeline worker, which runs without holding the
// Guard at all (§4.2). They are not a substitute for the Guard's
// statement-level discipline.
type Store struct {
	Symbols *types.SymbolTable

	nodeIDs *types.IDAllocator
	edgeIDs *types.IDAllocator

	nodesMu sync.RWMutex
	nodes   map[types.NodeID]*Node

	edgesMu sync.RWMutex
	edges   map[types.EdgeID]*Edge

	labelMu    sync.RWMutex
	labelIndex map[types.Symbol]map[types.NodeID]struct{}

	adjMu  sync.RWMutex
	outAdj map[types.NodeID][]AdjItem
	inAdj  map[types.NodeID][]AdjItem

	propMu      sync.RWMutex
	propIndexes map[propIndexKey]*PropertyIndex

	statsMu sync.RWMutex
	stats   *Stats

	pipeline *pipeline

	mutationListener MutationListener
}

// MutationListener receives a synchronous callback after every successful
// primitive mutation, carrying the same Event shape the async index
// pipeline consumes. The durability layer (pkg/persist) installs one to
// append a WAL record before the mutating call returns, so a crash right
// after never loses a committed write (§4.6). Unlike pipeline.enqueue,
// this call happens on the caller's goroutine, in line, before the method
// returns — callers that need fsync-before-ack durability rely on that.
// The listener's error, if non-nil, aborts the mutation's caller with it
// (§7: a persistence error during write is fatal to the statement) — a
// WAL append failure must stop the in-memory state and the durable log
// from diverging, so it cannot be swallowed as fire-and-forget.
type MutationListener func(Event) error

// SetMutationListener installs fn as this Store's mutation listener,
// replacing any previous one. Pass nil to detach.
func (s *Store) SetMutationListener(fn MutationListener) {
	s.mutationListener = fn
}

func (s *Store) notifyMutation(ev Event) error {
	if s.mutationListener != nil {
		return s.mutationListener(ev)
	}
	return nil
}

// Options configures a new Store.
type Options struct {
	// IndexQueueCapacity bounds the async index pipeline (§6
	// index_queue_capacity); writers block once it is full.
	IndexQueueCapacity int
}

// New returns an empty Store and starts its index pipeline worker.
func New(opts Options) *Store {
	s := &Store{
		Symbols:     types.NewSymbolTable(),
		nodeIDs:     types.NewIDAllocator(),
		edgeIDs:     types.NewIDAllocator(),
		nodes:       make(map[types.NodeID]*Node),
		edges:       make(map[types.EdgeID]*Edge),
		labelIndex:  make(map[types.Symbol]map[types.NodeID]struct{}),
		outAdj:      make(map[types.NodeID][]AdjItem),
		inAdj:       make(map[types.NodeID][]AdjItem),
		propIndexes: make(map[propIndexKey]*PropertyIndex),
		stats:       newStats(),
	}
	s.pipeline = newPipeline(opts.IndexQueueCapacity)
	go s.pipeline.run(s)
	return s
}

// Close stops the index pipeline worker, draining any queued events first.
func (s *Store) Close() {
	s.pipeline.close()
}

// FlushIndices blocks until every mutation enqueued so far has had its
// secondary indices applied (§4.2, §8 P3).
func (s *Store) FlushIndices() {
	s.pipeline.flush()
}

// ---------------------------------------------------------------------
// Node operations (§4.1)
// ---------------------------------------------------------------------

// CreateNode allocates a node id, writes the node, updates the label index
// synchronously, and enqueues a NodeCreated event for secondary (property)
// index maintenance.
func (s *Store) CreateNode(labels []string, properties map[string]types.Value) (types.NodeID, error) {
	id := types.NodeID(s.nodeIDs.Next())
	syms := make([]types.Symbol, 0, len(labels))
	seen := make(map[types.Symbol]struct{}, len(labels))
	for _, l := range labels {
		sym := s.Symbols.Intern(l)
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		syms = append(syms, sym)
	}
	if properties == nil {
		properties = make(map[string]types.Value)
	}

	now := time.Now().UTC()
	node := &Node{ID: id, Labels: syms, Properties: properties, CreatedAt: now, UpdatedAt: now}

	s.nodesMu.Lock()
	s.nodes[id] = node
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

	ev := Event{Kind: EventNodeCreated, Node: OnNode{ID: id, Labels: syms}}
	s.pipeline.enqueue(&ev)
	if err := s.notifyMutation(Event{Kind: EventNodeCreated, Node: OnNode{ID: id, Labels: syms}}); err != nil {
		return id, err
	}
	return id, nil
}

// GetNode returns a defensive copy of the node, or samyamaerr.KindIntegrity
// if it does not exist.
func (s *Store) GetNode(id types.NodeID) (*Node, error) {
	s.nodesMu.RLock()
	defer s.nodesMu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, samyamaerr.New(samyamaerr.KindIntegrity, "no such node")
	}
	return n.Clone(), nil
}

// NodesByLabel returns a copy of the node id set carrying label (§I3, §4.1
// nodes_by_label). Always consistent — the label index is maintained
// synchronously.
func (s *Store) NodesByLabel(label string) []types.NodeID {
	sym, ok := s.Symbols.Lookup(label)
	if !ok {
		return nil
	}
	s.labelMu.RLock()
	defer s.labelMu.RUnlock()
	set := s.labelIndex[sym]
	out := make([]types.NodeID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// LabelCardinality returns the planner's cardinality estimate for a label
// scan (§4.4).
func (s *Store) LabelCardinality(label string) int64 {
	sym, ok := s.Symbols.Lookup(label)
	if !ok {
		return 0
	}
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats.LabelCount[sym]
}

// DeleteNode removes a node. If detach is false and the node has any
// incident edges, returns samyamaerr.KindIntegrity (node_has_edges). If
// detach is true, every incident edge is deleted first (§3 Lifecycle).
func (s *Store) DeleteNode(id types.NodeID, detach bool) error {
	s.nodesMu.RLock()
	node, ok := s.nodes[id]
	s.nodesMu.RUnlock()
	if !ok {
		return samyamaerr.New(samyamaerr.KindIntegrity, "no such node")
	}

	out, in := s.adjacencySnapshot(id)
	if len(out)+len(in) > 0 {
		if !detach {
			return samyamaerr.New(samyamaerr.KindIntegrity, "node_has_edges")
		}
		seen := make(map[types.EdgeID]struct{}, len(out)+len(in))
		for _, a := range out {
			seen[a.Edge] = struct{}{}
		}
		for _, a := range in {
			seen[a.Edge] = struct{}{}
		}
		for eid := range seen {
			if err := s.DeleteEdge(eid); err != nil {
				return err
			}
		}
	}

	labels := append([]types.Symbol(nil), node.Labels...)

	s.nodesMu.Lock()
	delete(s.nodes, id)
	s.nodesMu.Unlock()

	s.labelMu.Lock()
	for _, sym := range labels {
		if set, ok := s.labelIndex[sym]; ok {
			delete(set, id)
		}
	}
	s.labelMu.Unlock()

	s.statsMu.Lock()
	for _, sym := range labels {
		if s.stats.LabelCount[sym] > 0 {
			s.stats.LabelCount[sym]--
		}
	}
	s.statsMu.Unlock()

	s.pipeline.enqueue(&Event{Kind: EventNodeDeleted, Node: OnNode{ID: id, Labels: labels}})
	if err := s.notifyMutation(Event{Kind: EventNodeDeleted, Node: OnNode{ID: id, Labels: labels}}); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------
// Edge operations (§4.1)
// ---------------------------------------------------------------------

// CreateEdge verifies both endpoints exist (else missing_endpoint),
// allocates an id, updates both adjacency lists, and enqueues EdgeCreated.
func (s *Store) CreateEdge(source, target types.NodeID, edgeType string, properties map[string]types.Value) (types.EdgeID, error) {
	s.nodesMu.RLock()
	_, srcOK := s.nodes[source]
	_, tgtOK := s.nodes[target]
	s.nodesMu.RUnlock()
	if !srcOK || !tgtOK {
		return 0, samyamaerr.New(samyamaerr.KindIntegrity, "missing_endpoint")
	}

	id := types.EdgeID(s.edgeIDs.Next())
	sym := s.Symbols.Intern(edgeType)
	if properties == nil {
		properties = make(map[string]types.Value)
	}
	now := time.Now().UTC()
	edge := &Edge{ID: id, Source: source, Target: target, Type: sym, Properties: properties, CreatedAt: now, UpdatedAt: now}

	s.edgesMu.Lock()
	s.edges[id] = edge
	s.edgesMu.Unlock()

	s.adjMu.Lock()
	s.outAdj[source] = append(s.outAdj[source], AdjItem{Edge: id, Other: target, Type: sym})
	s.inAdj[target] = append(s.inAdj[target], AdjItem{Edge: id, Other: source, Type: sym})
	s.adjMu.Unlock()

	s.statsMu.Lock()
	s.stats.EdgeTypeCount[sym]++
	s.statsMu.Unlock()

	s.pipeline.enqueue(&Event{Kind: EventEdgeCreated, Edge: OnEdge{ID: id, Type: sym, Source: source, Target: target}})
	if err := s.notifyMutation(Event{Kind: EventEdgeCreated, Edge: OnEdge{ID: id, Type: sym, Source: source, Target: target}}); err != nil {
		return id, err
	}
	return id, nil
}

// GetEdge returns a defensive copy of the edge.
func (s *Store) GetEdge(id types.EdgeID) (*Edge, error) {
	s.edgesMu.RLock()
	defer s.edgesMu.RUnlock()
	e, ok := s.edges[id]
	if !ok {
		return nil, samyamaerr.New(samyamaerr.KindIntegrity, "no such edge")
	}
	return e.Clone(), nil
}

// DeleteEdge removes id from both adjacency lists and the edge container
// (§I1, §I2).
func (s *Store) DeleteEdge(id types.EdgeID) error {
	s.edgesMu.RLock()
	edge, ok := s.edges[id]
	s.edgesMu.RUnlock()
	if !ok {
		return samyamaerr.New(samyamaerr.KindIntegrity, "no such edge")
	}

	s.adjMu.Lock()
	s.outAdj[edge.Source] = removeAdjItem(s.outAdj[edge.Source], id)
	s.inAdj[edge.Target] = removeAdjItem(s.inAdj[edge.Target], id)
	s.adjMu.Unlock()

	s.edgesMu.Lock()
	delete(s.edges, id)
	s.edgesMu.Unlock()

	s.statsMu.Lock()
	if s.stats.EdgeTypeCount[edge.Type] > 0 {
		s.stats.EdgeTypeCount[edge.Type]--
	}
	s.statsMu.Unlock()

	s.pipeline.enqueue(&Event{Kind: EventEdgeDeleted, Edge: OnEdge{ID: id, Type: edge.Type, Source: edge.Source, Target: edge.Target}})
	if err := s.notifyMutation(Event{Kind: EventEdgeDeleted, Edge: OnEdge{ID: id, Type: edge.Type, Source: edge.Source, Target: edge.Target}}); err != nil {
		return err
	}
	return nil
}

func removeAdjItem(list []AdjItem, id types.EdgeID) []AdjItem {
	for i, a := range list {
		if a.Edge == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Outgoing returns a copy of node id's outgoing adjacency list.
func (s *Store) Outgoing(id types.NodeID) []AdjItem {
	s.adjMu.RLock()
	defer s.adjMu.RUnlock()
	return append([]AdjItem(nil), s.outAdj[id]...)
}

// Incoming returns a copy of node id's incoming adjacency list.
func (s *Store) Incoming(id types.NodeID) []AdjItem {
	s.adjMu.RLock()
	defer s.adjMu.RUnlock()
	return append([]AdjItem(nil), s.inAdj[id]...)
}

func (s *Store) adjacencySnapshot(id types.NodeID) (out, in []AdjItem) {
	s.adjMu.RLock()
	defer s.adjMu.RUnlock()
	return append([]AdjItem(nil), s.outAdj[id]...), append([]AdjItem(nil), s.inAdj[id]...)
}

// EdgeTypeCardinality returns the number of live edges of this type (0
// for a type never interned).
func (s *Store) EdgeTypeCardinality(edgeType string) int64 {
	sym, ok := s.Symbols.Lookup(edgeType)
	if !ok {
		return 0
	}
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats.EdgeTypeCount[sym]
}

// ---------------------------------------------------------------------
// Property & label mutation (§4.1)
// ---------------------------------------------------------------------

// SetNodeProperty writes key=value on a node, emitting PropertyUpdated so
// any registered secondary index can be maintained asynchronously.
func (s *Store) SetNodeProperty(id types.NodeID, key string, value types.Value) error {
	s.nodesMu.Lock()
	node, ok := s.nodes[id]
	if !ok {
		s.nodesMu.Unlock()
		return samyamaerr.New(samyamaerr.KindIntegrity, "no such node")
	}
	old := node.Properties[key]
	node.Properties[key] = value
	node.UpdatedAt = time.Now().UTC()
	labels := append([]types.Symbol(nil), node.Labels...)
	s.nodesMu.Unlock()

	s.pipeline.enqueue(&Event{Kind: EventPropertyUpdated, Property: OnProperty{Node: id, Labels: labels, Key: key, Old: old, New: value}})
	if err := s.notifyMutation(Event{Kind: EventPropertyUpdated, Property: OnProperty{Node: id, Labels: labels, Key: key, Old: old, New: value}}); err != nil {
		return err
	}
	return nil
}

// RemoveNodeProperty deletes key from a node's property map.
func (s *Store) RemoveNodeProperty(id types.NodeID, key string) error {
	s.nodesMu.Lock()
	node, ok := s.nodes[id]
	if !ok {
		s.nodesMu.Unlock()
		return samyamaerr.New(samyamaerr.KindIntegrity, "no such node")
	}
	old, existed := node.Properties[key]
	if !existed {
		s.nodesMu.Unlock()
		return nil
	}
	delete(node.Properties, key)
	node.UpdatedAt = time.Now().UTC()
	labels := append([]types.Symbol(nil), node.Labels...)
	s.nodesMu.Unlock()

	s.pipeline.enqueue(&Event{Kind: EventPropertyRemoved, Property: OnProperty{Node: id, Labels: labels, Key: key, Old: old}})
	if err := s.notifyMutation(Event{Kind: EventPropertyRemoved, Property: OnProperty{Node: id, Labels: labels, Key: key, Old: old}}); err != nil {
		return err
	}
	return nil
}

// SetEdgeProperty writes key=value on an edge. Edges carry no secondary
// index in this core (§3), so no event is enqueued.
func (s *Store) SetEdgeProperty(id types.EdgeID, key string, value types.Value) error {
	s.edgesMu.Lock()
	defer s.edgesMu.Unlock()
	edge, ok := s.edges[id]
	if !ok {
		return samyamaerr.New(samyamaerr.KindIntegrity, "no such edge")
	}
	edge.Properties[key] = value
	edge.UpdatedAt = time.Now().UTC()
	if err := s.notifyMutation(Event{Kind: EventEdgePropertyUpdated, EdgeProperty: OnEdgeProperty{Edge: id, Key: key, New: value}}); err != nil {
		return err
	}
	return nil
}

// RemoveEdgeProperty deletes key from an edge's property map.
func (s *Store) RemoveEdgeProperty(id types.EdgeID, key string) error {
	s.edgesMu.Lock()
	defer s.edgesMu.Unlock()
	edge, ok := s.edges[id]
	if !ok {
		return samyamaerr.New(samyamaerr.KindIntegrity, "no such edge")
	}
	delete(edge.Properties, key)
	edge.UpdatedAt = time.Now().UTC()
	if err := s.notifyMutation(Event{Kind: EventEdgePropertyRemoved, EdgeProperty: OnEdgeProperty{Edge: id, Key: key}}); err != nil {
		return err
	}
	return nil
}

// AddLabel adds a label to a node, maintaining the label index
// synchronously and enqueuing LabelAdded for per-label property indices.
func (s *Store) AddLabel(id types.NodeID, label string) error {
	sym := s.Symbols.Intern(label)

	s.nodesMu.Lock()
	node, ok := s.nodes[id]
	if !ok {
		s.nodesMu.Unlock()
		return samyamaerr.New(samyamaerr.KindIntegrity, "no such node")
	}
	if node.HasLabel(sym) {
		s.nodesMu.Unlock()
		return nil
	}
	node.Labels = append(node.Labels, sym)
	props := make(map[string]types.Value, len(node.Properties))
	for k, v := range node.Properties {
		props[k] = v
	}
	s.nodesMu.Unlock()

	s.labelMu.Lock()
	set, ok := s.labelIndex[sym]
	if !ok {
		set = make(map[types.NodeID]struct{})
		s.labelIndex[sym] = set
	}
	set[id] = struct{}{}
	s.labelMu.Unlock()

	s.statsMu.Lock()
	s.stats.LabelCount[sym]++
	s.statsMu.Unlock()

	s.pipeline.enqueue(&Event{Kind: EventLabelAdded, Label: OnLabel{Node: id, Label: sym, Properties: props}})
	if err := s.notifyMutation(Event{Kind: EventLabelAdded, Label: OnLabel{Node: id, Label: sym, Properties: props}}); err != nil {
		return err
	}
	return nil
}

// RemoveLabel removes a label from a node.
func (s *Store) RemoveLabel(id types.NodeID, label string) error {
	sym, ok := s.Symbols.Lookup(label)
	if !ok {
		return nil
	}

	s.nodesMu.Lock()
	node, exists := s.nodes[id]
	if !exists {
		s.nodesMu.Unlock()
		return samyamaerr.New(samyamaerr.KindIntegrity, "no such node")
	}
	found := false
	kept := node.Labels[:0]
	for _, l := range node.Labels {
		if l == sym {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	node.Labels = kept
	s.nodesMu.Unlock()

	if !found {
		return nil
	}

	s.labelMu.Lock()
	if set, ok := s.labelIndex[sym]; ok {
		delete(set, id)
	}
	s.labelMu.Unlock()

	s.statsMu.Lock()
	if s.stats.LabelCount[sym] > 0 {
		s.stats.LabelCount[sym]--
	}
	s.statsMu.Unlock()

	s.pipeline.enqueue(&Event{Kind: EventLabelRemoved, Label: OnLabel{Node: id, Label: sym}})
	if err := s.notifyMutation(Event{Kind: EventLabelRemoved, Label: OnLabel{Node: id, Label: sym}}); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------
// Property index registry (§3, §4.2)
// ---------------------------------------------------------------------

// CreateIndex registers a property index for (label, prop). Creating an
// index on a property no current node carries is not an error: the index
// is registered empty and populated lazily as matching writes occur
// (§7 Index error, soft-fail). Existing matching nodes are backfilled
// synchronously here since the caller is expected to hold the store's
// write guard for this administrative operation.
func (s *Store) CreateIndex(label, prop string) {
	sym := s.Symbols.Intern(label)
	key := propIndexKey{Label: sym, Prop: prop}

	s.propMu.Lock()
	if _, exists := s.propIndexes[key]; exists {
		s.propMu.Unlock()
		return
	}
	idx := NewPropertyIndex()
	s.propIndexes[key] = idx
	s.propMu.Unlock()

	for _, id := range s.NodesByLabel(label) {
		s.nodesMu.RLock()
		node, ok := s.nodes[id]
		var val types.Value
		if ok {
			val, ok = node.Properties[prop]
		}
		s.nodesMu.RUnlock()
		if ok {
			idx.Insert(val, id)
		}
	}

	s.statsMu.Lock()
	s.stats.PropertyDistinctCount[propertyStatKey{Label: sym, Prop: prop}] = idx.DistinctCount()
	s.statsMu.Unlock()
}

// HasIndex reports whether (label, prop) has a registered property index,
// consulted by the planner for index-scan substitution (§4.4).
func (s *Store) HasIndex(label, prop string) bool {
	sym, ok := s.Symbols.Lookup(label)
	if !ok {
		return false
	}
	s.propMu.RLock()
	defer s.propMu.RUnlock()
	_, ok = s.propIndexes[propIndexKey{Label: sym, Prop: prop}]
	return ok
}

// IndexDescriptor names one registered property index, returned by
// Indexes() for checkpointing (§4.6) and introspection (§6 list_indexes).
type IndexDescriptor struct {
	Label string
	Prop  string
}

// Indexes lists every registered property index, so a checkpoint can
// persist index definitions alongside node/edge data and restore them on
// recovery without the caller re-issuing CREATE INDEX.
func (s *Store) Indexes() []IndexDescriptor {
	s.propMu.RLock()
	defer s.propMu.RUnlock()
	out := make([]IndexDescriptor, 0, len(s.propIndexes))
	for key := range s.propIndexes {
		out = append(out, IndexDescriptor{Label: s.Symbols.Name(key.Label), Prop: key.Prop})
	}
	return out
}

// IndexLookup returns node ids whose (label, prop) value equals value
// (§4.1 index_lookup, equality form).
func (s *Store) IndexLookup(label, prop string, value types.Value) ([]types.NodeID, bool) {
	idx := s.getPropertyIndexByName(label, prop)
	if idx == nil {
		return nil, false
	}
	return idx.Lookup(value), true
}

// IndexRange returns node ids whose (label, prop) value falls in [lo, hi)
// (§4.1 index_lookup, range form; §4.5 Index Scan).
func (s *Store) IndexRange(label, prop string, lo, hi *types.Value) ([]types.NodeID, bool) {
	idx := s.getPropertyIndexByName(label, prop)
	if idx == nil {
		return nil, false
	}
	return idx.Range(lo, hi), true
}

// PropertySelectivity estimates the fraction of label-tagged nodes an
// equality predicate on prop would select, for the planner's cost model
// (§4.4): 1/distinct-count when indexed, or the default 0.5 otherwise.
func (s *Store) PropertySelectivity(label, prop string) float64 {
	idx := s.getPropertyIndexByName(label, prop)
	if idx == nil {
		return 0.5
	}
	distinct := idx.DistinctCount()
	if distinct <= 0 {
		return 0.5
	}
	return 1.0 / float64(distinct)
}

func (s *Store) getPropertyIndex(label types.Symbol, prop string, create bool) *PropertyIndex {
	key := propIndexKey{Label: label, Prop: prop}
	s.propMu.RLock()
	idx, ok := s.propIndexes[key]
	s.propMu.RUnlock()
	if ok || !create {
		return idx
	}
	s.propMu.Lock()
	defer s.propMu.Unlock()
	if idx, ok := s.propIndexes[key]; ok {
		return idx
	}
	idx = NewPropertyIndex()
	s.propIndexes[key] = idx
	return idx
}

func (s *Store) getPropertyIndexByName(label, prop string) *PropertyIndex {
	sym, ok := s.Symbols.Lookup(label)
	if !ok {
		return nil
	}
	return s.getPropertyIndex(sym, prop, false)
}

// NodeCount returns the exact number of live nodes.
func (s *Store) NodeCount() int64 {
	s.nodesMu.RLock()
	defer s.nodesMu.RUnlock()
	return int64(len(s.nodes))
}

// EdgeCount returns the exact number of live edges.
func (s *Store) EdgeCount() int64 {
	s.edgesMu.RLock()
	defer s.edgesMu.RUnlock()
	return int64(len(s.edges))
}

// AllNodeIDs returns every live node id, for checkpoint/export.
func (s *Store) AllNodeIDs() []types.NodeID {
	s.nodesMu.RLock()
	defer s.nodesMu.RUnlock()
	out := make([]types.NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	return out
}

// AllEdgeIDs returns every live edge id, for checkpoint/export.
func (s *Store) AllEdgeIDs() []types.EdgeID {
	s.edgesMu.RLock()
	defer s.edgesMu.RUnlock()
	out := make([]types.EdgeID, 0, len(s.edges))
	for id := range s.edges {
		out = append(out, id)
	}
	return out
}
