package graph

import (
	"log"

	"github.com/samyama/samyama/pkg/types"
)

// pipeline is the single-consumer async index worker of §4.2. One pipeline
// belongs to exactly one Store (hence one tenant), avoiding the
// head-of-line blocking a shared cross-tenant queue would risk (§9 Design
// Notes). A single background consumer is sufficient because mutations
// under the store's exclusive write guard are already serialized, so
// events are enqueued in a total order and the worker only ever needs to
// apply them in that order.
type pipeline struct {
	events chan *Event
	done   chan struct{}
}

func newPipeline(capacity int) *pipeline {
	if capacity <= 0 {
		capacity = 1024
	}
	return &pipeline{
		events: make(chan *Event, capacity),
		done:   make(chan struct{}),
	}
}

// run is the worker goroutine body. It applies events to s's secondary
// indices until the channel is closed. A failed application (a recovered
// panic) is logged and the event is dropped: the primary store is not
// rolled back, and nothing re-applies the lost secondary-index update.
func (p *pipeline) run(s *Store) {
	defer close(p.done)
	for ev := range p.events {
		if ev.Kind == eventBarrier {
			close(ev.done)
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("graph: index pipeline worker recovered from panic applying event kind=%d: %v", ev.Kind, r)
				}
			}()
			s.applyIndexEvent(ev)
		}()
	}
}

// enqueue publishes an event to the pipeline. Writers publish only after
// their mutation is visible in the primary containers (§5: "the pipeline
// never observes a state the writer has not yet applied"), and block when
// the bounded queue is full rather than drop events, per §6's
// index_queue_capacity semantics.
func (p *pipeline) enqueue(ev *Event) {
	p.events <- ev
}

// flush blocks until every event enqueued before this call has been
// applied, implementing the flush_indices operation (§4.2, §8 P3).
func (p *pipeline) flush() {
	barrier := &Event{Kind: eventBarrier, done: make(chan struct{})}
	p.events <- barrier
	<-barrier.done
}

func (p *pipeline) close() {
	close(p.events)
	<-p.done
}

// applyIndexEvent updates secondary (property) indices for one mutation
// event. Every field it needs travels with the event, except for
// EventNodeCreated, which reads the new node's properties back from the
// node map under nodesMu (nodeSnapshotProps); so it can run concurrently
// with a writer that has already released the write guard and moved on to
// the next statement, without racing on the node/edge maps (§5).
func (s *Store) applyIndexEvent(ev *Event) {
	switch ev.Kind {
	case EventNodeCreated:
		for _, label := range ev.Node.Labels {
			for key, val := range s.nodeSnapshotProps(ev.Node.ID) {
				s.indexInsert(label, key, val, ev.Node.ID)
			}
		}
	case EventNodeDeleted:
		// Property removal for a deleted node is handled by the
		// synchronous delete path removing index entries directly is
		// unnecessary rework; instead the event carries the labels so we
		// can sweep every per-label property index for this id.
		for _, label := range ev.Node.Labels {
			s.indexRemoveAllForNode(label, ev.Node.ID)
		}
	case EventPropertyUpdated:
		for _, label := range ev.Property.Labels {
			idx := s.getPropertyIndex(label, ev.Property.Key, false)
			if idx == nil {
				continue
			}
			if ev.Property.Old.IsNull() {
				idx.Insert(ev.Property.New, ev.Property.Node)
			} else {
				idx.Update(ev.Property.Old, ev.Property.New, ev.Property.Node)
			}
		}
	case EventPropertyRemoved:
		for _, label := range ev.Property.Labels {
			idx := s.getPropertyIndex(label, ev.Property.Key, false)
			if idx == nil {
				continue
			}
			idx.Remove(ev.Property.Old, ev.Property.Node)
		}
	case EventLabelAdded:
		for key, val := range ev.Label.Properties {
			s.indexInsert(ev.Label.Label, key, val, ev.Label.Node)
		}
	case EventLabelRemoved:
		s.indexRemoveAllForNode(ev.Label.Label, ev.Label.Node)
	case EventEdgeCreated, EventEdgeDeleted:
		// Edges carry no secondary index in this core (§3: property
		// indices are node-scoped); edge-type cardinality is maintained
		// synchronously in Stats, not here.
	}
}

func (s *Store) indexInsert(label types.Symbol, key string, val types.Value, id types.NodeID) {
	idx := s.getPropertyIndex(label, key, false)
	if idx == nil {
		return
	}
	idx.Insert(val, id)
}

func (s *Store) indexRemoveAllForNode(label types.Symbol, id types.NodeID) {
	s.propMu.RLock()
	defer s.propMu.RUnlock()
	for k, idx := range s.propIndexes {
		if k.Label != label {
			continue
		}
		// A full index doesn't know which value this node held without
		// a scan; the node snapshot is already gone by the time the
		// worker runs EventNodeDeleted, so instead each value bucket is
		// checked for membership. This is O(distinct values) per label
		// index, acceptable because index maintenance already trades
		// throughput for simplicity in this core.
		idx.removeNodeFromAllBuckets(id)
	}
}

// nodeSnapshotProps is a small helper used only by EventNodeCreated. It
// copies the node's current properties, or returns nil when the node has
// already been removed from the primary container by the time the worker
// runs; the node's later NodeDeleted event then finds nothing to remove.
func (s *Store) nodeSnapshotProps(id types.NodeID) map[string]types.Value {
	s.nodesMu.RLock()
	defer s.nodesMu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	out := make(map[string]types.Value, len(n.Properties))
	for k, v := range n.Properties {
		out[k] = v
	}
	return out
}
