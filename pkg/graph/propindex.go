package graph

import (
	"sort"
	"sync"

	"github.com/samyama/samyama/pkg/types"
)

// PropertyIndex is an ordered mapping from property value to the set of
// node ids carrying that value, for one (label, property-name) pair (§3).
// It supports equality and half-open range lookup with ties broken by id
// (§4.5 Index Scan).
//
// Entries are kept in a slice sorted by types.Compare and searched with
// sort.Search; no general-purpose ordered-map/B-tree library appears
// anywhere in the reference corpus this module was grounded on, so a
// maintained sorted slice — the standard approach for an in-memory ordered
// index absent such a library — is used here rather than inventing a
// dependency; see DESIGN.md.
type PropertyIndex struct {
	mu      sync.RWMutex
	entries []indexEntry
}

type indexEntry struct {
	value types.Value
	nodes map[types.NodeID]struct{}
}

// NewPropertyIndex returns an empty index.
func NewPropertyIndex() *PropertyIndex {
	return &PropertyIndex{}
}

func (p *PropertyIndex) search(v types.Value) (pos int, found bool) {
	pos = sort.Search(len(p.entries), func(i int) bool {
		return !types.Less(p.entries[i].value, v)
	})
	if pos < len(p.entries) && types.Equal(p.entries[pos].value, v) {
		return pos, true
	}
	return pos, false
}

// Insert adds id under key value.
func (p *PropertyIndex) Insert(value types.Value, id types.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, found := p.search(value)
	if found {
		p.entries[pos].nodes[id] = struct{}{}
		return
	}
	entry := indexEntry{value: value, nodes: map[types.NodeID]struct{}{id: {}}}
	p.entries = append(p.entries, indexEntry{})
	copy(p.entries[pos+1:], p.entries[pos:])
	p.entries[pos] = entry
}

// Remove drops id from under key value, cleaning up the entry if it becomes
// empty.
func (p *PropertyIndex) Remove(value types.Value, id types.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, found := p.search(value)
	if !found {
		return
	}
	delete(p.entries[pos].nodes, id)
	if len(p.entries[pos].nodes) == 0 {
		p.entries = append(p.entries[:pos], p.entries[pos+1:]...)
	}
}

// Update moves id from oldValue's bucket to newValue's bucket as a Remove
// followed by an Insert, each under its own lock; a Lookup or Range that
// runs between the two finds id in neither bucket.
func (p *PropertyIndex) Update(oldValue, newValue types.Value, id types.NodeID) {
	p.Remove(oldValue, id)
	p.Insert(newValue, id)
}

// Lookup returns the ids indexed under exactly value (equality lookup).
func (p *PropertyIndex) Lookup(value types.Value) []types.NodeID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, found := p.search(value)
	if !found {
		return nil
	}
	return idsSortedByID(p.entries[pos].nodes)
}

// Range returns the ids indexed under a value in [lo, hi) — half-open, per
// §4.5 Index Scan. A nil lo means "no lower bound"; a nil hi means "no
// upper bound".
func (p *PropertyIndex) Range(lo, hi *types.Value) []types.NodeID {
	p.mu.RLock()
	defer p.mu.RUnlock()

	start := 0
	if lo != nil {
		start = sort.Search(len(p.entries), func(i int) bool {
			return !types.Less(p.entries[i].value, *lo)
		})
	}
	end := len(p.entries)
	if hi != nil {
		end = sort.Search(len(p.entries), func(i int) bool {
			return !types.Less(p.entries[i].value, *hi)
		})
	}
	if start > end {
		start = end
	}

	var out []types.NodeID
	for _, e := range p.entries[start:end] {
		out = append(out, idsSortedByID(e.nodes)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// removeNodeFromAllBuckets scans every bucket for id and removes it,
// used when a node is deleted or loses the label this index is keyed on
// and the worker no longer has the node's property snapshot to target a
// single bucket directly.
func (p *PropertyIndex) removeNodeFromAllBuckets(id types.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.entries[:0]
	for _, e := range p.entries {
		delete(e.nodes, id)
		if len(e.nodes) > 0 {
			kept = append(kept, e)
		}
	}
	p.entries = kept
}

// DistinctCount reports the number of distinct key values currently
// indexed, feeding the planner's selectivity estimate (§4.4).
func (p *PropertyIndex) DistinctCount() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int64(len(p.entries))
}

func idsSortedByID(set map[types.NodeID]struct{}) []types.NodeID {
	out := make([]types.NodeID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
