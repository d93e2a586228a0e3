package persist

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/samyama/samyama/pkg/graph"
	"github.com/samyama/samyama/pkg/samyamaerr"
	"github.com/samyama/samyama/pkg/types"
)

// snapshotNode and snapshotEdge are the on-disk shapes for a checkpoint,
// analogous to the teacher's Snapshot.Nodes/Edges (nornicdb/pkg/storage/
// wal.go), but value-typed to carry Samyama's richer property Value kind
// rather than a bare map[string]any.
type snapshotNode struct {
	ID         uint64                 `json:"id"`
	Labels     []string               `json:"labels"`
	Properties map[string]types.Value `json:"properties"`
}

type snapshotEdge struct {
	ID         uint64                 `json:"id"`
	Source     uint64                 `json:"source"`
	Target     uint64                 `json:"target"`
	Type       string                 `json:"type"`
	Properties map[string]types.Value `json:"properties"`
}

type snapshotIndex struct {
	Label string `json:"label"`
	Prop  string `json:"prop"`
}

// Snapshot is a full point-in-time dump of one tenant's graph, the unit
// behind engine.DB.Checkpoint (§6, §4.6).
type Snapshot struct {
	Sequence uint64          `json:"sequence"`
	Nodes    []snapshotNode  `json:"nodes"`
	Edges    []snapshotEdge  `json:"edges"`
	Indexes  []snapshotIndex `json:"indexes"`
}

// BuildSnapshot walks store's live state into a Snapshot, stamped with the
// WAL sequence at the moment the snapshot was taken so replay knows where
// to resume (§4.6). The caller must hold store's write guard (or otherwise
// guarantee no concurrent mutation) for the duration of this call — the
// snapshot is a point-in-time view, not an MVCC-consistent one, since the
// in-memory graph.Store has no transaction-scoped read view of its own.
func BuildSnapshot(store *graph.Store, indexes []snapshotIndex, sequence uint64) (*Snapshot, error) {
	snap := &Snapshot{Sequence: sequence, Indexes: indexes}

	for _, id := range store.AllNodeIDs() {
		n, err := store.GetNode(id)
		if err != nil {
			continue
		}
		labels := make([]string, 0, len(n.Labels))
		for _, sym := range n.Labels {
			labels = append(labels, store.Symbols.Name(sym))
		}
		snap.Nodes = append(snap.Nodes, snapshotNode{ID: uint64(id), Labels: labels, Properties: n.Properties})
	}

	for _, id := range store.AllEdgeIDs() {
		e, err := store.GetEdge(id)
		if err != nil {
			continue
		}
		snap.Edges = append(snap.Edges, snapshotEdge{
			ID:         uint64(id),
			Source:     uint64(e.Source),
			Target:     uint64(e.Target),
			Type:       store.Symbols.Name(e.Type),
			Properties: e.Properties,
		})
	}

	return snap, nil
}

// CheckpointStore snapshots store's full state, including its registered
// property indexes, and saves it atomically to path. This is the single
// entry point engine.DB.Checkpoint calls; BuildSnapshot/SaveSnapshot stay
// exported separately for tests that need the intermediate Snapshot value.
func CheckpointStore(store *graph.Store, path string, sequence uint64) error {
	descs := store.Indexes()
	indexes := make([]snapshotIndex, 0, len(descs))
	for _, d := range descs {
		indexes = append(indexes, snapshotIndex{Label: d.Label, Prop: d.Prop})
	}
	snap, err := BuildSnapshot(store, indexes, sequence)
	if err != nil {
		return err
	}
	return SaveSnapshot(snap, path)
}

// SaveSnapshot writes snap to path atomically: encode to a temp file, fsync
// it, then rename over the destination, so a crash mid-write never leaves
// a half-written snapshot at the real path (§4.6, matching the teacher's
// SaveSnapshot in nornicdb/pkg/storage/wal.go).
func SaveSnapshot(snap *Snapshot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "create snapshot directory", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "create snapshot temp file", err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "encode snapshot", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "sync snapshot", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "close snapshot temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "rename snapshot into place", err)
	}
	return nil
}

// LoadSnapshot reads a Snapshot from path. A missing file is not an error:
// it means recovery should start from an empty store and replay the
// entire WAL.
func LoadSnapshot(path string) (*Snapshot, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, samyamaerr.Wrap(samyamaerr.KindPersistence, "open snapshot", err)
	}
	defer f.Close()

	var snap Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, false, samyamaerr.Wrap(samyamaerr.KindPersistence, "decode snapshot", err)
	}
	return &snap, true, nil
}

// ApplySnapshot restores snap's nodes, edges, and indexes into store.
// Indexes are registered first (empty) so each RestoreNode's enqueued
// index event has somewhere to land; the caller must FlushIndices once
// replay (snapshot + WAL tail) is complete.
func ApplySnapshot(store *graph.Store, snap *Snapshot) {
	for _, idx := range snap.Indexes {
		store.RestoreIndex(idx.Label, idx.Prop)
	}

	var lastNode types.NodeID
	for _, n := range snap.Nodes {
		id := types.NodeID(n.ID)
		store.RestoreNode(id, n.Labels, n.Properties, nil)
		if id > lastNode {
			lastNode = id
		}
	}

	var lastEdge types.EdgeID
	for _, e := range snap.Edges {
		id := types.EdgeID(e.ID)
		store.RestoreEdge(id, types.NodeID(e.Source), types.NodeID(e.Target), e.Type, e.Properties, nil)
		if id > lastEdge {
			lastEdge = id
		}
	}

	store.RestoreIDWatermarks(lastNode, lastEdge)
}

// RecoverFromWAL rebuilds a fresh graph.Store by loading snapshotPath (if
// it exists) and then replaying every WAL record after the snapshot's
// sequence (§4.6). It mirrors the teacher's RecoverFromWAL
// (nornicdb/pkg/storage/wal.go) but replays Samyama's typed operation set
// instead of json.RawMessage-typed node/edge blobs, and stops at the
// first corrupt WAL record rather than skipping over it (see ReadAll).
func RecoverFromWAL(tenant, walDir, snapshotPath string, opts graph.Options) (*graph.Store, error) {
	store := graph.New(opts)

	snap, ok, err := LoadSnapshot(snapshotPath)
	if err != nil {
		return nil, err
	}
	var afterSeq uint64
	if ok {
		ApplySnapshot(store, snap)
		afterSeq = snap.Sequence
	}

	walPath := filepath.Join(walDir, walFileName)
	records, err := ReadAfter(walPath, afterSeq)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if rec.Tenant != tenant || rec.Operation == OpCheckpoint {
			continue
		}
		if err := replayRecord(store, rec); err != nil {
			continue
		}
	}

	store.FlushIndices()
	return store, nil
}

func replayRecord(store *graph.Store, rec Record) error {
	switch rec.Operation {
	case OpCreateNode:
		var data struct {
			ID         uint64                 `json:"id"`
			Labels     []string               `json:"labels"`
			Properties map[string]types.Value `json:"properties"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return err
		}
		store.RestoreNode(types.NodeID(data.ID), data.Labels, data.Properties, nil)
		store.RestoreIDWatermarks(types.NodeID(data.ID), 0)
	case OpDeleteNode:
		var data struct {
			ID uint64 `json:"id"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return err
		}
		return store.DeleteNode(types.NodeID(data.ID), true)
	case OpCreateEdge:
		var data struct {
			ID         uint64                 `json:"id"`
			Source     uint64                 `json:"source"`
			Target     uint64                 `json:"target"`
			Type       string                 `json:"type"`
			Properties map[string]types.Value `json:"properties"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return err
		}
		store.RestoreEdge(types.EdgeID(data.ID), types.NodeID(data.Source), types.NodeID(data.Target), data.Type, data.Properties, nil)
		store.RestoreIDWatermarks(0, types.EdgeID(data.ID))
	case OpDeleteEdge:
		var data struct {
			ID uint64 `json:"id"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return err
		}
		return store.DeleteEdge(types.EdgeID(data.ID))
	case OpSetProperty:
		var data struct {
			Node  uint64      `json:"node"`
			Key   string      `json:"key"`
			Value types.Value `json:"value"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return err
		}
		return store.SetNodeProperty(types.NodeID(data.Node), data.Key, data.Value)
	case OpRemoveProperty:
		var data struct {
			Node uint64 `json:"node"`
			Key  string `json:"key"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return err
		}
		return store.RemoveNodeProperty(types.NodeID(data.Node), data.Key)
	case OpAddLabel:
		var data struct {
			Node  uint64 `json:"node"`
			Label string `json:"label"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return err
		}
		return store.AddLabel(types.NodeID(data.Node), data.Label)
	case OpRemoveLabel:
		var data struct {
			Node  uint64 `json:"node"`
			Label string `json:"label"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return err
		}
		return store.RemoveLabel(types.NodeID(data.Node), data.Label)
	case OpSetEdgeProperty:
		var data struct {
			Edge  uint64      `json:"edge"`
			Key   string      `json:"key"`
			Value types.Value `json:"value"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return err
		}
		return store.SetEdgeProperty(types.EdgeID(data.Edge), data.Key, data.Value)
	case OpRemoveEdgeProperty:
		var data struct {
			Edge uint64 `json:"edge"`
			Key  string `json:"key"`
		}
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return err
		}
		return store.RemoveEdgeProperty(types.EdgeID(data.Edge), data.Key)
	}
	return nil
}
