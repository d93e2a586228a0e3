package persist

import (
	"path/filepath"
	"testing"

	"github.com/samyama/samyama/pkg/graph"
	"github.com/samyama/samyama/pkg/types"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store := graph.New(graph.Options{IndexQueueCapacity: 16})
	defer store.Close()

	a, _ := store.CreateNode([]string{"Person"}, map[string]types.Value{"name": types.Str("Ada")})
	b, _ := store.CreateNode([]string{"Person"}, nil)
	_, _ = store.CreateEdge(a, b, "KNOWS", map[string]types.Value{"since": types.Int(2020)})
	store.FlushIndices()

	snap, err := BuildSnapshot(store, nil, 42)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := SaveSnapshot(snap, path); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, ok, err := LoadSnapshot(path)
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot: ok=%v err=%v", ok, err)
	}
	if loaded.Sequence != 42 {
		t.Fatalf("expected sequence 42, got %d", loaded.Sequence)
	}

	restored := graph.New(graph.Options{IndexQueueCapacity: 16})
	defer restored.Close()
	ApplySnapshot(restored, loaded)
	restored.FlushIndices()

	if restored.NodeCount() != 2 || restored.EdgeCount() != 1 {
		t.Fatalf("expected 2 nodes/1 edge after restore, got %d/%d", restored.NodeCount(), restored.EdgeCount())
	}
	n, err := restored.GetNode(a)
	if err != nil {
		t.Fatalf("GetNode after restore: %v", err)
	}
	if n.Properties["name"].S != "Ada" {
		t.Fatalf("expected restored property to round-trip, got %v", n.Properties["name"])
	}

	// A subsequently created node must not collide with a restored id.
	newID, _ := restored.CreateNode([]string{"Person"}, nil)
	if newID == a || newID == b {
		t.Fatalf("new node id %d collided with a restored id", newID)
	}
}

func TestRecoverFromWALReplaysAfterSnapshot(t *testing.T) {
	dir := t.TempDir()
	wal, err := OpenWAL(dir, SyncNone)
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}

	const tenant = "tenant-a"
	if err := wal.Append(tenant, OpCreateNode, map[string]any{
		"id": 1, "labels": []string{"Person"}, "properties": map[string]types.Value{"name": types.Str("Ada")},
	}); err != nil {
		t.Fatalf("Append create node 1: %v", err)
	}
	if err := wal.Checkpoint(tenant); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	snapshotSeq := wal.Sequence()

	if err := wal.Append(tenant, OpCreateNode, map[string]any{
		"id": 2, "labels": []string{"Person"}, "properties": map[string]types.Value{},
	}); err != nil {
		t.Fatalf("Append create node 2: %v", err)
	}
	if err := wal.Append(tenant, OpCreateEdge, map[string]any{
		"id": 1, "source": 1, "target": 2, "type": "KNOWS", "properties": map[string]types.Value{},
	}); err != nil {
		t.Fatalf("Append create edge: %v", err)
	}
	if err := wal.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	snapshotPath := filepath.Join(dir, "snap.json")
	snapStore := graph.New(graph.Options{IndexQueueCapacity: 16})
	snapStore.RestoreNode(types.NodeID(1), []string{"Person"}, map[string]types.Value{"name": types.Str("Ada")}, nil)
	snapStore.RestoreIDWatermarks(types.NodeID(1), 0)
	snap, err := BuildSnapshot(snapStore, nil, snapshotSeq)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if err := SaveSnapshot(snap, snapshotPath); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	snapStore.Close()

	recovered, err := RecoverFromWAL(tenant, dir, snapshotPath, graph.Options{IndexQueueCapacity: 16})
	if err != nil {
		t.Fatalf("RecoverFromWAL: %v", err)
	}
	defer recovered.Close()

	if recovered.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes after recovery, got %d", recovered.NodeCount())
	}
	if recovered.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge after recovery, got %d", recovered.EdgeCount())
	}
}
