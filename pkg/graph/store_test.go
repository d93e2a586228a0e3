package graph

import (
	"testing"

	"github.com/samyama/samyama/pkg/samyamaerr"
	"github.com/samyama/samyama/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(Options{IndexQueueCapacity: 16})
	t.Cleanup(s.Close)
	return s
}

func TestAdjacencyReciprocity(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.CreateNode([]string{"Person"}, nil)
	b, _ := s.CreateNode([]string{"Person"}, nil)
	eid, err := s.CreateEdge(a, b, "KNOWS", nil)
	if err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}

	out := s.Outgoing(a)
	if len(out) != 1 || out[0].Edge != eid || out[0].Other != b {
		t.Fatalf("unexpected outgoing adjacency: %+v", out)
	}
	in := s.Incoming(b)
	if len(in) != 1 || in[0].Edge != eid || in[0].Other != a {
		t.Fatalf("unexpected incoming adjacency: %+v", in)
	}

	if err := s.DeleteEdge(eid); err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}
	if len(s.Outgoing(a)) != 0 || len(s.Incoming(b)) != 0 {
		t.Fatalf("adjacency lists not cleaned up after edge delete")
	}
}

func TestCreateEdgeMissingEndpoint(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.CreateNode([]string{"Person"}, nil)
	_, err := s.CreateEdge(a, types.NodeID(9999), "KNOWS", nil)
	if samyamaerr.KindOf(err) != samyamaerr.KindIntegrity {
		t.Fatalf("expected integrity error for missing endpoint, got %v", err)
	}
}

func TestLabelIndexExactness(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.CreateNode([]string{"Person"}, nil)
	b, _ := s.CreateNode([]string{"Person", "Admin"}, nil)
	_, _ = s.CreateNode([]string{"Company"}, nil)

	people := s.NodesByLabel("Person")
	if len(people) != 2 {
		t.Fatalf("expected 2 Person nodes, got %d", len(people))
	}
	admins := s.NodesByLabel("Admin")
	if len(admins) != 1 || admins[0] != b {
		t.Fatalf("expected Admin={%d}, got %v", b, admins)
	}

	if err := s.DeleteNode(a, false); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if len(s.NodesByLabel("Person")) != 1 {
		t.Fatalf("label index not updated after delete")
	}
}

func TestDeleteNodeWithEdgesRequiresDetach(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.CreateNode([]string{"Person"}, nil)
	b, _ := s.CreateNode([]string{"Person"}, nil)
	_, _ = s.CreateEdge(a, b, "KNOWS", nil)

	if err := s.DeleteNode(a, false); samyamaerr.KindOf(err) != samyamaerr.KindIntegrity {
		t.Fatalf("expected node_has_edges integrity error, got %v", err)
	}

	if err := s.DeleteNode(a, true); err != nil {
		t.Fatalf("detach delete should succeed: %v", err)
	}
	if _, err := s.GetNode(a); samyamaerr.KindOf(err) != samyamaerr.KindIntegrity {
		t.Fatalf("node should be gone after detach delete")
	}
	if len(s.Incoming(b)) != 0 {
		t.Fatalf("detach delete should have removed the edge from b's incoming list")
	}
}

func TestPropertyIndexEventualExactnessAfterFlush(t *testing.T) {
	s := newTestStore(t)
	s.CreateIndex("Person", "age")

	ids := make([]types.NodeID, 0, 5)
	for i := 0; i < 5; i++ {
		id, _ := s.CreateNode([]string{"Person"}, map[string]types.Value{"age": types.Int(int64(20 + i))})
		ids = append(ids, id)
	}
	s.FlushIndices()

	got, ok := s.IndexLookup("Person", "age", types.Int(22))
	if !ok {
		t.Fatalf("expected index to exist")
	}
	if len(got) != 1 || got[0] != ids[2] {
		t.Fatalf("expected lookup to find node %d, got %v", ids[2], got)
	}

	lo := types.Int(21)
	hi := types.Int(24)
	rng, ok := s.IndexRange("Person", "age", &lo, &hi)
	if !ok || len(rng) != 3 {
		t.Fatalf("expected range [21,24) to return 3 nodes, got %v", rng)
	}
}

func TestPropertyIndexBackfillOnCreateIndex(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.CreateNode([]string{"Person"}, map[string]types.Value{"age": types.Int(30)})
	s.FlushIndices()

	s.CreateIndex("Person", "age")

	got, ok := s.IndexLookup("Person", "age", types.Int(30))
	if !ok || len(got) != 1 || got[0] != id {
		t.Fatalf("expected backfilled index to contain %d, got %v ok=%v", id, got, ok)
	}
}

func TestSetPropertyUpdatesIndex(t *testing.T) {
	s := newTestStore(t)
	s.CreateIndex("Person", "age")
	id, _ := s.CreateNode([]string{"Person"}, map[string]types.Value{"age": types.Int(10)})
	s.FlushIndices()

	if err := s.SetNodeProperty(id, "age", types.Int(99)); err != nil {
		t.Fatalf("SetNodeProperty: %v", err)
	}
	s.FlushIndices()

	if got, _ := s.IndexLookup("Person", "age", types.Int(10)); len(got) != 0 {
		t.Fatalf("old value should no longer be indexed, got %v", got)
	}
	if got, _ := s.IndexLookup("Person", "age", types.Int(99)); len(got) != 1 || got[0] != id {
		t.Fatalf("new value should be indexed, got %v", got)
	}
}

func TestDeleteNodeRemovesFromPropertyIndex(t *testing.T) {
	s := newTestStore(t)
	s.CreateIndex("Person", "age")
	id, _ := s.CreateNode([]string{"Person"}, map[string]types.Value{"age": types.Int(55)})
	s.FlushIndices()

	if err := s.DeleteNode(id, false); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	s.FlushIndices()

	got, _ := s.IndexLookup("Person", "age", types.Int(55))
	if len(got) != 0 {
		t.Fatalf("expected no entries after node delete, got %v", got)
	}
}

func TestRemoveLabelDepopulatesPropertyIndex(t *testing.T) {
	s := newTestStore(t)
	s.CreateIndex("Admin", "level")
	id, _ := s.CreateNode([]string{"Admin"}, map[string]types.Value{"level": types.Int(1)})
	s.FlushIndices()

	if err := s.RemoveLabel(id, "Admin"); err != nil {
		t.Fatalf("RemoveLabel: %v", err)
	}
	s.FlushIndices()

	got, _ := s.IndexLookup("Admin", "level", types.Int(1))
	if len(got) != 0 {
		t.Fatalf("expected label removal to depopulate index, got %v", got)
	}
}

func TestAddLabelPopulatesExistingPropertyIndex(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.CreateNode(nil, map[string]types.Value{"level": types.Int(7)})
	s.CreateIndex("Admin", "level")
	s.FlushIndices()

	if err := s.AddLabel(id, "Admin"); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	s.FlushIndices()

	got, ok := s.IndexLookup("Admin", "level", types.Int(7))
	if !ok || len(got) != 1 || got[0] != id {
		t.Fatalf("expected new label to populate existing index, got %v ok=%v", got, ok)
	}
}

func TestCardinalityStatsTrackLabelsAndEdgeTypes(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.CreateNode([]string{"Person"}, nil)
	b, _ := s.CreateNode([]string{"Person"}, nil)
	_, _ = s.CreateEdge(a, b, "KNOWS", nil)

	if got := s.LabelCardinality("Person"); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := s.EdgeTypeCardinality("KNOWS"); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}

	if err := s.DeleteNode(a, true); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if got := s.LabelCardinality("Person"); got != 1 {
		t.Fatalf("expected 1 after delete, got %d", got)
	}
	if got := s.EdgeTypeCardinality("KNOWS"); got != 0 {
		t.Fatalf("expected 0 after detach delete, got %d", got)
	}
}

func TestGetNodeReturnsDefensiveCopy(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.CreateNode([]string{"Person"}, map[string]types.Value{"name": types.Str("Ada")})

	n, err := s.GetNode(id)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	n.Properties["name"] = types.Str("mutated")

	n2, _ := s.GetNode(id)
	if n2.Properties["name"].S != "Ada" {
		t.Fatalf("mutating returned copy affected store state: %v", n2.Properties["name"])
	}
}
