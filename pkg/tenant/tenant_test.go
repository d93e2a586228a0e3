package tenant

import (
	"errors"
	"testing"
	"time"

	"github.com/samyama/samyama/pkg/samyamaerr"
)

func TestCreateDuplicateRejected(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("t1", "Tenant One", Unlimited()); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Create("t1", "dup", Unlimited()); err == nil {
		t.Fatal("expected duplicate tenant create to fail")
	}
}

func TestQuotaSafetyP6(t *testing.T) {
	r := NewRegistry()
	q := Unlimited()
	q.MaxNodes = 3
	if _, err := r.Create("t1", "limited", q); err != nil {
		t.Fatal(err)
	}

	if err := r.CheckAndReserveNodes("t1", 3); err != nil {
		t.Fatalf("expected 3 nodes to fit quota of 3, got %v", err)
	}
	if err := r.CheckAndReserveNodes("t1", 1); !errors.Is(err, samyamaerr.Quota) {
		t.Fatalf("expected quota error on 4th node, got %v", err)
	}

	rec, _ := r.Get("t1")
	if rec.Usage.Nodes != 3 {
		t.Fatalf("rejected reservation must leave usage unchanged, got %d", rec.Usage.Nodes)
	}
}

func TestReleaseNodesReversesReservation(t *testing.T) {
	r := NewRegistry()
	q := Unlimited()
	q.MaxNodes = 1
	r.Create("t1", "x", q)

	if err := r.CheckAndReserveNodes("t1", 1); err != nil {
		t.Fatal(err)
	}
	r.ReleaseNodes("t1", 1) // simulate a write that reserved then failed for an unrelated reason

	if err := r.CheckAndReserveNodes("t1", 1); err != nil {
		t.Fatalf("expected reservation slot to be freed, got %v", err)
	}
}

func TestDeleteRefusedWhileSessionsActive(t *testing.T) {
	r := NewRegistry()
	r.Create("t1", "x", Unlimited())
	if err := r.AcquireSession("t1"); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete("t1"); err == nil {
		t.Fatal("expected delete to be refused while a session is active")
	}
	r.ReleaseSession("t1")
	if err := r.Delete("t1"); err != nil {
		t.Fatalf("expected delete to succeed once sessions drain, got %v", err)
	}
}

func TestTenantIsolationDistinctRegistries(t *testing.T) {
	r := NewRegistry()
	r.Create("t1", "a", Unlimited())
	r.Create("t2", "b", Unlimited())

	r.CheckAndReserveNodes("t1", 5)
	rec2, _ := r.Get("t2")
	if rec2.Usage.Nodes != 0 {
		t.Fatalf("expected tenant t2 usage to be unaffected by t1 writes, got %d", rec2.Usage.Nodes)
	}
}

func TestQueryTimeoutFallback(t *testing.T) {
	r := NewRegistry()
	r.Create("t1", "a", Unlimited())
	if got := r.QueryTimeout("t1", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback timeout, got %v", got)
	}

	q := Unlimited()
	q.MaxQueryTime = 2 * time.Second
	r.Create("t2", "b", q)
	if got := r.QueryTimeout("t2", 5*time.Second); got != 2*time.Second {
		t.Fatalf("expected tenant-specific timeout, got %v", got)
	}
}
