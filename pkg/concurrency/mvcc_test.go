package concurrency

import "testing"

func TestVersionChainResolve(t *testing.T) {
	var c VersionChain[string]
	c.Install(10, "v1")
	c.Install(20, "v2")
	c.Tombstone(30)

	if v, del, ok := c.Resolve(15); !ok || del || v != "v1" {
		t.Fatalf("expected v1 at ts=15, got v=%q del=%v ok=%v", v, del, ok)
	}
	if v, del, ok := c.Resolve(25); !ok || del || v != "v2" {
		t.Fatalf("expected v2 at ts=25, got v=%q del=%v ok=%v", v, del, ok)
	}
	if _, del, ok := c.Resolve(35); !ok || !del {
		t.Fatalf("expected tombstone visible at ts=35, del=%v ok=%v", del, ok)
	}
	if _, _, ok := c.Resolve(5); ok {
		t.Fatal("expected no version visible before first commit")
	}
}

func TestVersionChainGCRetainsOldestLiveSnapshot(t *testing.T) {
	var c VersionChain[int]
	c.Install(10, 1)
	c.Install(20, 2)
	c.Install(30, 3)

	c.GC(15) // oldest live snapshot is 15: must still resolve via v@10
	if v, _, ok := c.Resolve(15); !ok || v != 1 {
		t.Fatalf("expected GC to retain version needed by snapshot 15, got v=%d ok=%v", v, ok)
	}
}

func TestSnapshotRegistryOldestLive(t *testing.T) {
	r := NewSnapshotRegistry()
	if got := r.OldestLive(100); got != 100 {
		t.Fatalf("expected fallback when empty, got %d", got)
	}
	r.Acquire(50)
	r.Acquire(70)
	if got := r.OldestLive(100); got != 50 {
		t.Fatalf("expected oldest live snapshot 50, got %d", got)
	}
	r.Release(50)
	if got := r.OldestLive(100); got != 70 {
		t.Fatalf("expected oldest live snapshot 70 after release, got %d", got)
	}
}

func TestClockMonotonic(t *testing.T) {
	c := NewClock()
	prev := c.Tick()
	for i := 0; i < 1000; i++ {
		next := c.Tick()
		if next <= prev {
			t.Fatalf("expected strictly increasing ticks, got %d then %d", prev, next)
		}
		prev = next
	}
}
