// Package tenant implements the tenant registry and quota enforcement of
// §4.7: each tenant owns one graph store, one WAL partition, and one set of
// quotas/usage counters, isolated from every other tenant.
package tenant

import (
	"sync"
	"time"

	"github.com/samyama/samyama/pkg/samyamaerr"
)

// ID identifies a tenant. Administratively assigned, not auto-generated,
// since tenants correspond to external accounts/deployments.
type ID string

// Quotas bounds one tenant's resource consumption (§4.7).
type Quotas struct {
	MaxNodes        int64
	MaxEdges        int64
	MaxStorageBytes int64
	MaxConnections  int
	MaxQueryTime    time.Duration
}

// Unlimited returns a Quotas with no enforced bounds, used for the default
// administrative tenant and in tests that don't care about quota edges.
func Unlimited() Quotas {
	return Quotas{
		MaxNodes:        0,
		MaxEdges:        0,
		MaxStorageBytes: 0,
		MaxConnections:  0,
		MaxQueryTime:    0,
	}
}

// Usage tracks one tenant's current resource consumption. Node and edge
// counts are exact; ApproxStorageBytes is, per §4.7, approximate — derived
// from serialized record sizes rather than tracked precisely per write.
type Usage struct {
	Nodes              int64
	Edges              int64
	ApproxStorageBytes int64
	Connections        int
}

// Record is one tenant's registry entry: identity, quotas, live usage, and
// administrative state.
type Record struct {
	ID        ID
	Name      string
	Enabled   bool
	Quotas    Quotas
	Usage     Usage
	CreatedAt time.Time

	// sessions is a reference count of live connections/sessions bound to
	// this tenant; DeleteTenant (§3 Lifecycle) refuses while this is > 0.
	sessions int
}

// Registry is the shared-metadata partition's in-memory view (§4.6): the
// tenant directory itself, plus the usage accounting that every write
// operation consults before mutating a tenant's store.
type Registry struct {
	mu      sync.Mutex
	tenants map[ID]*Record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tenants: make(map[ID]*Record)}
}

// Create registers a new tenant. Returns samyamaerr.KindIntegrity if the id
// is already registered.
func (r *Registry) Create(id ID, name string, quotas Quotas) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tenants[id]; exists {
		return nil, samyamaerr.New(samyamaerr.KindIntegrity, "tenant already exists: "+string(id))
	}

	rec := &Record{
		ID:        id,
		Name:      name,
		Enabled:   true,
		Quotas:    quotas,
		CreatedAt: time.Now().UTC(),
	}
	r.tenants[id] = rec
	return rec, nil
}

// RestoreRecord re-registers a tenant from a persisted record (§4.6
// startup reload), bypassing the "already exists" check Create enforces
// and the CreatedAt/Enabled defaults it applies — the persisted record
// already carries both.
func (r *Registry) RestoreRecord(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[rec.ID] = rec
}

// Delete removes a tenant. Forbidden while any session references it
// (§3 Lifecycle), reported as a concurrency-kind error since it is a
// transient precondition, not a structural integrity problem.
func (r *Registry) Delete(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tenants[id]
	if !ok {
		return samyamaerr.New(samyamaerr.KindIntegrity, "unknown tenant: "+string(id))
	}
	if rec.sessions > 0 {
		return samyamaerr.New(samyamaerr.KindConcurrency, "tenant has active sessions: "+string(id))
	}
	delete(r.tenants, id)
	return nil
}

// Get returns the tenant record, or an integrity error if unknown.
func (r *Registry) Get(id ID) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tenants[id]
	if !ok {
		return nil, samyamaerr.New(samyamaerr.KindIntegrity, "unknown tenant: "+string(id))
	}
	return rec, nil
}

// List returns a snapshot of every registered tenant record.
func (r *Registry) List() []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Record, 0, len(r.tenants))
	for _, rec := range r.tenants {
		out = append(out, rec)
	}
	return out
}

// AcquireSession increments the tenant's session count, enforcing
// MaxConnections. Call ReleaseSession when the session ends.
func (r *Registry) AcquireSession(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tenants[id]
	if !ok {
		return samyamaerr.New(samyamaerr.KindIntegrity, "unknown tenant: "+string(id))
	}
	if rec.Quotas.MaxConnections > 0 && rec.Usage.Connections >= rec.Quotas.MaxConnections {
		return samyamaerr.Quota
	}
	rec.sessions++
	rec.Usage.Connections++
	return nil
}

// ReleaseSession decrements the tenant's session count.
func (r *Registry) ReleaseSession(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tenants[id]
	if !ok {
		return
	}
	if rec.sessions > 0 {
		rec.sessions--
	}
	if rec.Usage.Connections > 0 {
		rec.Usage.Connections--
	}
}

// CheckAndReserveNodes verifies that creating n more nodes would not exceed
// the tenant's quota and, if so, reserves the usage inline (§4.7: usage
// counters are updated inline with the mutation). Callers reverse the
// reservation with ReleaseNodes if the enclosing write subsequently fails
// for an unrelated reason (e.g. missing edge endpoint), keeping P6
// (usage ≤ quota, unchanged store on rejected writes) true even when the
// quota check itself passes but the write later aborts.
func (r *Registry) CheckAndReserveNodes(id ID, n int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tenants[id]
	if !ok {
		return samyamaerr.New(samyamaerr.KindIntegrity, "unknown tenant: "+string(id))
	}
	if rec.Quotas.MaxNodes > 0 && rec.Usage.Nodes+n > rec.Quotas.MaxNodes {
		return samyamaerr.Quota
	}
	rec.Usage.Nodes += n
	return nil
}

// ReleaseNodes reverses a reservation made by CheckAndReserveNodes.
func (r *Registry) ReleaseNodes(id ID, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.tenants[id]; ok {
		rec.Usage.Nodes -= n
	}
}

// CheckAndReserveEdges is CheckAndReserveNodes' edge-count counterpart.
func (r *Registry) CheckAndReserveEdges(id ID, n int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tenants[id]
	if !ok {
		return samyamaerr.New(samyamaerr.KindIntegrity, "unknown tenant: "+string(id))
	}
	if rec.Quotas.MaxEdges > 0 && rec.Usage.Edges+n > rec.Quotas.MaxEdges {
		return samyamaerr.Quota
	}
	rec.Usage.Edges += n
	return nil
}

// ReleaseEdges reverses a reservation made by CheckAndReserveEdges.
func (r *Registry) ReleaseEdges(id ID, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.tenants[id]; ok {
		rec.Usage.Edges -= n
	}
}

// AddStorageBytes adjusts the approximate storage usage counter, which may
// go negative transiently on deletes before settling — callers clamp
// display values, not this counter, to keep the arithmetic simple.
func (r *Registry) AddStorageBytes(id ID, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.tenants[id]; ok {
		rec.Usage.ApproxStorageBytes += delta
	}
}

// UsageExceedsStorageQuota reports whether the tenant is currently over its
// storage budget, consulted by the write path as a pre-check for the *next*
// mutation (storage accounting itself cannot be exact inline, per §4.7).
func (r *Registry) UsageExceedsStorageQuota(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tenants[id]
	if !ok {
		return false
	}
	return rec.Quotas.MaxStorageBytes > 0 && rec.Usage.ApproxStorageBytes > rec.Quotas.MaxStorageBytes
}

// QueryTimeout returns the tenant's configured max query time, or the
// supplied default if unset (§6 config: default_query_timeout_ms).
func (r *Registry) QueryTimeout(id ID, fallback time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tenants[id]
	if !ok || rec.Quotas.MaxQueryTime <= 0 {
		return fallback
	}
	return rec.Quotas.MaxQueryTime
}
