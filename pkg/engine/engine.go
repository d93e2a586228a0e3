// Package engine wires together the graph store, the Cypher planner, the
// tenant registry, and the durability layer into the single surface §6
// names: engine.DB. Everything else in this module (pkg/graph, pkg/cypher,
// pkg/persist, pkg/tenant, pkg/concurrency) is a library; DB is the one
// stateful object a network adapter (Bolt, HTTP, whatever) embeds.
package engine

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/samyama/samyama/pkg/concurrency"
	"github.com/samyama/samyama/pkg/config"
	"github.com/samyama/samyama/pkg/cypher"
	"github.com/samyama/samyama/pkg/graph"
	"github.com/samyama/samyama/pkg/persist"
	"github.com/samyama/samyama/pkg/plancache"
	"github.com/samyama/samyama/pkg/samyamaerr"
	"github.com/samyama/samyama/pkg/tenant"
	"github.com/samyama/samyama/pkg/types"
)

// engineMetrics holds the OTel instruments every DB shares. Registered
// against the global delegating provider at init time, so they forward to
// a real provider once the embedding process configures one and stay
// harmless no-ops otherwise.
var engineMetrics struct {
	queries  metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

func init() {
	m := otel.Meter("github.com/samyama/samyama/pkg/engine")
	engineMetrics.queries, _ = m.Int64Counter("samyama.queries",
		metric.WithDescription("Cypher statements executed"),
		metric.WithUnit("{query}"),
	)
	engineMetrics.errors, _ = m.Int64Counter("samyama.query_errors",
		metric.WithDescription("Cypher statements that returned an error"),
		metric.WithUnit("{query}"),
	)
	engineMetrics.duration, _ = m.Float64Histogram("samyama.query_duration_ms",
		metric.WithDescription("Wall-clock time to plan and execute a statement"),
		metric.WithUnit("ms"),
	)
}

// tenantState bundles one tenant's store with the concurrency primitives
// bound to it for its lifetime (§4.8): a single Guard serializes
// readers/writers, a single Clock stamps commit timestamps, and — only
// when MVCC is enabled — a SnapshotRegistry tracks outstanding statement
// snapshots. No GC sweep reads the registry back.
//
// Per-entity version chains (concurrency.VersionChain) are not wired into
// graph.Store itself: see DESIGN.md's MVCC entry for why statement-level
// snapshotting, not a per-node/edge chain rewrite of Store, is what this
// build exercises.
type tenantState struct {
	store     *graph.Store
	guard     *concurrency.Guard
	clock     *concurrency.Clock
	snapshots *concurrency.SnapshotRegistry // nil unless cfg.MVCCEnabled
}

// DB is the embeddable core database (§6): tenant lifecycle, query
// execution, and checkpointing, backed by one shared WAL and one shared
// BadgerDB metadata partition when cfg.DataDir is set.
type DB struct {
	cfg      *config.Config
	registry *tenant.Registry

	wal  *persist.WAL         // nil when running purely in-memory
	meta *persist.BadgerStore // nil when running purely in-memory

	// parseCache holds recently parsed queries, shared across every
	// tenant since Cypher grammar has no tenant-scoped dialect (§4.3).
	parseCache *plancache.Cache

	mu      sync.RWMutex
	tenants map[tenant.ID]*tenantState

	stopBg chan struct{}
	bgWg   sync.WaitGroup
}

// Open brings up a DB from cfg: opens the WAL and metadata partition (if
// cfg.DataDir is set), reloads every persisted tenant and recovers its
// store from snapshot+WAL, and starts the background sync/checkpoint
// loop.
func Open(cfg *config.Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, samyamaerr.Wrap(samyamaerr.KindInternal, "invalid configuration", err)
	}

	db := &DB{
		cfg:        cfg,
		registry:   tenant.NewRegistry(),
		parseCache: plancache.New(cfg.ParseCacheSize, cfg.ParseCacheTTL),
		tenants:    make(map[tenant.ID]*tenantState),
		stopBg:     make(chan struct{}),
	}

	if cfg.DataDir != "" {
		syncMode := persist.SyncImmediate
		switch cfg.Durability {
		case config.DurabilityInterval:
			syncMode = persist.SyncBatch
		case config.DurabilityNever:
			syncMode = persist.SyncNone
		}
		wal, err := persist.OpenWAL(filepath.Join(cfg.DataDir, "wal"), syncMode)
		if err != nil {
			return nil, err
		}
		db.wal = wal

		meta, err := persist.OpenBadgerStore(persist.BadgerOptions{
			DataDir:    filepath.Join(cfg.DataDir, "meta"),
			SyncWrites: cfg.Durability == config.DurabilitySyncEveryWrite,
		})
		if err != nil {
			db.wal.Close()
			return nil, err
		}
		db.meta = meta

		if err := db.reloadTenants(); err != nil {
			db.meta.Close()
			db.wal.Close()
			return nil, err
		}
	}

	db.bgWg.Add(1)
	go db.backgroundLoop()

	return db, nil
}

// Close stops the background loop, closes every tenant store (stopping
// its index pipeline worker), and releases the WAL and metadata handles.
func (db *DB) Close() error {
	close(db.stopBg)
	db.bgWg.Wait()

	db.mu.Lock()
	for _, ts := range db.tenants {
		ts.store.Close()
	}
	db.mu.Unlock()

	var firstErr error
	if db.meta != nil {
		if err := db.meta.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if db.wal != nil {
		if err := db.wal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// backgroundLoop drives periodic WAL sync (interval durability) and
// periodic checkpointing of every tenant, mirroring the teacher's
// background-flush goroutine shape (nornicdb/pkg/storage engine).
func (db *DB) backgroundLoop() {
	defer db.bgWg.Done()

	var syncTick <-chan time.Time
	if db.wal != nil && db.cfg.Durability == config.DurabilityInterval {
		t := time.NewTicker(db.cfg.SyncInterval)
		defer t.Stop()
		syncTick = t.C
	}

	var checkpointTick <-chan time.Time
	if db.wal != nil && db.cfg.CheckpointIntervalS > 0 {
		t := time.NewTicker(time.Duration(db.cfg.CheckpointIntervalS) * time.Second)
		defer t.Stop()
		checkpointTick = t.C
	}

	for {
		select {
		case <-db.stopBg:
			return
		case <-syncTick:
			db.wal.Sync()
		case <-checkpointTick:
			for _, rec := range db.registry.List() {
				db.Checkpoint(rec.ID)
			}
		}
	}
}

// ---------------------------------------------------------------------
// Tenant lifecycle (§6 create_tenant/delete_tenant/list_tenants)
// ---------------------------------------------------------------------

// CreateTenant registers a new tenant and brings up its store, recovering
// from a prior checkpoint+WAL if one exists under cfg.DataDir (a tenant id
// reused after a delete otherwise comes back empty).
func (db *DB) CreateTenant(id tenant.ID, name string, quotas tenant.Quotas) (*tenant.Record, error) {
	rec, err := db.registry.Create(id, name, quotas)
	if err != nil {
		return nil, err
	}
	if err := db.persistTenantRecord(rec); err != nil {
		db.registry.Delete(id)
		return nil, err
	}
	if _, err := db.openTenantStore(id); err != nil {
		db.registry.Delete(id)
		return nil, err
	}
	return rec, nil
}

// DeleteTenant removes a tenant's registry entry, store, and persisted
// metadata. Refuses while the tenant has live sessions (tenant.Registry.
// Delete's own precondition); does not delete the tenant's on-disk
// snapshot/WAL records, since the shared WAL file holds every tenant's
// history interleaved and truncating one tenant's slice out of it is not
// supported (§4.6 treats the WAL as append-only truth). Does not touch
// db.parseCache: a cached AST is keyed on query text alone and Cypher
// grammar has no tenant-scoped dialect, so nothing about this tenant's
// deletion can make another tenant's cache entry stale.
func (db *DB) DeleteTenant(id tenant.ID) error {
	if err := db.registry.Delete(id); err != nil {
		return err
	}

	db.mu.Lock()
	ts, ok := db.tenants[id]
	delete(db.tenants, id)
	db.mu.Unlock()
	if ok {
		ts.store.Close()
	}

	if db.meta != nil {
		if err := db.meta.Delete(persist.TenantRecordKey(string(id))); err != nil {
			return err
		}
	}
	return nil
}

// ListTenants returns every registered tenant's record.
func (db *DB) ListTenants() []*tenant.Record {
	return db.registry.List()
}

func (db *DB) persistTenantRecord(rec *tenant.Record) error {
	if db.meta == nil {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "marshal tenant record", err)
	}
	return db.meta.Set(persist.TenantRecordKey(string(rec.ID)), raw)
}

// reloadTenants restores every persisted tenant record and its store at
// startup, scanning the metadata partition's tenant-record prefix (§4.6).
func (db *DB) reloadTenants() error {
	if db.meta == nil {
		return nil
	}
	var recs []*tenant.Record
	err := db.meta.ScanPrefix(persist.TenantMetaPrefix(), func(_, value []byte) error {
		var rec tenant.Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return samyamaerr.Wrap(samyamaerr.KindPersistence, "unmarshal tenant record", err)
		}
		recs = append(recs, &rec)
		return nil
	})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		db.registry.RestoreRecord(rec)
		if _, err := db.openTenantStore(rec.ID); err != nil {
			return err
		}
	}
	return nil
}

// openTenantStore brings up (or recovers) a tenant's graph.Store and binds
// it to a fresh tenantState, installing the WAL-writing mutation listener
// when durability is enabled.
func (db *DB) openTenantStore(id tenant.ID) (*tenantState, error) {
	opts := graph.Options{IndexQueueCapacity: db.cfg.IndexQueueCapacity}

	var store *graph.Store
	if db.wal != nil {
		snapshotPath := filepath.Join(db.cfg.DataDir, "snapshots", string(id)+".json")
		recovered, err := persist.RecoverFromWAL(string(id), filepath.Join(db.cfg.DataDir, "wal"), snapshotPath, opts)
		if err != nil {
			return nil, err
		}
		store = recovered
	} else {
		store = graph.New(opts)
	}

	ts := &tenantState{
		store: store,
		guard: concurrency.NewGuard(),
		clock: concurrency.NewClock(),
	}
	if db.cfg.MVCCEnabled {
		ts.snapshots = concurrency.NewSnapshotRegistry()
	}
	if db.wal != nil {
		store.SetMutationListener(db.walListener(id))
	}

	db.mu.Lock()
	db.tenants[id] = ts
	db.mu.Unlock()
	return ts, nil
}

func (db *DB) getTenant(id tenant.ID) (*tenantState, error) {
	db.mu.RLock()
	ts, ok := db.tenants[id]
	db.mu.RUnlock()
	if !ok {
		return nil, samyamaerr.New(samyamaerr.KindIntegrity, "unknown tenant: "+string(id))
	}
	return ts, nil
}

// ---------------------------------------------------------------------
// WAL translation
// ---------------------------------------------------------------------

// walListener returns a graph.MutationListener that translates a Store
// event into the matching persist.OperationType and appends it to the
// shared WAL under this tenant's partition (§4.6). EventNodeCreated and
// EventEdgeCreated carry only identity/labels in their payload, so the
// listener reads the properties back from the store — safe to do here
// since the mutating method has already released its internal locks by
// the time notifyMutation runs.
func (db *DB) walListener(id tenant.ID) graph.MutationListener {
	tenantStr := string(id)
	return func(ev graph.Event) error {
		op, data, err := mutationRecord(db, tenantStr, ev)
		if err != nil {
			return err
		}
		if op == "" {
			return nil
		}
		return db.wal.Append(tenantStr, op, data)
	}
}

func mutationRecord(db *DB, tenantStr string, ev graph.Event) (persist.OperationType, any, error) {
	ts, err := db.getTenant(tenant.ID(tenantStr))
	if err != nil {
		return "", nil, err
	}
	store := ts.store

	switch ev.Kind {
	case graph.EventNodeCreated:
		n, err := store.GetNode(ev.Node.ID)
		if err != nil {
			return "", nil, err
		}
		labels := make([]string, 0, len(n.Labels))
		for _, sym := range n.Labels {
			labels = append(labels, store.Symbols.Name(sym))
		}
		return persist.OpCreateNode, struct {
			ID         uint64                 `json:"id"`
			Labels     []string               `json:"labels"`
			Properties map[string]types.Value `json:"properties"`
		}{uint64(n.ID), labels, n.Properties}, nil

	case graph.EventNodeDeleted:
		return persist.OpDeleteNode, struct {
			ID uint64 `json:"id"`
		}{uint64(ev.Node.ID)}, nil

	case graph.EventEdgeCreated:
		e, err := store.GetEdge(ev.Edge.ID)
		if err != nil {
			return "", nil, err
		}
		return persist.OpCreateEdge, struct {
			ID         uint64                 `json:"id"`
			Source     uint64                 `json:"source"`
			Target     uint64                 `json:"target"`
			Type       string                 `json:"type"`
			Properties map[string]types.Value `json:"properties"`
		}{uint64(e.ID), uint64(e.Source), uint64(e.Target), store.Symbols.Name(e.Type), e.Properties}, nil

	case graph.EventEdgeDeleted:
		return persist.OpDeleteEdge, struct {
			ID uint64 `json:"id"`
		}{uint64(ev.Edge.ID)}, nil

	case graph.EventPropertyUpdated:
		return persist.OpSetProperty, struct {
			Node  uint64      `json:"node"`
			Key   string      `json:"key"`
			Value types.Value `json:"value"`
		}{uint64(ev.Property.Node), ev.Property.Key, ev.Property.New}, nil

	case graph.EventPropertyRemoved:
		return persist.OpRemoveProperty, struct {
			Node uint64 `json:"node"`
			Key  string `json:"key"`
		}{uint64(ev.Property.Node), ev.Property.Key}, nil

	case graph.EventEdgePropertyUpdated:
		return persist.OpSetEdgeProperty, struct {
			Edge  uint64      `json:"edge"`
			Key   string      `json:"key"`
			Value types.Value `json:"value"`
		}{uint64(ev.EdgeProperty.Edge), ev.EdgeProperty.Key, ev.EdgeProperty.New}, nil

	case graph.EventEdgePropertyRemoved:
		return persist.OpRemoveEdgeProperty, struct {
			Edge uint64 `json:"edge"`
			Key  string `json:"key"`
		}{uint64(ev.EdgeProperty.Edge), ev.EdgeProperty.Key}, nil

	case graph.EventLabelAdded:
		return persist.OpAddLabel, struct {
			Node  uint64 `json:"node"`
			Label string `json:"label"`
		}{uint64(ev.Label.Node), store.Symbols.Name(ev.Label.Label)}, nil

	case graph.EventLabelRemoved:
		return persist.OpRemoveLabel, struct {
			Node  uint64 `json:"node"`
			Label string `json:"label"`
		}{uint64(ev.Label.Node), store.Symbols.Name(ev.Label.Label)}, nil
	}

	return "", nil, nil
}

// ---------------------------------------------------------------------
// Query execution (§6 execute/explain/profile)
// ---------------------------------------------------------------------

// NodeResult and EdgeResult are the opaque reference variants §6's result
// encoding calls for: a node/edge's identity plus its full label/property
// state, materialized once at result-assembly time rather than carried
// through the operator tree (which only ever passes NodeRef/EdgeRef ids).
type NodeResult struct {
	ID         uint64                 `json:"id"`
	Labels     []string               `json:"labels"`
	Properties map[string]types.Value `json:"properties"`
}

type EdgeResult struct {
	ID         uint64                 `json:"id"`
	Source     uint64                 `json:"source"`
	Target     uint64                 `json:"target"`
	Type       string                 `json:"type"`
	Properties map[string]types.Value `json:"properties"`
}

// Batch is a query result: column names plus one vector of values per
// record, matching §6's result-encoding contract exactly.
type Batch struct {
	Columns []string
	Records [][]any
}

// ProfileResult pairs a query's Batch with the per-operator row/timing
// stats PROFILE reports (§6 profile).
type ProfileResult struct {
	Batch Batch
	Stats []cypher.ProfileStats
}

// Execute runs cypherText against tenant's store and returns its result
// batch.
func (db *DB) Execute(id tenant.ID, cypherText string) (Batch, error) {
	batch, _, err := db.run(id, cypherText, runModeExecute)
	return batch, err
}

// Explain plans cypherText without running it and returns the indented
// operator-tree description (§6 explain).
func (db *DB) Explain(id tenant.ID, cypherText string) (string, error) {
	_, text, err := db.run(id, cypherText, runModeExplain)
	return text, err
}

// Profile runs cypherText and returns its result batch plus per-operator
// {rows, milliseconds} stats (§6 profile).
func (db *DB) Profile(id tenant.ID, cypherText string) (ProfileResult, error) {
	batch, text, err := db.run(id, cypherText, runModeProfile)
	if err != nil {
		return ProfileResult{}, err
	}
	var stats []cypher.ProfileStats
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		return ProfileResult{}, samyamaerr.Wrap(samyamaerr.KindInternal, "decode profile stats", err)
	}
	return ProfileResult{Batch: batch, Stats: stats}, nil
}

// parseQuery parses cypherText, consulting the shared parse cache first so a
// statement text executed repeatedly only tokenizes and parses once.
func (db *DB) parseQuery(cypherText string) (*cypher.Query, error) {
	key := db.parseCache.Key(cypherText)
	if q, ok := db.parseCache.Get(key); ok {
		return q, nil
	}
	q, err := cypher.Parse(cypherText)
	if err != nil {
		return nil, err
	}
	db.parseCache.Put(key, q)
	return q, nil
}

type runMode int

const (
	runModeExecute runMode = iota
	runModeExplain
	runModeProfile
)

// run is the shared implementation behind Execute/Explain/Profile: parse,
// plan, acquire the right guard token, execute (or just describe), record
// OTel metrics, and release. Returning the profile stats as a JSON string
// through the same channel as Explain's text keeps this one function
// covering all three public methods without a four-way return signature.
func (db *DB) run(id tenant.ID, cypherText string, mode runMode) (Batch, string, error) {
	start := time.Now()
	var opErr error
	defer func() {
		elapsed := time.Since(start)
		ctx := context.Background()
		engineMetrics.queries.Add(ctx, 1)
		engineMetrics.duration.Record(ctx, float64(elapsed.Microseconds())/1000.0)
		if opErr != nil {
			engineMetrics.errors.Add(ctx, 1)
		}
	}()

	ts, err := db.getTenant(id)
	if err != nil {
		opErr = err
		return Batch{}, "", err
	}

	query, err := db.parseQuery(cypherText)
	if err != nil {
		opErr = err
		return Batch{}, "", err
	}

	deadline := db.registry.QueryTimeout(id, db.cfg.DefaultQueryTimeout)
	cutoff := time.Now().Add(deadline)

	// The guard covers planning too, not just execution (§4.8: "one Guard
	// acquisition for its entire lifetime"), since Build consults the
	// store's live indices to choose a scan strategy.
	isWrite := query.IsWrite()
	var release func()
	if isWrite {
		tok := ts.guard.AcquireWrite()
		release = tok.Release
	} else {
		tok := ts.guard.AcquireRead()
		release = tok.Release
	}
	defer release()

	plan := &cypher.Plan{Store: ts.store, MaxVLPathHops: db.cfg.MaxVLPathHops}
	result, err := plan.Build(query)
	if err != nil {
		opErr = err
		return Batch{}, "", err
	}

	if mode == runModeExplain {
		return Batch{}, cypher.Explain(result.Root), nil
	}

	var snapshotTS int64
	if ts.snapshots != nil {
		snapshotTS = ts.clock.Now()
		ts.snapshots.Acquire(snapshotTS)
		defer ts.snapshots.Release(snapshotTS)
	}

	ec := &cypher.ExecContext{
		Store:  ts.store,
		Params: map[string]types.Value{},
		Deadline: func() error {
			if time.Now().After(cutoff) {
				return samyamaerr.New(samyamaerr.KindConcurrency, "query_timeout")
			}
			return nil
		},
	}
	// reservedNodes/reservedEdges count successful reservations made during
	// this statement so a failure partway through a multi-entity write can
	// release them again (§8 P6: a rejected write leaves usage, not just
	// store state, unchanged).
	var reservedNodes, reservedEdges int64
	if isWrite {
		ec.ReserveNode = func() error {
			if err := db.registry.CheckAndReserveNodes(id, 1); err != nil {
				return err
			}
			reservedNodes++
			return nil
		}
		ec.ReserveEdge = func() error {
			if err := db.registry.CheckAndReserveEdges(id, 1); err != nil {
				return err
			}
			reservedEdges++
			return nil
		}
	}

	var rows []cypher.Row
	var profileStats []cypher.ProfileStats
	if mode == runModeProfile {
		rows, profileStats, err = cypher.CollectProfile(ec, result.Root)
	} else {
		if err = result.Root.Reset(ec); err == nil {
			for {
				var row cypher.Row
				var ok bool
				row, ok, err = result.Root.Next(ec)
				if err != nil || !ok {
					break
				}
				rows = append(rows, row)
			}
		}
	}
	if err != nil {
		if reservedNodes > 0 {
			db.registry.ReleaseNodes(id, reservedNodes)
		}
		if reservedEdges > 0 {
			db.registry.ReleaseEdges(id, reservedEdges)
		}
		opErr = err
		return Batch{}, "", err
	}

	if isWrite {
		ts.clock.Tick()
	}

	batch := materialize(ts.store, rows)

	if mode == runModeProfile {
		raw, merr := json.Marshal(profileStats)
		if merr != nil {
			opErr = merr
			return Batch{}, "", samyamaerr.Wrap(samyamaerr.KindInternal, "encode profile stats", merr)
		}
		return batch, string(raw), nil
	}
	return batch, "", nil
}

// materialize turns a slice of operator Rows into the column-major Batch
// shape §6 specifies, resolving every NodeRef/EdgeRef into a full
// NodeResult/EdgeResult at the boundary — the one place in this codebase
// that gives up on late materialization, since the result has to leave the
// process as concrete data either way.
func materialize(store *graph.Store, rows []cypher.Row) Batch {
	colSet := map[string]bool{}
	var columns []string
	for _, row := range rows {
		for k := range row {
			if !colSet[k] {
				colSet[k] = true
				columns = append(columns, k)
			}
		}
	}

	records := make([][]any, 0, len(rows))
	for _, row := range rows {
		rec := make([]any, len(columns))
		for i, col := range columns {
			rec[i] = resolveValue(store, row[col])
		}
		records = append(records, rec)
	}
	return Batch{Columns: columns, Records: records}
}

func resolveValue(store *graph.Store, v any) any {
	switch x := v.(type) {
	case cypher.NodeRef:
		n, err := store.GetNode(x.ID)
		if err != nil {
			return nil
		}
		labels := make([]string, 0, len(n.Labels))
		for _, sym := range n.Labels {
			labels = append(labels, store.Symbols.Name(sym))
		}
		return NodeResult{ID: uint64(n.ID), Labels: labels, Properties: n.Properties}
	case cypher.EdgeRef:
		e, err := store.GetEdge(x.ID)
		if err != nil {
			return nil
		}
		return EdgeResult{
			ID: uint64(e.ID), Source: uint64(e.Source), Target: uint64(e.Target),
			Type: store.Symbols.Name(e.Type), Properties: e.Properties,
		}
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = resolveValue(store, item)
		}
		return out
	default:
		return v
	}
}

// ---------------------------------------------------------------------
// Checkpoint / flush_indices (§6)
// ---------------------------------------------------------------------

// Checkpoint snapshots tenant's store to durable storage and records a
// checkpoint marker in the WAL so recovery can skip everything before it.
// A no-op, successfully, when running without a DataDir.
func (db *DB) Checkpoint(id tenant.ID) error {
	if db.wal == nil {
		return nil
	}
	ts, err := db.getTenant(id)
	if err != nil {
		return err
	}

	tok := ts.guard.AcquireWrite()
	defer tok.Release()

	seq := db.wal.Sequence()
	snapshotPath := filepath.Join(db.cfg.DataDir, "snapshots", string(id)+".json")
	if err := persist.CheckpointStore(ts.store, snapshotPath, seq); err != nil {
		return err
	}
	return db.wal.Checkpoint(string(id))
}

// FlushIndices blocks until tenant's async property-index pipeline has
// applied every mutation enqueued so far (§4.2, §8 P3).
func (db *DB) FlushIndices(id tenant.ID) error {
	ts, err := db.getTenant(id)
	if err != nil {
		return err
	}
	ts.store.FlushIndices()
	return nil
}

