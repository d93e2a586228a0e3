package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samyama/samyama/pkg/config"
	"github.com/samyama/samyama/pkg/samyamaerr"
	"github.com/samyama/samyama/pkg/tenant"
)

func memConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.DataDir = ""
	return cfg
}

func openTestDB(t *testing.T, cfg *config.Config) *DB {
	t.Helper()
	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateTenantThenExecuteRoundTrip(t *testing.T) {
	db := openTestDB(t, memConfig())

	_, err := db.CreateTenant("t1", "Tenant One", tenant.Unlimited())
	require.NoError(t, err)

	_, err = db.Execute("t1", `CREATE (:Person {name: 'Ada', age: 30})`)
	require.NoError(t, err)

	batch, err := db.Execute("t1", `MATCH (n:Person) RETURN n.name AS name`)
	require.NoError(t, err)
	assert.Len(t, batch.Records, 1)
}

func TestExecuteUnknownTenantIsIntegrityError(t *testing.T) {
	db := openTestDB(t, memConfig())

	_, err := db.Execute("ghost", `MATCH (n) RETURN n`)
	require.Error(t, err)
	assert.Equal(t, samyamaerr.KindIntegrity, samyamaerr.KindOf(err))
}

func TestDeleteTenantThenExecuteFails(t *testing.T) {
	db := openTestDB(t, memConfig())
	_, err := db.CreateTenant("t1", "x", tenant.Unlimited())
	require.NoError(t, err)

	require.NoError(t, db.DeleteTenant("t1"))

	_, err = db.Execute("t1", `MATCH (n) RETURN n`)
	assert.Error(t, err)
}

func TestListTenantsReflectsLifecycle(t *testing.T) {
	db := openTestDB(t, memConfig())
	_, err := db.CreateTenant("t1", "a", tenant.Unlimited())
	require.NoError(t, err)
	_, err = db.CreateTenant("t2", "b", tenant.Unlimited())
	require.NoError(t, err)

	assert.Len(t, db.ListTenants(), 2)

	require.NoError(t, db.DeleteTenant("t1"))
	assert.Len(t, db.ListTenants(), 1)
}

func TestExplainDescribesPlanWithoutExecuting(t *testing.T) {
	db := openTestDB(t, memConfig())
	_, err := db.CreateTenant("t1", "x", tenant.Unlimited())
	require.NoError(t, err)

	text, err := db.Explain("t1", `MATCH (n:Person) RETURN n`)
	require.NoError(t, err)
	assert.NotEmpty(t, text)

	batch, err := db.Execute("t1", `MATCH (n:Person) RETURN n`)
	require.NoError(t, err)
	assert.Empty(t, batch.Records, "Explain must not have executed the write/read")
}

func TestProfileReportsPerOperatorStats(t *testing.T) {
	db := openTestDB(t, memConfig())
	_, err := db.CreateTenant("t1", "x", tenant.Unlimited())
	require.NoError(t, err)
	_, err = db.Execute("t1", `CREATE (:Person {name: 'Ada'})`)
	require.NoError(t, err)

	result, err := db.Profile("t1", `MATCH (n:Person) RETURN n.name AS name`)
	require.NoError(t, err)
	assert.Len(t, result.Batch.Records, 1)
	assert.NotEmpty(t, result.Stats, "expected at least one operator's profile stats")
}

func TestNodeAndEdgeResultsAreMaterialized(t *testing.T) {
	db := openTestDB(t, memConfig())
	_, err := db.CreateTenant("t1", "x", tenant.Unlimited())
	require.NoError(t, err)
	_, err = db.Execute("t1", `CREATE (a:Person {name: 'Ada'})-[:KNOWS {since: 2020}]->(b:Person {name: 'Bob'})`)
	require.NoError(t, err)

	batch, err := db.Execute("t1", `MATCH (a:Person)-[r:KNOWS]->(b:Person) RETURN a, r, b`)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)

	rec := batch.Records[0]
	var gotNode, gotEdge bool
	for _, v := range rec {
		switch v.(type) {
		case NodeResult:
			gotNode = true
		case EdgeResult:
			gotEdge = true
		}
	}
	assert.True(t, gotNode, "expected at least one NodeResult in the record")
	assert.True(t, gotEdge, "expected an EdgeResult in the record")
}

func TestQuotaRejectsWriteAndLeavesUsageUnchanged(t *testing.T) {
	db := openTestDB(t, memConfig())
	q := tenant.Unlimited()
	q.MaxNodes = 1
	_, err := db.CreateTenant("t1", "limited", q)
	require.NoError(t, err)

	_, err = db.Execute("t1", `CREATE (:Person {name: 'Ada'})`)
	require.NoError(t, err)

	_, err = db.Execute("t1", `CREATE (:Person {name: 'Bob'})`)
	assert.ErrorIs(t, err, samyamaerr.Quota)

	rec, err := db.registry.Get("t1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.Usage.Nodes, "rejected write must leave usage unchanged")
}

func TestQuotaRollsBackPartialMultiNodeCreate(t *testing.T) {
	db := openTestDB(t, memConfig())
	q := tenant.Unlimited()
	q.MaxNodes = 1
	_, err := db.CreateTenant("t1", "limited", q)
	require.NoError(t, err)

	// A single CREATE clause with two new nodes: the first reservation
	// succeeds, the second is rejected by quota, and the whole statement
	// must fail without leaving the first reservation's usage counted.
	_, err = db.Execute("t1", `CREATE (:Person {name: 'Ada'}), (:Person {name: 'Bob'})`)
	assert.ErrorIs(t, err, samyamaerr.Quota)

	rec, err := db.registry.Get("t1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rec.Usage.Nodes, "expected reservation to be released on statement failure")
}

func TestCheckpointAndFlushIndicesAreNoOpWithoutDataDir(t *testing.T) {
	db := openTestDB(t, memConfig())
	_, err := db.CreateTenant("t1", "x", tenant.Unlimited())
	require.NoError(t, err)

	assert.NoError(t, db.Checkpoint("t1"))
	assert.NoError(t, db.FlushIndices("t1"))
}

func TestCheckpointAndReopenRecoversState(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	db, err := Open(cfg)
	require.NoError(t, err)
	_, err = db.CreateTenant("t1", "x", tenant.Unlimited())
	require.NoError(t, err)
	_, err = db.Execute("t1", `CREATE (:Person {name: 'Ada', age: 30})`)
	require.NoError(t, err)
	require.NoError(t, db.Checkpoint("t1"))
	require.NoError(t, db.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	batch, err := reopened.Execute("t1", `MATCH (n:Person) RETURN n.name AS name`)
	require.NoError(t, err)
	assert.Len(t, batch.Records, 1, "expected the checkpointed node to survive reopen")
}

func TestParseCacheServesRepeatedQueryText(t *testing.T) {
	db := openTestDB(t, memConfig())
	_, err := db.CreateTenant("t1", "x", tenant.Unlimited())
	require.NoError(t, err)

	const q = `MATCH (n:Person) RETURN n.name AS name`
	_, err = db.Execute("t1", q)
	require.NoError(t, err)
	_, err = db.Execute("t1", q)
	require.NoError(t, err)

	stats := db.parseCache.Stats()
	assert.GreaterOrEqual(t, stats.Hits, uint64(1), "second identical Execute should have hit the parse cache")
}
