// Package main provides the Samyama CLI entry point.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samyama/samyama/pkg/config"
	"github.com/samyama/samyama/pkg/engine"
	"github.com/samyama/samyama/pkg/samyamaerr"
	"github.com/samyama/samyama/pkg/tenant"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "samyama",
		Short: "Samyama - an embeddable property-graph database",
		Long: `Samyama is an in-memory property-graph database with durable
persistence, a Cypher-subset query engine, and tenant-scoped isolation.

Features:
  • Cypher-subset query language (MATCH/CREATE/MERGE/SET/DELETE/WITH/CALL)
  • Multi-tenant quotas and isolation
  • Write-ahead log + snapshot durability
  • EXPLAIN/PROFILE query introspection`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("samyama v%s\n", version)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new Samyama data directory",
		RunE:  runInit,
	}
	initCmd.Flags().String("data-dir", "./data", "Data directory")
	rootCmd.AddCommand(initCmd)

	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive Cypher shell against an embedded store",
		RunE:  runShell,
	}
	shellCmd.Flags().String("data-dir", "", "Data directory (empty for in-memory only)")
	shellCmd.Flags().String("tenant", "default", "Tenant id to run statements against")
	rootCmd.AddCommand(shellCmd)

	tenantCmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant lifecycle operations",
	}
	createTenantCmd := &cobra.Command{
		Use:   "create <id> <name>",
		Short: "Create a tenant",
		Args:  cobra.ExactArgs(2),
		RunE:  runTenantCreate,
	}
	createTenantCmd.Flags().String("data-dir", "", "Data directory (empty for in-memory only)")
	createTenantCmd.Flags().Int64("max-nodes", 0, "Node quota (0 = unlimited)")
	createTenantCmd.Flags().Int64("max-edges", 0, "Edge quota (0 = unlimited)")
	tenantCmd.AddCommand(createTenantCmd)

	deleteTenantCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tenant",
		Args:  cobra.ExactArgs(1),
		RunE:  runTenantDelete,
	}
	deleteTenantCmd.Flags().String("data-dir", "", "Data directory (empty for in-memory only)")
	tenantCmd.AddCommand(deleteTenantCmd)

	listTenantsCmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE:  runTenantList,
	}
	listTenantsCmd.Flags().String("data-dir", "", "Data directory (empty for in-memory only)")
	tenantCmd.AddCommand(listTenantsCmd)
	rootCmd.AddCommand(tenantCmd)

	checkpointCmd := &cobra.Command{
		Use:   "checkpoint <tenant-id>",
		Short: "Force a checkpoint of a tenant's store",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheckpoint,
	}
	checkpointCmd.Flags().String("data-dir", "", "Data directory")
	rootCmd.AddCommand(checkpointCmd)

	flushCmd := &cobra.Command{
		Use:   "flush-indices <tenant-id>",
		Short: "Drain a tenant's async property-index queue",
		Args:  cobra.ExactArgs(1),
		RunE:  runFlushIndices,
	}
	flushCmd.Flags().String("data-dir", "", "Data directory")
	rootCmd.AddCommand(flushCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDBWithDataDir(dataDir string) (*engine.DB, error) {
	cfg := config.LoadFromEnv()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return engine.Open(cfg)
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	fmt.Printf("📂 Initializing Samyama data directory in %s\n", dataDir)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dataDir, err)
	}

	db, err := openDBWithDataDir(dataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	fmt.Println("✅ Data directory initialized successfully")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Create a tenant:  samyama tenant create default \"Default Tenant\" --data-dir", dataDir)
	fmt.Println("  2. Open a shell:     samyama shell --data-dir", dataDir, "--tenant default")
	return nil
}

func runTenantCreate(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	maxNodes, _ := cmd.Flags().GetInt64("max-nodes")
	maxEdges, _ := cmd.Flags().GetInt64("max-edges")

	db, err := openDBWithDataDir(dataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	quotas := tenant.Unlimited()
	quotas.MaxNodes = maxNodes
	quotas.MaxEdges = maxEdges

	rec, err := db.CreateTenant(tenant.ID(args[0]), args[1], quotas)
	if err != nil {
		return fmt.Errorf("creating tenant: %w", err)
	}
	fmt.Printf("✅ Created tenant %q (%s)\n", rec.ID, rec.Name)
	return nil
}

func runTenantDelete(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	db, err := openDBWithDataDir(dataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.DeleteTenant(tenant.ID(args[0])); err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}
	fmt.Printf("✅ Deleted tenant %q\n", args[0])
	return nil
}

func runTenantList(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	db, err := openDBWithDataDir(dataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	recs := db.ListTenants()
	if len(recs) == 0 {
		fmt.Println("(no tenants)")
		return nil
	}
	for _, rec := range recs {
		fmt.Printf("%-20s %-24s nodes=%d edges=%d\n", rec.ID, rec.Name, rec.Usage.Nodes, rec.Usage.Edges)
	}
	return nil
}

func runCheckpoint(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	db, err := openDBWithDataDir(dataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Checkpoint(tenant.ID(args[0])); err != nil {
		return fmt.Errorf("checkpointing tenant %q: %w", args[0], err)
	}
	fmt.Printf("✅ Checkpointed tenant %q\n", args[0])
	return nil
}

func runFlushIndices(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	db, err := openDBWithDataDir(dataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.FlushIndices(tenant.ID(args[0])); err != nil {
		return fmt.Errorf("flushing indices for tenant %q: %w", args[0], err)
	}
	fmt.Printf("✅ Flushed indices for tenant %q\n", args[0])
	return nil
}

// runShell implements an interactive Cypher REPL against an embedded
// engine.DB. Lines are executed as Cypher by default; a leading
// "explain " or "profile " prefix routes the rest of the line through
// Explain/Profile instead of Execute.
func runShell(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	tenantID := tenant.ID(mustString(cmd, "tenant"))

	db, err := openDBWithDataDir(dataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if _, err := db.CreateTenant(tenantID, string(tenantID), tenant.Unlimited()); err != nil && samyamaerr.KindOf(err) != samyamaerr.KindIntegrity {
		return fmt.Errorf("creating tenant %q: %w", tenantID, err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 bye")
		os.Exit(0)
	}()

	fmt.Printf("🔌 samyama shell — tenant %q\n", tenantID)
	fmt.Println("Type Cypher statements, 'explain <query>', 'profile <query>', or 'exit'.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("samyama> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(strings.ToLower(line), "explain "):
			text, err := db.Explain(tenantID, line[len("explain "):])
			if err != nil {
				fmt.Printf("❌ %v\n", err)
			} else {
				fmt.Println(text)
			}
		case strings.HasPrefix(strings.ToLower(line), "profile "):
			result, err := db.Profile(tenantID, line[len("profile "):])
			if err != nil {
				fmt.Printf("❌ %v\n", err)
			} else {
				printBatch(result.Batch)
				for _, s := range result.Stats {
					fmt.Printf("  %s rows=%d ms=%.3f\n", s.Describe, s.Rows, float64(s.Nanos)/1e6)
				}
			}
		default:
			batch, err := db.Execute(tenantID, line)
			if err != nil {
				fmt.Printf("❌ %v\n", err)
			} else {
				printBatch(batch)
			}
		}
		fmt.Print("samyama> ")
	}
	fmt.Println()
	return scanner.Err()
}

func printBatch(batch engine.Batch) {
	if len(batch.Records) == 0 {
		fmt.Println("(0 rows)")
		return
	}
	fmt.Println(strings.Join(batch.Columns, " | "))
	for _, rec := range batch.Records {
		cells := make([]string, len(rec))
		for i, v := range rec {
			cells[i] = fmt.Sprintf("%v", v)
		}
		fmt.Println(strings.Join(cells, " | "))
	}
	fmt.Printf("(%d rows)\n", len(batch.Records))
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
