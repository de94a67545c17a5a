package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/vault"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"
)

// TestContainers holds references to test containers
type TestContainers struct {
	PostgresContainer *postgres.PostgresContainer
	VaultContainer    *vault.VaultContainer
	DB                *sql.DB
	DBConnString      string
	VaultToken        string
	VaultAddr         string
	JWTSecret         string
}

// SetupTestContainers starts PostgreSQL with the schema applied. Vault is
// started separately by SetupVault because most tests do not need it.
func SetupTestContainers(t *testing.T) *TestContainers {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:18",
		postgres.WithDatabase("appraisal_test"),
		postgres.WithUsername("appraisal_test"),
		postgres.WithPassword("appraisal_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestContainers{
		PostgresContainer: postgresContainer,
		DB:                db,
		DBConnString:      connStr,
		JWTSecret:         "test-secret-key-for-testing-only",
	}
}

// SetupVault starts a Vault dev container for sealing tests
func (tc *TestContainers) SetupVault(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	vaultContainer, err := vault.Run(ctx,
		"hashicorp/vault:1.15",
		vault.WithToken("test-token"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Vault server started!").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start Vault container: %v", err)
	}

	vaultAddr, err := vaultContainer.HttpHostAddress(ctx)
	if err != nil {
		t.Fatalf("Failed to get Vault address: %v", err)
	}

	tc.VaultContainer = vaultContainer
	tc.VaultToken = "test-token"
	tc.VaultAddr = fmt.Sprintf("http://%s", vaultAddr)
}

// Cleanup terminates all test containers
func (tc *TestContainers) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if tc.DB != nil {
		tc.DB.Close()
	}

	if tc.PostgresContainer != nil {
		if err := tc.PostgresContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	if tc.VaultContainer != nil {
		if err := tc.VaultContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate Vault container: %v", err)
		}
	}
}

// runMigrations applies the *.up.sql files in order
func runMigrations(db *sql.DB) error {
	migrationsDir := filepath.Join("..", "..", "migrations")

	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		migrationsDir = filepath.Join("..", "..", "..", "migrations")
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to find migration files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	return nil
}
