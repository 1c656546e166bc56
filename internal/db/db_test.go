package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBootstrapAppliesMigrationsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	first, err := Bootstrap(ctx, dbPath)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	first.Close()

	second, err := Bootstrap(ctx, dbPath)
	if err != nil {
		t.Fatalf("bootstrap again: %v", err)
	}
	defer second.Close()

	applied, err := AppliedMigrations(ctx, second)
	if err != nil {
		t.Fatalf("applied migrations: %v", err)
	}
	want := []string{"migrations/0001_schemes.sql", "migrations/0002_color_channels.sql"}
	if diff := cmp.Diff(want, applied); diff != "" {
		t.Fatalf("unexpected migrations (-want +got):\n%s", diff)
	}
}

func TestBootstrapMemoryKeepsOneDatabase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := BootstrapMemory(ctx)
	if err != nil {
		t.Fatalf("bootstrap memory: %v", err)
	}
	defer database.Close()

	if _, err := database.ExecContext(
		ctx,
		"INSERT INTO schemes(seed_hex, algorithm, weights_json, strategy_json, options_json, target_count) VALUES ('#000000', 'cie76', '{}', '{}', '{}', 1)",
	); err != nil {
		t.Fatalf("insert scheme: %v", err)
	}

	var count int
	if err := database.QueryRowContext(ctx, "SELECT COUNT(1) FROM schemes").Scan(&count); err != nil {
		t.Fatalf("count schemes: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the inserted scheme to be visible, got %d", count)
	}
	if err := checkHistoryTables(ctx, database); err != nil {
		t.Fatalf("history tables: %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("expected empty path error")
	}
}
