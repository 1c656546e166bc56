package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory history.
const MemoryPath = ":memory:"

// historyTables must exist once migrations have run.
var historyTables = []string{"schemes", "scheme_colors"}

// Bootstrap opens the scheme history database, applies pending migrations
// and checks that the history tables are in place.
func Bootstrap(ctx context.Context, dbPath string) (*sql.DB, error) {
	database, err := Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	if err := checkHistoryTables(ctx, database); err != nil {
		database.Close()
		return nil, err
	}

	return database, nil
}

func BootstrapMemory(ctx context.Context) (*sql.DB, error) {
	return Bootstrap(ctx, MemoryPath)
}

func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("open sqlite: empty database path")
	}

	inMemory := dbPath == MemoryPath
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history db directory: %w", err)
		}
	}

	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// scheme_colors cascades on delete, so foreign keys are required.
	pragmas := []string{"PRAGMA foreign_keys=ON;", "PRAGMA busy_timeout=5000;"}
	if inMemory {
		// each pooled connection would see its own empty database
		database.SetMaxOpenConns(1)
	} else {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL;")
	}

	for _, pragma := range pragmas {
		if _, err := database.ExecContext(ctx, pragma); err != nil {
			database.Close()
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", pragma, err)
		}
	}

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return database, nil
}

func checkHistoryTables(ctx context.Context, database *sql.DB) error {
	for _, table := range historyTables {
		var count int
		if err := database.QueryRowContext(
			ctx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(&count); err != nil {
			return fmt.Errorf("check history table %s: %w", table, err)
		}
		if count == 0 {
			return fmt.Errorf("history table %s is missing after migrations", table)
		}
	}
	return nil
}
