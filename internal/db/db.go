package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"oneai/backend/internal/config"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

func Open(cfg config.Config) (*sql.DB, error) {
	dsn, err := buildDSN(cfg.DatabaseURL, cfg.DatabaseAuthToken)
	if err != nil {
		return nil, err
	}

	database, err := sql.Open(driverFor(dsn), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Every pooled connection to :memory: would see its own empty database.
	if isMemoryDSN(dsn) {
		database.SetMaxOpenConns(1)
	}

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return database, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, database *sql.DB) error {
	for _, stmt := range splitStatements(Schema) {
		if _, err := database.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// foreignKeysPragma is applied by modernc.org/sqlite on every new connection;
// the PRAGMA in schema.sql only reaches the connection that ran Migrate.
const foreignKeysPragma = "_pragma=foreign_keys(1)"

func driverFor(dsn string) string {
	if isLocalDSN(dsn) {
		return "sqlite"
	}
	return "libsql"
}

func isLocalDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "file:") || dsnPath(dsn) == ":memory:"
}

func isMemoryDSN(dsn string) bool {
	path := strings.TrimPrefix(dsnPath(dsn), "file:")
	return path == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func dsnPath(dsn string) string {
	path, _, _ := strings.Cut(dsn, "?")
	return path
}

func buildDSN(rawURL, authToken string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("empty database url")
	}

	if isLocalDSN(rawURL) {
		if strings.Contains(rawURL, "foreign_keys") {
			return rawURL, nil
		}
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + foreignKeysPragma, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}

	if strings.HasPrefix(rawURL, "libsql://") {
		query := parsed.Query()
		if query.Get("authToken") == "" && strings.TrimSpace(authToken) != "" {
			query.Set("authToken", strings.TrimSpace(authToken))
			parsed.RawQuery = query.Encode()
		}
	}

	return parsed.String(), nil
}

func splitStatements(schema string) []string {
	parts := strings.Split(schema, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
