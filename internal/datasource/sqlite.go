package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const migrationsTableName = "livebind_db_version"

// SQLite is a SQLite database whose query results are rendered as a list of rows
type SQLite struct {
	db            *sql.DB
	path          string
	migrationsDir string
}

// SQLiteOption configures a SQLite source
type SQLiteOption func(*SQLite)

// WithMigrations sets the directory of goose migrations applied by Migrate
func WithMigrations(dir string) SQLiteOption {
	return func(s *SQLite) {
		s.migrationsDir = dir
	}
}

// OpenSQLite opens the database at path, creating it when missing
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	goose.SetTableName(migrationsTableName)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}

	s := &SQLite{db: db, path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB answers the underlying connection
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) requireMigrations() error {
	if s.migrationsDir == "" {
		return fmt.Errorf("no migrations directory configured")
	}
	if _, err := os.Stat(s.migrationsDir); err != nil {
		return fmt.Errorf("migrations directory not found: %w", err)
	}
	return nil
}

// Migrate runs all pending migrations
func (s *SQLite) Migrate(ctx context.Context) error {
	if err := s.requireMigrations(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, s.migrationsDir); err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Rollback rolls back the most recent migration
func (s *SQLite) Rollback(ctx context.Context) error {
	if err := s.requireMigrations(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, s.db, s.migrationsDir); err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version answers the version of the most recent applied migration
func (s *SQLite) Version(ctx context.Context) (int64, error) {
	version, err := goose.GetDBVersionContext(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, nil
}

// CreateMigration writes an empty goose SQL migration named after name and answers its path
func CreateMigration(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}
	filename := fmt.Sprintf("%s_%s.sql", time.Now().Format("20060102150405"), name)
	path := filepath.Join(dir, filename)

	content := `-- +goose Up
-- +goose StatementBegin
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- +goose StatementEnd
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to create migration file: %w", err)
	}
	return path, nil
}

// Query runs query and answers one map per row, keyed by column name. Text and blob
// columns come back as strings.
func (s *SQLite) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return result, nil
}

// QuerySource is a Source rendering the rows of a query, after running pending migrations
// when the database has a migrations directory
type QuerySource struct {
	DB    *SQLite
	Query string
	Args  []any
}

// Load migrates the database and runs the query
func (q QuerySource) Load(ctx context.Context) (any, error) {
	if q.DB.migrationsDir != "" {
		if err := q.DB.Migrate(ctx); err != nil {
			return nil, err
		}
	}
	rows, err := q.DB.Query(ctx, q.Query, q.Args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
