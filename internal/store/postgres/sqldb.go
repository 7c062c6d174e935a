package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/replane-dev/replane-sub002/internal/config"
)

// OpenSQLDB opens a database/sql handle for tooling that needs one —
// currently just goose migrations, which predate pgxpool's native
// interface and still operate on *sql.DB.
func OpenSQLDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database/sql handle: %w", err)
	}
	return db, nil
}
