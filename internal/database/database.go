package database

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/pulse-social/pulse/internal/config"
)

// Connect opens the Postgres connection pool. The pool keeps DBPoolSize warm
// connections and allows up to DBMaxOverflow extra under load; sqlx.Connect
// pings once so a misconfigured DB_URL fails at startup.
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxIdleConns(cfg.DBPoolSize)
	db.SetMaxOpenConns(cfg.DBPoolSize + cfg.DBMaxOverflow)
	db.SetConnMaxIdleTime(5 * time.Minute)

	log.Printf("Connected to database (pool=%d overflow=%d)", cfg.DBPoolSize, cfg.DBMaxOverflow)
	return db, nil
}
