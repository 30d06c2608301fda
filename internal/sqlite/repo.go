// Package sqlite is the sqlite backed event and subscription store.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jdholdren/matsubo/internal/matsubo"
	"github.com/jdholdren/matsubo/internal/migrations"
)

// Ensure Repo implements the Repository interface
var _ matsubo.Repository = (*Repo)(nil)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}

// Open connects to the database file at path and migrates it.
func Open(path string) (*sqlx.DB, error) {
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %s", err)
	}
	// One writer at a time; sqlite would serialize them anyway.
	dbx.SetMaxOpenConns(1)

	if err := migrations.Run(dbx); err != nil {
		dbx.Close()
		return nil, fmt.Errorf("error migrating: %w", err)
	}

	return dbx, nil
}
