package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresStore persists snapshots as one JSONB row per collection in a
// relay_state table. It is selected over the file store when DB_DSN is set.
type PostgresStore struct {
	db *sqlx.DB
}

// ConnectPostgres opens the database and runs migrations.
func ConnectPostgres(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS relay_state (
            name TEXT PRIMARY KEY,
            payload JSONB NOT NULL,
            version BIGINT NOT NULL,
            updated_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

// Save upserts the three collections in one transaction so a crash never
// leaves a newer log stored alongside an older profile set.
func (s *PostgresStore) Save(snap Snapshot) error {
	collections := []struct {
		name string
		v    any
	}{
		{"users", snap.Users},
		{"rooms", snap.Rooms},
		{"dms", snap.Threads},
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range collections {
		payload, err := json.Marshal(c.v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", c.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO relay_state (name, payload, version, updated_at) VALUES ($1, $2, $3, NOW())
            ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, version = EXCLUDED.version, updated_at = NOW()`,
			c.name, payload, int64(snap.Version)); err != nil {
			return fmt.Errorf("upsert %s: %w", c.name, err)
		}
	}
	return tx.Commit()
}

// Load restores the three collections; absent rows yield empty collections.
func (s *PostgresStore) Load() (Snapshot, error) {
	snap := Snapshot{}
	targets := []struct {
		name string
		v    any
	}{
		{"users", &snap.Users},
		{"rooms", &snap.Rooms},
		{"dms", &snap.Threads},
	}

	for _, t := range targets {
		var payload []byte
		err := s.db.Get(&payload, `SELECT payload FROM relay_state WHERE name=$1`, t.name)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return Snapshot{}, fmt.Errorf("load %s: %w", t.name, err)
		}
		if err := json.Unmarshal(payload, t.v); err != nil {
			return Snapshot{}, fmt.Errorf("parse %s: %w", t.name, err)
		}
	}
	return snap, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
