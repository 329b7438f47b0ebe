package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
	"github.com/videocom/videocom-share/internal/misc"
)

const (
	defaultConfigTable  = "videocom_config"
	postgresOpTimeout   = 30 * time.Second
	postgresLocationFmt = "postgres table %s"
)

// PostgresStoreConfig captures configuration required to initialize a Postgres-backed store.
type PostgresStoreConfig struct {
	DSN    string
	Schema string
	Table  string
}

// PostgresStore keeps one row per configuration key in PostgreSQL.
type PostgresStore struct {
	*mapStore
	db  *sql.DB
	cfg PostgresStoreConfig
}

// NewPostgresStore connects to PostgreSQL, ensures the table exists and loads every key.
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres store: DSN is required")
	}
	cfg.Schema = strings.TrimSpace(cfg.Schema)
	cfg.Table = strings.TrimSpace(cfg.Table)
	if cfg.Table == "" {
		cfg.Table = defaultConfigTable
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open database connection: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres store: ping database: %w", err)
	}

	s := &PostgresStore{db: db, cfg: cfg}
	if err = s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	values, err := s.loadAll(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.mapStore = newMapStore(values, s.write)
	return s, nil
}

// Close releases the underlying database connection.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Location describes where the configuration lives, for status output.
func (s *PostgresStore) Location() string {
	return fmt.Sprintf(postgresLocationFmt, s.fullTableName())
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s.cfg.Schema != "" {
		query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdentifier(s.cfg.Schema))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("postgres store: create schema: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.fullTableName())); err != nil {
		return fmt.Errorf("postgres store: create config table: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadAll(ctx context.Context) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT key, value FROM %s", s.fullTableName()))
	if err != nil {
		return nil, fmt.Errorf("postgres store: query config: %w", err)
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Errorf("postgres store: close rows: %v", errClose)
		}
	}()

	values := make(map[string]any)
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err = rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("postgres store: scan config row: %w", err)
		}
		var value any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err = dec.Decode(&value); err != nil {
			log.WithError(err).Warnf("postgres store: skip undecodable value for %s", key)
			continue
		}
		values[key] = value
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: iterate config rows: %w", err)
	}
	return values, nil
}

func (s *PostgresStore) write(next map[string]any, changed, removed []string) error {
	misc.LogSavingCredentials(s.Location())
	ctx, cancel := context.WithTimeout(context.Background(), postgresOpTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres store: begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	table := s.fullTableName()
	upsert := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, table)
	for _, key := range changed {
		raw, errMarshal := json.Marshal(next[key])
		if errMarshal != nil {
			err = fmt.Errorf("postgres store: marshal %s: %w", key, errMarshal)
			return err
		}
		if _, err = tx.ExecContext(ctx, upsert, key, string(raw)); err != nil {
			err = fmt.Errorf("postgres store: upsert %s: %w", key, err)
			return err
		}
	}
	remove := fmt.Sprintf("DELETE FROM %s WHERE key = $1", table)
	for _, key := range removed {
		if _, err = tx.ExecContext(ctx, remove, key); err != nil {
			err = fmt.Errorf("postgres store: delete %s: %w", key, err)
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("postgres store: commit: %w", err)
		return err
	}
	return nil
}

func (s *PostgresStore) fullTableName() string {
	if s.cfg.Schema == "" {
		return quoteIdentifier(s.cfg.Table)
	}
	return quoteIdentifier(s.cfg.Schema) + "." + quoteIdentifier(s.cfg.Table)
}

func quoteIdentifier(identifier string) string {
	replaced := strings.ReplaceAll(identifier, "\"", "\"\"")
	return "\"" + replaced + "\""
}
