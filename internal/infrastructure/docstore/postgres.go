package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres stores documents in a single JSONB table.
//
// Schema:
//
//	CREATE TABLE documents (
//	    collection TEXT   NOT NULL,
//	    id         TEXT   NOT NULL,
//	    data       JSONB  NOT NULL,
//	    rev        BIGINT NOT NULL DEFAULT 1,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (collection, id)
//	);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func (p *Postgres) Put(ctx context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (collection, id)
		 DO UPDATE SET data = $3, rev = documents.rev + 1, updated_at = now()`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string, out any) (bool, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Postgres) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT data FROM documents WHERE collection = $1",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		docs = append(docs, json.RawMessage(raw))
	}
	return docs, rows.Err()
}

// Update serializes concurrent writers on the same record via
// SELECT ... FOR UPDATE.
func (p *Postgres) Update(ctx context.Context, collection, id string, fn func(raw []byte) ([]byte, error)) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	updated, err := fn(raw)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET data = $3, rev = rev + 1, updated_at = now()
		 WHERE collection = $1 AND id = $2`,
		collection, id, updated,
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := p.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}
