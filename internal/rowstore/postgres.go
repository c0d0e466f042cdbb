package rowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres stores tabs as generic jsonb cell rows so the same positional
// contract works against a local database instead of the spreadsheet.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a pooled connection and ensures the schema exists.
func NewPostgres(connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rowstore: postgres unreachable: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tabs (
			name   TEXT PRIMARY KEY,
			header JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tab_rows (
			tab   TEXT NOT NULL REFERENCES tabs(name),
			seq   BIGSERIAL PRIMARY KEY,
			cells JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS tab_rows_tab_seq ON tab_rows (tab, seq)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rowstore: create schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

// Healthy verifies database connectivity.
func (p *Postgres) Healthy(ctx context.Context) bool {
	return p != nil && p.db.PingContext(ctx) == nil
}

// FindRow returns the first row of tab whose column col equals value.
func (p *Postgres) FindRow(ctx context.Context, tab string, col int, value string) ([]string, bool, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT cells FROM tab_rows
		WHERE tab = $1 AND cells->>($2::int) = $3
		ORDER BY seq
		LIMIT 1
	`, tab, col, value)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("rowstore: find in %s: %w", tab, err)
	}
	cells, err := decodeCells(raw)
	if err != nil {
		return nil, false, err
	}
	return cells, true, nil
}

// ReadTail returns up to n of the newest rows of tab in append order.
func (p *Postgres) ReadTail(ctx context.Context, tab string, n int) ([][]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT cells FROM tab_rows
		WHERE tab = $1
		ORDER BY seq DESC
		LIMIT $2
	`, tab, n)
	if err != nil {
		return nil, fmt.Errorf("rowstore: read tail of %s: %w", tab, err)
	}
	defer rows.Close()

	var newestFirst [][]string
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("rowstore: read tail of %s: %w", tab, err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rowstore: read tail of %s: %w", tab, err)
	}

	// Flip back to append order for the contract.
	out := make([][]string, len(newestFirst))
	for i, row := range newestFirst {
		out[len(out)-1-i] = row
	}
	return out, nil
}

// Append inserts row at the tail of tab, registering the tab and its header
// on first write.
func (p *Postgres) Append(ctx context.Context, tab string, header, row []string) error {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("rowstore: encode header: %w", err)
	}
	cellsJSON, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("rowstore: encode row: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rowstore: append to %s: %w", tab, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tabs (name, header) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`, tab, headerJSON); err != nil {
		return fmt.Errorf("rowstore: ensure tab %s: %w", tab, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tab_rows (tab, cells) VALUES ($1, $2)
	`, tab, cellsJSON); err != nil {
		return fmt.Errorf("rowstore: append to %s: %w", tab, err)
	}
	return tx.Commit()
}

func decodeCells(raw []byte) ([]string, error) {
	var cells []string
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, fmt.Errorf("rowstore: decode cells: %w", err)
	}
	return cells, nil
}
