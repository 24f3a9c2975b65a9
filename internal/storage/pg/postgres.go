package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pvzzle/miniwallet/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

func (r *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS contacts (
  address_lower TEXT PRIMARY KEY,
  address TEXT NOT NULL,
  name    TEXT NOT NULL,
  position BIGSERIAL,
  added_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS contacts_position_idx ON contacts(position);

CREATE TABLE IF NOT EXISTS history_snapshots (
  address_lower TEXT PRIMARY KEY,
  records JSONB NOT NULL,
  fetched_at TIMESTAMPTZ NOT NULL
);
`
	_, err := r.pool.Exec(ctx, ddl)
	return err
}

func (r *Postgres) AddContact(ctx context.Context, c storage.Contact) error {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := r.pool.Exec(cctx,
		`INSERT INTO contacts(address_lower, address, name, added_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT(address_lower) DO NOTHING`,
		strings.ToLower(c.Address), c.Address, c.Name, c.AddedAt,
	)
	return err
}

func (r *Postgres) RemoveContact(ctx context.Context, address string) error {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := r.pool.Exec(cctx,
		`DELETE FROM contacts WHERE address_lower = $1`,
		strings.ToLower(address),
	)
	return err
}

func (r *Postgres) ListContacts(ctx context.Context) ([]storage.Contact, error) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(cctx,
		`SELECT name, address, added_at FROM contacts ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Contact
	for rows.Next() {
		var c storage.Contact
		if err := rows.Scan(&c.Name, &c.Address, &c.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

func (r *Postgres) SaveHistorySnapshot(ctx context.Context, snap storage.HistorySnapshot) error {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	records, err := json.Marshal(snap.Records)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}

	_, err = r.pool.Exec(cctx,
		`INSERT INTO history_snapshots(address_lower, records, fetched_at) VALUES ($1, $2::jsonb, $3)
		 ON CONFLICT(address_lower) DO UPDATE SET
		   records = EXCLUDED.records,
		   fetched_at = EXCLUDED.fetched_at`,
		strings.ToLower(snap.Address), records, snap.FetchedAt,
	)
	return err
}

func (r *Postgres) LoadHistorySnapshot(ctx context.Context, address string) (storage.HistorySnapshot, bool, error) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		records   []byte
		fetchedAt time.Time
	)
	row := r.pool.QueryRow(cctx,
		`SELECT records, fetched_at FROM history_snapshots WHERE address_lower = $1`,
		strings.ToLower(address),
	)
	if err := row.Scan(&records, &fetchedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.HistorySnapshot{}, false, nil
		}
		return storage.HistorySnapshot{}, false, err
	}

	snap := storage.HistorySnapshot{Address: address, FetchedAt: fetchedAt}
	if err := json.Unmarshal(records, &snap.Records); err != nil {
		return storage.HistorySnapshot{}, false, fmt.Errorf("unmarshal records: %w", err)
	}
	return snap, true, nil
}

func (r *Postgres) String() string { return fmt.Sprintf("pgrepo(%p)", r.pool) }
