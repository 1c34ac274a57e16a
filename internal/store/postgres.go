package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/addrdiff/internal/db"
	"github.com/sells-group/addrdiff/internal/diff"
	"github.com/sells-group/addrdiff/internal/model"
	"github.com/sells-group/addrdiff/internal/resolve"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to Postgres using the given database URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS address_snapshots (
	snapshot_date  TEXT   NOT NULL,
	address_id     BIGINT NOT NULL,
	customer_id    BIGINT NOT NULL,
	address_line1  TEXT   NOT NULL,
	city           TEXT   NOT NULL,
	state_province TEXT   NOT NULL,
	postal_code    TEXT   NOT NULL,
	country        TEXT   NOT NULL,
	start_date     TEXT   NOT NULL,
	end_date       TEXT,
	PRIMARY KEY (snapshot_date, address_id)
);

CREATE TABLE IF NOT EXISTS customer_snapshots (
	snapshot_date TEXT   NOT NULL,
	customer_id   BIGINT NOT NULL,
	display_name  TEXT   NOT NULL,
	PRIMARY KEY (snapshot_date, customer_id)
);

CREATE TABLE IF NOT EXISTS import_batches (
	id            TEXT        PRIMARY KEY,
	kind          TEXT        NOT NULL,
	snapshot_date TEXT        NOT NULL,
	row_count     BIGINT      NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_address_snapshots_customer ON address_snapshots(snapshot_date, customer_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var addressColumns = []string{
	"snapshot_date", "address_id", "customer_id", "address_line1", "city",
	"state_province", "postal_code", "country", "start_date", "end_date",
}

func (s *PostgresStore) ImportAddresses(ctx context.Context, date time.Time, records []model.AddressRecord) (int64, error) {
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "address_snapshots",
		Columns:      addressColumns,
		ConflictKeys: []string{"snapshot_date", "address_id"},
	}, addressRows(date, records))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: import addresses %s", stamp(date))
	}
	if err := s.recordBatch(ctx, "addresses", date, n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PostgresStore) ImportCustomers(ctx context.Context, date time.Time, customers *model.CustomerIndex) (int64, error) {
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "customer_snapshots",
		Columns:      []string{"snapshot_date", "customer_id", "display_name"},
		ConflictKeys: []string{"snapshot_date", "customer_id"},
	}, customerRows(date, customers))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: import customers %s", stamp(date))
	}
	if err := s.recordBatch(ctx, "customers", date, n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PostgresStore) recordBatch(ctx context.Context, kind string, date time.Time, rows int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_batches (id, kind, snapshot_date, row_count) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), kind, stamp(date), rows,
	)
	return eris.Wrapf(err, "postgres: record %s import batch", kind)
}

func (s *PostgresStore) CustomerDateAsOf(ctx context.Context, target time.Time) (time.Time, error) {
	var ns sql.NullString
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(snapshot_date) FROM customer_snapshots WHERE snapshot_date <= $1`,
		stamp(target),
	).Scan(&ns)
	if err != nil {
		return time.Time{}, eris.Wrap(err, "postgres: customer date as-of")
	}
	if !ns.Valid {
		return time.Time{}, &resolve.ResolutionError{
			Reason: "no customer snapshot imported at or before " + stamp(target),
		}
	}
	return resolve.ParseDate(ns.String)
}

// postgresReportSQL classifies changes between two imported snapshot dates.
// $1 = current date, $2 = previous date, $3 = customer snapshot date.
const postgresReportSQL = `
WITH changed AS (
	SELECT 'NEW' AS change_type, c.address_id, c.customer_id, c.address_line1, c.city,
	       c.state_province, c.postal_code, c.country, c.start_date, c.end_date
	  FROM address_snapshots c
	 WHERE c.snapshot_date = $1
	   AND NOT EXISTS (SELECT 1 FROM address_snapshots p
	                    WHERE p.snapshot_date = $2 AND p.address_id = c.address_id)
	UNION ALL
	SELECT 'UPDATED', c.address_id, c.customer_id, c.address_line1, c.city,
	       c.state_province, c.postal_code, c.country, c.start_date, c.end_date
	  FROM address_snapshots c
	  JOIN address_snapshots p
	    ON p.snapshot_date = $2 AND p.address_id = c.address_id
	 WHERE c.snapshot_date = $1
	   AND (c.customer_id <> p.customer_id
	     OR c.address_line1 <> p.address_line1
	     OR c.city <> p.city
	     OR c.state_province <> p.state_province
	     OR c.postal_code <> p.postal_code
	     OR c.country <> p.country
	     OR c.start_date <> p.start_date
	     OR c.end_date IS DISTINCT FROM p.end_date)
	UNION ALL
	SELECT 'DELETED', p.address_id, p.customer_id, p.address_line1, p.city,
	       p.state_province, p.postal_code, p.country, p.start_date, p.end_date
	  FROM address_snapshots p
	 WHERE p.snapshot_date = $2
	   AND NOT EXISTS (SELECT 1 FROM address_snapshots c
	                    WHERE c.snapshot_date = $1 AND c.address_id = p.address_id)
)
SELECT ch.change_type, ch.address_id, ch.customer_id, ch.address_line1, ch.city,
       ch.state_province, ch.postal_code, ch.country, ch.start_date, ch.end_date,
       n.display_name
  FROM changed ch
  LEFT JOIN customer_snapshots n
    ON n.snapshot_date = $3 AND n.customer_id = ch.customer_id
 ORDER BY ch.address_id`

func (s *PostgresStore) Report(ctx context.Context, date, previous, customerDate time.Time) ([]model.AddressChange, error) {
	rows, err := s.pool.Query(ctx, postgresReportSQL, stamp(date), stamp(previous), stamp(customerDate))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: report %s", stamp(date))
	}
	defer rows.Close()

	var changes []model.AddressChange
	for rows.Next() {
		var (
			c    model.AddressChange
			kind string
			end  *string
			name *string
		)
		err := rows.Scan(
			&kind, &c.Record.AddressID, &c.Record.CustomerID,
			&c.Record.AddressLine1, &c.Record.City, &c.Record.StateProvince,
			&c.Record.PostalCode, &c.Record.Country, &c.Record.StartDate,
			&end, &name,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan report row")
		}
		if name == nil {
			return nil, &diff.ReferentialError{
				AddressID:  c.Record.AddressID,
				CustomerID: c.Record.CustomerID,
			}
		}
		c.Type = model.ChangeType(kind)
		c.CustomerName = *name
		c.Record.EndDate = end
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate report rows")
	}
	return changes, nil
}
