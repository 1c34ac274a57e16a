package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/addrdiff/internal/diff"
	"github.com/sells-group/addrdiff/internal/model"
	"github.com/sells-group/addrdiff/internal/resolve"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS address_snapshots (
	snapshot_date  TEXT    NOT NULL,
	address_id     INTEGER NOT NULL,
	customer_id    INTEGER NOT NULL,
	address_line1  TEXT    NOT NULL,
	city           TEXT    NOT NULL,
	state_province TEXT    NOT NULL,
	postal_code    TEXT    NOT NULL,
	country        TEXT    NOT NULL,
	start_date     TEXT    NOT NULL,
	end_date       TEXT,
	PRIMARY KEY (snapshot_date, address_id)
);

CREATE TABLE IF NOT EXISTS customer_snapshots (
	snapshot_date TEXT    NOT NULL,
	customer_id   INTEGER NOT NULL,
	display_name  TEXT    NOT NULL,
	PRIMARY KEY (snapshot_date, customer_id)
);

CREATE TABLE IF NOT EXISTS import_batches (
	id            TEXT    PRIMARY KEY,
	kind          TEXT    NOT NULL,
	snapshot_date TEXT    NOT NULL,
	row_count     INTEGER NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_address_snapshots_customer ON address_snapshots(snapshot_date, customer_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ImportAddresses(ctx context.Context, date time.Time, records []model.AddressRecord) (int64, error) {
	rows := addressRows(date, records)
	n, err := s.importRows(ctx, "addresses", date,
		`INSERT OR REPLACE INTO address_snapshots
		 (snapshot_date, address_id, customer_id, address_line1, city, state_province, postal_code, country, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rows)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: import addresses %s", stamp(date))
	}
	return n, nil
}

func (s *SQLiteStore) ImportCustomers(ctx context.Context, date time.Time, customers *model.CustomerIndex) (int64, error) {
	rows := customerRows(date, customers)
	n, err := s.importRows(ctx, "customers", date,
		`INSERT OR REPLACE INTO customer_snapshots (snapshot_date, customer_id, display_name) VALUES (?, ?, ?)`,
		rows)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: import customers %s", stamp(date))
	}
	return n, nil
}

// importRows inserts all rows and the import batch record in one transaction.
func (s *SQLiteStore) importRows(ctx context.Context, kind string, date time.Time, insertSQL string, rows [][]any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, eris.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrap(err, "insert row")
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO import_batches (id, kind, snapshot_date, row_count) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), kind, stamp(date), len(rows),
	)
	if err != nil {
		return 0, eris.Wrap(err, "record import batch")
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "commit tx")
	}
	return int64(len(rows)), nil
}

func (s *SQLiteStore) CustomerDateAsOf(ctx context.Context, target time.Time) (time.Time, error) {
	var ns sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(snapshot_date) FROM customer_snapshots WHERE snapshot_date <= ?`,
		stamp(target),
	).Scan(&ns)
	if err != nil {
		return time.Time{}, eris.Wrap(err, "sqlite: customer date as-of")
	}
	if !ns.Valid {
		return time.Time{}, &resolve.ResolutionError{
			Reason: "no customer snapshot imported at or before " + stamp(target),
		}
	}
	return resolve.ParseDate(ns.String)
}

// sqliteReportSQL classifies changes between two imported snapshot dates.
// ?1 = current date, ?2 = previous date, ?3 = customer snapshot date.
// IS NOT gives the null-safe end_date comparison.
const sqliteReportSQL = `
WITH changed AS (
	SELECT 'NEW' AS change_type, c.address_id, c.customer_id, c.address_line1, c.city,
	       c.state_province, c.postal_code, c.country, c.start_date, c.end_date
	  FROM address_snapshots c
	 WHERE c.snapshot_date = ?1
	   AND NOT EXISTS (SELECT 1 FROM address_snapshots p
	                    WHERE p.snapshot_date = ?2 AND p.address_id = c.address_id)
	UNION ALL
	SELECT 'UPDATED', c.address_id, c.customer_id, c.address_line1, c.city,
	       c.state_province, c.postal_code, c.country, c.start_date, c.end_date
	  FROM address_snapshots c
	  JOIN address_snapshots p
	    ON p.snapshot_date = ?2 AND p.address_id = c.address_id
	 WHERE c.snapshot_date = ?1
	   AND (c.customer_id <> p.customer_id
	     OR c.address_line1 <> p.address_line1
	     OR c.city <> p.city
	     OR c.state_province <> p.state_province
	     OR c.postal_code <> p.postal_code
	     OR c.country <> p.country
	     OR c.start_date <> p.start_date
	     OR c.end_date IS NOT p.end_date)
	UNION ALL
	SELECT 'DELETED', p.address_id, p.customer_id, p.address_line1, p.city,
	       p.state_province, p.postal_code, p.country, p.start_date, p.end_date
	  FROM address_snapshots p
	 WHERE p.snapshot_date = ?2
	   AND NOT EXISTS (SELECT 1 FROM address_snapshots c
	                    WHERE c.snapshot_date = ?1 AND c.address_id = p.address_id)
)
SELECT ch.change_type, ch.address_id, ch.customer_id, ch.address_line1, ch.city,
       ch.state_province, ch.postal_code, ch.country, ch.start_date, ch.end_date,
       n.display_name
  FROM changed ch
  LEFT JOIN customer_snapshots n
    ON n.snapshot_date = ?3 AND n.customer_id = ch.customer_id
 ORDER BY ch.address_id`

func (s *SQLiteStore) Report(ctx context.Context, date, previous, customerDate time.Time) ([]model.AddressChange, error) {
	rows, err := s.db.QueryContext(ctx, sqliteReportSQL, stamp(date), stamp(previous), stamp(customerDate))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: report %s", stamp(date))
	}
	defer rows.Close()

	var changes []model.AddressChange
	for rows.Next() {
		var (
			c    model.AddressChange
			kind string
			end  sql.NullString
			name sql.NullString
		)
		err := rows.Scan(
			&kind, &c.Record.AddressID, &c.Record.CustomerID,
			&c.Record.AddressLine1, &c.Record.City, &c.Record.StateProvince,
			&c.Record.PostalCode, &c.Record.Country, &c.Record.StartDate,
			&end, &name,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report row")
		}
		if !name.Valid {
			return nil, &diff.ReferentialError{
				AddressID:  c.Record.AddressID,
				CustomerID: c.Record.CustomerID,
			}
		}
		c.Type = model.ChangeType(kind)
		c.CustomerName = name.String
		if end.Valid {
			v := end.String
			c.Record.EndDate = &v
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate report rows")
	}
	return changes, nil
}
