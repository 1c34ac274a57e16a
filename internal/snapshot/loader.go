package snapshot

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// progressEvery is how many loaded rows pass between progress callbacks.
const progressEvery = 100_000

// maxLineBytes bounds a single snapshot line; exports with very long quoted
// address fields still fit comfortably.
const maxLineBytes = 4 * 1024 * 1024

// RowFunc converts one parsed data row into its key and record. A returned
// error is reported as a RowError carrying the file position.
type RowFunc[K comparable, R any] func(fields []Field) (K, R, error)

// Load reads a keyed CSV snapshot in a single sequential pass.
//
// The header is validated before any data row is read: the file must not be
// empty and the header's column count and names (case-insensitive) must match
// columns exactly. Blank and whitespace-only lines are skipped. Every data
// row must have exactly len(columns) fields and a key not seen before.
// progress, when non-nil, is called with the running row count every
// progressEvery rows.
func Load[K comparable, R any](path string, columns []string, row RowFunc[K, R], progress func(rows int)) (map[K]R, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: open %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, eris.Wrapf(err, "snapshot: read %s", path)
		}
		return nil, &SchemaError{Path: path, Reason: "empty file"}
	}
	if err := checkHeader(path, sc.Text(), columns); err != nil {
		return nil, err
	}

	table := make(map[K]R, 1024)
	lineNo := 1
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := ParseLine(line)
		if len(fields) != len(columns) {
			return nil, &RowError{
				Path: path, Line: lineNo,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(columns), len(fields)),
			}
		}

		key, rec, err := row(fields)
		if err != nil {
			return nil, &RowError{Path: path, Line: lineNo, Reason: err.Error()}
		}
		if _, dup := table[key]; dup {
			return nil, &RowError{
				Path: path, Line: lineNo,
				Reason: fmt.Sprintf("duplicate key %v", key),
			}
		}
		table[key] = rec

		if progress != nil && len(table)%progressEvery == 0 {
			progress(len(table))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "snapshot: read %s", path)
	}
	return table, nil
}

func checkHeader(path, line string, columns []string) error {
	fields := ParseLine(line)
	if len(fields) != len(columns) {
		return &SchemaError{
			Path:   path,
			Reason: fmt.Sprintf("header has %d columns, want %d", len(fields), len(columns)),
		}
	}
	for i, want := range columns {
		if !fields[i].Valid || !strings.EqualFold(fields[i].Value, want) {
			return &SchemaError{
				Path:   path,
				Reason: fmt.Sprintf("header column %d is %q, want %q", i+1, fields[i].Value, want),
			}
		}
	}
	return nil
}

// fieldInt64 parses a required integer field.
func fieldInt64(f Field, name string) (int64, error) {
	if !f.Valid {
		return 0, eris.Errorf("%s is null", name)
	}
	v, err := strconv.ParseInt(f.Value, 10, 64)
	if err != nil {
		return 0, eris.Errorf("%s: invalid integer %q", name, f.Value)
	}
	return v, nil
}

// fieldString returns a required string field.
func fieldString(f Field, name string) (string, error) {
	if !f.Valid {
		return "", eris.Errorf("%s is null", name)
	}
	return f.Value, nil
}
