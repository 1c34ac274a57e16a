// Package resolve maps requested dates onto the snapshot files available on disk.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the date stamp embedded in snapshot file names.
const DateLayout = "20060102"

// Snapshot file name prefixes.
const (
	AddressPrefix  = "addresses"
	CustomerPrefix = "customers"
	ChangePrefix   = "address_changes"
)

// ResolutionError reports that no usable snapshot exists for a requested date.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string {
	return e.Reason
}

// ParseDate parses a YYYYMMDD date stamp.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "resolve: parse date %q", s)
	}
	return d, nil
}

// SnapshotPath builds the path of a dated snapshot file, e.g.
// dir/addresses_20200102.csv.
func SnapshotPath(dir, prefix string, date time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, date.Format(DateLayout)))
}

// AsOf returns the greatest date in dates that is at or before target.
// dates must be sorted ascending; the search is binary since range mode
// resolves once per processing date.
func AsOf(dates []time.Time, target time.Time) (time.Time, error) {
	i := sort.Search(len(dates), func(i int) bool { return dates[i].After(target) })
	if i == 0 {
		return time.Time{}, &ResolutionError{
			Reason: fmt.Sprintf("no customer snapshot at or before %s", target.Format(DateLayout)),
		}
	}
	return dates[i-1], nil
}

// Discover lists the snapshot dates present in dir for the given file
// prefix, sorted ascending. Files that don't match prefix_YYYYMMDD.csv are
// ignored.
func Discover(dir, prefix string) ([]time.Time, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: read dir %s", dir)
	}

	want := prefix + "_"
	var dates []time.Time
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, want) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, want), ".csv")
		d, err := time.Parse(DateLayout, stamp)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// CheckPair verifies that both the requested date's address snapshot and its
// previous-calendar-day baseline exist, before any load starts. It returns
// the two paths (current, previous).
func CheckPair(dir string, date time.Time) (string, string, error) {
	current := SnapshotPath(dir, AddressPrefix, date)
	previous := SnapshotPath(dir, AddressPrefix, date.AddDate(0, 0, -1))
	for _, p := range []string{current, previous} {
		if _, err := os.Stat(p); err != nil {
			return "", "", &ResolutionError{Reason: fmt.Sprintf("missing address snapshot %s", p)}
		}
	}
	return current, previous, nil
}
