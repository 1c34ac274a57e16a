// Package pipeline sequences snapshot loading, change detection, and
// change-log emission across one date or a full chronological range.
//
// The package is logging-free: progress surfaces only through the injected
// Reporter, so callers decide what (if anything) gets logged.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/addrdiff/internal/diff"
	"github.com/sells-group/addrdiff/internal/emit"
	"github.com/sells-group/addrdiff/internal/model"
	"github.com/sells-group/addrdiff/internal/resolve"
	"github.com/sells-group/addrdiff/internal/snapshot"
)

// Event is one structured progress report.
type Event struct {
	Stage   string
	Date    time.Time
	Records int
	Elapsed time.Duration
}

// Reporter receives progress events. A nil Reporter disables reporting.
type Reporter func(Event)

// Result summarizes one processed date.
type Result struct {
	Date             time.Time
	CustomerSnapshot time.Time
	Changes          int
	OutputPath       string
}

// Pipeline compares dated address snapshots found in an input directory and
// writes change logs to an output directory.
type Pipeline struct {
	inputDir  string
	outputDir string
	report    Reporter
	throttle  rate.Sometimes
}

// New creates a Pipeline. report may be nil.
func New(inputDir, outputDir string, report Reporter) *Pipeline {
	return &Pipeline{
		inputDir:  inputDir,
		outputDir: outputDir,
		report:    report,
		throttle:  rate.Sometimes{First: 1, Interval: time.Second},
	}
}

func (p *Pipeline) emit(ev Event) {
	if p.report != nil {
		p.report(ev)
	}
}

// rowProgress adapts the Reporter into a per-row loader callback, throttled
// so a 10M-row load reports roughly once per second.
func (p *Pipeline) rowProgress(stage string, date time.Time) func(rows int) {
	if p.report == nil {
		return nil
	}
	return func(rows int) {
		p.throttle.Do(func() {
			p.report(Event{Stage: stage, Date: date, Records: rows})
		})
	}
}

// RunDate compares the snapshot for date against its previous-calendar-day
// baseline. Both files must exist; this is checked before any load starts.
// The previous and current loads are independent reads of distinct files
// into distinct tables, so they run in parallel.
func (p *Pipeline) RunDate(ctx context.Context, date time.Time) (*Result, error) {
	curPath, prevPath, err := resolve.CheckPair(p.inputDir, date)
	if err != nil {
		return nil, err
	}

	custDates, err := resolve.Discover(p.inputDir, resolve.CustomerPrefix)
	if err != nil {
		return nil, err
	}
	custDate, err := resolve.AsOf(custDates, date)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var prev, cur snapshot.AddressTable
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var gerr error
		prev, gerr = snapshot.LoadAddresses(prevPath, p.rowProgress("load_previous", date))
		return gerr
	})
	g.Go(func() error {
		var gerr error
		cur, gerr = snapshot.LoadAddresses(curPath, p.rowProgress("load_current", date))
		return gerr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	customers, err := snapshot.LoadCustomers(
		resolve.SnapshotPath(p.inputDir, resolve.CustomerPrefix, custDate),
		p.rowProgress("load_customers", date),
	)
	if err != nil {
		return nil, err
	}
	p.emit(Event{
		Stage: "load", Date: date,
		Records: len(prev) + len(cur) + customers.Len(),
		Elapsed: time.Since(start),
	})

	return p.detectAndWrite(date, custDate, prev, cur, customers)
}

// RunRange discovers every address snapshot date in the input directory and
// walks them chronologically, diffing each against the one before it. The
// current table is handed off as the next iteration's previous table rather
// than re-read, and the customer index is reloaded only when its resolved
// date changes.
func (p *Pipeline) RunRange(ctx context.Context) ([]Result, error) {
	addrDates, err := resolve.Discover(p.inputDir, resolve.AddressPrefix)
	if err != nil {
		return nil, err
	}
	if len(addrDates) < 2 {
		return nil, &resolve.ResolutionError{
			Reason: fmt.Sprintf("found %d address snapshots in %s, need at least 2 to diff", len(addrDates), p.inputDir),
		}
	}
	custDates, err := resolve.Discover(p.inputDir, resolve.CustomerPrefix)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	prev, err := snapshot.LoadAddresses(
		resolve.SnapshotPath(p.inputDir, resolve.AddressPrefix, addrDates[0]),
		p.rowProgress("load_baseline", addrDates[0]),
	)
	if err != nil {
		return nil, err
	}
	p.emit(Event{Stage: "baseline", Date: addrDates[0], Records: len(prev), Elapsed: time.Since(start)})

	var (
		results   []Result
		customers *model.CustomerIndex
		custDate  time.Time
	)
	for _, date := range addrDates[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		loadStart := time.Now()
		cur, err := snapshot.LoadAddresses(
			resolve.SnapshotPath(p.inputDir, resolve.AddressPrefix, date),
			p.rowProgress("load_current", date),
		)
		if err != nil {
			return nil, err
		}

		resolved, err := resolve.AsOf(custDates, date)
		if err != nil {
			return nil, err
		}
		if customers == nil || !resolved.Equal(custDate) {
			customers, err = snapshot.LoadCustomers(
				resolve.SnapshotPath(p.inputDir, resolve.CustomerPrefix, resolved),
				p.rowProgress("load_customers", date),
			)
			if err != nil {
				return nil, err
			}
			custDate = resolved
		}
		p.emit(Event{
			Stage: "load", Date: date,
			Records: len(cur) + customers.Len(),
			Elapsed: time.Since(loadStart),
		})

		res, err := p.detectAndWrite(date, custDate, prev, cur, customers)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)

		// Ownership hand-off: the table moves, it is not copied, so peak
		// memory stays at two snapshots.
		prev = cur
	}
	return results, nil
}

func (p *Pipeline) detectAndWrite(date, custDate time.Time, prev, cur snapshot.AddressTable, customers *model.CustomerIndex) (*Result, error) {
	start := time.Now()
	changes, err := diff.Detect(prev, cur, customers)
	if err != nil {
		return nil, err
	}
	p.emit(Event{Stage: "detect", Date: date, Records: len(changes), Elapsed: time.Since(start)})

	start = time.Now()
	out := resolve.SnapshotPath(p.outputDir, resolve.ChangePrefix, date)
	if err := emit.Write(out, changes); err != nil {
		return nil, err
	}
	p.emit(Event{Stage: "write", Date: date, Records: len(changes), Elapsed: time.Since(start)})

	return &Result{
		Date:             date,
		CustomerSnapshot: custDate,
		Changes:          len(changes),
		OutputPath:       out,
	}, nil
}
