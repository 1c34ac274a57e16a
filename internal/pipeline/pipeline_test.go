package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/addrdiff/internal/diff"
	"github.com/sells-group/addrdiff/internal/resolve"
)

const addressHeader = "address_id,customer_id,address_line1,city,state_province,postal_code,country,start_date,end_date\n"
const customerHeader = "id,prefix,first_name,last_name,sort_name,suffix,birthdate\n"

func day(stamp string) time.Time {
	d, err := time.Parse(resolve.DateLayout, stamp)
	if err != nil {
		panic(err)
	}
	return d
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func addressRow(addressID, customerID int, city, end string) string {
	return strconv.Itoa(addressID) + "," + strconv.Itoa(customerID) +
		`,"1 Main St","` + city + `","IL","62704",US,2020-01-01,` + end + "\n"
}

// fixtureDir builds a three-day snapshot sequence:
//
//	20200101: addresses 1, 2
//	20200102: 1 unchanged, 2 city changed, 3 new
//	20200103: 1 deleted, 2 and 3 unchanged
//
// plus a single customer snapshot dated 20200101.
func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "addresses_20200101.csv", addressHeader+
		addressRow(1, 100, "Springfield", "NULL")+
		addressRow(2, 200, "Dallas", "NULL"))
	writeFile(t, dir, "addresses_20200102.csv", addressHeader+
		addressRow(1, 100, "Springfield", "NULL")+
		addressRow(2, 200, "Austin", "NULL")+
		addressRow(3, 300, "Denver", "NULL"))
	writeFile(t, dir, "addresses_20200103.csv", addressHeader+
		addressRow(2, 200, "Austin", "NULL")+
		addressRow(3, 300, "Denver", "NULL"))
	writeFile(t, dir, "customers_20200101.csv", customerHeader+
		"100,NULL,Jane,Doe,NULL,NULL,NULL\n"+
		"200,NULL,John,Smith,NULL,NULL,NULL\n"+
		"300,NULL,Ada,Lovelace,NULL,NULL,NULL\n")
	return dir
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

func TestRunDate(t *testing.T) {
	dir := fixtureDir(t)
	out := t.TempDir()

	res, err := New(dir, out, nil).RunDate(context.Background(), day("20200102"))
	require.NoError(t, err)
	assert.Equal(t, day("20200102"), res.Date)
	assert.Equal(t, day("20200101"), res.CustomerSnapshot)
	assert.Equal(t, 2, res.Changes)
	assert.Equal(t, filepath.Join(out, "address_changes_20200102.csv"), res.OutputPath)

	got := readOutput(t, res.OutputPath)
	want := "change_type,address_id,customer_id,customer_name,address_line1,city,state_province,postal_code,country,start_date,end_date\n" +
		`UPDATED,2,200,"John Smith","1 Main St","Austin","IL","62704",US,2020-01-01,` + "\n" +
		`NEW,3,300,"Ada Lovelace","1 Main St","Denver","IL","62704",US,2020-01-01,` + "\n" +
		"\nExpected records: 2\n"
	assert.Equal(t, want, got)
}

func TestRunDate_Idempotent(t *testing.T) {
	dir := fixtureDir(t)
	out := t.TempDir()
	p := New(dir, out, nil)

	res, err := p.RunDate(context.Background(), day("20200102"))
	require.NoError(t, err)
	first := readOutput(t, res.OutputPath)

	res, err = p.RunDate(context.Background(), day("20200102"))
	require.NoError(t, err)
	assert.Equal(t, first, readOutput(t, res.OutputPath))
}

func TestRunDate_MissingBaseline(t *testing.T) {
	dir := fixtureDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "addresses_20200101.csv")))

	_, err := New(dir, t.TempDir(), nil).RunDate(context.Background(), day("20200102"))
	var resErr *resolve.ResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestRunDate_NoCustomerSnapshotBeforeDate(t *testing.T) {
	dir := fixtureDir(t)
	require.NoError(t, os.Rename(
		filepath.Join(dir, "customers_20200101.csv"),
		filepath.Join(dir, "customers_20200110.csv"),
	))

	_, err := New(dir, t.TempDir(), nil).RunDate(context.Background(), day("20200102"))
	var resErr *resolve.ResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestRunDate_OrphanCustomerFailsBeforeWrite(t *testing.T) {
	dir := fixtureDir(t)
	writeFile(t, dir, "addresses_20200102.csv", addressHeader+
		addressRow(1, 100, "Springfield", "NULL")+
		addressRow(2, 200, "Dallas", "NULL")+
		addressRow(4, 999, "Nowhere", "NULL"))
	out := t.TempDir()

	_, err := New(dir, out, nil).RunDate(context.Background(), day("20200102"))
	var refErr *diff.ReferentialError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, int64(999), refErr.CustomerID)

	_, statErr := os.Stat(filepath.Join(out, "address_changes_20200102.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunDate_Events(t *testing.T) {
	dir := fixtureDir(t)

	var stages []string
	report := func(ev Event) { stages = append(stages, ev.Stage) }
	_, err := New(dir, t.TempDir(), report).RunDate(context.Background(), day("20200102"))
	require.NoError(t, err)

	// Row-progress events don't fire for tiny fixtures; the stage summaries do.
	assert.Contains(t, stages, "load")
	assert.Contains(t, stages, "detect")
	assert.Contains(t, stages, "write")
}

func TestRunRange(t *testing.T) {
	dir := fixtureDir(t)
	out := t.TempDir()

	results, err := New(dir, out, nil).RunRange(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, day("20200102"), results[0].Date)
	assert.Equal(t, 2, results[0].Changes)
	assert.Equal(t, day("20200103"), results[1].Date)
	assert.Equal(t, 1, results[1].Changes)

	got := readOutput(t, results[1].OutputPath)
	assert.Contains(t, got, `DELETED,1,100,"Jane Doe","1 Main St","Springfield"`)
	assert.Contains(t, got, "Expected records: 1\n")
}

func TestRunRange_TooFewSnapshots(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "addresses_20200101.csv", addressHeader+addressRow(1, 100, "Springfield", "NULL"))
	writeFile(t, dir, "customers_20200101.csv", customerHeader+"100,NULL,Jane,Doe,NULL,NULL,NULL\n")

	_, err := New(dir, t.TempDir(), nil).RunRange(context.Background())
	var resErr *resolve.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Reason, "need at least 2")
}

func TestRunRange_CustomerSnapshotRollsForward(t *testing.T) {
	dir := fixtureDir(t)
	// A newer roster renames customer 200 from 20200103 on.
	writeFile(t, dir, "customers_20200103.csv", customerHeader+
		"100,NULL,Jane,Doe,NULL,NULL,NULL\n"+
		"200,NULL,Johnny,Smith,NULL,NULL,NULL\n"+
		"300,NULL,Ada,Lovelace,NULL,NULL,NULL\n")

	out := t.TempDir()
	results, err := New(dir, out, nil).RunRange(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, day("20200101"), results[0].CustomerSnapshot)
	assert.Equal(t, day("20200103"), results[1].CustomerSnapshot)

	got := readOutput(t, results[1].OutputPath)
	assert.Contains(t, got, `"Jane Doe"`)
}

func TestRunRange_Cancelled(t *testing.T) {
	dir := fixtureDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(dir, t.TempDir(), nil).RunRange(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	results := []Result{
		{Date: day("20200102"), CustomerSnapshot: day("20200101"), Changes: 2, OutputPath: "/out/address_changes_20200102.csv"},
		{Date: day("20200103"), CustomerSnapshot: day("20200101"), Changes: 1, OutputPath: "/out/address_changes_20200103.csv"},
	}
	require.NoError(t, WriteManifest(path, results))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "20200102", entries[0]["date"])
	assert.Equal(t, "20200101", entries[0]["customer_snapshot"])
	assert.Equal(t, 2, entries[0]["changes"])
	assert.Equal(t, "/out/address_changes_20200103.csv", entries[1]["output"])
}
