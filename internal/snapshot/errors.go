package snapshot

import "fmt"

// SchemaError reports an empty snapshot file or a header row that does not
// match the expected fixed schema.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// RowError reports a malformed data row: wrong field count, an unparsable
// required integer, a null required string, or a duplicate primary key.
// Line is 1-based so the message points straight at the offending source row.
type RowError struct {
	Path   string
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}
