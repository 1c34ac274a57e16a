// Package snapshot parses dated CSV exports into keyed in-memory tables.
package snapshot

import "strings"

// Field is one parsed CSV field. Valid is false when the source held the
// unquoted literal NULL; an empty string is a valid field, not a null.
type Field struct {
	Value string
	Valid bool
}

// ParseLine tokenizes one CSV line into nullable fields.
//
// A field opening with a double quote runs until the next unescaped closing
// quote, with "" unescaped to a single quote. Unquoted fields are taken
// verbatim up to the next comma, except the exact literal NULL which maps to
// an invalid (absent) field. A trailing comma yields a final empty field and
// an empty line yields a single empty field. ParseLine never fails; a
// structurally broken line surfaces downstream as a field-count mismatch.
func ParseLine(line string) []Field {
	fields := make([]Field, 0, 16)
	i := 0
	for {
		var f Field
		f, i = scanField(line, i)
		fields = append(fields, f)
		if i >= len(line) {
			break
		}
		i++ // consume the comma
		if i == len(line) {
			fields = append(fields, Field{Valid: true})
			break
		}
	}
	return fields
}

// scanField reads one field starting at i and returns it along with the
// position of the terminating comma (or end of line).
func scanField(line string, i int) (Field, int) {
	if i < len(line) && line[i] == '"' {
		return scanQuoted(line, i)
	}
	end := strings.IndexByte(line[i:], ',')
	if end < 0 {
		end = len(line)
	} else {
		end += i
	}
	value := line[i:end]
	if value == "NULL" {
		return Field{}, end
	}
	return Field{Value: value, Valid: true}, end
}

func scanQuoted(line string, i int) (Field, int) {
	i++ // opening quote
	start := i
	escaped := false
	for i < len(line) {
		if line[i] != '"' {
			i++
			continue
		}
		if i+1 < len(line) && line[i+1] == '"' {
			escaped = true
			i += 2
			continue
		}
		break // closing quote
	}
	value := line[start:i]
	if escaped {
		// Skipped when no escaped quote was seen; most fields take the
		// zero-allocation path.
		value = strings.ReplaceAll(value, `""`, `"`)
	}
	if i < len(line) {
		i++ // closing quote
	}
	for i < len(line) && line[i] != ',' {
		i++ // tolerate junk between closing quote and delimiter
	}
	return Field{Value: value, Valid: true}, i
}
