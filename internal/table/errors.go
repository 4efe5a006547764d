package table

import (
	"fmt"
	"strings"
)

// FormatError indicates an input file that is missing, unreadable, or has no header.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("format error in %s", e.Path)
	}
	return fmt.Sprintf("format error in %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SchemaDriftError indicates expected columns are absent from a loaded header.
type SchemaDriftError struct {
	Table   string
	Missing []string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("schema drift in %s: missing column(s) %s", e.Table, strings.Join(e.Missing, ", "))
}

// DuplicateKeyError indicates two rows share the same key within one table.
type DuplicateKeyError struct {
	Table  string
	Column string
	Key    string
	Rows   [2]int // 1-based data row numbers of the first two occurrences
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s %q in %s (rows %d and %d)", e.Column, e.Key, e.Table, e.Rows[0], e.Rows[1])
}
