package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPrecondition marks hard-stop input problems: a required column, header
// or sheet is absent. Callers halt the run and report the message verbatim.
var ErrPrecondition = errors.New("precondition failed")

// MissingColumnError names every required column absent from a table.
type MissingColumnError struct {
	Stage   string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Columns) == 1 {
		return fmt.Sprintf("%s: missing required column: %s", e.Stage, e.Columns[0])
	}
	return fmt.Sprintf("%s: missing required columns: %s", e.Stage, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnError) Unwrap() error { return ErrPrecondition }

// MissingHeaderError is returned when a template sheet lacks a header cell.
type MissingHeaderError struct {
	Header string
	Row    int
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("header '%s' not found in row %d", e.Header, e.Row)
}

func (e *MissingHeaderError) Unwrap() error { return ErrPrecondition }

// SheetNotFoundError is returned when a workbook has no sheet with the given name.
type SheetNotFoundError struct {
	Sheet string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet not found: %s", e.Sheet)
}

func (e *SheetNotFoundError) Unwrap() error { return ErrPrecondition }
