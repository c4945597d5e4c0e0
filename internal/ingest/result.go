package ingest

import (
	"fmt"

	"gradebook/pkg/contracts/domain"
)

// Result is what a parser hands back: rows plus the problems found. When
// Errors is non-empty, Rows is always empty.
type Result struct {
	Rows     []domain.ImportRow `json:"rows"`
	Errors   []string           `json:"errors"`
	Warnings []string           `json:"warnings"`
}

// OK reports whether the file was structurally usable.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

func (r *Result) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Rows = nil
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// CasasResult separates CASAS rows by skill area.
type CasasResult struct {
	Reading       []domain.ImportRow `json:"reading"`
	Listening     []domain.ImportRow `json:"listening"`
	CivicsSkipped int                `json:"civics_skipped"`
	Errors        []string           `json:"errors"`
	Warnings      []string           `json:"warnings"`
}

// OK reports whether the file was structurally usable.
func (r *CasasResult) OK() bool {
	return len(r.Errors) == 0
}

func (r *CasasResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Reading, r.Listening = nil, nil
}

func (r *CasasResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// minRows is a header plus one data row.
const minRows = 2

const errTooFewRows = "File must contain a header row and at least one data row"

// sheetRow converts a zero-based grid index into the row number a user sees
// in a spreadsheet.
func sheetRow(i int) int {
	return i + 1
}

// columnLetter converts a zero-based column index into A, B, ..., AA.
func columnLetter(i int) string {
	s := ""
	for i++; i > 0; i = (i - 1) / 26 {
		s = string(rune('A'+(i-1)%26)) + s
	}
	return s
}

// field is a logical column a parser looks for.
type field struct {
	label    string
	synonyms []string
}

// headerScan finds the first row, among the first limit rows, where check
// succeeds. It also returns the row where check came closest, for error
// reporting.
func headerScan(g Grid, limit int, check func(Row) (ok bool, score int)) (found int, best int) {
	found, best = -1, 0
	bestScore := -1
	for i := 0; i < len(g) && i < limit; i++ {
		ok, score := check(g[i])
		if ok {
			return i, i
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return found, best
}
