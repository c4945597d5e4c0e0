package domain

import (
	"github.com/volatiletech/null/v8"
)

// ImportRow is the canonical output of every spreadsheet parser. It is never
// persisted as-is; the caller resolves StudentName to a student and converts
// the row into a typed record.
type ImportRow struct {
	StudentName    string       `json:"student_name"`
	Date           string       `json:"date,omitempty"`
	FormNumber     string       `json:"form_number,omitempty"`
	TestName       string       `json:"test_name,omitempty"`
	Score          null.Float64 `json:"score"`
	TotalHours     null.Float64 `json:"total_hours,omitempty"`
	ScheduledHours null.Float64 `json:"scheduled_hours,omitempty"`
}
