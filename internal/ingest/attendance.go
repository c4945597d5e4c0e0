package ingest

import (
	"math"

	"github.com/volatiletech/null/v8"

	"gradebook/pkg/contracts/domain"
)

const headerScanRows = 10

var (
	scheduledHoursField = field{"scheduled hours", []string{"scheduled hours", "hours scheduled", "scheduled", "possible hours", "hours possible", "hours offered"}}
	totalHoursField     = field{"total hours", []string{"total hours", "hours attended", "attended hours", "attendance hours", "total", "hours"}}
	attendanceMonthCols = []string{"month", "date", "period"}
)

// RoundPercent rounds to one decimal place.
func RoundPercent(v float64) float64 {
	return math.Round(v*10) / 10
}

// ParseAttendance extracts hours attended and scheduled per student. The
// percentage is derived here and carried in Score. When the sheet has a
// month column its value is carried in Date as the first day of that month.
func ParseAttendance(g Grid) Result {
	var res Result
	if len(g) < minRows {
		res.fail(errTooFewRows)
		return res
	}

	// Scheduled is resolved first so the loose "hours" synonym for total
	// cannot claim it.
	required := []field{scheduledHoursField, totalHoursField}
	headerIdx, best := headerScan(g, headerScanRows, func(r Row) (bool, int) {
		set := newColumnSet(r)
		score := 0
		if set.findName().Found() {
			score++
		}
		for _, f := range required {
			if set.find(f.synonyms).Found() {
				score++
			}
		}
		return score == len(required)+1, score
	})
	if headerIdx < 0 {
		reportMissing(g.Row(best), required, res.fail)
		return res
	}

	cols := newColumnSet(g[headerIdx])
	name := cols.findName()
	scheduledCol := cols.find(scheduledHoursField.synonyms)
	totalCol := cols.find(totalHoursField.synonyms)
	monthCol := cols.find(attendanceMonthCols)

	for i := headerIdx + 1; i < len(g); i++ {
		row := g[i]
		student := name.Value(row)
		if student == "" {
			continue
		}
		line := sheetRow(i)

		total, ok := row.At(totalCol.Index).Float()
		if !ok || total < 0 {
			res.warn("Row %d (%s): invalid total hours %q; skipped", line, student, row.At(totalCol.Index).String())
			continue
		}
		scheduled, ok := row.At(scheduledCol.Index).Float()
		if !ok || scheduled <= 0 {
			res.warn("Row %d (%s): scheduled hours must be a positive number, got %q; skipped", line, student, row.At(scheduledCol.Index).String())
			continue
		}
		if total > scheduled {
			res.warn("Row %d (%s): %g hours attended exceeds %g scheduled; percentage will be over 100", line, student, total, scheduled)
		}

		out := domain.ImportRow{
			StudentName:    student,
			Score:          null.Float64From(RoundPercent(total / scheduled * 100)),
			TotalHours:     null.Float64From(total),
			ScheduledHours: null.Float64From(scheduled),
		}
		if monthCol.Found() {
			if c := row.At(monthCol.Index); !c.IsEmpty() {
				month, ok := ParseMonth(c)
				if !ok {
					res.warn("Row %d (%s): invalid month %q; skipped", line, student, c.String())
					continue
				}
				out.Date = month + "-01"
			}
		}
		res.Rows = append(res.Rows, out)
	}
	return res
}
