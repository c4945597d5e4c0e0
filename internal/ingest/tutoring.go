package ingest

import (
	"math"
	"strings"
	"time"
	"unicode"

	"gradebook/pkg/contracts/domain"
)

// TutoringOptions places month/day values in a calendar year. When
// SchoolYear is zero it is derived from Today.
type TutoringOptions struct {
	SchoolYear domain.SchoolYear
	Today      time.Time
}

func (o TutoringOptions) year() domain.SchoolYear {
	if o.SchoolYear != 0 {
		return o.SchoolYear
	}
	today := o.Today
	if today.IsZero() {
		today = time.Now()
	}
	return domain.SchoolYearOf(today)
}

// ParseTutoring reads a session grid: a First Name / Last Name header, a
// row of month names that labels the columns after it, and one cell per
// student and month holding session dates. Each row of the result is one
// session.
func ParseTutoring(g Grid, opts TutoringOptions) Result {
	var res Result
	if len(g) < minRows {
		res.fail(errTooFewRows)
		return res
	}
	year := opts.year()

	headerIdx := -1
	var name NameColumns
	for i := 0; i < len(g) && i < headerScanRows; i++ {
		n := FindNameColumns(g[i])
		if n.Split() {
			headerIdx, name = i, n
			break
		}
	}
	if headerIdx < 0 {
		res.fail("Could not find \"First Name\" and \"Last Name\" columns in the first %d rows", headerScanRows)
		return res
	}

	months, monthRow := columnMonths(g, headerIdx)
	if monthRow < 0 {
		res.fail("Could not find a row of month names at or above the header")
		return res
	}

	for i := headerIdx + 1; i < len(g); i++ {
		row := g[i]
		student := name.Value(row)
		if student == "" {
			continue
		}
		line := sheetRow(i)

		seen := make(map[string]bool)
		for col, c := range row {
			m, ok := months[col]
			if !ok || c.IsEmpty() {
				continue
			}
			dates, bad := sessionDates(c, m, year)
			for _, tok := range bad {
				res.warn("Row %d (%s): could not read %q in column %s", line, student, tok, columnLetter(col))
			}
			for _, d := range dates {
				if seen[d] {
					continue
				}
				seen[d] = true
				res.Rows = append(res.Rows, domain.ImportRow{StudentName: student, Date: d})
			}
		}
	}
	return res
}

// columnMonths finds the month-name row at or above the header and maps
// every column from the first month name onwards to the month most
// recently named to its left.
func columnMonths(g Grid, headerIdx int) (map[int]time.Month, int) {
	for i := headerIdx; i >= 0; i-- {
		row := g[i]
		out := make(map[int]time.Month)
		var current time.Month
		for col, c := range row {
			if c.Kind == CellText {
				if m, ok := ParseMonthName(c.Text); ok {
					current = m
				}
			}
			if current != 0 {
				out[col] = current
			}
		}
		if len(out) > 0 {
			// Trailing columns with no header cell still belong to the last
			// month.
			if w := g.Width(); current != 0 {
				for col := len(row); col < w; col++ {
					out[col] = current
				}
			}
			return out, i
		}
	}
	return nil, -1
}

// sessionDates reads one cell. Small numbers are a day in the column's
// month, larger ones Excel serials. Text holds M/D tokens or bare days.
func sessionDates(c Cell, m time.Month, year domain.SchoolYear) (dates []string, bad []string) {
	switch c.Kind {
	case CellNumber:
		if d, ok := numericSession(c.Number, m, year); ok {
			return []string{d}, nil
		}
		return nil, []string{c.String()}
	case CellText:
		for _, tok := range strings.FieldsFunc(c.Text, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
		}) {
			if isDash(tok) {
				continue
			}
			if d, ok := textSession(tok, m, year); ok {
				dates = append(dates, d)
			} else {
				bad = append(bad, tok)
			}
		}
	}
	return dates, bad
}

// isDash reports whether tok is only dash characters ("-", "--", en or em
// dash), which sheets use for "no session".
func isDash(tok string) bool {
	return strings.TrimFunc(tok, func(r rune) bool {
		return unicode.Is(unicode.Pd, r) || r == '\u2212'
	}) == ""
}

func numericSession(f float64, m time.Month, year domain.SchoolYear) (string, bool) {
	if f >= 1 && f <= 31 && f == math.Trunc(f) {
		return schoolDate(year, m, int(f))
	}
	t, ok := ExcelSerialToDate(f)
	if !ok {
		return "", false
	}
	return t.Format(isoDay), true
}

func textSession(tok string, m time.Month, year domain.SchoolYear) (string, bool) {
	if strings.Contains(tok, "/") {
		return parseMonthDay(tok, year)
	}
	c := ParseCell(tok)
	if c.Kind != CellNumber {
		return "", false
	}
	return numericSession(c.Number, m, year)
}
