package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"gradebook/pkg/contracts/domain"
)

const isoDay = "2006-01-02"

// excelEpoch is day zero of the Excel 1900 date system as used in practice
// (it absorbs the fictitious 1900-02-29).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serials beyond this are past 9999-12-31 and cannot be dates.
const maxExcelSerial = 2958465

var dateLayouts = []string{
	isoDay,
	"1/2/2006",
	"1/2/06",
	"2006/1/2",
	"1-2-2006",
	"1-2-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"2 Jan 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ExcelSerialToDate converts an Excel serial day number to a date.
func ExcelSerialToDate(serial float64) (time.Time, bool) {
	if serial < 1 || serial > maxExcelSerial || math.IsNaN(serial) {
		return time.Time{}, false
	}
	days := int(math.Floor(serial))
	return excelEpoch.AddDate(0, 0, days), true
}

// ParseDate reads a cell as a calendar day and returns it in ISO form.
// Numeric cells are Excel serials.
func ParseDate(c Cell) (string, bool) {
	switch c.Kind {
	case CellNumber:
		t, ok := ExcelSerialToDate(c.Number)
		if !ok {
			return "", false
		}
		return t.Format(isoDay), true
	case CellText:
		return parseDateText(c.Text)
	default:
		return "", false
	}
}

func parseDateText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDay), true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if t, ok := ExcelSerialToDate(f); ok {
			return t.Format(isoDay), true
		}
	}
	return "", false
}

var monthLayouts = []string{"2006-01", "January 2006", "Jan 2006", "1/2006", "01/2006", "January, 2006", "Jan-06", "Jan-2006"}

// ParseMonth reads a cell as a month (YYYY-MM). A full date is truncated to
// its month.
func ParseMonth(c Cell) (string, bool) {
	if c.Kind == CellText {
		s := strings.TrimSpace(c.Text)
		for _, layout := range monthLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return domain.FormatMonth(t.Year(), t.Month()), true
			}
		}
	}
	day, ok := ParseDate(c)
	if !ok {
		return "", false
	}
	return domain.MonthOf(day), true
}

var monthNames = map[string]time.Month{}

func init() {
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		monthNames[full] = m
		monthNames[full[:3]] = m
	}
	monthNames["sept"] = time.September
}

// ParseMonthName recognizes full or abbreviated English month names,
// ignoring case and a trailing period.
func ParseMonthName(s string) (time.Month, bool) {
	key := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
	m, ok := monthNames[key]
	return m, ok
}

// schoolDate builds a date for month/day, placing the month in the right
// calendar year of the school year. It rejects impossible days.
func schoolDate(year domain.SchoolYear, m time.Month, day int) (string, bool) {
	if m < time.January || m > time.December || day < 1 || day > 31 {
		return "", false
	}
	y := year.YearOf(m)
	t := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != m {
		return "", false
	}
	return t.Format(isoDay), true
}

// parseMonthDay reads an "M/D" token, optionally with a trailing year. A
// token without a year is placed using the school year.
func parseMonthDay(token string, year domain.SchoolYear) (string, bool) {
	parts := strings.Split(token, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return "", false
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", false
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", false
	}
	if len(parts) == 3 {
		return parseDateText(token)
	}
	return schoolDate(year, time.Month(m), d)
}
