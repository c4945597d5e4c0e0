package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SchoolYearStartMonth is the month a school year begins.
const SchoolYearStartMonth = time.August

// SchoolYear is identified by the calendar year it starts in: SchoolYear(2024)
// runs from August 2024 through July 2025.
type SchoolYear int

// SchoolYearOf returns the school year containing t.
func SchoolYearOf(t time.Time) SchoolYear {
	if t.Month() >= SchoolYearStartMonth {
		return SchoolYear(t.Year())
	}
	return SchoolYear(t.Year() - 1)
}

// StartYear is the calendar year of August.
func (y SchoolYear) StartYear() int { return int(y) }

// EndYear is the calendar year of the following spring.
func (y SchoolYear) EndYear() int { return int(y) + 1 }

// YearOf resolves a calendar month to its calendar year within the school
// year: August through December fall in the start year, the rest in the end
// year.
func (y SchoolYear) YearOf(m time.Month) int {
	if m >= SchoolYearStartMonth {
		return y.StartYear()
	}
	return y.EndYear()
}

// Month formats a month of this school year as YYYY-MM.
func (y SchoolYear) Month(m time.Month) string {
	return FormatMonth(y.YearOf(m), m)
}

// StartDate is August 1 of the start year as an ISO day.
func (y SchoolYear) StartDate() string {
	return fmt.Sprintf("%04d-%02d-01", y.StartYear(), int(SchoolYearStartMonth))
}

// String renders the year as "2024-2025".
func (y SchoolYear) String() string {
	return fmt.Sprintf("%d-%d", y.StartYear(), y.EndYear())
}

// ParseSchoolYear accepts "2024-2025" or the start year alone ("2024").
func ParseSchoolYear(s string) (SchoolYear, error) {
	s = strings.TrimSpace(s)
	start, end, ranged := strings.Cut(s, "-")
	y, err := strconv.Atoi(start)
	if err != nil || len(start) != 4 {
		return 0, fmt.Errorf("invalid school year %q", s)
	}
	if ranged {
		e, err := strconv.Atoi(end)
		if err != nil || e != y+1 {
			return 0, fmt.Errorf("invalid school year %q", s)
		}
	}
	return SchoolYear(y), nil
}

// FormatMonth renders year and month as YYYY-MM.
func FormatMonth(year int, m time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(m))
}

// AddMonths shifts a YYYY-MM month by n calendar months. It returns false
// when month is malformed.
func AddMonths(month string, n int) (string, bool) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return "", false
	}
	t = t.AddDate(0, n, 0)
	return FormatMonth(t.Year(), t.Month()), true
}
