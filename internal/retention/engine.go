package retention

import (
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"gradebook/pkg/contracts/domain"
)

// Engine answers retention questions for one class. It indexes the records it
// is given and never mutates them.
type Engine struct {
	students   []domain.Student
	attendance map[string][]domain.Attendance
	available  map[string]struct{}
}

// Report bundles every checkpoint for one school year.
type Report struct {
	SchoolYear string                 `json:"school_year"`
	ThirtyDay  domain.RetentionResult `json:"thirty_day"`
	Midyear    domain.RetentionResult `json:"midyear"`
	EndYear    domain.RetentionResult `json:"end_year"`
	YearToDate domain.RetentionResult `json:"year_to_date"`
}

// New builds an engine from every student in the class, dropped ones
// included, and their attendance.
func New(students []domain.Student, attendance []domain.Attendance) *Engine {
	e := &Engine{
		students:   students,
		attendance: make(map[string][]domain.Attendance),
		available:  make(map[string]struct{}),
	}
	for _, a := range attendance {
		e.attendance[a.StudentID] = append(e.attendance[a.StudentID], a)
		e.available[a.Month] = struct{}{}
	}
	return e
}

// EntryMonth is the first month the student was present.
func (e *Engine) EntryMonth(studentID string) (string, bool) {
	entry := ""
	for _, a := range e.attendance[studentID] {
		if a.Present() && (entry == "" || a.Month < entry) {
			entry = a.Month
		}
	}
	return entry, entry != ""
}

// ActiveInMonth reports whether the student was present in month.
func (e *Engine) ActiveInMonth(studentID, month string) bool {
	for _, a := range e.attendance[studentID] {
		if a.Month == month && a.Present() {
			return true
		}
	}
	return false
}

// CameBack reports whether a dropped student was present in any month after
// the drop month.
func (e *Engine) CameBack(s domain.Student) bool {
	if !s.IsDropped || !s.DroppedDate.Valid {
		return false
	}
	dropMonth := domain.MonthOf(s.DroppedDate.String)
	for _, a := range e.attendance[s.ID] {
		if a.Month > dropMonth && a.Present() {
			return true
		}
	}
	return false
}

// HasData reports whether anyone in the class has an attendance record for
// month.
func (e *Engine) HasData(month string) bool {
	_, ok := e.available[month]
	return ok
}

// AvailableMonths lists every month with attendance data, sorted.
func (e *Engine) AvailableMonths() []string {
	months := make([]string, 0, len(e.available))
	for m := range e.available {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// ThirtyDay checks each student one and two months after entry. A student is
// only counted once at least one of those months has class data. Entries
// from every year are counted; ThirtyDayIn limits them to one school year.
func (e *Engine) ThirtyDay() domain.RetentionResult {
	return e.thirtyDay(func(string) bool { return true })
}

// ThirtyDayIn is ThirtyDay for students who entered August through July of
// year.
func (e *Engine) ThirtyDayIn(year domain.SchoolYear) domain.RetentionResult {
	from, to := year.Month(time.August), year.Month(time.July)
	return e.thirtyDay(func(entry string) bool { return entry >= from && entry <= to })
}

func (e *Engine) thirtyDay(keep func(entry string) bool) domain.RetentionResult {
	var t tally
	for _, s := range e.students {
		entry, ok := e.EntryMonth(s.ID)
		if !ok || !keep(entry) {
			continue
		}
		first, _ := domain.AddMonths(entry, 1)
		second, _ := domain.AddMonths(entry, 2)
		if !e.HasData(first) && !e.HasData(second) {
			continue
		}
		t.add(e.ActiveInMonth(s.ID, first) || e.ActiveInMonth(s.ID, second), e.CameBack(s))
	}
	return t.result()
}

// Midyear follows students who entered August through December into
// January.
func (e *Engine) Midyear(year domain.SchoolYear) domain.RetentionResult {
	january := year.Month(time.January)
	if !e.HasData(january) {
		return domain.RetentionResult{}
	}

	from, to := year.Month(time.August), year.Month(time.December)
	var t tally
	for _, s := range e.students {
		entry, ok := e.EntryMonth(s.ID)
		if !ok || entry < from || entry > to {
			continue
		}
		t.add(e.ActiveInMonth(s.ID, january), e.CameBack(s))
	}
	return t.result()
}

// EndYear follows students who entered August through March into May or
// June.
func (e *Engine) EndYear(year domain.SchoolYear) domain.RetentionResult {
	may, june := year.Month(time.May), year.Month(time.June)
	if !e.HasData(may) && !e.HasData(june) {
		return domain.RetentionResult{}
	}

	from, to := year.Month(time.August), year.Month(time.March)
	var t tally
	for _, s := range e.students {
		entry, ok := e.EntryMonth(s.ID)
		if !ok || entry < from || entry > to {
			continue
		}
		t.add(e.ActiveInMonth(s.ID, may) || e.ActiveInMonth(s.ID, june), e.CameBack(s))
	}
	return t.result()
}

// YearToDate counts students enrolled between August 1 and now who are
// still on the roster, or came back after dropping.
func (e *Engine) YearToDate(year domain.SchoolYear, now time.Time) domain.RetentionResult {
	from := year.StartDate()
	to := now.Format("2006-01-02")

	var t tally
	for _, s := range e.students {
		if s.EnrollmentDate < from || s.EnrollmentDate > to {
			continue
		}
		t.add(!s.IsDropped, e.CameBack(s))
	}
	return t.result()
}

// Report runs every checkpoint for year. The 30-day checkpoint only counts
// students who entered during that school year.
func (e *Engine) Report(year domain.SchoolYear, now time.Time) Report {
	return Report{
		SchoolYear: year.String(),
		ThirtyDay:  e.ThirtyDayIn(year),
		Midyear:    e.Midyear(year),
		EndYear:    e.EndYear(year),
		YearToDate: e.YearToDate(year, now),
	}
}

type tally struct {
	retained, eligible, cameBack int
}

// add counts one eligible student. A student who was not active but came
// back is retained and counted in cameBack.
func (t *tally) add(active, cameBack bool) {
	t.eligible++
	switch {
	case active:
		t.retained++
	case cameBack:
		t.retained++
		t.cameBack++
	}
}

func (t tally) result() domain.RetentionResult {
	r := domain.RetentionResult{
		Retained: t.retained,
		Eligible: t.eligible,
		CameBack: t.cameBack,
	}
	if t.eligible > 0 {
		r.Rate = null.Float64From(float64(t.retained) / float64(t.eligible) * 100)
	}
	return r
}
