package retention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"gradebook/pkg/contracts/domain"
)

const year = domain.SchoolYear(2024)

func student(id, enrolled string) domain.Student {
	return domain.Student{ID: id, Name: id, ClassID: "c1", EnrollmentDate: enrolled}
}

func dropped(id, enrolled, droppedOn string) domain.Student {
	s := student(id, enrolled)
	s.IsDropped = true
	s.DroppedDate = null.StringFrom(droppedOn)
	return s
}

func att(studentID, month string, pct float64) domain.Attendance {
	return domain.Attendance{StudentID: studentID, Month: month, Percentage: pct}
}

func vacation(studentID, month string) domain.Attendance {
	return domain.Attendance{StudentID: studentID, Month: month, IsVacation: true}
}

func TestEntryMonth(t *testing.T) {
	e := New(
		[]domain.Student{student("a", "2024-08-20"), student("b", "2024-08-20")},
		[]domain.Attendance{
			att("a", "2024-10", 80),
			att("a", "2024-09", 0),
			vacation("a", "2024-08"),
			att("a", "2024-11", 90),
		},
	)

	entry, ok := e.EntryMonth("a")
	assert.True(t, ok)
	assert.Equal(t, "2024-10", entry)

	_, ok = e.EntryMonth("b")
	assert.False(t, ok)
}

func TestActiveInMonth_VacationNeverActive(t *testing.T) {
	rec := vacation("a", "2024-12")
	rec.Percentage = 75
	e := New([]domain.Student{student("a", "2024-09-01")}, []domain.Attendance{rec})

	assert.False(t, e.ActiveInMonth("a", "2024-12"))
	assert.True(t, e.HasData("2024-12"))
}

func TestCameBack(t *testing.T) {
	e := New(nil, []domain.Attendance{
		att("a", "2024-10", 90),
		att("a", "2025-01", 50),
		att("b", "2024-10", 90),
		att("b", "2024-11", 0),
		vacation("b", "2024-12"),
	})

	assert.True(t, e.CameBack(dropped("a", "2024-09-01", "2024-10-15")))
	assert.False(t, e.CameBack(dropped("b", "2024-09-01", "2024-10-15")))
	assert.False(t, e.CameBack(student("a", "2024-09-01")))

	noDate := student("a", "2024-09-01")
	noDate.IsDropped = true
	assert.False(t, e.CameBack(noDate))
}

func TestAvailableMonths_IncludesDroppedStudents(t *testing.T) {
	e := New(
		[]domain.Student{dropped("a", "2024-09-01", "2024-09-30")},
		[]domain.Attendance{att("a", "2024-10", 0), att("a", "2024-09", 100)},
	)
	assert.Equal(t, []string{"2024-09", "2024-10"}, e.AvailableMonths())
}

func TestThirtyDay(t *testing.T) {
	students := []domain.Student{
		student("retained-first", "2024-09-01"),
		student("retained-second", "2024-09-01"),
		student("lost", "2024-09-01"),
		student("never-attended", "2024-09-01"),
		student("window-open", "2024-09-01"),
	}
	records := []domain.Attendance{
		att("retained-first", "2024-09", 90),
		att("retained-first", "2024-10", 80),
		att("retained-second", "2024-09", 90),
		att("retained-second", "2024-11", 80),
		att("lost", "2024-09", 90),
		att("lost", "2024-10", 0),
		att("window-open", "2024-11", 100),
	}

	got := New(students, records).ThirtyDay()

	assert.Equal(t, 3, got.Eligible)
	assert.Equal(t, 2, got.Retained)
	assert.InDelta(t, 66.666, got.Rate.Float64, 0.01)
}

func TestThirtyDayIn_LimitsEntriesToSchoolYear(t *testing.T) {
	students := []domain.Student{
		student("last-year", "2023-09-01"),
		student("this-year", "2024-09-01"),
		student("july-entry", "2025-07-01"),
	}
	records := []domain.Attendance{
		att("last-year", "2023-09", 90),
		att("last-year", "2023-10", 90),
		att("this-year", "2024-09", 90),
		att("this-year", "2024-10", 0),
		att("july-entry", "2025-07", 90),
		att("july-entry", "2025-08", 90),
	}
	e := New(students, records)

	all := e.ThirtyDay()
	assert.Equal(t, 3, all.Eligible)
	assert.Equal(t, 2, all.Retained)

	got := e.ThirtyDayIn(year)
	assert.Equal(t, 2, got.Eligible)
	assert.Equal(t, 1, got.Retained)
	assert.Equal(t, 50.0, got.Rate.Float64)

	assert.Equal(t, got, e.Report(year, time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)).ThirtyDay)
}

func TestThirtyDay_NoEligible(t *testing.T) {
	got := New([]domain.Student{student("a", "2024-09-01")}, []domain.Attendance{att("a", "2024-09", 100)}).ThirtyDay()
	assert.False(t, got.Rate.Valid)
	assert.Zero(t, got.Eligible)
}

func TestMidyear_NoJanuaryData(t *testing.T) {
	students := []domain.Student{student("a", "2024-09-01"), student("b", "2024-10-01")}
	records := []domain.Attendance{att("a", "2024-09", 90), att("b", "2024-10", 90), att("b", "2024-12", 90)}

	got := New(students, records).Midyear(year)

	assert.Equal(t, domain.RetentionResult{}, got)
	assert.False(t, got.Rate.Valid)
}

func TestMidyear(t *testing.T) {
	students := []domain.Student{
		student("fall-stayed", "2024-09-01"),
		student("fall-left", "2024-09-01"),
		student("spring-entry", "2025-01-05"),
		dropped("came-back", "2024-09-01", "2024-10-20"),
	}
	records := []domain.Attendance{
		att("fall-stayed", "2024-09", 90),
		att("fall-stayed", "2025-01", 70),
		att("fall-left", "2024-11", 90),
		att("spring-entry", "2025-01", 100),
		att("came-back", "2024-09", 80),
		att("came-back", "2025-02", 50),
	}

	got := New(students, records).Midyear(year)

	assert.Equal(t, 3, got.Eligible)
	assert.Equal(t, 2, got.Retained)
	assert.Equal(t, 1, got.CameBack)
}

func TestEndYear(t *testing.T) {
	students := []domain.Student{
		student("may", "2024-09-01"),
		student("june", "2024-09-01"),
		student("gone", "2025-02-01"),
		student("late-entry", "2025-04-01"),
		student("last-year", "2024-06-01"),
	}
	records := []domain.Attendance{
		att("may", "2024-10", 90),
		att("may", "2025-05", 90),
		att("june", "2025-03", 90),
		att("june", "2025-06", 60),
		att("gone", "2025-02", 90),
		att("late-entry", "2025-04", 90),
		att("late-entry", "2025-05", 90),
		att("last-year", "2024-06", 90),
	}

	got := New(students, records).EndYear(year)

	assert.Equal(t, 3, got.Eligible)
	assert.Equal(t, 2, got.Retained)
	assert.InDelta(t, 66.666, got.Rate.Float64, 0.01)
}

func TestEndYear_NoCheckpointData(t *testing.T) {
	got := New([]domain.Student{student("a", "2024-09-01")}, []domain.Attendance{att("a", "2024-09", 90)}).EndYear(year)
	assert.False(t, got.Rate.Valid)
	assert.Zero(t, got.Eligible)
}

func TestCameBackOverridesDrop(t *testing.T) {
	// Dropped in October, attends again in January.
	s := dropped("a", "2024-09-01", "2024-10-10")
	records := []domain.Attendance{
		att("a", "2024-09", 90),
		att("a", "2024-10", 0),
		att("a", "2024-11", 0),
		att("a", "2025-01", 50),
	}
	e := New([]domain.Student{s}, records)

	thirty := e.ThirtyDay()
	assert.Equal(t, 1, thirty.Eligible)
	assert.Equal(t, 1, thirty.Retained)
	assert.Equal(t, 1, thirty.CameBack)

	mid := e.Midyear(year)
	assert.Equal(t, 1, mid.Retained)
	assert.Equal(t, 100.0, mid.Rate.Float64)

	ytd := e.YearToDate(year, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, ytd.Retained)
	assert.Equal(t, 1, ytd.CameBack)
}

func TestYearToDate(t *testing.T) {
	now := time.Date(2024, time.December, 15, 0, 0, 0, 0, time.UTC)
	students := []domain.Student{
		student("active", "2024-09-03"),
		dropped("lost", "2024-10-01", "2024-11-01"),
		student("future", "2025-01-10"),
		student("previous-year", "2024-07-31"),
	}

	got := New(students, nil).YearToDate(year, now)

	assert.Equal(t, 2, got.Eligible)
	assert.Equal(t, 1, got.Retained)
	assert.Equal(t, 50.0, got.Rate.Float64)
}

func TestReport(t *testing.T) {
	e := New(nil, nil)
	r := e.Report(year, time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "2024-2025", r.SchoolYear)
	assert.False(t, r.ThirtyDay.Rate.Valid)
	assert.False(t, r.Midyear.Rate.Valid)
	assert.False(t, r.EndYear.Rate.Valid)
	assert.False(t, r.YearToDate.Rate.Valid)
}
