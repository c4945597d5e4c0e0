package gradebook

import (
	"github.com/volatiletech/null/v8"

	"gradebook/internal/calc"
	"gradebook/pkg/contracts/domain"
)

// ProgressCap bounds CASAS progress before it is weighted into the overall
// score.
const ProgressCap = 100.0

// History is everything recorded for one student, in any class.
type History struct {
	Reading    []domain.CasasTest
	Listening  []domain.CasasTest
	UnitTests  []domain.UnitTest
	Attendance []domain.Attendance
}

// SinceEnrollment keeps only the records that count toward the student's
// current class.
func SinceEnrollment(student domain.Student, h History) History {
	from := student.EnrollmentDate
	fromMonth := student.EnrollmentMonth()

	out := History{}
	for _, t := range h.Reading {
		if t.Date >= from {
			out.Reading = append(out.Reading, t)
		}
	}
	for _, t := range h.Listening {
		if t.Date >= from {
			out.Listening = append(out.Listening, t)
		}
	}
	for _, t := range h.UnitTests {
		if t.Date >= from {
			out.UnitTests = append(out.UnitTests, t)
		}
	}
	for _, a := range h.Attendance {
		if a.Month >= fromMonth {
			out.Attendance = append(out.Attendance, a)
		}
	}
	return out
}

// Aggregate computes a student's statistics against its class. Rank is left
// unset; RankClass assigns it.
func Aggregate(student domain.Student, class domain.Class, h History) domain.StudentWithStats {
	f := SinceEnrollment(student, h)

	s := domain.StudentWithStats{Student: student}
	s.CasasReadingAvg = calc.CasasAverage(f.Reading)
	s.CasasReadingLast = calc.MostRecentScore(f.Reading)
	s.CasasListeningAvg = calc.CasasAverage(f.Listening)
	s.CasasListeningLast = calc.MostRecentScore(f.Listening)
	s.TestAverage = calc.UnitTestAverage(f.UnitTests)
	s.AttendanceAverage = calc.AttendanceAverage(f.Attendance)

	s.CasasReadingProgress = calc.Progress(s.CasasReadingLast, class.CasasReadingLevelStart, class.CasasReadingTarget)
	s.CasasListeningProgress = calc.Progress(s.CasasListeningLast, class.CasasListeningLevelStart, class.CasasListeningTarget)

	s.IsComplete = isComplete(f)
	s.OverallScore = overallScore(s, class.RankingWeights)
	return s
}

// isComplete requires at least one usable record in each category. The
// history must already be filtered to the enrollment window.
func isComplete(h History) bool {
	return hasValidScore(h.Reading) &&
		hasValidScore(h.Listening) &&
		len(h.UnitTests) > 0 &&
		hasAttendance(h.Attendance)
}

func hasValidScore(tests []domain.CasasTest) bool {
	for _, t := range tests {
		if t.Score.Valid {
			return true
		}
	}
	return false
}

func hasAttendance(records []domain.Attendance) bool {
	for _, a := range records {
		if !a.IsVacation {
			return true
		}
	}
	return false
}

func overallScore(s domain.StudentWithStats, w domain.RankingWeights) null.Float64 {
	if !s.IsComplete {
		return null.Float64{}
	}
	reading := calc.CapAt(s.CasasReadingProgress, ProgressCap)
	listening := calc.CapAt(s.CasasListeningProgress, ProgressCap)
	if !reading.Valid || !listening.Valid || !s.TestAverage.Valid || !s.AttendanceAverage.Valid {
		return null.Float64{}
	}

	// Attendance is deliberately left uncapped.
	score := reading.Float64*w.CasasReading/100 +
		listening.Float64*w.CasasListening/100 +
		s.TestAverage.Float64*w.Tests/100 +
		s.AttendanceAverage.Float64*w.Attendance/100
	return null.Float64From(score)
}
