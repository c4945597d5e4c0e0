package gradebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"gradebook/pkg/contracts/domain"
)

func testClass() domain.Class {
	return domain.Class{
		ID:                       "class-1",
		CasasReadingLevelStart:   200,
		CasasReadingTarget:       220,
		CasasListeningLevelStart: 190,
		CasasListeningTarget:     210,
		RankingWeights:           domain.DefaultRankingWeights(),
		ColorThresholds:          domain.DefaultColorThresholds(),
	}
}

func testStudent(id, name string) domain.Student {
	return domain.Student{ID: id, Name: name, ClassID: "class-1", EnrollmentDate: "2024-09-01"}
}

func reading(date string, score float64) domain.CasasTest {
	return domain.CasasTest{Type: domain.TestTypeReading, Date: date, Score: null.Float64From(score)}
}

func listening(date string, score float64) domain.CasasTest {
	return domain.CasasTest{Type: domain.TestTypeListening, Date: date, Score: null.Float64From(score)}
}

func completeHistory(readingScore, listeningScore, unit, attendance float64) History {
	return History{
		Reading:    []domain.CasasTest{reading("2024-09-15", readingScore)},
		Listening:  []domain.CasasTest{listening("2024-09-16", listeningScore)},
		UnitTests:  []domain.UnitTest{{TestName: "Unit 1", Date: "2024-10-01", Score: unit}},
		Attendance: []domain.Attendance{{Month: "2024-09", Percentage: attendance}},
	}
}

func TestAggregate_CompleteStudent(t *testing.T) {
	s := Aggregate(testStudent("s1", "Ana"), testClass(), completeHistory(210, 200, 80, 90))

	require.True(t, s.IsComplete)
	assert.InDelta(t, 50, s.CasasReadingProgress.Float64, 1e-9)
	assert.InDelta(t, 50, s.CasasListeningProgress.Float64, 1e-9)
	// 50*.25 + 50*.25 + 80*.25 + 90*.25
	assert.InDelta(t, 67.5, s.OverallScore.Float64, 1e-9)
	assert.False(t, s.Rank.Valid)
}

func TestAggregate_ProgressUsesMostRecentScore(t *testing.T) {
	h := completeHistory(0, 200, 80, 90)
	h.Reading = []domain.CasasTest{reading("2024-09-10", 150), reading("2024-11-10", 220)}

	s := Aggregate(testStudent("s1", "Ana"), testClass(), h)

	assert.Equal(t, 220.0, s.CasasReadingLast.Float64)
	assert.InDelta(t, 185, s.CasasReadingAvg.Float64, 1e-9)
	assert.InDelta(t, 100, s.CasasReadingProgress.Float64, 1e-9)
}

func TestAggregate_MissingUnitTestsIsIncomplete(t *testing.T) {
	h := completeHistory(260, 260, 100, 100)
	h.UnitTests = nil

	s := Aggregate(testStudent("s1", "Ana"), testClass(), h)

	assert.False(t, s.IsComplete)
	assert.False(t, s.OverallScore.Valid)
	assert.False(t, s.TestAverage.Valid)
	assert.True(t, s.CasasReadingAvg.Valid)
}

func TestAggregate_CompletenessRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *History)
	}{
		{"only invalid reading scores", func(h *History) {
			h.Reading = []domain.CasasTest{{Type: domain.TestTypeReading, Date: "2024-09-20"}}
		}},
		{"no listening", func(h *History) { h.Listening = nil }},
		{"only vacation attendance", func(h *History) {
			h.Attendance = []domain.Attendance{{Month: "2024-12", IsVacation: true}}
		}},
		{"attendance before enrollment", func(h *History) {
			h.Attendance = []domain.Attendance{{Month: "2024-08", Percentage: 100}}
		}},
		{"reading before enrollment", func(h *History) {
			h.Reading = []domain.CasasTest{reading("2024-08-31", 230)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := completeHistory(210, 200, 80, 90)
			tt.mutate(&h)
			s := Aggregate(testStudent("s1", "Ana"), testClass(), h)
			assert.False(t, s.IsComplete)
			assert.False(t, s.OverallScore.Valid)
		})
	}
}

func TestAggregate_EnrollmentMonthGranularityForAttendance(t *testing.T) {
	st := testStudent("s1", "Ana")
	st.EnrollmentDate = "2024-09-20"
	h := completeHistory(210, 200, 80, 90)
	h.Reading = []domain.CasasTest{reading("2024-09-21", 210)}
	h.Listening = []domain.CasasTest{listening("2024-09-21", 200)}
	h.UnitTests[0].Date = "2024-09-25"

	s := Aggregate(st, testClass(), h)

	assert.True(t, s.IsComplete)
	assert.InDelta(t, 90, s.AttendanceAverage.Float64, 1e-9)
}

func TestAggregate_ProgressCappedInOverallScore(t *testing.T) {
	s := Aggregate(testStudent("s1", "Ana"), testClass(), completeHistory(260, 260, 100, 100))

	assert.Greater(t, s.CasasReadingProgress.Float64, 100.0)
	assert.InDelta(t, 100, s.OverallScore.Float64, 1e-9)
}

func TestAggregate_AttendanceOverHundredNotCapped(t *testing.T) {
	class := testClass()
	class.RankingWeights = domain.RankingWeights{Attendance: 100}

	s := Aggregate(testStudent("s1", "Ana"), class, completeHistory(210, 200, 80, 110))

	assert.InDelta(t, 110, s.OverallScore.Float64, 1e-9)
}

func TestAggregate_DegenerateClassRange(t *testing.T) {
	class := testClass()
	class.CasasReadingTarget = class.CasasReadingLevelStart

	s := Aggregate(testStudent("s1", "Ana"), class, completeHistory(150, 200, 80, 90))

	assert.Equal(t, 100.0, s.CasasReadingProgress.Float64)
}
