package calc

import (
	"github.com/volatiletech/null/v8"

	"gradebook/pkg/contracts/domain"
)

// Level is a color band for a percentage.
type Level string

const (
	LevelGood    Level = "good"
	LevelWarning Level = "warning"
	LevelPoor    Level = "poor"
)

// Average returns the mean of every valid value produced by field. It
// returns an invalid value when nothing qualifies.
func Average[T any](records []T, field func(T) null.Float64) null.Float64 {
	var sum float64
	var n int
	for _, r := range records {
		v := field(r)
		if !v.Valid {
			continue
		}
		sum += v.Float64
		n++
	}
	if n == 0 {
		return null.Float64{}
	}
	return null.Float64From(sum / float64(n))
}

// CasasAverage averages the scores of valid administrations.
func CasasAverage(tests []domain.CasasTest) null.Float64 {
	return Average(tests, func(t domain.CasasTest) null.Float64 { return t.Score })
}

// UnitTestAverage averages unit-test scores.
func UnitTestAverage(tests []domain.UnitTest) null.Float64 {
	return Average(tests, func(t domain.UnitTest) null.Float64 { return null.Float64From(t.Score) })
}

// AttendanceAverage averages attendance percentages, skipping vacation months.
func AttendanceAverage(records []domain.Attendance) null.Float64 {
	return Average(records, func(a domain.Attendance) null.Float64 {
		if a.IsVacation {
			return null.Float64{}
		}
		return null.Float64From(a.Percentage)
	})
}

// MostRecent returns the valid-score test with the latest date. ISO dates
// compare correctly as strings. On a date tie the later element in input
// order wins.
func MostRecent(tests []domain.CasasTest) (domain.CasasTest, bool) {
	var best domain.CasasTest
	found := false
	for _, t := range tests {
		if !t.Score.Valid {
			continue
		}
		if !found || t.Date >= best.Date {
			best = t
			found = true
		}
	}
	return best, found
}

// MostRecentScore is MostRecent reduced to its score.
func MostRecentScore(tests []domain.CasasTest) null.Float64 {
	t, ok := MostRecent(tests)
	if !ok {
		return null.Float64{}
	}
	return t.Score
}

// Progress expresses value as a percentage of the way from levelStart to
// target. The result is not clamped. A degenerate range yields 100.
func Progress(value null.Float64, levelStart, target float64) null.Float64 {
	if !value.Valid {
		return null.Float64{}
	}
	if target == levelStart {
		return null.Float64From(100)
	}
	return null.Float64From((value.Float64 - levelStart) / (target - levelStart) * 100)
}

// ColorLevel bands value against thresholds. Thresholds are expected to
// satisfy Warning <= Good; if they don't, the result is still one of the
// three levels.
func ColorLevel(value null.Float64, thresholds domain.ColorThresholds) null.String {
	if !value.Valid {
		return null.String{}
	}
	switch {
	case value.Float64 >= thresholds.Good:
		return null.StringFrom(string(LevelGood))
	case value.Float64 >= thresholds.Warning:
		return null.StringFrom(string(LevelWarning))
	default:
		return null.StringFrom(string(LevelPoor))
	}
}

// CapAt returns min(value, limit), passing invalid values through.
func CapAt(value null.Float64, limit float64) null.Float64 {
	if !value.Valid || value.Float64 <= limit {
		return value
	}
	return null.Float64From(limit)
}
