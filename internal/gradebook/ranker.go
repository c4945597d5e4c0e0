package gradebook

import (
	"sort"
	"strings"

	"github.com/volatiletech/null/v8"

	"gradebook/pkg/contracts/domain"
)

// Entry pairs a student with its full history.
type Entry struct {
	Student domain.Student
	History History
}

// RankClass aggregates every entry and returns the students in rank order.
// Complete students receive ranks 1..n; incomplete students follow with no
// rank.
func RankClass(class domain.Class, entries []Entry) []domain.StudentWithStats {
	out := make([]domain.StudentWithStats, 0, len(entries))
	for _, e := range entries {
		out = append(out, Aggregate(e.Student, class, e.History))
	}
	Rank(out)
	return out
}

// Rank sorts stats in place and assigns dense ranks to complete students.
func Rank(stats []domain.StudentWithStats) {
	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		ar, br := rankable(a), rankable(b)
		if ar != br {
			return ar
		}
		if ar && a.OverallScore.Float64 != b.OverallScore.Float64 {
			return a.OverallScore.Float64 > b.OverallScore.Float64
		}
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})

	next := 1
	for i := range stats {
		if !rankable(stats[i]) {
			stats[i].Rank = null.Int{}
			continue
		}
		stats[i].Rank = null.IntFrom(next)
		next++
	}
}

func rankable(s domain.StudentWithStats) bool {
	return s.IsComplete && s.OverallScore.Valid
}
