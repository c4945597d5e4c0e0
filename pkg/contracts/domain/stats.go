package domain

import (
	"github.com/volatiletech/null/v8"
)

// StudentWithStats is a student plus every derived metric. It is rebuilt on
// each read and never persisted.
type StudentWithStats struct {
	Student

	CasasReadingAvg        null.Float64 `json:"casas_reading_avg"`
	CasasReadingLast       null.Float64 `json:"casas_reading_last"`
	CasasReadingProgress   null.Float64 `json:"casas_reading_progress"`
	CasasListeningAvg      null.Float64 `json:"casas_listening_avg"`
	CasasListeningLast     null.Float64 `json:"casas_listening_last"`
	CasasListeningProgress null.Float64 `json:"casas_listening_progress"`
	TestAverage            null.Float64 `json:"test_average"`
	AttendanceAverage      null.Float64 `json:"attendance_average"`
	OverallScore           null.Float64 `json:"overall_score"`
	Rank                   null.Int     `json:"rank"`
	IsComplete             bool         `json:"is_complete"`
}

// RetentionResult is the outcome of one retention checkpoint. An invalid Rate
// means the checkpoint cannot be measured yet, which is distinct from 0%.
type RetentionResult struct {
	Rate     null.Float64 `json:"rate"`
	Retained int          `json:"retained"`
	Eligible int          `json:"eligible"`
	CameBack int          `json:"came_back"`
}
