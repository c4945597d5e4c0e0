package domain

import (
	"time"
)

// Class defines the scoring scale for its students.
type Class struct {
	ID                       string          `json:"id" db:"id"`
	Name                     string          `json:"name" db:"name"`
	CasasReadingLevelStart   float64         `json:"casas_reading_level_start" db:"casas_reading_level_start"`
	CasasReadingTarget       float64         `json:"casas_reading_target" db:"casas_reading_target"`
	CasasListeningLevelStart float64         `json:"casas_listening_level_start" db:"casas_listening_level_start"`
	CasasListeningTarget     float64         `json:"casas_listening_target" db:"casas_listening_target"`
	RankingWeights           RankingWeights  `json:"ranking_weights"`
	ColorThresholds          ColorThresholds `json:"color_thresholds"`
	CreatedAt                time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at" db:"updated_at"`
}

// RankingWeights are percentages applied to each component of the overall
// score. They are intended to sum to 100 but this is not enforced.
type RankingWeights struct {
	CasasReading   float64 `json:"casas_reading" db:"weight_casas_reading" validate:"min=0"`
	CasasListening float64 `json:"casas_listening" db:"weight_casas_listening" validate:"min=0"`
	Tests          float64 `json:"tests" db:"weight_tests" validate:"min=0"`
	Attendance     float64 `json:"attendance" db:"weight_attendance" validate:"min=0"`
}

// Sum returns the total of all weights.
func (w RankingWeights) Sum() float64 {
	return w.CasasReading + w.CasasListening + w.Tests + w.Attendance
}

// ColorThresholds split a percentage into good / warning / poor bands.
type ColorThresholds struct {
	Good    float64 `json:"good" db:"threshold_good"`
	Warning float64 `json:"warning" db:"threshold_warning"`
}

// DefaultRankingWeights returns an even split across the four components.
func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		CasasReading:   25,
		CasasListening: 25,
		Tests:          25,
		Attendance:     25,
	}
}

// DefaultColorThresholds returns the thresholds new classes start with.
func DefaultColorThresholds() ColorThresholds {
	return ColorThresholds{Good: 80, Warning: 60}
}
