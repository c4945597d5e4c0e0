package testutil

import (
	"gradebook/pkg/contracts/domain"
)

// NewClass returns an unsaved class with the default weights and
// thresholds and a CASAS scale of 200 to 210 for both skills.
func NewClass(name string) domain.Class {
	return domain.Class{
		Name:                     name,
		CasasReadingLevelStart:   200,
		CasasReadingTarget:       210,
		CasasListeningLevelStart: 200,
		CasasListeningTarget:     210,
		RankingWeights:           domain.DefaultRankingWeights(),
		ColorThresholds:          domain.DefaultColorThresholds(),
	}
}

// NewStudent returns an unsaved active student.
func NewStudent(name, classID, enrolled string) domain.Student {
	return domain.Student{
		Name:           name,
		ClassID:        classID,
		EnrollmentDate: enrolled,
	}
}

// CSV joins rows into comma-separated text for spreadsheet tests.
func CSV(rows ...string) string {
	out := ""
	for _, r := range rows {
		out += r + "\n"
	}
	return out
}
