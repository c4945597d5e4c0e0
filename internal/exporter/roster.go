package exporter

import (
	"strconv"

	"gradebook/internal/services"
)

var rosterHeaders = []string{
	"Rank", "Name", "Enrolled",
	"Overall %", "Overall Level",
	"CASAS Reading Last", "CASAS Reading Progress %",
	"CASAS Listening Last", "CASAS Listening Progress %",
	"Test Average %", "Attendance %", "Tutoring Sessions", "Complete",
}

// RosterTable flattens a roster in its rank order. Unranked students keep
// an empty rank.
func RosterTable(r services.Roster) Table {
	t := Table{Headers: rosterHeaders, Records: make([][]string, 0, len(r.Students))}
	for _, e := range r.Students {
		t.Records = append(t.Records, []string{
			formatInt(e.Rank),
			e.Name,
			e.EnrollmentDate,
			formatFloat(e.OverallScore),
			e.Levels.Overall.String,
			formatFloat(e.CasasReadingLast),
			formatFloat(e.CasasReadingProgress),
			formatFloat(e.CasasListeningLast),
			formatFloat(e.CasasListeningProgress),
			formatFloat(e.TestAverage),
			formatFloat(e.AttendanceAverage),
			strconv.Itoa(e.TutoringSessions),
			formatBool(e.IsComplete),
		})
	}
	return t
}
