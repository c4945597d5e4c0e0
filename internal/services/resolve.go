package services

import (
	"strings"

	"gradebook/internal/ingest"
	"gradebook/pkg/contracts/domain"
)

// StudentMatch is the result of resolving an imported name. Kind says
// which strategy matched. Candidates counts the students the winning
// strategy found; more than one partial candidate is ambiguous and
// Student is left empty.
type StudentMatch struct {
	Kind       ingest.MatchKind
	Student    domain.Student
	Candidates int
}

// Ambiguous reports whether several students matched equally well.
func (m StudentMatch) Ambiguous() bool {
	return m.Candidates > 1
}

// ResolveStudent finds name among students: first by exact name ignoring
// case and spacing, then by every word of the shorter name appearing in
// the longer one.
func ResolveStudent(name string, students []domain.Student) StudentMatch {
	want := nameTokens(name)
	if len(want) == 0 {
		return StudentMatch{}
	}
	key := strings.Join(want, " ")

	for _, s := range students {
		if strings.Join(nameTokens(s.Name), " ") == key {
			return StudentMatch{Kind: ingest.MatchExact, Student: s, Candidates: 1}
		}
	}

	var found []domain.Student
	for _, s := range students {
		if tokensOverlap(want, nameTokens(s.Name)) {
			found = append(found, s)
		}
	}
	switch len(found) {
	case 0:
		return StudentMatch{}
	case 1:
		return StudentMatch{Kind: ingest.MatchPartial, Student: found[0], Candidates: 1}
	default:
		return StudentMatch{Kind: ingest.MatchPartial, Candidates: len(found)}
	}
}

func nameTokens(name string) []string {
	return strings.Fields(strings.ToLower(strings.ReplaceAll(name, ",", " ")))
}

// tokensOverlap reports whether every token of the shorter list is in the
// longer one.
func tokensOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	have := make(map[string]bool, len(b))
	for _, t := range b {
		have[t] = true
	}
	for _, t := range a {
		if !have[t] {
			return false
		}
	}
	return true
}
