package ingest

import (
	"strings"
)

// MatchKind names the strategy that located a column.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchPartial
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchPartial:
		return "partial"
	default:
		return "none"
	}
}

// ColumnMatch is the result of a header lookup. Index is meaningful only when
// Kind is not MatchNone.
type ColumnMatch struct {
	Kind  MatchKind
	Index int
}

// Found reports whether the column was located.
func (m ColumnMatch) Found() bool {
	return m.Kind != MatchNone
}

// Synonym lists for logical fields, most specific first.
var (
	fullNameHeaders  = []string{"student name", "name", "learner name", "full name", "student", "learner", "student full name"}
	firstNameHeaders = []string{"first name", "first", "given name", "firstname"}
	lastNameHeaders  = []string{"last name", "last", "surname", "family name", "lastname"}
)

// normalizeHeader lowercases, trims and collapses inner whitespace.
func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// FindColumn locates a header cell matching any synonym. Every exact match is
// tried before any partial (substring) match. Columns listed in exclude are
// never returned.
func FindColumn(header Row, synonyms []string, exclude ...int) ColumnMatch {
	skip := make(map[int]bool, len(exclude))
	for _, i := range exclude {
		skip[i] = true
	}

	for _, syn := range synonyms {
		for i, c := range header {
			if skip[i] || c.IsEmpty() {
				continue
			}
			if normalizeHeader(c.String()) == syn {
				return ColumnMatch{Kind: MatchExact, Index: i}
			}
		}
	}
	for _, syn := range synonyms {
		for i, c := range header {
			if skip[i] || c.IsEmpty() {
				continue
			}
			if strings.Contains(normalizeHeader(c.String()), syn) {
				return ColumnMatch{Kind: MatchPartial, Index: i}
			}
		}
	}
	return ColumnMatch{}
}

// columnSet resolves several fields from one header row without assigning
// the same column twice.
type columnSet struct {
	header Row
	used   []int
}

func newColumnSet(header Row) *columnSet {
	return &columnSet{header: header}
}

func (s *columnSet) find(synonyms []string) ColumnMatch {
	m := FindColumn(s.header, synonyms, s.used...)
	if m.Found() {
		s.used = append(s.used, m.Index)
	}
	return m
}

// NameColumns describes where a student's name lives: one full-name column,
// or separate first and last columns.
type NameColumns struct {
	Full  ColumnMatch
	First ColumnMatch
	Last  ColumnMatch
}

// Split reports whether the name is assembled from first and last columns.
func (n NameColumns) Split() bool {
	return !n.Full.Found() && n.First.Found() && n.Last.Found()
}

// Found reports whether any usable name layout was located.
func (n NameColumns) Found() bool {
	return n.Full.Found() || n.Split()
}

// Value extracts the student name from a data row.
func (n NameColumns) Value(row Row) string {
	if n.Full.Found() {
		return strings.Join(strings.Fields(row.At(n.Full.Index).String()), " ")
	}
	if n.Split() {
		first := strings.TrimSpace(row.At(n.First.Index).String())
		last := strings.TrimSpace(row.At(n.Last.Index).String())
		return strings.TrimSpace(first + " " + last)
	}
	return ""
}

func (n NameColumns) indexes() []int {
	var out []int
	for _, m := range []ColumnMatch{n.Full, n.First, n.Last} {
		if m.Found() {
			out = append(out, m.Index)
		}
	}
	return out
}

// FindNameColumns resolves the name layout: an exact full-name header wins,
// then a first/last pair, then a partial full-name header that is not one
// of the first/last columns.
func FindNameColumns(header Row) NameColumns {
	var n NameColumns

	if m := FindColumn(header, fullNameHeaders); m.Kind == MatchExact {
		n.Full = m
		return n
	}

	first := FindColumn(header, firstNameHeaders)
	last := FindColumn(header, lastNameHeaders)
	if first.Found() {
		last = FindColumn(header, lastNameHeaders, first.Index)
	}
	if first.Found() && last.Found() {
		n.First, n.Last = first, last
		return n
	}

	var exclude []int
	if first.Found() {
		exclude = append(exclude, first.Index)
	}
	if last.Found() {
		exclude = append(exclude, last.Index)
	}
	n.Full = FindColumn(header, fullNameHeaders, exclude...)
	return n
}

func (s *columnSet) findName() NameColumns {
	n := FindNameColumns(s.header)
	s.used = append(s.used, n.indexes()...)
	return n
}
