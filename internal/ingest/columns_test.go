package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func header(cells ...string) Row {
	r := make(Row, len(cells))
	for i, c := range cells {
		r[i] = ParseCell(c)
	}
	return r
}

func TestFindColumn_ExactBeforePartial(t *testing.T) {
	h := header("Student Name (Legal)", "Name")
	m := FindColumn(h, fullNameHeaders)
	assert.Equal(t, MatchExact, m.Kind)
	assert.Equal(t, 1, m.Index)

	h = header("Learner ID", "Student Name (Legal)", "Score")
	m = FindColumn(h, fullNameHeaders)
	assert.Equal(t, MatchPartial, m.Kind)
	assert.Equal(t, 1, m.Index)

	m = FindColumn(h, []string{"date"})
	assert.False(t, m.Found())
	assert.Equal(t, "none", m.Kind.String())
}

func TestFindColumn_Exclude(t *testing.T) {
	h := header("Score", "Score")
	m := FindColumn(h, []string{"score"}, 0)
	assert.Equal(t, 1, m.Index)
}

func TestFindNameColumns(t *testing.T) {
	tests := []struct {
		name   string
		header Row
		split  bool
		full   int
	}{
		{"exact full name wins", header("First Name", "Last Name", "Name"), false, 2},
		{"first and last", header("ID", "First", "Last Name"), true, -1},
		{"partial full name", header("ID", "Student Name (Legal)"), false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := FindNameColumns(tt.header)
			assert.True(t, n.Found())
			assert.Equal(t, tt.split, n.Split())
			if !tt.split {
				assert.Equal(t, tt.full, n.Full.Index)
			}
		})
	}

	assert.False(t, FindNameColumns(header("ID", "Score")).Found())
}

func TestNameColumns_Value(t *testing.T) {
	n := FindNameColumns(header("First Name", "Last Name"))
	assert.Equal(t, "Ana Lopez", n.Value(header(" Ana ", "Lopez")))
	assert.Equal(t, "Ana", n.Value(header("Ana")))
	assert.Equal(t, "", n.Value(header("", "")))

	full := FindNameColumns(header("Name"))
	assert.Equal(t, "Ana Maria Lopez", full.Value(header("Ana   Maria Lopez")))
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(0))
	assert.Equal(t, "Z", columnLetter(25))
	assert.Equal(t, "AA", columnLetter(26))
	assert.Equal(t, "AB", columnLetter(27))
}

func TestParseCell(t *testing.T) {
	assert.Equal(t, CellEmpty, ParseCell("  ").Kind)
	assert.Equal(t, NumberCell(42.5), ParseCell("42.5"))
	assert.Equal(t, CellText, ParseCell("Nan").Kind)

	f, ok := ParseCell("1,250%").Float()
	assert.True(t, ok)
	assert.Equal(t, 1250.0, f)
}
