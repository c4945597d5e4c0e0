package ingest

import (
	"strings"

	"github.com/volatiletech/null/v8"

	"gradebook/pkg/contracts/domain"
)

// UnitTestOptions supplies values a simple sheet may leave out. TestName
// and Date apply to every row that has no value of its own.
type UnitTestOptions struct {
	TestName string
	Date     string
}

const trackerDatePrefix = "date:"

// trackerFirstColumn is where test columns may begin in a progress tracker.
const trackerFirstColumn = 2

var (
	unitScoreField = field{"score", []string{"score", "grade", "percent", "percentage", "%", "result"}}
	unitDateCols   = []string{"test date", "date"}
	unitNameCols   = []string{"test name", "test", "unit", "assessment"}
)

// IsProgressTracker reports whether g is a wide grid with one test per
// column: the second row holds two or more "Date:" cells from the third
// column on.
func IsProgressTracker(g Grid) bool {
	row := g.Row(1)
	n := 0
	for i := trackerFirstColumn; i < len(row); i++ {
		if isTrackerDate(row[i]) {
			n++
		}
	}
	return n >= 2
}

func isTrackerDate(c Cell) bool {
	return c.Kind == CellText && strings.HasPrefix(strings.ToLower(c.Text), trackerDatePrefix)
}

// ParseUnitTests extracts unit-test scores from either the simple
// one-score-per-row layout or a progress tracker.
func ParseUnitTests(g Grid, opts UnitTestOptions) Result {
	var res Result
	if len(g) < minRows {
		res.fail(errTooFewRows)
		return res
	}
	if IsProgressTracker(g) {
		return parseTracker(g)
	}

	required := []field{unitScoreField}
	headerIdx, best := headerScan(g, headerScanRows, func(r Row) (bool, int) {
		set := newColumnSet(r)
		score := 0
		if set.findName().Found() {
			score++
		}
		if set.find(unitScoreField.synonyms).Found() {
			score++
		}
		return score == 2, score
	})
	if headerIdx < 0 {
		reportMissing(g.Row(best), required, res.fail)
		return res
	}

	cols := newColumnSet(g[headerIdx])
	name := cols.findName()
	scoreCol := cols.find(unitScoreField.synonyms)
	dateCol := cols.find(unitDateCols)
	testCol := cols.find(unitNameCols)

	testName := strings.TrimSpace(opts.TestName)
	if !testCol.Found() && testName == "" {
		res.fail("Could not find a test name column and no test name was given")
		return res
	}

	for i := headerIdx + 1; i < len(g); i++ {
		row := g[i]
		student := name.Value(row)
		if student == "" {
			continue
		}
		line := sheetRow(i)

		score, ok := row.At(scoreCol.Index).Float()
		if !ok {
			res.warn("Row %d (%s): invalid score %q; skipped", line, student, row.At(scoreCol.Index).String())
			continue
		}
		if score < 0 || score > 100 {
			res.warn("Row %d (%s): score %g is outside 0-100; skipped", line, student, score)
			continue
		}

		test := testName
		if testCol.Found() {
			if v := strings.TrimSpace(row.At(testCol.Index).String()); v != "" {
				test = v
			}
		}
		if test == "" {
			res.warn("Row %d (%s): missing test name; skipped", line, student)
			continue
		}

		date := opts.Date
		if dateCol.Found() {
			if c := row.At(dateCol.Index); !c.IsEmpty() {
				d, ok := ParseDate(c)
				if !ok {
					res.warn("Row %d (%s): invalid date %q; skipped", line, student, c.String())
					continue
				}
				date = d
			}
		}

		res.Rows = append(res.Rows, domain.ImportRow{
			StudentName: student,
			Date:        date,
			TestName:    test,
			Score:       null.Float64From(score),
		})
	}
	return res
}

type trackerColumn struct {
	index int
	name  string
	date  string
}

// parseTracker reads a progress tracker: row 0 names each test, row 1
// dates it, and every later row is one student across all tests.
func parseTracker(g Grid) Result {
	var res Result
	names, dates := g[0], g[1]

	var tests []trackerColumn
	firstTest := -1
	for i := trackerFirstColumn; i < len(dates); i++ {
		if !isTrackerDate(dates[i]) {
			continue
		}
		if firstTest < 0 {
			firstTest = i
		}
		col := columnLetter(i)
		raw := strings.TrimSpace(dates[i].Text[len(trackerDatePrefix):])
		date, ok := parseDateText(raw)
		if !ok {
			res.warn("Column %s: invalid date %q; column skipped", col, raw)
			continue
		}
		name := strings.TrimSpace(names.At(i).String())
		if name == "" {
			res.warn("Column %s: missing test name; column skipped", col)
			continue
		}
		tests = append(tests, trackerColumn{index: i, name: name, date: date})
	}

	name := FindNameColumns(names[:min(firstTest, len(names))])
	if !name.Found() {
		res.fail("Could not find a student name column in the first row")
		return res
	}

	for i := 2; i < len(g); i++ {
		row := g[i]
		student := name.Value(row)
		if student == "" {
			continue
		}
		line := sheetRow(i)
		for _, t := range tests {
			c := row.At(t.index)
			if c.IsEmpty() {
				continue
			}
			score, ok := c.Float()
			if !ok {
				res.warn("Row %d (%s): invalid score %q for %s; skipped", line, student, c.String(), t.name)
				continue
			}
			if score < 0 || score > 100 {
				res.warn("Row %d (%s): score %g for %s is outside 0-100; skipped", line, student, score, t.name)
				continue
			}
			res.Rows = append(res.Rows, domain.ImportRow{
				StudentName: student,
				Date:        t.date,
				TestName:    t.name,
				Score:       null.Float64From(score),
			})
		}
	}
	return res
}
