package ingest

import (
	"regexp"
	"strings"

	"github.com/volatiletech/null/v8"

	"gradebook/pkg/contracts/domain"
)

// FormKind is the skill area a CASAS form belongs to.
type FormKind int

const (
	FormUnknown FormKind = iota
	FormReading
	FormListening
	FormCivics
)

func (k FormKind) String() string {
	switch k {
	case FormReading:
		return "reading"
	case FormListening:
		return "listening"
	case FormCivics:
		return "civics"
	default:
		return "unknown"
	}
}

// CASAS files often open with a metadata preamble.
const casasHeaderScanRows = 20

// Plausible range of CASAS scale scores.
const (
	CasasMinScore = 150
	CasasMaxScore = 260
)

var (
	casasDateField  = field{"test date", []string{"date", "test date", "assessment date", "date tested", "administration date", "admin date"}}
	casasFormField  = field{"form", []string{"form", "form number", "test form", "form #", "form no", "form no."}}
	casasScoreField = field{"score", []string{"score", "scale score", "scaled score"}}

	formSuffix = regexp.MustCompile(`([RLC])\d*$`)
)

// ClassifyForm decides which skill area a form code belongs to. A trailing
// C, R or L (optionally followed by digits) decides; otherwise a form
// containing only one of R and L is taken as that area.
func ClassifyForm(form string) FormKind {
	code := strings.ToUpper(strings.Join(strings.Fields(form), ""))
	if code == "" {
		return FormUnknown
	}
	if m := formSuffix.FindStringSubmatch(code); m != nil {
		switch m[1] {
		case "C":
			return FormCivics
		case "R":
			return FormReading
		case "L":
			return FormListening
		}
	}
	hasR, hasL := strings.Contains(code, "R"), strings.Contains(code, "L")
	switch {
	case hasR && !hasL:
		return FormReading
	case hasL && !hasR:
		return FormListening
	default:
		return FormUnknown
	}
}

// parseCasasScore reads a scale score. Invalid-administration markers yield
// an invalid score with ok=true.
func parseCasasScore(c Cell) (null.Float64, bool) {
	if c.Kind == CellText {
		s := strings.ToLower(strings.TrimSpace(c.Text))
		if strings.Contains(s, "*") || s == "invalid" || s == "n/a" {
			return null.Float64{}, true
		}
	}
	f, ok := c.Float()
	if !ok {
		return null.Float64{}, false
	}
	return null.Float64From(f), true
}

// ParseCasas extracts CASAS test rows.
func ParseCasas(g Grid) CasasResult {
	var res CasasResult
	if len(g) < minRows {
		res.fail(errTooFewRows)
		return res
	}

	required := []field{casasDateField, casasFormField, casasScoreField}
	headerIdx, best := headerScan(g, casasHeaderScanRows, func(r Row) (bool, int) {
		set := newColumnSet(r)
		score := 0
		if set.findName().Found() {
			score++
		}
		for _, f := range required {
			if set.find(f.synonyms).Found() {
				score++
			}
		}
		return score == len(required)+1, score
	})
	if headerIdx < 0 {
		reportMissing(g.Row(best), required, res.fail)
		return res
	}

	cols := newColumnSet(g[headerIdx])
	name := cols.findName()
	dateCol := cols.find(casasDateField.synonyms)
	formCol := cols.find(casasFormField.synonyms)
	scoreCol := cols.find(casasScoreField.synonyms)

	for i := headerIdx + 1; i < len(g); i++ {
		row := g[i]
		student := name.Value(row)
		if student == "" {
			continue
		}
		line := sheetRow(i)

		form := strings.TrimSpace(row.At(formCol.Index).String())
		if form == "" {
			res.warn("Row %d (%s): missing form number; skipped", line, student)
			continue
		}
		kind := ClassifyForm(form)
		switch kind {
		case FormCivics:
			res.CivicsSkipped++
			continue
		case FormUnknown:
			res.warn("Row %d (%s): cannot tell whether form %q is reading or listening; skipped", line, student, form)
			continue
		}

		date, ok := ParseDate(row.At(dateCol.Index))
		if !ok {
			res.warn("Row %d (%s): invalid test date %q; skipped", line, student, row.At(dateCol.Index).String())
			continue
		}

		score, ok := parseCasasScore(row.At(scoreCol.Index))
		if !ok {
			res.warn("Row %d (%s): invalid score %q; skipped", line, student, row.At(scoreCol.Index).String())
			continue
		}
		if score.Valid && (score.Float64 < CasasMinScore || score.Float64 > CasasMaxScore) {
			res.warn("Row %d (%s): score %g is outside the usual %d-%d range", line, student, score.Float64, CasasMinScore, CasasMaxScore)
		}

		out := domain.ImportRow{
			StudentName: student,
			Date:        date,
			FormNumber:  form,
			Score:       score,
		}
		if kind == FormReading {
			res.Reading = append(res.Reading, out)
		} else {
			res.Listening = append(res.Listening, out)
		}
	}
	return res
}

// reportMissing explains which required columns the closest header row
// lacks.
func reportMissing(header Row, required []field, fail func(string, ...any)) {
	set := newColumnSet(header)
	if !set.findName().Found() {
		fail("Could not find a student name column (expected e.g. \"Student Name\", \"Name\", or \"First Name\" and \"Last Name\")")
	}
	for _, f := range required {
		if !set.find(f.synonyms).Found() {
			fail("Could not find a %s column (expected one of: %s)", f.label, strings.Join(f.synonyms, ", "))
		}
	}
}
