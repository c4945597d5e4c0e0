package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "gradebook/internal/errors"
	"gradebook/internal/ingest"
	"gradebook/internal/store"
	"gradebook/pkg/contracts/domain"
)

// ImportKind names a spreadsheet format.
type ImportKind string

const (
	ImportCasas      ImportKind = "casas"
	ImportAttendance ImportKind = "attendance"
	ImportUnitTests  ImportKind = "unit_tests"
	ImportTutoring   ImportKind = "tutoring"
)

// ImportKinds lists every supported kind.
var ImportKinds = []ImportKind{ImportCasas, ImportAttendance, ImportUnitTests, ImportTutoring}

// ParseImportKind accepts a kind name, also with a dash instead of the
// underscore.
func ParseImportKind(s string) (ImportKind, error) {
	k := ImportKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range ImportKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown import kind %q", s)
}

// ImportRequest describes one upload.
type ImportRequest struct {
	ClassID  string     `json:"class_id" validate:"required"`
	Kind     ImportKind `json:"kind" validate:"required,oneof=casas attendance unit_tests tutoring"`
	FileName string     `json:"file_name"`
	// Month applies to attendance sheets without a month column.
	Month string `json:"month,omitempty" validate:"omitempty,datetime=2006-01"`
	// TestName and TestDate apply to unit-test rows that lack them.
	TestName string `json:"test_name,omitempty"`
	TestDate string `json:"test_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	// SchoolYear places month/day tutoring dates; zero means the current
	// school year.
	SchoolYear domain.SchoolYear `json:"school_year,omitempty"`
}

// ImportSummary reports what an import did. Errors means nothing was
// saved.
type ImportSummary struct {
	Kind            ImportKind `json:"kind"`
	FileName        string     `json:"file_name,omitempty"`
	Saved           int        `json:"saved"`
	StudentsCreated []string   `json:"students_created,omitempty"`
	CivicsSkipped   int        `json:"civics_skipped,omitempty"`
	Errors          []string   `json:"errors,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
}

// OK reports whether the file was accepted.
func (s ImportSummary) OK() bool {
	return len(s.Errors) == 0
}

func (s *ImportSummary) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// ImportService turns uploaded spreadsheets into stored records.
type ImportService struct {
	repo     store.Repository
	backup   *store.SyncBuffer[store.Snapshot]
	validate *validator.Validate
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewImportService creates the service. backup, metrics and logger may be
// nil; without a backup buffer no snapshot is queued after imports.
func NewImportService(repo store.Repository, backup *store.SyncBuffer[store.Snapshot], metrics *Metrics, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopMetrics()
	}
	return &ImportService{
		repo:     repo,
		backup:   backup,
		validate: validator.New(),
		metrics:  metrics,
		logger:   logger.With(slog.String("service", "import")),
		now:      time.Now,
	}
}

// Import reads a CSV or XLSX upload and imports it.
func (s *ImportService) Import(ctx context.Context, req ImportRequest, r io.Reader) (ImportSummary, error) {
	g, err := ingest.ReadGrid(req.FileName, r)
	if err != nil {
		return ImportSummary{Kind: req.Kind, FileName: req.FileName},
			apperrors.NewParsingError("could not read spreadsheet", err).WithContext("file", req.FileName)
	}
	return s.ImportGrid(ctx, req, g)
}

// ImportGrid parses g as req.Kind and saves the rows into the class. Data
// problems in the sheet are reported in the summary, not as an error.
func (s *ImportService) ImportGrid(ctx context.Context, req ImportRequest, g ingest.Grid) (sum ImportSummary, err error) {
	ctx, span := tracer().Start(ctx, "import."+string(req.Kind),
		trace.WithAttributes(
			attribute.String("class.id", req.ClassID),
			attribute.String("import.file", req.FileName),
			attribute.Int("import.grid_rows", len(g))))
	defer func() { endSpan(span, err) }()

	sum = ImportSummary{Kind: req.Kind, FileName: req.FileName}
	if err := s.validate.Struct(req); err != nil {
		return sum, apperrors.NewAppError(apperrors.ErrTypeValidation, "invalid import request", err)
	}
	if _, err := s.repo.GetClass(ctx, req.ClassID); err != nil {
		return sum, storeError(err, "class")
	}

	batch := s.parse(req, g, &sum)
	if !sum.OK() {
		s.metrics.importDone(ctx, req.Kind, "rejected", 0, len(sum.Warnings))
		s.logger.WarnContext(ctx, "Import rejected",
			slog.String("kind", string(req.Kind)),
			slog.String("file", req.FileName),
			slog.Any("errors", sum.Errors))
		return sum, nil
	}

	students, err := s.repo.ListStudents(ctx, req.ClassID, true)
	if err != nil {
		return sum, storeError(err, "students")
	}
	res := &resolver{svc: s, classID: req.ClassID, students: students, first: batch.firstDates(), sum: &sum}
	if err := s.save(ctx, batch, res, &sum); err != nil {
		s.metrics.importDone(ctx, req.Kind, "failed", sum.Saved, len(sum.Warnings))
		return sum, err
	}

	if len(sum.StudentsCreated) > 0 {
		s.metrics.StudentsCreated.Add(ctx, int64(len(sum.StudentsCreated)))
	}
	s.metrics.importDone(ctx, req.Kind, "ok", sum.Saved, len(sum.Warnings))
	span.SetAttributes(
		attribute.Int("import.saved", sum.Saved),
		attribute.Int("import.warnings", len(sum.Warnings)))
	s.logger.InfoContext(ctx, "Import complete",
		slog.String("kind", string(req.Kind)),
		slog.String("file", req.FileName),
		slog.String("class_id", req.ClassID),
		slog.Int("saved", sum.Saved),
		slog.Int("students_created", len(sum.StudentsCreated)),
		slog.Int("warnings", len(sum.Warnings)))

	s.queueBackup(ctx)
	return sum, nil
}

// batch holds parsed rows ready to save.
type batch struct {
	kind      ImportKind
	reading   []domain.ImportRow
	listening []domain.ImportRow
	rows      []domain.ImportRow
}

func (b batch) all() []domain.ImportRow {
	out := append(append([]domain.ImportRow(nil), b.reading...), b.listening...)
	return append(out, b.rows...)
}

// firstDates maps each lowercased name to its earliest dated row.
func (b batch) firstDates() map[string]string {
	first := make(map[string]string)
	for _, r := range b.all() {
		if r.Date == "" {
			continue
		}
		key := strings.ToLower(r.StudentName)
		if cur, ok := first[key]; !ok || r.Date < cur {
			first[key] = r.Date
		}
	}
	return first
}

func (s *ImportService) parse(req ImportRequest, g ingest.Grid, sum *ImportSummary) batch {
	b := batch{kind: req.Kind}
	switch req.Kind {
	case ImportCasas:
		res := ingest.ParseCasas(g)
		b.reading, b.listening = res.Reading, res.Listening
		sum.CivicsSkipped = res.CivicsSkipped
		sum.Errors, sum.Warnings = res.Errors, res.Warnings
		return b
	case ImportAttendance:
		res := ingest.ParseAttendance(g)
		b.rows, sum.Errors, sum.Warnings = res.Rows, res.Errors, res.Warnings
		if sum.OK() && req.Month != "" {
			for i := range b.rows {
				if b.rows[i].Date == "" {
					b.rows[i].Date = req.Month + "-01"
				}
			}
		}
		for _, r := range b.rows {
			if r.Date == "" {
				sum.Errors = append(sum.Errors, "The sheet has no month column; choose the month it covers")
				b.rows = nil
				break
			}
		}
	case ImportUnitTests:
		res := ingest.ParseUnitTests(g, ingest.UnitTestOptions{TestName: req.TestName, Date: req.TestDate})
		b.rows, sum.Errors, sum.Warnings = res.Rows, res.Errors, res.Warnings
		today := s.now().Format("2006-01-02")
		for i := range b.rows {
			if b.rows[i].Date == "" {
				b.rows[i].Date = today
			}
		}
	case ImportTutoring:
		res := ingest.ParseTutoring(g, ingest.TutoringOptions{SchoolYear: req.SchoolYear, Today: s.now()})
		b.rows, sum.Errors, sum.Warnings = res.Rows, res.Errors, res.Warnings
	}
	return b
}

func (s *ImportService) save(ctx context.Context, b batch, res *resolver, sum *ImportSummary) error {
	for _, group := range []struct {
		rows     []domain.ImportRow
		testType domain.TestType
	}{{b.reading, domain.TestTypeReading}, {b.listening, domain.TestTypeListening}, {b.rows, ""}} {
		for _, row := range group.rows {
			st, ok, err := res.resolve(ctx, row.StudentName)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := s.saveRow(ctx, b.kind, group.testType, st, row); err != nil {
				if errors.Is(err, store.ErrInvalid) {
					sum.warn("%s: %v; skipped", row.StudentName, err)
					continue
				}
				return storeError(err, "import rows")
			}
			sum.Saved++
		}
	}
	return nil
}

func (s *ImportService) saveRow(ctx context.Context, kind ImportKind, testType domain.TestType, st domain.Student, row domain.ImportRow) error {
	switch kind {
	case ImportCasas:
		return s.repo.SaveCasasTest(ctx, &domain.CasasTest{
			StudentID:  st.ID,
			Type:       testType,
			Date:       row.Date,
			FormNumber: row.FormNumber,
			Score:      row.Score,
		})
	case ImportAttendance:
		return s.repo.SaveAttendance(ctx, &domain.Attendance{
			StudentID:  st.ID,
			Month:      domain.MonthOf(row.Date),
			Percentage: row.Score.Float64,
		})
	case ImportUnitTests:
		return s.repo.SaveUnitTest(ctx, &domain.UnitTest{
			StudentID: st.ID,
			TestName:  row.TestName,
			Date:      row.Date,
			Score:     row.Score.Float64,
		})
	case ImportTutoring:
		return s.repo.SaveTutoringSession(ctx, &domain.TutoringSession{
			StudentID: st.ID,
			Date:      row.Date,
		})
	}
	return fmt.Errorf("unknown import kind %q", kind)
}

// resolver maps imported names to students, creating students on first
// sight. Results are cached per name so each warning is reported once.
type resolver struct {
	svc      *ImportService
	classID  string
	students []domain.Student
	first    map[string]string
	sum      *ImportSummary
	cache    map[string]*domain.Student
}

func (r *resolver) resolve(ctx context.Context, name string) (domain.Student, bool, error) {
	key := strings.ToLower(name)
	if r.cache == nil {
		r.cache = make(map[string]*domain.Student)
	}
	if st, ok := r.cache[key]; ok {
		if st == nil {
			return domain.Student{}, false, nil
		}
		return *st, true, nil
	}

	m := ResolveStudent(name, r.students)
	switch {
	case m.Ambiguous():
		r.sum.warn("%q matches %d students; rows skipped", name, m.Candidates)
		r.cache[key] = nil
		return domain.Student{}, false, nil
	case m.Kind == ingest.MatchExact:
		r.cache[key] = &m.Student
		return m.Student, true, nil
	case m.Kind == ingest.MatchPartial:
		r.sum.warn("%q matched existing student %q", name, m.Student.Name)
		r.cache[key] = &m.Student
		return m.Student, true, nil
	}

	enrolled, ok := r.first[key]
	if !ok {
		enrolled = r.svc.now().Format("2006-01-02")
	}
	st := domain.Student{
		Name:           strings.Join(strings.Fields(name), " "),
		ClassID:        r.classID,
		EnrollmentDate: enrolled,
	}
	if err := r.svc.repo.SaveStudent(ctx, &st); err != nil {
		return domain.Student{}, false, storeError(err, "student")
	}
	r.students = append(r.students, st)
	r.cache[key] = &st
	r.sum.StudentsCreated = append(r.sum.StudentsCreated, st.Name)
	return st, true, nil
}

func (s *ImportService) queueBackup(ctx context.Context) {
	queueBackup(ctx, s.repo, s.backup, s.logger)
}

// queueBackup hands a fresh snapshot to the backup buffer, if there is one.
func queueBackup(ctx context.Context, repo store.Repository, backup *store.SyncBuffer[store.Snapshot], logger *slog.Logger) {
	if backup == nil {
		return
	}
	snap, err := repo.Snapshot(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Snapshot for backup failed", slog.String("error", err.Error()))
		return
	}
	backup.Enqueue(snap)
}
