package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/volatiletech/null/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gradebook/internal/calc"
	apperrors "gradebook/internal/errors"
	"gradebook/internal/gradebook"
	"gradebook/internal/retention"
	"gradebook/internal/store"
	"gradebook/pkg/contracts/domain"
)

// Levels are the color bands of a student's percentages.
type Levels struct {
	CasasReading   null.String `json:"casas_reading"`
	CasasListening null.String `json:"casas_listening"`
	Tests          null.String `json:"tests"`
	Attendance     null.String `json:"attendance"`
	Overall        null.String `json:"overall"`
}

// RosterEntry is one student's line on a class roster.
type RosterEntry struct {
	domain.StudentWithStats
	TutoringSessions int    `json:"tutoring_sessions"`
	Levels           Levels `json:"levels"`
}

// Roster is a class with its students in rank order.
type Roster struct {
	Class    domain.Class  `json:"class"`
	Students []RosterEntry `json:"students"`
	Ranked   int           `json:"ranked"`
}

// GradebookService computes rosters and retention from stored records.
type GradebookService struct {
	repo    store.Reader
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewGradebookService creates the service. metrics and logger may be nil.
func NewGradebookService(repo store.Reader, metrics *Metrics, logger *slog.Logger) *GradebookService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopMetrics()
	}
	return &GradebookService{
		repo:    repo,
		metrics: metrics,
		logger:  logger.With(slog.String("service", "gradebook")),
		now:     time.Now,
	}
}

// Roster ranks every active student in a class.
func (s *GradebookService) Roster(ctx context.Context, classID string) (roster Roster, err error) {
	ctx, span := tracer().Start(ctx, "gradebook.roster",
		trace.WithAttributes(attribute.String("class.id", classID)))
	defer func() { endSpan(span, err) }()

	class, err := s.repo.GetClass(ctx, classID)
	if err != nil {
		return Roster{}, storeError(err, "class")
	}
	students, err := s.repo.ListStudents(ctx, classID, false)
	if err != nil {
		return Roster{}, storeError(err, "students")
	}

	entries := make([]gradebook.Entry, 0, len(students))
	sessions := make(map[string]int, len(students))
	for _, st := range students {
		h, err := s.history(ctx, st.ID)
		if err != nil {
			return Roster{}, err
		}
		entries = append(entries, gradebook.Entry{Student: st, History: h})

		ts, err := s.repo.TutoringSessions(ctx, st.ID)
		if err != nil {
			return Roster{}, storeError(err, "tutoring sessions")
		}
		sessions[st.ID] = len(ts)
	}

	ranked := gradebook.RankClass(class, entries)
	roster = Roster{Class: class, Students: make([]RosterEntry, len(ranked))}
	for i, st := range ranked {
		roster.Students[i] = s.entry(class, st, sessions[st.ID])
		if st.Rank.Valid {
			roster.Ranked++
		}
	}

	span.SetAttributes(
		attribute.Int("roster.students", len(ranked)),
		attribute.Int("roster.ranked", roster.Ranked))
	s.metrics.RosterBuilds.Add(ctx, 1)
	s.metrics.RosterStudents.Record(ctx, int64(len(ranked)))
	s.logger.DebugContext(ctx, "Roster computed",
		slog.String("class_id", classID),
		slog.Int("students", len(ranked)),
		slog.Int("ranked", roster.Ranked))
	return roster, nil
}

// Student returns one student's line. Active students carry their class
// rank; dropped students are aggregated alone and never ranked.
func (s *GradebookService) Student(ctx context.Context, studentID string) (RosterEntry, error) {
	st, err := s.repo.GetStudent(ctx, studentID)
	if err != nil {
		return RosterEntry{}, storeError(err, "student")
	}
	if !st.IsDropped {
		roster, err := s.Roster(ctx, st.ClassID)
		if err != nil {
			return RosterEntry{}, err
		}
		for _, e := range roster.Students {
			if e.ID == studentID {
				return e, nil
			}
		}
	}

	class, err := s.repo.GetClass(ctx, st.ClassID)
	if err != nil {
		return RosterEntry{}, storeError(err, "class")
	}
	h, err := s.history(ctx, st.ID)
	if err != nil {
		return RosterEntry{}, err
	}
	ts, err := s.repo.TutoringSessions(ctx, st.ID)
	if err != nil {
		return RosterEntry{}, storeError(err, "tutoring sessions")
	}
	return s.entry(class, gradebook.Aggregate(st, class, h), len(ts)), nil
}

// Retention computes every checkpoint for a class and school year. A zero
// year means the current school year.
func (s *GradebookService) Retention(ctx context.Context, classID string, year domain.SchoolYear) (report retention.Report, err error) {
	now := s.now()
	if year == 0 {
		year = domain.SchoolYearOf(now)
	}
	ctx, span := tracer().Start(ctx, "gradebook.retention",
		trace.WithAttributes(
			attribute.String("class.id", classID),
			attribute.String("school_year", year.String())))
	defer func() { endSpan(span, err) }()

	if _, err := s.repo.GetClass(ctx, classID); err != nil {
		return retention.Report{}, storeError(err, "class")
	}
	students, err := s.repo.ListStudents(ctx, classID, true)
	if err != nil {
		return retention.Report{}, storeError(err, "students")
	}
	var attendance []domain.Attendance
	for _, st := range students {
		a, err := s.repo.Attendance(ctx, st.ID)
		if err != nil {
			return retention.Report{}, storeError(err, "attendance")
		}
		attendance = append(attendance, a...)
	}

	report = retention.New(students, attendance).Report(year, now)
	s.logger.DebugContext(ctx, "Retention computed",
		slog.String("class_id", classID),
		slog.String("school_year", year.String()),
		slog.Int("students", len(students)))
	return report, nil
}

func (s *GradebookService) history(ctx context.Context, studentID string) (gradebook.History, error) {
	var h gradebook.History
	var err error
	if h.Reading, err = s.repo.CasasTests(ctx, studentID, domain.TestTypeReading); err != nil {
		return h, storeError(err, "casas tests")
	}
	if h.Listening, err = s.repo.CasasTests(ctx, studentID, domain.TestTypeListening); err != nil {
		return h, storeError(err, "casas tests")
	}
	if h.UnitTests, err = s.repo.UnitTests(ctx, studentID); err != nil {
		return h, storeError(err, "unit tests")
	}
	if h.Attendance, err = s.repo.Attendance(ctx, studentID); err != nil {
		return h, storeError(err, "attendance")
	}
	return h, nil
}

func (s *GradebookService) entry(class domain.Class, st domain.StudentWithStats, sessions int) RosterEntry {
	t := class.ColorThresholds
	return RosterEntry{
		StudentWithStats: st,
		TutoringSessions: sessions,
		Levels: Levels{
			CasasReading:   calc.ColorLevel(st.CasasReadingProgress, t),
			CasasListening: calc.ColorLevel(st.CasasListeningProgress, t),
			Tests:          calc.ColorLevel(st.TestAverage, t),
			Attendance:     calc.ColorLevel(st.AttendanceAverage, t),
			Overall:        calc.ColorLevel(st.OverallScore, t),
		},
	}
}

// storeError converts store failures into application errors.
func storeError(err error, resource string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		notFound := apperrors.NewNotFoundError(resource)
		notFound.Cause = err
		return notFound
	case errors.Is(err, store.ErrInvalid):
		return apperrors.NewAppError(apperrors.ErrTypeValidation, err.Error(), err)
	case errors.Is(err, store.ErrConflict):
		return apperrors.NewConflictError(err.Error(), err)
	default:
		return apperrors.NewStorageError(fmt.Sprintf("%s: storage failure", resource), err)
	}
}
