package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "gradebook/internal/errors"
	"gradebook/internal/store"
	"gradebook/pkg/contracts/domain"
)

// RecordService manages classes, students and hand-entered records.
type RecordService struct {
	repo   store.Repository
	backup *store.SyncBuffer[store.Snapshot]
	logger *slog.Logger
	now    func() time.Time
}

// NewRecordService creates the service. backup and logger may be nil.
func NewRecordService(repo store.Repository, backup *store.SyncBuffer[store.Snapshot], logger *slog.Logger) *RecordService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordService{
		repo:   repo,
		backup: backup,
		logger: logger.With(slog.String("service", "records")),
		now:    time.Now,
	}
}

// Classes lists every class by name.
func (s *RecordService) Classes(ctx context.Context) ([]domain.Class, error) {
	classes, err := s.repo.ListClasses(ctx)
	if err != nil {
		return nil, storeError(err, "classes")
	}
	return classes, nil
}

// Class returns one class.
func (s *RecordService) Class(ctx context.Context, id string) (domain.Class, error) {
	c, err := s.repo.GetClass(ctx, id)
	if err != nil {
		return domain.Class{}, storeError(err, "class")
	}
	return c, nil
}

// SaveClass creates or updates a class. A class without weights or
// thresholds gets the defaults.
func (s *RecordService) SaveClass(ctx context.Context, c *domain.Class) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return apperrors.NewAppValidationError("class name is required")
	}
	if c.RankingWeights == (domain.RankingWeights{}) {
		c.RankingWeights = domain.DefaultRankingWeights()
	}
	if c.ColorThresholds == (domain.ColorThresholds{}) {
		c.ColorThresholds = domain.DefaultColorThresholds()
	}
	if c.ID != "" {
		if _, err := s.repo.GetClass(ctx, c.ID); err != nil {
			return storeError(err, "class")
		}
	}
	if err := s.repo.SaveClass(ctx, c); err != nil {
		return storeError(err, "class")
	}
	s.logger.InfoContext(ctx, "Class saved", slog.String("class_id", c.ID), slog.String("name", c.Name))
	s.queueBackup(ctx)
	return nil
}

// Students lists a class's students, optionally with dropped ones.
func (s *RecordService) Students(ctx context.Context, classID string, includeDropped bool) ([]domain.Student, error) {
	if _, err := s.repo.GetClass(ctx, classID); err != nil {
		return nil, storeError(err, "class")
	}
	students, err := s.repo.ListStudents(ctx, classID, includeDropped)
	if err != nil {
		return nil, storeError(err, "students")
	}
	return students, nil
}

// Student returns one student record.
func (s *RecordService) Student(ctx context.Context, id string) (domain.Student, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return domain.Student{}, storeError(err, "student")
	}
	return st, nil
}

// SaveStudent creates or updates a student. New students enroll today
// unless a date is given.
func (s *RecordService) SaveStudent(ctx context.Context, st *domain.Student) error {
	st.Name = strings.Join(strings.Fields(st.Name), " ")
	if st.EnrollmentDate == "" {
		st.EnrollmentDate = s.today()
	}
	if _, err := s.repo.GetClass(ctx, st.ClassID); err != nil {
		return storeError(err, "class")
	}
	if err := s.repo.SaveStudent(ctx, st); err != nil {
		return storeError(err, "student")
	}
	s.logger.InfoContext(ctx, "Student saved", slog.String("student_id", st.ID), slog.String("class_id", st.ClassID))
	s.queueBackup(ctx)
	return nil
}

// DropStudent marks a student as dropped on date, or today when date is
// empty. Their records are kept.
func (s *RecordService) DropStudent(ctx context.Context, id, date string) (domain.Student, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return domain.Student{}, storeError(err, "student")
	}
	if date == "" {
		date = s.today()
	}
	st.Drop(date)
	if err := s.repo.SaveStudent(ctx, &st); err != nil {
		return domain.Student{}, storeError(err, "student")
	}
	s.logger.InfoContext(ctx, "Student dropped", slog.String("student_id", id), slog.String("date", date))
	s.queueBackup(ctx)
	return st, nil
}

// RestoreStudent re-activates a dropped student, moving them to classID
// when it is not empty.
func (s *RecordService) RestoreStudent(ctx context.Context, id, classID string) (domain.Student, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return domain.Student{}, storeError(err, "student")
	}
	if classID != "" {
		if _, err := s.repo.GetClass(ctx, classID); err != nil {
			return domain.Student{}, storeError(err, "class")
		}
	}
	st.Restore(classID)
	if err := s.repo.SaveStudent(ctx, &st); err != nil {
		return domain.Student{}, storeError(err, "student")
	}
	s.logger.InfoContext(ctx, "Student restored", slog.String("student_id", id), slog.String("class_id", st.ClassID))
	s.queueBackup(ctx)
	return st, nil
}

// UnitTestColumn names a test column of a class.
type UnitTestColumn struct {
	TestName string `json:"test_name" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
}

// RenameUnitTest moves every score in one test column to another name and
// date. It fails with a conflict if any student already has the target.
func (s *RecordService) RenameUnitTest(ctx context.Context, classID string, from, to UnitTestColumn) (n int, err error) {
	ctx, span := tracer().Start(ctx, "records.rename_unit_test",
		trace.WithAttributes(attribute.String("class.id", classID)))
	defer func() { endSpan(span, err) }()

	if _, err := s.repo.GetClass(ctx, classID); err != nil {
		return 0, storeError(err, "class")
	}
	to.TestName = strings.TrimSpace(to.TestName)
	n, err = s.repo.RenameUnitTest(ctx, classID, from.TestName, from.Date, to.TestName, to.Date)
	if err != nil {
		return 0, storeError(err, "unit test")
	}
	s.logger.InfoContext(ctx, "Unit test renamed",
		slog.String("class_id", classID),
		slog.String("from", from.TestName),
		slog.String("to", to.TestName),
		slog.Int("scores", n))
	if n > 0 {
		s.queueBackup(ctx)
	}
	return n, nil
}

// SetVacation flags or clears a student's month as vacation. A month with
// no record yet gets one with zero attendance.
func (s *RecordService) SetVacation(ctx context.Context, studentID, month string, vacation bool) (domain.Attendance, error) {
	if _, err := s.repo.GetStudent(ctx, studentID); err != nil {
		return domain.Attendance{}, storeError(err, "student")
	}
	records, err := s.repo.Attendance(ctx, studentID)
	if err != nil {
		return domain.Attendance{}, storeError(err, "attendance")
	}

	rec := domain.Attendance{StudentID: studentID, Month: month}
	for _, a := range records {
		if a.Month == month {
			rec = a
			break
		}
	}
	rec.IsVacation = vacation
	if err := s.repo.SaveAttendance(ctx, &rec); err != nil {
		return domain.Attendance{}, storeError(err, "attendance")
	}
	s.queueBackup(ctx)
	return rec, nil
}

// History returns every record of a student.
func (s *RecordService) History(ctx context.Context, studentID string) (StudentHistory, error) {
	st, err := s.repo.GetStudent(ctx, studentID)
	if err != nil {
		return StudentHistory{}, storeError(err, "student")
	}
	h := StudentHistory{Student: st}
	if h.Casas, err = s.repo.CasasTests(ctx, studentID, ""); err != nil {
		return h, storeError(err, "casas tests")
	}
	if h.UnitTests, err = s.repo.UnitTests(ctx, studentID); err != nil {
		return h, storeError(err, "unit tests")
	}
	if h.Attendance, err = s.repo.Attendance(ctx, studentID); err != nil {
		return h, storeError(err, "attendance")
	}
	if h.Tutoring, err = s.repo.TutoringSessions(ctx, studentID); err != nil {
		return h, storeError(err, "tutoring sessions")
	}
	return h, nil
}

// StudentHistory is a student with all their records, oldest first.
type StudentHistory struct {
	Student    domain.Student           `json:"student"`
	Casas      []domain.CasasTest       `json:"casas_tests"`
	UnitTests  []domain.UnitTest        `json:"unit_tests"`
	Attendance []domain.Attendance      `json:"attendance"`
	Tutoring   []domain.TutoringSession `json:"tutoring_sessions"`
}

func (s *RecordService) today() string {
	return s.now().Format("2006-01-02")
}

func (s *RecordService) queueBackup(ctx context.Context) {
	queueBackup(ctx, s.repo, s.backup, s.logger)
}
