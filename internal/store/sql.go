package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"gradebook/pkg/contracts/domain"
)

// Driver names a supported database.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// OpenDB opens a database and ensures the schema exists.
func OpenDB(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:gradebook.db?_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/gradebook?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One writer at a time; also keeps ":memory:" databases on a single
		// connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// SQL is a Repository backed by database/sql.
type SQL struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQL wraps a database opened with OpenDB.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db, now: time.Now}
}

// Close closes the underlying database.
func (s *SQL) Close() error {
	return s.db.Close()
}

// clock truncates to the stored precision so a saved record equals its
// reloaded copy.
func (s *SQL) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func micros(t time.Time) int64 { return t.UnixMicro() }

func fromMicros(n int64) time.Time { return time.UnixMicro(n).UTC() }

type scanner interface {
	Scan(dest ...any) error
}

// stamps scans the trailing created_at and updated_at columns.
type stamps struct{ created, updated int64 }

func (st *stamps) apply(created, updated *time.Time) {
	*created, *updated = fromMicros(st.created), fromMicros(st.updated)
}

func classRow(c *domain.Class) []any {
	return []any{c.ID, c.Name,
		c.CasasReadingLevelStart, c.CasasReadingTarget,
		c.CasasListeningLevelStart, c.CasasListeningTarget,
		c.RankingWeights.CasasReading, c.RankingWeights.CasasListening, c.RankingWeights.Tests, c.RankingWeights.Attendance,
		c.ColorThresholds.Good, c.ColorThresholds.Warning,
		micros(c.CreatedAt), micros(c.UpdatedAt)}
}

func scanClass(r scanner) (domain.Class, error) {
	var c domain.Class
	var st stamps
	err := r.Scan(&c.ID, &c.Name,
		&c.CasasReadingLevelStart, &c.CasasReadingTarget,
		&c.CasasListeningLevelStart, &c.CasasListeningTarget,
		&c.RankingWeights.CasasReading, &c.RankingWeights.CasasListening, &c.RankingWeights.Tests, &c.RankingWeights.Attendance,
		&c.ColorThresholds.Good, &c.ColorThresholds.Warning,
		&st.created, &st.updated)
	st.apply(&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func studentRow(s *domain.Student) []any {
	return []any{s.ID, s.Name, s.ClassID, s.EnrollmentDate, s.IsDropped, s.DroppedDate,
		micros(s.CreatedAt), micros(s.UpdatedAt)}
}

func scanStudent(r scanner) (domain.Student, error) {
	var s domain.Student
	var st stamps
	err := r.Scan(&s.ID, &s.Name, &s.ClassID, &s.EnrollmentDate, &s.IsDropped, &s.DroppedDate,
		&st.created, &st.updated)
	st.apply(&s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func casasRow(t *domain.CasasTest) []any {
	return []any{t.ID, t.StudentID, t.Type, t.Date, t.FormNumber, t.Score,
		micros(t.CreatedAt), micros(t.UpdatedAt)}
}

func scanCasas(r scanner) (domain.CasasTest, error) {
	var t domain.CasasTest
	var st stamps
	err := r.Scan(&t.ID, &t.StudentID, &t.Type, &t.Date, &t.FormNumber, &t.Score,
		&st.created, &st.updated)
	st.apply(&t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func unitTestRow(t *domain.UnitTest) []any {
	return []any{t.ID, t.StudentID, t.TestName, t.Date, t.Score,
		micros(t.CreatedAt), micros(t.UpdatedAt)}
}

func scanUnitTest(r scanner) (domain.UnitTest, error) {
	var t domain.UnitTest
	var st stamps
	err := r.Scan(&t.ID, &t.StudentID, &t.TestName, &t.Date, &t.Score,
		&st.created, &st.updated)
	st.apply(&t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func attendanceRow(a *domain.Attendance) []any {
	return []any{a.ID, a.StudentID, a.Month, a.Percentage, a.IsVacation,
		micros(a.CreatedAt), micros(a.UpdatedAt)}
}

func scanAttendance(r scanner) (domain.Attendance, error) {
	var a domain.Attendance
	var st stamps
	err := r.Scan(&a.ID, &a.StudentID, &a.Month, &a.Percentage, &a.IsVacation,
		&st.created, &st.updated)
	st.apply(&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func tutoringRow(t *domain.TutoringSession) []any {
	return []any{t.ID, t.StudentID, t.Date, micros(t.CreatedAt), micros(t.UpdatedAt)}
}

func scanTutoring(r scanner) (domain.TutoringSession, error) {
	var t domain.TutoringSession
	var st stamps
	err := r.Scan(&t.ID, &t.StudentID, &t.Date, &st.created, &st.updated)
	st.apply(&t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func queryAll[T any](ctx context.Context, db *sql.DB, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryOne[T any](ctx context.Context, db *sql.DB, scan func(scanner) (T, error), what, id, query string) (T, error) {
	v, err := scan(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return v, fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("get %s %s: %w", what, id, err)
	}
	return v, nil
}

// GetClass retrieves a class by id.
func (s *SQL) GetClass(ctx context.Context, id string) (domain.Class, error) {
	return queryOne(ctx, s.db, scanClass, "class", id, classTable.selectFrom()+" WHERE id = $1")
}

// ListClasses returns every class ordered by name.
func (s *SQL) ListClasses(ctx context.Context) ([]domain.Class, error) {
	return queryAll(ctx, s.db, scanClass, classTable.selectFrom()+" ORDER BY name, id")
}

// GetStudent retrieves a student by id.
func (s *SQL) GetStudent(ctx context.Context, id string) (domain.Student, error) {
	return queryOne(ctx, s.db, scanStudent, "student", id, studentTable.selectFrom()+" WHERE id = $1")
}

// ListStudents returns a class's students ordered by name.
func (s *SQL) ListStudents(ctx context.Context, classID string, includeDropped bool) ([]domain.Student, error) {
	return queryAll(ctx, s.db, scanStudent,
		studentTable.selectFrom()+" WHERE class_id = $1 AND ($2 OR NOT is_dropped) ORDER BY lower(name), id",
		classID, includeDropped)
}

const recordOrder = " ORDER BY date, created_at, id"

// CasasTests returns a student's CASAS tests ordered by date.
func (s *SQL) CasasTests(ctx context.Context, studentID string, testType domain.TestType) ([]domain.CasasTest, error) {
	if testType == "" {
		return queryAll(ctx, s.db, scanCasas, casasTable.selectFrom()+" WHERE student_id = $1"+recordOrder, studentID)
	}
	return queryAll(ctx, s.db, scanCasas, casasTable.selectFrom()+" WHERE student_id = $1 AND type = $2"+recordOrder, studentID, testType)
}

// UnitTests returns a student's unit tests ordered by date.
func (s *SQL) UnitTests(ctx context.Context, studentID string) ([]domain.UnitTest, error) {
	return queryAll(ctx, s.db, scanUnitTest, unitTestTable.selectFrom()+" WHERE student_id = $1"+recordOrder, studentID)
}

// Attendance returns a student's attendance ordered by month.
func (s *SQL) Attendance(ctx context.Context, studentID string) ([]domain.Attendance, error) {
	return queryAll(ctx, s.db, scanAttendance, attendanceTable.selectFrom()+" WHERE student_id = $1 ORDER BY month, id", studentID)
}

// TutoringSessions returns a student's sessions ordered by date.
func (s *SQL) TutoringSessions(ctx context.Context, studentID string) ([]domain.TutoringSession, error) {
	return queryAll(ctx, s.db, scanTutoring, tutoringTable.selectFrom()+" WHERE student_id = $1"+recordOrder, studentID)
}

// save writes one row. A record that arrived with an id is first updated
// in place; otherwise, or when no such row exists, it is inserted and
// merged into any row sharing its natural key. id and created are set
// from the stored row.
func (s *SQL) save(ctx context.Context, t table, hadID bool, row []any, id *string, created *time.Time) error {
	var createdAt int64
	if hadID && len(t.natural) > 0 {
		args := append(append([]any(nil), row[:len(row)-2]...), row[len(row)-1])
		err := s.db.QueryRowContext(ctx, t.updateByID(), args...).Scan(&createdAt)
		switch {
		case err == nil:
			*created = fromMicros(createdAt)
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("update %s: %w", t.name, err)
		}
	}
	if err := s.db.QueryRowContext(ctx, t.save(), row...).Scan(id, &createdAt); err != nil {
		return fmt.Errorf("save %s: %w", t.name, err)
	}
	*created = fromMicros(createdAt)
	return nil
}

// SaveClass creates or replaces a class.
func (s *SQL) SaveClass(ctx context.Context, c *domain.Class) error {
	if err := check("class", c); err != nil {
		return err
	}
	hadID := c.ID != ""
	stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt, s.clock())
	return s.save(ctx, classTable, hadID, classRow(c), &c.ID, &c.CreatedAt)
}

// SaveStudent creates or replaces a student.
func (s *SQL) SaveStudent(ctx context.Context, st *domain.Student) error {
	if err := checkStudent(st); err != nil {
		return err
	}
	hadID := st.ID != ""
	stamp(&st.ID, &st.CreatedAt, &st.UpdatedAt, s.clock())
	return s.save(ctx, studentTable, hadID, studentRow(st), &st.ID, &st.CreatedAt)
}

// SaveCasasTest stores a test, updating the record with the same student,
// type, date and form if there is one.
func (s *SQL) SaveCasasTest(ctx context.Context, t *domain.CasasTest) error {
	if err := check("casas test", t); err != nil {
		return err
	}
	hadID := t.ID != ""
	stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt, s.clock())
	return s.save(ctx, casasTable, hadID, casasRow(t), &t.ID, &t.CreatedAt)
}

// SaveUnitTest stores a score, updating the student's record in the same
// test column if there is one.
func (s *SQL) SaveUnitTest(ctx context.Context, t *domain.UnitTest) error {
	if err := check("unit test", t); err != nil {
		return err
	}
	hadID := t.ID != ""
	stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt, s.clock())
	return s.save(ctx, unitTestTable, hadID, unitTestRow(t), &t.ID, &t.CreatedAt)
}

// SaveAttendance stores a month's attendance, replacing the student's
// existing record for that month.
func (s *SQL) SaveAttendance(ctx context.Context, a *domain.Attendance) error {
	if err := check("attendance", a); err != nil {
		return err
	}
	hadID := a.ID != ""
	stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt, s.clock())
	return s.save(ctx, attendanceTable, hadID, attendanceRow(a), &a.ID, &a.CreatedAt)
}

// SaveTutoringSession records a session.
func (s *SQL) SaveTutoringSession(ctx context.Context, t *domain.TutoringSession) error {
	if err := check("tutoring session", t); err != nil {
		return err
	}
	hadID := t.ID != ""
	stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt, s.clock())
	return s.save(ctx, tutoringTable, hadID, tutoringRow(t), &t.ID, &t.CreatedAt)
}

// RenameUnitTest renames one test column for every student in a class. It
// changes nothing if any student already has a score in the target column.
func (s *SQL) RenameUnitTest(ctx context.Context, classID, oldName, oldDate, newName, newDate string) (int, error) {
	if newName == "" {
		return 0, fmt.Errorf("%w: unit test: empty test name", ErrInvalid)
	}
	if _, err := time.Parse("2006-01-02", newDate); err != nil {
		return 0, fmt.Errorf("%w: unit test: bad date %q", ErrInvalid, newDate)
	}
	if oldName == newName && oldDate == newDate {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var clashes int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		  FROM unit_tests o
		  JOIN unit_tests n ON n.student_id = o.student_id
		  JOIN students st ON st.id = o.student_id
		 WHERE st.class_id = $1
		   AND o.test_name = $2 AND o.date = $3
		   AND n.test_name = $4 AND n.date = $5`,
		classID, oldName, oldDate, newName, newDate).Scan(&clashes)
	if err != nil {
		return 0, fmt.Errorf("rename unit test: %w", err)
	}
	if clashes > 0 {
		return 0, fmt.Errorf("%w: %s on %s already exists", ErrConflict, newName, newDate)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE unit_tests
		   SET test_name = $1, date = $2, updated_at = $3
		 WHERE test_name = $4 AND date = $5
		   AND student_id IN (SELECT id FROM students WHERE class_id = $6)`,
		newName, newDate, micros(s.clock()), oldName, oldDate, classID)
	if err != nil {
		return 0, fmt.Errorf("rename unit test: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}

// Snapshot copies every table.
func (s *SQL) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{TakenAt: s.clock()}
	var err error
	if snap.Classes, err = queryAll(ctx, s.db, scanClass, classTable.selectFrom()+" ORDER BY id"); err != nil {
		return Snapshot{}, err
	}
	if snap.Students, err = queryAll(ctx, s.db, scanStudent, studentTable.selectFrom()+" ORDER BY id"); err != nil {
		return Snapshot{}, err
	}
	if snap.CasasTests, err = queryAll(ctx, s.db, scanCasas, casasTable.selectFrom()+" ORDER BY id"); err != nil {
		return Snapshot{}, err
	}
	if snap.UnitTests, err = queryAll(ctx, s.db, scanUnitTest, unitTestTable.selectFrom()+" ORDER BY id"); err != nil {
		return Snapshot{}, err
	}
	if snap.Attendance, err = queryAll(ctx, s.db, scanAttendance, attendanceTable.selectFrom()+" ORDER BY id"); err != nil {
		return Snapshot{}, err
	}
	if snap.Tutoring, err = queryAll(ctx, s.db, scanTutoring, tutoringTable.selectFrom()+" ORDER BY id"); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Restore merges snap into the database in one transaction. For each
// record the copy modified last is kept.
func (s *SQL) Restore(ctx context.Context, snap Snapshot) error {
	cur, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	merged := MergeSnapshots(cur, snap)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	write := func(t table, row []any) error {
		if _, err := tx.ExecContext(ctx, t.restore(), row...); err != nil {
			return fmt.Errorf("restore %s %v: %w", t.name, row[0], err)
		}
		return nil
	}
	for i := range merged.Classes {
		if err := write(classTable, classRow(&merged.Classes[i])); err != nil {
			return err
		}
	}
	for i := range merged.Students {
		if err := write(studentTable, studentRow(&merged.Students[i])); err != nil {
			return err
		}
	}
	for i := range merged.CasasTests {
		if err := write(casasTable, casasRow(&merged.CasasTests[i])); err != nil {
			return err
		}
	}
	for i := range merged.UnitTests {
		if err := write(unitTestTable, unitTestRow(&merged.UnitTests[i])); err != nil {
			return err
		}
	}
	for i := range merged.Attendance {
		if err := write(attendanceTable, attendanceRow(&merged.Attendance[i])); err != nil {
			return err
		}
	}
	for i := range merged.Tutoring {
		if err := write(tutoringTable, tutoringRow(&merged.Tutoring[i])); err != nil {
			return err
		}
	}
	return tx.Commit()
}
