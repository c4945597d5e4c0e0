package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gradebook/pkg/contracts/domain"
)

// Memory is an in-memory Repository. Values are stored and returned by
// copy so callers never share state with the store.
type Memory struct {
	mu  sync.RWMutex
	now func() time.Time

	classes    map[string]domain.Class
	students   map[string]domain.Student
	casas      map[string]domain.CasasTest
	unitTests  map[string]domain.UnitTest
	attendance map[string]domain.Attendance
	tutoring   map[string]domain.TutoringSession
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	m := &Memory{now: time.Now}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.classes = make(map[string]domain.Class)
	m.students = make(map[string]domain.Student)
	m.casas = make(map[string]domain.CasasTest)
	m.unitTests = make(map[string]domain.UnitTest)
	m.attendance = make(map[string]domain.Attendance)
	m.tutoring = make(map[string]domain.TutoringSession)
}

// stamp assigns id and timestamps for a write.
func stamp(id *string, created, updated *time.Time, now time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// GetClass retrieves a class by id.
func (m *Memory) GetClass(_ context.Context, id string) (domain.Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.classes[id]
	if !ok {
		return domain.Class{}, fmt.Errorf("class %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// ListClasses returns every class ordered by name.
func (m *Memory) ListClasses(_ context.Context) ([]domain.Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := values(m.classes, func(domain.Class) bool { return true })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetStudent retrieves a student by id.
func (m *Memory) GetStudent(_ context.Context, id string) (domain.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.students[id]
	if !ok {
		return domain.Student{}, fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	return s, nil
}

// ListStudents returns a class's students ordered by name.
func (m *Memory) ListStudents(_ context.Context, classID string, includeDropped bool) ([]domain.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := values(m.students, func(s domain.Student) bool {
		return s.ClassID == classID && (includeDropped || !s.IsDropped)
	})
	sortStudents(out)
	return out, nil
}

func sortStudents(s []domain.Student) {
	sort.Slice(s, func(i, j int) bool {
		a, b := strings.ToLower(s[i].Name), strings.ToLower(s[j].Name)
		if a != b {
			return a < b
		}
		return s[i].ID < s[j].ID
	})
}

// CasasTests returns a student's CASAS tests ordered by date.
func (m *Memory) CasasTests(_ context.Context, studentID string, testType domain.TestType) ([]domain.CasasTest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := values(m.casas, func(t domain.CasasTest) bool {
		return t.StudentID == studentID && (testType == "" || t.Type == testType)
	})
	byDate(out, func(t domain.CasasTest) string { return t.Date })
	return out, nil
}

// UnitTests returns a student's unit tests ordered by date.
func (m *Memory) UnitTests(_ context.Context, studentID string) ([]domain.UnitTest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := values(m.unitTests, func(t domain.UnitTest) bool { return t.StudentID == studentID })
	byDate(out, func(t domain.UnitTest) string { return t.Date })
	return out, nil
}

// Attendance returns a student's attendance ordered by month.
func (m *Memory) Attendance(_ context.Context, studentID string) ([]domain.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := values(m.attendance, func(a domain.Attendance) bool { return a.StudentID == studentID })
	byDate(out, func(a domain.Attendance) string { return a.Month })
	return out, nil
}

// TutoringSessions returns a student's sessions ordered by date.
func (m *Memory) TutoringSessions(_ context.Context, studentID string) ([]domain.TutoringSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := values(m.tutoring, func(t domain.TutoringSession) bool { return t.StudentID == studentID })
	byDate(out, func(t domain.TutoringSession) string { return t.Date })
	return out, nil
}

// SaveClass creates or replaces a class.
func (m *Memory) SaveClass(_ context.Context, c *domain.Class) error {
	if err := check("class", c); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.classes[c.ID]; ok && c.CreatedAt.IsZero() {
		c.CreatedAt = old.CreatedAt
	}
	stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt, m.now())
	m.classes[c.ID] = *c
	return nil
}

// SaveStudent creates or replaces a student.
func (m *Memory) SaveStudent(_ context.Context, s *domain.Student) error {
	if err := checkStudent(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.students[s.ID]; ok && s.CreatedAt.IsZero() {
		s.CreatedAt = old.CreatedAt
	}
	stamp(&s.ID, &s.CreatedAt, &s.UpdatedAt, m.now())
	m.students[s.ID] = *s
	return nil
}

// checkStudent adds the drop invariant to tag validation.
func checkStudent(s *domain.Student) error {
	if err := check("student", s); err != nil {
		return err
	}
	if s.IsDropped != s.DroppedDate.Valid {
		return fmt.Errorf("%w: student: dropped date must be set exactly when the student is dropped", ErrInvalid)
	}
	return nil
}

// SaveCasasTest stores a test, updating the record with the same student,
// type, date and form if there is one.
func (m *Memory) SaveCasasTest(_ context.Context, t *domain.CasasTest) error {
	if err := check("casas test", t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, old := range m.casas {
		if old.ID != t.ID && old.StudentID == t.StudentID && old.Type == t.Type && old.Date == t.Date && old.FormNumber == t.FormNumber {
			t.ID, t.CreatedAt = old.ID, old.CreatedAt
			break
		}
	}
	stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt, m.now())
	m.casas[t.ID] = *t
	return nil
}

// SaveUnitTest stores a score, updating the student's record in the same
// test column if there is one.
func (m *Memory) SaveUnitTest(_ context.Context, t *domain.UnitTest) error {
	if err := check("unit test", t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, old := range m.unitTests {
		if old.ID != t.ID && old.StudentID == t.StudentID && old.TestName == t.TestName && old.Date == t.Date {
			t.ID, t.CreatedAt = old.ID, old.CreatedAt
			break
		}
	}
	stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt, m.now())
	m.unitTests[t.ID] = *t
	return nil
}

// SaveAttendance stores a month's attendance. A student has at most one
// record per month; saving another replaces it.
func (m *Memory) SaveAttendance(_ context.Context, a *domain.Attendance) error {
	if err := check("attendance", a); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, old := range m.attendance {
		if old.ID != a.ID && old.StudentID == a.StudentID && old.Month == a.Month {
			a.ID, a.CreatedAt = old.ID, old.CreatedAt
			break
		}
	}
	stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt, m.now())
	m.attendance[a.ID] = *a
	return nil
}

// SaveTutoringSession records a session. A second session on the same day
// for the same student is the same record.
func (m *Memory) SaveTutoringSession(_ context.Context, t *domain.TutoringSession) error {
	if err := check("tutoring session", t); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, old := range m.tutoring {
		if old.ID != t.ID && old.StudentID == t.StudentID && old.Date == t.Date {
			t.ID, t.CreatedAt = old.ID, old.CreatedAt
			break
		}
	}
	stamp(&t.ID, &t.CreatedAt, &t.UpdatedAt, m.now())
	m.tutoring[t.ID] = *t
	return nil
}

// RenameUnitTest renames one test column for every student in a class. It
// changes nothing if any student already has a score in the target column.
func (m *Memory) RenameUnitTest(_ context.Context, classID, oldName, oldDate, newName, newDate string) (int, error) {
	if newName == "" {
		return 0, fmt.Errorf("%w: unit test: empty test name", ErrInvalid)
	}
	if _, err := time.Parse("2006-01-02", newDate); err != nil {
		return 0, fmt.Errorf("%w: unit test: bad date %q", ErrInvalid, newDate)
	}
	if oldName == newName && oldDate == newDate {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inClass := make(map[string]bool)
	for _, s := range m.students {
		if s.ClassID == classID {
			inClass[s.ID] = true
		}
	}

	var ids []string
	taken := make(map[string]bool)
	for id, t := range m.unitTests {
		if !inClass[t.StudentID] {
			continue
		}
		switch {
		case t.TestName == oldName && t.Date == oldDate:
			ids = append(ids, id)
		case t.TestName == newName && t.Date == newDate:
			taken[t.StudentID] = true
		}
	}
	for _, id := range ids {
		if taken[m.unitTests[id].StudentID] {
			return 0, fmt.Errorf("%w: %s on %s already exists", ErrConflict, newName, newDate)
		}
	}

	now := m.now()
	for _, id := range ids {
		t := m.unitTests[id]
		t.TestName, t.Date, t.UpdatedAt = newName, newDate, now
		m.unitTests[id] = t
	}
	return len(ids), nil
}

// Snapshot copies the whole store.
func (m *Memory) Snapshot(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		TakenAt:    m.now(),
		Classes:    sortedByKey(m.classes),
		Students:   sortedByKey(m.students),
		CasasTests: sortedByKey(m.casas),
		UnitTests:  sortedByKey(m.unitTests),
		Attendance: sortedByKey(m.attendance),
		Tutoring:   sortedByKey(m.tutoring),
	}, nil
}

// Restore merges snap into the store. For each record the copy modified
// last is kept.
func (m *Memory) Restore(ctx context.Context, snap Snapshot) error {
	cur, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}
	merged := MergeSnapshots(cur, snap)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.reset()
	fill(m.classes, merged.Classes)
	fill(m.students, merged.Students)
	fill(m.casas, merged.CasasTests)
	fill(m.unitTests, merged.UnitTests)
	fill(m.attendance, merged.Attendance)
	fill(m.tutoring, merged.Tutoring)
	return nil
}

func values[T any](m map[string]T, keep func(T) bool) []T {
	var out []T
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func sortedByKey[T domain.Versioned](m map[string]T) []T {
	out := values(m, func(T) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// byDate orders records by date, then creation time, then id, so the
// record entered last sorts last among those on the same day.
func byDate[T domain.Versioned](s []T, date func(T) string) {
	sort.Slice(s, func(i, j int) bool {
		if di, dj := date(s[i]), date(s[j]); di != dj {
			return di < dj
		}
		if ci, cj := s[i].Created(), s[j].Created(); !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return s[i].Key() < s[j].Key()
	})
}

func fill[T domain.Versioned](m map[string]T, records []T) {
	for _, r := range records {
		m[r.Key()] = r
	}
}
