package store

import (
	"context"
	"errors"
	"time"

	"gradebook/pkg/contracts/domain"
)

var (
	// ErrNotFound is returned when a lookup by id finds nothing.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps validation failures on write.
	ErrInvalid = errors.New("invalid record")
	// ErrConflict is returned when a write would collide with another
	// record's natural key.
	ErrConflict = errors.New("conflict")
)

// Reader is the read side the metrics engine depends on.
type Reader interface {
	GetClass(ctx context.Context, id string) (domain.Class, error)
	ListClasses(ctx context.Context) ([]domain.Class, error)
	GetStudent(ctx context.Context, id string) (domain.Student, error)
	ListStudents(ctx context.Context, classID string, includeDropped bool) ([]domain.Student, error)
	// CasasTests returns a student's tests ordered by date. An empty
	// testType returns both skill areas.
	CasasTests(ctx context.Context, studentID string, testType domain.TestType) ([]domain.CasasTest, error)
	UnitTests(ctx context.Context, studentID string) ([]domain.UnitTest, error)
	Attendance(ctx context.Context, studentID string) ([]domain.Attendance, error)
	TutoringSessions(ctx context.Context, studentID string) ([]domain.TutoringSession, error)
}

// Writer stores records. Every Save method assigns an id and CreatedAt when
// missing, sets UpdatedAt, and writes the final values back into its
// argument.
type Writer interface {
	SaveClass(ctx context.Context, c *domain.Class) error
	SaveStudent(ctx context.Context, s *domain.Student) error
	SaveCasasTest(ctx context.Context, t *domain.CasasTest) error
	SaveUnitTest(ctx context.Context, t *domain.UnitTest) error
	SaveAttendance(ctx context.Context, a *domain.Attendance) error
	SaveTutoringSession(ctx context.Context, t *domain.TutoringSession) error
	// RenameUnitTest moves every record in one test column of a class to a
	// new name and date and returns how many records changed.
	RenameUnitTest(ctx context.Context, classID, oldName, oldDate, newName, newDate string) (int, error)
}

// Repository is a complete store.
type Repository interface {
	Reader
	Writer
	Snapshot(ctx context.Context) (Snapshot, error)
	// Restore merges a snapshot into the store by last write wins.
	Restore(ctx context.Context, snap Snapshot) error
}

// Snapshot is a full copy of the data.
type Snapshot struct {
	TakenAt    time.Time                `json:"taken_at"`
	Classes    []domain.Class           `json:"classes"`
	Students   []domain.Student         `json:"students"`
	CasasTests []domain.CasasTest       `json:"casas_tests"`
	UnitTests  []domain.UnitTest        `json:"unit_tests"`
	Attendance []domain.Attendance      `json:"attendance"`
	Tutoring   []domain.TutoringSession `json:"tutoring_sessions"`
}

// Records counts every record in the snapshot.
func (s Snapshot) Records() int {
	return len(s.Classes) + len(s.Students) + len(s.CasasTests) +
		len(s.UnitTests) + len(s.Attendance) + len(s.Tutoring)
}
