package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gradebook/internal/errors"
	"gradebook/internal/shared/testutil"
	"gradebook/pkg/contracts/domain"
)

func newRecordService(t *testing.T, s seeded) *RecordService {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewRecordService(s.repo, nil, logger)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestRecordService_SaveClass(t *testing.T) {
	s := seedClass(t)
	svc := newRecordService(t, s)
	ctx := context.Background()

	c := domain.Class{Name: "  ESL 4 ", CasasReadingLevelStart: 210, CasasReadingTarget: 220}
	require.NoError(t, svc.SaveClass(ctx, &c))
	assert.Equal(t, "ESL 4", c.Name)
	assert.Equal(t, domain.DefaultRankingWeights(), c.RankingWeights)
	assert.Equal(t, domain.DefaultColorThresholds(), c.ColorThresholds)

	classes, err := svc.Classes(ctx)
	require.NoError(t, err)
	assert.Len(t, classes, 2)

	requireAppError(t, svc.SaveClass(ctx, &domain.Class{Name: " "}), apperrors.ErrTypeValidation)
	requireAppError(t, svc.SaveClass(ctx, &domain.Class{ID: "missing", Name: "x"}), apperrors.ErrTypeNotFound)
}

func TestRecordService_SaveStudent(t *testing.T) {
	s := seedClass(t)
	svc := newRecordService(t, s)
	ctx := context.Background()

	st := domain.Student{Name: " Eva   Cruz ", ClassID: s.class.ID}
	require.NoError(t, svc.SaveStudent(ctx, &st))
	assert.Equal(t, "Eva Cruz", st.Name)
	assert.Equal(t, "2024-11-20", st.EnrollmentDate)

	bad := domain.Student{Name: "Fay", ClassID: s.class.ID, EnrollmentDate: "11/20/2024"}
	requireAppError(t, svc.SaveStudent(ctx, &bad), apperrors.ErrTypeValidation)

	orphan := domain.Student{Name: "Gus", ClassID: "missing"}
	requireAppError(t, svc.SaveStudent(ctx, &orphan), apperrors.ErrTypeNotFound)

	got, err := svc.Student(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eva Cruz", got.Name)
	_, err = svc.Student(ctx, "nobody")
	requireAppError(t, err, apperrors.ErrTypeNotFound)
}

func TestRecordService_DropAndRestore(t *testing.T) {
	s := seedClass(t)
	svc := newRecordService(t, s)
	ctx := context.Background()
	ana := s.ids["Ana Lopez"]

	dropped, err := svc.DropStudent(ctx, ana, "")
	require.NoError(t, err)
	assert.True(t, dropped.IsDropped)
	assert.Equal(t, "2024-11-20", dropped.DroppedDate.String)

	active, err := svc.Students(ctx, s.class.ID, false)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	other := testutil.NewClass("ESL 4")
	require.NoError(t, s.repo.SaveClass(ctx, &other))

	restored, err := svc.RestoreStudent(ctx, ana, other.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDropped)
	assert.False(t, restored.DroppedDate.Valid)
	assert.Equal(t, other.ID, restored.ClassID)

	_, err = svc.RestoreStudent(ctx, ana, "missing")
	requireAppError(t, err, apperrors.ErrTypeNotFound)
}

func TestRecordService_RenameUnitTest(t *testing.T) {
	s := seedClass(t)
	svc := newRecordService(t, s)
	ctx := context.Background()
	from := UnitTestColumn{TestName: "Unit 1", Date: "2024-09-20"}

	n, err := svc.RenameUnitTest(ctx, s.class.ID, from, UnitTestColumn{TestName: "Unit 1A", Date: "2024-09-21"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tests, err := s.repo.UnitTests(ctx, s.ids["Ben Ortiz"])
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "Unit 1A", tests[0].TestName)
	assert.Equal(t, "2024-09-21", tests[0].Date)

	require.NoError(t, s.repo.SaveUnitTest(ctx, &domain.UnitTest{
		StudentID: s.ids["Ana Lopez"], TestName: "Unit 2", Date: "2024-10-01", Score: 75,
	}))
	_, err = svc.RenameUnitTest(ctx, s.class.ID, UnitTestColumn{TestName: "Unit 1A", Date: "2024-09-21"}, UnitTestColumn{TestName: "Unit 2", Date: "2024-10-01"})
	requireAppError(t, err, apperrors.ErrTypeConflict)
}

func TestRecordService_SetVacation(t *testing.T) {
	s := seedClass(t)
	svc := newRecordService(t, s)
	ctx := context.Background()
	ben := s.ids["Ben Ortiz"]

	a, err := svc.SetVacation(ctx, ben, "2024-09", true)
	require.NoError(t, err)
	assert.True(t, a.IsVacation)
	assert.Equal(t, 100.0, a.Percentage, "existing percentage is kept")

	_, err = svc.SetVacation(ctx, ben, "2024-12", true)
	require.NoError(t, err)

	records, err := s.repo.Attendance(ctx, ben)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = svc.SetVacation(ctx, ben, "December", true)
	requireAppError(t, err, apperrors.ErrTypeValidation)
}

func TestRecordService_History(t *testing.T) {
	s := seedClass(t)
	h, err := newRecordService(t, s).History(context.Background(), s.ids["Ana Lopez"])
	require.NoError(t, err)

	assert.Equal(t, "Ana Lopez", h.Student.Name)
	assert.Len(t, h.Casas, 2)
	assert.Len(t, h.UnitTests, 1)
	assert.Len(t, h.Attendance, 2)
	assert.Len(t, h.Tutoring, 2)
}
