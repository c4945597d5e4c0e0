package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"gradebook/pkg/contracts/domain"
)

// testRepository runs the behaviour every Repository must share.
func testRepository(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	seed := func(t *testing.T, r Repository) (domain.Class, domain.Student) {
		t.Helper()
		c := domain.Class{
			Name:                   "ESL 3",
			CasasReadingLevelStart: 200, CasasReadingTarget: 220,
			CasasListeningLevelStart: 195, CasasListeningTarget: 215,
			RankingWeights:  domain.DefaultRankingWeights(),
			ColorThresholds: domain.DefaultColorThresholds(),
		}
		require.NoError(t, r.SaveClass(ctx, &c))
		s := domain.Student{Name: "Ana Lopez", ClassID: c.ID, EnrollmentDate: "2024-09-03"}
		require.NoError(t, r.SaveStudent(ctx, &s))
		return c, s
	}

	t.Run("class and student round trip", func(t *testing.T) {
		r := newRepo(t)
		c, s := seed(t, r)
		assert.NotEmpty(t, c.ID)
		assert.False(t, c.CreatedAt.IsZero())

		got, err := r.GetClass(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.Name, got.Name)
		assert.Equal(t, 220.0, got.CasasReadingTarget)
		assert.Equal(t, domain.DefaultRankingWeights(), got.RankingWeights)

		gs, err := r.GetStudent(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "2024-09-03", gs.EnrollmentDate)
		assert.False(t, gs.DroppedDate.Valid)

		classes, err := r.ListClasses(ctx)
		require.NoError(t, err)
		assert.Len(t, classes, 1)
	})

	t.Run("not found", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.GetStudent(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = r.GetClass(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		r := newRepo(t)
		_, s := seed(t, r)

		bad := domain.Student{Name: "Ben", ClassID: "c", EnrollmentDate: "09/03/2024"}
		assert.ErrorIs(t, r.SaveStudent(ctx, &bad), ErrInvalid)

		dropped := domain.Student{Name: "Ben", ClassID: "c", EnrollmentDate: "2024-09-03", IsDropped: true}
		assert.ErrorIs(t, r.SaveStudent(ctx, &dropped), ErrInvalid)

		a := domain.Attendance{StudentID: s.ID, Month: "2024-13", Percentage: 50}
		assert.ErrorIs(t, r.SaveAttendance(ctx, &a), ErrInvalid)

		u := domain.UnitTest{StudentID: s.ID, TestName: "Unit 1", Date: "2024-09-20", Score: 101}
		assert.ErrorIs(t, r.SaveUnitTest(ctx, &u), ErrInvalid)
	})

	t.Run("drop and restore", func(t *testing.T) {
		r := newRepo(t)
		c, s := seed(t, r)

		s.Drop("2024-11-15")
		require.NoError(t, r.SaveStudent(ctx, &s))

		active, err := r.ListStudents(ctx, c.ID, false)
		require.NoError(t, err)
		assert.Empty(t, active)

		all, err := r.ListStudents(ctx, c.ID, true)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.True(t, all[0].IsDropped)
		assert.Equal(t, null.StringFrom("2024-11-15"), all[0].DroppedDate)

		s.Restore("")
		require.NoError(t, r.SaveStudent(ctx, &s))
		active, err = r.ListStudents(ctx, c.ID, false)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("casas tests by type and natural key", func(t *testing.T) {
		r := newRepo(t)
		_, s := seed(t, r)

		tests := []domain.CasasTest{
			{StudentID: s.ID, Type: domain.TestTypeReading, Date: "2024-10-01", FormNumber: "628R", Score: null.Float64From(220)},
			{StudentID: s.ID, Type: domain.TestTypeReading, Date: "2024-09-10", FormNumber: "627R", Score: null.Float64From(205)},
			{StudentID: s.ID, Type: domain.TestTypeListening, Date: "2024-09-10", FormNumber: "629L", Score: null.Float64{}},
		}
		for i := range tests {
			require.NoError(t, r.SaveCasasTest(ctx, &tests[i]))
		}

		reading, err := r.CasasTests(ctx, s.ID, domain.TestTypeReading)
		require.NoError(t, err)
		require.Len(t, reading, 2)
		assert.Equal(t, "2024-09-10", reading[0].Date)

		all, err := r.CasasTests(ctx, s.ID, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		listening, err := r.CasasTests(ctx, s.ID, domain.TestTypeListening)
		require.NoError(t, err)
		require.Len(t, listening, 1)
		assert.False(t, listening[0].Score.Valid)

		again := domain.CasasTest{StudentID: s.ID, Type: domain.TestTypeReading, Date: "2024-10-01", FormNumber: "628R", Score: null.Float64From(225)}
		require.NoError(t, r.SaveCasasTest(ctx, &again))
		assert.Equal(t, tests[0].ID, again.ID)

		reading, err = r.CasasTests(ctx, s.ID, domain.TestTypeReading)
		require.NoError(t, err)
		require.Len(t, reading, 2)
		assert.Equal(t, 225.0, reading[1].Score.Float64)
	})

	t.Run("attendance is one record per month", func(t *testing.T) {
		r := newRepo(t)
		_, s := seed(t, r)

		first := domain.Attendance{StudentID: s.ID, Month: "2024-09", Percentage: 80}
		require.NoError(t, r.SaveAttendance(ctx, &first))
		second := domain.Attendance{StudentID: s.ID, Month: "2024-09", Percentage: 90}
		require.NoError(t, r.SaveAttendance(ctx, &second))
		assert.Equal(t, first.ID, second.ID)

		vac := domain.Attendance{StudentID: s.ID, Month: "2024-12", IsVacation: true}
		require.NoError(t, r.SaveAttendance(ctx, &vac))

		got, err := r.Attendance(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 90.0, got[0].Percentage)
		assert.True(t, got[1].IsVacation)

		// Editing by id may move the record to another month.
		second.Month = "2024-10"
		require.NoError(t, r.SaveAttendance(ctx, &second))
		got, err = r.Attendance(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "2024-10", got[0].Month)
	})

	t.Run("tutoring sessions", func(t *testing.T) {
		r := newRepo(t)
		_, s := seed(t, r)
		for _, d := range []string{"2024-09-12", "2024-09-05", "2024-09-12"} {
			ts := domain.TutoringSession{StudentID: s.ID, Date: d}
			require.NoError(t, r.SaveTutoringSession(ctx, &ts))
		}
		got, err := r.TutoringSessions(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "2024-09-05", got[0].Date)
	})

	t.Run("rename unit test column", func(t *testing.T) {
		r := newRepo(t)
		c, ana := seed(t, r)
		ben := domain.Student{Name: "Ben Ortiz", ClassID: c.ID, EnrollmentDate: "2024-09-03"}
		require.NoError(t, r.SaveStudent(ctx, &ben))
		other := domain.Student{Name: "Cy Young", ClassID: "other", EnrollmentDate: "2024-09-03"}
		require.NoError(t, r.SaveStudent(ctx, &other))

		for _, sid := range []string{ana.ID, ben.ID, other.ID} {
			u := domain.UnitTest{StudentID: sid, TestName: "Unit 1", Date: "2024-09-20", Score: 80}
			require.NoError(t, r.SaveUnitTest(ctx, &u))
		}

		n, err := r.RenameUnitTest(ctx, c.ID, "Unit 1", "2024-09-20", "Unit 1 Quiz", "2024-09-21")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := r.UnitTests(ctx, ben.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Unit 1 Quiz", got[0].TestName)
		assert.Equal(t, "2024-09-21", got[0].Date)

		untouched, err := r.UnitTests(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, "Unit 1", untouched[0].TestName)

		// Ana now has both columns; renaming one onto the other clashes.
		u := domain.UnitTest{StudentID: ana.ID, TestName: "Unit 2", Date: "2024-10-01", Score: 70}
		require.NoError(t, r.SaveUnitTest(ctx, &u))
		_, err = r.RenameUnitTest(ctx, c.ID, "Unit 2", "2024-10-01", "Unit 1 Quiz", "2024-09-21")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("snapshot and restore", func(t *testing.T) {
		r := newRepo(t)
		c, s := seed(t, r)
		a := domain.Attendance{StudentID: s.ID, Month: "2024-09", Percentage: 80}
		require.NoError(t, r.SaveAttendance(ctx, &a))

		snap, err := r.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, snap.Records())

		// A newer remote edit wins; an older one does not.
		newer := snap
		newer.Classes = []domain.Class{c}
		newer.Classes[0].Name = "ESL 3 (evening)"
		newer.Classes[0].UpdatedAt = c.UpdatedAt.Add(time.Hour)
		newer.Students = []domain.Student{s}
		newer.Students[0].Name = "Stale Name"
		newer.Students[0].UpdatedAt = s.UpdatedAt.Add(-time.Hour)
		newer.Attendance = nil
		require.NoError(t, r.Restore(ctx, newer))

		gc, err := r.GetClass(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "ESL 3 (evening)", gc.Name)

		gs, err := r.GetStudent(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana Lopez", gs.Name)

		att, err := r.Attendance(ctx, s.ID)
		require.NoError(t, err)
		assert.Len(t, att, 1, "restore never deletes")
	})
}

func TestMemory(t *testing.T) {
	testRepository(t, func(*testing.T) Repository { return NewMemory() })
}
