package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"gradebook/pkg/contracts/domain"
)

func TestFileBackup_RoundTripIntoMemory(t *testing.T) {
	ctx := context.Background()
	src := NewMemory()
	c := domain.Class{Name: "ESL 2"}
	require.NoError(t, src.SaveClass(ctx, &c))
	s := domain.Student{Name: "Ana Lopez", ClassID: c.ID, EnrollmentDate: "2024-09-03"}
	require.NoError(t, src.SaveStudent(ctx, &s))
	ct := domain.CasasTest{StudentID: s.ID, Type: domain.TestTypeReading, Date: "2024-09-10", FormNumber: "627R", Score: null.Float64From(210)}
	require.NoError(t, src.SaveCasasTest(ctx, &ct))

	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)

	backup := FileBackup{Path: filepath.Join(t.TempDir(), "backups", "gradebook.json")}
	require.NoError(t, backup.Write(ctx, snap))

	loaded, err := backup.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Records())

	dst := NewMemory()
	require.NoError(t, dst.Restore(ctx, loaded))
	tests, err := dst.CasasTests(ctx, s.ID, domain.TestTypeReading)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, 210.0, tests[0].Score.Float64)
}

func TestFileBackup_ReadMissing(t *testing.T) {
	_, err := FileBackup{Path: filepath.Join(t.TempDir(), "none.json")}.Read(context.Background())
	assert.Error(t, err)
}
