package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"gradebook/internal/shared/testutil"
	"gradebook/internal/store"
	"gradebook/pkg/contracts/domain"
)

// failingStore is a store.Reader whose ListClasses is mocked.
type failingStore struct {
	store.Reader
	mock.Mock
}

func (f *failingStore) ListClasses(ctx context.Context) ([]domain.Class, error) {
	args := f.Called(ctx)
	classes, _ := args.Get(0).([]domain.Class)
	return classes, args.Error(1)
}

type pendingBackup bool

func (p pendingBackup) Pending() bool { return bool(p) }

func TestHealthService_Readiness(t *testing.T) {
	ctx := context.Background()

	t.Run("ready with memory store", func(t *testing.T) {
		s := seedClass(t)
		logger, _ := testutil.NewTestLogger(t)
		hs := NewHealthService("1.0.0", "", s.repo, pendingBackup(true), logger)

		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "ready", status.Status)
		assert.Equal(t, "1 classes", status.Services["store"].Message)
		assert.Equal(t, "Snapshot pending", status.Services["backup"].Message)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := &failingStore{}
		repo.On("ListClasses", mock.Anything).Return(nil, errors.New("database is locked"))
		logger, logs := testutil.NewTestLogger(t)
		hs := NewHealthService("1.0.0", "", repo, nil, logger)

		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "not_ready", status.Status)
		assert.Contains(t, status.Services["store"].Message, "database is locked")
		assert.Equal(t, "Backups disabled", status.Services["backup"].Message)
		assert.True(t, logs.ContainsMessage("Readiness check failed"))
		repo.AssertExpectations(t)
	})
}

func TestHealthService_Liveness(t *testing.T) {
	hs := NewHealthService("1.2.3", "2024-11-20", nil, nil, nil)

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)
	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	v := hs.Version()
	assert.Equal(t, "1.2.3", v["version"])
	assert.Equal(t, "2024-11-20", v["build_time"])
	assert.Equal(t, "not_ready", hs.ReadinessCheck(context.Background()).Status)
}
