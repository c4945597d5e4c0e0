package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	apperrors "gradebook/internal/errors"
	"gradebook/internal/shared/testutil"
	"gradebook/internal/store"
	"gradebook/pkg/contracts/domain"
)

var fixedNow = time.Date(2024, time.November, 20, 10, 0, 0, 0, time.UTC)

type seeded struct {
	repo  *store.Memory
	class domain.Class
	ids   map[string]string
}

// seedClass stores one class with four students:
//
//	Ana  complete, overall 80
//	Ben  complete, overall 100
//	Cy   reading only, unranked
//	Di   dropped in October
func seedClass(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemory()

	class := testutil.NewClass("ESL 3")
	require.NoError(t, repo.SaveClass(ctx, &class))

	s := seeded{repo: repo, class: class, ids: map[string]string{}}
	add := func(name string, drop string) string {
		st := testutil.NewStudent(name, class.ID, "2024-09-01")
		if drop != "" {
			st.Drop(drop)
		}
		require.NoError(t, repo.SaveStudent(ctx, &st))
		s.ids[name] = st.ID
		return st.ID
	}
	casas := func(id string, typ domain.TestType, date string, score float64) {
		form := "627R"
		if typ == domain.TestTypeListening {
			form = "629L"
		}
		require.NoError(t, repo.SaveCasasTest(ctx, &domain.CasasTest{
			StudentID: id, Type: typ, Date: date, FormNumber: form, Score: null.Float64From(score),
		}))
	}
	unit := func(id string, score float64) {
		require.NoError(t, repo.SaveUnitTest(ctx, &domain.UnitTest{
			StudentID: id, TestName: "Unit 1", Date: "2024-09-20", Score: score,
		}))
	}
	attend := func(id, month string, pct float64) {
		require.NoError(t, repo.SaveAttendance(ctx, &domain.Attendance{StudentID: id, Month: month, Percentage: pct}))
	}

	ana := add("Ana Lopez", "")
	casas(ana, domain.TestTypeReading, "2024-09-15", 205)
	casas(ana, domain.TestTypeListening, "2024-09-15", 210)
	unit(ana, 90)
	attend(ana, "2024-09", 80)
	attend(ana, "2024-10", 80)
	for _, d := range []string{"2024-09-10", "2024-09-17"} {
		require.NoError(t, repo.SaveTutoringSession(ctx, &domain.TutoringSession{StudentID: ana, Date: d}))
	}

	ben := add("Ben Ortiz", "")
	casas(ben, domain.TestTypeReading, "2024-09-15", 210)
	casas(ben, domain.TestTypeListening, "2024-09-15", 212)
	unit(ben, 100)
	attend(ben, "2024-09", 100)

	cy := add("Cy Young", "")
	casas(cy, domain.TestTypeReading, "2024-09-15", 200)

	di := add("Di Park", "2024-10-05")
	casas(di, domain.TestTypeReading, "2024-09-15", 208)
	attend(di, "2024-09", 50)

	return s
}

func requireAppError(t *testing.T, err error, want apperrors.ErrorType) {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "want *AppError, got %v", err)
	require.Equal(t, want, appErr.Type)
}

// testMetrics returns service metrics backed by a manual reader.
func testMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter(TracerName))
	require.NoError(t, err)
	return m, reader
}

// counterTotal sums every data point of an Int64 counter.
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}
