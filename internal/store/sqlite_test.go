package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/search-eval/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleMetrics() *model.AggregateMetrics {
	return &model.AggregateMetrics{
		Overall: model.RankingMetrics{
			QueryCount:   3,
			PrecisionAtK: map[int]float64{1: 1, 3: 0.67, 5: 0.4, 10: 0.2},
			RecallAtK:    map[int]float64{1: 0.5, 3: 1, 5: 1, 10: 1},
			F1AtK:        map[int]float64{1: 0.67, 3: 0.8, 5: 0.57, 10: 0.33},
			NDCGAtK:      map[int]float64{1: 1, 3: 0.9, 5: 0.9, 10: 0.9},
			MAP:          0.83,
			MRR:          1,
		},
		Reliability: model.ReliabilityCounters{Total: 4, Succeeded: 3, Throttled: 1, SuccessRate: 0.75, ThrottleRate: 0.25},
	}
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, 25)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Equal(t, 25, run.CaseCount)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Nil(t, got.Metrics)
	assert.True(t, got.FinishedAt.IsZero())

	require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusComplete, sampleMetrics()))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Metrics)
	assert.Equal(t, 3, got.Metrics.Overall.QueryCount)
	assert.InDelta(t, 0.75, got.Metrics.Reliability.SuccessRate, 1e-9)
	assert.False(t, got.FinishedAt.IsZero())
}

func TestSQLiteCompleteRunFailedWithoutMetrics(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, 5)
	require.NoError(t, err)

	require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusFailed, nil))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Nil(t, got.Metrics)
}

func TestSQLiteCompleteRunNotFound(t *testing.T) {
	s := newTestSQLite(t)

	err := s.CompleteRun(context.Background(), "missing", model.RunStatusComplete, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, 1)
	require.NoError(t, err)
	second, err := s.CreateRun(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, first.ID, model.RunStatusComplete, nil))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, first.ID, complete[0].ID)

	running, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, second.ID, running[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
