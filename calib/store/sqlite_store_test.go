package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/netcal/calib"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RecordAndBest(t *testing.T) {
	// GIVEN three recorded trials
	s := openTestStore(t)
	finished := time.Unix(1700000000, 0)
	for i, loss := range []float64{0.8, 0.2, 0.5} {
		require.NoError(t, s.Record(calib.TrialReport{
			ID:          fmt.Sprintf("trial-%d", i),
			Calibration: calib.Params{"cpu_speed": fmt.Sprintf("%dGf", i+1)},
			Result:      calib.TrialResult{float64(i), 100.5},
			Loss:        loss,
			Duration:    1500 * time.Millisecond,
			Seconds:     1.5,
			Finished:    finished,
		}))
	}

	// WHEN the two best are read back
	best, err := s.Best(2)
	require.NoError(t, err)

	// THEN they come ordered by loss with their payload intact
	require.Len(t, best, 2)
	want := calib.TrialReport{
		ID:          "trial-1",
		Calibration: calib.Params{"cpu_speed": "2Gf"},
		Result:      calib.TrialResult{1, 100.5},
		Loss:        0.2,
		Duration:    1500 * time.Millisecond,
		Seconds:     1.5,
		Finished:    finished,
	}
	if diff := cmp.Diff(want, best[0]); diff != "" {
		t.Errorf("best trial mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "trial-2", best[1].ID)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteStore_DuplicateIDRejected(t *testing.T) {
	s := openTestStore(t)
	r := calib.TrialReport{ID: "same", Loss: 1}
	require.NoError(t, s.Record(r))
	assert.Error(t, s.Record(r))
}

func TestSQLiteStore_ConcurrentRecords(t *testing.T) {
	s := openTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Record(calib.TrialReport{ID: fmt.Sprintf("t%d", i), Loss: float64(i)}))
		}(i)
	}
	wg.Wait()
	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}

func TestSQLiteStore_ImplementsReportSink(t *testing.T) {
	var _ calib.ReportSink = openTestStore(t)
}

func TestSQLiteStore_ReopenKeepsTrials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(calib.TrialReport{ID: "a", Loss: 1}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
