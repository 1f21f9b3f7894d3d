package calib

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(bench string, nodes, procs int, bytes int64, tput float64) Record {
	return Record{BenchmarkParent: "IMB-P2P", Benchmark: bench, NodeCount: nodes, Processes: procs, Bytes: bytes, Throughput: tput}
}

func TestBuildGroundTruth_RemarkedRowsDropped(t *testing.T) {
	// GIVEN three PingPong samples at the same point, one flagged as an outlier
	outlier := rec("PingPong", 2, 2, 1024, 500)
	outlier.Remark = "outlier"
	records := []Record{rec("PingPong", 2, 2, 1024, 100), outlier, rec("PingPong", 2, 2, 1024, 110)}

	// WHEN the ground truth is built
	gt, err := BuildGroundTruth(records, Filter{})
	require.NoError(t, err)

	// THEN only the two clean samples remain
	require.Len(t, gt.Scenarios, 1)
	assert.Equal(t, []int64{1024}, gt.Scenarios[0].ByteSizes)
	assert.Equal(t, ScenarioObservations{{100, 110}}, gt.Observations[0])
}

func TestBuildGroundTruth_OrderingAndGrouping(t *testing.T) {
	records := []Record{
		rec("Sendrecv", 2, 4, 4096, 40),
		rec("PingPong", 4, 4, 16, 1),
		rec("PingPong", 2, 2, 4096, 30),
		rec("PingPong", 2, 2, 16, 10),
		rec("PingPong", 2, 2, 16, 11),
		rec("PingPong", 2, 2, 1024, 20),
	}
	gt, err := BuildGroundTruth(records, Filter{})
	require.NoError(t, err)

	want := []Scenario{
		{Benchmark: "PingPong", NodeCount: 2, Processes: 2, ByteSizes: []int64{16, 1024, 4096}},
		{Benchmark: "PingPong", NodeCount: 4, Processes: 4, ByteSizes: []int64{16}},
		{Benchmark: "Sendrecv", NodeCount: 2, Processes: 4, ByteSizes: []int64{4096}},
	}
	if diff := cmp.Diff(want, gt.Scenarios); diff != "" {
		t.Errorf("scenarios mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ScenarioObservations{{10, 11}, {20}, {30}}, gt.Observations[0])
	assert.Equal(t, 5, gt.Points())
	assert.Equal(t, [][]float64{{10, 11}, {20}, {30}, {1}, {40}}, gt.Flatten())
	assert.Equal(t, []float64{10.5, 20, 30, 1, 40}, gt.Means())
	assert.NoError(t, gt.Validate())
}

func TestBuildGroundTruth_PrefixFilter(t *testing.T) {
	records := []Record{
		rec("PingPong", 2, 2, 16, 1),
		rec("PingPing", 2, 2, 16, 1),
		rec("Sendrecv", 2, 2, 16, 1),
		rec("Stencil2D", 2, 8, 16, 1),
	}
	gt, err := BuildGroundTruth(records, Filter{Benchmarks: []string{"PingP"}})
	require.NoError(t, err)
	names := []string{gt.Scenarios[0].Benchmark, gt.Scenarios[1].Benchmark}
	assert.Equal(t, []string{"PingPing", "PingPong"}, names)
}

func TestBuildGroundTruth_ValidationMode_SelectsStencils(t *testing.T) {
	records := []Record{
		rec("PingPong", 2, 2, 16, 1),
		rec("Stencil2D", 2, 8, 16, 1),
		rec("Stencil3D_irregular", 4, 16, 16, 1),
	}
	// Validation replaces the prefix filter entirely.
	gt, err := BuildGroundTruth(records, Filter{Benchmarks: []string{"PingPong"}, Validation: true})
	require.NoError(t, err)
	require.Len(t, gt.Scenarios, 2)
	for _, sc := range gt.Scenarios {
		assert.True(t, strings.Contains(sc.Benchmark, "Stencil"), sc.Benchmark)
	}
}

func TestBuildGroundTruth_MembershipFilters(t *testing.T) {
	other := rec("PingPong", 2, 2, 16, 1)
	other.BenchmarkParent = "IMB-MPI1"
	records := []Record{
		rec("PingPong", 2, 2, 16, 1),
		rec("PingPong", 2, 2, 1024, 2),
		rec("PingPong", 4, 4, 16, 3),
		other,
	}
	gt, err := BuildGroundTruth(records, Filter{BenchmarkParent: "IMB-P2P", ByteSizes: []int64{16}, NodeCounts: []int{2}})
	require.NoError(t, err)
	require.Len(t, gt.Scenarios, 1)
	assert.Equal(t, ScenarioObservations{{1}}, gt.Observations[0])

	all, err := BuildGroundTruth(records, Filter{BenchmarkParent: "all"})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Points())
}

func TestBuildGroundTruth_NothingLeft_ReturnsGroundTruthError(t *testing.T) {
	_, err := BuildGroundTruth([]Record{rec("PingPong", 2, 2, 16, 1)}, Filter{Benchmarks: []string{"Alltoall"}})
	var gtErr *GroundTruthError
	assert.True(t, errors.As(err, &gtErr))

	_, err = BuildGroundTruth(nil, Filter{})
	assert.True(t, errors.As(err, &gtErr))
}

func TestGroundTruth_Validate_EmptySampleSet(t *testing.T) {
	gt := &GroundTruth{
		Scenarios:    []Scenario{{Benchmark: "PingPong", ByteSizes: []int64{16, 32}}},
		Observations: []ScenarioObservations{{{1}, {}}},
	}
	var gtErr *GroundTruthError
	assert.True(t, errors.As(gt.Validate(), &gtErr))
}

func TestReadRecords_ParsesHeaderByName(t *testing.T) {
	csv := `benchmark_parent,benchmark,processes,node_count,bytes,repetitions,Mbytes/sec,remark
IMB-P2P,PingPong,2,2,1024.0,1000,250.5,
IMB-P2P,PingPong,2,2,1024,1000,251.5,nan
IMB-P2P,PingPong,2,2,1024,1000,900,outlier
`
	records, err := ReadRecords(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Record{BenchmarkParent: "IMB-P2P", Benchmark: "PingPong", NodeCount: 2, Processes: 2, Bytes: 1024, Throughput: 250.5}, records[0])
	assert.Empty(t, records[1].Remark)
	assert.Equal(t, "outlier", records[2].Remark)

	gt, err := BuildGroundTruth(records, Filter{})
	require.NoError(t, err)
	assert.Equal(t, ScenarioObservations{{250.5, 251.5}}, gt.Observations[0])
}

func TestReadRecords_RemarkedRowWithBadNumberIsSkipped(t *testing.T) {
	// GIVEN a failed run flagged in the remark column with unparseable numbers
	csv := `benchmark_parent,benchmark,node_count,processes,bytes,Mbytes/sec,remark
IMB-P2P,PingPong,2,2,1024,250,
IMB-P2P,PingPong,2,2,n/a,,run crashed
IMB-P2P,PingPong,2,2,1024,260,
`
	// WHEN the records are read
	records, err := ReadRecords(strings.NewReader(csv))

	// THEN loading succeeds and the remarked row is dropped from the ground truth
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "run crashed", records[1].Remark)
	gt, err := BuildGroundTruth(records, Filter{})
	require.NoError(t, err)
	require.Len(t, gt.Scenarios, 1)
	assert.Equal(t, ScenarioObservations{{250, 260}}, gt.Observations[0])
}

func TestReadRecords_ThroughputAlias(t *testing.T) {
	csv := "benchmark,node_count,processes,bytes,throughput\nSendrecv,2,4,8,12.5\n"
	records, err := ReadRecords(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 12.5, records[0].Throughput)
	assert.Empty(t, records[0].BenchmarkParent)
}

func TestReadRecords_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing column", "benchmark,node_count,processes,Mbytes/sec\nPingPong,2,2,1\n"},
		{"bad number", "benchmark,node_count,processes,bytes,Mbytes/sec\nPingPong,two,2,16,1\n"},
		{"bad throughput", "benchmark,node_count,processes,bytes,Mbytes/sec\nPingPong,2,2,16,fast\n"},
		{"bad number with nan remark", "benchmark,node_count,processes,bytes,Mbytes/sec,remark\nPingPong,2,2,n/a,1,nan\n"},
		{"empty input", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadRecords(strings.NewReader(tc.csv))
			var gtErr *GroundTruthError
			assert.True(t, errors.As(err, &gtErr), "got %v", err)
		})
	}
}
