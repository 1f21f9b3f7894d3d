package calib

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Accepted header names per column. The first throughput alias matches the
// IMB export format.
var (
	colBenchmark  = []string{"benchmark"}
	colParent     = []string{"benchmark_parent"}
	colNodeCount  = []string{"node_count"}
	colProcesses  = []string{"processes"}
	colBytes      = []string{"bytes"}
	colThroughput = []string{"Mbytes/sec", "throughput"}
	colRemark     = []string{"remark"}
)

// LoadRecords reads benchmark records from a CSV file with a header row.
func LoadRecords(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &GroundTruthError{Reason: fmt.Sprintf("opening %s: %v", path, err)}
	}
	defer func() { _ = file.Close() }()
	return ReadRecords(file)
}

// ReadRecords parses benchmark records from CSV. Columns are located by
// header name; remark and benchmark_parent are optional.
func ReadRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &GroundTruthError{Reason: fmt.Sprintf("reading CSV header: %v", err)}
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	lookup := func(aliases []string, required bool) (int, error) {
		for _, a := range aliases {
			if i, ok := index[a]; ok {
				return i, nil
			}
		}
		if required {
			return -1, &GroundTruthError{Reason: fmt.Sprintf("missing CSV column %q", aliases[0])}
		}
		return -1, nil
	}

	var cols [7]int
	for i, col := range []struct {
		aliases  []string
		required bool
	}{
		{colBenchmark, true},
		{colNodeCount, true},
		{colProcesses, true},
		{colBytes, true},
		{colThroughput, true},
		{colRemark, false},
		{colParent, false},
	} {
		if cols[i], err = lookup(col.aliases, col.required); err != nil {
			return nil, err
		}
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &GroundTruthError{Reason: fmt.Sprintf("reading CSV row %d: %v", line, err)}
		}
		rec, err := parseRecord(row, cols)
		if err != nil {
			return nil, &GroundTruthError{Reason: fmt.Sprintf("row %d: %v", line, err)}
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseRecord converts one CSV row. A remarked row is excluded from the
// ground truth anyway, so its numeric fields are not required to parse.
func parseRecord(row []string, cols [7]int) (Record, error) {
	field := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	remark := field(cols[5])
	if strings.EqualFold(remark, "nan") {
		remark = ""
	}
	rec := Record{
		BenchmarkParent: field(cols[6]),
		Benchmark:       field(cols[0]),
		Remark:          remark,
	}
	if err := parseNumbers(&rec, field, cols); err != nil {
		if remark != "" {
			return Record{BenchmarkParent: rec.BenchmarkParent, Benchmark: rec.Benchmark, Remark: remark}, nil
		}
		return Record{}, err
	}
	return rec, nil
}

func parseNumbers(rec *Record, field func(int) string, cols [7]int) error {
	var err error
	if rec.NodeCount, err = strconv.Atoi(field(cols[1])); err != nil {
		return fmt.Errorf("node_count: %w", err)
	}
	if rec.Processes, err = strconv.Atoi(field(cols[2])); err != nil {
		return fmt.Errorf("processes: %w", err)
	}
	// bytes sometimes arrives as a float column ("1024.0").
	bytesF, err := strconv.ParseFloat(field(cols[3]), 64)
	if err != nil {
		return fmt.Errorf("bytes: %w", err)
	}
	rec.Bytes = int64(bytesF)
	if rec.Throughput, err = strconv.ParseFloat(field(cols[4]), 64); err != nil {
		return fmt.Errorf("throughput: %w", err)
	}
	return nil
}
