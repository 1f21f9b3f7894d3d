// Package store persists calibration trial reports.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang/snappy"
	_ "modernc.org/sqlite"

	"github.com/inference-sim/netcal/calib"
)

// SQLiteStore records trial reports in a SQLite database. It implements
// calib.ReportSink and is safe for concurrent use.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

type payload struct {
	Calibration calib.Params      `json:"calibration"`
	Result      calib.TrialResult `json:"result"`
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("opening report database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(trialSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating report schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Record inserts one trial report.
func (s *SQLiteStore) Record(r calib.TrialReport) error {
	data, err := json.Marshal(payload{Calibration: r.Calibration, Result: r.Result})
	if err != nil {
		return fmt.Errorf("encoding trial %s: %w", r.ID, err)
	}
	finished := r.Finished
	if finished.IsZero() {
		finished = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO trials (id, finished, loss, seconds, payload) VALUES (?, ?, ?, ?, ?)`,
		r.ID, finished.UnixNano(), r.Loss, r.Seconds, snappy.Encode(nil, data),
	)
	if err != nil {
		return fmt.Errorf("inserting trial %s: %w", r.ID, err)
	}
	return nil
}

// Best returns up to limit reports ordered by ascending loss.
func (s *SQLiteStore) Best(limit int) ([]calib.TrialReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT id, finished, loss, seconds, payload FROM trials ORDER BY loss ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying trials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []calib.TrialReport
	for rows.Next() {
		var (
			r        calib.TrialReport
			finished int64
			compact  []byte
		)
		if err := rows.Scan(&r.ID, &finished, &r.Loss, &r.Seconds, &compact); err != nil {
			return nil, fmt.Errorf("scanning trial: %w", err)
		}
		data, err := snappy.Decode(nil, compact)
		if err != nil {
			return nil, fmt.Errorf("decompressing trial %s: %w", r.ID, err)
		}
		var p payload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding trial %s: %w", r.ID, err)
		}
		r.Calibration = p.Calibration
		r.Result = p.Result
		r.Finished = time.Unix(0, finished)
		r.Duration = time.Duration(r.Seconds * float64(time.Second))
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of recorded trials.
func (s *SQLiteStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow(`SELECT count(*) FROM trials`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting trials: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
