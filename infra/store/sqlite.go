// Package store persists run audit records in SQLite.
package store

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// RunRecord is one audited optimization run.
type RunRecord struct {
	RunID        string
	Action       string
	Scorer       string
	SolverStatus string
	TotalBlocks  int
	Assigned     int
	Unassigned   int
	DurationMS   int64
	CreatedAt    time.Time
}

// AssignmentRecord is one audited block assignment.
type AssignmentRecord struct {
	RunID     string
	BlockID   string
	DriverID  string
	MatchType string
	Score     float64
}

// SQLiteStore persists run outcomes in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The run and assignment auditors write concurrently; a single
	// connection serializes them so no insert fails with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS runs (
        run_id TEXT PRIMARY KEY,
        action TEXT,
        scorer TEXT,
        solver_status TEXT,
        total_blocks INTEGER,
        assigned INTEGER,
        unassigned INTEGER,
        duration_ms INTEGER,
        created_at INTEGER
    );
    CREATE TABLE IF NOT EXISTS run_assignments (
        run_id TEXT,
        block_id TEXT,
        driver_id TEXT,
        match_type TEXT,
        score REAL,
        PRIMARY KEY(run_id, block_id)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// AddRun inserts or replaces the run record.
func (s *SQLiteStore) AddRun(r RunRecord) error {
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO runs
        (run_id, action, scorer, solver_status, total_blocks, assigned, unassigned, duration_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id) DO UPDATE SET
            action = excluded.action,
            scorer = excluded.scorer,
            solver_status = excluded.solver_status,
            total_blocks = excluded.total_blocks,
            assigned = excluded.assigned,
            unassigned = excluded.unassigned,
            duration_ms = excluded.duration_ms`,
		r.RunID, r.Action, r.Scorer, r.SolverStatus,
		r.TotalBlocks, r.Assigned, r.Unassigned, r.DurationMS, created.Unix())
	return err
}

// AddAssignment inserts or replaces one assignment of a run.
func (s *SQLiteStore) AddAssignment(a AssignmentRecord) error {
	_, err := s.db.Exec(`INSERT INTO run_assignments
        (run_id, block_id, driver_id, match_type, score)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(run_id, block_id) DO UPDATE SET
            driver_id = excluded.driver_id,
            match_type = excluded.match_type,
            score = excluded.score`,
		a.RunID, a.BlockID, a.DriverID, a.MatchType, a.Score)
	return err
}

// Run returns the run record with the given id.
func (s *SQLiteStore) Run(runID string) (RunRecord, error) {
	row := s.db.QueryRow(`SELECT run_id, action, scorer, solver_status,
        total_blocks, assigned, unassigned, duration_ms, created_at
        FROM runs WHERE run_id = ?`, runID)
	var r RunRecord
	var ts int64
	if err := row.Scan(&r.RunID, &r.Action, &r.Scorer, &r.SolverStatus,
		&r.TotalBlocks, &r.Assigned, &r.Unassigned, &r.DurationMS, &ts); err != nil {
		return RunRecord{}, err
	}
	r.CreatedAt = time.Unix(ts, 0).UTC()
	return r, nil
}

// Assignments returns the assignments of a run ordered by block id.
func (s *SQLiteStore) Assignments(runID string) ([]AssignmentRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, block_id, driver_id, match_type, score
        FROM run_assignments WHERE run_id = ? ORDER BY block_id`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []AssignmentRecord
	for rows.Next() {
		var a AssignmentRecord
		if err := rows.Scan(&a.RunID, &a.BlockID, &a.DriverID, &a.MatchType, &a.Score); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
