package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
)

// RequestLogRepository handles request log data access.
type RequestLogRepository struct {
	db *db.DB
}

func NewRequestLogRepository(d *db.DB) *RequestLogRepository {
	return &RequestLogRepository{db: d}
}

func (r *RequestLogRepository) Create(ctx context.Context, entry *db.RequestLog) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO request_logs (request_id, client_ip, endpoint, status, input_data, output_data, started_at, processing_time_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.RequestID, entry.ClientIP, entry.Endpoint, entry.Status,
		entry.InputData, entry.OutputData, entry.StartedAt, int64(entry.ProcessingTime))
	if err != nil {
		return fmt.Errorf("inserting request log: %w", err)
	}

	entry.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insert id: %w", err)
	}
	return nil
}

func (r *RequestLogRepository) List(ctx context.Context, limit int) ([]*db.RequestLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, client_ip, endpoint, status, input_data, output_data, started_at, processing_time_ns
		FROM request_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing request logs: %w", err)
	}
	defer rows.Close()

	var entries []*db.RequestLog
	for rows.Next() {
		e := &db.RequestLog{}
		var procNS int64
		if err := rows.Scan(&e.ID, &e.RequestID, &e.ClientIP, &e.Endpoint, &e.Status,
			&e.InputData, &e.OutputData, &e.StartedAt, &procNS); err != nil {
			return nil, fmt.Errorf("scanning request log: %w", err)
		}
		e.ProcessingTime = time.Duration(procNS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ActivityRepository handles the append-only user activity trail.
type ActivityRepository struct {
	db *db.DB
}

func NewActivityRepository(d *db.DB) *ActivityRepository {
	return &ActivityRepository{db: d}
}

func (r *ActivityRepository) Create(ctx context.Context, entry *db.Activity) error {
	now := time.Now()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_log (user_id, action, timestamp) VALUES (?, ?, ?)
	`, entry.UserID, entry.Action, now)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}

	entry.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insert id: %w", err)
	}
	entry.Timestamp = now
	return nil
}

func (r *ActivityRepository) ListByUser(ctx context.Context, userID int64) ([]*db.Activity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, timestamp FROM activity_log
		WHERE user_id = ?
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var entries []*db.Activity
	for rows.Next() {
		e := &db.Activity{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TestResultRepository handles persisted test outcomes.
type TestResultRepository struct {
	db *db.DB
}

func NewTestResultRepository(d *db.DB) *TestResultRepository {
	return &TestResultRepository{db: d}
}

func (r *TestResultRepository) Create(ctx context.Context, result *db.TestResult) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO test_results (test_name, result, timestamp) VALUES (?, ?, ?)
	`, result.TestName, result.Result, result.Timestamp)
	if err != nil {
		return fmt.Errorf("inserting test result: %w", err)
	}

	result.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insert id: %w", err)
	}
	return nil
}

func (r *TestResultRepository) List(ctx context.Context) ([]*db.TestResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, test_name, result, timestamp FROM test_results ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing test results: %w", err)
	}
	defer rows.Close()

	var results []*db.TestResult
	for rows.Next() {
		t := &db.TestResult{}
		if err := rows.Scan(&t.ID, &t.TestName, &t.Result, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning test result: %w", err)
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

var (
	_ repository.RequestLogRepository = (*RequestLogRepository)(nil)
	_ repository.ActivityRepository   = (*ActivityRepository)(nil)
	_ repository.TestResultRepository = (*TestResultRepository)(nil)
)
