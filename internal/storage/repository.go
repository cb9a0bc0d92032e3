package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertRunSQL = `INSERT INTO probe_runs (
        id,
        started_at,
        mode,
        surface,
        corrected_ohms_sq,
        valid,
        invalid_fraction,
        thickness_factor,
        lateral_factor,
        classification,
        levels,
        ratios,
        filtered,
        series,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
    )
    ON CONFLICT (id) DO NOTHING;`

	runColumns = `
        id,
        started_at,
        mode,
        surface,
        corrected_ohms_sq,
        valid,
        invalid_fraction,
        thickness_factor,
        lateral_factor,
        classification,
        levels,
        ratios,
        filtered,
        series,
        error,
        created_at`

	getRunSQL = `SELECT` + runColumns + `
    FROM probe_runs
    WHERE id = $1;`

	listRecentRunsSQL = `SELECT` + runColumns + `
    FROM probe_runs
    ORDER BY started_at DESC
    LIMIT $1;`

	countRunsSQL = `SELECT COUNT(*) FROM probe_runs;`

	insertAlertSQL = `INSERT INTO probe_alerts (
        run_id,
        corrected_ohms_sq,
        min_ohms_sq,
        max_ohms_sq,
        reason,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    RETURNING id, run_id, corrected_ohms_sq, min_ohms_sq, max_ohms_sq, reason, channels, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        run_id,
        corrected_ohms_sq,
        min_ohms_sq,
        max_ohms_sq,
        reason,
        channels,
        created_at
    FROM probe_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM probe_alerts WHERE created_at < $1;`
)

// RunStore defines operations for test run persistence.
type RunStore interface {
	InsertRun(ctx context.Context, run TestRun) error
	GetRun(ctx context.Context, id string) (TestRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]TestRun, error)
	CountRuns(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// Store aggregates access to test runs and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertRun persists a completed or failed run.
func (s *Store) InsertRun(ctx context.Context, run TestRun) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	levels, err := json.Marshal(run.Levels)
	if err != nil {
		return fmt.Errorf("marshal levels: %w", err)
	}
	ratios, err := json.Marshal(run.Ratios)
	if err != nil {
		return fmt.Errorf("marshal ratios: %w", err)
	}
	filtered, err := json.Marshal(run.Filtered)
	if err != nil {
		return fmt.Errorf("marshal filtered: %w", err)
	}

	var errMsg interface{}
	if run.Error != nil {
		errMsg = *run.Error
	}
	series := run.Series
	if series == nil {
		series = json.RawMessage("null")
	}

	_, execErr := pool.Exec(ctx, insertRunSQL,
		run.ID,
		run.StartedAt,
		run.Mode,
		run.Surface,
		run.Corrected.String(),
		run.Valid,
		run.InvalidFraction.String(),
		run.ThicknessFactor.String(),
		run.LateralFactor.String(),
		run.Classification,
		levels,
		ratios,
		filtered,
		[]byte(series),
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("insert run: %w", execErr)
	}
	return nil
}

// GetRun fetches one run by identifier.
func (s *Store) GetRun(ctx context.Context, id string) (TestRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return TestRun{}, err
	}

	rows, queryErr := pool.Query(ctx, getRunSQL, id)
	if queryErr != nil {
		return TestRun{}, fmt.Errorf("get run: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return TestRun{}, rows.Err()
		}
		return TestRun{}, pgx.ErrNoRows
	}
	return scanRun(rows)
}

// ListRecentRuns lists the most recent runs ordered by descending start time.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]TestRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]TestRun, 0, limit)
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// CountRuns counts stored runs.
func (s *Store) CountRuns(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRunsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count runs: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.RunID,
		alert.Corrected.String(),
		alert.MinOhmsSq.String(),
		alert.MaxOhmsSq.String(),
		alert.Reason,
		alert.Channels,
	)

	var rec AlertRecord
	var correctedStr, minStr, maxStr string
	if scanErr := row.Scan(
		&rec.ID,
		&rec.RunID,
		&correctedStr,
		&minStr,
		&maxStr,
		&rec.Reason,
		&rec.Channels,
		&rec.CreatedAt,
	); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}

	var convErr error
	rec.Corrected, convErr = decimal.NewFromString(correctedStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse corrected: %w", convErr)
	}
	rec.MinOhmsSq, convErr = decimal.NewFromString(minStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse min band: %w", convErr)
	}
	rec.MaxOhmsSq, convErr = decimal.NewFromString(maxStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse max band: %w", convErr)
	}

	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		var correctedStr, minStr, maxStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&correctedStr,
			&minStr,
			&maxStr,
			&rec.Reason,
			&rec.Channels,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		rec.Corrected, convErr = decimal.NewFromString(correctedStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse corrected: %w", convErr)
		}
		rec.MinOhmsSq, convErr = decimal.NewFromString(minStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse min band: %w", convErr)
		}
		rec.MaxOhmsSq, convErr = decimal.NewFromString(maxStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse max band: %w", convErr)
		}

		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanRun(rows pgx.Rows) (TestRun, error) {
	var (
		run          TestRun
		correctedStr string
		fractionStr  string
		thicknessStr string
		lateralStr   string
		levelsRaw    []byte
		ratiosRaw    []byte
		filteredRaw  []byte
		seriesRaw    []byte
		errMsg       sql.NullString
	)

	if err := rows.Scan(
		&run.ID,
		&run.StartedAt,
		&run.Mode,
		&run.Surface,
		&correctedStr,
		&run.Valid,
		&fractionStr,
		&thicknessStr,
		&lateralStr,
		&run.Classification,
		&levelsRaw,
		&ratiosRaw,
		&filteredRaw,
		&seriesRaw,
		&errMsg,
		&run.CreatedAt,
	); err != nil {
		return TestRun{}, err
	}

	var err error
	run.Corrected, err = decimal.NewFromString(correctedStr)
	if err != nil {
		return TestRun{}, fmt.Errorf("parse corrected: %w", err)
	}
	run.InvalidFraction, err = decimal.NewFromString(fractionStr)
	if err != nil {
		return TestRun{}, fmt.Errorf("parse invalid fraction: %w", err)
	}
	run.ThicknessFactor, err = decimal.NewFromString(thicknessStr)
	if err != nil {
		return TestRun{}, fmt.Errorf("parse thickness factor: %w", err)
	}
	run.LateralFactor, err = decimal.NewFromString(lateralStr)
	if err != nil {
		return TestRun{}, fmt.Errorf("parse lateral factor: %w", err)
	}

	if err := json.Unmarshal(levelsRaw, &run.Levels); err != nil {
		return TestRun{}, fmt.Errorf("unmarshal levels: %w", err)
	}
	if err := json.Unmarshal(ratiosRaw, &run.Ratios); err != nil {
		return TestRun{}, fmt.Errorf("unmarshal ratios: %w", err)
	}
	if err := json.Unmarshal(filteredRaw, &run.Filtered); err != nil {
		return TestRun{}, fmt.Errorf("unmarshal filtered: %w", err)
	}
	run.Series = json.RawMessage(seriesRaw)

	if errMsg.Valid {
		msg := errMsg.String
		run.Error = &msg
	}

	return run, nil
}
