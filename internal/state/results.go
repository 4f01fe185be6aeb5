package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/report"
)

//go:generate mockgen -source=results.go -destination=mocks/results.go -package=mocks

// ResultStore keeps the history of tcp runs.
type ResultStore interface {
	Save(ctx context.Context, res report.Result) (int64, error)
	List(ctx context.Context, limit int) ([]Record, error)
	Clear(ctx context.Context) (int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Record is one stored run. Result is the full JSON document as printed.
type Record struct {
	ID     int64
	Result report.Result
}

type SQLResultStore struct {
	db *DB
}

func NewResultStore(database *DB) *SQLResultStore {
	return &SQLResultStore{db: database}
}

var _ ResultStore = (*SQLResultStore)(nil)

func (s *SQLResultStore) Save(ctx context.Context, res report.Result) (int64, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return 0, fmt.Errorf("results: encode: %w", err)
	}

	var latency, down, up sql.NullFloat64
	if res.Latency != nil {
		latency = sql.NullFloat64{Float64: res.Latency.Avg * 1000, Valid: true}
	}
	if res.Download != nil {
		down = sql.NullFloat64{Float64: res.Download.MbitRate, Valid: true}
	}
	if res.Upload != nil {
		up = sql.NullFloat64{Float64: res.Upload.MbitRate, Valid: true}
	}

	const stmt = `
INSERT INTO results (host, port, started_at, success, latency_ms, down_mbits, up_mbits, errorcode, version, payload)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	var id int64
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := tx.ExecContext(ctx, stmt,
			res.Host, res.Port, res.StartedAt.Unix(), res.Success,
			latency, down, up, res.ErrorCode, res.Version, string(payload),
		)
		if err != nil {
			return err
		}
		id, err = r.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("results: save: %w", err)
	}
	return id, nil
}

// List returns the newest runs first. limit <= 0 returns all of them.
func (s *SQLResultStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	const q = `
SELECT id, payload
FROM results
ORDER BY started_at DESC, id DESC
LIMIT ?
`
	rows, err := s.db.Raw().QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("results: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			payload string
		)
		if err := rows.Scan(&rec.ID, &payload); err != nil {
			return nil, fmt.Errorf("results: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.Result); err != nil {
			return nil, fmt.Errorf("results: decode run %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("results: list: %w", err)
	}
	return out, nil
}

// Clear deletes every stored run and returns how many were removed.
func (s *SQLResultStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.Raw().ExecContext(ctx, `DELETE FROM results`)
	if err != nil {
		return 0, fmt.Errorf("results: clear: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteBefore removes runs started before cutoff.
func (s *SQLResultStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.Raw().ExecContext(ctx, `DELETE FROM results WHERE started_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("results: delete before: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
