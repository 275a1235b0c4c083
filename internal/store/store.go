package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intellibus/insights/internal/report"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// Schema creates the tables used by the event log and the report archive.
const Schema = `
CREATE TABLE IF NOT EXISTS analysis_events (
	id         BIGSERIAL PRIMARY KEY,
	subject_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_data JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS analysis_events_subject_idx ON analysis_events (subject_id, created_at);

CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	report_type  TEXT NOT NULL,
	title        TEXT NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	body         JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Enabled reports whether the store has a database behind it.
func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

// Migrate applies Schema. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ReportSummary is a row of the report listing.
type ReportSummary struct {
	ID          string    `json:"reportId"`
	ReportType  string    `json:"reportType"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Event is a stored analysis event.
type Event struct {
	ID        int64           `json:"id"`
	SubjectID string          `json:"subjectId"`
	Type      string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// SaveReport stores a generated report. Saving the same id again replaces it.
func (s *Store) SaveReport(ctx context.Context, r report.Response) error {
	if !s.Enabled() {
		return nil
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO reports (id, report_type, title, generated_at, body)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			report_type = EXCLUDED.report_type,
			title = EXCLUDED.title,
			generated_at = EXCLUDED.generated_at,
			body = EXCLUDED.body
	`, r.ReportID, r.ReportType, r.Title, r.GeneratedAt, body)
	return err
}

// GetReport loads an archived report by id.
func (s *Store) GetReport(ctx context.Context, id string) (report.Response, error) {
	var out report.Response
	if !s.Enabled() {
		return out, ErrNotFound
	}

	var body []byte
	err := s.db.QueryRow(ctx, `SELECT body FROM reports WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, ErrNotFound
	}
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode report %s: %w", id, err)
	}
	return out, nil
}

// ListReports returns the newest archived reports first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	out := []ReportSummary{}
	if !s.Enabled() {
		return out, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, report_type, title, generated_at
		FROM reports
		ORDER BY generated_at DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r ReportSummary
		if err := rows.Scan(&r.ID, &r.ReportType, &r.Title, &r.GeneratedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListEvents returns the events recorded for a request or report id, oldest first.
func (s *Store) ListEvents(ctx context.Context, subjectID string, limit int) ([]Event, error) {
	out := []Event{}
	if !s.Enabled() {
		return out, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, subject_id, event_type, event_data, created_at
		FROM analysis_events
		WHERE subject_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, subjectID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e Event
		var data []byte
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Type, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneResult counts the rows removed by Prune.
type PruneResult struct {
	Reports int64
	Events  int64
}

// Prune deletes archived reports and events created before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (PruneResult, error) {
	var res PruneResult
	if !s.Enabled() {
		return res, nil
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM reports WHERE created_at < $1`, cutoff)
	if err != nil {
		return res, fmt.Errorf("prune reports: %w", err)
	}
	res.Reports = tag.RowsAffected()

	tag, err = s.db.Exec(ctx, `DELETE FROM analysis_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return res, fmt.Errorf("prune events: %w", err)
	}
	res.Events = tag.RowsAffected()
	return res, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultEventLimit
	}
	if n > maxEventLimit {
		return maxEventLimit
	}
	return n
}
