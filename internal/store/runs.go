package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
)

// Run is one batch detection and, once tracked, its trajectories.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FramesDir string           `json:"frames_dir"`
	Frames    int              `json:"frames"`
	Detection detection.Params `json:"detection"`

	// Tracking is nil until trajectories are saved.
	Tracking *tracking.TrackParams `json:"tracking,omitempty"`

	Features  int `json:"features"`
	Particles int `json:"particles"`
}

// Tracked reports whether trajectories were saved for the run.
func (r *Run) Tracked() bool { return r.Tracking != nil }

// NewRun describes a batch about to be stored.
type NewRun struct {
	FramesDir string
	Frames    int
	Detection detection.Params
	// Features are written with the run, in the same transaction.
	Features []detection.Feature
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, created_at, updated_at, frames_dir, frames, detection_json,
    tracking_json, feature_count, particle_count`

// CreateRun inserts a run with a fresh id together with its features. A
// failure leaves no trace of the run.
func (s *Store) CreateRun(ctx context.Context, in NewRun) (*Run, error) {
	detJSON, err := json.Marshal(in.Detection)
	if err != nil {
		return nil, fmt.Errorf("marshal detection params: %w", err)
	}
	id := uuid.NewString()
	now := time.Now().UTC().Format(timeLayout)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, created_at, updated_at, frames_dir, frames, detection_json)
            VALUES (?, ?, ?, ?, ?, ?)`,
			id, now, now, in.FramesDir, in.Frames, string(detJSON),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return insertFeatures(ctx, tx, id, in.Features)
	})
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, id)
}

// Run returns the run with the given id. A unique id prefix of at least four
// characters is also accepted.
func (s *Store) Run(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, ErrRunNotFound) || len(id) < 4 {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id LIKE ? ESCAPE '\\' LIMIT 2", escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	matches, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run prefix %q is ambiguous", id)
	}
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY rowid DESC LIMIT 1")
	return scanRun(row)
}

// Runs lists every run, newest first.
func (s *Store) Runs(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// DeleteRun removes a run with its features, trajectories and particle
// means.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run              Run
		created, updated string
		detJSON          string
		trackJSON        sql.NullString
	)
	err := row.Scan(&run.ID, &created, &updated, &run.FramesDir, &run.Frames, &detJSON,
		&trackJSON, &run.Features, &run.Particles)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if run.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(detJSON), &run.Detection); err != nil {
		return nil, fmt.Errorf("decode detection params: %w", err)
	}
	if trackJSON.Valid && trackJSON.String != "" {
		run.Tracking = &tracking.TrackParams{}
		if err := json.Unmarshal([]byte(trackJSON.String), run.Tracking); err != nil {
			return nil, fmt.Errorf("decode tracking params: %w", err)
		}
	}
	return &run, nil
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
