package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sacha-escudier/marangoni-spreading/internal/detection"
	"github.com/sacha-escudier/marangoni-spreading/internal/tracking"
)

// SaveFeatures replaces the features of a run, keeping their order.
func (s *Store) SaveFeatures(ctx context.Context, runID string, features []detection.Feature) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touchRun(ctx, tx, runID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM features WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("clear features: %w", err)
		}
		return insertFeatures(ctx, tx, runID, features)
	})
}

func insertFeatures(ctx context.Context, tx *sql.Tx, runID string, features []detection.Feature) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO features (run_id, seq, frame, x, y, mass, size, ecc, signal)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare feature insert: %w", err)
	}
	defer stmt.Close()
	for i, f := range features {
		if _, err := stmt.ExecContext(ctx, runID, i, f.Frame, f.X, f.Y, f.Mass, f.Size, f.Ecc, f.Signal); err != nil {
			return fmt.Errorf("insert feature %d: %w", i, err)
		}
	}
	_, err = tx.ExecContext(ctx, "UPDATE runs SET feature_count = ? WHERE id = ?", len(features), runID)
	return err
}

// Features returns the features of a run in the order they were saved.
func (s *Store) Features(ctx context.Context, runID string) ([]detection.Feature, error) {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame, x, y, mass, size, ecc, signal FROM features
        WHERE run_id = ? ORDER BY seq`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	out := []detection.Feature{}
	for rows.Next() {
		var f detection.Feature
		if err := rows.Scan(&f.Frame, &f.X, &f.Y, &f.Mass, &f.Size, &f.Ecc, &f.Signal); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return out, nil
}

// SaveTrajectories replaces the trajectories of a run and records the
// parameters that produced them. means are the per-particle averages of the
// trajectories that passed the stub filter, before any attribute filter,
// and are kept for the mass/size diagnostic.
func (s *Store) SaveTrajectories(ctx context.Context, runID string, points []tracking.Point, means []tracking.ParticleSummary, params tracking.TrackParams) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal tracking params: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touchRun(ctx, tx, runID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM trajectories WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("clear trajectories: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM particle_means WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("clear particle means: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO trajectories (run_id, seq, particle, frame, x, y, mass, size, ecc, signal)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare trajectory insert: %w", err)
		}
		defer stmt.Close()
		for i, pt := range points {
			if _, err := stmt.ExecContext(ctx, runID, i, pt.Particle, pt.Frame,
				pt.X, pt.Y, pt.Mass, pt.Size, pt.Ecc, pt.Signal); err != nil {
				return fmt.Errorf("insert trajectory point %d: %w", i, err)
			}
		}
		for _, m := range means {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO particle_means (run_id, particle, frames, first_frame, last_frame, x, y, mass, size, ecc)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, m.Particle, m.Frames, m.FirstFrame, m.LastFrame, m.X, m.Y, m.Mass, m.Size, m.Ecc); err != nil {
				return fmt.Errorf("insert means of particle %d: %w", m.Particle, err)
			}
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE runs SET tracking_json = ?, particle_count = ? WHERE id = ?",
			string(paramsJSON), tracking.CountParticles(points), runID)
		return err
	})
}

// ParticleMeans returns the stub-filtered per-particle averages saved with
// the trajectories of a run, ordered by particle id.
func (s *Store) ParticleMeans(ctx context.Context, runID string) ([]tracking.ParticleSummary, error) {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT particle, frames, first_frame, last_frame, x, y, mass, size, ecc FROM particle_means
        WHERE run_id = ? ORDER BY particle`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("query particle means: %w", err)
	}
	defer rows.Close()

	out := []tracking.ParticleSummary{}
	for rows.Next() {
		var m tracking.ParticleSummary
		if err := rows.Scan(&m.Particle, &m.Frames, &m.FirstFrame, &m.LastFrame, &m.X, &m.Y, &m.Mass, &m.Size, &m.Ecc); err != nil {
			return nil, fmt.Errorf("scan particle means: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate particle means: %w", err)
	}
	return out, nil
}

// Trajectories returns the saved trajectory points of a run in their saved
// order. A run that was never tracked returns an empty slice.
func (s *Store) Trajectories(ctx context.Context, runID string) ([]tracking.Point, error) {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT particle, frame, x, y, mass, size, ecc, signal FROM trajectories
        WHERE run_id = ? ORDER BY seq`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("query trajectories: %w", err)
	}
	defer rows.Close()

	out := []tracking.Point{}
	for rows.Next() {
		var pt tracking.Point
		if err := rows.Scan(&pt.Particle, &pt.Frame, &pt.X, &pt.Y, &pt.Mass, &pt.Size, &pt.Ecc, &pt.Signal); err != nil {
			return nil, fmt.Errorf("scan trajectory point: %w", err)
		}
		out = append(out, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trajectories: %w", err)
	}
	return out, nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// touchRun bumps updated_at and fails with ErrRunNotFound for unknown ids.
func touchRun(ctx context.Context, tx *sql.Tx, runID string) error {
	res, err := tx.ExecContext(ctx, "UPDATE runs SET updated_at = ? WHERE id = ?",
		time.Now().UTC().Format(timeLayout), runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return nil
}
