package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/banshee-data/dance.report/internal/session"
)

// ErrNotFound is returned when a session or calibration does not exist.
var ErrNotFound = errors.New("not found")

// Session is the stored header of a scored run.
type Session struct {
	ID                  string  `json:"session_id"`
	Title               string  `json:"title"`
	LevelPath           string  `json:"level_path"`
	Variant             string  `json:"variant"`
	CalibrationOffsetMs float64 `json:"calibration_offset_ms"`
	Frames              int     `json:"frames"`
	MeanTotal           float64 `json:"mean_total"`
	Grade               string  `json:"grade"`
	CreatedAt           int64   `json:"created_at"` // unix nanoseconds
}

// InsertSession stores s with its history and interval scores in one
// transaction. ID and CreatedAt are assigned when empty.
func (db *DB) InsertSession(ctx context.Context, s *Session, history []session.ScoredPose, intervals []session.IntervalScore) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt == 0 {
		s.CreatedAt = time.Now().UnixNano()
	}

	err := retryOnBusy(func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (
				session_id, title, level_path, variant, calibration_offset_ms,
				frames, mean_total, grade, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.Title, s.LevelPath, s.Variant, s.CalibrationOffsetMs,
			s.Frames, s.MeanTotal, s.Grade, s.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		poseStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO scored_poses (session_id, original_timestamp, live_timestamp, total, per_angle_json)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer poseStmt.Close()
		for _, sp := range history {
			perAngle, err := json.Marshal(sp.Score.PerAngle)
			if err != nil {
				return err
			}
			if _, err := poseStmt.ExecContext(ctx, s.ID, sp.OriginalTimestamp, sp.LiveTimestamp, sp.Score.Total, string(perAngle)); err != nil {
				return fmt.Errorf("insert scored pose at %v: %w", sp.OriginalTimestamp, err)
			}
		}

		ivStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO interval_scores (session_id, interval_index, start_ms, end_ms, entry_count, total, per_angle_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer ivStmt.Close()
		for i, iv := range intervals {
			perAngle, err := json.Marshal(iv.PerAngle)
			if err != nil {
				return err
			}
			if _, err := ivStmt.ExecContext(ctx, s.ID, i, iv.StartMs, iv.EndMs, iv.Count, iv.Total, string(perAngle)); err != nil {
				return fmt.Errorf("insert interval score %d: %w", i, err)
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return err
	}

	db.log.Debug("stored session",
		zap.String("session_id", s.ID),
		zap.Int("history", len(history)),
		zap.Int("intervals", len(intervals)))
	return nil
}

const sessionColumns = `session_id, title, level_path, variant, calibration_offset_ms,
	frames, mean_total, grade, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.Title, &s.LevelPath, &s.Variant, &s.CalibrationOffsetMs,
		&s.Frames, &s.MeanTotal, &s.Grade, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession returns the session with id.
func (db *DB) GetSession(ctx context.Context, id string) (*Session, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

// ListSessions returns up to limit sessions, newest first. A limit of zero
// or less returns all sessions.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// DeleteSession removes a session together with its history and interval
// scores. Calibrations referring to it are kept with no session.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	return retryOnBusy(func() error {
		res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// SessionHistory returns the stored history of a session ascending by
// reference timestamp.
func (db *DB) SessionHistory(ctx context.Context, id string) ([]session.ScoredPose, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT original_timestamp, live_timestamp, total, per_angle_json
		FROM scored_poses WHERE session_id = ? ORDER BY original_timestamp`, id)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []session.ScoredPose{}
	for rows.Next() {
		var sp session.ScoredPose
		var perAngle string
		if err := rows.Scan(&sp.OriginalTimestamp, &sp.LiveTimestamp, &sp.Score.Total, &perAngle); err != nil {
			return nil, fmt.Errorf("scan scored pose: %w", err)
		}
		if sp.Score.PerAngle, err = decodePerAngle(perAngle); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// SessionIntervals returns the stored interval scores of a session in
// configuration order.
func (db *DB) SessionIntervals(ctx context.Context, id string) ([]session.IntervalScore, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT start_ms, end_ms, entry_count, total, per_angle_json
		FROM interval_scores WHERE session_id = ? ORDER BY interval_index`, id)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}
	defer rows.Close()

	out := []session.IntervalScore{}
	for rows.Next() {
		var iv session.IntervalScore
		var perAngle string
		if err := rows.Scan(&iv.StartMs, &iv.EndMs, &iv.Count, &iv.Total, &perAngle); err != nil {
			return nil, fmt.Errorf("scan interval score: %w", err)
		}
		if iv.PerAngle, err = decodePerAngle(perAngle); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func decodePerAngle(s string) (map[string]float64, error) {
	m := map[string]float64{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decode per-angle scores: %w", err)
	}
	if m == nil {
		m = map[string]float64{}
	}
	return m, nil
}
