package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/dance.report/internal/calibration"
)

// Calibration methods.
const (
	MethodDelay     = "delay"
	MethodBestMatch = "best_match"
)

// Calibration is a stored timing offset estimate.
type Calibration struct {
	ID        string  `json:"calibration_id"`
	SessionID string  `json:"session_id,omitempty"`
	Method    string  `json:"method"`
	OffsetMs  float64 `json:"offset_ms"`
	MedianMs  float64 `json:"median_ms"`
	MADMs     float64 `json:"mad_ms"`
	Used      int     `json:"used"`
	Total     int     `json:"total"`
	CreatedAt int64   `json:"created_at"`
}

// FromDelay builds a Calibration from a threshold-crossing estimate.
func FromDelay(r calibration.DelayResult) *Calibration {
	return &Calibration{
		Method:   MethodDelay,
		OffsetMs: float64(r.OffsetMs),
		MedianMs: r.MedianMs,
		MADMs:    r.MADMs,
		Used:     r.Used,
		Total:    r.Total,
	}
}

// FromBestMatch builds a Calibration from a best-match estimate.
func FromBestMatch(r calibration.MatchResult) *Calibration {
	return &Calibration{
		Method:   MethodBestMatch,
		OffsetMs: r.OffsetMs,
		Used:     r.Matched,
		Total:    r.Total,
	}
}

// InsertCalibration stores c, assigning ID and CreatedAt when empty.
func (db *DB) InsertCalibration(ctx context.Context, c *Calibration) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixNano()
	}
	var sessionID interface{}
	if c.SessionID != "" {
		sessionID = c.SessionID
	}
	return retryOnBusy(func() error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO calibrations (
				calibration_id, session_id, method, offset_ms, median_ms, mad_ms,
				used, total, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, sessionID, c.Method, c.OffsetMs, c.MedianMs, c.MADMs,
			c.Used, c.Total, c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert calibration: %w", err)
		}
		return nil
	})
}

// LatestCalibration returns the most recently stored calibration.
func (db *DB) LatestCalibration(ctx context.Context) (*Calibration, error) {
	var c Calibration
	var sessionID sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT calibration_id, session_id, method, offset_ms, median_ms, mad_ms,
			used, total, created_at
		FROM calibrations ORDER BY created_at DESC LIMIT 1`,
	).Scan(&c.ID, &sessionID, &c.Method, &c.OffsetMs, &c.MedianMs, &c.MADMs, &c.Used, &c.Total, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("calibration: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest calibration: %w", err)
	}
	c.SessionID = sessionID.String
	return &c, nil
}
