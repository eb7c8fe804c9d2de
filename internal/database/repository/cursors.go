package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ScanCursorRepo handles per-user scan state.
type ScanCursorRepo struct{ db *sql.DB }

func NewScanCursorRepo(db *sql.DB) *ScanCursorRepo { return &ScanCursorRepo{db: db} }

func (r *ScanCursorRepo) Get(ctx context.Context, userID string) (*ScanCursor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, initial_scan_days, last_scan_at, updated_at FROM scan_cursors WHERE user_id = ?`, userID)
	var c ScanCursor
	err := row.Scan(&c.ID, &c.UserID, &c.InitialScanDays, &c.LastScanAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert creates or updates the cursor row for a user. A nil windowDays keeps
// the stored initial_scan_days untouched.
func (r *ScanCursorRepo) Upsert(ctx context.Context, userID string, windowDays *int, lastScanAt time.Time) error {
	existing, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	if existing == nil {
		days := 90
		if windowDays != nil {
			days = *windowDays
		}
		_, err = r.db.ExecContext(ctx, `
		INSERT INTO scan_cursors(id, user_id, initial_scan_days, last_scan_at, updated_at)
		VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP);
		`, uuid.NewString(), userID, days, lastScanAt)
		return err
	}
	if windowDays != nil {
		_, err = r.db.ExecContext(ctx, `UPDATE scan_cursors SET initial_scan_days = ?, last_scan_at = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`, *windowDays, lastScanAt, userID)
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE scan_cursors SET last_scan_at = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`, lastScanAt, userID)
	return err
}
