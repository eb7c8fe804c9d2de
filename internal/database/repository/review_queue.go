package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicate is returned when an insert collides with the dedup unique index.
// Callers convert it to a counted skip, never a hard failure.
var ErrDuplicate = errors.New("duplicate review item")

// ReviewQueueRepo handles review queue rows.
type ReviewQueueRepo struct{ db *sql.DB }

func NewReviewQueueRepo(db *sql.DB) *ReviewQueueRepo { return &ReviewQueueRepo{db: db} }

const reviewColumns = `id, user_id, source, status, merchant, item_name, name_key, category, size,
 price_cents, currency, purchased_at, email_message_id, email_thread_id, image_url, extracted_json, created_at`

// InsertPending inserts a pending row, mapping unique-constraint violations to
// ErrDuplicate. Each insert is its own short transaction; no storage work spans
// a provider or extractor call.
func (r *ReviewQueueRepo) InsertPending(ctx context.Context, it ReviewQueueItem) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO review_queue_items(
	 id, user_id, source, status, merchant, item_name, name_key, category, size,
	 price_cents, currency, purchased_at, email_message_id, email_thread_id, image_url, extracted_json, created_at)
	VALUES(?, ?, ?, 'pending', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`,
		it.ID, it.UserID, it.Source, it.Merchant, it.ItemName, it.NameKey, it.Category, it.Size,
		it.PriceCents, it.Currency, it.PurchasedAt, it.EmailMessageID, it.EmailThreadID, it.ImageURL, it.ExtractedJSON)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, it.NameKey)
	}
	return err
}

// ExistsForMessage reports whether any row exists for (user, message id),
// regardless of status. Rejected rows still count: they keep a re-scan from
// re-extracting an email the user already adjudicated.
func (r *ReviewQueueRepo) ExistsForMessage(ctx context.Context, userID, messageID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM review_queue_items WHERE user_id = ? AND email_message_id = ?`,
		userID, messageID).Scan(&n)
	return n > 0, err
}

// ListPending returns pending rows for a user, newest first.
func (r *ReviewQueueRepo) ListPending(ctx context.Context, userID string) ([]ReviewQueueItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM review_queue_items WHERE user_id = ? AND status = 'pending' ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReviewItems(rows)
}

// ListNonRejected returns every non-rejected row for a user in insertion order.
// Input set for analytics recomputation.
func (r *ReviewQueueRepo) ListNonRejected(ctx context.Context, userID string) ([]ReviewQueueItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM review_queue_items WHERE user_id = ? AND status != 'rejected' ORDER BY created_at ASC, id ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReviewItems(rows)
}

// Get returns a row scoped to its owner, nil when absent.
func (r *ReviewQueueRepo) Get(ctx context.Context, userID, itemID string) (*ReviewQueueItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM review_queue_items WHERE id = ? AND user_id = ?`,
		itemID, userID)
	it, err := scanReviewItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Approve flips a pending row to approved and creates the wardrobe item in one
// transaction. A failure in either half leaves the row pending.
func (r *ReviewQueueRepo) Approve(ctx context.Context, userID, itemID string, w WardrobeItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE review_queue_items SET status = 'approved' WHERE id = ? AND user_id = ? AND status = 'pending'`,
		itemID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO wardrobe_items(
	 id, user_id, merchant, item_name, category, size, color, price_cents, currency,
	 purchased_at, wear_count, source, image_url, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`,
		w.ID, w.UserID, w.Merchant, w.ItemName, w.Category, w.Size, w.Color, w.PriceCents, w.Currency,
		w.PurchasedAt, w.WearCount, w.Source, w.ImageURL)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Reject flips a pending row to rejected. The row is retained for analytics
// signal and future-scan dedup.
func (r *ReviewQueueRepo) Reject(ctx context.Context, userID, itemID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE review_queue_items SET status = 'rejected' WHERE id = ? AND user_id = ? AND status = 'pending'`,
		itemID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReviewItem(row rowScanner) (ReviewQueueItem, error) {
	var it ReviewQueueItem
	err := row.Scan(&it.ID, &it.UserID, &it.Source, &it.Status, &it.Merchant, &it.ItemName, &it.NameKey,
		&it.Category, &it.Size, &it.PriceCents, &it.Currency, &it.PurchasedAt,
		&it.EmailMessageID, &it.EmailThreadID, &it.ImageURL, &it.ExtractedJSON, &it.CreatedAt)
	return it, err
}

func collectReviewItems(rows *sql.Rows) ([]ReviewQueueItem, error) {
	var out []ReviewQueueItem
	for rows.Next() {
		it, err := scanReviewItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
