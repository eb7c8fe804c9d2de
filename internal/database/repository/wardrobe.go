package repository

import (
	"context"
	"database/sql"
)

// WardrobeRepo handles approved wardrobe items.
type WardrobeRepo struct{ db *sql.DB }

func NewWardrobeRepo(db *sql.DB) *WardrobeRepo { return &WardrobeRepo{db: db} }

const wardrobeColumns = `id, user_id, merchant, item_name, category, size, color, price_cents,
 currency, purchased_at, wear_count, source, image_url, created_at`

func (r *WardrobeRepo) List(ctx context.Context, userID string) ([]WardrobeItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+wardrobeColumns+` FROM wardrobe_items WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WardrobeItem
	for rows.Next() {
		var w WardrobeItem
		if err := rows.Scan(&w.ID, &w.UserID, &w.Merchant, &w.ItemName, &w.Category, &w.Size, &w.Color,
			&w.PriceCents, &w.Currency, &w.PurchasedAt, &w.WearCount, &w.Source, &w.ImageURL, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WardrobeRepo) Get(ctx context.Context, userID, itemID string) (*WardrobeItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+wardrobeColumns+` FROM wardrobe_items WHERE id = ? AND user_id = ?`,
		itemID, userID)
	var w WardrobeItem
	err := row.Scan(&w.ID, &w.UserID, &w.Merchant, &w.ItemName, &w.Category, &w.Size, &w.Color,
		&w.PriceCents, &w.Currency, &w.PurchasedAt, &w.WearCount, &w.Source, &w.ImageURL, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// IncrementWearCount bumps the wear counter. Filled by outfit-logging flows.
func (r *WardrobeRepo) IncrementWearCount(ctx context.Context, userID, itemID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE wardrobe_items SET wear_count = wear_count + 1 WHERE id = ? AND user_id = ?`,
		itemID, userID)
	return err
}

// UpdateColor sets the color field. Filled by the color-analysis flow.
func (r *WardrobeRepo) UpdateColor(ctx context.Context, userID, itemID string, color *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE wardrobe_items SET color = ? WHERE id = ? AND user_id = ?`,
		color, itemID, userID)
	return err
}
