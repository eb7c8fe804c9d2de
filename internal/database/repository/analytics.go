package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// AnalyticsRepo handles the per-user analytics rollup.
type AnalyticsRepo struct{ db *sql.DB }

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

const analyticsColumns = `id, user_id, total_spending_cents, total_purchases, average_purchase_cents,
 frequent_merchant, frequent_merchant_amount, merchant_freq_json,
 most_spent_merchant, most_spent_merchant_amount, merchant_spending_json,
 frequent_category, frequent_category_amount, category_freq_json,
 most_spent_category, most_spent_category_amount, category_spending_json,
 first_purchase_at, last_purchase_at, updated_at`

func (r *AnalyticsRepo) Get(ctx context.Context, userID string) (*Analytics, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+analyticsColumns+` FROM user_analytics WHERE user_id = ?`, userID)
	var a Analytics
	err := row.Scan(&a.ID, &a.UserID, &a.TotalSpendingCents, &a.TotalPurchases, &a.AveragePurchaseCents,
		&a.FrequentMerchant, &a.FrequentMerchantAmount, &a.MerchantFreqJSON,
		&a.MostSpentMerchant, &a.MostSpentMerchantAmount, &a.MerchantSpendingJSON,
		&a.FrequentCategory, &a.FrequentCategoryAmount, &a.CategoryFreqJSON,
		&a.MostSpentCategory, &a.MostSpentCategoryAmount, &a.CategorySpendingJSON,
		&a.FirstPurchaseAt, &a.LastPurchaseAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert writes the rollup as a full replace. One row per user, ever.
func (r *AnalyticsRepo) Upsert(ctx context.Context, a Analytics) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO user_analytics(
	 id, user_id, total_spending_cents, total_purchases, average_purchase_cents,
	 frequent_merchant, frequent_merchant_amount, merchant_freq_json,
	 most_spent_merchant, most_spent_merchant_amount, merchant_spending_json,
	 frequent_category, frequent_category_amount, category_freq_json,
	 most_spent_category, most_spent_category_amount, category_spending_json,
	 first_purchase_at, last_purchase_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(user_id) DO UPDATE SET
	 total_spending_cents = excluded.total_spending_cents,
	 total_purchases = excluded.total_purchases,
	 average_purchase_cents = excluded.average_purchase_cents,
	 frequent_merchant = excluded.frequent_merchant,
	 frequent_merchant_amount = excluded.frequent_merchant_amount,
	 merchant_freq_json = excluded.merchant_freq_json,
	 most_spent_merchant = excluded.most_spent_merchant,
	 most_spent_merchant_amount = excluded.most_spent_merchant_amount,
	 merchant_spending_json = excluded.merchant_spending_json,
	 frequent_category = excluded.frequent_category,
	 frequent_category_amount = excluded.frequent_category_amount,
	 category_freq_json = excluded.category_freq_json,
	 most_spent_category = excluded.most_spent_category,
	 most_spent_category_amount = excluded.most_spent_category_amount,
	 category_spending_json = excluded.category_spending_json,
	 first_purchase_at = excluded.first_purchase_at,
	 last_purchase_at = excluded.last_purchase_at,
	 updated_at = CURRENT_TIMESTAMP;
	`,
		a.ID, a.UserID, a.TotalSpendingCents, a.TotalPurchases, a.AveragePurchaseCents,
		a.FrequentMerchant, a.FrequentMerchantAmount, a.MerchantFreqJSON,
		a.MostSpentMerchant, a.MostSpentMerchantAmount, a.MerchantSpendingJSON,
		a.FrequentCategory, a.FrequentCategoryAmount, a.CategoryFreqJSON,
		a.MostSpentCategory, a.MostSpentCategoryAmount, a.CategorySpendingJSON,
		a.FirstPurchaseAt, a.LastPurchaseAt)
	return err
}
