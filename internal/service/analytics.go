package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jask/jaskcloset/internal/database/repository"
)

// UnknownMerchant labels rows whose extraction found no merchant.
const UnknownMerchant = "Unknown"

// AnalyticsService materializes the per-user rollup from the queue's
// non-rejected rows. The record is fully derivable at any point in time:
// recomputation is a full replace, never an incremental delta.
type AnalyticsService struct {
	Queue     *repository.ReviewQueueRepo
	Analytics *repository.AnalyticsRepo
}

// Recompute rebuilds the rollup for one user. Zero source rows are a no-op:
// an aggregate over nothing is not meaningful, so no zero row is written.
func (s *AnalyticsService) Recompute(ctx context.Context, userID string) error {
	items, err := s.Queue.ListNonRejected(ctx, userID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	var totalCents int64
	merchantFreq := newTally()
	merchantSpend := newTally()
	categoryFreq := newTally()
	categorySpend := newTally()

	var first, last *time.Time
	for _, it := range items {
		merchant := UnknownMerchant
		if it.Merchant != nil && *it.Merchant != "" {
			merchant = *it.Merchant
		}
		category := DefaultCategory
		if it.Category != nil && *it.Category != "" {
			category = *it.Category
		}
		// unknown price counts as a purchase but adds nothing to spend
		var cents int64
		if it.PriceCents != nil {
			cents = *it.PriceCents
		}

		merchantFreq.add(merchant, 1)
		merchantSpend.add(merchant, cents)
		categoryFreq.add(category, 1)
		categorySpend.add(category, cents)
		totalCents += cents

		if it.PurchasedAt != nil {
			t := *it.PurchasedAt
			if first == nil || t.Before(*first) {
				first = &t
			}
			if last == nil || t.After(*last) {
				last = &t
			}
		}
	}

	count := len(items)
	topMerchantFreq, topMerchantFreqN := merchantFreq.top()
	topMerchantSpend, topMerchantSpendN := merchantSpend.top()
	topCategoryFreq, topCategoryFreqN := categoryFreq.top()
	topCategorySpend, topCategorySpendN := categorySpend.top()

	a := repository.Analytics{
		UserID:                  userID,
		TotalSpendingCents:      totalCents,
		TotalPurchases:          count,
		AveragePurchaseCents:    totalCents / int64(count),
		FrequentMerchant:        &topMerchantFreq,
		FrequentMerchantAmount:  &topMerchantFreqN,
		MerchantFreqJSON:        marshalTally(merchantFreq),
		MostSpentMerchant:       &topMerchantSpend,
		MostSpentMerchantAmount: &topMerchantSpendN,
		MerchantSpendingJSON:    marshalTally(merchantSpend),
		FrequentCategory:        &topCategoryFreq,
		FrequentCategoryAmount:  &topCategoryFreqN,
		CategoryFreqJSON:        marshalTally(categoryFreq),
		MostSpentCategory:       &topCategorySpend,
		MostSpentCategoryAmount: &topCategorySpendN,
		CategorySpendingJSON:    marshalTally(categorySpend),
		FirstPurchaseAt:         first,
		LastPurchaseAt:          last,
	}
	return s.Analytics.Upsert(ctx, a)
}

// Get returns the rollup, or ErrNotFound when no scan has produced one yet.
func (s *AnalyticsService) Get(ctx context.Context, userID string) (*repository.Analytics, error) {
	a, err := s.Analytics.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no analytics for user %s", ErrNotFound, userID)
	}
	return a, nil
}

// tally accumulates amounts per label, remembering first-encountered order.
// Ties in top() resolve to the earlier-encountered label.
type tally struct {
	order   []string
	amounts map[string]int64
}

func newTally() *tally { return &tally{amounts: make(map[string]int64)} }

func (t *tally) add(label string, amount int64) {
	if _, ok := t.amounts[label]; !ok {
		t.order = append(t.order, label)
	}
	t.amounts[label] += amount
}

func (t *tally) top() (string, int64) {
	var bestLabel string
	var bestAmount int64
	for i, label := range t.order {
		if i == 0 || t.amounts[label] > bestAmount {
			bestLabel = label
			bestAmount = t.amounts[label]
		}
	}
	return bestLabel, bestAmount
}

func marshalTally(t *tally) *string {
	raw, err := json.Marshal(t.amounts)
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}
