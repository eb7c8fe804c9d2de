package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/jaskcloset/internal/database/repository"
)

// DefaultCategory labels items whose category could not be resolved.
const DefaultCategory = "Other"

// ReviewService exposes the adjudication operations over the queue.
type ReviewService struct {
	Queue    *repository.ReviewQueueRepo
	Wardrobe *repository.WardrobeRepo

	Currency string
}

// PendingItemView is one queue row shaped for the consumer UI. PriceMissing
// gates approval client-side; the server enforces it again on approve.
type PendingItemView struct {
	ID           string     `json:"id"`
	Source       string     `json:"source"`
	Merchant     *string    `json:"merchant"`
	ItemName     string     `json:"item_name"`
	Category     *string    `json:"category"`
	Size         *string    `json:"size"`
	PriceCents   *int64     `json:"price_cents"`
	PriceMissing bool       `json:"price_missing"`
	Currency     string     `json:"currency"`
	PurchasedAt  *time.Time `json:"purchased_at"`
	ImageURL     *string    `json:"image_url"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ListPending returns the user's pending queue, newest first.
func (s *ReviewService) ListPending(ctx context.Context, userID string) ([]PendingItemView, error) {
	items, err := s.Queue.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]PendingItemView, 0, len(items))
	for _, it := range items {
		out = append(out, PendingItemView{
			ID:           it.ID,
			Source:       it.Source,
			Merchant:     it.Merchant,
			ItemName:     it.ItemName,
			Category:     it.Category,
			Size:         it.Size,
			PriceCents:   it.PriceCents,
			PriceMissing: it.PriceMissing(),
			Currency:     it.Currency,
			PurchasedAt:  it.PurchasedAt,
			ImageURL:     it.ImageURL,
			CreatedAt:    it.CreatedAt,
		})
	}
	return out, nil
}

// ApproveOverrides carries caller edits overlaid on stored values.
type ApproveOverrides struct {
	ItemName   *string
	Category   *string
	PriceCents *int64
}

// ApproveResult is everything the caller needs to update its state without a
// follow-up read.
type ApproveResult struct {
	WardrobeItemID string  `json:"wardrobe_item_id"`
	ItemName       string  `json:"item_name"`
	Category       string  `json:"category"`
	PriceCents     int64   `json:"price_cents"`
	Merchant       *string `json:"merchant"`
	ImageURL       *string `json:"image_url"`
}

// Approve moves a pending queue item into the wardrobe. The wardrobe insert
// and the status flip commit in one transaction; a failure in either half
// leaves the row pending.
func (s *ReviewService) Approve(ctx context.Context, userID, itemID string, ov ApproveOverrides) (ApproveResult, error) {
	item, err := s.Queue.Get(ctx, userID, itemID)
	if err != nil {
		return ApproveResult{}, err
	}
	if item == nil {
		return ApproveResult{}, fmt.Errorf("%w: review item %s", ErrNotFound, itemID)
	}
	if item.Status != repository.StatusPending {
		return ApproveResult{}, fmt.Errorf("%w: item is already %s", ErrConflict, item.Status)
	}

	price := item.PriceCents
	if ov.PriceCents != nil {
		price = ov.PriceCents
	}
	if price == nil {
		return ApproveResult{}, fmt.Errorf("%w: price is required before approval", ErrValidation)
	}

	name := item.ItemName
	if ov.ItemName != nil && strings.TrimSpace(*ov.ItemName) != "" {
		name = strings.TrimSpace(*ov.ItemName)
	}

	category := DefaultCategory
	if ov.Category != nil && *ov.Category != "" {
		category = *ov.Category
	} else if item.Category != nil && *item.Category != "" {
		category = *item.Category
	}

	currency := item.Currency
	if currency == "" {
		currency = s.Currency
	}

	w := repository.WardrobeItem{
		ID:          uuid.NewString(),
		UserID:      userID,
		Merchant:    item.Merchant,
		ItemName:    name,
		Category:    &category,
		Size:        item.Size,
		PriceCents:  *price,
		Currency:    currency,
		PurchasedAt: item.PurchasedAt,
		WearCount:   0,
		Source:      item.Source,
		ImageURL:    item.ImageURL,
	}
	if err := s.Queue.Approve(ctx, userID, itemID, w); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// row changed state between read and update
			return ApproveResult{}, fmt.Errorf("%w: item is no longer pending", ErrConflict)
		}
		return ApproveResult{}, err
	}

	return ApproveResult{
		WardrobeItemID: w.ID,
		ItemName:       w.ItemName,
		Category:       category,
		PriceCents:     w.PriceCents,
		Merchant:       w.Merchant,
		ImageURL:       w.ImageURL,
	}, nil
}

// Reject marks a pending item rejected. The row is retained: rejected rows
// keep future scans from re-queueing the same purchase.
func (s *ReviewService) Reject(ctx context.Context, userID, itemID string) error {
	item, err := s.Queue.Get(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: review item %s", ErrNotFound, itemID)
	}
	if item.Status != repository.StatusPending {
		return fmt.Errorf("%w: item is already %s", ErrConflict, item.Status)
	}
	if err := s.Queue.Reject(ctx, userID, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: item is no longer pending", ErrConflict)
		}
		return err
	}
	return nil
}

// ManualItem is a directly entered purchase, bypassing the mailbox pipeline.
type ManualItem struct {
	Merchant    *string
	ItemName    string
	Category    *string
	Size        *string
	PriceCents  *int64
	PurchasedAt *time.Time
	ImageURL    *string
}

// AddManual queues a manual entry as pending. Manual items carry no message id
// and are exempt from the mailbox dedup index.
func (s *ReviewService) AddManual(ctx context.Context, userID string, in ManualItem) (string, error) {
	name := strings.TrimSpace(in.ItemName)
	if name == "" {
		return "", fmt.Errorf("%w: item name is required", ErrValidation)
	}
	item := repository.ReviewQueueItem{
		ID:          uuid.NewString(),
		UserID:      userID,
		Source:      repository.SourceManual,
		Merchant:    in.Merchant,
		ItemName:    name,
		NameKey:     NormalizeName(name),
		Category:    in.Category,
		Size:        in.Size,
		PriceCents:  in.PriceCents,
		Currency:    s.Currency,
		PurchasedAt: in.PurchasedAt,
		ImageURL:    in.ImageURL,
	}
	if err := s.Queue.InsertPending(ctx, item); err != nil {
		return "", err
	}
	return item.ID, nil
}
