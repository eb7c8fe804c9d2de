package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jask/jaskcloset/internal/database/repository"
)

// WardrobeService exposes the confirmed-wardrobe operations.
type WardrobeService struct {
	Wardrobe *repository.WardrobeRepo
}

// WardrobeItemView is one owned item shaped for the consumer UI.
type WardrobeItemView struct {
	ID          string     `json:"id"`
	Merchant    *string    `json:"merchant"`
	ItemName    string     `json:"item_name"`
	Category    *string    `json:"category"`
	Size        *string    `json:"size"`
	Color       *string    `json:"color"`
	PriceCents  int64      `json:"price_cents"`
	Currency    string     `json:"currency"`
	PurchasedAt *time.Time `json:"purchased_at"`
	WearCount   int        `json:"wear_count"`
	Source      string     `json:"source"`
	ImageURL    *string    `json:"image_url"`
	CreatedAt   time.Time  `json:"created_at"`
}

// List returns the user's wardrobe, newest first.
func (s *WardrobeService) List(ctx context.Context, userID string) ([]WardrobeItemView, error) {
	items, err := s.Wardrobe.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]WardrobeItemView, 0, len(items))
	for _, w := range items {
		out = append(out, WardrobeItemView{
			ID:          w.ID,
			Merchant:    w.Merchant,
			ItemName:    w.ItemName,
			Category:    w.Category,
			Size:        w.Size,
			Color:       w.Color,
			PriceCents:  w.PriceCents,
			Currency:    w.Currency,
			PurchasedAt: w.PurchasedAt,
			WearCount:   w.WearCount,
			Source:      w.Source,
			ImageURL:    w.ImageURL,
			CreatedAt:   w.CreatedAt,
		})
	}
	return out, nil
}

// LogWear records one wear of an item and returns the new count.
func (s *WardrobeService) LogWear(ctx context.Context, userID, itemID string) (int, error) {
	w, err := s.Wardrobe.Get(ctx, userID, itemID)
	if err != nil {
		return 0, err
	}
	if w == nil {
		return 0, fmt.Errorf("%w: wardrobe item %s", ErrNotFound, itemID)
	}
	if err := s.Wardrobe.IncrementWearCount(ctx, userID, itemID); err != nil {
		return 0, err
	}
	return w.WearCount + 1, nil
}

// SetColor records the item's dominant color. An empty color clears it.
func (s *WardrobeService) SetColor(ctx context.Context, userID, itemID, color string) error {
	w, err := s.Wardrobe.Get(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if w == nil {
		return fmt.Errorf("%w: wardrobe item %s", ErrNotFound, itemID)
	}
	var val *string
	if c := strings.TrimSpace(color); c != "" {
		val = &c
	}
	return s.Wardrobe.UpdateColor(ctx, userID, itemID, val)
}
