package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/jask/jaskcloset/internal/database/repository"
)

// SeedDemo creates fake consumer accounts with queue history plus one business
// account, for demoing the analytics dashboard. Idempotent: users are matched
// by email and skipped when present. Approved and rejected rows go through the
// same state transitions as live adjudication, so every approved queue row has
// its wardrobe counterpart.
func SeedDemo(ctx context.Context, db *sql.DB, currency string) error {
	users := repository.NewUserRepo(db)
	queue := repository.NewReviewQueueRepo(db)

	type demoItem struct {
		name     string
		merchant string
		category string
		cents    int64
		daysAgo  int
		status   string
	}
	demos := []struct {
		email string
		first string
		last  string
		role  string
		items []demoItem
	}{
		{
			email: "sofia@demo.jaskcloset.dev", first: "Sofia", last: "Reyes", role: "consumer",
			items: []demoItem{
				{"Linen Camp Collar Shirt", "Uniqlo", "Tops", 3990, 40, repository.StatusApproved},
				{"High-Rise Wide Leg Jeans", "Levi's", "Bottoms", 9800, 33, repository.StatusApproved},
				{"Canvas Low-Top Sneakers", "Veja", "Shoes", 15000, 21, repository.StatusApproved},
				{"Ribbed Knit Tank", "Uniqlo", "Tops", 1490, 9, repository.StatusPending},
			},
		},
		{
			email: "marcus@demo.jaskcloset.dev", first: "Marcus", last: "Chen", role: "consumer",
			items: []demoItem{
				{"Wool Overcoat", "COS", "Outerwear", 22500, 60, repository.StatusApproved},
				{"Oxford Button-Down", "J.Crew", "Tops", 6450, 45, repository.StatusApproved},
				{"Leather Belt", "J.Crew", "Accessories", 4950, 45, repository.StatusApproved},
				{"Slim Chinos", "Everlane", "Bottoms", 6800, 14, repository.StatusRejected},
			},
		},
		{
			email: "analyst@demo.jaskcloset.dev", first: "Dana", last: "Whitfield", role: "business",
		},
	}

	for _, d := range demos {
		existing, err := users.GetByEmail(ctx, d.email)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		hash, err := repository.HashPassword("demo-password")
		if err != nil {
			return err
		}
		u := repository.User{
			ID:           demoID("user:" + d.email),
			Email:        d.email,
			FirstName:    &d.first,
			LastName:     &d.last,
			PasswordHash: &hash,
			Role:         d.role,
		}
		if err := users.Insert(ctx, u); err != nil {
			return err
		}

		for _, it := range d.items {
			merchant := it.merchant
			category := it.category
			cents := it.cents
			purchased := Now().AddDate(0, 0, -it.daysAgo)
			item := repository.ReviewQueueItem{
				ID:          demoID("item:" + d.email + ":" + it.name),
				UserID:      u.ID,
				Source:      repository.SourceManual,
				Merchant:    &merchant,
				ItemName:    it.name,
				NameKey:     strings.ToLower(strings.TrimSpace(it.name)),
				Category:    &category,
				PriceCents:  &cents,
				Currency:    currency,
				PurchasedAt: &purchased,
			}
			if err := queue.InsertPending(ctx, item); err != nil {
				return err
			}
			switch it.status {
			case repository.StatusApproved:
				w := repository.WardrobeItem{
					ID:          demoID("wardrobe:" + d.email + ":" + it.name),
					UserID:      u.ID,
					Merchant:    &merchant,
					ItemName:    it.name,
					Category:    &category,
					PriceCents:  cents,
					Currency:    currency,
					PurchasedAt: &purchased,
					Source:      repository.SourceManual,
				}
				if err := queue.Approve(ctx, u.ID, item.ID, w); err != nil {
					return err
				}
			case repository.StatusRejected:
				if err := queue.Reject(ctx, u.ID, item.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// demoID derives a stable id so re-running the seed never duplicates rows.
func demoID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.ToLower(key))).String()
}
