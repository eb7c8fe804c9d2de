package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/jaskcloset/internal/database/repository"
)

func newReviewService(db *sql.DB) *ReviewService {
	return &ReviewService{
		Queue:    repository.NewReviewQueueRepo(db),
		Wardrobe: repository.NewWardrobeRepo(db),
		Currency: "USD",
	}
}

func queuePending(t *testing.T, svc *ReviewService, userID, name string, price *int64) string {
	t.Helper()
	id, err := svc.AddManual(context.Background(), userID, ManualItem{
		ItemName:   name,
		Merchant:   strPtr("Uniqlo"),
		Category:   strPtr("Tops"),
		PriceCents: price,
	})
	require.NoError(t, err)
	return id
}

func TestApproveCreatesWardrobeItem(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")
	svc := newReviewService(db)

	id := queuePending(t, svc, user, "Linen Shirt", i64Ptr(3990))

	res, err := svc.Approve(ctx, user, id, ApproveOverrides{})
	require.NoError(t, err)
	require.Equal(t, "Linen Shirt", res.ItemName)
	require.Equal(t, "Tops", res.Category)
	require.Equal(t, int64(3990), res.PriceCents)

	w, err := svc.Wardrobe.Get(ctx, user, res.WardrobeItemID)
	require.NoError(t, err)
	require.NotNil(t, w)
	require.Equal(t, 0, w.WearCount)

	item, err := svc.Queue.Get(ctx, user, id)
	require.NoError(t, err)
	require.Equal(t, repository.StatusApproved, item.Status)
}

func TestApproveBlocksMissingPrice(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")
	svc := newReviewService(db)

	id := queuePending(t, svc, user, "Mystery Jacket", nil)

	_, err := svc.Approve(ctx, user, id, ApproveOverrides{})
	require.ErrorIs(t, err, ErrValidation)

	// still pending after the failed approve
	item, err := svc.Queue.Get(ctx, user, id)
	require.NoError(t, err)
	require.Equal(t, repository.StatusPending, item.Status)

	// supplying the price unblocks it
	res, err := svc.Approve(ctx, user, id, ApproveOverrides{PriceCents: i64Ptr(12500)})
	require.NoError(t, err)
	require.Equal(t, int64(12500), res.PriceCents)
}

func TestApproveOverrides(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")
	svc := newReviewService(db)

	id := queuePending(t, svc, user, "sweter", i64Ptr(4000))

	res, err := svc.Approve(ctx, user, id, ApproveOverrides{
		ItemName:   strPtr("Merino Sweater"),
		Category:   strPtr("Outerwear"),
		PriceCents: i64Ptr(4500),
	})
	require.NoError(t, err)
	require.Equal(t, "Merino Sweater", res.ItemName)
	require.Equal(t, "Outerwear", res.Category)
	require.Equal(t, int64(4500), res.PriceCents)
}

func TestTerminalStatesConflict(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")
	svc := newReviewService(db)

	approved := queuePending(t, svc, user, "Approved Tee", i64Ptr(1500))
	rejected := queuePending(t, svc, user, "Rejected Tee", i64Ptr(1500))

	_, err := svc.Approve(ctx, user, approved, ApproveOverrides{})
	require.NoError(t, err)
	require.NoError(t, svc.Reject(ctx, user, rejected))

	// no transition out of terminal states
	_, err = svc.Approve(ctx, user, rejected, ApproveOverrides{})
	require.ErrorIs(t, err, ErrConflict)
	err = svc.Reject(ctx, user, approved)
	require.ErrorIs(t, err, ErrConflict)
	err = svc.Reject(ctx, user, rejected)
	require.ErrorIs(t, err, ErrConflict)
}

func TestReviewNotFoundScoping(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	owner := newTestUser(t, db, "owner")
	other := newTestUser(t, db, "other")
	svc := newReviewService(db)

	id := queuePending(t, svc, owner, "Private Coat", i64Ptr(9000))

	// another user cannot see or mutate the row
	_, err := svc.Approve(ctx, other, id, ApproveOverrides{})
	require.ErrorIs(t, err, ErrNotFound)
	err = svc.Reject(ctx, other, id)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Approve(ctx, owner, "missing-id", ApproveOverrides{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListPendingViewsNewestFirst(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")
	svc := newReviewService(db)

	queuePending(t, svc, user, "First Shirt", i64Ptr(1000))
	missing := queuePending(t, svc, user, "No Price Shirt", nil)

	views, err := svc.ListPending(ctx, user)
	require.NoError(t, err)
	require.Len(t, views, 2)

	byName := map[string]PendingItemView{}
	for _, v := range views {
		byName[v.ItemName] = v
	}
	require.False(t, byName["First Shirt"].PriceMissing)
	require.True(t, byName["No Price Shirt"].PriceMissing)
	require.Equal(t, missing, byName["No Price Shirt"].ID)

	// approval removes the row from the pending view
	_, err = svc.Approve(ctx, user, byName["First Shirt"].ID, ApproveOverrides{})
	require.NoError(t, err)
	views, err = svc.ListPending(ctx, user)
	require.NoError(t, err)
	require.Len(t, views, 1)
}

func TestAddManualRequiresName(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")
	svc := newReviewService(db)

	_, err := svc.AddManual(ctx, user, ManualItem{ItemName: "   "})
	require.ErrorIs(t, err, ErrValidation)
}
