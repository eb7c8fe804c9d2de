package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/jaskcloset/internal/database/repository"
	"github.com/jask/jaskcloset/internal/llm"
	"github.com/jask/jaskcloset/internal/mail"
)

func TestScanInitialQueuesItems(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")

	emails := []mail.Email{
		{MessageID: "m1", ThreadID: "t1", Subject: "Your Uniqlo order", ReceivedAt: time.Now()},
		{MessageID: "m2", ThreadID: "t2", Subject: "Your Levi's order", ReceivedAt: time.Now()},
	}
	ex := &fakeExtractor{results: map[string]llm.ExtractResult{
		"Your Uniqlo order": {Merchant: strPtr("Uniqlo"), Items: []llm.ExtractedItem{
			clothingItem("Linen Shirt", f64Ptr(39.90), 0.92),
		}},
		"Your Levi's order": {Merchant: strPtr("Levi's"), Items: []llm.ExtractedItem{
			clothingItem("501 Jeans", f64Ptr(98.00), 0.95),
		}},
	}}
	s := newScanner(t, db, &fakeMail{emails: emails}, ex)

	res, err := s.Scan(ctx, user, ScanInitial, 90)
	require.NoError(t, err)
	require.Equal(t, ScanResult{QueuedCount: 2, ScannedMessages: 2, Errors: 0, SkippedDuplicates: 0}, res)

	pending, err := s.Queue.ListPending(ctx, user)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	cursor, err := s.Cursors.Get(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	require.Equal(t, 90, cursor.InitialScanDays)
	require.NotNil(t, cursor.LastScanAt)
}

func TestScanIdempotentRescan(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")

	emails := []mail.Email{
		{MessageID: "m1", ThreadID: "t1", Subject: "a", ReceivedAt: time.Now()},
		{MessageID: "m2", ThreadID: "t2", Subject: "b", ReceivedAt: time.Now()},
	}
	ex := &fakeExtractor{results: map[string]llm.ExtractResult{
		"a": {Items: []llm.ExtractedItem{clothingItem("Shirt", f64Ptr(10), 0.9)}},
		"b": {Items: []llm.ExtractedItem{clothingItem("Jeans", f64Ptr(20), 0.9)}},
	}}
	s := newScanner(t, db, &fakeMail{emails: emails}, ex)

	first, err := s.Scan(ctx, user, ScanInitial, 90)
	require.NoError(t, err)
	require.Equal(t, 2, first.QueuedCount)
	require.Equal(t, 2, ex.calls)

	second, err := s.Scan(ctx, user, ScanInitial, 90)
	require.NoError(t, err)
	require.Equal(t, 0, second.QueuedCount)
	require.Equal(t, first.QueuedCount, second.SkippedDuplicates)
	// email-level short-circuit bounds extractor calls to once per email ever
	require.Equal(t, 2, ex.calls)
}

func TestScanDedupWithinEmail(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")

	emails := []mail.Email{{MessageID: "m1", ThreadID: "t1", Subject: "dup", ReceivedAt: time.Now()}}
	ex := &fakeExtractor{results: map[string]llm.ExtractResult{
		"dup": {Items: []llm.ExtractedItem{
			clothingItem("Wool Scarf", f64Ptr(25), 0.9),
			clothingItem("  wool scarf ", nil, 0.88), // same normalized name
		}},
	}}
	s := newScanner(t, db, &fakeMail{emails: emails}, ex)

	res, err := s.Scan(ctx, user, ScanInitial, 30)
	require.NoError(t, err)
	require.Equal(t, 1, res.QueuedCount)
	require.Equal(t, 1, res.SkippedDuplicates)

	pending, err := s.Queue.ListPending(ctx, user)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "Wool Scarf", pending[0].ItemName) // first-seen wins
}

func TestScanConfidenceBoundary(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")

	emails := []mail.Email{{MessageID: "m1", ThreadID: "t1", Subject: "conf", ReceivedAt: time.Now()}}
	ex := &fakeExtractor{results: map[string]llm.ExtractResult{
		"conf": {Items: []llm.ExtractedItem{
			clothingItem("Kept Tee", f64Ptr(15), 0.65),
			clothingItem("Dropped Tee", f64Ptr(15), 0.64),
		}},
	}}
	s := newScanner(t, db, &fakeMail{emails: emails}, ex)

	res, err := s.Scan(ctx, user, ScanInitial, 30)
	require.NoError(t, err)
	require.Equal(t, 1, res.QueuedCount)

	pending, err := s.Queue.ListPending(ctx, user)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "Kept Tee", pending[0].ItemName)
}

func TestScanPriceConversion(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")

	emails := []mail.Email{{MessageID: "m1", ThreadID: "t1", Subject: "px", ReceivedAt: time.Now()}}
	ex := &fakeExtractor{results: map[string]llm.ExtractResult{
		"px": {Items: []llm.ExtractedItem{
			clothingItem("Priced Boot", f64Ptr(49.99), 0.9),
			clothingItem("Unpriced Hat", nil, 0.9),
		}},
	}}
	s := newScanner(t, db, &fakeMail{emails: emails}, ex)

	_, err := s.Scan(ctx, user, ScanInitial, 30)
	require.NoError(t, err)

	pending, err := s.Queue.ListPending(ctx, user)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	byName := map[string]repository.ReviewQueueItem{}
	for _, it := range pending {
		byName[it.ItemName] = it
	}
	require.NotNil(t, byName["Priced Boot"].PriceCents)
	require.Equal(t, int64(4999), *byName["Priced Boot"].PriceCents)
	require.Nil(t, byName["Unpriced Hat"].PriceCents) // unknown, never zero
	require.True(t, byName["Unpriced Hat"].PriceMissing())
}

func TestScanExtractionFailureIsCounted(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")

	emails := []mail.Email{
		{MessageID: "m1", ThreadID: "t1", Subject: "bad", ReceivedAt: time.Now()},
		{MessageID: "m2", ThreadID: "t2", Subject: "good", ReceivedAt: time.Now()},
	}
	ex := &fakeExtractor{
		results: map[string]llm.ExtractResult{
			"good": {Items: []llm.ExtractedItem{clothingItem("Parka", f64Ptr(120), 0.9)}},
		},
		errFor: map[string]error{"bad": errors.New("quota exceeded")},
	}
	s := newScanner(t, db, &fakeMail{emails: emails}, ex)

	res, err := s.Scan(ctx, user, ScanInitial, 30)
	require.NoError(t, err)
	require.Equal(t, ScanResult{QueuedCount: 1, ScannedMessages: 2, Errors: 1, SkippedDuplicates: 0}, res)
}

func TestScanIncrementalRequiresInitial(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")
	s := newScanner(t, db, &fakeMail{}, &fakeExtractor{})

	_, err := s.Scan(ctx, user, ScanIncremental, 0)
	require.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = s.Scan(ctx, user, ScanInitial, 30)
	require.NoError(t, err)

	res, err := s.Scan(ctx, user, ScanIncremental, 0)
	require.NoError(t, err)
	require.Equal(t, ScanResult{}, res)
}

func TestScanWindowValidation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")
	s := newScanner(t, db, &fakeMail{}, &fakeExtractor{})

	_, err := s.Scan(ctx, user, ScanInitial, 45)
	require.ErrorIs(t, err, ErrValidation)
}

func TestScanUnknownUser(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	s := newScanner(t, db, &fakeMail{}, &fakeExtractor{})

	_, err := s.Scan(ctx, "nobody", ScanInitial, 30)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestScanMailboxFailure(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")
	s := newScanner(t, db, &fakeMail{err: errors.New("connection reset")}, &fakeExtractor{})

	_, err := s.Scan(ctx, user, ScanInitial, 30)
	require.ErrorIs(t, err, ErrExternal)
}

func TestScanImageHintAssignment(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")

	emails := []mail.Email{{
		MessageID: "m1", ThreadID: "t1", Subject: "img", ReceivedAt: time.Now(),
		ImageURLs: []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"},
	}}
	withImage := clothingItem("Has Image Coat", f64Ptr(80), 0.9)
	withImage.ImageURL = strPtr("https://cdn.example/own.jpg")
	ex := &fakeExtractor{results: map[string]llm.ExtractResult{
		"img": {Items: []llm.ExtractedItem{
			withImage,
			clothingItem("No Image Shirt", f64Ptr(30), 0.9),
			clothingItem("No Image Jeans", f64Ptr(60), 0.9),
		}},
	}}
	s := newScanner(t, db, &fakeMail{emails: emails}, ex)

	_, err := s.Scan(ctx, user, ScanInitial, 30)
	require.NoError(t, err)

	pending, err := s.Queue.ListPending(ctx, user)
	require.NoError(t, err)
	byName := map[string]repository.ReviewQueueItem{}
	for _, it := range pending {
		byName[it.ItemName] = it
	}
	require.Equal(t, "https://cdn.example/own.jpg", *byName["Has Image Coat"].ImageURL)
	require.Equal(t, "https://cdn.example/a.jpg", *byName["No Image Shirt"].ImageURL)
	require.Equal(t, "https://cdn.example/b.jpg", *byName["No Image Jeans"].ImageURL)
}

func TestScanSerializedPerUser(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")

	emails := []mail.Email{
		{MessageID: "m1", ThreadID: "t1", Subject: "a", ReceivedAt: time.Now()},
		{MessageID: "m2", ThreadID: "t2", Subject: "b", ReceivedAt: time.Now()},
	}
	ex := &fakeExtractor{results: map[string]llm.ExtractResult{
		"a": {Items: []llm.ExtractedItem{clothingItem("Shirt", f64Ptr(10), 0.9)}},
		"b": {Items: []llm.ExtractedItem{clothingItem("Jeans", f64Ptr(20), 0.9)}},
	}}
	s := newScanner(t, db, &fakeMail{emails: emails}, ex)

	results := make(chan ScanResult, 2)
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			res, err := s.Scan(ctx, user, ScanInitial, 90)
			results <- res
			errs <- err
		}()
	}
	totalQueued := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, <-errs)
		totalQueued += (<-results).QueuedCount
	}
	// the per-user lock serializes the scans; the second sees committed rows
	require.Equal(t, 2, totalQueued)

	pending, err := s.Queue.ListPending(ctx, user)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestScanRecomputesAnalytics(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db := newTestDB(t)
	user := newTestUser(t, db, "u1")

	emails := []mail.Email{{MessageID: "m1", ThreadID: "t1", Subject: "a", ReceivedAt: time.Now()}}
	ex := &fakeExtractor{results: map[string]llm.ExtractResult{
		"a": {Merchant: strPtr("Uniqlo"), Items: []llm.ExtractedItem{clothingItem("Shirt", f64Ptr(10), 0.9)}},
	}}
	s := newScanner(t, db, &fakeMail{emails: emails}, ex)

	_, err := s.Scan(ctx, user, ScanInitial, 30)
	require.NoError(t, err)

	a, err := s.Analytics.Get(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 1, a.TotalPurchases)
	require.Equal(t, int64(1000), a.TotalSpendingCents)
}
