package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jask/jaskcloset/internal/database"
	"github.com/jask/jaskcloset/internal/database/repository"
	"github.com/jask/jaskcloset/internal/llm"
	"github.com/jask/jaskcloset/internal/mail"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(db))
	return db
}

func newTestUser(t *testing.T, db *sql.DB, id string) string {
	t.Helper()
	token := "refresh-token"
	err := repository.NewUserRepo(db).Insert(context.Background(), repository.User{
		ID:           id,
		Email:        id + "@test.local",
		RefreshToken: &token,
		Role:         "consumer",
	})
	require.NoError(t, err)
	return id
}

// fakeMail returns a fixed set of emails for every fetch.
type fakeMail struct {
	mu     sync.Mutex
	emails []mail.Email
	err    error
	calls  int
}

func (f *fakeMail) FetchSince(ctx context.Context, credential string, after time.Time, max int) ([]mail.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.emails, nil
}

// fakeExtractor returns canned results keyed by subject and counts calls.
type fakeExtractor struct {
	mu      sync.Mutex
	results map[string]llm.ExtractResult
	errFor  map[string]error
	calls   int
}

func (f *fakeExtractor) Extract(ctx context.Context, req llm.ExtractRequest) (llm.ExtractResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errFor[req.Subject]; ok {
		return llm.ExtractResult{}, err
	}
	return f.results[req.Subject], nil
}

func newScanner(t *testing.T, db *sql.DB, m mail.Provider, e llm.Extractor) *Scanner {
	t.Helper()
	queue := repository.NewReviewQueueRepo(db)
	return &Scanner{
		Users:      repository.NewUserRepo(db),
		Cursors:    repository.NewScanCursorRepo(db),
		Queue:      queue,
		Analytics:  &AnalyticsService{Queue: queue, Analytics: repository.NewAnalyticsRepo(db)},
		Mail:       m,
		Extractor:  e,
		Log:        zap.NewNop(),
		Currency:   "USD",
		MaxResults: 50,
	}
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func i64Ptr(i int64) *int64     { return &i }

func clothingItem(name string, price *float64, confidence float64) llm.ExtractedItem {
	return llm.ExtractedItem{
		ItemName:      name,
		Price:         price,
		CategoryGuess: strPtr("Tops"),
		Confidence:    confidence,
		IsClothing:    true,
	}
}
