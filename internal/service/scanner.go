package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/jaskcloset/internal/database"
	"github.com/jask/jaskcloset/internal/database/repository"
	"github.com/jask/jaskcloset/internal/llm"
	"github.com/jask/jaskcloset/internal/mail"
	"github.com/jask/jaskcloset/internal/secrets"
)

// ScanMode selects how the scan window lower bound is resolved.
type ScanMode string

const (
	ScanInitial     ScanMode = "initial"
	ScanIncremental ScanMode = "incremental"
)

// AllowedWindows are the valid initial scan windows in days.
var AllowedWindows = map[int]bool{30: true, 90: true, 180: true}

// ScanResult is the structured count object every completed scan returns,
// even when some emails failed extraction.
type ScanResult struct {
	QueuedCount       int `json:"queued_count"`
	ScannedMessages   int `json:"scanned_messages"`
	Errors            int `json:"errors"`
	SkippedDuplicates int `json:"skipped_duplicates"`
}

// Scanner drives the scan-to-queue pipeline for one user per invocation.
type Scanner struct {
	Users     *repository.UserRepo
	Cursors   *repository.ScanCursorRepo
	Queue     *repository.ReviewQueueRepo
	Analytics *AnalyticsService
	Mail      mail.Provider
	Extractor llm.Extractor
	Log       *zap.Logger

	Currency   string
	MaxResults int

	locks userLocks
}

// Scan runs one scan for the user. Initial mode always re-resolves the window
// from windowDays; incremental mode requires a prior successful scan.
//
// The cursor records the scan's start time, not completion time, so emails
// arriving mid-scan are re-covered by the next run. The narrow cost: an email
// delivered after start but indexed before completion is fetched twice and
// skipped as a duplicate the second time.
func (s *Scanner) Scan(ctx context.Context, userID string, mode ScanMode, windowDays int) (ScanResult, error) {
	release := s.locks.acquire(userID)
	defer release()

	start := database.Now()

	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return ScanResult{}, err
	}
	if user == nil {
		return ScanResult{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if user.RefreshToken == nil {
		return ScanResult{}, fmt.Errorf("%w: no mailbox credential, complete auth first", ErrPreconditionFailed)
	}
	credential := unsealCredential(*user.RefreshToken)

	after, err := s.resolveWindow(ctx, userID, mode, windowDays, start)
	if err != nil {
		return ScanResult{}, err
	}

	log := s.Log.With(zap.String("user_id", userID), zap.String("mode", string(mode)))
	log.Info("scan started", zap.Time("after", after))

	emails, err := s.Mail.FetchSince(ctx, credential, after, s.MaxResults)
	if err != nil {
		return ScanResult{}, fmt.Errorf("%w: fetch emails: %v", ErrExternal, err)
	}

	res := ScanResult{ScannedMessages: len(emails)}
	for _, email := range emails {
		if err := s.processEmail(ctx, userID, email, &res, log); err != nil {
			return res, err
		}
	}

	// Analytics freshness never fails a scan; queue data is already durable.
	if err := s.Analytics.Recompute(ctx, userID); err != nil {
		log.Warn("analytics recompute failed", zap.Error(err))
	}

	var days *int
	if mode == ScanInitial {
		days = &windowDays
	}
	if err := s.Cursors.Upsert(ctx, userID, days, start); err != nil {
		return res, err
	}

	log.Info("scan finished",
		zap.Int("queued", res.QueuedCount),
		zap.Int("scanned", res.ScannedMessages),
		zap.Int("errors", res.Errors),
		zap.Int("skipped_duplicates", res.SkippedDuplicates))
	return res, nil
}

func (s *Scanner) resolveWindow(ctx context.Context, userID string, mode ScanMode, windowDays int, start time.Time) (time.Time, error) {
	switch mode {
	case ScanInitial:
		if !AllowedWindows[windowDays] {
			return time.Time{}, fmt.Errorf("%w: window_days must be one of 30, 90, 180", ErrValidation)
		}
		return start.AddDate(0, 0, -windowDays), nil
	case ScanIncremental:
		cursor, err := s.Cursors.Get(ctx, userID)
		if err != nil {
			return time.Time{}, err
		}
		if cursor == nil || cursor.LastScanAt == nil {
			return time.Time{}, fmt.Errorf("%w: run an initial scan first", ErrPreconditionFailed)
		}
		return *cursor.LastScanAt, nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown scan mode %q", ErrValidation, mode)
	}
}

// processEmail runs extraction and dedup for one email. Extraction failures
// are counted and absorbed; only storage errors that are not constraint
// violations propagate and abort the scan.
func (s *Scanner) processEmail(ctx context.Context, userID string, email mail.Email, res *ScanResult, log *zap.Logger) error {
	// Email-level short-circuit: one extractor call per email, ever.
	exists, err := s.Queue.ExistsForMessage(ctx, userID, email.MessageID)
	if err != nil {
		return err
	}
	if exists {
		res.SkippedDuplicates++
		return nil
	}

	extraction, err := s.Extractor.Extract(ctx, llm.ExtractRequest{
		Subject:     email.Subject,
		PlainText:   email.PlainText,
		PricesFound: email.PricesFound,
		ImageURLs:   email.ImageURLs,
	})
	if err != nil {
		res.Errors++
		log.Warn("extraction failed", zap.String("message_id", email.MessageID), zap.Error(err))
		return nil
	}

	rawPayload := marshalExtraction(extraction)
	candidates := NormalizeCandidates(extraction, email.ImageURLs)

	// In-batch name set; first-seen-wins within the email.
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c.NameKey] {
			res.SkippedDuplicates++
			continue
		}
		s.logNearDuplicate(c.NameKey, seen, log)

		item := repository.ReviewQueueItem{
			ID:             uuid.NewString(),
			UserID:         userID,
			Source:         repository.SourceMailbox,
			Merchant:       c.Merchant,
			ItemName:       c.ItemName,
			NameKey:        c.NameKey,
			Category:       c.Category,
			Size:           c.Size,
			PriceCents:     c.PriceCents,
			Currency:       s.Currency,
			PurchasedAt:    c.PurchasedAt,
			EmailMessageID: &email.MessageID,
			EmailThreadID:  &email.ThreadID,
			ImageURL:       c.ImageURL,
			ExtractedJSON:  rawPayload,
		}
		if err := s.Queue.InsertPending(ctx, item); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				res.SkippedDuplicates++
				seen[c.NameKey] = true
				continue
			}
			return err
		}
		res.QueuedCount++
		seen[c.NameKey] = true
	}
	return nil
}

// logNearDuplicate flags names one edit apart from an already-queued name.
// Observability only; it never changes the keep/skip decision.
func (s *Scanner) logNearDuplicate(key string, seen map[string]bool, log *zap.Logger) {
	for prev := range seen {
		if levenshtein.ComputeDistance(key, prev) == 1 {
			log.Debug("near-duplicate item name", zap.String("name", key), zap.String("existing", prev))
			return
		}
	}
}

func marshalExtraction(res llm.ExtractResult) *string {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}

// unsealCredential decrypts the stored mailbox token. Rows created before
// at-rest sealing hold plain tokens and pass through unchanged.
func unsealCredential(stored string) string {
	if plain, err := secrets.OpenToken(stored); err == nil {
		return plain
	}
	return stored
}
