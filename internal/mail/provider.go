package mail

import (
	"context"
	"time"
)

// Email is one candidate receipt message as handed over by a mailbox provider.
// PricesFound and ImageURLs are side-channel hints pre-extracted from the HTML
// part; the extractor can use them when the plain text is lossy.
type Email struct {
	MessageID   string    `json:"message_id"`
	ThreadID    string    `json:"thread_id"`
	Subject     string    `json:"subject"`
	PlainText   string    `json:"plain_text"`
	ReceivedAt  time.Time `json:"received_at"`
	PricesFound []float64 `json:"prices_found"`
	ImageURLs   []string  `json:"image_urls"`
}

// Provider fetches candidate receipt emails for a user credential.
// Implementations may return the same message across calls; the scan pipeline
// deduplicates, so redundant delivery is expected and harmless.
type Provider interface {
	// FetchSince returns up to max messages received after the given time,
	// in provider order. The order is preserved downstream.
	FetchSince(ctx context.Context, credential string, after time.Time, max int) ([]Email, error)
}
